// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package module

import (
	"fmt"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/stmtgen"
)

// scalar returns the literal of a scalar constant, looking through a negation.
func scalar(x hir.Expr) (*hir.Lit, bool) {
	if un, ok := x.(*hir.Unary); ok && un.Op == hir.Neg {
		x = un.X
	}
	lit, ok := x.(*hir.Lit)
	if !ok || lit.Kind == hir.LitNone {
		return nil, false
	}
	return lit, true
}

// constant generates a module constant.
// Scalars are Rust constants. Other values are lazily initialized statics.
func (t *translator) constant(c *hir.Assign) (rast.Item, error) {
	sym, ok := c.Target.(*hir.SymbolTarget)
	if !ok {
		return nil, fmterr.Unsupportedf(c.Span(), "Assign", "module-level assignment to %T", c.Target)
	}
	typ, ok := t.ctx.Registry().Constants.Load(sym.Name)
	if !ok {
		return nil, fmterr.Internalf(c.Span(), "constant %s has not been registered", sym.Name)
	}
	name := exprgen.Ident(sym.Name)
	g := stmtgen.New(exprgen.New(t.ctx))
	if lit, ok := scalar(c.Value); ok {
		if lit.Kind == hir.LitStr {
			return &rast.Const{Name: name, Type: strRef, Value: rast.Str(lit.Text)}, nil
		}
		v, err := g.Expr().Coerce(c.Value, typ)
		if err != nil {
			return nil, err
		}
		return &rast.Const{Name: name, Type: g.Type(typ), Value: v}, nil
	}
	if !t.opts.HasLazyLock() {
		return nil, fmterr.Unsupportedf(c.Span(), "Assign", "constant %s needs std::sync::LazyLock which requires Rust 1.80", sym.Name)
	}
	v, err := g.Expr().Coerce(c.Value, typ)
	if err != nil {
		return nil, err
	}
	if hoisted := g.Expr().TakeHoisted(); len(hoisted) > 0 {
		return nil, fmterr.Unsupportedf(c.Span(), "Assign", "constant %s cannot be computed by an expression", sym.Name)
	}
	if types.IsUnknown(typ) {
		if err := t.ctx.Warn(fmterr.Ambiguousf(c.Span(), "Assign", "type of constant %s cannot be inferred", sym.Name)); err != nil {
			return nil, err
		}
	}
	src := fmt.Sprintf("static %s: std::sync::LazyLock<%s> = std::sync::LazyLock::new(|| %s);",
		name, rast.String(g.Type(typ)), rast.String(v))
	return &rast.Raw{Name: name, Text: src}, nil
}
