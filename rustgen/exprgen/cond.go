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

package exprgen

import (
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// Cond generates a boolean condition.
// A value which is not a boolean is tested for truthiness:
// collections and strings are true if not empty, numbers if not zero
// and options if they hold a value.
func (g *Generator) Cond(x hir.Expr) (rast.Expr, error) {
	switch xT := x.(type) {
	case *hir.Binary:
		if xT.Op == hir.And || xT.Op == hir.Or {
			left, err := g.Cond(xT.X)
			if err != nil {
				return nil, err
			}
			right, err := g.Cond(xT.Y)
			if err != nil {
				return nil, err
			}
			op := "&&"
			if xT.Op == hir.Or {
				op = "||"
			}
			return rast.Bin(op, left, right), nil
		}
	case *hir.Unary:
		if xT.Op == hir.Not {
			if !infer.IsBoolReturning(g.ctx, xT.X) {
				return g.falsy(xT.X)
			}
			cond, err := g.Cond(xT.X)
			if err != nil {
				return nil, err
			}
			return rast.Not(cond), nil
		}
	case *hir.NamedExpr:
		e, err := g.Expr(xT)
		if err != nil {
			return nil, err
		}
		return g.truthy(&hir.Var{Pos: xT.Pos, Name: xT.Target}, e), nil
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	return g.truthy(x, e), nil
}

// truthy tests the truthiness of a generated expression.
func (g *Generator) truthy(x hir.Expr, e rast.Expr) rast.Expr {
	typ := g.typeOf(x)
	if typ.Kind() == types.BoolKind {
		return e
	}
	if typ.Kind() == types.OptionalKind || infer.IsOptionExpr(g.ctx, x) {
		return rast.M(e, "is_some")
	}
	if g.isDyn(x) {
		g.facade()
		g.trace(x, "truthy-protocol", "truthiness of a dynamic value")
		return rast.M(e, "is_true")
	}
	switch typT := typ.(type) {
	case *types.Tuple:
		return rast.Bool(len(typT.Elems) > 0)
	case *types.Generic:
		if typT.Base == "Iterator" || typT.Base == "Generator" || typT.Base == "Iterable" {
			return rast.Bool(true)
		}
		return rast.Not(rast.M(e, "is_empty"))
	case *types.Custom:
		return rast.Bool(true)
	}
	switch typ.Kind() {
	case types.IntKind:
		return rast.Bin("!=", e, rast.Int("0"))
	case types.FloatKind:
		return rast.Bin("!=", e, rast.Float("0.0"))
	case types.StringKind, types.ListKind, types.SetKind, types.DictKind:
		return rast.Not(rast.M(e, "is_empty"))
	case types.NoneKind:
		return rast.Bool(false)
	}
	g.facade()
	g.trace(x, "truthy-protocol", "truthiness of a value of type "+typ.String())
	return rast.M(e, "is_true")
}

// falsy generates the negation of the truthiness of a value.
func (g *Generator) falsy(x hir.Expr) (rast.Expr, error) {
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	typ := g.typeOf(x)
	switch {
	case typ.Kind() == types.OptionalKind || infer.IsOptionExpr(g.ctx, x):
		return rast.M(e, "is_none"), nil
	case g.isDyn(x):
		g.facade()
		return rast.Not(rast.M(e, "is_true")), nil
	}
	switch typ.Kind() {
	case types.IntKind:
		return rast.Bin("==", e, rast.Int("0")), nil
	case types.FloatKind:
		return rast.Bin("==", e, rast.Float("0.0")), nil
	case types.StringKind, types.ListKind, types.SetKind, types.DictKind:
		return rast.M(e, "is_empty"), nil
	}
	return rast.Not(g.truthy(x, e)), nil
}
