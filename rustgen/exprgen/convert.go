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
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// isCopy returns true if values of the type are copied instead of moved in Rust.
func isCopy(t types.Type) bool {
	switch tT := t.(type) {
	case *types.Tuple:
		for _, elem := range tT.Elems {
			if !isCopy(elem) {
				return false
			}
		}
		return true
	}
	switch kindOf(t) {
	case types.IntKind, types.FloatKind, types.BoolKind, types.NoneKind:
		return true
	}
	return false
}

// Value generates an expression producing an owned value.
// A variable still read afterwards is cloned and a borrowed string is converted to a String.
func (g *Generator) Value(x hir.Expr) (rast.Expr, error) {
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	typ := g.typeOf(x)
	switch xT := x.(type) {
	case *hir.Var:
		if g.derefs[xT.Name] > 0 {
			if isCopy(typ) {
				return e, nil
			}
			return rast.M(rast.Id(Ident(xT.Name)), "clone"), nil
		}
		if g.ctx.IsStrParam(xT.Name) {
			return rast.M(e, "to_string"), nil
		}
		if !isCopy(typ) && g.isLive(xT.Name) {
			return rast.M(e, "clone"), nil
		}
	case *hir.Attr:
		if !isCopy(typ) {
			if _, isField := e.(*rast.Field); isField {
				return rast.M(e, "clone"), nil
			}
		}
	}
	return e, nil
}

// Coerce generates an expression converted to a target type.
// It is used for assignments, arguments and return values.
func (g *Generator) Coerce(x hir.Expr, want types.Type) (rast.Expr, error) {
	if want == nil {
		return g.Value(x)
	}
	have := g.typeOf(x)
	switch {
	case g.wantsDyn(want) && !g.isDyn(x):
		return g.lift(x)
	case g.isDyn(x) && !types.IsDV(want):
		if ext, ok := infer.DVExtraction(want); ok {
			e, err := g.Expr(x)
			if err != nil {
				return nil, err
			}
			g.trace(x, "dv-extraction", "extract "+want.String()+" from a dynamic value")
			var out rast.Expr = rast.M(e, ext.Method)
			if ext.Cast != "" {
				out = cast(out, ext.Cast)
			}
			return out, nil
		}
	case want.Kind() == types.FloatKind && have.Kind() == types.IntKind:
		if f, ok := floatLit(x); ok {
			return f, nil
		}
		e, err := g.Expr(x)
		if err != nil {
			return nil, err
		}
		return cast(e, "f64"), nil
	case want.Kind() == types.IntKind && infer.ReturnsF64(x):
		e, err := g.Expr(x)
		if err != nil {
			return nil, err
		}
		return cast(e, "i32"), nil
	case want.Kind() == types.OptionalKind:
		if isNoneLit(x) {
			return rast.Id("None"), nil
		}
		if have.Kind() != types.OptionalKind && !infer.IsOptionExpr(g.ctx, x) {
			elem, err := g.Coerce(x, types.ElemOf(want))
			if err != nil {
				return nil, err
			}
			return rast.C(rast.Id("Some"), elem), nil
		}
	case want.Kind() == types.StringKind:
		e, err := g.Value(x)
		if err != nil {
			return nil, err
		}
		if _, isDeref := e.(*rast.Deref); isDeref {
			return rast.M(e, "to_string"), nil
		}
		return e, nil
	}
	return g.Value(x)
}

// wantsDyn returns true if a value converted to the type must be lifted into a DynValue.
// An unknown target only lifts in NASA mode.
func (g *Generator) wantsDyn(want types.Type) bool {
	if !types.IsDV(want) {
		return false
	}
	return g.ctx.Flag(genctx.NasaMode) || want.Kind() != types.UnknownKind
}

// lift generates an expression converting a value into a DynValue.
func (g *Generator) lift(x hir.Expr) (rast.Expr, error) {
	g.facade()
	if g.isDyn(x) {
		return g.Expr(x)
	}
	switch xT := x.(type) {
	case *hir.Lit:
		switch xT.Kind {
		case hir.LitNone:
			return rast.P(types.DVName, "None"), nil
		case hir.LitStr:
			return rast.PC(types.DVName+"::Str", rast.M(rast.Str(xT.Text), "to_string")), nil
		case hir.LitInt:
			e, err := g.lit(xT, true)
			if err != nil {
				return nil, err
			}
			return rast.PC(types.DVName+"::Int", e), nil
		}
	case *hir.TupleLit:
		elts := make([]rast.Expr, len(xT.Elts))
		for i, elt := range xT.Elts {
			var err error
			if elts[i], err = g.lift(elt); err != nil {
				return nil, err
			}
		}
		return rast.PC(types.DVName+"::Tuple", rast.Vec(elts...)), nil
	case *hir.ListLit:
		elts := make([]rast.Expr, len(xT.Elts))
		for i, elt := range xT.Elts {
			var err error
			if elts[i], err = g.lift(elt); err != nil {
				return nil, err
			}
		}
		return rast.PC(types.DVName+"::List", rast.Vec(elts...)), nil
	case *hir.Var:
		if g.ctx.IsStrParam(xT.Name) {
			return rast.PC(types.DVName+"::Str", rast.M(g.variable(xT), "to_string")), nil
		}
	}
	e, err := g.Value(x)
	if err != nil {
		return nil, err
	}
	return liftRust(e, g.typeOf(x)), nil
}

// liftRust converts a generated expression of a given type into a DynValue.
func liftRust(e rast.Expr, typ types.Type) rast.Expr {
	dv := func(variant string, args ...rast.Expr) rast.Expr {
		return rast.PC(types.DVName+"::"+variant, args...)
	}
	switch typT := typ.(type) {
	case *types.Tuple:
		elts := make([]rast.Expr, len(typT.Elems))
		for i, elem := range typT.Elems {
			elts[i] = liftRust(&rast.Field{X: e, Name: strconvInt(int64(i))}, elem)
		}
		return dv("Tuple", rast.Vec(elts...))
	case *types.Set:
		return dv("List", collect(rast.M(rast.M(e, "into_iter"), "map", rast.P(types.DVName, "from")), vecOfInfer()))
	case *types.Dict:
		kv := rast.Tuple{Elts: []rast.Expr{rast.Id("k"), rast.Id("v")}}
		pair := &rast.Tuple{Elts: []rast.Expr{
			dv("from", rast.Id("k")),
			dv("from", rast.Id("v")),
		}}
		mapped := rast.M(rast.M(e, "into_iter"), "map", closure(pair, &kv))
		return dv("Dict", rast.M(mapped, "collect"))
	}
	switch kindOf(typ) {
	case types.IntKind:
		return dv("Int", cast(e, "i64"))
	case types.FloatKind:
		return dv("Float", e)
	case types.BoolKind:
		return dv("Bool", e)
	case types.StringKind:
		return dv("Str", e)
	case types.NoneKind:
		return rast.P(types.DVName, "None")
	}
	return dv("from", e)
}
