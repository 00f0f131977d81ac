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

func (g *Generator) comparison(x *hir.Binary) (rast.Expr, error) {
	op := x.Op.RustOp()
	left, right := g.typeOf(x.X), g.typeOf(x.Y)
	switch {
	case g.isDyn(x.X) || g.isDyn(x.Y):
		return g.dynComparison(x)
	case types.IsNumeric(left) && types.IsNumeric(right):
		l, r, err := g.numOperands(x, left.Kind() != right.Kind())
		if err != nil {
			return nil, err
		}
		return rast.Bin(op, l, r), nil
	}
	l, err := g.cmpOperand(x.X)
	if err != nil {
		return nil, err
	}
	r, err := g.cmpOperand(x.Y)
	if err != nil {
		return nil, err
	}
	if x.Op != hir.Eq && x.Op != hir.NotEq {
		// String only implements the ordering against another String.
		_, lLit := isStrLit(x.X)
		_, rLit := isStrLit(x.Y)
		if lLit != rLit {
			return rast.Bin(op, g.asStr(x.X, l), g.asStr(x.Y, r)), nil
		}
	}
	return rast.Bin(op, l, r), nil
}

// asStr converts a String operand into a &str.
func (g *Generator) asStr(x hir.Expr, e rast.Expr) rast.Expr {
	if _, ok := isStrLit(x); ok {
		return e
	}
	if name, ok := varName(x); ok && g.ctx.IsStrParam(name) {
		return e
	}
	return rast.M(e, "as_str")
}

// cmpOperand generates an operand of a comparison. String literals are not allocated.
func (g *Generator) cmpOperand(x hir.Expr) (rast.Expr, error) {
	if s, ok := isStrLit(x); ok {
		return rast.Str(s), nil
	}
	return g.Expr(x)
}

func (g *Generator) dynComparison(x *hir.Binary) (rast.Expr, error) {
	g.facade()
	operand := func(y hir.Expr) (rast.Expr, error) {
		if g.isDyn(y) {
			return g.Expr(y)
		}
		typ := g.typeOf(y)
		if types.IsNumeric(typ) && !isLitExpr(y) {
			return g.Expr(y)
		}
		return g.lift(y)
	}
	l, err := operand(x.X)
	if err != nil {
		return nil, err
	}
	r, err := operand(x.Y)
	if err != nil {
		return nil, err
	}
	return rast.Bin(x.Op.RustOp(), l, r), nil
}

// identity generates the is and is not operators, and comparisons with None.
func (g *Generator) identity(x *hir.Binary) (rast.Expr, error) {
	negate := x.Op == hir.IsNot || x.Op == hir.NotEq
	other := x.X
	switch {
	case isNoneLit(x.X):
		other = x.Y
	case isNoneLit(x.Y):
	default:
		if lit, ok := x.Y.(*hir.Lit); ok && lit.Kind == hir.LitBool {
			e, err := g.Cond(x.X)
			if err != nil {
				return nil, err
			}
			if lit.BoolValue() == negate {
				return rast.Not(e), nil
			}
			return e, nil
		}
		l, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		r, err := g.Expr(x.Y)
		if err != nil {
			return nil, err
		}
		var same rast.Expr
		if isCopy(g.typeOf(x.X)) {
			same = rast.Bin("==", l, r)
		} else {
			same = rast.PC("std::ptr::eq", &rast.Ref{X: l}, &rast.Ref{X: r})
		}
		if negate {
			return rast.Not(same), nil
		}
		return same, nil
	}
	e, err := g.Expr(other)
	if err != nil {
		return nil, err
	}
	typ := g.typeOf(other)
	switch {
	case typ.Kind() == types.OptionalKind || infer.IsOptionExpr(g.ctx, other) || infer.LooksLikeOption(other):
	case g.isDyn(other):
		g.facade()
		if negate {
			return rast.Not(rast.M(e, "is_none")), nil
		}
		return rast.M(e, "is_none"), nil
	case typ.Kind() == types.NoneKind:
		return rast.Bool(!negate), nil
	default:
		g.trace(x, "none-check", "value of type "+typ.String()+" is never None")
		return rast.Bool(negate), nil
	}
	if negate {
		return rast.M(e, "is_some"), nil
	}
	return rast.M(e, "is_none"), nil
}

// logical generates and/or. In a value context, Python returns one of the operands.
func (g *Generator) logical(x *hir.Binary) (rast.Expr, error) {
	left, right := g.typeOf(x.X), g.typeOf(x.Y)
	if left.Kind() == types.BoolKind && right.Kind() == types.BoolKind {
		return g.Cond(x)
	}
	if x.Op == hir.Or && (left.Kind() == types.OptionalKind || infer.IsOptionExpr(g.ctx, x.X)) {
		opt, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		def, err := g.Coerce(x.Y, types.ElemOf(left))
		if err != nil {
			return nil, err
		}
		g.trace(x, "option-or", "default value of an option")
		return rast.M(opt, "unwrap_or", def), nil
	}
	var l, r rast.Expr
	var err error
	lift := !types.Equal(left, right)
	if lift {
		g.trace(x, "value-lift", "operands of "+x.Op.String()+" have different types")
		if l, err = g.lift(x.X); err != nil {
			return nil, err
		}
		if r, err = g.lift(x.Y); err != nil {
			return nil, err
		}
	} else {
		if l, err = g.Value(x.X); err != nil {
			return nil, err
		}
		if r, err = g.Value(x.Y); err != nil {
			return nil, err
		}
	}
	tmp := g.ctx.TempName()
	tmpType := left
	if lift {
		tmpType = types.CustomOf(types.DVName)
	}
	restore := g.ctx.ShadowVar(tmp, tmpType)
	cond := g.truthy(&hir.Var{Pos: x.Pos, Name: tmp}, rast.Id(tmp))
	restore()
	then, els := rast.Expr(rast.Id(tmp)), r
	if x.Op == hir.And {
		then, els = r, rast.Id(tmp)
	}
	return rast.Blk(
		&rast.If{Cond: cond, Then: rast.Blk(then), Else: rast.Blk(els)},
		&rast.Let{Pattern: rast.Id(tmp), Value: l},
	), nil
}

// membership generates the in and not in operators.
func (g *Generator) membership(x *hir.Binary) (rast.Expr, error) {
	e, err := g.contains(x.X, x.Y)
	if err != nil {
		return nil, err
	}
	if x.Op == hir.NotIn {
		return rast.Not(e), nil
	}
	return e, nil
}

func (g *Generator) contains(elt, coll hir.Expr) (rast.Expr, error) {
	switch {
	case g.isDyn(coll):
		g.facade()
		c, err := g.Expr(coll)
		if err != nil {
			return nil, err
		}
		key, err := g.lift(elt)
		if err != nil {
			return nil, err
		}
		return rast.M(c, "contains", &rast.Ref{X: key}), nil
	case infer.IsDictExpr(g.ctx, coll):
		if name, ok := varName(coll); ok && infer.DictNameHeuristic(g.ctx, name) {
			g.trace(coll, "dict-heuristic", name+" is assumed to be a dictionary")
		}
		return g.keyedCall(coll, "contains_key", elt)
	case infer.IsSetExpr(g.ctx, coll):
		return g.keyedCall(coll, "contains", elt)
	case infer.IsStringExpr(g.ctx, coll):
		c, err := g.Expr(coll)
		if err != nil {
			return nil, err
		}
		sub, err := g.strRef(elt)
		if err != nil {
			return nil, err
		}
		return rast.M(c, "contains", sub), nil
	}
	var c rast.Expr
	var err error
	switch collT := coll.(type) {
	case *hir.ListLit:
		c, err = g.containerLit(collT.Elts)
	case *hir.TupleLit:
		c, err = g.containerLit(collT.Elts)
	default:
		c, err = g.Expr(coll)
	}
	if err != nil {
		return nil, err
	}
	if s, ok := isStrLit(elt); ok {
		item := rast.Id(g.ctx.UniqueName("item"))
		return rast.M(rast.M(c, "iter"), "any", closure(rast.Bin("==", item, rast.Str(s)), item)), nil
	}
	key, err := g.Expr(elt)
	if err != nil {
		return nil, err
	}
	return rast.M(c, "contains", &rast.Ref{X: key}), nil
}

// containerLit generates the elements of a literal used only for a membership test as an array.
func (g *Generator) containerLit(elts []hir.Expr) (rast.Expr, error) {
	rxs := make([]rast.Expr, len(elts))
	for i, elt := range elts {
		var err error
		if rxs[i], err = g.cmpOperand(elt); err != nil {
			return nil, err
		}
	}
	return &rast.Array{Elts: rxs}, nil
}

// keyedCall calls a method of a map or a set with a borrowed key.
func (g *Generator) keyedCall(coll hir.Expr, method string, key hir.Expr, args ...rast.Expr) (rast.Expr, error) {
	c, err := g.Expr(coll)
	if err != nil {
		return nil, err
	}
	k, err := g.keyRef(key)
	if err != nil {
		return nil, err
	}
	return rast.M(c, method, append([]rast.Expr{k}, args...)...), nil
}

// StrRef generates an expression usable where a &str is expected.
func (g *Generator) StrRef(x hir.Expr) (rast.Expr, error) {
	return g.strRef(x)
}

func (g *Generator) strRef(x hir.Expr) (rast.Expr, error) {
	if s, ok := isStrLit(x); ok {
		return rast.Str(s), nil
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	if name, ok := varName(x); ok && g.ctx.IsStrParam(name) && g.derefs[name] == 0 {
		return e, nil
	}
	if g.isDyn(x) {
		g.facade()
		return &rast.Ref{X: rast.M(e, "to_string")}, nil
	}
	if deref, ok := e.(*rast.Deref); ok {
		return deref.X, nil
	}
	return &rast.Ref{X: e}, nil
}

// keyRef generates a borrowed key for a lookup in a map or a set.
func (g *Generator) keyRef(x hir.Expr) (rast.Expr, error) {
	if infer.IsStringExpr(g.ctx, x) {
		return g.strRef(x)
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	if deref, ok := e.(*rast.Deref); ok {
		return deref.X, nil
	}
	return &rast.Ref{X: e}, nil
}
