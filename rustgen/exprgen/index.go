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
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// usize generates a non-negative integer used as a position or a size.
func (g *Generator) usize(x hir.Expr) (rast.Expr, error) {
	if v, ok := isIntLit(x); ok {
		if v < 0 {
			return nil, fmterr.Unsupportedf(x.Span(), "index", "negative position %d not supported", v)
		}
		return rast.Int(strconvInt(v)), nil
	}
	e, err := g.Coerce(x, types.IntType())
	if err != nil {
		return nil, err
	}
	if c, ok := e.(*rast.Cast); ok {
		if m, ok := c.X.(*rast.MethodCall); ok && (m.Method == "len" || m.Method == "count") {
			return m, nil
		}
	}
	return cast(e, "usize"), nil
}

// owned clones an element read from a collection if it cannot be copied.
func owned(e rast.Expr, typ types.Type) rast.Expr {
	if isCopy(typ) {
		return e
	}
	return rast.M(e, "clone")
}

// seqPosition generates the position of an element in a sequence of length n.
// Negative positions count from the end.
func (g *Generator) seqPosition(x hir.Expr, n func() rast.Expr) (rast.Expr, error) {
	if v, ok := negIntLit(x); ok {
		return rast.Bin("-", n(), rast.Int(strconvInt(-v))), nil
	}
	if _, ok := isIntLit(x); ok {
		return g.usize(x)
	}
	e, err := g.usize(x)
	if err != nil {
		return nil, err
	}
	c, ok := e.(*rast.Cast)
	if !ok {
		return e, nil
	}
	g.trace(x, "index-normalized", "a negative index counts from the end")
	i := rast.Id(g.ctx.UniqueName("idx"))
	fromEnd := cast(rast.Bin("+", cast(n(), "i64"), cast(i, "i64")), "usize")
	return rast.Blk(
		&rast.If{
			Cond: rast.Bin("<", i, rast.Int("0")),
			Then: rast.Blk(fromEnd),
			Else: rast.Blk(cast(i, "usize")),
		},
		&rast.Let{Pattern: i, Value: c.X},
	), nil
}

func (g *Generator) index(x *hir.Index) (rast.Expr, error) {
	if g.isDyn(x.X) {
		return g.dynIndex(x)
	}
	typ := g.typeOf(x)
	base := g.typeOf(x.X)
	switch {
	case infer.IsDictExpr(g.ctx, x.X):
		d, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		if name, ok := varName(x.X); ok && infer.IsDictIndexAccess(x) && infer.DictNameHeuristic(g.ctx, name) {
			g.trace(x.X, "dict-heuristic", name+" is assumed to be a dictionary")
		}
		key, err := g.keyRef(x.Index)
		if err != nil {
			return nil, err
		}
		return owned(&rast.Index{X: d, Index: key}, typ), nil
	case base.Kind() == types.TupleKind:
		return g.tupleIndex(x, base.(*types.Tuple))
	case infer.IsStringExpr(g.ctx, x.X):
		return g.strIndex(x)
	case base.Kind() == types.ListKind || infer.IsListExpr(g.ctx, x.X) || infer.IsNumpyValue(g.ctx, x.X):
		l, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		i, err := g.bindIndex(l, x.Index)
		if err != nil {
			return nil, err
		}
		return owned(&rast.Index{X: l, Index: i}, typ), nil
	}
	g.facade()
	g.trace(x, "py-index", "subscript of a value of unknown type")
	b, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	i, err := g.Value(x.Index)
	if err != nil {
		return nil, err
	}
	return expect(rast.M(b, "py_index", i), "index out of range"), nil
}

// bindIndex generates the position of an element of a vector.
func (g *Generator) bindIndex(l rast.Expr, x hir.Expr) (rast.Expr, error) {
	return g.seqPosition(x, func() rast.Expr { return rast.M(l, "len") })
}

func (g *Generator) tupleIndex(x *hir.Index, tuple *types.Tuple) (rast.Expr, error) {
	v, ok := isIntLit(x.Index)
	if !ok {
		if v, ok = negIntLit(x.Index); !ok {
			return nil, fmterr.Unsupportedf(x.Span(), "tuple index", "tuple index must be an integer literal")
		}
	}
	n := int64(len(tuple.Elems))
	if v < 0 {
		v += n
	}
	if v < 0 || v >= n {
		return nil, fmterr.Arityf(x.Span(), "tuple index", "tuple index %d out of range for a tuple of %d elements", v, n)
	}
	t, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	return owned(&rast.Field{X: t, Name: strconvInt(v)}, tuple.Elems[v]), nil
}

func (g *Generator) strIndex(x *hir.Index) (rast.Expr, error) {
	s, err := g.strRecv(x.X)
	if err != nil {
		return nil, err
	}
	chars := rast.M(s, "chars")
	var c rast.Expr
	if v, ok := negIntLit(x.Index); ok {
		c = rast.M(rast.M(chars, "rev"), "nth", rast.Int(strconvInt(-v-1)))
	} else {
		i, err := g.usize(x.Index)
		if err != nil {
			return nil, err
		}
		c = rast.M(chars, "nth", i)
	}
	return rast.M(expect(c, "string index out of range"), "to_string"), nil
}

func (g *Generator) dynIndex(x *hir.Index) (rast.Expr, error) {
	g.facade()
	b, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	if s, ok := isStrLit(x.Index); ok {
		return rast.M(&rast.Index{X: b, Index: rast.Str(s)}, "clone"), nil
	}
	if g.isDyn(x.Index) {
		i, err := g.Value(x.Index)
		if err != nil {
			return nil, err
		}
		return rast.M(b, "py_index", i), nil
	}
	if infer.IsStringExpr(g.ctx, x.Index) {
		key, err := g.strRef(x.Index)
		if err != nil {
			return nil, err
		}
		return rast.M(b, "py_index", key), nil
	}
	var i rast.Expr
	if v, ok := negIntLit(x.Index); ok {
		i = intLitSuffixed(v, "i64")
	} else if v, ok := isIntLit(x.Index); ok {
		i = intLitSuffixed(v, "i64")
	} else {
		e, err := g.Coerce(x.Index, types.IntType())
		if err != nil {
			return nil, err
		}
		i = cast(e, "i64")
	}
	return rast.M(b, "py_index", i), nil
}

// sliceBound generates a bound of a slice as an i32 in [0, n].
func (g *Generator) sliceBound(x hir.Expr, n rast.Expr, dflt rast.Expr) (rast.Expr, error) {
	if x == nil || isNoneLit(x) {
		return dflt, nil
	}
	if v, ok := negIntLit(x); ok {
		return rast.M(&rast.Paren{X: rast.Bin("-", n, rast.Int(strconvInt(-v)))}, "max", rast.Int("0")), nil
	}
	if v, ok := isIntLit(x); ok {
		return rast.M(intLitSuffixed(v, "i32"), "min", n), nil
	}
	e, err := g.Coerce(x, types.IntType())
	if err != nil {
		return nil, err
	}
	v := rast.Id(g.ctx.UniqueName("i"))
	neg := rast.M(&rast.Paren{X: rast.Bin("+", n, v)}, "max", rast.Int("0"))
	pos := rast.M(v, "min", n)
	return rast.Blk(&rast.If{
		Cond: rast.Bin("<", v, rast.Int("0")),
		Then: rast.Blk(neg),
		Else: rast.Blk(pos),
	}, &rast.Let{Pattern: v, Value: e}), nil
}

// slice generates a copy of a part of a string or a list.
// Negative bounds count from the end and bounds are clamped to the length.
func (g *Generator) slice(x *hir.Slice) (rast.Expr, error) {
	if g.isDyn(x.X) {
		return nil, fmterr.Unsupportedf(x.Span(), "slice", "slicing a dynamic value not supported")
	}
	isStr := infer.IsStringExpr(g.ctx, x.X)
	if !isStr && !infer.IsListExpr(g.ctx, x.X) && !infer.IsNumpyValue(g.ctx, x.X) {
		g.trace(x.X, "slice-list", "sliced value assumed to be a list")
	}
	step := int64(1)
	if x.Step != nil && !isNoneLit(x.Step) {
		var ok bool
		if step, ok = isIntLit(x.Step); !ok {
			if step, ok = negIntLit(x.Step); !ok {
				return nil, fmterr.Unsupportedf(x.Step.Span(), "slice", "slice step must be an integer literal")
			}
		}
	}
	switch {
	case step == 0:
		return nil, fmterr.Arityf(x.Step.Span(), "slice", "slice step cannot be zero")
	case step < 0:
		return g.reverseSlice(x, isStr, step)
	}
	var seq rast.Expr
	var err error
	if isStr {
		seq, err = g.strRecv(x.X)
	} else {
		seq, err = g.Expr(x.X)
	}
	if err != nil {
		return nil, err
	}
	length := func(seq rast.Expr) rast.Expr {
		if isStr {
			return cast(rast.M(rast.M(seq, "chars"), "count"), "i32")
		}
		return cast(rast.M(seq, "len"), "i32")
	}
	build := func(seq rast.Expr) rast.Expr {
		n := rast.Id(g.ctx.UniqueName("n"))
		lo, hi := rast.Id(g.ctx.UniqueName("lo")), rast.Id(g.ctx.UniqueName("hi"))
		loE, loErr := g.sliceBound(x.Lo, n, rast.Int("0"))
		hiE, hiErr := g.sliceBound(x.Hi, n, n)
		if loErr != nil || hiErr != nil {
			err = firstErr(loErr, hiErr)
			return nil
		}
		stmts := []rast.Stmt{
			&rast.Let{Pattern: n, Value: length(seq)},
			&rast.Let{Pattern: lo, Value: loE},
			&rast.Let{Pattern: hi, Value: rast.M(hiE, "max", lo)},
		}
		var iter rast.Expr
		if isStr {
			iter = rast.M(rast.M(rast.M(seq, "chars"), "skip", cast(lo, "usize")), "take", cast(rast.Bin("-", hi, lo), "usize"))
		} else {
			part := &rast.Index{X: seq, Index: &rast.Range{Lo: cast(lo, "usize"), Hi: cast(hi, "usize")}}
			if step == 1 {
				return rast.Blk(rast.M(part, "to_vec"), stmts...)
			}
			iter = rast.M(rast.M(part, "iter"), "cloned")
		}
		if step > 1 {
			iter = rast.M(iter, "step_by", rast.Int(strconvInt(step)))
		}
		var typ rast.Type = vecOfInfer()
		if isStr {
			typ = rast.Named("String")
		}
		return rast.Blk(collect(iter, typ), stmts...)
	}
	res := g.bindOnce(seq, build)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// reverseSlice generates a slice with a negative step. Only the whole sequence can be reversed.
func (g *Generator) reverseSlice(x *hir.Slice, isStr bool, step int64) (rast.Expr, error) {
	if (x.Lo != nil && !isNoneLit(x.Lo)) || (x.Hi != nil && !isNoneLit(x.Hi)) {
		return nil, fmterr.Unsupportedf(x.Span(), "slice", "bounds with a negative step not supported")
	}
	var iter rast.Expr
	var typ rast.Type = vecOfInfer()
	if isStr {
		s, err := g.strRecv(x.X)
		if err != nil {
			return nil, err
		}
		iter = rast.M(rast.M(s, "chars"), "rev")
		typ = rast.Named("String")
	} else {
		l, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		iter = rast.M(rast.M(rast.M(l, "iter"), "rev"), "cloned")
	}
	if step < -1 {
		iter = rast.M(iter, "step_by", rast.Int(strconvInt(-step)))
	}
	return collect(iter, typ), nil
}
