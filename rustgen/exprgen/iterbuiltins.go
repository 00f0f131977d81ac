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

func (g *Generator) builtinList(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	if len(x.Args) == 0 {
		return rast.PC("Vec::new"), nil
	}
	arg := x.Args[0]
	if _, ok := varName(arg); ok && infer.IsListExpr(g.ctx, arg) && !g.isDyn(arg) {
		return g.Value(arg)
	}
	iter, err := g.IterOf(arg)
	if err != nil {
		return nil, err
	}
	return collect(iter, vecOfInfer()), nil
}

func (g *Generator) builtinSet(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	set := g.use(hashSetPath)
	if len(x.Args) == 0 {
		return rast.PC(set + "::new"), nil
	}
	iter, err := g.IterOf(x.Args[0])
	if err != nil {
		return nil, err
	}
	return collect(iter, rast.Named(set, &rast.TypeInfer{})), nil
}

func (g *Generator) builtinDict(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	hashMap := g.use(hashMapPath)
	if len(x.Args) == 0 {
		if len(x.Kwargs) == 0 {
			return rast.PC(hashMap + "::new"), nil
		}
		pairs := make([]rast.Expr, len(x.Kwargs))
		for i, kw := range x.Kwargs {
			v, err := g.Value(kw.Value)
			if err != nil {
				return nil, err
			}
			pairs[i] = &rast.Tuple{Elts: []rast.Expr{rast.M(rast.Str(kw.Name), "to_string"), v}}
		}
		return rast.PC(hashMap+"::from", &rast.Array{Elts: pairs}), nil
	}
	arg := x.Args[0]
	if infer.IsDictExpr(g.ctx, arg) && !g.isDyn(arg) {
		return g.Value(arg)
	}
	iter, err := g.IterOf(arg)
	if err != nil {
		return nil, err
	}
	return collect(iter, rast.Named(hashMap, &rast.TypeInfer{}, &rast.TypeInfer{})), nil
}

func (g *Generator) builtinEnumerate(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 2); err != nil {
		return nil, err
	}
	iter, err := g.IterOf(x.Args[0])
	if err != nil {
		return nil, err
	}
	i, v := rast.Id(g.ctx.UniqueName("i")), rast.Id(g.ctx.UniqueName("v"))
	index := cast(i, "i32")
	if startX := argOrKwarg(x, 1, "start"); startX != nil {
		if n, ok := isIntLit(startX); !ok || n != 0 {
			start, err := g.Coerce(startX, types.IntType())
			if err != nil {
				return nil, err
			}
			index = rast.Bin("+", index, start)
		}
	}
	pair := &rast.Tuple{Elts: []rast.Expr{index, v}}
	return rast.M(rast.M(iter, "enumerate"), "map", closure(pair, &rast.Tuple{Elts: []rast.Expr{i, v}})), nil
}

func (g *Generator) builtinZip(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, -1); err != nil {
		return nil, err
	}
	iters := make([]rast.Expr, len(x.Args))
	for i, arg := range x.Args {
		var err error
		if iters[i], err = g.IterOf(arg); err != nil {
			return nil, err
		}
	}
	zipped := rast.M(iters[0], "zip", iters[1])
	if len(iters) == 2 {
		return zipped, nil
	}
	names := []rast.Expr{rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))}
	var pattern rast.Expr = &rast.Tuple{Elts: []rast.Expr{names[0], names[1]}}
	for _, it := range iters[2:] {
		zipped = rast.M(zipped, "zip", it)
		name := rast.Id(g.ctx.UniqueName("c"))
		names = append(names, name)
		pattern = &rast.Tuple{Elts: []rast.Expr{pattern, name}}
	}
	return rast.M(zipped, "map", closure(&rast.Tuple{Elts: names}, pattern)), nil
}

func (g *Generator) builtinReversed(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	iter, err := g.IterOf(x.Args[0])
	if err != nil {
		return nil, err
	}
	return rast.M(iter, "rev"), nil
}

// reverseArg returns the value of the reverse keyword argument of a sort.
func reverseArg(x hir.Node, kwargs []*hir.Keyword) (bool, error) {
	r := hir.Kwarg(kwargs, "reverse")
	if r == nil {
		return false, nil
	}
	lit, ok := r.(*hir.Lit)
	if !ok || lit.Kind != hir.LitBool {
		return false, fmterr.Unsupportedf(x.Span(), "sort", "reverse must be a boolean literal")
	}
	return lit.BoolValue(), nil
}

// asLambda converts a function passed as an argument into a lambda with n parameters.
func (g *Generator) asLambda(f hir.Expr, n int) (*hir.Lambda, error) {
	if l, ok := f.(*hir.Lambda); ok {
		if len(l.Params) != n {
			return nil, fmterr.Arityf(l.Span(), "lambda", "lambda takes %d arguments, %d expected", len(l.Params), n)
		}
		return l, nil
	}
	params := make([]string, n)
	args := make([]hir.Expr, n)
	for i := range params {
		params[i] = g.ctx.UniqueName("x")
		args[i] = &hir.Var{Name: params[i]}
	}
	var body hir.Expr
	switch fT := f.(type) {
	case *hir.Var:
		body = &hir.Call{Pos: fT.Pos, Func: fT.Name, Args: args}
	case *hir.Attr:
		if n != 1 {
			return nil, fmterr.Unsupportedf(fT.Span(), "function argument", "unbound method with %d arguments", n)
		}
		body = &hir.MethodCall{Pos: fT.Pos, Recv: args[0], Method: fT.Name}
	default:
		return nil, fmterr.Unsupportedf(f.Span(), constructName(f), "function argument not supported")
	}
	return &hir.Lambda{Pos: hir.Pos{Src: f.Span()}, Params: params, Body: body}, nil
}

// inlineLambda generates a lambda applied to the elements of an iterator.
// The parameter takes the element type. It is dereferenced when the element is passed by reference.
func (g *Generator) inlineLambda(l *hir.Lambda, elem types.Type, byRef, cond bool) (*rast.Closure, error) {
	if len(l.Params) != 1 {
		return nil, fmterr.Arityf(l.Span(), "lambda", "lambda takes %d arguments, 1 expected", len(l.Params))
	}
	name := l.Params[0]
	restore := g.ctx.ShadowVar(name, elem)
	defer restore()
	body := func() (rast.Expr, error) {
		return g.inClosure(func() (rast.Expr, error) {
			if cond {
				return g.Cond(l.Body)
			}
			return g.Value(l.Body)
		})
	}
	var e rast.Expr
	var err error
	if byRef {
		e, err = g.withDerefs(l.Params, body)
	} else {
		e, err = g.withoutDerefs(l.Params, body)
	}
	if err != nil {
		return nil, err
	}
	return closure(e, rast.Id(Ident(name))), nil
}

// keyType returns the type of the key computed by a key function.
func (g *Generator) keyType(params []string, body hir.Expr, elem types.Type) types.Type {
	if len(params) != 1 {
		return types.UnknownType()
	}
	restore := g.ctx.ShadowVar(params[0], elem)
	defer restore()
	return g.typeOf(body)
}

func (g *Generator) builtinSorted(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	reverse, err := reverseArg(x, x.Kwargs)
	if err != nil {
		return nil, err
	}
	if keyX := hir.Kwarg(x.Kwargs, "key"); keyX != nil && !isNoneLit(keyX) {
		l, err := g.asLambda(keyX, 1)
		if err != nil {
			return nil, err
		}
		return g.sortByKey(&hir.SortByKey{Pos: x.Pos, Iter: x.Args[0], KeyArgs: l.Params, KeyBody: l.Body, Reverse: reverse})
	}
	iter, err := g.IterOf(x.Args[0])
	if err != nil {
		return nil, err
	}
	v := rast.Id(g.ctx.UniqueName("sorted"))
	return rast.Blk(v,
		&rast.Let{Pattern: v, Mut: true, Value: collect(iter, vecOfInfer())},
		rast.Semi(g.sortCall(v, g.ElemOf(x.Args[0]), reverse)),
	), nil
}

// sortCall sorts a vector in place. Floats are compared with partial_cmp.
func (g *Generator) sortCall(v rast.Expr, elem types.Type, reverse bool) rast.Expr {
	float := kindOf(elem) == types.FloatKind
	if !float && !reverse {
		return rast.M(v, "sort")
	}
	a, b := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))
	l, r := a, b
	if reverse {
		l, r = b, a
	}
	var cmp rast.Expr
	if float {
		cmp = expect(rast.M(l, "partial_cmp", r), "cannot compare NaN")
	} else {
		cmp = rast.M(l, "cmp", r)
	}
	return rast.M(v, "sort_by", closure(cmp, a, b))
}

func (g *Generator) builtinMap(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, -1); err != nil {
		return nil, err
	}
	if len(x.Args) > 2 {
		return nil, fmterr.Unsupportedf(x.Span(), "map", "map over several iterables")
	}
	l, err := g.asLambda(x.Args[0], 1)
	if err != nil {
		return nil, err
	}
	iter, err := g.IterOf(x.Args[1])
	if err != nil {
		return nil, err
	}
	f, err := g.inlineLambda(l, g.ElemOf(x.Args[1]), false, false)
	if err != nil {
		return nil, err
	}
	return rast.M(iter, "map", f), nil
}

func (g *Generator) builtinFilter(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 2); err != nil {
		return nil, err
	}
	iter, err := g.IterOf(x.Args[1])
	if err != nil {
		return nil, err
	}
	elem := g.ElemOf(x.Args[1])
	l, ok := x.Args[0].(*hir.Lambda)
	if isNoneLit(x.Args[0]) {
		name := g.ctx.UniqueName("v")
		l, ok = &hir.Lambda{Pos: x.Pos, Params: []string{name}, Body: &hir.Var{Pos: x.Pos, Name: name}}, true
	}
	if !ok {
		var err error
		if l, err = g.asLambda(x.Args[0], 1); err != nil {
			return nil, err
		}
	}
	f, err := g.inlineLambda(l, elem, true, true)
	if err != nil {
		return nil, err
	}
	return rast.M(iter, "filter", f), nil
}

func (g *Generator) builtinSum(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 2); err != nil {
		return nil, err
	}
	iter, err := g.IterOf(x.Args[0])
	if err != nil {
		return nil, err
	}
	elem := g.ElemOf(x.Args[0])
	if types.IsDV(elem) {
		g.facade()
		g.trace(x, "dv-extraction", "sum of dynamic values as floats")
		v := rast.Id(g.ctx.UniqueName("v"))
		iter = rast.M(iter, "map", closure(rast.M(v, "to_f64"), v))
		elem = types.FloatType()
	}
	typ := "i32"
	if kindOf(elem) == types.FloatKind {
		typ = "f64"
	}
	sum := rast.M(iter, "sum")
	sum.Turbofish = []rast.Type{rast.Named(typ)}
	startX := argOrKwarg(x, 1, "start")
	if startX == nil {
		return sum, nil
	}
	if n, ok := isIntLit(startX); ok && n == 0 {
		return sum, nil
	}
	start, err := g.Coerce(startX, elem)
	if err != nil {
		return nil, err
	}
	return rast.Bin("+", sum, start), nil
}

func (g *Generator) builtinMinMax(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, -1); err != nil {
		return nil, err
	}
	name := x.Func
	if len(x.Args) > 1 {
		typ := g.typeOf(x)
		vals, err := g.coerceAll(x.Args, typ)
		if err != nil {
			return nil, err
		}
		fn := "std::cmp::" + name
		switch {
		case types.IsDV(typ):
			g.facade()
			fn = "py_" + name
		case kindOf(typ) == types.FloatKind:
			fn = "f64::" + name
		}
		acc := vals[0]
		for _, v := range vals[1:] {
			acc = rast.PC(fn, acc, v)
		}
		return acc, nil
	}
	arg := x.Args[0]
	iter, err := g.IterOf(arg)
	if err != nil {
		return nil, err
	}
	elem := g.ElemOf(arg)
	defX := hir.Kwarg(x.Kwargs, "default")
	var res rast.Expr
	var stmts []rast.Stmt
	keyX := hir.Kwarg(x.Kwargs, "key")
	switch {
	case keyX != nil && !isNoneLit(keyX):
		l, err := g.asLambda(keyX, 1)
		if err != nil {
			return nil, err
		}
		keyFn, err := g.keyClosure(l.Params, l.Body, elem)
		if err != nil {
			return nil, err
		}
		if kindOf(g.keyType(l.Params, l.Body, elem)) != types.FloatKind {
			keyFn.Params[0].Type = nil
			res = rast.M(iter, name+"_by_key", keyFn)
			break
		}
		key := rast.Id(g.ctx.UniqueName("key"))
		a, b := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))
		stmts = append(stmts, &rast.Let{Pattern: key, Value: keyFn})
		cmp := expect(rast.M(rast.C(key, a), "partial_cmp", &rast.Ref{X: rast.C(key, b)}), "cannot compare NaN")
		res = rast.M(iter, name+"_by", closure(cmp, a, b))
	case kindOf(elem) == types.FloatKind:
		if defX == nil {
			init := rast.P("f64", "INFINITY")
			if name == "max" {
				init = rast.P("f64", "NEG_INFINITY")
			}
			return rast.M(iter, "fold", init, rast.P("f64", name)), nil
		}
		res = rast.M(iter, "reduce", rast.P("f64", name))
	case types.IsDV(elem):
		g.facade()
		res = rast.M(iter, "reduce", rast.Id("py_"+name))
	default:
		res = rast.M(iter, name)
	}
	if defX != nil {
		d, err := g.Coerce(defX, elem)
		if err != nil {
			return nil, err
		}
		res = rast.M(res, "unwrap_or", d)
	} else {
		res = expect(res, name+"() arg is an empty sequence")
	}
	if len(stmts) > 0 {
		return rast.Blk(res, stmts...), nil
	}
	return res, nil
}

func (g *Generator) builtinAnyAll(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	arg := x.Args[0]
	if gen, ok := arg.(*hir.GenExp); ok && len(gen.Clauses) == 1 && len(gen.Clauses[0].Conds) == 0 {
		c := gen.Clauses[0]
		iter, err := g.IterOf(c.Iter)
		if err != nil {
			return nil, err
		}
		pattern, names, restore, err := g.BindTarget(c.Target, g.ElemOf(c.Iter))
		if err != nil {
			return nil, err
		}
		defer restore()
		test, err := g.withoutDerefs(names, func() (rast.Expr, error) {
			return g.inClosure(func() (rast.Expr, error) { return g.Cond(gen.Elt) })
		})
		if err != nil {
			return nil, err
		}
		return rast.M(iter, x.Func, &rast.Closure{Params: []*rast.Param{{Pattern: pattern}}, Body: test}), nil
	}
	iter, err := g.IterOf(arg)
	if err != nil {
		return nil, err
	}
	name := g.ctx.UniqueName("v")
	l := &hir.Lambda{Pos: x.Pos, Params: []string{name}, Body: &hir.Var{Pos: x.Pos, Name: name}}
	f, err := g.inlineLambda(l, g.ElemOf(arg), false, true)
	if err != nil {
		return nil, err
	}
	return rast.M(iter, x.Func, f), nil
}

func (g *Generator) builtinNext(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 2); err != nil {
		return nil, err
	}
	it, err := g.Expr(x.Args[0])
	if err != nil {
		return nil, err
	}
	if name, ok := varName(x.Args[0]); ok {
		g.ctx.MarkMutable(name)
	}
	next := rast.M(it, "next")
	if len(x.Args) == 2 {
		d, err := g.Coerce(x.Args[1], g.ElemOf(x.Args[0]))
		if err != nil {
			return nil, err
		}
		return rast.M(next, "unwrap_or", d), nil
	}
	return expect(next, "StopIteration"), nil
}

func (g *Generator) builtinIter(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	return g.IterOf(x.Args[0])
}
