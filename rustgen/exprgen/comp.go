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

// IterOf generates an iterator over the owned elements of a collection.
// A collection still read afterwards is borrowed and its elements cloned.
func (g *Generator) IterOf(x hir.Expr) (rast.Expr, error) {
	return g.iterOf(x, false)
}

// ElemOf returns the type of the elements produced by iterating over an expression.
func (g *Generator) ElemOf(x hir.Expr) types.Type {
	return types.ElemOf(g.typeOf(x))
}

func (g *Generator) iterOf(x hir.Expr, borrow bool) (rast.Expr, error) {
	switch xT := x.(type) {
	case *hir.Call:
		if xT.Func == "range" {
			return g.Expr(x)
		}
	case *hir.MethodCall:
		if e, ok, err := g.dictView(xT); ok || err != nil {
			return e, err
		}
	}
	if infer.IsIteratorProducing(x) {
		return g.Expr(x)
	}
	if gen, ok := g.typeOf(x).(*types.Generic); ok && gen.Base == "Iterator" {
		return g.Expr(x)
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	switch {
	case g.isDyn(x):
		g.facade()
		if name, ok := varName(x); ok && !borrow && !g.isLive(name) && g.derefs[name] == 0 {
			return rast.M(e, "into_iter"), nil
		}
		return rast.M(rast.M(e, "clone"), "into_iter"), nil
	case infer.IsDictExpr(g.ctx, x):
		return rast.M(rast.M(e, "keys"), "cloned"), nil
	case infer.IsStringExpr(g.ctx, x):
		c := rast.Id(g.ctx.UniqueName("c"))
		return rast.M(rast.M(e, "chars"), "map", closure(rast.M(c, "to_string"), c)), nil
	}
	if g.borrowed(x, e, borrow) {
		return rast.M(rast.M(e, "iter"), "cloned"), nil
	}
	return rast.M(e, "into_iter"), nil
}

// borrowed returns true if a collection cannot be consumed by an iteration.
func (g *Generator) borrowed(x hir.Expr, e rast.Expr, borrow bool) bool {
	switch e.(type) {
	case *rast.Field, *rast.Deref, *rast.Index:
		return true
	}
	name, ok := varName(x)
	if !ok {
		return false
	}
	return borrow || g.isLive(name) || g.ctx.IsStrParam(name)
}

// dictView generates the keys, values and items views of a dictionary as iterators.
func (g *Generator) dictView(x *hir.MethodCall) (rast.Expr, bool, error) {
	if len(x.Args) != 0 || !infer.IsDictExpr(g.ctx, x.Recv) || g.isDyn(x.Recv) {
		return nil, false, nil
	}
	var view func(rast.Expr) rast.Expr
	switch x.Method {
	case "keys":
		view = func(d rast.Expr) rast.Expr { return rast.M(rast.M(d, "keys"), "cloned") }
	case "values":
		view = func(d rast.Expr) rast.Expr { return rast.M(rast.M(d, "values"), "cloned") }
	case "items":
		view = func(d rast.Expr) rast.Expr {
			k, v := rast.Id(g.ctx.UniqueName("k")), rast.Id(g.ctx.UniqueName("v"))
			pair := &rast.Tuple{Elts: []rast.Expr{rast.M(k, "clone"), rast.M(v, "clone")}}
			return rast.M(rast.M(d, "iter"), "map", closure(pair, &rast.Tuple{Elts: []rast.Expr{k, v}}))
		}
	default:
		return nil, false, nil
	}
	d, err := g.Expr(x.Recv)
	if err != nil {
		return nil, true, err
	}
	return view(d), true, nil
}

// BindTarget binds the variables of a loop or comprehension target to the types of an element.
// It returns the Rust pattern, the names bound by the target and a function restoring the previous bindings.
func (g *Generator) BindTarget(t hir.Target, elem types.Type) (rast.Expr, []string, func(), error) {
	var names []string
	var restores []func()
	restore := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
	var bind func(t hir.Target, elem types.Type) (rast.Expr, error)
	bind = func(t hir.Target, elem types.Type) (rast.Expr, error) {
		switch tT := t.(type) {
		case *hir.SymbolTarget:
			if tT.Name == "_" {
				return &rast.Wild{}, nil
			}
			names = append(names, tT.Name)
			restores = append(restores, g.ctx.ShadowVar(tT.Name, elem))
			return rast.Id(Ident(tT.Name)), nil
		case *hir.TupleTarget:
			tuple, _ := elem.(*types.Tuple)
			pattern := &rast.Tuple{}
			for i, elt := range tT.Elts {
				var eltType types.Type = types.UnknownType()
				if tuple != nil && i < len(tuple.Elems) {
					eltType = tuple.Elems[i]
				}
				p, err := bind(elt, eltType)
				if err != nil {
					return nil, err
				}
				pattern.Elts = append(pattern.Elts, p)
			}
			if tuple != nil && len(tuple.Elems) != len(tT.Elts) {
				return nil, fmterr.Arityf(tT.Span(), "tuple unpacking", "cannot unpack %d values into %d targets", len(tuple.Elems), len(tT.Elts))
			}
			return pattern, nil
		}
		return nil, fmterr.Unsupportedf(t.Span(), constructName(t), "iteration target not supported")
	}
	pattern, err := bind(t, elem)
	if err != nil {
		restore()
		return nil, nil, nil, err
	}
	return pattern, names, restore, nil
}

// clauses generates the iterator chain of the clauses of a comprehension.
// The first clause consumes its iterable, the following ones are generated inside move closures.
func (g *Generator) clauses(cs []*hir.Clause, outer bool, body func() (rast.Expr, error)) (rast.Expr, error) {
	c := cs[0]
	iter, err := g.iterOf(c.Iter, !outer)
	if err != nil {
		return nil, err
	}
	pattern, names, restore, err := g.BindTarget(c.Target, g.ElemOf(c.Iter))
	if err != nil {
		return nil, err
	}
	defer restore()
	newClosure := func(body rast.Expr) *rast.Closure {
		return &rast.Closure{Move: !outer, Params: []*rast.Param{{Pattern: pattern}}, Body: body}
	}
	for _, cond := range c.Conds {
		test, err := g.withDerefs(names, func() (rast.Expr, error) {
			return g.inClosure(func() (rast.Expr, error) { return g.Cond(cond) })
		})
		if err != nil {
			return nil, err
		}
		iter = rast.M(iter, "filter", newClosure(test))
	}
	if len(cs) > 1 {
		inner, err := g.withoutDerefs(names, func() (rast.Expr, error) {
			return g.withCaptured(names, func() (rast.Expr, error) {
				return g.inClosure(func() (rast.Expr, error) { return g.clauses(cs[1:], false, body) })
			})
		})
		if err != nil {
			return nil, err
		}
		return rast.M(iter, "flat_map", newClosure(inner)), nil
	}
	value, err := g.withoutDerefs(names, func() (rast.Expr, error) { return g.inClosure(body) })
	if err != nil {
		return nil, err
	}
	if isIdentity(pattern, value) {
		return iter, nil
	}
	return rast.M(iter, "map", newClosure(value)), nil
}

// withCaptured runs f with variables captured by nested move closures: they are cloned when read by value.
func (g *Generator) withCaptured(names []string, f func() (rast.Expr, error)) (rast.Expr, error) {
	live := g.live
	g.live = func(name string) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return live != nil && live(name)
	}
	defer func() { g.live = live }()
	return f()
}

func isIdentity(pattern, value rast.Expr) bool {
	p, ok := pattern.(*rast.Ident)
	if !ok {
		return false
	}
	v, ok := value.(*rast.Ident)
	return ok && p.Name == v.Name
}

func (g *Generator) listComp(x *hir.ListComp) (rast.Expr, error) {
	iter, err := g.clauses(x.Clauses, true, func() (rast.Expr, error) { return g.Value(x.Elt) })
	if err != nil {
		return nil, err
	}
	return collect(iter, vecOfInfer()), nil
}

func (g *Generator) setComp(x *hir.SetComp) (rast.Expr, error) {
	iter, err := g.clauses(x.Clauses, true, func() (rast.Expr, error) { return g.Value(x.Elt) })
	if err != nil {
		return nil, err
	}
	return collect(iter, rast.Named(g.use(hashSetPath), &rast.TypeInfer{})), nil
}

func (g *Generator) dictComp(x *hir.DictComp) (rast.Expr, error) {
	iter, err := g.clauses(x.Clauses, true, func() (rast.Expr, error) {
		k, err := g.Value(x.Key)
		if err != nil {
			return nil, err
		}
		v, err := g.Value(x.Value)
		if err != nil {
			return nil, err
		}
		return &rast.Tuple{Elts: []rast.Expr{k, v}}, nil
	})
	if err != nil {
		return nil, err
	}
	return collect(iter, rast.Named(g.use(hashMapPath), &rast.TypeInfer{}, &rast.TypeInfer{})), nil
}

func (g *Generator) genExp(x *hir.GenExp) (rast.Expr, error) {
	return g.clauses(x.Clauses, true, func() (rast.Expr, error) { return g.Value(x.Elt) })
}

// keyClosure generates the key function of a sort: a closure taking an element by reference.
func (g *Generator) keyClosure(params []string, body hir.Expr, elem types.Type) (*rast.Closure, error) {
	if len(params) != 1 {
		return nil, fmterr.Arityf(body.Span(), "lambda", "key function takes 1 argument, got %d", len(params))
	}
	name := params[0]
	restore := g.ctx.ShadowVar(name, elem)
	defer restore()
	key, err := g.withDerefs(params, func() (rast.Expr, error) {
		return g.inClosure(func() (rast.Expr, error) { return g.Value(body) })
	})
	if err != nil {
		return nil, err
	}
	return &rast.Closure{Params: []*rast.Param{{
		Pattern: rast.Id(Ident(name)),
		Type:    &rast.TypeRef{Elem: types.Render(elem)},
	}}, Body: key}, nil
}

// sortByKey sorts the elements of an iterable by a key into a new vector.
// The sort is stable, also in reverse order.
func (g *Generator) sortByKey(x *hir.SortByKey) (rast.Expr, error) {
	iter, err := g.IterOf(x.Iter)
	if err != nil {
		return nil, err
	}
	elem := g.ElemOf(x.Iter)
	keyFn, err := g.keyClosure(x.KeyArgs, x.KeyBody, elem)
	if err != nil {
		return nil, err
	}
	v := rast.Id(g.ctx.UniqueName("sorted"))
	stmts := []rast.Stmt{&rast.Let{Pattern: v, Mut: true, Value: collect(iter, vecOfInfer())}}
	stmts = append(stmts, g.sortByKeyCall(v, keyFn, g.keyType(x.KeyArgs, x.KeyBody, elem), x.Reverse)...)
	return rast.Blk(v, stmts...), nil
}

// sortByKeyCall sorts a vector in place with a key function.
func (g *Generator) sortByKeyCall(v rast.Expr, keyFn *rast.Closure, keyType types.Type, reverse bool) []rast.Stmt {
	if keyType.Kind() != types.FloatKind && !reverse {
		keyFn.Params[0].Type = nil
		return []rast.Stmt{rast.Semi(rast.M(v, "sort_by_key", keyFn))}
	}
	key := rast.Id(g.ctx.UniqueName("key"))
	a, b := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))
	l, r := rast.Expr(a), rast.Expr(b)
	if reverse {
		l, r = b, a
	}
	var cmp rast.Expr
	if keyType.Kind() == types.FloatKind {
		cmp = expect(rast.M(rast.C(key, l), "partial_cmp", &rast.Ref{X: rast.C(key, r)}), "cannot compare NaN")
	} else {
		cmp = rast.M(rast.C(key, l), "cmp", &rast.Ref{X: rast.C(key, r)})
	}
	return []rast.Stmt{
		&rast.Let{Pattern: key, Value: keyFn},
		rast.Semi(rast.M(v, "sort_by", closure(cmp, a, b))),
	}
}
