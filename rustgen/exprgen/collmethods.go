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

// elemValue generates a value stored in a collection with elements of a given type.
func (g *Generator) elemValue(x hir.Expr, elem types.Type) (rast.Expr, error) {
	if types.IsUnknown(elem) && !g.wantsDyn(elem) {
		return g.Value(x)
	}
	return g.Coerce(x, elem)
}

// position returns the position of the first element of a vector equal to a value.
func (g *Generator) position(v rast.Expr, x hir.Expr) (rast.Expr, error) {
	want, err := g.cmpOperand(x)
	if err != nil {
		return nil, err
	}
	e := rast.Id(g.ctx.UniqueName("e"))
	return rast.M(rast.M(v, "iter"), "position", closure(rast.Bin("==", &rast.Deref{X: e}, want), e)), nil
}

func (g *Generator) listMethod(x *hir.MethodCall) (rast.Expr, bool, error) {
	elem := types.ElemOf(g.typeOf(x.Recv))
	switch x.Method {
	case "append":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		l, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		v, err := g.elemValue(x.Args[0], elem)
		if err != nil {
			return nil, true, err
		}
		return rast.M(l, "push", v), true, nil
	case "extend":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		l, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		iter, err := g.IterOf(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		return rast.M(l, "extend", iter), true, nil
	case "insert":
		if err := methodArity(x, 2, 2); err != nil {
			return nil, true, err
		}
		l, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		i, err := g.usize(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		v, err := g.elemValue(x.Args[1], elem)
		if err != nil {
			return nil, true, err
		}
		return rast.M(l, "insert", i, v), true, nil
	case "pop":
		e, err := g.listPop(x)
		return e, true, err
	case "remove":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		l, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		pos, err := g.position(l, x.Args[0])
		if err != nil {
			return nil, true, err
		}
		i := rast.Id(g.ctx.UniqueName("pos"))
		return rast.Blk(nil,
			&rast.Let{Pattern: i, Value: expect(pos, "list.remove(x): x not in list")},
			rast.Semi(rast.M(l, "remove", i)),
		), true, nil
	case "index":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		l, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		pos, err := g.position(l, x.Args[0])
		if err != nil {
			return nil, true, err
		}
		return cast(expect(pos, "value is not in list"), "i32"), true, nil
	case "count":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		l, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		want, err := g.cmpOperand(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		e := rast.Id(g.ctx.UniqueName("e"))
		match := closure(rast.Bin("==", &rast.Deref{X: &rast.Deref{X: e}}, want), e)
		return cast(rast.M(rast.M(rast.M(l, "iter"), "filter", match), "count"), "i32"), true, nil
	case "sort":
		e, err := g.listSort(x, elem)
		return e, true, err
	case "reverse", "clear":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		l, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.M(l, x.Method), true, nil
	case "copy":
		l, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.M(l, "clone"), true, nil
	}
	return nil, false, nil
}

// listPop removes an element of a list. Negative literal positions count from the end.
func (g *Generator) listPop(x *hir.MethodCall) (rast.Expr, error) {
	if err := methodArity(x, 0, 1); err != nil {
		return nil, err
	}
	l, err := g.mutRecv(x.Recv)
	if err != nil {
		return nil, err
	}
	if len(x.Args) == 0 {
		return expect(rast.M(l, "pop"), "pop from empty list"), nil
	}
	if v, ok := negIntLit(x.Args[0]); ok {
		if v == -1 {
			return expect(rast.M(l, "pop"), "pop from empty list"), nil
		}
		return rast.M(l, "remove", rast.Bin("-", rast.M(l, "len"), rast.Int(strconvInt(-v)))), nil
	}
	i, err := g.usize(x.Args[0])
	if err != nil {
		return nil, err
	}
	return rast.M(l, "remove", i), nil
}

func (g *Generator) listSort(x *hir.MethodCall, elem types.Type) (rast.Expr, error) {
	if err := methodArity(x, 0, 0); err != nil {
		return nil, err
	}
	reverse, err := reverseArg(x, x.Kwargs)
	if err != nil {
		return nil, err
	}
	l, err := g.mutRecv(x.Recv)
	if err != nil {
		return nil, err
	}
	keyX := hir.Kwarg(x.Kwargs, "key")
	if keyX == nil || isNoneLit(keyX) {
		return g.sortCall(l, elem, reverse), nil
	}
	lambda, err := g.asLambda(keyX, 1)
	if err != nil {
		return nil, err
	}
	keyFn, err := g.keyClosure(lambda.Params, lambda.Body, elem)
	if err != nil {
		return nil, err
	}
	return rast.Blk(nil, g.sortByKeyCall(l, keyFn, g.keyType(lambda.Params, lambda.Body, elem), reverse)...), nil
}

// dictDefault converts the default value of a lookup to the value type of a dictionary.
func (g *Generator) dictDefault(x hir.Expr, value types.Type) (rast.Expr, error) {
	if types.Equal(value, infer.JSONType) {
		d, err := g.Value(x)
		if err != nil {
			return nil, err
		}
		return rast.PC("serde_json::Value::from", d), nil
	}
	return g.elemValue(x, value)
}

// orElse generates the unwrapping of an option with a default.
// Defaults which are not pure are only evaluated when the option is empty.
func orElse(opt rast.Expr, x hir.Expr, d rast.Expr) rast.Expr {
	if infer.IsPure(x) {
		return rast.M(opt, "unwrap_or", d)
	}
	return rast.M(opt, "unwrap_or_else", closure(d))
}

// setdefault generates the entry of a key, inserting a default value if the key is absent.
// A value modified in place is the entry itself; otherwise the value is cloned out of the map.
func (g *Generator) setdefault(x *hir.MethodCall, value types.Type, inPlace bool) (rast.Expr, error) {
	if err := methodArity(x, 2, 2); err != nil {
		return nil, err
	}
	d, err := g.mutRecv(x.Recv)
	if err != nil {
		return nil, err
	}
	var key types.Type = types.UnknownType()
	if dict, ok := g.typeOf(x.Recv).(*types.Dict); ok {
		key = dict.Key
	}
	k, err := g.elemValue(x.Args[0], key)
	if err != nil {
		return nil, err
	}
	v, err := g.dictDefault(x.Args[1], value)
	if err != nil {
		return nil, err
	}
	entry := rast.M(d, "entry", k)
	if inPlace {
		g.trace(x, "setdefault-in-place", "the inserted value is modified through the entry")
		return rast.M(entry, "or_insert_with", closure(v)), nil
	}
	return rast.M(rast.M(entry, "or_insert", v), "clone"), nil
}

func (g *Generator) dictMethod(x *hir.MethodCall) (rast.Expr, bool, error) {
	var value types.Type = types.UnknownType()
	if dict, ok := g.typeOf(x.Recv).(*types.Dict); ok {
		value = dict.Value
	}
	if name, ok := varName(x.Recv); ok && infer.DictNameHeuristic(g.ctx, name) {
		g.trace(x.Recv, "dict-heuristic", name+" is assumed to be a dictionary")
	}
	switch x.Method {
	case "get":
		if err := methodArity(x, 1, 2); err != nil {
			return nil, true, err
		}
		got, err := g.keyedCall(x.Recv, "get", x.Args[0])
		if err != nil {
			return nil, true, err
		}
		got = rast.M(got, "cloned")
		if len(x.Args) == 1 {
			return got, true, nil
		}
		d, err := g.dictDefault(x.Args[1], value)
		if err != nil {
			return nil, true, err
		}
		return orElse(got, x.Args[1], d), true, nil
	case "keys", "values":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		d, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return collect(rast.M(rast.M(d, x.Method), "cloned"), vecOfInfer()), true, nil
	case "items":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		d, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		k, v := rast.Id(g.ctx.UniqueName("k")), rast.Id(g.ctx.UniqueName("v"))
		pair := &rast.Tuple{Elts: []rast.Expr{rast.M(k, "clone"), rast.M(v, "clone")}}
		return collect(rast.M(rast.M(d, "iter"), "map", closure(pair, &rast.Tuple{Elts: []rast.Expr{k, v}})), vecOfInfer()), true, nil
	case "pop":
		if err := methodArity(x, 1, 2); err != nil {
			return nil, true, err
		}
		if _, err := g.mutRecv(x.Recv); err != nil {
			return nil, true, err
		}
		removed, err := g.keyedCall(x.Recv, "remove", x.Args[0])
		if err != nil {
			return nil, true, err
		}
		if len(x.Args) == 1 {
			return expect(removed, "key not found"), true, nil
		}
		d, err := g.dictDefault(x.Args[1], value)
		if err != nil {
			return nil, true, err
		}
		return orElse(removed, x.Args[1], d), true, nil
	case "setdefault":
		e, err := g.setdefault(x, value, false)
		return e, true, err
	case "update":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		d, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		other, err := g.Value(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		return rast.M(d, "extend", other), true, nil
	case "clear":
		d, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.M(d, "clear"), true, nil
	case "copy":
		d, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.M(d, "clone"), true, nil
	}
	return nil, false, nil
}

// setOperand generates a borrowed set from an iterable.
func (g *Generator) setOperand(x hir.Expr) (rast.Expr, error) {
	if infer.IsSetExpr(g.ctx, x) {
		return g.keyRef(x)
	}
	iter, err := g.IterOf(x)
	if err != nil {
		return nil, err
	}
	set := g.use(hashSetPath)
	return &rast.Ref{X: collect(iter, rast.Named(set, &rast.TypeInfer{}))}, nil
}

var setRelations = map[string]string{
	"issubset":   "is_subset",
	"issuperset": "is_superset",
	"isdisjoint": "is_disjoint",
}

func (g *Generator) setMethod(x *hir.MethodCall) (rast.Expr, bool, error) {
	elem := types.ElemOf(g.typeOf(x.Recv))
	switch x.Method {
	case "add":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		s, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		v, err := g.elemValue(x.Args[0], elem)
		if err != nil {
			return nil, true, err
		}
		return rast.M(s, "insert", v), true, nil
	case "discard", "remove":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		if _, err := g.mutRecv(x.Recv); err != nil {
			return nil, true, err
		}
		removed, err := g.keyedCall(x.Recv, "remove", x.Args[0])
		if err != nil {
			return nil, true, err
		}
		if x.Method == "discard" {
			return removed, true, nil
		}
		return &rast.Macro{Name: "assert", Args: []rast.Expr{removed, rast.Str("set.remove(x): x not in set")}}, true, nil
	case "union", "intersection", "difference", "symmetric_difference":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		s, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		other, err := g.setOperand(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		set := g.use(hashSetPath)
		return collect(rast.M(rast.M(s, x.Method, other), "cloned"), rast.Named(set, &rast.TypeInfer{})), true, nil
	case "issubset", "issuperset", "isdisjoint":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		s, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		other, err := g.setOperand(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		return rast.M(s, setRelations[x.Method], other), true, nil
	case "update":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		s, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		iter, err := g.IterOf(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		return rast.M(s, "extend", iter), true, nil
	case "pop":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		s, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		v := rast.Id(g.ctx.UniqueName("elem"))
		first := expect(rast.M(rast.M(rast.M(s, "iter"), "next"), "cloned"), "pop from an empty set")
		return rast.Blk(v,
			&rast.Let{Pattern: v, Value: first},
			rast.Semi(rast.M(s, "remove", &rast.Ref{X: v})),
		), true, nil
	case "clear":
		s, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.M(s, "clear"), true, nil
	case "copy":
		s, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.M(s, "clone"), true, nil
	}
	return nil, false, nil
}
