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
)

// facadeStrMethods are string methods implemented by the StringMethods trait of the facade.
var facadeStrMethods = map[string]bool{
	"capitalize": true, "title": true, "swapcase": true,
	"isalpha": true, "isdigit": true, "isalnum": true, "isspace": true, "islower": true,
	"isupper": true, "istitle": true, "isnumeric": true, "isdecimal": true, "isascii": true,
	"isidentifier": true, "isprintable": true,
}

var strWidthMethods = map[string]bool{"center": true, "ljust": true, "rjust": true, "zfill": true}

// bindOnce calls f with an expression which can be evaluated several times.
// Other expressions are bound to a local variable first.
func (g *Generator) bindOnce(e rast.Expr, f func(rast.Expr) rast.Expr) rast.Expr {
	switch eT := e.(type) {
	case *rast.Ident, *rast.Lit, *rast.Field:
		return f(e)
	case *rast.Deref:
		if _, ok := eT.X.(*rast.Ident); ok {
			return f(eT.X)
		}
	}
	v := rast.Id(g.ctx.UniqueName("s"))
	return rast.Blk(f(v), &rast.Let{Pattern: v, Value: e})
}

func toStrings(iter rast.Expr) rast.Expr {
	return collect(rast.M(iter, "map", rast.P("str", "to_string")), rast.Named("Vec", rast.Named("String")))
}

// charSet returns a closure testing if a character belongs to a string.
func charSet(chars rast.Expr) rast.Expr {
	c := rast.Id("c")
	return &rast.Closure{
		Params: []*rast.Param{{Pattern: c, Type: rast.Named("char")}},
		Body:   rast.M(chars, "contains", c),
	}
}

// strMethod generates a method of a string.
func (g *Generator) strMethod(x *hir.MethodCall) (rast.Expr, bool, error) {
	if x.Method == "format" {
		if s, ok := isStrLit(x.Recv); ok {
			e, err := g.strFormat(x, s)
			return e, true, err
		}
		e, err := g.dynMethod(x)
		return e, true, err
	}
	if x.Method == "join" {
		e, err := g.strJoin(x)
		return e, true, err
	}
	s, err := g.strRecv(x.Recv)
	if err != nil {
		return nil, true, err
	}
	if facadeStrMethods[x.Method] {
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		g.facade()
		return rast.M(s, x.Method), true, nil
	}
	if strWidthMethods[x.Method] {
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		g.facade()
		width, err := g.usize(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		return rast.M(s, x.Method, width), true, nil
	}
	var e rast.Expr
	switch x.Method {
	case "lower", "casefold":
		e, err = rast.M(s, "to_lowercase"), methodArity(x, 0, 0)
	case "upper":
		e, err = rast.M(s, "to_uppercase"), methodArity(x, 0, 0)
	case "strip", "lstrip", "rstrip":
		e, err = g.strStrip(x, s)
	case "split", "rsplit":
		e, err = g.strSplit(x, s)
	case "splitlines":
		e, err = toStrings(rast.M(s, "lines")), methodArity(x, 0, 0)
	case "replace":
		e, err = g.strReplace(x, s)
	case "startswith", "endswith":
		e, err = g.strAffix(x, s)
	case "find", "rfind", "index", "rindex":
		e, err = g.strFind(x, s)
	case "count":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		var sub rast.Expr
		if sub, err = g.strRef(x.Args[0]); err == nil {
			e = cast(rast.M(rast.M(s, "matches", sub), "count"), "i32")
		}
	case "removeprefix", "removesuffix":
		e, err = g.strRemoveAffix(x, s)
	case "partition", "rpartition":
		e, err = g.strPartition(x, s)
	case "expandtabs":
		if err := methodArity(x, 0, 1); err != nil {
			return nil, true, err
		}
		g.facade()
		size := rast.Expr(rast.Int("8"))
		if len(x.Args) == 1 {
			size, err = g.usize(x.Args[0])
		}
		e = rast.M(s, "expandtabs", size)
	case "encode":
		e, err = rast.M(rast.M(s, "as_bytes"), "to_vec"), methodArity(x, 0, 1)
	default:
		return nil, false, nil
	}
	return e, true, err
}

func (g *Generator) strStrip(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 0, 1); err != nil {
		return nil, err
	}
	method := map[string]string{"strip": "trim", "lstrip": "trim_start", "rstrip": "trim_end"}[x.Method]
	if len(x.Args) == 0 || isNoneLit(x.Args[0]) {
		return rast.M(rast.M(s, method), "to_string"), nil
	}
	chars, err := g.strRef(x.Args[0])
	if err != nil {
		return nil, err
	}
	return rast.M(rast.M(s, method+"_matches", charSet(chars)), "to_string"), nil
}

func (g *Generator) strSplit(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 0, 2); err != nil {
		return nil, err
	}
	sepX := methodArg(x, 0, "sep")
	maxX := methodArg(x, 1, "maxsplit")
	if maxX != nil {
		if v, ok := negIntLit(maxX); ok && v == -1 {
			maxX = nil
		}
	}
	if sepX == nil || isNoneLit(sepX) {
		if maxX != nil {
			return nil, fmterr.Unsupportedf(x.Span(), x.Method, "maxsplit without a separator not supported")
		}
		return toStrings(rast.M(s, "split_whitespace")), nil
	}
	sep, err := g.strRef(sepX)
	if err != nil {
		return nil, err
	}
	if maxX == nil {
		return toStrings(rast.M(s, "split", sep)), nil
	}
	var n rast.Expr
	if v, ok := isIntLit(maxX); ok {
		n = rast.Int(strconvInt(v + 1))
	} else {
		m, err := g.usize(maxX)
		if err != nil {
			return nil, err
		}
		n = rast.Bin("+", m, rast.Int("1"))
	}
	if x.Method == "split" {
		return toStrings(rast.M(s, "splitn", n, sep)), nil
	}
	parts := rast.Id(g.ctx.UniqueName("parts"))
	return rast.Blk(parts,
		&rast.Let{Pattern: parts, Mut: true, Value: toStrings(rast.M(s, "rsplitn", n, sep))},
		rast.Semi(rast.M(parts, "reverse")),
	), nil
}

func (g *Generator) strReplace(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 2, 3); err != nil {
		return nil, err
	}
	old, err := g.strRef(x.Args[0])
	if err != nil {
		return nil, err
	}
	repl, err := g.strRef(x.Args[1])
	if err != nil {
		return nil, err
	}
	if len(x.Args) == 2 {
		return rast.M(s, "replace", old, repl), nil
	}
	n, err := g.usize(x.Args[2])
	if err != nil {
		return nil, err
	}
	return rast.M(s, "replacen", old, repl, n), nil
}

// strAffix generates startswith and endswith. A tuple of affixes tests each of them.
func (g *Generator) strAffix(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 1, 1); err != nil {
		return nil, err
	}
	method := "starts_with"
	if x.Method == "endswith" {
		method = "ends_with"
	}
	tuple, ok := x.Args[0].(*hir.TupleLit)
	if !ok {
		affix, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, err
		}
		return rast.M(s, method, affix), nil
	}
	affixes := make([]rast.Expr, len(tuple.Elts))
	for i, elt := range tuple.Elts {
		var err error
		if affixes[i], err = g.strRef(elt); err != nil {
			return nil, err
		}
	}
	p := rast.Id(g.ctx.UniqueName("p"))
	return g.bindOnce(s, func(s rast.Expr) rast.Expr {
		test := closure(rast.M(s, method, &rast.Deref{X: p}), p)
		return rast.M(rast.M(&rast.Array{Elts: affixes}, "iter"), "any", test)
	}), nil
}

// strFind generates the character position of a substring.
func (g *Generator) strFind(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 1, 1); err != nil {
		return nil, err
	}
	sub, err := g.strRef(x.Args[0])
	if err != nil {
		return nil, err
	}
	method := "find"
	if x.Method == "rfind" || x.Method == "rindex" {
		method = "rfind"
	}
	i := rast.Id(g.ctx.UniqueName("i"))
	return g.bindOnce(s, func(s rast.Expr) rast.Expr {
		prefix := &rast.Index{X: s, Index: &rast.Range{Hi: i}}
		pos := rast.M(rast.M(s, method, sub), "map", closure(cast(rast.M(rast.M(prefix, "chars"), "count"), "i32"), i))
		if x.Method == "index" || x.Method == "rindex" {
			return expect(pos, "substring not found")
		}
		return rast.M(pos, "unwrap_or", &rast.Unary{Op: "-", X: rast.Int("1")})
	}), nil
}

func (g *Generator) strRemoveAffix(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 1, 1); err != nil {
		return nil, err
	}
	affix, err := g.strRef(x.Args[0])
	if err != nil {
		return nil, err
	}
	method := "strip_prefix"
	if x.Method == "removesuffix" {
		method = "strip_suffix"
	}
	return g.bindOnce(s, func(s rast.Expr) rast.Expr {
		stripped := rast.M(rast.M(s, method, affix), "map", rast.P("str", "to_string"))
		return rast.M(stripped, "unwrap_or_else", closure(rast.M(s, "to_string")))
	}), nil
}

func (g *Generator) strPartition(x *hir.MethodCall, s rast.Expr) (rast.Expr, error) {
	if err := methodArity(x, 1, 1); err != nil {
		return nil, err
	}
	sep, err := g.strRef(x.Args[0])
	if err != nil {
		return nil, err
	}
	method := "split_once"
	if x.Method == "rpartition" {
		method = "rsplit_once"
	}
	a, b := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))
	empty := rast.PC("String::new")
	return g.bindOnce(s, func(s rast.Expr) rast.Expr {
		found := &rast.Tuple{Elts: []rast.Expr{rast.M(a, "to_string"), rast.M(sep, "to_string"), rast.M(b, "to_string")}}
		notFound := &rast.Tuple{Elts: []rast.Expr{rast.M(s, "to_string"), empty, empty}}
		if x.Method == "rpartition" {
			notFound.Elts[0], notFound.Elts[2] = empty, rast.M(s, "to_string")
		}
		parts := rast.M(rast.M(s, method, sep), "map", closure(found, &rast.Tuple{Elts: []rast.Expr{a, b}}))
		return rast.M(parts, "unwrap_or_else", closure(notFound))
	}), nil
}

// strJoin generates the concatenation of strings with a separator.
func (g *Generator) strJoin(x *hir.MethodCall) (rast.Expr, error) {
	if err := methodArity(x, 1, 1); err != nil {
		return nil, err
	}
	sep, err := g.strRef(x.Recv)
	if err != nil {
		return nil, err
	}
	arg := x.Args[0]
	elem := g.ElemOf(arg)
	if _, isVar := arg.(*hir.Var); isVar && kindOf(g.typeOf(arg)) == types.ListKind && kindOf(elem) == types.StringKind {
		list, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return rast.M(list, "join", sep), nil
	}
	iter, err := g.IterOf(arg)
	if err != nil {
		return nil, err
	}
	if kindOf(elem) != types.StringKind {
		if !types.IsUnknown(elem) {
			g.trace(arg, "join-display", "elements of type "+elem.String()+" joined with their Display implementation")
		}
		v := rast.Id(g.ctx.UniqueName("v"))
		iter = rast.M(iter, "map", closure(rast.M(v, "to_string"), v))
	}
	return rast.M(collect(iter, rast.Named("Vec", rast.Named("String"))), "join", sep), nil
}
