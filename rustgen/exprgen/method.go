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
	"slices"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// methodCall dispatches a method call on the type of its receiver.
func (g *Generator) methodCall(x *hir.MethodCall) (rast.Expr, error) {
	if name, args, kwargs, ok := infer.NumpyFunc(x); ok {
		e, ok, err := g.numpyCall(x, name, args, kwargs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmterr.Unsupportedf(x.Span(), "numpy call", "numpy function %s not supported", name)
		}
		return e, nil
	}
	if mod, ok := infer.ModulePath(g.ctx, x.Recv); ok {
		root, rest, _ := strings.Cut(mod+"."+x.Method, ".")
		return g.moduleCall(x, root, rest, x.Args, x.Kwargs)
	}
	if infer.IsStdio(x.Recv) {
		return g.stdioMethod(x)
	}
	if infer.IsIteratorProducing(x.Recv) {
		return g.iteratorMethod(x)
	}
	if e, ok, err := g.numpyMethod(x); ok || err != nil {
		return e, err
	}
	if cls, ok := g.classOf(x.Recv); ok {
		if sig, ok := cls.Methods[x.Method]; ok {
			return g.classMethod(x, sig)
		}
	}
	if g.isDyn(x.Recv) {
		return g.dynMethod(x)
	}
	if infer.IsRegexExpr(g.ctx, x.Recv) {
		re, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		return g.regexMethod(x, re, x.Method, x.Args, true)
	}
	if types.Equal(g.typeOf(x.Recv), infer.MatchType) {
		m, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		return g.matchMethod(x, m)
	}
	var gen func(*hir.MethodCall) (rast.Expr, bool, error)
	switch {
	case infer.IsStringExpr(g.ctx, x.Recv):
		gen = g.strMethod
	case infer.IsDictExpr(g.ctx, x.Recv):
		gen = g.dictMethod
	case infer.IsSetExpr(g.ctx, x.Recv):
		gen = g.setMethod
	case infer.IsListExpr(g.ctx, x.Recv):
		gen = g.listMethod
	case infer.IsFileExpr(g.ctx, x.Recv):
		gen = g.fileMethod
	}
	if gen != nil {
		e, ok, err := gen(x)
		if err != nil || ok {
			return e, err
		}
	}
	return g.unresolvedMethod(x)
}

// unresolvedMethod calls a method unknown to the translation with owned arguments.
func (g *Generator) unresolvedMethod(x *hir.MethodCall) (rast.Expr, error) {
	g.trace(x, "unresolved-method", "method "+x.Method+" called on a receiver of type "+g.typeOf(x.Recv).String())
	recv, err := g.Expr(x.Recv)
	if err != nil {
		return nil, err
	}
	args, err := g.values(x.Args)
	if err != nil {
		return nil, err
	}
	return rast.M(recv, Ident(x.Method), args...), nil
}

// iteratorMethod passes a method of a lazy iterator through to the Iterator trait.
func (g *Generator) iteratorMethod(x *hir.MethodCall) (rast.Expr, error) {
	recv, err := g.Expr(x.Recv)
	if err != nil {
		return nil, err
	}
	args, err := g.values(x.Args)
	if err != nil {
		return nil, err
	}
	for _, arg := range args {
		// Closure parameters take the item type of the iterator.
		if c, ok := arg.(*rast.Closure); ok {
			for _, p := range c.Params {
				p.Type = nil
			}
		}
	}
	call := rast.M(recv, Ident(x.Method), args...)
	switch x.Method {
	case "count":
		return cast(call, "i32"), nil
	case "sum", "product":
		elem := g.typeOf(x)
		if !types.IsNumeric(elem) {
			g.trace(x, "iterator-sum-untyped", "the type of the "+x.Method+" is inferred by the Rust compiler")
			return call, nil
		}
		call.Turbofish = []rast.Type{types.Render(elem)}
	}
	return call, nil
}

// methodArity checks the number of positional arguments of a method call.
// A negative maximum means no maximum.
func methodArity(x *hir.MethodCall, lo, hi int) error {
	n := len(x.Args)
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}
	switch {
	case lo == hi:
		return fmterr.Arityf(x.Span(), "method call", "%s() takes %d arguments, got %d", x.Method, lo, n)
	case hi < 0:
		return fmterr.Arityf(x.Span(), "method call", "%s() takes at least %d arguments, got %d", x.Method, lo, n)
	}
	return fmterr.Arityf(x.Span(), "method call", "%s() takes %d to %d arguments, got %d", x.Method, lo, hi, n)
}

// methodArg returns a positional argument of a method call, or its keyword argument, or nil.
func methodArg(x *hir.MethodCall, i int, name string) hir.Expr {
	if i < len(x.Args) {
		return x.Args[i]
	}
	return hir.Kwarg(x.Kwargs, name)
}

// mutRecv generates the receiver of a method modifying it.
func (g *Generator) mutRecv(x hir.Expr) (rast.Expr, error) {
	if name, ok := varName(x); ok {
		g.ctx.MarkMutable(name)
	}
	if call, ok := x.(*hir.MethodCall); ok && call.Method == "setdefault" && infer.IsDictExpr(g.ctx, call.Recv) {
		var value types.Type = types.UnknownType()
		if dict, ok := g.typeOf(call.Recv).(*types.Dict); ok {
			value = dict.Value
		}
		return g.setdefault(call, value, true)
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	if deref, ok := e.(*rast.Deref); ok {
		return deref.X, nil
	}
	return e, nil
}

// classOf returns the class of a receiver.
func (g *Generator) classOf(x hir.Expr) (*genctx.Class, bool) {
	if name, ok := varName(x); ok && name == "self" {
		if cls := g.ctx.Class(); cls != nil {
			return cls, true
		}
	}
	custom, ok := g.typeOf(x).(*types.Custom)
	if !ok {
		return nil, false
	}
	return g.ctx.Registry().Class(custom.Name)
}

// classMethod calls a method of a user-defined class.
func (g *Generator) classMethod(x *hir.MethodCall, sig *genctx.FuncSig) (rast.Expr, error) {
	recv, err := g.Expr(x.Recv)
	if err != nil {
		return nil, err
	}
	args, err := g.callArgs(x, sig, x.Args, x.Kwargs)
	if err != nil {
		return nil, err
	}
	call := rast.M(recv, Ident(x.Method), args...)
	if sig.Result {
		return g.fallible(call, x.Method+" failed"), nil
	}
	return call, nil
}

// dvStringMethods are the string methods of the DynValue facade with the name of their Rust method.
var dvStringMethods = map[string]string{
	"lower": "lower", "upper": "upper", "strip": "strip", "lstrip": "lstrip", "rstrip": "rstrip",
	"startswith": "startswith", "endswith": "endswith",
	"capitalize": "capitalize", "title": "title", "swapcase": "swapcase",
	"isalpha": "isalpha", "isdigit": "isdigit", "isalnum": "isalnum", "isspace": "isspace",
	"islower": "islower", "isupper": "isupper", "istitle": "istitle", "isnumeric": "isnumeric",
	"isdecimal": "isdecimal", "isascii": "isascii", "isidentifier": "isidentifier",
	"isprintable": "isprintable", "partition": "partition",
	"split": "py_split", "replace": "py_replace",
}

// dvWidthMethods are the string methods of the facade taking a width.
var dvWidthMethods = []string{"center", "ljust", "rjust", "zfill", "expandtabs"}

// dynMethod calls a method on a DynValue through the facade.
func (g *Generator) dynMethod(x *hir.MethodCall) (rast.Expr, error) {
	g.facade()
	switch x.Method {
	case "append":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, err
		}
		recv, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, err
		}
		v, err := g.lift(x.Args[0])
		if err != nil {
			return nil, err
		}
		return rast.M(recv, "push", v), nil
	case "get":
		if err := methodArity(x, 1, 2); err != nil {
			return nil, err
		}
		recv, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		var got rast.Expr
		if s, ok := isStrLit(x.Args[0]); ok {
			got = rast.M(recv, "get_str", rast.Str(s))
		} else {
			key, err := g.lift(x.Args[0])
			if err != nil {
				return nil, err
			}
			got = rast.M(recv, "get", &rast.Ref{X: key})
		}
		got = rast.M(got, "cloned")
		if len(x.Args) == 1 {
			return got, nil
		}
		d, err := g.lift(x.Args[1])
		if err != nil {
			return nil, err
		}
		return rast.M(got, "unwrap_or", d), nil
	case "keys", "values":
		recv, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		return collect(rast.M(rast.M(recv, x.Method), "cloned"), vecOfInfer()), nil
	case "items":
		recv, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		k, v := rast.Id(g.ctx.UniqueName("k")), rast.Id(g.ctx.UniqueName("v"))
		pair := &rast.Tuple{Elts: []rast.Expr{rast.M(k, "clone"), rast.M(v, "clone")}}
		return collect(rast.M(rast.M(recv, "items"), "map", closure(pair, &rast.Tuple{Elts: []rast.Expr{k, v}})), vecOfInfer()), nil
	case "find", "count":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, err
		}
		recv, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		sub, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, err
		}
		method := x.Method
		if method == "find" {
			method = "py_find"
		}
		return cast(rast.M(recv, method, sub), "i32"), nil
	case "format":
		recv, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		args := make([]rast.Expr, len(x.Args))
		for i, arg := range x.Args {
			if args[i], err = g.lift(arg); err != nil {
				return nil, err
			}
		}
		return rast.M(recv, "format", &rast.Ref{X: &rast.Array{Elts: args}}), nil
	}
	if slices.Contains(dvWidthMethods, x.Method) {
		if err := methodArity(x, 0, 1); err != nil {
			return nil, err
		}
		recv, err := g.Expr(x.Recv)
		if err != nil {
			return nil, err
		}
		width := rast.Expr(rast.Int("8"))
		if len(x.Args) == 1 {
			if width, err = g.usize(x.Args[0]); err != nil {
				return nil, err
			}
		}
		return rast.M(recv, x.Method, width), nil
	}
	method, ok := dvStringMethods[x.Method]
	if !ok {
		return g.unresolvedMethod(x)
	}
	recv, err := g.Expr(x.Recv)
	if err != nil {
		return nil, err
	}
	args := make([]rast.Expr, len(x.Args))
	for i, arg := range x.Args {
		if args[i], err = g.strRef(arg); err != nil {
			return nil, err
		}
	}
	if method == "py_split" && len(args) == 0 {
		args = []rast.Expr{rast.Str("")}
	}
	return rast.M(recv, method, args...), nil
}

// stdioMethod generates a method of sys.stdout or sys.stderr.
func (g *Generator) stdioMethod(x *hir.MethodCall) (rast.Expr, error) {
	stream := x.Recv.(*hir.Attr).Name
	switch x.Method {
	case "write":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, err
		}
		s, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, err
		}
		name := "print"
		if stream == "stderr" {
			name = "eprint"
		}
		return &rast.Macro{Name: name, Args: []rast.Expr{rast.Str("{}"), s}}, nil
	case "flush":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, err
		}
		return expect(rast.PC("std::io::Write::flush", &rast.Ref{Mut: true, X: rast.PC("std::io::"+stream)}), "failed to flush "+stream), nil
	}
	return nil, fmterr.Unsupportedf(x.Span(), "sys."+stream, "method %s not supported", x.Method)
}

// isNoLimit returns true if the size of a read is a negative literal or None.
func isNoLimit(x hir.Expr) bool {
	_, neg := negIntLit(x)
	return neg || isNoneLit(x)
}

// lineReader returns the buffered reader of a file read line by line.
// A file bound to a variable is wrapped in a std::io::BufReader where it is opened.
func (g *Generator) lineReader(x *hir.MethodCall) (rast.Expr, error) {
	if name, ok := varName(x.Recv); ok && g.ctx.IsBufferedReader(name) {
		f, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, err
		}
		return &rast.Ref{Mut: true, X: f}, nil
	}
	f, err := g.Expr(x.Recv)
	if err != nil {
		return nil, err
	}
	g.trace(x, "readline-unbuffered", "each call creates a new buffered reader")
	return &rast.Ref{Mut: true, X: rast.PC("std::io::BufReader::new", &rast.Ref{X: f})}, nil
}

// fileMethod generates a method of a file handle.
func (g *Generator) fileMethod(x *hir.MethodCall) (rast.Expr, bool, error) {
	switch x.Method {
	case "read":
		if err := methodArity(x, 0, 1); err != nil {
			return nil, true, err
		}
		f, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		var src rast.Expr = &rast.Ref{Mut: true, X: f}
		if size := methodArg(x, 0, "size"); size != nil && !isNoLimit(size) {
			n, err := g.Coerce(size, types.IntType())
			if err != nil {
				return nil, true, err
			}
			g.trace(x, "read-bounded", "read at most n bytes")
			src = &rast.Ref{Mut: true, X: rast.PC("std::io::Read::take", src, cast(n, "u64"))}
		}
		s := rast.Id(g.ctx.UniqueName("content"))
		read := rast.PC("std::io::Read::read_to_string", src, &rast.Ref{Mut: true, X: s})
		return rast.Blk(s,
			&rast.Let{Pattern: s, Mut: true, Value: rast.PC("String::new")},
			rast.Semi(g.fallible(read, "cannot read file")),
		), true, nil
	case "readline":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		reader, err := g.lineReader(x)
		if err != nil {
			return nil, true, err
		}
		line := rast.Id(g.ctx.UniqueName("line"))
		read := rast.PC("std::io::BufRead::read_line", reader, &rast.Ref{Mut: true, X: line})
		return rast.Blk(line,
			&rast.Let{Pattern: line, Mut: true, Value: rast.PC("String::new")},
			rast.Semi(g.fallible(read, "cannot read file")),
		), true, nil
	case "readlines":
		if err := methodArity(x, 0, 0); err != nil {
			return nil, true, err
		}
		reader, err := g.lineReader(x)
		if err != nil {
			return nil, true, err
		}
		l := rast.Id(g.ctx.UniqueName("l"))
		lines := rast.PC("std::io::BufRead::lines", reader)
		withNewline := rast.Format("{}\n", expect(l, "cannot read file"))
		return collect(rast.M(lines, "map", closure(withNewline, l)), rast.Named("Vec", rast.Named("String"))), true, nil
	case "write":
		if err := methodArity(x, 1, 1); err != nil {
			return nil, true, err
		}
		f, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		s, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, true, err
		}
		write := rast.PC("std::io::Write::write_all", &rast.Ref{Mut: true, X: f}, rast.M(s, "as_bytes"))
		return g.fallible(write, "cannot write file"), true, nil
	case "flush":
		f, err := g.mutRecv(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return g.fallible(rast.PC("std::io::Write::flush", &rast.Ref{Mut: true, X: f}), "cannot flush file"), true, nil
	case "close":
		f, err := g.Expr(x.Recv)
		if err != nil {
			return nil, true, err
		}
		return rast.PC("drop", f), true, nil
	}
	return nil, false, nil
}
