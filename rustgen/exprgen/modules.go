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
	"regexp"
	"slices"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// moduleCall generates a call to a function of a module, such as math.sqrt or os.path.join.
// Functions of unknown modules are called through their path.
func (g *Generator) moduleCall(x hir.Expr, mod, fn string, args []hir.Expr, kwargs []*hir.Keyword) (rast.Expr, error) {
	call := &hir.Call{Pos: hir.Pos{Src: x.Span()}, Func: mod + "." + fn, Args: args, Kwargs: kwargs}
	var gen func(*hir.Call, string) (rast.Expr, error)
	switch mod {
	case "np", "numpy":
		e, ok, err := g.numpyCall(x, fn, args, kwargs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmterr.Unsupportedf(x.Span(), "numpy call", "numpy function %s not supported", fn)
		}
		return e, nil
	case "math":
		gen = g.mathCall
	case "os":
		gen = g.osCall
	case "sys":
		gen = g.sysCall
	case "time":
		gen = g.timeCall
	case "json":
		gen = g.jsonCall
	case "re":
		gen = g.reCall
	default:
		segs := append(strings.Split(mod, "."), strings.Split(fn, ".")...)
		return g.unresolvedCall(x, rast.P(segs...), args)
	}
	return gen(call, fn)
}

func unsupportedModuleFunc(x *hir.Call) error {
	return fmterr.Unsupportedf(x.Span(), "module call", "%s not supported", x.Func)
}

// f64Recv generates a float used as the receiver of a method call.
// Literals are suffixed to avoid ambiguous numeric types.
func (g *Generator) f64Recv(x hir.Expr) (rast.Expr, error) {
	e, err := g.asF64(x)
	if err != nil {
		return nil, err
	}
	if lit, ok := e.(*rast.Lit); ok {
		lit.Suffix = "f64"
	}
	return e, nil
}

var mathMethods = map[string]string{
	"sqrt": "sqrt", "sin": "sin", "cos": "cos", "tan": "tan",
	"asin": "asin", "acos": "acos", "atan": "atan",
	"sinh": "sinh", "cosh": "cosh", "tanh": "tanh",
	"exp": "exp", "log10": "log10", "log2": "log2",
	"fabs": "abs", "trunc": "trunc",
	"radians": "to_radians", "degrees": "to_degrees",
	"isnan": "is_nan", "isinf": "is_infinite", "isfinite": "is_finite",
}

var mathBinary = map[string]string{
	"pow": "powf", "atan2": "atan2", "hypot": "hypot", "log": "log",
}

func (g *Generator) mathCall(x *hir.Call, fn string) (rast.Expr, error) {
	if method, ok := mathMethods[fn]; ok {
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		f, err := g.f64Recv(x.Args[0])
		if err != nil {
			return nil, err
		}
		return rast.M(f, method), nil
	}
	switch fn {
	case "log":
		if err := arity(x, 1, 2); err != nil {
			return nil, err
		}
		if len(x.Args) == 1 {
			f, err := g.f64Recv(x.Args[0])
			if err != nil {
				return nil, err
			}
			return rast.M(f, "ln"), nil
		}
	case "floor", "ceil":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		if kindOf(g.typeOf(x.Args[0])) == types.IntKind {
			return g.Expr(x.Args[0])
		}
		f, err := g.f64Recv(x.Args[0])
		if err != nil {
			return nil, err
		}
		return cast(rast.M(f, fn), "i32"), nil
	case "factorial":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		n, err := g.Coerce(x.Args[0], types.IntType())
		if err != nil {
			return nil, err
		}
		product := rast.M(&rast.Range{Lo: rast.Int("1"), Hi: n, Inclusive: true}, "product")
		product.Turbofish = []rast.Type{rast.Named("i32")}
		return product, nil
	case "gcd":
		return g.gcd(x)
	case "isclose":
		if err := arity(x, 2, 2); err != nil {
			return nil, err
		}
		a, err := g.f64Recv(x.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := g.f64Recv(x.Args[1])
		if err != nil {
			return nil, err
		}
		diff := rast.M(rast.Bin("-", a, b), "abs")
		tol := rast.Bin("*", rast.Float("1e-9"), rast.M(rast.M(a, "abs"), "max", rast.M(b, "abs")))
		return rast.Bin("<=", diff, tol), nil
	}
	if method, ok := mathBinary[fn]; ok {
		if err := arity(x, 2, 2); err != nil {
			return nil, err
		}
		a, err := g.f64Recv(x.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := g.asF64(x.Args[1])
		if err != nil {
			return nil, err
		}
		return rast.M(a, method, b), nil
	}
	return nil, unsupportedModuleFunc(x)
}

// gcd generates the greatest common divisor of two integers with the Euclidean algorithm.
func (g *Generator) gcd(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 2); err != nil {
		return nil, err
	}
	args, err := g.coerceAll(x.Args, types.IntType())
	if err != nil {
		return nil, err
	}
	a, b, t := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b")), rast.Id(g.ctx.UniqueName("t"))
	loop := &rast.While{
		Cond: rast.Bin("!=", b, rast.Int("0")),
		Body: rast.Blk(nil,
			&rast.Let{Pattern: t, Value: b},
			&rast.Assign{Lhs: b, Op: "=", Rhs: rast.Bin("%", a, b)},
			&rast.Assign{Lhs: a, Op: "=", Rhs: t},
		),
	}
	return rast.Blk(a,
		&rast.Let{Pattern: a, Mut: true, Value: rast.PC("i32::abs", args[0])},
		&rast.Let{Pattern: b, Mut: true, Value: rast.PC("i32::abs", args[1])},
		loop,
	), nil
}

// pathOf generates a std::path::Path from a string.
func (g *Generator) pathOf(x hir.Expr) (rast.Expr, error) {
	p, err := g.strRef(x)
	if err != nil {
		return nil, err
	}
	return rast.PC("std::path::Path::new", p), nil
}

func (g *Generator) osCall(x *hir.Call, fn string) (rast.Expr, error) {
	switch fn {
	case "getenv":
		if err := arity(x, 1, 2); err != nil {
			return nil, err
		}
		key, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, err
		}
		v := rast.PC("std::env::var", key)
		if len(x.Args) == 1 {
			return rast.M(v, "ok"), nil
		}
		d, err := g.Coerce(x.Args[1], types.StringType())
		if err != nil {
			return nil, err
		}
		return rast.M(v, "unwrap_or_else", closure(d, &rast.Wild{})), nil
	case "getcwd":
		if err := arity(x, 0, 0); err != nil {
			return nil, err
		}
		dir := expect(rast.PC("std::env::current_dir"), "cannot read the current directory")
		return rast.M(rast.M(dir, "display"), "to_string"), nil
	case "path.exists", "path.isfile", "path.isdir":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		p, err := g.pathOf(x.Args[0])
		if err != nil {
			return nil, err
		}
		method := map[string]string{"path.exists": "exists", "path.isfile": "is_file", "path.isdir": "is_dir"}[fn]
		return rast.M(p, method), nil
	case "path.join":
		if err := arity(x, 1, -1); err != nil {
			return nil, err
		}
		p, err := g.pathOf(x.Args[0])
		if err != nil {
			return nil, err
		}
		for _, arg := range x.Args[1:] {
			elem, err := g.strRef(arg)
			if err != nil {
				return nil, err
			}
			p = rast.M(p, "join", elem)
		}
		return rast.M(rast.M(p, "display"), "to_string"), nil
	case "path.basename", "path.dirname":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		p, err := g.pathOf(x.Args[0])
		if err != nil {
			return nil, err
		}
		n := rast.Id(g.ctx.UniqueName("n"))
		if fn == "path.basename" {
			name := rast.M(rast.M(n, "to_string_lossy"), "to_string")
			return rast.M(rast.M(rast.M(p, "file_name"), "map", closure(name, n)), "unwrap_or_default"), nil
		}
		dir := rast.M(rast.M(n, "display"), "to_string")
		return rast.M(rast.M(rast.M(p, "parent"), "map", closure(dir, n)), "unwrap_or_default"), nil
	case "listdir":
		if err := arity(x, 0, 1); err != nil {
			return nil, err
		}
		var dir rast.Expr = rast.Str(".")
		if len(x.Args) == 1 {
			var err error
			if dir, err = g.strRef(x.Args[0]); err != nil {
				return nil, err
			}
		}
		entry := rast.Id(g.ctx.UniqueName("entry"))
		name := rast.M(rast.M(rast.M(expect(entry, "cannot read directory entry"), "file_name"), "to_string_lossy"), "to_string")
		entries := g.fallible(rast.PC("std::fs::read_dir", dir), "cannot read directory")
		return collect(rast.M(entries, "map", closure(name, entry)), vecOfInfer()), nil
	case "remove", "makedirs", "mkdir":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		p, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, err
		}
		f := map[string]string{"remove": "std::fs::remove_file", "makedirs": "std::fs::create_dir_all", "mkdir": "std::fs::create_dir"}[fn]
		return g.fallible(rast.PC(f, p), fn+" failed"), nil
	}
	return nil, unsupportedModuleFunc(x)
}

func (g *Generator) sysCall(x *hir.Call, fn string) (rast.Expr, error) {
	if fn != "exit" {
		return nil, unsupportedModuleFunc(x)
	}
	return g.builtinExit(x)
}

// unixTime is the number of seconds since the Unix epoch as a float.
func unixTime() rast.Expr {
	since := rast.M(rast.PC("std::time::SystemTime::now"), "duration_since", rast.P("std", "time", "UNIX_EPOCH"))
	return rast.M(expect(since, "system clock before the Unix epoch"), "as_secs_f64")
}

func (g *Generator) timeCall(x *hir.Call, fn string) (rast.Expr, error) {
	switch fn {
	case "time", "perf_counter", "monotonic":
		if err := arity(x, 0, 0); err != nil {
			return nil, err
		}
		if fn != "time" {
			g.trace(x, "wall-clock", fn+" measured with the system clock")
		}
		return unixTime(), nil
	case "sleep":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		secs, err := g.asF64(x.Args[0])
		if err != nil {
			return nil, err
		}
		return rast.PC("std::thread::sleep", rast.PC("std::time::Duration::from_secs_f64", secs)), nil
	}
	return nil, unsupportedModuleFunc(x)
}

func (g *Generator) jsonCall(x *hir.Call, fn string) (rast.Expr, error) {
	if g.ctx.Flag(genctx.NasaMode) {
		return nil, fmterr.Unsupportedf(x.Span(), "json", "json requires serde_json, which is not available in NASA mode")
	}
	g.ctx.Require("serde_json")
	g.ctx.SetFlag(genctx.NeedsSerdeJSON)
	switch fn {
	case "dumps":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		v, err := g.Expr(x.Args[0])
		if err != nil {
			return nil, err
		}
		f := "serde_json::to_string"
		if indent := hir.Kwarg(x.Kwargs, "indent"); indent != nil && !isNoneLit(indent) {
			f = "serde_json::to_string_pretty"
		}
		return expect(rast.PC(f, &rast.Ref{X: v}), "serialization failed"), nil
	case "loads":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		s, err := g.strRef(x.Args[0])
		if err != nil {
			return nil, err
		}
		parse := &rast.Call{Fun: rast.P("serde_json", "from_str::<serde_json::Value>"), Args: []rast.Expr{s}}
		return g.fallible(parse, "invalid JSON document"), nil
	case "load":
		if err := arity(x, 1, 1); err != nil {
			return nil, err
		}
		f, err := g.Expr(x.Args[0])
		if err != nil {
			return nil, err
		}
		parse := &rast.Call{Fun: rast.P("serde_json", "from_reader::<_, serde_json::Value>"), Args: []rast.Expr{f}}
		return g.fallible(parse, "invalid JSON document"), nil
	case "dump":
		if err := arity(x, 2, 2); err != nil {
			return nil, err
		}
		v, err := g.Expr(x.Args[0])
		if err != nil {
			return nil, err
		}
		f, err := g.Expr(x.Args[1])
		if err != nil {
			return nil, err
		}
		if name, ok := varName(x.Args[1]); ok {
			g.ctx.MarkMutable(name)
		}
		return expect(rast.PC("serde_json::to_writer", &rast.Ref{Mut: true, X: f}, &rast.Ref{X: v}), "serialization failed"), nil
	}
	return nil, unsupportedModuleFunc(x)
}

// regexOf generates the compilation of a regular expression.
// Literal patterns are anchored at compile time for match and fullmatch.
func (g *Generator) regexOf(pattern hir.Expr, anchor string) (rast.Expr, error) {
	g.ctx.Require("regex")
	g.ctx.SetFlag(genctx.NeedsRegex)
	regex := g.use("regex::Regex")
	var p rast.Expr
	if s, ok := isStrLit(pattern); ok {
		switch anchor {
		case "match":
			s = `^(?:` + s + `)`
		case "fullmatch":
			s = `^(?:` + s + `)$`
		}
		p = rast.Str(s)
	} else {
		var err error
		if p, err = g.strRef(pattern); err != nil {
			return nil, err
		}
		if anchor != "" {
			g.trace(pattern, "regex-anchor", "pattern is not anchored for "+anchor)
		}
	}
	return expect(rast.PC(regex+"::new", p), "invalid regular expression"), nil
}

// pyGroupRef matches the group references of a replacement string, such as \1.
var pyGroupRef = regexp.MustCompile(`\\(\d+)`)

// replacement converts a replacement string of re.sub into the regex crate syntax.
func replacement(s string) string {
	s = strings.ReplaceAll(s, "$", "$$")
	return pyGroupRef.ReplaceAllString(s, "$${$1}")
}

func (g *Generator) reCall(x *hir.Call, fn string) (rast.Expr, error) {
	var nargs int
	switch fn {
	case "compile":
		nargs = 1
	case "match", "search", "fullmatch", "findall", "split":
		nargs = 2
	case "sub":
		nargs = 3
	default:
		return nil, unsupportedModuleFunc(x)
	}
	if err := arity(x, nargs, nargs); err != nil {
		return nil, err
	}
	anchor := ""
	if fn == "match" || fn == "fullmatch" {
		anchor = fn
	}
	re, err := g.regexOf(x.Args[0], anchor)
	if err != nil {
		return nil, err
	}
	if fn == "compile" {
		return re, nil
	}
	return g.regexMethod(x, re, fn, x.Args[1:], false)
}

// regexMethod generates a method of a compiled regular expression.
// A dynamic pattern applied with match or fullmatch checks the position of the match.
func (g *Generator) regexMethod(x hir.Node, re rast.Expr, method string, args []hir.Expr, checkAnchor bool) (rast.Expr, error) {
	want := map[string]int{"match": 1, "search": 1, "fullmatch": 1, "findall": 1, "split": 1, "sub": 2}
	n, ok := want[method]
	if !ok {
		return nil, fmterr.Unsupportedf(x.Span(), "regex", "method %s of a regular expression not supported", method)
	}
	if len(args) != n {
		return nil, fmterr.Arityf(x.Span(), "method call", "%s() takes %d arguments, got %d", method, n, len(args))
	}
	text, err := g.strRef(args[len(args)-1])
	if err != nil {
		return nil, err
	}
	switch method {
	case "match", "search", "fullmatch":
		caps := rast.M(re, "captures", text)
		if !checkAnchor || method == "search" {
			return caps, nil
		}
		c, m := rast.Id(g.ctx.UniqueName("c")), rast.Id(g.ctx.UniqueName("m"))
		var test rast.Expr = rast.Bin("==", rast.M(m, "start"), rast.Int("0"))
		if method == "fullmatch" {
			test = rast.Bin("&&", test, rast.Bin("==", rast.M(m, "end"), rast.M(text, "len")))
		}
		anchored := rast.M(rast.M(c, "get", rast.Int("0")), "is_some_and", closure(test, m))
		return rast.M(caps, "filter", closure(anchored, c)), nil
	case "findall":
		m := rast.Id(g.ctx.UniqueName("m"))
		found := rast.M(re, "find_iter", text)
		return collect(rast.M(found, "map", closure(rast.M(rast.M(m, "as_str"), "to_string"), m)), vecOfInfer()), nil
	case "split":
		s := rast.Id(g.ctx.UniqueName("s"))
		parts := rast.M(re, "split", text)
		return collect(rast.M(parts, "map", closure(rast.M(s, "to_string"), s)), vecOfInfer()), nil
	}
	var repl rast.Expr
	if s, ok := isStrLit(args[0]); ok {
		repl = rast.Str(replacement(s))
	} else {
		if repl, err = g.strRef(args[0]); err != nil {
			return nil, err
		}
		g.trace(args[0], "regex-replacement", "replacement string used with the regex crate syntax")
	}
	return rast.M(rast.M(re, "replace_all", text, repl), "to_string"), nil
}

// matchMethod generates a method of the result of a regular expression match.
func (g *Generator) matchMethod(x *hir.MethodCall, m rast.Expr) (rast.Expr, error) {
	caps := expect(rast.M(m, "as_ref"), "no match")
	group := rast.Expr(rast.Int("0"))
	if len(x.Args) > 1 {
		return nil, fmterr.Unsupportedf(x.Span(), "match", "%s with several groups not supported", x.Method)
	}
	if len(x.Args) == 1 {
		var err error
		if group, err = g.Coerce(x.Args[0], types.IntType()); err != nil {
			return nil, err
		}
		if _, lit := isIntLit(x.Args[0]); !lit {
			group = cast(group, "usize")
		}
	}
	switch x.Method {
	case "group":
		return rast.M(&rast.Index{X: caps, Index: group}, "to_string"), nil
	case "start", "end":
		pos := rast.M(expect(rast.M(caps, "get", group), "no such group"), x.Method)
		return cast(pos, "i32"), nil
	}
	return nil, fmterr.Unsupportedf(x.Span(), "match", "method %s of a match not supported", x.Method)
}

// isModuleName returns true if a name refers to a translated standard module.
func isModuleName(name string) bool {
	return slices.Contains(infer.Modules, name)
}
