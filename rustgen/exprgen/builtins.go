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
	"fmt"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// builtin generates a call to a builtin function.
// It returns false if the function is not a builtin.
func (g *Generator) builtin(x *hir.Call) (rast.Expr, bool, error) {
	var gen func(*hir.Call) (rast.Expr, error)
	switch x.Func {
	case "len":
		gen = g.builtinLen
	case "range":
		gen = g.builtinRange
	case "str":
		gen = g.builtinStr
	case "int":
		gen = g.builtinInt
	case "float":
		gen = g.builtinFloat
	case "bool":
		gen = g.builtinBool
	case "print":
		gen = g.builtinPrint
	case "abs":
		gen = g.builtinAbs
	case "round":
		gen = g.builtinRound
	case "divmod":
		gen = g.builtinDivmod
	case "pow":
		gen = g.builtinPow
	case "ord":
		gen = g.builtinOrd
	case "chr":
		gen = g.builtinChr
	case "hex", "bin", "oct":
		gen = g.builtinRadix
	case "repr":
		gen = g.builtinRepr
	case "format":
		gen = g.builtinFormat
	case "isinstance":
		gen = g.builtinIsInstance
	case "hasattr":
		gen = g.builtinHasAttr
	case "getattr":
		gen = g.builtinGetAttr
	case "setattr":
		gen = g.builtinSetAttr
	case "callable":
		gen = g.builtinCallable
	case "type":
		gen = g.builtinType
	case "id":
		gen = g.builtinID
	case "hash":
		gen = g.builtinHash
	case "open":
		gen = g.builtinOpen
	case "input":
		gen = g.builtinInput
	case "exit", "quit":
		gen = g.builtinExit
	case "list", "tuple":
		gen = g.builtinList
	case "set", "frozenset":
		gen = g.builtinSet
	case "dict":
		gen = g.builtinDict
	case "enumerate":
		gen = g.builtinEnumerate
	case "zip":
		gen = g.builtinZip
	case "reversed":
		gen = g.builtinReversed
	case "sorted":
		gen = g.builtinSorted
	case "map":
		gen = g.builtinMap
	case "filter":
		gen = g.builtinFilter
	case "sum":
		gen = g.builtinSum
	case "min", "max":
		gen = g.builtinMinMax
	case "any", "all":
		gen = g.builtinAnyAll
	case "next":
		gen = g.builtinNext
	case "iter":
		gen = g.builtinIter
	default:
		return nil, false, nil
	}
	e, err := gen(x)
	return e, true, err
}

// arity checks the number of positional arguments of a call. A negative maximum means no limit.
func arity(x *hir.Call, lo, hi int) error {
	n := len(x.Args)
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}
	var want string
	switch {
	case lo == hi:
		want = fmt.Sprintf("%d", lo)
	case hi < 0:
		want = fmt.Sprintf("at least %d", lo)
	default:
		want = fmt.Sprintf("%d to %d", lo, hi)
	}
	return fmterr.Arityf(x.Span(), "call", "%s() takes %s arguments, got %d", x.Func, want, n)
}

// argOrKwarg returns the positional argument at index i or the keyword argument with the given name.
func argOrKwarg(x *hir.Call, i int, name string) hir.Expr {
	if i < len(x.Args) {
		return x.Args[i]
	}
	return hir.Kwarg(x.Kwargs, name)
}

// strLitArg returns the value of an argument which must be a string literal.
func strLitArg(x *hir.Call, arg hir.Expr, name string) (string, error) {
	s, ok := isStrLit(arg)
	if !ok {
		return "", fmterr.Unsupportedf(arg.Span(), x.Func, "%s argument of %s() must be a string literal", name, x.Func)
	}
	return s, nil
}

// strRecv generates a string used as the receiver of a method call.
func (g *Generator) strRecv(x hir.Expr) (rast.Expr, error) {
	if s, ok := isStrLit(x); ok {
		return rast.Str(s), nil
	}
	return g.Expr(x)
}

func (g *Generator) builtinLen(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	arg := x.Args[0]
	if g.isDyn(arg) {
		g.facade()
		e, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return cast(rast.M(e, "len"), "i32"), nil
	}
	if infer.IsStringExpr(g.ctx, arg) {
		e, err := g.strRecv(arg)
		if err != nil {
			return nil, err
		}
		return cast(rast.M(rast.M(e, "chars"), "count"), "i32"), nil
	}
	e, err := g.Expr(arg)
	if err != nil {
		return nil, err
	}
	return cast(rast.M(e, "len"), "i32"), nil
}

func (g *Generator) builtinRange(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 3); err != nil {
		return nil, err
	}
	bounds, err := g.coerceAll(x.Args, types.IntType())
	if err != nil {
		return nil, err
	}
	var lo, hi rast.Expr
	if len(bounds) == 1 {
		lo, hi = rast.Int("0"), bounds[0]
	} else {
		lo, hi = bounds[0], bounds[1]
	}
	r := &rast.Range{Lo: lo, Hi: hi}
	if len(x.Args) < 3 {
		return r, nil
	}
	step := x.Args[2]
	if v, ok := isIntLit(step); ok && v > 0 {
		if v == 1 {
			return r, nil
		}
		return rast.M(r, "step_by", rast.Int(strconvInt(v))), nil
	}
	if v, ok := negIntLit(step); ok {
		down := &rast.Range{Lo: rast.Bin("+", hi, rast.Int("1")), Hi: lo, Inclusive: true}
		var it rast.Expr = rast.M(down, "rev")
		if v != -1 {
			it = rast.M(it, "step_by", rast.Int(strconvInt(-v)))
		}
		return it, nil
	}
	if v, ok := isIntLit(step); ok && v == 0 {
		return nil, fmterr.Arityf(x.Span(), "call", "range() arg 3 must not be zero")
	}
	g.trace(x, "range-step", "step of range assumed to be positive")
	return rast.M(r, "step_by", cast(bounds[2], "usize")), nil
}

func (g *Generator) coerceAll(xs []hir.Expr, want types.Type) ([]rast.Expr, error) {
	rxs := make([]rast.Expr, len(xs))
	for i, x := range xs {
		var err error
		if rxs[i], err = g.Coerce(x, want); err != nil {
			return nil, err
		}
	}
	return rxs, nil
}

func (g *Generator) builtinStr(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	if len(x.Args) == 0 {
		return rast.PC("String::new"), nil
	}
	arg := x.Args[0]
	switch {
	case isNoneLit(arg):
		return rast.M(rast.Str("None"), "to_string"), nil
	case g.isDyn(arg):
		g.facade()
		e, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return rast.M(e, "to_string"), nil
	case infer.IsStringExpr(g.ctx, arg):
		return g.Coerce(arg, types.StringType())
	}
	placeholder, e, err := g.display(arg, "")
	if err != nil {
		return nil, err
	}
	if placeholder == "{}" {
		return rast.M(e, "to_string"), nil
	}
	return rast.Format(placeholder, e), nil
}

func (g *Generator) builtinInt(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 2); err != nil {
		return nil, err
	}
	if len(x.Args) == 0 {
		return rast.Int("0"), nil
	}
	arg := x.Args[0]
	if len(x.Args) == 2 {
		s, err := g.strRef(arg)
		if err != nil {
			return nil, err
		}
		base, err := g.Coerce(x.Args[1], types.IntType())
		if err != nil {
			return nil, err
		}
		return g.fallible(rast.PC("i32::from_str_radix", s, cast(base, "u32")), "invalid literal for int()"), nil
	}
	if g.isDyn(arg) {
		g.facade()
		e, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return cast(rast.M(e, "to_i64"), "i32"), nil
	}
	if infer.IsStringExpr(g.ctx, arg) {
		e, err := g.strRecv(arg)
		if err != nil {
			return nil, err
		}
		parse := rast.M(rast.M(e, "trim"), "parse")
		parse.Turbofish = []rast.Type{rast.Named("i32")}
		return g.fallible(parse, "invalid literal for int()"), nil
	}
	e, err := g.Expr(arg)
	if err != nil {
		return nil, err
	}
	switch kindOf(g.typeOf(arg)) {
	case types.FloatKind, types.BoolKind:
		return cast(e, "i32"), nil
	}
	return e, nil
}

func (g *Generator) builtinFloat(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	if len(x.Args) == 0 {
		return rast.Float("0.0"), nil
	}
	arg := x.Args[0]
	if s, ok := isStrLit(arg); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "inf", "+inf", "infinity":
			return rast.P("f64", "INFINITY"), nil
		case "-inf", "-infinity":
			return rast.P("f64", "NEG_INFINITY"), nil
		case "nan":
			return rast.P("f64", "NAN"), nil
		}
	}
	switch {
	case g.isDyn(arg):
		g.facade()
		e, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return rast.M(e, "to_f64"), nil
	case infer.IsStringExpr(g.ctx, arg):
		e, err := g.strRecv(arg)
		if err != nil {
			return nil, err
		}
		parse := rast.M(rast.M(e, "trim"), "parse")
		parse.Turbofish = []rast.Type{rast.Named("f64")}
		return g.fallible(parse, "could not convert string to float"), nil
	}
	switch kindOf(g.typeOf(arg)) {
	case types.IntKind:
		return g.Coerce(arg, types.FloatType())
	case types.BoolKind:
		e, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return cast(cast(e, "i32"), "f64"), nil
	}
	return g.Expr(arg)
}

func (g *Generator) builtinBool(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	if len(x.Args) == 0 {
		return rast.Bool(false), nil
	}
	return g.Cond(x.Args[0])
}

// isModuleAttr returns true if an expression is the attribute of a module, such as sys.stderr.
func isModuleAttr(x hir.Expr, mod, name string) bool {
	attr, ok := x.(*hir.Attr)
	if !ok || attr.Name != name {
		return false
	}
	v, ok := attr.X.(*hir.Var)
	return ok && v.Name == mod
}

func (g *Generator) builtinPrint(x *hir.Call) (rast.Expr, error) {
	sep, end := " ", "\n"
	if sepX := hir.Kwarg(x.Kwargs, "sep"); sepX != nil && !isNoneLit(sepX) {
		var err error
		if sep, err = strLitArg(x, sepX, "sep"); err != nil {
			return nil, err
		}
	}
	if endX := hir.Kwarg(x.Kwargs, "end"); endX != nil && !isNoneLit(endX) {
		var err error
		if end, err = strLitArg(x, endX, "end"); err != nil {
			return nil, err
		}
	}
	f := g.newFormatter()
	for i, arg := range x.Args {
		if i > 0 {
			f.literal(sep)
		}
		if err := f.value(arg, ""); err != nil {
			return nil, err
		}
	}
	newline := strings.HasSuffix(end, "\n")
	f.literal(strings.TrimSuffix(end, "\n"))
	var args []rast.Expr
	if text := f.text.String(); text != "" || len(f.args) > 0 || !newline {
		args = append([]rast.Expr{rast.Str(text)}, f.args...)
	}
	name := "print"
	if newline {
		name = "println"
	}
	fileX := hir.Kwarg(x.Kwargs, "file")
	switch {
	case fileX == nil || isNoneLit(fileX) || isModuleAttr(fileX, "sys", "stdout"):
		return &rast.Macro{Name: name, Args: args}, nil
	case isModuleAttr(fileX, "sys", "stderr"):
		return &rast.Macro{Name: "e" + name, Args: args}, nil
	}
	w, err := g.Expr(fileX)
	if err != nil {
		return nil, err
	}
	if v, ok := varName(fileX); ok {
		g.ctx.MarkMutable(v)
	}
	g.use("std::io::Write")
	name = "write"
	if newline {
		name = "writeln"
	}
	if len(args) == 0 {
		args = []rast.Expr{rast.Str("")}
	}
	return expect(&rast.Macro{Name: name, Args: append([]rast.Expr{w}, args...)}, "write failed"), nil
}

func (g *Generator) builtinAbs(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	arg := x.Args[0]
	if infer.IsNumpyValue(g.ctx, arg) {
		if e, ok, err := g.numpyCall(x, "abs", x.Args, x.Kwargs); ok || err != nil {
			return e, err
		}
	}
	e, err := g.Expr(arg)
	if err != nil {
		return nil, err
	}
	switch {
	case g.isDyn(arg):
		g.facade()
		if _, ok := e.(*rast.Ident); ok {
			return rast.PC("py_max", rast.M(e, "clone"), &rast.Unary{Op: "-", X: e}), nil
		}
		v := rast.Id(g.ctx.UniqueName("v"))
		return rast.Blk(
			rast.PC("py_max", rast.M(v, "clone"), &rast.Unary{Op: "-", X: v}),
			&rast.Let{Pattern: v, Value: e},
		), nil
	case kindOf(g.typeOf(arg)) == types.FloatKind:
		return rast.PC("f64::abs", e), nil
	}
	return rast.PC("i32::abs", e), nil
}

func (g *Generator) builtinRound(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 2); err != nil {
		return nil, err
	}
	arg := x.Args[0]
	if len(x.Args) == 1 && kindOf(g.typeOf(arg)) == types.IntKind {
		return g.Expr(arg)
	}
	f, err := g.asF64(arg)
	if err != nil {
		return nil, err
	}
	if lit, ok := f.(*rast.Lit); ok {
		lit.Suffix = "f64"
	}
	if len(x.Args) == 1 {
		return cast(g.roundEven(f), "i32"), nil
	}
	digits, err := g.Coerce(x.Args[1], types.IntType())
	if err != nil {
		return nil, err
	}
	factor := rast.M(&rast.Lit{Kind: rast.FloatLit, Value: "10.0", Suffix: "f64"}, "powi", digits)
	return rast.Bin("/", g.roundEven(rast.Bin("*", f, factor)), factor), nil
}

// roundEven rounds a float to the nearest integer, ties to even.
func (g *Generator) roundEven(f rast.Expr) rast.Expr {
	if g.ctx.Options().HasRoundTiesEven() {
		return rast.M(f, "round_ties_even")
	}
	return g.bindOnce(f, func(v rast.Expr) rast.Expr {
		r := rast.M(v, "round")
		two := rast.Float("2.0")
		return &rast.If{
			Cond: rast.Bin("==", rast.M(rast.Bin("-", r, v), "abs"), rast.Float("0.5")),
			Then: rast.Blk(rast.Bin("*", two, rast.M(rast.Bin("/", v, two), "round"))),
			Else: rast.Blk(r),
		}
	})
}

func (g *Generator) builtinDivmod(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 2); err != nil {
		return nil, err
	}
	a, b := x.Args[0], x.Args[1]
	q, err := g.floorDiv(&hir.Binary{Pos: x.Pos, Op: hir.FloorDiv, X: a, Y: b})
	if err != nil {
		return nil, err
	}
	r, err := g.floorMod(&hir.Binary{Pos: x.Pos, Op: hir.Mod, X: a, Y: b})
	if err != nil {
		return nil, err
	}
	return &rast.Tuple{Elts: []rast.Expr{q, r}}, nil
}

func (g *Generator) builtinPow(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 3); err != nil {
		return nil, err
	}
	if len(x.Args) == 3 {
		return nil, fmterr.Unsupportedf(x.Span(), "pow", "modular exponentiation not supported")
	}
	return g.pow(&hir.Binary{Pos: x.Pos, Op: hir.Pow, X: x.Args[0], Y: x.Args[1]})
}

func (g *Generator) builtinOrd(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	if s, ok := isStrLit(x.Args[0]); ok && len([]rune(s)) == 1 {
		return rast.Int(strconvInt(int64([]rune(s)[0]))), nil
	}
	e, err := g.strRecv(x.Args[0])
	if err != nil {
		return nil, err
	}
	return cast(expect(rast.M(rast.M(e, "chars"), "next"), "ord() expected a character"), "i32"), nil
}

func (g *Generator) builtinChr(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	n, err := g.Coerce(x.Args[0], types.IntType())
	if err != nil {
		return nil, err
	}
	return rast.M(expect(rast.PC("char::from_u32", cast(n, "u32")), "chr() arg not in range"), "to_string"), nil
}

func (g *Generator) builtinRadix(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	n, err := g.Coerce(x.Args[0], types.IntType())
	if err != nil {
		return nil, err
	}
	spec := map[string]string{"hex": "{:#x}", "bin": "{:#b}", "oct": "{:#o}"}[x.Func]
	return rast.Format(spec, n), nil
}

func (g *Generator) builtinRepr(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	arg := x.Args[0]
	if infer.IsStringExpr(g.ctx, arg) && !g.isDyn(arg) {
		e, err := g.Expr(arg)
		if err != nil {
			return nil, err
		}
		return rast.Format("'{}'", e), nil
	}
	placeholder, e, err := g.display(arg, "")
	if err != nil {
		return nil, err
	}
	return rast.Format(placeholder, e), nil
}

func (g *Generator) builtinFormat(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 2); err != nil {
		return nil, err
	}
	spec := ""
	if len(x.Args) == 2 {
		var err error
		if spec, err = strLitArg(x, x.Args[1], "format_spec"); err != nil {
			return nil, err
		}
	}
	f := g.newFormatter()
	if err := f.value(x.Args[0], spec); err != nil {
		return nil, err
	}
	return f.macro(), nil
}

// dvVariants maps the names of builtin types to the variants of DynValue holding them.
var dvVariants = map[string]string{
	"int":   "Int",
	"float": "Float",
	"str":   "Str",
	"bool":  "Bool",
	"list":  "List",
	"dict":  "Dict",
	"tuple": "Tuple",
}

// typeNames maps the names of builtin types to their kind.
var typeNames = map[string]types.Kind{
	"int":   types.IntKind,
	"float": types.FloatKind,
	"str":   types.StringKind,
	"bool":  types.BoolKind,
	"list":  types.ListKind,
	"dict":  types.DictKind,
	"set":   types.SetKind,
	"tuple": types.TupleKind,
}

func (g *Generator) builtinIsInstance(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 2); err != nil {
		return nil, err
	}
	var names []string
	switch clsT := x.Args[1].(type) {
	case *hir.Var:
		names = []string{clsT.Name}
	case *hir.TupleLit:
		for _, elt := range clsT.Elts {
			v, ok := elt.(*hir.Var)
			if !ok {
				return nil, fmterr.Unsupportedf(elt.Span(), "isinstance", "class must be a name")
			}
			names = append(names, v.Name)
		}
	default:
		return nil, fmterr.Unsupportedf(x.Args[1].Span(), "isinstance", "class must be a name")
	}
	obj := x.Args[0]
	if g.isDyn(obj) {
		g.facade()
		e, err := g.Expr(obj)
		if err != nil {
			return nil, err
		}
		var pattern rast.Expr
		for _, name := range names {
			variant, ok := dvVariants[name]
			if !ok {
				continue
			}
			var p rast.Expr = rast.PC(types.DVName+"::"+variant, &rast.Wild{})
			if pattern != nil {
				p = rast.Bin("|", pattern, p)
			}
			pattern = p
		}
		if pattern == nil {
			return rast.Bool(false), nil
		}
		return &rast.Macro{Name: "matches", Args: []rast.Expr{e, pattern}}, nil
	}
	typ := g.typeOf(obj)
	g.trace(x, "isinstance-static", "isinstance resolved from the static type "+typ.String())
	for _, name := range names {
		if kind, ok := typeNames[name]; ok && typ.Kind() == kind {
			return rast.Bool(true), nil
		}
		if custom, ok := typ.(*types.Custom); ok && custom.Name == name {
			return rast.Bool(true), nil
		}
	}
	return rast.Bool(false), nil
}

func (g *Generator) builtinHasAttr(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 2); err != nil {
		return nil, err
	}
	name, err := strLitArg(x, x.Args[1], "name")
	if err != nil {
		return nil, err
	}
	custom, ok := g.typeOf(x.Args[0]).(*types.Custom)
	if !ok {
		return rast.Bool(false), nil
	}
	cls, ok := g.ctx.Registry().Class(custom.Name)
	if !ok {
		return rast.Bool(false), nil
	}
	_, isMethod := cls.Methods[name]
	return rast.Bool(cls.Fields.Has(name) || isMethod), nil
}

func (g *Generator) builtinGetAttr(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 2, 3); err != nil {
		return nil, err
	}
	name, err := strLitArg(x, x.Args[1], "name")
	if err != nil {
		return nil, err
	}
	return g.Value(&hir.Attr{Pos: x.Pos, X: x.Args[0], Name: name})
}

func (g *Generator) builtinSetAttr(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 3, 3); err != nil {
		return nil, err
	}
	name, err := strLitArg(x, x.Args[1], "name")
	if err != nil {
		return nil, err
	}
	field, err := g.Expr(&hir.Attr{Pos: x.Pos, X: x.Args[0], Name: name})
	if err != nil {
		return nil, err
	}
	var want types.Type
	if v, ok := varName(x.Args[0]); ok && v == "self" {
		want, _ = g.ctx.ClassFieldType(name)
	}
	value, err := g.Coerce(x.Args[2], want)
	if err != nil {
		return nil, err
	}
	return rast.Blk(nil, &rast.Assign{Lhs: field, Op: "=", Rhs: value}), nil
}

func (g *Generator) builtinCallable(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	switch argT := x.Args[0].(type) {
	case *hir.Lambda:
		return rast.Bool(true), nil
	case *hir.Var:
		if _, ok := g.ctx.Registry().Func(argT.Name); ok {
			return rast.Bool(true), nil
		}
	}
	return rast.Bool(g.typeOf(x.Args[0]).Kind() == types.FunctionKind), nil
}

func (g *Generator) builtinType(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	e, err := g.Expr(x.Args[0])
	if err != nil {
		return nil, err
	}
	return rast.PC("std::any::type_name_of_val", &rast.Ref{X: e}), nil
}

func (g *Generator) builtinID(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	e, err := g.Expr(x.Args[0])
	if err != nil {
		return nil, err
	}
	ptr := &rast.Cast{X: &rast.Ref{X: e}, Type: rast.Named("*const _")}
	return cast(cast(ptr, "usize"), "i32"), nil
}

func (g *Generator) builtinHash(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 1); err != nil {
		return nil, err
	}
	arg := x.Args[0]
	if kindOf(g.typeOf(arg)) == types.FloatKind {
		return nil, fmterr.Unsupportedf(x.Span(), "hash", "hash of a float not supported")
	}
	e, err := g.Expr(arg)
	if err != nil {
		return nil, err
	}
	hasher := rast.Id(g.ctx.UniqueName("hasher"))
	return rast.Blk(
		cast(rast.M(hasher, "finish"), "i32"),
		&rast.ItemStmt{Item: &rast.Use{Path: "std::hash::{Hash, Hasher}"}},
		&rast.Let{Pattern: hasher, Mut: true, Value: rast.PC("std::collections::hash_map::DefaultHasher::new")},
		rast.Semi(rast.M(e, "hash", &rast.Ref{Mut: true, X: hasher})),
	), nil
}

func (g *Generator) builtinOpen(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 1, 2); err != nil {
		return nil, err
	}
	mode := "r"
	if modeX := argOrKwarg(x, 1, "mode"); modeX != nil {
		var err error
		if mode, err = strLitArg(x, modeX, "mode"); err != nil {
			return nil, err
		}
	}
	path, err := g.strRef(x.Args[0])
	if err != nil {
		return nil, err
	}
	options := func(flags ...string) rast.Expr {
		var e rast.Expr = rast.PC("std::fs::OpenOptions::new")
		for _, flag := range flags {
			e = rast.M(e, flag, rast.Bool(true))
		}
		return rast.M(e, "open", path)
	}
	var open rast.Expr
	plus := strings.Contains(mode, "+")
	switch mode = strings.Trim(mode, "bt+"); {
	case mode == "r" && plus:
		open = options("read", "write")
	case mode == "r":
		open = rast.PC("std::fs::File::open", path)
	case mode == "w" && plus:
		open = options("read", "write", "create", "truncate")
	case mode == "w":
		open = rast.PC("std::fs::File::create", path)
	case mode == "a":
		open = options("append", "create")
	case mode == "x":
		open = options("write", "create_new")
	default:
		return nil, fmterr.Unsupportedf(x.Span(), "open", "file mode %q not supported", mode)
	}
	return g.fallible(open, "failed to open file"), nil
}

func (g *Generator) builtinInput(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	line := rast.Id(g.ctx.UniqueName("line"))
	var stmts []rast.Stmt
	if len(x.Args) == 1 {
		f := g.newFormatter()
		if err := f.value(x.Args[0], ""); err != nil {
			return nil, err
		}
		stmts = append(stmts,
			rast.Semi(&rast.Macro{Name: "print", Args: append([]rast.Expr{rast.Str(f.text.String())}, f.args...)}),
			rast.Semi(expect(rast.PC("std::io::Write::flush", &rast.Ref{Mut: true, X: rast.PC("std::io::stdout")}), "failed to flush stdout")),
		)
	}
	stmts = append(stmts,
		&rast.Let{Pattern: line, Mut: true, Value: rast.PC("String::new")},
		rast.Semi(expect(rast.M(rast.PC("std::io::stdin"), "read_line", &rast.Ref{Mut: true, X: line}), "failed to read line")),
	)
	return rast.Blk(rast.M(rast.M(line, "trim_end_matches", rast.Str("\n")), "to_string"), stmts...), nil
}

func (g *Generator) builtinExit(x *hir.Call) (rast.Expr, error) {
	if err := arity(x, 0, 1); err != nil {
		return nil, err
	}
	if len(x.Args) == 0 || isNoneLit(x.Args[0]) {
		return rast.PC("std::process::exit", rast.Int("0")), nil
	}
	if msg, ok := isStrLit(x.Args[0]); ok {
		return rast.Blk(rast.PC("std::process::exit", rast.Int("1")),
			rast.Semi(&rast.Macro{Name: "eprintln", Args: []rast.Expr{rast.Str(escapeFormat(msg))}}),
		), nil
	}
	code, err := g.Coerce(x.Args[0], types.IntType())
	if err != nil {
		return nil, err
	}
	return rast.PC("std::process::exit", code), nil
}
