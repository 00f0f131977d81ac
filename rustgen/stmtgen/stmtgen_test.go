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

package stmtgen_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/stmtgen"
)

type vars map[string]types.Type

func newGenerator(opts *options.Options, reg *genctx.Registry, vs vars) (*stmtgen.Generator, *genctx.Context) {
	if opts == nil {
		opts = options.Default()
	}
	ctx := genctx.New(opts, reg)
	ctx.EnterFunction(&genctx.FuncSig{Name: "f", Ret: types.NoneType()})
	for name, typ := range vs {
		ctx.BindVar(name, typ)
		ctx.Declare(name)
	}
	return stmtgen.New(exprgen.New(ctx)), ctx
}

func generate(t *testing.T, g *stmtgen.Generator, stmts ...hir.Stmt) string {
	t.Helper()
	blk, err := g.Block(stmts)
	if err != nil {
		t.Fatalf("cannot generate statements: %+v", err)
	}
	return rast.String(blk)
}

func checkContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("got:\n%s\nwhich does not contain:\n%s", got, w)
		}
	}
}

func checkExcludes(t *testing.T, got string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(got, w) {
			t.Errorf("got:\n%s\nwhich contains:\n%s", got, w)
		}
	}
}

func consume(x hir.Expr) hir.Stmt {
	return &hir.ExprStmt{X: hir.CallTo("consume", x)}
}

func TestAssignMutability(t *testing.T) {
	g, _ := newGenerator(nil, nil, nil)
	got := generate(t, g,
		hir.AssignTo("x", hir.Int(1)),
		hir.AssignTo("y", hir.Int(2)),
		hir.AssignTo("x", hir.Int(3)),
		consume(hir.Name("x")),
		consume(hir.Name("y")),
	)
	checkContains(t, got, "let mut x = 1;", "let y = 2;", "x = 3;")
}

func TestTupleUnpack(t *testing.T) {
	g, _ := newGenerator(nil, nil, nil)
	got := generate(t, g,
		&hir.Assign{
			Target: &hir.TupleTarget{Elts: []hir.Target{hir.Sym("a"), hir.Sym("b")}},
			Value:  &hir.TupleLit{Elts: []hir.Expr{hir.Int(1), hir.Int(2)}},
		},
		&hir.AugAssign{Target: hir.Sym("a"), Op: hir.Add, Value: hir.Int(1)},
		consume(hir.Name("b")),
	)
	checkContains(t, got, "let (mut a, b) = (1, 2);", "a += 1;")
}

func TestTupleUnpackArity(t *testing.T) {
	g, _ := newGenerator(nil, nil, nil)
	_, err := g.Block([]hir.Stmt{&hir.Assign{
		Target: &hir.TupleTarget{Elts: []hir.Target{hir.Sym("a"), hir.Sym("b")}},
		Value:  &hir.TupleLit{Elts: []hir.Expr{hir.Int(1), hir.Int(2), hir.Int(3)}},
	}})
	if err == nil {
		t.Fatal("no error when unpacking 3 values into 2 targets")
	}
	if cat, _ := fmterr.CategoryOf(err); cat != fmterr.ArityMismatch {
		t.Errorf("got category %v but want %v", cat, fmterr.ArityMismatch)
	}
}

func TestDictAugAssign(t *testing.T) {
	g, _ := newGenerator(nil, nil, vars{
		"counts": types.DictOf(types.StringType(), types.IntType()),
		"w":      types.StringType(),
	})
	got := generate(t, g, &hir.AugAssign{
		Target: &hir.IndexTarget{X: hir.Name("counts"), Index: hir.Name("w")},
		Op:     hir.Add,
		Value:  hir.Int(1),
	})
	checkContains(t, got, "*counts.entry(", ".or_insert(0) += 1;")
}

func TestWalrusWhile(t *testing.T) {
	reg := genctx.NewRegistry()
	reg.Funcs.Store("read_chunk", &genctx.FuncSig{Name: "read_chunk", Ret: types.StringType()})
	g, _ := newGenerator(nil, reg, nil)
	got := generate(t, g, &hir.While{
		Cond: &hir.NamedExpr{Target: "chunk", Value: hir.CallTo("read_chunk")},
		Body: []hir.Stmt{consume(hir.Name("chunk"))},
	})
	checkContains(t, got,
		"let mut chunk = read_chunk();",
		"while !chunk.is_empty() {",
		"chunk = read_chunk();",
	)
	checkExcludes(t, got, "loop {")
}

func TestWalrusWhileReadChunks(t *testing.T) {
	g, _ := newGenerator(nil, nil, vars{"f": types.CustomOf("File")})
	got := generate(t, g, &hir.While{
		Cond: &hir.NamedExpr{Target: "chunk", Value: hir.MCall(hir.Name("f"), "read", hir.Int(1024))},
		Body: []hir.Stmt{consume(hir.Name("chunk"))},
	})
	checkContains(t, got,
		"let mut chunk =",
		"std::io::Read::take(&mut f, 1024",
		"as u64)",
		"while !chunk.is_empty() {",
	)
	checkExcludes(t, got, "loop {")
}

func TestBufferedReader(t *testing.T) {
	g, ctx := newGenerator(nil, nil, nil)
	got := generate(t, g,
		hir.AssignTo("f", hir.CallTo("open", hir.Str("log"))),
		hir.AssignTo("first", hir.MCall(hir.Name("f"), "readline")),
		hir.AssignTo("second", hir.MCall(hir.Name("f"), "readline")),
	)
	checkContains(t, got,
		"let mut f = std::io::BufReader::new(std::fs::File::open(",
		"std::io::BufRead::read_line(&mut f, &mut line",
	)
	if n := strings.Count(got, "std::io::BufReader::new("); n != 1 {
		t.Errorf("got %d buffered readers, want 1:\n%s", n, got)
	}
	if !ctx.IsBufferedReader("f") {
		t.Errorf("f not recorded as a buffered reader")
	}
}

func TestWriterIsNotBuffered(t *testing.T) {
	g, _ := newGenerator(nil, nil, nil)
	got := generate(t, g,
		hir.AssignTo("f", hir.CallTo("open", hir.Str("log"), hir.Str("w"))),
		&hir.ExprStmt{X: hir.MCall(hir.Name("f"), "write", hir.Str("done"))},
	)
	checkExcludes(t, got, "BufReader")
}

func TestWalrusWhileWithContinue(t *testing.T) {
	reg := genctx.NewRegistry()
	reg.Funcs.Store("read_chunk", &genctx.FuncSig{Name: "read_chunk", Ret: types.StringType()})
	g, _ := newGenerator(nil, reg, nil)
	got := generate(t, g, &hir.While{
		Cond: &hir.NamedExpr{Target: "chunk", Value: hir.CallTo("read_chunk")},
		Body: []hir.Stmt{
			&hir.If{Cond: hir.Bool(true), Body: []hir.Stmt{&hir.Continue{}}},
			consume(hir.Name("chunk")),
		},
	})
	checkContains(t, got,
		"let mut chunk;",
		"loop {",
		"chunk = read_chunk();",
		"if chunk.is_empty() {",
		"break;",
	)
}

func TestBoxedWriter(t *testing.T) {
	g, ctx := newGenerator(nil, nil, vars{"verbose": types.BoolType()})
	got := generate(t, g,
		&hir.If{
			Cond: hir.Name("verbose"),
			Body: []hir.Stmt{hir.AssignTo("out", &hir.Attr{X: hir.Name("sys"), Name: "stdout"})},
			Else: []hir.Stmt{hir.AssignTo("out", hir.CallTo("open", hir.Str("log.txt"), hir.Str("w")))},
		},
		&hir.ExprStmt{X: hir.MCall(hir.Name("out"), "write", hir.Str("done"))},
	)
	checkContains(t, got,
		"let mut out: Box<dyn std::io::Write>;",
		"out = Box::new(std::io::stdout());",
		"out = Box::new(std::fs::File::create(",
	)
	if !slices.Contains(ctx.Uses(), "std::io::Write") {
		t.Errorf("got use declarations %v which do not import std::io::Write", ctx.Uses())
	}
}

func TestNumpyStatements(t *testing.T) {
	g, ctx := newGenerator(nil, nil, nil)
	got := generate(t, g,
		hir.AssignTo("a", hir.MCall(hir.Name("np"), "zeros", hir.Int(10))),
		hir.AssignTo("b", hir.Bin(hir.Add, hir.Name("a"), hir.Int(1))),
		hir.AssignTo("c", hir.CallTo("abs", hir.Name("b"))),
	)
	for _, name := range []string{"a", "b", "c"} {
		if !ctx.IsNumpyVar(name) {
			t.Errorf("%s not recorded as a numeric array", name)
		}
	}
	checkContains(t, got, "let c =", "b.iter().map(", ".abs()")
	checkExcludes(t, got, "i32::abs")
}

func TestHoistedIfVariable(t *testing.T) {
	g, _ := newGenerator(nil, nil, vars{"c": types.BoolType()})
	got := generate(t, g,
		&hir.If{
			Cond: hir.Name("c"),
			Body: []hir.Stmt{hir.AssignTo("x", hir.Int(1))},
			Else: []hir.Stmt{hir.AssignTo("x", hir.Int(2))},
		},
		consume(hir.Name("x")),
	)
	checkContains(t, got, "let x: i32;", "x = 1;", "x = 2;")
}

func TestForLoopRebind(t *testing.T) {
	g, _ := newGenerator(nil, nil, vars{"xs": types.ListOf(types.IntType())})
	got := generate(t, g, &hir.For{
		Target: hir.Sym("x"),
		Iter:   hir.Name("xs"),
		Body: []hir.Stmt{
			&hir.AugAssign{Target: hir.Sym("x"), Op: hir.Mul, Value: hir.Int(2)},
			consume(hir.Name("x")),
		},
	})
	checkContains(t, got, "for ", "let mut x = x;")
}

func tryParse() *hir.Try {
	return &hir.Try{
		Body: []hir.Stmt{hir.AssignTo("n", hir.CallTo("int", hir.Name("s")))},
		Handlers: []*hir.ExceptHandler{{
			Type: "ValueError",
			Body: []hir.Stmt{hir.AssignTo("n", hir.Int(0))},
		}},
	}
}

func TestTryExcept(t *testing.T) {
	g, ctx := newGenerator(nil, nil, vars{"s": types.StringType()})
	got := generate(t, g, tryParse(), consume(hir.Name("n")))
	checkContains(t, got,
		"let mut n: i32 = Default::default();",
		"(|| -> Result<(), Box<dyn std::error::Error>> {",
		"parse::<i32>()?",
		"Ok(())",
		"match _try {",
		"Err(err) => ",
		"err.is::<ValueError>()",
		"err.is::<std::num::ParseIntError>()",
		"n = 0;",
		`panic!("{}", err);`,
	)
	if diff := cmp.Diff([]string{"ValueError"}, ctx.ErrorTypes()); diff != "" {
		t.Errorf("unexpected error types:\n%s", diff)
	}
}

func TestTryReturn(t *testing.T) {
	opts := options.Default()
	g, ctx := newGenerator(opts, nil, nil)
	sig := &genctx.FuncSig{Name: "parse", ParamNames: []string{"s"}, Params: []types.Type{types.StringType()}, Ret: types.IntType()}
	ctx.EnterFunction(sig)
	blk, err := g.FuncBody(sig, []hir.Stmt{
		&hir.Try{
			Body:     []hir.Stmt{&hir.Return{Value: hir.CallTo("int", hir.Name("s"))}},
			Handlers: []*hir.ExceptHandler{{Body: []hir.Stmt{&hir.Return{Value: hir.Int(0)}}}},
			Finally:  []hir.Stmt{consume(hir.Str("done"))},
		},
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	got := rast.String(blk)
	checkContains(t, got,
		"Result<Option<i32>, Box<dyn std::error::Error>>",
		"return Ok(Some(",
		"Ok(None) => unreachable!()",
		"Ok(Some(ret)) => ",
		"return ret;",
		"return 0;",
	)
	checkExcludes(t, got, "Ok(None) => {")
}

func TestTryMayFallThrough(t *testing.T) {
	g, ctx := newGenerator(options.Default(), nil, nil)
	sig := &genctx.FuncSig{Name: "check", Ret: types.NoneType()}
	ctx.EnterFunction(sig)
	ctx.Declare("s")
	ctx.BindVar("s", types.StringType())
	blk, err := g.FuncBody(sig, []hir.Stmt{
		&hir.Try{
			Body: []hir.Stmt{&hir.If{
				Cond: hir.Bin(hir.Eq, hir.Name("s"), hir.Str("")),
				Body: []hir.Stmt{&hir.Return{}},
			}},
			Handlers: []*hir.ExceptHandler{{Body: []hir.Stmt{&hir.Pass{}}}},
		},
	})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	got := rast.String(blk)
	checkContains(t, got, "Ok(None) => {")
	checkExcludes(t, got, "unreachable!()")
}

func TestRaise(t *testing.T) {
	raise := &hir.If{
		Cond: hir.Bin(hir.Lt, hir.Name("x"), hir.Int(0)),
		Body: []hir.Stmt{&hir.Raise{Exc: hir.CallTo("ValueError", hir.Str("negative"))}},
	}
	t.Run("result", func(t *testing.T) {
		opts := options.Default()
		opts.ResultReturnFunctions = []string{"check"}
		g, ctx := newGenerator(opts, nil, nil)
		sig := &genctx.FuncSig{Name: "check", ParamNames: []string{"x"}, Params: []types.Type{types.IntType()}, Ret: types.NoneType()}
		ctx.EnterFunction(sig)
		blk, err := g.FuncBody(sig, []hir.Stmt{raise})
		if err != nil {
			t.Fatalf("%+v", err)
		}
		got := rast.String(blk)
		checkContains(t, got, `return Err(Box::new(ValueError::new("negative")));`, "Ok(())")
		if diff := cmp.Diff([]string{"ValueError"}, ctx.ErrorTypes()); diff != "" {
			t.Errorf("unexpected error types:\n%s", diff)
		}
	})
	t.Run("panic", func(t *testing.T) {
		g, ctx := newGenerator(nil, nil, vars{"x": types.IntType()})
		got := generate(t, g, raise)
		checkContains(t, got, `panic!("ValueError: {}", "negative");`)
		if len(ctx.ErrorTypes()) != 0 {
			t.Errorf("got error types %v but want none", ctx.ErrorTypes())
		}
	})
	t.Run("bare raise outside of a handler", func(t *testing.T) {
		g, _ := newGenerator(nil, nil, nil)
		_, err := g.Block([]hir.Stmt{&hir.Raise{}})
		if cat, _ := fmterr.CategoryOf(err); cat != fmterr.Unsupported {
			t.Errorf("got error %v but want an unsupported construct", err)
		}
	})
}

func TestNestedFunction(t *testing.T) {
	g, _ := newGenerator(nil, nil, vars{"n": types.IntType()})
	got := generate(t, g,
		&hir.FuncDef{
			Name:   "add",
			Params: []*hir.Param{{Name: "a", Type: types.IntType()}},
			Ret:    types.IntType(),
			Body:   []hir.Stmt{&hir.Return{Value: hir.Bin(hir.Add, hir.Name("a"), hir.Name("n"))}},
		},
		consume(hir.CallTo("add", hir.Int(1))),
	)
	checkContains(t, got, "let add = |a: i32| -> i32 {", "return a + n;", "add(1)")
}

func TestRecursiveNestedFunction(t *testing.T) {
	g, _ := newGenerator(nil, nil, nil)
	got := generate(t, g, &hir.FuncDef{
		Name:   "fact",
		Params: []*hir.Param{{Name: "k", Type: types.IntType()}},
		Ret:    types.IntType(),
		Body: []hir.Stmt{&hir.Return{
			Value: hir.Bin(hir.Mul, hir.Name("k"), hir.CallTo("fact", hir.Bin(hir.Sub, hir.Name("k"), hir.Int(1)))),
		}},
	})
	checkContains(t, got, "fn fact(k: i32) -> i32 {")
}

func TestAssert(t *testing.T) {
	g, _ := newGenerator(nil, nil, vars{"x": types.IntType()})
	got := generate(t, g, &hir.Assert{
		Test: hir.Bin(hir.Gt, hir.Name("x"), hir.Int(0)),
		Msg:  hir.Str("x must be {positive}"),
	})
	checkContains(t, got, `assert!(x > 0, "x must be {{positive}}");`)
}

func TestCommentsArePreserved(t *testing.T) {
	opts := options.Default()
	opts.PreserveComments = true
	g, _ := newGenerator(opts, nil, nil)
	checkContains(t, generate(t, g, &hir.Comment{Text: "hello"}), "// hello")
	g, _ = newGenerator(nil, nil, nil)
	checkExcludes(t, generate(t, g, &hir.Comment{Text: "hello"}), "hello")
}
