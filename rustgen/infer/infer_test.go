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

package infer_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/base/uname"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
)

func newContext(nasa bool, vars map[string]types.Type) *genctx.Context {
	opts := options.Default()
	opts.NasaMode = nasa
	reg := genctx.NewRegistry()
	reg.Funcs.Store("ratio", &genctx.FuncSig{Name: "ratio", Ret: types.FloatType()})
	reg.Funcs.Store("load", &genctx.FuncSig{Name: "load", Ret: types.UnknownType()})
	reg.Funcs.Store("pair", &genctx.FuncSig{Name: "pair", Ret: types.TupleOf(types.CustomOf("Any"), types.IntType())})
	reg.Classes.Store("Point", genctx.NewClass("Point"))
	ctx := genctx.New(opts, reg)
	for name, typ := range vars {
		ctx.BindVar(name, typ)
	}
	return ctx
}

func TestReturnsUnsignedLength(t *testing.T) {
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: hir.CallTo("len", hir.Name("xs")), want: true},
		{x: hir.MCall(hir.Name("xs"), "count", hir.Int(1)), want: true},
		{x: hir.Bin(hir.Sub, hir.CallTo("len", hir.Name("xs")), hir.Int(1)), want: true},
		{x: hir.Bin(hir.Sub, hir.Name("n"), hir.Int(1)), want: false},
		{x: hir.CallTo("abs", hir.Name("n")), want: false},
	}
	for i, test := range tests {
		if got := infer.ReturnsUnsignedLength(test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
}

func TestIsIteratorProducing(t *testing.T) {
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: &hir.GenExp{Elt: hir.Name("x")}, want: true},
		{x: hir.MCall(hir.Name("xs"), "iter"), want: true},
		{x: hir.MCall(hir.MCall(hir.Name("xs"), "iter"), "count"), want: true},
		{x: hir.CallTo("zip", hir.Name("a"), hir.Name("b")), want: true},
		{x: hir.CallTo("sorted", hir.Name("a")), want: false},
		{x: hir.MCall(hir.Name("xs"), "append", hir.Int(1)), want: false},
	}
	for i, test := range tests {
		if got := infer.IsIteratorProducing(test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
}

func TestInfersFloat(t *testing.T) {
	ctx := newContext(false, map[string]types.Type{
		"x":  types.FloatType(),
		"n":  types.IntType(),
		"fn": types.FunctionOf(types.FloatType(), types.IntType()),
	})
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: hir.Float(1.5), want: true},
		{x: hir.Name("x"), want: true},
		{x: hir.Name("n"), want: false},
		{x: hir.CallTo("ratio"), want: true},
		{x: hir.CallTo("fn", hir.Int(1)), want: true},
		{x: hir.Bin(hir.Mul, hir.Name("n"), hir.Name("x")), want: true},
		{x: hir.Bin(hir.Lt, hir.Name("n"), hir.Name("x")), want: false},
		{x: &hir.IfExp{Cond: hir.Bool(true), Then: hir.Name("x"), Else: hir.Float(0)}, want: true},
		{x: &hir.IfExp{Cond: hir.Bool(true), Then: hir.Name("x"), Else: hir.Int(0)}, want: false},
	}
	for i, test := range tests {
		if got := infer.InfersFloat(ctx, test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
}

func TestIsNumpyValue(t *testing.T) {
	ctx := newContext(false, map[string]types.Type{"n": types.IntType(), "values": types.ListOf(types.StringType())})
	ctx.MarkNumpy("a")
	tempArr := uname.TempPrefix + "arr"
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: hir.MCall(hir.Name("np"), "zeros", hir.Int(10)), want: true},
		{x: hir.CallTo("np.linspace", hir.Int(0), hir.Int(1)), want: true},
		{x: hir.CallTo("abs", hir.Name("a")), want: true},
		{x: hir.CallTo("abs", hir.Name("n")), want: false},
		{x: hir.Bin(hir.Add, hir.Name("a"), hir.Int(1)), want: true},
		{x: hir.MCall(hir.Name("a"), "sqrt"), want: true},
		{x: hir.Name("arr"), want: true},
		{x: hir.Name(tempArr), want: false},
		// Known types take precedence over names.
		{x: hir.Name("values"), want: false},
		{x: hir.Bin(hir.Lt, hir.Name("a"), hir.Int(1)), want: false},
	}
	for i, test := range tests {
		if got := infer.IsNumpyValue(ctx, test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
	nasa := newContext(true, nil)
	if infer.IsNumpyValue(nasa, hir.Name("arr")) {
		t.Errorf("name heuristic fired in NASA mode")
	}
}

func TestLooksLikeOption(t *testing.T) {
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: hir.MCall(hir.Name("d"), "get", hir.Str("k")), want: true},
		{x: hir.MCall(hir.Name("d"), "get", hir.Str("k"), hir.Int(0)), want: false},
		{x: hir.MCall(hir.Name("re"), "match", hir.Str("a"), hir.Name("s")), want: true},
		{x: hir.MCall(hir.MCall(hir.Name("xs"), "first"), "cloned"), want: true},
		{x: hir.CallTo("next", hir.Name("it")), want: true},
		{x: hir.MCall(hir.Name("xs"), "len"), want: false},
	}
	for i, test := range tests {
		if got := infer.LooksLikeOption(test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
}

func TestIsPure(t *testing.T) {
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: hir.Int(1), want: true},
		{x: hir.Bin(hir.Add, hir.Name("a"), &hir.Unary{Op: hir.Neg, X: hir.Name("b")}), want: true},
		{x: &hir.TupleLit{Elts: []hir.Expr{hir.Name("a"), &hir.Attr{X: hir.Name("p"), Name: "x"}}}, want: true},
		{x: &hir.ListLit{Elts: []hir.Expr{hir.CallTo("f")}}, want: false},
		{x: hir.MCall(hir.Name("s"), "upper"), want: false},
		{x: &hir.NamedExpr{Target: "y", Value: hir.Int(1)}, want: false},
	}
	for i, test := range tests {
		if got := infer.IsPure(test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
}

func TestFileAndStdio(t *testing.T) {
	stdout := &hir.Attr{X: hir.Name("sys"), Name: "stdout"}
	if !infer.IsStdio(stdout) {
		t.Errorf("sys.stdout is not stdio")
	}
	if infer.IsStdio(&hir.Attr{X: hir.Name("os"), Name: "stdout"}) {
		t.Errorf("os.stdout is stdio")
	}
	if !infer.IsFileCreating(hir.CallTo("open", hir.Str("log"), hir.Str("w"))) {
		t.Errorf("open(...) does not create a file")
	}
	if !infer.IsFileCreating(hir.MCall(hir.Name("File"), "create", hir.Str("log"))) {
		t.Errorf("File.create(...) does not create a file")
	}
	if !infer.IsReadOnlyOpen(hir.CallTo("open", hir.Str("log"))) {
		t.Errorf("open(path) is not read-only")
	}
	if !infer.IsReadOnlyOpen(hir.CallTo("open", hir.Str("log"), hir.Str("rb"))) {
		t.Errorf("open(path, \"rb\") is not read-only")
	}
	if infer.IsReadOnlyOpen(hir.CallTo("open", hir.Str("log"), hir.Str("r+"))) {
		t.Errorf("open(path, \"r+\") is read-only")
	}
}

func TestIteratorElem(t *testing.T) {
	ctx := newContext(false, map[string]types.Type{"xs": types.ListOf(types.IntType())})
	iter := hir.MCall(hir.Name("xs"), "iter")
	double := &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Mul, hir.Name("x"), hir.Int(2))}
	half := &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Div, hir.Name("x"), hir.Int(2))}
	tests := []struct {
		x    hir.Expr
		want string
	}{
		{x: iter, want: "i32"},
		{x: hir.MCall(hir.MCall(iter, "filter", double), "rev"), want: "i32"},
		{x: hir.MCall(iter, "map", double), want: "i32"},
		{x: hir.MCall(iter, "map", half), want: "f64"},
	}
	for i, test := range tests {
		got := types.RustString(infer.IteratorElem(ctx, test.x))
		if got != test.want {
			t.Errorf("test %d: got %s but want %s", i, got, test.want)
		}
	}
}

func TestChainedArith(t *testing.T) {
	abc := hir.Bin(hir.Add, hir.Bin(hir.Mul, hir.Name("a"), hir.Name("b")), hir.Name("c"))
	if !infer.HasChainedArith(abc) {
		t.Errorf("a*b+c is not chained")
	}
	if infer.HasChainedArith(hir.Bin(hir.Add, hir.Name("a"), hir.Name("b"))) {
		t.Errorf("a+b is chained")
	}
	if !infer.HasChainedArith(hir.CallTo("f", abc)) {
		t.Errorf("chain is not found in call arguments")
	}
	if got := infer.WrappedChainedArith(hir.CallTo("Ok", abc)); got != abc {
		t.Errorf("got %v but want the wrapped chain", got)
	}
	if got := infer.WrappedChainedArith(hir.CallTo("f", abc)); got != nil {
		t.Errorf("got %v but want nil", got)
	}
}

func TestFloorDiv(t *testing.T) {
	div := hir.Bin(hir.Add, hir.Int(1), hir.Bin(hir.FloorDiv, hir.Name("a"), hir.Name("b")))
	if !infer.ContainsFloorDiv(div) {
		t.Fatalf("floor division not found")
	}
	got, err := infer.FloorDivDivisor(div)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got.(*hir.Var); !ok || v.Name != "b" {
		t.Errorf("got divisor %v but want b", got)
	}
	if _, err := infer.FloorDivDivisor(hir.Name("a")); err == nil {
		t.Errorf("expected an error")
	}
	if infer.ContainsFloorDiv(hir.Bin(hir.Div, hir.Name("a"), hir.Name("b"))) {
		t.Errorf("true division reported as floor division")
	}
}

func TestDictPatterns(t *testing.T) {
	target := &hir.IndexTarget{X: hir.Name("d"), Index: hir.Name("k")}
	value := hir.Bin(hir.Add, &hir.Index{X: hir.Name("d"), Index: hir.Name("k")}, hir.Int(1))
	if !infer.IsDictAugAssignPattern(target, value) {
		t.Errorf("d[k] = d[k] + 1 not detected")
	}
	other := hir.Bin(hir.Add, &hir.Index{X: hir.Name("e"), Index: hir.Name("k")}, hir.Int(1))
	if infer.IsDictAugAssignPattern(target, other) {
		t.Errorf("d[k] = e[k] + 1 detected")
	}
	if !infer.IsDictIndexAccess(&hir.Index{X: hir.Name("x"), Index: hir.Str("key")}) {
		t.Errorf("string subscript is not a dict access")
	}
	if !infer.IsDictIndexAccess(&hir.Index{X: hir.Name("app_config"), Index: hir.Name("k")}) {
		t.Errorf("config subscript is not a dict access")
	}
	if infer.IsDictIndexAccess(&hir.Index{X: hir.Name("xs"), Index: hir.Int(0)}) {
		t.Errorf("list subscript is a dict access")
	}
	if !infer.IsDictWithValueType(types.DictOf(types.StringType(), types.CustomOf("serde_json::Value"))) {
		t.Errorf("JSON valued dict not detected")
	}
	if infer.IsDictWithValueType(types.DictOf(types.StringType(), types.IntType())) {
		t.Errorf("int valued dict detected")
	}
}

func TestHandlers(t *testing.T) {
	exit := []hir.Stmt{
		&hir.ExprStmt{X: hir.CallTo("print", hir.Str("bye"))},
		&hir.ExprStmt{X: hir.MCall(hir.Name("sys"), "exit", hir.Int(1))},
	}
	if !infer.HandlerEndsWithExit(exit) {
		t.Errorf("handler exit not detected")
	}
	raise := []hir.Stmt{&hir.Raise{Exc: hir.CallTo("ValueError")}}
	if !infer.HandlerContainsRaise(raise) || infer.HandlerContainsRaise(exit) {
		t.Errorf("handler raise detection failed")
	}
}

func TestPascalCase(t *testing.T) {
	got := []string{infer.PascalCase("value_error"), infer.PascalCase("my-type"), infer.PascalCase("x")}
	want := []string{"ValueError", "MyType", "X"}
	if !cmp.Equal(got, want) {
		t.Errorf("got:\n%v\nwant:\n%v\ndiff:\n%s", got, want, cmp.Diff(got, want))
	}
}

func TestTypeOf(t *testing.T) {
	ctx := newContext(false, map[string]types.Type{
		"n":  types.IntType(),
		"s":  types.StringType(),
		"xs": types.ListOf(types.IntType()),
		"d":  types.DictOf(types.StringType(), types.FloatType()),
		"p":  types.TupleOf(types.IntType(), types.StringType()),
	})
	tests := []struct {
		x    hir.Expr
		want string
	}{
		{x: hir.Bin(hir.Add, hir.Name("n"), hir.Int(1)), want: "i32"},
		{x: hir.Bin(hir.Div, hir.Name("n"), hir.Int(2)), want: "f64"},
		{x: hir.Bin(hir.Add, hir.Name("n"), hir.Float(2)), want: "f64"},
		{x: hir.Bin(hir.Add, hir.Name("s"), hir.Str("!")), want: "String"},
		{x: hir.Bin(hir.Lt, hir.Name("n"), hir.Int(2)), want: "bool"},
		{x: hir.MCall(hir.Name("d"), "get", hir.Str("k")), want: "Option<f64>"},
		{x: hir.MCall(hir.Name("d"), "get", hir.Str("k"), hir.Float(0)), want: "f64"},
		{x: hir.MCall(hir.Name("s"), "split", hir.Str(",")), want: "Vec<String>"},
		{x: hir.MCall(hir.Name("s"), "upper"), want: "String"},
		{x: &hir.Index{X: hir.Name("xs"), Index: hir.Int(0)}, want: "i32"},
		{x: &hir.Index{X: hir.Name("p"), Index: hir.Int(1)}, want: "String"},
		{x: &hir.ListLit{Elts: []hir.Expr{hir.Int(1), hir.Float(2)}}, want: "Vec<f64>"},
		{x: &hir.DictLit{Keys: []hir.Expr{hir.Str("a")}, Values: []hir.Expr{hir.Int(1)}}, want: "HashMap<String, i32>"},
		{x: hir.CallTo("len", hir.Name("xs")), want: "i32"},
		{x: hir.CallTo("Point"), want: "Point"},
		{x: hir.CallTo("ratio"), want: "f64"},
		{x: &hir.IfExp{Cond: hir.Bool(true), Then: hir.Int(1), Else: hir.None()}, want: "Option<i32>"},
		{x: hir.Name("unknown"), want: types.DVName},
		{x: hir.Bin(hir.Pow, hir.Name("n"), hir.Int(2)), want: "i32"},
		{x: hir.Bin(hir.Pow, hir.Name("n"), hir.Int(-1)), want: "f64"},
		{x: hir.Bin(hir.Pow, hir.Name("n"), hir.Name("n")), want: "f64"},
		{x: hir.MCall(hir.MCall(hir.Name("xs"), "iter"), "count"), want: "i32"},
		{x: hir.MCall(hir.MCall(hir.Name("xs"), "iter"), "sum"), want: "i32"},
	}
	for i, test := range tests {
		got := types.RustString(infer.TypeOf(ctx, test.x))
		if got != test.want {
			t.Errorf("test %d: got %s but want %s", i, got, test.want)
		}
	}
}

func TestClassify(t *testing.T) {
	ctx := newContext(false, map[string]types.Type{
		"s":      types.StringType(),
		"xs":     types.ListOf(types.IntType()),
		"seen":   types.SetOf(types.IntType()),
		"config": types.ListOf(types.IntType()),
	})
	if !infer.IsDictExpr(ctx, hir.Name("settings")) {
		t.Errorf("settings is not a dict")
	}
	if infer.IsDictExpr(ctx, hir.Name("config")) {
		t.Errorf("config is a dict despite its declared list type")
	}
	if !infer.IsListExpr(ctx, hir.Name("xs")) || infer.IsListExpr(ctx, hir.Name("s")) {
		t.Errorf("list classification failed")
	}
	if !infer.IsSetExpr(ctx, hir.Name("seen")) || !infer.IsSetExpr(ctx, hir.CallTo("set")) {
		t.Errorf("set classification failed")
	}
	if !infer.IsStringExpr(ctx, hir.MCall(hir.Name("s"), "strip")) {
		t.Errorf("s.strip() is not a string")
	}
	if !infer.IsStringExpr(ctx, hir.MCall(hir.Str(","), "join", hir.Name("xs"))) {
		t.Errorf("join is not a string")
	}
	if !infer.IsOptionExpr(ctx, hir.MCall(hir.Name("settings"), "get", hir.Str("k"))) {
		t.Errorf("settings.get(k) is not an option")
	}
}

func TestProducesDV(t *testing.T) {
	vars := map[string]types.Type{
		"cfg": types.DictOf(types.StringType(), types.UnknownType()),
		"x":   types.CustomOf("Any"),
		"n":   types.IntType(),
	}
	nasa := newContext(true, vars)
	tests := []struct {
		x    hir.Expr
		want bool
	}{
		{x: &hir.Index{X: hir.Name("cfg"), Index: hir.Str("k")}, want: true},
		{x: hir.Name("x"), want: true},
		{x: hir.Name("n"), want: false},
		{x: hir.Bin(hir.Add, hir.Name("x"), hir.Name("n")), want: true},
		{x: hir.Bin(hir.Add, hir.Name("n"), hir.Name("x")), want: false},
		{x: hir.Bin(hir.Eq, hir.Name("x"), hir.Name("n")), want: false},
		{x: hir.CallTo("load"), want: true},
		{x: hir.CallTo("pair"), want: false},
	}
	for i, test := range tests {
		if got := infer.ProducesDV(nasa, test.x); got != test.want {
			t.Errorf("test %d: got %v but want %v", i, got, test.want)
		}
	}
	if infer.ProducesDV(newContext(false, vars), hir.Name("x")) {
		t.Errorf("DV produced outside of NASA mode")
	}
	if !infer.IsNativeDVTuple(nasa, hir.CallTo("pair")) {
		t.Errorf("pair() is not a native DV tuple")
	}
}

func TestDVExtraction(t *testing.T) {
	got, ok := infer.DVExtraction(types.IntType())
	want := infer.Extraction{Method: "to_i64", Cast: "i32"}
	if !ok || got != want {
		t.Errorf("got %v but want %v", got, want)
	}
	if _, ok := infer.DVExtraction(types.ListOf(types.IntType())); ok {
		t.Errorf("list has an extraction")
	}
}

func TestPredicatesArePure(t *testing.T) {
	ctx := newContext(false, map[string]types.Type{"n": types.IntType()})
	before := ctx.Snapshot()
	x := hir.Bin(hir.Add, hir.Name("arr"), hir.Name("n"))
	infer.TypeOf(ctx, x)
	infer.IsNumpyValue(ctx, x)
	infer.IsDictExpr(ctx, hir.Name("config"))
	after := ctx.Snapshot()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("context changed:\n%s", diff)
	}
}
