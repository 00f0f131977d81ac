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

package module_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/module"
)

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

func transpile(t *testing.T, m *hir.Module, opts *options.Options) string {
	t.Helper()
	res, err := module.Transpile(m, opts)
	if err != nil {
		t.Fatalf("cannot translate module %s: %+v", m.Name, err)
	}
	return res.Source()
}

func intParam(name string) *hir.Param {
	return &hir.Param{Name: name, Type: types.IntType()}
}

func add() *hir.FuncDef {
	return &hir.FuncDef{
		Name:   "add",
		Params: []*hir.Param{intParam("a"), intParam("b")},
		Ret:    types.IntType(),
		Body:   []hir.Stmt{&hir.Return{Value: hir.Bin(hir.Add, hir.Name("a"), hir.Name("b"))}},
		Doc:    "Adds two numbers.",
	}
}

// untyped returns a function whose parameter needs a dynamic value.
func untyped() *hir.FuncDef {
	return &hir.FuncDef{
		Name:   "identity",
		Params: []*hir.Param{{Name: "x"}},
		Body:   []hir.Stmt{&hir.Return{Value: hir.Name("x")}},
	}
}

func TestFunction(t *testing.T) {
	got := transpile(t, &hir.Module{Name: "arith", Funcs: []*hir.FuncDef{add()}}, nil)
	checkContains(t, got,
		"/// Adds two numbers.",
		"pub fn add(a: i32, b: i32) -> i32 {",
		"return a + b;",
	)
	checkExcludes(t, got, "enum DynValue", "does not panic")
}

func TestPanicFreeDoc(t *testing.T) {
	opts := options.Default()
	opts.PanicFree = true
	got := transpile(t, &hir.Module{Name: "arith", Funcs: []*hir.FuncDef{add()}}, opts)
	checkContains(t, got,
		"/// Adds two numbers.\n///\n/// This function does not panic.",
	)
}

func TestFacadeModes(t *testing.T) {
	t.Run("auto", func(t *testing.T) {
		got := transpile(t, &hir.Module{Name: "dyn", Funcs: []*hir.FuncDef{untyped()}}, nil)
		checkContains(t, got, "pub enum DynValue {", "pub fn identity(x: DynValue) -> DynValue {")
	})
	t.Run("auto without dynamic values", func(t *testing.T) {
		got := transpile(t, &hir.Module{Name: "arith", Funcs: []*hir.FuncDef{add()}}, nil)
		checkExcludes(t, got, "pub enum DynValue {")
	})
	t.Run("always", func(t *testing.T) {
		opts := options.Default()
		opts.EmitDVFacade = options.FacadeAlways
		got := transpile(t, &hir.Module{Name: "arith", Funcs: []*hir.FuncDef{add()}}, opts)
		checkContains(t, got, "pub enum DynValue {")
	})
	t.Run("never", func(t *testing.T) {
		opts := options.Default()
		opts.EmitDVFacade = options.FacadeNever
		res, err := module.Transpile(&hir.Module{Name: "dyn", Funcs: []*hir.FuncDef{untyped()}}, opts)
		if cat, _ := fmterr.CategoryOf(err); cat != fmterr.Unsupported {
			t.Fatalf("got error %v but want an unsupported construct", err)
		}
		if res == nil {
			t.Fatal("no partial result")
		}
		checkExcludes(t, res.Source(), "pub enum DynValue {")
	})
}

func TestSkipUnsupportedFunction(t *testing.T) {
	broken := &hir.FuncDef{
		Name: "broken",
		Ret:  types.NoneType(),
		Body: []hir.Stmt{&hir.ClassDef{Name: "Local"}},
	}
	res, err := module.Transpile(&hir.Module{Name: "mixed", Funcs: []*hir.FuncDef{broken, add()}}, nil)
	if cat, _ := fmterr.CategoryOf(err); cat != fmterr.Unsupported {
		t.Fatalf("got error %v but want an unsupported construct", err)
	}
	got := res.Source()
	checkContains(t, got, "pub fn add(")
	checkExcludes(t, got, "fn broken(")
}

func TestResultFunction(t *testing.T) {
	check := &hir.FuncDef{
		Name:   "check",
		Params: []*hir.Param{intParam("x")},
		Ret:    types.NoneType(),
		Body: []hir.Stmt{&hir.If{
			Cond: hir.Bin(hir.Lt, hir.Name("x"), hir.Int(0)),
			Body: []hir.Stmt{&hir.Raise{Exc: hir.CallTo("ValueError", hir.Str("negative"))}},
		}},
	}
	got := transpile(t, &hir.Module{Name: "checks", Funcs: []*hir.FuncDef{check}}, nil)
	checkContains(t, got,
		"#[derive(Debug, Clone)]\npub struct ValueError {",
		"impl std::error::Error for ValueError {}",
		`write!(f, "ValueError: {}", self.message)`,
		"pub fn check(x: i32) -> Result<(), Box<dyn std::error::Error>> {",
		`return Err(Box::new(ValueError::new("negative")));`,
		"Ok(())",
	)
}

func TestTryReturnsValue(t *testing.T) {
	tryIt := &hir.FuncDef{
		Name:   "try_it",
		Params: []*hir.Param{{Name: "s", Type: types.StringType()}},
		Ret:    types.IntType(),
		Body: []hir.Stmt{&hir.Try{
			Body: []hir.Stmt{&hir.Return{Value: hir.CallTo("int", hir.Name("s"))}},
			Handlers: []*hir.ExceptHandler{{
				Type: "ValueError",
				Body: []hir.Stmt{&hir.Return{Value: hir.Int(-1)}},
			}},
		}},
	}
	got := transpile(t, &hir.Module{Name: "parse", Funcs: []*hir.FuncDef{tryIt}}, nil)
	checkContains(t, got,
		"pub fn try_it(s: &str) -> i32 {",
		"Ok(None) => unreachable!()",
		"return -1;",
	)
	checkExcludes(t, got, "Ok(None) => {")
}

func TestErrorClass(t *testing.T) {
	m := &hir.Module{
		Name:    "errs",
		Classes: []*hir.ClassDef{{Name: "ConfigError", Bases: []string{"Exception"}}},
		Funcs: []*hir.FuncDef{{
			Name: "fail",
			Ret:  types.NoneType(),
			Body: []hir.Stmt{&hir.Raise{Exc: hir.CallTo("ConfigError", hir.Str("missing key"))}},
		}},
	}
	got := transpile(t, m, nil)
	checkContains(t, got,
		"pub struct ConfigError {",
		"impl std::error::Error for ConfigError {}",
		`return Err(Box::new(ConfigError::new("missing key")));`,
	)
	checkExcludes(t, got, "#[derive(Debug, Clone, Default)]\npub struct ConfigError")
}

func counter() *hir.ClassDef {
	self := hir.Name("self")
	count := &hir.Attr{X: self, Name: "count"}
	return &hir.ClassDef{
		Name: "Counter",
		Doc:  "Counts events.",
		Methods: []*hir.FuncDef{
			{
				Name:   "__init__",
				Params: []*hir.Param{{Name: "self"}, intParam("start")},
				Body: []hir.Stmt{&hir.Assign{
					Target: &hir.AttrTarget{X: self, Name: "count"},
					Value:  hir.Name("start"),
				}},
			},
			{
				Name:   "incr",
				Params: []*hir.Param{{Name: "self"}},
				Ret:    types.NoneType(),
				Body: []hir.Stmt{&hir.AugAssign{
					Target: &hir.AttrTarget{X: self, Name: "count"},
					Op:     hir.Add,
					Value:  hir.Int(1),
				}},
			},
			{
				Name:   "get",
				Params: []*hir.Param{{Name: "self"}},
				Ret:    types.IntType(),
				Body:   []hir.Stmt{&hir.Return{Value: count}},
			},
		},
	}
}

func TestClass(t *testing.T) {
	got := transpile(t, &hir.Module{Name: "counters", Classes: []*hir.ClassDef{counter()}}, nil)
	checkContains(t, got,
		"/// Counts events.\n#[derive(Debug, Clone, Default)]\npub struct Counter {",
		"count: i32,",
		"impl Counter {",
		"pub fn new(start: i32) -> Self {",
		"let mut obj = Self::default();",
		"obj.init(start);",
		"fn init(&mut self, start: i32) {",
		"self.count = start;",
		"pub fn incr(&mut self) {",
		"pub fn get(&self) -> i32 {",
	)
}

func TestGenerator(t *testing.T) {
	countUp := &hir.FuncDef{
		Name:   "count_up",
		Params: []*hir.Param{intParam("n")},
		Body: []hir.Stmt{&hir.For{
			Target: hir.Sym("i"),
			Iter:   hir.CallTo("range", hir.Name("n")),
			Body:   []hir.Stmt{&hir.ExprStmt{X: &hir.Yield{X: hir.Name("i")}}},
		}},
	}
	got := transpile(t, &hir.Module{Name: "gen", Funcs: []*hir.FuncDef{countUp}}, nil)
	checkContains(t, got,
		"use std::collections::VecDeque;",
		"pub struct CountUpGenerator {",
		"started: bool,",
		"buffer: VecDeque<i32>,",
		"impl Iterator for CountUpGenerator {",
		"type Item = i32;",
		"fn next(&mut self) -> Option<Self::Item> {",
		"self.buffer = count_up_body(self.n.clone()).into();",
		"self.buffer.pop_front()",
		"pub fn count_up(n: i32) -> CountUpGenerator {",
		"fn count_up_body(n: i32) -> Vec<i32> {",
		"let mut _yielded: Vec<i32> = Vec::new();",
		"_yielded.push(i);",
	)
}

func TestConstants(t *testing.T) {
	m := &hir.Module{
		Name: "consts",
		Constants: []*hir.Assign{
			hir.AssignTo("LIMIT", hir.Int(10)),
			hir.AssignTo("GREETING", hir.Str("hello")),
			hir.AssignTo("PRIMES", &hir.ListLit{Elts: []hir.Expr{hir.Int(2), hir.Int(3)}}),
		},
	}
	got := transpile(t, m, nil)
	checkContains(t, got,
		"pub const LIMIT: i32 = 10;",
		`pub const GREETING: &str = "hello";`,
		"static PRIMES: std::sync::LazyLock<Vec<i32>> = std::sync::LazyLock::new(|| vec![2, 3]);",
	)
	t.Run("old toolchain", func(t *testing.T) {
		opts := options.Default()
		opts.RustVersion = "1.70"
		_, err := module.Transpile(m, opts)
		if cat, _ := fmterr.CategoryOf(err); cat != fmterr.Unsupported {
			t.Errorf("got error %v but want an unsupported construct", err)
		}
	})
}

func TestTranspileAll(t *testing.T) {
	names := []string{"first", "second", "third"}
	var modules []*hir.Module
	for _, name := range names {
		modules = append(modules, &hir.Module{Name: name, Funcs: []*hir.FuncDef{add()}})
	}
	results, err := module.TranspileAll(context.Background(), modules, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var got []string
	for _, res := range results {
		got = append(got, res.Name)
	}
	if diff := cmp.Diff(names, got); diff != "" {
		t.Errorf("unexpected module order:\n%s", diff)
	}
}

func TestInvalidOptions(t *testing.T) {
	opts := options.Default()
	opts.TargetEdition = "1999"
	if _, err := module.Transpile(&hir.Module{Name: "m"}, opts); err == nil {
		t.Error("no error with an invalid target edition")
	}
}
