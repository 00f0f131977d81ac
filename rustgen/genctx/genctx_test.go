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

package genctx_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/api/trace"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
)

func newContext(opts *options.Options) *genctx.Context {
	reg := genctx.NewRegistry()
	reg.Constants.Store("LIMIT", types.IntType())
	reg.Funcs.Store("load", &genctx.FuncSig{Name: "load", Ret: types.StringType(), Result: true})
	point := genctx.NewClass("Point")
	point.Fields.Store("x", types.FloatType())
	reg.Classes.Store("Point", point)
	return genctx.New(opts, reg)
}

func TestFunctionLifecycle(t *testing.T) {
	ctx := newContext(nil)
	ctx.EnterFunction(&genctx.FuncSig{
		Name:       "f",
		ParamNames: []string{"s", "n"},
		Params:     []types.Type{types.StringType(), types.IntType()},
		Ret:        types.NoneType(),
		Generator:  true,
	})
	if !ctx.IsStrParam("s") {
		t.Errorf("s is not a borrowed string parameter")
	}
	if ctx.IsStrParam("n") {
		t.Errorf("n is a borrowed string parameter")
	}
	ctx.MarkMutable("s")
	if ctx.IsStrParam("s") {
		t.Errorf("s is still borrowed after being marked mutable")
	}
	ctx.MarkNumpy("a")
	ctx.AddGeneratorStateVar("i", types.IntType())
	if !ctx.Flag(genctx.InGenerator) {
		t.Errorf("generator flag not set")
	}
	ctx.ExitFunction()
	if _, ok := ctx.LookupVar("s"); ok {
		t.Errorf("variable s survived the end of the function")
	}
	if ctx.IsNumpyVar("a") || ctx.IsMutable("s") || ctx.Flag(genctx.InGenerator) {
		t.Errorf("function state not cleared: %+v", ctx.Snapshot())
	}
	if ctx.GeneratorStateVars().Size() != 0 {
		t.Errorf("generator state variables not cleared")
	}
	if typ, ok := ctx.LookupVar("LIMIT"); !ok || typ != types.IntType() {
		t.Errorf("module constant LIMIT not found")
	}
}

func TestBindVarIsMonotonic(t *testing.T) {
	ctx := newContext(nil)
	ctx.BindVar("x", types.IntType())
	ctx.BindVar("x", types.UnknownType())
	if typ, _ := ctx.LookupVar("x"); typ != types.IntType() {
		t.Errorf("known type replaced by %s", typ)
	}
	ctx.BindVar("y", types.UnknownType())
	ctx.BindVar("y", types.FloatType())
	if typ, _ := ctx.LookupVar("y"); typ != types.FloatType() {
		t.Errorf("unknown type not refined: %s", typ)
	}
}

func TestRegistryLookups(t *testing.T) {
	ctx := newContext(&options.Options{ResultReturnFunctions: []string{"parse"}, TargetEdition: "2021", RustVersion: "v1.80.0"})
	if !ctx.IsResultReturning("parse") || !ctx.IsResultReturning("load") {
		t.Errorf("result returning functions not registered")
	}
	if ctx.IsResultReturning("f") {
		t.Errorf("f registered as returning a result")
	}
	if !ctx.IsClass("Point") {
		t.Errorf("Point is not a class")
	}
	if _, ok := ctx.ClassFieldType("x"); ok {
		t.Errorf("class field available outside of a class")
	}
	point, _ := ctx.Registry().Class("Point")
	ctx.EnterClass(point)
	if typ, ok := ctx.ClassFieldType("x"); !ok || typ != types.FloatType() {
		t.Errorf("class field x not found")
	}
	ctx.ExitClass()
	if ret, _ := ctx.FunctionReturnType("load"); ret != types.StringType() {
		t.Errorf("got return type %v for load", ret)
	}
}

func TestScopes(t *testing.T) {
	ctx := newContext(nil)
	ctx.Declare("a")
	ctx.PushScope()
	ctx.Declare("b")
	if !ctx.IsDeclared("a") || !ctx.IsDeclared("b") {
		t.Errorf("declared variables not found")
	}
	ctx.PopScope()
	if ctx.IsDeclared("b") {
		t.Errorf("b visible outside of its scope")
	}
	tmp := ctx.TempName()
	if tmp == ctx.TempName() {
		t.Errorf("temporary names are not unique")
	}
}

func TestRequirements(t *testing.T) {
	ctx := newContext(nil)
	ctx.Require("serde_json")
	ctx.Require("regex")
	ctx.Require("serde_json")
	if diff := cmp.Diff(ctx.Dependencies(), []string{"regex", "serde_json"}); diff != "" {
		t.Errorf("unexpected dependencies:\n%s", diff)
	}
	if !ctx.Flag(genctx.NeedsSerdeJSON) || !ctx.Flag(genctx.NeedsRegex) {
		t.Errorf("requirement flags not set")
	}
	ctx.RequireErrorType("ValueError")
	ctx.RequireErrorType("KeyError")
	ctx.RequireErrorType("ValueError")
	if diff := cmp.Diff(ctx.ErrorTypes(), []string{"ValueError", "KeyError"}); diff != "" {
		t.Errorf("unexpected error types:\n%s", diff)
	}
}

func TestDiagnostics(t *testing.T) {
	rec := &trace.Recorder{}
	opts := options.Default()
	opts.Trace = rec
	ctx := newContext(opts)
	typ, err := ctx.MapAnnotation(fmterr.Span{Line: 2}, "List[")
	if err != nil {
		t.Fatalf("non strict context returned an error: %v", err)
	}
	if typ != types.UnknownType() {
		t.Errorf("got type %s but want unknown", typ)
	}
	if got := len(ctx.Warnings()); got != 1 {
		t.Errorf("got %d warnings but want 1", got)
	}
	ctx.Trace(fmterr.Span{}, "arr", "numpy-name", "")
	if diff := cmp.Diff(rec.Rules(), []string{"numpy-name"}); diff != "" {
		t.Errorf("unexpected trace:\n%s", diff)
	}

	opts = options.Default()
	opts.Strict = true
	ctx = newContext(opts)
	if _, err := ctx.MapAnnotation(fmterr.Span{Line: 2}, "List["); err == nil {
		t.Errorf("strict context did not return an error")
	}
}

func TestSnapshot(t *testing.T) {
	opts := options.Default()
	opts.NasaMode = true
	ctx := newContext(opts)
	ctx.BindVar("x", types.ListOf(types.IntType()))
	ctx.MarkNumpy("a")
	got := ctx.Snapshot()
	want := genctx.State{
		VarTypes: map[string]string{"x": "List[int]"},
		Numpy:    []string{"a"},
		Flags:    []string{"nasa_mode"},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("unexpected snapshot:\n%s", diff)
	}
}
