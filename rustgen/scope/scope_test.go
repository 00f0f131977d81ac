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

package scope_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/rustgen/scope"
)

func sorted(names []string) []string {
	out := append([]string{}, names...)
	sort.Strings(out)
	return out
}

func unique(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return sorted(out)
}

func TestCollectVarsInExpr(t *testing.T) {
	tests := []struct {
		x    hir.Expr
		want []string
	}{
		{
			x:    hir.Bin(hir.Add, hir.Name("a"), hir.MCall(hir.Name("b"), "f", hir.Name("a"))),
			want: []string{"a", "b"},
		},
		{
			x:    &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Mul, hir.Name("x"), hir.Name("k"))},
			want: []string{"k"},
		},
		{
			x: &hir.ListComp{
				Elt: hir.Bin(hir.Mul, hir.Name("x"), hir.Name("x")),
				Clauses: []*hir.Clause{{
					Target: hir.Sym("x"),
					Iter:   hir.Name("xs"),
					Conds:  []hir.Expr{hir.Bin(hir.Gt, hir.Name("x"), hir.Name("lo"))},
				}},
			},
			want: []string{"xs", "lo"},
		},
		{
			x:    &hir.NamedExpr{Target: "n", Value: hir.CallTo("len", hir.Name("s"))},
			want: []string{"s", "n"},
		},
	}
	for i, test := range tests {
		got := scope.CollectVarsInExpr(test.x)
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: got:\n%v\nwant:\n%v\ndiff:\n%s", i, got, test.want, cmp.Diff(got, test.want))
		}
	}
}

func TestExtractWalrusFromCondition(t *testing.T) {
	conds := []hir.Expr{
		&hir.NamedExpr{Target: "chunk", Value: hir.MCall(hir.Name("f"), "read", hir.Int(1024))},
		hir.Bin(hir.And,
			&hir.NamedExpr{Target: "n", Value: hir.CallTo("len", hir.Name("xs"))},
			hir.Bin(hir.Gt, hir.Name("n"), hir.Name("limit")),
		),
		hir.Bin(hir.Gt,
			&hir.NamedExpr{Target: "a", Value: hir.Bin(hir.Add,
				&hir.NamedExpr{Target: "b", Value: hir.Name("c")},
				hir.Int(1),
			)},
			hir.Int(0),
		),
		hir.Bin(hir.Lt, hir.Name("i"), hir.Name("n")),
	}
	for i, cond := range conds {
		bindings, simplified := scope.ExtractWalrusFromCondition(cond)
		if scope.ContainsWalrus(simplified) {
			t.Errorf("test %d: simplified condition contains a named expression", i)
		}
		var got []string
		for _, b := range bindings {
			got = append(got, scope.CollectVarsInExpr(b.Value)...)
		}
		got = append(got, scope.CollectVarsInExpr(simplified)...)
		want := unique(scope.CollectVarsInExpr(cond))
		if diff := cmp.Diff(unique(got), want); diff != "" {
			t.Errorf("test %d: free variables differ:\n%s", i, diff)
		}
		if !scope.ContainsWalrus(cond) && len(bindings) > 0 {
			t.Errorf("test %d: bindings extracted from a condition without named expression", i)
		}
	}
	// Nested named expressions are hoisted innermost first.
	bindings, _ := scope.ExtractWalrusFromCondition(conds[2])
	var names []string
	for _, b := range bindings {
		names = append(names, b.Name)
	}
	if want := []string{"b", "a"}; !cmp.Equal(names, want) {
		t.Errorf("got bindings %v but want %v", names, want)
	}
	// The input is not modified.
	if !scope.ContainsWalrus(conds[0]) {
		t.Errorf("input condition has been modified")
	}
}

func TestForTargetIsAssigned(t *testing.T) {
	loops := []*hir.For{
		{Target: hir.Sym("x"), Iter: hir.Name("xs")},
		{
			Target: &hir.TupleTarget{Elts: []hir.Target{hir.Sym("k"), hir.Sym("v")}},
			Iter:   hir.MCall(hir.Name("d"), "items"),
			Body:   []hir.Stmt{hir.AssignTo("total", hir.Name("v"))},
		},
	}
	for i, loop := range loops {
		assigned := scope.ExtractAssignedSymbols([]hir.Stmt{loop})
		for _, name := range scope.TargetNames(loop.Target) {
			if !scope.IsVarReassignedInStmt(name, loop) {
				t.Errorf("test %d: loop variable %s is not assigned in %v", i, name, assigned)
			}
		}
	}
}

func TestExtractAssignedSymbols(t *testing.T) {
	body := []hir.Stmt{
		hir.AssignTo("a", hir.Int(1)),
		&hir.If{
			Cond: hir.Name("c"),
			Body: []hir.Stmt{hir.AssignTo("b", hir.Int(2))},
			Else: []hir.Stmt{&hir.AugAssign{Target: hir.Sym("a"), Op: hir.Add, Value: hir.Int(1)}},
		},
		&hir.While{
			Cond: &hir.NamedExpr{Target: "line", Value: hir.MCall(hir.Name("f"), "readline")},
			Body: []hir.Stmt{hir.AssignTo("inner", hir.Name("line"))},
		},
		&hir.Try{
			Body:     []hir.Stmt{hir.AssignTo("r", hir.CallTo("g"))},
			Handlers: []*hir.ExceptHandler{{Type: "ValueError", Name: "e"}},
		},
		&hir.FuncDef{Name: "h", Body: []hir.Stmt{hir.AssignTo("hidden", hir.Int(0))}},
	}
	got := scope.ExtractAssignedSymbols(body)
	want := []string{"a", "b", "line", "inner", "r", "e"}
	if !cmp.Equal(got, want) {
		t.Errorf("got:\n%v\nwant:\n%v\ndiff:\n%s", got, want, cmp.Diff(got, want))
	}
	got = scope.ExtractToplevelAssignedSymbols(body)
	want = []string{"a", "b", "r"}
	if !cmp.Equal(got, want) {
		t.Errorf("toplevel: got:\n%v\nwant:\n%v\ndiff:\n%s", got, want, cmp.Diff(got, want))
	}
}

func TestHoistedSymbols(t *testing.T) {
	ifStmt := &hir.If{
		Cond: hir.Name("verbose"),
		Body: []hir.Stmt{hir.AssignTo("out", hir.CallTo("open", hir.Str("log"), hir.Str("w"))), hir.AssignTo("tmp", hir.Int(1))},
		Else: []hir.Stmt{hir.AssignTo("out", &hir.Attr{X: hir.Name("sys"), Name: "stdout"})},
	}
	rest := []hir.Stmt{&hir.ExprStmt{X: hir.MCall(hir.Name("out"), "write", hir.Str("x"))}}
	got := scope.HoistedSymbols(ifStmt, rest)
	if want := []string{"out"}; !cmp.Equal(got, want) {
		t.Errorf("got %v but want %v", got, want)
	}
	if !scope.NeedsBoxedDynWrite("out", ifStmt.Body, ifStmt.Else) {
		t.Errorf("boxed writer not detected")
	}
	if scope.NeedsBoxedDynWrite("tmp", ifStmt.Body, ifStmt.Else) {
		t.Errorf("boxed writer detected for a variable assigned in one branch")
	}
}

func TestUsage(t *testing.T) {
	body := []hir.Stmt{
		&hir.If{
			Cond: hir.Bin(hir.In, hir.Name("k"), hir.Name("d")),
			Body: []hir.Stmt{&hir.ExprStmt{X: hir.CallTo("f", hir.Name("x"))}},
		},
		&hir.Return{Value: hir.Bin(hir.Lt, hir.Name("y"), hir.Int(3))},
	}
	if !scope.IsVarUsedAsDictKey("k", body) || scope.IsVarUsedAsDictKey("x", body) {
		t.Errorf("dictionary key detection failed")
	}
	if !scope.IsVarUsedAsFuncArg("x", body) || scope.IsVarUsedAsFuncArg("k", body) {
		t.Errorf("function argument detection failed")
	}
	if !scope.IsVarInComparison("y", body) || scope.IsVarInComparison("x", body) {
		t.Errorf("comparison detection failed")
	}
	if !scope.IsVarUsedInStmts("d", body) || scope.IsVarUsedInStmts("z", body) {
		t.Errorf("usage detection failed")
	}
	shadow := &hir.FuncDef{Name: "g", Params: []*hir.Param{{Name: "x"}}, Body: []hir.Stmt{&hir.Return{Value: hir.Name("x")}}}
	if scope.IsVarUsedInStmt("x", shadow) {
		t.Errorf("parameter reported as a free variable")
	}
	if got := scope.CountVarRefs("a", &hir.TupleLit{Elts: []hir.Expr{hir.Name("a"), hir.Name("a")}}); got != 2 {
		t.Errorf("got %d references but want 2", got)
	}
}

func TestIsVarMutated(t *testing.T) {
	body := []hir.Stmt{
		&hir.ExprStmt{X: hir.MCall(hir.Name("xs"), "append", hir.Int(1))},
		&hir.Assign{Target: &hir.IndexTarget{X: hir.Name("d"), Index: hir.Str("k")}, Value: hir.Int(1)},
		&hir.ExprStmt{X: hir.MCall(hir.Name("s"), "upper")},
	}
	for _, name := range []string{"xs", "d"} {
		if !scope.IsVarMutated(name, body) {
			t.Errorf("%s is not mutated", name)
		}
	}
	if scope.IsVarMutated("s", body) {
		t.Errorf("s is mutated")
	}
}

func TestIsMethodCalledOn(t *testing.T) {
	body := []hir.Stmt{
		&hir.While{
			Cond: &hir.NamedExpr{Target: "line", Value: hir.MCall(hir.Name("f"), "readline")},
			Body: []hir.Stmt{&hir.ExprStmt{X: hir.MCall(hir.Name("out"), "write", hir.Name("line"))}},
		},
	}
	if !scope.IsMethodCalledOn("f", body, "readline", "readlines") {
		t.Errorf("readline is not called on f")
	}
	if scope.IsMethodCalledOn("out", body, "readline", "readlines") {
		t.Errorf("readline is called on out")
	}
}

func TestControlFlow(t *testing.T) {
	body := []hir.Stmt{
		&hir.For{Target: hir.Sym("x"), Iter: hir.Name("xs"), Body: []hir.Stmt{&hir.Continue{}}},
		&hir.FuncDef{Name: "g", Body: []hir.Stmt{&hir.ExprStmt{X: &hir.Yield{X: hir.Int(1)}}}},
	}
	if scope.ContainsContinue(body) {
		t.Errorf("continue of a nested loop reported")
	}
	if scope.ContainsYield(body) {
		t.Errorf("yield of a nested function reported")
	}
	body = append(body, &hir.If{Cond: hir.Name("c"), Body: []hir.Stmt{&hir.Continue{}}})
	if !scope.ContainsContinue(body) {
		t.Errorf("continue not found")
	}
	if !scope.ContainsAwait([]hir.Stmt{&hir.Return{Value: &hir.Await{X: hir.CallTo("f")}}}) {
		t.Errorf("await not found")
	}
}

func TestIsNestedFunctionRecursive(t *testing.T) {
	fact := &hir.FuncDef{
		Name:   "fact",
		Params: []*hir.Param{{Name: "n"}},
		Body: []hir.Stmt{&hir.Return{Value: hir.Bin(hir.Mul, hir.Name("n"),
			hir.CallTo("fact", hir.Bin(hir.Sub, hir.Name("n"), hir.Int(1))))}},
	}
	if !scope.IsNestedFunctionRecursive(fact) {
		t.Errorf("fact is not recursive")
	}
	inc := &hir.FuncDef{Name: "inc", Body: []hir.Stmt{&hir.Return{Value: hir.CallTo("fact", hir.Int(1))}}}
	if scope.IsNestedFunctionRecursive(inc) {
		t.Errorf("inc is recursive")
	}
}

func TestFindVarPositionInTuple(t *testing.T) {
	target := &hir.TupleTarget{Elts: []hir.Target{hir.Sym("a"), hir.Sym("b")}}
	if pos, ok := scope.FindVarPositionInTuple("b", target); !ok || pos != 1 {
		t.Errorf("got %d, %v but want 1, true", pos, ok)
	}
	if _, ok := scope.FindVarPositionInTuple("c", target); ok {
		t.Errorf("c found in tuple")
	}
}
