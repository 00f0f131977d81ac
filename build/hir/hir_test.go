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

package hir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
)

func varNames(n hir.Node) []string {
	var names []string
	hir.Inspect(n, func(n hir.Node) bool {
		if v, ok := n.(*hir.Var); ok {
			names = append(names, v.Name)
		}
		return true
	})
	return names
}

func TestInspect(t *testing.T) {
	comp := &hir.ListComp{
		Elt: hir.Bin(hir.Mul, hir.Name("x"), hir.Name("x")),
		Clauses: []*hir.Clause{{
			Target: hir.Sym("x"),
			Iter:   hir.Name("xs"),
			Conds:  []hir.Expr{hir.Bin(hir.Gt, hir.Name("x"), hir.Int(0))},
		}},
	}
	got := varNames(&hir.Assign{Target: hir.Sym("ys"), Value: comp})
	want := []string{"xs", "x", "x", "x"}
	if !cmp.Equal(got, want) {
		t.Errorf("got:\n%v\nwant:\n%v\ndiff:\n%s", got, want, cmp.Diff(got, want))
	}
}

func TestInspectStmts(t *testing.T) {
	body := []hir.Stmt{
		&hir.If{
			Cond: hir.Name("c"),
			Body: []hir.Stmt{&hir.Return{Value: hir.Name("a")}},
			Else: []hir.Stmt{&hir.Try{
				Body:     []hir.Stmt{&hir.ExprStmt{X: hir.CallTo("f", hir.Name("b"))}},
				Handlers: []*hir.ExceptHandler{{Body: []hir.Stmt{&hir.Raise{Exc: hir.Name("e")}}}},
			}},
		},
	}
	var got []string
	hir.InspectStmts(body, func(n hir.Node) bool {
		if v, ok := n.(*hir.Var); ok {
			got = append(got, v.Name)
		}
		return true
	})
	want := []string{"c", "a", "b", "e"}
	if !cmp.Equal(got, want) {
		t.Errorf("got %v but want %v", got, want)
	}
}

func TestMapExprCopies(t *testing.T) {
	orig := hir.Bin(hir.Add, hir.Name("a"), hir.MCall(hir.Name("b"), "get", hir.Str("k")))
	renamed := hir.MapExpr(orig, func(x hir.Expr) hir.Expr {
		if v, ok := x.(*hir.Var); ok && v.Name == "a" {
			return hir.Name("z")
		}
		return x
	})
	if got := varNames(orig); !cmp.Equal(got, []string{"a", "b"}) {
		t.Errorf("original tree modified: %v", got)
	}
	if got := varNames(renamed); !cmp.Equal(got, []string{"z", "b"}) {
		t.Errorf("got %v but want [z b]", got)
	}
}

func TestAugAssignLower(t *testing.T) {
	aug := &hir.AugAssign{Target: hir.Sym("n"), Op: hir.Add, Value: hir.Int(1)}
	got := aug.Lower()
	bin, ok := got.Value.(*hir.Binary)
	if !ok {
		t.Fatalf("got value %T but want *hir.Binary", got.Value)
	}
	if bin.Op != hir.Add {
		t.Errorf("got operator %s but want +", bin.Op)
	}
	if v, ok := bin.X.(*hir.Var); !ok || v.Name != "n" {
		t.Errorf("got left operand %#v but want n", bin.X)
	}
}

func TestLit(t *testing.T) {
	if got := hir.Int(42).Int().Int64(); got != 42 {
		t.Errorf("got %d but want 42", got)
	}
	big := &hir.Lit{Kind: hir.LitInt, Text: "123456789012345678901234567890"}
	if got := big.Int(); got == nil || got.IsInt64() {
		t.Errorf("big literal %s not parsed as a big integer", big.Text)
	}
	if got := hir.Float(2).Text; got != "2.0" {
		t.Errorf("got float text %s but want 2.0", got)
	}
	if got := hir.Str("s").Type(); got != types.StringType() {
		t.Errorf("string literal has type %s", got)
	}
	if !hir.Bool(true).BoolValue() {
		t.Errorf("True literal is false")
	}
}

func TestBinOp(t *testing.T) {
	tests := []struct {
		op    hir.BinOp
		arith bool
		cmp   bool
		rust  string
	}{
		{op: hir.Add, arith: true, rust: "+"},
		{op: hir.FloorDiv, arith: true, rust: ""},
		{op: hir.In, cmp: true, rust: ""},
		{op: hir.And, rust: "&&"},
		{op: hir.LtE, cmp: true, rust: "<="},
	}
	for _, test := range tests {
		if test.op.IsArith() != test.arith || test.op.IsComparison() != test.cmp || test.op.RustOp() != test.rust {
			t.Errorf("operator %s: unexpected classification", test.op)
		}
	}
}
