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

package rast_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/build/rast"
)

func TestString(t *testing.T) {
	tests := []struct {
		node rast.Node
		want string
	}{
		{
			node: rast.Named("HashMap", rast.Named("String"), rast.Named("DynValue")),
			want: "HashMap<String, DynValue>",
		},
		{
			node: &rast.TypeTuple{Elems: []rast.Type{rast.Named("i32")}},
			want: "(i32,)",
		},
		{
			node: rast.Named("Box", &rast.TypeDyn{Trait: rast.Named("std::io::Write")}),
			want: "Box<dyn std::io::Write>",
		},
		{
			node: rast.Bin("*", rast.Bin("+", rast.Id("a"), rast.Id("b")), rast.Id("c")),
			want: "(a + b) * c",
		},
		{
			node: rast.Bin("-", rast.Id("a"), rast.Bin("-", rast.Id("b"), rast.Id("c"))),
			want: "a - (b - c)",
		},
		{
			node: rast.M(rast.Bin("+", rast.Id("a"), rast.Id("b")), "abs"),
			want: "(a + b).abs()",
		},
		{
			node: &rast.Cast{X: rast.M(rast.Id("xs"), "len"), Type: rast.Named("i32")},
			want: "xs.len() as i32",
		},
		{
			node: rast.Format("{} {}", rast.Id("a"), rast.Str("q\"")),
			want: `format!("{} {}", a, "q\"")`,
		},
		{
			node: &rast.Closure{
				Params: []*rast.Param{{Pattern: rast.Id("x")}},
				Body:   rast.Bin(">", &rast.Deref{X: rast.Id("x")}, rast.Int("0")),
			},
			want: "|x| *x > 0",
		},
		{
			node: &rast.If{
				Cond: rast.Id("c"),
				Then: rast.Blk(rast.Int("1")),
				Else: rast.Blk(rast.Int("2")),
			},
			want: "if c { 1 } else { 2 }",
		},
		{
			node: &rast.Let{Pattern: rast.Id("x"), Mut: true, Type: rast.Named("i32"), Value: rast.Int("3")},
			want: "let mut x: i32 = 3;",
		},
		{
			node: &rast.Let{
				Pattern: &rast.Tuple{Elts: []rast.Expr{&rast.Binding{Mut: true, Name: "a"}, &rast.Binding{Name: "b"}}},
				Value:   rast.Id("pair"),
			},
			want: "let (mut a, b) = pair;",
		},
		{
			node: rast.Vec(rast.Int("1"), rast.Int("2")),
			want: "vec![1, 2]",
		},
		{
			node: &rast.Range{Lo: rast.Int("0"), Hi: rast.Bin("+", rast.Id("n"), rast.Int("1"))},
			want: "0..n + 1",
		},
		{
			node: &rast.Try{X: rast.C(rast.Id("parse"), rast.Id("s"))},
			want: "parse(s)?",
		},
		{
			node: &rast.Lit{Kind: rast.CharLit, Value: "'"},
			want: `'\''`,
		},
	}
	for i, test := range tests {
		got := rast.String(test.node)
		if got != test.want {
			t.Errorf("test %d: got:\n%s\nwant:\n%s\ndiff:\n%s", i, got, test.want, cmp.Diff(got, test.want))
		}
	}
}

func TestParsePath(t *testing.T) {
	got := rast.String(rast.PC("DynValue::Str", rast.Str("a")))
	if want := `DynValue::Str("a")`; got != want {
		t.Errorf("got %s but want %s", got, want)
	}
	if got := rast.String(rast.ParsePath("x")); got != "x" {
		t.Errorf("got %s but want x", got)
	}
}

func TestFnRendering(t *testing.T) {
	fn := &rast.Fn{
		Doc:    []string{"Adds one."},
		Name:   "inc",
		Params: []*rast.Param{{Pattern: rast.Id("x"), Type: rast.Named("i32")}},
		Ret:    rast.Named("i32"),
		Body:   rast.Blk(rast.Bin("+", rast.Id("x"), rast.Int("1"))),
	}
	want := "/// Adds one.\nfn inc(x: i32) -> i32 {\n    x + 1\n}"
	if got := rast.String(fn); got != want {
		t.Errorf("got:\n%s\nwant:\n%s\ndiff:\n%s", got, want, cmp.Diff(got, want))
	}
}
