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

package types_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/build/types"
)

func TestRender(t *testing.T) {
	tests := []struct {
		typ  types.Type
		want string
	}{
		{typ: types.IntType(), want: "i32"},
		{typ: types.FloatType(), want: "f64"},
		{typ: types.StringType(), want: "String"},
		{typ: types.NoneType(), want: "()"},
		{typ: types.UnknownType(), want: "DynValue"},
		{typ: types.CustomOf("Any"), want: "DynValue"},
		{typ: types.CustomOf("object"), want: "DynValue"},
		{typ: types.CustomOf("Point"), want: "Point"},
		{typ: types.ListOf(types.IntType()), want: "Vec<i32>"},
		{typ: types.SetOf(types.StringType()), want: "HashSet<String>"},
		{typ: types.DictOf(types.StringType(), types.UnknownType()), want: "HashMap<String, DynValue>"},
		{typ: types.TupleOf(types.IntType(), types.StringType()), want: "(i32, String)"},
		{typ: types.NewOptional(types.IntType()), want: "Option<i32>"},
		{typ: types.NewUnion(types.IntType(), types.NoneType()), want: "Option<i32>"},
		{typ: types.NewUnion(types.IntType(), types.FloatType()), want: "f64"},
		{typ: types.NewUnion(types.IntType(), types.StringType()), want: "DynValue"},
		{typ: types.FunctionOf(types.FloatType(), types.IntType()), want: "Box<dyn Fn(i32) -> f64>"},
		{typ: types.GenericOf("Iterator", types.IntType()), want: "Box<dyn Iterator<Item = i32>>"},
		{typ: types.GenericOf("deque", types.StringType()), want: "VecDeque<String>"},
		{typ: types.GenericOf("Callable", types.TupleOf(types.IntType()), types.BoolType()), want: "Box<dyn Fn(i32) -> bool>"},
		{typ: &types.Var{ID: 3}, want: "_"},
	}
	for i, test := range tests {
		got := types.RustString(test.typ)
		if got != test.want {
			t.Errorf("test %d: %s rendered as %s but want %s", i, test.typ, got, test.want)
		}
	}
}

func TestCollapse(t *testing.T) {
	if got := types.NewOptional(types.UnknownType()); got != types.UnknownType() {
		t.Errorf("Optional(Unknown) = %s but want unknown", got)
	}
	if got := types.NewUnion(types.IntType(), types.UnknownType()); got != types.UnknownType() {
		t.Errorf("Union(int, Unknown) = %s but want unknown", got)
	}
	if got := types.NewUnion(types.IntType(), types.IntType()); got != types.IntType() {
		t.Errorf("Union(int, int) = %s but want int", got)
	}
	nested := types.NewUnion(types.IntType(), types.NewUnion(types.StringType(), types.BoolType()))
	u, ok := nested.(*types.Union)
	if !ok || len(u.Members) != 3 {
		t.Errorf("nested union not flattened: %s", nested)
	}
}

func TestEqual(t *testing.T) {
	if !types.Equal(types.UnknownType(), types.CustomOf("Any")) {
		t.Errorf("Unknown and Any are not interchangeable")
	}
	if types.Equal(types.IntType(), types.FloatType()) {
		t.Errorf("int and float are interchangeable")
	}
	if !types.Equal(types.TupleOf(types.IntType(), types.StringType()), types.TupleOf(types.IntType(), types.StringType())) {
		t.Errorf("identical tuples are not equal")
	}
	if types.Equal(types.TupleOf(types.IntType(), types.StringType()), types.TupleOf(types.StringType(), types.IntType())) {
		t.Errorf("tuple element order is not preserved")
	}
}

func TestIsSubtype(t *testing.T) {
	tests := []struct {
		sub, super types.Type
		want       bool
	}{
		{sub: types.IntType(), super: types.UnknownType(), want: true},
		{sub: types.ListOf(types.IntType()), super: types.UnknownType(), want: true},
		{sub: types.IntType(), super: types.NewOptional(types.IntType()), want: true},
		{sub: types.NoneType(), super: types.NewOptional(types.IntType()), want: true},
		{sub: types.IntType(), super: types.FloatType(), want: false},
		{sub: types.UnknownType(), super: types.IntType(), want: false},
		{sub: types.StringType(), super: types.NewUnion(types.IntType(), types.StringType()), want: true},
	}
	for i, test := range tests {
		if got := types.IsSubtype(test.sub, test.super); got != test.want {
			t.Errorf("test %d: IsSubtype(%s, %s) = %v but want %v", i, test.sub, test.super, got, test.want)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		a, b types.Type
		want string
	}{
		{a: types.IntType(), b: types.IntType(), want: "i32"},
		{a: types.IntType(), b: types.FloatType(), want: "f64"},
		{a: types.NoneType(), b: types.StringType(), want: "Option<String>"},
		{a: types.IntType(), b: types.StringType(), want: "DynValue"},
		{a: types.IntType(), b: types.UnknownType(), want: "DynValue"},
	}
	for i, test := range tests {
		got := types.RustString(types.Join(test.a, test.b))
		if got != test.want {
			t.Errorf("test %d: got:\n%s\nwant:\n%s\ndiff:\n%s", i, got, test.want, cmp.Diff(got, test.want))
		}
	}
}

func TestOfLiteral(t *testing.T) {
	tests := []struct {
		v    any
		want types.Type
	}{
		{v: int64(1), want: types.IntType()},
		{v: 1.5, want: types.FloatType()},
		{v: "s", want: types.StringType()},
		{v: true, want: types.BoolType()},
		{v: nil, want: types.NoneType()},
	}
	for _, test := range tests {
		if got := types.OfLiteral(test.v); got != test.want {
			t.Errorf("literal %v: got %s but want %s", test.v, got, test.want)
		}
	}
}
