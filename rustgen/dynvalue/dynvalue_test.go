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

package dynvalue_test

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/rustgen/dynvalue"
)

var samples = []dynvalue.Value{
	dynvalue.Int(0),
	dynvalue.Int(-7),
	dynvalue.Int(42),
	dynvalue.Float(0),
	dynvalue.Float(2.5),
	dynvalue.Float(math.NaN()),
	dynvalue.Float(math.Inf(-1)),
	dynvalue.Str(""),
	dynvalue.Str("abc"),
	dynvalue.Bool(false),
	dynvalue.Bool(true),
	dynvalue.None(),
	dynvalue.List(dynvalue.Int(1), dynvalue.Float(math.NaN())),
	dynvalue.List(dynvalue.Int(1), dynvalue.Int(2)),
	dynvalue.Tuple(dynvalue.Str("a"), dynvalue.None()),
	dynvalue.Dict(dynvalue.Entry{Key: dynvalue.Str("k"), Value: dynvalue.Int(1)}),
}

func TestIntArithmetic(t *testing.T) {
	pairs := [][2]int64{{3, 4}, {-3, 4}, {10, -3}, {-10, -3}, {0, 5}, {1 << 40, 3}}
	for _, p := range pairs {
		a, b := dynvalue.Int(p[0]), dynvalue.Int(p[1])
		checks := []struct {
			name string
			got  dynvalue.Value
			want int64
		}{
			{"+", a.Add(b), p[0] + p[1]},
			{"-", a.Sub(b), p[0] - p[1]},
			{"*", a.Mul(b), p[0] * p[1]},
			{"/", a.Div(b), p[0] / p[1]},
		}
		for _, c := range checks {
			if !c.got.Equal(dynvalue.Int(c.want)) {
				t.Errorf("%d %s %d: got %#v but want DynValue::Int(%d)", p[0], c.name, p[1], c.got, c.want)
			}
		}
	}
}

func TestArithmeticFallbacks(t *testing.T) {
	tests := []struct {
		got, want dynvalue.Value
	}{
		{dynvalue.Int(1).Div(dynvalue.Int(0)), dynvalue.None()},
		{dynvalue.Int(1).Mod(dynvalue.Int(0)), dynvalue.None()},
		{dynvalue.Float(1).Div(dynvalue.Float(0)), dynvalue.None()},
		{dynvalue.Int(-7).Mod(dynvalue.Int(3)), dynvalue.Int(2)},
		{dynvalue.Int(7).Mod(dynvalue.Int(-3)), dynvalue.Int(-2)},
		{dynvalue.Int(1).Add(dynvalue.Float(0.5)), dynvalue.Float(1.5)},
		{dynvalue.Str("ab").Add(dynvalue.Str("c")), dynvalue.Str("abc")},
		{dynvalue.Str("ab").Mul(dynvalue.Int(2)), dynvalue.Str("abab")},
		{dynvalue.Int(-1).Mul(dynvalue.Str("ab")), dynvalue.Str("")},
		{dynvalue.Str("ab").Sub(dynvalue.Str("a")), dynvalue.None()},
		{dynvalue.Int(math.MaxInt64).Add(dynvalue.Int(1)), dynvalue.None()},
		{dynvalue.Int(3).TrueDiv(dynvalue.Int(2)), dynvalue.Float(1.5)},
		{dynvalue.Bool(true).Neg(), dynvalue.Int(-1)},
		{dynvalue.List(dynvalue.Int(1)).Mul(dynvalue.Int(2)), dynvalue.List(dynvalue.Int(1), dynvalue.Int(1))},
	}
	for i, test := range tests {
		if !test.got.Equal(test.want) {
			t.Errorf("test %d: got %#v but want %#v", i, test.got, test.want)
		}
	}
}

func TestEqualIsReflexive(t *testing.T) {
	for _, x := range samples {
		if !x.Equal(x) {
			t.Errorf("%#v is not equal to itself", x)
		}
	}
	if dynvalue.Int(1).Equal(dynvalue.Float(1)) {
		t.Errorf("values of different variants compare equal")
	}
}

func TestHashIsConsistent(t *testing.T) {
	for _, x := range samples {
		for _, y := range samples {
			if x.Equal(y) && x.Hash() != y.Hash() {
				t.Errorf("%#v == %#v but hashes differ", x, y)
			}
		}
	}
	zeros := []dynvalue.Value{dynvalue.Int(0), dynvalue.Bool(false), dynvalue.Str("")}
	for i, x := range zeros {
		for _, y := range zeros[i+1:] {
			if x.Hash() == y.Hash() {
				t.Errorf("%#v and %#v have the same hash", x, y)
			}
		}
	}
}

func TestOrderIsAntisymmetric(t *testing.T) {
	for _, x := range samples {
		for _, y := range samples {
			if x.Cmp(y) != -y.Cmp(x) {
				t.Errorf("cmp(%#v, %#v)=%d but cmp(%#v, %#v)=%d", x, y, x.Cmp(y), y, x, y.Cmp(x))
			}
		}
	}
	if c, _ := dynvalue.None().Compare(dynvalue.Int(math.MinInt64)); c >= 0 {
		t.Errorf("None is not less than an integer")
	}
	if c, _ := dynvalue.Int(1).Compare(dynvalue.Float(1.5)); c >= 0 {
		t.Errorf("1 is not less than 1.5")
	}
	if _, ok := dynvalue.Int(1).Compare(dynvalue.Str("a")); ok {
		t.Errorf("an integer and a string are comparable")
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, n := range []int64{0, -1, math.MaxInt64} {
		if got := dynvalue.Int(n).ToInt(); got != n {
			t.Errorf("to_i64(Int(%d)) = %d", n, got)
		}
	}
	for _, x := range []float64{0, -2.5, math.MaxFloat64} {
		if got := dynvalue.Float(x).ToFloat(); got != x {
			t.Errorf("to_f64(Float(%v)) = %v", x, got)
		}
	}
	for _, s := range []string{"", "abc", "12"} {
		if got := dynvalue.Str(s).ToString(); got != s {
			t.Errorf("to_string(Str(%q)) = %q", s, got)
		}
	}
	for _, b := range []bool{false, true} {
		if got := dynvalue.Bool(b).ToBool(); got != b {
			t.Errorf("to_bool(Bool(%t)) = %t", b, got)
		}
	}
	if got := dynvalue.Str("x1").ToInt(); got != 0 {
		t.Errorf("to_i64(Str(x1)) = %d but want 0", got)
	}
}

func TestTruthiness(t *testing.T) {
	falsy := []dynvalue.Value{
		dynvalue.Int(0), dynvalue.Float(0), dynvalue.Str(""), dynvalue.Bool(false),
		dynvalue.None(), dynvalue.List(), dynvalue.Dict(), dynvalue.Tuple(),
	}
	for _, x := range falsy {
		if x.ToBool() {
			t.Errorf("%#v is truthy", x)
		}
	}
	if !dynvalue.Float(math.NaN()).ToBool() {
		t.Errorf("NaN is falsy")
	}
}

func TestIterationAndIndex(t *testing.T) {
	got := dynvalue.Str("héy").Elems()
	want := []dynvalue.Value{dynvalue.Str("h"), dynvalue.Str("é"), dynvalue.Str("y")}
	if diff := cmp.Diff(got, want, cmp.Comparer(dynvalue.Value.Equal)); diff != "" {
		t.Errorf("unexpected characters:\n%s", diff)
	}
	l := dynvalue.List(dynvalue.Int(1), dynvalue.Int(2), dynvalue.Int(3))
	if got := l.PyIndex(-1); !got.Equal(dynvalue.Int(3)) {
		t.Errorf("l[-1] = %#v", got)
	}
	if got := l.PyIndex(5); !got.Equal(dynvalue.None()) {
		t.Errorf("l[5] = %#v", got)
	}
	if got := dynvalue.Dict().PyIndex(0); !got.Equal(dynvalue.None()) {
		t.Errorf("missing key: got %#v", got)
	}
	if got, want := dynvalue.Str("héy").Len(), 4; got != want {
		t.Errorf("len = %d but want %d", got, want)
	}
}

func generate(t *testing.T, cfg dynvalue.Config) string {
	t.Helper()
	src, err := dynvalue.Generate(cfg)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return src
}

func TestPreludeContent(t *testing.T) {
	src := generate(t, dynvalue.Config{LazyLock: true})
	want := []string{
		"pub enum DynValue {",
		"impl Eq for DynValue {}",
		"a.to_bits() == b.to_bits()",
		"std::mem::discriminant(self).hash(state);",
		"DynValue::Dict(_) => 0u8.hash(state),",
		"(DynValue::None, _) => Some(Ordering::Less),",
		"(*a as f64).total_cmp(b)",
		"impl Ord for DynValue",
		`DynValue::None => write!(f, "None"),`,
		"pub fn get_tuple_elem(&self, idx: usize) -> DynValue",
		"pub fn extract_tuple(&self, n: usize) -> Vec<DynValue>",
		"pub fn set_item(&mut self, key: impl Into<DynValue>, value: impl Into<DynValue>)",
		"pub fn as_str(&self) -> Option<&str>",
		"impl std::ops::Rem for DynValue",
		"impl std::ops::Neg for DynValue",
		"impl std::ops::Not for DynValue",
		"impl std::ops::BitXor<i64> for DynValue",
		"impl std::ops::Index<&str> for DynValue",
		"impl std::ops::Index<DynValue> for DynValue",
		"impl IntoIterator for &DynValue",
		"impl From<Vec<i64>> for DynValue",
		"std::sync::LazyLock::new",
		"pub fn py_min<T: PartialOrd>",
		"pub trait Truthy {",
		"impl<K, V> Truthy for std::collections::BTreeMap<K, V>",
		"impl<T: Eq + std::hash::Hash + Clone> PySub for std::collections::HashSet<T>",
		"impl PyIndex<&str> for std::collections::HashMap<String, DynValue>",
		"impl PyIndex<DynValue> for DynValue",
		"let left = pad / 2 + (pad & width & 1);",
		"pub trait StringMethods {",
		"impl StringMethods for DynValue",
	}
	for _, prim := range []string{"i32", "i64", "f64"} {
		for _, op := range []string{"Add", "Sub", "Mul", "Div"} {
			want = append(want,
				"impl std::ops::"+op+"<"+prim+"> for DynValue",
				"impl std::ops::"+op+"<DynValue> for "+prim,
			)
		}
		want = append(want,
			"impl PartialEq<DynValue> for "+prim,
			"impl PartialOrd<"+prim+"> for DynValue",
			"impl From<DynValue> for "+prim,
			"impl PyDiv<"+prim+"> for i32",
			"impl PyMod<f64> for "+prim,
		)
	}
	for _, elem := range []string{"f64", "f32", "i64", "i32"} {
		want = append(want, "impl PyDiv<Vec<"+elem+">> for Vec<"+elem+">")
	}
	for _, method := range []string{
		"lower", "upper", "strip", "lstrip", "rstrip", "py_split", "py_replace",
		"startswith", "endswith", "py_find", "capitalize", "title", "swapcase",
		"isalpha", "isdigit", "isalnum", "isspace", "islower", "isupper", "istitle",
		"isnumeric", "isdecimal", "isascii", "isidentifier", "isprintable",
		"center", "ljust", "rjust", "zfill", "count", "expandtabs", "partition", "hex", "format",
	} {
		want = append(want, "fn "+method+"(&self")
	}
	for _, w := range want {
		if !strings.Contains(src, w) {
			t.Errorf("prelude does not contain %q", w)
		}
	}
	for _, bad := range []string{"<no value>", "{{", "OnceLock"} {
		if strings.Contains(src, bad) {
			t.Errorf("prelude contains %q", bad)
		}
	}
}

func TestPreludeBeforeLazyLock(t *testing.T) {
	opts := options.Default()
	opts.RustVersion = "v1.75.0"
	raw, err := dynvalue.Prelude(opts)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if raw.Name != dynvalue.Name {
		t.Errorf("got prelude name %q but want %q", raw.Name, dynvalue.Name)
	}
	if strings.Contains(raw.Text, "LazyLock") {
		t.Errorf("prelude for Rust 1.75 uses LazyLock")
	}
	if !strings.Contains(raw.Text, "EMPTY.get_or_init(std::collections::HashMap::new)") {
		t.Errorf("prelude for Rust 1.75 does not use OnceLock")
	}
}

func TestPreludeIsDeterministic(t *testing.T) {
	a := generate(t, dynvalue.Config{LazyLock: true})
	b := generate(t, dynvalue.Config{LazyLock: true})
	if a != b {
		t.Errorf("prelude generation is not deterministic:\n%s", cmp.Diff(a, b))
	}
}
