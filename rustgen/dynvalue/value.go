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

package dynvalue

import (
	"cmp"
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Variant of a DynValue.
type Variant int

// Variants of DynValue, in the order of the Rust enum.
const (
	IntV Variant = iota
	FloatV
	StrV
	BoolV
	NoneV
	ListV
	DictV
	TupleV
)

// Entry is a key-value pair of a dictionary.
type Entry struct {
	Key, Value Value
}

// Value models the semantics of a DynValue in Go.
// The generated Rust code and this model are tested against the same contracts.
type Value struct {
	v     Variant
	i     int64
	f     float64
	s     string
	b     bool
	elems []Value
	dict  []Entry
}

// Int returns an integer value.
func Int(i int64) Value { return Value{v: IntV, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{v: FloatV, f: f} }

// Str returns a string value.
func Str(s string) Value { return Value{v: StrV, s: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{v: BoolV, b: b} }

// None returns the None value.
func None() Value { return Value{v: NoneV} }

// List returns a list value.
func List(elems ...Value) Value { return Value{v: ListV, elems: elems} }

// Tuple returns a tuple value.
func Tuple(elems ...Value) Value { return Value{v: TupleV, elems: elems} }

// Dict returns a dictionary value. Later entries replace earlier entries with an equal key.
func Dict(entries ...Entry) Value {
	d := Value{v: DictV}
	for _, e := range entries {
		d = d.Insert(e.Key, e.Value)
	}
	return d
}

// Variant returns the variant of the value.
func (x Value) Variant() Variant { return x.v }

// Insert returns a copy of a dictionary with a new entry.
func (x Value) Insert(k, v Value) Value {
	if x.v != DictV {
		return x
	}
	dict := slices.Clone(x.dict)
	for i, e := range dict {
		if e.Key.Equal(k) {
			dict[i].Value = v
			return Value{v: DictV, dict: dict}
		}
	}
	return Value{v: DictV, dict: append(dict, Entry{Key: k, Value: v})}
}

// Get returns the value of a key in a dictionary.
func (x Value) Get(k Value) (Value, bool) {
	for _, e := range x.dict {
		if e.Key.Equal(k) {
			return e.Value, true
		}
	}
	return None(), false
}

func equalSlices(a, b []Value) bool {
	return slices.EqualFunc(a, b, Value.Equal)
}

// Equal compares two values structurally. Floats are compared by bit pattern
// and values of different variants are never equal.
func (x Value) Equal(y Value) bool {
	if x.v != y.v {
		return false
	}
	switch x.v {
	case IntV:
		return x.i == y.i
	case FloatV:
		return math.Float64bits(x.f) == math.Float64bits(y.f)
	case StrV:
		return x.s == y.s
	case BoolV:
		return x.b == y.b
	case NoneV:
		return true
	case ListV, TupleV:
		return equalSlices(x.elems, y.elems)
	case DictV:
		if len(x.dict) != len(y.dict) {
			return false
		}
		for _, e := range x.dict {
			v, ok := y.Get(e.Key)
			if !ok || !v.Equal(e.Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Hash returns a hash consistent with Equal.
func (x Value) Hash() uint64 {
	h := fnv.New64a()
	x.hashInto(func(b []byte) { h.Write(b) })
	return h.Sum64()
}

func (x Value) hashInto(write func([]byte)) {
	write([]byte{byte(x.v)})
	switch x.v {
	case IntV:
		write(strconv.AppendInt(nil, x.i, 16))
	case FloatV:
		write(strconv.AppendUint(nil, math.Float64bits(x.f), 16))
	case StrV:
		write([]byte(x.s))
	case BoolV:
		write(strconv.AppendBool(nil, x.b))
	case ListV, TupleV:
		write(strconv.AppendInt(nil, int64(len(x.elems)), 10))
		for _, el := range x.elems {
			el.hashInto(write)
		}
	case DictV:
		write([]byte{0})
	}
}

// Compare orders two values. ok is false if the values are incomparable.
func (x Value) Compare(y Value) (c int, ok bool) {
	switch {
	case x.v == NoneV && y.v == NoneV:
		return 0, true
	case x.v == NoneV:
		return -1, true
	case y.v == NoneV:
		return 1, true
	}
	switch {
	case x.v == IntV && y.v == IntV:
		return cmp.Compare(x.i, y.i), true
	case x.isNumber() && y.isNumber():
		return totalCmp(x.ToFloat(), y.ToFloat()), true
	case x.v == StrV && y.v == StrV:
		return strings.Compare(x.s, y.s), true
	case x.v == BoolV && y.v == BoolV:
		return cmp.Compare(boolInt(x.b), boolInt(y.b)), true
	case x.v == y.v && (x.v == ListV || x.v == TupleV):
		for i := 0; i < len(x.elems) && i < len(y.elems); i++ {
			c, ok := x.elems[i].Compare(y.elems[i])
			if !ok || c != 0 {
				return c, ok
			}
		}
		return cmp.Compare(len(x.elems), len(y.elems)), true
	}
	return 0, false
}

// Cmp is the total order of Ord: incomparable values are equal.
func (x Value) Cmp(y Value) int {
	c, _ := x.Compare(y)
	return c
}

func (x Value) isNumber() bool {
	return x.v == IntV || x.v == FloatV
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// totalCmp orders floats like f64::total_cmp.
func totalCmp(a, b float64) int {
	ka, kb := int64(math.Float64bits(a)), int64(math.Float64bits(b))
	ka ^= int64(uint64(ka>>63) >> 1)
	kb ^= int64(uint64(kb>>63) >> 1)
	return cmp.Compare(ka, kb)
}

// Len returns the number of bytes of a string or the number of elements of a container.
func (x Value) Len() int {
	switch x.v {
	case StrV:
		return len(x.s)
	case ListV, TupleV:
		return len(x.elems)
	case DictV:
		return len(x.dict)
	}
	return 0
}

// ToInt converts a value to an integer. Strings which are not integers convert to 0.
func (x Value) ToInt() int64 {
	switch x.v {
	case IntV:
		return x.i
	case FloatV:
		return int64(x.f)
	case BoolV:
		return boolInt(x.b)
	case StrV:
		i, err := strconv.ParseInt(strings.TrimSpace(x.s), 10, 64)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// ToFloat converts a value to a float. Strings which are not numbers convert to 0.
func (x Value) ToFloat() float64 {
	switch x.v {
	case FloatV:
		return x.f
	case IntV:
		return float64(x.i)
	case BoolV:
		return float64(boolInt(x.b))
	case StrV:
		f, err := strconv.ParseFloat(strings.TrimSpace(x.s), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// ToBool returns the truthiness of a value.
func (x Value) ToBool() bool {
	switch x.v {
	case BoolV:
		return x.b
	case IntV:
		return x.i != 0
	case FloatV:
		return x.f != 0
	case StrV:
		return x.s != ""
	case ListV, TupleV:
		return len(x.elems) > 0
	case DictV:
		return len(x.dict) > 0
	}
	return false
}

// ToString converts a value to a string: scalars are printed, containers are debug-formatted.
func (x Value) ToString() string {
	switch x.v {
	case StrV:
		return x.s
	case IntV:
		return strconv.FormatInt(x.i, 10)
	case FloatV:
		return strconv.FormatFloat(x.f, 'g', -1, 64)
	case BoolV:
		return strconv.FormatBool(x.b)
	case NoneV:
		return "None"
	}
	return x.debug()
}

func (x Value) debug() string {
	switch x.v {
	case StrV:
		return strconv.Quote(x.s)
	case IntV, FloatV, BoolV:
		return x.ToString()
	case NoneV:
		return "None"
	case ListV, TupleV:
		parts := make([]string, len(x.elems))
		for i, el := range x.elems {
			parts[i] = el.debug()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	parts := make([]string, len(x.dict))
	for i, e := range x.dict {
		parts[i] = e.Key.debug() + ": " + e.Value.debug()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// String returns the Display form of the value.
func (x Value) String() string {
	return x.ToString()
}

// GoString returns the Rust constructor of the value.
func (x Value) GoString() string {
	switch x.v {
	case IntV:
		return fmt.Sprintf("DynValue::Int(%d)", x.i)
	case FloatV:
		return fmt.Sprintf("DynValue::Float(%v)", x.f)
	case StrV:
		return fmt.Sprintf("DynValue::Str(%q)", x.s)
	case BoolV:
		return fmt.Sprintf("DynValue::Bool(%t)", x.b)
	case NoneV:
		return "DynValue::None"
	}
	return x.debug()
}

// ----------------------------------------------------------------------------
// Arithmetic.

func floorRemInt(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func floorRemFloat(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func intArith(a, b int64, op byte) Value {
	switch op {
	case '+':
		s := a + b
		if (s > a) != (b > 0) {
			return None()
		}
		return Int(s)
	case '-':
		d := a - b
		if (d < a) != (b > 0) {
			return None()
		}
		return Int(d)
	case '*':
		if a == 0 || b == 0 {
			return Int(0)
		}
		p := a * b
		if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return None()
		}
		return Int(p)
	case '/':
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return None()
		}
		return Int(a / b)
	case '%':
		if b == 0 {
			return None()
		}
		return Int(floorRemInt(a, b))
	}
	return None()
}

func floatArith(a, b float64, op byte) Value {
	switch op {
	case '+':
		return Float(a + b)
	case '-':
		return Float(a - b)
	case '*':
		return Float(a * b)
	case '/':
		if b == 0 {
			return None()
		}
		return Float(a / b)
	case '%':
		if b == 0 {
			return None()
		}
		return Float(floorRemFloat(a, b))
	}
	return None()
}

func repeat[T any](elems []T, n int64) []T {
	var out []T
	for range max(n, 0) {
		out = append(out, elems...)
	}
	return out
}

func arith(x, y Value, op byte) Value {
	switch {
	case x.v == IntV && y.v == IntV:
		return intArith(x.i, y.i, op)
	case x.isNumber() && y.isNumber():
		return floatArith(x.ToFloat(), y.ToFloat(), op)
	case op == '+' && x.v == StrV && y.v == StrV:
		return Str(x.s + y.s)
	case op == '+' && x.v == ListV && y.v == ListV:
		return List(slices.Concat(x.elems, y.elems)...)
	case op == '*' && x.v == StrV && y.v == IntV:
		return Str(strings.Repeat(x.s, int(max(y.i, 0))))
	case op == '*' && x.v == IntV && y.v == StrV:
		return Str(strings.Repeat(y.s, int(max(x.i, 0))))
	case op == '*' && x.v == ListV && y.v == IntV:
		return List(repeat(x.elems, y.i)...)
	case op == '*' && x.v == IntV && y.v == ListV:
		return List(repeat(y.elems, x.i)...)
	}
	return None()
}

// Add implements the + operator.
func (x Value) Add(y Value) Value { return arith(x, y, '+') }

// Sub implements the - operator.
func (x Value) Sub(y Value) Value { return arith(x, y, '-') }

// Mul implements the * operator.
func (x Value) Mul(y Value) Value { return arith(x, y, '*') }

// Div implements the / operator. Integer operands use integer division.
func (x Value) Div(y Value) Value { return arith(x, y, '/') }

// Mod implements the % operator with floored semantics.
func (x Value) Mod(y Value) Value { return arith(x, y, '%') }

// TrueDiv implements py_div: numeric operands always divide as floats.
func (x Value) TrueDiv(y Value) Value {
	if !x.isNumeric() || !y.isNumeric() {
		return None()
	}
	d := y.ToFloat()
	if d == 0 {
		return None()
	}
	return Float(x.ToFloat() / d)
}

func (x Value) isNumeric() bool {
	return x.isNumber() || x.v == BoolV
}

// Neg implements the unary - operator.
func (x Value) Neg() Value {
	switch x.v {
	case IntV:
		if x.i == math.MinInt64 {
			return None()
		}
		return Int(-x.i)
	case FloatV:
		return Float(-x.f)
	case BoolV:
		return Int(-boolInt(x.b))
	}
	return None()
}

// Elems returns the values produced when iterating over a value:
// elements of lists and tuples, keys of dictionaries and characters of strings.
func (x Value) Elems() []Value {
	switch x.v {
	case ListV, TupleV:
		return x.elems
	case DictV:
		keys := make([]Value, len(x.dict))
		for i, e := range x.dict {
			keys[i] = e.Key
		}
		return keys
	case StrV:
		var chars []Value
		for _, r := range x.s {
			chars = append(chars, Str(string(r)))
		}
		return chars
	}
	return nil
}

// PyIndex returns the element at a position. Negative positions count from the end.
// It returns None if the position is out of range.
func (x Value) PyIndex(idx int64) Value {
	if x.v == DictV {
		v, _ := x.Get(Int(idx))
		return v
	}
	elems := x.Elems()
	if idx < 0 {
		idx += int64(len(elems))
	}
	if idx < 0 || idx >= int64(len(elems)) {
		return None()
	}
	return elems[idx]
}
