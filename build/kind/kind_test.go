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

package kind_test

import (
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/pyrs/build/kind"
)

func TestFromNumpy(t *testing.T) {
	tests := []struct {
		name string
		want kind.Kind
		elem string
		zero string
	}{
		{name: "np.float32", want: kind.Float32, elem: "f32", zero: "0.0f32"},
		{name: "numpy.float64", want: kind.Float64, elem: "f64", zero: "0.0f64"},
		{name: "\"int64\"", want: kind.Int64, elem: "i64", zero: "0i64"},
		{name: "np.int32", want: kind.Int32, elem: "i32", zero: "0i32"},
		{name: "np.bool_", want: kind.Bool, elem: "bool", zero: "false"},
		{name: "'uint32'", want: kind.Uint32, elem: "u32", zero: "0u32"},
		{name: "float", want: kind.Float64, elem: "f64", zero: "0.0f64"},
		{name: "np.complex128", want: kind.Invalid, elem: "", zero: ""},
	}
	for _, test := range tests {
		got := kind.FromNumpy(test.name)
		if got != test.want {
			t.Errorf("%s: got kind %s but want %s", test.name, got, test.want)
		}
		if elem := got.RustElem(); elem != test.elem {
			t.Errorf("%s: got element type %q but want %q", test.name, elem, test.elem)
		}
		if zero := got.Zero(); zero != test.zero {
			t.Errorf("%s: got zero %q but want %q", test.name, zero, test.zero)
		}
	}
}

func TestDType(t *testing.T) {
	for _, k := range []kind.Kind{kind.Bool, kind.Int32, kind.Int64, kind.Uint32, kind.Uint64, kind.Float32, kind.Float64} {
		if got := kind.FromDType(k.DType()); got != k {
			t.Errorf("kind %s: round trip through dtype returned %s", k, got)
		}
	}
	if got := kind.FromDType(dtype.Invalid); got != kind.Invalid {
		t.Errorf("invalid dtype mapped to %s", got)
	}
	if kind.Default != kind.Float64 {
		t.Errorf("default kind is %s", kind.Default)
	}
}
