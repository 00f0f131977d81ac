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

// Package kind defines the element kinds of numeric arrays.
package kind

import (
	"strings"

	"github.com/gx-org/backend/dtype"
)

// Kind of the elements of a numeric array.
type Kind uint

// Default is the element kind of arrays created without an explicit dtype.
const Default = Float64

// Kind of elements supported in numeric arrays.
const (
	Invalid = Kind(dtype.Invalid)

	Bool     = Kind(dtype.Bool)
	Int32    = Kind(dtype.Int32)
	Int64    = Kind(dtype.Int64)
	Uint32   = Kind(dtype.Uint32)
	Uint64   = Kind(dtype.Uint64)
	Bfloat16 = Kind(dtype.Bfloat16)
	Float32  = Kind(dtype.Float32)
	Float64  = Kind(dtype.Float64)
)

// String returns the numpy name of a kind.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Bfloat16:
		return "bfloat16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return "invalid"
}

// DType returns the array data type of the kind.
func (k Kind) DType() dtype.DataType {
	return dtype.DataType(k)
}

// FromDType returns the kind of an array data type.
func FromDType(dt dtype.DataType) Kind {
	switch dt {
	case dtype.Bool, dtype.Int32, dtype.Int64, dtype.Uint32, dtype.Uint64, dtype.Bfloat16, dtype.Float32, dtype.Float64:
		return Kind(dt)
	}
	return Invalid
}

// FromNumpy returns a kind given a numpy dtype expression,
// for example np.float32, numpy.int64, "uint32" or float.
func FromNumpy(name string) Kind {
	name = strings.Trim(name, "\"'")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "bool", "bool_":
		return Bool
	case "int32", "intc":
		return Int32
	case "int64", "int", "int_":
		return Int64
	case "uint32":
		return Uint32
	case "uint64", "uint":
		return Uint64
	case "bfloat16":
		return Bfloat16
	case "float32", "single":
		return Float32
	case "float64", "float", "float_", "double":
		return Float64
	}
	return Invalid
}

// RustElem returns the Rust element type of the kind.
// bfloat16 has no native Rust type and is widened to f32.
func (k Kind) RustElem() string {
	switch k {
	case Bool:
		return "bool"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Bfloat16, Float32:
		return "f32"
	case Float64:
		return "f64"
	}
	return ""
}

// Zero returns the Rust literal of the zero value of the kind.
func (k Kind) Zero() string {
	return k.literal("0")
}

// One returns the Rust literal of the value one of the kind.
func (k Kind) One() string {
	return k.literal("1")
}

func (k Kind) literal(digit string) string {
	switch {
	case k == Bool:
		if digit == "0" {
			return "false"
		}
		return "true"
	case k.IsFloat():
		return digit + ".0" + k.RustElem()
	case k.IsInteger():
		return digit + k.RustElem()
	}
	return ""
}

// IsFloat returns true if the kind is a float.
func (k Kind) IsFloat() bool {
	switch k {
	case Bfloat16, Float32, Float64:
		return true
	}
	return false
}

// IsInteger returns true if the kind is an integer.
func (k Kind) IsInteger() bool {
	switch k {
	case Int32, Int64, Uint32, Uint64:
		return true
	}
	return false
}
