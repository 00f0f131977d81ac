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

package infer

import (
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
)

// ProducesDV returns true if the expression evaluates to a DynValue.
// It only applies in NASA mode where unknown values are lowered to DynValue.
//
// Arithmetic is decided by its left operand: a primitive on the left of a
// DynValue evaluates to the primitive.
func ProducesDV(v genctx.View, x hir.Expr) bool {
	if !v.Flag(genctx.NasaMode) {
		return false
	}
	return producesDV(v, x)
}

func producesDV(v genctx.View, x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.Index:
		base, ok := xT.X.(*hir.Var)
		if !ok {
			return producesDV(v, xT.X)
		}
		typ, ok := v.LookupVar(base.Name)
		if !ok {
			return false
		}
		switch typT := typ.(type) {
		case *types.Dict:
			return types.IsUnknown(typT.Value) || types.IsDV(typT.Value)
		case *types.List:
			return types.IsUnknown(typT.Elem)
		}
		return types.IsUnknown(typ)
	case *hir.Var:
		typ, ok := v.LookupVar(xT.Name)
		return ok && isDVType(typ)
	case *hir.Binary:
		if xT.Op.IsComparison() || xT.Op.IsLogical() {
			return false
		}
		return producesDV(v, xT.X)
	case *hir.Unary:
		if xT.Op == hir.Not {
			return false
		}
		return producesDV(v, xT.X)
	case *hir.Call:
		ret, ok := v.FunctionReturnType(xT.Func)
		return ok && ret != nil && ret.Kind() != types.TupleKind && isDVType(ret)
	case *hir.Attr:
		if self, ok := xT.X.(*hir.Var); ok && self.Name == "self" {
			typ, ok := v.ClassFieldType(xT.Name)
			return ok && isDVType(typ)
		}
	case *hir.IfExp:
		return producesDV(v, xT.Then) && producesDV(v, xT.Else)
	}
	return false
}

// isDVType returns true if a type is lowered to DynValue: unknown, Any or object.
func isDVType(t types.Type) bool {
	if types.IsUnknown(t) {
		return true
	}
	custom, ok := t.(*types.Custom)
	return ok && custom.Name == types.DVName
}

// IsNativeDVTuple returns true if the expression evaluates to a native Rust tuple
// with DynValue elements, such as the result of a function returning Tuple[Any, int].
// Elements are accessed positionally with .0, .1, ...
func IsNativeDVTuple(v genctx.View, x hir.Expr) bool {
	if !v.Flag(genctx.NasaMode) {
		return false
	}
	var typ types.Type
	switch xT := x.(type) {
	case *hir.Call:
		ret, ok := v.FunctionReturnType(xT.Func)
		if !ok {
			return false
		}
		typ = ret
	case *hir.Var:
		varType, ok := v.LookupVar(xT.Name)
		if !ok {
			return false
		}
		typ = varType
	default:
		return false
	}
	tuple, ok := typ.(*types.Tuple)
	if !ok {
		return false
	}
	for _, elem := range tuple.Elems {
		if isDVType(elem) {
			return true
		}
	}
	return false
}

// Extraction is the conversion of a DynValue into a concrete type:
// a method call on the value optionally followed by a cast.
type Extraction struct {
	Method string
	Cast   string
}

// DVExtraction returns the conversion of a DynValue into a value of the target type.
// It returns false if the type has no scalar extraction.
func DVExtraction(target types.Type) (Extraction, bool) {
	switch target.Kind() {
	case types.IntKind:
		return Extraction{Method: "to_i64", Cast: "i32"}, true
	case types.FloatKind:
		return Extraction{Method: "to_f64"}, true
	case types.StringKind:
		return Extraction{Method: "to_string"}, true
	case types.BoolKind:
		return Extraction{Method: "to_bool"}, true
	}
	return Extraction{}, false
}
