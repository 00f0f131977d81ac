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
	"slices"
	"strings"

	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
)

// String methods returning a string.
var stringToString = []string{
	"lower", "upper", "strip", "lstrip", "rstrip", "replace", "capitalize", "title",
	"swapcase", "center", "ljust", "rjust", "zfill", "expandtabs", "format", "join",
	"casefold", "removeprefix", "removesuffix",
}

// String methods returning a boolean.
var stringToBool = []string{
	"startswith", "endswith", "isalpha", "isdigit", "isalnum", "isspace", "islower",
	"isupper", "istitle", "isnumeric", "isdecimal", "isascii", "isidentifier", "isprintable",
}

// TypeOf returns the type of an expression.
// It returns Unknown when the type cannot be inferred without running the program.
func TypeOf(v genctx.View, x hir.Expr) types.Type {
	switch xT := x.(type) {
	case *hir.Lit:
		return xT.Type()
	case *hir.Var:
		if typ, ok := v.LookupVar(xT.Name); ok {
			return typ
		}
		if v.IsNumpyVar(xT.Name) {
			return types.GenericOf("ndarray", types.FloatType())
		}
	case *hir.Binary:
		return typeOfBinary(v, xT)
	case *hir.Unary:
		if xT.Op == hir.Not {
			return types.BoolType()
		}
		return TypeOf(v, xT.X)
	case *hir.Call:
		return typeOfCall(v, xT)
	case *hir.MethodCall:
		return typeOfMethodCall(v, xT)
	case *hir.DynCall:
		if fn, ok := TypeOf(v, xT.Callee).(*types.Function); ok {
			return fn.Ret
		}
	case *hir.Attr:
		return typeOfAttr(v, xT)
	case *hir.Index:
		return typeOfIndex(v, xT)
	case *hir.Slice:
		return TypeOf(v, xT.X)
	case *hir.ListLit:
		return types.ListOf(joinAll(v, xT.Elts))
	case *hir.SetLit:
		return types.SetOf(joinAll(v, xT.Elts))
	case *hir.FrozenSetLit:
		return types.SetOf(joinAll(v, xT.Elts))
	case *hir.TupleLit:
		elems := make([]types.Type, len(xT.Elts))
		for i, elt := range xT.Elts {
			elems[i] = TypeOf(v, elt)
		}
		return types.TupleOf(elems...)
	case *hir.DictLit:
		return types.DictOf(joinAll(v, xT.Keys), joinAll(v, xT.Values))
	case *hir.ListComp:
		return types.ListOf(TypeOf(v, xT.Elt))
	case *hir.SetComp:
		return types.SetOf(TypeOf(v, xT.Elt))
	case *hir.DictComp:
		return types.DictOf(TypeOf(v, xT.Key), TypeOf(v, xT.Value))
	case *hir.GenExp:
		return types.GenericOf("Iterator", TypeOf(v, xT.Elt))
	case *hir.IfExp:
		return types.Join(TypeOf(v, xT.Then), TypeOf(v, xT.Else))
	case *hir.FString:
		return types.StringType()
	case *hir.Await:
		return TypeOf(v, xT.X)
	case *hir.Borrow:
		return TypeOf(v, xT.X)
	case *hir.NamedExpr:
		return TypeOf(v, xT.Value)
	case *hir.SortByKey:
		return types.ListOf(types.ElemOf(TypeOf(v, xT.Iter)))
	}
	return types.UnknownType()
}

// joinAll returns the join of the types of all the expressions.
// The join of no expression is Unknown.
func joinAll(v genctx.View, xs []hir.Expr) types.Type {
	var typ types.Type
	for _, x := range xs {
		typ = types.Join(typ, TypeOf(v, x))
	}
	if typ == nil {
		return types.UnknownType()
	}
	return typ
}

// isNaturalLit returns true if x is a non-negative integer literal.
// An integer raised to any other exponent may be a float.
func isNaturalLit(x hir.Expr) bool {
	lit, ok := x.(*hir.Lit)
	if !ok {
		return false
	}
	v := lit.Int()
	return v != nil && v.Sign() >= 0
}

func typeOfBinary(v genctx.View, x *hir.Binary) types.Type {
	if x.Op.IsComparison() {
		return types.BoolType()
	}
	left, right := TypeOf(v, x.X), TypeOf(v, x.Y)
	if x.Op.IsLogical() {
		return types.Join(left, right)
	}
	if IsNumpyValue(v, x) {
		return types.GenericOf("ndarray", types.FloatType())
	}
	switch x.Op {
	case hir.Div:
		return types.FloatType()
	case hir.Add:
		if left.Kind() == types.StringKind || right.Kind() == types.StringKind {
			return types.StringType()
		}
		if left.Kind() == types.ListKind {
			return left
		}
	case hir.Mul:
		if left.Kind() == types.StringKind || right.Kind() == types.StringKind {
			return types.StringType()
		}
		if left.Kind() == types.ListKind && right.Kind() == types.IntKind {
			return left
		}
	case hir.Sub:
		if left.Kind() == types.SetKind {
			return left
		}
	case hir.Pow:
		if left.Kind() == types.IntKind && right.Kind() == types.IntKind && !isNaturalLit(x.Y) {
			return types.FloatType()
		}
	}
	if x.Op.IsBitwise() && left.Kind() == types.SetKind {
		return left
	}
	switch {
	case left.Kind() == types.IntKind && right.Kind() == types.IntKind:
		return types.IntType()
	case types.IsNumeric(left) && types.IsNumeric(right):
		return types.FloatType()
	}
	if InfersFloat(v, x) {
		return types.FloatType()
	}
	return types.UnknownType()
}

func typeOfCall(v genctx.View, x *hir.Call) types.Type {
	if ret, ok := v.FunctionReturnType(x.Func); ok && ret != nil {
		return ret
	}
	if v.IsClass(x.Func) {
		return types.CustomOf(x.Func)
	}
	if IsNumpyValue(v, x) {
		return types.GenericOf("ndarray", types.FloatType())
	}
	if ReturnsF64(x) {
		return types.FloatType()
	}
	if typ, ok := ModuleFuncType(x.Func, len(x.Args)); ok {
		return typ
	}
	arg := func(i int) types.Type {
		if i >= len(x.Args) {
			return types.UnknownType()
		}
		return TypeOf(v, x.Args[i])
	}
	switch x.Func {
	case "round":
		if len(x.Args) == 2 {
			return types.FloatType()
		}
		return types.IntType()
	case "len", "ord", "id", "hash", "int":
		return types.IntType()
	case "float":
		return types.FloatType()
	case "bool", "isinstance", "hasattr", "any", "all", "callable":
		return types.BoolType()
	case "str", "chr", "repr", "input", "hex", "bin", "oct", "format":
		return types.StringType()
	case "abs":
		return arg(0)
	case "sum":
		if elem := types.ElemOf(arg(0)); types.IsNumeric(elem) {
			return elem
		}
		return types.IntType()
	case "min", "max":
		if len(x.Args) == 1 {
			return types.ElemOf(arg(0))
		}
		return joinAll(v, x.Args)
	case "list", "sorted":
		return types.ListOf(types.ElemOf(arg(0)))
	case "set", "frozenset":
		return types.SetOf(types.ElemOf(arg(0)))
	case "tuple":
		return types.ListOf(types.ElemOf(arg(0)))
	case "dict":
		if dict, ok := arg(0).(*types.Dict); ok {
			return dict
		}
		return types.DictOf(types.UnknownType(), types.UnknownType())
	case "range":
		return types.GenericOf("Iterator", types.IntType())
	case "reversed", "iter", "filter":
		return types.GenericOf("Iterator", types.ElemOf(arg(0)))
	case "enumerate":
		return types.GenericOf("Iterator", types.TupleOf(types.IntType(), types.ElemOf(arg(0))))
	case "zip":
		elems := make([]types.Type, len(x.Args))
		for i := range x.Args {
			elems[i] = types.ElemOf(arg(i))
		}
		return types.GenericOf("Iterator", types.TupleOf(elems...))
	case "open":
		return types.CustomOf("File")
	case "divmod":
		return types.TupleOf(arg(0), arg(0))
	}
	return types.UnknownType()
}

func typeOfMethodCall(v genctx.View, x *hir.MethodCall) types.Type {
	if IsIteratorProducing(x.Recv) {
		switch x.Method {
		case "count":
			return types.IntType()
		case "sum", "product":
			if elem := IteratorElem(v, x.Recv); types.IsNumeric(elem) {
				return elem
			}
		}
		if slices.Contains(iteratorMethods, x.Method) {
			return types.GenericOf("Iterator", IteratorElem(v, x))
		}
	}
	if slices.Contains(collectionIters, x.Method) {
		switch TypeOf(v, x.Recv).Kind() {
		case types.ListKind, types.SetKind:
			return types.GenericOf("Iterator", IteratorElem(v, x))
		}
	}
	if ReturnsF64(x) {
		return types.FloatType()
	}
	if IsNumpyValue(v, x) {
		return types.GenericOf("ndarray", types.FloatType())
	}
	if mod, ok := ModulePath(v, x.Recv); ok {
		if typ, ok := ModuleFuncType(mod+"."+x.Method, len(x.Args)); ok {
			return typ
		}
		return types.UnknownType()
	}
	if IsRegexExpr(v, x.Recv) {
		if typ, ok := regexMethodType(x.Method); ok {
			return typ
		}
	}
	recv := TypeOf(v, x.Recv)
	if types.Equal(recv, MatchType) {
		if typ, ok := matchMethodType(x.Method); ok {
			return typ
		}
	}
	switch recvT := recv.(type) {
	case *types.Dict:
		switch x.Method {
		case "get":
			if len(x.Args) == 1 {
				return types.NewOptional(recvT.Value)
			}
			return recvT.Value
		case "pop", "setdefault":
			return recvT.Value
		case "keys":
			return types.ListOf(recvT.Key)
		case "values":
			return types.ListOf(recvT.Value)
		case "items":
			return types.ListOf(types.TupleOf(recvT.Key, recvT.Value))
		case "copy":
			return recvT
		}
	case *types.List:
		switch x.Method {
		case "pop":
			return recvT.Elem
		case "index", "count":
			return types.IntType()
		case "copy":
			return recvT
		}
	case *types.Set:
		switch x.Method {
		case "union", "intersection", "difference", "symmetric_difference", "copy":
			return recvT
		case "issubset", "issuperset", "isdisjoint":
			return types.BoolType()
		case "pop":
			return recvT.Elem
		}
	}
	if recv.Kind() == types.StringKind || IsStringExpr(v, x.Recv) {
		switch {
		case slices.Contains(stringToString, x.Method):
			return types.StringType()
		case slices.Contains(stringToBool, x.Method):
			return types.BoolType()
		case x.Method == "split" || x.Method == "rsplit" || x.Method == "splitlines":
			return types.ListOf(types.StringType())
		case x.Method == "find" || x.Method == "rfind" || x.Method == "count" || x.Method == "index":
			return types.IntType()
		case x.Method == "partition" || x.Method == "rpartition":
			return types.TupleOf(types.StringType(), types.StringType(), types.StringType())
		case x.Method == "encode":
			return types.GenericOf("bytes")
		}
	}
	if custom, ok := recv.(*types.Custom); ok && custom.Name == "File" {
		switch x.Method {
		case "read", "readline":
			return types.StringType()
		case "readlines":
			return types.ListOf(types.StringType())
		case "write":
			return types.IntType()
		}
	}
	return types.UnknownType()
}

// Methods iterating over a collection.
var collectionIters = []string{"iter", "iter_mut", "into_iter"}

// Iterator adapters producing the elements of their receiver.
var elemPreserving = []string{
	"iter", "iter_mut", "into_iter", "filter", "take", "skip", "take_while", "skip_while",
	"peekable", "fuse", "inspect", "by_ref", "rev", "cycle", "chain", "cloned", "copied",
}

// IteratorElem returns the type of the elements produced by an iterator chain.
// A map is typed only when its closure is an arithmetic expression.
func IteratorElem(v genctx.View, x hir.Expr) types.Type {
	call, ok := x.(*hir.MethodCall)
	if !ok {
		return types.ElemOf(TypeOf(v, x))
	}
	switch {
	case slices.Contains(elemPreserving, call.Method):
		return IteratorElem(v, call.Recv)
	case call.Method == "map" && len(call.Args) == 1:
		lambda, ok := call.Args[0].(*hir.Lambda)
		if !ok {
			return types.UnknownType()
		}
		bin, ok := lambda.Body.(*hir.Binary)
		if !ok || !bin.Op.IsArith() {
			return types.UnknownType()
		}
		if InfersFloat(v, bin.X) || InfersFloat(v, bin.Y) || bin.Op == hir.Div {
			return types.FloatType()
		}
		return IteratorElem(v, call.Recv)
	case slices.Contains(iteratorMethods, call.Method):
		return types.UnknownType()
	}
	return types.ElemOf(TypeOf(v, call))
}

func typeOfAttr(v genctx.View, x *hir.Attr) types.Type {
	if recv, ok := x.X.(*hir.Var); ok {
		switch {
		case recv.Name == "self":
			if typ, ok := v.ClassFieldType(x.Name); ok {
				return typ
			}
		case recv.Name == "sys" && x.Name == "argv":
			return types.ListOf(types.StringType())
		case recv.Name == "math" && (x.Name == "pi" || x.Name == "e" || x.Name == "inf" || x.Name == "tau" || x.Name == "nan"):
			return types.FloatType()
		case recv.Name == "sys" && x.Name == "maxsize":
			return types.IntType()
		case recv.Name == "sys" && x.Name == "platform", recv.Name == "os" && (x.Name == "sep" || x.Name == "linesep"):
			return types.StringType()
		case recv.Name == "os" && x.Name == "environ":
			return types.DictOf(types.StringType(), types.StringType())
		}
	}
	return types.UnknownType()
}

func typeOfIndex(v genctx.View, x *hir.Index) types.Type {
	base := TypeOf(v, x.X)
	switch baseT := base.(type) {
	case *types.List:
		return baseT.Elem
	case *types.Dict:
		return baseT.Value
	case *types.Tuple:
		if lit, ok := x.Index.(*hir.Lit); ok {
			if i := lit.Int(); i != nil && i.IsInt64() {
				n := int(i.Int64())
				if n < 0 {
					n += len(baseT.Elems)
				}
				if n >= 0 && n < len(baseT.Elems) {
					return baseT.Elems[n]
				}
			}
		}
	case *types.Generic:
		if baseT.Base == "ndarray" {
			return types.FloatType()
		}
	}
	if base.Kind() == types.StringKind {
		return types.StringType()
	}
	return types.UnknownType()
}

// IsDictExpr returns true if the expression evaluates to a dictionary.
// A variable of unknown type is a dictionary if its name looks like a configuration table.
func IsDictExpr(v genctx.View, x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.DictLit, *hir.DictComp:
		return true
	case *hir.Call:
		if xT.Func == "dict" {
			return true
		}
	case *hir.Var:
		if DictNameHeuristic(v, xT.Name) {
			return true
		}
	}
	return TypeOf(v, x).Kind() == types.DictKind
}

// DictNameHeuristic returns true if a variable of unknown type is assumed to be
// a dictionary because of its name.
func DictNameHeuristic(v genctx.View, name string) bool {
	return heuristicsEnabled(v, name) && isDictName(name)
}

// IsListExpr returns true if the expression evaluates to a list.
func IsListExpr(v genctx.View, x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.ListLit, *hir.ListComp:
		return true
	case *hir.Call:
		if xT.Func == "list" || xT.Func == "sorted" {
			return true
		}
	}
	return TypeOf(v, x).Kind() == types.ListKind
}

// IsSetExpr returns true if the expression evaluates to a set.
func IsSetExpr(v genctx.View, x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.SetLit, *hir.FrozenSetLit, *hir.SetComp:
		return true
	case *hir.Call:
		if xT.Func == "set" || xT.Func == "frozenset" {
			return true
		}
	}
	return TypeOf(v, x).Kind() == types.SetKind
}

// IsTupleExpr returns true if the expression evaluates to a tuple.
func IsTupleExpr(v genctx.View, x hir.Expr) bool {
	if _, ok := x.(*hir.TupleLit); ok {
		return true
	}
	return TypeOf(v, x).Kind() == types.TupleKind
}

// IsStringExpr returns true if the expression evaluates to a string.
func IsStringExpr(v genctx.View, x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.Lit:
		return xT.Kind == hir.LitStr
	case *hir.FString:
		return true
	case *hir.Var:
		typ, ok := v.LookupVar(xT.Name)
		return ok && typ.Kind() == types.StringKind
	case *hir.MethodCall:
		if slices.Contains(stringToString, xT.Method) {
			return xT.Method == "join" || IsStringExpr(v, xT.Recv)
		}
	case *hir.Binary:
		if xT.Op == hir.Add {
			return IsStringExpr(v, xT.X) || IsStringExpr(v, xT.Y)
		}
	}
	return TypeOf(v, x).Kind() == types.StringKind
}

// IsBoolReturning returns true if the expression evaluates to a boolean.
func IsBoolReturning(v genctx.View, x hir.Expr) bool {
	return TypeOf(v, x).Kind() == types.BoolKind
}

// IsOptionExpr returns true if the expression evaluates to an Option in Rust.
func IsOptionExpr(v genctx.View, x hir.Expr) bool {
	if TypeOf(v, x).Kind() == types.OptionalKind {
		return true
	}
	if call, ok := x.(*hir.MethodCall); ok && call.Method == "get" && len(call.Args) == 1 {
		return IsDictExpr(v, call.Recv)
	}
	return false
}

// IsResultExpr returns true if the expression is a call to a function returning a Result.
func IsResultExpr(v genctx.View, x hir.Expr) bool {
	call, ok := x.(*hir.Call)
	return ok && v.IsResultReturning(call.Func)
}

// IsFileExpr returns true if the expression evaluates to a file handle.
func IsFileExpr(v genctx.View, x hir.Expr) bool {
	if IsFileCreating(x) {
		return true
	}
	custom, ok := TypeOf(v, x).(*types.Custom)
	return ok && (custom.Name == "File" || strings.HasSuffix(custom.Name, "IO"))
}

// IsRegexExpr returns true if the expression evaluates to a compiled regular expression.
func IsRegexExpr(v genctx.View, x hir.Expr) bool {
	if call, ok := x.(*hir.MethodCall); ok {
		if mod, isVar := call.Recv.(*hir.Var); isVar && mod.Name == "re" && call.Method == "compile" {
			return true
		}
	}
	if call, ok := x.(*hir.Call); ok && call.Func == "re.compile" {
		return true
	}
	custom, ok := TypeOf(v, x).(*types.Custom)
	return ok && (custom.Name == "Pattern" || custom.Name == "re.Pattern" || custom.Name == "Regex")
}
