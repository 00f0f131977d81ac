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

// Package infer answers questions about HIR expressions:
// their type, whether they are dictionaries, numeric arrays, options, iterators, ...
//
// All functions are pure: they read the translation context through a genctx.View
// and never modify it.
package infer

import (
	"slices"
	"strings"
	"unicode"

	"github.com/gx-org/pyrs/base/uname"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/pkg/errors"
)

// ReturnsUnsignedLength returns true if the expression evaluates to a usize in Rust:
// a length, a count, a capacity or a range.
// A cast to a signed integer is required at the use site.
func ReturnsUnsignedLength(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.MethodCall:
		switch xT.Method {
		case "len", "count", "capacity":
			return true
		}
	case *hir.Call:
		return xT.Func == "len" || xT.Func == "range"
	case *hir.Binary:
		return ReturnsUnsignedLength(xT.X) || ReturnsUnsignedLength(xT.Y)
	}
	return false
}

var iteratorMethods = []string{
	"iter", "iter_mut", "into_iter", "map", "filter", "filter_map", "flat_map",
	"enumerate", "zip", "chain", "take", "skip", "take_while", "skip_while",
	"peekable", "fuse", "inspect", "by_ref", "rev", "cycle",
}

// IsIteratorProducing returns true if the expression produces a lazy iterator
// instead of a collection.
func IsIteratorProducing(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.GenExp:
		return true
	case *hir.MethodCall:
		return slices.Contains(iteratorMethods, xT.Method) || IsIteratorProducing(xT.Recv)
	case *hir.Call:
		switch xT.Func {
		case "iter", "map", "filter", "enumerate", "zip", "reversed":
			return true
		}
	}
	return false
}

// InfersFloat returns true if the expression evaluates to a float.
func InfersFloat(v genctx.View, x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.Lit:
		return xT.Kind == hir.LitFloat
	case *hir.Var:
		typ, ok := v.LookupVar(xT.Name)
		return ok && typ.Kind() == types.FloatKind
	case *hir.Call:
		if ret, ok := v.FunctionReturnType(xT.Func); ok && ret.Kind() == types.FloatKind {
			return true
		}
		typ, ok := v.LookupVar(xT.Func)
		if !ok {
			return false
		}
		switch fnT := typ.(type) {
		case *types.Function:
			return fnT.Ret.Kind() == types.FloatKind
		case *types.Generic:
			return fnT.Base == "Callable" && len(fnT.Params) == 2 && fnT.Params[1].Kind() == types.FloatKind
		}
	case *hir.Binary:
		switch xT.Op {
		case hir.Mul, hir.Div, hir.Add, hir.Sub, hir.Mod, hir.Pow:
			return InfersFloat(v, xT.X) || InfersFloat(v, xT.Y)
		}
	case *hir.Unary:
		return InfersFloat(v, xT.X)
	case *hir.IfExp:
		return InfersFloat(v, xT.Then) && InfersFloat(v, xT.Else)
	}
	return false
}

// numpyNames are variable names assumed to hold numeric arrays when their type is unknown.
var numpyNames = []string{"arr", "array", "data", "values", "vec", "vector"}

var numpyConstructors = []string{"array", "zeros", "ones", "empty", "linspace", "arange", "full", "copy"}

var numpyElementwise = []string{"abs", "sqrt", "sin", "cos", "exp", "log", "clip", "clamp", "normalize"}

var numpyMethods = []string{"abs", "sqrt", "sin", "cos", "exp", "log", "clip", "clamp", "unwrap", "scale"}

// NumpyFunc returns the name of a numpy function called by an expression,
// accepting both np.zeros(...) as a method call on the module and a lowered zeros(...) call.
func NumpyFunc(x hir.Expr) (string, []hir.Expr, []*hir.Keyword, bool) {
	switch xT := x.(type) {
	case *hir.Call:
		name := xT.Func
		for _, prefix := range []string{"np.", "numpy."} {
			name = strings.TrimPrefix(name, prefix)
		}
		return name, xT.Args, xT.Kwargs, true
	case *hir.MethodCall:
		if mod, ok := xT.Recv.(*hir.Var); ok && (mod.Name == "np" || mod.Name == "numpy") {
			return xT.Method, xT.Args, xT.Kwargs, true
		}
	}
	return "", nil, nil, false
}

// IsNumpyValue returns true if the expression evaluates to a numeric array.
// Element-wise math functions are arrays only if their argument is an array.
func IsNumpyValue(v genctx.View, x hir.Expr) bool {
	if name, args, _, ok := NumpyFunc(x); ok {
		if slices.Contains(numpyConstructors, name) {
			return true
		}
		if slices.Contains(numpyElementwise, name) {
			return len(args) > 0 && IsNumpyValue(v, args[0])
		}
	}
	switch xT := x.(type) {
	case *hir.MethodCall:
		if slices.Contains(numpyMethods, xT.Method) {
			return IsNumpyValue(v, xT.Recv)
		}
	case *hir.Binary:
		if xT.Op.IsComparison() || xT.Op.IsLogical() {
			return false
		}
		return IsNumpyValue(v, xT.X) || IsNumpyValue(v, xT.Y)
	case *hir.IfExp:
		return IsNumpyValue(v, xT.Then) || IsNumpyValue(v, xT.Else)
	case *hir.Var:
		if v.IsNumpyVar(xT.Name) {
			return true
		}
		if typ, ok := v.LookupVar(xT.Name); ok {
			if g, isGeneric := typ.(*types.Generic); isGeneric && g.Base == "ndarray" {
				return true
			}
		}
		return NumpyNameHeuristic(v, xT.Name)
	}
	return false
}

// NumpyNameHeuristic returns true if a variable of unknown type is assumed
// to be a numeric array because of its name.
// Temporaries never match and the heuristic is disabled in NASA mode.
func NumpyNameHeuristic(v genctx.View, name string) bool {
	if uname.IsTemp(name) || !heuristicsEnabled(v, name) {
		return false
	}
	return slices.Contains(numpyNames, name)
}

// heuristicsEnabled returns true if name heuristics can be applied to a variable:
// the translation is not in NASA mode and the type of the variable is unknown.
func heuristicsEnabled(v genctx.View, name string) bool {
	if v.Flag(genctx.NasaMode) {
		return false
	}
	typ, ok := v.LookupVar(name)
	return !ok || typ.Kind() == types.UnknownKind
}

var numpyAggregations = []string{"sum", "mean", "std", "var", "min", "max", "prod", "dot", "norm"}

// ReturnsF64 returns true if the expression is a numpy aggregation, which always returns a float.
func ReturnsF64(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.MethodCall:
		if mod, ok := xT.Recv.(*hir.Var); ok && (mod.Name == "np" || mod.Name == "numpy") {
			return slices.Contains(numpyAggregations, xT.Method)
		}
		if slices.Contains(numpyAggregations, xT.Method) {
			return true
		}
		if inner, ok := xT.Recv.(*hir.MethodCall); ok && xT.Method == "sum" {
			return inner.Method == "map" || inner.Method == "iter"
		}
	case *hir.Call:
		parts := strings.Split(xT.Func, ".")
		if len(parts) >= 2 && (parts[0] == "np" || parts[0] == "numpy") {
			return slices.Contains(numpyAggregations, parts[len(parts)-1])
		}
	case *hir.Unary:
		return ReturnsF64(xT.X)
	}
	return false
}

// NeedsTypeConversion returns true if assigning the expression to a variable
// of the given declared type requires an explicit conversion.
func NeedsTypeConversion(target types.Type, x hir.Expr) bool {
	switch target.Kind() {
	case types.IntKind:
		return ReturnsUnsignedLength(x) || ReturnsF64(x)
	case types.StringKind:
		_, isVar := x.(*hir.Var)
		return isVar
	}
	return false
}

// IsPure returns true if evaluating the expression has no side effect.
// Calls are never pure.
func IsPure(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.Lit, *hir.Var:
		return true
	case *hir.Binary:
		return IsPure(xT.X) && IsPure(xT.Y)
	case *hir.Unary:
		return IsPure(xT.X)
	case *hir.TupleLit:
		return allPure(xT.Elts)
	case *hir.ListLit:
		return allPure(xT.Elts)
	case *hir.Attr:
		return IsPure(xT.X)
	}
	return false
}

func allPure(xs []hir.Expr) bool {
	for _, x := range xs {
		if !IsPure(x) {
			return false
		}
	}
	return true
}

// LooksLikeOption returns true if the expression evaluates to an Option.
func LooksLikeOption(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.MethodCall:
		switch xT.Method {
		case "ok", "first", "last", "pop", "next", "match", "search", "fullmatch":
			return true
		case "get":
			if len(xT.Args) == 1 {
				return true
			}
		}
		return LooksLikeOption(xT.Recv)
	case *hir.Call:
		return xT.Func == "next"
	}
	return false
}

// IsFileCreating returns true if the expression opens or creates a file.
func IsFileCreating(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.Call:
		return xT.Func == "open"
	case *hir.MethodCall:
		if xT.Method != "create" && xT.Method != "open" {
			return false
		}
		switch recv := xT.Recv.(type) {
		case *hir.Var:
			return recv.Name == "File"
		case *hir.Attr:
			return recv.Name == "File"
		}
	}
	return false
}

// IsReadOnlyOpen returns true if the expression opens a file for reading only.
func IsReadOnlyOpen(x hir.Expr) bool {
	call, ok := x.(*hir.Call)
	if !ok || call.Func != "open" {
		return false
	}
	var mode hir.Expr
	if len(call.Args) > 1 {
		mode = call.Args[1]
	}
	for _, kw := range call.Kwargs {
		if kw.Name == "mode" {
			mode = kw.Value
		}
	}
	if mode == nil {
		return true
	}
	lit, ok := mode.(*hir.Lit)
	return ok && lit.Kind == hir.LitStr && strings.Trim(lit.Text, "bt") == "r"
}

// IsStdio returns true if the expression is sys.stdout or sys.stderr.
func IsStdio(x hir.Expr) bool {
	attr, ok := x.(*hir.Attr)
	if !ok || (attr.Name != "stdout" && attr.Name != "stderr") {
		return false
	}
	mod, ok := attr.X.(*hir.Var)
	return ok && mod.Name == "sys"
}

func isChainableArith(x hir.Expr) bool {
	bin, ok := x.(*hir.Binary)
	if !ok {
		return false
	}
	switch bin.Op {
	case hir.Add, hir.Sub, hir.Mul, hir.Div, hir.Mod:
		return true
	}
	return false
}

func isDirectChainedArith(x hir.Expr) bool {
	if !isChainableArith(x) {
		return false
	}
	bin := x.(*hir.Binary)
	return isChainableArith(bin.X) || isChainableArith(bin.Y)
}

// HasChainedArith returns true if an arithmetic operation has an arithmetic operand.
// Calls and tuples are looked through.
// The Rust compiler cannot infer intermediate types of such chains when they go through
// the arithmetic protocol traits.
func HasChainedArith(x hir.Expr) bool {
	switch xT := x.(type) {
	case *hir.Binary:
		return isDirectChainedArith(xT)
	case *hir.Call:
		return slices.ContainsFunc(xT.Args, HasChainedArith)
	case *hir.TupleLit:
		return slices.ContainsFunc(xT.Elts, HasChainedArith)
	}
	return false
}

// WrappedChainedArith returns the chained arithmetic wrapped in Ok(...) or Some(...), nil otherwise.
func WrappedChainedArith(x hir.Expr) hir.Expr {
	call, ok := x.(*hir.Call)
	if !ok || (call.Func != "Ok" && call.Func != "Some") || len(call.Args) != 1 {
		return nil
	}
	if !isDirectChainedArith(call.Args[0]) {
		return nil
	}
	return call.Args[0]
}

// dictNames are substrings of variable names assumed to hold dictionaries when their type is unknown.
var dictNames = []string{"dict", "cfg", "config", "settings", "params", "options", "env", "json"}

// IsDictIndexAccess returns true if a subscript reads a dictionary:
// the key is a string literal or the base is named like a dictionary.
func IsDictIndexAccess(x hir.Expr) bool {
	idx, ok := x.(*hir.Index)
	if !ok {
		return false
	}
	if lit, ok := idx.Index.(*hir.Lit); ok && lit.Kind == hir.LitStr {
		return true
	}
	base, ok := idx.X.(*hir.Var)
	if !ok {
		return false
	}
	return isDictName(base.Name)
}

func isDictName(name string) bool {
	if uname.IsTemp(name) {
		return false
	}
	if name == "d" || name == "m" {
		return true
	}
	for _, sub := range dictNames {
		if strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

// ContainsFloorDiv returns true if the expression contains a floor division.
func ContainsFloorDiv(x hir.Expr) bool {
	found := false
	hir.Inspect(x, func(n hir.Node) bool {
		if bin, ok := n.(*hir.Binary); ok && bin.Op == hir.FloorDiv {
			found = true
		}
		_, isLambda := n.(*hir.Lambda)
		return !found && !isLambda
	})
	return found
}

// FloorDivDivisor returns the divisor of the first floor division of the expression.
func FloorDivDivisor(x hir.Expr) (hir.Expr, error) {
	switch xT := x.(type) {
	case *hir.Binary:
		if xT.Op == hir.FloorDiv {
			return xT.Y, nil
		}
		if ContainsFloorDiv(xT.X) {
			return FloorDivDivisor(xT.X)
		}
		if ContainsFloorDiv(xT.Y) {
			return FloorDivDivisor(xT.Y)
		}
	case *hir.Unary:
		return FloorDivDivisor(xT.X)
	}
	return nil, errors.Errorf("no floor division found in expression")
}

// HandlerEndsWithExit returns true if the last statement of an except handler exits the process.
func HandlerEndsWithExit(body []hir.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	stmt, ok := body[len(body)-1].(*hir.ExprStmt)
	if !ok {
		return false
	}
	switch xT := stmt.X.(type) {
	case *hir.Call:
		return xT.Func == "exit" || xT.Func == "sys.exit"
	case *hir.MethodCall:
		mod, ok := xT.Recv.(*hir.Var)
		return ok && mod.Name == "sys" && xT.Method == "exit"
	}
	return false
}

// HandlerContainsRaise returns true if an except handler raises at its top level.
func HandlerContainsRaise(body []hir.Stmt) bool {
	return slices.ContainsFunc(body, func(s hir.Stmt) bool {
		_, ok := s.(*hir.Raise)
		return ok
	})
}

// PascalCase converts a snake-case or kebab-case name into PascalCase.
func PascalCase(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' }) {
		runes := []rune(word)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// IsDictWithValueType returns true if a dictionary type has dynamic values:
// unknown, Any, or a JSON value.
func IsDictWithValueType(t types.Type) bool {
	dict, ok := t.(*types.Dict)
	if !ok {
		return false
	}
	if types.IsUnknown(dict.Value) {
		return true
	}
	custom, ok := dict.Value.(*types.Custom)
	return ok && (strings.Contains(custom.Name, "Value") || strings.Contains(custom.Name, "json"))
}

// IsDictAugAssignPattern returns true for d[k] = d[k] op v where d and k are the same variables.
// Such assignments are lowered into an in-place update of the dictionary entry.
func IsDictAugAssignPattern(target hir.Target, value hir.Expr) bool {
	tgt, ok := target.(*hir.IndexTarget)
	if !ok {
		return false
	}
	bin, ok := value.(*hir.Binary)
	if !ok || !bin.Op.IsArith() {
		return false
	}
	left, ok := bin.X.(*hir.Index)
	if !ok {
		return false
	}
	return sameVar(tgt.X, left.X) && sameVar(tgt.Index, left.Index)
}

func sameVar(a, b hir.Expr) bool {
	va, okA := a.(*hir.Var)
	vb, okB := b.(*hir.Var)
	return okA && okB && va.Name == vb.Name
}
