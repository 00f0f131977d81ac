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

	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
)

// Modules are the standard modules with a Rust translation.
var Modules = []string{"math", "os", "sys", "time", "json", "re"}

// Types of values of the translated standard modules.
var (
	// MatchType is the type of the result of a regular expression match.
	MatchType = types.NewOptional(types.CustomOf("Captures"))
	// RegexType is the type of a compiled regular expression.
	RegexType = types.CustomOf("Regex")
	// JSONType is the type of a decoded JSON document.
	JSONType = types.CustomOf("serde_json::Value")
)

var mathFloat = []string{
	"sqrt", "sin", "cos", "tan", "asin", "acos", "atan", "atan2", "sinh", "cosh", "tanh",
	"exp", "log", "log10", "log2", "pow", "fabs", "hypot", "trunc", "radians", "degrees",
}

// ModuleFuncType returns the type returned by a function of a standard module.
// The function is named by its path, for example os.path.join.
func ModuleFuncType(path string, nargs int) (types.Type, bool) {
	mod, fn := splitModulePath(path)
	switch mod {
	case "math":
		switch {
		case slices.Contains(mathFloat, fn):
			return types.FloatType(), true
		case fn == "floor" || fn == "ceil" || fn == "factorial" || fn == "gcd":
			return types.IntType(), true
		case fn == "isnan" || fn == "isinf" || fn == "isfinite" || fn == "isclose":
			return types.BoolType(), true
		}
	case "os":
		switch fn {
		case "getenv":
			if nargs > 1 {
				return types.StringType(), true
			}
			return types.NewOptional(types.StringType()), true
		case "getcwd", "path.join", "path.basename", "path.dirname", "path.abspath":
			return types.StringType(), true
		case "path.exists", "path.isfile", "path.isdir":
			return types.BoolType(), true
		case "listdir":
			return types.ListOf(types.StringType()), true
		case "remove", "makedirs", "mkdir":
			return types.NoneType(), true
		}
	case "sys":
		if fn == "exit" {
			return types.NoneType(), true
		}
	case "time":
		switch fn {
		case "time", "perf_counter", "monotonic":
			return types.FloatType(), true
		case "sleep":
			return types.NoneType(), true
		}
	case "json":
		switch fn {
		case "dumps":
			return types.StringType(), true
		case "loads", "load":
			return JSONType, true
		}
	case "re":
		switch fn {
		case "match", "search", "fullmatch":
			return MatchType, true
		case "findall", "split":
			return types.ListOf(types.StringType()), true
		case "sub":
			return types.StringType(), true
		case "compile":
			return RegexType, true
		}
	}
	return nil, false
}

func splitModulePath(path string) (string, string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}

// ModulePath returns the dotted path of a standard module referenced by an expression,
// such as os.path. It returns false if the root of the path is shadowed by a variable.
func ModulePath(v genctx.View, x hir.Expr) (string, bool) {
	switch xT := x.(type) {
	case *hir.Var:
		if !slices.Contains(Modules, xT.Name) {
			return "", false
		}
		if _, local := v.LookupVar(xT.Name); local {
			return "", false
		}
		return xT.Name, true
	case *hir.Attr:
		root, ok := ModulePath(v, xT.X)
		if !ok {
			return "", false
		}
		return root + "." + xT.Name, true
	}
	return "", false
}

// regexMethodType returns the type returned by a method of a compiled regular expression.
func regexMethodType(method string) (types.Type, bool) {
	switch method {
	case "match", "search", "fullmatch":
		return MatchType, true
	case "findall", "split":
		return types.ListOf(types.StringType()), true
	case "sub":
		return types.StringType(), true
	}
	return nil, false
}

// matchMethodType returns the type returned by a method of a match.
func matchMethodType(method string) (types.Type, bool) {
	switch method {
	case "group":
		return types.StringType(), true
	case "start", "end":
		return types.IntType(), true
	}
	return nil, false
}
