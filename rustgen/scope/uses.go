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

package scope

import (
	"slices"

	"github.com/gx-org/pyrs/build/hir"
)

func isVar(x hir.Expr, name string) bool {
	v, ok := x.(*hir.Var)
	return ok && v.Name == name
}

// anyNode returns true if pred holds for a node of the statements.
// Nodes for which skip returns true are not traversed.
func anyNode(stmts []hir.Stmt, pred, skip func(hir.Node) bool) bool {
	found := false
	hir.InspectStmts(stmts, func(n hir.Node) bool {
		if found {
			return false
		}
		if pred(n) {
			found = true
			return false
		}
		return skip == nil || !skip(n)
	})
	return found
}

var keyMethods = []string{"get", "pop", "setdefault", "contains_key", "insert", "remove", "entry"}

// IsVarUsedAsDictKey returns true if a variable is used as a subscript,
// a key argument of a dictionary method or the left operand of a membership test.
func IsVarUsedAsDictKey(name string, stmts []hir.Stmt) bool {
	return anyNode(stmts, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.Index:
			return isVar(nT.Index, name)
		case *hir.IndexTarget:
			return isVar(nT.Index, name)
		case *hir.MethodCall:
			return slices.Contains(keyMethods, nT.Method) && len(nT.Args) > 0 && isVar(nT.Args[0], name)
		case *hir.Binary:
			return (nT.Op == hir.In || nT.Op == hir.NotIn) && isVar(nT.X, name)
		}
		return false
	}, nil)
}

// IsVarUsedAsFuncArg returns true if a variable is passed directly as an argument of a call.
func IsVarUsedAsFuncArg(name string, stmts []hir.Stmt) bool {
	is := func(x hir.Expr) bool { return isVar(x, name) }
	return anyNode(stmts, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.Call:
			return slices.ContainsFunc(nT.Args, is)
		case *hir.MethodCall:
			return slices.ContainsFunc(nT.Args, is)
		case *hir.DynCall:
			return slices.ContainsFunc(nT.Args, is)
		}
		return false
	}, nil)
}

// IsMethodCalledOn returns true if one of the methods is called on a variable.
func IsMethodCalledOn(name string, stmts []hir.Stmt, methods ...string) bool {
	return anyNode(stmts, func(n hir.Node) bool {
		call, ok := n.(*hir.MethodCall)
		return ok && isVar(call.Recv, name) && slices.Contains(methods, call.Method)
	}, nil)
}

// IsVarInComparison returns true if a variable is an operand of a comparison.
func IsVarInComparison(name string, stmts []hir.Stmt) bool {
	return anyNode(stmts, func(n hir.Node) bool {
		bin, ok := n.(*hir.Binary)
		return ok && bin.Op.IsComparison() && (isVar(bin.X, name) || isVar(bin.Y, name))
	}, nil)
}

func isLoop(n hir.Node) bool {
	switch n.(type) {
	case *hir.For, *hir.While:
		return true
	}
	return isFunc(n)
}

func isFunc(n hir.Node) bool {
	switch n.(type) {
	case *hir.FuncDef, *hir.ClassDef, *hir.Lambda:
		return true
	}
	return false
}

// ContainsContinue returns true if a loop body contains a continue statement
// which applies to the loop itself.
func ContainsContinue(body []hir.Stmt) bool {
	return anyNode(body, func(n hir.Node) bool {
		_, ok := n.(*hir.Continue)
		return ok
	}, isLoop)
}

// ContainsBreak returns true if a loop body contains a break statement
// which applies to the loop itself.
func ContainsBreak(body []hir.Stmt) bool {
	return anyNode(body, func(n hir.Node) bool {
		_, ok := n.(*hir.Break)
		return ok
	}, isLoop)
}

// ContainsYield returns true if a function body yields.
// Nested functions are not traversed.
func ContainsYield(body []hir.Stmt) bool {
	return anyNode(body, func(n hir.Node) bool {
		_, ok := n.(*hir.Yield)
		return ok
	}, isFunc)
}

// ContainsAwait returns true if a function body awaits.
// Nested functions are not traversed.
func ContainsAwait(body []hir.Stmt) bool {
	return anyNode(body, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.Await:
			return true
		case *hir.With:
			return nT.Async
		}
		return false
	}, isFunc)
}

// ContainsReturn returns true if a list of statements returns from the enclosing function.
func ContainsReturn(body []hir.Stmt) bool {
	return anyNode(body, func(n hir.Node) bool {
		_, ok := n.(*hir.Return)
		return ok
	}, isFunc)
}

// ContainsRaise returns true if a list of statements raises an exception.
func ContainsRaise(body []hir.Stmt) bool {
	return anyNode(body, func(n hir.Node) bool {
		_, ok := n.(*hir.Raise)
		return ok
	}, isFunc)
}
