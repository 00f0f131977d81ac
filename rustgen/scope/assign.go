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
	"github.com/gx-org/pyrs/rustgen/infer"
)

// ExtractAssignedSymbols returns all the symbols written by a list of statements,
// in order of first write. Nested control flow is traversed: loop targets,
// with-statement targets, exception names and named expressions are included.
// Nested function definitions are not traversed.
func ExtractAssignedSymbols(stmts []hir.Stmt) []string {
	var set orderedSet
	hir.InspectStmts(stmts, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.FuncDef, *hir.ClassDef:
			return false
		case *hir.Assign:
			addAll(&set, TargetNames(nT.Target))
		case *hir.AugAssign:
			addAll(&set, TargetNames(nT.Target))
		case *hir.For:
			addAll(&set, TargetNames(nT.Target))
		case *hir.With:
			if nT.Target != "" {
				set.add(nT.Target)
			}
		case *hir.ExceptHandler:
			if nT.Name != "" {
				set.add(nT.Name)
			}
		case *hir.NamedExpr:
			set.add(nT.Target)
		case *hir.Lambda:
			return false
		}
		return true
	})
	return set.names
}

func addAll(set *orderedSet, names []string) {
	for _, name := range names {
		set.add(name)
	}
}

// ExtractToplevelAssignedSymbols returns the symbols written at the level of a block:
// if, try, with and block statements are traversed but loops are not.
func ExtractToplevelAssignedSymbols(stmts []hir.Stmt) []string {
	var set orderedSet
	toplevelAssigned(&set, stmts)
	return set.names
}

func toplevelAssigned(set *orderedSet, stmts []hir.Stmt) {
	for _, s := range stmts {
		switch sT := s.(type) {
		case *hir.Assign:
			addAll(set, TargetNames(sT.Target))
		case *hir.AugAssign:
			addAll(set, TargetNames(sT.Target))
		case *hir.If:
			toplevelAssigned(set, sT.Body)
			toplevelAssigned(set, sT.Else)
		case *hir.Try:
			toplevelAssigned(set, sT.Body)
			for _, h := range sT.Handlers {
				toplevelAssigned(set, h.Body)
			}
			toplevelAssigned(set, sT.Else)
			toplevelAssigned(set, sT.Finally)
		case *hir.With:
			if sT.Target != "" {
				set.add(sT.Target)
			}
			toplevelAssigned(set, sT.Body)
		case *hir.Block:
			toplevelAssigned(set, sT.Body)
		}
	}
}

// HoistedSymbols returns the symbols written at the level of the branches of an if statement
// and read by the statements following it. These symbols need to be declared before the if.
func HoistedSymbols(s *hir.If, rest []hir.Stmt) []string {
	var set orderedSet
	toplevelAssigned(&set, s.Body)
	toplevelAssigned(&set, s.Else)
	var hoisted []string
	for _, name := range set.names {
		if IsVarUsedInStmts(name, rest) {
			hoisted = append(hoisted, name)
		}
	}
	return hoisted
}

// IsVarReassignedInStmt returns true if a statement writes a variable,
// including in nested control flow and named expressions.
func IsVarReassignedInStmt(name string, s hir.Stmt) bool {
	return slices.Contains(ExtractAssignedSymbols([]hir.Stmt{s}), name)
}

// IsVarReassignedInStmts returns true if any statement of a list writes a variable.
func IsVarReassignedInStmts(name string, stmts []hir.Stmt) bool {
	return slices.Contains(ExtractAssignedSymbols(stmts), name)
}

// Methods modifying their receiver in place.
var mutatingMethods = []string{
	"append", "extend", "insert", "pop", "remove", "sort", "reverse", "clear",
	"update", "add", "discard", "setdefault", "popitem", "appendleft", "popleft",
	"push", "write", "writelines",
}

// IsMutatingMethod returns true if a method modifies its receiver in place.
func IsMutatingMethod(method string) bool {
	return slices.Contains(mutatingMethods, method)
}

// IsVarMutated returns true if a variable is modified in place by a list of statements:
// a mutating method is called on it, or one of its elements or fields is assigned.
func IsVarMutated(name string, stmts []hir.Stmt) bool {
	isName := func(x hir.Expr) bool {
		v, ok := x.(*hir.Var)
		return ok && v.Name == name
	}
	found := false
	hir.InspectStmts(stmts, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.MethodCall:
			found = found || (isName(nT.Recv) && slices.Contains(mutatingMethods, nT.Method))
		case *hir.IndexTarget:
			found = found || isName(nT.X)
		case *hir.AttrTarget:
			found = found || isName(nT.X)
		case *hir.Borrow:
			found = found || (nT.Mut && isName(nT.X))
		}
		return !found
	})
	return found
}

// Binding is a variable binding hoisted out of a condition.
type Binding struct {
	Name  string
	Value hir.Expr
}

// ExtractWalrusFromCondition hoists the named expressions out of a condition.
// It returns the bindings, innermost first, and the condition in which each
// named expression has been replaced by a reference to its variable.
// The input condition is not modified.
func ExtractWalrusFromCondition(cond hir.Expr) ([]*Binding, hir.Expr) {
	var bindings []*Binding
	simplified := hir.MapExpr(cond, func(x hir.Expr) hir.Expr {
		named, ok := x.(*hir.NamedExpr)
		if !ok {
			return x
		}
		bindings = append(bindings, &Binding{Name: named.Target, Value: named.Value})
		return &hir.Var{Pos: named.Pos, Name: named.Target}
	})
	return bindings, simplified
}

// ContainsWalrus returns true if an expression contains a named expression.
func ContainsWalrus(x hir.Expr) bool {
	return len(CollectWalrusVars(x)) > 0
}

// CollectWalrusVars returns the variables bound by named expressions in an expression.
func CollectWalrusVars(x hir.Expr) []string {
	var set orderedSet
	hir.Inspect(x, func(n hir.Node) bool {
		if named, ok := n.(*hir.NamedExpr); ok {
			set.add(named.Target)
		}
		return true
	})
	return set.names
}

// FindAssignedExpr returns the value last assigned to a symbol at the level of a block.
// It returns nil if the block does not assign the symbol.
func FindAssignedExpr(name string, stmts []hir.Stmt) hir.Expr {
	var value hir.Expr
	for _, s := range stmts {
		assign, ok := s.(*hir.Assign)
		if !ok {
			continue
		}
		if sym, ok := assign.Target.(*hir.SymbolTarget); ok && sym.Name == name {
			value = assign.Value
		}
	}
	return value
}

// NeedsBoxedDynWrite returns true if one branch assigns a file to a variable and
// the other branch assigns the standard output or error.
// The variable is then a boxed writer.
func NeedsBoxedDynWrite(name string, then, els []hir.Stmt) bool {
	a, b := FindAssignedExpr(name, then), FindAssignedExpr(name, els)
	if a == nil || b == nil {
		return false
	}
	return (infer.IsFileCreating(a) && infer.IsStdio(b)) || (infer.IsStdio(a) && infer.IsFileCreating(b))
}

// IsNestedFunctionRecursive returns true if a function calls itself.
func IsNestedFunctionRecursive(fn *hir.FuncDef) bool {
	found := false
	hir.InspectStmts(fn.Body, func(n hir.Node) bool {
		if call, ok := n.(*hir.Call); ok && call.Func == fn.Name {
			found = true
		}
		return !found
	})
	return found
}
