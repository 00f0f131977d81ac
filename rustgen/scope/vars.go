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

// Package scope analyses how variables are read and written by statements and expressions.
//
// All analyses are pure: they never modify the trees they are given.
package scope

import (
	"github.com/gx-org/pyrs/build/hir"
)

// varWalker calls visit for every variable read by a tree.
// Names bound by lambda parameters, comprehension targets and nested
// function parameters are not reported inside their binder.
type varWalker struct {
	bound map[string]int
	visit func(name string)
}

func newVarWalker(visit func(string)) *varWalker {
	return &varWalker{bound: make(map[string]int), visit: visit}
}

func (w *varWalker) bind(names ...string) {
	for _, name := range names {
		w.bound[name]++
	}
}

func (w *varWalker) unbind(names ...string) {
	for _, name := range names {
		w.bound[name]--
	}
}

func (w *varWalker) use(name string) {
	if w.bound[name] > 0 {
		return
	}
	w.visit(name)
}

func (w *varWalker) clauses(clauses []*hir.Clause, body func()) {
	var bound []string
	for _, cl := range clauses {
		w.expr(cl.Iter)
		names := TargetNames(cl.Target)
		w.bind(names...)
		bound = append(bound, names...)
		for _, cond := range cl.Conds {
			w.expr(cond)
		}
	}
	body()
	w.unbind(bound...)
}

func (w *varWalker) expr(x hir.Expr) {
	switch xT := x.(type) {
	case nil:
		return
	case *hir.Var:
		w.use(xT.Name)
	case *hir.NamedExpr:
		w.expr(xT.Value)
		w.use(xT.Target)
	case *hir.Lambda:
		w.bind(xT.Params...)
		w.expr(xT.Body)
		w.unbind(xT.Params...)
	case *hir.ListComp:
		w.clauses(xT.Clauses, func() { w.expr(xT.Elt) })
	case *hir.SetComp:
		w.clauses(xT.Clauses, func() { w.expr(xT.Elt) })
	case *hir.GenExp:
		w.clauses(xT.Clauses, func() { w.expr(xT.Elt) })
	case *hir.DictComp:
		w.clauses(xT.Clauses, func() {
			w.expr(xT.Key)
			w.expr(xT.Value)
		})
	case *hir.SortByKey:
		w.expr(xT.Iter)
		w.bind(xT.KeyArgs...)
		w.expr(xT.KeyBody)
		w.unbind(xT.KeyArgs...)
	default:
		w.children(x)
	}
}

func (w *varWalker) children(node hir.Node) {
	for _, child := range hir.Children(node) {
		switch childT := child.(type) {
		case hir.Expr:
			w.expr(childT)
		case hir.Stmt:
			w.stmt(childT)
		case hir.Target:
			w.target(childT)
		case *hir.ExceptHandler:
			w.stmts(childT.Body)
		case *hir.Param:
			w.expr(childT.Default)
		}
	}
}

// target reports the variables read by an assignment target:
// the base and index of a subscript, the receiver of an attribute.
func (w *varWalker) target(t hir.Target) {
	switch tT := t.(type) {
	case *hir.IndexTarget:
		w.expr(tT.X)
		w.expr(tT.Index)
	case *hir.AttrTarget:
		w.expr(tT.X)
	case *hir.TupleTarget:
		for _, elt := range tT.Elts {
			w.target(elt)
		}
	}
}

func (w *varWalker) stmt(s hir.Stmt) {
	fn, ok := s.(*hir.FuncDef)
	if !ok {
		w.children(s)
		return
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		w.expr(p.Default)
		params[i] = p.Name
	}
	w.bind(params...)
	w.stmts(fn.Body)
	w.unbind(params...)
}

func (w *varWalker) stmts(ss []hir.Stmt) {
	for _, s := range ss {
		w.stmt(s)
	}
}

// orderedSet collects names once, in order of first occurrence.
type orderedSet struct {
	seen  map[string]bool
	names []string
}

func (s *orderedSet) add(name string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[name] {
		return
	}
	s.seen[name] = true
	s.names = append(s.names, name)
}

// CollectVarsInExpr returns the free variables of an expression, in order of first use.
// The target of a named expression is included.
func CollectVarsInExpr(x hir.Expr) []string {
	var set orderedSet
	newVarWalker(set.add).expr(x)
	return set.names
}

// CollectVarsInStmts returns the variables read by a list of statements, in order of first use.
func CollectVarsInStmts(stmts []hir.Stmt) []string {
	var set orderedSet
	newVarWalker(set.add).stmts(stmts)
	return set.names
}

// CountVarRefs returns the number of times a variable is read by an expression.
func CountVarRefs(name string, x hir.Expr) int {
	count := 0
	newVarWalker(func(n string) {
		if n == name {
			count++
		}
	}).expr(x)
	return count
}

// IsVarUsedInExpr returns true if a variable is read by an expression.
func IsVarUsedInExpr(name string, x hir.Expr) bool {
	return CountVarRefs(name, x) > 0
}

// IsVarUsedInStmt returns true if a variable is read by a statement.
func IsVarUsedInStmt(name string, s hir.Stmt) bool {
	return IsVarUsedInStmts(name, []hir.Stmt{s})
}

// IsVarUsedInStmts returns true if a variable is read by any statement of a list.
func IsVarUsedInStmts(name string, stmts []hir.Stmt) bool {
	found := false
	newVarWalker(func(n string) {
		if n == name {
			found = true
		}
	}).stmts(stmts)
	return found
}

// TargetNames returns the symbols bound by an assignment target.
func TargetNames(t hir.Target) []string {
	switch tT := t.(type) {
	case *hir.SymbolTarget:
		return []string{tT.Name}
	case *hir.TupleTarget:
		var names []string
		for _, elt := range tT.Elts {
			names = append(names, TargetNames(elt)...)
		}
		return names
	}
	return nil
}

// FindVarPositionInTuple returns the position of a symbol in a tuple assignment target.
func FindVarPositionInTuple(name string, t hir.Target) (int, bool) {
	tuple, ok := t.(*hir.TupleTarget)
	if !ok {
		return 0, false
	}
	for i, elt := range tuple.Elts {
		if sym, ok := elt.(*hir.SymbolTarget); ok && sym.Name == name {
			return i, true
		}
	}
	return 0, false
}
