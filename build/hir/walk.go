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

package hir

// Inspect traverses a tree in depth-first order. It starts by calling f(node).
// If f returns true, Inspect is called recursively on each non-nil child of the node.
// Nested function definitions are traversed as any other statement.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	for _, child := range Children(node) {
		Inspect(child, f)
	}
}

// InspectStmts calls Inspect on each statement of a list.
func InspectStmts(stmts []Stmt, f func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, f)
	}
}

type children []Node

func (c *children) expr(xs ...Expr) {
	for _, x := range xs {
		if x != nil {
			*c = append(*c, x)
		}
	}
}

func (c *children) stmts(ss []Stmt) {
	for _, s := range ss {
		*c = append(*c, s)
	}
}

func (c *children) target(t Target) {
	if t != nil {
		*c = append(*c, t)
	}
}

func (c *children) kwargs(kws []*Keyword) {
	for _, kw := range kws {
		c.expr(kw.Value)
	}
}

func (c *children) clauses(clauses []*Clause) {
	for _, cl := range clauses {
		c.target(cl.Target)
		c.expr(cl.Iter)
		c.expr(cl.Conds...)
	}
}

// Children returns the direct children of a node, in source order.
func Children(node Node) []Node {
	var c children
	switch n := node.(type) {
	// Expressions.
	case *Binary:
		c.expr(n.X, n.Y)
	case *Unary:
		c.expr(n.X)
	case *Call:
		c.expr(n.Args...)
		c.kwargs(n.Kwargs)
	case *MethodCall:
		c.expr(n.Recv)
		c.expr(n.Args...)
		c.kwargs(n.Kwargs)
	case *DynCall:
		c.expr(n.Callee)
		c.expr(n.Args...)
		c.kwargs(n.Kwargs)
	case *Attr:
		c.expr(n.X)
	case *Index:
		c.expr(n.X, n.Index)
	case *Slice:
		c.expr(n.X, n.Lo, n.Hi, n.Step)
	case *ListLit:
		c.expr(n.Elts...)
	case *SetLit:
		c.expr(n.Elts...)
	case *FrozenSetLit:
		c.expr(n.Elts...)
	case *TupleLit:
		c.expr(n.Elts...)
	case *DictLit:
		for i := range n.Keys {
			c.expr(n.Keys[i], n.Values[i])
		}
	case *ListComp:
		c.clauses(n.Clauses)
		c.expr(n.Elt)
	case *SetComp:
		c.clauses(n.Clauses)
		c.expr(n.Elt)
	case *DictComp:
		c.clauses(n.Clauses)
		c.expr(n.Key, n.Value)
	case *GenExp:
		c.clauses(n.Clauses)
		c.expr(n.Elt)
	case *Lambda:
		c.expr(n.Body)
	case *IfExp:
		c.expr(n.Cond, n.Then, n.Else)
	case *FString:
		for _, p := range n.Parts {
			c.expr(p.X)
		}
	case *Await:
		c.expr(n.X)
	case *Yield:
		c.expr(n.X)
	case *Borrow:
		c.expr(n.X)
	case *NamedExpr:
		c.expr(n.Value)
	case *SortByKey:
		c.expr(n.Iter, n.KeyBody)
	// Targets.
	case *IndexTarget:
		c.expr(n.X, n.Index)
	case *AttrTarget:
		c.expr(n.X)
	case *TupleTarget:
		for _, elt := range n.Elts {
			c.target(elt)
		}
	// Statements.
	case *Assign:
		c.target(n.Target)
		c.expr(n.Value)
	case *AugAssign:
		c.target(n.Target)
		c.expr(n.Value)
	case *ExprStmt:
		c.expr(n.X)
	case *Return:
		c.expr(n.Value)
	case *If:
		c.expr(n.Cond)
		c.stmts(n.Body)
		c.stmts(n.Else)
	case *While:
		c.expr(n.Cond)
		c.stmts(n.Body)
	case *For:
		c.target(n.Target)
		c.expr(n.Iter)
		c.stmts(n.Body)
	case *Try:
		c.stmts(n.Body)
		for _, h := range n.Handlers {
			c = append(c, h)
		}
		c.stmts(n.Else)
		c.stmts(n.Finally)
	case *ExceptHandler:
		c.stmts(n.Body)
	case *With:
		c.expr(n.Context)
		c.stmts(n.Body)
	case *Raise:
		c.expr(n.Exc, n.Cause)
	case *Assert:
		c.expr(n.Test, n.Msg)
	case *FuncDef:
		for _, p := range n.Params {
			c = append(c, p)
		}
		c.stmts(n.Body)
	case *Param:
		c.expr(n.Default)
	case *ClassDef:
		for _, f := range n.Fields {
			c = append(c, f)
		}
		for _, m := range n.Methods {
			c = append(c, m)
		}
	case *Block:
		c.stmts(n.Body)
	}
	return c
}

// MapExpr rebuilds an expression bottom-up: f is called on each sub-expression
// after its children have been rebuilt, and its result replaces the sub-expression.
// Nodes are copied, the input tree is never modified.
// Lambda bodies and comprehension clauses are rebuilt too.
func MapExpr(x Expr, f func(Expr) Expr) Expr {
	if x == nil {
		return nil
	}
	m := func(x Expr) Expr { return MapExpr(x, f) }
	ms := func(xs []Expr) []Expr {
		if xs == nil {
			return nil
		}
		out := make([]Expr, len(xs))
		for i, x := range xs {
			out[i] = m(x)
		}
		return out
	}
	mkw := func(kws []*Keyword) []*Keyword {
		if kws == nil {
			return nil
		}
		out := make([]*Keyword, len(kws))
		for i, kw := range kws {
			out[i] = &Keyword{Name: kw.Name, Value: m(kw.Value)}
		}
		return out
	}
	mcl := func(cls []*Clause) []*Clause {
		out := make([]*Clause, len(cls))
		for i, cl := range cls {
			out[i] = &Clause{Target: cl.Target, Iter: m(cl.Iter), Conds: ms(cl.Conds)}
		}
		return out
	}
	var r Expr
	switch n := x.(type) {
	case *Lit:
		c := *n
		r = &c
	case *Var:
		c := *n
		r = &c
	case *Binary:
		r = &Binary{Pos: n.Pos, Op: n.Op, X: m(n.X), Y: m(n.Y)}
	case *Unary:
		r = &Unary{Pos: n.Pos, Op: n.Op, X: m(n.X)}
	case *Call:
		r = &Call{Pos: n.Pos, Func: n.Func, Args: ms(n.Args), Kwargs: mkw(n.Kwargs)}
	case *MethodCall:
		r = &MethodCall{Pos: n.Pos, Recv: m(n.Recv), Method: n.Method, Args: ms(n.Args), Kwargs: mkw(n.Kwargs)}
	case *DynCall:
		r = &DynCall{Pos: n.Pos, Callee: m(n.Callee), Args: ms(n.Args), Kwargs: mkw(n.Kwargs)}
	case *Attr:
		r = &Attr{Pos: n.Pos, X: m(n.X), Name: n.Name}
	case *Index:
		r = &Index{Pos: n.Pos, X: m(n.X), Index: m(n.Index)}
	case *Slice:
		r = &Slice{Pos: n.Pos, X: m(n.X), Lo: m(n.Lo), Hi: m(n.Hi), Step: m(n.Step)}
	case *ListLit:
		r = &ListLit{Pos: n.Pos, Elts: ms(n.Elts)}
	case *SetLit:
		r = &SetLit{Pos: n.Pos, Elts: ms(n.Elts)}
	case *FrozenSetLit:
		r = &FrozenSetLit{Pos: n.Pos, Elts: ms(n.Elts)}
	case *TupleLit:
		r = &TupleLit{Pos: n.Pos, Elts: ms(n.Elts)}
	case *DictLit:
		r = &DictLit{Pos: n.Pos, Keys: ms(n.Keys), Values: ms(n.Values)}
	case *ListComp:
		r = &ListComp{Pos: n.Pos, Elt: m(n.Elt), Clauses: mcl(n.Clauses)}
	case *SetComp:
		r = &SetComp{Pos: n.Pos, Elt: m(n.Elt), Clauses: mcl(n.Clauses)}
	case *DictComp:
		r = &DictComp{Pos: n.Pos, Key: m(n.Key), Value: m(n.Value), Clauses: mcl(n.Clauses)}
	case *GenExp:
		r = &GenExp{Pos: n.Pos, Elt: m(n.Elt), Clauses: mcl(n.Clauses)}
	case *Lambda:
		r = &Lambda{Pos: n.Pos, Params: n.Params, Body: m(n.Body)}
	case *IfExp:
		r = &IfExp{Pos: n.Pos, Cond: m(n.Cond), Then: m(n.Then), Else: m(n.Else)}
	case *FString:
		parts := make([]*FPart, len(n.Parts))
		for i, p := range n.Parts {
			parts[i] = &FPart{Lit: p.Lit, X: m(p.X), Spec: p.Spec}
		}
		r = &FString{Pos: n.Pos, Parts: parts}
	case *Await:
		r = &Await{Pos: n.Pos, X: m(n.X)}
	case *Yield:
		r = &Yield{Pos: n.Pos, X: m(n.X)}
	case *Borrow:
		r = &Borrow{Pos: n.Pos, Mut: n.Mut, X: m(n.X)}
	case *NamedExpr:
		r = &NamedExpr{Pos: n.Pos, Target: n.Target, Value: m(n.Value)}
	case *SortByKey:
		r = &SortByKey{Pos: n.Pos, Iter: m(n.Iter), KeyArgs: n.KeyArgs, KeyBody: m(n.KeyBody), Reverse: n.Reverse}
	default:
		r = x
	}
	return f(r)
}
