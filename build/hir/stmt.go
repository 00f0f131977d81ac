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

import "github.com/gx-org/pyrs/build/types"

// ----------------------------------------------------------------------------
// Assignment targets.
type (
	// SymbolTarget assigns a variable.
	SymbolTarget struct {
		Pos
		Name string
	}

	// IndexTarget assigns an element of a container: X[Index] = ...
	IndexTarget struct {
		Pos
		X, Index Expr
	}

	// AttrTarget assigns an attribute: X.Name = ...
	AttrTarget struct {
		Pos
		X    Expr
		Name string
	}

	// TupleTarget unpacks a value into several targets.
	TupleTarget struct {
		Pos
		Elts []Target
	}
)

var (
	_ Target = (*SymbolTarget)(nil)
	_ Target = (*IndexTarget)(nil)
	_ Target = (*AttrTarget)(nil)
	_ Target = (*TupleTarget)(nil)
)

func (*SymbolTarget) target() {}
func (*IndexTarget) target()  {}
func (*AttrTarget) target()   {}
func (*TupleTarget) target()  {}

// Sym returns a symbol target.
func Sym(name string) *SymbolTarget {
	return &SymbolTarget{Name: name}
}

// TargetExpr returns the expression reading the value assigned by a target.
func TargetExpr(t Target) Expr {
	switch tT := t.(type) {
	case *SymbolTarget:
		return &Var{Pos: tT.Pos, Name: tT.Name}
	case *IndexTarget:
		return &Index{Pos: tT.Pos, X: tT.X, Index: tT.Index}
	case *AttrTarget:
		return &Attr{Pos: tT.Pos, X: tT.X, Name: tT.Name}
	case *TupleTarget:
		elts := make([]Expr, len(tT.Elts))
		for i, elt := range tT.Elts {
			elts[i] = TargetExpr(elt)
		}
		return &TupleLit{Pos: tT.Pos, Elts: elts}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Statements.
type (
	// Assign assigns a value to a target.
	Assign struct {
		Pos
		Target Target
		Value  Expr
		// Type is the declared type, nil if the assignment has no annotation
		// or if the annotation still needs to be parsed.
		Type types.Type
		// Annotation is the annotation as written in the source. Can be empty.
		Annotation string
	}

	// AugAssign is an augmented assignment: Target Op= Value.
	AugAssign struct {
		Pos
		Target Target
		Op     BinOp
		Value  Expr
	}

	// ExprStmt is an expression evaluated for its side effects.
	ExprStmt struct {
		Pos
		X Expr
	}

	// Return returns from a function. Value can be nil.
	Return struct {
		Pos
		Value Expr
	}

	// If is a conditional. elif branches are nested If statements in Else.
	If struct {
		Pos
		Cond Expr
		Body []Stmt
		Else []Stmt
	}

	// While is a while loop.
	While struct {
		Pos
		Cond Expr
		Body []Stmt
	}

	// For is a for loop.
	For struct {
		Pos
		Target Target
		Iter   Expr
		Body   []Stmt
	}

	// ExceptHandler is an except clause. Type is empty for a bare except.
	ExceptHandler struct {
		Pos
		Type string
		Name string
		Body []Stmt
	}

	// Try is a try/except/else/finally statement.
	Try struct {
		Pos
		Body     []Stmt
		Handlers []*ExceptHandler
		Else     []Stmt
		Finally  []Stmt
	}

	// With is a context manager statement. Target can be empty.
	With struct {
		Pos
		Context Expr
		Target  string
		Body    []Stmt
		Async   bool
	}

	// Raise raises an exception. Exc and Cause can be nil.
	Raise struct {
		Pos
		Exc   Expr
		Cause Expr
	}

	// Assert checks a condition. Msg can be nil.
	Assert struct {
		Pos
		Test Expr
		Msg  Expr
	}

	// Param is a function parameter.
	Param struct {
		Pos
		Name       string
		Type       types.Type
		Annotation string
		Default    Expr
	}

	// FuncDef defines a function or a method.
	FuncDef struct {
		Pos
		Name   string
		Params []*Param
		// Ret is the declared return type. Nil if not declared.
		Ret           types.Type
		RetAnnotation string
		Body          []Stmt
		Async         bool
		Doc           string
	}

	// ClassDef defines a class. The lowering step flattens the class hierarchy
	// so that Fields include inherited fields.
	ClassDef struct {
		Pos
		Name    string
		Bases   []string
		Fields  []*Param
		Methods []*FuncDef
		Doc     string
	}

	// Break exits a loop.
	Break struct {
		Pos
	}

	// Continue starts the next iteration of a loop.
	Continue struct {
		Pos
	}

	// Pass does nothing.
	Pass struct {
		Pos
	}

	// Block is a sequence of statements with its own scope.
	Block struct {
		Pos
		Body []Stmt
	}

	// Import is processed by the lowering step. The translation ignores it.
	Import struct {
		Pos
		Module string
		Names  []string
	}

	// Comment is a source comment, forwarded when comments are preserved.
	Comment struct {
		Pos
		Text string
	}
)

var (
	_ Stmt = (*Assign)(nil)
	_ Stmt = (*AugAssign)(nil)
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*Return)(nil)
	_ Stmt = (*If)(nil)
	_ Stmt = (*While)(nil)
	_ Stmt = (*For)(nil)
	_ Stmt = (*Try)(nil)
	_ Stmt = (*With)(nil)
	_ Stmt = (*Raise)(nil)
	_ Stmt = (*Assert)(nil)
	_ Stmt = (*FuncDef)(nil)
	_ Stmt = (*ClassDef)(nil)
	_ Stmt = (*Break)(nil)
	_ Stmt = (*Continue)(nil)
	_ Stmt = (*Pass)(nil)
	_ Stmt = (*Block)(nil)
	_ Stmt = (*Import)(nil)
	_ Stmt = (*Comment)(nil)
)

func (*Assign) stmt()    {}
func (*AugAssign) stmt() {}
func (*ExprStmt) stmt()  {}
func (*Return) stmt()    {}
func (*If) stmt()        {}
func (*While) stmt()     {}
func (*For) stmt()       {}
func (*Try) stmt()       {}
func (*With) stmt()      {}
func (*Raise) stmt()     {}
func (*Assert) stmt()    {}
func (*FuncDef) stmt()   {}
func (*ClassDef) stmt()  {}
func (*Break) stmt()     {}
func (*Continue) stmt()  {}
func (*Pass) stmt()      {}
func (*Block) stmt()     {}
func (*Import) stmt()    {}
func (*Comment) stmt()   {}

// Lower returns the assignment equivalent to the augmented assignment:
// x op= v becomes x = x op v.
func (a *AugAssign) Lower() *Assign {
	return &Assign{
		Pos:    a.Pos,
		Target: a.Target,
		Value:  &Binary{Pos: a.Pos, Op: a.Op, X: TargetExpr(a.Target), Y: a.Value},
	}
}

// Method returns a method of the class given its name, nil if not found.
func (c *ClassDef) Method(name string) *FuncDef {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// AssignTo returns an assignment of a value to a variable.
func AssignTo(name string, value Expr) *Assign {
	return &Assign{Target: Sym(name), Value: value}
}
