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

// Package hir is the typed intermediate representation between the source AST and the Rust AST.
//
// HIR nodes are immutable: passes which need a different tree build a new one
// (see MapExpr) instead of modifying nodes in place.
package hir

import "github.com/gx-org/pyrs/build/fmterr"

type (
	// Node in the tree.
	Node interface {
		// Span returns the location of the node in the source.
		Span() fmterr.Span
		node()
	}

	// Expr is an expression.
	Expr interface {
		Node
		expr()
	}

	// Stmt is a statement.
	Stmt interface {
		Node
		stmt()
	}

	// Target is the left-hand side of an assignment or the target of a for loop.
	Target interface {
		Node
		target()
	}
)

// Pos stores the source location of a node.
type Pos struct {
	Src fmterr.Span
}

// Span returns the location of the node in the source.
func (p Pos) Span() fmterr.Span {
	return p.Src
}

func (Pos) node() {}

// BinOp is a binary operator.
type BinOp int

// Binary operators.
const (
	Add BinOp = iota + 1
	Sub
	Mul
	Div
	FloorDiv
	Mod
	Pow
	BitAnd
	BitOr
	BitXor
	LShift
	RShift
	Eq
	NotEq
	Lt
	LtE
	Gt
	GtE
	In
	NotIn
	Is
	IsNot
	And
	Or
)

var binOpStrings = map[BinOp]string{
	Add:      "+",
	Sub:      "-",
	Mul:      "*",
	Div:      "/",
	FloorDiv: "//",
	Mod:      "%",
	Pow:      "**",
	BitAnd:   "&",
	BitOr:    "|",
	BitXor:   "^",
	LShift:   "<<",
	RShift:   ">>",
	Eq:       "==",
	NotEq:    "!=",
	Lt:       "<",
	LtE:      "<=",
	Gt:       ">",
	GtE:      ">=",
	In:       "in",
	NotIn:    "not in",
	Is:       "is",
	IsNot:    "is not",
	And:      "and",
	Or:       "or",
}

// String returns the source spelling of the operator.
func (op BinOp) String() string {
	if s, ok := binOpStrings[op]; ok {
		return s
	}
	return "?"
}

// RustOp returns the Rust spelling of operators having a native Rust counterpart.
// It returns an empty string for operators requiring a specific lowering.
func (op BinOp) RustOp() string {
	switch op {
	case FloorDiv, Pow, In, NotIn:
		return ""
	case Is:
		return "=="
	case IsNot:
		return "!="
	case And:
		return "&&"
	case Or:
		return "||"
	}
	return op.String()
}

// IsArith returns true for arithmetic operators.
func (op BinOp) IsArith() bool {
	switch op {
	case Add, Sub, Mul, Div, FloorDiv, Mod, Pow:
		return true
	}
	return false
}

// IsBitwise returns true for bitwise operators and shifts.
func (op BinOp) IsBitwise() bool {
	switch op {
	case BitAnd, BitOr, BitXor, LShift, RShift:
		return true
	}
	return false
}

// IsComparison returns true for comparison operators, including membership and identity tests.
func (op BinOp) IsComparison() bool {
	switch op {
	case Eq, NotEq, Lt, LtE, Gt, GtE, In, NotIn, Is, IsNot:
		return true
	}
	return false
}

// IsLogical returns true for and/or.
func (op BinOp) IsLogical() bool {
	return op == And || op == Or
}

// UnaryOp is a unary operator.
type UnaryOp int

// Unary operators.
const (
	Neg UnaryOp = iota + 1
	Plus
	Not
	BitNot
)

// String returns the source spelling of the operator.
func (op UnaryOp) String() string {
	switch op {
	case Neg:
		return "-"
	case Plus:
		return "+"
	case Not:
		return "not"
	case BitNot:
		return "~"
	}
	return "?"
}

// Module is a translation unit.
type Module struct {
	Name string
	// Constants are module-level assignments.
	Constants []*Assign
	Classes   []*ClassDef
	Funcs     []*FuncDef
	Imports   []*Import
}

