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

import (
	"math/big"
	"strconv"

	"github.com/gx-org/pyrs/build/types"
)

// LitKind is the kind of a literal.
type LitKind int

// Literal kinds.
const (
	LitInt LitKind = iota + 1
	LitFloat
	LitStr
	LitBool
	LitNone
)

type (
	// Lit is a literal.
	Lit struct {
		Pos
		Kind LitKind
		// Text is the literal as written in the source for numbers,
		// the decoded value for strings and True or False for booleans.
		Text string
	}

	// Var is a reference to a variable.
	Var struct {
		Pos
		Name string
	}

	// Binary is a binary operation.
	Binary struct {
		Pos
		Op   BinOp
		X, Y Expr
	}

	// Unary is a unary operation.
	Unary struct {
		Pos
		Op UnaryOp
		X  Expr
	}

	// Keyword is a keyword argument.
	Keyword struct {
		Name  string
		Value Expr
	}

	// Call is a call to a named function.
	Call struct {
		Pos
		Func   string
		Args   []Expr
		Kwargs []*Keyword
	}

	// MethodCall is a call to a method of a receiver.
	MethodCall struct {
		Pos
		Recv   Expr
		Method string
		Args   []Expr
		Kwargs []*Keyword
	}

	// DynCall is a call to a function computed by an expression.
	DynCall struct {
		Pos
		Callee Expr
		Args   []Expr
		Kwargs []*Keyword
	}

	// Attr is an attribute access.
	Attr struct {
		Pos
		X    Expr
		Name string
	}

	// Index is a subscript.
	Index struct {
		Pos
		X, Index Expr
	}

	// Slice is a slicing operation. Lo, Hi and Step can be nil.
	Slice struct {
		Pos
		X             Expr
		Lo, Hi, Step Expr
	}

	// ListLit is a list literal.
	ListLit struct {
		Pos
		Elts []Expr
	}

	// SetLit is a set literal.
	SetLit struct {
		Pos
		Elts []Expr
	}

	// FrozenSetLit is a frozenset literal.
	FrozenSetLit struct {
		Pos
		Elts []Expr
	}

	// TupleLit is a tuple literal.
	TupleLit struct {
		Pos
		Elts []Expr
	}

	// DictLit is a dictionary literal. Keys and Values have the same length.
	DictLit struct {
		Pos
		Keys, Values []Expr
	}

	// Clause is a generator clause of a comprehension: for Target in Iter if Conds.
	Clause struct {
		Target Target
		Iter   Expr
		Conds  []Expr
	}

	// ListComp is a list comprehension.
	ListComp struct {
		Pos
		Elt     Expr
		Clauses []*Clause
	}

	// SetComp is a set comprehension.
	SetComp struct {
		Pos
		Elt     Expr
		Clauses []*Clause
	}

	// DictComp is a dictionary comprehension.
	DictComp struct {
		Pos
		Key, Value Expr
		Clauses    []*Clause
	}

	// GenExp is a generator expression.
	GenExp struct {
		Pos
		Elt     Expr
		Clauses []*Clause
	}

	// Lambda is an anonymous function.
	Lambda struct {
		Pos
		Params []string
		Body   Expr
	}

	// IfExp is a conditional expression: Then if Cond else Else.
	IfExp struct {
		Pos
		Cond, Then, Else Expr
	}

	// FPart is a part of an f-string: either a literal or an expression.
	FPart struct {
		Lit string
		X   Expr
		// Spec is the format specification of an expression, for example ".2f".
		Spec string
	}

	// FString is a formatted string.
	FString struct {
		Pos
		Parts []*FPart
	}

	// Await waits for an awaitable.
	Await struct {
		Pos
		X Expr
	}

	// Yield produces a value from a generator. X can be nil.
	Yield struct {
		Pos
		X Expr
	}

	// Borrow is an explicit borrow hint.
	Borrow struct {
		Pos
		Mut bool
		X   Expr
	}

	// NamedExpr binds a value to a name inside an expression (walrus operator).
	NamedExpr struct {
		Pos
		Target string
		Value  Expr
	}

	// SortByKey sorts an iterable with a key function.
	// It is produced when sorted(..., key=lambda) or list.sort(key=lambda) is lowered.
	SortByKey struct {
		Pos
		Iter    Expr
		KeyArgs []string
		KeyBody Expr
		Reverse bool
	}
)

var (
	_ Expr = (*Lit)(nil)
	_ Expr = (*Var)(nil)
	_ Expr = (*Binary)(nil)
	_ Expr = (*Unary)(nil)
	_ Expr = (*Call)(nil)
	_ Expr = (*MethodCall)(nil)
	_ Expr = (*DynCall)(nil)
	_ Expr = (*Attr)(nil)
	_ Expr = (*Index)(nil)
	_ Expr = (*Slice)(nil)
	_ Expr = (*ListLit)(nil)
	_ Expr = (*SetLit)(nil)
	_ Expr = (*FrozenSetLit)(nil)
	_ Expr = (*TupleLit)(nil)
	_ Expr = (*DictLit)(nil)
	_ Expr = (*ListComp)(nil)
	_ Expr = (*SetComp)(nil)
	_ Expr = (*DictComp)(nil)
	_ Expr = (*GenExp)(nil)
	_ Expr = (*Lambda)(nil)
	_ Expr = (*IfExp)(nil)
	_ Expr = (*FString)(nil)
	_ Expr = (*Await)(nil)
	_ Expr = (*Yield)(nil)
	_ Expr = (*Borrow)(nil)
	_ Expr = (*NamedExpr)(nil)
	_ Expr = (*SortByKey)(nil)
)

func (*Lit) expr()          {}
func (*Var) expr()          {}
func (*Binary) expr()       {}
func (*Unary) expr()        {}
func (*Call) expr()         {}
func (*MethodCall) expr()   {}
func (*DynCall) expr()      {}
func (*Attr) expr()         {}
func (*Index) expr()        {}
func (*Slice) expr()        {}
func (*ListLit) expr()      {}
func (*SetLit) expr()       {}
func (*FrozenSetLit) expr() {}
func (*TupleLit) expr()     {}
func (*DictLit) expr()      {}
func (*ListComp) expr()     {}
func (*SetComp) expr()      {}
func (*DictComp) expr()     {}
func (*GenExp) expr()       {}
func (*Lambda) expr()       {}
func (*IfExp) expr()        {}
func (*FString) expr()      {}
func (*Await) expr()        {}
func (*Yield) expr()        {}
func (*Borrow) expr()       {}
func (*NamedExpr) expr()    {}
func (*SortByKey) expr()    {}

// Type returns the type of the literal.
func (l *Lit) Type() types.Type {
	switch l.Kind {
	case LitInt:
		return types.IntType()
	case LitFloat:
		return types.FloatType()
	case LitStr:
		return types.StringType()
	case LitBool:
		return types.BoolType()
	case LitNone:
		return types.NoneType()
	}
	return types.UnknownType()
}

// Int returns the value of an integer literal as a big integer.
// It returns nil if the literal is not a valid integer.
func (l *Lit) Int() *big.Int {
	if l.Kind != LitInt {
		return nil
	}
	v, ok := new(big.Int).SetString(l.Text, 0)
	if !ok {
		return nil
	}
	return v
}

// Float returns the value of a float literal.
func (l *Lit) Float() float64 {
	v, _ := strconv.ParseFloat(l.Text, 64)
	return v
}

// BoolValue returns the value of a boolean literal.
func (l *Lit) BoolValue() bool {
	return l.Kind == LitBool && l.Text == "True"
}

// Kwarg returns the value of a keyword argument or nil if absent.
func Kwarg(kwargs []*Keyword, name string) Expr {
	for _, kw := range kwargs {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Helpers to build expressions.

// Int returns an integer literal.
func Int(v int64) *Lit {
	return &Lit{Kind: LitInt, Text: strconv.FormatInt(v, 10)}
}

// Float returns a float literal.
func Float(v float64) *Lit {
	text := strconv.FormatFloat(v, 'g', -1, 64)
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		text += ".0"
	}
	return &Lit{Kind: LitFloat, Text: text}
}

// Str returns a string literal.
func Str(s string) *Lit {
	return &Lit{Kind: LitStr, Text: s}
}

// Bool returns a boolean literal.
func Bool(b bool) *Lit {
	if b {
		return &Lit{Kind: LitBool, Text: "True"}
	}
	return &Lit{Kind: LitBool, Text: "False"}
}

// None returns the None literal.
func None() *Lit {
	return &Lit{Kind: LitNone, Text: "None"}
}

// Name returns a reference to a variable.
func Name(name string) *Var {
	return &Var{Name: name}
}

// Bin returns a binary operation.
func Bin(op BinOp, x, y Expr) *Binary {
	return &Binary{Op: op, X: x, Y: y}
}

// CallTo returns a call to a named function with positional arguments.
func CallTo(fn string, args ...Expr) *Call {
	return &Call{Func: fn, Args: args}
}

// MCall returns a method call with positional arguments.
func MCall(recv Expr, method string, args ...Expr) *MethodCall {
	return &MethodCall{Recv: recv, Method: method, Args: args}
}
