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

// Package rast is the Rust target syntax tree produced by the generators.
//
// The tree is handed to an external pretty-printer. The String function of this package
// renders a canonical single-line form which is used for debugging and testing.
package rast

// ----------------------------------------------------------------------------
// Types of node in the tree.
type (
	// Node in the tree.
	Node interface {
		// node marks a structure as a node structure.
		node()
	}

	// Expr is a Rust expression.
	Expr interface {
		Node
		expr()
	}

	// Stmt is a Rust statement.
	Stmt interface {
		Node
		stmt()
	}

	// Item is a Rust item (function, struct, impl, ...).
	Item interface {
		Node
		item()
	}

	// Type is a Rust type expression.
	Type interface {
		Node
		typ()
	}
)

// ----------------------------------------------------------------------------
// Types.
type (
	// TypePath is a named type with optional generic arguments, for example HashMap<K, V>.
	TypePath struct {
		Name string
		Args []Type
	}

	// TypeRef is a reference type.
	TypeRef struct {
		Mut  bool
		Elem Type
	}

	// TypeTuple is a tuple type. An empty tuple is the unit type.
	TypeTuple struct {
		Elems []Type
	}

	// TypeDyn is a trait object type.
	TypeDyn struct {
		Trait Type
	}

	// TypeImpl is an opaque impl-trait type.
	TypeImpl struct {
		Trait Type
	}

	// TypeFn is a function trait bound, for example Fn(i32) -> i32.
	TypeFn struct {
		Trait  string
		Params []Type
		Ret    Type
	}

	// TypeAssoc is an associated type binding inside generic arguments, for example Item = T.
	TypeAssoc struct {
		Name  string
		Value Type
	}

	// TypeInfer is the placeholder type _.
	TypeInfer struct{}
)

func (*TypePath) node()  {}
func (*TypeRef) node()   {}
func (*TypeTuple) node() {}
func (*TypeDyn) node()   {}
func (*TypeImpl) node()  {}
func (*TypeFn) node()    {}
func (*TypeAssoc) node() {}
func (*TypeInfer) node() {}

func (*TypePath) typ()  {}
func (*TypeRef) typ()   {}
func (*TypeTuple) typ() {}
func (*TypeDyn) typ()   {}
func (*TypeImpl) typ()  {}
func (*TypeFn) typ()    {}
func (*TypeAssoc) typ() {}
func (*TypeInfer) typ() {}

// Named returns a path type with generic arguments.
func Named(name string, args ...Type) *TypePath {
	return &TypePath{Name: name, Args: args}
}

// Unit returns the unit type ().
func Unit() *TypeTuple {
	return &TypeTuple{}
}

// ----------------------------------------------------------------------------
// Expressions.
type (
	// Ident is a local identifier.
	Ident struct {
		Name string
	}

	// Path is a qualified path such as DynValue::Int or std::io::stdout.
	Path struct {
		Segments []string
	}

	// Lit is a literal.
	Lit struct {
		Kind LitKind
		// Value is the literal as written in Rust source, without quotes for strings.
		Value string
		// Suffix is an optional type suffix (i32, i64, f64, ...).
		Suffix string
	}

	// Binary is a binary operation.
	Binary struct {
		Op   string
		X, Y Expr
	}

	// Unary is a prefix operation (!, -).
	Unary struct {
		Op string
		X  Expr
	}

	// Ref takes a reference to an expression.
	Ref struct {
		Mut bool
		X   Expr
	}

	// Deref dereferences an expression.
	Deref struct {
		X Expr
	}

	// Call is a function call.
	Call struct {
		Fun  Expr
		Args []Expr
	}

	// MethodCall is a method call with an optional turbofish.
	MethodCall struct {
		Recv      Expr
		Method    string
		Turbofish []Type
		Args      []Expr
	}

	// Field is a named or positional field access.
	Field struct {
		X    Expr
		Name string
	}

	// Index is an index operation x[i].
	Index struct {
		X, Index Expr
	}

	// Macro is a macro invocation such as format!, vec! or println!.
	Macro struct {
		Name string
		// Bracket uses [] instead of () as delimiters.
		Bracket bool
		Args    []Expr
		// Len is the length of a repeat expression such as vec![0; n]. Args holds the element.
		Len Expr
	}

	// Param is a closure or function parameter.
	Param struct {
		Pattern Expr
		Mut     bool
		Type    Type
	}

	// Closure is a closure expression.
	Closure struct {
		Move   bool
		Params []*Param
		Ret    Type
		Body   Expr
	}

	// If is an if expression. Else is nil, a *Block or an *If.
	If struct {
		Cond Expr
		Then *Block
		Else Expr
	}

	// IfLet is an if-let expression.
	IfLet struct {
		Pattern Expr
		Value   Expr
		Then    *Block
		Else    Expr
	}

	// Block is a block expression. Tail is the value of the block and may be nil.
	Block struct {
		Stmts []Stmt
		Tail  Expr
	}

	// MatchArm is an arm of a match expression.
	MatchArm struct {
		Pattern Expr
		Guard   Expr
		Body    Expr
	}

	// Match is a match expression.
	Match struct {
		X    Expr
		Arms []*MatchArm
	}

	// Cast is an `as` conversion.
	Cast struct {
		X    Expr
		Type Type
	}

	// Try is the ? propagation operator.
	Try struct {
		X Expr
	}

	// Await is the .await suffix.
	Await struct {
		X Expr
	}

	// Tuple is a tuple expression or pattern.
	Tuple struct {
		Elts []Expr
	}

	// Array is an array expression [a, b].
	Array struct {
		Elts []Expr
	}

	// Range is a range expression. Lo and Hi may be nil.
	Range struct {
		Lo, Hi    Expr
		Inclusive bool
	}

	// Paren is a parenthesised expression.
	Paren struct {
		X Expr
	}

	// FieldValue is a field initialiser in a struct literal.
	FieldValue struct {
		Name  string
		Value Expr
	}

	// StructLit is a struct literal.
	StructLit struct {
		Name   string
		Fields []*FieldValue
	}

	// Wild is the wildcard pattern _.
	Wild struct{}

	// Binding is an identifier pattern, mutable or not.
	Binding struct {
		Mut  bool
		Name string
	}
)

// LitKind is the kind of a literal.
type LitKind int

// Literal kinds.
const (
	IntLit LitKind = iota
	FloatLit
	StrLit
	BoolLit
	CharLit
)

func (*Ident) node()      {}
func (*Path) node()       {}
func (*Lit) node()        {}
func (*Binary) node()     {}
func (*Unary) node()      {}
func (*Ref) node()        {}
func (*Deref) node()      {}
func (*Call) node()       {}
func (*MethodCall) node() {}
func (*Field) node()      {}
func (*Index) node()      {}
func (*Macro) node()      {}
func (*Param) node()      {}
func (*Closure) node()    {}
func (*If) node()         {}
func (*IfLet) node()      {}
func (*Block) node()      {}
func (*MatchArm) node()   {}
func (*Match) node()      {}
func (*Cast) node()       {}
func (*Try) node()        {}
func (*Await) node()      {}
func (*Tuple) node()      {}
func (*Array) node()      {}
func (*Range) node()      {}
func (*Paren) node()      {}
func (*FieldValue) node() {}
func (*StructLit) node()  {}
func (*Wild) node()       {}
func (*Binding) node()    {}

func (*Ident) expr()      {}
func (*Path) expr()       {}
func (*Lit) expr()        {}
func (*Binary) expr()     {}
func (*Unary) expr()      {}
func (*Ref) expr()        {}
func (*Deref) expr()      {}
func (*Call) expr()       {}
func (*MethodCall) expr() {}
func (*Field) expr()      {}
func (*Index) expr()      {}
func (*Macro) expr()      {}
func (*Closure) expr()    {}
func (*If) expr()         {}
func (*IfLet) expr()      {}
func (*Block) expr()      {}
func (*Match) expr()      {}
func (*Cast) expr()       {}
func (*Try) expr()        {}
func (*Await) expr()      {}
func (*Tuple) expr()      {}
func (*Array) expr()      {}
func (*Range) expr()      {}
func (*Paren) expr()      {}
func (*StructLit) expr()  {}
func (*Wild) expr()       {}
func (*Binding) expr()    {}

// ----------------------------------------------------------------------------
// Statements.
type (
	// Let is a let binding.
	Let struct {
		Pattern Expr
		Mut     bool
		Type    Type
		Value   Expr
	}

	// ExprStmt is an expression statement. NoSemi is set for block-like
	// expressions used as statements.
	ExprStmt struct {
		X      Expr
		NoSemi bool
	}

	// Assign is an assignment or a compound assignment (Op is "=", "+=", ...).
	Assign struct {
		Lhs Expr
		Op  string
		Rhs Expr
	}

	// While is a while loop.
	While struct {
		Cond Expr
		Body *Block
	}

	// WhileLet is a while-let loop.
	WhileLet struct {
		Pattern Expr
		Value   Expr
		Body    *Block
	}

	// Loop is an infinite loop.
	Loop struct {
		Body *Block
	}

	// For is a for loop.
	For struct {
		Pattern Expr
		Iter    Expr
		Body    *Block
	}

	// Return is a return statement.
	Return struct {
		Value Expr
	}

	// Break exits a loop.
	Break struct{}

	// Continue jumps to the next loop iteration.
	Continue struct{}

	// Comment is a line or doc comment.
	Comment struct {
		Text string
		Doc  bool
	}

	// ItemStmt is an item declared inside a block.
	ItemStmt struct {
		Item Item
	}
)

func (*Let) node()      {}
func (*ExprStmt) node() {}
func (*Assign) node()   {}
func (*While) node()    {}
func (*WhileLet) node() {}
func (*Loop) node()     {}
func (*For) node()      {}
func (*Return) node()   {}
func (*Break) node()    {}
func (*Continue) node() {}
func (*Comment) node()  {}
func (*ItemStmt) node() {}

func (*Let) stmt()      {}
func (*ExprStmt) stmt() {}
func (*Assign) stmt()   {}
func (*While) stmt()    {}
func (*WhileLet) stmt() {}
func (*Loop) stmt()     {}
func (*For) stmt()      {}
func (*Return) stmt()   {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}
func (*Comment) stmt()  {}
func (*ItemStmt) stmt() {}

// ----------------------------------------------------------------------------
// Items.
type (
	// Fn is a function definition.
	Fn struct {
		Doc      []string
		Pub      bool
		Async    bool
		Name     string
		Generics []string
		Self     string // "", "&self" or "&mut self".
		Params   []*Param
		Ret      Type
		Body     *Block
	}

	// StructField is a field of a struct definition.
	StructField struct {
		Name string
		Type Type
	}

	// Struct is a struct definition.
	Struct struct {
		Doc    []string
		Derive []string
		Name   string
		Fields []*StructField
	}

	// Impl is an impl block.
	Impl struct {
		Trait  string
		Type   string
		Assocs []*TypeAssoc
		Items  []Item
	}

	// Use is a use declaration.
	Use struct {
		Path string
	}

	// Const is a module-level constant.
	Const struct {
		Name  string
		Type  Type
		Value Expr
	}

	// Raw is a pre-rendered chunk of Rust source, such as the DynValue prelude.
	Raw struct {
		Name string
		Text string
	}

	// File is a generated Rust module.
	File struct {
		Items []Item
	}
)

func (*Fn) node()          {}
func (*StructField) node() {}
func (*Struct) node()      {}
func (*Impl) node()        {}
func (*Use) node()         {}
func (*Const) node()       {}
func (*Raw) node()         {}
func (*File) node()        {}

func (*Fn) item()     {}
func (*Struct) item() {}
func (*Impl) item()   {}
func (*Use) item()    {}
func (*Const) item()  {}
func (*Raw) item()    {}

// ----------------------------------------------------------------------------
// Helpers to build common nodes.

// Id returns an identifier expression.
func Id(name string) *Ident {
	return &Ident{Name: name}
}

// P returns a path expression from its segments.
func P(segments ...string) *Path {
	return &Path{Segments: segments}
}

// Int returns an unsuffixed integer literal.
func Int(v string) *Lit {
	return &Lit{Kind: IntLit, Value: v}
}

// Float returns a float literal.
func Float(v string) *Lit {
	return &Lit{Kind: FloatLit, Value: v}
}

// Str returns a string literal.
func Str(v string) *Lit {
	return &Lit{Kind: StrLit, Value: v}
}

// Bool returns a boolean literal.
func Bool(v bool) *Lit {
	if v {
		return &Lit{Kind: BoolLit, Value: "true"}
	}
	return &Lit{Kind: BoolLit, Value: "false"}
}

// M returns a method call.
func M(recv Expr, method string, args ...Expr) *MethodCall {
	return &MethodCall{Recv: recv, Method: method, Args: args}
}

// C returns a function call.
func C(fun Expr, args ...Expr) *Call {
	return &Call{Fun: fun, Args: args}
}

// PC returns a call to a path.
func PC(path string, args ...Expr) *Call {
	return &Call{Fun: ParsePath(path), Args: args}
}

// ParsePath splits a Rust path written with :: separators.
func ParsePath(path string) Expr {
	var segs []string
	start := 0
	for i := 0; i+1 < len(path); i++ {
		if path[i] == ':' && path[i+1] == ':' {
			segs = append(segs, path[start:i])
			start = i + 2
			i++
		}
	}
	segs = append(segs, path[start:])
	if len(segs) == 1 {
		return Id(segs[0])
	}
	return &Path{Segments: segs}
}

// Bin returns a binary expression.
func Bin(op string, x, y Expr) *Binary {
	return &Binary{Op: op, X: x, Y: y}
}

// Not returns the logical negation of an expression.
func Not(x Expr) *Unary {
	return &Unary{Op: "!", X: x}
}

// Blk returns a block with a tail expression.
func Blk(tail Expr, stmts ...Stmt) *Block {
	return &Block{Stmts: stmts, Tail: tail}
}

// Semi returns an expression statement terminated by a semicolon.
func Semi(x Expr) *ExprStmt {
	return &ExprStmt{X: x}
}

// Format returns a format! invocation.
func Format(format string, args ...Expr) *Macro {
	return &Macro{Name: "format", Args: append([]Expr{Str(format)}, args...)}
}

// VecRepeat returns vec![elt; n].
func VecRepeat(elt, n Expr) *Macro {
	return &Macro{Name: "vec", Bracket: true, Args: []Expr{elt}, Len: n}
}

// Vec returns a vec! invocation.
func Vec(elts ...Expr) *Macro {
	return &Macro{Name: "vec", Bracket: true, Args: elts}
}
