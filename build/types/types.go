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

// Package types is the lattice of target-facing types assigned to source values.
//
// Unknown is the top of the lattice. Two types are interchangeable if and only if
// they render to the same Rust type.
package types

import (
	"fmt"
	"strings"
)

// DVName is the name of the Rust sum type standing in for dynamically typed values.
const DVName = "DynValue"

// Kind of a type.
type Kind int

// Kinds of type.
const (
	InvalidKind Kind = iota
	IntKind
	FloatKind
	BoolKind
	StringKind
	NoneKind
	ListKind
	SetKind
	DictKind
	TupleKind
	OptionalKind
	UnionKind
	FunctionKind
	GenericKind
	CustomKind
	UnknownKind
	VarKind
)

var kindNames = map[Kind]string{
	IntKind:      "int",
	FloatKind:    "float",
	BoolKind:     "bool",
	StringKind:   "str",
	NoneKind:     "None",
	ListKind:     "list",
	SetKind:      "set",
	DictKind:     "dict",
	TupleKind:    "tuple",
	OptionalKind: "optional",
	UnionKind:    "union",
	FunctionKind: "function",
	GenericKind:  "generic",
	CustomKind:   "custom",
	UnknownKind:  "unknown",
	VarKind:      "var",
}

// String returns a string representation of a kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Type of a source value.
type Type interface {
	// Kind of the type.
	Kind() Kind
	// String representation of the type using the source notation.
	String() string

	typ()
}

// ----------------------------------------------------------------------------
// Atomic types.
type atomicType struct {
	knd Kind
}

func (*atomicType) typ() {}

func (t *atomicType) Kind() Kind { return t.knd }

func (t *atomicType) String() string { return t.knd.String() }

var (
	intT     = &atomicType{knd: IntKind}
	floatT   = &atomicType{knd: FloatKind}
	boolT    = &atomicType{knd: BoolKind}
	stringT  = &atomicType{knd: StringKind}
	noneT    = &atomicType{knd: NoneKind}
	unknownT = &atomicType{knd: UnknownKind}
)

// IntType returns the integer type.
func IntType() Type { return intT }

// FloatType returns the float type.
func FloatType() Type { return floatT }

// BoolType returns the boolean type.
func BoolType() Type { return boolT }

// StringType returns the string type.
func StringType() Type { return stringT }

// NoneType returns the type of None.
func NoneType() Type { return noneT }

// UnknownType returns the unknown type, that is the top of the lattice.
func UnknownType() Type { return unknownT }

// ----------------------------------------------------------------------------
// Composite types.
type (
	// List is a list of elements of the same type.
	List struct {
		Elem Type
	}

	// Set is a set of elements of the same type.
	Set struct {
		Elem Type
	}

	// Dict maps keys to values.
	Dict struct {
		Key, Value Type
	}

	// Tuple is a fixed-size sequence. Arity and element order are preserved.
	Tuple struct {
		Elems []Type
	}

	// Optional is a value or None.
	Optional struct {
		Elem Type
	}

	// Union is a value of one of several types.
	Union struct {
		Members []Type
	}

	// Function is a callable value.
	Function struct {
		Params []Type
		Ret    Type
	}

	// Generic is a parametrised type not covered by the other variants
	// (for example Iterator[int] or deque[str]).
	Generic struct {
		Base   string
		Params []Type
	}

	// Custom is a user-defined class or an opaque target type.
	Custom struct {
		Name string
	}

	// Var is a unification variable.
	Var struct {
		ID int
	}
)

var (
	_ Type = (*List)(nil)
	_ Type = (*Set)(nil)
	_ Type = (*Dict)(nil)
	_ Type = (*Tuple)(nil)
	_ Type = (*Optional)(nil)
	_ Type = (*Union)(nil)
	_ Type = (*Function)(nil)
	_ Type = (*Generic)(nil)
	_ Type = (*Custom)(nil)
	_ Type = (*Var)(nil)
)

func (*List) typ()     {}
func (*Set) typ()      {}
func (*Dict) typ()     {}
func (*Tuple) typ()    {}
func (*Optional) typ() {}
func (*Union) typ()    {}
func (*Function) typ() {}
func (*Generic) typ()  {}
func (*Custom) typ()   {}
func (*Var) typ()      {}

// Kind of the type.
func (*List) Kind() Kind { return ListKind }

// Kind of the type.
func (*Set) Kind() Kind { return SetKind }

// Kind of the type.
func (*Dict) Kind() Kind { return DictKind }

// Kind of the type.
func (*Tuple) Kind() Kind { return TupleKind }

// Kind of the type.
func (*Optional) Kind() Kind { return OptionalKind }

// Kind of the type.
func (*Union) Kind() Kind { return UnionKind }

// Kind of the type.
func (*Function) Kind() Kind { return FunctionKind }

// Kind of the type.
func (*Generic) Kind() Kind { return GenericKind }

// Kind of the type.
func (*Custom) Kind() Kind { return CustomKind }

// Kind of the type.
func (*Var) Kind() Kind { return VarKind }

func joinTypes(ts []Type) string {
	ss := make([]string, len(ts))
	for i, t := range ts {
		ss[i] = t.String()
	}
	return strings.Join(ss, ", ")
}

func (t *List) String() string { return fmt.Sprintf("List[%s]", t.Elem) }

func (t *Set) String() string { return fmt.Sprintf("Set[%s]", t.Elem) }

func (t *Dict) String() string { return fmt.Sprintf("Dict[%s, %s]", t.Key, t.Value) }

func (t *Tuple) String() string { return fmt.Sprintf("Tuple[%s]", joinTypes(t.Elems)) }

func (t *Optional) String() string { return fmt.Sprintf("Optional[%s]", t.Elem) }

func (t *Union) String() string { return fmt.Sprintf("Union[%s]", joinTypes(t.Members)) }

func (t *Function) String() string {
	return fmt.Sprintf("Callable[[%s], %s]", joinTypes(t.Params), t.Ret)
}

func (t *Generic) String() string {
	if len(t.Params) == 0 {
		return t.Base
	}
	return fmt.Sprintf("%s[%s]", t.Base, joinTypes(t.Params))
}

func (t *Custom) String() string { return t.Name }

func (t *Var) String() string { return fmt.Sprintf("'t%d", t.ID) }

// ----------------------------------------------------------------------------
// Constructors.

// ListOf returns a list type.
func ListOf(elem Type) *List { return &List{Elem: elem} }

// SetOf returns a set type.
func SetOf(elem Type) *Set { return &Set{Elem: elem} }

// DictOf returns a dictionary type.
func DictOf(key, value Type) *Dict { return &Dict{Key: key, Value: value} }

// TupleOf returns a tuple type.
func TupleOf(elems ...Type) *Tuple { return &Tuple{Elems: elems} }

// FunctionOf returns a function type.
func FunctionOf(ret Type, params ...Type) *Function {
	return &Function{Params: params, Ret: ret}
}

// GenericOf returns a generic type.
func GenericOf(base string, params ...Type) *Generic {
	return &Generic{Base: base, Params: params}
}

// CustomOf returns a custom type.
func CustomOf(name string) *Custom { return &Custom{Name: name} }

// NewOptional returns an optional type.
// Optional(Unknown) collapses to Unknown and Optional(Optional(T)) to Optional(T).
func NewOptional(elem Type) Type {
	switch elem.Kind() {
	case UnknownKind, OptionalKind:
		return elem
	case NoneKind:
		return elem
	}
	return &Optional{Elem: elem}
}

// NewUnion returns a union of types.
// Nested unions are flattened and members are deduplicated.
// A union with Unknown collapses to Unknown and a union with a single member is that member.
func NewUnion(members ...Type) Type {
	var flat []Type
	var add func(t Type)
	add = func(t Type) {
		if u, ok := t.(*Union); ok {
			for _, m := range u.Members {
				add(m)
			}
			return
		}
		for _, m := range flat {
			if Equal(m, t) && m.Kind() == t.Kind() {
				return
			}
		}
		flat = append(flat, t)
	}
	for _, m := range members {
		if m.Kind() == UnknownKind {
			return unknownT
		}
		add(m)
	}
	switch len(flat) {
	case 0:
		return unknownT
	case 1:
		return flat[0]
	}
	return &Union{Members: flat}
}

// OfLiteral returns the type of a Go value representing a source literal.
// nil is None. Integers, floats, strings and booleans map to their atomic type.
func OfLiteral(v any) Type {
	switch v.(type) {
	case nil:
		return noneT
	case bool:
		return boolT
	case int, int32, int64:
		return intT
	case float32, float64:
		return floatT
	case string:
		return stringT
	}
	return unknownT
}
