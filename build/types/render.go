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

package types

import (
	"github.com/gx-org/pyrs/build/rast"
)

// Render a type into its Rust form.
func Render(t Type) rast.Type {
	switch tT := t.(type) {
	case *atomicType:
		return renderAtomic(tT.knd)
	case *List:
		return rast.Named("Vec", Render(tT.Elem))
	case *Set:
		return rast.Named("HashSet", Render(tT.Elem))
	case *Dict:
		return rast.Named("HashMap", Render(tT.Key), Render(tT.Value))
	case *Tuple:
		elems := make([]rast.Type, len(tT.Elems))
		for i, elem := range tT.Elems {
			elems[i] = Render(elem)
		}
		return &rast.TypeTuple{Elems: elems}
	case *Optional:
		return rast.Named("Option", Render(tT.Elem))
	case *Union:
		return renderUnion(tT)
	case *Function:
		return renderFunction(tT.Params, tT.Ret)
	case *Generic:
		return renderGeneric(tT)
	case *Custom:
		if IsAnyName(tT.Name) {
			return rast.Named(DVName)
		}
		return rast.Named(tT.Name)
	case *Var:
		return &rast.TypeInfer{}
	}
	return rast.Named(DVName)
}

func renderAtomic(k Kind) rast.Type {
	switch k {
	case IntKind:
		return rast.Named("i32")
	case FloatKind:
		return rast.Named("f64")
	case BoolKind:
		return rast.Named("bool")
	case StringKind:
		return rast.Named("String")
	case NoneKind:
		return rast.Unit()
	}
	return rast.Named(DVName)
}

// renderUnion drops None (turning the union into an Option),
// widens numeric unions to f64 and falls back to DynValue otherwise.
func renderUnion(u *Union) rast.Type {
	var rest []Type
	hasNone := false
	for _, m := range u.Members {
		if m.Kind() == NoneKind {
			hasNone = true
			continue
		}
		rest = append(rest, m)
	}
	var inner rast.Type
	switch {
	case len(rest) == 0:
		return rast.Unit()
	case len(rest) == 1:
		inner = Render(rest[0])
	case allNumeric(rest):
		inner = rast.Named("f64")
	default:
		inner = rast.Named(DVName)
	}
	if hasNone {
		return rast.Named("Option", inner)
	}
	return inner
}

func allNumeric(ts []Type) bool {
	for _, t := range ts {
		if !IsNumeric(t) {
			return false
		}
	}
	return true
}

func renderFunction(params []Type, ret Type) rast.Type {
	fn := &rast.TypeFn{Trait: "Fn"}
	for _, p := range params {
		fn.Params = append(fn.Params, Render(p))
	}
	if ret != nil && ret.Kind() != NoneKind {
		fn.Ret = Render(ret)
	}
	return rast.Named("Box", &rast.TypeDyn{Trait: fn})
}

func genericParam(g *Generic, i int) rast.Type {
	if i < len(g.Params) {
		return Render(g.Params[i])
	}
	return rast.Named(DVName)
}

func renderGeneric(g *Generic) rast.Type {
	switch g.Base {
	case "Callable":
		// Callable[[A, B], R] is stored as Params = [Tuple(A, B), R].
		var params []Type
		var ret Type = noneT
		if len(g.Params) > 0 {
			if args, ok := g.Params[0].(*Tuple); ok {
				params = args.Elems
			}
		}
		if len(g.Params) > 1 {
			ret = g.Params[1]
		}
		return renderFunction(params, ret)
	case "Iterator", "Generator", "Iterable":
		item := &rast.TypeAssoc{Name: "Item", Value: genericParam(g, 0)}
		return rast.Named("Box", &rast.TypeDyn{Trait: rast.Named("Iterator", item)})
	case "deque":
		return rast.Named("VecDeque", genericParam(g, 0))
	case "FrozenSet", "frozenset":
		return rast.Named("HashSet", genericParam(g, 0))
	case "DefaultDict", "defaultdict", "Counter", "OrderedDict":
		if g.Base == "Counter" {
			return rast.Named("HashMap", genericParam(g, 0), rast.Named("i32"))
		}
		return rast.Named("HashMap", genericParam(g, 0), genericParam(g, 1))
	case "ndarray":
		return rast.Named("Vec", rast.Named("f64"))
	case "bytes", "bytearray":
		return rast.Named("Vec", rast.Named("u8"))
	}
	args := make([]rast.Type, len(g.Params))
	for i, p := range g.Params {
		args[i] = Render(p)
	}
	return rast.Named(g.Base, args...)
}

// RustString returns the Rust form of a type.
func RustString(t Type) string {
	return rast.String(Render(t))
}

// Equal returns true if two types render to the same Rust type.
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	return RustString(a) == RustString(b)
}

// IsAnyName returns true if a class name stands for any value.
func IsAnyName(name string) bool {
	return name == "Any" || name == "object"
}

// IsDV returns true if the type renders to the DynValue facade.
func IsDV(t Type) bool {
	if t == nil {
		return false
	}
	return RustString(t) == DVName
}

// IsUnknown returns true if the type is Unknown or Any.
func IsUnknown(t Type) bool {
	if t == nil {
		return true
	}
	switch tT := t.(type) {
	case *atomicType:
		return tT.knd == UnknownKind
	case *Custom:
		return IsAnyName(tT.Name)
	}
	return false
}

// IsNumeric returns true for integers and floats.
func IsNumeric(t Type) bool {
	k := t.Kind()
	return k == IntKind || k == FloatKind
}

// IsSubtype returns true if a value of type sub can be used where super is expected.
// Unknown is a supertype of every type and Optional(T) contains T and None.
// Int is not a subtype of Float: widening is a conversion.
func IsSubtype(sub, super Type) bool {
	if super.Kind() == UnknownKind || Equal(sub, super) {
		return true
	}
	switch superT := super.(type) {
	case *Optional:
		return sub.Kind() == NoneKind || IsSubtype(sub, superT.Elem)
	case *Union:
		if subU, ok := sub.(*Union); ok {
			for _, m := range subU.Members {
				if !IsSubtype(m, super) {
					return false
				}
			}
			return true
		}
		for _, m := range superT.Members {
			if IsSubtype(sub, m) {
				return true
			}
		}
	}
	return false
}

// Join returns the smallest type containing both types:
// equal types join to themselves, Int and Float to Float,
// None and T to Optional(T), anything else to a union.
func Join(a, b Type) Type {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case IsSubtype(a, b):
		return b
	case IsSubtype(b, a):
		return a
	case IsNumeric(a) && IsNumeric(b):
		return floatT
	case a.Kind() == NoneKind:
		return NewOptional(b)
	case b.Kind() == NoneKind:
		return NewOptional(a)
	}
	return NewUnion(a, b)
}

// ElemOf returns the element type of a container:
// the element of a list, set or optional, the key of a dictionary.
// It returns Unknown for other types.
func ElemOf(t Type) Type {
	switch tT := t.(type) {
	case *List:
		return tT.Elem
	case *Set:
		return tT.Elem
	case *Optional:
		return tT.Elem
	case *Dict:
		return tT.Key
	case *Generic:
		if len(tT.Params) > 0 {
			return tT.Params[0]
		}
	case *atomicType:
		if tT.knd == StringKind {
			return stringT
		}
	}
	return unknownT
}
