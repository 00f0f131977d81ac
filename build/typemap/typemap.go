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

// Package typemap converts source type annotations into types.
package typemap

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/types"
)

// Mapper converts annotations into types and caches the result.
type Mapper struct {
	cache map[string]types.Type
}

// New returns a new type mapper.
func New() *Mapper {
	return &Mapper{cache: make(map[string]types.Type)}
}

// Map returns the type of an annotation.
// If the annotation cannot be parsed, Unknown is returned with an AnnotationParse error.
func (m *Mapper) Map(span fmterr.Span, annotation string) (types.Type, error) {
	if typ, ok := m.cache[annotation]; ok {
		return typ, nil
	}
	typ, err := Parse(annotation)
	if err != nil {
		return types.UnknownType(), fmterr.AnnotationParsef(span, annotation, "%v", err)
	}
	m.cache[annotation] = typ
	return typ, nil
}

// Parse an annotation.
func Parse(annotation string) (types.Type, error) {
	p := &parser{src: annotation}
	p.next()
	typ, err := p.union()
	if err != nil {
		return nil, err
	}
	if p.tok != "" {
		return nil, errors.Errorf("unexpected %q after type", p.tok)
	}
	return typ, nil
}

type parser struct {
	src string
	pos int
	tok string
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// next reads the next token: an identifier, a punctuation or "...".
func (p *parser) next() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = ""
		return
	}
	start := p.pos
	if strings.HasPrefix(p.src[p.pos:], "...") {
		p.pos += 3
		p.tok = "..."
		return
	}
	c := p.src[p.pos]
	switch c {
	case '[', ']', ',', '|':
		p.pos++
		p.tok = string(c)
		return
	case '"', '\'':
		end := strings.IndexByte(p.src[p.pos+1:], c)
		if end < 0 {
			p.tok = p.src[p.pos:]
			p.pos = len(p.src)
			return
		}
		p.tok = p.src[p.pos : p.pos+end+2]
		p.pos += end + 2
		return
	}
	for p.pos < len(p.src) && isIdentRune(rune(p.src[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		p.pos++
	}
	p.tok = p.src[start:p.pos]
}

func (p *parser) expect(tok string) error {
	if p.tok != tok {
		if p.tok == "" {
			return errors.Errorf("missing %q", tok)
		}
		return errors.Errorf("got %q but want %q", p.tok, tok)
	}
	p.next()
	return nil
}

func (p *parser) union() (types.Type, error) {
	first, err := p.typ()
	if err != nil {
		return nil, err
	}
	members := []types.Type{first}
	for p.tok == "|" {
		p.next()
		member, err := p.typ()
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if len(members) == 1 {
		return first, nil
	}
	return unionOf(members), nil
}

// unionOf returns Optional(T) for T | None, a union otherwise.
func unionOf(members []types.Type) types.Type {
	var rest []types.Type
	hasNone := false
	for _, m := range members {
		if m.Kind() == types.NoneKind {
			hasNone = true
			continue
		}
		rest = append(rest, m)
	}
	if hasNone && len(rest) == 1 {
		return types.NewOptional(rest[0])
	}
	return types.NewUnion(members...)
}

func (p *parser) args() ([]types.Type, error) {
	if p.tok != "[" {
		return nil, nil
	}
	p.next()
	var args []types.Type
	for p.tok != "]" {
		if len(args) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		var arg types.Type
		var err error
		switch p.tok {
		case "[":
			// Parameter list of a Callable.
			var params []types.Type
			params, err = p.args()
			arg = types.TupleOf(params...)
		case "...":
			p.next()
			arg = ellipsis
		case "":
			return nil, errors.Errorf("missing %q", "]")
		default:
			arg, err = p.union()
		}
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.next()
	return args, nil
}

// ellipsis is a marker for "..." in generic arguments.
var ellipsis = types.CustomOf("...")

func (p *parser) typ() (types.Type, error) {
	name := p.tok
	if name == "" {
		return nil, errors.Errorf("missing type")
	}
	if name[0] == '"' || name[0] == '\'' {
		// Forward reference.
		p.next()
		if len(name) < 2 || name[len(name)-1] != name[0] {
			return nil, errors.Errorf("unterminated forward reference %s", name)
		}
		return Parse(name[1 : len(name)-1])
	}
	if !isIdentRune(rune(name[0])) || unicode.IsDigit(rune(name[0])) {
		return nil, errors.Errorf("unexpected %q", name)
	}
	p.next()
	args, err := p.args()
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", name)
	}
	return build(name, args)
}

func arg(args []types.Type, i int) types.Type {
	if i < len(args) && args[i] != ellipsis {
		return args[i]
	}
	return types.UnknownType()
}

func build(name string, args []types.Type) (types.Type, error) {
	short := strings.TrimPrefix(name, "typing.")
	short = strings.TrimPrefix(short, "collections.")
	switch short {
	case "int":
		return types.IntType(), nil
	case "float":
		return types.FloatType(), nil
	case "bool":
		return types.BoolType(), nil
	case "str":
		return types.StringType(), nil
	case "None", "NoneType":
		return types.NoneType(), nil
	case "Any", "object":
		return types.CustomOf(short), nil
	case "List", "list", "Sequence", "MutableSequence":
		return types.ListOf(arg(args, 0)), nil
	case "Set", "set", "FrozenSet", "frozenset", "AbstractSet":
		return types.SetOf(arg(args, 0)), nil
	case "Dict", "dict", "Mapping", "MutableMapping":
		return types.DictOf(arg(args, 0), arg(args, 1)), nil
	case "Tuple", "tuple":
		if len(args) == 2 && args[1] == ellipsis {
			return types.ListOf(args[0]), nil
		}
		for _, a := range args {
			if a == ellipsis {
				return nil, errors.Errorf("... must be the second argument of %s", name)
			}
		}
		return types.TupleOf(args...), nil
	case "Optional":
		if len(args) != 1 {
			return nil, errors.Errorf("Optional takes 1 argument, got %d", len(args))
		}
		return types.NewOptional(args[0]), nil
	case "Union":
		if len(args) == 0 {
			return nil, errors.Errorf("Union requires arguments")
		}
		return unionOf(args), nil
	case "Callable":
		params := types.TupleOf()
		if len(args) > 0 {
			if tpl, ok := args[0].(*types.Tuple); ok {
				params = tpl
			}
		}
		return types.FunctionOf(arg(args, 1), params.Elems...), nil
	case "Iterator", "Iterable", "Generator", "AsyncIterator":
		return types.GenericOf(strings.TrimPrefix(short, "Async"), arg(args, 0)), nil
	case "deque", "Deque":
		return types.GenericOf("deque", arg(args, 0)), nil
	case "DefaultDict", "defaultdict", "OrderedDict":
		return types.DictOf(arg(args, 0), arg(args, 1)), nil
	case "Counter":
		return types.DictOf(arg(args, 0), types.IntType()), nil
	case "bytes", "bytearray":
		return types.GenericOf("bytes"), nil
	case "ndarray", "np.ndarray", "numpy.ndarray", "NDArray", "npt.NDArray":
		return types.GenericOf("ndarray"), nil
	}
	if len(args) > 0 {
		return types.GenericOf(short, args...), nil
	}
	return types.CustomOf(short), nil
}
