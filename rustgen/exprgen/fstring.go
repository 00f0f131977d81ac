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

package exprgen

import (
	"strconv"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
)

// formatter accumulates the format string and the arguments of a format! invocation.
type formatter struct {
	g    *Generator
	text strings.Builder
	args []rast.Expr
}

func (f *formatter) literal(s string) {
	f.text.WriteString(escapeFormat(s))
}

// value appends a placeholder formatting x like the source language would print it.
func (f *formatter) value(x hir.Expr, spec string) error {
	if s, ok := isStrLit(x); ok && spec == "" {
		f.literal(s)
		return nil
	}
	placeholder, arg, err := f.g.display(x, spec)
	if err != nil {
		return err
	}
	f.text.WriteString(placeholder)
	f.args = append(f.args, arg)
	return nil
}

// macro returns the format! invocation or a String if there is nothing to format.
func (f *formatter) macro() rast.Expr {
	if len(f.args) == 0 {
		return rast.M(rast.Str(strings.NewReplacer("{{", "{", "}}", "}").Replace(f.text.String())), "to_string")
	}
	return rast.Format(f.text.String(), f.args...)
}

func (g *Generator) newFormatter() *formatter {
	return &formatter{g: g}
}

// display returns the placeholder and the argument printing a value.
// Booleans print as True and False, floats always show a decimal point
// and containers use their debug representation.
func (g *Generator) display(x hir.Expr, spec string) (string, rast.Expr, error) {
	rspec, err := rustSpec(x, spec)
	if err != nil {
		return "", nil, err
	}
	e, err := g.Expr(x)
	if err != nil {
		return "", nil, err
	}
	if g.isDyn(x) {
		g.facade()
		if isFloatSpec(spec) {
			return placeholder(rspec, ""), rast.M(e, "to_f64"), nil
		}
		return placeholder(rspec, ""), e, nil
	}
	typ := g.typeOf(x)
	switch typ.Kind() {
	case types.BoolKind:
		return placeholder(rspec, ""), &rast.If{Cond: e, Then: rast.Blk(rast.Str("True")), Else: rast.Blk(rast.Str("False"))}, nil
	case types.IntKind:
		if isFloatSpec(spec) {
			return placeholder(rspec, ""), cast(e, "f64"), nil
		}
	case types.FloatKind:
		if rspec == "" {
			return "{:?}", e, nil
		}
	case types.ListKind, types.SetKind, types.DictKind, types.TupleKind, types.OptionalKind, types.CustomKind:
		return placeholder(rspec, "?"), e, nil
	}
	return placeholder(rspec, ""), e, nil
}

func placeholder(spec, trait string) string {
	if spec == "" && trait == "" {
		return "{}"
	}
	return "{:" + spec + trait + "}"
}

func isFloatSpec(spec string) bool {
	return strings.HasSuffix(spec, "f") || strings.HasSuffix(spec, "e")
}

// rustSpec converts a format specification of the source language, such as 08.2f, into a Rust one.
func rustSpec(x hir.Expr, spec string) (string, error) {
	if spec == "" {
		return "", nil
	}
	if strings.ContainsAny(spec, ",_%") {
		return "", fmterr.Unsupportedf(x.Span(), "format specification", "format specification %q not supported", spec)
	}
	switch spec[len(spec)-1] {
	case 'f', 'F', 'd', 's', 'g', 'G', 'n':
		return spec[:len(spec)-1], nil
	}
	return spec, nil
}

func (g *Generator) fstring(x *hir.FString) (rast.Expr, error) {
	f := g.newFormatter()
	for _, part := range x.Parts {
		if part.X == nil {
			f.literal(part.Lit)
			continue
		}
		if err := f.value(part.X, part.Spec); err != nil {
			return nil, err
		}
	}
	return f.macro(), nil
}

// bracePiece is a piece of a str.format template: a literal or a replacement field.
type bracePiece struct {
	lit   string
	field string
	spec  string
	isArg bool
}

// parseBraceFormat splits a str.format template into pieces.
func parseBraceFormat(s string) ([]bracePiece, bool) {
	var pieces []bracePiece
	var lit strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, false
			}
			if lit.Len() > 0 {
				pieces = append(pieces, bracePiece{lit: lit.String()})
				lit.Reset()
			}
			field, spec, _ := strings.Cut(s[i+1:i+end], ":")
			pieces = append(pieces, bracePiece{field: field, spec: spec, isArg: true})
			i += end
		case c == '}':
			return nil, false
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		pieces = append(pieces, bracePiece{lit: lit.String()})
	}
	return pieces, true
}

// strFormat generates str.format called on a literal template.
func (g *Generator) strFormat(x *hir.MethodCall, template string) (rast.Expr, error) {
	pieces, ok := parseBraceFormat(template)
	if !ok {
		return nil, fmterr.Unsupportedf(x.Span(), "str.format", "invalid format template %q", template)
	}
	f := g.newFormatter()
	auto := 0
	for _, piece := range pieces {
		if !piece.isArg {
			f.literal(piece.lit)
			continue
		}
		var arg hir.Expr
		if n, err := strconv.Atoi(piece.field); err == nil {
			if n < len(x.Args) {
				arg = x.Args[n]
			}
		} else if piece.field == "" {
			if auto < len(x.Args) {
				arg = x.Args[auto]
			}
			auto++
		} else {
			arg = hir.Kwarg(x.Kwargs, piece.field)
		}
		if arg == nil {
			return nil, fmterr.Arityf(x.Span(), "format string", "str.format: no argument for field {%s}", piece.field)
		}
		if err := f.value(arg, piece.spec); err != nil {
			return nil, err
		}
	}
	return f.macro(), nil
}

// percentFormat generates the % operator applied to a string.
func (g *Generator) percentFormat(x *hir.Binary) (rast.Expr, error) {
	template, ok := isStrLit(x.X)
	if !ok {
		return nil, fmterr.Unsupportedf(x.Span(), "string formatting", "%% formatting requires a literal template")
	}
	var args []hir.Expr
	if tuple, ok := x.Y.(*hir.TupleLit); ok {
		args = tuple.Elts
	} else {
		args = []hir.Expr{x.Y}
	}
	f := g.newFormatter()
	next := 0
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' {
			f.text.WriteString(escapeFormat(template[i : i+1]))
			continue
		}
		if i+1 < len(template) && template[i+1] == '%' {
			f.text.WriteByte('%')
			i++
			continue
		}
		j := i + 1
		for j < len(template) && strings.IndexByte("0123456789.-+ #", template[j]) >= 0 {
			j++
		}
		if j >= len(template) {
			return nil, fmterr.Unsupportedf(x.Span(), "string formatting", "incomplete format %q", template[i:])
		}
		flags, conv := template[i+1:j], template[j]
		if next >= len(args) {
			return nil, fmterr.Arityf(x.Span(), "format string", "not enough arguments for format string %q", template)
		}
		arg := args[next]
		next++
		var err error
		switch conv {
		case 's':
			err = f.value(arg, pySpecFromPercent(flags, ""))
		case 'd', 'i', 'u':
			err = f.value(arg, pySpecFromPercent(flags, "d"))
		case 'f', 'F', 'e', 'E', 'x', 'X', 'o':
			err = f.value(arg, pySpecFromPercent(flags, string(conv)))
		case 'r':
			var e rast.Expr
			if e, err = g.Expr(arg); err == nil {
				f.text.WriteString("{:?}")
				f.args = append(f.args, e)
			}
		default:
			err = fmterr.Unsupportedf(x.Span(), "string formatting", "conversion %%%c not supported", conv)
		}
		if err != nil {
			return nil, err
		}
		i = j
	}
	if next != len(args) {
		return nil, fmterr.Arityf(x.Span(), "format string", "not all arguments converted during string formatting")
	}
	return f.macro(), nil
}

// pySpecFromPercent converts the flags of a % conversion into a format specification.
// A minus flag left-aligns the value.
func pySpecFromPercent(flags, conv string) string {
	if strings.HasPrefix(flags, "-") {
		flags = "<" + flags[1:]
	} else if flags != "" && flags[0] >= '1' && flags[0] <= '9' {
		flags = ">" + flags
	}
	return flags + conv
}
