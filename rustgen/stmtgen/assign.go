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

package stmtgen

import (
	"strconv"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// Type renders a type and records the declarations needed by the rendering.
func (g *Generator) Type(t types.Type) rast.Type {
	r := types.Render(t)
	s := rast.String(r)
	if strings.Contains(s, "HashMap<") {
		g.ctx.Use("std::collections::HashMap")
	}
	if strings.Contains(s, "HashSet<") {
		g.ctx.Use("std::collections::HashSet")
	}
	if strings.Contains(s, types.DVName) {
		g.ctx.RequireFacade()
	}
	return r
}

// declaredType returns the type declared by the annotation of an assignment, nil if there is none.
func (g *Generator) declaredType(s *hir.Assign) (types.Type, error) {
	if s.Type != nil {
		return s.Type, nil
	}
	if s.Annotation == "" {
		return nil, nil
	}
	return g.ctx.MapAnnotation(s.Span(), s.Annotation)
}

func (g *Generator) assign(s *hir.Assign) ([]rast.Stmt, error) {
	g.current = s.Value
	if infer.IsDictAugAssignPattern(s.Target, s.Value) {
		bin := s.Value.(*hir.Binary)
		st, ok, err := g.x.UpdateIndex(s.Target.(*hir.IndexTarget), bin.Op, bin.Y)
		if err != nil {
			return nil, err
		}
		if ok {
			return g.withHoisted(st), nil
		}
	}
	switch t := s.Target.(type) {
	case *hir.SymbolTarget:
		return g.assignSymbol(s, t.Name)
	case *hir.TupleTarget:
		return g.assignTuple(s, t)
	case *hir.IndexTarget:
		st, err := g.x.StoreIndex(t, s.Value)
		if err != nil {
			return nil, err
		}
		return g.withHoisted(st), nil
	case *hir.AttrTarget:
		st, err := g.x.StoreAttr(t, s.Value)
		if err != nil {
			return nil, err
		}
		return g.withHoisted(st), nil
	}
	return nil, fmterr.Internalf(s.Span(), "assignment target %T not supported", s.Target)
}

// compatible returns true if a value of type have can be assigned to a variable of type want
// without declaring a new variable.
func (g *Generator) compatible(want, have types.Type, x hir.Expr) bool {
	switch {
	case types.IsUnknown(want) || types.IsUnknown(have):
		return true
	case types.IsDV(want) || types.IsSubtype(have, want):
		return true
	case want.Kind() == have.Kind():
		return true
	case want.Kind() == types.FloatKind && have.Kind() == types.IntKind:
		return true
	}
	if infer.ProducesDV(g.ctx, x) {
		_, ok := infer.DVExtraction(want)
		return ok
	}
	return false
}

func (g *Generator) assignSymbol(s *hir.Assign, name string) ([]rast.Stmt, error) {
	declared, err := g.declaredType(s)
	if err != nil {
		return nil, err
	}
	if g.boxed[name] {
		v, err := g.x.Value(s.Value)
		if err != nil {
			return nil, err
		}
		return g.withHoisted(&rast.Assign{Lhs: rast.Id(exprgen.Ident(name)), Op: "=", Rhs: rast.PC("Box::new", v)}), nil
	}
	if !g.ctx.IsDeclared(name) {
		return g.declare(s.Value, name, declared)
	}
	prev, _ := g.ctx.LookupVar(name)
	have := declared
	if have == nil {
		have = infer.TypeOf(g.ctx, s.Value)
	}
	if prev != nil && !g.compatible(prev, have, s.Value) {
		g.trace(s, "shadow", name+" redeclared from "+prev.String()+" to "+have.String())
		return g.declare(s.Value, name, declared)
	}
	want := prev
	switch {
	case declared != nil:
		want = declared
	case prev == nil || prev.Kind() == types.UnknownKind:
		want = have
	}
	v, err := g.x.Coerce(s.Value, want)
	if err != nil {
		return nil, err
	}
	if prev == nil || prev.Kind() == types.UnknownKind {
		g.ctx.BindVar(name, want)
	}
	if infer.IsNumpyValue(g.ctx, s.Value) {
		g.ctx.MarkNumpy(name)
	}
	g.ctx.MarkMutable(name)
	return g.withHoisted(&rast.Assign{Lhs: rast.Id(exprgen.Ident(name)), Op: "=", Rhs: v}), nil
}

// declare generates the first binding of a variable.
func (g *Generator) declare(value hir.Expr, name string, declared types.Type) ([]rast.Stmt, error) {
	typed := declared != nil && !types.IsUnknown(declared)
	var v rast.Expr
	var err error
	if typed {
		v, err = g.x.Coerce(value, declared)
	} else {
		v, err = g.x.Value(value)
	}
	if err != nil {
		return nil, err
	}
	typ := declared
	if !typed {
		typ = infer.TypeOf(g.ctx, value)
	}
	numpy := infer.IsNumpyValue(g.ctx, value)
	g.ctx.Declare(name)
	g.ctx.BindVar(name, typ)
	if numpy {
		g.ctx.MarkNumpy(name)
	}
	if !typed {
		v = g.bufferReader(name, value, v, g.following())
	}
	let := &rast.Let{
		Pattern: rast.Id(exprgen.Ident(name)),
		Mut:     g.isMutable(name),
		Value:   v,
	}
	if typed {
		let.Type = g.Type(declared)
	}
	return g.withHoisted(let), nil
}

func symbolTargets(t *hir.TupleTarget) ([]string, bool) {
	names := make([]string, len(t.Elts))
	for i, elt := range t.Elts {
		sym, ok := elt.(*hir.SymbolTarget)
		if !ok {
			return nil, false
		}
		names[i] = sym.Name
	}
	return names, true
}

func (g *Generator) assignTuple(s *hir.Assign, t *hir.TupleTarget) ([]rast.Stmt, error) {
	if lit, ok := s.Value.(*hir.TupleLit); ok && len(lit.Elts) != len(t.Elts) {
		return nil, fmterr.Arityf(s.Span(), "tuple unpacking", "cannot unpack %d values into %d targets", len(lit.Elts), len(t.Elts))
	}
	tuple, _ := infer.TypeOf(g.ctx, s.Value).(*types.Tuple)
	if tuple != nil && len(tuple.Elems) != len(t.Elts) {
		return nil, fmterr.Arityf(s.Span(), "tuple unpacking", "cannot unpack %d values into %d targets", len(tuple.Elems), len(t.Elts))
	}
	elemType := func(i int) types.Type {
		if tuple == nil {
			return types.UnknownType()
		}
		return tuple.Elems[i]
	}
	names, symbols := symbolTargets(t)
	switch {
	case infer.ProducesDV(g.ctx, s.Value):
		if !symbols {
			return nil, fmterr.Unsupportedf(s.Span(), "TupleTarget", "unpacking a dynamic value into elements or attributes")
		}
		return g.unpackDyn(s, names)
	case !symbols:
		return g.unpackTemps(s, t, elemType)
	}
	v, err := g.x.Value(s.Value)
	if err != nil {
		return nil, err
	}
	var stmts []rast.Stmt
	pattern := &rast.Tuple{}
	allNew := true
	for _, name := range names {
		allNew = allNew && !g.ctx.IsDeclared(name)
	}
	for i, name := range names {
		switch {
		case name == "_":
			pattern.Elts = append(pattern.Elts, &rast.Wild{})
			continue
		case allNew:
			pattern.Elts = append(pattern.Elts, &rast.Binding{Mut: g.isMutable(name), Name: exprgen.Ident(name)})
		case !g.ctx.IsDeclared(name):
			stmts = append(stmts, &rast.Let{Pattern: rast.Id(exprgen.Ident(name)), Mut: g.isMutable(name)})
			pattern.Elts = append(pattern.Elts, rast.Id(exprgen.Ident(name)))
		default:
			g.ctx.MarkMutable(name)
			pattern.Elts = append(pattern.Elts, rast.Id(exprgen.Ident(name)))
		}
		if !g.ctx.IsDeclared(name) {
			g.ctx.Declare(name)
			g.ctx.BindVar(name, elemType(i))
		}
	}
	if allNew {
		stmts = append(stmts, &rast.Let{Pattern: pattern, Value: v})
	} else {
		stmts = append(stmts, &rast.Assign{Lhs: pattern, Op: "=", Rhs: v})
	}
	return g.withHoisted(stmts...), nil
}

// unpackDyn unpacks a dynamic tuple or list into variables, one element at a time.
func (g *Generator) unpackDyn(s *hir.Assign, names []string) ([]rast.Stmt, error) {
	v, err := g.x.Value(s.Value)
	if err != nil {
		return nil, err
	}
	g.ctx.RequireFacade()
	tmp := g.ctx.TempName()
	stmts := g.withHoisted(&rast.Let{Pattern: rast.Id(tmp), Value: v})
	for i, name := range names {
		if name == "_" {
			continue
		}
		var elt rast.Expr = rast.M(rast.Id(tmp), "get_tuple_elem", rast.Int(strconv.Itoa(i)))
		ident := rast.Id(exprgen.Ident(name))
		if !g.ctx.IsDeclared(name) {
			g.ctx.Declare(name)
			g.ctx.BindVar(name, types.CustomOf("Any"))
			stmts = append(stmts, &rast.Let{Pattern: ident, Mut: g.isMutable(name), Value: elt})
			continue
		}
		prev, _ := g.ctx.LookupVar(name)
		if ext, ok := infer.DVExtraction(prev); ok && !types.IsDV(prev) {
			elt = rast.M(elt, ext.Method)
			if ext.Cast != "" {
				elt = &rast.Cast{X: elt, Type: rast.Named(ext.Cast)}
			}
		}
		g.ctx.MarkMutable(name)
		stmts = append(stmts, &rast.Assign{Lhs: ident, Op: "=", Rhs: elt})
	}
	g.trace(s, "dv-unpack", "elements extracted with get_tuple_elem")
	return stmts, nil
}

// unpackTemps binds the elements of a tuple to temporaries and assigns each temporary to its target.
func (g *Generator) unpackTemps(s *hir.Assign, t *hir.TupleTarget, elemType func(int) types.Type) ([]rast.Stmt, error) {
	v, err := g.x.Value(s.Value)
	if err != nil {
		return nil, err
	}
	stmts := g.x.TakeHoisted()
	pattern := &rast.Tuple{}
	temps := make([]string, len(t.Elts))
	for i := range t.Elts {
		temps[i] = g.ctx.TempName()
		pattern.Elts = append(pattern.Elts, rast.Id(temps[i]))
	}
	stmts = append(stmts, &rast.Let{Pattern: pattern, Value: v})
	for i, elt := range t.Elts {
		restore := g.ctx.ShadowVar(temps[i], elemType(i))
		out, err := g.assign(&hir.Assign{Pos: s.Pos, Target: elt, Value: &hir.Var{Pos: s.Pos, Name: temps[i]}})
		restore()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, out...)
	}
	return stmts, nil
}

// compoundOps are the operators with a Rust compound assignment for numbers of the same type.
var compoundOps = map[hir.BinOp]bool{
	hir.Add: true, hir.Sub: true, hir.Mul: true,
	hir.BitAnd: true, hir.BitOr: true, hir.BitXor: true, hir.LShift: true, hir.RShift: true,
}

// compound returns true if an augmented assignment of a value to a target of a given type
// maps to a Rust compound assignment.
func (g *Generator) compound(op hir.BinOp, target types.Type, value hir.Expr) bool {
	have := infer.TypeOf(g.ctx, value)
	switch target.Kind() {
	case types.IntKind:
		return compoundOps[op] && have.Kind() == types.IntKind
	case types.FloatKind:
		return (op == hir.Add || op == hir.Sub || op == hir.Mul || op == hir.Div) && types.IsNumeric(have)
	}
	return false
}

func (g *Generator) augAssign(s *hir.AugAssign) ([]rast.Stmt, error) {
	g.current = s.Value
	var st rast.Stmt
	var err error
	switch t := s.Target.(type) {
	case *hir.SymbolTarget:
		st, err = g.augSymbol(s, t.Name)
	case *hir.IndexTarget:
		var ok bool
		st, ok, err = g.x.UpdateIndex(t, s.Op, s.Value)
		if !ok {
			st = nil
		}
	case *hir.AttrTarget:
		st, err = g.augAttr(s, t)
	}
	if err != nil {
		return nil, err
	}
	if st == nil {
		return g.assign(s.Lower())
	}
	return g.withHoisted(st), nil
}

// augSymbol generates an in-place update of a variable. It returns nil if the update needs a new value.
func (g *Generator) augSymbol(s *hir.AugAssign, name string) (rast.Stmt, error) {
	typ, ok := g.ctx.LookupVar(name)
	if !ok || !g.ctx.IsDeclared(name) || g.ctx.IsNumpyVar(name) || infer.ProducesDV(g.ctx, &hir.Var{Name: name}) {
		return nil, nil
	}
	lhs := rast.Id(exprgen.Ident(name))
	switch {
	case g.compound(s.Op, typ, s.Value):
		v, err := g.x.Coerce(s.Value, typ)
		if err != nil {
			return nil, err
		}
		g.ctx.MarkMutable(name)
		return &rast.Assign{Lhs: lhs, Op: s.Op.RustOp() + "=", Rhs: v}, nil
	case typ.Kind() == types.StringKind && s.Op == hir.Add && infer.IsStringExpr(g.ctx, s.Value):
		if g.ctx.IsStrParam(name) {
			return nil, nil
		}
		v, err := g.x.StrRef(s.Value)
		if err != nil {
			return nil, err
		}
		g.ctx.MarkMutable(name)
		return rast.Semi(rast.M(lhs, "push_str", v)), nil
	case typ.Kind() == types.ListKind && s.Op == hir.Add:
		v, err := g.x.IterOf(s.Value)
		if err != nil {
			return nil, err
		}
		g.ctx.MarkMutable(name)
		return rast.Semi(rast.M(lhs, "extend", v)), nil
	}
	return nil, nil
}

// augAttr generates an in-place update of a numeric attribute. It returns nil for other attributes.
func (g *Generator) augAttr(s *hir.AugAssign, t *hir.AttrTarget) (rast.Stmt, error) {
	attr := hir.TargetExpr(t)
	typ := infer.TypeOf(g.ctx, attr)
	if !g.compound(s.Op, typ, s.Value) || infer.ProducesDV(g.ctx, attr) {
		return nil, nil
	}
	lhs, err := g.x.Expr(attr)
	if err != nil {
		return nil, err
	}
	if v, ok := t.X.(*hir.Var); ok {
		g.ctx.MarkMutable(v.Name)
	}
	v, err := g.x.Coerce(s.Value, typ)
	if err != nil {
		return nil, err
	}
	return &rast.Assign{Lhs: lhs, Op: s.Op.RustOp() + "=", Rhs: v}, nil
}
