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
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
	"github.com/gx-org/pyrs/rustgen/scope"
)

// assignments returns the assignments of a variable at the level of a block,
// including the branches of nested if, try and with statements.
func assignments(name string, stmts []hir.Stmt) []*hir.Assign {
	var found []*hir.Assign
	var visit func([]hir.Stmt)
	visit = func(stmts []hir.Stmt) {
		for _, s := range stmts {
			switch sT := s.(type) {
			case *hir.Assign:
				if sym, ok := sT.Target.(*hir.SymbolTarget); ok && sym.Name == name {
					found = append(found, sT)
				}
			case *hir.If:
				visit(sT.Body)
				visit(sT.Else)
			case *hir.Try:
				visit(sT.Body)
				for _, h := range sT.Handlers {
					visit(h.Body)
				}
				visit(sT.Else)
				visit(sT.Finally)
			case *hir.With:
				visit(sT.Body)
			case *hir.Block:
				visit(sT.Body)
			}
		}
	}
	visit(stmts)
	return found
}

// maxWrites returns the largest number of writes of a variable along a path through a block.
// A write inside a loop counts as several writes.
func maxWrites(name string, stmts []hir.Stmt) int {
	n := 0
	for _, s := range stmts {
		switch sT := s.(type) {
		case *hir.If:
			n += max(maxWrites(name, sT.Body), maxWrites(name, sT.Else))
		case *hir.Block:
			n += maxWrites(name, sT.Body)
		case *hir.With:
			n += maxWrites(name, sT.Body)
		case *hir.Try:
			handlers := 0
			for _, h := range sT.Handlers {
				handlers = max(handlers, maxWrites(name, h.Body))
			}
			n += maxWrites(name, sT.Body) + max(handlers, maxWrites(name, sT.Else)) + maxWrites(name, sT.Finally)
		case *hir.For, *hir.While:
			if scope.IsVarReassignedInStmt(name, s) {
				n += 2
			}
		default:
			if scope.IsVarReassignedInStmt(name, s) {
				n++
			}
		}
	}
	return n
}

// definitelyWrites returns true if every path through a block writes a variable.
func definitelyWrites(name string, stmts []hir.Stmt) bool {
	for _, s := range stmts {
		switch sT := s.(type) {
		case *hir.Assign, *hir.AugAssign:
			if scope.IsVarReassignedInStmt(name, s) {
				return true
			}
		case *hir.If:
			if definitelyWrites(name, sT.Body) && definitelyWrites(name, sT.Else) {
				return true
			}
		case *hir.Block:
			if definitelyWrites(name, sT.Body) {
				return true
			}
		case *hir.With:
			if sT.Target == name || definitelyWrites(name, sT.Body) {
				return true
			}
		}
	}
	return false
}

// hoistedType returns the type of a variable declared before the statement assigning it.
func (g *Generator) hoistedType(name string, stmts []hir.Stmt) (types.Type, error) {
	var typ types.Type
	for _, a := range assignments(name, stmts) {
		declared, err := g.declaredType(a)
		if err != nil {
			return nil, err
		}
		if declared != nil {
			return declared, nil
		}
		typ = types.Join(typ, infer.TypeOf(g.ctx, a.Value))
	}
	if typ == nil {
		typ = types.UnknownType()
	}
	return typ, nil
}

// predeclare declares a variable assigned by a compound statement and read after it.
// The declaration has no value if every path of the statement assigns the variable
// and a default value otherwise.
func (g *Generator) predeclare(s hir.Stmt, name string, typ types.Type) rast.Stmt {
	stmts := []hir.Stmt{s}
	deferred := definitelyWrites(name, stmts)
	let := &rast.Let{
		Pattern: rast.Id(exprgen.Ident(name)),
		Mut:     !deferred || maxWrites(name, stmts) > 1 || g.isMutable(name),
	}
	if !types.IsUnknown(typ) || !deferred {
		let.Type = g.Type(typ)
	}
	if !deferred {
		let.Value = rast.PC("Default::default")
		if types.IsUnknown(typ) {
			typ = types.CustomOf("Any")
		}
	}
	g.ctx.Declare(name)
	g.ctx.BindVar(name, typ)
	return let
}

func (g *Generator) ifStmt(s *hir.If) ([]rast.Stmt, error) {
	var pre []rast.Stmt
	for _, name := range scope.HoistedSymbols(s, g.following()) {
		if g.ctx.IsDeclared(name) {
			continue
		}
		if scope.NeedsBoxedDynWrite(name, s.Body, s.Else) {
			pre = append(pre, g.boxedWriter(s, name))
			continue
		}
		typ, err := g.hoistedType(name, []hir.Stmt{s})
		if err != nil {
			return nil, err
		}
		pre = append(pre, g.predeclare(s, name, typ))
	}
	g.current = s.Cond
	cond, err := g.x.Cond(s.Cond)
	if err != nil {
		return nil, err
	}
	pre = append(pre, g.x.TakeHoisted()...)
	ifx, err := g.ifExpr(s, cond)
	if err != nil {
		return nil, err
	}
	return append(pre, &rast.ExprStmt{X: ifx}), nil
}

// boxedWriter declares a variable holding either a file or a standard stream.
func (g *Generator) boxedWriter(s *hir.If, name string) rast.Stmt {
	g.trace(s, "boxed-write", name+" holds a file or a standard stream")
	g.ctx.Use("std::io::Write")
	g.ctx.Declare(name)
	g.ctx.BindVar(name, types.CustomOf("File"))
	g.ctx.MarkMutable(name)
	g.boxed[name] = true
	return &rast.Let{
		Pattern: rast.Id(exprgen.Ident(name)),
		Mut:     true,
		Type:    rast.Named("Box", &rast.TypeDyn{Trait: rast.Named("std::io::Write")}),
	}
}

// ifExpr generates an if statement with a generated condition.
// elif branches become else-if chains unless their condition binds a variable.
func (g *Generator) ifExpr(s *hir.If, cond rast.Expr) (*rast.If, error) {
	then, err := g.Block(s.Body)
	if err != nil {
		return nil, err
	}
	out := &rast.If{Cond: cond, Then: then}
	if len(s.Else) == 0 {
		return out, nil
	}
	if elif, ok := s.Else[0].(*hir.If); ok && len(s.Else) == 1 && !scope.ContainsWalrus(elif.Cond) {
		cond, err := g.x.Cond(elif.Cond)
		if err != nil {
			return nil, err
		}
		hoisted := g.x.TakeHoisted()
		nested, err := g.ifExpr(elif, cond)
		if err != nil {
			return nil, err
		}
		if len(hoisted) > 0 {
			out.Else = rast.Blk(nil, append(hoisted, &rast.ExprStmt{X: nested})...)
		} else {
			out.Else = nested
		}
		return out, nil
	}
	els, err := g.Block(s.Else)
	if err != nil {
		return nil, err
	}
	out.Else = els
	return out, nil
}

func isTrue(x hir.Expr) bool {
	lit, ok := x.(*hir.Lit)
	if !ok {
		return false
	}
	switch lit.Kind {
	case hir.LitBool:
		return lit.Text == "True"
	case hir.LitInt:
		return lit.Text != "0"
	}
	return false
}

func (g *Generator) loopBody(body []hir.Stmt) (*rast.Block, error) {
	g.loops = append(g.loops, body)
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()
	return g.Block(body)
}

func (g *Generator) while(s *hir.While) ([]rast.Stmt, error) {
	if isTrue(s.Cond) {
		body, err := g.loopBody(s.Body)
		if err != nil {
			return nil, err
		}
		return []rast.Stmt{&rast.Loop{Body: body}}, nil
	}
	bindings, simplified := scope.ExtractWalrusFromCondition(s.Cond)
	if len(bindings) == 0 {
		g.current = s.Cond
		cond, err := g.x.Cond(s.Cond)
		if err != nil {
			return nil, err
		}
		pre := g.x.TakeHoisted()
		body, err := g.loopBody(s.Body)
		if err != nil {
			return nil, err
		}
		return append(pre, &rast.While{Cond: cond, Body: body}), nil
	}
	g.trace(s, "walrus-loop", "condition bindings evaluated before each iteration")
	// The loop body reads the bound variables: they stay live while the values are generated.
	g.loops = append(g.loops, s.Body)
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()
	if scope.ContainsContinue(s.Body) {
		return g.walrusLoop(s, bindings, simplified)
	}
	var pre []rast.Stmt
	for _, b := range bindings {
		v, err := g.x.Value(b.Value)
		if err != nil {
			return nil, err
		}
		pre = append(pre, g.x.TakeHoisted()...)
		if g.ctx.IsDeclared(b.Name) {
			g.ctx.MarkMutable(b.Name)
			pre = append(pre, &rast.Assign{Lhs: rast.Id(exprgen.Ident(b.Name)), Op: "=", Rhs: v})
		} else {
			pre = append(pre, &rast.Let{Pattern: rast.Id(exprgen.Ident(b.Name)), Mut: true, Value: v})
			g.ctx.Declare(b.Name)
			g.ctx.BindVar(b.Name, infer.TypeOf(g.ctx, b.Value))
			g.ctx.MarkMutable(b.Name)
		}
	}
	cond, err := g.x.Cond(simplified)
	if err != nil {
		return nil, err
	}
	pre = append(pre, g.x.TakeHoisted()...)
	body, err := g.Block(s.Body)
	if err != nil {
		return nil, err
	}
	rebind, err := g.rebind(bindings)
	if err != nil {
		return nil, err
	}
	body.Stmts = append(body.Stmts, rebind...)
	return append(pre, &rast.While{Cond: cond, Body: body}), nil
}

// rebind assigns again the variables bound in the condition of a loop.
func (g *Generator) rebind(bindings []*scope.Binding) ([]rast.Stmt, error) {
	var stmts []rast.Stmt
	for _, b := range bindings {
		v, err := g.x.Value(b.Value)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, g.x.TakeHoisted()...)
		stmts = append(stmts, &rast.Assign{Lhs: rast.Id(exprgen.Ident(b.Name)), Op: "=", Rhs: v})
	}
	return stmts, nil
}

// walrusLoop generates a loop whose condition binds variables and whose body continues.
// The bindings are evaluated at the top of the loop so that continue evaluates them again.
func (g *Generator) walrusLoop(s *hir.While, bindings []*scope.Binding, simplified hir.Expr) ([]rast.Stmt, error) {
	var pre []rast.Stmt
	for _, b := range bindings {
		if g.ctx.IsDeclared(b.Name) {
			g.ctx.MarkMutable(b.Name)
			continue
		}
		pre = append(pre, &rast.Let{Pattern: rast.Id(exprgen.Ident(b.Name)), Mut: true})
		g.ctx.Declare(b.Name)
		g.ctx.BindVar(b.Name, infer.TypeOf(g.ctx, b.Value))
		g.ctx.MarkMutable(b.Name)
	}
	top, err := g.rebind(bindings)
	if err != nil {
		return nil, err
	}
	cond, err := g.x.Cond(simplified)
	if err != nil {
		return nil, err
	}
	top = append(top, g.x.TakeHoisted()...)
	top = append(top, &rast.ExprStmt{X: &rast.If{Cond: negate(cond), Then: rast.Blk(nil, &rast.Break{})}})
	body, err := g.Block(s.Body)
	if err != nil {
		return nil, err
	}
	body.Stmts = append(top, body.Stmts...)
	return append(pre, &rast.Loop{Body: body}), nil
}

// negate returns the negation of a condition.
func negate(cond rast.Expr) rast.Expr {
	if u, ok := cond.(*rast.Unary); ok && u.Op == "!" {
		return u.X
	}
	return rast.Not(cond)
}

func (g *Generator) forStmt(s *hir.For) ([]rast.Stmt, error) {
	g.current = s.Iter
	iter, err := g.x.IterOf(s.Iter)
	if err != nil {
		return nil, err
	}
	pre := g.x.TakeHoisted()
	g.ctx.PushScope()
	defer g.ctx.PopScope()
	pattern, names, restore, err := g.x.BindTarget(s.Target, g.x.ElemOf(s.Iter))
	if err != nil {
		return nil, err
	}
	defer restore()
	var rebinds []rast.Stmt
	for _, name := range names {
		g.ctx.Declare(name)
		if scope.IsVarReassignedInStmts(name, s.Body) || scope.IsVarMutated(name, s.Body) {
			id := rast.Id(exprgen.Ident(name))
			rebinds = append(rebinds, &rast.Let{Pattern: id, Mut: true, Value: id})
		}
	}
	body, err := g.loopBody(s.Body)
	if err != nil {
		return nil, err
	}
	body.Stmts = append(rebinds, body.Stmts...)
	return append(pre, &rast.For{Pattern: pattern, Iter: iter, Body: body}), nil
}

var lineMethods = []string{"readline", "readlines"}

// bufferReader wraps a file opened for reading in a std::io::BufReader
// when the file is read line by line.
func (g *Generator) bufferReader(name string, value hir.Expr, v rast.Expr, stmts []hir.Stmt) rast.Expr {
	if !infer.IsReadOnlyOpen(value) || !scope.IsMethodCalledOn(name, stmts, lineMethods...) {
		return v
	}
	g.ctx.MarkBufferedReader(name)
	g.trace(value, "buffered-reader", name+" is read through a std::io::BufReader")
	return rast.PC("std::io::BufReader::new", v)
}

func (g *Generator) with(s *hir.With) ([]rast.Stmt, error) {
	g.current = s.Context
	if s.Async {
		g.ctx.SetFlag(genctx.InAsync)
	}
	v, err := g.x.Value(s.Context)
	if err != nil {
		return nil, err
	}
	if s.Async {
		v = &rast.Await{X: v}
	}
	stmts := g.x.TakeHoisted()
	g.ctx.PushScope()
	defer g.ctx.PopScope()
	name := s.Target
	if name == "" {
		name = g.ctx.UniqueName("_ctx")
	}
	file := infer.IsFileExpr(g.ctx, s.Context)
	restore := g.ctx.ShadowVar(name, infer.TypeOf(g.ctx, s.Context))
	defer restore()
	g.ctx.Declare(name)
	if s.Target != "" {
		v = g.bufferReader(name, s.Context, v, s.Body)
	}
	body, err := g.Block(s.Body)
	if err != nil {
		return nil, err
	}
	let := &rast.Let{
		Pattern: rast.Id(exprgen.Ident(name)),
		Mut:     file || g.ctx.IsMutable(name) || scope.IsVarMutated(name, s.Body),
		Value:   v,
	}
	body.Stmts = append([]rast.Stmt{let}, body.Stmts...)
	return append(stmts, &rast.ExprStmt{X: body}), nil
}
