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
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/infer"
	"github.com/gx-org/pyrs/rustgen/scope"
)

// boxedError is the error type of the closures running the body of a try statement.
var boxedError = rast.Named("Box", &rast.TypeDyn{Trait: rast.Named("std::error::Error")})

// errorTypes returns the Rust types matched by an except clause.
// It returns nil for a clause catching every error.
func errorTypes(name string) []string {
	switch name {
	case "", "Exception", "BaseException":
		return nil
	case "IOError", "OSError", "FileNotFoundError", "PermissionError":
		return []string{"std::io::Error", name}
	case "ValueError":
		return []string{name, "std::num::ParseIntError", "std::num::ParseFloatError"}
	}
	return []string{name}
}

// handledTypes splits the exception classes of an except clause written as a tuple.
func handledTypes(typ string) []string {
	typ = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(typ), "("), ")")
	if typ == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(typ, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// propagate generates the statement passing an error to the caller:
// a return in a function returning a Result, a panic otherwise.
func (g *Generator) propagate(err rast.Expr) rast.Stmt {
	if g.inTry() || g.frame().result {
		return &rast.Return{Value: rast.C(rast.Id("Err"), err)}
	}
	return rast.Semi(&rast.Macro{Name: "panic", Args: []rast.Expr{rast.Str("{}"), err}})
}

// exit generates a return from the function being generated outside of any try body.
func (g *Generator) exit(v rast.Expr) rast.Stmt {
	f := g.frame()
	switch {
	case f.generator && !f.closure:
		return &rast.Return{Value: rast.Id(exprgen.YieldBuffer)}
	case f.result:
		if v == nil {
			v = &rast.Tuple{}
		}
		return &rast.Return{Value: rast.C(rast.Id("Ok"), v)}
	}
	return &rast.Return{Value: v}
}

// tryReturnType returns the type of the value returned from the function by a try body.
func (g *Generator) tryReturnType() rast.Type {
	f := g.frame()
	if (f.generator && !f.closure) || isNone(f.ret) {
		return rast.Unit()
	}
	return g.Type(f.ret)
}

// predeclareCaptured declares, before a try statement, a variable assigned by its body and
// read after it. The body runs in a closure so the variable is always initialised.
func (g *Generator) predeclareCaptured(s *hir.Try, name string) (rast.Stmt, error) {
	typ, err := g.hoistedType(name, s.Body)
	if err != nil {
		return nil, err
	}
	let := &rast.Let{
		Pattern: rast.Id(exprgen.Ident(name)),
		Mut:     true,
		Value:   rast.PC("Default::default"),
	}
	if types.IsUnknown(typ) {
		typ = types.CustomOf("Any")
	}
	let.Type = g.Type(typ)
	g.ctx.Declare(name)
	g.ctx.BindVar(name, typ)
	g.ctx.MarkMutable(name)
	return let, nil
}

// try generates a try statement.
// The body runs in a closure called immediately and returning a Result.
// The handlers test the type of the error returned by the closure.
func (g *Generator) try(s *hir.Try) ([]rast.Stmt, error) {
	switch {
	case scope.ContainsBreak(s.Body) || scope.ContainsContinue(s.Body):
		return nil, fmterr.Unsupportedf(s.Span(), "Try", "break or continue inside a try body")
	case scope.ContainsAwait(s.Body):
		return nil, fmterr.Unsupportedf(s.Span(), "Try", "await inside a try body")
	case scope.ContainsYield(s.Body):
		return nil, fmterr.Unsupportedf(s.Span(), "Try", "yield inside a try body")
	}
	var stmts []rast.Stmt
	after := append(g.following(), s.Else...)
	after = append(after, s.Finally...)
	for _, h := range s.Handlers {
		after = append(after, h.Body...)
	}
	for _, name := range scope.ExtractAssignedSymbols(s.Body) {
		if g.ctx.IsDeclared(name) || !scope.IsVarUsedInStmts(name, after) {
			continue
		}
		let, err := g.predeclareCaptured(s, name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, let)
	}
	returns := scope.ContainsReturn(s.Body)
	body, err := g.tryBody(s, returns)
	if err != nil {
		return nil, err
	}
	res := g.ctx.UniqueName("_try")
	stmts = append(stmts, &rast.Let{Pattern: rast.Id(res), Value: rast.C(body)})
	match := &rast.Match{X: rast.Id(res)}
	var okPattern rast.Expr = &rast.Tuple{}
	if returns {
		okPattern = rast.Id("None")
	}
	var okBody rast.Expr
	if returns && alwaysExits(s.Body) {
		// The match diverges and can end a function returning a value.
		okBody = &rast.Macro{Name: "unreachable"}
	} else {
		elseBlk, err := g.Block(s.Else)
		if err != nil {
			return nil, err
		}
		okBody = elseBlk
	}
	match.Arms = append(match.Arms, &rast.MatchArm{Pattern: rast.C(rast.Id("Ok"), okPattern), Body: okBody})
	if returns {
		arm, err := g.returnArm(s)
		if err != nil {
			return nil, err
		}
		match.Arms = append(match.Arms, arm)
	}
	errArm, err := g.handlers(s)
	if err != nil {
		return nil, err
	}
	match.Arms = append(match.Arms, errArm)
	stmts = append(stmts, &rast.ExprStmt{X: match, NoSemi: true})
	if len(s.Finally) > 0 {
		fin, err := g.Block(s.Finally)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fin.Stmts...)
	}
	return stmts, nil
}

// alwaysExits returns true if every path of a body ends with a return or a raise.
func alwaysExits(body []hir.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	switch sT := body[len(body)-1].(type) {
	case *hir.Return, *hir.Raise:
		return true
	case *hir.If:
		return alwaysExits(sT.Body) && alwaysExits(sT.Else)
	}
	return false
}

// tryBody generates the closure running the body of a try statement.
func (g *Generator) tryBody(s *hir.Try, returns bool) (*rast.Closure, error) {
	f := g.frame()
	f.tries = append(f.tries, returns)
	g.x.EnterTry()
	defer func() {
		g.x.ExitTry()
		f.tries = f.tries[:len(f.tries)-1]
	}()
	blk, err := g.Block(s.Body)
	if err != nil {
		return nil, err
	}
	var ok rast.Type = rast.Unit()
	var tail rast.Expr = &rast.Tuple{}
	if returns {
		ok = rast.Named("Option", g.tryReturnType())
		tail = rast.Id("None")
	}
	blk.Tail = rast.C(rast.Id("Ok"), tail)
	return &rast.Closure{
		Ret:  rast.Named("Result", ok, boxedError),
		Body: blk,
	}, nil
}

// returnArm generates the match arm returning from the function when the body of a try statement returns.
// The finally statements run before returning.
func (g *Generator) returnArm(s *hir.Try) (*rast.MatchArm, error) {
	blk, err := g.Block(s.Finally)
	if err != nil {
		return nil, err
	}
	r := rast.Id(g.ctx.UniqueName("ret"))
	if g.inTry() {
		blk.Stmts = append(blk.Stmts, &rast.Return{Value: rast.C(rast.Id("Ok"), rast.C(rast.Id("Some"), r))})
	} else {
		blk.Stmts = append(blk.Stmts, g.exit(r))
	}
	return &rast.MatchArm{
		Pattern: rast.C(rast.Id("Ok"), rast.C(rast.Id("Some"), r)),
		Body:    blk,
	}, nil
}

// handlers generates the match arm testing the error returned by the body of a try statement.
func (g *Generator) handlers(s *hir.Try) (*rast.MatchArm, error) {
	errName := g.ctx.UniqueName("err")
	errVar := rast.Id(errName)
	var chain *rast.If
	var last *rast.If
	var fallback *rast.Block
	for _, h := range s.Handlers {
		blk, err := g.handler(h, errName)
		if err != nil {
			return nil, err
		}
		var cond rast.Expr
		for _, name := range handledTypes(h.Type) {
			rtypes := errorTypes(name)
			if rtypes == nil {
				cond = nil
				break
			}
			for _, rtype := range rtypes {
				if !strings.Contains(rtype, "::") {
					g.ctx.RequireErrorType(rtype)
				}
				is := &rast.MethodCall{Recv: errVar, Method: "is", Turbofish: []rast.Type{rast.Named(rtype)}}
				if cond == nil {
					cond = is
				} else {
					cond = rast.Bin("||", cond, is)
				}
			}
		}
		if cond == nil {
			fallback = blk
			break
		}
		next := &rast.If{Cond: cond, Then: blk}
		if chain == nil {
			chain = next
		} else {
			last.Else = next
		}
		last = next
	}
	if fallback == nil {
		fallback = rast.Blk(nil, g.propagate(errVar))
	}
	var body rast.Expr = fallback
	if chain != nil {
		last.Else = fallback
		body = rast.Blk(nil, &rast.ExprStmt{X: chain, NoSemi: true})
	}
	return &rast.MatchArm{Pattern: rast.C(rast.Id("Err"), errVar), Body: body}, nil
}

// handler generates the body of an except clause.
// The error is bound to the name of the clause and is re-raised by a bare raise.
func (g *Generator) handler(h *hir.ExceptHandler, errName string) (*rast.Block, error) {
	g.ctx.PushScope()
	defer g.ctx.PopScope()
	if infer.HandlerEndsWithExit(h.Body) {
		g.trace(h, "handler-exit", "handler terminates the program")
	}
	var pre []rast.Stmt
	bound := errName
	if h.Name != "" {
		bound = exprgen.Ident(h.Name)
		pre = append(pre, &rast.Let{Pattern: rast.Id(bound), Value: rast.Id(errName)})
		g.ctx.Declare(h.Name)
		defer g.ctx.ShadowVar(h.Name, types.CustomOf("Exception"))()
	}
	g.errs = append(g.errs, bound)
	defer func() { g.errs = g.errs[:len(g.errs)-1] }()
	blk, err := g.stmts(h.Body)
	if err != nil {
		return nil, err
	}
	blk.Stmts = append(pre, blk.Stmts...)
	return blk, nil
}

// raise generates a raise statement.
func (g *Generator) raise(s *hir.Raise) ([]rast.Stmt, error) {
	if s.Exc == nil {
		if len(g.errs) == 0 {
			return nil, fmterr.Unsupportedf(s.Span(), "Raise", "bare raise outside of an exception handler")
		}
		return []rast.Stmt{g.propagate(rast.Id(g.errs[len(g.errs)-1]))}, nil
	}
	var name string
	var args []hir.Expr
	switch exc := s.Exc.(type) {
	case *hir.Call:
		name, args = exc.Func, exc.Args
	case *hir.Var:
		name = exc.Name
	default:
		return nil, fmterr.Unsupportedf(s.Span(), "Raise", "raising an expression of type %s", infer.TypeOf(g.ctx, s.Exc))
	}
	if g.ctx.IsClass(name) {
		return nil, fmterr.Unsupportedf(s.Span(), "Raise", "raising an instance of class %s", name)
	}
	if s.Cause != nil {
		g.trace(s, "raise-cause", "cause of "+name+" dropped")
	}
	g.current = s.Exc
	msg, err := g.message(args)
	if err != nil {
		return nil, err
	}
	if !g.inTry() && !g.frame().result {
		p := &rast.Macro{Name: "panic", Args: []rast.Expr{rast.Str(name + ": {}"), msg}}
		return g.withHoisted(rast.Semi(p)), nil
	}
	g.ctx.RequireErrorType(name)
	exc := rast.PC("Box::new", rast.PC(name+"::new", msg))
	return g.withHoisted(&rast.Return{Value: rast.C(rast.Id("Err"), exc)}), nil
}

// message generates the message of an exception from the arguments of its constructor.
func (g *Generator) message(args []hir.Expr) (rast.Expr, error) {
	switch len(args) {
	case 0:
		return rast.Str(""), nil
	case 1:
		if lit, ok := args[0].(*hir.Lit); ok && lit.Kind == hir.LitStr {
			return rast.Str(lit.Text), nil
		}
		if infer.IsStringExpr(g.ctx, args[0]) {
			return g.x.Value(args[0])
		}
	}
	var vals []rast.Expr
	for _, arg := range args {
		v, err := g.x.Expr(arg)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return rast.Format(strings.TrimSuffix(strings.Repeat("{}, ", len(vals)), ", "), vals...), nil
}
