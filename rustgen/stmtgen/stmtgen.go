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

// Package stmtgen generates Rust statements from HIR statements.
//
// The generator drives an expression generator and decides, for every
// variable, where it is declared, whether it is mutable and whether it
// can be moved. These decisions look ahead at the statements following
// the one being generated.
package stmtgen

import (
	"fmt"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/scope"
)

// frame is a function being generated: a module function or a nested function.
type frame struct {
	ret    types.Type
	result bool
	// closure is true for a nested function lowered to a closure.
	closure bool
	// generator is true for a function collecting the values it yields.
	generator bool
	// tries holds the enclosing try bodies of the function.
	// An entry is true if the body returns from the function.
	tries []bool
}

// Generator generates Rust statements.
type Generator struct {
	ctx *genctx.Context
	x   *exprgen.Generator

	// rest holds, for each enclosing block, the statements following the statement being generated.
	rest [][]hir.Stmt
	// loops holds the bodies of the enclosing loops.
	loops [][]hir.Stmt
	// current is the main expression of the statement being generated.
	current hir.Expr
	frames  []*frame
	// errs holds the variables bound to the errors caught by the enclosing handlers.
	errs []string
	// boxed are the variables holding a boxed writer.
	boxed map[string]bool
}

// New returns a statement generator driving an expression generator.
func New(x *exprgen.Generator) *Generator {
	g := &Generator{
		ctx:   x.Context(),
		x:     x,
		boxed: make(map[string]bool),
	}
	x.SetLiveness(g.isLive)
	return g
}

// Expr returns the expression generator.
func (g *Generator) Expr() *exprgen.Generator {
	return g.x
}

// isLive returns true if a variable is read after the statement being generated.
func (g *Generator) isLive(name string) bool {
	for _, rest := range g.rest {
		if scope.IsVarUsedInStmts(name, rest) {
			return true
		}
	}
	for _, body := range g.loops {
		if scope.IsVarUsedInStmts(name, body) {
			return true
		}
	}
	return g.current != nil && scope.CountVarRefs(name, g.current) > 1
}

// following returns the statements following the statement being generated, in all enclosing blocks.
func (g *Generator) following() []hir.Stmt {
	var stmts []hir.Stmt
	for i := len(g.rest) - 1; i >= 0; i-- {
		stmts = append(stmts, g.rest[i]...)
	}
	return stmts
}

// isMutable returns true if a variable declared by the statement being generated needs to be mutable.
func (g *Generator) isMutable(name string) bool {
	if g.ctx.IsMutable(name) {
		return true
	}
	rest := g.following()
	return scope.IsVarReassignedInStmts(name, rest) || scope.IsVarMutated(name, rest)
}

func (g *Generator) frame() *frame {
	if len(g.frames) == 0 {
		return &frame{ret: types.NoneType()}
	}
	return g.frames[len(g.frames)-1]
}

func (g *Generator) inTry() bool {
	return len(g.frame().tries) > 0
}

func (g *Generator) trace(s hir.Node, rule, detail string) {
	construct := strings.TrimPrefix(fmt.Sprintf("%T", s), "*hir.")
	g.ctx.Trace(s.Span(), construct, rule, detail)
}

// withHoisted prepends the statements hoisted by the expression generator.
func (g *Generator) withHoisted(stmts ...rast.Stmt) []rast.Stmt {
	return append(g.x.TakeHoisted(), stmts...)
}

// FuncBody generates the body of a function.
// The context must have entered the function.
// A function returning a Result without a value ends with Ok(()).
func (g *Generator) FuncBody(sig *genctx.FuncSig, body []hir.Stmt) (*rast.Block, error) {
	g.frames = append(g.frames, &frame{
		ret:       sig.Ret,
		result:    g.ctx.IsResultReturning(sig.Name),
		generator: sig.Generator,
	})
	defer func() { g.frames = g.frames[:len(g.frames)-1] }()
	blk, err := g.stmts(body)
	if err != nil {
		return nil, err
	}
	if g.frame().result && !sig.Generator && !endsWithReturn(body) && isNone(sig.Ret) {
		blk.Tail = rast.C(rast.Id("Ok"), &rast.Tuple{})
	}
	return blk, nil
}

func isNone(t types.Type) bool {
	return t == nil || t.Kind() == types.NoneKind
}

func endsWithReturn(body []hir.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*hir.Return)
	return ok
}

// Block generates a list of statements in a new scope.
func (g *Generator) Block(stmts []hir.Stmt) (*rast.Block, error) {
	g.ctx.PushScope()
	defer g.ctx.PopScope()
	return g.stmts(stmts)
}

func (g *Generator) stmts(stmts []hir.Stmt) (*rast.Block, error) {
	blk := &rast.Block{}
	g.rest = append(g.rest, nil)
	defer func() { g.rest = g.rest[:len(g.rest)-1] }()
	for i, s := range stmts {
		g.rest[len(g.rest)-1] = stmts[i+1:]
		out, err := g.Stmt(s)
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, out...)
	}
	return blk, nil
}

// Stmt generates the Rust statements of a HIR statement.
func (g *Generator) Stmt(s hir.Stmt) ([]rast.Stmt, error) {
	defer func(current hir.Expr) { g.current = current }(g.current)
	g.current = nil
	switch sT := s.(type) {
	case *hir.Assign:
		return g.assign(sT)
	case *hir.AugAssign:
		return g.augAssign(sT)
	case *hir.ExprStmt:
		return g.exprStmt(sT)
	case *hir.Return:
		return g.ret(sT)
	case *hir.If:
		return g.ifStmt(sT)
	case *hir.While:
		return g.while(sT)
	case *hir.For:
		return g.forStmt(sT)
	case *hir.Try:
		return g.try(sT)
	case *hir.With:
		return g.with(sT)
	case *hir.Raise:
		return g.raise(sT)
	case *hir.Assert:
		return g.assert(sT)
	case *hir.FuncDef:
		return g.nestedFunc(sT)
	case *hir.ClassDef:
		return nil, fmterr.Unsupportedf(sT.Span(), "ClassDef", "class %s defined inside a function", sT.Name)
	case *hir.Break:
		return []rast.Stmt{&rast.Break{}}, nil
	case *hir.Continue:
		return []rast.Stmt{&rast.Continue{}}, nil
	case *hir.Pass, *hir.Import:
		return nil, nil
	case *hir.Block:
		blk, err := g.Block(sT.Body)
		if err != nil {
			return nil, err
		}
		return []rast.Stmt{&rast.ExprStmt{X: blk}}, nil
	case *hir.Comment:
		if !g.ctx.Options().PreserveComments {
			return nil, nil
		}
		return []rast.Stmt{&rast.Comment{Text: sT.Text}}, nil
	}
	return nil, fmterr.Internalf(s.Span(), "statement %T not supported", s)
}

func (g *Generator) exprStmt(s *hir.ExprStmt) ([]rast.Stmt, error) {
	if lit, ok := s.X.(*hir.Lit); ok && lit.Kind == hir.LitStr {
		// Docstring.
		return nil, nil
	}
	g.current = s.X
	e, err := g.x.Expr(s.X)
	if err != nil {
		return nil, err
	}
	return g.withHoisted(rast.Semi(e)), nil
}

func (g *Generator) assert(s *hir.Assert) ([]rast.Stmt, error) {
	g.current = s.Test
	cond, err := g.x.Cond(s.Test)
	if err != nil {
		return nil, err
	}
	args := []rast.Expr{cond}
	if text, ok := s.Msg.(*hir.Lit); ok && text.Kind == hir.LitStr {
		args = append(args, rast.Str(strings.NewReplacer("{", "{{", "}", "}}").Replace(text.Text)))
	} else if s.Msg != nil {
		msg, err := g.x.Expr(s.Msg)
		if err != nil {
			return nil, err
		}
		args = append(args, rast.Str("{}"), msg)
	}
	return g.withHoisted(rast.Semi(&rast.Macro{Name: "assert", Args: args})), nil
}
