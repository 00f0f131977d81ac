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

// Package exprgen generates Rust expressions from HIR expressions.
//
// The generator reads the types of the variables and the flags of the
// translation from a context. It never writes the type of a variable
// except for the target of a walrus operator.
package exprgen

import (
	"fmt"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// Generator generates Rust expressions.
//
// Statements required before an expression, such as the binding of a walrus
// operator, are hoisted. The caller emits them with TakeHoisted before the
// statement using the expression.
type Generator struct {
	ctx     *genctx.Context
	hoisted []rast.Stmt
	live    func(name string) bool

	// derefs counts the closure parameters bound by reference in scope.
	derefs map[string]int
	// closures is the depth of closures being generated.
	closures int
	// tries is the depth of try bodies being generated.
	tries int
}

// New returns a new expression generator.
func New(ctx *genctx.Context) *Generator {
	return &Generator{ctx: ctx, derefs: make(map[string]int)}
}

// Context returns the context of the generator.
func (g *Generator) Context() *genctx.Context {
	return g.ctx
}

// SetLiveness sets the function reporting if a variable is read after the statement being generated.
// A variable which is not live anymore can be moved instead of cloned.
func (g *Generator) SetLiveness(live func(name string) bool) {
	g.live = live
}

func (g *Generator) isLive(name string) bool {
	if g.live == nil {
		return false
	}
	return g.live(name)
}

func (g *Generator) hoist(s rast.Stmt) {
	g.hoisted = append(g.hoisted, s)
}

// TakeHoisted returns the statements hoisted since the last call.
func (g *Generator) TakeHoisted() []rast.Stmt {
	stmts := g.hoisted
	g.hoisted = nil
	return stmts
}

// Expr generates a Rust expression from a HIR expression.
func (g *Generator) Expr(x hir.Expr) (rast.Expr, error) {
	switch xT := x.(type) {
	case *hir.Lit:
		return g.lit(xT, true)
	case *hir.Var:
		return g.variable(xT), nil
	case *hir.Binary:
		return g.binary(xT)
	case *hir.Unary:
		return g.unary(xT)
	case *hir.Call:
		return g.call(xT)
	case *hir.MethodCall:
		return g.methodCall(xT)
	case *hir.DynCall:
		return g.dynCall(xT)
	case *hir.Attr:
		return g.attr(xT)
	case *hir.Index:
		return g.index(xT)
	case *hir.Slice:
		return g.slice(xT)
	case *hir.ListLit:
		return g.listLit(xT)
	case *hir.SetLit:
		return g.setLit(xT.Elts)
	case *hir.FrozenSetLit:
		return g.setLit(xT.Elts)
	case *hir.TupleLit:
		return g.tupleLit(xT)
	case *hir.DictLit:
		return g.dictLit(xT)
	case *hir.ListComp:
		return g.listComp(xT)
	case *hir.SetComp:
		return g.setComp(xT)
	case *hir.DictComp:
		return g.dictComp(xT)
	case *hir.GenExp:
		return g.genExp(xT)
	case *hir.Lambda:
		return g.lambda(xT)
	case *hir.IfExp:
		return g.ifExp(xT)
	case *hir.FString:
		return g.fstring(xT)
	case *hir.Await:
		return g.await(xT)
	case *hir.Yield:
		return g.yield(xT)
	case *hir.Borrow:
		return g.borrow(xT)
	case *hir.NamedExpr:
		return g.namedExpr(xT)
	case *hir.SortByKey:
		return g.sortByKey(xT)
	}
	return nil, fmterr.Unsupportedf(x.Span(), constructName(x), "expression not supported")
}

func (g *Generator) exprs(xs []hir.Expr) ([]rast.Expr, error) {
	rxs := make([]rast.Expr, len(xs))
	for i, x := range xs {
		var err error
		if rxs[i], err = g.Expr(x); err != nil {
			return nil, err
		}
	}
	return rxs, nil
}

// constructName returns the name of the HIR node type of an expression, used in errors and traces.
func constructName(x hir.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", x), "*hir.")
}

func (g *Generator) trace(x hir.Node, rule, detail string) {
	g.ctx.Trace(x.Span(), constructName(x), rule, detail)
}

func (g *Generator) typeOf(x hir.Expr) types.Type {
	return infer.TypeOf(g.ctx, x)
}

// isDyn returns true if an expression evaluates to a DynValue.
func (g *Generator) isDyn(x hir.Expr) bool {
	if infer.ProducesDV(g.ctx, x) {
		return true
	}
	if lit, ok := x.(*hir.Lit); ok && lit.Kind == hir.LitNone {
		return false
	}
	return types.IsDV(g.typeOf(x))
}

// facade records that the generated code uses the DynValue facade.
func (g *Generator) facade() {
	g.ctx.RequireFacade()
}

const (
	hashMapPath = "std::collections::HashMap"
	hashSetPath = "std::collections::HashSet"
)

// use records a use declaration and returns the name imported by it.
func (g *Generator) use(path string) string {
	g.ctx.Use(path)
	return path[strings.LastIndex(path, "::")+2:]
}

func kindOf(t types.Type) types.Kind {
	if t == nil {
		return types.UnknownKind
	}
	return t.Kind()
}

func isNoneLit(x hir.Expr) bool {
	lit, ok := x.(*hir.Lit)
	return ok && lit.Kind == hir.LitNone
}

func isStrLit(x hir.Expr) (string, bool) {
	lit, ok := x.(*hir.Lit)
	if !ok || lit.Kind != hir.LitStr {
		return "", false
	}
	return lit.Text, true
}

func isIntLit(x hir.Expr) (int64, bool) {
	lit, ok := x.(*hir.Lit)
	if !ok || lit.Kind != hir.LitInt {
		return 0, false
	}
	v := lit.Int()
	if v == nil || !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

// negIntLit returns the value of a negative integer literal, written either as a literal or as -literal.
func negIntLit(x hir.Expr) (int64, bool) {
	if v, ok := isIntLit(x); ok && v < 0 {
		return v, true
	}
	un, ok := x.(*hir.Unary)
	if !ok || un.Op != hir.Neg {
		return 0, false
	}
	v, ok := isIntLit(un.X)
	if !ok || v <= 0 {
		return 0, false
	}
	return -v, true
}

func varName(x hir.Expr) (string, bool) {
	v, ok := x.(*hir.Var)
	if !ok {
		return "", false
	}
	return v.Name, true
}

func cast(x rast.Expr, typ string) rast.Expr {
	return &rast.Cast{X: x, Type: rast.Named(typ)}
}

func collect(x rast.Expr, typ rast.Type) rast.Expr {
	call := rast.M(x, "collect")
	call.Turbofish = []rast.Type{typ}
	return call
}

func vecOfInfer() rast.Type {
	return rast.Named("Vec", &rast.TypeInfer{})
}

func closure(body rast.Expr, params ...rast.Expr) *rast.Closure {
	c := &rast.Closure{Body: body}
	for _, p := range params {
		c.Params = append(c.Params, &rast.Param{Pattern: p})
	}
	return c
}

func expect(x rast.Expr, msg string) rast.Expr {
	return rast.M(x, "expect", rast.Str(msg))
}

// withDerefs runs f with the variables bound by reference: they are dereferenced when read.
func (g *Generator) withDerefs(names []string, f func() (rast.Expr, error)) (rast.Expr, error) {
	for _, name := range names {
		g.derefs[name]++
	}
	defer func() {
		for _, name := range names {
			g.derefs[name]--
		}
	}()
	return f()
}

// withoutDerefs runs f with variables shadowed by closure parameters bound by value.
func (g *Generator) withoutDerefs(names []string, f func() (rast.Expr, error)) (rast.Expr, error) {
	saved := make(map[string]int)
	for _, name := range names {
		saved[name] = g.derefs[name]
		g.derefs[name] = 0
	}
	defer func() {
		for name, n := range saved {
			g.derefs[name] = n
		}
	}()
	return f()
}

// EnterTry starts the generation of the body of a try statement.
// Errors of fallible calls propagate to the handlers of the statement.
func (g *Generator) EnterTry() {
	g.tries++
}

// ExitTry ends the generation of the body of a try statement.
func (g *Generator) ExitTry() {
	g.tries--
}

// EnterClosure starts the generation of the body of a nested function lowered to a closure.
func (g *Generator) EnterClosure() {
	g.closures++
}

// ExitClosure ends the generation of the body of a closure.
func (g *Generator) ExitClosure() {
	g.closures--
}

// inClosure runs f while generating the body of a closure.
func (g *Generator) inClosure(f func() (rast.Expr, error)) (rast.Expr, error) {
	g.closures++
	defer func() { g.closures-- }()
	return f()
}
