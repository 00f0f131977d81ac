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
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/scope"
)

// YieldBuffer is the name of the local buffer collecting the values produced by a generator.
const YieldBuffer = "_yielded"

func (g *Generator) await(x *hir.Await) (rast.Expr, error) {
	g.ctx.SetFlag(genctx.InAsync)
	e, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	return &rast.Await{X: e}, nil
}

// yield appends a value to the buffer of the generator.
// The variables read by the value are part of the state of the generator.
func (g *Generator) yield(x *hir.Yield) (rast.Expr, error) {
	g.ctx.SetFlag(genctx.InGenerator)
	var value rast.Expr = &rast.Tuple{}
	if x.X != nil {
		for _, name := range scope.CollectVarsInExpr(x.X) {
			if typ, ok := g.ctx.LookupVar(name); ok {
				g.ctx.AddGeneratorStateVar(name, typ)
			}
		}
		var err error
		if value, err = g.Value(x.X); err != nil {
			return nil, err
		}
	}
	return rast.M(rast.Id(YieldBuffer), "push", value), nil
}

func (g *Generator) borrow(x *hir.Borrow) (rast.Expr, error) {
	if name, ok := varName(x.X); ok && x.Mut {
		g.ctx.MarkMutable(name)
	}
	e, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	if deref, ok := e.(*rast.Deref); ok && !x.Mut {
		return deref.X, nil
	}
	return &rast.Ref{Mut: x.Mut, X: e}, nil
}

// namedExpr hoists the binding of a walrus operator before the statement
// and replaces the expression with the bound variable.
// A nested walrus operator is hoisted before the one containing it.
func (g *Generator) namedExpr(x *hir.NamedExpr) (rast.Expr, error) {
	value, err := g.Value(x.Value)
	if err != nil {
		return nil, err
	}
	name := Ident(x.Target)
	if g.ctx.IsDeclared(x.Target) {
		g.ctx.MarkMutable(x.Target)
		g.hoist(&rast.Assign{Lhs: rast.Id(name), Op: "=", Rhs: value})
	} else {
		g.ctx.Declare(x.Target)
		g.hoist(&rast.Let{Pattern: rast.Id(name), Mut: g.ctx.IsMutable(x.Target), Value: value})
	}
	g.ctx.BindVar(x.Target, g.typeOf(x.Value))
	return rast.Id(name), nil
}
