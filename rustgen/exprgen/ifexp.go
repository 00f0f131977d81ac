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
	"github.com/gx-org/pyrs/build/types"
)

// arms generates the two arms of a conditional expression converted to a common type.
// Arms of types which only unify as a DynValue are both lifted.
func (g *Generator) arms(x *hir.IfExp) (rast.Expr, rast.Expr, error) {
	thenT, elseT := g.typeOf(x.Then), g.typeOf(x.Else)
	joined := types.Join(thenT, elseT)
	arm := g.Coerce
	if types.IsDV(joined) && !(g.isDyn(x.Then) && g.isDyn(x.Else)) {
		g.trace(x, "value-lift", "arms of types "+thenT.String()+" and "+elseT.String()+" lifted to "+types.DVName)
		arm = func(x hir.Expr, _ types.Type) (rast.Expr, error) { return g.lift(x) }
	}
	then, err := arm(x.Then, joined)
	if err != nil {
		return nil, nil, err
	}
	els, err := arm(x.Else, joined)
	if err != nil {
		return nil, nil, err
	}
	return then, els, nil
}

// ifExp generates a conditional expression as a Rust if expression.
func (g *Generator) ifExp(x *hir.IfExp) (rast.Expr, error) {
	cond, err := g.Cond(x.Cond)
	if err != nil {
		return nil, err
	}
	then, els, err := g.arms(x)
	if err != nil {
		return nil, err
	}
	return &rast.If{
		Cond: cond,
		Then: rast.Blk(then),
		Else: rast.Blk(els),
	}, nil
}
