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
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
)

func (g *Generator) unary(x *hir.Unary) (rast.Expr, error) {
	switch x.Op {
	case hir.Not:
		return g.Cond(x)
	case hir.Plus:
		return g.Expr(x.X)
	case hir.Neg:
		if v, ok := isIntLit(x.X); ok {
			return g.lit(&hir.Lit{Pos: x.Pos, Kind: hir.LitInt, Text: strconvInt(-v)}, true)
		}
		if lit, ok := x.X.(*hir.Lit); ok && lit.Kind == hir.LitFloat {
			f, err := g.lit(lit, true)
			if err != nil {
				return nil, err
			}
			return &rast.Unary{Op: "-", X: f}, nil
		}
		if g.isDyn(x.X) {
			g.facade()
		}
		e, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		return &rast.Unary{Op: "-", X: e}, nil
	case hir.BitNot:
		if g.isDyn(x.X) {
			return nil, fmterr.Unsupportedf(x.Span(), "bitwise not", "bitwise not of a dynamic value")
		}
		e, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		return &rast.Unary{Op: "!", X: e}, nil
	}
	return nil, fmterr.Internalf(x.Span(), "unknown unary operator %d", x.Op)
}
