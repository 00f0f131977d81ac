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

// paramUse is how a lambda parameter is used in the body of the lambda.
type paramUse int

const (
	usedOther paramUse = iota
	usedArith
	usedCond
	usedIter
)

// isParam returns true if an expression is a direct reference to a parameter.
func isParam(x hir.Expr, name string) bool {
	v, ok := x.(*hir.Var)
	return ok && v.Name == name
}

func iteratesParam(clauses []*hir.Clause, name string) bool {
	for _, c := range clauses {
		if isParam(c.Iter, name) {
			return true
		}
	}
	return false
}

// lambdaParamUse scans the body of a lambda for the strongest use of a parameter.
// The uses, from strongest to weakest, are: iterated, tested as a condition,
// operand of an arithmetic operation.
func lambdaParamUse(body hir.Expr, name string) (use paramUse, other hir.Expr) {
	upgrade := func(u paramUse, x hir.Expr) {
		if u > use {
			use, other = u, x
		}
	}
	hir.Inspect(body, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.MethodCall:
			if nT.Method == "iter" && isParam(nT.Recv, name) {
				upgrade(usedIter, nil)
			}
		case *hir.ListComp:
			if iteratesParam(nT.Clauses, name) {
				upgrade(usedIter, nil)
			}
		case *hir.SetComp:
			if iteratesParam(nT.Clauses, name) {
				upgrade(usedIter, nil)
			}
		case *hir.DictComp:
			if iteratesParam(nT.Clauses, name) {
				upgrade(usedIter, nil)
			}
		case *hir.GenExp:
			if iteratesParam(nT.Clauses, name) {
				upgrade(usedIter, nil)
			}
		case *hir.IfExp:
			if isParam(nT.Cond, name) {
				upgrade(usedCond, nil)
			}
		case *hir.Binary:
			if !nT.Op.IsArith() {
				break
			}
			if isParam(nT.X, name) {
				upgrade(usedArith, nT.Y)
			} else if isParam(nT.Y, name) {
				upgrade(usedArith, nT.X)
			}
		}
		return true
	})
	return use, other
}

// lambdaParamType infers the type of a lambda parameter from its use in the body.
// The default is an integer so that the Rust compiler never has to infer the type of a closure parameter.
func (g *Generator) lambdaParamType(body hir.Expr, name string) types.Type {
	use, other := lambdaParamUse(body, name)
	switch use {
	case usedIter:
		return types.ListOf(types.IntType())
	case usedCond:
		return types.BoolType()
	case usedArith:
		if other != nil && g.typeOf(other).Kind() == types.FloatKind {
			return types.FloatType()
		}
	}
	return types.IntType()
}

// lambda generates a closure. Parameters iterated in the body are borrowed lists.
func (g *Generator) lambda(x *hir.Lambda) (rast.Expr, error) {
	params := make([]*rast.Param, len(x.Params))
	var restores []func()
	defer func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()
	for i, name := range x.Params {
		typ := g.lambdaParamType(x.Body, name)
		var rtyp rast.Type = types.Render(typ)
		if typ.Kind() == types.ListKind {
			rtyp = &rast.TypeRef{Elem: rtyp}
		}
		params[i] = &rast.Param{Pattern: rast.Id(Ident(name)), Type: rtyp}
		restores = append(restores, g.ctx.ShadowVar(name, typ))
	}
	g.trace(x, "lambda-params", "closure parameter types inferred from the body")
	body, err := g.withoutDerefs(x.Params, func() (rast.Expr, error) {
		return g.inClosure(func() (rast.Expr, error) {
			return g.Value(x.Body)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rast.Closure{Params: params, Body: body}, nil
}
