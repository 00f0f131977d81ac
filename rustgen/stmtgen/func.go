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
	"github.com/gx-org/pyrs/rustgen/scope"
)

func (g *Generator) ret(s *hir.Return) ([]rast.Stmt, error) {
	f := g.frame()
	var v rast.Expr
	none := s.Value == nil
	if lit, ok := s.Value.(*hir.Lit); ok && lit.Kind == hir.LitNone && isNone(f.ret) {
		none = true
	}
	if !none && !(f.generator && !f.closure) {
		g.current = s.Value
		var err error
		if v, err = g.x.Coerce(s.Value, f.ret); err != nil {
			return nil, err
		}
	}
	if g.inTry() {
		if v == nil {
			v = &rast.Tuple{}
		}
		return g.withHoisted(&rast.Return{Value: rast.C(rast.Id("Ok"), rast.C(rast.Id("Some"), v))}), nil
	}
	return g.withHoisted(g.exit(v)), nil
}

// ParamTypes returns the types of the parameters of a function.
// A parameter without annotation has an unknown type.
func (g *Generator) ParamTypes(params []*hir.Param) ([]types.Type, error) {
	typs := make([]types.Type, len(params))
	for i, p := range params {
		typs[i] = p.Type
		if typs[i] != nil {
			continue
		}
		if p.Annotation == "" {
			typs[i] = types.UnknownType()
			continue
		}
		var err error
		if typs[i], err = g.ctx.MapAnnotation(p.Span(), p.Annotation); err != nil {
			return nil, err
		}
	}
	return typs, nil
}

// returnsValue returns true if a function body returns a value.
func returnsValue(body []hir.Stmt) bool {
	found := false
	hir.InspectStmts(body, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.FuncDef:
			return false
		case *hir.Return:
			if lit, ok := nT.Value.(*hir.Lit); nT.Value != nil && !(ok && lit.Kind == hir.LitNone) {
				found = true
			}
		}
		return !found
	})
	return found
}

// nestedRet returns the return type of a nested function.
func (g *Generator) nestedRet(s *hir.FuncDef) (types.Type, error) {
	switch {
	case s.Ret != nil:
		return s.Ret, nil
	case s.RetAnnotation != "":
		return g.ctx.MapAnnotation(s.Span(), s.RetAnnotation)
	case !returnsValue(s.Body):
		return types.NoneType(), nil
	}
	return types.UnknownType(), nil
}

// capturesMutably returns true if a nested function writes to a variable of the enclosing function.
func (g *Generator) capturesMutably(s *hir.FuncDef) bool {
	params := make(map[string]bool)
	for _, p := range s.Params {
		params[p.Name] = true
	}
	for _, name := range scope.CollectVarsInStmts(s.Body) {
		if params[name] || !g.ctx.IsDeclared(name) {
			continue
		}
		if scope.IsVarReassignedInStmts(name, s.Body) || scope.IsVarMutated(name, s.Body) {
			g.ctx.MarkMutable(name)
			return true
		}
	}
	return false
}

// nestedFunc generates a function defined inside another function.
// The function becomes a closure bound to a local variable,
// or a function item if the function calls itself.
func (g *Generator) nestedFunc(s *hir.FuncDef) ([]rast.Stmt, error) {
	ptypes, err := g.ParamTypes(s.Params)
	if err != nil {
		return nil, err
	}
	ret, err := g.nestedRet(s)
	if err != nil {
		return nil, err
	}
	for _, p := range s.Params {
		if p.Default != nil {
			g.trace(s, "param-default", "default value of "+p.Name+" dropped")
		}
	}
	recursive := scope.IsNestedFunctionRecursive(s)
	mut := !recursive && g.capturesMutably(s)
	g.ctx.Declare(s.Name)
	g.ctx.BindVar(s.Name, types.FunctionOf(ret, ptypes...))

	params := make([]*rast.Param, len(s.Params))
	for i, p := range s.Params {
		params[i] = &rast.Param{Pattern: rast.Id(exprgen.Ident(p.Name))}
		if recursive || !types.IsUnknown(ptypes[i]) {
			params[i].Type = g.Type(ptypes[i])
		}
	}
	var rret rast.Type
	if !isNone(ret) && (recursive || !types.IsUnknown(ret)) {
		rret = g.Type(ret)
	}
	body, err := g.nestedBody(s, ptypes, ret)
	if err != nil {
		return nil, err
	}
	if recursive {
		g.trace(s, "nested-fn-item", s.Name+" calls itself and cannot capture variables")
		return []rast.Stmt{&rast.ItemStmt{Item: &rast.Fn{
			Name:   exprgen.Ident(s.Name),
			Params: params,
			Ret:    rret,
			Body:   body,
		}}}, nil
	}
	return []rast.Stmt{&rast.Let{
		Pattern: rast.Id(exprgen.Ident(s.Name)),
		Mut:     mut,
		Value:   &rast.Closure{Params: params, Ret: rret, Body: body},
	}}, nil
}

func (g *Generator) nestedBody(s *hir.FuncDef, ptypes []types.Type, ret types.Type) (*rast.Block, error) {
	g.frames = append(g.frames, &frame{ret: ret, closure: true})
	g.x.EnterClosure()
	g.ctx.PushScope()
	defer func() {
		g.ctx.PopScope()
		g.x.ExitClosure()
		g.frames = g.frames[:len(g.frames)-1]
	}()
	for i, p := range s.Params {
		g.ctx.Declare(p.Name)
		defer g.ctx.ShadowVar(p.Name, ptypes[i])()
	}
	return g.stmts(s.Body)
}
