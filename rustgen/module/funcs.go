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

package module

import (
	"slices"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
	"github.com/gx-org/pyrs/rustgen/scope"
	"github.com/gx-org/pyrs/rustgen/stmtgen"
)

var (
	boxedError = rast.Named("Box", &rast.TypeDyn{Trait: rast.Named("std::error::Error")})
	strRef     = &rast.TypeRef{Elem: rast.Named("str")}
)

// docLines splits a docstring into the lines of a doc comment.
func docLines(doc string) []string {
	lines := strings.Split(strings.TrimSpace(doc), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

var panicking = []string{"panic!(", ".expect(", ".unwrap(", "unreachable!("}

// panicDoc documents whether a generated body can panic.
func panicDoc(doc []string, body *rast.Block) []string {
	if len(doc) > 0 {
		doc = append(doc, "")
	}
	src := rast.String(body)
	if slices.ContainsFunc(panicking, func(s string) bool { return strings.Contains(src, s) }) {
		return append(doc, "# Panics", "", "Panics if a runtime check of the translated code fails.")
	}
	return append(doc, "This function does not panic.")
}

// params returns the parameters of a function once its body has been generated.
// It also returns the statements converting borrowed strings modified by the body into owned strings.
func (t *translator) params(g *stmtgen.Generator, sig *genctx.FuncSig, body []hir.Stmt) ([]*rast.Param, []rast.Stmt) {
	var params []*rast.Param
	var prelude []rast.Stmt
	for i, name := range sig.ParamNames {
		id := exprgen.Ident(name)
		mut := t.ctx.IsMutable(name) || scope.IsVarReassignedInStmts(name, body) || scope.IsVarMutated(name, body)
		typ := sig.Params[i]
		if typ.Kind() == types.StringKind {
			params = append(params, &rast.Param{Pattern: rast.Id(id), Type: strRef})
			if mut {
				prelude = append(prelude, &rast.Let{
					Pattern: rast.Id(id),
					Mut:     true,
					Value:   rast.M(rast.Id(id), "to_string"),
				})
			}
			continue
		}
		params = append(params, &rast.Param{Pattern: rast.Id(id), Mut: mut, Type: g.Type(typ)})
	}
	return params, prelude
}

// retType returns the return type of a function.
func (t *translator) retType(g *stmtgen.Generator, sig *genctx.FuncSig) rast.Type {
	var ret rast.Type
	if sig.Ret != nil && sig.Ret.Kind() != types.NoneKind {
		ret = g.Type(sig.Ret)
	}
	if !t.ctx.IsResultReturning(sig.Name) {
		return ret
	}
	if ret == nil {
		ret = rast.Unit()
	}
	return rast.Named("Result", ret, boxedError)
}

// enter starts the generation of a function or a method.
// The returned function must be called once the generation is done.
func (t *translator) enter(sig *genctx.FuncSig, cls *genctx.Class) (*stmtgen.Generator, func()) {
	t.ctx.EnterFunction(sig)
	if cls == nil {
		return stmtgen.New(exprgen.New(t.ctx)), t.ctx.ExitFunction
	}
	t.ctx.EnterClass(cls)
	t.ctx.Declare(selfName)
	t.ctx.BindVar(selfName, types.CustomOf(cls.Name))
	return stmtgen.New(exprgen.New(t.ctx)), func() {
		t.ctx.ExitClass()
		t.ctx.ExitFunction()
	}
}

// fn generates a function or a method.
func (t *translator) fn(def *hir.FuncDef, sig *genctx.FuncSig, cls *genctx.Class) (*rast.Fn, error) {
	g, exit := t.enter(sig, cls)
	defer exit()
	body, err := g.FuncBody(sig, def.Body)
	if err != nil {
		return nil, err
	}
	params, prelude := t.params(g, sig, def.Body)
	body.Stmts = append(prelude, body.Stmts...)
	f := &rast.Fn{
		Doc:    docLines(def.Doc),
		Async:  sig.Async,
		Name:   exprgen.Ident(def.Name),
		Params: params,
		Ret:    t.retType(g, sig),
		Body:   body,
	}
	if t.opts.PanicFree {
		f.Doc = panicDoc(f.Doc, body)
	}
	return f, nil
}

// function generates a module function.
func (t *translator) function(def *hir.FuncDef) ([]rast.Item, error) {
	sig, ok := t.ctx.Registry().Func(def.Name)
	if !ok {
		return nil, fmterr.Internalf(def.Span(), "function %s has not been registered", def.Name)
	}
	if sig.Generator {
		return t.generator(def, sig)
	}
	f, err := t.fn(def, sig, nil)
	if err != nil {
		return nil, err
	}
	f.Pub = true
	return []rast.Item{f}, nil
}

// generator generates a generator function.
//
// The values of the generator are collected by a body function. The public
// function returns a state structure implementing Iterator which runs the body
// function on the first call to next.
func (t *translator) generator(def *hir.FuncDef, sig *genctx.FuncSig) ([]rast.Item, error) {
	if sig.Result || sig.Async {
		return nil, fmterr.Unsupportedf(def.Span(), "FuncDef", "generator %s cannot raise an exception or await", def.Name)
	}
	g, exit := t.enter(sig, nil)
	defer exit()
	body, err := g.FuncBody(sig, def.Body)
	if err != nil {
		return nil, err
	}
	if state := t.ctx.GeneratorStateVars(); state.Size() > 0 {
		names := slices.Collect(state.Keys())
		t.ctx.Trace(def.Span(), "FuncDef", "generator-eager", "values collected before the first next: state "+strings.Join(names, ", ")+" is not kept between items")
	}
	elem := g.Type(types.ElemOf(sig.Ret))
	t.ctx.Use("std::collections::VecDeque")
	buffer := rast.Named("Vec", elem)
	body.Stmts = append([]rast.Stmt{&rast.Let{
		Pattern: rast.Id(exprgen.YieldBuffer),
		Mut:     true,
		Type:    buffer,
		Value:   rast.PC("Vec::new"),
	}}, body.Stmts...)
	body.Tail = rast.Id(exprgen.YieldBuffer)
	params, prelude := t.params(g, sig, def.Body)
	body.Stmts = append(prelude, body.Stmts...)

	name := exprgen.Ident(def.Name)
	bodyName := name + "_body"
	stateName := infer.PascalCase(def.Name) + "Generator"
	state := &rast.Struct{
		Doc:  []string{"Iterator over the values of " + name + ".", "", "The values are computed by the first call to next."},
		Name: stateName,
	}
	init := &rast.StructLit{Name: stateName}
	var args []rast.Expr
	outer := make([]*rast.Param, len(params))
	for i, p := range params {
		id := exprgen.Ident(sig.ParamNames[i])
		outer[i] = &rast.Param{Pattern: p.Pattern, Type: p.Type}
		field := rast.Field{X: rast.Id(selfName), Name: id}
		if sig.Params[i].Kind() == types.StringKind {
			state.Fields = append(state.Fields, &rast.StructField{Name: id, Type: rast.Named("String")})
			init.Fields = append(init.Fields, &rast.FieldValue{Name: id, Value: rast.M(rast.Id(id), "to_string")})
			args = append(args, &rast.Ref{X: &field})
			continue
		}
		state.Fields = append(state.Fields, &rast.StructField{Name: id, Type: p.Type})
		init.Fields = append(init.Fields, &rast.FieldValue{Name: id, Value: rast.Id(id)})
		args = append(args, rast.M(&field, "clone"))
	}
	state.Fields = append(state.Fields,
		&rast.StructField{Name: "started", Type: rast.Named("bool")},
		&rast.StructField{Name: "buffer", Type: rast.Named("VecDeque", elem)},
	)
	init.Fields = append(init.Fields,
		&rast.FieldValue{Name: "started", Value: rast.Bool(false)},
		&rast.FieldValue{Name: "buffer", Value: rast.PC("VecDeque::new")},
	)
	self := rast.Id(selfName)
	next := &rast.Fn{
		Name: "next",
		Self: "&mut self",
		Ret:  rast.Named("Option", rast.Named("Self::Item")),
		Body: rast.Blk(
			rast.M(&rast.Field{X: self, Name: "buffer"}, "pop_front"),
			&rast.ExprStmt{NoSemi: true, X: &rast.If{
				Cond: rast.Not(&rast.Field{X: self, Name: "started"}),
				Then: rast.Blk(nil,
					&rast.Assign{Lhs: &rast.Field{X: self, Name: "started"}, Op: "=", Rhs: rast.Bool(true)},
					&rast.Assign{Lhs: &rast.Field{X: self, Name: "buffer"}, Op: "=", Rhs: rast.M(rast.C(rast.Id(bodyName), args...), "into")},
				),
			}},
		),
	}
	impl := &rast.Impl{
		Trait:  "Iterator",
		Type:   stateName,
		Assocs: []*rast.TypeAssoc{{Name: "Item", Value: elem}},
		Items:  []rast.Item{next},
	}
	pub := &rast.Fn{
		Doc:    docLines(def.Doc),
		Pub:    true,
		Name:   name,
		Params: outer,
		Ret:    rast.Named(stateName),
		Body:   rast.Blk(init),
	}
	if t.opts.PanicFree {
		pub.Doc = panicDoc(pub.Doc, body)
	}
	collect := &rast.Fn{
		Name:   bodyName,
		Params: params,
		Ret:    buffer,
		Body:   body,
	}
	return []rast.Item{state, impl, pub, collect}, nil
}
