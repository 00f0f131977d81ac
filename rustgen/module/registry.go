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
	"strings"

	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
	"github.com/gx-org/pyrs/rustgen/scope"
)

const selfName = "self"

// methodName returns the name of the signature of a method.
func methodName(cls, method string) string {
	return cls + "." + method
}

// paramType returns the declared type of a parameter.
func (t *translator) paramType(p *hir.Param) (types.Type, error) {
	if p.Type != nil {
		return p.Type, nil
	}
	if p.Annotation == "" {
		if p.Default != nil {
			return infer.TypeOf(t.ctx, p.Default), nil
		}
		return types.UnknownType(), nil
	}
	return t.ctx.MapAnnotation(p.Span(), p.Annotation)
}

// signature returns the signature of a function from its declaration.
// The return type is Unknown if it is not declared.
func (t *translator) signature(name string, fn *hir.FuncDef) (*genctx.FuncSig, error) {
	sig := &genctx.FuncSig{
		Name:      name,
		Generator: scope.ContainsYield(fn.Body),
		Async:     fn.Async || scope.ContainsAwait(fn.Body),
		Result:    scope.ContainsRaise(fn.Body) || t.opts.IsResultReturning(name),
	}
	for _, p := range fn.Params {
		if p.Name == selfName {
			continue
		}
		typ, err := t.paramType(p)
		if err != nil {
			return nil, err
		}
		sig.ParamNames = append(sig.ParamNames, p.Name)
		sig.Params = append(sig.Params, typ)
		sig.Defaults = append(sig.Defaults, p.Default)
	}
	switch {
	case fn.Ret != nil:
		sig.Ret = fn.Ret
	case fn.RetAnnotation != "":
		ret, err := t.ctx.MapAnnotation(fn.Span(), fn.RetAnnotation)
		if err != nil {
			return nil, err
		}
		sig.Ret = ret
	default:
		sig.Ret = types.UnknownType()
	}
	return sig, nil
}

// inferReturn infers the return type of a function from the values it returns or yields.
// Local variables are typed from their assignments, in source order.
func (t *translator) inferReturn(fn *hir.FuncDef, sig *genctx.FuncSig, cls *genctx.Class) types.Type {
	t.ctx.EnterFunction(sig)
	defer t.ctx.ExitFunction()
	if cls != nil {
		t.ctx.EnterClass(cls)
		defer t.ctx.ExitClass()
		t.ctx.BindVar(selfName, types.CustomOf(cls.Name))
	}
	var ret, yielded types.Type
	hir.InspectStmts(fn.Body, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.FuncDef, *hir.Lambda:
			return false
		case *hir.Assign:
			if sym, ok := nT.Target.(*hir.SymbolTarget); ok {
				t.ctx.BindVar(sym.Name, infer.TypeOf(t.ctx, nT.Value))
			}
		case *hir.For:
			if sym, ok := nT.Target.(*hir.SymbolTarget); ok {
				t.ctx.BindVar(sym.Name, types.ElemOf(infer.TypeOf(t.ctx, nT.Iter)))
			}
		case *hir.Return:
			if nT.Value != nil {
				ret = types.Join(ret, infer.TypeOf(t.ctx, nT.Value))
			}
		case *hir.Yield:
			if nT.X != nil {
				yielded = types.Join(yielded, infer.TypeOf(t.ctx, nT.X))
			}
		}
		return true
	})
	if sig.Generator {
		if yielded == nil {
			yielded = types.NoneType()
		}
		return types.GenericOf("Iterator", yielded)
	}
	if ret == nil {
		return types.NoneType()
	}
	return ret
}

// fieldsFromInit adds to a class the fields assigned to self in its constructor.
func (t *translator) fieldsFromInit(cls *genctx.Class, init *hir.FuncDef, sig *genctx.FuncSig) {
	t.ctx.EnterFunction(sig)
	defer t.ctx.ExitFunction()
	t.ctx.EnterClass(cls)
	defer t.ctx.ExitClass()
	t.ctx.BindVar(selfName, types.CustomOf(cls.Name))
	hir.InspectStmts(init.Body, func(n hir.Node) bool {
		assign, ok := n.(*hir.Assign)
		if !ok {
			return true
		}
		attr, ok := assign.Target.(*hir.AttrTarget)
		if !ok {
			return true
		}
		if self, ok := attr.X.(*hir.Var); !ok || self.Name != selfName || cls.Fields.Has(attr.Name) {
			return true
		}
		typ := assign.Type
		if typ == nil && assign.Annotation != "" {
			typ, _ = t.ctx.MapAnnotation(assign.Span(), assign.Annotation)
		}
		if typ == nil {
			typ = infer.TypeOf(t.ctx, assign.Value)
		}
		cls.Fields.Store(attr.Name, typ)
		return true
	})
}

// isErrorClass returns true if a class derives from an exception.
func (t *translator) isErrorClass(c *hir.ClassDef) bool {
	for _, base := range c.Bases {
		if t.errorClasses[base] || strings.HasSuffix(base, "Error") || strings.HasSuffix(base, "Exception") {
			return true
		}
	}
	return false
}

// register fills the registry of a module: classes with their fields and methods,
// module constants and function signatures.
// Classes are registered first so that function signatures can refer to them.
func (t *translator) register(m *hir.Module) error {
	reg := t.ctx.Registry()
	for _, c := range m.Classes {
		if t.isErrorClass(c) {
			t.errorClasses[c.Name] = true
			t.ctx.RequireErrorType(c.Name)
			continue
		}
		reg.Classes.Store(c.Name, genctx.NewClass(c.Name))
	}
	for _, c := range m.Classes {
		cls, ok := reg.Class(c.Name)
		if !ok {
			continue
		}
		for _, f := range c.Fields {
			typ, err := t.paramType(f)
			if err != nil {
				return err
			}
			cls.Fields.Store(f.Name, typ)
		}
		for _, method := range c.Methods {
			sig, err := t.signature(methodName(c.Name, method.Name), method)
			if err != nil {
				return err
			}
			cls.Methods[method.Name] = sig
		}
		if init := c.Method("__init__"); init != nil {
			t.fieldsFromInit(cls, init, cls.Methods["__init__"])
		}
	}
	for _, c := range m.Constants {
		sym, ok := c.Target.(*hir.SymbolTarget)
		if !ok {
			continue
		}
		typ := c.Type
		if typ == nil && c.Annotation != "" {
			var err error
			if typ, err = t.ctx.MapAnnotation(c.Span(), c.Annotation); err != nil {
				return err
			}
		}
		if typ == nil {
			typ = infer.TypeOf(t.ctx, c.Value)
		}
		reg.Constants.Store(sym.Name, typ)
	}
	for _, fn := range m.Funcs {
		sig, err := t.signature(fn.Name, fn)
		if err != nil {
			return err
		}
		reg.Funcs.Store(fn.Name, sig)
	}
	// Return types are inferred once every signature is known.
	for _, fn := range m.Funcs {
		sig, _ := reg.Func(fn.Name)
		if sig.Ret.Kind() == types.UnknownKind {
			sig.Ret = t.inferReturn(fn, sig, nil)
		}
		if sig.Result {
			t.ctx.MarkResultReturning(sig.Name)
		}
	}
	for _, c := range m.Classes {
		cls, ok := reg.Class(c.Name)
		if !ok {
			continue
		}
		for _, method := range c.Methods {
			sig := cls.Methods[method.Name]
			if method.Name == "__init__" {
				sig.Ret = types.NoneType()
			} else if sig.Ret.Kind() == types.UnknownKind {
				sig.Ret = t.inferReturn(method, sig, cls)
			}
			if sig.Result {
				t.ctx.MarkResultReturning(sig.Name)
			}
		}
	}
	return nil
}
