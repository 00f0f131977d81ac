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
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/scope"
	"github.com/gx-org/pyrs/rustgen/stmtgen"
)

const (
	initName = "__init__"
	strName  = "__str__"
)

// isSelf returns true if an expression is self or a field or an element of self.
func isSelf(x hir.Expr) bool {
	for {
		switch xT := x.(type) {
		case *hir.Var:
			return xT.Name == selfName
		case *hir.Attr:
			x = xT.X
		case *hir.Index:
			x = xT.X
		default:
			return false
		}
	}
}

// mutatesSelf returns true if a method body modifies the instance.
// mutating lists the methods already known to modify the instance.
func mutatesSelf(body []hir.Stmt, mutating map[string]bool) bool {
	found := false
	hir.InspectStmts(body, func(n hir.Node) bool {
		switch nT := n.(type) {
		case *hir.FuncDef, *hir.Lambda:
			return false
		case *hir.AttrTarget:
			found = found || isSelf(nT.X)
		case *hir.IndexTarget:
			found = found || isSelf(nT.X)
		case *hir.MethodCall:
			if v, ok := nT.Recv.(*hir.Var); ok && v.Name == selfName {
				found = found || mutating[nT.Method]
			} else {
				found = found || isSelf(nT.Recv) && scope.IsMutatingMethod(nT.Method)
			}
		}
		return !found
	})
	return found
}

// mutatingMethods returns the methods of a class modifying the instance,
// directly or by calling another mutating method.
func mutatingMethods(c *hir.ClassDef) map[string]bool {
	mutating := map[string]bool{initName: true}
	for changed := true; changed; {
		changed = false
		for _, m := range c.Methods {
			if !mutating[m.Name] && mutatesSelf(m.Body, mutating) {
				mutating[m.Name] = true
				changed = true
			}
		}
	}
	return mutating
}

func hasSelf(def *hir.FuncDef) bool {
	return len(def.Params) > 0 && def.Params[0].Name == selfName
}

// class generates the structure of a class and its implementation.
func (t *translator) class(c *hir.ClassDef) ([]rast.Item, error) {
	cls, ok := t.ctx.Registry().Class(c.Name)
	if !ok {
		return nil, fmterr.Internalf(c.Span(), "class %s has not been registered", c.Name)
	}
	g := stmtgen.New(exprgen.New(t.ctx))
	st := &rast.Struct{
		Doc:    docLines(c.Doc),
		Derive: []string{"Debug", "Clone", "Default"},
		Name:   c.Name,
	}
	for name, typ := range cls.Fields.Iter() {
		st.Fields = append(st.Fields, &rast.StructField{Name: exprgen.Ident(name), Type: g.Type(typ)})
	}
	impl := &rast.Impl{Type: c.Name}
	mutating := mutatingMethods(c)
	if init := c.Method(initName); init != nil {
		items, err := t.constructor(init, cls)
		if err != nil {
			return nil, err
		}
		impl.Items = append(impl.Items, items...)
	}
	for _, m := range c.Methods {
		if m.Name == initName {
			continue
		}
		f, err := t.fn(m, cls.Methods[m.Name], cls)
		if err != nil {
			return nil, err
		}
		f.Pub = true
		if hasSelf(m) {
			f.Self = "&self"
			if mutating[m.Name] {
				f.Self = "&mut self"
			}
		}
		impl.Items = append(impl.Items, f)
	}
	items := []rast.Item{st}
	if len(impl.Items) > 0 {
		items = append(items, impl)
	}
	if str := c.Method(strName); str != nil && hasSelf(str) && !mutating[strName] && !cls.Methods[strName].Result {
		items = append(items, display(c.Name, cls.Methods[strName]))
	}
	return items, nil
}

// constructor generates new and init from the constructor of a class.
// new builds a default instance and initializes it.
func (t *translator) constructor(init *hir.FuncDef, cls *genctx.Class) ([]rast.Item, error) {
	sig := cls.Methods[initName]
	f, err := t.fn(init, sig, cls)
	if err != nil {
		return nil, err
	}
	f.Name = "init"
	f.Self = "&mut self"
	f.Doc = nil

	obj := rast.Id("obj")
	params := make([]*rast.Param, len(f.Params))
	args := make([]rast.Expr, len(f.Params))
	for i, p := range f.Params {
		params[i] = &rast.Param{Pattern: p.Pattern, Type: p.Type}
		args[i] = p.Pattern
	}
	var call rast.Expr = rast.M(obj, "init", args...)
	if t.ctx.IsResultReturning(sig.Name) {
		call = rast.M(call, "expect", rast.Str(cls.Name+" initialization failed"))
	}
	newFn := &rast.Fn{
		Doc:    docLines(init.Doc),
		Pub:    true,
		Name:   "new",
		Params: params,
		Ret:    rast.Named("Self"),
		Body: rast.Blk(obj,
			&rast.Let{Pattern: obj, Mut: true, Value: rast.PC("Self::default")},
			rast.Semi(call),
		),
	}
	return []rast.Item{newFn, f}, nil
}

// display implements Display with the __str__ method of a class.
func display(name string, sig *genctx.FuncSig) rast.Item {
	var str rast.Expr = rast.M(rast.Id(selfName), strName)
	if sig.Ret != nil && sig.Ret.Kind() != types.StringKind {
		str = rast.Format("{:?}", str)
	}
	return &rast.Impl{
		Trait: "std::fmt::Display",
		Type:  name,
		Items: []rast.Item{&rast.Fn{
			Name: "fmt",
			Self: "&self",
			Params: []*rast.Param{{
				Pattern: rast.Id("f"),
				Type:    &rast.TypeRef{Mut: true, Elem: rast.Named("std::fmt::Formatter")},
			}},
			Ret: rast.Named("std::fmt::Result"),
			Body: rast.Blk(&rast.Macro{
				Name: "write",
				Args: []rast.Expr{rast.Id("f"), rast.Str("{}"), str},
			}),
		}},
	}
}
