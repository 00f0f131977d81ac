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
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/gx-org/pyrs/rustgen/infer"
)

func (g *Generator) call(x *hir.Call) (rast.Expr, error) {
	if strings.HasPrefix(x.Func, "np.") || strings.HasPrefix(x.Func, "numpy.") {
		name, args, kwargs, _ := infer.NumpyFunc(x)
		e, ok, err := g.numpyCall(x, name, args, kwargs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmterr.Unsupportedf(x.Span(), "numpy call", "numpy function %s not supported", name)
		}
		return e, nil
	}
	if _, local := g.ctx.LookupVar(x.Func); local {
		return g.localCall(x)
	}
	reg := g.ctx.Registry()
	if sig, ok := reg.Func(x.Func); ok {
		return g.userCall(x, sig)
	}
	if cls, ok := reg.Class(x.Func); ok {
		return g.constructor(x, cls)
	}
	e, ok, err := g.builtin(x)
	if err != nil {
		return nil, err
	}
	if ok {
		return e, nil
	}
	if mod, fn, dotted := strings.Cut(x.Func, "."); dotted {
		return g.moduleCall(x, mod, fn, x.Args, x.Kwargs)
	}
	return g.unresolvedCall(x, rast.Id(Ident(x.Func)), x.Args)
}

// unresolvedCall calls a function unknown to the translation with owned arguments.
func (g *Generator) unresolvedCall(x hir.Expr, fun rast.Expr, args []hir.Expr) (rast.Expr, error) {
	g.trace(x, "unresolved-call", "call to "+rast.String(fun)+" has no known signature")
	rargs, err := g.values(args)
	if err != nil {
		return nil, err
	}
	return rast.C(fun, rargs...), nil
}

func (g *Generator) values(xs []hir.Expr) ([]rast.Expr, error) {
	rxs := make([]rast.Expr, len(xs))
	for i, x := range xs {
		var err error
		if rxs[i], err = g.Value(x); err != nil {
			return nil, err
		}
	}
	return rxs, nil
}

// localCall calls a closure bound to a local variable.
func (g *Generator) localCall(x *hir.Call) (rast.Expr, error) {
	args, err := g.values(x.Args)
	if err != nil {
		return nil, err
	}
	typ, _ := g.ctx.LookupVar(x.Func)
	if fn, ok := typ.(*types.Function); ok {
		for i, arg := range x.Args {
			if i < len(fn.Params) {
				if args[i], err = g.argument(arg, fn.Params[i]); err != nil {
					return nil, err
				}
			}
		}
	}
	return rast.C(rast.Id(Ident(x.Func)), args...), nil
}

func (g *Generator) userCall(x *hir.Call, sig *genctx.FuncSig) (rast.Expr, error) {
	args, err := g.callArgs(x, sig, x.Args, x.Kwargs)
	if err != nil {
		return nil, err
	}
	call := rast.C(rast.Id(Ident(x.Func)), args...)
	if g.ctx.IsResultReturning(x.Func) {
		return g.fallible(call, x.Func+" failed"), nil
	}
	return call, nil
}

// callArgs matches the positional and keyword arguments of a call with the parameters of a signature.
// Missing arguments take the default value of their parameter.
func (g *Generator) callArgs(x hir.Node, sig *genctx.FuncSig, args []hir.Expr, kwargs []*hir.Keyword) ([]rast.Expr, error) {
	if len(args) > len(sig.ParamNames) {
		return nil, fmterr.Arityf(x.Span(), "call", "%s takes %d arguments, got %d", sig.Name, len(sig.ParamNames), len(args))
	}
	rargs := make([]rast.Expr, len(sig.ParamNames))
	for i, name := range sig.ParamNames {
		var arg hir.Expr
		if i < len(args) {
			arg = args[i]
		} else {
			arg = hir.Kwarg(kwargs, name)
		}
		if arg == nil && i < len(sig.Defaults) {
			arg = sig.Defaults[i]
		}
		if arg == nil {
			return nil, fmterr.Arityf(x.Span(), "call", "%s: missing argument %s", sig.Name, name)
		}
		var want types.Type
		if i < len(sig.Params) {
			want = sig.Params[i]
		}
		var err error
		if rargs[i], err = g.argument(arg, want); err != nil {
			return nil, err
		}
	}
	return rargs, nil
}

// argument converts an argument to the type of its parameter.
// String parameters are borrowed and parameters of unknown type take a DynValue.
func (g *Generator) argument(x hir.Expr, want types.Type) (rast.Expr, error) {
	switch {
	case want == nil:
		return g.Value(x)
	case want.Kind() == types.StringKind:
		return g.strRef(x)
	case types.IsDV(want) && !g.isDyn(x):
		return g.lift(x)
	}
	return g.Coerce(x, want)
}

// fallible unwraps a Result: the error is propagated inside a try body or a function
// returning a Result and panics otherwise.
func (g *Generator) fallible(e rast.Expr, msg string) rast.Expr {
	if g.closures == 0 && (g.tries > 0 || g.ctx.IsResultReturning(g.ctx.FunctionName())) {
		return &rast.Try{X: e}
	}
	return expect(e, msg)
}

// constructor generates the construction of an instance of a class.
func (g *Generator) constructor(x *hir.Call, cls *genctx.Class) (rast.Expr, error) {
	if init, ok := cls.Methods["__init__"]; ok {
		args, err := g.callArgs(x, init, x.Args, x.Kwargs)
		if err != nil {
			return nil, err
		}
		return rast.C(rast.P(cls.Name, "new"), args...), nil
	}
	if len(x.Args) > cls.Fields.Size() {
		return nil, fmterr.Arityf(x.Span(), "call", "%s takes %d arguments, got %d", cls.Name, cls.Fields.Size(), len(x.Args))
	}
	lit := &rast.StructLit{Name: cls.Name}
	i := 0
	for name, typ := range cls.Fields.Iter() {
		var arg hir.Expr
		if i < len(x.Args) {
			arg = x.Args[i]
		} else {
			arg = hir.Kwarg(x.Kwargs, name)
		}
		i++
		var value rast.Expr = rast.PC("Default::default")
		if arg != nil {
			var err error
			if typ.Kind() == types.StringKind {
				value, err = g.Coerce(arg, typ)
			} else {
				value, err = g.argument(arg, typ)
			}
			if err != nil {
				return nil, err
			}
		}
		lit.Fields = append(lit.Fields, &rast.FieldValue{Name: Ident(name), Value: value})
	}
	return lit, nil
}

// dynCall calls a function computed by an expression.
func (g *Generator) dynCall(x *hir.DynCall) (rast.Expr, error) {
	callee, err := g.Expr(x.Callee)
	if err != nil {
		return nil, err
	}
	if g.isDyn(x.Callee) {
		return nil, fmterr.Unsupportedf(x.Span(), "dynamic call", "calling a dynamic value")
	}
	switch callee.(type) {
	case *rast.Ident, *rast.Path:
	default:
		callee = &rast.Paren{X: callee}
	}
	args, err := g.values(x.Args)
	if err != nil {
		return nil, err
	}
	if fn, ok := g.typeOf(x.Callee).(*types.Function); ok {
		for i, arg := range x.Args {
			if i < len(fn.Params) {
				if args[i], err = g.argument(arg, fn.Params[i]); err != nil {
					return nil, err
				}
			}
		}
	}
	return rast.C(callee, args...), nil
}
