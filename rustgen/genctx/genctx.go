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

// Package genctx holds the mutable state of a translation:
// the types of variables, the classes and functions of the module and
// the features required by the generated code.
package genctx

import (
	"sort"

	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/api/trace"
	"github.com/gx-org/pyrs/base/ordered"
	"github.com/gx-org/pyrs/base/uname"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/typemap"
	"github.com/gx-org/pyrs/build/types"
	"golang.org/x/exp/maps"
)

// Flag is a boolean state of the translation.
type Flag int

// Flags of the context. Module flags persist across functions,
// function flags are reset when a function is exited.
const (
	// NeedsSerdeJSON is set when the generated code uses serde_json (module).
	NeedsSerdeJSON Flag = iota + 1
	// NeedsDynValue is set when the generated code uses the DynValue facade (module).
	NeedsDynValue
	// NeedsRegex is set when the generated code uses the regex crate (module).
	NeedsRegex
	// NasaMode lowers unknown values to DynValue (module).
	NasaMode
	// InGenerator is set while translating a generator function (function).
	InGenerator
	// InAsync is set while translating a coroutine (function).
	InAsync
)

var flagNames = map[Flag]string{
	NeedsSerdeJSON: "needs_serde_json",
	NeedsDynValue:  "needs_dyn_value",
	NeedsRegex:     "needs_regex",
	NasaMode:       "nasa_mode",
	InGenerator:    "in_generator",
	InAsync:        "in_async",
}

// String returns the name of the flag.
func (f Flag) String() string {
	return flagNames[f]
}

// View is a read-only view of a context, used by the inference predicates.
type View interface {
	// LookupVar returns the type of a variable or a module constant.
	LookupVar(name string) (types.Type, bool)
	// IsNumpyVar returns true if a variable holds a numeric array.
	IsNumpyVar(name string) bool
	// IsStrParam returns true if a variable is a borrowed string parameter.
	IsStrParam(name string) bool
	// IsMutable returns true if a variable is reassigned or borrowed mutably.
	IsMutable(name string) bool
	// IsResultReturning returns true if calling the function returns a Result.
	IsResultReturning(fn string) bool
	// FunctionReturnType returns the return type of a module function.
	FunctionReturnType(fn string) (types.Type, bool)
	// ClassFieldType returns the type of a field of the class being translated.
	ClassFieldType(name string) (types.Type, bool)
	// IsClass returns true if the name is a class of the module.
	IsClass(name string) bool
	// Flag returns the value of a flag.
	Flag(f Flag) bool
}

// Context is the state of a module translation.
// It is owned by a single goroutine.
type Context struct {
	opts    *options.Options
	reg     *Registry
	mapper  *typemap.Mapper
	app     *fmterr.Appender
	unames  *uname.Unique
	flags   map[Flag]bool
	results map[string]bool
	deps    map[string]bool
	uses    map[string]bool
	errs    *ordered.Map[string, bool]

	// Function state.
	fn           *FuncSig
	varTypes     map[string]types.Type
	numpyVars    map[string]bool
	strParams    map[string]bool
	mutableVars  map[string]bool
	readerVars   map[string]bool
	genStateVars *ordered.Map[string, types.Type]
	scopes       []map[string]bool
	class        *Class
}

var _ View = (*Context)(nil)

// New returns a new context for a module.
func New(opts *options.Options, reg *Registry) *Context {
	if opts == nil {
		opts = options.Default()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	ctx := &Context{
		opts:    opts,
		reg:     reg,
		mapper:  typemap.New(),
		app:     fmterr.NewAppender(opts.Strict),
		unames:  uname.New(),
		flags:   make(map[Flag]bool),
		results: make(map[string]bool),
		deps:    make(map[string]bool),
		uses:    make(map[string]bool),
		errs:    ordered.NewMap[string, bool](),
	}
	for _, fn := range opts.ResultReturnFunctions {
		ctx.results[fn] = true
	}
	for name, sig := range reg.Funcs.Iter() {
		if sig.Result {
			ctx.results[name] = true
		}
	}
	ctx.flags[NasaMode] = opts.NasaMode
	ctx.resetFunction()
	return ctx
}

func (ctx *Context) resetFunction() {
	ctx.fn = nil
	ctx.varTypes = make(map[string]types.Type)
	ctx.numpyVars = make(map[string]bool)
	ctx.strParams = make(map[string]bool)
	ctx.mutableVars = make(map[string]bool)
	ctx.readerVars = make(map[string]bool)
	ctx.genStateVars = ordered.NewMap[string, types.Type]()
	ctx.scopes = []map[string]bool{{}}
	delete(ctx.flags, InGenerator)
	delete(ctx.flags, InAsync)
}

// Options returns the options of the translation.
func (ctx *Context) Options() *options.Options {
	return ctx.opts
}

// Registry returns the module registry.
func (ctx *Context) Registry() *Registry {
	return ctx.reg
}

// ----------------------------------------------------------------------------
// Functions and classes.

// EnterFunction starts the translation of a function.
// Parameters are bound to their declared types and string parameters are marked as borrowed.
func (ctx *Context) EnterFunction(sig *FuncSig) {
	ctx.resetFunction()
	ctx.fn = sig
	for i, name := range sig.ParamNames {
		typ := types.UnknownType()
		if i < len(sig.Params) && sig.Params[i] != nil {
			typ = sig.Params[i]
		}
		ctx.BindVar(name, typ)
		ctx.Declare(name)
		ctx.unames.Register(name)
		if typ.Kind() == types.StringKind {
			ctx.strParams[name] = true
		}
	}
	if sig.Generator {
		ctx.SetFlag(InGenerator)
	}
	if sig.Async {
		ctx.SetFlag(InAsync)
	}
}

// ExitFunction ends the translation of a function and clears all function state.
func (ctx *Context) ExitFunction() {
	ctx.resetFunction()
}

// Function returns the signature of the function being translated, nil at module level.
func (ctx *Context) Function() *FuncSig {
	return ctx.fn
}

// FunctionName returns the name of the function being translated.
func (ctx *Context) FunctionName() string {
	if ctx.fn == nil {
		return ""
	}
	return ctx.fn.Name
}

// EnterClass makes the fields of a class available while translating its methods.
func (ctx *Context) EnterClass(c *Class) {
	ctx.class = c
}

// Class returns the class whose methods are being translated, nil outside of a class.
func (ctx *Context) Class() *Class {
	return ctx.class
}

// ExitClass clears the class field table.
func (ctx *Context) ExitClass() {
	ctx.class = nil
}

// ClassFieldType returns the type of a field of the class being translated.
func (ctx *Context) ClassFieldType(name string) (types.Type, bool) {
	if ctx.class == nil {
		return nil, false
	}
	return ctx.class.Fields.Load(name)
}

// IsClass returns true if the name is a class of the module.
func (ctx *Context) IsClass(name string) bool {
	return ctx.reg.Classes.Has(name)
}

// FunctionReturnType returns the return type of a module function.
func (ctx *Context) FunctionReturnType(fn string) (types.Type, bool) {
	sig, ok := ctx.reg.Funcs.Load(fn)
	if !ok {
		return nil, false
	}
	return sig.Ret, true
}

// IsResultReturning returns true if calling the function returns a Result.
func (ctx *Context) IsResultReturning(fn string) bool {
	return ctx.results[fn]
}

// MarkResultReturning records that a function returns a Result.
func (ctx *Context) MarkResultReturning(fn string) {
	ctx.results[fn] = true
}

// ----------------------------------------------------------------------------
// Variables.

// BindVar sets the type of a variable.
// A known type is never replaced by Unknown.
func (ctx *Context) BindVar(name string, typ types.Type) {
	if typ == nil {
		typ = types.UnknownType()
	}
	if prev, ok := ctx.varTypes[name]; ok && typ.Kind() == types.UnknownKind && prev.Kind() != types.UnknownKind {
		return
	}
	ctx.varTypes[name] = typ
}

// LookupVar returns the type of a variable or of a module constant.
func (ctx *Context) LookupVar(name string) (types.Type, bool) {
	if typ, ok := ctx.varTypes[name]; ok {
		return typ, true
	}
	return ctx.reg.Constants.Load(name)
}

// ShadowVar binds a variable inside a nested scope, such as the parameter of a closure.
// The returned function restores the previous binding.
func (ctx *Context) ShadowVar(name string, typ types.Type) func() {
	prev, had := ctx.varTypes[name]
	if typ == nil {
		typ = types.UnknownType()
	}
	ctx.varTypes[name] = typ
	return func() {
		if had {
			ctx.varTypes[name] = prev
		} else {
			delete(ctx.varTypes, name)
		}
	}
}

// MarkMutable records that a variable is reassigned or borrowed mutably.
// A borrowed string parameter becomes owned.
func (ctx *Context) MarkMutable(name string) {
	ctx.mutableVars[name] = true
}

// IsMutable returns true if a variable is reassigned or borrowed mutably.
func (ctx *Context) IsMutable(name string) bool {
	return ctx.mutableVars[name]
}

// MarkBufferedReader records that a file handle is wrapped in a std::io::BufReader.
// A buffered reader is mutable.
func (ctx *Context) MarkBufferedReader(name string) {
	ctx.readerVars[name] = true
	ctx.mutableVars[name] = true
}

// IsBufferedReader returns true if a file handle is wrapped in a std::io::BufReader.
func (ctx *Context) IsBufferedReader(name string) bool {
	return ctx.readerVars[name]
}

// MarkNumpy records that a variable holds a numeric array.
func (ctx *Context) MarkNumpy(name string) {
	ctx.numpyVars[name] = true
}

// IsNumpyVar returns true if a variable holds a numeric array.
func (ctx *Context) IsNumpyVar(name string) bool {
	return ctx.numpyVars[name]
}

// IsStrParam returns true if a variable is a string parameter which arrives borrowed.
// A parameter which has been marked mutable has been promoted to an owned value.
func (ctx *Context) IsStrParam(name string) bool {
	return ctx.strParams[name] && !ctx.mutableVars[name]
}

// AddGeneratorStateVar records a variable which must survive a suspension of a generator.
func (ctx *Context) AddGeneratorStateVar(name string, typ types.Type) {
	ctx.genStateVars.Store(name, typ)
}

// GeneratorStateVars returns the state variables of the generator, in declaration order.
func (ctx *Context) GeneratorStateVars() *ordered.Map[string, types.Type] {
	return ctx.genStateVars
}

// ----------------------------------------------------------------------------
// Scopes.

// PushScope opens a new block scope.
func (ctx *Context) PushScope() {
	ctx.scopes = append(ctx.scopes, map[string]bool{})
}

// PopScope closes the innermost block scope.
// Variables declared in the scope are forgotten.
func (ctx *Context) PopScope() {
	if len(ctx.scopes) == 1 {
		return
	}
	ctx.scopes = ctx.scopes[:len(ctx.scopes)-1]
}

// Declare records that a variable has been declared in the current scope.
func (ctx *Context) Declare(name string) {
	ctx.scopes[len(ctx.scopes)-1][name] = true
	ctx.unames.Register(name)
}

// IsDeclared returns true if a variable has been declared in an enclosing scope.
func (ctx *Context) IsDeclared(name string) bool {
	for i := len(ctx.scopes) - 1; i >= 0; i-- {
		if ctx.scopes[i][name] {
			return true
		}
	}
	return false
}

// TempName returns a new temporary name which never triggers name heuristics.
func (ctx *Context) TempName() string {
	return ctx.unames.Temp()
}

// UniqueName returns a name derived from root which is not used in the function.
func (ctx *Context) UniqueName(root string) string {
	return ctx.unames.Name(root)
}

// ----------------------------------------------------------------------------
// Flags and requirements.

// SetFlag sets a flag.
func (ctx *Context) SetFlag(f Flag) {
	ctx.flags[f] = true
}

// Flag returns the value of a flag.
func (ctx *Context) Flag(f Flag) bool {
	return ctx.flags[f]
}

// RequireFacade records that the DynValue facade is required by the module.
func (ctx *Context) RequireFacade() {
	ctx.SetFlag(NeedsDynValue)
}

// Require records that the generated code depends on a crate.
func (ctx *Context) Require(crate string) {
	ctx.deps[crate] = true
	switch crate {
	case "serde_json":
		ctx.SetFlag(NeedsSerdeJSON)
	case "regex":
		ctx.SetFlag(NeedsRegex)
	}
}

// Dependencies returns the crates required by the generated code, sorted by name.
func (ctx *Context) Dependencies() []string {
	deps := maps.Keys(ctx.deps)
	sort.Strings(deps)
	return deps
}

// Use records that the generated module needs a use declaration, for example std::collections::HashMap.
func (ctx *Context) Use(path string) {
	ctx.uses[path] = true
}

// Uses returns the use declarations needed by the generated code, sorted by path.
func (ctx *Context) Uses() []string {
	uses := maps.Keys(ctx.uses)
	sort.Strings(uses)
	return uses
}

// RequireErrorType records that an exception class is raised and needs an error type.
func (ctx *Context) RequireErrorType(name string) {
	ctx.errs.Store(name, true)
}

// ErrorTypes returns the exception classes raised in the module, in order of first use.
func (ctx *Context) ErrorTypes() []string {
	var names []string
	for name := range ctx.errs.Keys() {
		names = append(names, name)
	}
	return names
}

// ----------------------------------------------------------------------------
// Diagnostics.

// MapAnnotation returns the type of an annotation.
// An annotation which cannot be parsed is Unknown and a warning is recorded.
// In strict mode, the error is returned instead.
func (ctx *Context) MapAnnotation(span fmterr.Span, annotation string) (types.Type, error) {
	typ, err := ctx.mapper.Map(span, annotation)
	if err != nil {
		if err := ctx.Warn(err); err != nil {
			return nil, err
		}
	}
	return typ, nil
}

// Warn records a recovered error. In strict mode, the error is returned instead.
func (ctx *Context) Warn(err error) error {
	return ctx.app.Warn(err)
}

// Warnings returns all the warnings recorded so far.
func (ctx *Context) Warnings() []error {
	return ctx.app.Warnings()
}

// Trace sends a decision to the trace callback.
func (ctx *Context) Trace(span fmterr.Span, construct, rule, detail string) {
	ctx.opts.TraceDecision(trace.Decision{
		Span:      span,
		Function:  ctx.FunctionName(),
		Construct: construct,
		Rule:      rule,
		Detail:    detail,
	})
}

// ----------------------------------------------------------------------------
// Snapshot.

// State is a comparable snapshot of the mutable state of a context.
type State struct {
	VarTypes map[string]string
	Numpy    []string
	Mutable  []string
	Flags    []string
}

func sortedTrue(m map[string]bool) []string {
	var keys []string
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// VarTypes returns a copy of the types of the variables of the current function.
func (ctx *Context) VarTypes() map[string]types.Type {
	return maps.Clone(ctx.varTypes)
}

// Snapshot returns the state of the context.
func (ctx *Context) Snapshot() State {
	st := State{
		VarTypes: make(map[string]string, len(ctx.varTypes)),
		Numpy:    sortedTrue(ctx.numpyVars),
		Mutable:  sortedTrue(ctx.mutableVars),
	}
	for name, typ := range ctx.varTypes {
		st.VarTypes[name] = typ.String()
	}
	flags := maps.Keys(ctx.flags)
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	for _, f := range flags {
		if ctx.flags[f] {
			st.Flags = append(st.Flags, f.String())
		}
	}
	return st
}
