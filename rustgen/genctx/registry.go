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

package genctx

import (
	"github.com/gx-org/pyrs/base/ordered"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/types"
)

type (
	// FuncSig is the signature of a module function or method.
	FuncSig struct {
		Name       string
		ParamNames []string
		Params     []types.Type
		// Defaults holds the default value of each parameter, nil for a required parameter.
		Defaults []hir.Expr
		// Ret is the declared or inferred return type. Never nil.
		Ret types.Type
		// Result is true if the function returns a Result.
		Result bool
		// Generator is true if the function contains a yield.
		Generator bool
		// Async is true if the function is a coroutine.
		Async bool
	}

	// Class is a user-defined class, with inherited fields inlined.
	Class struct {
		Name    string
		Fields  *ordered.Map[string, types.Type]
		Methods map[string]*FuncSig
	}

	// Registry holds the classes, constants and function signatures of a module.
	// It is filled before any function body is translated and read-only afterwards.
	Registry struct {
		Classes   *ordered.Map[string, *Class]
		Constants *ordered.Map[string, types.Type]
		Funcs     *ordered.Map[string, *FuncSig]
	}
)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Classes:   ordered.NewMap[string, *Class](),
		Constants: ordered.NewMap[string, types.Type](),
		Funcs:     ordered.NewMap[string, *FuncSig](),
	}
}

// NewClass returns a class without fields and methods.
func NewClass(name string) *Class {
	return &Class{
		Name:    name,
		Fields:  ordered.NewMap[string, types.Type](),
		Methods: make(map[string]*FuncSig),
	}
}

// Class returns a class given its name.
func (r *Registry) Class(name string) (*Class, bool) {
	return r.Classes.Load(name)
}

// Func returns the signature of a function given its name.
func (r *Registry) Func(name string) (*FuncSig, bool) {
	return r.Funcs.Load(name)
}
