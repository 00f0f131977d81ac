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

// Package module translates a lowered Python module into a Rust module.
package module

import (
	"context"

	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/rustgen/dynvalue"
	"github.com/gx-org/pyrs/rustgen/genctx"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Result is a translated module.
type Result struct {
	// Name of the source module.
	Name string
	// File is the generated Rust module.
	File *rast.File
	// Warnings are the non-fatal errors reported during the translation.
	Warnings []error
	// Dependencies are the crates the generated code needs.
	Dependencies []string
}

// Source returns the Rust source of the module.
func (r *Result) Source() string {
	return rast.String(r.File)
}

type translator struct {
	opts *options.Options
	ctx  *genctx.Context
	mod  *hir.Module
	// errorClasses are the classes deriving from an exception.
	// They are generated as error types.
	errorClasses map[string]bool
}

// Transpile translates a module.
//
// Functions using an unsupported construct are skipped: the translation
// continues with the next function and the errors are returned together with
// the partial result. Internal errors stop the translation.
func Transpile(m *hir.Module, opts *options.Options) (res *Result, err error) {
	if opts == nil {
		opts = options.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmterr.Internalf(fmterr.Span{File: m.Name}, "translator panic: %v", r)
		}
	}()
	t := &translator{
		opts:         opts,
		ctx:          genctx.New(opts, genctx.NewRegistry()),
		mod:          m,
		errorClasses: make(map[string]bool),
	}
	if err := t.register(m); err != nil {
		return nil, err
	}
	return t.module()
}

// module generates all the items of the module.
func (t *translator) module() (*Result, error) {
	var errs error
	skip := func(err error) error {
		if err == nil {
			return nil
		}
		if fmterr.IsFatal(err) {
			return err
		}
		errs = multierr.Append(errs, err)
		return nil
	}
	var consts, classes, funcs []rast.Item
	for _, c := range t.mod.Constants {
		item, err := t.constant(c)
		if err := skip(err); err != nil {
			return nil, err
		}
		if item != nil {
			consts = append(consts, item)
		}
	}
	for _, c := range t.mod.Classes {
		if t.errorClasses[c.Name] {
			continue
		}
		items, err := t.class(c)
		if err := skip(err); err != nil {
			return nil, err
		}
		classes = append(classes, items...)
	}
	for _, fn := range t.mod.Funcs {
		items, err := t.function(fn)
		if err := skip(err); err != nil {
			return nil, err
		}
		funcs = append(funcs, items...)
	}

	file := &rast.File{}
	for _, use := range t.ctx.Uses() {
		file.Items = append(file.Items, &rast.Use{Path: use})
	}
	facade, err := t.facade()
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	if facade != nil {
		file.Items = append(file.Items, facade)
	}
	errTypes, err := errorTypes(t.ctx.ErrorTypes())
	if err != nil {
		return nil, fmterr.AsInternal(err)
	}
	if errTypes != nil {
		file.Items = append(file.Items, errTypes)
	}
	file.Items = append(file.Items, consts...)
	file.Items = append(file.Items, classes...)
	file.Items = append(file.Items, funcs...)
	return &Result{
		Name:         t.mod.Name,
		File:         file,
		Warnings:     t.ctx.Warnings(),
		Dependencies: t.ctx.Dependencies(),
	}, errs
}

// facade returns the DynValue prelude if the module needs it.
func (t *translator) facade() (rast.Item, error) {
	needed := t.ctx.Flag(genctx.NeedsDynValue)
	switch t.opts.EmitDVFacade {
	case options.FacadeNever:
		if needed {
			return nil, fmterr.Unsupportedf(fmterr.Span{File: t.mod.Name}, "DynValue", "module %s needs dynamic values but the facade is disabled", t.mod.Name)
		}
		return nil, nil
	case options.FacadeAuto:
		if !needed {
			return nil, nil
		}
	}
	prelude, err := dynvalue.Prelude(t.opts)
	if err != nil {
		return nil, fmterr.AsInternal(err)
	}
	return prelude, nil
}

// TranspileAll translates modules concurrently.
// The results are in the order of the modules. The first fatal error cancels
// the translation of the remaining modules.
func TranspileAll(ctx context.Context, modules []*hir.Module, opts *options.Options) ([]*Result, error) {
	results := make([]*Result, len(modules))
	errs := make([]error, len(modules))
	g, ctx := errgroup.WithContext(ctx)
	for i, m := range modules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Transpile(m, opts)
			results[i] = res
			if err != nil && fmterr.IsFatal(err) {
				return errors.Wrapf(err, "cannot translate module %s", m.Name)
			}
			errs[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, multierr.Combine(errs...)
}
