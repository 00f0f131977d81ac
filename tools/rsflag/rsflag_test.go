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

package rsflag_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/tools/rsflag"
)

func TestFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	list := rsflag.StringList(fs, "result_fns", "")
	mode := rsflag.FacadeMode(fs, "facade", options.FacadeAuto, "")
	if err := fs.Parse([]string{"-result_fns", "a, b,", "-result_fns=c", "-facade=Always"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(*list, []string{"a", "b", "c"}); diff != "" {
		t.Errorf("unexpected list:\n%s", diff)
	}
	if *mode != options.FacadeAlways {
		t.Errorf("got mode %s but want %s", *mode, options.FacadeAlways)
	}
	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(discard{})
	rsflag.FacadeMode(fs, "facade", options.FacadeAuto, "")
	if err := fs.Parse([]string{"-facade=sometimes"}); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}

func TestOptionFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	if err := os.WriteFile(path, []byte("nasa_mode: true\nresult_return_functions: [parse]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	optFlags := rsflag.Options(fs)
	if err := fs.Parse([]string{"-options", path, "-result_return_functions=load", "-emit_dv_facade=never"}); err != nil {
		t.Fatal(err)
	}
	opts, err := optFlags.Load()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !opts.NasaMode {
		t.Error("nasa_mode from the options file has been overridden")
	}
	if opts.EmitDVFacade != options.FacadeNever {
		t.Errorf("got facade mode %s but want %s", opts.EmitDVFacade, options.FacadeNever)
	}
	if diff := cmp.Diff([]string{"parse", "load"}, opts.ResultReturnFunctions); diff != "" {
		t.Errorf("unexpected result functions:\n%s", diff)
	}
}

func TestOptionFlagsInvalid(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	optFlags := rsflag.Options(fs)
	if err := fs.Parse([]string{"-target_edition=1999"}); err != nil {
		t.Fatal(err)
	}
	if _, err := optFlags.Load(); err == nil {
		t.Error("no error for an unknown edition")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
