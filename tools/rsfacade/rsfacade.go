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

// Utility rsfacade writes the DynValue prelude shared by translated Rust modules.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gx-org/pyrs/rustgen/dynvalue"
	"github.com/gx-org/pyrs/tools/rsflag"
)

var (
	out      = flag.String("out", "", "file to write the prelude to; standard output if empty")
	optFlags = rsflag.Options(flag.CommandLine)
)

func exit(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

func main() {
	flag.Parse()
	opts, err := optFlags.Load()
	if err != nil {
		exit("%+v", err)
	}
	src, err := dynvalue.Generate(dynvalue.ConfigFor(opts))
	if err != nil {
		exit("%+v", err)
	}
	if *out == "" {
		fmt.Print(src)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		exit("cannot create target folder for %s: %v", *out, err)
	}
	if err := os.WriteFile(*out, []byte(src), 0644); err != nil {
		exit("cannot write %s: %v", *out, err)
	}
}
