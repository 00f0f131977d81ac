// Copyright 2025 Google LLC
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

package options_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const licenseLines = 13

func TestSourceHeaders(t *testing.T) {
	root := filepath.Join("..", "..")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, "_") || name == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src := string(data)
		if strings.Contains(src, "\n\n\n") {
			t.Errorf("%s: consecutive blank lines", path)
		}
		if !strings.HasPrefix(src, "// Copyright") {
			return nil
		}
		lines := strings.Split(src, "\n")
		if len(lines) <= licenseLines+1 || lines[licenseLines] != "" || lines[licenseLines+1] == "" {
			t.Errorf("%s: the license header is not followed by a single blank line", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
