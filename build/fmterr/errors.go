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

package fmterr

import (
	"fmt"
	"strings"
)

// Errors is an ordered set of errors.
type Errors struct {
	errs []error
}

// Append an error to the set. Always returns false so that it can be used as:
//
//	return errs.Append(err)
//
// in functions returning an ok boolean.
func (errs *Errors) Append(err error) bool {
	if err == nil {
		return false
	}
	errs.errs = append(errs.errs, err)
	return false
}

// Empty returns true if no error has been appended.
func (errs *Errors) Empty() bool {
	return errs == nil || len(errs.errs) == 0
}

// Errors returns all the errors in the order they have been appended.
func (errs *Errors) Errors() []error {
	if errs == nil {
		return nil
	}
	return append([]error{}, errs.errs...)
}

// Error returns all the error messages, one per line.
func (errs *Errors) Error() string {
	ss := make([]string, len(errs.errs))
	for i, err := range errs.errs {
		ss[i] = err.Error()
	}
	return strings.Join(ss, "\n")
}

// ToError returns nil if the set is empty, the set otherwise.
func (errs *Errors) ToError() error {
	if errs.Empty() {
		return nil
	}
	return errs
}

// Transform returns a new set of errors after applying a function to each error.
// The function can return nil to remove an error from the set.
func (errs *Errors) Transform(f func(error) error) *Errors {
	if errs == nil {
		return nil
	}
	nw := &Errors{}
	for _, err := range errs.errs {
		nw.Append(f(err))
	}
	if nw.Empty() {
		return nil
	}
	return nw
}

// Format the set of errors.
func (errs *Errors) Format(s fmt.State, verb rune) {
	flag := ""
	if s.Flag('+') {
		flag = "+"
	}
	for _, e := range errs.errs {
		format := fmt.Sprintf("%%%s%s\n", flag, string(verb))
		fmt.Fprintf(s, format, e)
	}
}

// String representation of the errors.
func (errs *Errors) String() string {
	return errs.Error()
}
