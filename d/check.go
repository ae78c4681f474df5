// Copyright 2026 RefGraph Authors
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

// Package d contains assertion helpers for programming-contract violations.
// A failed check signals a broken invariant, not bad input, so it panics
// instead of returning a recoverable error.
package d

import (
	"fmt"

	"github.com/stretchr/testify/assert"
)

// Chk provides the full testify assertion API for checking invariants.
// A failed assertion panics.
var Chk = assert.New(&panicker{})

type panicker struct {
}

func (s *panicker) Errorf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// Panic creates an error using format and args and panics with it.
func Panic(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	panic(err)
}

// PanicIfError panics if the given error is non-nil.
func PanicIfError(err error) {
	if err != nil {
		panic(err)
	}
}

// PanicIfTrue panics if the given bool is true.
func PanicIfTrue(b bool) {
	if b {
		panic("unexpected true value")
	}
}

// PanicIfFalse panics if the given bool is false.
func PanicIfFalse(b bool) {
	if !b {
		panic("unexpected false value")
	}
}
