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

package stream

import (
	"fmt"
	"strings"
)

// FormatError reports structurally invalid input: bad magic numbers,
// mismatched chunk ids, reads past a chunk's recorded end, or unresolved
// pointer backpatches at close. Details carries an ordered chain of
// lower-level messages appended while the error travelled upward.
type FormatError struct {
	Msg     string
	Details []string
}

func (e FormatError) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}

	return e.Msg + ": " + strings.Join(e.Details, ": ")
}

// WithDetail returns a copy of the error with an additional detail message
// appended to the chain.
func (e FormatError) WithDetail(format string, args ...interface{}) FormatError {
	return FormatError{
		Msg:     e.Msg,
		Details: append(append([]string{}, e.Details...), fmt.Sprintf(format, args...)),
	}
}

// VersionError reports a file written by a newer program version than the
// reader understands.
type VersionError struct {
	FileVersion uint32
	MaxVersion  uint32
}

func (e VersionError) Error() string {
	return fmt.Sprintf(
		"file format version %d is newer than the maximum supported version %d; the file was written by a newer program version",
		e.FileVersion, e.MaxVersion)
}

// IOError reports a failure of the underlying device.
type IOError struct {
	Err error
}

func (e IOError) Error() string {
	return "I/O error: " + e.Err.Error()
}

func (e IOError) Unwrap() error {
	return e.Err
}

// wrapIO wraps a device failure in an IOError, passing nil and already
// classified errors through unchanged.
func wrapIO(err error) error {
	if err == nil {
		return nil
	}

	switch err.(type) {
	case FormatError, VersionError, IOError:
		return err
	}

	return IOError{Err: err}
}
