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

// Package iohelp provides sticky-error readers and writers so that code
// performing many small sequential IO operations can defer error handling
// to a single check.
package iohelp

import (
	"encoding/binary"
	"io"
)

// ErrPreservingReader is a reader that records the first error encountered
// and turns every subsequent read into a no-op returning that error.
type ErrPreservingReader struct {
	// R is the reader supplying the data.
	R io.Reader

	// Err is the first error that occurred, or nil.
	Err error
}

// NewErrPreservingReader creates a new ErrPreservingReader.
func NewErrPreservingReader(r io.Reader) *ErrPreservingReader {
	return &ErrPreservingReader{r, nil}
}

// Read reads data from the underlying reader if no error has occurred previously.
func (r *ErrPreservingReader) Read(p []byte) (int, error) {
	n := 0

	if r.Err == nil {
		n, r.Err = r.R.Read(p)
	}

	return n, r.Err
}

// ReadUint32 reads a uint32 in the given byte order.
func (r *ErrPreservingReader) ReadUint32(order binary.ByteOrder) (uint32, error) {
	bytes, err := ReadNBytes(r, 4)

	if err != nil {
		return 0, err
	}

	return order.Uint32(bytes), nil
}

// ReadUint64 reads a uint64 in the given byte order.
func (r *ErrPreservingReader) ReadUint64(order binary.ByteOrder) (uint64, error) {
	bytes, err := ReadNBytes(r, 8)

	if err != nil {
		return 0, err
	}

	return order.Uint64(bytes), nil
}

// ReadNBytes reads exactly n bytes from the reader. Short reads are errors.
func ReadNBytes(r io.Reader, n int) ([]byte, error) {
	bytes := make([]byte, n)
	_, err := io.ReadFull(r, bytes)

	if err != nil {
		return nil, err
	}

	return bytes, nil
}
