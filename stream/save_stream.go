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
	"encoding/binary"
	"io"
	"math"

	"github.com/refgraph/refgraph/d"
	"github.com/refgraph/refgraph/iohelp"
)

// SaveStream writes the chunked binary format to a seekable destination.
// Chunk sizes are recorded retroactively, so the destination must support
// seeking. A SaveStream is scoped to a single save and is not safe for
// concurrent use.
type SaveStream struct {
	w   io.WriteSeeker
	pos int64

	precision  uint32
	appName    string
	appVersion AppVersion

	// chunks holds the file offset of each open chunk's size placeholder.
	chunks []int64

	pointerIDs map[interface{}]uint64
	nextID     uint64

	closed bool
}

// SaveOption configures a SaveStream.
type SaveOption func(*SaveStream)

// WithPrecision sets the floating-point width written to the stream.
// Legal values are SinglePrecision and DoublePrecision.
func WithPrecision(width uint32) SaveOption {
	d.PanicIfFalse(width == SinglePrecision || width == DoublePrecision)
	return func(s *SaveStream) {
		s.precision = width
	}
}

// WithAppName sets the writer application name recorded in the header.
func WithAppName(name string) SaveOption {
	return func(s *SaveStream) {
		s.appName = name
	}
}

// WithAppVersion sets the writer application version recorded in the header.
func WithAppVersion(v AppVersion) SaveOption {
	return func(s *SaveStream) {
		s.appVersion = v
	}
}

// NewSaveStream creates a SaveStream on w and writes the file header.
func NewSaveStream(w io.WriteSeeker, opts ...SaveOption) (*SaveStream, error) {
	s := &SaveStream{
		w:          w,
		precision:  DoublePrecision,
		appName:    "RefGraph",
		pointerIDs: map[interface{}]uint64{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.writeHeader(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SaveStream) writeHeader() error {
	err := s.WriteUint32(Magic1)
	err = s.writeUint32IfNoErr(Magic2, err)
	err = s.writeUint32IfNoErr(FormatVersion, err)
	err = s.writeUint32IfNoErr(s.precision, err)

	if err != nil {
		return err
	}

	if err := s.WriteString(s.appName); err != nil {
		return err
	}

	err = s.WriteUint32(s.appVersion.Major)
	err = s.writeUint32IfNoErr(s.appVersion.Minor, err)
	err = s.writeUint32IfNoErr(s.appVersion.Revision, err)

	return err
}

func (s *SaveStream) writeUint32IfNoErr(v uint32, err error) error {
	if err != nil {
		return err
	}

	return s.WriteUint32(v)
}

// Position returns the current write offset.
func (s *SaveStream) Position() int64 {
	return s.pos
}

// Write writes raw bytes to the stream.
func (s *SaveStream) Write(p []byte) (int, error) {
	err := iohelp.WriteAll(s.w, p)

	if err != nil {
		return 0, wrapIO(err)
	}

	s.pos += int64(len(p))
	return len(p), nil
}

func (s *SaveStream) writePrim(v interface{}) error {
	err := binary.Write(s.w, binary.BigEndian, v)

	if err != nil {
		return wrapIO(err)
	}

	s.pos += int64(binary.Size(v))
	return nil
}

// WriteUint8 writes an unsigned 8-bit integer.
func (s *SaveStream) WriteUint8(v uint8) error {
	return s.writePrim(v)
}

// WriteUint32 writes an unsigned 32-bit integer.
func (s *SaveStream) WriteUint32(v uint32) error {
	return s.writePrim(v)
}

// WriteInt32 writes a signed 32-bit integer.
func (s *SaveStream) WriteInt32(v int32) error {
	return s.writePrim(v)
}

// WriteUint64 writes an unsigned 64-bit integer.
func (s *SaveStream) WriteUint64(v uint64) error {
	return s.writePrim(v)
}

// WriteInt64 writes a signed 64-bit integer.
func (s *SaveStream) WriteInt64(v int64) error {
	return s.writePrim(v)
}

// WriteBool writes a boolean as a single byte.
func (s *SaveStream) WriteBool(v bool) error {
	b := uint8(0)

	if v {
		b = 1
	}

	return s.writePrim(b)
}

// WriteSize writes a size or count. Sizes are always widened to 64 bits on
// the wire regardless of the writer's native width.
func (s *SaveStream) WriteSize(v int) error {
	d.PanicIfTrue(v < 0)
	return s.WriteUint64(uint64(v))
}

// WriteEnum writes an enumeration value. Enums are always written as
// signed 32-bit integers.
func (s *SaveStream) WriteEnum(v int32) error {
	return s.WriteInt32(v)
}

// WriteFloat writes a floating-point value in the stream's configured
// precision. Narrowing to single precision truncates.
func (s *SaveStream) WriteFloat(v float64) error {
	if s.precision == SinglePrecision {
		return s.writePrim(math.Float32bits(float32(v)))
	}

	return s.writePrim(math.Float64bits(v))
}

// WriteString writes a length-prefixed UTF-8 string.
func (s *SaveStream) WriteString(v string) error {
	if err := s.WriteSize(len(v)); err != nil {
		return err
	}

	_, err := s.Write([]byte(v))
	return err
}

// BeginChunk starts a new chunk with the given id. The chunk's size is
// patched in when EndChunk is called.
func (s *SaveStream) BeginChunk(id uint32) error {
	d.PanicIfTrue(s.closed)

	if err := s.WriteUint32(id); err != nil {
		return err
	}

	s.chunks = append(s.chunks, s.pos)
	return s.WriteUint32(0)
}

// EndChunk closes the innermost open chunk: patches the recorded size and
// writes the sentinel. Calling it without an open chunk is a fatal
// assertion.
func (s *SaveStream) EndChunk() error {
	if len(s.chunks) == 0 {
		d.Panic("endChunk() called without a matching beginChunk()")
	}

	sizePos := s.chunks[len(s.chunks)-1]
	s.chunks = s.chunks[:len(s.chunks)-1]

	size := s.pos - sizePos - 4
	d.PanicIfTrue(size < 0 || size > math.MaxUint32)

	if _, err := s.w.Seek(sizePos, io.SeekStart); err != nil {
		return wrapIO(err)
	}

	if err := binary.Write(s.w, binary.BigEndian, uint32(size)); err != nil {
		return wrapIO(err)
	}

	if _, err := s.w.Seek(s.pos, io.SeekStart); err != nil {
		return wrapIO(err)
	}

	return s.WriteUint32(ChunkSentinel)
}

// WritePointer virtualizes a pointer: each distinct value gets a monotonic
// 64-bit id, minted on first sight. Nil writes id 0.
func (s *SaveStream) WritePointer(p interface{}) error {
	id, _ := s.mintPointerID(p)
	return s.WriteUint64(id)
}

// PointerID returns the id minted for p, minting one if necessary, and
// whether p had been seen before.
func (s *SaveStream) PointerID(p interface{}) (uint64, bool) {
	return s.mintPointerID(p)
}

func (s *SaveStream) mintPointerID(p interface{}) (uint64, bool) {
	if p == nil {
		return 0, true
	}

	if id, ok := s.pointerIDs[p]; ok {
		return id, true
	}

	s.nextID++
	s.pointerIDs[p] = s.nextID
	return s.nextID, false
}

// Close finishes the stream. Open chunks at close are a fatal assertion.
func (s *SaveStream) Close() error {
	if s.closed {
		return nil
	}

	if len(s.chunks) != 0 {
		d.Panic("SaveStream closed with %d unclosed chunks", len(s.chunks))
	}

	s.closed = true
	return nil
}
