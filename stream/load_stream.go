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
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/refgraph/refgraph/d"
	"github.com/refgraph/refgraph/iohelp"
)

// openChunk records the id and precomputed end offset of an open chunk.
type openChunk struct {
	id  uint32
	end int64
}

// LoadStream reads the chunked binary format from a seekable source,
// verifying the header on construction. Reads past an open chunk's recorded
// end are FormatErrors; unread trailing chunk content is skipped on
// CloseChunk for forward compatibility.
type LoadStream struct {
	r    io.ReadSeeker
	pos  int64
	size int64

	formatVersion uint32
	precision     uint32
	appName       string
	appVersion    AppVersion

	chunks []openChunk

	// backpatch holds assignment slots waiting for a pointer id to be
	// resolved; resolved remembers ids already bound to an address.
	backpatch map[uint64][]func(interface{})
	resolved  map[uint64]interface{}

	log *logrus.Logger
}

// LoadOption configures a LoadStream.
type LoadOption func(*LoadStream)

// WithLogger routes the stream's diagnostics (such as the non-fatal
// precision-mismatch warning) to the given logger.
func WithLogger(log *logrus.Logger) LoadOption {
	return func(s *LoadStream) {
		s.log = log
	}
}

// NewLoadStream creates a LoadStream on r and verifies the file header.
// Bad magic numbers are a FormatError; a file format newer than
// MaxFormatVersion is a VersionError.
func NewLoadStream(r io.ReadSeeker, opts ...LoadOption) (*LoadStream, error) {
	s := &LoadStream{
		r:         r,
		backpatch: map[uint64][]func(interface{}){},
		resolved:  map[uint64]interface{}{},
		log:       logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	size, err := r.Seek(0, io.SeekEnd)

	if err != nil {
		return nil, wrapIO(err)
	}

	s.size = size

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, wrapIO(err)
	}

	if err := s.readHeader(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *LoadStream) readHeader() error {
	errRd := iohelp.NewErrPreservingReader(s.r)

	magic1, _ := errRd.ReadUint32(binary.BigEndian)
	magic2, _ := errRd.ReadUint32(binary.BigEndian)
	formatVersion, _ := errRd.ReadUint32(binary.BigEndian)
	precision, err := errRd.ReadUint32(binary.BigEndian)

	if err != nil {
		return wrapIO(err)
	}

	s.pos = 16

	if magic1 != Magic1 || magic2 != Magic2 {
		return FormatError{Msg: fmt.Sprintf(
			"unknown file format: bad magic numbers 0x%08X 0x%08X (file is damaged or not a graph file)",
			magic1, magic2)}
	}

	if formatVersion > MaxFormatVersion {
		return VersionError{FileVersion: formatVersion, MaxVersion: MaxFormatVersion}
	}

	if precision != SinglePrecision && precision != DoublePrecision {
		return FormatError{Msg: fmt.Sprintf("invalid floating-point precision tag %d", precision)}
	}

	s.formatVersion = formatVersion
	s.precision = precision

	appName, err := s.ReadString()

	if err != nil {
		return err
	}

	s.appName = appName

	major, _ := s.ReadUint32()
	minor, _ := s.ReadUint32()
	revision, err := s.ReadUint32()

	if err != nil {
		return err
	}

	s.appVersion = AppVersion{Major: major, Minor: minor, Revision: revision}

	if precision != DoublePrecision {
		s.log.Warnf(
			"file stores floating-point values with %d-byte precision; values will be converted to %d-byte precision",
			precision, DoublePrecision)
	}

	return nil
}

// FormatVersion returns the file format version declared in the header.
func (s *LoadStream) FormatVersion() uint32 {
	return s.formatVersion
}

// FloatPrecision returns the file's floating-point width tag.
func (s *LoadStream) FloatPrecision() uint32 {
	return s.precision
}

// ApplicationName returns the writer application name from the header.
func (s *LoadStream) ApplicationName() string {
	return s.appName
}

// ApplicationVersion returns the writer application version from the header.
func (s *LoadStream) ApplicationVersion() AppVersion {
	return s.appVersion
}

// Position returns the current read offset.
func (s *LoadStream) Position() int64 {
	return s.pos
}

// Size returns the total length of the stream.
func (s *LoadStream) Size() int64 {
	return s.size
}

// SetPosition seeks to an absolute offset.
func (s *LoadStream) SetPosition(pos int64) error {
	if _, err := s.r.Seek(pos, io.SeekStart); err != nil {
		return wrapIO(err)
	}

	s.pos = pos
	return nil
}

// Read reads raw bytes, bounded by the innermost open chunk.
func (s *LoadStream) Read(p []byte) (int, error) {
	if err := s.checkBounds(int64(len(p))); err != nil {
		return 0, err
	}

	n, err := io.ReadFull(s.r, p)
	s.pos += int64(n)

	if err != nil {
		return n, wrapIO(err)
	}

	return n, nil
}

// checkBounds rejects reads that would cross the recorded end of the
// innermost open chunk.
func (s *LoadStream) checkBounds(n int64) error {
	if len(s.chunks) == 0 {
		return nil
	}

	top := s.chunks[len(s.chunks)-1]

	if s.pos+n > top.end {
		return FormatError{Msg: fmt.Sprintf(
			"read of %d bytes at offset %d exceeds the recorded end of chunk 0x%X (%d)",
			n, s.pos, top.id, top.end)}
	}

	return nil
}

// ReadNBytes reads exactly n bytes.
func (s *LoadStream) ReadNBytes(n int) ([]byte, error) {
	bytes := make([]byte, n)

	if _, err := s.Read(bytes); err != nil {
		return nil, err
	}

	return bytes, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (s *LoadStream) ReadUint8() (uint8, error) {
	bytes, err := s.ReadNBytes(1)

	if err != nil {
		return 0, err
	}

	return bytes[0], nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (s *LoadStream) ReadUint32() (uint32, error) {
	bytes, err := s.ReadNBytes(4)

	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(bytes), nil
}

// ReadInt32 reads a signed 32-bit integer.
func (s *LoadStream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads an unsigned 64-bit integer.
func (s *LoadStream) ReadUint64() (uint64, error) {
	bytes, err := s.ReadNBytes(8)

	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(bytes), nil
}

// ReadInt64 reads a signed 64-bit integer.
func (s *LoadStream) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

// ReadBool reads a single-byte boolean.
func (s *LoadStream) ReadBool() (bool, error) {
	v, err := s.ReadUint8()
	return v != 0, err
}

// ReadSize reads a size or count written by WriteSize.
func (s *LoadStream) ReadSize() (int, error) {
	v, err := s.ReadUint64()

	if err != nil {
		return 0, err
	}

	if v > math.MaxInt32 {
		return 0, FormatError{Msg: fmt.Sprintf("implausible size value %d in stream", v)}
	}

	return int(v), nil
}

// ReadEnum reads an enumeration value written by WriteEnum.
func (s *LoadStream) ReadEnum() (int32, error) {
	return s.ReadInt32()
}

// ReadFloat reads a floating-point value, converting from the file's
// precision to double precision if necessary.
func (s *LoadStream) ReadFloat() (float64, error) {
	if s.precision == SinglePrecision {
		bits, err := s.ReadUint32()

		if err != nil {
			return 0, err
		}

		return float64(math.Float32frombits(bits)), nil
	}

	bits, err := s.ReadUint64()

	if err != nil {
		return 0, err
	}

	return math.Float64frombits(bits), nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (s *LoadStream) ReadString() (string, error) {
	n, err := s.ReadSize()

	if err != nil {
		return "", err
	}

	bytes, err := s.ReadNBytes(n)

	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

// OpenChunk reads the next chunk's id and size and makes it the innermost
// open chunk. It returns the chunk id.
func (s *LoadStream) OpenChunk() (uint32, error) {
	id, err := s.ReadUint32()

	if err != nil {
		return 0, err
	}

	size, err := s.ReadUint32()

	if err != nil {
		return 0, err
	}

	s.chunks = append(s.chunks, openChunk{id: id, end: s.pos + int64(size)})
	return id, nil
}

// ExpectChunk opens the next chunk and verifies it has the given id.
func (s *LoadStream) ExpectChunk(id uint32) error {
	found, err := s.OpenChunk()

	if err != nil {
		return err
	}

	if found != id {
		return FormatError{Msg: fmt.Sprintf(
			"unexpected chunk in stream: expected chunk id %d (0x%X) but found %d (0x%X); the file is damaged or was written by an incompatible program version",
			id, id, found, found)}
	}

	return nil
}

// ExpectChunkRange opens the next chunk, verifies its id lies in
// [base, base+maxVersion], and returns the offset from base as an
// intra-chunk version number.
func (s *LoadStream) ExpectChunkRange(base, maxVersion uint32) (uint32, error) {
	found, err := s.OpenChunk()

	if err != nil {
		return 0, err
	}

	if found < base || found > base+maxVersion {
		return 0, FormatError{Msg: fmt.Sprintf(
			"unexpected chunk in stream: expected chunk id in range %d-%d (0x%X-0x%X) but found %d (0x%X); the file is damaged or was written by an incompatible program version",
			base, base+maxVersion, base, base+maxVersion, found, found)}
	}

	return found - base, nil
}

// CloseChunk closes the innermost open chunk: unread trailing content is
// skipped for forward compatibility, then the sentinel is verified.
func (s *LoadStream) CloseChunk() error {
	if len(s.chunks) == 0 {
		return FormatError{Msg: "closeChunk() called without a matching openChunk()"}
	}

	top := s.chunks[len(s.chunks)-1]
	s.chunks = s.chunks[:len(s.chunks)-1]

	if s.pos > top.end {
		return FormatError{Msg: fmt.Sprintf(
			"read position %d is past the recorded end of chunk 0x%X (%d)", s.pos, top.id, top.end)}
	}

	if s.pos < top.end {
		if err := s.SetPosition(top.end); err != nil {
			return err
		}
	}

	sentinel, err := s.ReadUint32()

	if err != nil {
		return err
	}

	if sentinel != ChunkSentinel {
		return FormatError{Msg: fmt.Sprintf(
			"missing sentinel at end of chunk 0x%X: found 0x%08X", top.id, sentinel)}
	}

	return nil
}

// ReadPointer reads a virtualized pointer id and delivers the value it
// stands for to assign: immediately if the id is already resolved, or later
// when ResolvePointer is called for it. A zero id delivers nil immediately.
func (s *LoadStream) ReadPointer(assign func(interface{})) error {
	id, err := s.ReadUint64()

	if err != nil {
		return err
	}

	if id == 0 {
		assign(nil)
		return nil
	}

	if v, ok := s.resolved[id]; ok {
		assign(v)
		return nil
	}

	s.backpatch[id] = append(s.backpatch[id], assign)
	return nil
}

// ResolvePointer binds a pointer id to its final value and satisfies every
// pending assignment slot for it. Each id may be resolved exactly once.
func (s *LoadStream) ResolvePointer(id uint64, v interface{}) {
	d.PanicIfTrue(id == 0)

	if _, ok := s.resolved[id]; ok {
		d.Panic("pointer id %d resolved twice", id)
	}

	s.resolved[id] = v

	for _, assign := range s.backpatch[id] {
		assign(v)
	}

	delete(s.backpatch, id)
}

// Close finishes the stream. Unresolved pointer backpatches are a
// FormatError.
func (s *LoadStream) Close() error {
	if len(s.backpatch) > 0 {
		return FormatError{Msg: fmt.Sprintf(
			"stream contains %d pointer ids that were never resolved", len(s.backpatch))}
	}

	return nil
}
