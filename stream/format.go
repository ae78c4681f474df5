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

// Package stream implements the primitive binary codec: a chunked,
// versioned, big-endian wire format with pointer virtualization and
// backpatching. SaveStream writes it, LoadStream reads it back with
// forward-compatible skipping of unknown trailing chunk content.
package stream

const (
	// Magic1 and Magic2 identify the file format. They are the first two
	// 32-bit words of every file.
	Magic1 = uint32(0x0FACC5AB)
	Magic2 = uint32(0x0AFCCA5A)

	// ChunkSentinel terminates every chunk.
	ChunkSentinel = uint32(0x0FFFFFFF)

	// FormatVersion is the file format version written by SaveStream.
	FormatVersion = uint32(1)

	// MaxFormatVersion is the newest file format version LoadStream
	// understands. Files declaring a newer version are rejected with a
	// VersionError.
	MaxFormatVersion = uint32(1)

	// SinglePrecision and DoublePrecision are the legal values of the
	// header's floating-point width tag.
	SinglePrecision = uint32(4)
	DoublePrecision = uint32(8)
)

// AppVersion identifies the writing application's release.
type AppVersion struct {
	Major    uint32
	Minor    uint32
	Revision uint32
}
