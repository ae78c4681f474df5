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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamFile(t *testing.T) *os.File {
	f, err := os.Create(filepath.Join(t.TempDir(), "stream.bin"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestHeaderRoundTrip(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f,
		WithAppName("graphtool"),
		WithAppVersion(AppVersion{Major: 3, Minor: 1, Revision: 7}))
	require.NoError(t, err)
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)

	assert.Equal(t, "graphtool", ls.ApplicationName())
	assert.Equal(t, AppVersion{Major: 3, Minor: 1, Revision: 7}, ls.ApplicationVersion())
	assert.Equal(t, FormatVersion, ls.FormatVersion())
	assert.Equal(t, DoublePrecision, ls.FloatPrecision())
	require.NoError(t, ls.Close())
}

func TestPrimitiveRoundTrip(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x42))
	require.NoError(t, ss.WriteInt32(-12345))
	require.NoError(t, ss.WriteUint64(1<<40))
	require.NoError(t, ss.WriteBool(true))
	require.NoError(t, ss.WriteSize(999))
	require.NoError(t, ss.WriteEnum(-3))
	require.NoError(t, ss.WriteFloat(3.25))
	require.NoError(t, ss.WriteString("héllo"))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(0x42))

	i32, err := ls.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-12345), i32)

	u64, err := ls.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)

	b, err := ls.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	size, err := ls.ReadSize()
	require.NoError(t, err)
	assert.Equal(t, 999, size)

	enum, err := ls.ReadEnum()
	require.NoError(t, err)
	assert.Equal(t, int32(-3), enum)

	fl, err := ls.ReadFloat()
	require.NoError(t, err)
	assert.Equal(t, 3.25, fl)

	str, err := ls.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "héllo", str)

	require.NoError(t, ls.CloseChunk())
	require.NoError(t, ls.Close())
}

func TestSinglePrecisionTruncates(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f, WithPrecision(SinglePrecision))
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(1))
	require.NoError(t, ss.WriteFloat(1.5))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	assert.Equal(t, SinglePrecision, ls.FloatPrecision())

	require.NoError(t, ls.ExpectChunk(1))
	v, err := ls.ReadFloat()
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
	require.NoError(t, ls.CloseChunk())
}

func TestChunkOpenCloseScenario(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x10))
	require.NoError(t, ss.WriteInt32(7))
	require.NoError(t, ss.WriteInt32(9))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(0x10))

	a, err := ls.ReadInt32()
	require.NoError(t, err)
	b, err := ls.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(7), a)
	assert.Equal(t, int32(9), b)

	require.NoError(t, ls.CloseChunk())

	// No chunk is open anymore; a second close must fail.
	err = ls.CloseChunk()
	require.Error(t, err)
	assert.IsType(t, FormatError{}, err)
}

func TestReadPastChunkEndFails(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x10))
	require.NoError(t, ss.WriteInt32(7))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(0x10))

	_, err = ls.ReadInt32()
	require.NoError(t, err)

	_, err = ls.ReadInt32()
	require.Error(t, err)
	assert.IsType(t, FormatError{}, err)
}

func TestCloseChunkSkipsUnreadTrailingFields(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x10))
	require.NoError(t, ss.WriteInt32(1))
	require.NoError(t, ss.WriteInt32(2))
	require.NoError(t, ss.WriteInt32(3))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.BeginChunk(0x11))
	require.NoError(t, ss.WriteInt32(4))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(0x10))

	// An older reader knows only the first field; the rest is skipped.
	v, err := ls.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
	require.NoError(t, ls.CloseChunk())

	require.NoError(t, ls.ExpectChunk(0x11))
	v, err = ls.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(4), v)
	require.NoError(t, ls.CloseChunk())
}

func TestNestedChunks(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x100))
	require.NoError(t, ss.BeginChunk(0x101))
	require.NoError(t, ss.WriteInt32(1))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.BeginChunk(0x102))
	require.NoError(t, ss.WriteInt32(2))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(0x100))
	require.NoError(t, ls.ExpectChunk(0x101))
	require.NoError(t, ls.CloseChunk())
	require.NoError(t, ls.ExpectChunk(0x102))

	v, err := ls.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)

	require.NoError(t, ls.CloseChunk())
	require.NoError(t, ls.CloseChunk())
}

func TestExpectChunkMismatchNamesBothIds(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x20))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)

	err = ls.ExpectChunk(0x30)
	require.Error(t, err)
	assert.IsType(t, FormatError{}, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", 0x30))
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", 0x20))
	assert.Contains(t, err.Error(), "0x30")
	assert.Contains(t, err.Error(), "0x20")
}

func TestExpectChunkRangeReturnsVersion(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(0x103))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.BeginChunk(0x200))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)

	version, err := ls.ExpectChunkRange(0x100, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), version)
	require.NoError(t, ls.CloseChunk())

	_, err = ls.ExpectChunkRange(0x100, 5)
	require.Error(t, err)
	assert.IsType(t, FormatError{}, err)
}

func TestBadMagicIsFormatError(t *testing.T) {
	f := newStreamFile(t)
	_, err := f.Write(make([]byte, 64))
	require.NoError(t, err)

	_, err = NewLoadStream(f)
	require.Error(t, err)
	assert.IsType(t, FormatError{}, err)
}

func TestNewerFormatVersionIsVersionError(t *testing.T) {
	f := newStreamFile(t)

	for _, v := range []uint32{Magic1, Magic2, MaxFormatVersion + 1, DoublePrecision} {
		require.NoError(t, binary.Write(f, binary.BigEndian, v))
	}

	_, err := NewLoadStream(f)
	require.Error(t, err)
	require.IsType(t, VersionError{}, err)
	assert.Equal(t, MaxFormatVersion+1, err.(VersionError).FileVersion)
}

func TestPointerBackpatchResolvesEverySlotOnce(t *testing.T) {
	f := newStreamFile(t)

	type thing struct{ name string }
	p1 := &thing{name: "one"}
	p2 := &thing{name: "two"}

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(1))
	require.NoError(t, ss.WritePointer(p1))
	require.NoError(t, ss.WritePointer(p2))
	require.NoError(t, ss.WritePointer(p1))
	require.NoError(t, ss.WritePointer(nil))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	id1, seen := ss.PointerID(p1)
	assert.True(t, seen)
	assert.Equal(t, uint64(1), id1)

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(1))

	var slots [4]interface{}
	writes := [4]int{}

	for i := 0; i < 4; i++ {
		i := i
		require.NoError(t, ls.ReadPointer(func(v interface{}) {
			slots[i] = v
			writes[i]++
		}))
	}

	// The nil slot was satisfied immediately.
	assert.Equal(t, 1, writes[3])
	assert.Nil(t, slots[3])
	assert.Equal(t, 0, writes[0])

	// Resolution order does not matter.
	r2 := &thing{name: "two again"}
	r1 := &thing{name: "one again"}
	ls.ResolvePointer(2, r2)
	ls.ResolvePointer(1, r1)

	assert.Equal(t, [4]int{1, 1, 1, 1}, writes)
	assert.Equal(t, interface{}(r1), slots[0])
	assert.Equal(t, interface{}(r2), slots[1])
	assert.Equal(t, interface{}(r1), slots[2])

	// A pointer read after resolution is satisfied immediately.
	require.NoError(t, ls.CloseChunk())
	require.NoError(t, ls.Close())

	assert.Panics(t, func() { ls.ResolvePointer(1, r1) })
}

func TestUnresolvedBackpatchAtCloseIsFormatError(t *testing.T) {
	f := newStreamFile(t)

	p := &struct{ x int }{}

	ss, err := NewSaveStream(f)
	require.NoError(t, err)
	require.NoError(t, ss.BeginChunk(1))
	require.NoError(t, ss.WritePointer(p))
	require.NoError(t, ss.EndChunk())
	require.NoError(t, ss.Close())

	ls, err := NewLoadStream(f)
	require.NoError(t, err)
	require.NoError(t, ls.ExpectChunk(1))
	require.NoError(t, ls.ReadPointer(func(interface{}) {}))
	require.NoError(t, ls.CloseChunk())

	err = ls.Close()
	require.Error(t, err)
	assert.IsType(t, FormatError{}, err)
}

func TestUnbalancedChunksAtSaveAreFatal(t *testing.T) {
	f := newStreamFile(t)

	ss, err := NewSaveStream(f)
	require.NoError(t, err)

	assert.Panics(t, func() { _ = ss.EndChunk() })

	require.NoError(t, ss.BeginChunk(1))
	assert.Panics(t, func() { _ = ss.Close() })
}
