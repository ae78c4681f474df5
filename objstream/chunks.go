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

// Package objstream persists whole object graphs, cycles included, on top
// of the stream codec. Object payloads are written first in breadth-first
// discovery order; the class table, object table and a fixed-size footer
// follow, so a loader seeks straight to the end, instantiates every object
// unpopulated, and then fills in fields with all identities already known.
package objstream

import "fmt"

// Chunk ids of the graph file layout.
const (
	// ChunkObject wraps one object's field payload.
	ChunkObject = uint32(0x01)

	// ChunkRefField wraps a serialized reference field inside an object
	// payload: a u32 object id for a single slot, or an i32 count followed
	// by that many ids for a vector.
	ChunkRefField = uint32(0x02)

	// ChunkRefFieldPlaceholder stands in for a reference field whose
	// target class is not serializable. It is always empty.
	ChunkRefFieldPlaceholder = uint32(0x03)

	// ChunkPropertyField wraps a plain property's payload.
	ChunkPropertyField = uint32(0x04)

	// ChunkClassTable wraps the table of classes used in the file.
	ChunkClassTable = uint32(0x200)

	// ChunkClassRTTI wraps one class's name and defining plugin id.
	ChunkClassRTTI = uint32(0x201)

	// ChunkFieldList wraps the descriptor list of the fields a class
	// actually serialized, as ChunkFieldEntry chunks terminated by an
	// empty ChunkFieldListEnd chunk.
	ChunkFieldList = uint32(0x202)

	ChunkFieldEntry   = uint32(0x01)
	ChunkFieldListEnd = uint32(0x00)

	// ChunkObjectTable wraps the per-instance records: a u32 class table
	// index and a u64 payload offset each.
	ChunkObjectTable = uint32(0x300)
)

// SchemaError reports that a field stored in the file conflicts in shape
// with the running program's descriptor of the same name: reference versus
// plain, single versus vector, or incompatible target classes.
type SchemaError struct {
	Class string
	Field string
	Msg   string
}

func (e SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema conflict in class %s: %s", e.Class, e.Msg)
	}

	return fmt.Sprintf("schema conflict in field %s of class %s: %s", e.Field, e.Class, e.Msg)
}
