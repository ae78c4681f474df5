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

package objstream

import (
	"io"

	"github.com/pkg/errors"

	"github.com/refgraph/refgraph/object"
	"github.com/refgraph/refgraph/stream"
)

// ObjectSaveStream writes an object graph to the underlying SaveStream.
// SaveObject records an object id at the call site and enqueues the object;
// the payloads, class table, object table and footer are written on Close.
type ObjectSaveStream struct {
	*stream.SaveStream

	// objects is the breadth-first discovery worklist; an object's id is
	// its position plus one, id 0 meaning nil.
	objects []object.Target
	ids     map[object.Target]uint32

	classes  []*object.Type
	classIdx map[*object.Type]int

	closed bool
}

// NewObjectSaveStream creates a graph writer on w and writes the file
// header.
func NewObjectSaveStream(w io.WriteSeeker, opts ...stream.SaveOption) (*ObjectSaveStream, error) {
	ss, err := stream.NewSaveStream(w, opts...)

	if err != nil {
		return nil, err
	}

	return &ObjectSaveStream{
		SaveStream: ss,
		ids:        map[object.Target]uint32{},
		classIdx:   map[*object.Type]int{},
	}, nil
}

// SaveObject writes target's object id at the current position, minting the
// id and scheduling the object's payload if it has not been seen before.
// A nil target writes id 0.
func (s *ObjectSaveStream) SaveObject(target object.Target) error {
	id, err := s.objectID(target)

	if err != nil {
		return err
	}

	return s.WriteUint32(id)
}

func (s *ObjectSaveStream) objectID(target object.Target) (uint32, error) {
	if target == nil {
		return 0, nil
	}

	if id, ok := s.ids[target]; ok {
		return id, nil
	}

	t := target.ObjectType()

	if !t.IsSerializable() {
		return 0, errors.Errorf("cannot save an instance of non-serializable class %q", t.Name())
	}

	if _, ok := s.classIdx[t]; !ok {
		s.classIdx[t] = len(s.classes)
		s.classes = append(s.classes, t)
	}

	s.objects = append(s.objects, target)
	id := uint32(len(s.objects))
	s.ids[target] = id
	return id, nil
}

// Close drains the worklist, then writes the class table, the object table
// and the footer, and finishes the underlying stream.
func (s *ObjectSaveStream) Close() error {
	if s.closed {
		return nil
	}

	offsets := make([]int64, 0, len(s.objects))

	// Payload writes may discover further objects and grow the worklist.
	for i := 0; i < len(s.objects); i++ {
		offsets = append(offsets, s.Position())

		if err := s.saveObjectPayload(s.objects[i]); err != nil {
			return errors.Wrapf(err, "failed to save object of class %q",
				s.objects[i].ObjectType().Name())
		}
	}

	classTableOffset := s.Position()

	if err := s.saveClassTable(); err != nil {
		return err
	}

	objTableOffset := s.Position()

	if err := s.saveObjectTable(offsets); err != nil {
		return err
	}

	err := s.WriteUint64(uint64(classTableOffset))

	if err == nil {
		err = s.WriteUint32(uint32(len(s.classes)))
	}

	if err == nil {
		err = s.WriteUint64(uint64(objTableOffset))
	}

	if err == nil {
		err = s.WriteUint32(uint32(len(s.objects)))
	}

	if err != nil {
		return err
	}

	s.closed = true
	return s.SaveStream.Close()
}

func (s *ObjectSaveStream) saveObjectPayload(target object.Target) error {
	if err := s.BeginChunk(ChunkObject); err != nil {
		return err
	}

	for _, fd := range serializedFields(target.ObjectType()) {
		if err := s.saveField(target, fd); err != nil {
			return errors.Wrapf(err, "field %q", fd.Identifier)
		}
	}

	return s.EndChunk()
}

func (s *ObjectSaveStream) saveField(target object.Target, fd *object.FieldDescriptor) error {
	if !fd.IsReferenceField() {
		if err := s.BeginChunk(ChunkPropertyField); err != nil {
			return err
		}

		if err := fd.SaveProperty(target, s.SaveStream); err != nil {
			return err
		}

		return s.EndChunk()
	}

	if fd.TargetClass != nil && !fd.TargetClass.IsSerializable() {
		if err := s.BeginChunk(ChunkRefFieldPlaceholder); err != nil {
			return err
		}

		return s.EndChunk()
	}

	if err := s.BeginChunk(ChunkRefField); err != nil {
		return err
	}

	if fd.IsVector() {
		targets := fd.VectorRef(target).Targets()

		if err := s.WriteInt32(int32(len(targets))); err != nil {
			return err
		}

		for _, t := range targets {
			if err := s.SaveObject(t); err != nil {
				return err
			}
		}
	} else if err := s.SaveObject(fd.SingleRef(target).Get()); err != nil {
		return err
	}

	return s.EndChunk()
}

func (s *ObjectSaveStream) saveClassTable() error {
	if err := s.BeginChunk(ChunkClassTable); err != nil {
		return err
	}

	for _, t := range s.classes {
		if err := s.saveClassEntry(t); err != nil {
			return err
		}
	}

	return s.EndChunk()
}

func (s *ObjectSaveStream) saveClassEntry(t *object.Type) error {
	if err := s.BeginChunk(ChunkClassRTTI); err != nil {
		return err
	}

	if err := s.WriteString(t.Name()); err != nil {
		return err
	}

	if err := s.WriteString(t.PluginID()); err != nil {
		return err
	}

	if err := s.EndChunk(); err != nil {
		return err
	}

	if err := s.BeginChunk(ChunkFieldList); err != nil {
		return err
	}

	for _, fd := range serializedFields(t) {
		if err := s.saveFieldEntry(fd); err != nil {
			return err
		}
	}

	if err := s.BeginChunk(ChunkFieldListEnd); err != nil {
		return err
	}

	if err := s.EndChunk(); err != nil {
		return err
	}

	return s.EndChunk()
}

func (s *ObjectSaveStream) saveFieldEntry(fd *object.FieldDescriptor) error {
	if err := s.BeginChunk(ChunkFieldEntry); err != nil {
		return err
	}

	if err := s.WriteString(fd.Identifier); err != nil {
		return err
	}

	definingClass := ""

	if fd.DefiningClass != nil {
		definingClass = fd.DefiningClass.Name()
	}

	if err := s.WriteString(definingClass); err != nil {
		return err
	}

	// The reader correlates shape from the flags, so vector-ness must be
	// present even if the descriptor relies on the accessor alone.
	flags := fd.Flags

	if fd.IsVector() {
		flags |= object.Vector
	}

	if err := s.WriteInt32(int32(flags)); err != nil {
		return err
	}

	if err := s.WriteBool(fd.IsReferenceField()); err != nil {
		return err
	}

	if fd.IsReferenceField() {
		targetClass := ""

		if fd.TargetClass != nil {
			targetClass = fd.TargetClass.Name()
		}

		if err := s.WriteString(targetClass); err != nil {
			return err
		}
	}

	return s.EndChunk()
}

func (s *ObjectSaveStream) saveObjectTable(offsets []int64) error {
	if err := s.BeginChunk(ChunkObjectTable); err != nil {
		return err
	}

	for i, target := range s.objects {
		if err := s.WriteUint32(uint32(s.classIdx[target.ObjectType()])); err != nil {
			return err
		}

		if err := s.WriteUint64(uint64(offsets[i])); err != nil {
			return err
		}
	}

	return s.EndChunk()
}

// serializedFields returns the fields of t that appear in the file:
// reference fields always, plain properties only when they carry save and
// load accessors.
func serializedFields(t *object.Type) []*object.FieldDescriptor {
	var fields []*object.FieldDescriptor

	for _, fd := range t.AllFields() {
		if fd.IsReferenceField() || (fd.SaveProperty != nil && fd.LoadProperty != nil) {
			fields = append(fields, fd)
		}
	}

	return fields
}
