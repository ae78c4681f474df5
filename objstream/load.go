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
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/refgraph/refgraph/d"
	"github.com/refgraph/refgraph/object"
	"github.com/refgraph/refgraph/stream"
)

// footerSize is the fixed length of the trailing index: two (offset u64,
// count u32) entries.
const footerSize = 2 * (8 + 4)

// storedField is one field record of the class table, correlated against
// the running program's descriptor of the same identifier. A nil descriptor
// means the field was dropped from the program and its stored payload is
// skipped.
type storedField struct {
	identifier      string
	definingClass   string
	flags           object.Flags
	isRef           bool
	targetClassName string

	fd          *object.FieldDescriptor
	targetClass *object.Type
}

type storedClass struct {
	typ    *object.Type
	fields []*storedField
}

type storedObject struct {
	class  *storedClass
	offset int64
	obj    object.Target
}

// ObjectLoadStream reads back an object graph written by ObjectSaveStream.
// The constructor consumes the footer, class table and object table; a
// single LoadRoot call then instantiates and populates the whole graph.
type ObjectLoadStream struct {
	*stream.LoadStream

	session *object.Session

	bodyStart int64
	classes   []*storedClass
	objects   []*storedObject

	loaded bool
}

// NewObjectLoadStream creates a graph reader on r bound to the given
// session's registry, plugin loader and undo stack.
func NewObjectLoadStream(r io.ReadSeeker, session *object.Session, opts ...stream.LoadOption) (*ObjectLoadStream, error) {
	ls, err := stream.NewLoadStream(r, opts...)

	if err != nil {
		return nil, err
	}

	s := &ObjectLoadStream{
		LoadStream: ls,
		session:    session,
		bodyStart:  ls.Position(),
	}

	if err := s.readTables(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *ObjectLoadStream) readTables() error {
	if err := s.SetPosition(s.Size() - footerSize); err != nil {
		return err
	}

	classTableOffset, err := s.ReadUint64()

	if err != nil {
		return err
	}

	classCount, err := s.ReadUint32()

	if err != nil {
		return err
	}

	objTableOffset, err := s.ReadUint64()

	if err != nil {
		return err
	}

	objCount, err := s.ReadUint32()

	if err != nil {
		return err
	}

	if err := s.readClassTable(int64(classTableOffset), int(classCount)); err != nil {
		return err
	}

	return s.readObjectTable(int64(objTableOffset), int(objCount))
}

func (s *ObjectLoadStream) readClassTable(offset int64, count int) error {
	if err := s.SetPosition(offset); err != nil {
		return err
	}

	if err := s.ExpectChunk(ChunkClassTable); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		class, err := s.readClassEntry()

		if err != nil {
			return err
		}

		s.classes = append(s.classes, class)
	}

	return s.CloseChunk()
}

func (s *ObjectLoadStream) readClassEntry() (*storedClass, error) {
	if err := s.ExpectChunk(ChunkClassRTTI); err != nil {
		return nil, err
	}

	name, err := s.ReadString()

	if err != nil {
		return nil, err
	}

	pluginID, err := s.ReadString()

	if err != nil {
		return nil, err
	}

	if err := s.CloseChunk(); err != nil {
		return nil, err
	}

	if s.session.Plugins() != nil {
		if err := s.session.Plugins().LoadPlugin(pluginID); err != nil {
			return nil, errors.Wrapf(err, "failed to load plugin %q required by class %q", pluginID, name)
		}
	}

	typ := s.session.Registry().Lookup(name)

	if typ == nil {
		return nil, object.InstantiationError{TypeName: name, Msg: "the class is not registered in this program"}
	}

	if !typ.IsSerializable() {
		return nil, object.InstantiationError{TypeName: name, Msg: "the class is not serializable"}
	}

	class := &storedClass{typ: typ}

	if err := s.ExpectChunk(ChunkFieldList); err != nil {
		return nil, err
	}

	for {
		id, err := s.OpenChunk()

		if err != nil {
			return nil, err
		}

		if id == ChunkFieldListEnd {
			if err := s.CloseChunk(); err != nil {
				return nil, err
			}
			break
		}

		if id != ChunkFieldEntry {
			return nil, stream.FormatError{Msg: fmt.Sprintf(
				"unexpected chunk 0x%X in field list of class %q", id, name)}
		}

		field, err := s.readFieldEntry(class)

		if err != nil {
			return nil, err
		}

		if err := s.CloseChunk(); err != nil {
			return nil, err
		}

		class.fields = append(class.fields, field)
	}

	if err := s.CloseChunk(); err != nil {
		return nil, err
	}

	return class, nil
}

func (s *ObjectLoadStream) readFieldEntry(class *storedClass) (*storedField, error) {
	field := &storedField{}

	var err error

	if field.identifier, err = s.ReadString(); err != nil {
		return nil, err
	}

	if field.definingClass, err = s.ReadString(); err != nil {
		return nil, err
	}

	flags, err := s.ReadInt32()

	if err != nil {
		return nil, err
	}

	field.flags = object.Flags(flags)

	if field.isRef, err = s.ReadBool(); err != nil {
		return nil, err
	}

	if field.isRef {
		if field.targetClassName, err = s.ReadString(); err != nil {
			return nil, err
		}

		field.targetClass = s.session.Registry().Lookup(field.targetClassName)
	}

	if err := s.correlate(class, field); err != nil {
		return nil, err
	}

	return field, nil
}

// correlate matches a stored field against the live descriptor of the same
// identifier. A missing descriptor is a forward-compatible skip; a shape
// conflict is a SchemaError.
func (s *ObjectLoadStream) correlate(class *storedClass, field *storedField) error {
	fd := class.typ.FindField(field.identifier)

	if fd == nil {
		return nil
	}

	if fd.IsReferenceField() != field.isRef {
		return SchemaError{
			Class: class.typ.Name(), Field: field.identifier,
			Msg: "the field changed between reference and plain property",
		}
	}

	if field.isRef {
		if fd.IsVector() != field.flags.Has(object.Vector) {
			return SchemaError{
				Class: class.typ.Name(), Field: field.identifier,
				Msg: "the field changed between single and vector reference",
			}
		}

		if field.targetClass != nil && fd.TargetClass != nil &&
			!field.targetClass.IsDerivedFrom(fd.TargetClass) &&
			!fd.TargetClass.IsDerivedFrom(field.targetClass) {
			return SchemaError{
				Class: class.typ.Name(), Field: field.identifier,
				Msg: fmt.Sprintf("stored target class %s is unrelated to expected class %s",
					field.targetClassName, fd.TargetClass.Name()),
			}
		}
	}

	field.fd = fd
	return nil
}

func (s *ObjectLoadStream) readObjectTable(offset int64, count int) error {
	if err := s.SetPosition(offset); err != nil {
		return err
	}

	if err := s.ExpectChunk(ChunkObjectTable); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		classIndex, err := s.ReadUint32()

		if err != nil {
			return err
		}

		if int(classIndex) >= len(s.classes) {
			return stream.FormatError{Msg: fmt.Sprintf(
				"object table entry %d names class index %d, but the file declares only %d classes",
				i, classIndex, len(s.classes))}
		}

		bodyOffset, err := s.ReadUint64()

		if err != nil {
			return err
		}

		s.objects = append(s.objects, &storedObject{
			class:  s.classes[classIndex],
			offset: int64(bodyOffset),
		})
	}

	return s.CloseChunk()
}

// ObjectCount returns the number of instances stored in the file.
func (s *ObjectLoadStream) ObjectCount() int {
	return len(s.objects)
}

// LoadRoot reads the root object id, instantiates every stored object
// unpopulated, populates all fields with undo recording suspended, runs the
// AfterLoad hooks, and returns the root. Any failure aborts the whole load;
// no partially loaded graph is ever returned.
func (s *ObjectLoadStream) LoadRoot() (object.Target, error) {
	d.PanicIfTrue(s.loaded)
	s.loaded = true

	if err := s.SetPosition(s.bodyStart); err != nil {
		return nil, err
	}

	rootID, err := s.ReadUint32()

	if err != nil {
		return nil, err
	}

	if rootID == 0 {
		return nil, nil
	}

	if int(rootID) > len(s.objects) {
		return nil, stream.FormatError{Msg: fmt.Sprintf(
			"root object id %d exceeds the file's object count %d", rootID, len(s.objects))}
	}

	// All identities must exist before any field is populated; forward
	// references and cycles then resolve without recursion.
	for _, entry := range s.objects {
		obj, err := s.session.NewTarget(entry.class.typ)

		if err != nil {
			return nil, err
		}

		entry.obj = obj
	}

	s.session.Undo().Suspend()
	err = s.populateAll()
	s.session.Undo().Resume()

	if err != nil {
		return nil, err
	}

	for _, entry := range s.objects {
		if h, ok := entry.obj.(object.AfterLoadHandler); ok {
			h.AfterLoad()
		}
	}

	return s.objects[rootID-1].obj, nil
}

func (s *ObjectLoadStream) populateAll() error {
	for _, entry := range s.objects {
		if err := s.populateObject(entry); err != nil {
			return errors.Wrapf(err, "failed to load object of class %q", entry.class.typ.Name())
		}
	}

	return nil
}

func (s *ObjectLoadStream) populateObject(entry *storedObject) error {
	if err := s.SetPosition(entry.offset); err != nil {
		return err
	}

	if err := s.ExpectChunk(ChunkObject); err != nil {
		return err
	}

	for _, field := range entry.class.fields {
		if err := s.loadField(entry.obj, field); err != nil {
			return errors.Wrapf(err, "field %q", field.identifier)
		}
	}

	return s.CloseChunk()
}

func (s *ObjectLoadStream) loadField(obj object.Target, field *storedField) error {
	id, err := s.OpenChunk()

	if err != nil {
		return err
	}

	if field.isRef {
		err = s.loadRefField(obj, field, id)
	} else {
		err = s.loadPropertyField(obj, field, id)
	}

	if err != nil {
		return err
	}

	return s.CloseChunk()
}

func (s *ObjectLoadStream) loadRefField(obj object.Target, field *storedField, chunkID uint32) error {
	switch chunkID {
	case ChunkRefFieldPlaceholder:
		return nil

	case ChunkRefField:
		// Dropped fields are consumed by the forward skip in CloseChunk.
		if field.fd == nil {
			return nil
		}

		if field.fd.IsVector() {
			count, err := s.ReadInt32()

			if err != nil {
				return err
			}

			vector := field.fd.VectorRef(obj)

			for i := int32(0); i < count; i++ {
				target, err := s.readObjectRef(field)

				if err != nil {
					return err
				}

				vector.Append(obj, field.fd, target)
			}

			return nil
		}

		target, err := s.readObjectRef(field)

		if err != nil {
			return err
		}

		field.fd.SingleRef(obj).Set(obj, field.fd, target)
		return nil

	default:
		return stream.FormatError{Msg: fmt.Sprintf(
			"unexpected chunk 0x%X for reference field %q", chunkID, field.identifier)}
	}
}

func (s *ObjectLoadStream) loadPropertyField(obj object.Target, field *storedField, chunkID uint32) error {
	if chunkID != ChunkPropertyField {
		return stream.FormatError{Msg: fmt.Sprintf(
			"unexpected chunk 0x%X for property field %q", chunkID, field.identifier)}
	}

	if field.fd == nil || field.fd.LoadProperty == nil {
		return nil
	}

	return field.fd.LoadProperty(obj, s.LoadStream)
}

// readObjectRef reads one stored object id and resolves it to its
// pre-instantiated object, verifying it satisfies the field's target class.
func (s *ObjectLoadStream) readObjectRef(field *storedField) (object.Target, error) {
	id, err := s.ReadUint32()

	if err != nil {
		return nil, err
	}

	if id == 0 {
		return nil, nil
	}

	if int(id) > len(s.objects) {
		return nil, stream.FormatError{Msg: fmt.Sprintf(
			"object id %d exceeds the file's object count %d", id, len(s.objects))}
	}

	target := s.objects[id-1].obj

	if field.fd.TargetClass != nil && !target.ObjectType().IsDerivedFrom(field.fd.TargetClass) {
		return nil, SchemaError{
			Class: field.definingClass, Field: field.identifier,
			Msg: fmt.Sprintf("stored object of class %s is not derived from expected class %s",
				target.ObjectType().Name(), field.fd.TargetClass.Name()),
		}
	}

	return target, nil
}

// LoadRootAs loads the graph and asserts the root's concrete type.
func LoadRootAs[T object.Target](s *ObjectLoadStream) (T, error) {
	var zero T

	root, err := s.LoadRoot()

	if err != nil {
		return zero, err
	}

	typed, ok := root.(T)

	if !ok {
		if root == nil {
			return zero, errors.New("the file contains no root object")
		}

		return zero, SchemaError{
			Class: root.ObjectType().Name(),
			Msg:   "the root object does not have the requested type",
		}
	}

	return typed, nil
}
