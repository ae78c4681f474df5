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

package object

import (
	"github.com/refgraph/refgraph/stream"
)

// Flags control how a property field behaves under journaling, cloning and
// persistence. They are the single source of truth read by both the cloner
// and the serializer.
type Flags uint32

const (
	// NoUndo excludes changes to the field from the undo journal.
	NoUndo Flags = 1 << iota

	// WeakRef marks a reference that never causes its target to be cloned.
	// A weak reference is redirected to the clone of its target if one was
	// made in the same clone invocation, and aliases the source otherwise.
	WeakRef

	// Vector marks an ordered-list reference field.
	Vector

	// NeverCloneTarget aliases the referenced target when cloning.
	NeverCloneTarget

	// AlwaysClone duplicates the referenced target on every clone.
	AlwaysClone

	// AlwaysDeepCopy duplicates the referenced target and forces deep
	// cloning for everything reachable from it.
	AlwaysDeepCopy

	// Memorize includes the field's value when object defaults are stored
	// in the application settings.
	Memorize

	// AllowDuplicates permits the same target to appear more than once in
	// a vector reference field.
	AllowDuplicates
)

// Has reports whether all bits of other are set.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// FieldDescriptor is the reflection record for one property field of a
// class: its identity, flags, target type and accessors into the concrete
// struct. For a reference field exactly one of SingleRef and VectorRef is
// set; for a plain field the property accessors are set instead.
type FieldDescriptor struct {
	// Identifier names the field on the wire and for lookup. It must be
	// unique within the defining class's chain.
	Identifier string

	// DefiningClass is bound by NewType.
	DefiningClass *Type

	Flags Flags

	// TargetClass is the required base type of referenced targets. Nil for
	// plain fields.
	TargetClass *Type

	// SingleRef returns the field's slot in the owning struct.
	SingleRef func(owner Maker) *ReferenceField

	// VectorRef returns the field's list slot in the owning struct.
	VectorRef func(owner Maker) *VectorReferenceField

	// GetProperty and SetProperty access a plain field's value.
	GetProperty func(owner Maker) interface{}
	SetProperty func(owner Maker, v interface{})

	// SaveProperty and LoadProperty persist a plain field. A plain field
	// without them is runtime-only and never serialized.
	SaveProperty func(owner Maker, s *stream.SaveStream) error
	LoadProperty func(owner Maker, s *stream.LoadStream) error
}

// IsReferenceField reports whether the field holds references to targets.
func (fd *FieldDescriptor) IsReferenceField() bool {
	return fd.SingleRef != nil || fd.VectorRef != nil
}

// IsVector reports whether the field is an ordered-list reference field.
func (fd *FieldDescriptor) IsVector() bool {
	return fd.VectorRef != nil
}
