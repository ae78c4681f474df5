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
	"github.com/refgraph/refgraph/d"
)

// ReferenceField is a zero-or-one target slot embedded in the owning
// struct. All mutation goes through Set so the target's dependents list,
// the undo journal and change notification stay consistent.
type ReferenceField struct {
	target Target
}

// Get returns the referenced target, or nil.
func (f *ReferenceField) Get() Target {
	return f.target
}

// Set assigns a new target to the slot. Unless the field carries NoUndo or
// recording is suspended, the swap is journaled. Assigning the current
// target is a no-op.
func (f *ReferenceField) Set(owner Maker, fd *FieldDescriptor, target Target) {
	m := owner.makerState()
	m.checkInitialized()
	checkTargetType(fd, target)

	if f.target == target {
		return
	}

	stack := m.session.Undo()

	if fd.Flags.Has(NoUndo) || stack.IsSuspended() {
		f.swap(owner, fd, target)
		return
	}

	op := &setReferenceOperation{owner: owner, fd: fd, field: f, target: f.target}
	f.swap(owner, fd, target)
	stack.Push(op)
}

// swap replaces the slot's value, maintains both targets' dependents lists,
// invokes the replace hook, and emits ReferenceChanged and Changed events.
// It returns the displaced target.
func (f *ReferenceField) swap(owner Maker, fd *FieldDescriptor, target Target) Target {
	m := owner.makerState()
	old := f.target
	f.target = target

	// The dependents list mirrors live reference slots exactly: the holder
	// stays a dependent of the old target only if another field still
	// points at it.
	if old != nil && !m.HasReferenceTo(old) {
		old.targetState().removeDependent(owner)
	}

	if target != nil {
		target.targetState().addDependent(owner)
	}

	if h, ok := m.self.(ReferenceReplacedHandler); ok {
		h.OnReferenceReplaced(fd, old, target)
	}

	if t, ok := m.self.(Target); ok {
		ts := t.targetState()
		ts.NotifyDependents(&ReferenceEvent{
			Type: ReferenceChanged, Source: t, Field: fd,
			OldTarget: old, NewTarget: target, Index: -1,
		})
		ts.NotifyChanged()
	}

	return old
}

func checkTargetType(fd *FieldDescriptor, target Target) {
	if target == nil || fd.TargetClass == nil {
		return
	}

	if !target.ObjectType().IsDerivedFrom(fd.TargetClass) {
		d.Panic("cannot store an instance of class %s in reference field %q expecting class %s",
			target.ObjectType().Name(), fd.Identifier, fd.TargetClass.Name())
	}
}

type setReferenceOperation struct {
	owner  Maker
	fd     *FieldDescriptor
	field  *ReferenceField
	target Target
}

// invert swaps the journaled target back in, keeping the displaced one for
// the opposite direction.
func (op *setReferenceOperation) invert() {
	op.target = op.field.swap(op.owner, op.fd, op.target)
}

func (op *setReferenceOperation) Undo() { op.invert() }
func (op *setReferenceOperation) Redo() { op.invert() }

func (op *setReferenceOperation) DisplayName() string {
	return "Change reference " + op.fd.Identifier
}

func (op *setReferenceOperation) IsSignificant() bool {
	return true
}

// VectorReferenceField is an ordered list of target slots embedded in the
// owning struct. Duplicate membership is rejected unless the field carries
// AllowDuplicates.
type VectorReferenceField struct {
	targets []Target
}

// Len returns the number of referenced targets.
func (f *VectorReferenceField) Len() int {
	return len(f.targets)
}

// Get returns the target at index.
func (f *VectorReferenceField) Get(index int) Target {
	return f.targets[index]
}

// Targets returns a snapshot of the referenced targets.
func (f *VectorReferenceField) Targets() []Target {
	return append([]Target{}, f.targets...)
}

// IndexOf returns the first position of target, or -1.
func (f *VectorReferenceField) IndexOf(target Target) int {
	for i, t := range f.targets {
		if t == target {
			return i
		}
	}

	return -1
}

// Contains reports whether target is in the list.
func (f *VectorReferenceField) Contains(target Target) bool {
	return f.IndexOf(target) >= 0
}

// Insert adds a target at the given position. Nil targets are not allowed
// in vector fields.
func (f *VectorReferenceField) Insert(owner Maker, fd *FieldDescriptor, index int, target Target) {
	m := owner.makerState()
	m.checkInitialized()
	d.PanicIfTrue(target == nil)
	d.PanicIfTrue(index < 0 || index > len(f.targets))
	checkTargetType(fd, target)

	if !fd.Flags.Has(AllowDuplicates) && f.Contains(target) {
		d.Panic("vector reference field %q does not allow duplicate entries", fd.Identifier)
	}

	stack := m.session.Undo()

	if fd.Flags.Has(NoUndo) || stack.IsSuspended() {
		f.insert(owner, fd, index, target)
		return
	}

	f.insert(owner, fd, index, target)
	stack.Push(&insertReferenceOperation{owner: owner, fd: fd, field: f, target: target, index: index})
}

// Append adds a target at the end of the list.
func (f *VectorReferenceField) Append(owner Maker, fd *FieldDescriptor, target Target) {
	f.Insert(owner, fd, len(f.targets), target)
}

// Remove deletes the target at the given position.
func (f *VectorReferenceField) Remove(owner Maker, fd *FieldDescriptor, index int) {
	m := owner.makerState()
	m.checkInitialized()
	d.PanicIfTrue(index < 0 || index >= len(f.targets))

	stack := m.session.Undo()

	if fd.Flags.Has(NoUndo) || stack.IsSuspended() {
		f.remove(owner, fd, index)
		return
	}

	removed := f.remove(owner, fd, index)
	stack.Push(&removeReferenceOperation{owner: owner, fd: fd, field: f, target: removed, index: index})
}

// Clear removes all targets, back to front.
func (f *VectorReferenceField) Clear(owner Maker, fd *FieldDescriptor) {
	for len(f.targets) > 0 {
		f.Remove(owner, fd, len(f.targets)-1)
	}
}

func (f *VectorReferenceField) insert(owner Maker, fd *FieldDescriptor, index int, target Target) {
	m := owner.makerState()

	f.targets = append(f.targets, nil)
	copy(f.targets[index+1:], f.targets[index:])
	f.targets[index] = target

	target.targetState().addDependent(owner)

	if h, ok := m.self.(ReferenceInsertedHandler); ok {
		h.OnReferenceInserted(fd, target, index)
	}

	if t, ok := m.self.(Target); ok {
		ts := t.targetState()
		ts.NotifyDependents(&ReferenceEvent{
			Type: ReferenceAdded, Source: t, Field: fd, NewTarget: target, Index: index,
		})
		ts.Notify(SubobjectListChanged)
		ts.NotifyChanged()
	}
}

func (f *VectorReferenceField) remove(owner Maker, fd *FieldDescriptor, index int) Target {
	m := owner.makerState()

	target := f.targets[index]
	f.targets = append(f.targets[:index], f.targets[index+1:]...)

	if !m.HasReferenceTo(target) {
		target.targetState().removeDependent(owner)
	}

	if h, ok := m.self.(ReferenceRemovedHandler); ok {
		h.OnReferenceRemoved(fd, target, index)
	}

	if t, ok := m.self.(Target); ok {
		ts := t.targetState()
		ts.NotifyDependents(&ReferenceEvent{
			Type: ReferenceRemoved, Source: t, Field: fd, OldTarget: target, Index: index,
		})
		ts.Notify(SubobjectListChanged)
		ts.NotifyChanged()
	}

	return target
}

type insertReferenceOperation struct {
	owner  Maker
	fd     *FieldDescriptor
	field  *VectorReferenceField
	target Target
	index  int
}

func (op *insertReferenceOperation) Undo() {
	op.field.remove(op.owner, op.fd, op.index)
}

func (op *insertReferenceOperation) Redo() {
	op.field.insert(op.owner, op.fd, op.index, op.target)
}

func (op *insertReferenceOperation) DisplayName() string {
	return "Insert reference " + op.fd.Identifier
}

func (op *insertReferenceOperation) IsSignificant() bool {
	return true
}

type removeReferenceOperation struct {
	owner  Maker
	fd     *FieldDescriptor
	field  *VectorReferenceField
	target Target
	index  int
}

func (op *removeReferenceOperation) Undo() {
	op.field.insert(op.owner, op.fd, op.index, op.target)
}

func (op *removeReferenceOperation) Redo() {
	op.field.remove(op.owner, op.fd, op.index)
}

func (op *removeReferenceOperation) DisplayName() string {
	return "Remove reference " + op.fd.Identifier
}

func (op *removeReferenceOperation) IsSignificant() bool {
	return true
}
