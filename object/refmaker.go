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

// Package object implements the reference-tracked object graph: a runtime
// type registry with field reflection, bidirectional notification-routed
// references between objects, journaled mutation, and identity-preserving
// sub-graph cloning.
//
// Objects are declared as structs embedding RefMaker (holders of
// references) or RefTarget (objects that can be referenced and notify their
// holders). Their reference and property fields are described by
// FieldDescriptors attached to a Type, which is registered with the
// session's Registry. All instances are created through Session.NewObject
// so they are bound to their session's undo stack and deferred queue.
package object

import (
	"github.com/refgraph/refgraph/d"
)

// Maker is an object holding references to targets. It is implemented by
// embedding RefMaker.
type Maker interface {
	makerState() *RefMaker

	// ObjectType returns the runtime type descriptor of the object.
	ObjectType() *Type

	// Session returns the session the object belongs to.
	Session() *Session
}

// Target is an object others may reference and that notifies its holders of
// changes. It is implemented by embedding RefTarget.
type Target interface {
	Maker
	targetState() *RefTarget

	// NotifyDependents broadcasts an event to every current dependent.
	NotifyDependents(event *ReferenceEvent)
}

// ReferenceEventHandler intercepts events arriving from referenced targets.
// direct is the target whose dependents list delivered the event, which may
// differ from event.Source when the event travelled across intermediate
// objects. Returning false stops further propagation to this object's own
// dependents.
type ReferenceEventHandler interface {
	OnReferenceEvent(direct Target, event *ReferenceEvent) bool
}

// ReferenceReplacedHandler is notified after a single reference field of the
// implementing object was assigned a different target.
type ReferenceReplacedHandler interface {
	OnReferenceReplaced(fd *FieldDescriptor, oldTarget, newTarget Target)
}

// ReferenceInsertedHandler is notified after a target was inserted into a
// vector reference field of the implementing object.
type ReferenceInsertedHandler interface {
	OnReferenceInserted(fd *FieldDescriptor, target Target, index int)
}

// ReferenceRemovedHandler is notified after a target was removed from a
// vector reference field of the implementing object.
type ReferenceRemovedHandler interface {
	OnReferenceRemoved(fd *FieldDescriptor, target Target, index int)
}

// TitleProvider supplies a human readable object title.
type TitleProvider interface {
	ObjectTitle() string
}

// AfterLoadHandler is invoked on every loaded object once the whole graph
// has been deserialized and all references stand.
type AfterLoadHandler interface {
	AfterLoad()
}

// RefMaker is the embeddable base state of every object that holds
// references. It records the object's concrete self, its type descriptor
// and its session.
type RefMaker struct {
	self    Maker
	typ     *Type
	session *Session
}

func (m *RefMaker) makerState() *RefMaker {
	return m
}

func (m *RefMaker) init(self Maker, t *Type, s *Session) {
	d.PanicIfFalse(m.self == nil)
	m.self = self
	m.typ = t
	m.session = s
}

func (m *RefMaker) checkInitialized() {
	if m.self == nil {
		d.Panic("object was not created through Session.NewObject")
	}
}

// ObjectType returns the runtime type descriptor of the object.
func (m *RefMaker) ObjectType() *Type {
	return m.typ
}

// Session returns the session the object belongs to.
func (m *RefMaker) Session() *Session {
	return m.session
}

// visitReferenceFields calls visit for every reference field of the
// object's type chain. Returning false stops the walk.
func (m *RefMaker) visitReferenceFields(visit func(fd *FieldDescriptor) bool) {
	for _, fd := range m.typ.AllFields() {
		if !fd.IsReferenceField() {
			continue
		}

		if !visit(fd) {
			return
		}
	}
}

// HasReferenceTo reports whether any reference field of this object
// currently points at target.
func (m *RefMaker) HasReferenceTo(target Target) bool {
	m.checkInitialized()
	found := false

	m.visitReferenceFields(func(fd *FieldDescriptor) bool {
		if fd.IsVector() {
			if fd.VectorRef(m.self).Contains(target) {
				found = true
			}
		} else if fd.SingleRef(m.self).Get() == target {
			found = true
		}

		return !found
	})

	return found
}

// ClearReferencesTo resets every reference field slot currently pointing at
// target.
func (m *RefMaker) ClearReferencesTo(target Target) {
	m.checkInitialized()

	m.visitReferenceFields(func(fd *FieldDescriptor) bool {
		if fd.IsVector() {
			vector := fd.VectorRef(m.self)
			for i := vector.IndexOf(target); i >= 0; i = vector.IndexOf(target) {
				vector.Remove(m.self, fd, i)
			}
		} else {
			single := fd.SingleRef(m.self)
			if single.Get() == target {
				single.Set(m.self, fd, nil)
			}
		}

		return true
	})
}

// ClearAllReferences resets every reference field of the object.
func (m *RefMaker) ClearAllReferences() {
	m.checkInitialized()

	m.visitReferenceFields(func(fd *FieldDescriptor) bool {
		if fd.IsVector() {
			fd.VectorRef(m.self).Clear(m.self, fd)
		} else {
			single := fd.SingleRef(m.self)
			if single.Get() != nil {
				single.Set(m.self, fd, nil)
			}
		}

		return true
	})
}

// ReplaceReferencesTo rewires every field slot pointing at oldTarget to
// point at newTarget instead.
func (m *RefMaker) ReplaceReferencesTo(oldTarget, newTarget Target) {
	m.checkInitialized()

	m.visitReferenceFields(func(fd *FieldDescriptor) bool {
		if fd.IsVector() {
			vector := fd.VectorRef(m.self)
			for i := 0; i < vector.Len(); i++ {
				if vector.Get(i) == oldTarget {
					vector.Remove(m.self, fd, i)
					vector.Insert(m.self, fd, i, newTarget)
				}
			}
		} else {
			single := fd.SingleRef(m.self)
			if single.Get() == oldTarget {
				single.Set(m.self, fd, newTarget)
			}
		}

		return true
	})
}

// AllDependencies returns every target reachable from this object through
// reference fields, direct and transitive. Each target appears once even
// across cycles.
func (m *RefMaker) AllDependencies() []Target {
	m.checkInitialized()

	visited := map[Target]bool{}
	var result []Target

	var walk func(mk *RefMaker)
	walk = func(mk *RefMaker) {
		mk.visitReferenceFields(func(fd *FieldDescriptor) bool {
			collect := func(t Target) {
				if t == nil || visited[t] {
					return
				}

				visited[t] = true
				result = append(result, t)
				walk(t.makerState())
			}

			if fd.IsVector() {
				for _, t := range fd.VectorRef(mk.self).Targets() {
					collect(t)
				}
			} else {
				collect(fd.SingleRef(mk.self).Get())
			}

			return true
		})
	}

	walk(m)
	return result
}

// processNotification handles an event delivered from a referenced target:
// optional interception, the mandatory delete protocol, and propagation to
// this object's own dependents.
func (m *RefMaker) processNotification(direct Target, event *ReferenceEvent) {
	propagate := true

	if h, ok := m.self.(ReferenceEventHandler); ok {
		propagate = h.OnReferenceEvent(direct, event)
	}

	if event.Type == Deleted {
		// Every holder must release its references to the dying target.
		// This is not subject to interception.
		m.ClearReferencesTo(event.Source)
		return
	}

	if !propagate {
		return
	}

	if t, ok := m.self.(Target); ok {
		t.targetState().NotifyDependents(event)
	}
}
