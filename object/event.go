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

// EventType identifies the kind of a ReferenceEvent.
type EventType int

const (
	// Changed signals that the emitting target has changed in a way that
	// invalidates anything computed from it.
	Changed EventType = iota

	// ChangeComplete is the trailing notification sent once after a burst
	// of Changed events has been coalesced on the session's deferred queue.
	ChangeComplete

	// Deleted signals that the emitting target is about to be destroyed.
	// Every holder of a reference to it must clear that reference.
	Deleted

	// ReferenceChanged signals that a single reference field of the
	// emitting object was assigned a different target.
	ReferenceChanged

	// ReferenceAdded signals that a target was inserted into a vector
	// reference field of the emitting object.
	ReferenceAdded

	// ReferenceRemoved signals that a target was removed from a vector
	// reference field of the emitting object.
	ReferenceRemoved

	// SubobjectListChanged signals that the membership of a vector
	// reference field changed.
	SubobjectListChanged

	// TitleChanged signals that the object's display title changed.
	TitleChanged

	// StatusChanged signals that the object's status changed.
	StatusChanged

	// EnabledOrDisabled signals that the object was switched on or off.
	EnabledOrDisabled
)

var eventTypeNames = map[EventType]string{
	Changed:              "Changed",
	ChangeComplete:       "ChangeComplete",
	Deleted:              "Deleted",
	ReferenceChanged:     "ReferenceChanged",
	ReferenceAdded:       "ReferenceAdded",
	ReferenceRemoved:     "ReferenceRemoved",
	SubobjectListChanged: "SubobjectListChanged",
	TitleChanged:         "TitleChanged",
	StatusChanged:        "StatusChanged",
	EnabledOrDisabled:    "EnabledOrDisabled",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}

	return "Unknown"
}

// ReferenceEvent is the notification broadcast through the dependency graph.
// Source is the target that originally emitted the event; it is preserved
// when the event propagates across intermediate dependents.
type ReferenceEvent struct {
	Type   EventType
	Source Target

	// Field identifies the reference field for the ReferenceChanged,
	// ReferenceAdded and ReferenceRemoved event types, nil otherwise.
	Field *FieldDescriptor

	// OldTarget and NewTarget carry the displaced and assigned targets for
	// ReferenceChanged; ReferenceAdded and ReferenceRemoved use NewTarget
	// and OldTarget respectively.
	OldTarget Target
	NewTarget Target

	// Index is the vector position for ReferenceAdded and ReferenceRemoved,
	// -1 otherwise.
	Index int

	// visited records the targets that have already broadcast this event,
	// so each node forwards it at most once and propagation across cyclic
	// graphs terminates.
	visited map[*RefTarget]bool
}
