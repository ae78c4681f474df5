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

// RefTarget is the embeddable base state of every object that can be
// referenced. It extends RefMaker with the dependents list (the holders
// currently pointing at this object) and a revision counter bumped on every
// change notification.
type RefTarget struct {
	RefMaker

	dependents []Maker
	revision   uint64

	dead                  bool
	changeCompletePending bool
}

func (t *RefTarget) targetState() *RefTarget {
	return t
}

// Revision returns the object's change counter.
func (t *RefTarget) Revision() uint64 {
	return t.revision
}

// Dependents returns a snapshot of the holders currently referencing this
// object.
func (t *RefTarget) Dependents() []Maker {
	return append([]Maker{}, t.dependents...)
}

// IsAlive reports whether the object has not been destroyed.
func (t *RefTarget) IsAlive() bool {
	return !t.dead
}

// addDependent records a holder. The dependents list is a set: a holder
// with several fields pointing here appears once.
func (t *RefTarget) addDependent(m Maker) {
	for _, dep := range t.dependents {
		if dep == m {
			return
		}
	}

	t.dependents = append(t.dependents, m)
}

func (t *RefTarget) removeDependent(m Maker) {
	for i, dep := range t.dependents {
		if dep == m {
			t.dependents = append(t.dependents[:i], t.dependents[i+1:]...)
			return
		}
	}
}

// NotifyDependents broadcasts an event to every current dependent. The walk
// runs over a reverse index so dependents may mutate the list (a holder
// clearing its reference removes itself) without skipping a still-live
// entry or revisiting a removed one. Each target broadcasts a given event
// at most once, so propagation terminates in cyclic graphs.
func (t *RefTarget) NotifyDependents(event *ReferenceEvent) {
	t.checkInitialized()
	d.PanicIfTrue(t.dead)

	if event.visited == nil {
		event.visited = map[*RefTarget]bool{}
	}

	if event.visited[t] {
		return
	}

	event.visited[t] = true

	direct := t.self.(Target)

	for i := len(t.dependents) - 1; i >= 0; i-- {
		if i >= len(t.dependents) {
			continue
		}

		t.dependents[i].makerState().processNotification(direct, event)
	}
}

// Notify broadcasts an event of the given type originating at this object.
func (t *RefTarget) Notify(et EventType) {
	t.NotifyDependents(&ReferenceEvent{Type: et, Source: t.self.(Target), Index: -1})
}

// NotifyChanged bumps the revision counter, broadcasts a Changed event, and
// schedules one trailing ChangeComplete on the session's deferred queue.
// Rapid repeated calls coalesce into a single ChangeComplete.
func (t *RefTarget) NotifyChanged() {
	t.checkInitialized()
	d.PanicIfTrue(t.dead)

	t.revision++
	t.Notify(Changed)

	if t.changeCompletePending {
		return
	}

	t.changeCompletePending = true
	t.session.Post(func() {
		t.changeCompletePending = false

		if !t.dead {
			t.Notify(ChangeComplete)
		}
	})
}

// IsReferencedBy reports whether m references this object, directly or
// through a chain of intermediate targets. The walk follows the dependents
// direction and tolerates cycles.
func (t *RefTarget) IsReferencedBy(m Maker) bool {
	visited := map[*RefTarget]bool{}

	var search func(node *RefTarget) bool
	search = func(node *RefTarget) bool {
		if visited[node] {
			return false
		}

		visited[node] = true

		for _, dep := range node.dependents {
			if dep == m {
				return true
			}

			if dt, ok := dep.(Target); ok && search(dt.targetState()) {
				return true
			}
		}

		return false
	}

	return search(t)
}

// Destroy frees the object directly. It is a fatal assertion if any
// dependent still references it; use DeleteTarget for the sanctioned
// deletion path that first asks holders to let go.
func (t *RefTarget) Destroy() {
	t.checkInitialized()

	if t.dead {
		d.Panic("object of class %s destroyed twice", t.typ.Name())
	}

	if len(t.dependents) != 0 {
		d.Panic("cannot destroy an object of class %s that is still referenced by %d dependents",
			t.typ.Name(), len(t.dependents))
	}

	t.session.Undo().Suspended(t.ClearAllReferences)
	t.dead = true
}

// DeleteTarget is the sole sanctioned destruction path for a referenced
// object: it broadcasts Deleted so every holder clears its reference
// fields, asserts the dependents list emptied, then destroys the object.
// The broadcast runs with undo recording suspended.
func DeleteTarget(target Target) {
	t := target.targetState()
	t.checkInitialized()
	d.PanicIfTrue(t.dead)

	t.session.Undo().Suspended(func() {
		t.NotifyDependents(&ReferenceEvent{Type: Deleted, Source: target, Index: -1})

		if len(t.dependents) != 0 {
			d.Panic("dependents of class %s object remain after Deleted notification", t.typ.Name())
		}

		t.Destroy()
	})
}
