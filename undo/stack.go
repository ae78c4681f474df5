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

package undo

import (
	"github.com/refgraph/refgraph/d"
)

const (
	// DefaultLimit is the number of history entries a new Stack retains.
	DefaultLimit = 20

	// cleanVirgin marks a stack that has never been saved or mutated.
	cleanVirgin = -1

	// cleanInvalid marks a clean state that was trimmed out of the
	// retained window. IsClean stays false until the next SetClean.
	cleanInvalid = -2
)

// Stack is a capacity-bounded journal of committed compound operations.
// Mutations are recorded inside an open compound; only the outermost
// EndCompoundOperation commits an entry to the history. The stack is not
// safe for concurrent use.
type Stack struct {
	operations []Operation
	compounds  []*CompoundOperation

	index      int
	cleanIndex int
	limit      int

	suspendCount int
	undoing      bool
	redoing      bool
}

// NewStack creates an empty undo stack with DefaultLimit history entries.
func NewStack() *Stack {
	return &Stack{
		index:      -1,
		cleanIndex: cleanVirgin,
		limit:      DefaultLimit,
	}
}

// IsRecording reports whether a compound operation is currently open and
// recording is not suspended.
func (s *Stack) IsRecording() bool {
	return s.suspendCount == 0 && len(s.compounds) > 0
}

// IsUndoingOrRedoing reports whether a replay is in progress.
func (s *Stack) IsUndoingOrRedoing() bool {
	return s.undoing || s.redoing
}

// IsSuspended reports whether recording is suspended.
func (s *Stack) IsSuspended() bool {
	return s.suspendCount > 0
}

// Suspend stops the recording of operations. Pushes are silently discarded
// until a matching Resume. Calls nest.
func (s *Stack) Suspend() {
	s.suspendCount++
}

// Resume reverses one Suspend call.
func (s *Stack) Resume() {
	d.PanicIfTrue(s.suspendCount <= 0)
	s.suspendCount--
}

// Suspended runs fn with recording suspended.
func (s *Stack) Suspended(fn func()) {
	s.Suspend()
	defer s.Resume()
	fn()
}

// BeginCompoundOperation opens a new compound with the given display name.
// Nested compounds are appended as a single child of the enclosing compound
// when closed.
func (s *Stack) BeginCompoundOperation(name string) {
	d.PanicIfTrue(s.IsUndoingOrRedoing())
	s.compounds = append(s.compounds, NewCompoundOperation(name))
}

// EndCompoundOperation closes the innermost open compound. With commit true
// the compound becomes a child of the enclosing compound, or, if it was the
// outermost one and is significant, a new history entry. With commit false
// the compound's operations are undone and discarded.
func (s *Stack) EndCompoundOperation(commit bool) {
	if len(s.compounds) == 0 {
		d.Panic("endCompoundOperation() called without an open compound operation")
	}

	top := s.compounds[len(s.compounds)-1]
	s.compounds = s.compounds[:len(s.compounds)-1]

	if !commit {
		s.Suspended(top.Undo)
		return
	}

	if len(s.compounds) > 0 {
		if top.Len() > 0 {
			s.compounds[len(s.compounds)-1].Add(top)
		}
		return
	}

	if !top.IsSignificant() {
		return
	}

	s.commit(top)
}

// ResetCurrentCompound undoes and discards everything recorded by the
// innermost open compound, leaving it open and empty.
func (s *Stack) ResetCurrentCompound() {
	if len(s.compounds) == 0 {
		d.Panic("resetCurrentCompound() called without an open compound operation")
	}

	top := s.compounds[len(s.compounds)-1]
	s.Suspended(top.Undo)
	top.children = top.children[:0]
}

// Push records an operation in the innermost open compound. The mutation
// itself has already happened; Push only journals it. Pushing with recording
// suspended is a silent no-op. Pushing with no open compound is a fatal
// assertion.
func (s *Stack) Push(op Operation) {
	if s.suspendCount > 0 {
		return
	}

	if len(s.compounds) == 0 {
		d.Panic("modification of the object graph is not permitted outside a compound operation")
	}

	s.compounds[len(s.compounds)-1].Add(op)
}

// commit truncates the redo tail, appends the entry, and trims the stack to
// its capacity.
func (s *Stack) commit(op Operation) {
	if s.index+1 < len(s.operations) {
		if s.cleanIndex > s.index {
			s.cleanIndex = cleanInvalid
		}
		s.operations = s.operations[:s.index+1]
	}

	s.operations = append(s.operations, op)
	s.index = len(s.operations) - 1
	s.limitStack()
}

// limitStack trims the history to the capacity limit: the oldest undoable
// entries are dropped first, then, once the current index blocks further
// front trimming, the furthest redo entries. If the clean index falls
// outside the retained window it is invalidated, so IsClean stays false
// until the next SetClean.
func (s *Stack) limitStack() {
	if s.limit < 0 {
		return
	}

	excess := len(s.operations) - s.limit

	if excess <= 0 {
		return
	}

	drop := excess

	if drop > s.index+1 {
		drop = s.index + 1
	}

	if drop > 0 {
		s.operations = append([]Operation{}, s.operations[drop:]...)
		s.index -= drop
		excess -= drop

		if s.cleanIndex >= 0 {
			if s.cleanIndex < drop {
				s.cleanIndex = cleanInvalid
			} else {
				s.cleanIndex -= drop
			}
		}
	}

	if excess > 0 {
		s.operations = s.operations[:len(s.operations)-excess]

		if s.cleanIndex >= len(s.operations) {
			s.cleanIndex = cleanInvalid
		}
	}
}

// CanUndo reports whether there is an entry to undo.
func (s *Stack) CanUndo() bool {
	return s.index >= 0
}

// CanRedo reports whether there is an undone entry to redo.
func (s *Stack) CanRedo() bool {
	return s.index+1 < len(s.operations)
}

// Undo reverts the current history entry. Calling it while recording or
// mid-replay is a fatal assertion.
func (s *Stack) Undo() {
	d.PanicIfTrue(s.IsUndoingOrRedoing())

	if len(s.compounds) > 0 {
		d.Panic("undo() called while a compound operation is open")
	}

	if !s.CanUndo() {
		return
	}

	s.undoing = true
	s.Suspended(s.operations[s.index].Undo)
	s.index--
	s.undoing = false
}

// Redo re-applies the next undone history entry.
func (s *Stack) Redo() {
	d.PanicIfTrue(s.IsUndoingOrRedoing())

	if len(s.compounds) > 0 {
		d.Panic("redo() called while a compound operation is open")
	}

	if !s.CanRedo() {
		return
	}

	s.redoing = true
	s.Suspended(s.operations[s.index+1].Redo)
	s.index++
	s.redoing = false
}

// UndoText returns the display name of the entry Undo would revert, or the
// empty string.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}

	return s.operations[s.index].DisplayName()
}

// RedoText returns the display name of the entry Redo would re-apply, or the
// empty string.
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}

	return s.operations[s.index+1].DisplayName()
}

// Count returns the number of committed history entries.
func (s *Stack) Count() int {
	return len(s.operations)
}

// Index returns the position of the current entry, or -1 if everything has
// been undone.
func (s *Stack) Index() int {
	return s.index
}

// SetUndoLimit sets the number of retained history entries. A negative
// limit means unlimited.
func (s *Stack) SetUndoLimit(limit int) {
	s.limit = limit
	s.limitStack()
}

// Clear discards the entire history.
func (s *Stack) Clear() {
	d.PanicIfTrue(len(s.compounds) > 0)

	s.operations = nil
	s.index = -1
	s.cleanIndex = cleanVirgin
}

// SetClean marks the current state as the saved one.
func (s *Stack) SetClean() {
	s.cleanIndex = s.index
}

// SetDirty forces IsClean to report false until the next SetClean.
func (s *Stack) SetDirty() {
	s.cleanIndex = cleanInvalid
}

// IsClean reports whether the current state matches the last SetClean mark.
// A freshly created stack is clean.
func (s *Stack) IsClean() bool {
	return s.cleanIndex == s.index
}
