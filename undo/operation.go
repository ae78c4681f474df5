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

// Package undo implements a compound, nestable, reversible operation journal.
// A Stack records Operations grouped into CompoundOperations; undoing and
// redoing replays the recorded operations with further recording suspended,
// so replay never generates new history.
package undo

// Operation is a single reversible mutation. Undo restores the state that
// existed before the operation was performed; Redo re-applies it.
type Operation interface {
	// Undo reverts the mutation captured by this operation.
	Undo()

	// Redo re-applies the mutation captured by this operation.
	Redo()

	// DisplayName returns a human readable description of the operation.
	DisplayName() string

	// IsSignificant reports whether the operation represents an actual
	// change. Compounds containing only insignificant operations are
	// discarded instead of being committed to the stack.
	IsSignificant() bool
}

// CompoundOperation groups child operations so they undo and redo as a
// single history entry. Children are undone in reverse order and redone in
// forward order.
type CompoundOperation struct {
	name     string
	children []Operation
}

// NewCompoundOperation creates an empty compound with the given display name.
func NewCompoundOperation(name string) *CompoundOperation {
	return &CompoundOperation{name: name}
}

// Add appends a child operation.
func (c *CompoundOperation) Add(op Operation) {
	c.children = append(c.children, op)
}

// Len returns the number of child operations.
func (c *CompoundOperation) Len() int {
	return len(c.children)
}

// Undo reverts the children in reverse order.
func (c *CompoundOperation) Undo() {
	for i := len(c.children) - 1; i >= 0; i-- {
		c.children[i].Undo()
	}
}

// Redo re-applies the children in forward order.
func (c *CompoundOperation) Redo() {
	for _, op := range c.children {
		op.Redo()
	}
}

// DisplayName returns the name given at creation.
func (c *CompoundOperation) DisplayName() string {
	return c.name
}

// IsSignificant reports whether any child is significant.
func (c *CompoundOperation) IsSignificant() bool {
	for _, op := range c.children {
		if op.IsSignificant() {
			return true
		}
	}

	return false
}
