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
	"fmt"

	"github.com/refgraph/refgraph/d"
)

// SetProperty assigns a plain (non-reference) field through its descriptor,
// journaling the old value unless the field carries NoUndo or recording is
// suspended. Assigning the current value is a no-op.
func SetProperty(owner Maker, fd *FieldDescriptor, value interface{}) {
	m := owner.makerState()
	m.checkInitialized()
	d.PanicIfTrue(fd.IsReferenceField())
	d.PanicIfTrue(fd.GetProperty == nil || fd.SetProperty == nil)

	old := fd.GetProperty(owner)

	if old == value {
		return
	}

	stack := m.session.Undo()

	if fd.Flags.Has(NoUndo) || stack.IsSuspended() {
		applyProperty(owner, fd, value)
		return
	}

	applyProperty(owner, fd, value)
	stack.Push(&changePropertyOperation{owner: owner, fd: fd, value: old})
}

func applyProperty(owner Maker, fd *FieldDescriptor, value interface{}) {
	fd.SetProperty(owner, value)

	if t, ok := owner.(Target); ok {
		t.targetState().NotifyChanged()
	}
}

type changePropertyOperation struct {
	owner Maker
	fd    *FieldDescriptor
	value interface{}
}

// invert swaps the journaled value back in, keeping the displaced one for
// the opposite direction.
func (op *changePropertyOperation) invert() {
	current := op.fd.GetProperty(op.owner)
	applyProperty(op.owner, op.fd, op.value)
	op.value = current
}

func (op *changePropertyOperation) Undo() { op.invert() }
func (op *changePropertyOperation) Redo() { op.invert() }

func (op *changePropertyOperation) DisplayName() string {
	return fmt.Sprintf("Change %s", op.fd.Identifier)
}

func (op *changePropertyOperation) IsSignificant() bool {
	return true
}
