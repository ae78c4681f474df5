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

// CloneHelper duplicates sub-graphs with identity preservation: within one
// helper's lifetime each distinct source object maps to at most one clone,
// so diamonds and cycles in the source converge on shared clones instead of
// duplicating or recursing forever.
//
// Per-field policy decides sharing versus duplication: NeverCloneTarget
// aliases the source target; AlwaysClone duplicates on every clone;
// AlwaysDeepCopy duplicates and forces deep cloning below it; the default
// duplicates only when a deep copy was requested and aliases otherwise.
type CloneHelper struct {
	session *Session
	table   map[*RefTarget]Target
}

// NewCloneHelper creates a helper with an empty clone table. Use one helper
// per logical clone invocation.
func NewCloneHelper(s *Session) *CloneHelper {
	return &CloneHelper{
		session: s,
		table:   map[*RefTarget]Target{},
	}
}

// CloneOf returns the clone already made for source in this invocation, or
// nil.
func (ch *CloneHelper) CloneOf(source Target) Target {
	if source == nil {
		return nil
	}

	return ch.table[source.targetState()]
}

// Clone duplicates source and, depending on deep and the per-field flags,
// the objects reachable from it. Cloning is not journaled; inserting the
// clone into a live graph is the caller's (journaled) mutation.
func (ch *CloneHelper) Clone(source Target, deep bool) (Target, error) {
	if source == nil {
		return nil, nil
	}

	if clone, ok := ch.table[source.targetState()]; ok {
		return clone, nil
	}

	clone, err := ch.session.NewTarget(source.ObjectType())

	if err != nil {
		return nil, err
	}

	// Register before populating fields. A cycle reaching back to source
	// then resolves to this clone instead of recursing.
	ch.table[source.targetState()] = clone

	ch.session.Undo().Suspend()
	defer ch.session.Undo().Resume()

	if err := ch.populate(source, clone, deep); err != nil {
		return nil, err
	}

	return clone, nil
}

func (ch *CloneHelper) populate(source, clone Target, deep bool) error {
	for _, fd := range source.ObjectType().AllFields() {
		if !fd.IsReferenceField() {
			if fd.GetProperty != nil && fd.SetProperty != nil {
				fd.SetProperty(clone, fd.GetProperty(source))
			}
			continue
		}

		if fd.IsVector() {
			vector := fd.VectorRef(clone)

			for _, src := range fd.VectorRef(source).Targets() {
				value, err := ch.CopyReference(fd, src, deep)

				if err != nil {
					return err
				}

				if err := checkCloneType(fd, value); err != nil {
					return err
				}

				vector.Append(clone, fd, value)
			}

			continue
		}

		value, err := ch.CopyReference(fd, fd.SingleRef(source).Get(), deep)

		if err != nil {
			return err
		}

		if err := checkCloneType(fd, value); err != nil {
			return err
		}

		fd.SingleRef(clone).Set(clone, fd, value)
	}

	return nil
}

// CopyReference resolves one reference slot's value for the clone according
// to the field's flags.
func (ch *CloneHelper) CopyReference(fd *FieldDescriptor, source Target, deep bool) (Target, error) {
	if source == nil {
		return nil, nil
	}

	switch {
	case fd.Flags.Has(NeverCloneTarget):
		return source, nil

	case fd.Flags.Has(WeakRef) && !fd.Flags.Has(AlwaysClone) && !fd.Flags.Has(AlwaysDeepCopy):
		// A weak reference follows its target's clone if one exists in
		// this invocation, and keeps pointing at the source otherwise.
		if clone, ok := ch.table[source.targetState()]; ok {
			return clone, nil
		}
		return source, nil

	case fd.Flags.Has(AlwaysDeepCopy):
		return ch.Clone(source, true)

	case fd.Flags.Has(AlwaysClone):
		return ch.Clone(source, deep)

	case deep:
		return ch.Clone(source, true)

	default:
		return source, nil
	}
}

func checkCloneType(fd *FieldDescriptor, value Target) error {
	if value == nil || fd.TargetClass == nil {
		return nil
	}

	if !value.ObjectType().IsDerivedFrom(fd.TargetClass) {
		return InstantiationError{
			TypeName: value.ObjectType().Name(),
			Msg:      "the cloned target is not derived from the class expected by field " + fd.Identifier,
		}
	}

	return nil
}
