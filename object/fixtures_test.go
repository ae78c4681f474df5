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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refgraph/refgraph/stream"
)

type testMaterial struct {
	RefTarget
	shininess float64
}

type testNode struct {
	RefTarget
	name     string
	material ReferenceField
	backup   ReferenceField
	children VectorReferenceField

	stopPropagation bool
}

func (n *testNode) OnReferenceEvent(direct Target, event *ReferenceEvent) bool {
	return !n.stopPropagation
}

// testWatcher observes a single target and records every event that reaches
// it. With stop set, it halts propagation.
type testWatcher struct {
	RefMaker
	target ReferenceField
	events []*ReferenceEvent
	stop   bool
}

func (w *testWatcher) OnReferenceEvent(direct Target, event *ReferenceEvent) bool {
	w.events = append(w.events, event)
	return !w.stop
}

func (w *testWatcher) eventsOfType(et EventType) []*ReferenceEvent {
	var out []*ReferenceEvent

	for _, e := range w.events {
		if e.Type == et {
			out = append(out, e)
		}
	}

	return out
}

var (
	materialShininessField = &FieldDescriptor{
		Identifier: "shininess",
		GetProperty: func(o Maker) interface{} {
			return o.(*testMaterial).shininess
		},
		SetProperty: func(o Maker, v interface{}) {
			o.(*testMaterial).shininess = v.(float64)
		},
		SaveProperty: func(o Maker, s *stream.SaveStream) error {
			return s.WriteFloat(o.(*testMaterial).shininess)
		},
		LoadProperty: func(o Maker, s *stream.LoadStream) error {
			v, err := s.ReadFloat()
			o.(*testMaterial).shininess = v
			return err
		},
	}

	testMaterialType = NewType(TypeSpec{
		Name:     "TestMaterial",
		PluginID: "test",
		Factory:  func() Maker { return &testMaterial{} },
		Fields:   []*FieldDescriptor{materialShininessField},
	})

	nodeNameField = &FieldDescriptor{
		Identifier: "name",
		GetProperty: func(o Maker) interface{} {
			return o.(*testNode).name
		},
		SetProperty: func(o Maker, v interface{}) {
			o.(*testNode).name = v.(string)
		},
		SaveProperty: func(o Maker, s *stream.SaveStream) error {
			return s.WriteString(o.(*testNode).name)
		},
		LoadProperty: func(o Maker, s *stream.LoadStream) error {
			v, err := s.ReadString()
			o.(*testNode).name = v
			return err
		},
	}

	nodeMaterialField = &FieldDescriptor{
		Identifier:  "material",
		TargetClass: testMaterialType,
		SingleRef:   func(o Maker) *ReferenceField { return &o.(*testNode).material },
	}

	nodeBackupField = &FieldDescriptor{
		Identifier:  "backup",
		Flags:       WeakRef,
		TargetClass: testMaterialType,
		SingleRef:   func(o Maker) *ReferenceField { return &o.(*testNode).backup },
	}

	nodeChildrenField = &FieldDescriptor{
		Identifier: "children",
		Flags:      Vector,
		VectorRef:  func(o Maker) *VectorReferenceField { return &o.(*testNode).children },
	}

	testNodeType = NewType(TypeSpec{
		Name:     "TestNode",
		PluginID: "test",
		Factory:  func() Maker { return &testNode{} },
		Fields: []*FieldDescriptor{
			nodeNameField, nodeMaterialField, nodeBackupField, nodeChildrenField,
		},
	})

	watcherTargetField = &FieldDescriptor{
		Identifier: "target",
		SingleRef:  func(o Maker) *ReferenceField { return &o.(*testWatcher).target },
	}

	testWatcherType = NewType(TypeSpec{
		Name:            "TestWatcher",
		PluginID:        "test",
		NotSerializable: true,
		Factory:         func() Maker { return &testWatcher{} },
		Fields:          []*FieldDescriptor{watcherTargetField},
	})

	testAbstractType = NewType(TypeSpec{
		Name:     "TestAbstract",
		PluginID: "test",
		Abstract: true,
	})
)

func init() {
	// Self-referential target class cannot be set in the declaration.
	nodeChildrenField.TargetClass = testNodeType
}

func newTestSession() *Session {
	s := NewSession()
	s.Registry().Register(testMaterialType)
	s.Registry().Register(testNodeType)
	s.Registry().Register(testWatcherType)
	s.Registry().Register(testAbstractType)
	return s
}

func newTestNode(t *testing.T, s *Session, name string) *testNode {
	obj, err := s.NewObject(testNodeType)
	require.NoError(t, err)

	n := obj.(*testNode)
	n.name = name
	return n
}

func newTestMaterial(t *testing.T, s *Session, shininess float64) *testMaterial {
	obj, err := s.NewObject(testMaterialType)
	require.NoError(t, err)

	m := obj.(*testMaterial)
	m.shininess = shininess
	return m
}

func newTestWatcher(t *testing.T, s *Session, target Target) *testWatcher {
	obj, err := s.NewObject(testWatcherType)
	require.NoError(t, err)

	w := obj.(*testWatcher)

	if target != nil {
		s.Undo().Suspended(func() {
			w.target.Set(w, watcherTargetField, target)
		})
	}

	return w
}

// record runs fn inside a committed compound operation.
func record(s *Session, fn func()) {
	s.Undo().BeginCompoundOperation("test")
	fn()
	s.Undo().EndCompoundOperation(true)
}
