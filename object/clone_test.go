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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShallowCloneAliasesReferences(t *testing.T) {
	s := newTestSession()
	n := newTestNode(t, s, "n")
	m := newTestMaterial(t, s, 0.5)

	record(s, func() {
		n.material.Set(n, nodeMaterialField, m)
	})

	clone, err := NewCloneHelper(s).Clone(n, false)
	require.NoError(t, err)

	cn := clone.(*testNode)
	assert.Equal(t, "n", cn.name)
	assert.Same(t, Target(m), cn.material.Get())
	assert.NotSame(t, n, cn)
}

func TestDeepCloneDuplicatesReferences(t *testing.T) {
	s := newTestSession()
	n := newTestNode(t, s, "n")
	m := newTestMaterial(t, s, 0.5)

	record(s, func() {
		n.material.Set(n, nodeMaterialField, m)
	})

	clone, err := NewCloneHelper(s).Clone(n, true)
	require.NoError(t, err)

	cn := clone.(*testNode)
	require.NotNil(t, cn.material.Get())
	assert.NotSame(t, Target(m), cn.material.Get())
	assert.Equal(t, 0.5, cn.material.Get().(*testMaterial).shininess)
}

func TestCloneOfCyclicGraphConverges(t *testing.T) {
	s := newTestSession()
	a := newTestNode(t, s, "a")
	b := newTestNode(t, s, "b")

	record(s, func() {
		a.children.Append(a, nodeChildrenField, b)
		b.children.Append(b, nodeChildrenField, a)
	})

	clone, err := NewCloneHelper(s).Clone(a, true)
	require.NoError(t, err)

	ca := clone.(*testNode)
	require.Equal(t, 1, ca.children.Len())

	cb := ca.children.Get(0).(*testNode)
	assert.Equal(t, "b", cb.name)
	assert.NotSame(t, b, cb)

	// The cycle closes on the clone, not the source.
	require.Equal(t, 1, cb.children.Len())
	assert.Same(t, Target(ca), cb.children.Get(0))
}

func TestDiamondSharesOneClone(t *testing.T) {
	s := newTestSession()
	root := newTestNode(t, s, "root")
	left := newTestNode(t, s, "left")
	right := newTestNode(t, s, "right")
	m := newTestMaterial(t, s, 0.5)

	record(s, func() {
		root.children.Append(root, nodeChildrenField, left)
		root.children.Append(root, nodeChildrenField, right)
		left.material.Set(left, nodeMaterialField, m)
		right.material.Set(right, nodeMaterialField, m)
	})

	clone, err := NewCloneHelper(s).Clone(root, true)
	require.NoError(t, err)

	cr := clone.(*testNode)
	cl := cr.children.Get(0).(*testNode)
	crt := cr.children.Get(1).(*testNode)

	require.NotNil(t, cl.material.Get())
	assert.NotSame(t, Target(m), cl.material.Get())
	assert.Same(t, cl.material.Get(), crt.material.Get())
}

func TestWeakReferenceFollowsCloneWhenMade(t *testing.T) {
	s := newTestSession()
	n := newTestNode(t, s, "n")
	m := newTestMaterial(t, s, 0.5)

	record(s, func() {
		n.material.Set(n, nodeMaterialField, m)
		n.backup.Set(n, nodeBackupField, m)
	})

	// Deep clone duplicates m through the strong field; the weak backup
	// field then points at the same duplicate.
	clone, err := NewCloneHelper(s).Clone(n, true)
	require.NoError(t, err)

	cn := clone.(*testNode)
	assert.NotSame(t, Target(m), cn.material.Get())
	assert.Same(t, cn.material.Get(), cn.backup.Get())

	// Without a clone of the target in the invocation, the weak reference
	// keeps aliasing the source.
	other := newTestNode(t, s, "other")
	m2 := newTestMaterial(t, s, 0.7)

	record(s, func() {
		other.backup.Set(other, nodeBackupField, m2)
	})

	clone2, err := NewCloneHelper(s).Clone(other, true)
	require.NoError(t, err)
	assert.Same(t, Target(m2), clone2.(*testNode).backup.Get())
}

func TestNoSourceIsClonedTwice(t *testing.T) {
	s := newTestSession()
	a := newTestNode(t, s, "a")
	b := newTestNode(t, s, "b")

	record(s, func() {
		a.children.Append(a, nodeChildrenField, b)
	})

	ch := NewCloneHelper(s)

	c1, err := ch.Clone(a, true)
	require.NoError(t, err)

	c2, err := ch.Clone(b, true)
	require.NoError(t, err)

	// b was already cloned while cloning a; the helper returns the same
	// clone instead of making a second one.
	assert.Same(t, c1.(*testNode).children.Get(0), c2)
	assert.Same(t, Target(c2), ch.CloneOf(b))
}

func TestCloneOfAbstractTargetFails(t *testing.T) {
	s := newTestSession()
	n := newTestNode(t, s, "n")

	// Force a field to hold something whose type cannot be re-created.
	ch := NewCloneHelper(s)
	_, err := ch.session.NewObject(testAbstractType)
	require.Error(t, err)
	assert.IsType(t, InstantiationError{}, err)

	_, err = ch.Clone(n, true)
	assert.NoError(t, err)
}
