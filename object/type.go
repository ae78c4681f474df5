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

// InstantiationError reports that an instance of a class could not be
// created: the class is abstract, has no factory, is not registered, or is
// not derived from the type a context requires.
type InstantiationError struct {
	TypeName string
	Msg      string
}

func (e InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate class %q: %s", e.TypeName, e.Msg)
}

// TypeSpec describes a class to NewType. The zero value of optional fields
// means: no alias, no super class, concrete, serializable, no fields.
type TypeSpec struct {
	Name string

	// NameAlias is an optional former name of the class. Registry lookups
	// fall back to it so files written before a rename still load.
	NameAlias string

	Super    *Type
	PluginID string
	Abstract bool

	// NotSerializable excludes instances of the class from persistence.
	// A class is serializable only if its entire base chain is.
	NotSerializable bool

	// Factory creates a blank, uninitialized instance of the class.
	Factory func() Maker

	// Fields lists the property fields the class itself defines, in
	// serialization order. Inherited fields belong to the base types.
	Fields []*FieldDescriptor
}

// Type is the runtime descriptor of a class: its name chain, flags, factory
// and property fields. Types are registered once and live for the process
// lifetime.
type Type struct {
	name         string
	nameAlias    string
	super        *Type
	pluginID     string
	abstract     bool
	serializable bool
	factory      func() Maker
	fields       []*FieldDescriptor
}

// NewType creates a type descriptor from a spec and binds the spec's field
// descriptors to it as their defining class.
func NewType(spec TypeSpec) *Type {
	d.PanicIfTrue(spec.Name == "")

	t := &Type{
		name:         spec.Name,
		nameAlias:    spec.NameAlias,
		super:        spec.Super,
		pluginID:     spec.PluginID,
		abstract:     spec.Abstract,
		serializable: !spec.NotSerializable && (spec.Super == nil || spec.Super.IsSerializable()),
		factory:      spec.Factory,
		fields:       spec.Fields,
	}

	for _, fd := range spec.Fields {
		d.PanicIfFalse(fd.DefiningClass == nil)
		fd.DefiningClass = t
	}

	return t
}

// Name returns the class name.
func (t *Type) Name() string {
	return t.name
}

// NameAlias returns the former class name, or the empty string.
func (t *Type) NameAlias() string {
	return t.nameAlias
}

// SuperClass returns the base type, or nil for a root class.
func (t *Type) SuperClass() *Type {
	return t.super
}

// PluginID returns the id of the plugin defining the class.
func (t *Type) PluginID() string {
	return t.pluginID
}

// IsAbstract reports whether instances of the class can be created.
func (t *Type) IsAbstract() bool {
	return t.abstract
}

// IsSerializable reports whether instances of the class may be persisted.
func (t *Type) IsSerializable() bool {
	return t.serializable
}

// IsDerivedFrom walks the base chain and reports whether t equals other or
// inherits from it.
func (t *Type) IsDerivedFrom(other *Type) bool {
	for c := t; c != nil; c = c.super {
		if c == other {
			return true
		}
	}

	return false
}

// Fields returns the property fields the class itself defines.
func (t *Type) Fields() []*FieldDescriptor {
	return t.fields
}

// AllFields returns the class's property fields including inherited ones,
// base classes first.
func (t *Type) AllFields() []*FieldDescriptor {
	if t.super == nil {
		return t.fields
	}

	inherited := t.super.AllFields()
	all := make([]*FieldDescriptor, 0, len(inherited)+len(t.fields))
	all = append(all, inherited...)
	all = append(all, t.fields...)
	return all
}

// FindField searches the class and its base chain for a field with the
// given identifier. It returns nil if the field does not exist, which
// callers treat as "field removed in a newer schema".
func (t *Type) FindField(identifier string) *FieldDescriptor {
	for c := t; c != nil; c = c.super {
		for _, fd := range c.fields {
			if fd.Identifier == identifier {
				return fd
			}
		}
	}

	return nil
}

// Registry maps class names to type descriptors. Plugins populate it at
// startup; lookups during load resolve classes symbolically by name.
type Registry struct {
	types   map[string]*Type
	aliases map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:   map[string]*Type{},
		aliases: map[string]*Type{},
	}
}

// Register adds a type. Registering the same descriptor twice is a no-op;
// registering a different descriptor under an existing name is a fatal
// assertion.
func (r *Registry) Register(t *Type) {
	if existing, ok := r.types[t.name]; ok {
		if existing == t {
			return
		}

		d.Panic("a different class named %q is already registered", t.name)
	}

	r.types[t.name] = t

	if t.nameAlias != "" {
		r.aliases[t.nameAlias] = t
	}
}

// Lookup resolves a class name, falling back to registered aliases. It
// returns nil for unknown names.
func (r *Registry) Lookup(name string) *Type {
	if t, ok := r.types[name]; ok {
		return t
	}

	return r.aliases[name]
}
