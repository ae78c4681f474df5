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
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/refgraph/refgraph/undo"
)

// PluginLoader guarantees that a class's defining plugin is loaded before
// the class is first used. Implementations are provided by the embedding
// application; a nil loader means all classes are linked in statically.
type PluginLoader interface {
	LoadPlugin(pluginID string) error
}

// Session is the context object owning everything that would otherwise be a
// process-wide singleton: the type registry, the undo stack, the logger and
// the deferred task queue. Every object belongs to exactly one session.
// A session is bound to a single thread.
type Session struct {
	id       uuid.UUID
	registry *Registry
	undo     *undo.Stack
	log      *logrus.Entry
	plugins  PluginLoader

	deferred []func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRegistry uses a shared type registry instead of a fresh one.
func WithRegistry(r *Registry) SessionOption {
	return func(s *Session) {
		s.registry = r
	}
}

// WithLogger routes the session's diagnostics to the given logger.
func WithLogger(log *logrus.Logger) SessionOption {
	return func(s *Session) {
		s.log = log.WithField("session", s.id.String())
	}
}

// WithPluginLoader installs the collaborator that loads plugins on demand
// during file loading.
func WithPluginLoader(pl PluginLoader) SessionOption {
	return func(s *Session) {
		s.plugins = pl
	}
}

// NewSession creates a session with a fresh registry and undo stack.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:   uuid.New(),
		undo: undo.NewStack(),
	}
	s.log = logrus.StandardLogger().WithField("session", s.id.String())

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = NewRegistry()
	}

	return s
}

// ID returns the session's unique identity.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Registry returns the session's type registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Undo returns the session's undo stack.
func (s *Session) Undo() *undo.Stack {
	return s.undo
}

// Log returns the session's logger.
func (s *Session) Log() *logrus.Entry {
	return s.log
}

// Plugins returns the session's plugin loader, or nil.
func (s *Session) Plugins() PluginLoader {
	return s.plugins
}

// Post queues fn for deferred execution on the session's thread. This is
// the same-thread zero-delay callback used to coalesce notification bursts;
// it is not a concurrency mechanism.
func (s *Session) Post(fn func()) {
	s.deferred = append(s.deferred, fn)
}

// ProcessDeferred runs all queued deferred tasks, including tasks they
// re-post, until the queue is empty. The embedding application calls this
// from its event loop.
func (s *Session) ProcessDeferred() {
	for len(s.deferred) > 0 {
		queue := s.deferred
		s.deferred = nil

		for _, fn := range queue {
			fn()
		}
	}
}

// NewObject creates and initializes an instance of the given type. Abstract
// or factory-less types fail with an InstantiationError.
func (s *Session) NewObject(t *Type) (Maker, error) {
	if t.IsAbstract() {
		return nil, InstantiationError{TypeName: t.Name(), Msg: "the class is abstract"}
	}

	if t.factory == nil {
		return nil, InstantiationError{TypeName: t.Name(), Msg: "the class has no instance factory"}
	}

	obj := t.factory()
	obj.makerState().init(obj, t, s)
	return obj, nil
}

// NewTarget creates an instance of a type known to be a RefTarget subclass.
func (s *Session) NewTarget(t *Type) (Target, error) {
	obj, err := s.NewObject(t)

	if err != nil {
		return nil, err
	}

	target, ok := obj.(Target)

	if !ok {
		return nil, InstantiationError{TypeName: t.Name(), Msg: "the class is not a reference target"}
	}

	return target, nil
}
