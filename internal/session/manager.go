package session

import (
	"sync"

	"github.com/lanikai/virtucam/internal/config"
	"github.com/lanikai/virtucam/internal/gles"
	"github.com/pkg/errors"
)

// A Binding ties a target to the substitute handed out for it and to the
// session drawing on it.
type Binding struct {
	Target     Target
	Substitute Substitute
	Session    *Session
}

// Manager owns the active sessions. Each Replace stops and joins every
// session of the previous capture session before starting new ones, so no
// two sessions ever draw on the same target at once.
type Manager struct {
	config   config.Source
	platform Platform
	app      string

	// Serializes Replace and Close.
	mu       sync.Mutex
	sessions []*Session

	bmu      sync.Mutex
	bindings map[interface{}]*Binding
}

// NewManager creates a manager for the host package app.
func NewManager(cfg config.Source, p Platform, app string) *Manager {
	return &Manager{
		config:   cfg,
		platform: p,
		app:      app,
		bindings: map[interface{}]*Binding{},
	}
}

func targetKey(t Target) interface{} {
	if t.Raw != nil {
		return t.Raw
	}
	return t.Window
}

// Replace tears down all current sessions and starts one per distinct
// target, returning one substitute surface per target in order. Repeated
// targets share a session and a substitute. When substitution is disabled
// it returns ErrDisabled and the caller should proceed unmodified.
func (m *Manager) Replace(targets []Target) ([]gles.NativeWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopAll()

	snap := config.ReadOrDisable(m.config)
	if !snap.Enabled {
		return nil, ErrDisabled
	}
	if !snap.Targets(m.app) {
		log.Debug("%s is not a target app", m.app)
		return nil, ErrDisabled
	}

	substitutes := make([]gles.NativeWindow, len(targets))
	for i, t := range targets {
		if t.Raw == nil && t.Window == 0 {
			m.stopAll()
			return nil, errors.Errorf("target %d has no destination", i)
		}
		key := targetKey(t)
		if b := m.binding(key); b != nil {
			substitutes[i] = b.Substitute.Window()
			continue
		}

		sub, err := m.platform.Substitutes()
		if err != nil {
			m.stopAll()
			return nil, errors.Wrapf(err, "creating substitute for %v", t)
		}
		s := newSession(t, snap, m.platform)
		if !m.bind(key, &Binding{Target: t, Substitute: sub, Session: s}) {
			// Unreachable while Replace holds mu and starts from an empty set.
			sub.Release()
			m.stopAll()
			return nil, errors.Errorf("target %v already bound", t)
		}
		m.sessions = append(m.sessions, s)
		s.start()
		substitutes[i] = sub.Window()
	}

	log.Info("Replaced capture session: %d targets, %d sessions, %v", len(targets), len(m.sessions), snap)
	return substitutes, nil
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAll()
}

// Sessions returns the live sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.sessions...)
}

// Bindings returns the current target bindings.
func (m *Manager) Bindings() []Binding {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	var out []Binding
	for _, b := range m.bindings {
		out = append(out, *b)
	}
	return out
}

func (m *Manager) binding(key interface{}) *Binding {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	return m.bindings[key]
}

func (m *Manager) bind(key interface{}, b *Binding) bool {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	if _, taken := m.bindings[key]; taken {
		return false
	}
	m.bindings[key] = b
	return true
}

// stopAll joins every session, then releases their bindings. Callers hold mu.
func (m *Manager) stopAll() {
	if len(m.sessions) == 0 {
		return
	}
	for _, s := range m.sessions {
		s.stop()
	}
	log.Debug("Stopped %d sessions", len(m.sessions))
	m.sessions = nil

	m.bmu.Lock()
	defer m.bmu.Unlock()
	for key, b := range m.bindings {
		b.Substitute.Release()
		delete(m.bindings, key)
	}
}
