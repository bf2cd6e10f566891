// Package theme resolves the light/dark colour scheme from a stored preference
// and the system scheme, and notifies subscribers when the resolved theme changes.
package theme

import (
	"fmt"
	"sync"
)

type Preference string

const (
	PreferenceLight  Preference = "light"
	PreferenceDark   Preference = "dark"
	PreferenceSystem Preference = "system"
)

// Theme is a resolved scheme: light or dark.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

func ParsePreference(s string) (Preference, error) {
	switch p := Preference(s); p {
	case PreferenceLight, PreferenceDark, PreferenceSystem:
		return p, nil
	default:
		return "", fmt.Errorf("invalid theme preference %q (allowed: light, dark, system)", s)
	}
}

// Store persists a preference. Errors from a Store never reach Manager callers.
type Store interface {
	Load() (Preference, error)
	Save(Preference) error
}

type Manager struct {
	mu         sync.Mutex
	store      Store
	pref       Preference
	systemDark bool
	listeners  map[int]func(Theme)
	nextID     int
}

// NewManager loads the stored preference. A failed or invalid load means system.
func NewManager(store Store, systemDark bool) *Manager {
	m := &Manager{
		store:      store,
		pref:       PreferenceSystem,
		systemDark: systemDark,
		listeners:  make(map[int]func(Theme)),
	}
	if store != nil {
		if p, err := store.Load(); err == nil {
			if parsed, err := ParsePreference(string(p)); err == nil {
				m.pref = parsed
			}
		}
	}
	return m
}

func (m *Manager) Preference() Preference {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pref
}

func (m *Manager) Resolved() Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolvedLocked()
}

func (m *Manager) resolvedLocked() Theme {
	switch m.pref {
	case PreferenceDark:
		return Dark
	case PreferenceLight:
		return Light
	}
	if m.systemDark {
		return Dark
	}
	return Light
}

// SetPreference persists p and notifies subscribers with the resolved theme.
func (m *Manager) SetPreference(p Preference) error {
	if _, err := ParsePreference(string(p)); err != nil {
		return err
	}
	m.mu.Lock()
	m.pref = p
	resolved := m.resolvedLocked()
	m.save(p)
	listeners := m.snapshotLocked()
	m.mu.Unlock()

	notify(listeners, resolved)
	return nil
}

// Toggle flips the resolved theme and stores the explicit opposite preference.
func (m *Manager) Toggle() Theme {
	next := PreferenceDark
	if m.Resolved() == Dark {
		next = PreferenceLight
	}
	_ = m.SetPreference(next)
	return m.Resolved()
}

// SystemChanged records the system scheme. Subscribers hear about it only while
// the preference is system and the resolved theme actually changed.
func (m *Manager) SystemChanged(dark bool) {
	m.mu.Lock()
	before := m.resolvedLocked()
	m.systemDark = dark
	after := m.resolvedLocked()
	if m.pref != PreferenceSystem || before == after {
		m.mu.Unlock()
		return
	}
	listeners := m.snapshotLocked()
	m.mu.Unlock()

	notify(listeners, after)
}

// Subscribe registers fn and returns a func that removes it.
func (m *Manager) Subscribe(fn func(Theme)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) save(p Preference) {
	if m.store == nil {
		return
	}
	_ = m.store.Save(p)
}

func (m *Manager) snapshotLocked() []func(Theme) {
	out := make([]func(Theme), 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Theme), t Theme) {
	for _, fn := range listeners {
		fn(t)
	}
}
