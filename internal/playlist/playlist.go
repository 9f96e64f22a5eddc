// Package playlist keeps an ordered list of asset paths with a cursor,
// persisted as JSON so the sequence survives a restart.
package playlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

type state struct {
	Items []string `json:"items"`
	Index int      `json:"index"`
	Loop  bool     `json:"loop"`
}

// Manager is safe for concurrent use. Persistence is best-effort: a
// failed save is reported to the caller but never corrupts the
// in-memory state.
type Manager struct {
	mu   sync.Mutex
	path string
	st   state
}

// New loads the playlist stored at path, starting fresh when the file
// is absent or unreadable.
func New(path string) *Manager {
	m := &Manager{path: path, st: state{Loop: true}}
	b, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var st state
	if err := json.Unmarshal(b, &st); err != nil {
		return m
	}
	m.st = st
	return m
}

// SetItems replaces the playlist contents and rewinds the cursor.
func (m *Manager) SetItems(items []string, loop bool) error {
	m.mu.Lock()
	m.st = state{Items: append([]string(nil), items...), Index: 0, Loop: loop}
	m.mu.Unlock()
	return m.save()
}

// Current returns the item under the cursor, or "" when the playlist is
// empty or the cursor is out of range.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

func (m *Manager) currentLocked() string {
	if m.st.Index < 0 || m.st.Index >= len(m.st.Items) {
		return ""
	}
	return m.st.Items[m.st.Index]
}

// Next advances the cursor and returns the new current item. At the end
// of a looping playlist the cursor wraps to the start; a non-looping one
// parks on the last item and returns "" to signal exhaustion.
func (m *Manager) Next() string {
	m.mu.Lock()
	if len(m.st.Items) == 0 {
		m.mu.Unlock()
		return ""
	}
	m.st.Index++
	exhausted := false
	if m.st.Index >= len(m.st.Items) {
		if m.st.Loop {
			m.st.Index = 0
		} else {
			m.st.Index = len(m.st.Items) - 1
			exhausted = true
		}
	}
	cur := m.currentLocked()
	m.mu.Unlock()
	_ = m.save()
	if exhausted {
		return ""
	}
	return cur
}

// Items returns a copy of the playlist contents.
func (m *Manager) Items() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.st.Items...)
}

func (m *Manager) save() error {
	m.mu.Lock()
	b, err := json.MarshalIndent(m.st, "", "  ")
	path := m.path
	m.mu.Unlock()
	if err != nil || path == "" {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0755)
	}
	return os.WriteFile(path, b, 0644)
}
