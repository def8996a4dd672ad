// Package history implements the linear undo/redo stack over component
// tree changes. Entries are applied and inverted strictly in cursor
// order; recording a new entry discards any undone tail.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alimasry/go-live-edit/layout"
)

// Entry is an ordered, named group of changes produced by one user action.
type Entry struct {
	ID          string          `json:"id"`
	Changes     []layout.Change `json:"changes"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
}

// Manager is a single linear history with a cursor. An index of -1
// means no entry is currently applied.
type Manager struct {
	mu      sync.Mutex
	entries []Entry
	index   int
}

// NewManager returns an empty history.
func NewManager() *Manager {
	return &Manager{index: -1}
}

// Record truncates everything after the cursor, appends a new entry and
// advances the cursor to it. This is the only way entries are added.
func (m *Manager) Record(changes []layout.Change, description string) {
	if len(changes) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = m.entries[:m.index+1]
	m.entries = append(m.entries, Entry{
		ID:          uuid.NewString(),
		Changes:     changes,
		Timestamp:   time.Now(),
		Description: description,
	})
	m.index = len(m.entries) - 1
}

// Undo applies the current entry's Before snapshots in reverse order
// and moves the cursor back. Returns false if there is nothing to undo.
func (m *Manager) Undo(tree *layout.Tree) bool {
	m.mu.Lock()
	if m.index < 0 {
		m.mu.Unlock()
		return false
	}
	entry := m.entries[m.index]
	m.index--
	m.mu.Unlock()

	for i := len(entry.Changes) - 1; i >= 0; i-- {
		tree.ApplyChange(entry.Changes[i], true)
	}
	return true
}

// Redo re-applies the next entry's After snapshots in forward order and
// advances the cursor. Returns false if the cursor is already at the tail.
func (m *Manager) Redo(tree *layout.Tree) bool {
	m.mu.Lock()
	if m.index >= len(m.entries)-1 {
		m.mu.Unlock()
		return false
	}
	m.index++
	entry := m.entries[m.index]
	m.mu.Unlock()

	for _, c := range entry.Changes {
		tree.ApplyChange(c, false)
	}
	return true
}

// CanUndo reports whether Undo would apply an entry.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index >= 0
}

// CanRedo reports whether Redo would apply an entry.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index < len(m.entries)-1
}

// Len returns the number of recorded entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear drops all entries and resets the cursor.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.index = -1
}

// Entries returns a copy of the applied entries up to the cursor, oldest
// first. Used for the publish summary.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Entry, m.index+1)
	copy(result, m.entries[:m.index+1])
	return result
}
