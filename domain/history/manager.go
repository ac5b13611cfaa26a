// Package history keeps the bounded undo/redo list of graph snapshots.
package history

import (
	"mindmap-backend/domain/core/aggregates"
)

// DefaultLimit is the number of states kept when no limit is configured
const DefaultLimit = 50

// Manager is a linear undo/redo history. It only stores snapshots; the
// caller restores them into the graph.
type Manager struct {
	entries []aggregates.Snapshot
	index   int
	limit   int
}

// NewManager creates a history holding at most limit states
func NewManager(limit int) *Manager {
	if limit < 2 {
		limit = DefaultLimit
	}
	return &Manager{index: -1, limit: limit}
}

// Record drops any redo states, appends s and evicts the oldest states
// beyond the limit
func (m *Manager) Record(s aggregates.Snapshot) {
	m.entries = append(m.entries[:m.index+1], s)
	for len(m.entries) > m.limit {
		m.entries[0] = aggregates.Snapshot{}
		m.entries = m.entries[1:]
	}
	m.index = len(m.entries) - 1
}

// Undo steps back. At the oldest state it returns the current one and false.
func (m *Manager) Undo() (aggregates.Snapshot, bool) {
	if !m.CanUndo() {
		return m.Current(), false
	}
	m.index--
	return m.entries[m.index], true
}

// Redo steps forward. At the newest state it returns the current one and false.
func (m *Manager) Redo() (aggregates.Snapshot, bool) {
	if !m.CanRedo() {
		return m.Current(), false
	}
	m.index++
	return m.entries[m.index], true
}

// Current returns the state at the pointer
func (m *Manager) Current() aggregates.Snapshot {
	if m.index < 0 {
		return aggregates.Snapshot{}
	}
	return m.entries[m.index]
}

// CanUndo reports whether an older state exists
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether a newer state exists
func (m *Manager) CanRedo() bool { return m.index >= 0 && m.index < len(m.entries)-1 }

// Len is the number of stored states
func (m *Manager) Len() int { return len(m.entries) }

// Index is the position of the current state, -1 when empty
func (m *Manager) Index() int { return m.index }

// Limit is the maximum number of stored states
func (m *Manager) Limit() int { return m.limit }

// SetLimit changes the bound. Redo states go first, then the oldest
// states; the current state is never evicted.
func (m *Manager) SetLimit(limit int) {
	if limit < 2 {
		return
	}
	m.limit = limit
	for len(m.entries) > m.limit && len(m.entries)-1 > m.index {
		m.entries[len(m.entries)-1] = aggregates.Snapshot{}
		m.entries = m.entries[:len(m.entries)-1]
	}
	for len(m.entries) > m.limit && m.index > 0 {
		m.entries[0] = aggregates.Snapshot{}
		m.entries = m.entries[1:]
		m.index--
	}
}

// Reset forgets everything and starts over from s
func (m *Manager) Reset(s aggregates.Snapshot) {
	m.entries = []aggregates.Snapshot{s}
	m.index = 0
}
