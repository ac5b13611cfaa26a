// Package memory keeps mind maps in process memory. It backs local
// development, the CLI and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/pkg/errors"
)

// Store is an in-memory ports.MindMapStore
type Store struct {
	mu   sync.RWMutex
	maps map[string]map[valueobjects.MapID]*aggregates.MindMap
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{maps: make(map[string]map[valueobjects.MapID]*aggregates.MindMap)}
}

// Get returns a copy of the stored map
func (s *Store) Get(ctx context.Context, ownerID string, mapID valueobjects.MapID) (*aggregates.MindMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.maps[ownerID][mapID]
	if !ok {
		return nil, errors.NewNotFoundError("mind map " + mapID.String())
	}
	return clone(m), nil
}

// ListByOwner returns the owner's maps, most recently updated first
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*aggregates.MindMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*aggregates.MindMap, 0, len(s.maps[ownerID]))
	for _, m := range s.maps[ownerID] {
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].MapID < out[j].MapID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Create stores a new map
func (s *Store) Create(ctx context.Context, m *aggregates.MindMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.maps[m.OwnerID]
	if !ok {
		owned = make(map[valueobjects.MapID]*aggregates.MindMap)
		s.maps[m.OwnerID] = owned
	}
	if _, exists := owned[m.MapID]; exists {
		return errors.NewConflictError("mind map " + m.MapID.String() + " already exists")
	}
	owned[m.MapID] = clone(m)
	return nil
}

// Update overwrites an existing map
func (s *Store) Update(ctx context.Context, m *aggregates.MindMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maps[m.OwnerID][m.MapID]; !ok {
		return errors.NewNotFoundError("mind map " + m.MapID.String())
	}
	s.maps[m.OwnerID][m.MapID] = clone(m)
	return nil
}

// Delete removes a map
func (s *Store) Delete(ctx context.Context, ownerID string, mapID valueobjects.MapID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maps[ownerID][mapID]; !ok {
		return errors.NewNotFoundError("mind map " + mapID.String())
	}
	delete(s.maps[ownerID], mapID)
	return nil
}

// CountByOwner returns the number of maps of an owner
func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.maps[ownerID]), nil
}

func clone(m *aggregates.MindMap) *aggregates.MindMap {
	cp := *m
	cp.Nodes = append(cp.Nodes[:0:0], m.Nodes...)
	cp.Edges = append(cp.Edges[:0:0], m.Edges...)
	return &cp
}
