package services

import (
	"context"
	"sync"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockSuggestionService is a mock implementation of ports.SuggestionService
type MockSuggestionService struct {
	mock.Mock
}

func (m *MockSuggestionService) Suggest(ctx context.Context, label string, related []string) ([]string, error) {
	args := m.Called(ctx, label, related)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockMindMapStore is a mock implementation of ports.MindMapStore
type MockMindMapStore struct {
	mock.Mock
}

func (m *MockMindMapStore) Get(ctx context.Context, ownerID string, mapID valueobjects.MapID) (*aggregates.MindMap, error) {
	args := m.Called(ctx, ownerID, mapID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.MindMap), args.Error(1)
}

func (m *MockMindMapStore) ListByOwner(ctx context.Context, ownerID string) ([]*aggregates.MindMap, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*aggregates.MindMap), args.Error(1)
}

func (m *MockMindMapStore) Create(ctx context.Context, mm *aggregates.MindMap) error {
	return m.Called(ctx, mm).Error(0)
}

func (m *MockMindMapStore) Update(ctx context.Context, mm *aggregates.MindMap) error {
	return m.Called(ctx, mm).Error(0)
}

func (m *MockMindMapStore) Delete(ctx context.Context, ownerID string, mapID valueobjects.MapID) error {
	return m.Called(ctx, ownerID, mapID).Error(0)
}

func (m *MockMindMapStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

// recordingObserver collects notifications
type recordingObserver struct {
	mu      sync.Mutex
	loaded  []valueobjects.MapID
	saved   []int
	created []bool
	failed  []error
	deleted []valueobjects.MapID
}

func (r *recordingObserver) OnLoaded(ctx context.Context, m *aggregates.MindMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, m.MapID)
}

func (r *recordingObserver) OnSaved(ctx context.Context, m *aggregates.MindMap, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, m.Version)
	r.created = append(r.created, created)
}

func (r *recordingObserver) OnSaveFailed(ctx context.Context, mapID valueobjects.MapID, ownerID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *recordingObserver) OnDeleted(ctx context.Context, mapID valueobjects.MapID, ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, mapID)
}

func (r *recordingObserver) savedVersions() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.saved...)
}

func (r *recordingObserver) failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	for _, e := range evts {
		_ = p.Publish(ctx, e)
	}
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }
