package ports

import (
	"context"
	"time"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/events"
)

// MindMapStore defines the interface for mind map persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type MindMapStore interface {
	// Get retrieves a map; a NotFound AppError is returned when it does not exist
	Get(ctx context.Context, ownerID string, mapID valueobjects.MapID) (*aggregates.MindMap, error)

	// ListByOwner retrieves all maps of an owner, most recently updated first
	ListByOwner(ctx context.Context, ownerID string) ([]*aggregates.MindMap, error)

	// Create stores a new map and fails with a Conflict if it already exists
	Create(ctx context.Context, m *aggregates.MindMap) error

	// Update overwrites an existing map
	Update(ctx context.Context, m *aggregates.MindMap) error

	// Delete removes a map
	Delete(ctx context.Context, ownerID string, mapID valueobjects.MapID) error

	// CountByOwner returns how many maps an owner has
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// Lock is a held MapLocker lock
type Lock interface {
	Release(ctx context.Context) error
}

// MapLocker serializes read-modify-write cycles on one map
type MapLocker interface {
	Acquire(ctx context.Context, resource string, ttl time.Duration) (Lock, error)
}

// SuggestionService produces related concepts for a node label
type SuggestionService interface {
	Suggest(ctx context.Context, label string, context []string) ([]string, error)
}

// GraphObserver is notified about persistence outcomes
type GraphObserver interface {
	OnLoaded(ctx context.Context, m *aggregates.MindMap)
	OnSaved(ctx context.Context, m *aggregates.MindMap, created bool)
	OnSaveFailed(ctx context.Context, mapID valueobjects.MapID, ownerID string, err error)
	OnDeleted(ctx context.Context, mapID valueobjects.MapID, ownerID string)
}

// PlanStatus describes how many maps an owner may still create
type PlanStatus struct {
	Plan         string `json:"plan"`
	CanCreate    bool   `json:"canCreate"`
	CurrentCount int    `json:"currentCount"`
	// Limit is -1 for unlimited plans
	Limit int `json:"limit"`
}

// PlanProvider answers plan questions for an owner
type PlanProvider interface {
	Status(ctx context.Context, ownerID string) (PlanStatus, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache; a zero ttl uses the cache default
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// ExpansionLimiter throttles suggestion requests per owner
type ExpansionLimiter interface {
	Allow(ownerID string) bool
}
