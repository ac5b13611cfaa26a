package events

import (
	"time"

	"mindmap-backend/domain/core/valueobjects"
)

// Event types published for mind maps
const (
	TypeMindMapLoaded     = "mindmap.loaded"
	TypeMindMapSaved      = "mindmap.saved"
	TypeMindMapSaveFailed = "mindmap.save_failed"
	TypeMindMapDeleted    = "mindmap.deleted"
	TypeMindMapExpanded   = "mindmap.expanded"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(mapID valueobjects.MapID, eventType string, version int, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: mapID.String(),
		EventType:   eventType,
		Timestamp:   timestamp.UTC(),
		Version:     version,
	}
}

// MindMapLoaded is raised when a stored map is opened
type MindMapLoaded struct {
	BaseEvent
	OwnerID   string `json:"owner_id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// NewMindMapLoaded creates a MindMapLoaded event
func NewMindMapLoaded(mapID valueobjects.MapID, ownerID string, version, nodes, edges int, timestamp time.Time) MindMapLoaded {
	return MindMapLoaded{
		BaseEvent: newBase(mapID, TypeMindMapLoaded, version, timestamp),
		OwnerID:   ownerID,
		NodeCount: nodes,
		EdgeCount: edges,
	}
}

// MindMapSaved is raised after a save landed in the store
type MindMapSaved struct {
	BaseEvent
	OwnerID   string `json:"owner_id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Created   bool   `json:"created"`
}

// NewMindMapSaved creates a MindMapSaved event
func NewMindMapSaved(mapID valueobjects.MapID, ownerID string, version, nodes, edges int, created bool, timestamp time.Time) MindMapSaved {
	return MindMapSaved{
		BaseEvent: newBase(mapID, TypeMindMapSaved, version, timestamp),
		OwnerID:   ownerID,
		NodeCount: nodes,
		EdgeCount: edges,
		Created:   created,
	}
}

// MindMapSaveFailed is raised when an autosave could not be stored
type MindMapSaveFailed struct {
	BaseEvent
	OwnerID string `json:"owner_id"`
	Reason  string `json:"reason"`
}

// NewMindMapSaveFailed creates a MindMapSaveFailed event
func NewMindMapSaveFailed(mapID valueobjects.MapID, ownerID string, reason string, timestamp time.Time) MindMapSaveFailed {
	return MindMapSaveFailed{
		BaseEvent: newBase(mapID, TypeMindMapSaveFailed, 0, timestamp),
		OwnerID:   ownerID,
		Reason:    reason,
	}
}

// MindMapDeleted is raised when a map is removed from the store
type MindMapDeleted struct {
	BaseEvent
	OwnerID string `json:"owner_id"`
}

// NewMindMapDeleted creates a MindMapDeleted event
func NewMindMapDeleted(mapID valueobjects.MapID, ownerID string, timestamp time.Time) MindMapDeleted {
	return MindMapDeleted{
		BaseEvent: newBase(mapID, TypeMindMapDeleted, 0, timestamp),
		OwnerID:   ownerID,
	}
}

// MindMapExpanded is raised after suggestions were merged into a map
type MindMapExpanded struct {
	BaseEvent
	NodeID       valueobjects.NodeID `json:"node_id"`
	Added        int                 `json:"added"`
	UsedFallback bool                `json:"used_fallback"`
}

// NewMindMapExpanded creates a MindMapExpanded event
func NewMindMapExpanded(mapID valueobjects.MapID, nodeID valueobjects.NodeID, added int, usedFallback bool, timestamp time.Time) MindMapExpanded {
	return MindMapExpanded{
		BaseEvent:    newBase(mapID, TypeMindMapExpanded, 0, timestamp),
		NodeID:       nodeID,
		Added:        added,
		UsedFallback: usedFallback,
	}
}
