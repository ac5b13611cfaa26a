package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.DomainEvent) error {
	return errors.New("bus down")
}

func (failingPublisher) PublishBatch(context.Context, []events.DomainEvent) error {
	return errors.New("bus down")
}

func TestEventObserverPublishesPersistenceEvents(t *testing.T) {
	// Arrange
	pub := &recordingPublisher{}
	obs := NewEventObserver(pub, zap.NewNop())
	at := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	obs.now = func() time.Time { return at }
	m := &aggregates.MindMap{MapID: "m1", OwnerID: "alice", Version: 3, Nodes: twoNodeData().Nodes, Edges: twoNodeData().Edges}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	obs.OnLoaded(ctx, m)
	obs.OnSaved(ctx, m, false)
	obs.OnSaveFailed(ctx, "m1", "alice", errors.New("throttled"))
	obs.OnDeleted(ctx, "m1", "alice")

	// Assert
	require.Len(t, pub.events, 4)
	types := make([]string, 0, 4)
	for _, e := range pub.events {
		types = append(types, e.GetEventType())
		assert.Equal(t, "m1", e.GetAggregateID())
		assert.Equal(t, at, e.GetTimestamp())
	}
	assert.Equal(t, []string{
		events.TypeMindMapLoaded,
		events.TypeMindMapSaved,
		events.TypeMindMapSaveFailed,
		events.TypeMindMapDeleted,
	}, types)

	saved := pub.events[1].(events.MindMapSaved)
	assert.Equal(t, 3, saved.Version)
	assert.Equal(t, 2, saved.NodeCount)
	assert.Equal(t, 1, saved.EdgeCount)
	assert.Equal(t, "throttled", pub.events[2].(events.MindMapSaveFailed).Reason)
}

func TestEventObserverSwallowsPublishErrors(t *testing.T) {
	obs := NewEventObserver(failingPublisher{}, nil)

	assert.NotPanics(t, func() {
		obs.OnDeleted(context.Background(), "m1", "alice")
	})
}

func TestObserversFanOutInOrder(t *testing.T) {
	first, second := &recordingObserver{}, &recordingObserver{}
	fan := Observers{first, second, NewLoggingObserver(zap.NewNop())}
	m := &aggregates.MindMap{MapID: "m1", OwnerID: "alice", Version: 1}

	fan.OnLoaded(context.Background(), m)
	fan.OnSaved(context.Background(), m, true)
	fan.OnSaveFailed(context.Background(), "m1", "alice", errors.New("x"))
	fan.OnDeleted(context.Background(), "m1", "alice")

	for _, r := range []*recordingObserver{first, second} {
		assert.Equal(t, []int{1}, r.savedVersions())
		assert.Equal(t, 1, r.failures())
		assert.Len(t, r.loaded, 1)
		assert.Len(t, r.deleted, 1)
	}
}
