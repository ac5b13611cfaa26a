package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/infrastructure/persistence/memory"
	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdapter(t *testing.T) (*PersistenceAdapter, *memory.Store, *recordingObserver) {
	t.Helper()
	store := memory.NewStore()
	obs := &recordingObserver{}
	adapter := NewPersistenceAdapter(store, nil, zap.NewNop(),
		WithLocker(memory.NewLocker()),
		WithObserver(obs),
		WithPlanProvider(NewStorePlanProvider(store, 2, []string{"vip"})),
	)
	return adapter, store, obs
}

func twoNodeData() aggregates.GraphData {
	return aggregates.GraphData{
		Nodes: []entities.NodeDocument{
			{ID: "1", Label: "Central Idea", Size: 1.5, Color: "#667eea"},
			{ID: "2", Label: "Child", X: 3, Size: 1, Color: "#123456"},
		},
		Edges: []entities.EdgeDocument{{ID: "1-2", Source: "1", Target: "2"}},
	}
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	// Arrange
	ctx := context.Background()
	adapter, store, obs := newTestAdapter(t)
	mapID := valueobjects.MapID("map-1")

	// Act
	first, err := adapter.Save(ctx, mapID, "alice", twoNodeData())
	require.NoError(t, err)
	second, err := adapter.Save(ctx, mapID, "alice", aggregates.GraphData{Nodes: twoNodeData().Nodes[:1]})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "Untitled Mind Map", first.Title)
	assert.Equal(t, 2, second.Version)
	assert.Len(t, second.Nodes, 1)
	assert.Empty(t, second.Edges)

	stored, err := store.Get(ctx, "alice", mapID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, []int{1, 2}, obs.savedVersions())
	assert.Equal(t, []bool{true, false}, obs.created)
}

func TestSaveSeedsCentralNodeForEmptyCreate(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	m, err := adapter.Save(context.Background(), "map-2", "alice", aggregates.GraphData{})
	require.NoError(t, err)

	require.Len(t, m.Nodes, 1)
	assert.Equal(t, entities.NodeDocument{ID: "1", Label: "Central Idea", Size: 1.5, Color: "#667eea"}, m.Nodes[0])
}

func TestSaveRejectsLocalOnly(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	_, err := adapter.Save(context.Background(), "map-3", "", twoNodeData())

	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeLocalOnly))
}

func TestConcurrentSavesAddOneVersionEach(t *testing.T) {
	ctx := context.Background()
	adapter, store, _ := newTestAdapter(t)
	mapID := valueobjects.MapID("busy")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adapter.Save(ctx, mapID, "alice", twoNodeData())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m, err := store.Get(ctx, "alice", mapID)
	require.NoError(t, err)
	assert.Equal(t, writers, m.Version)
}

func TestSaveFailureNotifiesObserver(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := new(MockMindMapStore)
	obs := &recordingObserver{}
	adapter := NewPersistenceAdapter(store, nil, zap.NewNop(), WithObserver(obs))
	boom := pkgerrors.NewRemoteUnavailableError("dynamodb", errors.New("timeout"))

	store.On("Get", ctx, "alice", valueobjects.MapID("m")).Return(nil, boom)

	// Act
	_, err := adapter.Save(ctx, "m", "alice", twoNodeData())

	// Assert
	assert.True(t, pkgerrors.IsRemoteUnavailable(err))
	assert.Equal(t, 1, obs.failures())
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	adapter, _, obs := newTestAdapter(t)

	m, err := adapter.Load(ctx, "missing", "alice")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = adapter.Save(ctx, "present", "alice", twoNodeData())
	require.NoError(t, err)

	m, err = adapter.Load(ctx, "present", "alice")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, twoNodeData().Nodes, m.Nodes)
	assert.Equal(t, []valueobjects.MapID{"present"}, obs.loaded)

	m, err = adapter.Load(ctx, "present", "bob")
	require.NoError(t, err)
	assert.Nil(t, m, "maps are scoped to their owner")
}

func TestCreateIsPlanGated(t *testing.T) {
	ctx := context.Background()
	adapter, _, _ := newTestAdapter(t)

	for i := 0; i < 2; i++ {
		m, err := adapter.Create(ctx, "alice", "", "")
		require.NoError(t, err)
		assert.Equal(t, "Untitled Mind Map", m.Title)
		assert.Len(t, m.Nodes, 1)
	}

	_, err := adapter.Create(ctx, "alice", "Third", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsForbidden(err))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMapLimitReached))

	for i := 0; i < 3; i++ {
		_, err := adapter.Create(ctx, "vip", "Premium", "unlimited")
		require.NoError(t, err)
	}

	status, err := adapter.Plan(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, -1, status.Limit)
	assert.Equal(t, 3, status.CurrentCount)
}

func TestListNewestFirstAndDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	obs := &recordingObserver{}
	adapter := NewPersistenceAdapter(store, nil, zap.NewNop(),
		WithObserver(obs),
		WithClock(func() time.Time { now = now.Add(time.Minute); return now }),
	)

	_, err := adapter.Save(ctx, "a", "alice", twoNodeData())
	require.NoError(t, err)
	_, err = adapter.Save(ctx, "b", "alice", twoNodeData())
	require.NoError(t, err)
	_, err = adapter.Save(ctx, "a", "alice", twoNodeData())
	require.NoError(t, err)

	maps, err := adapter.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, valueobjects.MapID("a"), maps[0].MapID)
	assert.Equal(t, valueobjects.MapID("b"), maps[1].MapID)

	require.NoError(t, adapter.Delete(ctx, "a", "alice"))
	assert.Equal(t, []valueobjects.MapID{"a"}, obs.deleted)
	assert.True(t, pkgerrors.IsNotFound(adapter.Delete(ctx, "a", "alice")))
}
