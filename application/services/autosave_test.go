package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mindmap-backend/domain/core/aggregates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesTriggers(t *testing.T) {
	var runs int32
	d := NewDebouncer(30*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, d.Pending())
}

func TestDebouncerFlushRunsPendingNow(t *testing.T) {
	var runs int32
	d := NewDebouncer(time.Hour, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	assert.False(t, d.Flush(context.Background()), "nothing pending")

	d.Trigger()
	assert.True(t, d.Pending())
	assert.True(t, d.Flush(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, d.Pending())
}

func TestDebouncerCancelAndStop(t *testing.T) {
	var runs int32
	d := NewDebouncer(10*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	d.Trigger()
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	d.Stop()
	d.Trigger()
	assert.False(t, d.Pending())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
}

func TestDebouncerRunsNeverOverlap(t *testing.T) {
	var (
		active  int32
		overlap int32
		runs    int32
	)
	d := NewDebouncer(time.Millisecond, func(ctx context.Context) {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&runs, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Trigger()
			d.Flush(context.Background())
		}()
	}
	wg.Wait()
	d.Flush(context.Background())

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
}

func TestAutosaverRecordsOutcome(t *testing.T) {
	fail := errors.New("store down")
	var calls int32
	a := NewAutosaver(time.Hour, 0, func(ctx context.Context) (*aggregates.MindMap, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, fail
		}
		return &aggregates.MindMap{Version: 2}, nil
	}, nil)

	a.Schedule()
	err := a.Flush(context.Background())
	require.ErrorIs(t, err, fail)
	assert.ErrorIs(t, a.LastSaveError(), fail)
	assert.Nil(t, a.LastSaved())

	// failures are retried on the next cycle only
	assert.False(t, a.Pending())

	a.Schedule()
	require.NoError(t, a.Flush(context.Background()))
	assert.NoError(t, a.LastSaveError())
	assert.Equal(t, 2, a.LastSaved().Version)
	assert.Equal(t, 2, a.Runs())
}

func TestAutosaverAppliesTimeout(t *testing.T) {
	a := NewAutosaver(time.Hour, 10*time.Millisecond, func(ctx context.Context) (*aggregates.MindMap, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil)

	a.Schedule()
	err := a.Flush(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
