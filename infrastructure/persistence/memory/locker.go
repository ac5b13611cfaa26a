package memory

import (
	"context"
	"sync"
	"time"

	"mindmap-backend/application/ports"
)

// Locker is an in-process ports.MapLocker keyed by resource name
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker creates a Locker
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]chan struct{})}
}

// Acquire blocks until the resource is free or ctx is done. The ttl only
// matters for distributed locks and is ignored here.
func (l *Locker) Acquire(ctx context.Context, resource string, ttl time.Duration) (ports.Lock, error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[resource]
		if !busy {
			ch := make(chan struct{})
			l.locks[resource] = ch
			l.mu.Unlock()
			return &lock{locker: l, resource: resource, ch: ch}, nil
		}
		l.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type lock struct {
	locker   *Locker
	resource string
	ch       chan struct{}
	once     sync.Once
}

func (k *lock) Release(ctx context.Context) error {
	k.once.Do(func() {
		k.locker.mu.Lock()
		if k.locker.locks[k.resource] == k.ch {
			delete(k.locker.locks, k.resource)
		}
		k.locker.mu.Unlock()
		close(k.ch)
	})
	return nil
}
