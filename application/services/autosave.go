package services

import (
	"context"
	"sync"
	"time"

	"mindmap-backend/domain/core/aggregates"

	"go.uber.org/zap"
)

// Debouncer runs fn once after the last Trigger has been quiet for delay.
// At most one run is pending and runs never overlap.
type Debouncer struct {
	fn func(ctx context.Context)

	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool

	// held for the duration of a run
	running sync.Mutex
}

// NewDebouncer creates a debouncer for fn
func NewDebouncer(delay time.Duration, fn func(ctx context.Context)) *Debouncer {
	return &Debouncer{fn: fn, delay: delay}
}

// Trigger (re)schedules the pending run
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// SetDelay changes the quiet period for future triggers
func (d *Debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	d.delay = delay
	d.mu.Unlock()
}

// Pending reports whether a run is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops the pending run, if any
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Flush runs the pending task now and waits for it. It reports whether
// anything ran. Without a pending task it only waits for a run in progress.
func (d *Debouncer) Flush(ctx context.Context) bool {
	d.mu.Lock()
	had := d.cancelLocked()
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
	if had {
		d.fn(ctx)
	}
	return had
}

// Stop cancels the pending run and ignores later triggers
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Debouncer) cancelLocked() bool {
	if !d.pending {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
	d.fn(context.Background())
}

// SaveFunc stores the current state of one map
type SaveFunc func(ctx context.Context) (*aggregates.MindMap, error)

// Autosaver debounces saves of one map and remembers the last outcome
type Autosaver struct {
	save      SaveFunc
	debouncer *Debouncer
	timeout   time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	lastErr   error
	lastSaved *aggregates.MindMap
	runs      int
}

// NewAutosaver creates an autosaver calling save after delay of quiet
func NewAutosaver(delay, timeout time.Duration, save SaveFunc, logger *zap.Logger) *Autosaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Autosaver{save: save, timeout: timeout, logger: logger}
	a.debouncer = NewDebouncer(delay, a.run)
	return a
}

// Schedule restarts the quiet period
func (a *Autosaver) Schedule() {
	a.debouncer.Trigger()
}

// Pending reports whether a save is waiting
func (a *Autosaver) Pending() bool {
	return a.debouncer.Pending()
}

// SetDelay changes the quiet period
func (a *Autosaver) SetDelay(delay time.Duration) {
	a.debouncer.SetDelay(delay)
}

// Flush saves immediately if a save is pending and returns its error
func (a *Autosaver) Flush(ctx context.Context) error {
	if !a.debouncer.Flush(ctx) {
		return nil
	}
	return a.LastSaveError()
}

// Stop drops any pending save
func (a *Autosaver) Stop() {
	a.debouncer.Stop()
}

// LastSaveError returns the error of the most recent save, nil after a success
func (a *Autosaver) LastSaveError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// LastSaved returns the record written by the most recent successful save
func (a *Autosaver) LastSaved() *aggregates.MindMap {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSaved
}

// Runs returns how many saves were attempted
func (a *Autosaver) Runs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runs
}

func (a *Autosaver) run(ctx context.Context) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	saved, err := a.save(ctx)

	a.mu.Lock()
	a.runs++
	a.lastErr = err
	if err == nil {
		a.lastSaved = saved
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("Autosave failed", zap.Error(err))
	}
}
