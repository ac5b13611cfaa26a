package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the YAML overlay when it changes on disk and tells
// subscribers about the new configuration. It only watches in development.
type Watcher struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)

	path    string
	delay   time.Duration
	load    func(path string) (*Config, error)
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once
	logger  *zap.Logger
}

// NewWatcher starts watching initial.ConfigFile when running in
// development with a config file. Otherwise the watcher only serves
// initial.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	return newWatcher(initial, logger, reloadDebounce)
}

func newWatcher(initial *Config, logger *zap.Logger, delay time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		config: initial,
		path:   initial.ConfigFile,
		delay:  delay,
		load:   Load,
		stopCh: make(chan struct{}),
		logger: logger,
	}

	if !initial.IsDevelopment() || initial.ConfigFile == "" {
		logger.Debug("Configuration hot reloading disabled",
			zap.String("environment", initial.Environment),
		)
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// editors replace files, so watch the directory and filter by name
	if err := fsWatcher.Add(filepath.Dir(initial.ConfigFile)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled",
		zap.String("file", initial.ConfigFile),
	)
	return w, nil
}

// Current returns the latest configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback run after every successful reload
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Stop stops watching
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	target := filepath.Clean(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.delay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// reload reads the file again; an invalid file keeps the old configuration
func (w *Watcher) reload() {
	next, err := w.load(w.path)
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	previous := w.config
	if reflect.DeepEqual(previous, next) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.config = next
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logChanges(previous, next)

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Configuration callback panicked",
						zap.Int("callback_index", i),
						zap.Any("panic", r),
					)
				}
			}()
			cb(next)
		}()
	}

	w.logger.Info("Configuration reloaded",
		zap.Int("callbacks_notified", len(callbacks)),
	)
}

func (w *Watcher) logChanges(old, next *Config) {
	changes := make([]string, 0)
	if old.HistoryLimit != next.HistoryLimit {
		changes = append(changes, fmt.Sprintf("history_limit: %d -> %d", old.HistoryLimit, next.HistoryLimit))
	}
	if old.AutosaveDebounce != next.AutosaveDebounce {
		changes = append(changes, fmt.Sprintf("autosave_debounce: %s -> %s", old.AutosaveDebounce, next.AutosaveDebounce))
	}
	if old.LogLevel != next.LogLevel {
		changes = append(changes, fmt.Sprintf("log_level: %s -> %s", old.LogLevel, next.LogLevel))
	}
	if old.ExpansionsPerMinute != next.ExpansionsPerMinute {
		changes = append(changes, fmt.Sprintf("expansions_per_minute: %d -> %d", old.ExpansionsPerMinute, next.ExpansionsPerMinute))
	}
	if len(changes) > 0 {
		w.logger.Info("Configuration changes detected", zap.Strings("changes", changes))
	}
}
