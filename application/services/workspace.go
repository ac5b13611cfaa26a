package services

import (
	"context"
	"sync"
	"time"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/config"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/layout"
	"mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"go.uber.org/zap"
)

// WorkspaceSettings are the tunables a running workspace can pick up
type WorkspaceSettings struct {
	HistoryLimit  int
	AutosaveDelay time.Duration
	SaveTimeout   time.Duration
}

// Workspace keeps the open sessions, one per owner and map
type Workspace struct {
	persistence *PersistenceAdapter
	pipeline    *ExpansionPipeline
	layout      *layout.Engine
	cfg         *config.DomainConfig
	metrics     *observability.Collector
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	settings WorkspaceSettings
}

// NewWorkspace creates a workspace
func NewWorkspace(
	persistence *PersistenceAdapter,
	pipeline *ExpansionPipeline,
	engine *layout.Engine,
	cfg *config.DomainConfig,
	settings WorkspaceSettings,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Workspace {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if engine == nil {
		engine = layout.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.HistoryLimit == 0 {
		settings.HistoryLimit = cfg.HistoryLimit
	}
	if settings.AutosaveDelay == 0 {
		settings.AutosaveDelay = cfg.AutosaveDebounce
	}
	return &Workspace{
		persistence: persistence,
		pipeline:    pipeline,
		layout:      engine,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger,
		sessions:    make(map[string]*Session),
		settings:    settings,
	}
}

// CreateMap stores a new map for the owner and opens it
func (w *Workspace) CreateMap(ctx context.Context, ownerID, title, description string) (*Session, error) {
	m, err := w.persistence.Create(ctx, ownerID, title, description)
	if err != nil {
		return nil, err
	}
	return w.attach(ownerID, m)
}

// ListMaps returns the owner's stored maps, newest first
func (w *Workspace) ListMaps(ctx context.Context, ownerID string) ([]aggregates.MindMapSummary, error) {
	maps, err := w.persistence.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]aggregates.MindMapSummary, 0, len(maps))
	for _, m := range maps {
		out = append(out, m.Summary())
	}
	return out, nil
}

// Plan returns the owner's plan status
func (w *Workspace) Plan(ctx context.Context, ownerID string) (ports.PlanStatus, error) {
	return w.persistence.Plan(ctx, ownerID)
}

// Open returns the session of a map, loading it from the store if needed.
// A local-only owner gets a fresh map; a stored map that does not exist is
// NotFound.
func (w *Workspace) Open(ctx context.Context, ownerID string, mapID valueobjects.MapID) (*Session, error) {
	if s := w.lookup(ownerID, mapID); s != nil {
		return s, nil
	}

	if ownerID == "" {
		return w.register(ownerID, w.newSession(ownerID, mapID, "", 0, nil)), nil
	}

	m, err := w.persistence.Load(ctx, mapID, ownerID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewNotFoundError("mind map " + mapID.String())
	}
	return w.attach(ownerID, m)
}

// OpenOrNew opens a stored map or starts an unsaved one under mapID; the
// first save creates it
func (w *Workspace) OpenOrNew(ctx context.Context, ownerID string, mapID valueobjects.MapID) (*Session, error) {
	s, err := w.Open(ctx, ownerID, mapID)
	if errors.IsNotFound(err) {
		return w.register(ownerID, w.newSession(ownerID, mapID, "", 0, nil)), nil
	}
	return s, err
}

// Close flushes and forgets the session of a map
func (w *Workspace) Close(ctx context.Context, ownerID string, mapID valueobjects.MapID) error {
	w.mu.Lock()
	s, ok := w.sessions[sessionKey(ownerID, mapID)]
	delete(w.sessions, sessionKey(ownerID, mapID))
	w.mu.Unlock()
	if !ok {
		return nil
	}
	w.metrics.SessionClosed()
	return s.Close(ctx)
}

// DeleteMap drops the session without saving and deletes the stored map
func (w *Workspace) DeleteMap(ctx context.Context, ownerID string, mapID valueobjects.MapID) error {
	w.mu.Lock()
	s, ok := w.sessions[sessionKey(ownerID, mapID)]
	delete(w.sessions, sessionKey(ownerID, mapID))
	w.mu.Unlock()
	if ok {
		s.Discard()
		w.metrics.SessionClosed()
	}
	if ownerID == "" {
		return nil
	}
	return w.persistence.Delete(ctx, mapID, ownerID)
}

// Expand runs the expansion pipeline on a node of an open map
func (w *Workspace) Expand(ctx context.Context, ownerID string, mapID valueobjects.MapID, nodeID valueobjects.NodeID) (*ExpansionResult, error) {
	s, err := w.Open(ctx, ownerID, mapID)
	if err != nil {
		return nil, err
	}
	return w.pipeline.Expand(ctx, s, nodeID)
}

// FlushAll saves every session with pending changes
func (w *Workspace) FlushAll(ctx context.Context) error {
	var firstErr error
	for _, s := range w.snapshotSessions() {
		if err := s.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown flushes and closes every session
func (w *Workspace) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	sessions := w.sessions
	w.sessions = make(map[string]*Session)
	w.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		w.metrics.SessionClosed()
	}
	return firstErr
}

// Apply changes the settings for open and future sessions
func (w *Workspace) Apply(settings WorkspaceSettings) {
	w.mu.Lock()
	if settings.HistoryLimit >= 2 {
		w.settings.HistoryLimit = settings.HistoryLimit
	}
	if settings.AutosaveDelay > 0 {
		w.settings.AutosaveDelay = settings.AutosaveDelay
	}
	if settings.SaveTimeout > 0 {
		w.settings.SaveTimeout = settings.SaveTimeout
	}
	current := w.settings
	w.mu.Unlock()

	for _, s := range w.snapshotSessions() {
		s.Configure(current.HistoryLimit, current.AutosaveDelay)
	}
	w.logger.Info("Workspace settings applied",
		zap.Int("historyLimit", current.HistoryLimit),
		zap.Duration("autosaveDelay", current.AutosaveDelay),
	)
}

// Settings returns the current settings
func (w *Workspace) Settings() WorkspaceSettings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// SessionCount returns the number of open sessions
func (w *Workspace) SessionCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

func (w *Workspace) attach(ownerID string, m *aggregates.MindMap) (*Session, error) {
	g, err := aggregates.ReconstructGraph(w.cfg, m.Data())
	if err != nil {
		return nil, errors.Wrapf(err, "stored map %s is invalid", m.MapID)
	}
	return w.register(ownerID, w.newSession(ownerID, m.MapID, m.Title, m.Version, g)), nil
}

func (w *Workspace) newSession(ownerID string, mapID valueobjects.MapID, title string, version int, g *aggregates.Graph) *Session {
	settings := w.Settings()
	return NewSession(SessionOptions{
		MapID:         mapID,
		OwnerID:       ownerID,
		Title:         title,
		Version:       version,
		Graph:         g,
		Config:        w.cfg,
		Layout:        w.layout,
		HistoryLimit:  settings.HistoryLimit,
		Persistence:   w.persistence,
		AutosaveDelay: settings.AutosaveDelay,
		SaveTimeout:   settings.SaveTimeout,
		Metrics:       w.metrics,
		Logger:        w.logger,
	})
}

// register keeps the first session stored under the key; a concurrent
// loser is discarded
func (w *Workspace) register(ownerID string, s *Session) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := sessionKey(ownerID, s.MapID())
	if existing, ok := w.sessions[key]; ok {
		s.Discard()
		return existing
	}
	w.sessions[key] = s
	w.metrics.SessionOpened()
	return s
}

func (w *Workspace) lookup(ownerID string, mapID valueobjects.MapID) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessions[sessionKey(ownerID, mapID)]
}

func (w *Workspace) snapshotSessions() []*Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	return out
}

func sessionKey(ownerID string, mapID valueobjects.MapID) string {
	return ownerID + "/" + mapID.String()
}
