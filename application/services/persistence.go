package services

import (
	"context"
	"fmt"
	"time"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/config"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"go.uber.org/zap"
)

const defaultLockTTL = 10 * time.Second

// PersistenceAdapter moves mind maps between sessions and the store
type PersistenceAdapter struct {
	store    ports.MindMapStore
	locker   ports.MapLocker
	plans    ports.PlanProvider
	observer ports.GraphObserver
	cfg      *config.DomainConfig
	metrics  *observability.Collector
	tracer   *observability.Tracer
	logger   *zap.Logger
	now      func() time.Time
	lockTTL  time.Duration
}

// PersistenceOption configures a PersistenceAdapter
type PersistenceOption func(*PersistenceAdapter)

// WithLocker serializes saves of the same map
func WithLocker(l ports.MapLocker) PersistenceOption {
	return func(p *PersistenceAdapter) { p.locker = l }
}

// WithPlanProvider gates map creation
func WithPlanProvider(pp ports.PlanProvider) PersistenceOption {
	return func(p *PersistenceAdapter) { p.plans = pp }
}

// WithObserver receives load and save notifications
func WithObserver(o ports.GraphObserver) PersistenceOption {
	return func(p *PersistenceAdapter) { p.observer = o }
}

// WithMetrics records save outcomes
func WithMetrics(m *observability.Collector) PersistenceOption {
	return func(p *PersistenceAdapter) { p.metrics = m }
}

// WithTracer wraps store calls in subsegments
func WithTracer(t *observability.Tracer) PersistenceOption {
	return func(p *PersistenceAdapter) { p.tracer = t }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) PersistenceOption {
	return func(p *PersistenceAdapter) { p.now = now }
}

// NewPersistenceAdapter creates the adapter
func NewPersistenceAdapter(store ports.MindMapStore, cfg *config.DomainConfig, logger *zap.Logger, opts ...PersistenceOption) *PersistenceAdapter {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PersistenceAdapter{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		observer: Observers{},
		now:      time.Now,
		lockTTL:  defaultLockTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load returns the stored map, or nil when there is none
func (p *PersistenceAdapter) Load(ctx context.Context, mapID valueobjects.MapID, ownerID string) (*aggregates.MindMap, error) {
	if ownerID == "" {
		return nil, nil
	}

	var m *aggregates.MindMap
	err := p.tracer.TraceFunction(ctx, "mindmap.load", func(ctx context.Context) error {
		var err error
		m, err = p.store.Get(ctx, ownerID, mapID)
		return err
	})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.observer.OnLoaded(ctx, m)
	return m, nil
}

// Save upserts the graph of a map. An existing record gets the new nodes and
// edges and exactly one more version; otherwise version 1 is created.
func (p *PersistenceAdapter) Save(ctx context.Context, mapID valueobjects.MapID, ownerID string, data aggregates.GraphData) (*aggregates.MindMap, error) {
	if ownerID == "" {
		return nil, errors.NewValidationError("local-only maps are not persisted").WithCode(errors.CodeLocalOnly)
	}

	m, created, err := p.save(ctx, mapID, ownerID, data)
	if err != nil {
		p.metrics.RecordSave("failed")
		p.logger.Warn("Failed to save mind map",
			zap.String("mapID", mapID.String()),
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		p.observer.OnSaveFailed(ctx, mapID, ownerID, err)
		return nil, err
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	p.metrics.RecordSave(outcome)
	p.logger.Debug("Mind map saved",
		zap.String("mapID", mapID.String()),
		zap.Int("version", m.Version),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("edges", len(m.Edges)),
	)
	p.observer.OnSaved(ctx, m, created)
	return m, nil
}

func (p *PersistenceAdapter) save(ctx context.Context, mapID valueobjects.MapID, ownerID string, data aggregates.GraphData) (*aggregates.MindMap, bool, error) {
	if p.locker != nil {
		lock, err := p.locker.Acquire(ctx, lockResource(ownerID, mapID), p.lockTTL)
		if err != nil {
			return nil, false, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("Failed to release map lock", zap.String("mapID", mapID.String()), zap.Error(err))
			}
		}()
	}

	var (
		m       *aggregates.MindMap
		created bool
	)
	err := p.tracer.TraceFunction(ctx, "mindmap.save", func(ctx context.Context) error {
		existing, err := p.store.Get(ctx, ownerID, mapID)
		switch {
		case err == nil:
			existing.ApplySave(data, p.now())
			m = existing
			return p.store.Update(ctx, m)
		case errors.IsNotFound(err):
			m = aggregates.NewMindMap(p.cfg, mapID, ownerID, "", "", data, p.now())
			created = true
			return p.store.Create(ctx, m)
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}
	return m, created, nil
}

// Create makes a new map for the owner when the plan allows it
func (p *PersistenceAdapter) Create(ctx context.Context, ownerID, title, description string) (*aggregates.MindMap, error) {
	if ownerID == "" {
		return nil, errors.NewValidationError("local-only maps are not persisted").WithCode(errors.CodeLocalOnly)
	}

	if p.plans != nil {
		status, err := p.plans.Status(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if !status.CanCreate {
			return nil, errors.NewForbiddenError(
				fmt.Sprintf("map limit of %d reached for the %s plan", status.Limit, status.Plan)).
				WithCode(errors.CodeMapLimitReached).
				WithDetail("limit", status.Limit).
				WithDetail("current", status.CurrentCount)
		}
	}

	m := aggregates.NewMindMap(p.cfg, valueobjects.NewMapID(), ownerID, title, description, aggregates.GraphData{}, p.now())
	if err := p.store.Create(ctx, m); err != nil {
		return nil, err
	}
	p.metrics.RecordSave("created")
	p.observer.OnSaved(ctx, m, true)
	return m, nil
}

// List returns the owner's maps, most recently updated first
func (p *PersistenceAdapter) List(ctx context.Context, ownerID string) ([]*aggregates.MindMap, error) {
	if ownerID == "" {
		return []*aggregates.MindMap{}, nil
	}
	return p.store.ListByOwner(ctx, ownerID)
}

// Delete removes a stored map
func (p *PersistenceAdapter) Delete(ctx context.Context, mapID valueobjects.MapID, ownerID string) error {
	if ownerID == "" {
		return errors.NewValidationError("local-only maps are not persisted").WithCode(errors.CodeLocalOnly)
	}
	if err := p.store.Delete(ctx, ownerID, mapID); err != nil {
		return err
	}
	p.observer.OnDeleted(ctx, mapID, ownerID)
	return nil
}

// Plan returns the owner's plan status
func (p *PersistenceAdapter) Plan(ctx context.Context, ownerID string) (ports.PlanStatus, error) {
	if p.plans == nil {
		return ports.PlanStatus{Plan: "unlimited", CanCreate: true, Limit: -1}, nil
	}
	return p.plans.Status(ctx, ownerID)
}

func lockResource(ownerID string, mapID valueobjects.MapID) string {
	return fmt.Sprintf("MAP#%s#%s", ownerID, mapID)
}
