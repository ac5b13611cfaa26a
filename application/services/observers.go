package services

import (
	"context"
	"time"

	"mindmap-backend/application/ports"
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/events"

	"go.uber.org/zap"
)

// Observers fans notifications out to every member in order
type Observers []ports.GraphObserver

func (o Observers) OnLoaded(ctx context.Context, m *aggregates.MindMap) {
	for _, obs := range o {
		obs.OnLoaded(ctx, m)
	}
}

func (o Observers) OnSaved(ctx context.Context, m *aggregates.MindMap, created bool) {
	for _, obs := range o {
		obs.OnSaved(ctx, m, created)
	}
}

func (o Observers) OnSaveFailed(ctx context.Context, mapID valueobjects.MapID, ownerID string, err error) {
	for _, obs := range o {
		obs.OnSaveFailed(ctx, mapID, ownerID, err)
	}
}

func (o Observers) OnDeleted(ctx context.Context, mapID valueobjects.MapID, ownerID string) {
	for _, obs := range o {
		obs.OnDeleted(ctx, mapID, ownerID)
	}
}

// LoggingObserver writes persistence outcomes to the log
type LoggingObserver struct {
	logger *zap.Logger
}

// NewLoggingObserver creates a LoggingObserver
func NewLoggingObserver(logger *zap.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

func (l *LoggingObserver) OnLoaded(ctx context.Context, m *aggregates.MindMap) {
	l.logger.Info("Mind map loaded",
		zap.String("mapID", m.MapID.String()),
		zap.String("ownerID", m.OwnerID),
		zap.Int("version", m.Version),
	)
}

func (l *LoggingObserver) OnSaved(ctx context.Context, m *aggregates.MindMap, created bool) {
	l.logger.Info("Mind map saved",
		zap.String("mapID", m.MapID.String()),
		zap.String("ownerID", m.OwnerID),
		zap.Int("version", m.Version),
		zap.Bool("created", created),
	)
}

func (l *LoggingObserver) OnSaveFailed(ctx context.Context, mapID valueobjects.MapID, ownerID string, err error) {
	l.logger.Error("Mind map save failed",
		zap.String("mapID", mapID.String()),
		zap.String("ownerID", ownerID),
		zap.Error(err),
	)
}

func (l *LoggingObserver) OnDeleted(ctx context.Context, mapID valueobjects.MapID, ownerID string) {
	l.logger.Info("Mind map deleted",
		zap.String("mapID", mapID.String()),
		zap.String("ownerID", ownerID),
	)
}

// EventObserver turns persistence outcomes into domain events. Publishing
// failures are logged and never reach the caller.
type EventObserver struct {
	publisher ports.EventPublisher
	now       func() time.Time
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEventObserver creates an EventObserver
func NewEventObserver(publisher ports.EventPublisher, logger *zap.Logger) *EventObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventObserver{
		publisher: publisher,
		now:       time.Now,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

func (e *EventObserver) OnLoaded(ctx context.Context, m *aggregates.MindMap) {
	e.publish(ctx, events.NewMindMapLoaded(m.MapID, m.OwnerID, m.Version, len(m.Nodes), len(m.Edges), e.now()))
}

func (e *EventObserver) OnSaved(ctx context.Context, m *aggregates.MindMap, created bool) {
	e.publish(ctx, events.NewMindMapSaved(m.MapID, m.OwnerID, m.Version, len(m.Nodes), len(m.Edges), created, e.now()))
}

func (e *EventObserver) OnSaveFailed(ctx context.Context, mapID valueobjects.MapID, ownerID string, err error) {
	e.publish(ctx, events.NewMindMapSaveFailed(mapID, ownerID, err.Error(), e.now()))
}

func (e *EventObserver) OnDeleted(ctx context.Context, mapID valueobjects.MapID, ownerID string) {
	e.publish(ctx, events.NewMindMapDeleted(mapID, ownerID, e.now()))
}

func (e *EventObserver) publish(ctx context.Context, event events.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("mapID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
