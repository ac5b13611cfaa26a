package di

import (
	"context"
	"errors"
	"net/http"

	"mindmap-backend/application/commands/bus"
	"mindmap-backend/application/ports"
	querybus "mindmap-backend/application/queries/bus"
	"mindmap-backend/application/services"
	"mindmap-backend/infrastructure/cache"
	"mindmap-backend/infrastructure/config"
	"mindmap-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      ports.MindMapStore
	Workspace  *services.Workspace
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Cache      *cache.InMemoryCache
	Metrics    *observability.Collector
	Watcher    *config.Watcher
	Handler    http.Handler
}

// Shutdown flushes pending saves and releases background resources
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.Workspace != nil {
		if err := c.Workspace.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Cache != nil {
		c.Cache.Close()
	}
	return errors.Join(errs...)
}
