//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"mindmap-backend/application/ports"
	"mindmap-backend/infrastructure/cache"
	"mindmap-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideTracer,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideMindMapStore,
	ProvideMapLocker,
	ProvideEventPublisher,
	ProvideCache,
	wire.Bind(new(ports.Cache), new(*cache.InMemoryCache)),
	ProvideSuggestionService,
	ProvideExpansionLimiter,
	ProvidePlanProvider,
	ProvideGraphObserver,
	ProvidePersistenceAdapter,
	ProvideClassifier,
	ProvideExpansionPipeline,
	ProvideWorkspace,
	ProvideConfigWatcher,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
