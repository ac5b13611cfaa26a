package di

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mindmap-backend/application/commands/bus"
	commandhandlers "mindmap-backend/application/commands/handlers"
	"mindmap-backend/application/ports"
	querybus "mindmap-backend/application/queries/bus"
	queryhandlers "mindmap-backend/application/queries/handlers"
	"mindmap-backend/application/services"
	"mindmap-backend/domain/classifier"
	domainconfig "mindmap-backend/domain/config"
	"mindmap-backend/infrastructure/cache"
	"mindmap-backend/infrastructure/config"
	"mindmap-backend/infrastructure/messaging/eventbridge"
	"mindmap-backend/infrastructure/persistence/dynamodb"
	"mindmap-backend/infrastructure/persistence/memory"
	"mindmap-backend/infrastructure/suggestion"
	"mindmap-backend/interfaces/http/rest"
	"mindmap-backend/interfaces/http/rest/middleware"
	"mindmap-backend/pkg/auth"
	"mindmap-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

const (
	serviceName = "mindmap-backend"

	// developmentSecret signs tokens when JWT_SECRET is unset outside production
	developmentSecret = "development-secret-change-in-production"

	ipRequestsPerMinute   = 300
	userRequestsPerMinute = 600
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = level
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideDomainConfig applies the configured tunables to the environment's
// domain defaults
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)
	dc.HistoryLimit = cfg.HistoryLimit
	dc.AutosaveDebounce = cfg.AutosaveDebounce
	dc.FreeMapLimit = cfg.FreeMapLimit
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return dc, nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("mindmap")
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMindMapStore picks the configured store backend
func ProvideMindMapStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) ports.MindMapStore {
	if cfg.StoreBackend == config.StoreDynamoDB {
		return dynamodb.NewMindMapStore(client, cfg.DynamoDBTable, metrics, tracer, logger)
	}
	logger.Warn("Using the in-memory store; maps are lost on restart")
	return memory.NewStore()
}

// ProvideMapLocker creates the per-map lock matching the store backend
func ProvideMapLocker(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.MapLocker {
	if cfg.StoreBackend == config.StoreDynamoDB {
		return dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, "", logger)
	}
	return memory.NewLocker()
}

// ProvideEventPublisher creates the EventBridge publisher. Without a bus
// name no events are published.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideCache creates the in-memory cache shared by suggestions and queries
func ProvideCache(cfg *config.Config, metrics *observability.Collector) *cache.InMemoryCache {
	return cache.NewInMemoryCache(cfg.SuggestionCacheTTL, metrics)
}

// ProvideSuggestionService builds the OpenRouter client behind a circuit
// breaker and a cache. Without an API key expansions use placeholders.
func ProvideSuggestionService(cfg *config.Config, c ports.Cache, logger *zap.Logger) ports.SuggestionService {
	if cfg.OpenRouter.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set; expansions fall back to placeholder concepts")
		return nil
	}
	client := suggestion.New(suggestion.Config{
		BaseURL: cfg.OpenRouter.BaseURL,
		APIKey:  cfg.OpenRouter.APIKey,
		Model:   cfg.OpenRouter.Model,
		Referer: cfg.OpenRouter.Referer,
		Title:   cfg.OpenRouter.Title,
		Timeout: cfg.SuggestionTimeout,
	}, logger)
	breaker := suggestion.NewBreakerService(client, suggestion.DefaultBreakerConfig(), logger)
	return suggestion.NewCachedService(breaker, c, cfg.SuggestionCacheTTL, logger)
}

// ProvideExpansionLimiter limits expansions per owner
func ProvideExpansionLimiter(cfg *config.Config) ports.ExpansionLimiter {
	return auth.NewExpansionLimiter(cfg.ExpansionsPerMinute)
}

// ProvidePlanProvider creates the plan gate
func ProvidePlanProvider(cfg *config.Config, store ports.MindMapStore) ports.PlanProvider {
	return services.NewStorePlanProvider(store, cfg.FreeMapLimit, cfg.PremiumOwners)
}

// ProvideGraphObserver logs persistence outcomes and forwards them as events
func ProvideGraphObserver(publisher ports.EventPublisher, logger *zap.Logger) ports.GraphObserver {
	observers := services.Observers{services.NewLoggingObserver(logger)}
	if publisher != nil {
		observers = append(observers, services.NewEventObserver(publisher, logger))
	}
	return observers
}

// ProvidePersistenceAdapter creates the persistence adapter
func ProvidePersistenceAdapter(
	store ports.MindMapStore,
	dc *domainconfig.DomainConfig,
	locker ports.MapLocker,
	plans ports.PlanProvider,
	observer ports.GraphObserver,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.PersistenceAdapter {
	return services.NewPersistenceAdapter(store, dc, logger,
		services.WithLocker(locker),
		services.WithPlanProvider(plans),
		services.WithObserver(observer),
		services.WithMetrics(metrics),
		services.WithTracer(tracer),
	)
}

// ProvideClassifier returns the built-in concept classifier
func ProvideClassifier() *classifier.Classifier {
	return classifier.Default()
}

// ProvideExpansionPipeline creates the expansion pipeline
func ProvideExpansionPipeline(
	cfg *config.Config,
	suggestions ports.SuggestionService,
	cls *classifier.Classifier,
	limiter ports.ExpansionLimiter,
	publisher ports.EventPublisher,
	dc *domainconfig.DomainConfig,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.ExpansionPipeline {
	return services.NewExpansionPipeline(suggestions, cls, limiter, publisher, dc,
		services.ExpansionOptions{
			StrictDedup: cfg.StrictDedup,
			Timeout:     cfg.SuggestionTimeout,
		},
		metrics, tracer, logger)
}

// ProvideWorkspace creates the session workspace
func ProvideWorkspace(
	persistence *services.PersistenceAdapter,
	pipeline *services.ExpansionPipeline,
	dc *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.Workspace {
	return services.NewWorkspace(persistence, pipeline, nil, dc, services.WorkspaceSettings{
		HistoryLimit:  dc.HistoryLimit,
		AutosaveDelay: dc.AutosaveDebounce,
	}, metrics, logger)
}

// ProvideConfigWatcher hot reloads the config file in development and
// pushes engine tunables into the workspace
func ProvideConfigWatcher(cfg *config.Config, workspace *services.Workspace, logger *zap.Logger) (*config.Watcher, error) {
	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(next *config.Config) {
		workspace.Apply(WorkspaceSettingsFrom(next))
	})
	return watcher, nil
}

// WorkspaceSettingsFrom extracts the workspace tunables of a configuration
func WorkspaceSettingsFrom(cfg *config.Config) services.WorkspaceSettings {
	return services.WorkspaceSettings{
		HistoryLimit:  cfg.HistoryLimit,
		AutosaveDelay: cfg.AutosaveDebounce,
	}
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(workspace *services.Workspace, metrics *observability.Collector, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(&zapLoggerAdapter{logger}),
		bus.MetricsMiddleware(metrics),
	)
	if err := commandhandlers.NewMindMapHandlers(workspace, logger).Register(commandBus); err != nil {
		return nil, fmt.Errorf("register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	cfg *config.Config,
	workspace *services.Workspace,
	cls *classifier.Classifier,
	c *cache.InMemoryCache,
	metrics *observability.Collector,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	handlers := queryhandlers.NewMindMapQueryHandlers(workspace, cls)
	err := handlers.Register(queryBus,
		querybus.NewCachingMiddleware(c, cfg.SuggestionCacheTTL),
		querybus.NewMetricsMiddleware(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideJWTValidator validates bearer tokens. Behind API Gateway without a
// secret, tokens are checked by the gateway and no validator is built.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsLambda {
			return nil, nil
		}
		secret = developmentSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
		Audience:      []string{cfg.JWTAudience},
	})
}

// ProvideJWTGenerator signs tokens the validator from ProvideJWTValidator
// accepts. It is used by local tooling; the API never issues tokens.
func ProvideJWTGenerator(cfg *config.Config, expiry time.Duration) (*auth.JWTGenerator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required to sign production tokens")
		}
		secret = developmentSecret
	}
	return auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
		Audience:      []string{cfg.JWTAudience},
		ExpiryTime:    expiry,
	})
}

// ProvideHTTPHandler builds the REST router
func ProvideHTTPHandler(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.JWTValidator,
	store ports.MindMapStore,
	metrics *observability.Collector,
	logger *zap.Logger,
) http.Handler {
	opts := rest.Options{
		Auth: middleware.AuthConfig{
			Validator:    validator,
			TrustGateway: cfg.IsLambda,
			IPLimiter:    auth.NewKeyedLimiter(ipRequestsPerMinute, 0),
			UserLimiter:  auth.NewKeyedLimiter(userRequestsPerMinute, 0),
		},
		EnableCORS:  cfg.EnableCORS,
		CORSOrigins: cfg.CORSOrigins,
		Ready: func(ctx context.Context) error {
			_, err := store.CountByOwner(ctx, "readiness-probe")
			return err
		},
		Debug:             cfg.IsDevelopment(),
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}
	if cfg.EnableMetrics {
		opts.Metrics = metrics
	}
	return rest.NewRouter(commandBus, queryBus, opts, logger).Setup()
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
