package rest

import (
	"context"
	"net/http"
	"time"

	"mindmap-backend/application/commands/bus"
	querybus "mindmap-backend/application/queries/bus"
	"mindmap-backend/interfaces/http/rest/handlers"
	"mindmap-backend/interfaces/http/rest/middleware"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Options configures the router
type Options struct {
	Auth        middleware.AuthConfig
	CORSOrigins []string
	EnableCORS  bool
	// Metrics is served on /metrics and fed by every request when set
	Metrics *observability.Collector
	Ready   ReadinessCheck
	Debug   bool
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only set it behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	opts       Options
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		opts:       opts,
		errors:     pkgerrors.NewErrorHandler(logger, opts.Debug),
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	if rt.opts.TrustProxyHeaders {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Metrics != nil {
		router.Use(middleware.Metrics(rt.opts.Metrics))
	}

	if rt.opts.EnableCORS {
		origins := rt.opts.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: !containsWildcard(origins),
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	mapHandler := handlers.NewMapHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
	edgeHandler := handlers.NewEdgeHandler(rt.commandBus, rt.errors, rt.logger)
	accountHandler := handlers.NewAccountHandler(rt.queryBus, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.opts.Auth, rt.errors, rt.logger))

		r.Get("/plan", accountHandler.GetPlan)
		r.Post("/classify", accountHandler.Classify)

		r.Route("/maps", func(r chi.Router) {
			r.Get("/", mapHandler.ListMaps)
			r.Post("/", mapHandler.CreateMap)

			r.Route("/{mapID}", func(r chi.Router) {
				r.Get("/", mapHandler.GetMap)
				r.Delete("/", mapHandler.DeleteMap)
				r.Post("/save", mapHandler.SaveMap)
				r.Get("/export", mapHandler.ExportMap)
				r.Post("/import", mapHandler.ImportMap)
				r.Post("/undo", mapHandler.Undo)
				r.Post("/redo", mapHandler.Redo)

				r.Post("/nodes", nodeHandler.AddNode)
				r.Route("/nodes/{nodeID}", func(r chi.Router) {
					r.Get("/", nodeHandler.GetNode)
					r.Patch("/", nodeHandler.UpdateNode)
					r.Delete("/", nodeHandler.DeleteNode)
					r.Post("/drag", nodeHandler.DragNode)
					r.Post("/expand", nodeHandler.ExpandNode)
				})

				r.Post("/edges", edgeHandler.CreateEdge)
				r.Delete("/edges/{edgeID}", edgeHandler.DeleteEdge)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck runs the configured check with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
