package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"forge-backend/application/registry"
	"forge-backend/infrastructure/config"
	"forge-backend/interfaces/http/rest/handlers"
	"forge-backend/interfaces/http/rest/middleware"
	ws "forge-backend/interfaces/websocket"
	"forge-backend/pkg/auth"
	"forge-backend/pkg/observability"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Registry     *registry.Service
	JWTValidator *auth.JWTValidator
	Metrics      *observability.Metrics
	WSServer     *ws.Server
	Config       *config.Config
	Logger       *zap.Logger
}

// NewRouter assembles the REST API.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	if deps.Config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.Config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Liveness and readiness stay outside auth.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	if deps.Config.EnableMetrics && deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	componentHandler := handlers.NewComponentHandler(deps.Registry, deps.Logger)
	versionHandler := handlers.NewVersionHandler(deps.Registry, deps.Logger)
	changeHandler := handlers.NewChangeHandler(deps.Registry, deps.Logger)
	graphHandler := handlers.NewGraphHandler(deps.Registry, deps.Logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Authenticate(deps.JWTValidator, deps.Logger))

		api.Route("/components", func(c chi.Router) {
			c.Post("/", componentHandler.RegisterComponent)
			c.Get("/", componentHandler.ListComponents)

			c.Route("/{componentID}", func(cc chi.Router) {
				cc.Get("/", componentHandler.GetComponent)
				cc.Put("/", componentHandler.UpdateComponent)
				cc.Delete("/", componentHandler.UnregisterComponent)
				cc.Get("/relationships", componentHandler.GetRelationships)
				cc.Get("/state-keys", componentHandler.GetRelatedStateKeys)
				cc.Get("/versions", versionHandler.GetHistory)
				cc.Post("/versions", versionHandler.CreateVersion)
				cc.Post("/revert", versionHandler.Revert)
			})
		})

		api.Post("/changes", changeHandler.ExecuteChange)
		api.Post("/changes/batch", changeHandler.ExecuteBatch)

		api.Route("/graph", func(g chi.Router) {
			g.Get("/", graphHandler.Visualize)
			g.Post("/parent-child", graphHandler.SetParentChild)
			g.Post("/dependencies", graphHandler.AddDependency)
			g.Post("/state-usage", graphHandler.TrackStateUsage)
			g.Post("/affected", graphHandler.Affected)
		})
	})

	if deps.WSServer != nil {
		r.Get("/ws", deps.WSServer.HandleConnection)
	}

	return r
}
