// Package di builds the application object graph. Construction is
// explicit and ordered; Shutdown tears things down in reverse.
package di

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appevents "forge-backend/application/events"
	"forge-backend/application/ports"
	"forge-backend/application/registry"
	"forge-backend/application/services"
	domainevents "forge-backend/domain/events"
	"forge-backend/domain/relationship"
	"forge-backend/infrastructure/config"
	"forge-backend/infrastructure/execution"
	"forge-backend/infrastructure/persistence/memory"
	"forge-backend/infrastructure/validation"
	"forge-backend/interfaces/http/rest"
	"forge-backend/interfaces/websocket"
	"forge-backend/pkg/auth"
	"forge-backend/pkg/observability"
)

// Container holds every long-lived object in the application.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store          ports.ComponentStore
	VersionManager *services.VersionManager
	Graph          *relationship.Graph
	Bus            *domainevents.Bus
	Metrics        *observability.Metrics
	Validator      ports.Validator
	Executor       ports.CodeExecutor
	Registry       *registry.Service

	JWTValidator *auth.JWTValidator
	Hub          *websocket.Hub
	WSServer     *websocket.Server
	WSListener   *appevents.WebSocketListener
}

// Options allows callers (mainly tests and embedders) to substitute the
// external collaborators before the graph is built.
type Options struct {
	// Validator overrides the default permission validator.
	Validator ports.Validator
	// Executor overrides the default local executor. The override is
	// still wrapped in the circuit breaker.
	Executor ports.CodeExecutor
}

// NewContainer builds the full object graph from configuration.
func NewContainer(cfg *config.Config, opts Options) (*Container, error) {
	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	c.Store = memory.NewComponentStore()
	c.VersionManager = services.NewVersionManager(c.Store, logger.Named("versions"))
	c.Graph = relationship.NewGraph(logger.Named("graph"))
	c.Bus = domainevents.NewBus(logger.Named("events"))
	c.Metrics = observability.NewMetrics()
	c.Bus.OnDrop(c.Metrics.EventDropped)

	c.Validator = opts.Validator
	if c.Validator == nil {
		c.Validator = validation.NewPermissionValidator(logger.Named("validator"))
	}

	inner := opts.Executor
	if inner == nil {
		inner = execution.NewLocalExecutor(logger.Named("executor"))
	}
	c.Executor = execution.NewBreakerExecutor(inner, breakerConfig(cfg), logger.Named("breaker"))

	c.Registry = registry.NewService(
		c.Store,
		c.VersionManager,
		c.Graph,
		c.Validator,
		c.Executor,
		c.Bus,
		c.Metrics,
		logger.Named("registry"),
	)

	if cfg.JWTSecret != "" {
		c.JWTValidator, err = auth.NewJWTValidator(auth.JWTConfig{
			SecretKey: cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing JWT validator: %w", err)
		}
	} else if cfg.IsProduction() {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	c.Hub = websocket.NewHub(logger.Named("ws"))
	c.WSServer = websocket.NewServer(c.Hub, logger.Named("ws"))
	c.WSListener = appevents.NewWebSocketListener(c.Bus, c.Hub, logger.Named("ws-listener"))

	return c, nil
}

// Start runs the background workers: the hub's broadcast loop and the
// bus-to-WebSocket bridge.
func (c *Container) Start() {
	go c.Hub.Run()
	c.WSListener.Start()
}

// Shutdown stops background workers and flushes the logger.
func (c *Container) Shutdown() {
	c.WSListener.Stop()
	c.Hub.Stop()
	c.Bus.Close()
	_ = c.Logger.Sync()
}

// NewRouter builds the HTTP surface from the container's components.
func (c *Container) NewRouter() chi.Router {
	return rest.NewRouter(rest.RouterDeps{
		Registry:     c.Registry,
		JWTValidator: c.JWTValidator,
		Metrics:      c.Metrics,
		WSServer:     c.WSServer,
		Config:       c.Config,
		Logger:       c.Logger.Named("http"),
	})
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		zapCfg := zap.NewDevelopmentConfig()
		if err := applyLogLevel(&zapCfg, cfg.LogLevel); err != nil {
			return nil, err
		}
		return zapCfg.Build()
	}

	zapCfg := zap.NewProductionConfig()
	if err := applyLogLevel(&zapCfg, cfg.LogLevel); err != nil {
		return nil, err
	}
	return zapCfg.Build()
}

func applyLogLevel(zapCfg *zap.Config, level string) error {
	if level == "" {
		return nil
	}
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg.Level = parsed
	return nil
}

func breakerConfig(cfg *config.Config) execution.BreakerConfig {
	bc := execution.DefaultBreakerConfig()
	if cfg.ExecutorBreakerTimeout > 0 {
		bc.Timeout = time.Duration(cfg.ExecutorBreakerTimeout) * time.Second
	}
	if cfg.ExecutorBreakerMinReqs > 0 {
		bc.MinRequests = uint32(cfg.ExecutorBreakerMinReqs)
	}
	if cfg.ExecutorFailureRatio > 0 {
		bc.FailureThreshold = cfg.ExecutorFailureRatio
	}
	return bc
}
