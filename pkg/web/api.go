package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/otomato/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

const defaultTokenTTL = 24 * time.Hour

// API serves the workflow endpoints from an in-memory Store.
type API struct {
	logger         *slog.Logger
	registry       *registry.Registry
	store          *Store
	validate       *validator.Validate
	requireAuth    bool
	staticTokens   []string
	tokenTTL       time.Duration
	requestLogging bool
}

type Option func(*API)

func WithStore(store *Store) Option {
	return func(a *API) { a.store = store }
}

// WithAuthRequired protects workflow and edge routes. Tokens issued through
// /auth/token are accepted, as are the given static tokens.
func WithAuthRequired(static ...string) Option {
	return func(a *API) {
		a.requireAuth = true
		a.staticTokens = static
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) { a.tokenTTL = ttl }
}

func WithRequestLogging() Option {
	return func(a *API) { a.requestLogging = true }
}

func NewAPI(logger *slog.Logger, registry *registry.Registry, opts ...Option) *API {
	a := &API{
		logger:   logger,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tokenTTL: defaultTokenTTL,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		a.store = NewStore()
	}

	return a
}

func (a *API) Store() *Store { return a.store }

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.logger, a.store, a.registry, a.validate, a.tokenTTL)

	app := fiber.New()
	app.Use(cors.New())

	if a.requestLogging {
		app.Use(logger.New(logger.Config{
			DisableColors: true,
		}))
	}

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/health", handlers.HealthCheck)

	auth := app.Group("/auth")
	auth.Post("/generate-payload", handlers.GenerateLoginPayload)
	auth.Post("/token", handlers.IssueToken)
	auth.Post("/verify-token", handlers.VerifyToken)
	auth.Post("/verify-contracts", handlers.VerifyContracts)

	w := app.Group("/workflows")
	e := app.Group("/edges")

	if a.requireAuth {
		w.Use(handlers.RequireToken(a.staticTokens))
		e.Use(handlers.RequireToken(a.staticTokens))
	}

	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)
	w.Post("/:id/stop", handlers.StopWorkflow)
	w.Get("/:id/session-key-permissions", handlers.GetSessionKeyPermissions)

	e.Delete("/:id", handlers.DeleteEdge)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
