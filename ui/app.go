package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sheetsync/app"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
	"sheetsync/internal"
)

// Controller is the refresh controller surface the API needs
type Controller interface {
	Current() app.Status
	Refresh(ctx context.Context) (*snapshot.Snapshot, error)
	Names() []dataset.Name
	Subscribe() (<-chan app.Status, func())
}

// App serves the dashboard JSON API
type App struct {
	router     *chi.Mux
	controller Controller
	logger     *internal.Logger
	keepAlive  time.Duration
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates a new API application over controller
func NewApp(controller Controller, logger *internal.Logger) *App {
	a := &App{
		router:     chi.NewRouter(),
		controller: controller,
		logger:     logger.Named("api"),
		keepAlive:  30 * time.Second,
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	a.router.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", a.handleSnapshot)
		r.Post("/refresh", a.handleRefresh)
		r.Get("/datasets/{name}", a.handleDataset)
		r.Get("/events", a.handleEvents)

		// Screens
		r.Get("/dashboard", a.handleDashboard)
		r.Get("/donations", a.handleDonations)
		r.Get("/contacts", a.handleContacts)
		r.Get("/volunteers", a.handleVolunteers)
	})
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Server builds the HTTP server for config
func (a *App) Server(config Config) *http.Server {
	return &http.Server{
		Addr:              ":" + config.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
