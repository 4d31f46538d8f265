package container

import (
	"context"
	"fmt"

	"sheetsync/adapters/excel"
	"sheetsync/adapters/sheets"
	"sheetsync/app"
	"sheetsync/internal"
	"sheetsync/internal/config"
	"sheetsync/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	Source      ports.DatasetSource
	sheetClient *sheets.Client

	// Services shared by every screen
	Fetcher    *app.DatasetFetcher
	Loader     *app.MultiDatasetLoader
	Controller *app.RefreshController
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewLogger(cfg.LogLevel())
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initSource(); err != nil {
		return nil, fmt.Errorf("failed to initialize dataset source: %w", err)
	}
	if err := c.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Debug("container initialized: source=%s datasets=%v", cfg.Source.Kind, cfg.Datasets)
	return c, nil
}

// initSource builds the remote or local dataset source
func (c *Container) initSource() error {
	switch c.Config.Source.Kind {
	case config.SourceExcel:
		c.Source = excel.NewWorkbookSource(c.Config.Source.Workbook, c.Logger)
	case config.SourceHTTP:
		c.sheetClient = sheets.NewClient(sheets.Config{
			BaseURL:   c.Config.Endpoint.URL,
			Action:    c.Config.Endpoint.Action,
			Timeout:   c.Config.Fetch.Timeout,
			RateLimit: c.Config.Fetch.RateLimit,
		}, sheets.WithLogger(c.Logger))
		c.Source = c.sheetClient
	default:
		return fmt.Errorf("unknown source kind %q", c.Config.Source.Kind)
	}
	return nil
}

// initServices wires the fetcher, loader and refresh controller
func (c *Container) initServices() error {
	names, err := c.Config.DatasetNames()
	if err != nil {
		return err
	}

	c.Fetcher = app.NewDatasetFetcher(c.Source, c.Logger)
	c.Loader = app.NewMultiDatasetLoader(c.Fetcher, app.LoaderConfig{
		FetchTimeout:   c.Config.Fetch.Timeout,
		MaxConcurrency: c.Config.Fetch.MaxConcurrency,
	}, c.Logger)

	c.Controller, err = app.NewRefreshController(c.Loader, names, c.Logger)
	return err
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.sheetClient != nil {
		c.sheetClient.Close()
	}
	return nil
}
