package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/organicecom/marketconnect/internal/connector/gop"
	httpapi "github.com/organicecom/marketconnect/internal/connector/http"
	"github.com/organicecom/marketconnect/internal/connector/service"
	"github.com/organicecom/marketconnect/internal/connector/state"
	"github.com/organicecom/marketconnect/internal/connector/store"
	"github.com/organicecom/marketconnect/internal/connector/store/drivers/sqlite"
	"github.com/organicecom/marketconnect/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the connector service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db  store.Store
	gop *gop.Client

	authService    *service.AuthService
	catalogService *service.CatalogService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "marketconnect",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	client, err := gop.NewClient(gop.Config{
		AppKey:    cfg.AppKey,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.APIBaseURL,
		Transport: cfg.TokenTransport,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vendor client: %w", err)
	}
	app.gop = client

	app.initServices()
	app.initHTTP()

	return app, nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app.db = db
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:        app.db,
		OAuth:        app.gop,
		States:       state.New(app.cfg.StateTTL),
		AppKey:       app.cfg.AppKey,
		AuthBaseURL:  app.cfg.AuthBaseURL,
		CallbackURL:  app.cfg.CallbackURL,
		ExpiryBuffer: app.cfg.ExpiryBuffer,
	}

	app.catalogService = &service.CatalogService{
		Auth: app.authService,
		API:  app.gop,
	}
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(app.db, app.authService, app.catalogService,
		app.cfg.FrontendURL, app.logger)
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", app.cfg.Port),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("marketconnect starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return err
	}

	if err := app.db.Close(); err != nil {
		app.logger.Warn("failed to close store", "err", err)
	}

	app.logger.Info("shutdown complete")
	return nil
}
