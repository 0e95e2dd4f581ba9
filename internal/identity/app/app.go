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

	goredis "github.com/redis/go-redis/v9"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/claims"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/directory"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	httpapi "github.com/jcoliz/NuxtIdentity-sub000/internal/identity/http"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/obs"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/service"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	redisstore "github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store/drivers/redis"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store/drivers/sqlite"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	dir      *directory.Memory
	signer   jwtx.Signer
	verifier jwtx.Verifier

	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. The config
// is validated first; a bad signing key or store selection aborts startup.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	obs.Init()

	signer, err := jwtx.NewSignerHS256(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256(cfg.SigningKey, cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize verifier: %w", err)
	}
	app.signer = signer
	app.verifier = obs.InstrumentVerifier(verifier)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initDirectory(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: app.cfg.RedisAddr})
		app.db = redisstore.NewStore(client, "identity")
		app.logger.Info("using redis refresh token store", "addr", app.cfg.RedisAddr)
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
		app.logger.Info("using sqlite refresh token store", "file", app.cfg.DatabaseFile)
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply store migrations: %w", err)
	}
	return nil
}

func (app *Application) initDirectory() error {
	app.dir = directory.NewMemory()

	if app.cfg.SeedUser == "" {
		return nil
	}

	user, err := app.dir.Seed(
		app.cfg.SeedUser,
		app.cfg.SeedEmail,
		app.cfg.SeedPassword,
		[]string{app.cfg.SeedRole},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}
	app.dir.SetRoleClaims(app.cfg.SeedRole, []domain.ClaimEntry{
		{Type: "permission", Value: "users:read"},
		{Type: "permission", Value: "users:write"},
	})

	app.logger.Info("seeded directory user", "user_id", user.ID, "role", app.cfg.SeedRole)
	return nil
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:      app.db,
		Directory:  app.dir,
		Aggregator: claims.NewAggregator(app.dir),
		Signer:     app.signer,
		Refresh:    &service.RefreshService{Store: app.db, TTL: app.cfg.RefreshTTL},
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.sessionService,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
