// Package server initializes and runs the garagebook API server.
// It opens the database, applies migrations, wires services into the HTTP
// surface and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/garagebook/internal/logging"
	"github.com/dmitrijs2005/garagebook/internal/server/auth"
	"github.com/dmitrijs2005/garagebook/internal/server/config"
	"github.com/dmitrijs2005/garagebook/internal/server/exports"
	"github.com/dmitrijs2005/garagebook/internal/server/httpapi"
	"github.com/dmitrijs2005/garagebook/internal/server/metrics"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/garagebook/internal/server/services"
)

// Seams for tests.
var (
	openDB                = repomanager.OpenDB
	newRepositoryManager  = repomanager.NewPostgresRepositoryManager
	newExportUploader     = func(ctx context.Context, c *config.Config) (exports.Uploader, error) { return exports.NewS3Uploader(ctx, c) }
	insecureDefaultSecret = "secretKey"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	if c.SecretKey == insecureDefaultSecret {
		logger.Warn(ctx, "using the built-in development secret key; set -s or secret_key in production")
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), c.TokenValidityDuration)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	accounts := services.NewAccountService(db, rm, auth.NewPasswordHasher(), codec, m)
	vehicles := services.NewVehicleService(db, rm, m)

	deps := httpapi.Deps{
		Accounts:          accounts,
		Vehicles:          vehicles,
		Tokens:            codec,
		Metrics:           m,
		Health:            db.PingContext,
		Logger:            logger,
		AuthRateLimit:     c.AuthRateLimit,
		TrustProxyHeaders: c.TrustProxyHeaders,
	}

	if c.ExportEnabled() {
		up, err := newExportUploader(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("export init error: %w", err)
		}
		deps.Exports = services.NewExportService(vehicles, up)
	} else {
		logger.Info(ctx, "record export disabled: no bucket configured")
	}

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		handler: httpapi.NewRouter(deps),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.handler)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
