// Package server wires configuration, storage and services together and
// runs the REST API next to the gRPC health endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/mailer"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gims/internal/server/rest"
	"github.com/dmitrijs2005/gims/internal/server/services"
	"github.com/dmitrijs2005/gims/internal/server/storage"

	gs "github.com/dmitrijs2005/gims/internal/server/grpc"
)

// runner is a server that blocks until its context is cancelled.
type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	servers map[string]runner
}

// NewApp opens the database, applies migrations, connects object storage
// and builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, logger logging.Logger) (*App, error) {
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(c.PasswordHashAlgorithm, c.BcryptCost)
	if err != nil {
		return nil, err
	}

	ml, err := mailer.New(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, storage.S3Config{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("storage bucket error: %w", err)
	}

	clk := clock.Real{}
	svc := rest.Services{
		Auth:    services.NewAuthService(db, rm, c, hasher, ml, clk, logger),
		Admin:   services.NewUserAdminService(db, rm, hasher, logger),
		Assets:  services.NewAssetService(db, rm, c, blobs, clk, logger),
		Reports: services.NewReportService(db, rm, clk, logger),
	}

	return &App{
		config: c,
		logger: logger,
		db:     db,
		servers: map[string]runner{
			"rest":        rest.NewServer(c, svc, logger),
			"grpc_health": gs.NewHealthServer(c.HealthAddrGRPC, c.HealthCheckInterval, db, logger),
		},
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

// startServer runs s and cancels the whole app when it fails.
func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc, name string, s runner) {
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or any server fails, then waits for
// every server to stop and closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for name, s := range app.servers {
		name, s := name, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startServer(ctx, cancelFunc, name, s)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
