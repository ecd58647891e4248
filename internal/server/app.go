// Package server initializes and runs the main application server.
// It opens the database, applies migrations, wires the services, and runs
// the cleanup scheduler and the metrics endpoint until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arkhipovds/studiodesk/internal/logging"
	"github.com/arkhipovds/studiodesk/internal/server/blob"
	"github.com/arkhipovds/studiodesk/internal/server/config"
	"github.com/arkhipovds/studiodesk/internal/server/repositories/repomanager"
	"github.com/arkhipovds/studiodesk/internal/server/services"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	cleanup   *services.CleanupService
	uploads   *services.UploadService
	customers *services.CustomerService
	settings  *services.SettingsService

	billPayments   *services.BillPaymentService
	moneyTransfers *services.MoneyTransferService
	serviceOrders  *services.ServiceOrderService
	photoOrders    *services.PhotoOrderService
}

// NewApp builds the application: database, blob store, and services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	clock := timex.SystemClock{}

	customers := services.NewCustomerService(db, manager, clock)

	app := &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		customers:      customers,
		uploads:        services.NewUploadService(db, manager, blobs, clock, logger),
		cleanup:        services.NewCleanupService(db, manager, blobs, clock, logger),
		settings:       services.NewSettingsService(db, manager, clock),
		billPayments:   services.NewBillPaymentService(db, manager, customers, clock),
		moneyTransfers: services.NewMoneyTransferService(db, manager, customers, clock),
		serviceOrders:  services.NewServiceOrderService(db, manager, customers, clock),
		photoOrders:    services.NewPhotoOrderService(db, manager, customers, clock, logger),
	}
	return app, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
		})
	case "local", "":
		return blob.NewLocalStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startMetricsServer(ctx context.Context) *http.Server {
	if app.config.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "metrics server failed", "error", err.Error())
		}
	}()
	return srv
}

// Run starts the background workers and blocks until shutdown.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	metricsSrv := app.startMetricsServer(ctx)
	app.cleanup.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		app.cleanup.Stop()
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				app.logger.Error(shutdownCtx, "metrics server shutdown failed", "error", err.Error())
			}
		}
		if err := app.db.Close(); err != nil {
			app.logger.Error(shutdownCtx, "db close failed", "error", err.Error())
		}
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "app stopped")
}
