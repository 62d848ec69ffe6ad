package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/auth"
	"github.com/example/facility-scheduler/internal/config"
	httptransport "github.com/example/facility-scheduler/internal/http"
	"github.com/example/facility-scheduler/internal/jobs"
	"github.com/example/facility-scheduler/internal/logging"
	"github.com/example/facility-scheduler/internal/metrics"
	"github.com/example/facility-scheduler/internal/persistence"
	"github.com/example/facility-scheduler/internal/persistence/jsonfile"
	"github.com/example/facility-scheduler/internal/persistence/memory"
	"github.com/example/facility-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", os.Getenv("SCHEDULER_CONFIG"), "path to a TOML configuration file")
	flag.Parse()

	if err := run(ctx, *configPath, os.Stdout); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, out)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	store, closeStore, err := openSnapshotStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			logger.Error("failed to close snapshot store", "error", cerr)
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("facility_scheduler")
	}

	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.APIKeyHashes, time.Now)
	if err != nil {
		return err
	}

	app := newApp(cfg, logger, m, time.Now)
	snapshotter := app.snapshotter(store, m)
	if err := snapshotter.Restore(ctx); err != nil {
		return err
	}
	if cfg.Storage.SnapshotSchedule != "" {
		if err := snapshotter.Start(cfg.Storage.SnapshotSchedule); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.router(authenticator, m, cfg.Metrics.Path),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("scheduler API listening", "addr", server.Addr, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			_ = snapshotter.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
	}
	if err := snapshotter.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	logger.Info("scheduler stopped")
	return nil
}

// app holds the in-memory stores and the services built on them.
type app struct {
	logger    *slog.Logger
	catalog   *memory.Catalog
	store     *memory.BookingStore
	facility  *application.FacilityService
	equipment *application.EquipmentService
	booking   *application.BookingService
}

func newApp(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, now func() time.Time) *app {
	opts := application.BookingOptions{
		Location:    cfg.Location(),
		LockTimeout: cfg.Booking.LockTimeout.Duration,
		Logger:      logger,
	}
	if m != nil {
		opts.Metrics = m
	}

	catalog := memory.NewCatalog()
	store := memory.NewBookingStore()
	booking := application.NewBookingService(store, catalog, nil, now, opts)

	return &app{
		logger:    logger,
		catalog:   catalog,
		store:     store,
		facility:  application.NewFacilityServiceWithLogger(catalog, booking, nil, now, logger),
		equipment: application.NewEquipmentServiceWithLogger(catalog, catalog, nil, now, logger),
		booking:   booking,
	}
}

// snapshotter exports the catalog before the bookings that reference it.
func (a *app) snapshotter(store persistence.SnapshotStore, m *metrics.Metrics) *jobs.Snapshotter {
	var observer jobs.SnapshotObserver
	if m != nil {
		observer = m
	}
	return jobs.NewSnapshotter(store, observer, time.Now, a.logger, a.catalog, a.booking)
}

func (a *app) router(resolver httptransport.PrincipalResolver, m *metrics.Metrics, metricsPath string) http.Handler {
	cfg := httptransport.RouterConfig{
		Facilities: httptransport.NewFacilityHandler(a.facility, a.logger),
		Equipment:  httptransport.NewEquipmentHandler(a.equipment, a.logger),
		Bookings:   httptransport.NewBookingHandler(a.booking, a.logger),
		Resolver:   resolver,
		Logger:     a.logger,
	}
	if m != nil {
		cfg.Observer = m
		cfg.MetricsHandler = m.Handler()
		cfg.MetricsPath = metricsPath
	}
	return httptransport.NewRouter(cfg)
}

func openSnapshotStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.SnapshotStore, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverJSON:
		return jsonfile.New(cfg.Storage.SnapshotPath), func() error { return nil }, nil
	case config.DriverSQLite, config.DriverPostgres:
		store, err := sqlite.Open(ctx, sqlite.Dialect(cfg.Storage.Driver), cfg.Storage.DSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
