// @title PetSoft API
// @version 1.0
// @description API de la guardería de mascotas: alta, edición y checkout.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"petsoft/internal/adapters/gateway/local"
	mem "petsoft/internal/adapters/storage/memory"
	pg "petsoft/internal/adapters/storage/postgres"
	"petsoft/internal/adapters/storage/sqlite"
	"petsoft/internal/domain/pets"
	"petsoft/internal/platform/config"
	"petsoft/internal/platform/logger"
	"petsoft/internal/platform/otel"
	"petsoft/internal/router"
	"petsoft/internal/session"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "petsoft:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	if zl, ok := log.(*logger.ZapLogger); ok {
		defer func() { _ = zl.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, otel.Config{
		ServiceName:    cfg.AppName,
		ServiceVersion: version,
		UseStdout:      cfg.OTelStdout,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	repo, closeRepo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	petsSvc := pets.NewService(repo)
	sessions := session.NewManager(session.Config{
		Gateway:  local.New(petsSvc, log.With(map[string]any{"component": "gateway"})),
		Snapshot: petsSvc,
		Logger:   log.With(map[string]any{"component": "session"}),
		TTL:      cfg.SessionTTL,
		Rollback: cfg.OptimisticRollback,
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.NewRouter(router.Options{
			Service:  petsSvc,
			Sessions: sessions,
			Logger:   log,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "db_driver": cfg.DBDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Janitor: cierra sesiones inactivas; al cancelar cierra todas.
	g.Go(func() error {
		return sessions.Run(gctx, cfg.SweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", nil)

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// openRepo elige el storage según config. El close libera la conexión (no-op en memoria).
func openRepo(ctx context.Context, cfg config.Config) (pets.Repository, func() error, error) {
	noop := func() error { return nil }

	var (
		db      *sql.DB
		err     error
		migrate func(context.Context, *sql.DB) error
	)

	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err = pg.Open(cfg.DBDSN)
		migrate = pg.Migrate
	case config.DriverSQLite:
		db, err = sqlite.Open(cfg.DBDSN)
		migrate = sqlite.Migrate
	default:
		return mem.NewPetRepo(), noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	if cfg.AutoMigrate {
		if err := migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("migrate %s: %w", cfg.DBDriver, err)
		}
	}

	if cfg.DBDriver == config.DriverPostgres {
		return pg.NewPetsRepo(db), db.Close, nil
	}
	return sqlite.NewPetsRepo(db), db.Close, nil
}
