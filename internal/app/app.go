package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/database/postgres"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
	"github.com/vadimbarashkov/shortlink/internal/service"
	"golang.org/x/sync/errgroup"

	api "github.com/vadimbarashkov/shortlink/internal/api/http"
	pkgpostgres "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

const purgeInterval = time.Hour

// Run wires the application together and serves it until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := httplog.NewLogger("shortlink", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  cfg.Env == config.EnvDev,
		JSON:     cfg.Env != config.EnvDev,
	})

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	linkRepo := postgres.NewLinkRepository(db)
	linkSvc := service.NewLinkService(linkRepo)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, cfg, linkSvc),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return db.Close()
	})

	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := linkSvc.PurgeExpired(ctx)
				if err != nil {
					logger.Error("failed to purge expired links", slog.Any("err", err))
					continue
				}

				if n > 0 {
					metrics.ExpiredPurged.Add(float64(n))
					logger.Info("purged expired links", slog.Int64("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
