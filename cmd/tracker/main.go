package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"mudae-tracker/internal/config"
	"mudae-tracker/internal/constants"
	fxmodules "mudae-tracker/internal/fx"
	applogger "mudae-tracker/internal/logger"
	"mudae-tracker/internal/middleware"
	"mudae-tracker/internal/server"
	"mudae-tracker/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runRebuildScheduler),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	trackerServer *server.TrackerServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	logger = applogger.SetLevel(logger, cfg.LogLevel)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := middleware.RequestID(logger)(c.Handler(trackerServer.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

// runRebuildScheduler keeps the series ranking fresh: one rebuild at startup,
// then one per configured interval until shutdown.
func runRebuildScheduler(
	lc fx.Lifecycle,
	scorer *service.SeriesScorer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				rebuild := func() {
					count, err := scorer.Rebuild(context.Background())
					if err != nil {
						logger.Error().Err(err).Msg("scheduled series rebuild failed")
						return
					}
					logger.Info().Int("series_ranked", count).Msg("series ranking rebuilt")
				}

				rebuild()
				ticker := time.NewTicker(cfg.SeriesRebuildInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						rebuild()
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
}
