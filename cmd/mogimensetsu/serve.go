package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxseedlab/mogimensetsu/external/httpapi"
	"github.com/foxseedlab/mogimensetsu/external/realtime"
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/foxseedlab/mogimensetsu/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, live channel and evaluation workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(loadedConfig)
	},
}

func runServer(cfg *config.Config) error {
	metrics.Register(prometheus.DefaultRegisterer)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	pool, err := do.Invoke[*pgxpool.Pool](injector)
	if err != nil {
		return err
	}
	defer pool.Close()
	workers, err := do.Invoke[*evaluation.WorkerPool](injector)
	if err != nil {
		return err
	}
	hub, err := do.Invoke[*realtime.Hub](injector)
	if err != nil {
		return err
	}
	router, err := do.Invoke[*gin.Engine](injector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	server := httpapi.NewServer(cfg.HTTPAddr, router)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("startup: http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	if err := workers.Shutdown(shutdownCtx); err != nil {
		slog.Error("evaluation workers did not drain", "error", err)
	}
	hub.Stop()
	return nil
}
