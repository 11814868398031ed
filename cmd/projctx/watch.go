package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/projctx/internal/platform"
)

var (
	watchPattern string
	metricsAddr  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep project caches in step with the vault",
	Long: `Watch the vault and apply every change to the projects it concerns: new
files are added, edited notes invalidate the markdown context, and deleted
files are dropped. Optionally serves Prometheus metrics.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		root := resolveVault()
		s := loadSettings(root)
		addr := metricsAddr
		if addr == "" {
			addr = s.MetricsAddr
		}
		pattern := watchPattern
		if pattern == "" {
			pattern = s.WatchPattern
		}

		app, _ := openApp(platform.WithMetrics(addr != ""))
		defer app.Close()

		if addr != "" {
			srv := serveMetrics(addr)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Warn("failed to stop metrics server", "error", err)
				}
			}()
		}

		if err := app.Watch(ctx, pattern); err != nil {
			fatal("Watch failed", err)
		}
	},
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", "Only watch paths matching this glob (default from settings)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}
