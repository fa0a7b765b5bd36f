// Package server exposes the operational HTTP surface: Prometheus metrics, a
// liveness probe and named readiness checks. Every request gets a correlation id,
// a tracing span and a duration observation labelled by its matched route.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/playtime/telemetry"
)

// ReadinessCheck is one named dependency probe for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options wires the HTTP surface to the rest of the process.
type Options struct {
	// Gatherer backs /metrics; nil falls back to the default registry.
	Gatherer prometheus.Gatherer
	Metrics  *telemetry.Metrics
	Checks   []ReadinessCheck
}

// NewMux returns the HTTP handler with all routes.
func NewMux(opts Options) http.Handler {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &handlers{checks: opts.Checks}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReadyz)

	return withObservability(mux, opts.Metrics)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, handler http.Handler, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// WithoutCancel keeps context values but lets shutdown finish.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err), slog.String("component", "http"))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr), slog.String("component", "http"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err), slog.String("component", "http"))
		return err
	}
	return nil
}
