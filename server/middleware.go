package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/playtime/telemetry"
)

// unmatchedRoute labels requests no route pattern matched, keeping the
// histogram's path cardinality bounded.
const unmatchedRoute = "unmatched"

// withObservability injects a correlation id, opens a tracing span and records the
// request duration. mux must be the *http.ServeMux so the matched pattern can be read
// back from the request after routing.
func withObservability(mux *http.ServeMux, metrics *telemetry.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, telemetry.TracerHTTP, r.Method,
			telemetry.HTTPMethodAttr(r.Method),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		req := r.WithContext(ctx)
		mux.ServeHTTP(rec, req)

		route := req.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		span.SetName(r.Method + " " + route)
		span.SetAttributes(telemetry.HTTPRouteAttr(route))
		telemetry.SetSpanHTTPStatus(span, rec.statusCode)

		if metrics != nil {
			metrics.ObserveHTTP(r.Method, route, rec.statusCode, time.Since(start))
		}
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
