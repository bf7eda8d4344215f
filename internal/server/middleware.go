package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/telemetry"
	"github.com/hyperjump/kensaku/pkg/utils"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an ID, opens a server span, stores a
// request-scoped logger in the context, and logs the outcome.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	tracer := telemetry.Tracer()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("request_id", id)),
			)
			defer span.End()

			fields := []zap.Field{zap.String("request_id", id)}
			if tid := telemetry.TraceID(ctx); tid != "" {
				fields = append(fields, zap.String("trace_id", tid))
			}
			logger := base.With(fields...)
			ctx = utils.ContextWithLogger(ctx, logger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
