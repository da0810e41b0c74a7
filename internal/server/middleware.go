package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tensorlab/opsched/pkg/observability"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestID generates a short unique identifier for a request.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// RequestIDFromContext returns the request ID stored by the middleware,
// or an empty string if none is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware assigns each request an ID and echoes it in the
// X-Request-ID header. Clients may supply their own via the same header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = requestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs one line per request and fires the server
// observability hooks around the handler.
func loggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			observability.Server().OnRequest(r.Context(), r.Method, r.URL.Path)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)
			observability.Server().OnResponse(r.Context(), r.Method, r.URL.Path, sw.status, duration)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", duration,
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}
