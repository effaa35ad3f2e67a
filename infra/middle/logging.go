package middle

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/cardgate/infra/config"
	"github.com/mstgnz/cardgate/infra/logger"
)

// RequestIDKey is the context key holding the request ID.
const RequestIDKey config.CKey = "requestID"

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

// GetRequestID returns the request ID stored by RequestLoggingMiddleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// statusWriter captures the status code written by the handler
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (sw *statusWriter) WriteHeader(statusCode int) {
	sw.statusCode = statusCode
	sw.ResponseWriter.WriteHeader(statusCode)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.statusCode == 0 {
		sw.statusCode = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.written += n
	return n, err
}

// RequestLoggingMiddleware assigns a request ID (reusing a valid incoming
// X-Request-ID), echoes it in the response and logs one line per request.
// Bodies are never logged.
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(WithRequestID(r.Context(), requestID)))

			status := sw.statusCode
			if status == 0 {
				status = http.StatusOK
			}

			logCtx := logger.LogContext{
				RequestID: requestID,
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       sw.written,
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Warn("Request failed", logCtx)
			default:
				logger.Info("Request completed", logCtx)
			}
		})
	}
}
