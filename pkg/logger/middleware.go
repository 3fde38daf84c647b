package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dreamplay/rewards/pkg/httpkit"
	"github.com/dreamplay/rewards/pkg/ratelimit"
)

// RequestIDHeader carries the request id; a client supplied value is kept.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesOut   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.bytesOut += size
	return size, err
}

// NewMiddleware creates HTTP request logging middleware
func NewMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Ensure error tracking context exists (in case httpkit.HandlerFunc wasn't used)
			ctx := httpkit.WithErrorTracking(r.Context())
			r = r.WithContext(ctx)

			bytesIn := max(0, int(r.ContentLength))

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // Default to 200 if WriteHeader is never called
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			var level slog.Level
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case rw.statusCode == http.StatusTooManyRequests:
				level = slog.LevelWarn
			default:
				level = slog.LevelInfo
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.Int("status", rw.statusCode),
				slog.Duration("duration", duration),
				slog.Int("bytes_in", bytesIn),
				slog.Int("bytes_out", rw.bytesOut),
				slog.String("client", ratelimit.ClientID(r, false)),
				slog.String("request_id", requestID),
			}

			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				attrs = append(attrs, slog.String("forwarded_for", fwd))
			}

			if r.Pattern != "" {
				attrs = append(attrs, slog.String("route", r.Pattern))
			}

			if err := httpkit.Error(r.Context()); err != nil {
				attrs = append(attrs, slog.String("error", errorMessage(err)))
			}

			// Log with constant message - let structured fields tell the story
			logger.LogAttrs(r.Context(), level, "HTTP", attrs...)
		})
	}
}

// errorMessage extracts the appropriate error message for logging
func errorMessage(err error) string {
	if httpErr, ok := err.(httpkit.HTTPError); ok {
		return httpErr.Cause().Error() // detailed error for logs
	}
	return err.Error()
}
