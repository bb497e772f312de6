package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tomyedwab/todos/applib/httputils"
)

type contextKey string

const RequestIDKey contextKey = "requestId"

const RequestIDHeader = "X-Request-Id"

// statusRecorder remembers the status code written by the wrapped handler
// and whether the header has gone out yet.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(status int) {
	if !rec.wroteHeader {
		rec.status = status
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	return rec.ResponseWriter.Write(b)
}

// RequestIDFromContext returns the id assigned by RequestID, or "" if none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// RequestID tags every request with an id, reusing the caller's
// X-Request-Id header when present.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID)))
	}
}

func LogRequests(logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			// Call the next handler
			next.ServeHTTP(rec, r)

			logger.Info("request",
				"remoteAddr", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
				"proto", r.Proto,
				"status", rec.status,
				"duration", time.Since(start),
				"requestId", RequestIDFromContext(r.Context()),
			)
		}
	}
}

// Recover converts a handler panic into a 500 so one bad request can't take
// the server down. If the handler already started its response the status
// can't change any more, so only the log line is written.
func Recover(logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("panic while handling request",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", p,
					"headerWritten", rec.wroteHeader,
					"requestId", RequestIDFromContext(r.Context()),
				)
				if rec.wroteHeader {
					return
				}
				httputils.WriteError(rec, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}()
			next.ServeHTTP(rec, r)
		}
	}
}

func EnableCrossOrigin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if os.Getenv("ENABLE_CROSS_ORIGIN") == "" {
			next.ServeHTTP(w, r)
			return
		}

		// For dev only, enable CORS for all origins
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			// Do not call through to the handler itself, just return immediately
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Combine multiple middleware functions
func Chain(h http.HandlerFunc, middleware ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

// Apply the default middlewares in the correct order. The last one listed is
// the outermost.
func ApplyDefault(logger *slog.Logger, h http.HandlerFunc) http.HandlerFunc {
	return Chain(
		h,
		Recover(logger),
		EnableCrossOrigin,
		LogRequests(logger),
		RequestID,
	)
}
