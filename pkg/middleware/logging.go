package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/pkg/httpapi"
)

const RequestIDHeader = httpapi.RequestIDHeader

type responseCaptureWriter struct {
	http.ResponseWriter
	status        int
	statusWritten bool
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if w.statusWritten {
		return
	}
	w.status = code
	w.statusWritten = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseCaptureWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	if !w.statusWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseCaptureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// getRequestID returns the caller's request id, minting one and storing it on the request
// when absent so downstream handlers see the same value.
func getRequestID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(RequestIDHeader)); v != "" {
		return v
	}
	v := uuid.NewString()
	r.Header.Set(RequestIDHeader, v)
	return v
}

// WithLogger logs each request start and completion and turns handler panics into a JSON 500.
func WithLogger(logger logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := getRequestID(r)

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.URL.Path,
				"method":     r.Method,
			})
			fieldsLogger.WithFields(logrus.Fields{
				"host":       r.Host,
				"user-agent": r.UserAgent(),
			}).Debug("request started")

			w.Header().Set(RequestIDHeader, requestID)
			wrapped := &responseCaptureWriter{ResponseWriter: w}

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				fieldsLogger.WithFields(logrus.Fields{
					"panic":    recovered,
					"stack":    string(debug.Stack()),
					"duration": time.Since(start),
				}).Error("panic recovered in request handler")
				if wrapped.statusWritten {
					return
				}
				_ = httpapi.WriteError(wrapped, http.StatusInternalServerError, requestID,
					"INTERNAL_SERVER_ERROR", "internal server error", map[string]string{"path": r.URL.Path})
			}()

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			fieldsLogger.WithFields(logrus.Fields{
				"duration":     time.Since(start),
				"status-code":  status,
				"status-class": status / 100,
			}).Info("request completed")
		})
	}
}
