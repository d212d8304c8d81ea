package middleware

import (
	"net/http"
	"time"

	"github.com/myschoolstory/collab-3d/pkg/metrics"
)

// RequestMetrics returns middleware that records every request on the
// collector. A nil recorder disables instrumentation.
func RequestMetrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder.RequestStarted()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			recorder.RecordRequest(r.Method, wrapped.statusCode, time.Since(start))
		})
	}
}
