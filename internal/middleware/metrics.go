package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"givepool/internal/metrics"
)

// Metrics records request durations labeled by chi route pattern, so metric
// cardinality stays bounded no matter what path parameters hold.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, pattern, rw.status, time.Since(start))
	})
}
