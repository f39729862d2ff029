package middleware

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/gridkit/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics counts requests by method, route pattern and status. The route
// pattern keeps entity names and ids out of the label set.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
	})
}
