package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/core"
)

// Role stores the caller's role in the request context. A role already bound
// by APIKeyAuth wins. Otherwise the header is read, but only for requests
// that came through a trusted proxy; everyone else gets defaultRole.
func Role(header, defaultRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if core.RoleFromContext(ctx) != "" {
				next.ServeHTTP(w, r)
				return
			}
			role := defaultRole
			if FromTrustedProxy(ctx) {
				if h := strings.TrimSpace(r.Header.Get(header)); h != "" {
					role = h
				}
			}
			next.ServeHTTP(w, r.WithContext(core.ContextWithRole(ctx, role)))
		})
	}
}
