package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/logging"
)

// APIKeyAuth checks the caller's API key against cfg.APIKeys and the keys of
// cfg.APIKeyRoles. The key is read from X-API-Key or an "Authorization:
// Bearer" header. A key listed in APIKeyRoles binds its role to the request.
// When RequireAPIKey is false every request passes; when it is true and no
// keys are configured every request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keyRoles, err := cfg.KeyRoles()
	if err != nil {
		slog.Warn("auth: ignoring API key roles", "error", err)
		keyRoles = nil
	}
	valid := append([]string(nil), cfg.APIKeys...)
	for k := range keyRoles {
		valid = append(valid, k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFrom(r)

			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, withKeyRole(r, key, keyRoles))
				return
			}

			logger := logging.FromContext(r.Context()).With(
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)

			if key == "" {
				logger.Warn("auth: missing API key")
				writeAuthError(w, http.StatusUnauthorized, "Missing API key", "AUTH001")
				return
			}
			if !isValidAPIKey(key, valid) {
				logger.Warn("auth: invalid API key")
				writeAuthError(w, http.StatusForbidden, "Invalid API key", "AUTH002")
				return
			}

			next.ServeHTTP(w, withKeyRole(r, key, keyRoles))
		})
	}
}

// withKeyRole binds the role mapped to key, if any.
func withKeyRole(r *http.Request, key string, keyRoles map[string]string) *http.Request {
	if key == "" || len(keyRoles) == 0 {
		return r
	}
	role := ""
	for k, v := range keyRoles {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
			role = v
		}
	}
	if role == "" {
		return r
	}
	return r.WithContext(core.ContextWithRole(r.Context(), role))
}

func apiKeyFrom(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// isValidAPIKey compares against every key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","message":"` + message + `","code":"` + code + `"}`))
}
