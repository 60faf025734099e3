package mw

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyAuth returns a Chi middleware accepting requests that carry one of
// keys as "Authorization: Bearer <key>" or "X-API-Key: <key>". With no keys
// configured every request passes. Paths in public skip the check.
func APIKeyAuth(logger *slog.Logger, keys []string, public ...string) func(http.Handler) http.Handler {
	var valid [][]byte
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, []byte(k))
		}
	}
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			key := requestKey(r)
			if key == "" {
				logger.Warn("API key missing", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}
			for _, v := range valid {
				if subtle.ConstantTimeCompare([]byte(key), v) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.Warn("Invalid API key used",
				"key_prefix", keyPrefix(key),
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, "Unauthorized: invalid API key", http.StatusUnauthorized)
		})
	}
}

func requestKey(r *http.Request) string {
	const bearerPrefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
