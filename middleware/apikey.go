package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"playlist-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// isPublic matches exact paths and prefixes written as "/prefix*"
func isPublic(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if p == path {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(body))
}

// APIKeyMiddleware requires a matching X-API-Key header on every non-public
// path when required is true. A required but unset key lets everything
// through with a warning.
func APIKeyMiddleware(apiKey string, required bool, publicPaths []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required || isPublic(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			switch {
			case provided == "":
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				unauthorized(w, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
			case subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1:
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				unauthorized(w, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
