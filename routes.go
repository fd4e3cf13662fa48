package main

import (
	"net/http"

	"playlist-finder-go/config"
	"playlist-finder-go/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// publicPaths never require an API key
var publicPaths = []string{"/", "/health", "/playlists"}

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router, s *server) {
	router.HandleFunc("/playlists", s.getPlaylists).Methods(http.MethodGet)

	// Cache management
	router.HandleFunc("/cache/clear", s.clearCache).Methods(http.MethodPost)

	// Health and stats
	router.HandleFunc("/health", s.getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)

	// Circuit breaker
	router.HandleFunc("/circuit-breaker", s.getCircuitBreakerStatus).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", s.resetCircuitBreaker).Methods(http.MethodPost)

	router.HandleFunc("/", helpHandler)
}

// newHandler builds the router and wraps it in the middleware chain:
// rate limit -> API key -> CORS -> logging -> router
func newHandler(s *server, conf config.Config) http.Handler {
	router := mux.NewRouter()
	setupRoutes(router, s)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"https://www.youtube.com", "http://localhost:3000"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"X-API-Key", "Content-Type"},
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Server.RateLimitPerSecond),
		conf.Server.RateLimitBurstLimit,
	)

	handler := middleware.LoggingMiddleware(router)
	handler = c.Handler(handler)
	handler = middleware.APIKeyMiddleware(conf.Server.APIKey, conf.Server.APIKeyRequired, publicPaths)(handler)
	handler = middleware.RateLimitMiddleware(limiter, conf.Server.APIKey)(handler)
	return handler
}
