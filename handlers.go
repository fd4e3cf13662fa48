package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"playlist-finder-go/circuitbreaker"
	"playlist-finder-go/executor"
	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/finder"
	"playlist-finder-go/services/notifier"
	"playlist-finder-go/services/providers"
	"playlist-finder-go/startup"
	"playlist-finder-go/stats"

	log "github.com/sirupsen/logrus"
)

type server struct {
	svc      *startup.Services
	defaults finder.Options
}

// searchOptions overlays query parameters on the configured defaults
func (s *server) searchOptions(r *http.Request) (finder.Options, error) {
	opts := s.defaults
	q := r.URL.Query()

	if raw := q.Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("max must be a positive integer, got %q", raw)
		}
		opts.MaxCandidates = n
	}

	if raw := q.Get("strategies"); raw != "" {
		strategies, err := finder.ParseStrategies(strings.Split(raw, ","))
		if err != nil {
			return opts, err
		}
		opts.Strategies = strategies
	}

	if raw := q.Get("mode"); raw != "" {
		mode, err := finder.ParseMode(raw)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}

	return opts, nil
}

// quotaRetryAfter returns the seconds until the daily quota resets at
// midnight Pacific time
func quotaRetryAfter(now time.Time) int {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.FixedZone("PST", -8*60*60)
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return int(midnight.Sub(local).Seconds())
}

// searchErrorStatus maps a Find error to an HTTP status and error label
func searchErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, executor.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "Provider temporarily unavailable"
	case errors.Is(err, finder.ErrNotFound):
		return http.StatusNotFound, "Video not found"
	case errors.Is(err, executor.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "Provider quota exceeded"
	case errors.Is(err, finder.ErrCancelled):
		return http.StatusRequestTimeout, "Search cancelled"
	}
	return http.StatusInternalServerError, "Search failed"
}

func (s *server) getPlaylists(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r).SetProvider(s.svc.Provider)

	raw := r.URL.Query().Get("v")
	if raw == "" {
		raw = r.URL.Query().Get("video")
	}
	if raw == "" {
		resp.Error(http.StatusBadRequest, ErrorResponse{
			Error:   "Video not provided",
			Message: "Pass a video ID or URL as ?v=",
		})
		return
	}

	videoID, ok := providers.ExtractVideoID(raw)
	if !ok {
		resp.Error(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid video",
			Message: fmt.Sprintf("Could not extract a video ID from %q", raw),
		})
		return
	}

	opts, err := s.searchOptions(r)
	if err != nil {
		resp.Error(http.StatusBadRequest, ErrorResponse{Error: "Invalid search options", Message: err.Error()})
		return
	}

	found, err := s.svc.Finder.Find(r.Context(), videoID, opts)
	usage := s.svc.Finder.Statistics()
	resp.SetQuotaUsed(usage.QuotaUsed)

	if err != nil {
		status, label := searchErrorStatus(err)
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", strconv.Itoa(quotaRetryAfter(time.Now())))
		}
		if status >= http.StatusInternalServerError {
			log.Errorf("%s %s: %v", logcolors.LogFinder, videoID, err)
		} else {
			log.Warnf("%s %s: %v", logcolors.LogFinder, videoID, err)
		}
		resp.Error(status, ErrorResponse{Error: label, Message: err.Error()})
		return
	}

	if found == nil {
		found = []providers.PlaylistInfo{}
	}
	video := providers.VideoInfo{ID: videoID}
	resp.JSON(PlaylistsResponse{
		Video:      VideoRef{ID: videoID, URL: video.URL()},
		Playlists:  found,
		TotalFound: len(found),
		Stats:      usage,
	})
}

func (s *server) getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := stats.Get().Snapshot()
	snapshot["usage"] = s.svc.Finder.Statistics()
	snapshot["circuit_breaker"] = s.breakerStatus()

	Respond(w, r).JSON(snapshot)
}

func (s *server) clearCache(w http.ResponseWriter, r *http.Request) {
	entries := s.svc.Cache.Stats().TotalEntries
	if err := s.svc.Cache.Clear(); err != nil {
		log.Errorf("%s Failed to clear cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to clear cache",
			Message: err.Error(),
		})
		return
	}

	log.Infof("%s Cache cleared", logcolors.LogCacheClear)
	notifier.PublishCacheCleared(entries)
	Respond(w, r).JSON(map[string]interface{}{
		"message":         "Cache cleared successfully",
		"entries_removed": entries,
	})
}

func (s *server) getHealthStatus(w http.ResponseWriter, r *http.Request) {
	cb := s.svc.Breaker
	health := map[string]interface{}{
		"status":          "ok",
		"provider":        s.svc.Provider,
		"circuit_breaker": cb.State().String(),
		"cache": map[string]interface{}{
			"memory_only": s.svc.Cache.MemoryOnly(),
			"entries":     s.svc.Cache.Stats().TotalEntries,
		},
	}

	if cb.State() == circuitbreaker.StateOpen {
		health["status"] = "degraded"
		health["circuit_breaker_retry_in"] = cb.TimeUntilRetry().String()
	}

	Respond(w, r).JSON(health)
}

func (s *server) breakerStatus() CircuitBreakerStatus {
	cb := s.svc.Breaker
	return CircuitBreakerStatus{
		State:          cb.State().String(),
		Failures:       cb.Failures(),
		Threshold:      cb.Threshold(),
		TimeUntilRetry: cb.TimeUntilRetry().String(),
	}
}

func (s *server) getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(s.breakerStatus())
}

func (s *server) resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	s.svc.Breaker.Reset()
	log.Infof("%s Reset by %s", logcolors.CircuitBreakerPrefix(s.svc.Provider), r.RemoteAddr)

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /playlists to find the playlists that contain a video. Example: /playlists?v=dQw4w9WgXcQ",
		"parameters": map[string]string{
			"v":          "video ID or URL (required)",
			"max":        "maximum number of candidate playlists to check",
			"strategies": "comma-separated: " + strings.Join(finder.StrategyNames(), ","),
			"mode":       "concurrent or sequential",
		},
		"endpoints": []string{
			"GET /playlists",
			"GET /health",
			"GET /stats",
			"POST /cache/clear",
			"GET /circuit-breaker",
			"POST /circuit-breaker/reset",
		},
	})
}
