package stats

import (
	"sync/atomic"
	"time"
)

// Outcome is how a search ended
type Outcome string

const (
	OutcomeFound         Outcome = "found"
	OutcomeEmpty         Outcome = "empty"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeCancelled     Outcome = "cancelled"
	OutcomeFailed        Outcome = "failed"
)

// Stats holds process-wide counters with atomic updates
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests    atomic.Int64
	PlaylistRequests atomic.Int64
	CacheRequests    atomic.Int64
	StatsRequests    atomic.Int64
	HealthRequests   atomic.Int64
	OtherRequests    atomic.Int64

	// Search outcomes
	Searches         atomic.Int64
	SearchesFound    atomic.Int64
	SearchesEmpty    atomic.Int64
	VideosNotFound   atomic.Int64
	QuotaExceeded    atomic.Int64
	SearchCancelled  atomic.Int64
	SearchesFailed   atomic.Int64
	PlaylistsChecked atomic.Int64
	PlaylistsFound   atomic.Int64

	// Rate limiting
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Search durations (microseconds)
	searchTime  atomic.Int64
	searchCount atomic.Int64
}

const noMin = int64(^uint64(0) >> 1)

// New creates an empty stats instance
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(noMin)
	return s
}

// Global stats instance
var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/playlists":
		s.PlaylistRequests.Add(1)
	case "/cache/clear":
		s.CacheRequests.Add(1)
	case "/stats":
		s.StatsRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordSearch records a finished search
func (s *Stats) RecordSearch(outcome Outcome, checked, found int, took time.Duration) {
	s.Searches.Add(1)
	s.PlaylistsChecked.Add(int64(checked))
	s.PlaylistsFound.Add(int64(found))
	s.searchTime.Add(took.Microseconds())
	s.searchCount.Add(1)

	switch outcome {
	case OutcomeFound:
		s.SearchesFound.Add(1)
	case OutcomeEmpty:
		s.SearchesEmpty.Add(1)
	case OutcomeNotFound:
		s.VideosNotFound.Add(1)
	case OutcomeQuotaExceeded:
		s.QuotaExceeded.Add(1)
	case OutcomeCancelled:
		s.SearchCancelled.Add(1)
	default:
		s.SearchesFailed.Add(1)
	}
}

// RecordRateLimitExceeded records a request rejected by the HTTP rate limiter
func (s *Stats) RecordRateLimitExceeded() {
	s.RateLimitExceeded.Add(1)
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records an HTTP response time
func (s *Stats) RecordResponseTime(duration time.Duration) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == noMin {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgSearchTime returns the average duration of a search
func (s *Stats) AvgSearchTime() time.Duration {
	count := s.searchCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.searchTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":     s.TotalRequests.Load(),
			"playlists": s.PlaylistRequests.Load(),
			"cache":     s.CacheRequests.Load(),
			"stats":     s.StatsRequests.Load(),
			"health":    s.HealthRequests.Load(),
			"other":     s.OtherRequests.Load(),
		},
		"searches": map[string]interface{}{
			"total":             s.Searches.Load(),
			"found":             s.SearchesFound.Load(),
			"empty":             s.SearchesEmpty.Load(),
			"video_not_found":   s.VideosNotFound.Load(),
			"quota_exceeded":    s.QuotaExceeded.Load(),
			"cancelled":         s.SearchCancelled.Load(),
			"failed":            s.SearchesFailed.Load(),
			"playlists_checked": s.PlaylistsChecked.Load(),
			"playlists_found":   s.PlaylistsFound.Load(),
			"avg_duration":      s.AvgSearchTime().String(),
		},
		"rate_limiting": map[string]interface{}{
			"exceeded": s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
