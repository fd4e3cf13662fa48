package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"playlist-finder-go/cache"
	"playlist-finder-go/circuitbreaker"

	"google.golang.org/api/googleapi"
)

// sleepRecorder replaces real sleeps and remembers the requested durations
type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return ctx.Err()
}

// scriptedFetch returns the scripted results in order and counts attempts
type scriptedFetch struct {
	results []fetchResult
	calls   int
}

type fetchResult struct {
	payload json.RawMessage
	err     error
}

func (f *scriptedFetch) fetch(ctx context.Context) (json.RawMessage, error) {
	r := f.results[len(f.results)-1]
	if f.calls < len(f.results) {
		r = f.results[f.calls]
	}
	f.calls++
	return r.payload, r.err
}

func setupExecutor(t *testing.T, cfg Config) (*Executor, *cache.ResponseCache, *sleepRecorder) {
	t.Helper()

	rc, err := cache.Open(cache.Options{})
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { rc.Close() })

	cfg.Cache = rc
	ex := New(cfg)
	rec := &sleepRecorder{}
	ex.sleep = rec.sleep
	return ex, rc, rec
}

func apiError(code int, reason string) error {
	e := &googleapi.Error{Code: code, Message: http.StatusText(code)}
	if reason != "" {
		e.Errors = []googleapi.ErrorItem{{Reason: reason}}
	}
	return e
}

var videoCall = Call{
	Resource: "videos",
	Method:   "list",
	Params:   map[string]string{"id": "dQw4w9WgXcQ", "part": "snippet", "key": "secret"},
}

func TestCallKeyIsOrderIndependent(t *testing.T) {
	a := Call{Resource: "search", Method: "list", Params: map[string]string{"q": "mix", "type": "playlist", "pageToken": "X"}}
	b := Call{Resource: "search", Method: "list", Params: map[string]string{"pageToken": "X", "type": "playlist", "q": "mix"}}

	if a.Key() != b.Key() {
		t.Error("Expected identical keys for the same parameters in a different order")
	}

	c := Call{Resource: "search", Method: "list", Params: map[string]string{"q": "mix", "type": "playlist", "pageToken": "Y"}}
	if a.Key() == c.Key() {
		t.Error("Expected page token to be part of the key")
	}
}

func TestCallKeyIncludesCredentials(t *testing.T) {
	withKey := Call{Resource: "videos", Method: "list", Params: map[string]string{"id": "v", "key": "one"}}
	otherKey := Call{Resource: "videos", Method: "list", Params: map[string]string{"id": "v", "key": "two"}}

	if withKey.Key() == otherKey.Key() {
		t.Error("Expected credentials to feed the cache key")
	}
}

func TestCallStringRedactsCredentials(t *testing.T) {
	s := videoCall.String()

	if strings.Contains(s, "secret") {
		t.Errorf("Expected credential to be redacted, got %q", s)
	}
	if !strings.Contains(s, "key=REDACTED") || !strings.Contains(s, "id=dQw4w9WgXcQ") {
		t.Errorf("Unexpected call rendering %q", s)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"quota exceeded", apiError(403, "quotaExceeded"), ClassQuotaExceeded},
		{"daily limit", apiError(403, "dailyLimitExceeded"), ClassQuotaExceeded},
		{"rate limit reason", apiError(403, "rateLimitExceeded"), ClassThrottled},
		{"user rate limit", apiError(403, "userRateLimitExceeded"), ClassThrottled},
		{"too many requests", apiError(429, ""), ClassThrottled},
		{"forbidden playlist", apiError(403, "playlistItemsNotAccessible"), ClassFatal},
		{"bad request", apiError(400, "invalidParameter"), ClassFatal},
		{"unauthorized", apiError(401, ""), ClassFatal},
		{"not found", apiError(404, "playlistNotFound"), ClassFatal},
		{"server error", apiError(500, "backendError"), ClassTransient},
		{"unavailable", apiError(503, ""), ClassTransient},
		{"cancelled", context.Canceled, ClassCancelled},
		{"deadline", context.DeadlineExceeded, ClassCancelled},
		{"wrapped cancel", fmt.Errorf("get: %w", context.Canceled), ClassCancelled},
		{"network", errors.New("connection reset by peer"), ClassTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDoCachesSuccess(t *testing.T) {
	ex, rc, _ := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{payload: json.RawMessage(`{"items":[]}`)}}}

	for i := 0; i < 2; i++ {
		got, err := ex.Do(context.Background(), videoCall, f.fetch)
		if err != nil {
			t.Fatalf("Do %d failed: %v", i, err)
		}
		if string(got) != `{"items":[]}` {
			t.Errorf("Do %d returned %s", i, got)
		}
	}

	if f.calls != 1 {
		t.Errorf("Expected exactly one provider attempt, got %d", f.calls)
	}
	if ex.QuotaUsed() != 1 {
		t.Errorf("Expected quota 1, got %d", ex.QuotaUsed())
	}
	s := rc.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d and %d", s.Hits, s.Misses)
	}
}

func TestDoQuotaExceededIsNotRetried(t *testing.T) {
	ex, _, rec := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{err: apiError(403, "quotaExceeded")}}}

	_, err := ex.Do(context.Background(), videoCall, f.fetch)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got %v", err)
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		t.Error("Expected the provider error to stay in the chain")
	}
	if f.calls != 1 {
		t.Errorf("Expected a single attempt, got %d", f.calls)
	}
	if len(rec.durations) != 0 {
		t.Errorf("Expected no sleeps, got %v", rec.durations)
	}
	if ex.QuotaUsed() != 1 {
		t.Errorf("Expected the rejected attempt to be billed, got %d", ex.QuotaUsed())
	}
}

func TestDoThrottledBacksOffThenReturnsAbsent(t *testing.T) {
	ex, _, rec := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{err: apiError(429, "")}}}

	got, err := ex.Do(context.Background(), videoCall, f.fetch)
	if err != nil {
		t.Fatalf("Expected no error after exhausting throttled attempts, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected absent result, got %s", got)
	}
	if f.calls != DefaultMaxRetries {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries, f.calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.durations) != len(want) {
		t.Fatalf("Expected backoffs %v, got %v", want, rec.durations)
	}
	for i := range want {
		if rec.durations[i] != want[i] {
			t.Errorf("Backoff %d = %v, want %v", i, rec.durations[i], want[i])
		}
	}
}

func TestDoTransientThenSuccess(t *testing.T) {
	ex, _, rec := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{
		{err: apiError(500, "backendError")},
		{payload: json.RawMessage(`{"ok":true}`)},
	}}

	got, err := ex.Do(context.Background(), videoCall, f.fetch)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("Unexpected payload %s", got)
	}
	if len(rec.durations) != 1 || rec.durations[0] != DefaultRetryDelay {
		t.Errorf("Expected one %v retry delay, got %v", DefaultRetryDelay, rec.durations)
	}
	if ex.QuotaUsed() != 2 {
		t.Errorf("Expected both attempts billed, got %d", ex.QuotaUsed())
	}
}

func TestDoTransientExhausted(t *testing.T) {
	ex, _, _ := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{err: apiError(503, "")}}}

	_, err := ex.Do(context.Background(), videoCall, f.fetch)
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 503 {
		t.Fatalf("Expected the last provider error to propagate, got %v", err)
	}
	if f.calls != DefaultMaxRetries {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries, f.calls)
	}
}

func TestDoTransportFailuresAreNotBilled(t *testing.T) {
	ex, _, _ := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{
		{err: errors.New("dial tcp: connection refused")},
		{payload: json.RawMessage(`1`)},
	}}

	if _, err := ex.Do(context.Background(), videoCall, f.fetch); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if ex.QuotaUsed() != 1 {
		t.Errorf("Expected only the successful attempt billed, got %d", ex.QuotaUsed())
	}
}

func TestDoCancelledAttemptIsNotBilled(t *testing.T) {
	ex, _, rec := setupExecutor(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		cancel()
		return nil, fmt.Errorf("videos.list: %w", ctx.Err())
	}

	_, err := ex.Do(ctx, videoCall, fetch)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if ex.QuotaUsed() != 0 {
		t.Errorf("Expected a cancelled attempt to cost nothing, got %d", ex.QuotaUsed())
	}
	if len(rec.durations) != 0 {
		t.Errorf("Expected no retry sleeps, got %v", rec.durations)
	}
}

func TestDoFatalIsNotRetried(t *testing.T) {
	ex, _, rec := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{err: apiError(404, "playlistNotFound")}}}

	_, err := ex.Do(context.Background(), videoCall, f.fetch)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if f.calls != 1 || len(rec.durations) != 0 {
		t.Errorf("Expected one attempt and no sleeps, got %d attempts and %v", f.calls, rec.durations)
	}
}

func TestDoEmptyPayloadReturnsAbsent(t *testing.T) {
	ex, rc, _ := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{payload: json.RawMessage(`null`)}}}

	got, err := ex.Do(context.Background(), videoCall, f.fetch)
	if err != nil || got != nil {
		t.Fatalf("Expected absent result without error, got %s, %v", got, err)
	}
	if f.calls != DefaultMaxRetries {
		t.Errorf("Expected %d attempts, got %d", DefaultMaxRetries, f.calls)
	}
	if rc.Stats().TotalEntries != 0 {
		t.Error("Expected empty responses to stay out of the cache")
	}
}

func TestDoCircuitOpen(t *testing.T) {
	cb := circuitbreaker.New(circuitbreaker.Config{Threshold: 2, Cooldown: time.Hour})
	ex, _, _ := setupExecutor(t, Config{Breaker: cb, MaxRetries: 2})
	failing := &scriptedFetch{results: []fetchResult{{err: errors.New("connection reset")}}}

	if _, err := ex.Do(context.Background(), videoCall, failing.fetch); err == nil {
		t.Fatal("Expected transport failure to propagate")
	}
	if cb.State() != circuitbreaker.StateOpen {
		t.Fatalf("Expected breaker to open, got %s", cb.State())
	}

	f := &scriptedFetch{results: []fetchResult{{payload: json.RawMessage(`1`)}}}
	_, err := ex.Do(context.Background(), Call{Resource: "playlists", Method: "list"}, f.fetch)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if f.calls != 0 {
		t.Errorf("Expected no provider call while open, got %d", f.calls)
	}
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ex, _, _ := setupExecutor(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	f := &scriptedFetch{results: []fetchResult{{err: errors.New("timeout")}}}
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		cancel()
		return f.fetch(ctx)
	}

	_, err := ex.Do(ctx, videoCall, fetch)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if f.calls != 1 {
		t.Errorf("Expected to stop after the first attempt, got %d", f.calls)
	}
}

func TestResetQuota(t *testing.T) {
	ex, _, _ := setupExecutor(t, Config{})
	f := &scriptedFetch{results: []fetchResult{{payload: json.RawMessage(`1`)}}}
	ex.Do(context.Background(), videoCall, f.fetch)

	ex.ResetQuota()
	if ex.QuotaUsed() != 0 {
		t.Errorf("Expected quota 0 after reset, got %d", ex.QuotaUsed())
	}
}
