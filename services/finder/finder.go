// Package finder discovers which playlists contain a video. It gathers
// candidate playlists with a configurable set of search strategies, then
// verifies each candidate's membership either sequentially or with a bounded
// pool of workers.
package finder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"playlist-finder-go/cache"
	"playlist-finder-go/executor"
	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/providers"
	"playlist-finder-go/stats"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxCandidates = 100
	DefaultWorkers       = 10

	// NoPercent marks a progress message without a percentage
	NoPercent = -1
)

var (
	// ErrNotFound means the target video does not exist or could not be fetched
	ErrNotFound = errors.New("video not found")
	// ErrCancelled means the caller stopped the search
	ErrCancelled = errors.New("search cancelled")
)

// Mode selects how candidates are verified
type Mode int

const (
	Concurrent Mode = iota
	Sequential
)

func (m Mode) String() string {
	switch m {
	case Concurrent:
		return "concurrent"
	case Sequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// ParseMode resolves "concurrent" or "sequential"; empty means Concurrent
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "concurrent", "parallel":
		return Concurrent, nil
	case "sequential":
		return Sequential, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Options tune a single Find call
type Options struct {
	Strategies    []Strategy // empty means DefaultStrategies
	MaxCandidates int        // 0 means DefaultMaxCandidates
	Mode          Mode
}

// ProgressFunc receives progress updates. percent is NoPercent or 0..100.
type ProgressFunc func(message string, percent int)

// Cache is the response cache the finder reports on and flushes after a search
type Cache interface {
	Stats() cache.Stats
	Flush() error
}

// QuotaCounter reports the provider quota consumed so far
type QuotaCounter interface {
	QuotaUsed() int64
}

// UsageStats summarises quota and cache usage and the last search
type UsageStats struct {
	QuotaUsed        int64       `json:"quota_used"`
	PlaylistsChecked int         `json:"playlists_checked"`
	PlaylistsFound   int         `json:"playlists_found"`
	Cache            cache.Stats `json:"cache"`
}

// Finder is safe for concurrent use. Each Find call owns its own session.
type Finder struct {
	factory  providers.Factory
	provider providers.Provider
	cache    Cache
	quota    QuotaCounter
	workers  int
	progress ProgressFunc
	stats    *stats.Stats

	mu          sync.Mutex
	active      map[*session]struct{}
	lastChecked int
	lastFound   int
}

// Option configures a Finder
type Option func(*Finder)

// WithCache sets the cache reported in Statistics and flushed after each search
func WithCache(c Cache) Option {
	return func(f *Finder) { f.cache = c }
}

// WithQuota sets the source of the quota figure in Statistics
func WithQuota(q QuotaCounter) Option {
	return func(f *Finder) { f.quota = q }
}

// WithWorkers sets the concurrent verification width
func WithWorkers(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithProgress sets the progress callback. It must not block for long.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Finder) { f.progress = fn }
}

// WithStats records search outcomes into s instead of the global stats
func WithStats(s *stats.Stats) Option {
	return func(f *Finder) { f.stats = s }
}

// New creates a finder. The factory is called once here for the finder's own
// provider handle, and once more by every concurrent worker.
func New(factory providers.Factory, opts ...Option) (*Finder, error) {
	if factory == nil {
		return nil, errors.New("finder requires a provider factory")
	}

	f := &Finder{
		factory: factory,
		workers: DefaultWorkers,
		stats:   stats.Get(),
		active:  make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	f.provider = p
	return f, nil
}

// Cancel stops every search in flight. Provider calls already running are
// allowed to finish; their results are discarded.
func (f *Finder) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.active {
		s.cancelled.Store(true)
	}
	if len(f.active) > 0 {
		log.Infof("%s Cancelling %d search(es)", logcolors.LogCancel, len(f.active))
	}
}

// Statistics returns quota and cache usage plus the counts of the last search
func (f *Finder) Statistics() UsageStats {
	f.mu.Lock()
	us := UsageStats{
		PlaylistsChecked: f.lastChecked,
		PlaylistsFound:   f.lastFound,
	}
	f.mu.Unlock()

	if f.quota != nil {
		us.QuotaUsed = f.quota.QuotaUsed()
	}
	if f.cache != nil {
		us.Cache = f.cache.Stats()
	}
	return us
}

func (f *Finder) report(message string, percent int) {
	if f.progress != nil {
		f.progress(message, percent)
	}
}

func (f *Finder) begin() *session {
	s := newSession()
	f.mu.Lock()
	f.active[s] = struct{}{}
	f.mu.Unlock()
	return s
}

func (f *Finder) end(s *session, found []providers.PlaylistInfo, err error, took time.Duration) {
	checked := s.checkedCount()

	f.mu.Lock()
	delete(f.active, s)
	f.lastChecked = checked
	f.lastFound = len(found)
	f.mu.Unlock()

	if f.cache != nil {
		if ferr := f.cache.Flush(); ferr != nil {
			log.Warnf("%s Cache flush failed: %v", logcolors.LogFinder, ferr)
		}
	}

	if f.stats != nil {
		f.stats.RecordSearch(outcomeOf(found, err), checked, len(found), took)
	}
}

func outcomeOf(found []providers.PlaylistInfo, err error) stats.Outcome {
	switch {
	case err == nil && len(found) > 0:
		return stats.OutcomeFound
	case err == nil:
		return stats.OutcomeEmpty
	case errors.Is(err, ErrNotFound):
		return stats.OutcomeNotFound
	case errors.Is(err, executor.ErrQuotaExceeded):
		return stats.OutcomeQuotaExceeded
	case errors.Is(err, ErrCancelled):
		return stats.OutcomeCancelled
	}
	return stats.OutcomeFailed
}

func isQuota(err error) bool {
	return errors.Is(err, executor.ErrQuotaExceeded)
}

// Find returns the playlists confirmed to contain videoID. It fails with
// ErrNotFound, executor.ErrQuotaExceeded or ErrCancelled, with
// executor.ErrCircuitOpen when the provider is shut off before the video
// could be fetched, or with a plain error for invalid options. Other provider
// failures only shrink the result.
func (f *Finder) Find(ctx context.Context, videoID string, opts Options) (found []providers.PlaylistInfo, err error) {
	if videoID == "" {
		return nil, errors.New("video ID is required")
	}
	maxCandidates := opts.MaxCandidates
	if maxCandidates < 0 {
		return nil, fmt.Errorf("max candidates must be at least 1, got %d", maxCandidates)
	}
	if maxCandidates == 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if opts.Mode != Concurrent && opts.Mode != Sequential {
		return nil, fmt.Errorf("unknown mode %d", opts.Mode)
	}
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}

	s := f.begin()
	start := time.Now()
	defer func() { f.end(s, found, err, time.Since(start)) }()

	logger := log.WithField("session", s.id)
	logger.Debugf("%s Searching %s with %d strategies (max %d, %s)",
		logcolors.LogFinder, videoID, len(strategies), maxCandidates, opts.Mode)

	if s.cancelRequested(ctx) {
		return nil, ErrCancelled
	}

	video, err := f.provider.FetchVideoMetadata(ctx, videoID)
	switch {
	case isQuota(err):
		return nil, err
	case err != nil && s.cancelRequested(ctx):
		return nil, ErrCancelled
	case errors.Is(err, executor.ErrCircuitOpen):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, videoID, err)
	case video == nil:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, videoID)
	}

	f.report("Searching for playlists containing: "+video.Title, 0)

	candidates, err := f.discover(ctx, s, logger, video, strategies, maxCandidates)
	if err != nil {
		return nil, err
	}

	f.report(fmt.Sprintf("Checking %d playlists...", len(candidates)), 50)

	if opts.Mode == Sequential {
		err = f.verifySequential(ctx, s, logger, video.ID, candidates)
	} else {
		err = f.verifyConcurrent(ctx, s, logger, video.ID, candidates)
	}
	if err != nil {
		return nil, err
	}
	if s.cancelRequested(ctx) {
		return nil, ErrCancelled
	}

	found = s.results()
	f.report("Search complete!", 100)
	logger.Infof("%s %s: %d of %d candidates contain the video", logcolors.LogFinder, videoID, len(found), len(candidates))
	return found, nil
}

// discover runs each strategy in order and returns the capped candidate list
func (f *Finder) discover(ctx context.Context, s *session, logger *log.Entry, video *providers.VideoInfo, strategies []Strategy, maxCandidates int) ([]string, error) {
	set := newCandidateSet()

	for i, strategy := range strategies {
		if s.cancelRequested(ctx) {
			return nil, ErrCancelled
		}
		f.report("Strategy: "+strategy.Name(), i*50/len(strategies))

		ids, err := strategy.Candidates(ctx, f.provider, video, maxCandidates)
		if err != nil {
			if isQuota(err) {
				return nil, err
			}
			if s.cancelRequested(ctx) {
				return nil, ErrCancelled
			}
			logger.Warnf("%s %s failed: %v", logcolors.LogStrategy, strategy.Name(), err)
			continue
		}

		before := set.len()
		set.add(ids...)
		logger.Debugf("%s %s returned %d IDs, %d new", logcolors.LogStrategy, strategy.Name(), len(ids), set.len()-before)

		if set.len() >= maxCandidates {
			logger.Debugf("%s Reached candidate limit %d", logcolors.LogStrategy, maxCandidates)
			break
		}
	}

	return set.first(maxCandidates), nil
}
