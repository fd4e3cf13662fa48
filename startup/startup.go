// Package startup wires configuration into the provider stack shared by the
// HTTP service and the CLI.
package startup

import (
	"fmt"

	"playlist-finder-go/cache"
	"playlist-finder-go/circuitbreaker"
	"playlist-finder-go/config"
	"playlist-finder-go/executor"
	"playlist-finder-go/logcolors"
	"playlist-finder-go/ratelimit"
	"playlist-finder-go/services/finder"
	"playlist-finder-go/services/providers"
	"playlist-finder-go/services/providers/youtube"

	log "github.com/sirupsen/logrus"
)

// Services holds everything a search needs
type Services struct {
	Cache    *cache.ResponseCache
	Breaker  *circuitbreaker.CircuitBreaker
	Executor *executor.Executor
	Finder   *finder.Finder
	Provider string
}

// Build opens the cache and assembles the provider stack. extra options are
// applied to the finder after the configured ones.
func Build(conf config.Config, extra ...finder.Option) (*Services, error) {
	rc, err := cache.Open(cache.Options{
		Dir:         conf.Cache.Dir,
		ExpireHours: conf.Cache.ExpireHours,
		FlushEvery:  conf.Cache.FlushEvery,
		Compression: conf.FeatureFlags.CacheCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      youtube.ProviderName,
		Threshold: conf.Provider.CircuitBreakerThreshold,
		Cooldown:  conf.CircuitBreakerCooldown(),
	})

	exec := executor.New(executor.Config{
		Cache:      rc,
		Limiter:    ratelimit.New(conf.Provider.CallsPerSecond),
		Breaker:    breaker,
		MaxRetries: conf.Provider.MaxRetries,
	})

	providers.Register(youtube.ProviderName, youtube.NewFactory(youtube.Config{
		APIKey:   conf.YouTube.APIKey,
		Endpoint: conf.YouTube.Endpoint,
		Timeout:  conf.RequestTimeout(),
		Executor: exec,
	}))
	factory, err := providers.Get(youtube.ProviderName)
	if err != nil {
		rc.Close()
		return nil, err
	}

	opts := append([]finder.Option{
		finder.WithCache(rc),
		finder.WithQuota(exec),
		finder.WithWorkers(conf.Search.Workers),
	}, extra...)

	f, err := finder.New(factory, opts...)
	if err != nil {
		rc.Close()
		return nil, err
	}

	log.Infof("%s Provider %s ready (%.1f calls/s, %d workers)",
		logcolors.LogConfig, youtube.ProviderName, conf.Provider.CallsPerSecond, conf.Search.Workers)

	return &Services{
		Cache:    rc,
		Breaker:  breaker,
		Executor: exec,
		Finder:   f,
		Provider: youtube.ProviderName,
	}, nil
}

// Close flushes and closes the cache
func (s *Services) Close() error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Close()
}

// SearchOptions derives the default search options from configuration
func SearchOptions(conf config.Config) (finder.Options, error) {
	strategies, err := finder.ParseStrategies(conf.Search.Strategies)
	if err != nil {
		return finder.Options{}, err
	}

	mode := finder.Concurrent
	if !conf.Search.ParallelSearch {
		mode = finder.Sequential
	}

	return finder.Options{
		Strategies:    strategies,
		MaxCandidates: conf.Search.MaxPlaylists,
		Mode:          mode,
	}, nil
}
