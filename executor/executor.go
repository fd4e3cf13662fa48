// Package executor runs raw provider calls through the response cache, the
// shared rate limiter and a bounded retry loop, and accounts for the quota
// every attempt consumes.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"playlist-finder-go/circuitbreaker"
	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/notifier"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = time.Second
	DefaultThrottleBase = time.Second
)

var (
	// ErrQuotaExceeded is returned as soon as the provider reports the quota is gone.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrCircuitOpen is returned without calling the provider while the breaker is open.
	ErrCircuitOpen = circuitbreaker.ErrCircuitOpen
)

// FetchFunc performs one provider attempt and returns its raw JSON response.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

// Cache is the response store consulted before any provider call.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Put(key string, payload json.RawMessage)
}

// Limiter paces provider calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Breaker short-circuits calls to a failing provider.
type Breaker interface {
	Allow() bool
	RecordSuccess()
	RecordFailure()
}

// Config wires the executor's collaborators. Cache, Limiter and Breaker are optional.
type Config struct {
	Cache        Cache
	Limiter      Limiter
	Breaker      Breaker
	MaxRetries   int
	RetryDelay   time.Duration
	ThrottleBase time.Duration
	Classify     ClassifierFunc
}

// Executor is safe for concurrent use.
type Executor struct {
	cache        Cache
	limiter      Limiter
	breaker      Breaker
	maxRetries   int
	retryDelay   time.Duration
	throttleBase time.Duration
	classify     ClassifierFunc
	quota        atomic.Int64

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an executor, filling unset fields with defaults
func New(cfg Config) *Executor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.ThrottleBase <= 0 {
		cfg.ThrottleBase = DefaultThrottleBase
	}
	if cfg.Classify == nil {
		cfg.Classify = Classify
	}

	return &Executor{
		cache:        cfg.Cache,
		limiter:      cfg.Limiter,
		breaker:      cfg.Breaker,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		throttleBase: cfg.ThrottleBase,
		classify:     cfg.Classify,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// QuotaUsed returns the number of attempts that reached the provider.
func (e *Executor) QuotaUsed() int64 {
	return e.quota.Load()
}

// ResetQuota zeroes the quota counter.
func (e *Executor) ResetQuota() {
	e.quota.Store(0)
}

func isEmpty(payload json.RawMessage) bool {
	return len(payload) == 0 || string(payload) == "null"
}

// Do returns the cached response for call, or runs fetch until it succeeds,
// fails for good, or the attempts run out. A nil payload with a nil error
// means the provider had no data for the call.
func (e *Executor) Do(ctx context.Context, call Call, fetch FetchFunc) (json.RawMessage, error) {
	key := call.Key()
	entry := log.WithFields(log.Fields{
		"resource": call.Resource,
		"method":   call.Method,
	})

	if e.cache != nil {
		if payload, ok := e.cache.Get(key); ok {
			entry.Debugf("%s Cache hit for %s", logcolors.LogExecutor, call)
			return payload, nil
		}
	}

	if e.breaker != nil && !e.breaker.Allow() {
		entry.Debugf("%s Rejected %s", logcolors.LogExecutor, call)
		return nil, fmt.Errorf("%s: %w", call, ErrCircuitOpen)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		final := attempt == e.maxRetries
		attemptLog := entry.WithField("attempt", attempt)

		payload, err := fetch(ctx)
		if err == nil {
			e.quota.Add(1)
			e.recordSuccess()

			if !isEmpty(payload) {
				attemptLog.WithField("outcome", "success").Debugf("%s %s", logcolors.LogExecutor, call)
				if e.cache != nil {
					e.cache.Put(key, payload)
				}
				return payload, nil
			}

			attemptLog.WithField("outcome", "empty").Debugf("%s %s", logcolors.LogExecutor, call)
			if final {
				break
			}
			if err := e.sleep(ctx, e.retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		class := e.classify(err)
		if class.billed() {
			e.quota.Add(1)
		}
		attemptLog.WithFields(log.Fields{
			"outcome": "error",
			"class":   class.String(),
		}).Debugf("%s %s: %v", logcolors.LogExecutor, call, err)

		switch class {
		case ClassQuotaExceeded:
			log.Warnf("%s Quota exceeded on %s", logcolors.LogQuota, call)
			notifier.PublishQuotaExceeded(call.Resource+"."+call.Method, e.quota.Load())
			return nil, fmt.Errorf("%w: %w", ErrQuotaExceeded, err)

		case ClassFatal, ClassCancelled:
			return nil, err

		case ClassThrottled:
			if final {
				log.Warnf("%s Still throttled after %d attempts on %s", logcolors.LogExecutor, attempt, call)
				return nil, nil
			}
			backoff := e.throttleBase * time.Duration(1<<(attempt-1))
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, err
			}

		default:
			e.recordFailure()
			if final {
				log.Errorf("%s %s failed after %d attempts: %v", logcolors.LogExecutor, call, attempt, err)
				return nil, err
			}
			if err := e.sleep(ctx, e.retryDelay); err != nil {
				return nil, err
			}
		}
	}

	log.Warnf("%s %s returned no data after %d attempts", logcolors.LogExecutor, call, e.maxRetries)
	return nil, nil
}

func (e *Executor) recordSuccess() {
	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}
}

func (e *Executor) recordFailure() {
	if e.breaker != nil {
		e.breaker.RecordFailure()
	}
}
