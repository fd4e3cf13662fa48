package notifier

import (
	"slices"
	"sync"
	"time"
)

// EventType names something operators may want to hear about
type EventType string

const (
	EventCircuitBreakerOpen      EventType = "circuit_breaker_open"
	EventCircuitBreakerRecovered EventType = "circuit_breaker_recovered"
	EventQuotaExceeded           EventType = "quota_exceeded"
	EventServerStarted           EventType = "server_started"
	EventCacheCleared            EventType = "cache_cleared"
)

// Critical reports whether the event means searches are failing
func (t EventType) Critical() bool {
	return t == EventCircuitBreakerOpen || t == EventQuotaExceeded
}

// Event carries the facts of one occurrence. Which fields are set depends on
// Type: Source is the breaker name, the API call or the provider; Count is
// the failure run, quota units or cache entries.
type Event struct {
	Type     EventType
	Source   string
	Count    int64
	Cooldown time.Duration
	Port     string
	At       time.Time
}

func newEvent(t EventType, source string) *Event {
	return &Event{Type: t, Source: source, At: time.Now()}
}

// Handler receives published events on its own goroutine
type Handler func(*Event)

type subscription struct {
	types   []EventType // empty means every type
	handler Handler
}

// EventBus fans events out to subscribers without blocking the publisher
type EventBus struct {
	mu   sync.RWMutex
	subs []subscription
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

var (
	defaultBus     *EventBus
	defaultBusOnce sync.Once
)

// GetEventBus returns the process-wide bus the publish helpers use
func GetEventBus() *EventBus {
	defaultBusOnce.Do(func() { defaultBus = NewEventBus() })
	return defaultBus
}

// Subscribe registers handler for the given types, or for all when none given
func (b *EventBus) Subscribe(handler Handler, types ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{types: types, handler: handler})
}

func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if len(s.types) == 0 || slices.Contains(s.types, event.Type) {
			go s.handler(event)
		}
	}
}

func PublishCircuitBreakerOpen(name string, failures int, cooldown time.Duration) {
	e := newEvent(EventCircuitBreakerOpen, name)
	e.Count = int64(failures)
	e.Cooldown = cooldown
	GetEventBus().Publish(e)
}

func PublishCircuitBreakerRecovered(name string) {
	GetEventBus().Publish(newEvent(EventCircuitBreakerRecovered, name))
}

// PublishQuotaExceeded reports that call was refused for quota after
// unitsUsed units had been spent by this process
func PublishQuotaExceeded(call string, unitsUsed int64) {
	e := newEvent(EventQuotaExceeded, call)
	e.Count = unitsUsed
	GetEventBus().Publish(e)
}

func PublishCacheCleared(entries int) {
	e := newEvent(EventCacheCleared, "cache")
	e.Count = int64(entries)
	GetEventBus().Publish(e)
}

func PublishServerStarted(port, provider string) {
	e := newEvent(EventServerStarted, provider)
	e.Port = port
	GetEventBus().Publish(e)
}
