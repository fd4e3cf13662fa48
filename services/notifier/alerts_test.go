package notifier

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	sent     chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan struct{}, 10)}
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, subject, message string) error {
	r.mu.Lock()
	r.subjects = append(r.subjects, subject)
	r.mu.Unlock()
	r.sent <- struct{}{}
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

func TestFormatAlert(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		subject string
		body    string
	}{
		{
			"circuit open",
			&Event{Type: EventCircuitBreakerOpen, Source: "youtube", Count: 10, Cooldown: time.Minute},
			"🚨 Circuit Breaker OPEN",
			"after 10 consecutive failures",
		},
		{
			"quota",
			&Event{Type: EventQuotaExceeded, Source: "search.list", Count: 9999},
			"🚨 YouTube Quota Exhausted",
			"rejected search.list",
		},
		{
			"recovered",
			&Event{Type: EventCircuitBreakerRecovered, Source: "youtube"},
			"ℹ️ Circuit Breaker Recovered",
			"youtube circuit breaker has closed",
		},
		{
			"server started",
			&Event{Type: EventServerStarted, Source: "youtube", Port: "8080"},
			"ℹ️ Server Started",
			"port 8080 using the youtube provider",
		},
		{
			"cache cleared is silent",
			&Event{Type: EventCacheCleared, Count: 3},
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := formatAlert(tt.event)
			if subject != tt.subject {
				t.Errorf("subject = %q, want %q", subject, tt.subject)
			}
			if !strings.Contains(body, tt.body) {
				t.Errorf("body %q does not contain %q", body, tt.body)
			}
		})
	}
}

func TestAlertCooldown(t *testing.T) {
	rec := newRecordingNotifier()
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{rec}, CooldownDuration: time.Hour})
	event := &Event{Type: EventQuotaExceeded, Source: "x", Count: 1}

	h.HandleEvent(event)
	h.HandleEvent(event)
	if rec.count() != 1 {
		t.Errorf("Expected repeated alerts to be suppressed, got %d", rec.count())
	}

	h.ResetCooldown(EventQuotaExceeded)
	h.HandleEvent(event)
	if rec.count() != 2 {
		t.Errorf("Expected an alert after reset, got %d", rec.count())
	}
}

func TestNewAlertHandlerDefaultCooldown(t *testing.T) {
	h := NewAlertHandler(AlertConfig{})
	if h.cooldownDuration != DefaultAlertCooldown {
		t.Errorf("Expected default cooldown, got %v", h.cooldownDuration)
	}
}

func TestEventBusDelivers(t *testing.T) {
	bus := NewEventBus()
	rec := newRecordingNotifier()
	NewAlertHandler(AlertConfig{Notifiers: []Notifier{rec}}).Start(bus)

	typed := make(chan *Event, 1)
	bus.Subscribe(func(e *Event) { typed <- e }, EventCircuitBreakerOpen)
	other := make(chan *Event, 1)
	bus.Subscribe(func(e *Event) { other <- e }, EventCacheCleared)

	bus.Publish(&Event{Type: EventCircuitBreakerOpen, Source: "youtube", Count: 3, Cooldown: time.Minute})

	select {
	case <-rec.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the alert handler to send")
	}
	select {
	case e := <-typed:
		if e.Source != "youtube" || e.Count != 3 {
			t.Errorf("Unexpected event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the typed subscriber to receive the event")
	}
	select {
	case e := <-other:
		t.Errorf("Subscriber for another type received %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventTypeCritical(t *testing.T) {
	for typ, want := range map[EventType]bool{
		EventCircuitBreakerOpen:      true,
		EventQuotaExceeded:           true,
		EventCircuitBreakerRecovered: false,
		EventServerStarted:           false,
		EventCacheCleared:            false,
	} {
		if got := typ.Critical(); got != want {
			t.Errorf("%s.Critical() = %v, want %v", typ, got, want)
		}
	}
}
