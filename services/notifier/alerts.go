package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"playlist-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultAlertCooldown is the minimum gap between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute
)

// AlertHandler turns bus events into notifications
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
	}
}

// Start subscribes the handler to bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.Subscribe(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats and sends one event unless its type is cooling down
func (h *AlertHandler) HandleEvent(event *Event) {
	subject, message := formatAlert(event)
	if subject == "" {
		return
	}

	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	h.sendAlert(subject, message)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// formatAlert returns an empty subject for events that should not alert
func formatAlert(e *Event) (subject, message string) {
	switch e.Type {
	case EventCircuitBreakerOpen:
		subject = "Circuit Breaker OPEN"
		message = fmt.Sprintf("The %s circuit breaker tripped after %d consecutive failures.\n\n"+
			"Provider calls are rejected for %v. Check YouTube Data API status and network connectivity.",
			e.Source, e.Count, e.Cooldown)
	case EventQuotaExceeded:
		subject = "YouTube Quota Exhausted"
		message = fmt.Sprintf("The provider rejected %s because the daily quota is spent "+
			"(%d units used by this process).\n\nSearches fail until the quota resets at midnight Pacific time.",
			e.Source, e.Count)
	case EventCircuitBreakerRecovered:
		subject = "Circuit Breaker Recovered"
		message = fmt.Sprintf("The %s circuit breaker has closed and provider calls are flowing again.", e.Source)
	case EventServerStarted:
		subject = "Server Started"
		message = fmt.Sprintf("Playlist finder is listening on port %s using the %s provider.", e.Port, e.Source)
	default:
		return "", ""
	}

	if e.Type.Critical() {
		return "🚨 " + subject, message
	}
	return "ℹ️ " + subject, message
}

func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Debugf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	sent := 0
	for _, n := range h.notifiers {
		if err := n.Send(ctx, subject, message); err != nil {
			log.Errorf("%s Failed to send alert via %s: %v", logcolors.LogNotifier, n.Name(), err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Infof("%s Alert sent via %d/%d notifiers", logcolors.LogNotifier, sent, len(h.notifiers))
	}
}

// ResetCooldown allows the next alert of eventType immediately
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}
