// Package notifier delivers operational alerts (circuit breaker trips, quota
// exhaustion) over email, Telegram or ntfy.sh.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"playlist-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const sendTimeout = 10 * time.Second

// Notifier interface for different notification methods
type Notifier interface {
	Name() string
	Send(ctx context.Context, subject, message string) error
}

// =============================================================================
// EMAIL NOTIFIER
// =============================================================================

type EmailNotifier struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmail      string
}

func (e *EmailNotifier) Name() string { return "email" }

// Send delivers over SMTP. net/smtp has no context support, so ctx is only
// checked before dialing.
func (e *EmailNotifier) Send(ctx context.Context, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", e.SMTPUsername, e.SMTPPassword, e.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.FromEmail, e.ToEmail, subject, message))

	addr := e.SMTPHost + ":" + e.SMTPPort
	if err := smtp.SendMail(addr, auth, e.FromEmail, []string{e.ToEmail}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	log.Infof("%s Email notification sent to %s", logcolors.LogNotifier, e.ToEmail)
	return nil
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string // default https://api.telegram.org
	Client   *http.Client
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Send(ctx context.Context, subject, message string) error {
	base := t.APIBase
	if base == "" {
		base = "https://api.telegram.org"
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", subject, message),
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := post(t.Client, req); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	log.Infof("%s Telegram notification sent to chat %s", logcolors.LogNotifier, t.ChatID)
	return nil
}

// =============================================================================
// NTFY.SH NOTIFIER
// =============================================================================

type NtfyNotifier struct {
	Topic  string
	Server string // default https://ntfy.sh
	Client *http.Client
}

func (n *NtfyNotifier) Name() string { return "ntfy" }

func (n *NtfyNotifier) Send(ctx context.Context, subject, message string) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/"+n.Topic, bytes.NewBufferString(message))
	if err != nil {
		return fmt.Errorf("create ntfy request: %w", err)
	}
	req.Header.Set("Title", subject)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "warning,youtube")

	if err := post(n.Client, req); err != nil {
		return fmt.Errorf("ntfy: %w", err)
	}

	log.Infof("%s Ntfy notification sent to topic %s", logcolors.LogNotifier, n.Topic)
	return nil
}

func post(client *http.Client, req *http.Request) error {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Settings selects and configures the notifiers. A channel is enabled when
// its identifying field is set.
type Settings struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmail      string

	TelegramBotToken string
	TelegramChatID   string

	NtfyTopic  string
	NtfyServer string
}

// FromSettings builds every enabled notifier
func FromSettings(s Settings) []Notifier {
	var notifiers []Notifier

	if s.SMTPHost != "" {
		notifiers = append(notifiers, &EmailNotifier{
			SMTPHost:     s.SMTPHost,
			SMTPPort:     s.SMTPPort,
			SMTPUsername: s.SMTPUsername,
			SMTPPassword: s.SMTPPassword,
			FromEmail:    s.FromEmail,
			ToEmail:      s.ToEmail,
		})
	}
	if s.TelegramBotToken != "" {
		notifiers = append(notifiers, &TelegramNotifier{
			BotToken: s.TelegramBotToken,
			ChatID:   s.TelegramChatID,
		})
	}
	if s.NtfyTopic != "" {
		notifiers = append(notifiers, &NtfyNotifier{
			Topic:  s.NtfyTopic,
			Server: s.NtfyServer,
		})
	}

	for _, n := range notifiers {
		log.Infof("%s %s notifier enabled", logcolors.LogNotifier, n.Name())
	}
	return notifiers
}
