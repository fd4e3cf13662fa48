package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	YouTube struct {
		APIKey             string `envconfig:"YOUTUBE_API_KEY" default:""`
		Endpoint           string `envconfig:"YOUTUBE_ENDPOINT" default:""` // Override for API-compatible proxies
		RequestTimeoutSecs int    `envconfig:"REQUEST_TIMEOUT_SECS" default:"10"`
	}

	Search struct {
		MaxPlaylists   int      `envconfig:"MAX_PLAYLISTS" default:"100"`
		Workers        int      `envconfig:"WORKERS" default:"10"`
		ParallelSearch bool     `envconfig:"PARALLEL_SEARCH" default:"true"`
		Strategies     []string `envconfig:"SEARCH_STRATEGIES" default:"exact_title,channel_playlists,title_channel,keyword_search"`
	}

	Provider struct {
		CallsPerSecond             float64 `envconfig:"CALLS_PER_SECOND" default:"2"`
		MaxRetries                 int     `envconfig:"MAX_RETRIES" default:"3"`
		CircuitBreakerThreshold    int     `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"10"`   // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int     `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"60"` // Seconds to wait before a test request
	}

	Cache struct {
		Dir         string `envconfig:"CACHE_DIR" default:".cache"`
		ExpireHours int    `envconfig:"CACHE_EXPIRE_HOURS" default:"24"`
		FlushEvery  int    `envconfig:"CACHE_FLUSH_EVERY" default:"10"`
	}

	Server struct {
		Port                string `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond  int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		APIKey              string `envconfig:"API_KEY" default:""`
		APIKeyRequired      bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
	}

	Notifier struct {
		SMTPHost         string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort         string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername     string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword     string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail        string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail          string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID   string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic        string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer       string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		AlertCooldownMin int    `envconfig:"NOTIFIER_ALERT_COOLDOWN_MINUTES" default:"15"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"false"`
	}
}

// RequestTimeout returns the per-request HTTP timeout for provider calls.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.YouTube.RequestTimeoutSecs) * time.Second
}

// CircuitBreakerCooldown returns the open-state cooldown of the provider circuit breaker.
func (c Config) CircuitBreakerCooldown() time.Duration {
	return time.Duration(c.Provider.CircuitBreakerCooldownSecs) * time.Second
}

// AlertCooldown returns the minimum gap between alerts of the same kind.
func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.Notifier.AlertCooldownMin) * time.Minute
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
