package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/pauljones0/epic-free-games-bot/internal/validator"
)

const (
	defaultEpicAPIURL  = "https://epic-games-store-free-games.p.rapidapi.com/free?country=PL"
	defaultEpicAPIHost = "epic-games-store-free-games.p.rapidapi.com"

	BackendFile      = "file"
	BackendFirestore = "firestore"
	BackendGCS       = "gcs"
)

type Config struct {
	DiscordToken      string   `validate:"required"`
	OwnerID           string   `validate:"required,numeric"`
	ChannelIDs        []string `validate:"dive,numeric"`
	ChannelName       string
	DiscordWebhookURL string `validate:"omitempty,url"`

	EpicAPIKey   string        `validate:"required"`
	EpicAPIURL   string        `validate:"required,url"`
	EpicAPIHost  string        `validate:"required,hostname"`
	FetchTimeout time.Duration `validate:"gt=0"`

	Location      *time.Location `validate:"required"`
	DailyHour     int            `validate:"gte=0,lte=23"`
	DailyMinute   int            `validate:"gte=0,lte=59"`
	ConfirmWindow time.Duration  `validate:"gt=0"`
	WebhookMinGap time.Duration  `validate:"gte=0"`

	StateBackend    string `validate:"oneof=file firestore gcs"`
	StateFile       string `validate:"required_if=StateBackend file"`
	ProjectID       string `validate:"required_if=StateBackend firestore"`
	StateBucket     string `validate:"required_if=StateBackend gcs"`
	StateObject     string
	CredentialsFile string

	Port      string
	LogLevel  slog.Level
	LogFormat string `validate:"oneof=text json"`
}

// DailyTime renders the configured check time as HH:MM.
func (c *Config) DailyTime() string {
	return fmt.Sprintf("%02d:%02d", c.DailyHour, c.DailyMinute)
}

// HTTPEnabled reports whether the health/metrics server should run.
func (c *Config) HTTPEnabled() bool {
	return c.Port != "" && !strings.EqualFold(c.Port, "off")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func Load() (*Config, error) {
	// A missing .env is normal in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	cfg := &Config{
		DiscordToken:      os.Getenv("DISCORD_TOKEN"),
		OwnerID:           strings.TrimSpace(os.Getenv("OWNER_ID")),
		ChannelIDs:        splitList(os.Getenv("CHANNEL_ID")),
		ChannelName:       getenv("CHANNEL_NAME", "free-games"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		EpicAPIKey:        os.Getenv("EPIC_API_KEY"),
		EpicAPIURL:        getenv("EPIC_API_URL", defaultEpicAPIURL),
		EpicAPIHost:       getenv("EPIC_API_HOST", defaultEpicAPIHost),
		StateBackend:      strings.ToLower(getenv("STATE_BACKEND", BackendFile)),
		StateFile:         getenv("STATE_FILE", "posted_games.json"),
		ProjectID:         os.Getenv("GOOGLE_CLOUD_PROJECT"),
		StateBucket:       os.Getenv("STATE_BUCKET"),
		StateObject:       getenv("STATE_OBJECT", "posted_games.json"),
		CredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_FILE"),
		Port:              getenv("PORT", "8080"),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "text")),
	}

	if cfg.DiscordWebhookURL == "" {
		slog.Debug("DISCORD_WEBHOOK_URL not set, webhook destination disabled")
	}

	var err error
	if cfg.FetchTimeout, err = parseDuration("FETCH_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ConfirmWindow, err = parseDuration("CONFIRM_WINDOW", "1m"); err != nil {
		return nil, err
	}
	if cfg.WebhookMinGap, err = parseDuration("WEBHOOK_RATE_LIMIT", "500ms"); err != nil {
		return nil, err
	}

	tz := getenv("TIMEZONE", "Europe/Warsaw")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	at := getenv("DAILY_CHECK_TIME", "17:01")
	cfg.DailyHour, cfg.DailyMinute, err = parseClock(at)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_CHECK_TIME %q: %w", at, err)
	}

	level := getenv("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := getenv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// parseClock parses "HH:MM" into hour and minute.
func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour out of range")
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute out of range")
	}
	return hour, minute, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
