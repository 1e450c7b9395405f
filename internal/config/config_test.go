package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OWNER_ID", "1234567890")
	t.Setenv("EPIC_API_KEY", "key")
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("CHANNEL_ID", "111, 222")
	t.Setenv("PORT", "9090")
	t.Setenv("DAILY_CHECK_TIME", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.OwnerID != "1234567890" {
		t.Errorf("Expected owner 1234567890, got %s", cfg.OwnerID)
	}
	if len(cfg.ChannelIDs) != 2 || cfg.ChannelIDs[0] != "111" || cfg.ChannelIDs[1] != "222" {
		t.Errorf("Expected channels [111 222], got %v", cfg.ChannelIDs)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected 9090, got %s", cfg.Port)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("Expected default fetch timeout 10s, got %s", cfg.FetchTimeout)
	}
	if cfg.ConfirmWindow != time.Minute {
		t.Errorf("Expected default confirm window 1m, got %s", cfg.ConfirmWindow)
	}
	if cfg.DailyTime() != "17:01" {
		t.Errorf("Expected default daily time 17:01, got %s", cfg.DailyTime())
	}
	if cfg.Location.String() != "Europe/Warsaw" {
		t.Errorf("Expected Europe/Warsaw, got %s", cfg.Location)
	}
	if cfg.StateBackend != BackendFile || cfg.StateFile != "posted_games.json" {
		t.Errorf("Expected file backend at posted_games.json, got %s %s", cfg.StateBackend, cfg.StateFile)
	}
	if cfg.EpicAPIURL != defaultEpicAPIURL {
		t.Errorf("Expected default API URL, got %s", cfg.EpicAPIURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"DISCORD_TOKEN", "OWNER_ID", "EPIC_API_KEY"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			if _, err := Load(); err == nil {
				t.Errorf("Load() should return an error when %s is not set", key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FETCH_TIMEOUT", "not-a-duration"},
		{"CONFIRM_WINDOW", "soon"},
		{"DAILY_CHECK_TIME", "25:00"},
		{"DAILY_CHECK_TIME", "1701"},
		{"TIMEZONE", "Mars/Olympus"},
		{"STATE_BACKEND", "redis"},
		{"LOG_LEVEL", "loud"},
		{"OWNER_ID", "not-a-snowflake"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() should return error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_CustomSchedule(t *testing.T) {
	setRequired(t)
	t.Setenv("DAILY_CHECK_TIME", "08:30")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DailyHour != 8 || cfg.DailyMinute != 30 {
		t.Errorf("Expected 08:30, got %s", cfg.DailyTime())
	}
	if cfg.Location != time.UTC {
		t.Errorf("Expected UTC location, got %s", cfg.Location)
	}
}

func TestLoad_CloudBackendsRequireTarget(t *testing.T) {
	setRequired(t)
	t.Setenv("STATE_BACKEND", "firestore")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	if _, err := Load(); err == nil {
		t.Error("firestore backend without GOOGLE_CLOUD_PROJECT should fail")
	}

	t.Setenv("STATE_BACKEND", "gcs")
	t.Setenv("STATE_BUCKET", "")
	if _, err := Load(); err == nil {
		t.Error("gcs backend without STATE_BUCKET should fail")
	}

	t.Setenv("STATE_BUCKET", "fred-state")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.StateBucket != "fred-state" {
		t.Errorf("Expected bucket fred-state, got %s", cfg.StateBucket)
	}
}

func TestHTTPEnabled(t *testing.T) {
	for port, want := range map[string]bool{"8080": true, "off": false, "OFF": false, "": false} {
		cfg := &Config{Port: port}
		if got := cfg.HTTPEnabled(); got != want {
			t.Errorf("HTTPEnabled() with port %q = %v, want %v", port, got, want)
		}
	}
}
