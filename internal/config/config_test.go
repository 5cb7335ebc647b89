package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
		{"uses default for negative", "TEST_INT_4", "-5", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestGetReplyPersistence(t *testing.T) {
	os.Unsetenv("TEST_REPLY_MODE")
	if got := getReplyPersistence("TEST_REPLY_MODE"); got != ReplyInPlace {
		t.Errorf("Expected default %q, got %q", ReplyInPlace, got)
	}

	t.Setenv("TEST_REPLY_MODE", "append")
	if got := getReplyPersistence("TEST_REPLY_MODE"); got != ReplyAppend {
		t.Errorf("Expected %q, got %q", ReplyAppend, got)
	}
}

func TestGetReplyPersistence_PanicsOnUnknown(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for unknown persistence strategy")
		}
	}()

	t.Setenv("TEST_REPLY_MODE", "sideways")
	getReplyPersistence("TEST_REPLY_MODE")
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dialogues")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_REQUEST_TIMEOUT_SECONDS", "15")
	t.Setenv("REPLY_PERSISTENCE", "append")

	cfg := Load()

	if cfg.AIRequestTimeout != 15*time.Second {
		t.Errorf("Expected 15s timeout, got %s", cfg.AIRequestTimeout)
	}
	if cfg.HistoryTTL != time.Hour {
		t.Errorf("Expected 1h history TTL, got %s", cfg.HistoryTTL)
	}
	if cfg.ListCacheTTL != 3*time.Minute {
		t.Errorf("Expected 3m list cache TTL, got %s", cfg.ListCacheTTL)
	}
	if cfg.ReplyPersistence != ReplyAppend {
		t.Errorf("Expected append, got %q", cfg.ReplyPersistence)
	}
	if cfg.WorkerCount != 5 || cfg.JobMaxRetries != 3 {
		t.Errorf("unexpected pipeline defaults: %d workers, %d retries", cfg.WorkerCount, cfg.JobMaxRetries)
	}
}

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var text, jsonOut bytes.Buffer
	logger := SetupLoggerWithWriters(&text, &jsonOut, slog.LevelInfo)

	logger.Info("dialogue completed", "dialogue_id", 42)
	logger.Debug("dropped")

	if !strings.Contains(text.String(), "dialogue completed") {
		t.Errorf("text handler missed the record: %q", text.String())
	}

	var record map[string]any
	if err := json.Unmarshal(jsonOut.Bytes(), &record); err != nil {
		t.Fatalf("json handler output is not one JSON record: %v", err)
	}
	if record["dialogue_id"] != float64(42) {
		t.Errorf("Expected dialogue_id 42, got %v", record["dialogue_id"])
	}
}

func TestParseLogLevel(t *testing.T) {
	if ParseLogLevel("debug") != slog.LevelDebug {
		t.Errorf("expected debug level")
	}
	if ParseLogLevel("nonsense") != slog.LevelInfo {
		t.Errorf("expected info fallback")
	}
}
