package config

import (
	"os"
	"testing"
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
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
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
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
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

func TestLoadDefaults(t *testing.T) {
	os.Setenv("RESOLVER_WEBHOOK_URL", "http://localhost:5678/webhook/chat")
	os.Setenv("SCRAPE_RESULT_URL", "http://localhost:5678/webhook/analysis")
	os.Setenv("JWT_SECRET", "test-secret")
	defer func() {
		os.Unsetenv("RESOLVER_WEBHOOK_URL")
		os.Unsetenv("SCRAPE_RESULT_URL")
		os.Unsetenv("JWT_SECRET")
	}()

	cfg := Load()

	if cfg.RequestCooldownSeconds != 5 {
		t.Errorf("RequestCooldownSeconds: got %d, want 5", cfg.RequestCooldownSeconds)
	}
	if cfg.MinSqft != 200 {
		t.Errorf("MinSqft: got %d, want 200", cfg.MinSqft)
	}
	if cfg.PriceBuckets != 5 {
		t.Errorf("PriceBuckets: got %d, want 5", cfg.PriceBuckets)
	}
	if cfg.ScrapeTimeoutMinutes != 30 {
		t.Errorf("ScrapeTimeoutMinutes: got %d, want 30", cfg.ScrapeTimeoutMinutes)
	}
}
