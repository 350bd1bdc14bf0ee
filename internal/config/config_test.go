package config

import (
	"os"
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

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal time.Duration
		expected   time.Duration
	}{
		{"parses duration", "TEST_DUR_1", "90s", time.Minute, 90 * time.Second},
		{"uses default for empty", "TEST_DUR_2", "", time.Minute, time.Minute},
		{"uses default for garbage", "TEST_DUR_3", "soon", time.Minute, time.Minute},
		{"uses default for negative", "TEST_DUR_4", "-5m", time.Minute, time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsDurationOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	os.Setenv("TEST_LIST", " http://a.test , ,http://b.test")
	defer os.Unsetenv("TEST_LIST")

	got := getEnvAsListOrDefault("TEST_LIST", "")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Expected two trimmed origins, got %q", got)
	}

	got = getEnvAsListOrDefault("TEST_LIST_UNSET", "http://localhost:5173")
	if len(got) != 1 || got[0] != "http://localhost:5173" {
		t.Errorf("Expected default origin, got %q", got)
	}
}

func TestLoad(t *testing.T) {
	os.Setenv("JWT_SECRET", "secret")
	os.Setenv("LMS_API_URL", "http://lms.test/api")
	os.Setenv("QUESTION_SOURCE", "local")
	os.Setenv("SESSION_TTL", "45m")
	defer func() {
		for _, k := range []string{"JWT_SECRET", "LMS_API_URL", "QUESTION_SOURCE", "SESSION_TTL"} {
			os.Unsetenv(k)
		}
	}()

	cfg := Load()
	if cfg.JWTSecret != "secret" || cfg.LMSAPIURL != "http://lms.test/api" {
		t.Errorf("required values not loaded: %+v", cfg)
	}
	if !cfg.UseLocalBank() {
		t.Errorf("Expected local bank source")
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Errorf("Expected 45m session TTL, got %v", cfg.SessionTTL)
	}
	if cfg.LMSTimeout != 10*time.Second || cfg.WorkerCount != 2 {
		t.Errorf("Expected defaults, got timeout=%v workers=%d", cfg.LMSTimeout, cfg.WorkerCount)
	}
}
