package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		shouldSet    bool
		want         time.Duration
	}{
		{
			name:         "parses a valid duration",
			key:          "TEST_DUR",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			shouldSet:    true,
			want:         30 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DUR_MISSING",
			defaultValue: 10 * time.Second,
			shouldSet:    false,
			want:         10 * time.Second,
		},
		{
			name:         "returns default on an unparseable value",
			key:          "TEST_DUR_BAD",
			defaultValue: 10 * time.Second,
			envValue:     "soon",
			shouldSet:    true,
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvAsDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("requires BACKEND_BASE_URL without mock mode", func(t *testing.T) {
		t.Setenv("BACKEND_BASE_URL", "")
		t.Setenv("MOCK_MODE", "")

		if _, err := Load(); err == nil {
			t.Error("Load() expected an error when BACKEND_BASE_URL is unset")
		}
	})

	t.Run("mock mode needs no backend URL", func(t *testing.T) {
		t.Setenv("BACKEND_BASE_URL", "")
		t.Setenv("MOCK_MODE", "true")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if !cfg.MockMode {
			t.Error("MockMode = false, want true")
		}
	})

	t.Run("defaults preserve single-attempt no-timeout outbound behavior", func(t *testing.T) {
		t.Setenv("BACKEND_BASE_URL", "https://backend.example.com")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.BackendRetryMax != 0 {
			t.Errorf("BackendRetryMax = %d, want 0", cfg.BackendRetryMax)
		}

		if cfg.BackendTimeout != 0 {
			t.Errorf("BackendTimeout = %v, want 0", cfg.BackendTimeout)
		}

		if cfg.PollInterval != 10*time.Second {
			t.Errorf("PollInterval = %v, want 10s", cfg.PollInterval)
		}

		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want 8080", cfg.Port)
		}
	})

	t.Run("rejects a non-positive poll interval", func(t *testing.T) {
		t.Setenv("BACKEND_BASE_URL", "https://backend.example.com")
		t.Setenv("POLL_INTERVAL", "-5s")

		if _, err := Load(); err == nil {
			t.Error("Load() expected an error for a negative POLL_INTERVAL")
		}
	})
}
