package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Agent.HealthCheckInterval != 2*time.Minute {
		t.Errorf("Expected 2m health interval, got %v", cfg.Agent.HealthCheckInterval)
	}
	if cfg.Agent.ReconnectBaseDelay != 5*time.Second || cfg.Agent.ReconnectMaxDelay != 60*time.Second {
		t.Errorf("Unexpected reconnect delays: %v / %v",
			cfg.Agent.ReconnectBaseDelay, cfg.Agent.ReconnectMaxDelay)
	}
	if cfg.Agent.ReconnectMaxAttempts != 10 {
		t.Errorf("Expected 10 max attempts, got %d", cfg.Agent.ReconnectMaxAttempts)
	}
	if cfg.Intent.DefaultThreshold != 0.3 {
		t.Errorf("Expected default threshold 0.3, got %v", cfg.Intent.DefaultThreshold)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("AGENT_RECONNECT_BASE_DELAY", "1s")
	t.Setenv("INTENT_THRESHOLD", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Expected port 9000, got %s", cfg.Port)
	}
	if cfg.Intent.Backend != "memory" {
		t.Errorf("Expected memory backend, got %s", cfg.Intent.Backend)
	}
	if cfg.Agent.ReconnectBaseDelay != time.Second {
		t.Errorf("Expected 1s base delay, got %v", cfg.Agent.ReconnectBaseDelay)
	}
	if cfg.Intent.DefaultThreshold != 0.5 {
		t.Errorf("Expected threshold 0.5, got %v", cfg.Intent.DefaultThreshold)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "pinecone")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown vector backend")
	}

	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("INTENT_THRESHOLD", "1.5")
	if _, err := Load(); err == nil {
		t.Error("Expected error for out-of-range threshold")
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://app.example.com", false},
	}
	for _, tc := range cases {
		c := Config{FrontendURL: tc.url}
		if got := c.IsDevelopment(); got != tc.want {
			t.Errorf("IsDevelopment(%q): expected %v, got %v", tc.url, tc.want, got)
		}
	}
}
