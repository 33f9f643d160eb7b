// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	Agent     AgentConfig
	Embedding EmbeddingConfig
	Intent    IntentConfig
	Session   SessionConfig
	Trips     TripsConfig
}

// AgentConfig controls the remote conversational-agent connection.
type AgentConfig struct {
	BaseURL              string
	AgentID              string
	AliasID              string
	ConnectTimeout       time.Duration
	RequestTimeout       time.Duration
	HealthCheckInterval  time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int
}

// EmbeddingConfig controls the text-embedding endpoint.
type EmbeddingConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	Timeout   time.Duration
	CacheSize int
}

// IntentConfig controls intent classification.
type IntentConfig struct {
	Backend          string // "chromem" or "memory"
	ChromemPath      string // empty disables persistence
	DefaultThreshold float32
}

// SessionConfig controls conversational session lifetime.
type SessionConfig struct {
	SweepInterval time.Duration
	MaxAge        time.Duration
}

// TripsConfig points at the booking-management endpoints used by the
// cancellation flow.
type TripsConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/voice.db"),
		Agent: AgentConfig{
			BaseURL:              getEnv("AGENT_BASE_URL", "http://localhost:9090"),
			AgentID:              getEnv("AGENT_ID", ""),
			AliasID:              getEnv("AGENT_ALIAS_ID", "TSTALIASID"),
			ConnectTimeout:       getEnvDuration("AGENT_CONNECT_TIMEOUT", 10*time.Second),
			RequestTimeout:       getEnvDuration("AGENT_REQUEST_TIMEOUT", 60*time.Second),
			HealthCheckInterval:  getEnvDuration("AGENT_HEALTH_INTERVAL", 2*time.Minute),
			ReconnectBaseDelay:   getEnvDuration("AGENT_RECONNECT_BASE_DELAY", 5*time.Second),
			ReconnectMaxDelay:    getEnvDuration("AGENT_RECONNECT_MAX_DELAY", 60*time.Second),
			ReconnectMaxAttempts: getEnvInt("AGENT_RECONNECT_MAX_ATTEMPTS", 10),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Timeout:   getEnvDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			CacheSize: getEnvInt("EMBEDDING_CACHE_SIZE", 10000),
		},
		Intent: IntentConfig{
			Backend:          getEnv("VECTOR_BACKEND", "chromem"),
			ChromemPath:      getEnv("CHROMEM_PATH", "./data/intents"),
			DefaultThreshold: getEnvFloat32("INTENT_THRESHOLD", 0.3),
		},
		Session: SessionConfig{
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 30*time.Minute),
			MaxAge:        getEnvDuration("SESSION_MAX_AGE", 60*time.Minute),
		},
		Trips: TripsConfig{
			BaseURL: getEnv("TRIPS_BASE_URL", ""),
			Timeout: getEnvDuration("TRIPS_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.Intent.Backend {
	case "chromem", "memory":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be \"chromem\" or \"memory\", got %q", c.Intent.Backend)
	}
	if c.Intent.DefaultThreshold < 0 || c.Intent.DefaultThreshold > 1 {
		return fmt.Errorf("INTENT_THRESHOLD must be within [0,1]")
	}
	if c.Agent.ReconnectMaxAttempts <= 0 {
		return fmt.Errorf("AGENT_RECONNECT_MAX_ATTEMPTS must be > 0")
	}
	if c.Session.SweepInterval <= 0 || c.Session.MaxAge <= 0 {
		return fmt.Errorf("session sweep interval and max age must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
