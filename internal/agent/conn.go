package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ClientFactory builds a fresh client to the remote agent service.
type ClientFactory func() (Client, error)

// ConnConfig controls reconnection and health-check behavior.
type ConnConfig struct {
	ConnectTimeout       time.Duration
	HealthCheckInterval  time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int
}

// DefaultConnConfig returns default connection management settings.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		ConnectTimeout:       10 * time.Second,
		HealthCheckInterval:  2 * time.Minute,
		ReconnectBaseDelay:   5 * time.Second,
		ReconnectMaxDelay:    60 * time.Second,
		ReconnectMaxAttempts: 10,
	}
}

// ConnManager owns the lifecycle of the remote agent client: creation,
// periodic health checks, and scheduled reconnection with exponential
// backoff. All failures are non-fatal; they only toggle the healthy
// flag and extend backoff.
type ConnManager struct {
	cfg     ConnConfig
	factory ClientFactory
	logger  *slog.Logger

	mu                sync.Mutex
	client            Client
	initialized       bool
	healthy           bool
	reconnectAttempts int
	lastSuccess       time.Time
	reconnectTimer    *time.Timer
	healthCancel      context.CancelFunc
	closed            bool
}

// NewConnManager creates a connection manager. Call Initialize to build
// the first client.
func NewConnManager(cfg ConnConfig, factory ClientFactory, logger *slog.Logger) *ConnManager {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConnConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = def.HealthCheckInterval
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if cfg.ReconnectMaxAttempts <= 0 {
		cfg.ReconnectMaxAttempts = def.ReconnectMaxAttempts
	}

	return &ConnManager{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
	}
}

// Initialize builds the remote client exactly once. Failures never
// propagate: the manager schedules a reconnect instead, so server
// startup is never blocked by a misbehaving agent service.
func (m *ConnManager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := m.Reconnect(ctx); err != nil {
		m.logger.Warn("Agent client initialization failed, reconnect scheduled", "error", err)
		return
	}
	m.logger.Info("Agent client initialized")
}

// Reconnect rebuilds the client and validates it with a health request.
// On success the backoff counter resets and the periodic health check
// is (re)armed; on failure the next attempt is scheduled with
// exponential backoff.
func (m *ConnManager) Reconnect(ctx context.Context) error {
	client, err := m.factory()
	if err == nil {
		hctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		err = client.Health(hctx)
		cancel()
	}

	if err != nil {
		if client != nil {
			client.Close()
		}
		m.mu.Lock()
		m.healthy = false
		attempt := m.reconnectAttempts
		m.mu.Unlock()

		m.logger.Warn("Agent reconnect failed", "attempt", attempt+1, "error", err)
		m.scheduleReconnect()
		return err
	}

	m.mu.Lock()
	old := m.client
	m.client = client
	m.initialized = true
	m.healthy = true
	m.reconnectAttempts = 0
	m.lastSuccess = time.Now()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.mu.Unlock()

	if old != nil && old != client {
		old.Close()
	}

	m.logger.Info("Agent connection established")
	m.startHealthLoop()
	return nil
}

// scheduleReconnect arms a one-shot reconnect timer using
// min(baseDelay * 2^attempts, maxDelay). The attempt counter wraps to 0
// at the configured ceiling so retries continue forever at the capped
// interval.
func (m *ConnManager) scheduleReconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.reconnectAttempts >= m.cfg.ReconnectMaxAttempts {
		m.logger.Warn("Max reconnect attempts reached, resetting counter",
			"max_attempts", m.cfg.ReconnectMaxAttempts)
		m.reconnectAttempts = 0
	}
	delay := backoffDelay(m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay, m.reconnectAttempts)
	m.reconnectAttempts++
	attempt := m.reconnectAttempts

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer = time.AfterFunc(delay, func() {
		//nolint:errcheck // failure reschedules itself
		m.Reconnect(context.Background())
	})
	m.mu.Unlock()

	m.logger.Info("Scheduled agent reconnect", "attempt", attempt, "delay", delay)
}

// startHealthLoop (re)arms the periodic health check. Only one loop is
// ever active: re-arming cancels the previous goroutine first.
func (m *ConnManager) startHealthLoop() {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return
	}
	if m.healthCancel != nil {
		m.healthCancel()
	}
	m.healthCancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.cfg.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.PerformHealthCheck(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// PerformHealthCheck validates the current connection. If the client
// was never initialized it falls back to a full reconnect; otherwise a
// cheap health request decides the healthy flag.
func (m *ConnManager) PerformHealthCheck(ctx context.Context) {
	m.mu.Lock()
	initialized := m.initialized
	client := m.client
	m.mu.Unlock()

	if !initialized || client == nil {
		m.logger.Info("Health check: client not initialized, attempting reconnect")
		//nolint:errcheck // failure reschedules itself
		m.Reconnect(ctx)
		return
	}

	hctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	err := client.Health(hctx)
	cancel()

	if err != nil {
		m.logger.Warn("Health check failed, scheduling reconnect", "error", err)
		m.mu.Lock()
		m.healthy = false
		m.mu.Unlock()
		m.scheduleReconnect()
		return
	}

	m.mu.Lock()
	m.healthy = true
	m.lastSuccess = time.Now()
	m.mu.Unlock()
	m.logger.Debug("Health check passed")
}

// Client returns the current client, or nil if none was built yet.
func (m *ConnManager) Client() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Healthy reports whether the connection passed its last validation.
func (m *ConnManager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized && m.healthy
}

// MarkHealthy records a successful call made outside the health loop.
func (m *ConnManager) MarkHealthy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = true
	m.lastSuccess = time.Now()
}

// MarkUnhealthy records a failed call made outside the health loop.
func (m *ConnManager) MarkUnhealthy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = false
}

// Status returns a snapshot of the connection state.
func (m *ConnManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Initialized:       m.initialized,
		Healthy:           m.healthy,
		ReconnectAttempts: m.reconnectAttempts,
	}
	if !m.lastSuccess.IsZero() {
		t := m.lastSuccess
		st.LastSuccessfulConnection = &t
	}
	return st
}

// Close stops timers and the health loop and closes the client.
func (m *ConnManager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.healthCancel != nil {
		m.healthCancel()
		m.healthCancel = nil
	}
	client := m.client
	m.client = nil
	m.initialized = false
	m.healthy = false
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}
}

// backoffDelay computes min(base * 2^attempt, limit).
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}
