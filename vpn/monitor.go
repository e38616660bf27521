// Package vpn provides the action layer of the VPN provider CLI.
// This file contains the Monitor, which polls a provider's status and
// reports state changes, optionally reconnecting a dropped tunnel.
package vpn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yllada/vpn-provider-cli/common"
	"github.com/yllada/vpn-provider-cli/config"
	"github.com/yllada/vpn-provider-cli/provider"
)

// State is the observed state of a monitored provider.
type State int

const (
	StateUnknown State = iota
	StateUp
	StateDown
	StateUnreachable
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUp:
		return "Up"
	case StateDown:
		return "Down"
	case StateUnreachable:
		return "Unreachable"
	default:
		return "Unknown"
	}
}

// MonitorConfig holds configuration for the monitor.
type MonitorConfig struct {
	// CheckInterval is how often to query the provider status.
	CheckInterval time.Duration
	// FailureThreshold is how many consecutive failed queries mark the
	// provider unreachable, and how many consecutive "down" checks of a
	// provider that was up trigger a reconnect.
	FailureThreshold int
	// AutoReconnect reconnects a provider that dropped after being up.
	AutoReconnect bool
	// ReconnectDelay is the delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts is the maximum number of consecutive
	// reconnection attempts (0 = unlimited).
	MaxReconnectAttempts int
}

// DefaultMonitorConfig returns sensible defaults for monitoring.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckInterval:        30 * time.Second,
		FailureThreshold:     3,
		AutoReconnect:        false,
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 3,
	}
}

// MonitorConfigFromConfig converts the monitor section of the config.
func MonitorConfigFromConfig(cfg config.Monitor) MonitorConfig {
	return MonitorConfig{
		CheckInterval:        cfg.CheckInterval,
		FailureThreshold:     cfg.FailureThreshold,
		AutoReconnect:        cfg.AutoReconnect,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}
}

// Snapshot is the tracked state of the monitored provider.
type Snapshot struct {
	ProviderID        int
	State             State
	LastCheck         time.Time
	LastChange        time.Time
	ConsecutiveFails  int
	ConsecutiveDowns  int
	ReconnectAttempts int
}

// Monitor polls one provider's status.
type Monitor struct {
	mu       sync.RWMutex
	config   MonitorConfig
	manager  *Manager
	provider provider.Provider
	snapshot Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func(old, new State)
	// wasUp arms auto-reconnect; a provider never seen up is left alone.
	wasUp  bool
	gaveUp bool
}

// NewMonitor creates a monitor for the provider with the given id.
func NewMonitor(manager *Manager, providerID int, config MonitorConfig) (*Monitor, error) {
	p, err := manager.Provider(providerID)
	if err != nil {
		return nil, err
	}
	if !p.Installed() {
		return nil, fmt.Errorf("%w: %s", common.ErrBinaryMissing, p.BinPath)
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultMonitorConfig().CheckInterval
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	return &Monitor{
		config:   config,
		manager:  manager,
		provider: p,
		snapshot: Snapshot{ProviderID: p.ID},
	}, nil
}

// SetOnChange sets a callback for state changes.
func (m *Monitor) SetOnChange(callback func(old, new State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = callback
}

// Start begins polling until ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done, interval := m.done, m.config.CheckInterval
	m.mu.Unlock()

	common.LogInfo("Monitoring %s (interval: %v)", m.provider.Name, interval)
	go m.runLoop(ctx, interval, done)
}

// Stop stops polling and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	common.LogInfo("Stopped monitoring %s", m.provider.Name)
}

// Snapshot returns a copy of the tracked state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func (m *Monitor) runLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check queries the status once and returns the resulting state.
func (m *Monitor) Check(ctx context.Context) State {
	status, err := m.manager.Adapter().Status(ctx, m.provider)

	m.mu.Lock()
	s := &m.snapshot
	s.LastCheck = time.Now()
	old := s.State

	switch {
	case err != nil:
		s.ConsecutiveFails++
		common.LogWarn("Status check failed for %s (attempt %d/%d): %v",
			m.provider.Name, s.ConsecutiveFails, m.config.FailureThreshold, err)
		if s.ConsecutiveFails >= m.config.FailureThreshold {
			s.State = StateUnreachable
		}
	case status == provider.StatusUp:
		s.ConsecutiveFails = 0
		s.ConsecutiveDowns = 0
		s.ReconnectAttempts = 0
		s.State = StateUp
		m.wasUp = true
		m.gaveUp = false
	default:
		s.ConsecutiveFails = 0
		s.ConsecutiveDowns++
		s.State = StateDown
	}

	state := s.State
	changed := old != state
	if changed {
		s.LastChange = s.LastCheck
	}
	callback := m.onChange
	reconnect := m.config.AutoReconnect && m.wasUp && state == StateDown &&
		s.ConsecutiveDowns >= m.config.FailureThreshold
	m.mu.Unlock()

	if changed {
		common.LogInfo("State changed for %s: %s -> %s", m.provider.Name, old, state)
		if callback != nil {
			callback(old, state)
		}
	}
	if reconnect {
		m.reconnect(ctx)
	}
	return state
}

// reconnect runs one reconnect attempt for a dropped tunnel. A failed
// attempt is retried on the next "down" check until MaxReconnectAttempts.
func (m *Monitor) reconnect(ctx context.Context) {
	m.mu.Lock()
	if m.config.MaxReconnectAttempts > 0 && m.snapshot.ReconnectAttempts >= m.config.MaxReconnectAttempts {
		report := !m.gaveUp
		m.gaveUp = true
		m.mu.Unlock()
		if report {
			common.LogError("Max reconnect attempts reached for %s", m.provider.Name)
		}
		return
	}
	m.snapshot.ReconnectAttempts++
	attempt, delay := m.snapshot.ReconnectAttempts, m.config.ReconnectDelay
	m.mu.Unlock()

	common.LogInfo("Attempting reconnect for %s (attempt %d)", m.provider.Name, attempt)

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if _, err := m.manager.Start(ctx, m.provider.ID); err != nil {
		common.LogError("Reconnect failed for %s: %v", m.provider.Name, err)
	}
}

// UpdateConfig updates the monitor configuration.
func (m *Monitor) UpdateConfig(config MonitorConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}
