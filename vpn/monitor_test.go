package vpn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yllada/vpn-provider-cli/common"
	"github.com/yllada/vpn-provider-cli/config"
	"github.com/yllada/vpn-provider-cli/provider"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateUp, "Up"},
		{StateDown, "Down"},
		{StateUnreachable, "Unreachable"},
		{StateUnknown, "Unknown"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultMonitorConfig(t *testing.T) {
	config := DefaultMonitorConfig()

	if config.CheckInterval != 30*time.Second {
		t.Errorf("CheckInterval = %v, want 30s", config.CheckInterval)
	}
	if config.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %v, want 3", config.FailureThreshold)
	}
	if config.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
}

var monitorOverrides = provider.Table{{common.GroupRegex: {common.ItemStatus: "disconnected"}}}

func TestNewMonitor_Preconditions(t *testing.T) {
	f := newFixture(t, nil, "")

	if _, err := NewMonitor(f.manager, 7, DefaultMonitorConfig()); !errors.Is(err, common.ErrUnknownProvider) {
		t.Errorf("NewMonitor(unknown) error = %v, want ErrUnknownProvider", err)
	}
	if _, err := NewMonitor(f.manager, 2, DefaultMonitorConfig()); !errors.Is(err, common.ErrBinaryMissing) {
		t.Errorf("NewMonitor(missing) error = %v, want ErrBinaryMissing", err)
	}
}

func TestMonitor_Check(t *testing.T) {
	f := newFixture(t, monitorOverrides, "")
	m, err := NewMonitor(f.manager, 1, MonitorConfig{CheckInterval: time.Hour, FailureThreshold: 2})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}

	var changes []State
	m.SetOnChange(func(old, new State) { changes = append(changes, new) })

	f.runner.outputs["status"] = []string{"Connected"}
	if got := m.Check(context.Background()); got != StateUp {
		t.Errorf("Check() = %v, want Up", got)
	}

	f.runner.outputs["status"] = []string{"Disconnected"}
	if got := m.Check(context.Background()); got != StateDown {
		t.Errorf("Check() = %v, want Down", got)
	}

	f.runner.errs["status"] = &provider.ProcessError{Command: "status", ExitCode: 1}
	if got := m.Check(context.Background()); got != StateDown {
		t.Errorf("Check() after one failure = %v, want Down", got)
	}
	if got := m.Check(context.Background()); got != StateUnreachable {
		t.Errorf("Check() after two failures = %v, want Unreachable", got)
	}

	want := []State{StateUp, StateDown, StateUnreachable}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, changes[i], want[i])
		}
	}
	if snap := m.Snapshot(); snap.ConsecutiveFails != 2 || snap.LastCheck.IsZero() {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestMonitor_AutoReconnect(t *testing.T) {
	f := newFixture(t, monitorOverrides, "")
	m, err := NewMonitor(f.manager, 1, MonitorConfig{
		CheckInterval:        time.Hour,
		FailureThreshold:     1,
		AutoReconnect:        true,
		MaxReconnectAttempts: 1,
	})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}

	f.runner.outputs["status"] = []string{"Connected"}
	m.Check(context.Background())

	f.runner.outputs["status"] = []string{"Disconnected"}
	m.Check(context.Background())

	connects := 0
	for _, c := range f.runner.calls {
		if c == "connect" {
			connects++
		}
	}
	if connects != 1 {
		t.Errorf("connect invoked %d times, want 1", connects)
	}
	if snap := m.Snapshot(); snap.ReconnectAttempts != 1 {
		t.Errorf("ReconnectAttempts = %d, want 1", snap.ReconnectAttempts)
	}
}

func (r *scriptedRunner) countOf(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == key {
			n++
		}
	}
	return n
}

func TestMonitor_AutoReconnectRetries(t *testing.T) {
	tests := []struct {
		name        string
		threshold   int
		maxAttempts int
		wasUp       bool
		downs       int
		want        int
	}{
		{"stays down", 1, 3, true, 5, 3},
		{"threshold of two", 2, 3, true, 3, 2},
		{"unlimited attempts", 1, 0, true, 4, 4},
		{"never up", 1, 3, false, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, monitorOverrides, "")
			f.runner.errs["connect"] = &provider.ProcessError{Command: "connect", ExitCode: 1}
			m, err := NewMonitor(f.manager, 1, MonitorConfig{
				CheckInterval:        time.Hour,
				FailureThreshold:     tt.threshold,
				AutoReconnect:        true,
				MaxReconnectAttempts: tt.maxAttempts,
			})
			if err != nil {
				t.Fatalf("NewMonitor() error = %v", err)
			}

			if tt.wasUp {
				f.runner.outputs["status"] = []string{"Connected"}
				m.Check(context.Background())
			}
			f.runner.outputs["status"] = []string{"Disconnected"}
			for i := 0; i < tt.downs; i++ {
				if got := m.Check(context.Background()); got != StateDown {
					t.Fatalf("Check() = %v, want Down", got)
				}
			}

			if got := f.runner.countOf("connect"); got != tt.want {
				t.Errorf("connect invoked %d times, want %d", got, tt.want)
			}
			if snap := m.Snapshot(); snap.ReconnectAttempts != tt.want || snap.ConsecutiveDowns != tt.downs {
				t.Errorf("Snapshot() = %+v, want %d attempts after %d downs", snap, tt.want, tt.downs)
			}
		})
	}
}

func TestMonitor_UpResetsReconnectAttempts(t *testing.T) {
	f := newFixture(t, monitorOverrides, "")
	m, err := NewMonitor(f.manager, 1, MonitorConfig{
		CheckInterval:        time.Hour,
		FailureThreshold:     1,
		AutoReconnect:        true,
		MaxReconnectAttempts: 1,
	})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}

	for round := 1; round <= 2; round++ {
		f.runner.outputs["status"] = []string{"Connected"}
		m.Check(context.Background())
		f.runner.outputs["status"] = []string{"Disconnected"}
		m.Check(context.Background())
		m.Check(context.Background())

		if got := f.runner.countOf("connect"); got != round {
			t.Errorf("round %d: connect invoked %d times, want %d", round, got, round)
		}
	}
}

func TestMonitorConfigFromConfig(t *testing.T) {
	cfg := config.DefaultMonitor()
	cfg.AutoReconnect = true

	got := MonitorConfigFromConfig(cfg)
	if !got.AutoReconnect || got.FailureThreshold != 3 || got.CheckInterval != 30*time.Second {
		t.Errorf("MonitorConfigFromConfig() = %+v", got)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	f := newFixture(t, monitorOverrides, "")
	f.runner.outputs["status"] = []string{"Connected"}

	m, err := NewMonitor(f.manager, 1, MonitorConfig{CheckInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}

	var once sync.Once
	up := make(chan struct{})
	m.SetOnChange(func(old, new State) {
		if new == StateUp {
			once.Do(func() { close(up) })
		}
	})

	m.Start(context.Background())
	m.Start(context.Background())

	select {
	case <-up:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor never reported Up")
	}

	m.Stop()
	m.Stop()

	calls := f.runner.count()
	time.Sleep(30 * time.Millisecond)
	if f.runner.count() != calls {
		t.Error("monitor kept polling after Stop")
	}
}
