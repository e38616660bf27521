package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yllada/vpn-provider-cli/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Elevation != "sudo" {
		t.Errorf("Elevation = %q, want %q", cfg.Elevation, "sudo")
	}
	if cfg.Timeouts.Settle != 3*time.Second {
		t.Errorf("Timeouts.Settle = %v, want 3s", cfg.Timeouts.Settle)
	}
	if len(cfg.Providers) != 3 {
		t.Fatalf("len(Providers) = %d, want 3", len(cfg.Providers))
	}

	tests := []struct {
		id     int
		name   string
		parser string
	}{
		{1, "ExpressVPN", common.ParserCSV},
		{2, "Mullvad VPN", ""},
		{3, "NordVPN", common.ParserTokens},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := cfg.Provider(tt.id)
			if !ok {
				t.Fatalf("Provider(%d) not found", tt.id)
			}
			if p.Name != tt.name {
				t.Errorf("Name = %q, want %q", p.Name, tt.name)
			}
			if p.Parser != tt.parser {
				t.Errorf("Parser = %q, want %q", p.Parser, tt.parser)
			}
		})
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
providers_file: /etc/raspap/provider.json
timeouts:
  connect: 90s
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ProvidersFile != "/etc/raspap/provider.json" {
		t.Errorf("ProvidersFile = %q", cfg.ProvidersFile)
	}
	if cfg.Timeouts.Connect != 90*time.Second {
		t.Errorf("Timeouts.Connect = %v, want 90s", cfg.Timeouts.Connect)
	}
	if cfg.Timeouts.Command != common.CommandTimeout {
		t.Errorf("Timeouts.Command = %v, want default %v", cfg.Timeouts.Command, common.CommandTimeout)
	}
	if len(cfg.Providers) != 3 {
		t.Errorf("len(Providers) = %d, want defaults", len(cfg.Providers))
	}
}

func TestLoadFrom_Monitor(t *testing.T) {
	path := writeConfig(t, `
monitor:
  auto_reconnect: true
  failure_threshold: 2
  max_reconnect_attempts: -1
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if !cfg.Monitor.AutoReconnect {
		t.Error("Monitor.AutoReconnect = false, want true")
	}
	if cfg.Monitor.FailureThreshold != 2 {
		t.Errorf("Monitor.FailureThreshold = %d, want 2", cfg.Monitor.FailureThreshold)
	}
	if cfg.Monitor.CheckInterval != 30*time.Second {
		t.Errorf("Monitor.CheckInterval = %v, want default 30s", cfg.Monitor.CheckInterval)
	}
	if cfg.Monitor.MaxReconnectAttempts != 0 {
		t.Errorf("Monitor.MaxReconnectAttempts = %d, want 0 (unlimited)", cfg.Monitor.MaxReconnectAttempts)
	}
}

func TestLoadFrom_ReplacesProviders(t *testing.T) {
	path := writeConfig(t, `
active_provider: 7
providers:
  - id: 1
    name: Acme VPN
    bin_path: /opt/acme/bin/acme
    install_page: https://acme.example/linux
    parser: csv
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("len(Providers) = %d, want 1", len(cfg.Providers))
	}
	if cfg.ActiveProvider != 1 {
		t.Errorf("ActiveProvider = %d, want fallback to 1", cfg.ActiveProvider)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "theme: dark\n"},
		{"zero id", "providers:\n  - id: 0\n    name: X\n    bin_path: /x\n"},
		{"duplicate id", "providers:\n  - id: 1\n    name: A\n    bin_path: /a\n  - id: 1\n    name: B\n    bin_path: /b\n"},
		{"missing name", "providers:\n  - id: 1\n    bin_path: /a\n"},
		{"missing bin path", "providers:\n  - id: 1\n    name: A\n"},
		{"empty catalog", "providers: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrom(writeConfig(t, tt.body)); err == nil {
				t.Error("LoadFrom() error = nil, want error")
			}
		})
	}
}

func TestLoadFrom_EmptyFile(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ActiveProvider != 1 {
		t.Errorf("ActiveProvider = %d, want 1", cfg.ActiveProvider)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv(EnvProvidersFile, "/tmp/providers.json")
	t.Setenv(EnvElevation, "")
	t.Setenv(EnvPublicIPURL, "http://127.0.0.1:9/ip")

	cfg, err := LoadFrom(writeConfig(t, "elevation: pkexec\n"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ProvidersFile != "/tmp/providers.json" {
		t.Errorf("ProvidersFile = %q", cfg.ProvidersFile)
	}
	if cfg.Elevation != "" {
		t.Errorf("Elevation = %q, want empty (env set to empty)", cfg.Elevation)
	}
	if cfg.PublicIPURL != "http://127.0.0.1:9/ip" {
		t.Errorf("PublicIPURL = %q", cfg.PublicIPURL)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Timeouts.Settle = 5 * time.Second
	cfg.ShowNotifications = false

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Timeouts.Settle != 5*time.Second {
		t.Errorf("Timeouts.Settle = %v, want 5s", loaded.Timeouts.Settle)
	}
	if loaded.ShowNotifications {
		t.Error("ShowNotifications should stay false")
	}
}
