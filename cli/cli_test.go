package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yllada/vpn-provider-cli/common"
	"github.com/yllada/vpn-provider-cli/history"
	"github.com/yllada/vpn-provider-cli/provider"
	"github.com/yllada/vpn-provider-cli/vpn"
)

type stubRunner struct {
	mu      sync.Mutex
	outputs map[string][]string
	calls   []string
}

func (r *stubRunner) Run(ctx context.Context, bin string, args ...string) (*provider.Output, error) {
	key := strings.Join(args, " ")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
	return &provider.Output{Lines: r.outputs[key]}, nil
}

type stubTokens map[int]string

func (s stubTokens) SetToken(id int, token string) error {
	s[id] = token
	return nil
}

func (s stubTokens) HasToken(id int) bool {
	_, ok := s[id]
	return ok
}

type stubJournal []history.Entry

func (j stubJournal) List(ctx context.Context, limit int) ([]history.Entry, error) {
	return j, nil
}

func newTestCLI(t *testing.T, runner *stubRunner, tokens TokenStore, journal Journal) (*CLI, *bytes.Buffer) {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "acmevpn")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	manager := vpn.NewManager(vpn.Options{
		Providers: []provider.Provider{
			{ID: 1, Name: "Acme VPN", BinPath: bin, Parser: common.ParserTokens},
			{ID: 2, Name: "Ghost VPN", BinPath: "/nonexistent/ghost", InstallPage: "https://ghost.example"},
		},
		Adapter: provider.New(provider.Options{Runner: runner}),
	})

	var out bytes.Buffer
	return New(manager, tokens, journal, &out), &out
}

func TestListProviders(t *testing.T) {
	c, out := newTestCLI(t, &stubRunner{}, stubTokens{1: "x"}, nil)

	if err := c.ListProviders(); err != nil {
		t.Fatalf("ListProviders() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("ListProviders() printed %d lines, want 4:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[2], "Acme VPN") || !strings.Contains(lines[2], "Yes") || !strings.Contains(lines[2], "stored") {
		t.Errorf("row 1 = %q", lines[2])
	}
	if !strings.Contains(lines[3], "Ghost VPN") || !strings.Contains(lines[3], "No") {
		t.Errorf("row 2 = %q", lines[3])
	}
}

func TestStatus_JSON(t *testing.T) {
	runner := &stubRunner{outputs: map[string][]string{"countries": {"Albania,Costa_Rica"}}}
	c, out := newTestCLI(t, runner, nil, nil)

	if err := c.Status(context.Background(), 1, true); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	var got struct {
		Status    string           `json:"status"`
		Countries []provider.Entry `json:"countries"`
		Controls  bool             `json:"controls_enabled"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out.String())
	}
	if !got.Controls {
		t.Error("controls_enabled = false, want true")
	}
	if len(got.Countries) != 3 || got.Countries[2].Name != "Costa Rica" {
		t.Errorf("countries = %+v", got.Countries)
	}
}

func TestStatus_MissingBinary(t *testing.T) {
	c, out := newTestCLI(t, &stubRunner{}, nil, nil)

	if err := c.Status(context.Background(), 2, false); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "not found") || !strings.Contains(text, "[warning] Expected Ghost VPN binary not found at: /nonexistent/ghost") {
		t.Errorf("Status() output:\n%s", text)
	}
}

func TestCountries(t *testing.T) {
	runner := &stubRunner{outputs: map[string][]string{"countries": {"Albania, Costa_Rica"}}}
	c, out := newTestCLI(t, runner, nil, nil)

	if err := c.Countries(context.Background(), 1); err != nil {
		t.Fatalf("Countries() error = %v", err)
	}
	if !strings.Contains(out.String(), "Costa_Rica  Costa Rica") {
		t.Errorf("Countries() output:\n%s", out.String())
	}
	if strings.Contains(out.String(), provider.PlaceholderName) {
		t.Error("Countries() printed the placeholder")
	}
}

func TestConnect(t *testing.T) {
	runner := &stubRunner{outputs: map[string][]string{"connect Albania": {"Connected to Albania"}}}
	c, out := newTestCLI(t, runner, nil, nil)

	if err := c.Connect(context.Background(), 1, "Albania"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	want := "[info] Attempting to connect to Albania\n[info] Connected to Albania\n"
	if out.String() != want {
		t.Errorf("Connect() output = %q, want %q", out.String(), want)
	}
}

func TestConnect_BlankCountry(t *testing.T) {
	runner := &stubRunner{}
	c, out := newTestCLI(t, runner, nil, nil)

	err := c.Connect(context.Background(), 1, "   ")
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("Connect() error = %v, want ErrValidation", err)
	}
	if !strings.Contains(out.String(), "[danger] Select a country from the server location list") {
		t.Errorf("Connect() output = %q", out.String())
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner calls = %v, want none", runner.calls)
	}
}

func TestSetToken(t *testing.T) {
	tokens := stubTokens{}
	c, out := newTestCLI(t, &stubRunner{}, tokens, nil)

	if err := c.SetToken(1, "abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if tokens[1] != "abc" {
		t.Errorf("stored token = %q, want %q", tokens[1], "abc")
	}
	if !strings.Contains(out.String(), "Acme VPN") {
		t.Errorf("SetToken() output = %q", out.String())
	}

	if err := c.SetToken(9, "abc"); !errors.Is(err, common.ErrUnknownProvider) {
		t.Errorf("SetToken(unknown) error = %v, want ErrUnknownProvider", err)
	}
}

func TestSetToken_FromStdin(t *testing.T) {
	tokens := stubTokens{}
	c, _ := newTestCLI(t, &stubRunner{}, tokens, nil)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	defer r.Close()
	w.WriteString("  piped-token \n")
	w.Close()
	c.in = r

	if err := c.SetToken(1, ""); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if tokens[1] != "piped-token" {
		t.Errorf("stored token = %q, want %q", tokens[1], "piped-token")
	}
}

func TestHistory(t *testing.T) {
	journal := stubJournal{
		{Provider: "Acme VPN", Action: history.ActionCountry, Country: "UK", Success: true, CreatedAt: time.Now().Add(-90 * time.Second)},
		{Provider: "Acme VPN", Action: history.ActionConnect, Detail: "exit 1", CreatedAt: time.Now().Add(-2 * time.Hour)},
	}
	c, out := newTestCLI(t, &stubRunner{}, nil, journal)

	if err := c.History(context.Background(), 10); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "1m 30s ago") || !strings.Contains(text, "failed") || !strings.Contains(text, "UK") {
		t.Errorf("History() output:\n%s", text)
	}
}

func TestHistory_Disabled(t *testing.T) {
	c, out := newTestCLI(t, &stubRunner{}, nil, nil)
	if err := c.History(context.Background(), 10); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if !strings.Contains(out.String(), "disabled") {
		t.Errorf("History() output = %q", out.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h 3m 4s"},
		{50 * time.Hour, "2d 2h"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q, want %q", got, "short")
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate() = %q, want %q", got, "abcd…")
	}
}
