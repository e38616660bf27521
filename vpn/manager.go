// Package vpn provides the action layer of the VPN provider CLI.
// This file contains the Manager type, which answers the status bundle and
// control actions for any configured provider.
package vpn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yllada/vpn-provider-cli/common"
	"github.com/yllada/vpn-provider-cli/config"
	"github.com/yllada/vpn-provider-cli/history"
	"github.com/yllada/vpn-provider-cli/provider"
)

// Messages shown by the action layer.
const (
	msgValidationCountry = "Select a country from the server location list"
	msgConnecting        = "Attempting to connect VPN provider"
	msgDisconnecting     = "Attempting to disconnect VPN provider"
	msgLoggingIn         = "Attempting to log in to VPN provider"

	versionNotFound = "not found"
)

// Bundle is everything shown for one provider.
type Bundle struct {
	Messages []provider.Message `json:"messages"`
	Provider provider.Provider  `json:"provider"`
	// ControlsEnabled is false when the provider binary is missing.
	ControlsEnabled bool              `json:"controls_enabled"`
	Status          provider.Status   `json:"-"`
	StatusDisplay   string            `json:"status"`
	Version         string            `json:"version"`
	AccountInfo     []string          `json:"account_info"`
	Countries       []provider.Entry  `json:"countries"`
	Country         string            `json:"country"`
	Log             string            `json:"log"`
	PublicIP        string            `json:"public_ip"`

	catalog *provider.Catalog
}

// Catalog returns the country catalog of the bundle.
func (b *Bundle) Catalog() *provider.Catalog {
	if b.catalog == nil {
		return provider.NewCatalog()
	}
	return b.catalog
}

// TokenSource returns stored provider login tokens.
type TokenSource interface {
	Token(providerID int) (string, error)
}

// Options configures a Manager.
type Options struct {
	Providers   []provider.Provider
	Adapter     *provider.Adapter
	Tokens      TokenSource
	History     history.Recorder
	Notifier    common.Notifier
	PublicIPURL string
	HTTPClient  *http.Client
}

// Manager dispatches actions to the provider adapter and turns every
// outcome into leveled messages.
type Manager struct {
	providers []provider.Provider
	byID      map[int]provider.Provider
	adapter   *provider.Adapter
	tokens    TokenSource
	history   history.Recorder
	notifier  common.Notifier
	ipURL     string
	client    *http.Client
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		providers: opts.Providers,
		byID:      make(map[int]provider.Provider, len(opts.Providers)),
		adapter:   opts.Adapter,
		tokens:    opts.Tokens,
		history:   opts.History,
		notifier:  opts.Notifier,
		ipURL:     opts.PublicIPURL,
		client:    opts.HTTPClient,
	}
	for _, p := range opts.Providers {
		m.byID[p.ID] = p
	}
	if m.adapter == nil {
		m.adapter = provider.New(provider.Options{})
	}
	if m.notifier == nil {
		m.notifier = common.NopNotifier{}
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: common.PublicIPTimeout}
	}
	return m
}

// ProvidersFromConfig converts the configured catalog.
func ProvidersFromConfig(cfg *config.Config) []provider.Provider {
	out := make([]provider.Provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, provider.Provider{
			ID:          p.ID,
			Name:        p.Name,
			BinPath:     p.BinPath,
			InstallPage: p.InstallPage,
			Parser:      p.Parser,
		})
	}
	return out
}

// Providers returns the configured providers in catalog order.
func (m *Manager) Providers() []provider.Provider {
	return append([]provider.Provider(nil), m.providers...)
}

// Provider returns the provider with the given id.
func (m *Manager) Provider(id int) (provider.Provider, error) {
	p, ok := m.byID[id]
	if !ok {
		return provider.Provider{}, fmt.Errorf("%w: %d", common.ErrUnknownProvider, id)
	}
	return p, nil
}

// Adapter returns the underlying provider adapter.
func (m *Manager) Adapter() *provider.Adapter {
	return m.adapter
}

// MissingBinaryMessages guides the user to install a provider CLI.
func MissingBinaryMessages(p provider.Provider) []provider.Message {
	return []provider.Message{
		provider.Warning(fmt.Sprintf("Expected %s binary not found at: %s", p.Name, p.BinPath)),
		provider.Warning(fmt.Sprintf("Visit the installation instructions for %s's Linux CLI: %s", p.Name, p.InstallPage)),
	}
}

// FetchBundle collects status, log, version, account details, countries
// and the public IP for a provider. Failures of individual queries become
// messages; only an unknown provider is an error. When the binary is
// missing nothing is invoked and controls are disabled.
func (m *Manager) FetchBundle(ctx context.Context, id int) (*Bundle, error) {
	p, err := m.Provider(id)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Provider:      p,
		Status:        provider.StatusDown,
		StatusDisplay: provider.StatusDown.Display(),
		catalog:       provider.NewCatalog(),
	}

	if !p.Installed() {
		common.LogWarn("%s binary not found at %s", p.Name, p.BinPath)
		b.Messages = MissingBinaryMessages(p)
		b.Version = versionNotFound
		b.Countries = b.catalog.Entries()
		b.PublicIP = m.PublicIP(ctx)
		return b, nil
	}
	b.ControlsEnabled = true

	var (
		statusErr, logErr, versionErr, accountErr, countriesErr error
		logResult                                               provider.LogResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Status, statusErr = m.adapter.Status(gctx, p)
		return nil
	})
	g.Go(func() error {
		logResult, logErr = m.adapter.Log(gctx, p)
		return nil
	})
	g.Go(func() error {
		b.Version, versionErr = m.adapter.Version(gctx, p)
		return nil
	})
	g.Go(func() error {
		b.AccountInfo, accountErr = m.adapter.AccountInfo(gctx, p)
		return nil
	})
	g.Go(func() error {
		b.catalog, countriesErr = m.adapter.Countries(gctx, p)
		return nil
	})
	g.Go(func() error {
		b.PublicIP = m.PublicIP(gctx)
		return nil
	})
	g.Wait()

	if b.catalog == nil {
		b.catalog = provider.NewCatalog()
	}
	b.StatusDisplay = b.Status.Display()
	b.Log = logResult.Text
	b.Country = logResult.Country
	b.Countries = b.catalog.Entries()

	for _, err := range []error{statusErr, logErr, versionErr, accountErr, countriesErr} {
		if err != nil {
			b.Messages = append(b.Messages, provider.FailureMessage(p, err))
		}
	}

	return b, nil
}

// Start connects the provider.
func (m *Manager) Start(ctx context.Context, id int) ([]provider.Message, error) {
	p, msgs, err := m.precondition(id)
	if err != nil {
		return msgs, err
	}

	msgs = append(msgs, provider.Info(msgConnecting))
	out, err := m.adapter.Connect(ctx, p)
	msgs = append(msgs, out...)

	m.record(ctx, p, history.ActionConnect, "", out, err)
	m.notifyControl(p, "VPN Connected", "Connected to "+p.Name, err)
	return msgs, err
}

// Stop disconnects the provider.
func (m *Manager) Stop(ctx context.Context, id int) ([]provider.Message, error) {
	p, msgs, err := m.precondition(id)
	if err != nil {
		return msgs, err
	}

	msgs = append(msgs, provider.Info(msgDisconnecting))
	out, err := m.adapter.Disconnect(ctx, p)
	msgs = append(msgs, out...)

	m.record(ctx, p, history.ActionDisconnect, "", out, err)
	m.notifyControl(p, "VPN Disconnected", "Disconnected from "+p.Name, err)
	return msgs, err
}

// SaveCountry connects the provider to country. A blank country yields a
// danger message and invokes nothing.
func (m *Manager) SaveCountry(ctx context.Context, id int, country string) ([]provider.Message, error) {
	p, msgs, err := m.precondition(id)
	if err != nil {
		return msgs, err
	}

	country = strings.TrimSpace(country)
	if country == "" {
		msgs = append(msgs, provider.Danger(msgValidationCountry))
		return msgs, fmt.Errorf("%w: %s", common.ErrValidation, msgValidationCountry)
	}

	msgs = append(msgs, provider.Info("Attempting to connect to "+country))
	out, err := m.adapter.ConnectToCountry(ctx, p, country)
	msgs = append(msgs, out...)

	m.record(ctx, p, history.ActionCountry, country, out, err)
	m.notifyControl(p, "VPN Connected", fmt.Sprintf("Connected to %s via %s", country, p.Name), err)
	return msgs, err
}

// Login logs the provider CLI in with the token stored for it.
func (m *Manager) Login(ctx context.Context, id int) ([]provider.Message, error) {
	p, msgs, err := m.precondition(id)
	if err != nil {
		return msgs, err
	}
	if m.tokens == nil {
		msgs = append(msgs, provider.Danger("No credential store configured"))
		return msgs, common.ErrCredentialsNotFound
	}

	token, err := m.tokens.Token(p.ID)
	if err != nil {
		msgs = append(msgs, provider.Danger(fmt.Sprintf("No login token stored for %s", p.Name)))
		return msgs, err
	}

	msgs = append(msgs, provider.Info(msgLoggingIn))
	out, err := m.adapter.Login(ctx, p, token)
	msgs = append(msgs, out...)

	m.record(ctx, p, history.ActionLogin, "", out, err)
	return msgs, err
}

// precondition resolves the provider and checks its binary.
func (m *Manager) precondition(id int) (provider.Provider, []provider.Message, error) {
	p, err := m.Provider(id)
	if err != nil {
		return p, []provider.Message{provider.Danger(err.Error())}, err
	}
	if !p.Installed() {
		return p, MissingBinaryMessages(p), fmt.Errorf("%w: %s", common.ErrBinaryMissing, p.BinPath)
	}
	return p, nil, nil
}

// PublicIP returns the caller's public address, or "" when the lookup fails.
func (m *Manager) PublicIP(ctx context.Context) string {
	if m.ipURL == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, common.PublicIPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ipURL, nil)
	if err != nil {
		common.LogWarn("Public IP lookup: %v", err)
		return ""
	}
	req.Header.Set("User-Agent", common.ConfigDirName)

	resp, err := m.client.Do(req)
	if err != nil {
		common.LogWarn("Public IP lookup: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		common.LogWarn("Public IP lookup: unexpected status %s", resp.Status)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		common.LogWarn("Public IP lookup: %v", err)
		return ""
	}
	return strings.TrimSpace(string(body))
}

func (m *Manager) record(ctx context.Context, p provider.Provider, action, country string, out []provider.Message, err error) {
	if m.history == nil {
		return
	}

	e := history.Entry{
		ProviderID: p.ID,
		Provider:   p.Name,
		Action:     action,
		Country:    country,
		Success:    err == nil,
		CreatedAt:  time.Now(),
	}
	if err != nil {
		e.Detail = err.Error()
	} else if len(out) > 0 {
		e.Detail = out[len(out)-1].Text
	}

	// a cancelled action is still journaled
	if rerr := m.history.Record(context.WithoutCancel(ctx), e); rerr != nil {
		common.LogWarn("Failed to journal %s for %s: %v", action, p.Name, rerr)
	}
}

func (m *Manager) notifyControl(p provider.Provider, title, message string, err error) {
	if err != nil {
		title = "Connection Error"
		message = fmt.Sprintf("%s: %s", p.Name, provider.FailureMessage(p, err).Text)
	}
	if nerr := m.notifier.Notify(title, message); nerr != nil {
		common.LogDebug("Notification failed: %v", nerr)
	}
}
