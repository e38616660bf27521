// Package cli provides the command-line interface of the VPN provider CLI.
// It prints status bundles and runs control actions for one provider at a
// time, suitable for scripting and automation.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/yllada/vpn-provider-cli/common"
	"github.com/yllada/vpn-provider-cli/history"
	"github.com/yllada/vpn-provider-cli/provider"
	"github.com/yllada/vpn-provider-cli/vpn"
)

// TokenStore keeps provider login tokens.
type TokenStore interface {
	SetToken(providerID int, token string) error
	HasToken(providerID int) bool
}

// Journal lists recorded actions.
type Journal interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// CLI represents the command-line interface.
type CLI struct {
	manager *vpn.Manager
	tokens  TokenStore
	journal Journal
	out     io.Writer
	in      *os.File
	color   bool
}

// New creates a new CLI instance writing to out. tokens and journal may be
// nil when the credential store or history are disabled.
func New(manager *vpn.Manager, tokens TokenStore, journal Journal, out io.Writer) *CLI {
	c := &CLI{
		manager: manager,
		tokens:  tokens,
		journal: journal,
		out:     out,
		in:      os.Stdin,
	}
	if f, ok := out.(*os.File); ok {
		c.color = term.IsTerminal(int(f.Fd()))
	}
	return c
}

var levelStyles = map[provider.Level]lipgloss.Style{
	provider.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	provider.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	provider.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	provider.LevelDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// printMessages writes one line per message, prefixed with its level.
func (c *CLI) printMessages(msgs []provider.Message) {
	for _, msg := range msgs {
		label := fmt.Sprintf("[%s]", msg.Level)
		if c.color {
			label = levelStyles[msg.Level].Render(label)
		}
		fmt.Fprintf(c.out, "%s %s\n", label, msg.Text)
	}
}

// ListProviders lists all configured providers.
func (c *CLI) ListProviders() error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBINARY\tINSTALLED\tPARSER\tTOKEN")
	fmt.Fprintln(w, "--\t----\t------\t---------\t------\t-----")

	for _, p := range c.manager.Providers() {
		installed := "No"
		if p.Installed() {
			installed = "Yes"
		}
		parser := p.Parser
		if parser == "" {
			parser = "-"
		}
		token := "-"
		if c.tokens != nil && c.tokens.HasToken(p.ID) {
			token = "stored"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.BinPath, installed, parser, token)
	}

	return w.Flush()
}

// Status prints the full status bundle of a provider.
func (c *CLI) Status(ctx context.Context, id int, asJSON bool) error {
	b, err := c.manager.FetchBundle(ctx, id)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Provider:\t%s\n", b.Provider.Name)
	fmt.Fprintf(w, "Status:\t%s\n", b.StatusDisplay)
	fmt.Fprintf(w, "Version:\t%s\n", orDash(b.Version))
	fmt.Fprintf(w, "Country:\t%s\n", orDash(b.Country))
	fmt.Fprintf(w, "Public IP:\t%s\n", orDash(b.PublicIP))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(b.AccountInfo) > 0 {
		fmt.Fprintln(c.out, "\nAccount:")
		for _, line := range b.AccountInfo {
			fmt.Fprintf(c.out, "  %s\n", line)
		}
	}
	if len(b.Messages) > 0 {
		fmt.Fprintln(c.out)
		c.printMessages(b.Messages)
	}
	return nil
}

// Countries lists the countries a provider offers.
func (c *CLI) Countries(ctx context.Context, id int) error {
	p, err := c.manager.Provider(id)
	if err != nil {
		return err
	}
	if !p.Installed() {
		c.printMessages(vpn.MissingBinaryMessages(p))
		return common.ErrBinaryMissing
	}

	catalog, err := c.manager.Adapter().Countries(ctx, p)
	if err != nil {
		c.printMessages([]provider.Message{provider.FailureMessage(p, err)})
	}

	countries := catalog.Countries()
	if len(countries) == 0 {
		fmt.Fprintf(c.out, "No countries reported by %s.\n", p.Name)
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME")
	fmt.Fprintln(w, "----\t----")
	for _, e := range countries {
		fmt.Fprintf(w, "%s\t%s\n", e.Code, e.Name)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

// Log prints the provider log.
func (c *CLI) Log(ctx context.Context, id int) error {
	p, err := c.manager.Provider(id)
	if err != nil {
		return err
	}
	if !p.Installed() {
		c.printMessages(vpn.MissingBinaryMessages(p))
		return common.ErrBinaryMissing
	}

	result, err := c.manager.Adapter().Log(ctx, p)
	if result.Text != "" {
		fmt.Fprintln(c.out, result.Text)
	}
	if err != nil {
		c.printMessages([]provider.Message{provider.FailureMessage(p, err)})
	}
	return err
}

// Account prints the provider account details.
func (c *CLI) Account(ctx context.Context, id int) error {
	p, err := c.manager.Provider(id)
	if err != nil {
		return err
	}
	if !p.Installed() {
		c.printMessages(vpn.MissingBinaryMessages(p))
		return common.ErrBinaryMissing
	}

	info, err := c.manager.Adapter().AccountInfo(ctx, p)
	for _, line := range info {
		fmt.Fprintln(c.out, line)
	}
	if err != nil {
		c.printMessages([]provider.Message{provider.FailureMessage(p, err)})
	}
	return err
}

// Connect connects a provider, to country when one is given.
func (c *CLI) Connect(ctx context.Context, id int, country string) error {
	var msgs []provider.Message
	var err error
	if country == "" {
		msgs, err = c.manager.Start(ctx, id)
	} else {
		msgs, err = c.manager.SaveCountry(ctx, id, country)
	}
	c.printMessages(msgs)
	return err
}

// Disconnect disconnects a provider.
func (c *CLI) Disconnect(ctx context.Context, id int) error {
	msgs, err := c.manager.Stop(ctx, id)
	c.printMessages(msgs)
	return err
}

// Login logs the provider CLI in with its stored token.
func (c *CLI) Login(ctx context.Context, id int) error {
	msgs, err := c.manager.Login(ctx, id)
	c.printMessages(msgs)
	return err
}

// SetToken stores a login token for a provider. An empty token is read
// from standard input, without echo when it is a terminal.
func (c *CLI) SetToken(id int, token string) error {
	if c.tokens == nil {
		return errors.New("credential store unavailable")
	}
	p, err := c.manager.Provider(id)
	if err != nil {
		return err
	}

	if token == "" {
		token, err = c.readToken(p.Name)
		if err != nil {
			return err
		}
	}
	if err := c.tokens.SetToken(p.ID, token); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "✓ Token stored for %s\n", p.Name)
	return nil
}

func (c *CLI) readToken(name string) (string, error) {
	fd := int(c.in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(c.out, "Login token for %s: ", name)
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// History prints the most recent journaled actions.
func (c *CLI) History(ctx context.Context, limit int) error {
	if c.journal == nil {
		fmt.Fprintln(c.out, "Action history is disabled.")
		return nil
	}

	entries, err := c.journal.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No recorded actions.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPROVIDER\tACTION\tCOUNTRY\tRESULT\tDETAIL")
	fmt.Fprintln(w, "----\t--------\t------\t-------\t------\t------")

	now := time.Now()
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		fmt.Fprintf(w, "%s ago\t%s\t%s\t%s\t%s\t%s\n",
			formatDuration(now.Sub(e.CreatedAt)), e.Provider, e.Action, orDash(e.Country), result, truncate(e.Detail, 60))
	}

	return w.Flush()
}

// Watch prints state changes of a provider until ctx is done.
func (c *CLI) Watch(ctx context.Context, id int, config vpn.MonitorConfig) error {
	m, err := vpn.NewMonitor(c.manager, id, config)
	if err != nil {
		return err
	}

	p, _ := c.manager.Provider(id)
	m.SetOnChange(func(old, new vpn.State) {
		fmt.Fprintf(c.out, "%s  %s: %s -> %s\n", time.Now().Format(time.TimeOnly), p.Name, old, new)
	})

	fmt.Fprintf(c.out, "Watching %s every %v (Ctrl+C to stop)\n", p.Name, config.CheckInterval)
	m.Start(ctx)
	<-ctx.Done()
	m.Stop()
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours >= 24 {
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// PrintHelp prints CLI usage help.
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, `VPN Provider CLI - drive vendor VPN command-line clients

Usage:
  vpn-provider-cli [OPTIONS]

Options:
  --provider ID       Provider to act on (default: active_provider from config)
  --providers         List configured providers
  --status            Show the status bundle
  --json              Print the status bundle as JSON
  --countries         List available countries
  --log               Show the provider log
  --account           Show account details
  --connect           Connect the provider
  --country CODE      Connect to a specific country
  --disconnect        Disconnect
  --login             Log the provider CLI in with its stored token
  --set-token         Store a login token (from --token or stdin)
  --token TOKEN       Token for --set-token
  --history N         Show the last N recorded actions
  --watch             Print status changes until interrupted
  --auto-reconnect    With --watch, reconnect a provider that dropped
  --tui               Open the interactive dashboard
  --config PATH       Use an alternative config file
  --version           Show version and exit
  --verbose           Enable verbose logging
  --help              Show this help message

Examples:
  vpn-provider-cli --providers
  vpn-provider-cli --provider 3 --status
  vpn-provider-cli --provider 1 --connect --country uk
  vpn-provider-cli --provider 2 --disconnect

Notes:
  - Provider binaries run behind the configured elevation prefix (sudo by default)
  - Per-provider subcommands come from the providers.json override document`)
}
