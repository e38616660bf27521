// Package tui is an interactive terminal dashboard for one provider.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/vpn-provider-cli/provider"
	"github.com/yllada/vpn-provider-cli/vpn"
)

// DefaultRefresh is how often the dashboard re-reads the provider state.
const DefaultRefresh = 10 * time.Second

const maxMessages = 8

// Messages
type (
	tickMsg   time.Time
	bundleMsg struct {
		bundle *vpn.Bundle
		err    error
	}
	actionMsg struct {
		name string
		msgs []provider.Message
		err  error
	}
)

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx        context.Context
	manager    *vpn.Manager
	providerID int
	refresh    time.Duration

	bundle    *vpn.Bundle
	countries []provider.Entry
	cursor    int
	offset    int

	spinner  spinner.Model
	loading  bool
	busy     string
	messages []provider.Message
	err      error

	width  int
	height int
}

// NewModel creates the dashboard model for provider id.
func NewModel(ctx context.Context, m *vpn.Manager, id int, refresh time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	return Model{
		ctx:        ctx,
		manager:    m,
		providerID: id,
		refresh:    refresh,
		spinner:    sp,
		loading:    true,
	}
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, m *vpn.Manager, id int, refresh time.Duration) error {
	if _, err := m.Provider(id); err != nil {
		return err
	}
	p := tea.NewProgram(NewModel(ctx, m, id, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init fetches the first bundle and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchBundle(), m.tickCmd())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()

	case spinner.TickMsg:
		if m.loading || m.busy != "" {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tickMsg:
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.loading && m.busy == "" {
			m.loading = true
			cmds = append(cmds, m.spinner.Tick, m.fetchBundle())
		}
		return m, tea.Batch(cmds...)

	case bundleMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.setBundle(msg.bundle)
		}

	case actionMsg:
		m.busy = ""
		m.pushMessages(msg.msgs)
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchBundle())
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	if m.busy != "" {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampCursor()
	case "down", "j":
		if m.cursor < len(m.countries)-1 {
			m.cursor++
		}
		m.clampCursor()
	case "r":
		if !m.loading {
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetchBundle())
		}
	case "c":
		if m.controlsEnabled() {
			return m.startAction("Connecting", m.manager.Start)
		}
	case "d":
		if m.controlsEnabled() {
			return m.startAction("Disconnecting", m.manager.Stop)
		}
	case "l":
		if m.controlsEnabled() {
			return m.startAction("Logging in", m.manager.Login)
		}
	case "enter":
		if m.controlsEnabled() && len(m.countries) > 0 {
			entry := m.countries[m.cursor]
			return m.startAction("Connecting to "+entry.Name, func(ctx context.Context, id int) ([]provider.Message, error) {
				return m.manager.SaveCountry(ctx, id, entry.Code)
			})
		}
	}
	return m, nil
}

func (m Model) controlsEnabled() bool {
	return m.bundle != nil && m.bundle.ControlsEnabled
}

func (m Model) startAction(name string, fn func(context.Context, int) ([]provider.Message, error)) (tea.Model, tea.Cmd) {
	m.busy = name
	ctx, id := m.ctx, m.providerID
	run := func() tea.Msg {
		msgs, err := fn(ctx, id)
		return actionMsg{name: name, msgs: msgs, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) fetchBundle() tea.Cmd {
	ctx, manager, id := m.ctx, m.manager, m.providerID
	return func() tea.Msg {
		b, err := manager.FetchBundle(ctx, id)
		return bundleMsg{bundle: b, err: err}
	}
}

func (m *Model) setBundle(b *vpn.Bundle) {
	m.bundle = b
	m.countries = make([]provider.Entry, 0, len(b.Countries))
	for _, e := range b.Countries {
		if e.Code != provider.PlaceholderCode {
			m.countries = append(m.countries, e)
		}
	}
	m.clampCursor()
}

// pushMessages keeps the most recent action messages.
func (m *Model) pushMessages(msgs []provider.Message) {
	all := make([]provider.Message, 0, len(m.messages)+len(msgs))
	all = append(append(all, m.messages...), msgs...)
	if len(all) > maxMessages {
		all = all[len(all)-maxMessages:]
	}
	m.messages = all
}

func (m *Model) listHeight() int {
	h := m.height - 20
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.countries) {
		m.cursor = len(m.countries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	name := fmt.Sprintf("provider %d", m.providerID)
	if m.bundle != nil {
		name = m.bundle.Provider.Name
	}
	b.WriteString(styles.Title.Render(name))
	switch {
	case m.busy != "":
		b.WriteString("  " + m.spinner.View() + " " + m.busy + "...")
	case m.loading:
		b.WriteString("  " + m.spinner.View() + " Refreshing...")
	}
	b.WriteString("\n\n")

	if m.bundle == nil {
		if m.err != nil {
			b.WriteString(styles.Level(provider.LevelDanger).Render(m.err.Error()))
			b.WriteString("\n")
		}
		b.WriteString(m.renderHelp())
		return b.String()
	}

	b.WriteString(m.renderSummary())
	b.WriteString("\n")
	b.WriteString(m.renderCountries())
	b.WriteString("\n")
	if log := m.renderLog(); log != "" {
		b.WriteString(log)
		b.WriteString("\n")
	}
	b.WriteString(m.renderMessages())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderSummary() string {
	bd := m.bundle
	row := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return styles.Label.Render(label) + styles.Value.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.Label.Render("Status") + StatusBadge(bd.Status) + "\n")
	b.WriteString(row("Country", bd.Country))
	b.WriteString(row("Public IP", bd.PublicIP))
	b.WriteString(row("Version", bd.Version))
	for i, line := range bd.AccountInfo {
		label := ""
		if i == 0 {
			label = "Account"
		}
		b.WriteString(styles.Label.Render(label) + styles.Value.Render(line) + "\n")
	}
	return b.String()
}

func (m Model) renderCountries() string {
	if len(m.countries) == 0 {
		return styles.Muted.Render("No countries available") + "\n"
	}

	width := 40
	if m.width > 10 {
		width = m.width - 6
	}

	var b strings.Builder
	b.WriteString(styles.Muted.Render(fmt.Sprintf("Countries (%d)", len(m.countries))) + "\n")
	end := m.offset + m.listHeight()
	if end > len(m.countries) {
		end = len(m.countries)
	}
	for i := m.offset; i < end; i++ {
		e := m.countries[i]
		line := TruncateString(fmt.Sprintf("%-6s %s", e.Code, e.Name), width)
		switch {
		case i == m.cursor:
			b.WriteString(styles.Selected.Render("> " + line))
		case strings.EqualFold(e.Code, m.bundle.Country) || strings.EqualFold(e.Name, m.bundle.Country):
			b.WriteString(styles.Current.Render("* " + line))
		default:
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLog() string {
	lines := lastLines(m.bundle.Log, 5)
	if len(lines) == 0 {
		return ""
	}
	return styles.Panel.Render(styles.Muted.Render(strings.Join(lines, "\n")))
}

func (m Model) renderMessages() string {
	var b strings.Builder
	var msgs []provider.Message
	if m.bundle != nil {
		msgs = append(msgs, m.bundle.Messages...)
	}
	for _, msg := range append(msgs, m.messages...) {
		label := styles.Level(msg.Level).Render(fmt.Sprintf("[%s]", msg.Level))
		b.WriteString(label + " " + msg.Text + "\n")
	}
	if m.err != nil {
		b.WriteString(styles.Level(provider.LevelDanger).Render(m.err.Error()) + "\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	help := "[r]Refresh [q]Quit"
	if m.controlsEnabled() {
		help = "[↑/↓]Select [enter]Connect to country [c]Connect [d]Disconnect [l]Login " + help
	}
	return styles.HelpKey.Render(help)
}
