package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles used by the dashboard renderer.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(22)
	valueStyle = lipgloss.NewStyle().Bold(true)
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is the bubbletea model for the campaign dashboard
type Model struct {
	provider  CampaignDataProvider
	cancel    func()
	totalRuns uint64
	startTime time.Time
	width     int
	height    int

	// errChan delivers the campaign's terminal error (or nil) when Run returns.
	errChan <-chan error
	runErr  error

	// quitting indicates the user asked the campaign to stop and we are waiting for it to wind down.
	quitting bool

	// lastCalls and lastTick track the executed-call delta between ticks for the rate display.
	lastCalls uint64
	lastTick  time.Time
	callRate  float64
}

// New creates a new TUI for a campaign. The cancel function is invoked when the user asks the campaign to stop; the
// campaign itself winds down cooperatively.
func New(provider CampaignDataProvider, totalRuns uint64, cancel func()) *Model {
	return &Model{
		provider:  provider,
		cancel:    cancel,
		totalRuns: totalRuns,
		startTime: time.Now(),
		lastTick:  time.Now(),
		width:     80,
		height:    24,
	}
}

// NewWithErrChan creates a new TUI for a campaign with an error channel.
// The error channel allows the TUI to detect when the campaign stops, with or without an error, in real-time.
func NewWithErrChan(provider CampaignDataProvider, totalRuns uint64, cancel func(), errChan <-chan error) *Model {
	tui := New(provider, totalRuns, cancel)
	tui.errChan = errChan
	return tui
}

// RunErr returns the campaign error received over the error channel, if any.
func (m *Model) RunErr() error {
	return m.runErr
}

// Messages for the bubbletea update loop
type tickMsg time.Time

// campaignDoneMsg signals that the campaign's Run method returned.
type campaignDoneMsg struct {
	err error
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForDone())
}

// tickCmd returns a command that ticks every 500ms
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForDone returns a command that blocks on the campaign's error channel, if one was provided.
func (m *Model) waitForDone() tea.Cmd {
	if m.errChan == nil {
		return nil
	}
	return func() tea.Msg {
		return campaignDoneMsg{err: <-m.errChan}
	}
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// Ask the campaign to stop. The dashboard stays up until Run returns so the user sees the final
			// counters; a second press quits immediately.
			if m.cancel != nil && !m.quitting {
				m.quitting = true
				m.cancel()
				if m.errChan != nil {
					return m, nil
				}
			}
			return m, tea.Quit
		}

	case campaignDoneMsg:
		m.runErr = msg.err
		return m, tea.Quit

	case tickMsg:
		now := time.Time(msg)
		calls := m.provider.Metrics().CallsExecuted()
		if elapsed := now.Sub(m.lastTick).Seconds(); elapsed > 0 {
			m.callRate = float64(calls-m.lastCalls) / elapsed
		}
		m.lastCalls = calls
		m.lastTick = now
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the campaign dashboard
func (m *Model) View() string {
	metrics := m.provider.Metrics()
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("gorgon campaign (seed %d)", m.provider.Seed())))
	b.WriteString("\n\n")

	runs := metrics.RunsCompleted()
	progress := 0.0
	if m.totalRuns > 0 {
		progress = float64(runs) / float64(m.totalRuns)
	}
	b.WriteString(renderProgressBar(progress, 40))
	b.WriteString("\n\n")

	row := func(label string, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("Elapsed", formatDuration(time.Since(m.startTime)))
	row("Runs completed", fmt.Sprintf("%s / %s", formatNumber(runs), formatNumber(m.totalRuns)))
	row("Calls executed", fmt.Sprintf("%s (%s)", formatNumber(metrics.CallsExecuted()), formatRate(m.callRate)))
	row("Reverts observed", formatNumber(metrics.RevertsObserved()))
	row("Targets", fmt.Sprintf("%d (+%s discovered)", m.provider.Registry().Count(), formatNumber(metrics.TargetsDiscovered())))
	row("Shrink executions", formatNumber(metrics.ShrinkExecutions()))

	if gasLines := m.renderGasSection(); gasLines != "" {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Gas usage"))
		b.WriteString("\n")
		b.WriteString(gasLines)
	}

	status := "press q to stop the campaign"
	if m.quitting {
		status = "stopping, waiting for the campaign to wind down..."
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(status))

	width := m.width - 2
	if width > 78 {
		width = 78
	}
	return frameStyle.Width(width).Render(b.String())
}

// renderGasSection renders mean gas per method for the first few methods of the gas report.
func (m *Model) renderGasSection() string {
	report := m.provider.GasReport()
	sigs := report.MethodSigs()
	if len(sigs) == 0 {
		return ""
	}
	if len(sigs) > 5 {
		sigs = sigs[:5]
	}

	var b strings.Builder
	for _, sig := range sigs {
		stats, ok := report.Stats(sig)
		if !ok {
			continue
		}
		b.WriteString(labelStyle.Render(truncateString(sig, 22)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s calls, mean gas %s", formatNumber(stats.Calls), stats.MeanGas.Round(0).String())))
		b.WriteString("\n")
	}
	return b.String()
}
