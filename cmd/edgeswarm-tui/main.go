package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	pollRate       = time.Second
	viewportHeight = 18
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	eventTimeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
	eventNameStyle   = lipgloss.NewStyle().Width(25).Bold(true)
	eventDeviceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// API types mirrored from pkg/swarm so this binary stays free of the CGO
// sqlite dependency.

type OutcomeEntry struct {
	At             time.Time `json:"at"`
	RequestType    string    `json:"request_type"`
	Name           string    `json:"name"`
	DeviceID       string    `json:"device_id"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
}

type Snapshot struct {
	ScenarioName string         `json:"scenario_name"`
	RunID        string         `json:"run_id"`
	Users        int            `json:"users"`
	StartedAt    time.Time      `json:"started_at"`
	ElapsedMS    int64          `json:"elapsed_ms"`
	Offloads     uint64         `json:"offloads"`
	Succeeded    uint64         `json:"succeeded"`
	Failed       uint64         `json:"failed"`
	InitFailures uint64         `json:"init_failures"`
	Recent       []OutcomeEntry `json:"recent,omitempty"`
}

type tickMsg time.Time

type dataMsg struct {
	snap Snapshot
	err  error
}

type model struct {
	runURL   string
	spinner  spinner.Model
	viewport viewport.Model
	snap     Snapshot
	err      error
	ready    bool
}

func initialModel(runURL string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		runURL:   runURL,
		spinner:  s,
		viewport: vp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchStatus(m.runURL),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchStatus(m.runURL), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.snap = msg.snap
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
		m.ready = true
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder

	for _, e := range m.snap.Recent {
		ts := e.At.Format("15:04:05")

		name := fmt.Sprintf("%s/%s", e.RequestType, e.Name)
		var nameStr string
		if e.Error != "" {
			nameStr = failStyle.Render(name)
		} else {
			nameStr = successStyle.Render(name)
		}

		line := fmt.Sprintf("%s %s %s %s\n",
			eventTimeStyle.Render(ts),
			eventNameStyle.Render(nameStr),
			eventDeviceStyle.Render(e.DeviceID),
			subtleStyle.Render(fmt.Sprintf("%dms", e.ResponseTimeMS)),
		)
		sb.WriteString(line)
	}

	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Connecting to %s ...", m.spinner.View(), m.runURL)
	}

	var stats strings.Builder
	stats.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Run") + "\n\n")
	stats.WriteString(fmt.Sprintf("Scenario: %s  Run: %s\n", m.snap.ScenarioName, m.snap.RunID))
	stats.WriteString(fmt.Sprintf("Users: %d  Elapsed: %s\n", m.snap.Users,
		(time.Duration(m.snap.ElapsedMS) * time.Millisecond).Round(time.Second)))
	stats.WriteString(fmt.Sprintf("Offloads: %d  %s  %s  Init failures: %d\n",
		m.snap.Offloads,
		successStyle.Render(fmt.Sprintf("ok %d", m.snap.Succeeded)),
		failStyle.Render(fmt.Sprintf("failed %d", m.snap.Failed)),
		m.snap.InitFailures))

	topPane := paneStyle.Render(stats.String())
	header := headerStyle.Render(fmt.Sprintf("%s Device Activity", m.spinner.View()))
	bottomPane := m.viewport.View()

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d offloads recorded", m.snap.Offloads))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

func fetchStatus(runURL string) tea.Cmd {
	return func() tea.Msg {
		c := &http.Client{Timeout: 500 * time.Millisecond}
		resp, err := c.Get(runURL + "/status")
		if err != nil {
			return dataMsg{err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return dataMsg{err: fmt.Errorf("status %d", resp.StatusCode)}
		}

		var snap Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return dataMsg{err: err}
		}
		return dataMsg{snap: snap}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	runURL := flag.String("url", "http://127.0.0.1:8077", "base URL of a running 'edgeswarm run --listen' process")
	flag.Parse()

	p := tea.NewProgram(initialModel(*runURL), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error running dashboard: %v\n", err)
		os.Exit(1)
	}
}
