// rdx-graph-monitor is a live terminal dashboard over the routing
// daemon: clients, edges, criticality, and the event stream, refreshed
// once a second through the IPC surface.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anjeleno/rdx-rivendell/pkg/config"
	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/ipc"
	"github.com/anjeleno/rdx-rivendell/pkg/ipcauth"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statusUpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	statusDownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	criticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	overviewView view = iota
	clientsView
	edgesView
	eventsView
	viewCount
)

var viewNames = []string{"Overview", "Clients", "Edges", "Events"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	client      *ipc.Client
	currentView view
	clientTable table.Model
	edgeTable   table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int

	status ipc.StatusInfo
	graph  ipc.GraphInfo
	events []eventlog.Event
	err    error
}

type tickMsg time.Time

type eventMsg eventlog.Event

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func initialModel(client *ipc.Client) model {
	clientTable := newTable([]table.Column{
		{Title: "Client", Width: 28},
		{Title: "Kind", Width: 16},
		{Title: "Ports", Width: 8},
		{Title: "Critical", Width: 8},
	})
	edgeTable := newTable([]table.Column{
		{Title: "Source", Width: 34},
		{Title: "Sink", Width: 34},
		{Title: "Critical", Width: 8},
	})

	return model{
		client:      client,
		currentView: overviewView,
		clientTable: clientTable,
		edgeTable:   edgeTable,
		help:        help.New(),
		keys:        keys,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case eventMsg:
		m.events = append(m.events, eventlog.Event(msg))
		if len(m.events) > 200 {
			m.events = m.events[len(m.events)-200:]
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}
		}
	}

	switch m.currentView {
	case clientsView:
		m.clientTable, cmd = m.clientTable.Update(msg)
		cmds = append(cmds, cmd)
	case edgesView:
		m.edgeTable, cmd = m.edgeTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) refresh() {
	var status ipc.StatusInfo
	if err := m.client.Call(ipc.MethodGetStatus, nil, &status); err != nil {
		m.err = err
		return
	}
	var g ipc.GraphInfo
	if err := m.client.Call(ipc.MethodGetGraph, nil, &g); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = status
	m.graph = g

	clientRows := make([]table.Row, 0, len(g.Clients))
	for _, c := range g.Clients {
		clientRows = append(clientRows, table.Row{
			c.Name, c.Kind, fmt.Sprintf("%d", len(c.Ports)), yesNo(c.Critical),
		})
	}
	m.clientTable.SetRows(clientRows)

	edgeRows := make([]table.Row, 0, len(g.Edges))
	for _, e := range g.Edges {
		edgeRows = append(edgeRows, table.Row{e.Source, e.Sink, yesNo(e.Critical)})
	}
	m.edgeTable.SetRows(edgeRows)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("RDX Graph Monitor"))
	b.WriteString("\n")

	tabs := make([]string, 0, int(viewCount))
	for i, name := range viewNames {
		if view(i) == m.currentView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	b.WriteString(contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...)))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(contentStyle.Render(statusDownStyle.Render("daemon unreachable: " + m.err.Error())))
		b.WriteString("\n")
	}

	switch m.currentView {
	case overviewView:
		b.WriteString(m.viewOverview())
	case clientsView:
		b.WriteString(contentStyle.Render(m.clientTable.View()))
	case edgesView:
		b.WriteString(contentStyle.Render(m.edgeTable.View()))
	case eventsView:
		b.WriteString(m.viewEvents())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m model) viewOverview() string {
	server := statusDownStyle.Render("stopped")
	if m.status.ServerRunning {
		server = statusUpStyle.Render("running")
	}

	critical := 0
	for _, e := range m.graph.Edges {
		if e.Critical {
			critical++
		}
	}

	lines := []string{
		fmt.Sprintf("Audio server:   %s", server),
		fmt.Sprintf("Profile:        %s", orDash(m.status.CurrentProfile)),
		fmt.Sprintf("Active input:   %s", orDash(m.status.ActiveInput)),
		fmt.Sprintf("Clients:        %d", len(m.graph.Clients)),
		fmt.Sprintf("Edges:          %d (%s critical)", len(m.graph.Edges), criticalStyle.Render(fmt.Sprintf("%d", critical))),
		"",
		"Input sources (priority order):",
	}
	for _, s := range m.status.InputSources {
		marker := "  "
		if s == m.status.ActiveInput {
			marker = "* "
		}
		lines = append(lines, "  "+marker+s)
	}
	return contentStyle.Render(strings.Join(lines, "\n"))
}

func (m model) viewEvents() string {
	if len(m.events) == 0 {
		return contentStyle.Render("No events yet.")
	}
	start := 0
	if len(m.events) > 20 {
		start = len(m.events) - 20
	}
	var lines []string
	for _, ev := range m.events[start:] {
		lines = append(lines, fmt.Sprintf("%6d  %-22s %s", ev.Seq, ev.Kind, describeEvent(ev)))
	}
	return contentStyle.Render(strings.Join(lines, "\n"))
}

func describeEvent(ev eventlog.Event) string {
	switch ev.Kind {
	case eventlog.ConnectionChanged:
		arrow := "->"
		if !ev.Connected {
			arrow = "-x"
		}
		return fmt.Sprintf("%s %s %s", ev.Source, arrow, ev.Sink)
	case eventlog.ProfileChanged:
		return ev.Profile
	case eventlog.ClientAppeared, eventlog.ClientDisappeared:
		return ev.Client
	case eventlog.ServerStatusChanged:
		if ev.Running {
			return "running"
		}
		return "stopped"
	case eventlog.ServiceStatusChanged:
		return fmt.Sprintf("%s running=%v", ev.Service, ev.Running)
	default:
		return ""
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("rdx-graph-monitor: %v", err)
	}

	auth, err := ipcauth.Open(ipcauth.DefaultSecretPath())
	if err != nil {
		log.Fatalf("rdx-graph-monitor: %v", err)
	}
	token, err := auth.Issue("rdx-graph-monitor")
	if err != nil {
		log.Fatalf("rdx-graph-monitor: %v", err)
	}

	client, err := ipc.Dial(cfg.SocketPath, token)
	if err != nil {
		log.Fatalf("rdx-graph-monitor: cannot reach the daemon: %v", err)
	}
	defer client.Close()

	events, err := client.Subscribe()
	if err != nil {
		log.Fatalf("rdx-graph-monitor: %v", err)
	}

	m := initialModel(client)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		for raw := range events {
			var line struct {
				Event eventlog.Event `json:"event"`
			}
			if err := json.Unmarshal(raw, &line); err != nil {
				continue
			}
			p.Send(eventMsg(line.Event))
		}
	}()

	if _, err := p.Run(); err != nil {
		log.Fatalf("rdx-graph-monitor: %v", err)
	}
}
