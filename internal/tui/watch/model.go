package watch

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultInterval is how often the relay is polled.
const DefaultInterval = 3 * time.Second

// Model is the BubbleTea model for the watch TUI.
type Model struct {
	apiURL   string
	interval time.Duration
	client   *http.Client

	width  int
	height int

	health  HealthState
	entries []Entry
	table   table.Model

	ticker  Ticker
	spinner Spinner
	theme   Theme

	lastError string
}

// New creates a watch model polling apiURL every interval.
func New(apiURL string, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	theme := NewDefaultTheme()

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(theme.Table)

	return Model{
		apiURL:   apiURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		table:    t,
		ticker:   NewTicker(),
		theme:    theme,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchEvents(m.client, m.apiURL, false),
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchEvents(m.client, m.apiURL, true)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(msg.Width))
		if h := msg.Height - 12; h > 3 {
			m.table.SetHeight(h)
		}

	case tickMsg:
		m.spinner.Decay(time.Time(msg))
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case pollMsg:
		return m, fetchEvents(m.client, m.apiURL, false)

	case eventsMsg:
		if len(msg.entries) > len(m.entries) && !m.health.LastPoll.IsZero() {
			m.spinner.OnEvent(msg.at)
		}
		m.entries = msg.entries
		m.table.SetRows(rows(m.entries))
		m.ticker.Tick()
		m.health = HealthState{Connected: true, LastPoll: msg.at, Count: len(m.entries)}
		m.lastError = ""
		return m, m.nextPoll(msg.manual)

	case errMsg:
		m.health.Connected = false
		m.lastError = msg.Error()
		return m, m.nextPoll(msg.manual)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// nextPoll keeps exactly one poll loop alive: only fetches started by the loop
// schedule the next one.
func (m Model) nextPoll(manual bool) tea.Cmd {
	if manual {
		return nil
	}
	return pollEvery(m.interval)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing watch..."
	}

	header := renderHeader(m.apiURL, m.health, m.ticker, m.spinner, m.theme, m.width, time.Now())

	var body string
	if len(m.entries) == 0 {
		body = m.theme.Dim.Render("  Waiting for webhooks...")
	} else {
		body = m.table.View()
	}
	events := m.theme.Border.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.theme.Title.Render("WEBHOOKS"), body),
	)

	parts := []string{header, events}
	if m.lastError != "" {
		parts = append(parts, m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError)))
	}
	parts = append(parts, lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [r] Refresh • [↑/↓] Scroll"))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

// Run starts the TUI and blocks until the user quits.
func Run(apiURL string, interval time.Duration) error {
	_, err := tea.NewProgram(New(apiURL, interval)).Run()
	return err
}
