package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hilthontt/zeroroom/internal/client"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
)

const (
	chromeHeight = 2 // header and input line
	sendTimeout  = 5 * time.Second
)

type eventMsg struct {
	event client.Event
}

type disconnectedMsg struct{}

type sendFailedMsg struct {
	err error
}

type styles struct {
	header  lipgloss.Style
	self    lipgloss.Style
	other   lipgloss.Style
	system  lipgloss.Style
	warning lipgloss.Style
	faint   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1),
		self:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		other:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		system:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		faint:   lipgloss.NewStyle().Faint(true),
	}
}

// Model is a single-room chat screen on top of any RoomClient. The client
// must already have joined roomID.
type Model struct {
	client   client.RoomClient
	roomID   string
	username string

	input    textinput.Model
	viewport viewport.Model
	styles   styles

	lines     []string
	members   []ws.MemberPayload
	expiresAt time.Time
	expired   bool
	now       func() time.Time
}

func NewModel(c client.RoomClient, roomID, username string) Model {
	input := textinput.New()
	input.Placeholder = "Say something..."
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	return Model{
		client:   c,
		roomID:   roomID,
		username: username,
		input:    input,
		viewport: viewport.New(80, 20),
		styles:   defaultStyles(),
		now:      time.Now,
	}
}

func waitForEvent(c client.RoomClient) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.Events()
		if !ok {
			return disconnectedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := m.client.Send(ctx, text); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.client))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				break
			}
			if text == "/quit" {
				return m, tea.Quit
			}
			cmds = append(cmds, m.send(text))
		}

	case eventMsg:
		m = m.apply(msg.event)
		cmds = append(cmds, waitForEvent(m.client))

	case sendFailedMsg:
		m.appendLine(m.styles.warning.Render("could not send: " + msg.err.Error()))

	case disconnectedMsg:
		m.appendLine(m.styles.warning.Render("disconnected"))
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) apply(ev client.Event) Model {
	switch ev.Type {
	case ws.RoomUsers:
		if ev.Users == nil {
			return m
		}
		for _, line := range membershipChanges(m.members, ev.Users.Members) {
			m.appendLine(m.styles.system.Render(line))
		}
		m.members = ev.Users.Members
		m.expiresAt = ev.ExpiresAt()

	case ws.ReceiveMessage:
		if ev.Message == nil {
			return m
		}
		name := m.styles.other.Render(ev.Message.Username)
		if ev.Message.SenderID == m.client.ConnectionID() {
			name = m.styles.self.Render(ev.Message.Username)
		}
		stamp := m.styles.faint.Render(time.UnixMilli(ev.Message.Time).Format("15:04"))
		m.appendLine(fmt.Sprintf("%s %s: %s", stamp, name, ev.Message.Message))

	case ws.Connected:

	default:
		if ev.Type == ws.RoomExpired {
			m.expired = true
		}
		if ev.Notice != nil {
			m.appendLine(m.styles.warning.Render(ev.Notice.Message))
		}
	}

	return m
}

// membershipChanges describes who arrived and who went between two
// room_users snapshots.
func membershipChanges(before, after []ws.MemberPayload) []string {
	seen := make(map[string]bool, len(before))
	for _, m := range before {
		seen[m.ID] = true
	}

	var lines []string
	still := make(map[string]bool, len(after))
	for _, m := range after {
		still[m.ID] = true
		if !seen[m.ID] {
			lines = append(lines, m.Username+" joined")
		}
	}
	for _, m := range before {
		if !still[m.ID] {
			lines = append(lines, m.Username+" left")
		}
	}
	return lines
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) header() string {
	status := "expired"
	if !m.expired {
		left := m.expiresAt.Sub(m.now()).Round(time.Minute)
		if m.expiresAt.IsZero() || left < 0 {
			left = 0
		}
		status = "expires in " + left.String()
	}

	return m.styles.header.Render(fmt.Sprintf("#%s  %d online  %s  (you are %s)", m.roomID, len(m.members), status, m.username))
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.viewport.View(),
		m.input.View(),
	)
}
