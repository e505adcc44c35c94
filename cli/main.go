package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1f8a3b")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0a84ff"))

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#30d158"))

	cartStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1f8a3b")).
			Padding(0, 1).
			Width(30)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type entry struct {
	user bool
	text string
}

// pending is the last message sent, kept so ctrl+r can resend it
type pending struct {
	id   string
	text string
}

// Model defines the application state
type Model struct {
	client     *ApiClient
	sessionID  string
	input      textinput.Model
	spinner    spinner.Model
	transcript viewport.Model
	entries    []entry
	cart       Cart
	last       pending
	loading    bool
	error      string
	ready      bool
}

// Custom message types for the tea.Model
type sessionMsg struct{ id string }

type replyMsg struct{ reply Reply }

type errorMsg struct{ err string }

func initialModel(client *ApiClient) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Ask about the menu or order something..."
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 60

	return Model{
		client:  client,
		input:   ti,
		spinner: s,
		loading: true,
		entries: []entry{{text: "Hi, welcome to Shake Shack! What can I get for you?"}},
	}
}

// Init starts a session
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, createSession(m.client))
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - cartStyle.GetWidth() - 10
		height := msg.Height - 9
		if !m.ready {
			m.transcript = viewport.New(width, height)
			m.ready = true
		} else {
			m.transcript.Width, m.transcript.Height = width, height
		}
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			if m.loading || m.last.id == "" {
				return m, nil
			}
			m.loading = true
			m.error = ""
			return m, sendMessage(m.client, m.sessionID, m.last.id, m.last.text)
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.loading || m.sessionID == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.error = ""
			return m, m.submit(text)
		}

	case sessionMsg:
		m.sessionID = msg.id
		m.loading = false
		return m, nil

	case replyMsg:
		m.loading = false
		m.entries = append(m.entries, entry{text: msg.reply.Text})
		m.cart = msg.reply.Cart
		m.refresh()
		return m, nil

	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.transcript, cmd = m.transcript.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit turns a line of input into a chat message or a cart command
func (m *Model) submit(text string) tea.Cmd {
	m.loading = true
	switch strings.ToLower(text) {
	case "/quit":
		return tea.Quit
	case "/clear":
		return clearCart(m.client, m.sessionID)
	case "/checkout":
		return checkout(m.client, m.sessionID)
	}

	m.last = pending{id: uuid.NewString(), text: text}
	m.entries = append(m.entries, entry{user: true, text: text})
	m.refresh()
	return sendMessage(m.client, m.sessionID, m.last.id, text)
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, e := range m.entries {
		if e.user {
			b.WriteString(userStyle.Render("You: "))
		} else {
			b.WriteString(botStyle.Render("Shack: "))
		}
		b.WriteString(lipgloss.NewStyle().Width(m.transcript.Width - 8).Render(e.text))
		b.WriteString("\n\n")
	}
	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	chat := lipgloss.JoinHorizontal(lipgloss.Top, m.transcript.View(), "  ", cartStyle.Render(cartView(m.cart)))

	status := ""
	if m.loading {
		status = m.spinner.View() + " thinking..."
	}
	if m.error != "" {
		status = errorStyle.Render(m.error) + helpStyle.Render("  ctrl+r to retry")
	}
	help := helpStyle.Render("enter send • ctrl+r resend last • /clear • /checkout • esc quit")

	return docStyle.Render(titleStyle.Render("Shake Shack Order Assistant") + "\n\n" +
		chat + "\n" + status + "\n" + m.input.View() + "\n" + help)
}

func cartView(cart Cart) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Your Order") + "\n\n")
	if len(cart.Lines) == 0 {
		b.WriteString("Your cart is empty")
		return b.String()
	}
	for _, l := range cart.Lines {
		fmt.Fprintf(&b, "%dx %s\n   $%d.%02d\n", l.Quantity, l.ItemName,
			(int64(l.Quantity)*l.PriceCents)/100, (int64(l.Quantity)*l.PriceCents)%100)
	}
	fmt.Fprintf(&b, "\nTotal: %s", cart.Total)
	return b.String()
}

func createSession(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		id, err := client.CreateSession()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error starting session: %v", err)}
		}
		return sessionMsg{id: id}
	}
}

func sendMessage(client *ApiClient, sessionID, messageID, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := client.Chat(sessionID, messageID, text)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error sending message: %v", err)}
		}
		return replyMsg{reply: reply}
	}
}

func clearCart(client *ApiClient, sessionID string) tea.Cmd {
	return func() tea.Msg {
		reply, err := client.ClearCart(sessionID)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error clearing order: %v", err)}
		}
		return replyMsg{reply: reply}
	}
}

func checkout(client *ApiClient, sessionID string) tea.Cmd {
	return func() tea.Msg {
		reply, err := client.Checkout(sessionID)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error placing order: %v", err)}
		}
		return replyMsg{reply: reply}
	}
}

func main() {
	client := NewApiClient()
	if err := client.CheckHealth(); err != nil {
		fmt.Printf("API server at %s is not available: %v\n", client.BaseURL, err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
