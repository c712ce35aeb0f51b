package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/campaign-engine/pkg/chat"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "Type your message here..."
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *state.SessionState
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Campaign creation modal state
	showCreateModal bool
	campaignName    string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type turnResponseMsg struct {
	response *chat.TurnResponse
	err      error
}

type sessionMsg struct {
	session *state.SessionState
	err     error
}

type sessionCreatedMsg struct {
	session *state.SessionState
	err     error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:          cfg,
		client:          client,
		textarea:        ta,
		chatViewport:    chatVp,
		metaViewport:    metaVp,
		ready:           false,
		showCreateModal: true,
	}
}

func writeInitialContent(gs *state.SessionState, chatWidth int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CAMPAIGN ENGINE") + "\n\n")
	content.WriteString("Character creation is in progress. Describe your character\n")
	content.WriteString("concept to begin, and say so in your own words when you're done.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	if gs != nil && len(gs.ChatHistory) > 0 {
		formattedMsg := formatNarratorResponse(gs.ChatHistory[0].Content, chatWidth)
		content.WriteString(formattedMsg + "\n\n")
	}
	return content.String()
}

func writeMetadata(gs *state.SessionState) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(gs.ID.String()[:8] + "...\n\n")

	content.WriteString("Campaign:\n")
	content.WriteString(gs.Config.Name + "\n\n")

	if gs.Custom.Creation.InProgress {
		content.WriteString("Creation Stage:\n")
		content.WriteString(string(gs.Custom.Creation.Stage) + "\n\n")
	}

	content.WriteString("World Time:\n")
	if gs.TimeFrozen() {
		content.WriteString("frozen\n\n")
	} else {
		content.WriteString(fmt.Sprintf("%d min\n\n", gs.WorldTime))
	}

	if len(gs.NPCs) > 0 {
		content.WriteString("NPCs:\n")
		ids := make([]string, 0, len(gs.NPCs))
		for id := range gs.NPCs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			npc := gs.NPCs[id]
			if npc == nil || !npc.Active {
				continue
			}
			line := "• " + npc.Name
			if edge, ok := npc.Relationships[state.PlayerID]; ok && edge != nil {
				line += fmt.Sprintf(" (%s %+d)", edge.Disposition, edge.TrustLevel)
			}
			content.WriteString(line + "\n")
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /npcs: Relationships\n")
	content.WriteString("• /copy: Copy session ID\n")

	return content.String()
}

// writeChatContent builds the chat content from the session for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding

	if m.session == nil || len(m.session.ChatHistory) == 0 {
		m.chatViewport.SetContent(writeInitialContent(m.session, chatWidth))
		return
	}

	var content strings.Builder

	content.WriteString(titleStyle.Render("CAMPAIGN ENGINE") + "\n\n")
	content.WriteString("Type your messages below to play.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	// Reformat all chat history for the new width
	for _, msg := range m.session.ChatHistory {
		switch msg.Role {
		case chat.ChatRoleAgent, chat.ChatRoleSystem:
			formattedMsg := formatNarratorResponse(msg.Content, chatWidth)
			content.WriteString(formattedMsg + "\n\n")
		case chat.ChatRoleUser:
			userMsg := userStyle.Render("You: ") + wordwrap.String(msg.Content, chatWidth-6) + "\n\n"
			content.WriteString(userMsg)
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showCreateModal {
		return m.updateCreateModal(msg)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()

		if m.session != nil {
			m.metaViewport.SetContent(writeMetadata(m.session))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0

			// Show the user message immediately; the authoritative history
			// comes back with the turn response.
			m.session.ChatHistory = append(m.session.ChatHistory, chat.ChatMessage{
				Role:    chat.ChatRoleUser,
				Content: input,
			})
			m.writeChatContent()

			return m, tea.Batch(m.sendTurnMessage(input), progressTick())
		}

	case turnResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeChatContent()
			currentContent := m.chatViewport.View()
			errorMsg := errorStyle.Render("Error: "+msg.err.Error()) + "\n\n"
			m.chatViewport.SetContent(currentContent + errorMsg)
		} else {
			if len(msg.response.ChatHistory) > 0 {
				m.session.ChatHistory = msg.response.ChatHistory
			}
			m.writeChatContent()
			if msg.response.Inconsistent {
				currentContent := m.chatViewport.View()
				note := loadingStyle.Render("(state update was discarded this turn)") + "\n\n"
				m.chatViewport.SetContent(currentContent + note)
			}
		}
		m.chatViewport.GotoBottom()
		return m, m.refreshSession()

	case sessionMsg:
		if msg.err == nil && msg.session != nil {
			m.session = msg.session
			m.metaViewport.SetContent(writeMetadata(m.session))
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func formatNarratorResponse(response string, width int) string {
	// Check if response already has a speaker prefix
	hasPrefix := false
	if idx := strings.Index(response, ":"); idx > 0 && idx <= 20 {
		speaker := response[:idx]
		if len(strings.Fields(speaker)) <= 2 {
			hasPrefix = true
		}
	}

	wrapWidth := width
	if !hasPrefix {
		narratorPrefix := AgentName + ": "
		wrapWidth = width - len(narratorPrefix)
	}

	wrappedResponse := wordwrap.String(response, wrapWidth)
	lines := strings.Split(wrappedResponse, "\n")
	var formattedLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			formattedLines = append(formattedLines, "")
			continue
		}

		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			rest := trimmed[idx+1:]
			if len(strings.Fields(speaker)) <= 2 {
				formattedLines = append(formattedLines, speakerStyle.Render(speaker+":")+rest)
				continue
			}
		}

		formattedLines = append(formattedLines, line)
	}

	result := strings.Join(formattedLines, "\n")
	if !hasPrefix {
		result = narratorStyle.Render(AgentName+": ") + result
	}

	return result
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /help - Show this help
• /npcs - Show NPC relationships
• /copy - Copy session ID to clipboard
• Ctrl+C - Quit

How to play:
• Type your actions and press Enter
• The narrator will respond to guide the story
• During creation, finish by saying so in your own words
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()

	case "/npcs":
		var npcText strings.Builder
		npcText.WriteString(titleStyle.Render("Relationships:") + "\n")
		if len(m.session.NPCs) == 0 {
			npcText.WriteString("No NPCs yet.\n")
		} else {
			ids := make([]string, 0, len(m.session.NPCs))
			for id := range m.session.NPCs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				npc := m.session.NPCs[id]
				if npc == nil {
					continue
				}
				edge, ok := npc.Relationships[state.PlayerID]
				if !ok || edge == nil {
					npcText.WriteString(fmt.Sprintf("• %s: no relationship yet\n", npc.Name))
					continue
				}
				npcText.WriteString(fmt.Sprintf("• %s: %s (trust %+d)\n", npc.Name, edge.Disposition, edge.TrustLevel))
			}
		}
		npcText.WriteString("\n")

		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + npcText.String())
		m.chatViewport.GotoBottom()

	case "/copy":
		var note string
		if err := clipboard.WriteAll(m.session.ID.String()); err != nil {
			note = errorStyle.Render("Failed to copy session ID: "+err.Error()) + "\n\n"
		} else {
			note = loadingStyle.Render("Session ID copied to clipboard.") + "\n\n"
		}
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + note)
		m.chatViewport.GotoBottom()
	}

	m.textarea.Reset()
	return m, nil
}

func (m ConsoleUI) sendTurnMessage(message string) tea.Cmd {
	return func() tea.Msg {
		resp, err := sendTurn(m.client, m.config.APIBaseURL, m.session.ID, message)
		return turnResponseMsg{resp, err}
	}
}

func (m ConsoleUI) refreshSession() tea.Cmd {
	return func() tea.Msg {
		gs, err := getSession(m.client, m.config.APIBaseURL, m.session.ID)
		return sessionMsg{gs, err}
	}
}

func (m ConsoleUI) createNewSession(name string) tea.Cmd {
	return func() tea.Msg {
		gs, err := createSession(m.client, m.config.APIBaseURL, name)
		return sessionCreatedMsg{gs, err}
	}
}

func (m ConsoleUI) updateCreateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.session = msg.session
			m.showCreateModal = false
			if m.width > 0 && m.height > 0 {
				chatWidth := int(float64(m.width)*0.75) - 4
				metaWidth := m.width - chatWidth - 6
				m.chatViewport.Width = chatWidth - 2
				m.chatViewport.Height = m.height - 7
				m.metaViewport.Width = metaWidth - 2
				m.metaViewport.Height = m.height - 4
				m.textarea.SetWidth(chatWidth - 4)
			}
			m.chatViewport.SetContent(writeInitialContent(m.session, m.chatViewport.Width-6))
			m.metaViewport.SetContent(writeMetadata(m.session))
			m.textarea.Focus()
			m.ready = true
		}
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loading {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			name := strings.TrimSpace(m.campaignName)
			if name == "" {
				return m, nil
			}
			m.loading = true
			m.err = nil
			return m, m.createNewSession(name)
		case tea.KeyBackspace:
			if len(m.campaignName) > 0 {
				m.campaignName = m.campaignName[:len(m.campaignName)-1]
			}
		case tea.KeyRunes, tea.KeySpace:
			m.campaignName += msg.String()
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave this session?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderCreateModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loading {
		content.WriteString(modalTitleStyle.Render("Creating Session..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting up your campaign..."))
	} else {
		content.WriteString(modalTitleStyle.Render("New Campaign"))
		content.WriteString("\n\n")
		content.WriteString("Campaign name:\n\n")
		content.WriteString(userStyle.Render("> " + m.campaignName + "_"))
		if m.err != nil {
			content.WriteString("\n\n")
			content.WriteString(errorStyle.Render(m.err.Error()))
		}
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Enter to create, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showCreateModal {
		return m.renderCreateModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
