// Package tui provides a terminal user interface for igloo-mcp.
package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewState represents the current view state of the TUI
type ViewState int

const (
	// ViewMain is the main menu view
	ViewMain ViewState = iota
	// ViewAPIConfig is the API server configuration view
	ViewAPIConfig
	// ViewSearchCompose is the search tool call composer view
	ViewSearchCompose
	// ViewFetchCompose is the fetch tool call composer view
	ViewFetchCompose
	// ViewRunning is the view while an invocation is being composed
	ViewRunning
	// ViewResult is the view showing the composed invocation
	ViewResult
)

const (
	defaultConfigPath = "/etc/igloo-mcp/settings.yml"
	defaultListenAddr = "localhost:8080"
)

// MenuItem represents a menu item in the TUI
type MenuItem struct {
	title       string
	description string
	command     string
}

// Title returns the menu item title (implements list.Item)
func (m MenuItem) Title() string { return m.title }

// Description returns the menu item description (implements list.Item)
func (m MenuItem) Description() string { return m.description }

// FilterValue returns the filter value (implements list.Item)
func (m MenuItem) FilterValue() string { return m.title }

// CommandResult represents a composed invocation ready to run
type CommandResult struct {
	Success bool
	Message string
	Details string
}

// Model is the main TUI model following the Bubble Tea architecture
type Model struct {
	// Current view state
	state ViewState

	// Main menu list
	menuList list.Model

	// Input fields for the active composer view
	inputs     []textinput.Model
	focusIndex int

	// Spinner for the composing state
	spinner spinner.Model

	// Composed invocation, shown in the result view
	result *CommandResult

	// Window dimensions
	width  int
	height int

	// Current command being composed
	currentCommand string

	// Quitting state
	quitting bool
}

// keyMap defines the key bindings for the TUI
type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Tab   key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a new TUI model with default configuration
func NewModel() Model {
	items := []list.Item{
		MenuItem{
			title:       "🚀 Start API Server",
			description: "Serve the MCP adapter over streamable HTTP",
			command:     "api",
		},
		MenuItem{
			title:       "🔍 Compose Search Call",
			description: "Build a search tool call for community content",
			command:     "search",
		},
		MenuItem{
			title:       "📄 Compose Fetch Call",
			description: "Build a fetch tool call that reads a page as Markdown",
			command:     "fetch",
		},
	}

	// Create custom delegate for the list
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).
		BorderForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(secondaryColor)

	menuList := list.New(items, delegate, 0, 0)
	menuList.Title = "Igloo MCP"
	menuList.SetShowStatusBar(false)
	menuList.SetFilteringEnabled(false)
	menuList.Styles.Title = GetHeaderStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = GetProgressStyle()

	return Model{
		state:      ViewMain,
		menuList:   menuList,
		spinner:    sp,
		focusIndex: 0,
	}
}

// createAPIInputs creates the input fields for API server configuration
func createAPIInputs() []textinput.Model {
	inputs := make([]textinput.Model, 2)

	// Config file path
	inputs[0] = textinput.New()
	inputs[0].Placeholder = defaultConfigPath
	inputs[0].SetValue(defaultConfigPath)
	inputs[0].Focus()
	inputs[0].CharLimit = 256
	inputs[0].Width = 50
	inputs[0].Prompt = "⚙️ "
	inputs[0].PromptStyle = GetInputLabelStyle()

	// Listen address
	inputs[1] = textinput.New()
	inputs[1].Placeholder = defaultListenAddr
	inputs[1].CharLimit = 64
	inputs[1].Width = 30
	inputs[1].Prompt = "🌐 "
	inputs[1].PromptStyle = GetInputLabelStyle()

	return inputs
}

// createSearchInputs creates the input fields for the search composer
func createSearchInputs() []textinput.Model {
	inputs := make([]textinput.Model, 3)

	// Search query
	inputs[0] = textinput.New()
	inputs[0].Placeholder = "onboarding checklist"
	inputs[0].Focus()
	inputs[0].CharLimit = 256
	inputs[0].Width = 50
	inputs[0].Prompt = "🔍 "
	inputs[0].PromptStyle = GetInputLabelStyle()

	// Application filter
	inputs[1] = textinput.New()
	inputs[1].Placeholder = "wiki,blog (comma-separated, optional)"
	inputs[1].CharLimit = 128
	inputs[1].Width = 40
	inputs[1].Prompt = "📚 "
	inputs[1].PromptStyle = GetInputLabelStyle()

	// Result limit
	inputs[2] = textinput.New()
	inputs[2].Placeholder = "10"
	inputs[2].CharLimit = 8
	inputs[2].Width = 10
	inputs[2].Prompt = "🔢 "
	inputs[2].PromptStyle = GetInputLabelStyle()

	return inputs
}

// createFetchInputs creates the input fields for the fetch composer
func createFetchInputs() []textinput.Model {
	inputs := make([]textinput.Model, 2)

	// Page URL or object ID
	inputs[0] = textinput.New()
	inputs[0].Placeholder = "https://corp.igloosoftware.com/wiki/page"
	inputs[0].Focus()
	inputs[0].CharLimit = 512
	inputs[0].Width = 50
	inputs[0].Prompt = "🔗 "
	inputs[0].PromptStyle = GetInputLabelStyle()

	// Continuation start index
	inputs[1] = textinput.New()
	inputs[1].Placeholder = "0"
	inputs[1].CharLimit = 12
	inputs[1].Width = 14
	inputs[1].Prompt = "↪️ "
	inputs[1].PromptStyle = GetInputLabelStyle()

	return inputs
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menuList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case ViewMain:
			return m.handleMainMenu(msg)
		case ViewAPIConfig, ViewSearchCompose, ViewFetchCompose:
			return m.handleInputView(msg)
		case ViewResult:
			return m.handleResultView(msg)
		case ViewRunning:
			// Don't handle input while composing
			return m, nil
		}

	case spinner.TickMsg:
		if m.state == ViewRunning {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case CommandResult:
		m.result = &msg
		m.state = ViewResult
		return m, nil
	}

	// Update list if in main menu
	if m.state == ViewMain {
		m.menuList, cmd = m.menuList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleMainMenu handles key events in the main menu
func (m Model) handleMainMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Enter):
		if selectedItem, ok := m.menuList.SelectedItem().(MenuItem); ok {
			switch selectedItem.command {
			case "api":
				m.state = ViewAPIConfig
				m.inputs = createAPIInputs()
			case "search":
				m.state = ViewSearchCompose
				m.inputs = createSearchInputs()
			case "fetch":
				m.state = ViewFetchCompose
				m.inputs = createFetchInputs()
			}
			m.focusIndex = 0
			m.currentCommand = selectedItem.command
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.menuList, cmd = m.menuList.Update(msg)
	return m, cmd
}

// handleInputView handles key events in composer views
func (m Model) handleInputView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.state = ViewMain
		return m, nil

	case key.Matches(msg, keys.Tab):
		m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
		for i := range m.inputs {
			if i == m.focusIndex {
				m.inputs[i].Focus()
			} else {
				m.inputs[i].Blur()
			}
		}
		return m, nil

	case key.Matches(msg, keys.Enter):
		if !m.validateInputs() {
			return m, nil
		}
		m.state = ViewRunning
		return m, tea.Batch(m.spinner.Tick, m.composeCommand())
	}

	// Update the focused input
	if m.focusIndex < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleResultView handles key events in result view
func (m Model) handleResultView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Enter):
		m.state = ViewMain
		m.result = nil
		return m, nil

	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// validateInputs checks that the primary input has a value
func (m Model) validateInputs() bool {
	if len(m.inputs) == 0 {
		return false
	}
	return strings.TrimSpace(m.inputs[0].Value()) != ""
}

// composeCommand snapshots the input values and builds the invocation as a
// Bubble Tea command so the result arrives as a message.
func (m Model) composeCommand() tea.Cmd {
	command := m.currentCommand
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = strings.TrimSpace(input.Value())
	}

	return func() tea.Msg {
		return composeResult(command, values)
	}
}

// composeResult renders the invocation for the given command and input values.
func composeResult(command string, values []string) CommandResult {
	switch command {
	case "api":
		cfg := valueOr(values[0], defaultConfigPath)
		listen := valueOr(values[1], defaultListenAddr)
		return CommandResult{
			Success: true,
			Message: "API server command ready",
			Details: fmt.Sprintf("Run:\n  igloo-mcp api -c %s --listen %s", cfg, listen),
		}

	case "search":
		args := map[string]any{"query": values[0]}
		if apps := splitCommaList(values[1]); len(apps) > 0 {
			args["applications"] = apps
		}
		if values[2] != "" {
			limit, err := strconv.Atoi(values[2])
			if err != nil {
				return CommandResult{
					Success: false,
					Message: "Invalid limit",
					Details: fmt.Sprintf("limit must be an integer, got %q", values[2]),
				}
			}
			args["limit"] = limit
		}
		return toolCallResult("search", args)

	case "fetch":
		args := map[string]any{"url": values[0]}
		if values[1] != "" {
			start, err := strconv.Atoi(values[1])
			if err != nil {
				return CommandResult{
					Success: false,
					Message: "Invalid start index",
					Details: fmt.Sprintf("start_index must be an integer, got %q", values[1]),
				}
			}
			if start > 0 {
				args["start_index"] = start
			}
		}
		return toolCallResult("fetch", args)

	default:
		return CommandResult{
			Success: false,
			Message: "Unknown command",
			Details: command,
		}
	}
}

// toolCallResult renders a tool-call argument payload as a result.
func toolCallResult(tool string, args map[string]any) CommandResult {
	payload, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return CommandResult{Success: false, Message: "Compose failed", Details: err.Error()}
	}

	return CommandResult{
		Success: true,
		Message: fmt.Sprintf("'%s' tool call composed", tool),
		Details: "Arguments:\n" + string(payload),
	}
}

// splitCommaList splits a comma-separated value into trimmed non-empty parts.
func splitCommaList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// valueOr returns the value when non-empty, otherwise the fallback.
func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return GetSubtitleStyle().Render("Goodbye! 👋\n")
	}

	switch m.state {
	case ViewMain:
		return m.renderMainMenu()
	case ViewAPIConfig:
		return m.renderInputView("🚀 API Server Configuration",
			[]string{"Config File:", "Listen Address:"}, "run")
	case ViewSearchCompose:
		return m.renderInputView("🔍 Compose Search Call",
			[]string{"Query:", "Applications:", "Limit:"}, "compose")
	case ViewFetchCompose:
		return m.renderInputView("📄 Compose Fetch Call",
			[]string{"Page URL or ID:", "Start Index:"}, "compose")
	case ViewRunning:
		return m.renderRunning()
	case ViewResult:
		return m.renderResult()
	default:
		return "Unknown state"
	}
}

// renderMainMenu renders the main menu view
func (m Model) renderMainMenu() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.menuList.View(),
		GetHelpStyle().Render("↑/↓ navigate • enter select • q quit"),
	)
}

// renderInputView renders a composer view with labelled inputs
func (m Model) renderInputView(title string, labels []string, action string) string {
	var sb strings.Builder

	sb.WriteString(GetHeaderStyle().Render(title) + "\n\n")

	for i, input := range m.inputs {
		if i < len(labels) {
			sb.WriteString(GetInputLabelStyle().Render(labels[i]) + "\n")
		}
		sb.WriteString(input.View() + "\n\n")
	}

	help := GetHelpStyle().Render(fmt.Sprintf("tab: next field • enter: %s • esc: back", action))
	sb.WriteString(help)

	return GetBoxStyle().Render(sb.String())
}

// renderRunning renders the composing state view
func (m Model) renderRunning() string {
	return GetBoxStyle().Render(
		lipgloss.JoinVertical(lipgloss.Center,
			m.spinner.View()+" Composing invocation...",
			GetSubtitleStyle().Render("Please wait..."),
		),
	)
}

// renderResult renders the result view
func (m Model) renderResult() string {
	if m.result == nil {
		return "No result"
	}

	var statusStyle lipgloss.Style
	var statusIcon string
	if m.result.Success {
		statusStyle = GetSuccessStyle()
		statusIcon = "✅"
	} else {
		statusStyle = GetErrorStyle()
		statusIcon = "❌"
	}

	title := statusStyle.Render(statusIcon + " " + m.result.Message)
	details := GetSubtitleStyle().Render(m.result.Details)
	help := GetHelpStyle().Render("enter/esc: back to menu • q: quit")

	return GetBoxStyle().Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			details,
			"",
			help,
		),
	)
}
