// Package chat renders the quest transcript, step list, and reward
// banner, and collects goal input. It is a passive subscriber: every
// transition lives in the quest controller, and the view only redraws
// the state snapshots it is handed.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/microwins/internal/keys"
	"github.com/nhle/microwins/internal/model"
	"github.com/nhle/microwins/internal/quest"
	"github.com/nhle/microwins/internal/theme"
)

// quickPrompts are starter goals shown before the first message.
var quickPrompts = []string{
	"Clean my room",
	"Write a cover letter",
	"Plan this week's meals",
	"Start my tax return",
}

// GoalSubmittedMsg carries a goal the user typed and sent.
type GoalSubmittedMsg struct {
	Text string
}

// CompleteStepMsg asks the controller to mark the active step done.
type CompleteStepMsg struct{}

// NewQuestMsg asks the controller to reset the quest view.
type NewQuestMsg struct{}

// Model is the Bubble Tea model for the chat panel.
type Model struct {
	input    textarea.Model
	viewport viewport.Model
	state    quest.State
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a chat panel model.
func New(k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your goal or message..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 4)
	ta.SetHeight(2)
	ta.CharLimit = 500
	ta.Focus()

	vpHeight := height - 6
	if vpHeight < 4 {
		vpHeight = 4
	}
	vp := viewport.New(width-4, vpHeight)

	return Model{
		input:    ta,
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// SetState installs a fresh controller snapshot and re-renders.
func (m *Model) SetState(s quest.State) {
	m.state = s
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// SetSize updates panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.viewport.Width = width - 4
	vpHeight := height - 6
	if vpHeight < 4 {
		vpHeight = 4
	}
	m.viewport.Height = vpHeight
	m.viewport.SetContent(m.renderConversation())
}

// Focus gives the input keyboard focus.
func (m *Model) Focus() {
	m.input.Focus()
}

// Blur removes keyboard focus from the input.
func (m *Model) Blur() {
	m.input.Blur()
}

// Update handles messages for the chat panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.CompleteStep):
			if m.state.Phase == quest.PhaseActive {
				return m, func() tea.Msg { return CompleteStepMsg{} }
			}
			return m, nil

		case key.Matches(keyMsg, m.keys.NewQuest):
			return m, func() tea.Msg { return NewQuestMsg{} }

		case keyMsg.Type == tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, func() tea.Msg { return GoalSubmittedMsg{Text: text} }
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the chat panel.
func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		theme.BorderStyle.Width(m.width-4).Render(m.input.View()),
	)
}

// renderConversation lays out transcript bubbles, the step list, and
// the reward banner for the current snapshot.
func (m Model) renderConversation() string {
	var b strings.Builder

	if len(m.state.Messages) == 0 {
		b.WriteString(theme.HelpStyle.Render(
			"Tell me what you want to achieve, and I'll break it into small, actionable steps.",
		))
		b.WriteString("\n\n")
		b.WriteString(theme.HelpStyle.Render("Try something like:"))
		b.WriteString("\n")
		for _, p := range quickPrompts {
			b.WriteString(theme.ListItemStyle.Render("· " + p))
			b.WriteString("\n")
		}
		return b.String()
	}

	bubbleWidth := (m.width * 3) / 4
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	for _, msg := range m.state.Messages {
		switch msg.Role {
		case model.RoleUser:
			b.WriteString(lipgloss.NewStyle().
				Width(m.width - 4).
				Align(lipgloss.Right).
				Render(theme.UserBubbleStyle.MaxWidth(bubbleWidth).Render(msg.Content)))
		default:
			b.WriteString(theme.AssistantBubbleStyle.MaxWidth(bubbleWidth).Render(msg.Content))
		}
		b.WriteString("\n")
	}

	if m.state.Phase == quest.PhaseComposing {
		b.WriteString(theme.HelpStyle.Render("Breaking it down..."))
		b.WriteString("\n")
	}

	if len(m.state.Steps) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderSteps())
	}

	if m.state.Reward != quest.RewardNone {
		b.WriteString("\n")
		b.WriteString(theme.RewardStyle.Render("★ " + m.state.RewardText))
		b.WriteString("\n")
	}

	if m.state.Phase == quest.PhaseComplete {
		b.WriteString("\n")
		b.WriteString(theme.RewardStyle.Render("All micro-wins done. Quest complete!"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderSteps() string {
	var b strings.Builder
	for i, step := range m.state.Steps {
		current := m.state.Phase != quest.PhaseComplete && i == m.state.StepIndex
		marker := "[ ]"
		if step.Completed {
			marker = "[x]"
		}
		line := fmt.Sprintf("%s %d. %s", marker, step.Ordinal, step.Action)
		if current {
			line += "  ← current"
		}
		b.WriteString(theme.StepStyle(step.Completed, current).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
