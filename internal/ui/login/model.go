package login

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/microwins/internal/theme"
)

// Action selects which credential exchange the form submits.
type Action string

const (
	ActionLogin  Action = "login"
	ActionSignup Action = "signup"
)

// SubmitMsg is dispatched when the user completes the form.
type SubmitMsg struct {
	Action   Action
	Email    string
	Password string
	FullName string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	action   Action
	email    string
	password string
	fullName string
}

// Model is the Bubble Tea model for the sign-in / sign-up form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	errText string
	width   int
	height  int
}

// New creates a fresh login form model.
func New(width, height int) Model {
	m := Model{
		fb:     &formBindings{action: ActionLogin},
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// SetError displays an authentication failure under the form and
// resets it for another attempt.
func (m *Model) SetError(text string) tea.Cmd {
	m.errText = text
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages for the login form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		submit := SubmitMsg{
			Action:   m.fb.action,
			Email:    m.fb.email,
			Password: m.fb.password,
			FullName: m.fb.fullName,
		}
		return m, func() tea.Msg { return submit }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Welcome to μ-Wins") + "\n" + m.form.View()
	if m.errText != "" {
		content += "\n" + theme.ErrorStyle.Render(m.errText)
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Action]().
				Title("Account").
				Options(
					huh.NewOption("Sign in", ActionLogin),
					huh.NewOption("Create account", ActionSignup),
				).
				Value(&m.fb.action),
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
			huh.NewInput().
				Title("Display name (sign-up only)").
				Placeholder("Optional").
				Value(&m.fb.fullName),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) formWidth() int {
	w := m.width - 6
	if w < 40 {
		w = 40
	}
	if w > 72 {
		w = 72
	}
	return w
}

// validateRequired returns a validator that rejects empty input.
func validateRequired(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errRequired(field)
		}
		return nil
	}
}

type errRequired string

func (e errRequired) Error() string {
	return string(e) + " is required"
}
