// Package app is the Bubble Tea shell around the quest controller,
// session store, and sidebar sync. It owns view routing only; every
// state transition is delegated to the controller.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/microwins/internal/keys"
	"github.com/nhle/microwins/internal/quest"
	"github.com/nhle/microwins/internal/session"
	"github.com/nhle/microwins/internal/sidebar"
	"github.com/nhle/microwins/internal/ui"
	"github.com/nhle/microwins/internal/ui/chat"
	"github.com/nhle/microwins/internal/ui/login"
	"github.com/nhle/microwins/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewRestoring ViewState = iota
	ViewLogin
	ViewDashboard
)

const sidebarWidth = 28

// restoreDoneMsg signals that session restore finished.
type restoreDoneMsg struct{}

// authResultMsg carries the outcome of a credential exchange.
type authResultMsg struct {
	err error
}

// questUpdatedMsg signals that the controller changed state.
type questUpdatedMsg struct{}

// sidebarUpdatedMsg signals that the sidebar list changed.
type sidebarUpdatedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	keys        *keys.KeyMap

	sess        *session.Store
	controller  *quest.Controller
	sidebarSync *sidebar.Sync

	loginView login.Model
	chatView  chat.Model
	taskList  tasklist.Model

	sidebarFocus bool
	ready        bool
}

// New creates the root application model.
func New(sess *session.Store, controller *quest.Controller, sb *sidebar.Sync) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewRestoring,
		keys:        k,
		sess:        sess,
		controller:  controller,
		sidebarSync: sb,
		loginView:   login.New(80, 24),
		chatView:    chat.New(k, 80, 24),
		taskList:    tasklist.New(k, sidebarWidth, 24),
	}
}

// Init restores the session and subscribes to state changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.restoreCmd(),
		m.watchQuest(),
		m.watchSidebar(),
		m.loginView.Init(),
		m.chatView.Init(),
	)
}

func (m Model) restoreCmd() tea.Cmd {
	return func() tea.Msg {
		_ = m.sess.Restore(context.Background())
		return restoreDoneMsg{}
	}
}

// watchQuest waits for the next controller change notification.
func (m Model) watchQuest() tea.Cmd {
	updates := m.controller.Updates()
	return func() tea.Msg {
		<-updates
		return questUpdatedMsg{}
	}
}

// watchSidebar waits for the next sidebar change notification.
func (m Model) watchSidebar() tea.Cmd {
	updates := m.sidebarSync.Updates()
	return func() tea.Msg {
		<-updates
		return sidebarUpdatedMsg{}
	}
}

func (m Model) refreshSidebarCmd() tea.Cmd {
	user := m.sess.User()
	if user == nil {
		return nil
	}
	userID := user.ID
	return func() tea.Msg {
		_ = m.sidebarSync.Refresh(context.Background(), userID)
		return nil
	}
}

// Update routes messages to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.loginView.SetSize(msg.Width, m.layout.ContentHeight())
		m.chatView.SetSize(msg.Width-sidebarWidth, m.layout.ContentHeight())
		m.taskList.SetSize(sidebarWidth, m.layout.ContentHeight())
		return m, nil

	case restoreDoneMsg:
		if m.sess.SignedIn() {
			m.currentView = ViewDashboard
			m.sidebarSync.LoadCached(context.Background())
			return m, m.refreshSidebarCmd()
		}
		m.currentView = ViewLogin
		return m, nil

	case login.SubmitMsg:
		return m, m.authCmd(msg)

	case authResultMsg:
		if msg.err != nil {
			return m, m.loginView.SetError(msg.err.Error())
		}
		m.currentView = ViewDashboard
		m.chatView.SetState(m.controller.State())
		return m, m.refreshSidebarCmd()

	case questUpdatedMsg:
		m.chatView.SetState(m.controller.State())
		return m, m.watchQuest()

	case sidebarUpdatedMsg:
		m.taskList.SetEntries(m.sidebarSync.Entries())
		return m, m.watchSidebar()

	case chat.GoalSubmittedMsg:
		m.controller.SendGoal(context.Background(), msg.Text)
		return m, nil

	case chat.CompleteStepMsg:
		m.controller.CompleteActiveStep(context.Background())
		return m, nil

	case chat.NewQuestMsg:
		m.controller.NewQuest()
		return m, nil

	case tasklist.TaskSelectedMsg:
		taskID := msg.TaskID
		m.sidebarFocus = false
		m.chatView.Focus()
		return m, func() tea.Msg {
			m.controller.LoadTask(context.Background(), taskID)
			return nil
		}

	case tasklist.TaskDeleteRequestedMsg:
		taskID := msg.TaskID
		return m, func() tea.Msg {
			m.controller.DeleteTask(context.Background(), taskID)
			return nil
		}

	case tasklist.RefreshRequestedMsg:
		return m, m.refreshSidebarCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.currentView == ViewDashboard {
		switch {
		case key.Matches(msg, m.keys.Logout):
			m.sess.Logout(context.Background())
			m.sidebarSync.Clear()
			m.controller.NewQuest()
			m.currentView = ViewLogin
			m.loginView = login.New(m.layout.Width, m.layout.ContentHeight())
			return m, m.loginView.Init()

		case key.Matches(msg, m.keys.Sidebar):
			m.sidebarFocus = !m.sidebarFocus
			if m.sidebarFocus {
				m.chatView.Blur()
			} else {
				m.chatView.Focus()
			}
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewDashboard:
		if m.sidebarFocus {
			m.taskList, cmd = m.taskList.Update(msg)
		} else {
			m.chatView, cmd = m.chatView.Update(msg)
		}
	}
	return m, cmd
}

func (m Model) authCmd(msg login.SubmitMsg) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if msg.Action == login.ActionSignup {
			err = m.sess.Signup(ctx, msg.Email, msg.Password, msg.FullName)
		} else {
			err = m.sess.Login(ctx, msg.Email, msg.Password)
		}
		return authResultMsg{err: err}
	}
}

// View renders the active view inside the standard frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("μ-Wins", m.headerStatus())
	statusBar := m.layout.RenderStatusBar(m.statusHints())

	var content string
	switch m.currentView {
	case ViewRestoring:
		content = "Restoring session..."
	case ViewLogin:
		content = m.loginView.View()
	case ViewDashboard:
		content = lipgloss.JoinHorizontal(
			lipgloss.Top,
			lipgloss.NewStyle().Width(sidebarWidth).Render(m.taskList.View()),
			m.chatView.View(),
		)
	}

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerStatus() string {
	user := m.sess.User()
	if user == nil {
		return "signed out"
	}
	return fmt.Sprintf("streak %d · completed %d", user.StreakCount, user.TotalCompleted)
}

func (m Model) statusHints() string {
	if m.currentView != ViewDashboard {
		return "ctrl+c quit"
	}
	return "enter send · ctrl+d complete step · ctrl+n new quest · tab sidebar · ctrl+l log out · ctrl+c quit"
}
