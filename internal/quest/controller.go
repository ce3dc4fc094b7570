// Package quest holds the progression state machine: the conversation
// transcript, the active quest's steps, the active step pointer, and
// the reward phase. It consumes user intents and decoded stream events
// and is the only writer of its state; the presentation layer is a
// passive subscriber that redraws on change notifications.
package quest

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/nhle/microwins/internal/api"
	"github.com/nhle/microwins/internal/model"
	"github.com/nhle/microwins/internal/stream"
)

// Phase is the controller's position in the quest lifecycle.
type Phase int

const (
	// PhaseIdle means no active quest.
	PhaseIdle Phase = iota
	// PhaseComposing means a decomposition stream is being consumed.
	PhaseComposing
	// PhaseActive means the step at StepIndex is being worked on.
	PhaseActive
	// PhaseRewarding is the transient phase shown right after a step
	// is marked complete, before the pointer advances.
	PhaseRewarding
	// PhaseComplete means every step of the quest is done.
	PhaseComplete
)

// RewardKind selects which reward variant is showing.
type RewardKind int

const (
	RewardNone RewardKind = iota
	RewardStep
	RewardQuest
)

// State is a snapshot of everything the presentation layer renders.
// The StepIndex invariant holds throughout: 0 <= StepIndex <=
// len(Steps), where len(Steps) denotes "quest fully complete".
type State struct {
	Phase         Phase
	Messages      []model.Message
	Steps         []model.Step
	StepIndex     int
	ActiveTaskID  int64
	Reward        RewardKind
	RewardText    string
	LastLatencyMS int
}

// Gateway is the slice of the API client the controller needs.
type Gateway interface {
	DecomposeStream(ctx context.Context, userID int64, instruction string) (io.ReadCloser, error)
	TaskDetail(ctx context.Context, taskID int64) (*model.Quest, error)
	UpdateStepStatus(ctx context.Context, stepID int64, completed bool) (*api.StepStatus, error)
}

// Session is the slice of the session store the controller needs.
type Session interface {
	User() *model.User
	ApplyProfile(patch model.ProfilePatch)
}

// Sidebar keeps the task list consistent with quest creation/deletion.
type Sidebar interface {
	Refresh(ctx context.Context, userID int64) error
	Remove(ctx context.Context, taskID int64) error
}

// Controller is the quest-progression state machine.
type Controller struct {
	mu    sync.Mutex
	state State

	// gen invalidates in-flight work (stream events, reward timers,
	// completion confirmations) whenever the quest view is replaced.
	gen uint64

	gw      Gateway
	sess    Session
	sidebar Sidebar

	rewardDelay  time.Duration
	rewardTimer  *time.Timer
	cancelStream context.CancelFunc
	rng          *rand.Rand

	updates chan struct{}
}

// New creates a controller. rewardDelay controls how long the reward
// phase lasts before the pointer advances; zero selects the default.
func New(gw Gateway, sess Session, sidebar Sidebar, rewardDelay time.Duration) *Controller {
	if rewardDelay <= 0 {
		rewardDelay = 2500 * time.Millisecond
	}
	return &Controller{
		state:       State{Phase: PhaseIdle},
		gw:          gw,
		sess:        sess,
		sidebar:     sidebar,
		rewardDelay: rewardDelay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		updates:     make(chan struct{}, 16),
	}
}

// Updates delivers a signal after every state change. Signals are
// coalesced when the consumer lags; the channel never blocks the
// controller.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// State returns a snapshot safe to read concurrently with transitions.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Messages = append([]model.Message(nil), c.state.Messages...)
	s.Steps = append([]model.Step(nil), c.state.Steps...)
	return s
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// resetLocked clears the quest view and invalidates all in-flight work.
func (c *Controller) resetLocked() {
	c.gen++
	if c.rewardTimer != nil {
		c.rewardTimer.Stop()
		c.rewardTimer = nil
	}
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
	c.state = State{Phase: PhaseIdle}
}

// SendGoal abandons the current quest view and asks the service to
// decompose the goal. Always permitted; any previously open stream
// becomes stale and its late events are ignored.
func (c *Controller) SendGoal(ctx context.Context, goal string) {
	user := c.sess.User()
	if user == nil || goal == "" {
		return
	}

	c.mu.Lock()
	c.resetLocked()
	gen := c.gen
	c.state.Phase = PhaseComposing
	c.state.Messages = []model.Message{model.NewMessage(model.RoleUser, goal)}

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelStream = cancel
	c.mu.Unlock()
	c.notify()

	go c.runStream(streamCtx, gen, user.ID, goal)
}

// runStream drives one decomposition stream to completion, folding its
// events into state in arrival order.
func (c *Controller) runStream(ctx context.Context, gen uint64, userID int64, goal string) {
	body, err := c.gw.DecomposeStream(ctx, userID, goal)
	if err != nil {
		c.failCompose(gen)
		return
	}
	defer body.Close()

	dec := stream.NewDecoder(body)
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			c.finishCompose(gen)
			return
		}
		if err != nil {
			c.failCompose(gen)
			return
		}
		c.fold(ctx, gen, ev)
	}
}

// fold applies a single stream event. Events from a superseded stream
// are dropped without touching state.
func (c *Controller) fold(ctx context.Context, gen uint64, ev stream.Event) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	switch ev := ev.(type) {
	case stream.Latency:
		c.state.LastLatencyMS = ev.Millis
		c.mu.Unlock()
		c.notify()

	case stream.StepProduced:
		if c.state.Phase == PhaseComposing {
			c.state.Steps = append(c.state.Steps, model.Step{
				ID:      ev.ID,
				Action:  ev.Action,
				Ordinal: ev.Ordinal,
			})
		}
		c.mu.Unlock()
		c.notify()

	case stream.SidebarTitleReady:
		c.mu.Unlock()
		if user := c.sess.User(); user != nil {
			// Best-effort; a failed refresh just leaves the old list.
			go func() { _ = c.sidebar.Refresh(ctx, user.ID) }()
		}

	default:
		c.mu.Unlock()
	}
}

// finishCompose handles normal stream completion.
func (c *Controller) finishCompose(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state.Phase != PhaseComposing {
		c.mu.Unlock()
		return
	}

	if len(c.state.Steps) == 0 {
		c.state.Messages = append(c.state.Messages,
			model.NewMessage(model.RoleAssistant, msgEmptyDecomposition))
		c.state.Phase = PhaseIdle
	} else {
		c.state.Messages = append(c.state.Messages,
			model.NewMessage(model.RoleAssistant, questAccepted(len(c.state.Steps))))
		c.state.StepIndex = model.FirstIncomplete(c.state.Steps)
		c.state.Phase = PhaseActive
	}
	c.mu.Unlock()
	c.notify()
}

// failCompose handles a failure to open the stream or a transport
// error mid-stream.
func (c *Controller) failCompose(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state.Phase != PhaseComposing {
		c.mu.Unlock()
		return
	}
	c.state.Steps = nil
	c.state.StepIndex = 0
	c.state.Messages = append(c.state.Messages,
		model.NewMessage(model.RoleAssistant, msgStreamFailure))
	c.state.Phase = PhaseIdle
	c.mu.Unlock()
	c.notify()
}

// CompleteActiveStep marks the step under the pointer as done. The
// completion flag flips optimistically; a persistence call then runs in
// the background and, should it fail, the flag is reverted and the
// pointer returns to the step so the user can retry.
func (c *Controller) CompleteActiveStep(ctx context.Context) {
	c.mu.Lock()
	if c.state.Phase != PhaseActive || c.state.StepIndex >= len(c.state.Steps) {
		c.mu.Unlock()
		return
	}

	gen := c.gen
	i := c.state.StepIndex
	c.state.Steps[i].Completed = true
	stepID := c.state.Steps[i].ID

	if i == len(c.state.Steps)-1 {
		c.state.Reward = RewardQuest
		c.state.RewardText = questCompleteReward
	} else {
		c.state.Reward = RewardStep
		c.state.RewardText = pickEncouragement(c.rng)
	}
	c.state.Phase = PhaseRewarding

	c.rewardTimer = time.AfterFunc(c.rewardDelay, func() {
		c.advance(gen, i)
	})
	c.mu.Unlock()
	c.notify()

	go c.persistCompletion(ctx, gen, i, stepID)
}

// persistCompletion confirms the optimistic flag with the server, or
// reverts it.
func (c *Controller) persistCompletion(ctx context.Context, gen uint64, i int, stepID int64) {
	status, err := c.gw.UpdateStepStatus(ctx, stepID, true)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if err != nil {
		// Revert, even if the reward already advanced the pointer.
		if i < len(c.state.Steps) && c.state.Steps[i].ID == stepID {
			c.state.Steps[i].Completed = false
		}
		if c.rewardTimer != nil {
			c.rewardTimer.Stop()
			c.rewardTimer = nil
		}
		c.state.StepIndex = i
		c.state.Phase = PhaseActive
		c.state.Reward = RewardNone
		c.state.RewardText = ""
		c.mu.Unlock()
		c.notify()
		return
	}
	c.mu.Unlock()

	if status.TaskCompleted {
		// The only server-confirmed session mutation in the flow.
		c.sess.ApplyProfile(model.ProfilePatch{
			StreakCount:    &status.StreakCount,
			TotalCompleted: &status.TotalCompleted,
		})
	}
}

// advance moves the pointer past a rewarded step.
func (c *Controller) advance(gen uint64, i int) {
	c.mu.Lock()
	if gen != c.gen || c.state.Phase != PhaseRewarding {
		c.mu.Unlock()
		return
	}

	c.rewardTimer = nil
	c.state.Reward = RewardNone
	c.state.RewardText = ""
	c.state.StepIndex = i + 1
	if c.state.StepIndex >= len(c.state.Steps) {
		c.state.StepIndex = len(c.state.Steps)
		c.state.Phase = PhaseComplete
	} else {
		c.state.Phase = PhaseActive
	}
	c.mu.Unlock()
	c.notify()
}

// LoadTask replaces the quest view with a previously persisted task.
// A fetch failure is swallowed: the view simply does not change and
// the user can retry by selecting the task again.
func (c *Controller) LoadTask(ctx context.Context, taskID int64) {
	quest, err := c.gw.TaskDetail(ctx, taskID)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.resetLocked()
	c.state.Messages = []model.Message{
		model.NewMessage(model.RoleUser, quest.Goal),
		model.NewMessage(model.RoleAssistant, questResumed(quest.Goal)),
	}
	c.state.Steps = append([]model.Step(nil), quest.Steps...)
	c.state.ActiveTaskID = quest.ID
	c.state.StepIndex = model.FirstIncomplete(c.state.Steps)
	if c.state.StepIndex >= len(c.state.Steps) {
		c.state.Phase = PhaseComplete
	} else {
		c.state.Phase = PhaseActive
	}
	c.mu.Unlock()
	c.notify()
}

// DeleteTask removes a quest. A server-side failure is swallowed (the
// sidebar keeps the entry and the user can retry). When the deleted
// task is the one being viewed, the view resets to Idle.
func (c *Controller) DeleteTask(ctx context.Context, taskID int64) {
	if err := c.sidebar.Remove(ctx, taskID); err != nil {
		return
	}

	c.mu.Lock()
	if c.state.ActiveTaskID == taskID && taskID != 0 {
		c.resetLocked()
		c.mu.Unlock()
		c.notify()
		return
	}
	c.mu.Unlock()
}

// NewQuest resets the view without sending anything.
func (c *Controller) NewQuest() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	c.notify()
}
