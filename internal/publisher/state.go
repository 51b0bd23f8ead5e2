package publisher

import (
	"errors"
	"fmt"
	"time"
)

// State is a stage of one publishing run.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StatePublishing State = "publishing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// ErrInvalidTransition is returned when a run moves to a state that cannot
// follow its current one.
var ErrInvalidTransition = errors.New("publisher: invalid state transition")

// next lists the forward transitions. Any non-terminal state may also fail.
var next = map[State]State{
	StateIdle:       StateUploading,
	StateUploading:  StatePublishing,
	StatePublishing: StateDone,
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition is reported to observers on every state change.
type Transition struct {
	Path   string    `json:"path"`
	Action string    `json:"action"`
	From   State     `json:"from"`
	To     State     `json:"to"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Observer receives the transitions of every run.
type Observer func(Transition)

// machine tracks one run. It is owned by a single goroutine.
type machine struct {
	path      string
	action    string
	state     State
	now       func() time.Time
	observers []Observer
}

func newMachine(path, action string, now func() time.Time, observers []Observer) *machine {
	return &machine{path: path, action: action, state: StateIdle, now: now, observers: observers}
}

func (m *machine) to(s State) error {
	if m.state.Terminal() || next[m.state] != s {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, s)
	}
	m.emit(s, nil)
	return nil
}

// fail moves the run to failed and returns cause. A run that already ended
// is left alone.
func (m *machine) fail(cause error) error {
	if !m.state.Terminal() {
		m.emit(StateFailed, cause)
	}
	return cause
}

func (m *machine) emit(s State, cause error) {
	t := Transition{Path: m.path, Action: m.action, From: m.state, To: s, At: m.now()}
	if cause != nil {
		t.Error = cause.Error()
	}
	m.state = s
	for _, o := range m.observers {
		o(t)
	}
}
