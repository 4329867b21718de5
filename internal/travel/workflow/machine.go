// Package workflow holds the status machines of travel requests and expense
// reports. Services consult a machine before every status write, so an
// illegal transition never reaches the database.
package workflow

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// State is a persisted status value
type State string

// Trigger is an operation that moves an entity between states
type Trigger string

const (
	TriggerSubmit           Trigger = "submit"
	TriggerApprove          Trigger = "approve"
	TriggerPartiallyApprove Trigger = "partially_approve"
	TriggerReject           Trigger = "reject"
	TriggerCancel           Trigger = "cancel"
	TriggerReopen           Trigger = "reopen"
	TriggerOpen             Trigger = "open"
	TriggerClose            Trigger = "close"
)

// ErrInvalidTransition is wrapped by every rejected transition
var ErrInvalidTransition = stderrors.New("invalid state transition")

// Machine is an immutable transition table
type Machine struct {
	name        string
	transitions map[State]map[Trigger]State
}

// Builder configures a Machine
type Builder struct {
	m *Machine
}

// NewBuilder starts a machine for entities called name in error messages
func NewBuilder(name string) *Builder {
	return &Builder{m: &Machine{name: name, transitions: make(map[State]map[Trigger]State)}}
}

// Permit allows trigger to move from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	if b.m.transitions[from] == nil {
		b.m.transitions[from] = make(map[Trigger]State)
	}
	b.m.transitions[from][trigger] = to
	return b
}

// Build returns the configured machine
func (b *Builder) Build() *Machine {
	return b.m
}

// CanFire reports whether trigger is allowed from state
func (m *Machine) CanFire(from State, trigger Trigger) bool {
	_, ok := m.transitions[from][trigger]
	return ok
}

// Fire returns the state trigger leads to from state. An illegal transition
// is a BAD_REQUEST that wraps ErrInvalidTransition.
func (m *Machine) Fire(from State, trigger Trigger) (State, error) {
	to, ok := m.transitions[from][trigger]
	if !ok {
		return from, errors.Wrap(
			fmt.Errorf("%w: %w: %s %s from %s", errors.ErrBadRequest, ErrInvalidTransition, trigger, m.name, from),
			"BAD_REQUEST",
			fmt.Sprintf("cannot %s a %s that is %s", humanize(State(trigger)), m.name, humanize(from)),
			http.StatusBadRequest,
		)
	}
	return to, nil
}

func humanize(s State) string {
	out := []byte(s)
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}
