package booking

import "roomreserve/internal/model"

// FSM holds the allowed reservation status transitions. Transitions
// are monotone and one-directional: pending is the only entry state,
// confirmed and cancelled are terminal.
type FSM struct {
	transitions map[string][]string
}

// NewFSM creates the reservation lifecycle FSM.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[string][]string{
			model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
			model.StatusConfirmed: {model.StatusCancelled}, // administrative cancel only
			model.StatusCancelled: {},
		},
	}
}

// CanTransition checks if the transition is allowed.
func (f *FSM) CanTransition(from, to string) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (f *FSM) IsTerminal(status string) bool {
	allowed, ok := f.transitions[status]
	return ok && len(allowed) == 0
}
