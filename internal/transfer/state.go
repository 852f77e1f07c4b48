package transfer

import "github.com/DTigi/BankApplication/internal/session"

// State is the transfer stage of one session.
type State string

const (
	StateIdle              State = "idle"
	StateRecipientSelected State = "recipient_selected"
)

// Event drives the per-session state machine.
type Event string

const (
	EventSelected Event = "select_succeeded"
	EventExecuted Event = "execute_succeeded"
)

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventSelected: StateRecipientSelected,
	},
	StateRecipientSelected: {
		EventSelected: StateRecipientSelected,
		EventExecuted: StateIdle,
	},
}

// Next returns the state reached from s on e. ok is false for transitions the
// machine does not allow, such as a successful execution from Idle. A failed
// operation is not an event: the state stays where it was.
func Next(s State, e Event) (next State, ok bool) {
	next, ok = transitions[s][e]
	return next, ok
}

func stateOf(selected bool) State {
	if selected {
		return StateRecipientSelected
	}
	return StateIdle
}

// advance checks that e is allowed from the session's current state. Execution
// from Idle is the one refused transition and means nothing is staged.
func advance(tx *session.Tx, e Event) error {
	_, staged := tx.Selection()
	if _, ok := Next(stateOf(staged), e); !ok {
		return ErrRecipientNotSelected
	}
	return nil
}
