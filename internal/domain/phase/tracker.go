package phase

import (
	"errors"
	"fmt"
	"strings"
)

// Intent is the model's classification of the user's last turn.
type Intent string

const (
	IntentAdvance Intent = "advance"
	IntentClarify Intent = "clarify"
	IntentNone    Intent = ""
)

// ParseIntent normalizes a model-provided intent. Unknown values map to IntentNone.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentAdvance:
		return IntentAdvance
	case IntentClarify:
		return IntentClarify
	}
	return IntentNone
}

// Policy selects how the tracker reacts to intents.
type Policy string

const (
	// PolicyIntent keeps the phase on clarify and otherwise follows the table.
	PolicyIntent Policy = "intent"
	// PolicyOptimistic advances every turn regardless of intent. The phase
	// can drift from the real conversation under this policy.
	PolicyOptimistic Policy = "optimistic"
)

// ErrUnknownPolicy is returned by ParsePolicy for unsupported names.
var ErrUnknownPolicy = errors.New("unknown phase policy")

// ParsePolicy validates a configured policy name. Empty means PolicyIntent.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyIntent:
		return PolicyIntent, nil
	case PolicyOptimistic:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Transition reasons.
const (
	ReasonOpening    = "opening"
	ReasonTerminal   = "terminal"
	ReasonClarify    = "clarify"
	ReasonAdvance    = "advance"
	ReasonDefault    = "default"
	ReasonOptimistic = "optimistic"
)

// Transition describes the outcome of one mentor turn.
type Transition struct {
	From     Phase
	To       Phase
	Advanced bool
	Reason   string
}

// Tracker decides the next phase. It holds no conversation state.
type Tracker struct {
	policy Policy
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPolicy sets the transition policy.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) {
		if p != "" {
			t.policy = p
		}
	}
}

// NewTracker creates a tracker using PolicyIntent unless overridden.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{policy: PolicyIntent}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the active policy.
func (t *Tracker) Policy() Policy { return t.policy }

// Advance returns the transition for one turn taken in current.
// Start always advances since the opening turn introduces the scenario,
// and Completed never moves.
func (t *Tracker) Advance(current Phase, intent Intent) (Transition, error) {
	next, err := current.Next()
	if err != nil {
		return Transition{}, err
	}
	tr := Transition{From: current, To: current}

	switch {
	case current.Terminal():
		tr.Reason = ReasonTerminal
		return tr, nil
	case current == Start:
		tr.Reason = ReasonOpening
	case t.policy == PolicyOptimistic:
		tr.Reason = ReasonOptimistic
	case intent == IntentClarify:
		tr.Reason = ReasonClarify
		return tr, nil
	case intent == IntentAdvance:
		tr.Reason = ReasonAdvance
	default:
		tr.Reason = ReasonDefault
	}

	tr.To = next
	tr.Advanced = true
	return tr, nil
}
