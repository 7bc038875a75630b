// Package phase tracks the stages of a mentor conversation.
package phase

import (
	"errors"
	"fmt"
	"strings"
)

// Phase is a named stage of the mentor dialogue.
type Phase string

const (
	Start      Phase = "start"
	Scenario   Phase = "scenario"
	Feedback   Phase = "feedback"
	ActionPlan Phase = "action_plan"
	Synthesis  Phase = "synthesis"
	Completed  Phase = "completed"
)

// ErrUnknownPhase is returned for labels outside the phase table.
var ErrUnknownPhase = errors.New("unknown phase")

var order = []Phase{Start, Scenario, Feedback, ActionPlan, Synthesis, Completed} //nolint:gochecknoglobals // fixed table

// Order returns the phases in dialogue order.
func Order() []Phase {
	out := make([]Phase, len(order))
	copy(out, order)
	return out
}

// Parse converts a client label into a Phase. An empty label means Start.
func Parse(label string) (Phase, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Start, nil
	}
	p := Phase(label)
	if p.Index() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, label)
	}
	return p, nil
}

// Index returns the position of p in the table, or -1.
func (p Phase) Index() int {
	for i, q := range order {
		if q == p {
			return i
		}
	}
	return -1
}

// Terminal reports whether p is the absorbing final phase.
func (p Phase) Terminal() bool { return p == Completed }

// Next returns the phase that follows p. Completed maps to itself and an
// unknown phase has no successor.
func (p Phase) Next() (Phase, error) {
	idx := p.Index()
	switch {
	case idx < 0:
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, string(p))
	case idx == len(order)-1:
		return p, nil
	}
	return order[idx+1], nil
}

func (p Phase) String() string { return string(p) }
