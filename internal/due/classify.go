// Package due classifies tasks by how close they are to their deadline.
package due

import (
	"time"

	dom "Tripboard/internal/domain"
)

// SoonHorizon is how far ahead a deadline counts as due soon.
const SoonHorizon = 240 // minutes

// State is the due state of a task at a given instant.
type State struct {
	Overdue          bool `json:"overdue"`
	DueSoon          bool `json:"due_soon"`
	MinutesRemaining int  `json:"minutes_remaining"`
}

// Label returns "overdue", "due-soon" or "on-track".
func (s State) Label() string {
	switch {
	case s.Overdue:
		return "overdue"
	case s.DueSoon:
		return "due-soon"
	default:
		return "on-track"
	}
}

// Classify computes the due state of t at now. It keeps no state; call it on every read.
func Classify(t dom.Task, now time.Time) State {
	if t.Deadline == nil {
		return State{}
	}
	deadline := *t.Deadline
	overdue := now.After(deadline) && t.Status != dom.StatusDone

	remaining := 0
	if diff := deadline.Sub(now); diff > 0 {
		remaining = int(diff / time.Minute)
	}
	return State{
		Overdue:          overdue,
		DueSoon:          !overdue && remaining <= SoonHorizon,
		MinutesRemaining: remaining,
	}
}
