package domain

import (
	"strings"
	"time"
)

// Status is the progress of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ParseStatus maps a stored or user supplied status to a Status.
// Unknown values fall back to StatusNotStarted.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, " ", "_"))) {
	case "in_progress", "inprogress":
		return StatusInProgress
	case "done", "completed":
		return StatusDone
	default:
		return StatusNotStarted
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusNotStarted || s == StatusInProgress || s == StatusDone
}

// Task is the canonical trip-planning task.
// Не зависит от Gin, Postgres, Redis.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Assignee     string     `json:"assignee"`
	Status       Status     `json:"status"`
	Details      *string    `json:"details,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	ReminderLead *int       `json:"reminder_lead,omitempty"` // minutes before deadline
	ReminderSent bool       `json:"reminder_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeadMinutes returns the reminder lead, 0 when unset.
func (t Task) LeadMinutes() int {
	if t.ReminderLead == nil || *t.ReminderLead < 0 {
		return 0
	}
	return *t.ReminderLead
}

// ScheduleChanged reports whether the deadline or reminder lead differs between a and b.
// A changed schedule is a new obligation and must be re-notified.
func ScheduleChanged(a, b Task) bool {
	if !sameTime(a.Deadline, b.Deadline) {
		return true
	}
	return !sameInt(a.ReminderLead, b.ReminderLead)
}

// Clone returns a deep copy so callers can't mutate canonical state through pointers.
func (t Task) Clone() Task {
	out := t
	if t.Details != nil {
		d := *t.Details
		out.Details = &d
	}
	if t.Deadline != nil {
		d := *t.Deadline
		out.Deadline = &d
	}
	if t.ReminderLead != nil {
		l := *t.ReminderLead
		out.ReminderLead = &l
	}
	return out
}

// CloneTasks deep-copies a task list.
func CloneTasks(list []Task) []Task {
	out := make([]Task, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
