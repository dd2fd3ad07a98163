package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"Tripboard/internal/due"
)

// Instant parses a timestamp from JSON as either date-only ("2006-01-02") or RFC3339.
// Date-only is stored as start of that day in UTC. Set records whether the field was
// present at all, so PATCH can tell "clear" (null) from "keep" (absent).
type Instant struct {
	Set bool
	t   *time.Time
}

func (d *Instant) UnmarshalJSON(data []byte) error {
	d.Set = true
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02",     // date only
		time.RFC3339,     // 2006-01-02T15:04:05Z07:00
		time.RFC3339Nano, // with nanoseconds
		"2006-01-02T15:04:05",
		"2006-01-02T15:04", // datetime-local input
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			parsed = parsed.UTC()
			d.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("use date (YYYY-MM-DD) or RFC3339 datetime, got %q", s)
}

// Ptr returns *time.Time for use in service/domain.
func (d Instant) Ptr() *time.Time { return d.t }

// Nullable is a PATCH field: absent keeps, null clears, a value sets.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	return json.Unmarshal(data, &n.Value)
}

type CreateTaskRequest struct {
	ID           string  `json:"id" binding:"max=64"`
	Title        string  `json:"title" binding:"max=200"`
	Category     string  `json:"category" binding:"max=80"`
	Assignee     string  `json:"assignee" binding:"max=80"`
	Status       string  `json:"status"`
	Details      *string `json:"details" binding:"omitempty,max=4000"`
	Deadline     Instant `json:"deadline"` // optional: "2026-02-19" or RFC3339
	ReminderLead *int    `json:"reminder_lead_minutes" binding:"omitempty,min=0"`
}

type UpdateTaskRequest struct {
	Title        *string          `json:"title" binding:"omitempty,max=200"`
	Category     *string          `json:"category" binding:"omitempty,max=80"`
	Assignee     *string          `json:"assignee" binding:"omitempty,max=80"`
	Status       *string          `json:"status"`
	Details      Nullable[string] `json:"details"`
	Deadline     Instant          `json:"deadline"` // absent = не менять, null = убрать
	ReminderLead Nullable[int]    `json:"reminder_lead_minutes"`
}

type DueResponse struct {
	due.State
	Label string `json:"label"`
}

type TaskResponse struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Category     string      `json:"category"`
	Assignee     string      `json:"assignee"`
	Status       string      `json:"status"`
	Details      *string     `json:"details"`
	Deadline     *time.Time  `json:"deadline"`
	ReminderLead *int        `json:"reminder_lead_minutes"`
	ReminderSent bool        `json:"reminder_sent"`
	Due          DueResponse `json:"due"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type ListTasksResponse struct {
	Items []TaskResponse `json:"items"`
}
