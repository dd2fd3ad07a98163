package repo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dom "Tripboard/internal/domain"
)

// TaskRow is a tasks row as the remote store hands it over. Every column is optional;
// TaskFromRow documents the default used when one is missing.
type TaskRow struct {
	ID                  *string    `json:"id"`
	TripID              *string    `json:"trip_id"`
	Title               *string    `json:"title"`
	Category            *string    `json:"category"`
	Assignee            *string    `json:"assignee"`
	Status              *string    `json:"status"`
	Details             *string    `json:"details"`
	Deadline            *time.Time `json:"deadline"`
	ReminderLeadMinutes *int       `json:"reminder_lead_minutes"`
	ReminderSent        *bool      `json:"reminder_sent"`
	CreatedAt           *time.Time `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

// TaskFromRow converts a row to a Task. ok is false when the row has no id.
//
// Defaults: title, category, assignee → ""; status → not_started (also for unknown
// values); details, deadline → absent; negative lead → absent; reminder_sent → false;
// created_at → updated_at; updated_at → created_at; both absent → zero time.
func TaskFromRow(r TaskRow) (t dom.Task, ok bool) {
	if r.ID == nil || *r.ID == "" {
		return dom.Task{}, false
	}
	t = dom.Task{
		ID:       *r.ID,
		Title:    str(r.Title),
		Category: str(r.Category),
		Assignee: str(r.Assignee),
		Status:   dom.ParseStatus(str(r.Status)),
	}
	if r.Details != nil {
		d := *r.Details
		t.Details = &d
	}
	if r.Deadline != nil {
		d := r.Deadline.UTC()
		t.Deadline = &d
	}
	if r.ReminderLeadMinutes != nil && *r.ReminderLeadMinutes >= 0 {
		l := *r.ReminderLeadMinutes
		t.ReminderLead = &l
	}
	if r.ReminderSent != nil {
		t.ReminderSent = *r.ReminderSent
	}
	switch {
	case r.CreatedAt != nil && r.UpdatedAt != nil:
		t.CreatedAt, t.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	case r.CreatedAt != nil:
		t.CreatedAt = r.CreatedAt.UTC()
		t.UpdatedAt = t.CreatedAt
	case r.UpdatedAt != nil:
		t.UpdatedAt = r.UpdatedAt.UTC()
		t.CreatedAt = t.UpdatedAt
	}
	return t, true
}

// RowFromTask converts a Task to a fully populated row for tripID.
func RowFromTask(tripID string, t dom.Task) TaskRow {
	status := string(t.Status)
	if !t.Status.Valid() {
		status = string(dom.StatusNotStarted)
	}
	r := TaskRow{
		ID:           ptr(t.ID),
		TripID:       ptr(tripID),
		Title:        ptr(t.Title),
		Category:     ptr(t.Category),
		Assignee:     ptr(t.Assignee),
		Status:       &status,
		ReminderSent: ptr(t.ReminderSent),
		CreatedAt:    ptr(t.CreatedAt),
		UpdatedAt:    ptr(t.UpdatedAt),
	}
	if t.Details != nil {
		r.Details = ptr(*t.Details)
	}
	if t.Deadline != nil {
		r.Deadline = ptr(*t.Deadline)
	}
	if t.ReminderLead != nil && *t.ReminderLead >= 0 {
		r.ReminderLeadMinutes = ptr(*t.ReminderLead)
	}
	return r
}

// EventType tags a ChangeEvent.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one change on the tasks relation. For deletes Row carries the old row.
type ChangeEvent struct {
	Type EventType `json:"eventType"`
	Row  TaskRow   `json:"row"`
}

// DecodeChangeEvent parses a notification payload.
func DecodeChangeEvent(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	ev.Type = EventType(strings.ToUpper(string(ev.Type)))
	switch ev.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return ChangeEvent{}, fmt.Errorf("decode change event: unknown event type %q", ev.Type)
	}
	return ev, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr[T any](v T) *T { return &v }
