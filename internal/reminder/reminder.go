// Package reminder fires one-shot reminders for tasks whose deadline is close.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Reminder is what a channel receives when a task's reminder time has passed.
type Reminder struct {
	TaskID       string    `json:"taskId"`
	Title        string    `json:"title"`
	Assignee     string    `json:"assignee,omitempty"`
	Deadline     time.Time `json:"deadline"`
	DeadlineText string    `json:"deadlineText"`
	LeadMinutes  int       `json:"leadMinutes"`
}

// Headline is the short form used as a notification title.
func (r Reminder) Headline() string {
	if strings.TrimSpace(r.Title) == "" {
		return "Untitled task"
	}
	return r.Title
}

// Text is the one-line human form.
func (r Reminder) Text() string {
	msg := fmt.Sprintf("%s is due %s", r.Headline(), r.DeadlineText)
	if r.Assignee != "" {
		msg += " (" + r.Assignee + ")"
	}
	return msg
}

// Channel delivers reminders somewhere.
type Channel interface {
	Name() string
	Notify(ctx context.Context, r Reminder) error
}

// PermissionRequester is implemented by channels that must be allowed before use.
// The scheduler asks once at Start; a refused channel stays muted for the session.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}

// NotificationChannelError is a failed delivery on one channel.
type NotificationChannelError struct {
	Channel string
	TaskID  string
	Err     error
}

func (e *NotificationChannelError) Error() string {
	return fmt.Sprintf("notify %s for task %s: %v", e.Channel, e.TaskID, e.Err)
}

func (e *NotificationChannelError) Unwrap() error { return e.Err }
