package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// LogChannel writes reminders to the log.
type LogChannel struct {
	Log zerolog.Logger
}

func (LogChannel) Name() string { return "log" }

func (c LogChannel) Notify(_ context.Context, r Reminder) error {
	c.Log.Info().
		Str("task_id", r.TaskID).
		Str("title", r.Title).
		Str("assignee", r.Assignee).
		Time("deadline", r.Deadline).
		Int("lead_minutes", r.LeadMinutes).
		Msg(r.Text())
	return nil
}

// BellChannel sounds the system beep.
type BellChannel struct {
	mu   sync.Mutex
	beep func(freq float64, duration int) error
}

func NewBellChannel() *BellChannel {
	return &BellChannel{beep: beeep.Beep}
}

func (*BellChannel) Name() string { return "bell" }

func (c *BellChannel) Notify(context.Context, Reminder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beep(beeep.DefaultFreq, beeep.DefaultDuration)
}

var ErrNoNotifier = errors.New("desktop notifier not available")

// DesktopChannel shows a desktop notification.
type DesktopChannel struct {
	AppName string

	notify  func(title, message, icon string) error
	granted bool
}

func NewDesktopChannel() *DesktopChannel {
	return &DesktopChannel{AppName: "Tripboard", notify: beeep.Notify}
}

func (*DesktopChannel) Name() string { return "desktop" }

// RequestPermission shows one notification announcing reminders. If the desktop
// refuses it, the channel stays unusable.
func (c *DesktopChannel) RequestPermission(context.Context) error {
	if err := c.notify(c.AppName, "Trip reminders are on", ""); err != nil {
		return fmt.Errorf("%w: %v", ErrNoNotifier, err)
	}
	c.granted = true
	return nil
}

func (c *DesktopChannel) Notify(_ context.Context, r Reminder) error {
	if !c.granted {
		return ErrNoNotifier
	}
	return c.notify(c.AppName+": "+r.Headline(), r.Text(), "")
}
