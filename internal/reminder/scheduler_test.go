package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/repo"
	"Tripboard/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recorder struct {
	name string
	err  error
	mu   sync.Mutex
	got  []Reminder
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Notify(_ context.Context, rem Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, rem)
	return r.err
}

func (r *recorder) Received() []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reminder(nil), r.got...)
}

type panicky struct{}

func (panicky) Name() string                           { return "panicky" }
func (panicky) Notify(context.Context, Reminder) error { panic("boom") }

type gated struct {
	recorder
	asked int
}

func (g *gated) RequestPermission(context.Context) error {
	g.asked++
	return errors.New("denied")
}

func newSource(t *testing.T, clk *clock) *service.TaskService {
	t.Helper()
	s := service.NewTaskService(service.Options{TripID: "lisbon", Log: zerolog.Nop(), Now: clk.Now})
	s.Start(context.Background(), nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addTask(t *testing.T, s *service.TaskService, deadline time.Time, lead int) dom.Task {
	t.Helper()
	added, err := s.AddTask(context.Background(), dom.Task{
		Title: "Book ferry", Assignee: "Ana", Deadline: &deadline, ReminderLead: &lead,
	})
	require.NoError(t, err)
	return added
}

func TestExactlyOneReminderAcrossSweep(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	src := newSource(t, clk)
	deadline := t0.Add(3 * time.Hour)
	added := addTask(t, src, deadline, 30)

	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Location: time.UTC, Log: zerolog.Nop()})

	fireAt := deadline.Add(-30 * time.Minute)
	for now := fireAt.Add(-10 * time.Minute); !now.After(deadline.Add(10 * time.Minute)); now = now.Add(time.Minute) {
		clk.Set(now)
		s.Evaluate(ctx)
		if now.Before(fireAt) {
			assert.Empty(t, rec.Received(), "fired early at %s", now)
		}
	}

	got := rec.Received()
	require.Len(t, got, 1)
	assert.Equal(t, added.ID, got[0].TaskID)
	assert.Equal(t, "Ana", got[0].Assignee)
	assert.Equal(t, 30, got[0].LeadMinutes)
	assert.Equal(t, "Tue Sep 1 12:00", got[0].DeadlineText)

	cur, err := src.Task(added.ID)
	require.NoError(t, err)
	assert.True(t, cur.ReminderSent)
}

func TestFiresAtExactFireTime(t *testing.T) {
	clk := &clock{now: t0}
	src := newSource(t, clk)
	addTask(t, src, t0.Add(time.Hour), 60)

	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Log: zerolog.Nop()})
	assert.Equal(t, 1, s.Evaluate(context.Background()))
}

func TestDoneAndUndatedTasksAreSkipped(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	src := newSource(t, clk)

	past := t0.Add(-time.Hour)
	done := addTask(t, src, past, 0)
	_, err := src.Modify(ctx, done.ID, func(t *dom.Task) bool { t.Status = dom.StatusDone; return true })
	require.NoError(t, err)
	_, err = src.AddTask(ctx, dom.Task{Title: "No deadline"})
	require.NoError(t, err)

	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Log: zerolog.Nop()})
	assert.Zero(t, s.Evaluate(ctx))
	assert.Empty(t, rec.Received())
}

func TestFailingChannelDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	src := newSource(t, clk)
	added := addTask(t, src, t0.Add(10*time.Minute), 15)

	broken := &recorder{name: "broken", err: errors.New("speaker unplugged")}
	ok := &recorder{name: "ok"}
	s := New(src, []Channel{broken, panicky{}, ok}, Options{Log: zerolog.Nop()})

	assert.Equal(t, 1, s.Evaluate(ctx))
	assert.Len(t, broken.Received(), 1)
	assert.Len(t, ok.Received(), 1)

	cur, err := src.Task(added.ID)
	require.NoError(t, err)
	assert.True(t, cur.ReminderSent)

	assert.Zero(t, s.Evaluate(ctx))
}

func TestDeadlineEditRearmsReminder(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	src := newSource(t, clk)
	added := addTask(t, src, t0.Add(5*time.Minute), 10)

	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Log: zerolog.Nop()})
	require.Equal(t, 1, s.Evaluate(ctx))

	later := t0.Add(2 * time.Hour)
	_, err := src.Modify(ctx, added.ID, func(t *dom.Task) bool { t.Deadline = &later; return true })
	require.NoError(t, err)
	assert.Zero(t, s.Evaluate(ctx))

	clk.Set(later.Add(-10 * time.Minute))
	assert.Equal(t, 1, s.Evaluate(ctx))
	assert.Len(t, rec.Received(), 2)
}

func TestEchoedRowDoesNotRefire(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	src := newSource(t, clk)
	added := addTask(t, src, t0.Add(2*time.Hour), 10)

	past := t0.Add(-time.Minute)
	edited, err := src.Modify(ctx, added.ID, func(t *dom.Task) bool { t.Deadline = &past; return true })
	require.NoError(t, err)
	require.False(t, edited.ReminderSent)

	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Log: zerolog.Nop()})
	require.Equal(t, 1, s.Evaluate(ctx))

	// The live feed hands back the edit above, written before the reminder fired.
	require.True(t, src.ApplyEvent(repo.ChangeEvent{Type: repo.EventUpdate, Row: repo.RowFromTask("lisbon", edited)}))
	cur, err := src.Task(added.ID)
	require.NoError(t, err)
	require.False(t, cur.ReminderSent)

	assert.Zero(t, s.Evaluate(ctx))
	assert.Len(t, rec.Received(), 1)
	cur, err = src.Task(added.ID)
	require.NoError(t, err)
	assert.True(t, cur.ReminderSent, "flag is set again without a second notification")
}

func TestRescheduleBackToFiredDeadlineRearms(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: t0}
	src := newSource(t, clk)
	deadline := t0.Add(5 * time.Minute)
	added := addTask(t, src, deadline, 10)

	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Log: zerolog.Nop()})
	require.Equal(t, 1, s.Evaluate(ctx))

	later := t0.Add(3 * time.Hour)
	_, err := src.Modify(ctx, added.ID, func(t *dom.Task) bool { t.Deadline = &later; return true })
	require.NoError(t, err)
	require.Zero(t, s.Evaluate(ctx))

	_, err = src.Modify(ctx, added.ID, func(t *dom.Task) bool { t.Deadline = &deadline; return true })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Evaluate(ctx))
	assert.Len(t, rec.Received(), 2)
}

func TestPermissionAskedOnceAndMutes(t *testing.T) {
	clk := &clock{now: t0}
	src := newSource(t, clk)
	addTask(t, src, t0.Add(time.Minute), 5)

	g := &gated{recorder: recorder{name: "gated"}}
	rec := &recorder{name: "rec"}
	s := New(src, []Channel{g, rec}, Options{Interval: time.Hour, Log: zerolog.Nop()})
	s.Start(context.Background())
	s.Start(context.Background())

	require.Eventually(t, func() bool { return len(rec.Received()) == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, g.asked)
	assert.Empty(t, g.Received())
}

func TestChangePokesScheduler(t *testing.T) {
	clk := &clock{now: t0}
	src := newSource(t, clk)
	rec := &recorder{name: "rec"}
	s := New(src, []Channel{rec}, Options{Interval: time.Hour, Log: zerolog.Nop()})
	s.Start(context.Background())
	defer s.Stop()

	addTask(t, src, t0.Add(time.Minute), 5)
	require.Eventually(t, func() bool { return len(rec.Received()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopWithoutStart(t *testing.T) {
	s := New(newSource(t, &clock{now: t0}), nil, Options{Log: zerolog.Nop()})
	s.Stop()
}

func TestBellChannel(t *testing.T) {
	beeps := 0
	c := &BellChannel{beep: func(freq float64, duration int) error {
		beeps++
		return nil
	}}
	require.NoError(t, c.Notify(context.Background(), Reminder{}))
	assert.Equal(t, 1, beeps)
	assert.Equal(t, "bell", c.Name())
}

func TestDesktopChannelRefusedStaysMuted(t *testing.T) {
	c := &DesktopChannel{AppName: "Tripboard", notify: func(string, string, string) error {
		return errors.New("no notification daemon")
	}}
	assert.ErrorIs(t, c.RequestPermission(context.Background()), ErrNoNotifier)
	assert.ErrorIs(t, c.Notify(context.Background(), Reminder{}), ErrNoNotifier)
}

func TestDesktopChannelNotifies(t *testing.T) {
	type shown struct{ title, message string }
	var got []shown
	c := &DesktopChannel{AppName: "Tripboard", notify: func(title, message, _ string) error {
		got = append(got, shown{title, message})
		return nil
	}}
	require.NoError(t, c.RequestPermission(context.Background()))
	r := Reminder{Title: "Book ferry", Assignee: "Ana", DeadlineText: "Tue Sep 1 12:00"}
	require.NoError(t, c.Notify(context.Background(), r))

	require.Len(t, got, 2)
	assert.Equal(t, shown{"Tripboard: Book ferry", "Book ferry is due Tue Sep 1 12:00 (Ana)"}, got[1])
}

func TestReminderText(t *testing.T) {
	r := Reminder{Title: "", DeadlineText: "Tue Sep 1 12:00", Assignee: "Bo"}
	assert.Equal(t, "Untitled task is due Tue Sep 1 12:00 (Bo)", r.Text())
}

func TestNotificationChannelErrorUnwraps(t *testing.T) {
	base := errors.New("x")
	err := error(&NotificationChannelError{Channel: "bell", TaskID: "1", Err: base})
	assert.ErrorIs(t, err, base)
}
