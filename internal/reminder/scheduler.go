package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Source is the task list the scheduler watches. *service.TaskService implements it.
type Source interface {
	Tasks() []dom.Task
	Now() time.Time
	Modify(ctx context.Context, id string, fn func(*dom.Task) bool) (dom.Task, error)
	OnChange(fn func())
}

type Options struct {
	Interval   time.Duration
	TimeLayout string
	Location   *time.Location
	Log        zerolog.Logger
	Metrics    *metrics.Metrics
}

// Scheduler checks the list every Interval and after every list change.
type Scheduler struct {
	src      Source
	channels []Channel
	interval time.Duration
	layout   string
	loc      *time.Location
	log      zerolog.Logger
	metrics  *metrics.Metrics

	sf   singleflight.Group
	poke chan struct{}
	// fired maps task id to the schedule it last fired for. Only evaluate touches it.
	fired map[string]string

	mu      sync.Mutex
	muted   map[string]bool
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func New(src Source, channels []Channel, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = "Mon Jan 2 15:04"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scheduler{
		src:      src,
		channels: channels,
		interval: opts.Interval,
		layout:   opts.TimeLayout,
		loc:      opts.Location,
		log:      opts.Log.With().Str("component", "reminder").Logger(),
		metrics:  opts.Metrics,
		poke:     make(chan struct{}, 1),
		fired:    make(map[string]string),
		muted:    make(map[string]bool),
	}
}

// Start asks permission-gated channels once, then runs the polling loop until Stop
// or ctx is done. A second Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.requestPermissions(ctx)
	s.src.OnChange(s.Poke)
	go s.loop(ctx)
}

// Stop ends the loop and waits for a running evaluation to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Poke schedules an evaluation without waiting for the next tick.
func (s *Scheduler) Poke() {
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Evaluate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.poke:
		}
		s.Evaluate(ctx)
	}
}

func (s *Scheduler) requestPermissions(ctx context.Context) {
	for _, ch := range s.channels {
		pr, ok := ch.(PermissionRequester)
		if !ok {
			continue
		}
		if err := pr.RequestPermission(ctx); err != nil {
			s.log.Warn().Err(err).Str("channel", ch.Name()).Msg("notification permission refused, channel muted")
			s.mu.Lock()
			s.muted[ch.Name()] = true
			s.mu.Unlock()
		}
	}
}

// Evaluate fires every reminder that is due at the source's current time and reports
// how many fired. Concurrent calls share one pass.
func (s *Scheduler) Evaluate(ctx context.Context) int {
	v, _, _ := s.sf.Do("evaluate", func() (any, error) {
		return s.evaluate(ctx), nil
	})
	return v.(int)
}

func (s *Scheduler) evaluate(ctx context.Context) int {
	now := s.src.Now()
	tasks := s.src.Tasks()
	s.forgetStale(tasks)

	fired := 0
	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		if !Due(t, now) {
			continue
		}
		key := scheduleKey(t)
		if s.fired[t.ID] == key {
			// A stale copy of the task (an echoed remote row) cleared the flag again.
			s.markSent(ctx, t)
			continue
		}
		s.fire(ctx, t)
		s.fired[t.ID] = key
		fired++
	}
	return fired
}

// forgetStale drops fired schedules for tasks that are gone or were rescheduled.
func (s *Scheduler) forgetStale(tasks []dom.Task) {
	current := make(map[string]string, len(tasks))
	for _, t := range tasks {
		if t.Deadline != nil {
			current[t.ID] = scheduleKey(t)
		}
	}
	for id, key := range s.fired {
		if current[id] != key {
			delete(s.fired, id)
		}
	}
}

func scheduleKey(t dom.Task) string {
	return fmt.Sprintf("%d/%d", t.Deadline.UnixNano(), t.LeadMinutes())
}

// Due reports whether t needs its reminder at now.
func Due(t dom.Task, now time.Time) bool {
	if t.Deadline == nil || t.Status == dom.StatusDone || t.ReminderSent {
		return false
	}
	fireAt := t.Deadline.Add(-time.Duration(t.LeadMinutes()) * time.Minute)
	return !now.Before(fireAt)
}

func (s *Scheduler) fire(ctx context.Context, t dom.Task) {
	r := Reminder{
		TaskID:       t.ID,
		Title:        t.Title,
		Assignee:     t.Assignee,
		Deadline:     *t.Deadline,
		DeadlineText: t.Deadline.In(s.loc).Format(s.layout),
		LeadMinutes:  t.LeadMinutes(),
	}
	s.log.Info().Str("task_id", t.ID).Str("title", t.Title).Msg("reminder due")
	s.metrics.ReminderFired()

	s.mu.Lock()
	muted := make(map[string]bool, len(s.muted))
	for k, v := range s.muted {
		muted[k] = v
	}
	s.mu.Unlock()

	for _, ch := range s.channels {
		if muted[ch.Name()] {
			continue
		}
		if err := deliver(ctx, ch, r); err != nil {
			s.log.Error().Err(err).Str("channel", ch.Name()).Str("task_id", t.ID).Msg("notification failed")
			s.metrics.ChannelFailed(ch.Name())
		}
	}

	s.markSent(ctx, t)
}

// markSent sets ReminderSent on the task as it was when it fired. If the schedule was
// edited meanwhile the new schedule gets its own reminder.
func (s *Scheduler) markSent(ctx context.Context, t dom.Task) {
	_, err := s.src.Modify(ctx, t.ID, func(cur *dom.Task) bool {
		if cur.ReminderSent || dom.ScheduleChanged(*cur, t) {
			return false
		}
		cur.ReminderSent = true
		return true
	})
	if err != nil {
		s.log.Warn().Err(err).Str("task_id", t.ID).Msg("marking reminder sent")
	}
}

func deliver(ctx context.Context, ch Channel, r Reminder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &NotificationChannelError{Channel: ch.Name(), TaskID: r.TaskID, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if err := ch.Notify(ctx, r); err != nil {
		return &NotificationChannelError{Channel: ch.Name(), TaskID: r.TaskID, Err: err}
	}
	return nil
}
