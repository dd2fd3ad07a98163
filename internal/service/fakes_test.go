package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"Tripboard/internal/cache"
	dom "Tripboard/internal/domain"
	"Tripboard/internal/repo"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type call struct {
	op string
	id string
}

type fakeRemote struct {
	mu        sync.Mutex
	tasks     []dom.Task
	settings  dom.Settings
	calls     []call
	reads     []string
	ensureErr error
	writeErr  error
	subErr    error
	sub       *fakeSub
	closed    bool
	// block, when set, holds every write until it is closed.
	block chan struct{}
	// pending is queued on the feed as soon as it opens.
	pending []repo.ChangeEvent
}

func (f *fakeRemote) record(op, id string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op, id})
	return f.writeErr
}

func (f *fakeRemote) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRemote) List(context.Context, string) ([]dom.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, "list")
	return dom.CloneTasks(f.tasks), nil
}

func (f *fakeRemote) Create(_ context.Context, _ string, t dom.Task) error {
	return f.record("create", t.ID)
}

func (f *fakeRemote) Update(_ context.Context, _ string, t dom.Task) error {
	return f.record("update", t.ID)
}

func (f *fakeRemote) Delete(_ context.Context, _ string, id string) error {
	return f.record("delete", id)
}

func (f *fakeRemote) Replace(_ context.Context, _ string, list []dom.Task) error {
	return f.record("replace", fmt.Sprint(len(list)))
}

func (f *fakeRemote) EnsureTrip(context.Context, string) (dom.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, f.ensureErr
}

func (f *fakeRemote) SaveSettings(_ context.Context, _ string, s dom.Settings) error {
	return f.record("save_settings", "")
}

func (f *fakeRemote) Subscribe(context.Context, string) (repo.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, "subscribe")
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.sub = &fakeSub{events: make(chan repo.ChangeEvent, 16)}
	for _, ev := range f.pending {
		f.sub.events <- ev
	}
	return f.sub, nil
}

func (f *fakeRemote) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeRemote) dialer() Dialer {
	return func(context.Context) (repo.Remote, error) { return f, nil }
}

type fakeSub struct {
	events chan repo.ChangeEvent
	once   sync.Once
	closed bool
}

func (s *fakeSub) Events() <-chan repo.ChangeEvent { return s.events }

func (s *fakeSub) Close() error {
	s.once.Do(func() {
		s.closed = true
		close(s.events)
	})
	return nil
}

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

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTripCache(t *testing.T) *cache.TripCache {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return cache.NewTripCache(store, "lisbon")
}

func newService(t *testing.T, tc *cache.TripCache, clk *clock, seed bool) *TaskService {
	t.Helper()
	n := 0
	s := NewTaskService(Options{
		TripID:      "lisbon",
		Cache:       tc,
		Log:         zerolog.Nop(),
		SeedOnEmpty: seed,
		Now:         clk.Now,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func row(t dom.Task) repo.TaskRow {
	return repo.RowFromTask("lisbon", t)
}

func task(id, title string, created time.Time) dom.Task {
	return dom.Task{ID: id, Title: title, Status: dom.StatusNotStarted, CreatedAt: created, UpdatedAt: created}
}
