package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Tripboard/internal/cache"
	dom "Tripboard/internal/domain"
	"Tripboard/internal/metrics"
	"Tripboard/internal/repo"
	"Tripboard/internal/utils"

	"github.com/rs/zerolog"
)

// Mode is how the session talks to the remote store. It is decided once in Start.
type Mode string

const (
	ModeLocal     Mode = "local"
	ModeConnected Mode = "connected"
)

// Dialer opens the remote store. A nil Dialer means no credentials resolved.
type Dialer func(ctx context.Context) (repo.Remote, error)

// Status is the passive connection indicator shown to users.
type Status struct {
	TripID string
	Mode   Mode
	// ConnErr is the sticky ConnectionError, if the handshake or feed failed.
	ConnErr error
	// LastWriteErr is the most recent RemoteWriteError, for display only.
	LastWriteErr error
}

// Options configure a TaskService.
type Options struct {
	TripID       string
	Cache        *cache.TripCache
	Log          zerolog.Logger
	Metrics      *metrics.Metrics
	SeedOnEmpty  bool
	WriteTimeout time.Duration
	Now          func() time.Time
	NewID        func() string
}

// TaskService owns the canonical task list for one trip session. It seeds from the
// local cache, overlays the remote store when connected and applies the live change
// feed. Every change is written through to the cache; local mutations are also queued
// to the remote store.
type TaskService struct {
	tripID       string
	cache        *cache.TripCache
	log          zerolog.Logger
	metrics      *metrics.Metrics
	seedOnEmpty  bool
	writeTimeout time.Duration
	now          func() time.Time
	newID        func() string

	mu        sync.Mutex
	tasks     []dom.Task
	settings  dom.Settings
	explicit  []string
	mode      Mode
	connErr   error
	writeErr  error
	remote    repo.Remote
	push      *pusher
	sub       repo.Subscription
	feedDone  chan struct{}
	listeners []func()
	started   bool
	closed    bool
}

// NewTaskService builds a service in local mode with an empty list. Call Start next.
func NewTaskService(opts Options) *TaskService {
	if opts.TripID == "" {
		opts.TripID = dom.DefaultTripID
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = utils.NewID
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &TaskService{
		tripID:       opts.TripID,
		cache:        opts.Cache,
		log:          opts.Log.With().Str("trip", opts.TripID).Logger(),
		metrics:      opts.Metrics,
		seedOnEmpty:  opts.SeedOnEmpty,
		writeTimeout: opts.WriteTimeout,
		now:          opts.Now,
		newID:        opts.NewID,
		tasks:        []dom.Task{},
		mode:         ModeLocal,
	}
}

// Start runs the session initialization protocol:
// seed from cache, then (with a dialer) ensure the trip row, fetch the remote list
// and open the live feed. A failed dial or handshake leaves the session in local mode
// with a ConnectionError; it is never retried.
func (s *TaskService) Start(ctx context.Context, dial Dialer) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.loadCacheLocked(ctx)
	s.mu.Unlock()
	s.notify()

	if dial == nil {
		s.log.Info().Msg("no remote credentials, running in local mode")
		return
	}

	remote, err := dial(ctx)
	if err != nil {
		s.failConnection(err)
		return
	}
	remoteSettings, err := remote.EnsureTrip(ctx, s.tripID)
	if err != nil {
		remote.Close()
		s.failConnection(err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		remote.Close()
		return
	}
	s.remote = remote
	s.mode = ModeConnected
	s.push = newPusher(remote, s.writeTimeout, s.recordWriteErr)
	s.metrics.SetConnected(true)
	if remoteSettings.Kickoff != nil {
		s.settings = remoteSettings
		s.persistSettingsLocked(ctx)
	} else if s.settings.Kickoff != nil {
		local := s.settings
		s.enqueueLocked("save_settings", "", func(ctx context.Context, r repo.Remote) error {
			return r.SaveSettings(ctx, s.tripID, local)
		})
	}
	s.mu.Unlock()
	s.log.Info().Msg("connected to remote store")

	// The feed opens before the fetch so changes committed in between are buffered,
	// then replayed on top of the fetched list.
	sub, subErr := remote.Subscribe(ctx, s.tripID)

	// Remote wins over the cached snapshot on a connected cold start.
	if list, err := remote.List(ctx, s.tripID); err != nil {
		s.log.Error().Err(err).Msg("initial remote fetch failed, keeping cached list")
	} else {
		s.mu.Lock()
		s.tasks = list
		s.persistTasksLocked(ctx)
		s.rememberAssigneesLocked(ctx, list...)
		s.mu.Unlock()
		s.notify()
	}

	if subErr != nil {
		s.log.Error().Err(subErr).Msg("live change feed unavailable")
		s.mu.Lock()
		s.connErr = &ConnectionError{Err: subErr}
		s.mu.Unlock()
		s.notify()
		return
	}
	done := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = sub.Close()
		return
	}
	s.sub = sub
	s.feedDone = done
	s.mu.Unlock()
	go s.consume(sub, done)
}

func (s *TaskService) loadCacheLocked(ctx context.Context) {
	if s.cache == nil {
		if s.seedOnEmpty {
			s.tasks = dom.SeedTasks(s.now(), s.newID)
		}
		return
	}
	list, ok, err := s.cache.Tasks(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("reading cached tasks")
	}
	switch {
	case ok:
		s.tasks = list
	case s.seedOnEmpty:
		s.tasks = dom.SeedTasks(s.now(), s.newID)
		s.persistTasksLocked(ctx)
	}
	if settings, err := s.cache.Settings(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reading cached settings")
	} else {
		s.settings = settings
	}
	if names, err := s.cache.Assignees(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reading cached assignees")
	} else {
		s.explicit = names
	}
	s.rememberAssigneesLocked(ctx, s.tasks...)
	s.metrics.SetTasks(len(s.tasks))
}

func (s *TaskService) failConnection(err error) {
	s.log.Error().Err(err).Msg("remote handshake failed, staying in local mode")
	s.mu.Lock()
	s.connErr = &ConnectionError{Err: err}
	s.mode = ModeLocal
	s.mu.Unlock()
	s.metrics.SetConnected(false)
	s.notify()
}

func (s *TaskService) recordWriteErr(err *RemoteWriteError) {
	s.log.Error().Err(err.Err).Str("op", err.Op).Str("task_id", err.TaskID).Msg("remote write failed")
	s.metrics.RemoteWriteFailed(err.Op)
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Status returns the current connection indicator.
func (s *TaskService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{TripID: s.tripID, Mode: s.mode, ConnErr: s.connErr, LastWriteErr: s.writeErr}
}

// TripID returns the trip this session is scoped to.
func (s *TaskService) TripID() string { return s.tripID }

// Now returns the service clock.
func (s *TaskService) Now() time.Time { return s.now() }

// OnChange registers fn to run after every canonical change. fn runs outside the
// service lock and must not block.
func (s *TaskService) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *TaskService) notify() {
	s.mu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Wait blocks until all queued remote writes have completed.
func (s *TaskService) Wait() {
	s.mu.Lock()
	p := s.push
	s.mu.Unlock()
	if p != nil {
		p.wait()
	}
}

// Close ends the session like Shutdown, waiting as long as queued writes take.
func (s *TaskService) Close() error {
	return s.Shutdown(context.Background())
}

// Shutdown ends the session: closes the live feed, drains queued remote writes and
// releases the remote store. Writes still queued when ctx ends are dropped and
// reported in the returned error.
func (s *TaskService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub, done, p, remote := s.sub, s.feedDone, s.push, s.remote
	s.mu.Unlock()

	var errs []error
	if sub != nil {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
		<-done
	}
	if p != nil {
		if n := p.close(ctx); n > 0 {
			errs = append(errs, fmt.Errorf("%d remote writes dropped: %w", n, ctx.Err()))
		}
	}
	if remote != nil {
		remote.Close()
	}
	return errors.Join(errs...)
}

func (s *TaskService) persistTasksLocked(ctx context.Context) {
	s.metrics.SetTasks(len(s.tasks))
	if s.cache == nil {
		return
	}
	if err := s.cache.SetTasks(ctx, s.tasks); err != nil {
		s.log.Warn().Err(err).Msg("write-through of tasks failed")
	}
}

func (s *TaskService) persistSettingsLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetSettings(ctx, s.settings); err != nil {
		s.log.Warn().Err(err).Msg("write-through of settings failed")
	}
}

// enqueueLocked queues a remote write when connected. Local mode drops it.
func (s *TaskService) enqueueLocked(op, taskID string, fn func(ctx context.Context, r repo.Remote) error) {
	if s.push == nil || s.closed {
		return
	}
	s.push.enqueue(pushOp{op: op, taskID: taskID, fn: fn})
}
