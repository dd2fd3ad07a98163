package service

import (
	"context"
	"strings"
	"time"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/repo"
)

// Tasks returns a copy of the canonical list, newest first.
func (s *TaskService) Tasks() []dom.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.CloneTasks(s.tasks)
}

// Task returns a copy of the task with id.
func (s *TaskService) Task(id string) (dom.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return dom.Task{}, ErrNotFound
	}
	return s.tasks[i].Clone(), nil
}

// AddTask prepends a new task. A missing id is generated; both timestamps are set to now.
func (s *TaskService) AddTask(ctx context.Context, t dom.Task) (dom.Task, error) {
	if err := validate(t); err != nil {
		return dom.Task{}, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return dom.Task{}, ErrServiceClose
	}
	t = normalize(t.Clone())
	if t.ID == "" {
		t.ID = s.newID()
	} else if s.indexLocked(t.ID) >= 0 {
		s.mu.Unlock()
		return dom.Task{}, ErrTaskExists
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	t.ReminderSent = false

	s.tasks = append([]dom.Task{t}, s.tasks...)
	s.persistTasksLocked(ctx)
	s.rememberAssigneesLocked(ctx, t)
	created := t.Clone()
	s.enqueueLocked("create", t.ID, func(ctx context.Context, r repo.Remote) error {
		return r.Create(ctx, s.tripID, created)
	})
	s.mu.Unlock()

	s.notify()
	return t.Clone(), nil
}

// UpdateTask replaces the task with the same id by t. Editing the deadline or reminder
// lead clears ReminderSent. CreatedAt is kept and UpdatedAt bumped.
func (s *TaskService) UpdateTask(ctx context.Context, t dom.Task) (dom.Task, error) {
	if err := validate(t); err != nil {
		return dom.Task{}, err
	}
	next := t.Clone()
	return s.Modify(ctx, t.ID, func(cur *dom.Task) bool {
		*cur = next
		return true
	})
}

// Modify applies fn to the current task with id under the service lock and stores the
// result through the same path as UpdateTask. fn returns false to leave the task alone.
func (s *TaskService) Modify(ctx context.Context, id string, fn func(*dom.Task) bool) (dom.Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return dom.Task{}, ErrServiceClose
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return dom.Task{}, ErrNotFound
	}
	prev := s.tasks[i]
	next := prev.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return prev.Clone(), nil
	}
	if err := validate(next); err != nil {
		s.mu.Unlock()
		return dom.Task{}, err
	}
	next = normalize(next)
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	if dom.ScheduleChanged(prev, next) {
		next.ReminderSent = false
	}
	next.UpdatedAt = bump(s.now(), prev)

	s.tasks[i] = next
	s.persistTasksLocked(ctx)
	s.rememberAssigneesLocked(ctx, next)
	updated := next.Clone()
	s.enqueueLocked("update", id, func(ctx context.Context, r repo.Remote) error {
		return r.Update(ctx, s.tripID, updated)
	})
	s.mu.Unlock()

	s.notify()
	return next.Clone(), nil
}

// DeleteTask removes the task with id.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClose
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.persistTasksLocked(ctx)
	s.enqueueLocked("delete", id, func(ctx context.Context, r repo.Remote) error {
		return r.Delete(ctx, s.tripID, id)
	})
	s.mu.Unlock()

	s.notify()
	return nil
}

// ReplaceAll swaps the whole list and settings for snap. Callers must have the user's
// explicit confirmation; nothing of the previous list survives.
func (s *TaskService) ReplaceAll(ctx context.Context, snap dom.Snapshot) error {
	for _, t := range snap.Tasks {
		if err := validate(t); err != nil {
			return err
		}
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClose
	}
	list := make([]dom.Task, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		list = append(list, normalize(t.Clone()))
	}
	s.tasks = list
	s.settings = dom.Settings{}
	if snap.Settings.Kickoff != nil {
		k := *snap.Settings.Kickoff
		s.settings.Kickoff = &k
	}
	s.persistTasksLocked(ctx)
	s.persistSettingsLocked(ctx)
	s.rememberAssigneesLocked(ctx, list...)

	pushed, settings := dom.CloneTasks(list), s.settings
	s.enqueueLocked("replace", "", func(ctx context.Context, r repo.Remote) error {
		return r.Replace(ctx, s.tripID, pushed)
	})
	s.enqueueLocked("save_settings", "", func(ctx context.Context, r repo.Remote) error {
		return r.SaveSettings(ctx, s.tripID, settings)
	})
	s.mu.Unlock()

	s.notify()
	return nil
}

// Snapshot returns the tasks and settings as one value for sharing.
func (s *TaskService) Snapshot() dom.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := dom.Snapshot{Tasks: dom.CloneTasks(s.tasks)}
	if s.settings.Kickoff != nil {
		k := *s.settings.Kickoff
		snap.Settings.Kickoff = &k
	}
	return snap
}

func (s *TaskService) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func validate(t dom.Task) error {
	if t.ReminderLead != nil && *t.ReminderLead < 0 {
		return ErrInvalidLead
	}
	return nil
}

func normalize(t dom.Task) dom.Task {
	t.Title = strings.TrimSpace(t.Title)
	t.Category = strings.TrimSpace(t.Category)
	t.Assignee = strings.TrimSpace(t.Assignee)
	if !t.Status.Valid() {
		t.Status = dom.ParseStatus(string(t.Status))
	}
	if t.Deadline != nil {
		d := t.Deadline.UTC()
		t.Deadline = &d
	}
	return t
}

// bump returns an UpdatedAt that is not before prev.UpdatedAt or prev.CreatedAt,
// even if the local clock lags the clock that wrote prev.
func bump(now time.Time, prev dom.Task) time.Time {
	floor := prev.UpdatedAt
	if prev.CreatedAt.After(floor) {
		floor = prev.CreatedAt
	}
	if now.After(floor) {
		return now
	}
	return floor.Add(time.Millisecond)
}
