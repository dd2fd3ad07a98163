package service

import (
	"context"
	"time"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/repo"
)

// ApplyEvent merges one live change event into the canonical list:
// an insert of a known id and an update or delete of an unknown id are no-ops.
// It reports whether the list changed.
func (s *TaskService) ApplyEvent(ev repo.ChangeEvent) bool {
	t, ok := repo.TaskFromRow(ev.Row)
	if !ok {
		s.log.Warn().Str("type", string(ev.Type)).Msg("change event without task id")
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	i := s.indexLocked(t.ID)
	changed := false
	switch ev.Type {
	case repo.EventInsert:
		if i < 0 {
			s.tasks = append([]dom.Task{t}, s.tasks...)
			changed = true
		}
	case repo.EventUpdate:
		if i >= 0 {
			s.tasks[i] = t
			changed = true
		}
	case repo.EventDelete:
		if i >= 0 {
			s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
			changed = true
		}
	}
	if changed {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.persistTasksLocked(ctx)
		if ev.Type != repo.EventDelete {
			s.rememberAssigneesLocked(ctx, t)
		}
		cancel()
	}
	s.mu.Unlock()

	s.metrics.RemoteEvent(string(ev.Type), changed)
	if changed {
		s.notify()
	}
	return changed
}

// consume applies events until the subscription ends. A dropped feed is not reopened.
func (s *TaskService) consume(sub repo.Subscription, done chan struct{}) {
	defer close(done)
	for ev := range sub.Events() {
		s.applySafely(ev)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.log.Warn().Msg("live change feed ended")
	}
}

func (s *TaskService) applySafely(ev repo.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("type", string(ev.Type)).Msg("applying change event")
		}
	}()
	s.ApplyEvent(ev)
}
