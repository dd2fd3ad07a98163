package service

import (
	"context"
	"slices"
	"strings"
	"time"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/repo"
)

// Settings returns the trip settings.
func (s *TaskService) Settings() dom.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := dom.Settings{}
	if s.settings.Kickoff != nil {
		k := *s.settings.Kickoff
		out.Kickoff = &k
	}
	return out
}

// SetKickoff sets or clears the trip kickoff.
func (s *TaskService) SetKickoff(ctx context.Context, kickoff *time.Time) (dom.Settings, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return dom.Settings{}, ErrServiceClose
	}
	s.settings = dom.Settings{}
	if kickoff != nil {
		k := kickoff.UTC()
		s.settings.Kickoff = &k
	}
	s.persistSettingsLocked(ctx)
	settings := s.settings
	s.enqueueLocked("save_settings", "", func(ctx context.Context, r repo.Remote) error {
		return r.SaveSettings(ctx, s.tripID, settings)
	})
	s.mu.Unlock()

	s.notify()
	return s.Settings(), nil
}

// Assignees returns the remembered names plus every assignee used on a task.
func (s *TaskService) Assignees() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.Assignees(s.explicit, s.tasks)
}

// AddAssignee adds name to the explicit list. Names are never removed implicitly.
func (s *TaskService) AddAssignee(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClose
	}
	if !slices.Contains(s.explicit, name) {
		s.explicit = append(s.explicit, name)
		s.persistAssigneesLocked(ctx)
	}
	names := dom.Assignees(s.explicit, s.tasks)
	s.mu.Unlock()

	s.notify()
	return names, nil
}

// rememberAssigneesLocked adds every assignee named on tasks to the stored list, so a
// name stays after its last task is deleted or reassigned.
func (s *TaskService) rememberAssigneesLocked(ctx context.Context, tasks ...dom.Task) {
	grown := false
	for _, t := range tasks {
		name := strings.TrimSpace(t.Assignee)
		if name == "" || slices.Contains(s.explicit, name) {
			continue
		}
		s.explicit = append(s.explicit, name)
		grown = true
	}
	if grown {
		s.persistAssigneesLocked(ctx)
	}
}

func (s *TaskService) persistAssigneesLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetAssignees(ctx, s.explicit); err != nil {
		s.log.Warn().Err(err).Msg("write-through of assignees failed")
	}
}
