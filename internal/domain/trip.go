package domain

import (
	"strings"
	"time"
)

// DefaultTripID scopes data when no trip was supplied at launch.
const DefaultTripID = "default-trip"

// Settings are shared by the whole trip.
type Settings struct {
	Kickoff *time.Time `json:"kickoff,omitempty"`
}

// Snapshot is a full copy of a trip's tasks and settings, used for share links.
type Snapshot struct {
	Tasks    []Task   `json:"tasks"`
	Settings Settings `json:"settings"`
}

// Assignees returns the union of the explicit name list and every assignee on tasks.
// Explicit names keep their order; names only found on tasks follow in task order.
func Assignees(explicit []string, tasks []Task) []string {
	seen := make(map[string]struct{}, len(explicit)+len(tasks))
	out := make([]string, 0, len(explicit)+len(tasks))
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, n := range explicit {
		add(n)
	}
	for _, t := range tasks {
		add(t.Assignee)
	}
	return out
}

// SeedTasks is the starter checklist for a trip with nothing cached yet.
func SeedTasks(now time.Time, newID func() string) []Task {
	titles := []struct{ title, category string }{
		{"Book flights", "Transport"},
		{"Reserve accommodation", "Lodging"},
		{"Check passport expiry", "Documents"},
		{"Buy travel insurance", "Documents"},
		{"Draft day-by-day itinerary", "Planning"},
	}
	out := make([]Task, 0, len(titles))
	for _, s := range titles {
		out = append(out, Task{
			ID:        newID(),
			Title:     s.title,
			Category:  s.category,
			Status:    StatusNotStarted,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}
