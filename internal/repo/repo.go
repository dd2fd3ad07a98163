package repo

import (
	"context"
	"errors"

	dom "Tripboard/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("task id already exists")
)

// TaskRepo is row-oriented CRUD on the tasks relation, scoped by trip.
type TaskRepo interface {
	List(ctx context.Context, tripID string) ([]dom.Task, error)
	Create(ctx context.Context, tripID string, t dom.Task) error
	Update(ctx context.Context, tripID string, t dom.Task) error
	Delete(ctx context.Context, tripID, id string) error
	Replace(ctx context.Context, tripID string, list []dom.Task) error
}

// TripRepo manages the trips relation holding shared settings.
type TripRepo interface {
	EnsureTrip(ctx context.Context, tripID string) (dom.Settings, error)
	SaveSettings(ctx context.Context, tripID string, s dom.Settings) error
}

// Subscription is a cancellable stream of change events for one trip.
// Events is closed when the stream ends.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Remote is everything the reconciliation engine needs from the remote store.
type Remote interface {
	TaskRepo
	TripRepo
	Subscribe(ctx context.Context, tripID string) (Subscription, error)
	Close()
}
