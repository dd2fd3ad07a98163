package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NotifyChannel is the Postgres channel the tasks trigger publishes on.
const NotifyChannel = "task_changes"

// pgSubscription streams task change notifications for one trip over a dedicated connection.
type pgSubscription struct {
	events chan ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func listen(ctx context.Context, pool *pgxpool.Pool, tripID string, log zerolog.Logger) (*pgSubscription, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s := &pgSubscription{
		events: make(chan ChangeEvent, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		defer func() {
			// A cancelled wait leaves the connection unusable; pgxpool drops it on release.
			if !conn.Conn().IsClosed() {
				unlistenCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
				_, _ = conn.Exec(unlistenCtx, "UNLISTEN "+NotifyChannel)
				c()
			}
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Str("trip", tripID).Msg("change feed stopped")
				}
				return
			}
			ev, err := DecodeChangeEvent(n.Payload)
			if err != nil {
				log.Warn().Err(err).Msg("skipping change notification")
				continue
			}
			if ev.Row.TripID == nil || *ev.Row.TripID != tripID {
				continue
			}
			select {
			case s.events <- ev:
			case <-subCtx.Done():
				return
			}
		}
	}()
	return s, nil
}

func (s *pgSubscription) Events() <-chan ChangeEvent { return s.events }

// Close stops the stream and waits for the listener to release its connection.
func (s *pgSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
