package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PGRemote is the Postgres-backed Remote.
type PGRemote struct {
	*PGTaskRepo
	*PGTripRepo
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPGRemote wraps an open pool. The remote owns the pool and closes it on Close.
func NewPGRemote(pool *pgxpool.Pool, log zerolog.Logger) *PGRemote {
	return &PGRemote{
		PGTaskRepo: NewPGTaskRepo(pool),
		PGTripRepo: NewPGTripRepo(pool),
		pool:       pool,
		log:        log,
	}
}

// Subscribe opens the live change feed for tripID.
func (r *PGRemote) Subscribe(ctx context.Context, tripID string) (Subscription, error) {
	return listen(ctx, r.pool, tripID, r.log)
}

func (r *PGRemote) Close() {
	r.pool.Close()
}
