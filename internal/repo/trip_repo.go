package repo

import (
	"context"

	dom "Tripboard/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGTripRepo implements TripRepo with Postgres.
type PGTripRepo struct {
	db *pgxpool.Pool
}

// NewPGTripRepo returns a new PGTripRepo.
func NewPGTripRepo(db *pgxpool.Pool) *PGTripRepo {
	return &PGTripRepo{db: db}
}

// EnsureTrip creates the trip row if missing and returns its stored settings.
func (r *PGTripRepo) EnsureTrip(ctx context.Context, tripID string) (dom.Settings, error) {
	query := `
		INSERT INTO trips (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING kickoff`
	var s dom.Settings
	err := r.db.QueryRow(ctx, query, tripID).Scan(&s.Kickoff)
	return s, err
}

// SaveSettings upserts the trip's settings.
func (r *PGTripRepo) SaveSettings(ctx context.Context, tripID string, s dom.Settings) error {
	query := `
		INSERT INTO trips (id, kickoff) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET kickoff = EXCLUDED.kickoff, updated_at = NOW()`
	_, err := r.db.Exec(ctx, query, tripID, s.Kickoff)
	return err
}
