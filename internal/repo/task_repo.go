package repo

import (
	"context"
	"fmt"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, trip_id, title, category, assignee, status, details, deadline,
	reminder_lead_minutes, reminder_sent, created_at, updated_at`

type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func (r *PGTaskRepo) List(ctx context.Context, tripID string) ([]dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE trip_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Task{}
	for rows.Next() {
		var row TaskRow
		if err := scanTaskRow(rows, &row); err != nil {
			return nil, err
		}
		if t, ok := TaskFromRow(row); ok {
			list = append(list, t)
		}
	}
	return list, rows.Err()
}

func (r *PGTaskRepo) Create(ctx context.Context, tripID string, t dom.Task) error {
	row := RowFromTask(tripID, t)
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(ctx, query, rowArgs(row)...)
	if utils.IsPGUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, t.ID)
	}
	return err
}

func (r *PGTaskRepo) Update(ctx context.Context, tripID string, t dom.Task) error {
	row := RowFromTask(tripID, t)
	query := `
		UPDATE tasks SET title = $3, category = $4, assignee = $5, status = $6, details = $7,
			deadline = $8, reminder_lead_minutes = $9, reminder_sent = $10, updated_at = $11
		WHERE id = $1 AND trip_id = $2`
	tag, err := r.db.Exec(ctx, query, row.ID, row.TripID, row.Title, row.Category, row.Assignee,
		row.Status, row.Details, row.Deadline, row.ReminderLeadMinutes, row.ReminderSent, row.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	return nil
}

func (r *PGTaskRepo) Delete(ctx context.Context, tripID, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND trip_id = $2`, id, tripID)
	return err
}

// Replace makes the trip's remote rows equal to list in one transaction.
// Rows are upserted so that peers see updates rather than delete+insert pairs.
func (r *PGTaskRepo) Replace(ctx context.Context, tripID string, list []dom.Task) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		ids := make([]string, 0, len(list))
		for _, t := range list {
			ids = append(ids, t.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE trip_id = $1 AND NOT (id = ANY($2))`, tripID, ids); err != nil {
			return err
		}
		upsert := `
			INSERT INTO tasks (` + taskColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, category = EXCLUDED.category, assignee = EXCLUDED.assignee,
				status = EXCLUDED.status, details = EXCLUDED.details, deadline = EXCLUDED.deadline,
				reminder_lead_minutes = EXCLUDED.reminder_lead_minutes,
				reminder_sent = EXCLUDED.reminder_sent, updated_at = EXCLUDED.updated_at
			WHERE tasks.trip_id = EXCLUDED.trip_id`
		batch := &pgx.Batch{}
		for _, t := range list {
			batch.Queue(upsert, rowArgs(RowFromTask(tripID, t))...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func scanTaskRow(rows pgx.Row, row *TaskRow) error {
	return rows.Scan(&row.ID, &row.TripID, &row.Title, &row.Category, &row.Assignee, &row.Status,
		&row.Details, &row.Deadline, &row.ReminderLeadMinutes, &row.ReminderSent,
		&row.CreatedAt, &row.UpdatedAt)
}

func rowArgs(row TaskRow) []any {
	return []any{row.ID, row.TripID, row.Title, row.Category, row.Assignee, row.Status,
		row.Details, row.Deadline, row.ReminderLeadMinutes, row.ReminderSent,
		row.CreatedAt, row.UpdatedAt}
}
