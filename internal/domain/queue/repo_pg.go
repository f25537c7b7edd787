package queue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/carequeue/internal/platform/db"
)

type snapshotStorePG struct{ pool *pgxpool.Pool }

// NewSnapshotStorePG stores visits in the queue_visit table. position keeps
// insertion order so that equal-ranked visits reload in the same order.
func NewSnapshotStorePG(pool *pgxpool.Pool) SnapshotStore { return &snapshotStorePG{pool: pool} }

var visitColumns = []string{
	"id", "position", "subject_name", "subject_age", "reason", "department",
	"arrived_at", "wait_minutes", "priority", "status", "updated_at",
}

func (r *snapshotStorePG) Load(ctx context.Context) ([]Visit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_name, subject_age, reason, department,
			arrived_at, wait_minutes, priority, status, updated_at
		FROM queue_visit ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query queue_visit: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var status string
		if err := rows.Scan(&v.ID, &v.SubjectName, &v.SubjectAge, &v.Reason, &v.Department,
			&v.ArrivedAt, &v.WaitMinutes, &v.Priority, &status, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan queue_visit: %w", err)
		}
		v.Status = Status(status)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue_visit: %w", err)
	}
	return visits, nil
}

// Save replaces the table contents in a single transaction.
func (r *snapshotStorePG) Save(ctx context.Context, visits []Visit) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)
		if _, err := tx.Exec(ctx, `DELETE FROM queue_visit`); err != nil {
			return fmt.Errorf("clear queue_visit: %w", err)
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"queue_visit"}, visitColumns,
			pgx.CopyFromSlice(len(visits), func(i int) ([]any, error) {
				v := visits[i]
				return []any{
					v.ID, i, v.SubjectName, v.SubjectAge, v.Reason, v.Department,
					v.ArrivedAt, v.WaitMinutes, v.Priority, string(v.Status), v.UpdatedAt,
				}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy queue_visit: %w", err)
		}
		return nil
	})
}
