package bed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/carequeue/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &bedRepoPG{pool: pool}
}

func (r *bedRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bedCols = `id, department, number, status, patient_name, patient_id,
	admitted_at, estimated_discharge, notes, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.Department, &b.Number, &b.Status, &b.PatientName, &b.PatientID,
		&b.AdmittedAt, &b.EstimatedDischarge, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &b, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bed (id, department, number, status, patient_name, patient_id,
			admitted_at, estimated_discharge, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		b.ID, b.Department, b.Number, b.Status, b.PatientName, b.PatientID,
		b.AdmittedAt, b.EstimatedDischarge, b.Notes).Scan(&b.CreatedAt, &b.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *bedRepoPG) Update(ctx context.Context, b *Bed) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bed SET status=$2, patient_name=$3, patient_id=$4, admitted_at=$5,
			estimated_discharge=$6, notes=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.Status, b.PatientName, b.PatientID, b.AdmittedAt,
		b.EstimatedDischarge, b.Notes).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *bedRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Bed, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Department != "" {
		where += fmt.Sprintf(` AND LOWER(department) = LOWER($%d)`, idx)
		args = append(args, f.Department)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Query != "" {
		where += fmt.Sprintf(` AND (patient_name ILIKE $%d OR patient_id ILIKE $%d OR number::text = $%d)`, idx, idx, idx+1)
		args = append(args, "%"+f.Query+"%", f.Query)
		idx += 2
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bed`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + bedCols + ` FROM bed` + where + ` ORDER BY department, number`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, limit, offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Bed{}
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *bedRepoPG) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT department, status, COUNT(*) FROM bed GROUP BY department, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Department, &sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
