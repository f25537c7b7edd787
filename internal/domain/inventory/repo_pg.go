package inventory

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

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &itemRepoPG{pool: pool}
}

func (r *itemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, name, category, current_stock, minimum_stock, unit,
	supplier, expiry_date, created_at, updated_at`

// statusExpr mirrors StatusOf so that filtering by status happens in SQL.
const statusExpr = `CASE WHEN current_stock <= 0 THEN 'out_of_stock'
	WHEN current_stock <= minimum_stock THEN 'low_stock'
	ELSE 'in_stock' END`

var sortColumns = map[SortField]string{
	SortName:     "LOWER(name)",
	SortCategory: "LOWER(category)",
	SortStock:    "current_stock",
	SortMinimum:  "minimum_stock",
}

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.Category, &i.CurrentStock, &i.MinimumStock, &i.Unit,
		&i.Supplier, &i.ExpiryDate, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	i.refreshStatus()
	return &i, nil
}

func (r *itemRepoPG) Create(ctx context.Context, item *Item) error {
	item.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO inventory_item (id, name, category, current_stock, minimum_stock, unit,
			supplier, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		item.ID, item.Name, item.Category, item.CurrentStock, item.MinimumStock, item.Unit,
		item.Supplier, item.ExpiryDate).Scan(&item.CreatedAt, &item.UpdatedAt)
	item.refreshStatus()
	return err
}

func (r *itemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_item WHERE id = $1`, id))
}

func (r *itemRepoPG) Update(ctx context.Context, item *Item) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_item SET name=$2, category=$3, current_stock=$4, minimum_stock=$5,
			unit=$6, supplier=$7, expiry_date=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		item.ID, item.Name, item.Category, item.CurrentStock, item.MinimumStock,
		item.Unit, item.Supplier, item.ExpiryDate).Scan(&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	item.refreshStatus()
	return err
}

func (r *itemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM inventory_item WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Item, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Query != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR category ILIKE $%d)`, idx, idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}
	if f.Category != "" {
		where += fmt.Sprintf(` AND LOWER(category) = LOWER($%d)`, idx)
		args = append(args, f.Category)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND (`+statusExpr+`) = $%d`, idx)
		args = append(args, string(f.Status))
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_item`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.Sort]
	if !ok {
		col = sortColumns[SortName]
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	query := `SELECT ` + itemCols + ` FROM inventory_item` + where +
		fmt.Sprintf(` ORDER BY %s %s, LOWER(name) %s, id`, col, dir, dir)
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, idx, idx+1)
		args = append(args, limit, offset)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *itemRepoPG) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error) {
	item, err := scanItem(r.conn(ctx).QueryRow(ctx, `
		UPDATE inventory_item SET current_stock = current_stock + $2, updated_at = NOW()
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING `+itemCols, id, delta))
	if !errors.Is(err, ErrNotFound) {
		return item, err
	}
	// No row updated: either the item is missing or the guard failed.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrInsufficientStock
}

func (r *itemRepoPG) CountByStatus(ctx context.Context) (map[StockStatus]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+statusExpr+` AS status, COUNT(*) FROM inventory_item GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[StockStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[StockStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *itemRepoPG) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT DISTINCT category FROM inventory_item ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
