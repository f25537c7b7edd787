package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsTable = "carequeue_migrations"

// Migration is one numbered SQL file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Migrator applies the SQL files of an fs.FS (normally the embedded
// migrations package) in version order.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

func NewMigrator(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

func (m *Migrator) EnsureMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
    version INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("create %s table: %w", migrationsTable, err)
	}
	return nil
}

// LoadMigrations reads every top-level NNN_name.sql file and returns them
// sorted by version. Files without a numeric prefix are skipped; two files
// with the same version are an error.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", version, prev, name)
		}
		seen[version] = name

		content, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) appliedAt(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.pool.Query(ctx, `SELECT version, applied_at FROM `+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		applied[v] = at
	}
	return applied, rows.Err()
}

// Up applies all pending migrations, each in its own transaction, and
// returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return 0, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}
	applied, err := m.appliedAt(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range Pending(migrations, applied) {
		if err := RunInTx(ctx, m.pool, func(ctx context.Context) error {
			return applyMigration(ctx, TxFromContext(ctx), mig)
		}); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

func applyMigration(ctx context.Context, tx pgx.Tx, mig Migration) error {
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+migrationsTable+` (version, name) VALUES ($1, $2)`,
		mig.Version, mig.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// Status lists every known migration with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedAt(ctx)
	if err != nil {
		return nil, err
	}
	return BuildStatus(migrations, applied), nil
}

// Pending filters migrations down to those not in applied.
func Pending(migrations []Migration, applied map[int]time.Time) []Migration {
	var out []Migration
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; !ok {
			out = append(out, mig)
		}
	}
	return out
}

func BuildStatus(migrations []Migration, applied map[int]time.Time) []MigrationStatus {
	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			st.Applied = true
			st.AppliedAt = &at
		}
		statuses = append(statuses, st)
	}
	return statuses
}
