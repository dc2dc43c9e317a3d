package db

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID serializes concurrent Up calls from several server processes.
const migrationLockID = 0x636c696e // "clin"

type Migration struct {
	Version int
	Name    string
	SQL     string
}

type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies NNN_name.sql files in version order and records them in
// schema_migrations.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

func NewMigrator(pool *pgxpool.Pool, dir string) *Migrator {
	return &Migrator{pool: pool, fsys: os.DirFS(dir)}
}

// NewMigratorFS reads migrations from an arbitrary filesystem.
func NewMigratorFS(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

// versionOf parses "007_whatever.sql" into 7.
func versionOf(name string) (int, bool) {
	if path.Ext(name) != ".sql" {
		return 0, false
	}
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(prefix)
	return v, err == nil && v > 0
}

// LoadMigrations returns the migrations sorted by version. Files that do not
// follow the naming scheme are ignored; a repeated version is an error.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	if _, err := fs.Stat(m.fsys, "."); err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	names, err := fs.Glob(m.fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]Migration, len(names))
	for _, name := range names {
		v, ok := versionOf(name)
		if !ok {
			continue
		}
		if prev, dup := byVersion[v]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", v, prev.Name, name)
		}
		body, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		byVersion[v] = Migration{Version: v, Name: name, SQL: string(body)}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		out = append(out, mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (m *Migrator) applied(ctx context.Context, q queryable) (map[int]time.Time, error) {
	if _, err := q.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, err
		}
		done[v] = at
	}
	return done, rows.Err()
}

// Up applies every pending migration, each in its own transaction, while
// holding a session advisory lock. It returns the number applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return 0, fmt.Errorf("lock migrations: %w", err)
	}
	defer conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)

	done, err := m.applied(ctx, conn)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, mig := range Pending(migrations, done) {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return n, err
		}
		if _, err = tx.Exec(ctx, mig.SQL); err == nil {
			_, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
		}
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return n, fmt.Errorf("migration %s: %w", mig.Name, err)
		}
		n++
	}
	return n, nil
}

func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	done, err := m.applied(ctx, m.pool)
	if err != nil {
		return nil, err
	}
	return BuildStatus(migrations, done), nil
}

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
	out := make([]MigrationStatus, len(migrations))
	for i, mig := range migrations {
		out[i] = MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			out[i].Applied = true
			out[i].AppliedAt = &at
		}
	}
	return out
}
