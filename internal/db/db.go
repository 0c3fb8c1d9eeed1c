package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrStoreInitialization wraps every failure to open, ping or migrate the store.
// Callers are expected to refuse to serve when they see it.
var ErrStoreInitialization = errors.New("store initialization failed")

// DefaultPath is used when no database path is configured.
const DefaultPath = "civic.db"

// Open opens (or creates) the SQLite database and applies pending migrations from
// internal/db/migrations, named NNNN_name.up.sql / NNNN_name.down.sql.
//
// Connection-scoped pragmas (foreign keys, busy timeout) are passed through the DSN so
// every pooled connection gets them, not only the first one.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = DefaultPath
	}
	d, err := sql.Open("sqlite3", withPragmas(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStoreInitialization, path, err)
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrStoreInitialization, err)
	}
	// In-memory databases reject WAL; that is fine.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if err := applyMigrations(d); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%w: %w", ErrStoreInitialization, err)
	}
	return d, nil
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// AppliedVersions returns the applied migration versions in ascending order.
func AppliedVersions(d *sql.DB) ([]int, error) {
	got, err := appliedVersions(d)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(got))
	for v := range got {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// RollbackLast reverts the most recently applied migration using its down script.
// It is a no-op when nothing has been applied.
func RollbackLast(d *sql.DB) (int, error) {
	if d == nil {
		return 0, errors.New("nil db")
	}
	if err := ensureMigrationsTable(d); err != nil {
		return 0, err
	}
	var version int
	err := d.QueryRow(`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	migs, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	m, ok := migs[version]
	if !ok || m.downFile == "" {
		return 0, fmt.Errorf("no down migration found for version %04d", version)
	}
	text, err := migrationsFS.ReadFile(m.downFile)
	if err != nil {
		return 0, err
	}
	if err := runInTx(d, string(text), `DELETE FROM schema_migrations WHERE version = ?`, version); err != nil {
		return 0, fmt.Errorf("rollback %04d_%s: %w", version, m.name, err)
	}
	return version, nil
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string
	downFile string
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations() (map[int]migration, error) {
	entries := map[int]migration{}
	list, err := stdfs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		m := migFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		ver, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		item := entries[ver]
		item.version = ver
		item.name = m[2]
		p := "migrations/" + de.Name()
		if m[3] == "up" {
			item.upFile = p
		} else {
			item.downFile = p
		}
		entries[ver] = item
	}
	return entries, nil
}

func ensureMigrationsTable(d *sql.DB) error {
	_, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`)
	return err
}

func appliedVersions(d *sql.DB) (map[int]bool, error) {
	if err := ensureMigrationsTable(d); err != nil {
		return nil, err
	}
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

func applyMigrations(d *sql.DB) error {
	migs, err := loadMigrations()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(d)
	if err != nil {
		return err
	}
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	for _, v := range versions {
		if applied[v] {
			continue
		}
		m := migs[v]
		if m.upFile == "" {
			return fmt.Errorf("missing up migration for version %04d", v)
		}
		text, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		if err := runInTx(d, string(text), `INSERT INTO schema_migrations(version) VALUES(?)`, v); err != nil {
			return fmt.Errorf("migration %04d_%s failed: %w", v, m.name, err)
		}
	}
	return nil
}

// runInTx executes a migration script and its bookkeeping statement atomically.
func runInTx(d *sql.DB, script, bookkeeping string, version int) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(bookkeeping, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
