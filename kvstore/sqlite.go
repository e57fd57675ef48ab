package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteBackend keeps every collection as one row of a SQLite table.
type SQLiteBackend struct {
	db *sql.DB

	getStmt *sql.Stmt
	putStmt *sql.Stmt
}

// OpenSQLite opens the database file at path, creating its directory on
// first use, and brings the schema up to date.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite dir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite %s: %w", path, err)
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if b.getStmt, err = db.Prepare(`SELECT value FROM collections WHERE key = ?`); err == nil {
		b.putStmt, err = db.Prepare(`INSERT INTO collections (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("prepare collection statements: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) Close() error {
	for _, st := range []*sql.Stmt{b.getStmt, b.putStmt} {
		if st != nil {
			st.Close()
		}
	}
	return b.db.Close()
}

// sqliteMigrations[i] moves the schema from user_version i to i+1.
var sqliteMigrations = []string{
	`CREATE TABLE collections (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
}

const schemaVersion = 1

func (b *SQLiteBackend) migrate() error {
	current, err := b.SchemaVersion()
	if err != nil {
		return err
	}
	for v := current; v < len(sqliteMigrations); v++ {
		tx, err := b.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqliteMigrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite migration %d: %w", v+1, err)
		}
		// PRAGMA takes no bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion reports the migration level of the database file.
func (b *SQLiteBackend) SchemaVersion() (int, error) {
	var v int
	if err := b.db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.putStmt.ExecContext(ctx, key, value, time.Now().UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrTooBig || sqliteErr.Code == sqlite3.ErrFull) {
			return fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
		}
		return err
	}
	return nil
}
