package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linanwx/hypebot/logger"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps read-modify-write transactions from racing into SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("store opened", "path", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetValue(ctx context.Context, key, subkey string) (string, error) {
	return getValue(ctx, s.db, key, subkey)
}

func (s *SQLite) SetValue(ctx context.Context, key, subkey, value string) error {
	return setValue(ctx, s.db, key, subkey, value)
}

func (s *SQLite) UpdateValue(ctx context.Context, key, subkey string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	current, err := getValue(ctx, tx, key, subkey)
	found := true
	if errors.Is(err, ErrNotFound) {
		found = false
	} else if err != nil {
		return err
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if err := setValue(ctx, tx, key, subkey, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteValue(ctx context.Context, key, subkey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ? AND subkey = ?`, key, subkey); err != nil {
		return fmt.Errorf("delete %s/%s: %w", key, subkey, err)
	}
	return nil
}

func (s *SQLite) Subkeys(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subkey FROM kv WHERE key = ? ORDER BY subkey`, key)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			return nil, fmt.Errorf("scan %s: %w", key, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getValue(ctx context.Context, q querier, key, subkey string) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ? AND subkey = ?`, key, subkey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s/%s: %w", key, subkey, err)
	}
	return v, nil
}

func setValue(ctx context.Context, q querier, key, subkey, value string) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO kv (key, subkey, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key, subkey) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, subkey, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", key, subkey, err)
	}
	return nil
}
