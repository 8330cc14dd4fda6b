package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	area       TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (area, key)
);
`

// DB implements Provider on a SQLite key-value table.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Area returns the named area.
func (db *DB) Area(name string) Area {
	return &sqlArea{db: db, name: name, err: validArea(name)}
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

type sqlArea struct {
	db   *DB
	name string
	err  error
}

func (a *sqlArea) Get(ctx context.Context, key string, dst any) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	var raw string
	err := a.db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE area = ? AND key = ?`, a.name, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: get %s/%s: %w", a.name, key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("storage: decode %s/%s: %w", a.name, key, err)
	}
	return true, nil
}

// Set upserts all items within one transaction.
func (a *sqlArea) Set(ctx context.Context, items map[string]any) error {
	if a.err != nil {
		return a.err
	}
	tx, err := a.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (area, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(area, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("storage: prepare set: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for k, v := range items {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("storage: encode %s/%s: %w", a.name, k, err)
		}
		if _, err := stmt.ExecContext(ctx, a.name, k, string(raw), now); err != nil {
			return fmt.Errorf("storage: set %s/%s: %w", a.name, k, err)
		}
	}
	return tx.Commit()
}

func (a *sqlArea) Keys(ctx context.Context) ([]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	rows, err := a.db.conn.QueryContext(ctx,
		`SELECT key FROM kv WHERE area = ? ORDER BY key`, a.name)
	if err != nil {
		return nil, fmt.Errorf("storage: keys %s: %w", a.name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
