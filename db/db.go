// Package db provides database connection helpers, schema migration, and the
// persistence used for crash recovery: state snapshots, dynamic commands, and a
// small kv table.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS commands (
			name TEXT PRIMARY KEY,
			response TEXT NOT NULL,
			created_by TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// SaveSnapshot stores a named JSON state blob, replacing any previous snapshot.
func SaveSnapshot(ctx context.Context, db *sql.DB, name string, state []byte) error {
	q := `INSERT INTO snapshots(name, state, updated_at) VALUES($1,$2,NOW())
		  ON CONFLICT(name) DO UPDATE SET state=EXCLUDED.state, updated_at=NOW()`
	_, err := db.ExecContext(ctx, q, name, state)
	return err
}

// LoadSnapshot returns the stored state blob for name, or (nil, nil) when no
// snapshot exists.
func LoadSnapshot(ctx context.Context, db *sql.DB, name string) ([]byte, error) {
	var state []byte
	err := db.QueryRowContext(ctx, `SELECT state FROM snapshots WHERE name=$1`, name).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Command is a dynamic canned-text command.
type Command struct {
	Name      string
	Response  string
	CreatedBy string
	CreatedAt time.Time
}

// UpsertCommand stores or updates a dynamic command.
func UpsertCommand(ctx context.Context, db *sql.DB, name, response, createdBy string) error {
	q := `INSERT INTO commands(name, response, created_by, created_at) VALUES($1,$2,$3,NOW())
		  ON CONFLICT(name) DO UPDATE SET response=EXCLUDED.response, updated_at=NOW()`
	_, err := db.ExecContext(ctx, q, name, response, createdBy)
	return err
}

// DeleteCommand removes a dynamic command; reports whether a row was deleted.
func DeleteCommand(ctx context.Context, db *sql.DB, name string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM commands WHERE name=$1`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetCommand fetches one dynamic command; found=false when absent.
func GetCommand(ctx context.Context, db *sql.DB, name string) (cmd Command, found bool, err error) {
	row := db.QueryRowContext(ctx, `SELECT name, response, COALESCE(created_by,''), created_at FROM commands WHERE name=$1`, name)
	err = row.Scan(&cmd.Name, &cmd.Response, &cmd.CreatedBy, &cmd.CreatedAt)
	if err == sql.ErrNoRows {
		return Command{}, false, nil
	}
	if err != nil {
		return Command{}, false, err
	}
	return cmd, true, nil
}

// ListCommands returns all dynamic command names in order.
func ListCommands(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM commands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetKV stores a small config/state value.
func SetKV(ctx context.Context, db *sql.DB, key, value string) error {
	q := `INSERT INTO kv(key, value, updated_at) VALUES($1,$2,NOW())
		  ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`
	_, err := db.ExecContext(ctx, q, key, value)
	return err
}

// GetKV returns a stored value, or "" when the key is absent.
func GetKV(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
