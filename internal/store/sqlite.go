package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/vk/tablegrid/internal/frame"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	path TEXT NOT NULL,
	tag TEXT NOT NULL,
	table_name TEXT NOT NULL,
	data TEXT NOT NULL,
	written_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (path, tag, table_name)
);`

// SQLite stores snapshots in a single sqlite database, one row per table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database file at location.
func OpenSQLite(location string) (*SQLite, error) {
	if location == "" {
		return nil, errors.New("sqlite store requires a database path")
	}
	if dir := filepath.Dir(location); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+location)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", location, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", location, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Write(ctx context.Context, path, tag, table string, data *frame.Frame) error {
	doc, err := data.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode table %q: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (path, tag, table_name, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (path, tag, table_name) DO UPDATE SET data = excluded.data, written_at = CURRENT_TIMESTAMP`,
		path, tag, table, string(doc))
	if err != nil {
		return fmt.Errorf("insert snapshot %s/%s: %w", tag, table, err)
	}
	return nil
}

func (s *SQLite) Read(ctx context.Context, path, tag, table string) (*frame.Frame, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE path = ? AND tag = ? AND table_name = ?`,
		path, tag, table).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(path, tag, table)
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s/%s: %w", tag, table, err)
	}
	f := new(frame.Frame)
	if err := f.UnmarshalJSON([]byte(doc)); err != nil {
		return nil, fmt.Errorf("decode snapshot %s/%s: %w", tag, table, err)
	}
	return f, nil
}

func (s *SQLite) List(ctx context.Context, path string) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, table_name FROM snapshots WHERE path = ? ORDER BY tag, table_name`, path)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	keys := []Key{}
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Tag, &k.Table); err != nil {
			return nil, fmt.Errorf("scan snapshot key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortKeys(keys)
	return keys, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
