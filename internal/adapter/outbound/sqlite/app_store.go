// Package sqlite provides a modernc.org/sqlite-backed app.Store, storing
// each app's upstream list as a JSON column.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/mcpmux/mcpmux/internal/domain/app"
	"github.com/mcpmux/mcpmux/internal/domain/upstream"
)

const schema = `
CREATE TABLE IF NOT EXISTS apps (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	upstreams  TEXT NOT NULL
);
`

// AppStore is a database/sql-backed app.Store using the pure-Go
// modernc.org/sqlite driver.
type AppStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the apps table exists.
func Open(path string) (*AppStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc.org/sqlite serializes writes internally; a single connection
	// avoids SQLITE_BUSY errors under concurrent access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create apps table: %w", err)
	}

	return &AppStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *AppStore) Close() error {
	return s.db.Close()
}

func (s *AppStore) Create(ctx context.Context, a *app.App) error {
	upstreamsJSON, err := json.Marshal(a.Upstreams)
	if err != nil {
		return fmt.Errorf("encode upstreams: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO apps (id, name, created_at, upstreams) VALUES (?, ?, ?, ?)`,
		a.ID.String(), a.Name, a.CreatedAt.UTC().Format(time.RFC3339Nano), string(upstreamsJSON),
	)
	if err != nil {
		if isUniqueConstraint(err) {
			return app.ErrNameTaken
		}
		return fmt.Errorf("insert app: %w", err)
	}
	return nil
}

func (s *AppStore) Get(ctx context.Context, name string) (*app.App, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, upstreams FROM apps WHERE name = ?`, name)
	return scanApp(row)
}

func (s *AppStore) List(ctx context.Context) ([]*app.App, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, upstreams FROM apps ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*app.App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AppStore) Update(ctx context.Context, a *app.App) error {
	upstreamsJSON, err := json.Marshal(a.Upstreams)
	if err != nil {
		return fmt.Errorf("encode upstreams: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE apps SET upstreams = ? WHERE name = ?`, string(upstreamsJSON), a.Name)
	if err != nil {
		return fmt.Errorf("update app: %w", err)
	}
	return requireOneRowAffected(res)
}

func (s *AppStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete app: %w", err)
	}
	return requireOneRowAffected(res)
}

// rowScanner abstracts *sql.Row and *sql.Rows, both of which satisfy Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApp(row rowScanner) (*app.App, error) {
	var (
		idStr, createdAtStr, upstreamsJSON string
		a                                  app.App
	)
	if err := row.Scan(&idStr, &a.Name, &createdAtStr, &upstreamsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, app.ErrNotFound
		}
		return nil, fmt.Errorf("scan app row: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse app id: %w", err)
	}
	a.ID = id

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	a.CreatedAt = createdAt

	var upstreams []upstream.Spec
	if err := json.Unmarshal([]byte(upstreamsJSON), &upstreams); err != nil {
		return nil, fmt.Errorf("decode upstreams: %w", err)
	}
	a.Upstreams = upstreams

	return &a, nil
}

func requireOneRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

// isUniqueConstraint reports whether err is a SQLite UNIQUE constraint
// violation. modernc.org/sqlite surfaces these as plain errors whose
// message contains the SQLite error text, so match on substring.
func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ app.Store = (*AppStore)(nil)
