package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Build is one successfully built service image. Failed builds are never
// recorded here.
type Build struct {
	Tag        string
	Project    string
	ImageID    string
	Port       int
	Entrypoint string
	CreatedAt  time.Time
	LastUsed   time.Time
}

type BuildStore struct {
	db *DB
}

// NewBuildStore creates the store and ensures the table exists.
func NewBuildStore(ctx context.Context, database *DB) (*BuildStore, error) {
	if database == nil {
		return nil, nil
	}
	s := &BuildStore{db: database}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var defaultBuildStore *BuildStore

func DefaultBuildStore(ctx context.Context) (*BuildStore, error) {
	if defaultBuildStore == nil {
		db, err := OpenDefault(ctx)
		if err != nil {
			return nil, err
		}
		defaultBuildStore, err = NewBuildStore(ctx, db)
		if err != nil {
			return nil, err
		}
	}

	return defaultBuildStore, nil
}

func (s *BuildStore) ensureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS builds (
	tag        TEXT PRIMARY KEY,
	project    TEXT NOT NULL,
	image_id   TEXT NOT NULL,
	port       INTEGER NOT NULL,
	entrypoint TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_used  INTEGER NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, createTable)
	if err != nil {
		return fmt.Errorf("builds: ensure schema: %w", err)
	}
	return nil
}

// Record upserts the row for a tag. If the row exists it refreshes the
// image ID, port, entrypoint, and last_used.
func (s *BuildStore) Record(ctx context.Context, b Build) error {
	const stmt = `
INSERT INTO builds (tag, project, image_id, port, entrypoint, created_at, last_used)
VALUES (?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now'))
ON CONFLICT(tag) DO UPDATE SET
  image_id = excluded.image_id,
	port = excluded.port,
	entrypoint = excluded.entrypoint,
	last_used = strftime('%s','now');
`

	if _, err := s.db.ExecContext(ctx, stmt, b.Tag, b.Project, b.ImageID, b.Port, b.Entrypoint); err != nil {
		return fmt.Errorf("builds: record: %w", err)
	}
	return nil
}

// Get returns the build for the given tag.
// found == false means "no row".
func (s *BuildStore) Get(ctx context.Context, tag string) (b Build, found bool, err error) {
	const q = `
SELECT tag, project, image_id, port, entrypoint, created_at, last_used
FROM builds
WHERE tag = ?
`
	row := s.db.QueryRowContext(ctx, q, tag)

	var createdAtUnix, lastUsedUnix int64
	if err = row.Scan(&b.Tag, &b.Project, &b.ImageID, &b.Port, &b.Entrypoint, &createdAtUnix, &lastUsedUnix); err != nil {
		if err == sql.ErrNoRows {
			return Build{}, false, nil
		}
		return Build{}, false, fmt.Errorf("builds: get: %w", err)
	}

	b.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	b.LastUsed = time.Unix(lastUsedUnix, 0).UTC()

	_ = s.Touch(ctx, tag)

	return b, true, nil
}

// List returns all builds, most recently created first. An empty project
// filter returns everything.
func (s *BuildStore) List(ctx context.Context, project string) ([]Build, error) {
	q := `
SELECT tag, project, image_id, port, entrypoint, created_at, last_used
FROM builds
`
	args := []any{}
	if project != "" {
		q += "WHERE project = ?\n"
		args = append(args, project)
	}
	q += "ORDER BY created_at DESC;"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("builds: list: %w", err)
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		var b Build
		var createdAtUnix, lastUsedUnix int64
		if err := rows.Scan(&b.Tag, &b.Project, &b.ImageID, &b.Port, &b.Entrypoint, &createdAtUnix, &lastUsedUnix); err != nil {
			return nil, fmt.Errorf("builds: list scan: %w", err)
		}
		b.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		b.LastUsed = time.Unix(lastUsedUnix, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// Touch updates last_used for a given tag if it exists.
// No-op if the row doesn't exist.
func (s *BuildStore) Touch(ctx context.Context, tag string) error {
	const stmt = `
UPDATE builds
SET last_used = strftime('%s','now')
WHERE tag = ?;
`
	if _, err := s.db.ExecContext(ctx, stmt, tag); err != nil {
		return fmt.Errorf("builds: touch: %w", err)
	}
	return nil
}

// Delete removes the build row for the given tag, if any.
func (s *BuildStore) Delete(ctx context.Context, tag string) error {
	const stmt = `DELETE FROM builds WHERE tag = ?`
	if _, err := s.db.ExecContext(ctx, stmt, tag); err != nil {
		return fmt.Errorf("builds: delete: %w", err)
	}
	return nil
}

// DeleteByProject removes every build row for the project and reports how
// many rows went away.
func (s *BuildStore) DeleteByProject(ctx context.Context, project string) (int64, error) {
	const stmt = `DELETE FROM builds WHERE project = ?`
	res, err := s.db.ExecContext(ctx, stmt, project)
	if err != nil {
		return 0, fmt.Errorf("builds: delete by project: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
