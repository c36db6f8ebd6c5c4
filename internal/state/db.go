// Package state persists pyship's build history in a single SQLite database
// under the config directory. There is exactly one database; callers go
// through BuildStore rather than raw SQL.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	hostappconfig "github.com/pyship/pyship/internal/apps/pyship/config"
	"github.com/pyship/pyship/internal/logs"
	_ "modernc.org/sqlite"
)

const (
	// busyTimeoutMS is how long a concurrent pyship process waits on a
	// locked database before failing.
	busyTimeoutMS = 5000

	// WAL lets `list` read while a build records its row.
	journalMode = "WAL"

	pingTimeout = 2 * time.Second
)

type DB struct {
	sql *sql.DB
}

var defaultDB *DB

func OpenDefault(ctx context.Context) (*DB, error) {
	if defaultDB == nil {
		dbPath := hostappconfig.StateDBFile()
		logs.Debugf("trying to open state database at %s ...", dbPath)
		db, err := Open(ctx, dbPath)
		if err != nil {
			return nil, err
		}
		defaultDB = db
	}

	return defaultDB, nil
}

// Open opens (or creates) the SQLite database at path and verifies it is
// usable. The database is closed when ctx is cancelled.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db: path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("db: create dir: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=%s&_foreign_keys=ON",
		url.PathEscape(path),
		busyTimeoutMS,
		journalMode,
	)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := sqlDB.Close(); err != nil {
			logs.Errorf("db close error: %v", err)
		}
	}()

	// Fail early if the DB is not usable.
	timeoutCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(timeoutCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return &DB{sql: sqlDB}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, query, args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, query, args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, query, args...)
}
