// Package db opens and manages the SQLite database connection.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Config controls how the database is opened and how transient failures
// are retried.
type Config struct {
	Path         string
	BusyTimeout  time.Duration // SQLite lock-wait timeout
	MaxRetries   int           // attempts for transient lock/I/O failures
	RetryBackoff time.Duration // fixed delay between attempts
}

// DB wraps *sql.DB with a bounded retry policy for transient SQLite errors.
type DB struct {
	*sql.DB
	path string
	cfg  Config
}

// New opens the SQLite database in WAL mode with a generous busy timeout.
// SQLite is a single-writer store, so the pool is capped at one connection.
func New(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := open(cfg)
	if err != nil {
		return nil, err
	}

	return &DB{DB: sqlDB, path: cfg.Path, cfg: cfg}, nil
}

func open(cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqlDB, nil
}

// Path returns the database file path (used by the backup service).
func (d *DB) Path() string { return d.path }

// Checkpoint flushes the write-ahead log into the main database file and
// truncates it. While the connection is open, committed data lives in the
// -wal sibling; any file-level copy of the database must checkpoint first
// or the copy misses everything still in the log.
func (d *DB) Checkpoint(ctx context.Context) error {
	var busy, logPages, moved int
	if err := d.QueryRowContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`).
		Scan(&busy, &logPages, &moved); err != nil {
		return fmt.Errorf("failed to checkpoint wal: %w", err)
	}
	if busy != 0 {
		return fmt.Errorf("wal checkpoint blocked by concurrent use")
	}
	return nil
}

// Reopen closes the connection and connects to the database file again.
// Restore swaps the file on disk; the old connection must not stay open
// across the swap or it replays its stale WAL over the new bytes.
func (d *DB) Reopen() error {
	if err := d.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	sqlDB, err := open(d.cfg)
	if err != nil {
		return err
	}
	d.DB = sqlDB
	return nil
}

// WithRetry runs fn, retrying a fixed number of times with a fixed backoff
// when the failure looks transient (lock contention, disk I/O hiccups).
// Non-transient errors are returned immediately; exhaustion returns the
// last error for the caller to surface as an infrastructure failure.
func (d *DB) WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.RetryBackoff):
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil || !isTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", d.cfg.MaxRetries, lastErr)
}

// isTransient reports whether the error is worth retrying.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "disk i/o error")
}
