// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package prefstore persists the client's local preferences.
//
// The store is a single SQLite table of string key/value pairs under
// the user's state directory. It outlives sessions: the compatibility
// acknowledgment written here is what lets a once-confirmed unsupported
// host start cleanly forever after.
package prefstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parlor-chat/parlor/lib/sqlitepool"
)

// Preference keys. Values are free-form strings; boolean preferences
// store "true"/"false".
const (
	// KeyAcceptsUnsupportedHost records that the user chose to run on
	// a host that failed the capability check. Written only on
	// explicit confirmation, read once per session, overwritten rather
	// than deleted.
	KeyAcceptsUnsupportedHost = "accepts_unsupported_host"

	// KeyMobileGuideOptOut suppresses the redirect to the mobile setup
	// guide on phone-like hosts.
	KeyMobileGuideOptOut = "mobile_guide_opt_out"

	// KeyTheme and KeyLanguage are explicit user choices, consulted
	// before the deployment's defaults.
	KeyTheme    = "theme"
	KeyLanguage = "language"
)

// Store is a preference store backed by SQLite. Safe for concurrent
// use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens (creating if needed) the preference database at path. The
// parent directory must exist.
func Open(path string, logger *slog.Logger) (*Store, error) {
	return open(path, 2, logger)
}

// OpenMemory opens a store that lives only as long as the process.
// Used by tests and as the fallback when the state directory is
// unusable: preferences then simply do not stick.
func OpenMemory(logger *slog.Logger) (*Store, error) {
	// One connection only: each in-memory connection would otherwise
	// see its own private database.
	return open(":memory:", 1, logger)
}

func open(path string, poolSize int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      path,
		PoolSize:  poolSize,
		Logger:    logger,
		OnConnect: createSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("prefstore: %w", err)
	}

	logger.Debug("preference store opened", "path", path)
	return &Store{pool: pool, logger: logger}, nil
}

// createSchema runs once per pooled connection, on first use.
func createSchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteTransient(conn, `CREATE TABLE IF NOT EXISTS prefs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`, nil)
}

// Close releases the database. Blocks until in-flight operations
// return their connections.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Get returns the value stored under key. found is false when the key
// was never written.
func (s *Store) Get(ctx context.Context, key string) (value string, found bool, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("prefstore: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "SELECT value FROM prefs WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("prefstore: reading %s: %w", key, err)
	}
	return value, found, nil
}

// Set stores value under key, overwriting any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("prefstore: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO prefs (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("prefstore: writing %s: %w", key, err)
	}
	return nil
}

// GetBool reads a boolean preference. Absent or unparseable values
// read as false.
func (s *Store) GetBool(ctx context.Context, key string) (bool, error) {
	value, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn("preference is not a boolean", "key", key, "value", value)
		return false, nil
	}
	return parsed, nil
}

// SetBool stores a boolean preference.
func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	return s.Set(ctx, key, strconv.FormatBool(value))
}

// AcceptsUnsupportedHost reports whether the user previously chose to
// run on a host that failed the capability check.
func (s *Store) AcceptsUnsupportedHost(ctx context.Context) (bool, error) {
	return s.GetBool(ctx, KeyAcceptsUnsupportedHost)
}

// SetAcceptsUnsupportedHost records the user's choice to run despite
// missing capabilities. Call only on explicit confirmation.
func (s *Store) SetAcceptsUnsupportedHost(ctx context.Context, accepted bool) error {
	return s.SetBool(ctx, KeyAcceptsUnsupportedHost, accepted)
}

// MobileGuideOptOut reports whether the user opted out of the
// mobile-guide redirect.
func (s *Store) MobileGuideOptOut(ctx context.Context) (bool, error) {
	return s.GetBool(ctx, KeyMobileGuideOptOut)
}

// SetMobileGuideOptOut records the redirect opt-out.
func (s *Store) SetMobileGuideOptOut(ctx context.Context, optOut bool) error {
	return s.SetBool(ctx, KeyMobileGuideOptOut, optOut)
}

// Theme returns the user's explicit theme choice, if any.
func (s *Store) Theme(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, KeyTheme)
}

// SetTheme records an explicit theme choice.
func (s *Store) SetTheme(ctx context.Context, name string) error {
	return s.Set(ctx, KeyTheme, name)
}

// Language returns the user's explicit language choice, if any.
func (s *Store) Language(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, KeyLanguage)
}

// SetLanguage records an explicit language choice.
func (s *Store) SetLanguage(ctx context.Context, tag string) error {
	return s.Set(ctx, KeyLanguage, tag)
}
