// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the client's standard SQLite connection
// pool.
//
// Everything Parlor persists in structured form (today the preference
// store) lives in small per-user SQLite files. This package wraps
// zombiezen.com/go/sqlite with the defaults those files want: WAL
// journal mode, NORMAL synchronous for process-crash durability
// without fsync-per-commit overhead, and a busy timeout instead of
// immediate SQLITE_BUSY errors.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. The pool is safe for
// concurrent use; individual connections are not. Each goroutine must
// hold its own connection for the duration of its work.
//
// # Pragmas
//
// Every connection in the pool is initialized with these pragmas:
//
//   - journal_mode=WAL: readers never block the writer and the writer
//     never blocks readers.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across OS crashes or power loss, which is acceptable for
//     preferences the user can simply set again.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock instead
//     of returning SQLITE_BUSY immediately.
//   - foreign_keys=OFF: the client's tables are flat key/value maps;
//     nothing declares references.
//   - cache_size=-2048: 2 MB page cache per connection, plenty for
//     databases measured in kilobytes.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:      filepath.Join(stateDir, "prefs.db"),
//	    OnConnect: createSchema,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
//
// The package is intentionally thin: it applies the pragmas and
// exposes the underlying zombiezen types directly. Stores write SQL
// and use sqlitex.Execute; there is no query builder in between.
package sqlitepool
