// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package logstore captures the client's own log output so it can
// travel with bug reports.
//
// A Capture sits in front of the process logger from the first moment
// of startup, keeping the most recent records in memory. Once the
// platform directories exist and the deployment config is known, a
// Store is attached: the ring is replayed into it and every later
// record is teed. Records persist as CBOR, rotate into zstd archives,
// and are optionally encrypted to the deployment's diagnostics
// recipient.
package logstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlor-chat/parlor/lib/clock"
)

// defaultCapacity bounds the in-memory ring when the caller does not
// choose one.
const defaultCapacity = 200

// Record is one captured log record, the unit of persistence.
type Record struct {
	Time    time.Time         `cbor:"time"`
	Level   string            `cbor:"level"`
	Message string            `cbor:"message"`
	Session string            `cbor:"session"`
	Attrs   map[string]string `cbor:"attrs,omitempty"`
}

// core is the state shared by a Capture and all handlers derived from
// it via WithAttrs/WithGroup.
type core struct {
	clock   clock.Clock
	session string

	mu    sync.Mutex
	ring  []Record
	count int
	store *Store
}

// Capture is a slog.Handler that records everything it sees and
// forwards to the wrapped handler. It is always enabled: the wrapped
// handler applies its own level filter on the forwarding path, so the
// ring holds Debug records even when the terminal shows only Info.
type Capture struct {
	c      *core
	next   slog.Handler
	prefix string
	bound  map[string]string
}

// NewCapture wraps next with a capturing handler holding the last
// capacity records. next may be nil for a capture-only handler. A nil
// clk uses the real clock; it only supplies timestamps for records
// that arrive without one.
func NewCapture(next slog.Handler, clk clock.Clock, capacity int) *Capture {
	if clk == nil {
		clk = clock.Real()
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Capture{
		c: &core{
			clock:   clk,
			session: uuid.NewString(),
			ring:    make([]Record, capacity),
		},
		next: next,
	}
}

// SessionID returns the identifier stamped on every record captured in
// this process. The handoff passes it to the UI process so both halves
// of a session can be correlated in a bug report.
func (h *Capture) SessionID() string {
	return h.c.session
}

// AttachStore replays the captured ring into store and tees every
// subsequent record. Store write failures are deliberately ignored
// here: persistence trouble must not take process logging down with
// it.
func (h *Capture) AttachStore(store *Store) {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	for _, record := range h.c.snapshotLocked() {
		store.Append(record)
	}
	h.c.store = store
}

// Snapshot returns the captured records, oldest first.
func (h *Capture) Snapshot() []Record {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.snapshotLocked()
}

// Enabled reports true for every level: the capture must see records
// the terminal handler would drop.
func (h *Capture) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle captures the record and forwards it to the wrapped handler if
// that handler wants it.
func (h *Capture) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]string, len(h.bound)+r.NumAttrs())
	for key, value := range h.bound {
		attrs[key] = value
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(attrs, h.prefix, a)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	when := r.Time
	if when.IsZero() {
		when = h.c.clock.Now()
	}
	h.c.append(Record{
		Time:    when,
		Level:   r.Level.String(),
		Message: r.Message,
		Session: h.c.session,
		Attrs:   attrs,
	})

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs returns a derived handler sharing this capture's ring.
func (h *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	derived := *h
	derived.bound = make(map[string]string, len(h.bound)+len(attrs))
	for key, value := range h.bound {
		derived.bound[key] = value
	}
	for _, a := range attrs {
		appendAttr(derived.bound, h.prefix, a)
	}
	if h.next != nil {
		derived.next = h.next.WithAttrs(attrs)
	}
	return &derived
}

// WithGroup returns a derived handler sharing this capture's ring.
func (h *Capture) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.prefix = joinKey(h.prefix, name)
	if h.next != nil {
		derived.next = h.next.WithGroup(name)
	}
	return &derived
}

func (c *core) append(record Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ring[c.count%len(c.ring)] = record
	c.count++
	if c.store != nil {
		// Best effort, same as AttachStore's replay.
		c.store.Append(record)
	}
}

func (c *core) snapshotLocked() []Record {
	size := c.count
	if size > len(c.ring) {
		size = len(c.ring)
	}
	out := make([]Record, 0, size)
	for i := c.count - size; i < c.count; i++ {
		out = append(out, c.ring[i%len(c.ring)])
	}
	return out
}

// appendAttr flattens a slog attribute into dotted string keys. Group
// values recurse with their key as the prefix; a group with an empty
// key inlines, matching slog's own convention.
func appendAttr(dst map[string]string, prefix string, a slog.Attr) {
	value := a.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = joinKey(prefix, a.Key)
		}
		for _, nested := range value.Group() {
			appendAttr(dst, groupPrefix, nested)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[joinKey(prefix, a.Key)] = value.String()
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
