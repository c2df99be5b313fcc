// Package logring captures recent slog records in a fixed-size ring
// so the dashboard can show its own activity (watcher ticks, poll
// failures, form mutations) without scrolling the terminal the TUI
// owns.
package logring

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Ring is a thread-safe fixed-size buffer of log entries.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   int
}

// New creates a ring holding up to size entries.
func New(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{entries: make([]Entry, size)}
}

// Add appends an entry, evicting the oldest when full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	r.entries[r.pos] = e
	r.pos = (r.pos + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
	r.mu.Unlock()
}

// Recent returns up to n entries at or above minLevel, oldest first.
// n <= 0 returns all matching entries.
func (r *Ring) Recent(n int, minLevel slog.Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := 0
	if r.count == len(r.entries) {
		start = r.pos
	}

	var out []Entry
	for i := 0; i < r.count; i++ {
		e := r.entries[(start+i)%len(r.entries)]
		if e.Level >= minLevel {
			out = append(out, e)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// Handler is an slog.Handler that records every entry into a Ring and
// delegates to an inner handler for normal output.
type Handler struct {
	inner  slog.Handler
	ring   *Ring
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps inner so records are also captured into ring.
func NewHandler(inner slog.Handler, ring *Ring) *Handler {
	return &Handler{inner: inner, ring: ring}
}

// Enabled always returns true so the ring sees every level; the inner
// handler still applies its own filter on delegation.
func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[h.key(a.Key)] = resolveValue(a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = resolveValue(a.Value)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.ring.Add(Entry{
		Time:    rec.Time,
		Level:   rec.Level,
		Message: rec.Message,
		Attrs:   attrs,
	})

	if h.inner.Enabled(ctx, rec.Level) {
		return h.inner.Handle(ctx, rec)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		inner:  h.inner.WithAttrs(attrs),
		ring:   h.ring,
		attrs:  append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		groups: h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:  h.inner.WithGroup(name),
		ring:   h.ring,
		attrs:  h.attrs,
		groups: append(h.groups[:len(h.groups):len(h.groups)], name),
	}
}

func (h *Handler) key(k string) string {
	for i := len(h.groups) - 1; i >= 0; i-- {
		k = h.groups[i] + "." + k
	}
	return k
}

// resolveValue converts slog values to display-safe types. Errors
// become strings so they don't render as {}.
func resolveValue(v slog.Value) any {
	v = v.Resolve()
	raw := v.Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}
