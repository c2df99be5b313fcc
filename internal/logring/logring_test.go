package logring

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestRingEviction(t *testing.T) {
	r := New(3)
	for i := 0; i < 5; i++ {
		r.Add(Entry{Message: string(rune('a' + i)), Time: time.Now()})
	}

	got := r.Recent(0, slog.LevelDebug)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Oldest two (a, b) evicted; c, d, e remain in order.
	want := []string{"c", "d", "e"}
	for i, e := range got {
		if e.Message != want[i] {
			t.Errorf("entry[%d] = %q, want %q", i, e.Message, want[i])
		}
	}
}

func TestRingLevelFilterAndLimit(t *testing.T) {
	r := New(10)
	r.Add(Entry{Message: "debug", Level: slog.LevelDebug})
	r.Add(Entry{Message: "warn1", Level: slog.LevelWarn})
	r.Add(Entry{Message: "info", Level: slog.LevelInfo})
	r.Add(Entry{Message: "warn2", Level: slog.LevelWarn})

	got := r.Recent(1, slog.LevelWarn)
	if len(got) != 1 || got[0].Message != "warn2" {
		t.Errorf("Recent(1, warn) = %v, want [warn2]", got)
	}
}

func TestHandlerCapturesAndDelegates(t *testing.T) {
	var out bytes.Buffer
	inner := slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn})
	ring := New(10)
	logger := slog.New(NewHandler(inner, ring))

	logger.Info("poll tick skipped", "ticket", "t1", "error", errors.New("boom"))
	logger.Warn("visible")

	entries := ring.Recent(0, slog.LevelDebug)
	if len(entries) != 2 {
		t.Fatalf("ring captured %d entries, want 2", len(entries))
	}
	if entries[0].Attrs["error"] != "boom" {
		t.Errorf("error attr = %v, want string \"boom\"", entries[0].Attrs["error"])
	}

	// Inner handler filters below warn.
	if bytes.Contains(out.Bytes(), []byte("poll tick skipped")) {
		t.Error("info record leaked past inner level filter")
	}
	if !bytes.Contains(out.Bytes(), []byte("visible")) {
		t.Error("warn record missing from inner output")
	}
}

func TestHandlerGroupsPrefixKeys(t *testing.T) {
	ring := New(4)
	logger := slog.New(NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), ring))

	logger.WithGroup("watch").With("gen", 3).Info("settled")

	entries := ring.Recent(0, slog.LevelDebug)
	if len(entries) != 1 {
		t.Fatalf("captured %d entries, want 1", len(entries))
	}
	if _, ok := entries[0].Attrs["watch.gen"]; !ok {
		t.Errorf("attrs = %v, want key watch.gen", entries[0].Attrs)
	}
}
