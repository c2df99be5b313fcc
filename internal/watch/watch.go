// Package watch keeps one selected ticket's status and processing
// trail synchronized with the control plane while the ticket is in an
// active state, and stops by itself once the ticket settles.
//
// One Watcher drives at most one poll loop at a time. Selecting a
// ticket supersedes the previous session: its context is cancelled
// and its generation number is retired, so a late response from a
// superseded session can never overwrite fresher state. Poll ticks
// are strictly sequential because the whole session runs on a single
// goroutine.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// Gateway is the slice of the API client the watcher needs.
type Gateway interface {
	Ticket(ctx context.Context, id string) (model.Ticket, error)
	TicketLogs(ctx context.Context, id string) ([]model.ProcessingLog, error)
}

// State is the watch session's position in its lifecycle.
type State int

const (
	// StateIdle means no ticket is selected.
	StateIdle State = iota
	// StateLoading means the initial trail fetch is in flight.
	StateLoading
	// StateWatching means the ticket is active and polled on an
	// interval.
	StateWatching
	// StateSettled means the ticket reached a terminal status and
	// polling has stopped.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateWatching:
		return "watching"
	case StateSettled:
		return "settled"
	}
	return "idle"
}

// Update is one snapshot emitted by a watch session. Gen identifies
// the session; consumers must drop updates whose Gen is not the
// watcher's current generation.
type Update struct {
	Gen    uint64
	State  State
	Ticket model.Ticket
	Trail  []model.ProcessingLog
	// Err is set when this tick's fetch failed. Ticket and Trail then
	// still carry the previous snapshot, which remains valid.
	Err error
}

// Watcher runs the poll loop for the currently selected ticket.
type Watcher struct {
	gw       Gateway
	interval time.Duration
	logger   *slog.Logger
	updates  chan Update

	mu     sync.Mutex
	gen    uint64
	state  State
	cancel context.CancelFunc
}

// New creates a watcher polling on the given interval.
func New(gw Gateway, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		gw:       gw,
		interval: interval,
		logger:   logger,
		updates:  make(chan Update, 16),
	}
}

// Updates delivers session snapshots. The channel is never closed;
// callers stop reading after Close.
func (w *Watcher) Updates() <-chan Update { return w.updates }

// Gen returns the current session generation.
func (w *Watcher) Gen() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen
}

// State returns the current session state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Select starts a watch session for the ticket, superseding any
// session in progress. The previous session's pending work is
// cancelled before the new one starts, so at most one poll loop
// exists at any time.
func (w *Watcher) Select(ticket model.Ticket) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.gen++
	gen := w.gen
	w.state = StateLoading
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(ctx, gen, ticket)
}

// Deselect cancels the current session, returning to idle. Safe to
// call with no session active.
func (w *Watcher) Deselect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.gen++
	w.state = StateIdle
}

// Close cancels any session; the watcher must not be reused after.
func (w *Watcher) Close() {
	w.Deselect()
}

func (w *Watcher) run(ctx context.Context, gen uint64, ticket model.Ticket) {
	trail, err := w.gw.TicketLogs(ctx, ticket.ID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Degraded start: show the ticket without a trail and let the
		// first tick (if any) fill it in.
		w.logger.Warn("initial trail fetch failed",
			"ticket", ticket.ID, "gen", gen, "error", err)
		trail = nil
	}

	state := StateSettled
	if ticket.Status.Active() {
		state = StateWatching
	}
	w.setState(gen, state)
	w.publish(Update{Gen: gen, State: state, Ticket: ticket, Trail: trail, Err: err})
	if state != StateWatching {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fresh, tickErr := w.gw.Ticket(ctx, ticket.ID)
		var freshTrail []model.ProcessingLog
		if tickErr == nil {
			freshTrail, tickErr = w.gw.TicketLogs(ctx, ticket.ID)
		}
		if tickErr != nil {
			if ctx.Err() != nil {
				return
			}
			// Failed tick: keep the previous snapshot, surface the
			// error, retry on the next tick.
			w.logger.Warn("poll tick failed",
				"ticket", ticket.ID, "gen", gen, "error", tickErr)
			w.publish(Update{Gen: gen, State: StateWatching, Ticket: ticket, Trail: trail, Err: tickErr})
			continue
		}

		// Full replace of both ticket and trail.
		ticket = fresh
		trail = freshTrail

		state = StateWatching
		if !ticket.Status.Active() {
			state = StateSettled
		}
		w.setState(gen, state)
		w.publish(Update{Gen: gen, State: state, Ticket: ticket, Trail: trail})
		if state == StateSettled {
			w.logger.Info("ticket settled",
				"ticket", ticket.ID, "status", ticket.Status, "gen", gen)
			return
		}
	}
}

// setState records the session state unless the session has been
// superseded in the meantime.
func (w *Watcher) setState(gen uint64, s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen == w.gen {
		w.state = s
	}
}

// publish emits an update unless the session was superseded. A full
// channel drops the update: every tick replaces the whole snapshot,
// so a consumer that falls behind only misses intermediate states.
func (w *Watcher) publish(u Update) {
	w.mu.Lock()
	current := w.gen == u.Gen
	w.mu.Unlock()
	if !current {
		return
	}

	select {
	case w.updates <- u:
	default:
		w.logger.Debug("update dropped, consumer behind", "ticket", u.Ticket.ID, "gen", u.Gen)
	}
}
