// Package watcher polls the clipboard accessor, fingerprints what it sees,
// and emits an ordered stream of change events. It owns the only WatchState;
// consumers never see a fingerprint, only snapshots.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipstage/internal/clip"
	"go.klb.dev/clipstage/internal/snapshot"
)

// DefaultPollInterval is the fixed tick between clipboard reads.
const DefaultPollInterval = 500 * time.Millisecond

// eventBuffer bounds the watcher→processor channel. When it is full the
// watcher blocks until the processor drains: deliberate backpressure over
// unbounded growth.
const eventBuffer = 100

// Event is one detected clipboard change.
type Event struct {
	Snapshot snapshot.Snapshot
}

// Watcher (single instance per run) detects logically new clipboard content.
type Watcher struct {
	acc      *clip.Accessor
	interval time.Duration
	events   chan Event

	// mu guards the watch state below.
	mu              sync.Mutex
	lastFingerprint string
	lastSeen        time.Time
}

// New returns a Watcher over acc. interval <= 0 selects the default.
func New(acc *clip.Accessor, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		acc:      acc,
		interval: interval,
		events:   make(chan Event, eventBuffer),
	}
}

// Events returns the ordered change stream. The channel is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run polls until ctx is cancelled. Ticks that fire while a check is still
// in flight are dropped by the ticker, never replayed as a burst.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	defer close(w.events)

	slog.Info("clipboard watcher started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard watcher stopped")
			return
		case <-t.C:
			w.check(ctx)
		}
	}
}

// check reads one snapshot and emits an event if its fingerprint differs
// from the last one seen. An unavailable clipboard is not an error; it is
// logged at debug and retried next tick.
func (w *Watcher) check(ctx context.Context) {
	snap, err := w.acc.Read()
	if err != nil {
		if errors.Is(err, clip.ErrNoContent) {
			slog.Debug("no clipboard content")
		} else {
			slog.Error("clipboard read failed", "err", err)
		}
		return
	}

	fp := snapshot.Fingerprint(snap)

	w.mu.Lock()
	changed := fp != w.lastFingerprint
	if changed {
		w.lastFingerprint = fp
		w.lastSeen = time.Now()
	}
	w.mu.Unlock()

	if !changed {
		return
	}

	slog.Info("new clipboard content detected",
		"kind", snap.Kind,
		"bytes", payloadSize(snap),
	)

	select {
	case w.events <- Event{Snapshot: snap}:
	case <-ctx.Done():
	}
}

func payloadSize(s snapshot.Snapshot) int {
	if s.Kind == snapshot.KindText {
		return len(s.Text)
	}
	return s.ByteSize
}
