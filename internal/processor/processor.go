// Package processor consumes the watcher's event stream and materializes
// oversized clipboard content: stage to the content-addressed store, expose
// through a rotated alias, and rewrite the clipboard to point at the alias.
// Events are handled strictly one at a time because alias rotation and
// clipboard overwrites must observe arrival order.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"go.klb.dev/clipstage/internal/alias"
	"go.klb.dev/clipstage/internal/clip"
	"go.klb.dev/clipstage/internal/notify"
	"go.klb.dev/clipstage/internal/snapshot"
	"go.klb.dev/clipstage/internal/staging"
	"go.klb.dev/clipstage/internal/watcher"
)

// DefaultInlineThreshold is the largest text payload kept on the clipboard
// instead of staged to disk (64 KiB).
const DefaultInlineThreshold = 64 * 1024

// Config tunes a Processor.
type Config struct {
	// InlineThreshold is the passthrough cutoff for text, in bytes.
	// <= 0 selects the default.
	InlineThreshold int
	// Notifications enables the best-effort desktop toast after an image
	// is staged.
	Notifications bool
}

// Processor drives staging, aliasing, and clipboard rewrites.
type Processor struct {
	cfg      Config
	store    *staging.Store
	rotator  *alias.Rotator
	acc      *clip.Accessor
	strategy clip.WriteStrategy
	notifier notify.Notifier
}

// New returns a Processor. strategy decides how staged images are presented
// back on the clipboard (dual-format where the platform allows, text-only
// fallback otherwise).
func New(cfg Config, store *staging.Store, rotator *alias.Rotator, acc *clip.Accessor, strategy clip.WriteStrategy) *Processor {
	if cfg.InlineThreshold <= 0 {
		cfg.InlineThreshold = DefaultInlineThreshold
	}
	return &Processor{
		cfg:      cfg,
		store:    store,
		rotator:  rotator,
		acc:      acc,
		strategy: strategy,
		notifier: notify.New(cfg.Notifications),
	}
}

// Run consumes events until ctx is cancelled or the channel closes. A
// failure on one event is logged and the loop advances; no retry, no crash.
func (p *Processor) Run(ctx context.Context, events <-chan watcher.Event) {
	slog.Info("clipboard processor started",
		"inline_threshold", p.cfg.InlineThreshold,
		"strategy", p.strategy.Name(),
	)
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard processor stopped")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.Process(ev.Snapshot); err != nil {
				slog.Error("event processing failed", "kind", ev.Snapshot.Kind, "err", err)
			}
		}
	}
}

// Process handles a single snapshot. Images of any size are staged; text is
// staged only above the inline threshold and passes through untouched at or
// below it.
func (p *Processor) Process(snap snapshot.Snapshot) error {
	switch {
	case snap.Kind.Raster():
		return p.processImage(snap)
	case len(snap.Text) > p.cfg.InlineThreshold:
		return p.processLargeText(snap)
	default:
		slog.Debug("small text, passthrough", "bytes", len(snap.Text))
		return nil
	}
}

func (p *Processor) processImage(snap snapshot.Snapshot) error {
	if snap.Image == nil {
		return fmt.Errorf("image payload not resident (ref %q)", snap.Ref)
	}

	art, err := p.store.Stage(snap.Image, snap.Kind)
	if err != nil {
		return fmt.Errorf("stage image: %w", err)
	}

	ext := snap.Kind.Ext()
	link, err := p.rotator.Create(art.Path, ext)
	if err != nil {
		return fmt.Errorf("alias image: %w", err)
	}

	if err := p.strategy.WriteStaged(link, snap.Image); err != nil {
		slog.Warn("clipboard rewrite failed", "alias", link, "err", err)
	}

	if err := p.rotator.Rotate(ext); err != nil {
		slog.Warn("alias rotation failed", "err", err)
	}

	p.notifier.Notify("Image staged", link)
	slog.Info("image processed", "alias", link, "artifact", art.Path)
	return nil
}

func (p *Processor) processLargeText(snap snapshot.Snapshot) error {
	art, err := p.store.Stage(snap.Text, snapshot.KindText)
	if err != nil {
		return fmt.Errorf("stage text: %w", err)
	}

	link, err := p.rotator.Create(art.Path, snapshot.KindText.Ext())
	if err != nil {
		return fmt.Errorf("alias text: %w", err)
	}

	if err := p.acc.WriteText(link); err != nil {
		slog.Warn("clipboard rewrite failed", "alias", link, "err", err)
	}

	if err := p.rotator.Rotate(snapshot.KindText.Ext()); err != nil {
		slog.Warn("alias rotation failed", "err", err)
	}

	slog.Info("large text processed", "alias", link, "bytes", art.Size)
	return nil
}
