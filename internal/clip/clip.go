// Package clip provides serialized access to the OS clipboard.
//
// The underlying clipboard API is a process-wide resource that is not safely
// reentrant, so every operation goes through one Accessor whose mutex covers
// exactly the backend call, never staging, thumbnail, or alias I/O.
package clip

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"go.klb.dev/clipstage/internal/snapshot"
)

// ErrNoContent is returned by Read when the clipboard is empty or holds only
// unsupported types. Callers present it as "no content", not as a failure.
var ErrNoContent = errors.New("no clipboard content")

// Backend is the low-level clipboard implementation. Backends are not safe
// for concurrent use; the Accessor serializes all calls.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current text contents, or nil if none.
	ReadText() []byte

	// ReadImage returns the current image contents as encoded PNG, or nil.
	ReadImage() []byte

	// WriteText replaces the clipboard with text.
	WriteText(data []byte) error

	// WriteImage replaces the clipboard with an encoded PNG image.
	WriteImage(data []byte) error

	// Close releases any resources held by the backend.
	Close()
}

// Accessor is the process-wide exclusive clipboard handle. Watcher polls,
// processor rewrites, and RPC calls all serialize through its mutex.
type Accessor struct {
	mu sync.Mutex
	b  Backend
}

// NewAccessor wraps b in an Accessor.
func NewAccessor(b Backend) *Accessor {
	return &Accessor{b: b}
}

// BackendName returns the name of the underlying backend.
func (a *Accessor) BackendName() string { return a.b.Name() }

// Close closes the underlying backend.
func (a *Accessor) Close() { a.b.Close() }

// Read returns a fresh snapshot of the clipboard. Image is checked before
// text since the more specific type wins. Text is returned in full; truncation
// for display happens at the RPC surface, not here.
func (a *Accessor) Read() (snapshot.Snapshot, error) {
	a.mu.Lock()
	img := a.b.ReadImage()
	var text []byte
	if img == nil {
		text = a.b.ReadText()
	}
	a.mu.Unlock()

	if img != nil {
		width, height := 0, 0
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(img)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
		return snapshot.NewImage(snapshot.KindImagePNG, img, width, height), nil
	}
	if text != nil {
		return snapshot.NewText(text), nil
	}
	return snapshot.Snapshot{}, ErrNoContent
}

// WriteText replaces the clipboard contents with text.
func (a *Accessor) WriteText(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.b.WriteText([]byte(text))
}

// WriteImage replaces the clipboard contents with an encoded image. The
// payload must decode to a valid image with nonzero dimensions.
func (a *Accessor) WriteImage(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image has zero dimensions (%dx%d)", cfg.Width, cfg.Height)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.b.WriteImage(data)
}
