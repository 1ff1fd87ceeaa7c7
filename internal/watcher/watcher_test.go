package watcher

import (
	"context"
	"testing"
	"time"

	"go.klb.dev/clipstage/internal/clip"
)

// scriptedBackend serves a fixed sequence of text payloads, one per read.
type scriptedBackend struct {
	texts [][]byte
	pos   int
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) ReadText() []byte {
	if s.pos >= len(s.texts) {
		return nil
	}
	t := s.texts[s.pos]
	s.pos++
	return t
}

func (s *scriptedBackend) ReadImage() []byte         { return nil }
func (s *scriptedBackend) WriteText(_ []byte) error  { return nil }
func (s *scriptedBackend) WriteImage(_ []byte) error { return nil }
func (s *scriptedBackend) Close()                    {}

func TestDedupSequence(t *testing.T) {
	s1 := []byte("first payload")
	s2 := []byte("second payload")
	b := &scriptedBackend{texts: [][]byte{s1, s1, s2, s2, s1}}
	w := New(clip.NewAccessor(b), time.Hour)

	ctx := context.Background()
	for range b.texts {
		w.check(ctx)
	}

	var got []string
	for {
		select {
		case ev := <-w.events:
			got = append(got, string(ev.Snapshot.Text))
			continue
		default:
		}
		break
	}

	want := []string{"first payload", "second payload", "first payload"}
	if len(got) != len(want) {
		t.Fatalf("events = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEmptyClipboardIsNotAnEvent(t *testing.T) {
	b := &scriptedBackend{texts: [][]byte{nil, []byte("content")}}
	w := New(clip.NewAccessor(b), time.Hour)

	ctx := context.Background()
	w.check(ctx) // empty clipboard, no event
	w.check(ctx)

	select {
	case ev := <-w.events:
		if string(ev.Snapshot.Text) != "content" {
			t.Errorf("event payload = %q", ev.Snapshot.Text)
		}
	default:
		t.Fatal("expected one event for the non-empty read")
	}
	select {
	case <-w.events:
		t.Fatal("empty clipboard must not emit an event")
	default:
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	b := &scriptedBackend{}
	w := New(clip.NewAccessor(b), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
	if _, ok := <-w.events; ok {
		// Drained events are fine; the channel itself must be closed.
		for range w.events {
		}
	}
}
