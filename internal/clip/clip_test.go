package clip

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"go.klb.dev/clipstage/internal/snapshot"
)

// fakeBackend is an in-memory Backend for tests.
type fakeBackend struct {
	text  []byte
	image []byte

	wroteText  [][]byte
	wroteImage [][]byte
}

func (f *fakeBackend) Name() string      { return "fake" }
func (f *fakeBackend) ReadText() []byte  { return f.text }
func (f *fakeBackend) ReadImage() []byte { return f.image }

func (f *fakeBackend) WriteText(data []byte) error {
	f.text = data
	f.image = nil
	f.wroteText = append(f.wroteText, data)
	return nil
}

func (f *fakeBackend) WriteImage(data []byte) error {
	f.image = data
	f.text = nil
	f.wroteImage = append(f.wroteImage, data)
	return nil
}

func (f *fakeBackend) Close() {}

// dualBackend additionally implements DualWriter.
type dualBackend struct {
	fakeBackend
	bothText  []byte
	bothImage []byte
}

func (d *dualBackend) WriteBoth(text, image []byte) error {
	d.bothText = text
	d.bothImage = image
	return nil
}

// encodePNG returns a valid PNG of the given dimensions.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadPrefersImageOverText(t *testing.T) {
	img := encodePNG(t, 100, 50)
	b := &fakeBackend{text: []byte("some text"), image: img}
	a := NewAccessor(b)

	snap, err := a.Read()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Kind != snapshot.KindImagePNG {
		t.Fatalf("kind = %q, want image", snap.Kind)
	}
	if snap.Width != 100 || snap.Height != 50 {
		t.Errorf("dimensions = %dx%d, want 100x50", snap.Width, snap.Height)
	}
	if snap.ByteSize != len(img) {
		t.Errorf("byte size = %d, want %d", snap.ByteSize, len(img))
	}
}

func TestReadTextInFull(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 200_000)
	a := NewAccessor(&fakeBackend{text: long})

	snap, err := a.Read()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Kind != snapshot.KindText {
		t.Fatalf("kind = %q, want text", snap.Kind)
	}
	if len(snap.Text) != len(long) {
		t.Errorf("text length = %d, want full %d", len(snap.Text), len(long))
	}
	if snap.Truncated {
		t.Error("accessor must not mark text truncated")
	}
}

func TestReadEmpty(t *testing.T) {
	a := NewAccessor(&fakeBackend{})
	if _, err := a.Read(); !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestWriteImageRejectsGarbage(t *testing.T) {
	b := &fakeBackend{}
	a := NewAccessor(b)
	if err := a.WriteImage([]byte("not a png")); err == nil {
		t.Fatal("expected error for undecodable image")
	}
	if len(b.wroteImage) != 0 {
		t.Error("garbage must not reach the backend")
	}
	if err := a.WriteImage(encodePNG(t, 2, 2)); err != nil {
		t.Fatalf("valid png rejected: %v", err)
	}
}

func TestWriteStrategySelection(t *testing.T) {
	plain := NewAccessor(&fakeBackend{})
	if s := NewWriteStrategy(plain, true); s.Name() != "text-only" {
		t.Errorf("backend without DualWriter: strategy = %q, want text-only", s.Name())
	}

	dual := &dualBackend{}
	a := NewAccessor(dual)
	if s := NewWriteStrategy(a, false); s.Name() != "text-only" {
		t.Errorf("dual disabled: strategy = %q, want text-only", s.Name())
	}
	s := NewWriteStrategy(a, true)
	if s.Name() != "dual-format" {
		t.Fatalf("strategy = %q, want dual-format", s.Name())
	}

	img := encodePNG(t, 4, 4)
	if err := s.WriteStaged("/tmp/clip.png", img); err != nil {
		t.Fatal(err)
	}
	if string(dual.bothText) != "/tmp/clip.png" || !bytes.Equal(dual.bothImage, img) {
		t.Error("dual strategy must write path and image together")
	}
}

func TestTextOnlyFallbackWritesPath(t *testing.T) {
	b := &fakeBackend{}
	a := NewAccessor(b)
	s := NewWriteStrategy(a, true)

	if err := s.WriteStaged("/aliases/clip-paste.png", encodePNG(t, 4, 4)); err != nil {
		t.Fatal(err)
	}
	if string(b.text) != "/aliases/clip-paste.png" {
		t.Errorf("clipboard text = %q, want alias path", b.text)
	}
}
