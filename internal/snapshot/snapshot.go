// Package snapshot defines the typed clipboard snapshot and its content
// fingerprint. A Snapshot is ephemeral, produced fresh on every clipboard
// read; the fingerprint is the sole basis for change detection and staging
// dedup.
package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Kind discriminates the snapshot variants.
type Kind string

const (
	KindText      Kind = "text/plain"
	KindImagePNG  Kind = "image/png"
	KindImageJPEG Kind = "image/jpeg"
)

// Ext returns the staging file extension for the kind.
func (k Kind) Ext() string {
	switch k {
	case KindImagePNG:
		return "png"
	case KindImageJPEG:
		return "jpeg"
	default:
		return "txt"
	}
}

// Raster reports whether the kind is an image kind.
func (k Kind) Raster() bool { return k == KindImagePNG || k == KindImageJPEG }

// Snapshot is one observation of the clipboard.
//
// For KindText, Text holds the full payload; the accessor never truncates.
// inline-threshold handling belongs to the processor and the RPC surface.
// For raster kinds, Image holds the encoded payload when it is resident,
// otherwise Ref names the staged file the payload lives in.
type Snapshot struct {
	Kind      Kind
	Text      []byte
	Truncated bool

	Image         []byte
	Ref           string
	Width, Height int
	ByteSize      int

	CapturedAt time.Time
	Source     string
}

// NewText returns a text snapshot captured now.
func NewText(data []byte) Snapshot {
	return Snapshot{Kind: KindText, Text: data, CapturedAt: time.Now()}
}

// NewImage returns a raster snapshot with a resident payload, captured now.
func NewImage(kind Kind, data []byte, width, height int) Snapshot {
	return Snapshot{
		Kind:       kind,
		Image:      data,
		Width:      width,
		Height:     height,
		ByteSize:   len(data),
		CapturedAt: time.Now(),
	}
}

// Fingerprint computes the deterministic content digest used for change
// detection and dedup. Text hashes the raw bytes; images hash dimensions and
// byte size as fixed-width integers plus the payload when resident, or the
// reference string otherwise. Two staged-to-reference images with the same
// reference but different bytes would collide; that is acceptable because
// references are themselves content-derived filenames.
func Fingerprint(s Snapshot) string {
	h := sha256.New()

	switch s.Kind {
	case KindText:
		h.Write([]byte("text:"))
		h.Write(s.Text)
	default:
		h.Write([]byte("image:"))
		var dims [24]byte
		binary.LittleEndian.PutUint64(dims[0:], uint64(s.Width))
		binary.LittleEndian.PutUint64(dims[8:], uint64(s.Height))
		binary.LittleEndian.PutUint64(dims[16:], uint64(s.ByteSize))
		h.Write(dims[:])
		if s.Image != nil {
			h.Write(s.Image)
		} else if s.Ref != "" {
			h.Write([]byte(s.Ref))
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
