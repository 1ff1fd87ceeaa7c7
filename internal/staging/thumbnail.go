package staging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// thumbnailBound is the maximum edge length of a generated thumbnail.
const thumbnailBound = 256

// writeThumbnail decodes payload, scales it to fit within
// thumbnailBound×thumbnailBound preserving aspect ratio, and writes it as
// <hash8>.thumb.png next to the artifact. Images already inside the bound
// are re-encoded at their native size.
func writeThumbnail(dir, hash8 string, payload []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return "", fmt.Errorf("empty image (%dx%d)", w, h)
	}
	tw, th := w, h
	if w > thumbnailBound || h > thumbnailBound {
		if w >= h {
			tw = thumbnailBound
			th = h * thumbnailBound / w
		} else {
			th = thumbnailBound
			tw = w * thumbnailBound / h
		}
		if tw < 1 {
			tw = 1
		}
		if th < 1 {
			th = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	path := filepath.Join(dir, hash8+".thumb.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	return path, nil
}
