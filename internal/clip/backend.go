package clip

import (
	"log/slog"

	"golang.design/x/clipboard"
)

// New returns the system clipboard backend, or a headless no-op backend when
// the display environment is unavailable (headless servers, containers, CI).
// clipboard.Init is called here rather than in init() so that CLI
// sub-commands that never touch the clipboard don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return &headlessBackend{}
	}
	return &systemBackend{}
}

// systemBackend reads and writes the OS clipboard via golang.design/x/clipboard,
// which hands images back and forth as encoded PNG on every platform.
type systemBackend struct{}

func (*systemBackend) Name() string      { return "system clipboard" }
func (*systemBackend) ReadText() []byte  { return clipboard.Read(clipboard.FmtText) }
func (*systemBackend) ReadImage() []byte { return clipboard.Read(clipboard.FmtImage) }

func (*systemBackend) WriteText(data []byte) error {
	clipboard.Write(clipboard.FmtText, data)
	return nil
}

func (*systemBackend) WriteImage(data []byte) error {
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

func (*systemBackend) Close() {}

// headlessBackend is a no-op backend for environments without a display
// server. Reads see an empty clipboard and writes are silently discarded.
type headlessBackend struct{}

func (*headlessBackend) Name() string              { return "headless (no-op)" }
func (*headlessBackend) ReadText() []byte          { return nil }
func (*headlessBackend) ReadImage() []byte         { return nil }
func (*headlessBackend) WriteText(_ []byte) error  { return nil }
func (*headlessBackend) WriteImage(_ []byte) error { return nil }
func (*headlessBackend) Close()                    {}
