package clip

import "log/slog"

// DualWriter is the optional capability a Backend may implement when the
// platform can present text and image on the clipboard simultaneously
// (terminal apps see the path, image apps see the pixels). None of the
// shipping backends implement it today; the capability check keeps the
// degradation explicit instead of scattering platform conditionals.
type DualWriter interface {
	WriteBoth(text, image []byte) error
}

// WriteStrategy rewrites the clipboard after an image has been staged.
// The variant is selected once at startup.
type WriteStrategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// WriteStaged places the staged artifact on the clipboard: the alias
	// path as text, plus the original image where the platform allows both.
	WriteStaged(path string, image []byte) error
}

// NewWriteStrategy selects the write strategy for a. When wantDual is set
// and the backend supports simultaneous presentation the dual-format
// strategy is used; otherwise the declared fallback overwrites the clipboard
// with the alias path as plain text.
func NewWriteStrategy(a *Accessor, wantDual bool) WriteStrategy {
	if wantDual {
		if dw, ok := a.b.(DualWriter); ok {
			return &dualFormat{a: a, dw: dw}
		}
		slog.Info("dual-format clipboard unsupported by backend, falling back to text-only",
			"backend", a.b.Name(),
		)
	}
	return &textOnly{a: a}
}

type dualFormat struct {
	a  *Accessor
	dw DualWriter
}

func (s *dualFormat) Name() string { return "dual-format" }

func (s *dualFormat) WriteStaged(path string, image []byte) error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	return s.dw.WriteBoth([]byte(path), image)
}

type textOnly struct {
	a *Accessor
}

func (s *textOnly) Name() string { return "text-only" }

func (s *textOnly) WriteStaged(path string, _ []byte) error {
	return s.a.WriteText(path)
}
