// Package alias maintains the rotating set of stable-named symlinks that
// expose staged artifacts to external tools. Each staged artifact gets a
// timestamp-suffixed numbered alias plus a fixed "latest" alias per kind;
// rotation bounds the numbered set to the newest K.
package alias

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultKeep is the number of numbered aliases retained per kind.
const DefaultKeep = 5

// timestampLayout is second-resolution local time, e.g. 20260829-154210.
const timestampLayout = "20060102-150405"

// Rotator creates and prunes aliases under a single directory.
type Rotator struct {
	dir    string
	prefix string
	keep   int

	now func() time.Time // test hook
}

// NewRotator returns a Rotator for dir with the given alias prefix.
// keep <= 0 selects DefaultKeep.
func NewRotator(dir, prefix string, keep int) *Rotator {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Rotator{dir: dir, prefix: prefix, keep: keep, now: time.Now}
}

// Create makes a timestamp-suffixed symlink to target and refreshes the
// fixed "latest" alias for ext to point at the same target. External readers
// may transiently observe the old or new "latest" during the swap; that
// window is accepted. When two artifacts land within the same second the
// numbered name gets an ordinal suffix so the second event still aliases.
func (r *Rotator) Create(target, ext string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create alias dir: %w", err)
	}

	stamp := r.now().Format(timestampLayout)
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.%s", r.prefix, stamp, ext))
	for n := 1; ; n++ {
		err := os.Symlink(target, path)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create alias: %w", err)
		}
		path = filepath.Join(r.dir, fmt.Sprintf("%s-%s-%d.%s", r.prefix, stamp, n, ext))
	}

	latest := filepath.Join(r.dir, fmt.Sprintf("%s.%s", r.prefix, ext))
	_ = os.Remove(latest)
	if err := os.Symlink(target, latest); err != nil {
		return "", fmt.Errorf("update latest alias: %w", err)
	}

	slog.Debug("alias created", "alias", path, "target", target)
	return path, nil
}

// Latest returns the path of the fixed "latest" alias for ext.
func (r *Rotator) Latest(ext string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.%s", r.prefix, ext))
}

// Rotate prunes numbered aliases for ext down to the newest keep entries.
// Only genuine symlinks matching the prefix are considered; deletion
// failures are logged and never block the rest of the pass.
func (r *Rotator) Rotate(ext string) error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read alias dir: %w", err)
	}

	type link struct {
		path    string
		name    string
		modTime time.Time
	}
	var links []link

	numberedPrefix := r.prefix + "-"
	suffix := "." + ext
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, numberedPrefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		path := filepath.Join(r.dir, name)
		info, err := os.Lstat(path)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		links = append(links, link{path: path, name: name, modTime: info.ModTime()})
	}

	// Newest first; the timestamped name breaks mtime ties.
	sort.Slice(links, func(i, j int) bool {
		if !links[i].modTime.Equal(links[j].modTime) {
			return links[i].modTime.After(links[j].modTime)
		}
		return links[i].name > links[j].name
	})

	for _, l := range links[min(r.keep, len(links)):] {
		if err := os.Remove(l.path); err != nil {
			slog.Warn("remove old alias failed", "alias", l.path, "err", err)
		} else {
			slog.Debug("removed old alias", "alias", l.path)
		}
	}
	return nil
}
