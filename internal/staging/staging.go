// Package staging implements the content-addressed file cache that holds
// clipboard payloads too large to inline. Artifacts are named by content
// hash, so identical payloads resolve to the same path across restarts. The
// filesystem is the source of truth; the in-memory index only skips repeat
// work and is never trusted without a liveness check.
package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.klb.dev/clipstage/internal/snapshot"
)

const (
	// DefaultDirName is the staging directory created under os.TempDir.
	DefaultDirName = "clipstage"

	// DefaultCleanupInterval is how often the eviction cycle runs.
	DefaultCleanupInterval = 15 * time.Minute

	// DefaultMaxAge is how long an artifact survives untouched.
	DefaultMaxAge = 15 * time.Minute
)

// Artifact is one staged payload. Identity is the content hash; an artifact
// is immutable after creation except for deletion by eviction.
type Artifact struct {
	Hash          string
	Path          string
	Size          int
	Kind          snapshot.Kind
	CreatedAt     time.Time
	ThumbnailPath string
}

// Config tunes a Store.
type Config struct {
	Dir             string
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func (c *Config) defaults() {
	if c.Dir == "" {
		c.Dir = filepath.Join(os.TempDir(), DefaultDirName)
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
}

// Store is a content-addressed staging cache.
type Store struct {
	cfg Config

	// mu guards index only, never held across file I/O.
	mu    sync.Mutex
	index map[string]Artifact
}

// New returns a Store. The staging directory is created lazily on first
// stage, not here.
func New(cfg Config) *Store {
	cfg.defaults()
	return &Store{cfg: cfg, index: make(map[string]Artifact)}
}

// Dir returns the staging directory path.
func (s *Store) Dir() string { return s.cfg.Dir }

// Stage writes payload to the staging directory under its content-derived
// name and returns the artifact. Identical (payload, kind) pairs always
// resolve to the same path with exactly one disk write; an index hit whose
// backing file has been evicted is treated as a miss and re-staged.
func (s *Store) Stage(payload []byte, kind snapshot.Kind) (Artifact, error) {
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	path := filepath.Join(s.cfg.Dir, fmt.Sprintf("clip-%s.%s", hash[:8], kind.Ext()))

	s.mu.Lock()
	cached, ok := s.index[hash]
	s.mu.Unlock()
	if ok {
		if _, err := os.Stat(cached.Path); err == nil {
			slog.Debug("staging cache hit", "path", cached.Path)
			return cached, nil
		}
		// Evicted underneath us, fall through and re-stage.
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o700); err != nil {
		return Artifact{}, fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	slog.Info("staged artifact", "path", path, "bytes", len(payload), "kind", kind)

	art := Artifact{
		Hash:      hash,
		Path:      path,
		Size:      len(payload),
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	if kind.Raster() {
		thumb, err := writeThumbnail(s.cfg.Dir, hash[:8], payload)
		if err != nil {
			slog.Warn("thumbnail generation failed", "path", path, "err", err)
		} else {
			art.ThumbnailPath = thumb
		}
	}

	s.mu.Lock()
	s.index[hash] = art
	s.mu.Unlock()

	return art, nil
}

// RunEviction runs the periodic eviction cycle until ctx is cancelled.
func (s *Store) RunEviction(ctx context.Context) {
	t := time.NewTicker(s.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.evict()
		}
	}
}

// evict removes on-disk files older than MaxAge and prunes matching index
// entries. A failure on one file never aborts the rest of the cycle.
func (s *Store) evict() {
	slog.Debug("staging eviction cycle")
	now := time.Now()

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("read staging dir failed", "dir", s.cfg.Dir, "err", err)
		}
	} else {
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= s.cfg.MaxAge {
				continue
			}
			path := filepath.Join(s.cfg.Dir, entry.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("evict file failed", "path", path, "err", err)
			} else {
				slog.Info("evicted stale artifact", "path", path)
			}
		}
	}

	s.mu.Lock()
	for hash, art := range s.index {
		if now.Sub(art.CreatedAt) > s.cfg.MaxAge {
			delete(s.index, hash)
		}
	}
	s.mu.Unlock()
}
