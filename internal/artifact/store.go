// Package artifact stages inbound images on disk so the model client can
// reference them by path.
//
// The store keeps a single slot: each Put removes every earlier artifact that
// no in-flight event still holds. Leases keep a concurrent event's image in
// place until that event releases it.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/linerelay/internal/config"
)

const tempPrefix = "upload-"

// Artifact is one staged image.
type Artifact struct {
	// Name is the file name inside the storage directory.
	Name string
	// Path is the storage directory joined with Name. Load accepts it.
	Path string
	Size int64

	store *Store
	once  sync.Once
}

// Release drops the lease taken by Put. It is safe to call more than once.
func (a *Artifact) Release() {
	if a == nil || a.store == nil {
		return
	}
	a.once.Do(func() { a.store.release(a.Name) })
}

// Store manages the staging directory.
type Store struct {
	dir        string
	ext        string
	retainLast bool
	log        *slog.Logger

	mu     sync.Mutex
	leases map[string]int
}

// NewStore creates the storage directory if needed.
func NewStore(cfg config.ArtifactsConfig, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory %s: %w", cfg.Dir, err)
	}
	return &Store{
		dir:        filepath.Clean(cfg.Dir),
		ext:        "." + strings.TrimPrefix(cfg.Extension, "."),
		retainLast: cfg.RetainLast,
		log:        log.With("component", "artifact_store"),
		leases:     make(map[string]int),
	}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes data as a new artifact and purges every unleased artifact that
// came before it. The returned artifact is leased until Release is called.
// Failures to delete stale artifacts are logged and do not fail the call.
func (s *Store) Put(ctx context.Context, data []byte) (*Artifact, error) {
	if len(data) == 0 {
		return nil, ErrEmptyContent
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("%w: close temp file: %v", ErrWrite, err)
	}

	name := uuid.NewString() + s.ext
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("%w: rename: %v", ErrWrite, err)
	}
	s.leases[name]++

	s.purgeLocked(ctx, name)

	s.log.DebugContext(ctx, "Artifact stored", "name", name, "size", len(data))
	return &Artifact{Name: name, Path: path, Size: int64(len(data)), store: s}, nil
}

// purgeLocked removes every artifact except keep and those currently leased.
func (s *Store) purgeLocked(ctx context.Context, keep string) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+s.ext))
	if err != nil {
		s.log.WarnContext(ctx, "Failed to list artifacts for purge", "error", err)
		return
	}
	for _, m := range matches {
		name := filepath.Base(m)
		if name == keep || s.leases[name] > 0 {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.WarnContext(ctx, "Failed to remove stale artifact", "name", name, "error", err)
			continue
		}
		s.log.DebugContext(ctx, "Removed stale artifact", "name", name)
	}
}

func (s *Store) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.leases[name] > 1 {
		s.leases[name]--
		return
	}
	delete(s.leases, name)

	if s.retainLast {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("Failed to remove released artifact", "name", name, "error", err)
	}
}

// Load reads the artifact at path. The path must resolve to a file directly
// inside the storage directory.
func (s *Store) Load(path string) ([]byte, error) {
	name, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) && filepath.IsAbs(s.dir) {
		clean = filepath.Join(s.dir, clean)
	}
	rel, err := filepath.Rel(s.dir, clean)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	if filepath.Ext(rel) != s.ext {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return rel, nil
}

// Sweep removes unleased artifacts whose modification time is older than
// maxAge and returns how many were removed. Leftover temp files are removed
// as well.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read artifact directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := e.Name()
		if e.IsDir() || s.leases[name] > 0 {
			continue
		}
		if filepath.Ext(name) != s.ext && !strings.HasPrefix(name, tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.WarnContext(ctx, "Failed to sweep artifact", "name", name, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}
