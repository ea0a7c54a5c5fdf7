// Package snapshot persists the dump of every known product as an indented
// JSON array, guarded by an advisory lock file next to it.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
)

const (
	// DefaultPath is the snapshot file used when none is configured.
	DefaultPath = "edge.json"

	lockTimeout = 30 * time.Second
	lockRetry   = time.Second
)

// Store reads and rewrites one snapshot file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}

	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file is an empty snapshot.
func (s *Store) Load(ctx context.Context) (*edge.DumpSet, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logctx.LoggerFromContext(ctx).Debug("no snapshot yet", "path", s.path)

		return &edge.DumpSet{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	set := &edge.DumpSet{}
	if len(bytes.TrimSpace(b)) == 0 {
		return set, nil
	}

	if err := json.Unmarshal(b, set); err != nil {
		return nil, &edge.ParseError{Field: "snapshot", Value: s.path, Err: err}
	}

	return set, nil
}

// Save rewrites the snapshot through a temporary file so readers never see a
// partial document.
func (s *Store) Save(ctx context.Context, set *edge.DumpSet) error {
	b, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()

		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	logctx.LoggerFromContext(ctx).Info("snapshot saved", "path", s.path, "records", set.Len())

	return nil
}

// Update loads the snapshot, passes it to fn and saves the result while
// holding the lock file.
func (s *Store) Update(ctx context.Context, fn func(existing *edge.DumpSet) (*edge.DumpSet, error)) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	fileLock := flock.New(s.path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetry)
	if err != nil {
		return fmt.Errorf("failed to lock snapshot: %w", err)
	}

	if !locked {
		return fmt.Errorf("snapshot %s is locked by another process", s.path)
	}
	defer fileLock.Unlock()

	existing, err := s.Load(ctx)
	if err != nil {
		return err
	}

	next, err := fn(existing)
	if err != nil {
		return err
	}

	return s.Save(ctx, next)
}
