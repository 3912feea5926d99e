// Package staging manages the transient on-disk area that holds raw uploads
// and their derivatives while a single request is being processed. Files are
// given collision-resistant names so concurrent requests never collide, and
// release is idempotent so the orchestrator can call it on every exit path.
package staging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes inbound payloads to a staging directory and deletes them
// once the owning job reaches a terminal state.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir, creating the directory if it is absent.
// If dir is empty, a "media-ingest" directory under os.TempDir() is used.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "media-ingest")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the staging directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Stage writes the payload to a uniquely named file in the staging directory
// and returns its path. The original extension is preserved on the generated
// name so downstream tooling can sniff the container format.
func (s *Store) Stage(ctx context.Context, data io.Reader, originalExt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := uuid.NewString() + normalizeExt(originalExt)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) // #nosec G304 - name is generated, not user input
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}

	return path, nil
}

// Release deletes each path if it exists. Already-absent files are a no-op,
// so calling Release twice, or with a partially cleaned set, is always safe.
// Deletion continues past individual failures; the first error is returned.
func (s *Store) Release(ctx context.Context, paths ...string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to release staged file",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("release staged file %s: %w", filepath.Base(p), err)
			}
		}
	}
	return firstErr
}

// normalizeExt lowercases the extension and ensures a leading dot.
// An empty extension stays empty.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
