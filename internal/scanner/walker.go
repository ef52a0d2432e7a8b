package scanner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

var errFileSystemLoop = errors.New("file system loop")

// Walker traverses the filesystem and discovers files.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new walker.
func NewWalker(logger *slog.Logger) *Walker {
	return &Walker{
		logger: logger,
	}
}

// WalkResult represents a file discovered during walking. When Error is set,
// Path names the entry that could not be visited and nothing below it was walked.
type WalkResult struct {
	Error error
	Path  string
}

// dirKey identifies a directory independent of the path used to reach it.
type dirKey struct {
	path string
	dev  uint64
	ino  uint64
}

// Walk traverses a directory depth-first in lexical order and streams every
// regular file. Symbolic links are followed; a link back to a directory that
// is already being walked is reported as an error and not descended.
// Hidden files are included.
//
// The channel closes when the walk is complete or ctx is canceled.
func (w *Walker) Walk(ctx context.Context, rootPath string) <-chan WalkResult {
	results := make(chan WalkResult, 100)

	go func() {
		defer close(results)

		rootKey, err := dirIdentity(rootPath)
		if err != nil {
			w.logger.Error("cannot identify walk root", "root", rootPath, "error", err)
			_ = send(ctx, results, WalkResult{
				Path:  rootPath,
				Error: apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: stat", rootPath),
			})
			return
		}

		ancestors := map[dirKey]bool{rootKey: true}
		err = w.walkDir(ctx, rootPath, ancestors, results)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error("walk failed", "root", rootPath, "error", err)
		}
	}()

	return results
}

func (w *Walker) walkDir(ctx context.Context, dir string, ancestors map[dirKey]bool, results chan<- WalkResult) error {
	// ReadDir returns the entries it managed to read alongside the error.
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("cannot read directory", "path", dir, "error", err)
		if err := send(ctx, results, WalkResult{
			Path:  dir,
			Error: apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: read directory", dir),
		}); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, entry.Name())

		// Stat follows symlinks.
		info, err := os.Stat(path)
		if err != nil {
			w.logger.Warn("cannot stat entry", "path", path, "error", err)
			if err := send(ctx, results, WalkResult{
				Path:  path,
				Error: apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: stat", path),
			}); err != nil {
				return err
			}
			continue
		}

		if info.IsDir() {
			key, err := dirIdentity(path)
			if err != nil {
				w.logger.Warn("cannot identify directory", "path", path, "error", err)
				if err := send(ctx, results, WalkResult{
					Path:  path,
					Error: apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: stat", path),
				}); err != nil {
					return err
				}
				continue
			}
			if ancestors[key] {
				w.logger.Warn("skipping directory loop", "path", path)
				if err := send(ctx, results, WalkResult{
					Path:  path,
					Error: apperrors.Wrapf(errFileSystemLoop, apperrors.CodeIOFailure, "%s: symbolic link loop", path),
				}); err != nil {
					return err
				}
				continue
			}

			ancestors[key] = true
			err = w.walkDir(ctx, path, ancestors, results)
			delete(ancestors, key)
			if err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		if err := send(ctx, results, WalkResult{Path: path}); err != nil {
			return err
		}
	}

	return nil
}

func send(ctx context.Context, results chan<- WalkResult, r WalkResult) error {
	select {
	case results <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
