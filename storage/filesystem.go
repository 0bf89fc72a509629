package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dicomnet/dicomnet/errors"
)

// FilesystemBackend stores objects as files under a configured root
// directory. Keys use forward slashes; they are translated to the host
// path separator on every operation and are never allowed to escape
// root via ".." traversal.
type FilesystemBackend struct {
	root string
}

// NewFilesystemBackend returns a backend rooted at root. The directory
// is created if it does not already exist.
func NewFilesystemBackend(root string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating root %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolving root %s: %w", root, err)
	}
	return &FilesystemBackend{root: abs}, nil
}

func (b *FilesystemBackend) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(key))
	full := filepath.Join(b.root, clean)
	if full != b.root && !strings.HasPrefix(full, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: key %q escapes root", key)
	}
	return full, nil
}

// Get implements Backend.
func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	return data, nil
}

// Put implements Backend.
func (b *FilesystemBackend) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, err)
	}
	return nil
}

// List implements Backend. It performs a recursive filesystem walk
// rooted at prefix and emits regular files whose relative path contains
// no leading "./".
func (b *FilesystemBackend) List(ctx context.Context, prefix string) <-chan Entry {
	out := make(chan Entry)
	go func() {
		defer close(out)
		start, err := b.resolve(prefix)
		if err != nil {
			out <- Entry{Err: err}
			return
		}
		walkErr := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				if os.IsNotExist(err) && path == start {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(b.root, path)
			if relErr != nil {
				return relErr
			}
			key := filepath.ToSlash(rel)
			key = strings.TrimPrefix(key, "./")
			select {
			case out <- Entry{Key: key}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil && walkErr != ctx.Err() {
			out <- Entry{Err: fmt.Errorf("%w: %v", errors.ErrBackendUnavailable, walkErr)}
		}
	}()
	return out
}
