// Package file provides the local filesystem backend.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/egaebel-mixpanel/evals"
)

func init() {
	evals.Register("file", NewFromConfig)
}

// Config holds configuration for the file backend.
type Config struct {
	// Root is an optional directory all paths are taken relative to.
	// Empty means paths are used exactly as given (absolute or relative
	// to the working directory), stripping any "file://" prefix.
	Root string

	// DirPermissions is the permission mode for created directories.
	// Default: 0755
	DirPermissions os.FileMode

	// FilePermissions is the permission mode for created files.
	// Default: 0644
	FilePermissions os.FileMode
}

// Backend implements evals.Backend for the local filesystem.
type Backend struct {
	config Config
	closed bool
	mu     sync.RWMutex
}

// New creates a file backend with the given configuration.
func New(config Config) *Backend {
	if config.DirPermissions == 0 {
		config.DirPermissions = 0755
	}
	if config.FilePermissions == 0 {
		config.FilePermissions = 0644
	}
	return &Backend{config: config}
}

// NewFromConfig creates a file backend from a config map.
// Supported keys:
//   - root: optional root directory (default: none)
func NewFromConfig(configMap map[string]string) (evals.Backend, error) {
	config := Config{}
	if root, ok := configMap["root"]; ok {
		config.Root = root
	}
	return New(config), nil
}

// NewReader opens the file at path for reading.
func (b *Backend) NewReader(ctx context.Context, path string, opts ...evals.ReaderOption) (io.ReadCloser, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, evals.ErrNotFound
		}
		if os.IsPermission(err) {
			return nil, evals.ErrPermissionDenied
		}
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}

	config := evals.ApplyReaderOptions(opts...)

	if config.Offset > 0 {
		if _, err := f.Seek(config.Offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("seeking to offset %d: %w", config.Offset, err)
		}
	}

	if config.Limit > 0 {
		return &limitedReadCloser{
			r:      io.LimitReader(f, config.Limit),
			closer: f,
		}, nil
	}

	return f, nil
}

// NewWriter creates or truncates the file at path, creating parent
// directories as needed.
func (b *Backend) NewWriter(ctx context.Context, path string, opts ...evals.WriterOption) (io.WriteCloser, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := b.fullPath(path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, b.config.DirPermissions); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, b.config.FilePermissions)
	if err != nil {
		return nil, fmt.Errorf("creating file %s: %w", path, err)
	}
	return f, nil
}

// Exists checks if a path exists.
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	if err := b.checkClosed(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(b.fullPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking existence of %s: %w", path, err)
}

// IsDir reports whether path names a directory. Nonexistent paths report
// false with a nil error.
func (b *Backend) IsDir(ctx context.Context, path string) (bool, error) {
	if err := b.checkClosed(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// List returns the names of the direct children of a directory, in the
// order os.ReadDir reports them.
func (b *Backend) List(ctx context.Context, path string) ([]string, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(b.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, evals.ErrNotFound
		}
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// fullPath maps a backend path to a filesystem path.
func (b *Backend) fullPath(path string) string {
	path = strings.TrimPrefix(path, "file://")
	path = filepath.FromSlash(path)
	if b.config.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.config.Root, path)
}

// checkClosed returns an error if the backend is closed.
func (b *Backend) checkClosed() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return evals.ErrBackendClosed
	}
	return nil
}

// limitedReadCloser wraps a limited reader with a closer.
type limitedReadCloser struct {
	r      io.Reader
	closer io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (n int, err error) {
	return l.r.Read(p)
}

func (l *limitedReadCloser) Close() error {
	return l.closer.Close()
}

var _ evals.Backend = (*Backend)(nil)
