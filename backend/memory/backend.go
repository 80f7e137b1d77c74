// Package memory provides an in-memory backend.
//
// The memory backend is useful for:
//   - Unit testing without filesystem access
//   - Temporary fixtures and prototyping
//
// Directories are implicit: an object at "d/a.jsonl" makes "d" a
// directory. Data is lost when the backend is closed or the process exits.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/egaebel-mixpanel/evals"
)

func init() {
	evals.Register("memory", NewFromConfig)
}

// Backend implements evals.Backend backed by a map.
type Backend struct {
	objects     map[string][]byte
	closed      bool
	mu          sync.RWMutex
	readerOpens atomic.Int64
}

// New creates a memory backend.
func New() *Backend {
	return &Backend{objects: make(map[string][]byte)}
}

// NewFromConfig creates a memory backend from a config map.
// The memory backend ignores all configuration options.
func NewFromConfig(_ map[string]string) (evals.Backend, error) {
	return New(), nil
}

// Put stores an object directly, bypassing the writer path. Handy for
// test fixtures.
func (b *Backend) Put(path string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[normalizePath(path)] = append([]byte(nil), data...)
}

// ReaderOpens reports how many readers have been opened over the lifetime
// of the backend. Tests use it to verify that lazy traversal opens no
// more files than the truncation budget requires.
func (b *Backend) ReaderOpens() int64 {
	return b.readerOpens.Load()
}

// NewReader creates a reader for the given path.
func (b *Backend) NewReader(ctx context.Context, path string, opts ...evals.ReaderOption) (io.ReadCloser, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	data, exists := b.objects[normalizePath(path)]
	b.mu.RUnlock()

	if !exists {
		return nil, evals.ErrNotFound
	}
	b.readerOpens.Add(1)

	// Copy so later writes cannot race the reader.
	buf := append([]byte(nil), data...)

	config := evals.ApplyReaderOptions(opts...)
	if config.Offset > 0 {
		if config.Offset >= int64(len(buf)) {
			buf = nil
		} else {
			buf = buf[config.Offset:]
		}
	}
	if config.Limit > 0 && config.Limit < int64(len(buf)) {
		buf = buf[:config.Limit]
	}

	return io.NopCloser(bytes.NewReader(buf)), nil
}

// NewWriter creates a writer for the given path. The object becomes
// visible when the writer is closed.
func (b *Backend) NewWriter(ctx context.Context, path string, opts ...evals.WriterOption) (io.WriteCloser, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &memoryWriter{
		backend: b,
		path:    normalizePath(path),
		buffer:  &bytes.Buffer{},
	}, nil
}

// Exists checks if a path exists as an object.
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	if err := b.checkClosed(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[normalizePath(path)]
	return ok, nil
}

// IsDir reports whether any object lives under path.
func (b *Backend) IsDir(ctx context.Context, path string) (bool, error) {
	if err := b.checkClosed(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	prefix := normalizePath(path) + "/"

	b.mu.RLock()
	defer b.mu.RUnlock()
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// List returns the direct children of path in sorted order.
func (b *Backend) List(ctx context.Context, path string) ([]string, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := normalizePath(path) + "/"

	b.mu.RLock()
	seen := make(map[string]struct{})
	for key := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}
	b.mu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.objects = nil
	return nil
}

func (b *Backend) checkClosed() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return evals.ErrBackendClosed
	}
	return nil
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// memoryWriter buffers writes and commits the object on Close.
type memoryWriter struct {
	backend *Backend
	path    string
	buffer  *bytes.Buffer
	closed  bool
}

func (w *memoryWriter) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, evals.ErrWriterClosed
	}
	return w.buffer.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.backend.checkClosed(); err != nil {
		return err
	}

	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	w.backend.objects[w.path] = w.buffer.Bytes()
	return nil
}

var _ evals.Backend = (*Backend)(nil)
