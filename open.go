package evals

import (
	"context"
	"io"
	"sync"

	"github.com/egaebel-mixpanel/evals/compress"
)

// Opener opens record files transparently: it resolves the path (data-root
// fallback for bare relative filenames), obtains the base byte stream from
// its backend, and layers the codec selected by the filename suffix on
// top. Closing the returned stream unwinds the codec wrapper first, then
// the backend handle, on every exit path.
type Opener struct {
	backend  Backend
	dataRoot string
}

// OpenerOption configures an Opener.
type OpenerOption func(*Opener)

// WithDataRoot overrides the fallback directory for bare relative
// filenames. Defaults to EVALS_DATA_ROOT or DefaultDataRoot.
func WithDataRoot(dir string) OpenerOption {
	return func(o *Opener) {
		o.dataRoot = dir
	}
}

// NewOpener creates an Opener over the given backend.
func NewOpener(backend Backend, opts ...OpenerOption) *Opener {
	o := &Opener{backend: backend}
	for _, opt := range opts {
		opt(o)
	}
	if o.dataRoot == "" {
		o.dataRoot = DataRoot()
	}
	return o
}

// Backend returns the backend this opener reads from.
func (o *Opener) Backend() Backend { return o.backend }

// OpenRead resolves path and opens it for reading, decompressing on the
// fly if the filename carries a codec suffix. Any failure is reported as
// an *OpenError carrying the path as the caller wrote it.
func (o *Opener) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := o.openResolved(ctx, Resolve(path, o.dataRoot).Path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return rc, nil
}

// openResolved opens an already-resolved path for reading. Child paths
// produced by directory expansion come here directly so the data-root
// rewrite is never applied twice.
func (o *Opener) openResolved(ctx context.Context, path string) (io.ReadCloser, error) {
	base, err := o.backend.NewReader(ctx, path)
	if err != nil {
		return nil, err
	}

	// Codec selection is positional: the suffix survives the data-root
	// rewrite unchanged, so the final name works here too.
	rc, err := compress.ForFilename(path).WrapReader(base)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return rc, nil
}

// OpenWrite resolves path and opens it for writing, compressing on the
// fly if the filename carries a codec suffix.
func (o *Opener) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	resolved := Resolve(path, o.dataRoot)

	base, err := o.backend.NewWriter(ctx, resolved.Path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	wc, err := compress.ForFilename(resolved.Path).WrapWriter(base)
	if err != nil {
		_ = base.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	return wc, nil
}

var defaultOpener = sync.OnceValues(func() (*Opener, error) {
	backend, err := Open("file", nil)
	if err != nil {
		return nil, err
	}
	return NewOpener(backend), nil
})

// DefaultOpener returns a process-wide Opener over the "file" backend.
// The backend package must be linked in for its registration:
//
//	import _ "github.com/egaebel-mixpanel/evals/backend/file"
func DefaultOpener() (*Opener, error) {
	return defaultOpener()
}

// OpenRead opens a path for reading with the default opener.
func OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.OpenRead(ctx, path)
}

// OpenWrite opens a path for writing with the default opener.
func OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.OpenWrite(ctx, path)
}
