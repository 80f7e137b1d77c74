package gzip

import (
	"compress/gzip"
	"io"
)

// Reader wraps an io.ReadCloser with gzip decompression.
// Close releases the gzip stream first, then the underlying reader,
// regardless of whether the stream was fully drained.
type Reader struct {
	gr     *gzip.Reader
	closer io.Closer
	closed bool
}

// NewReader creates a gzip reader that decompresses data from r.
// It fails if r does not begin with a valid gzip header.
func NewReader(r io.ReadCloser) (*Reader, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{gr: gr, closer: r}, nil
}

func (r *Reader) Read(p []byte) (n int, err error) {
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	return r.gr.Read(p)
}

// Close closes the gzip stream, then the underlying reader.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.gr.Close(); err != nil {
		_ = r.closer.Close()
		return err
	}
	return r.closer.Close()
}

var _ io.ReadCloser = (*Reader)(nil)
