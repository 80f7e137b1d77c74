package zstd

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Reader wraps an io.ReadCloser with zstd decompression.
// Close releases the decoder first, then the underlying reader.
type Reader struct {
	zr     *zstd.Decoder
	closer io.Closer
	closed bool
}

// NewReader creates a zstd reader that decompresses data from r.
func NewReader(r io.ReadCloser) (*Reader, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{zr: zr, closer: r}, nil
}

func (r *Reader) Read(p []byte) (n int, err error) {
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	return r.zr.Read(p)
}

// Close releases the decoder, then closes the underlying reader.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	// Decoder.Close never returns an error.
	r.zr.Close()
	return r.closer.Close()
}

var _ io.ReadCloser = (*Reader)(nil)
