// Package zstd wraps byte streams with Zstandard compression for record
// files carrying the ".zst" suffix, backed by klauspost/compress.
package zstd

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Writer wraps an io.WriteCloser with zstd compression.
type Writer struct {
	zw     *zstd.Encoder
	closer io.Closer
	closed bool
}

// NewWriter creates a zstd writer with the default compression level.
func NewWriter(w io.WriteCloser) (*Writer, error) {
	return NewWriterLevel(w, zstd.SpeedDefault)
}

// NewWriterLevel creates a zstd writer with the given encoder level.
func NewWriterLevel(w io.WriteCloser, level zstd.EncoderLevel) (*Writer, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, err
	}
	return &Writer{zw: zw, closer: w}, nil
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.zw.Write(p)
}

// Flush forces all written data through the encoder.
func (w *Writer) Flush() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	return w.zw.Flush()
}

// Close flushes remaining data and closes the encoder, then the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

var _ io.WriteCloser = (*Writer)(nil)
