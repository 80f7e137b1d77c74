// Package lz4 wraps byte streams with LZ4 frame compression for record
// files carrying the ".lz4" suffix, backed by pierrec/lz4.
package lz4

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// Reader wraps an io.ReadCloser with LZ4 frame decompression.
// Close releases the underlying reader; the LZ4 stream itself holds no
// resources of its own.
type Reader struct {
	lr     *lz4.Reader
	closer io.Closer
	closed bool
}

// NewReader creates an LZ4 reader that decompresses data from r.
func NewReader(r io.ReadCloser) *Reader {
	return &Reader{lr: lz4.NewReader(r), closer: r}
}

func (r *Reader) Read(p []byte) (n int, err error) {
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	return r.lr.Read(p)
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.closer.Close()
}

// Writer wraps an io.WriteCloser with LZ4 frame compression.
type Writer struct {
	lw     *lz4.Writer
	closer io.Closer
	closed bool
}

// NewWriter creates an LZ4 writer with default options.
func NewWriter(w io.WriteCloser) *Writer {
	return &Writer{lw: lz4.NewWriter(w), closer: w}
}

// NewWriterLevel creates an LZ4 writer with the given compression level.
func NewWriterLevel(w io.WriteCloser, level lz4.CompressionLevel) (*Writer, error) {
	lw := lz4.NewWriter(w)
	if err := lw.Apply(lz4.CompressionLevelOption(level)); err != nil {
		return nil, err
	}
	return &Writer{lw: lw, closer: w}, nil
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.lw.Write(p)
}

// Flush flushes any pending compressed data.
func (w *Writer) Flush() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	return w.lw.Flush()
}

// Close finalizes the LZ4 frame and closes the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.lw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

var (
	_ io.ReadCloser  = (*Reader)(nil)
	_ io.WriteCloser = (*Writer)(nil)
)
