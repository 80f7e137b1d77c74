// Package gzip wraps byte streams with gzip compression for record files
// carrying the ".gz" suffix.
package gzip

import (
	"compress/gzip"
	"io"
)

// Writer wraps an io.WriteCloser with gzip compression.
type Writer struct {
	gw     *gzip.Writer
	closer io.Closer
	closed bool
}

// NewWriter creates a gzip writer with the default compression level.
func NewWriter(w io.WriteCloser) (*Writer, error) {
	return NewWriterLevel(w, gzip.DefaultCompression)
}

// NewWriterLevel creates a gzip writer with the given compression level
// (one of the compress/gzip level constants).
func NewWriterLevel(w io.WriteCloser, level int) (*Writer, error) {
	gw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, err
	}
	return &Writer{gw: gw, closer: w}, nil
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.gw.Write(p)
}

// Flush flushes any pending compressed data.
func (w *Writer) Flush() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	return w.gw.Flush()
}

// Close flushes remaining data and closes the gzip stream, then the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.gw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

var _ io.WriteCloser = (*Writer)(nil)
