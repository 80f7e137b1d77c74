// Package jsonl frames newline-delimited JSON records over byte streams.
package jsonl

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/egaebel-mixpanel/evals/jsonutil"
)

const (
	// DefaultBufferSize is the initial scanner/writer buffer size.
	DefaultBufferSize = 64 * 1024

	// DefaultMaxLineSize caps how long a single record line may be.
	DefaultMaxLineSize = 16 * 1024 * 1024
)

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("jsonl: writer closed")

// Writer writes records one per line to an underlying byte stream.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
	closed bool
}

// NewWriter creates a JSONL writer over w. The writer will be closed when
// the JSONL writer is closed.
func NewWriter(w io.WriteCloser) *Writer {
	return NewWriterSize(w, DefaultBufferSize)
}

// NewWriterSize creates a JSONL writer with the given buffer size.
func NewWriterSize(w io.WriteCloser, bufferSize int) *Writer {
	return &Writer{
		w:      bufio.NewWriterSize(w, bufferSize),
		closer: w,
	}
}

// Write writes a single pre-encoded record line. Trailing whitespace and
// newlines are trimmed before the delimiter is added.
func (w *Writer) Write(data []byte) error {
	if w.closed {
		return ErrWriterClosed
	}

	data = bytes.TrimRight(data, " \t\r\n")
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// WriteValue encodes v as one JSON line. Values are normalized first
// (structs and typed maps become plain JSON trees).
func (w *Writer) WriteValue(v any) error {
	if w.closed {
		return ErrWriterClosed
	}

	data, err := jsonutil.Marshal(v)
	if err != nil {
		return err
	}
	return w.Write(data)
}

// Flush flushes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrWriterClosed
	}
	return w.w.Flush()
}

// Close flushes remaining data and closes the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.w.Flush(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}
