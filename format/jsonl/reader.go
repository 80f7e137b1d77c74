package jsonl

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrReaderClosed is returned when reading from a closed reader.
var ErrReaderClosed = errors.New("jsonl: reader closed")

// Reader reads one JSON line at a time from an underlying byte stream.
// Blank lines are skipped, but still counted: Line reports the physical
// 1-based line number of the last line returned, so positional error
// context stays accurate.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	closed  bool
}

// NewReader creates a JSONL reader over r. The reader will be closed when
// the JSONL reader is closed.
func NewReader(r io.ReadCloser) *Reader {
	return NewReaderSize(r, DefaultBufferSize, DefaultMaxLineSize)
}

// NewReaderSize creates a JSONL reader with the given initial buffer size
// and maximum line length.
func NewReaderSize(r io.ReadCloser, bufferSize, maxLineSize int) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, bufferSize), maxLineSize)
	return &Reader{
		scanner: scanner,
		closer:  r,
	}
}

// Read returns the next non-blank line. It returns io.EOF when no more
// lines are available. The returned slice is a copy and remains valid
// across calls.
func (r *Reader) Read() ([]byte, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}

	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// Copy: the scanner reuses its buffer.
		result := make([]byte, len(line))
		copy(result, line)
		return result, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Line returns the 1-based line number of the last line returned by Read,
// or 0 before the first Read.
func (r *Reader) Line() int { return r.line }

// Close releases the underlying stream.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.closer.Close()
}

var _ io.Closer = (*Reader)(nil)
