package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/egaebel-mixpanel/evals/compress"
	"github.com/egaebel-mixpanel/evals/format/jsonl"
	"github.com/egaebel-mixpanel/evals/internal/logx"
)

// recordSuffix marks files the directory expansion considers record files.
// A codec suffix may follow it: a.jsonl, a.jsonl.gz, a.jsonl.lz4, a.jsonl.zst.
const recordSuffix = ".jsonl"

func isRecordFile(name string) bool {
	return strings.HasSuffix(compress.TrimSuffix(name), recordSuffix)
}

// IterOption configures an iteration.
type IterOption func(*iterConfig)

type iterConfig struct {
	limit int
}

// WithLimit caps the total number of records yielded across all paths,
// directories and files of one iteration combined. Once the cap is
// reached no further file is opened and no further line is read. A
// negative limit means unlimited; zero yields nothing.
func WithLimit(n int) IterOption {
	return func(c *iterConfig) {
		c.limit = n
	}
}

// Iter walks the given paths in order and produces one lazy sequence of
// records spanning all of them. A directory path expands to its
// record-suffixed children in the backend's listing order; child
// directories expand recursively, one level at a time, as the consumer
// pulls. At most one file is open at any moment, and a consumer that
// stops early leaves later files unopened.
//
// The sequence yields (Record, nil) pairs until either input is exhausted
// or an error occurs; an error is yielded once and ends the traversal.
// Records already delivered stay delivered.
func (o *Opener) Iter(ctx context.Context, paths []string, opts ...IterOption) iter.Seq2[Record, error] {
	cfg := iterConfig{limit: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(Record, error) bool) {
		remaining := cfg.limit
		for _, p := range paths {
			if remaining == 0 {
				return
			}
			// The fallback rewrite happens here, exactly once per input
			// path; expansion below works on final paths only.
			if !o.iterTree(ctx, Resolve(p, o.dataRoot).Path, &remaining, yield) {
				return
			}
		}
	}
}

// iterTree expands one already-resolved path: directories recurse, files
// stream. Returns false when the consumer stopped or an error was yielded.
func (o *Opener) iterTree(ctx context.Context, path string, remaining *int, yield func(Record, error) bool) bool {
	isDir, err := o.backend.IsDir(ctx, path)
	if err != nil {
		yield(Record{Path: path}, &OpenError{Path: path, Err: err})
		return false
	}
	if !isDir {
		return o.iterFile(ctx, path, remaining, yield)
	}

	names, err := o.backend.List(ctx, path)
	if err != nil {
		yield(Record{Path: path}, &OpenError{Path: path, Err: err})
		return false
	}

	for _, name := range names {
		if *remaining == 0 {
			return true
		}

		child := joinPath(path, name)
		childDir, err := o.backend.IsDir(ctx, child)
		if err != nil {
			yield(Record{Path: child}, &OpenError{Path: child, Err: err})
			return false
		}
		switch {
		case childDir:
			if !o.iterTree(ctx, child, remaining, yield) {
				return false
			}
		case isRecordFile(name):
			if !o.iterFile(ctx, child, remaining, yield) {
				return false
			}
		}
	}
	return true
}

// iterFile streams one record file line by line. The budget is checked
// before the open and before every line, and decremented at the single
// yield point.
func (o *Opener) iterFile(ctx context.Context, path string, remaining *int, yield func(Record, error) bool) bool {
	if *remaining == 0 {
		return true
	}

	logx.Logger().Debug().Str("path", path).Msg("fetching")

	rc, err := o.openResolved(ctx, path)
	if err != nil {
		yield(Record{Path: path}, &OpenError{Path: path, Err: err})
		return false
	}
	r := jsonl.NewReader(rc)
	// Closes codec wrapper then base stream, on every exit path.
	defer func() { _ = r.Close() }()

	for *remaining != 0 {
		line, err := r.Read()
		if err == io.EOF {
			return true
		}
		if err != nil {
			yield(Record{Path: path}, &OpenError{Path: path, Err: err})
			return false
		}

		value, err := DecodeRecord(line, path, r.Line())
		if err != nil {
			yield(Record{Path: path, Line: r.Line()}, err)
			return false
		}
		if !yield(Record{Path: path, Line: r.Line(), Value: value}, nil) {
			return false
		}
		if *remaining > 0 {
			*remaining--
		}
	}
	return true
}

// joinPath appends a child name to a directory path without collapsing
// URI schemes the way path.Join would.
func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

// Records materializes Iter into an ordered slice.
func (o *Opener) Records(ctx context.Context, paths []string, opts ...IterOption) ([]Record, error) {
	var out []Record
	for rec, err := range o.Iter(ctx, paths, opts...) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Values materializes Iter into the decoded values only.
func (o *Opener) Values(ctx context.Context, paths []string, opts ...IterOption) ([]any, error) {
	var out []any
	for rec, err := range o.Iter(ctx, paths, opts...) {
		if err != nil {
			return out, err
		}
		out = append(out, rec.Value)
	}
	return out, nil
}

// JSONL reads all records from a single path, which may be a record file
// or a directory of them.
func (o *Opener) JSONL(ctx context.Context, path string, opts ...IterOption) ([]any, error) {
	return o.Values(ctx, []string{path}, opts...)
}

// JSON reads a whole file as one JSON document. Directories are rejected
// with ErrIsDirectory: only files are supported.
func (o *Opener) JSON(ctx context.Context, path string) (any, error) {
	resolved := Resolve(path, o.dataRoot)

	isDir, err := o.backend.IsDir(ctx, resolved.Path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	if isDir {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	logx.Logger().Debug().Str("path", resolved.Path).Msg("fetching")

	rc, err := o.openResolved(ctx, resolved.Path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &DecodeError{Path: resolved.Path, Line: 1, Column: errColumn(err), Msg: err.Error(), Err: err}
	}
	return v, nil
}

// Lines returns the raw text lines of a single file through the
// transparent opener, without JSON decoding.
func (o *Opener) Lines(ctx context.Context, path string) ([]string, error) {
	rc, err := o.OpenRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []string
	r := jsonl.NewReader(rc)
	for {
		line, err := r.Read()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, &OpenError{Path: path, Err: err}
		}
		lines = append(lines, string(line))
	}
}

// Iter iterates paths with the default opener.
func Iter(ctx context.Context, paths []string, opts ...IterOption) iter.Seq2[Record, error] {
	o, err := DefaultOpener()
	if err != nil {
		return func(yield func(Record, error) bool) {
			yield(Record{}, err)
		}
	}
	return o.Iter(ctx, paths, opts...)
}

// Records materializes paths with the default opener.
func Records(ctx context.Context, paths []string, opts ...IterOption) ([]Record, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.Records(ctx, paths, opts...)
}

// Values materializes paths with the default opener.
func Values(ctx context.Context, paths []string, opts ...IterOption) ([]any, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.Values(ctx, paths, opts...)
}

// JSONL reads a single path with the default opener.
func JSONL(ctx context.Context, path string, opts ...IterOption) ([]any, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.JSONL(ctx, path, opts...)
}

// JSON reads a whole JSON document with the default opener.
func JSON(ctx context.Context, path string) (any, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.JSON(ctx, path)
}

// Lines reads raw lines with the default opener.
func Lines(ctx context.Context, path string) ([]string, error) {
	o, err := DefaultOpener()
	if err != nil {
		return nil, err
	}
	return o.Lines(ctx, path)
}
