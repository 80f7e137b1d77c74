// Package evals provides a unified streaming access layer for record files:
// newline-delimited JSON, optionally compressed (gzip, LZ4, zstd), stored on
// local disk or remote object storage, addressed by plain paths or URIs.
//
// Paths that look like bare relative filenames and do not exist locally are
// resolved against a data root directory (see Resolve). Compression is
// detected purely by filename suffix. Directories expand recursively into
// their contained .jsonl files.
//
// Basic usage:
//
//	backend := file.New(file.Config{})
//	opener := evals.NewOpener(backend)
//	for rec, err := range opener.Iter(ctx, []string{"corpus/"}, evals.WithLimit(100)) {
//		if err != nil {
//			return err
//		}
//		process(rec.Value)
//	}
package evals

import (
	"context"
	"io"
)

// Backend represents a storage backend (local filesystem, S3, SFTP, etc.).
// Implementations handle raw byte transport to/from storage; compression,
// record framing and decoding are layered on top by Opener.
//
// Backends are safe for concurrent use by multiple goroutines.
// All methods accept a context.Context for cancellation and timeouts.
type Backend interface {
	// NewReader creates a reader for the given path/key.
	// Returns ErrNotFound if the path does not exist.
	// The returned reader must be closed after use.
	NewReader(ctx context.Context, path string, opts ...ReaderOption) (io.ReadCloser, error)

	// NewWriter creates a writer for the given path/key.
	// The returned writer must be closed after use to ensure
	// all data is flushed and resources are released.
	//
	// The path format depends on the backend:
	//   - File backend: filesystem path, optionally relative to a root
	//   - S3 backend: object key
	//   - etc.
	NewWriter(ctx context.Context, path string, opts ...WriterOption) (io.WriteCloser, error)

	// Exists checks if a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// IsDir reports whether the path names a directory (or, for object
	// stores, an implicit prefix with children). Nonexistent paths report
	// false with a nil error.
	IsDir(ctx context.Context, path string) (bool, error)

	// List returns the names of the direct children of a directory path,
	// in whatever stable order the backend provides. Names are relative
	// to the listed directory; callers join them back onto the path.
	// Listing is a single level deep: traversal code recurses explicitly.
	List(ctx context.Context, path string) ([]string, error)

	// Close releases any resources held by the backend.
	// After Close, all other methods return ErrBackendClosed.
	Close() error
}
