package evals

import (
	"net/url"
	"os"
	"path/filepath"
)

// DefaultDataRoot is the directory bare relative filenames fall back to
// when they do not exist in the working directory. Overridable with the
// EVALS_DATA_ROOT environment variable or the WithDataRoot opener option.
const DefaultDataRoot = "registry/data"

// Resolution tags how a path was resolved.
type Resolution int

const (
	// ResolvedAsGiven means the path was used exactly as the caller wrote it.
	ResolvedAsGiven Resolution = iota

	// ResolvedUnderDataRoot means the path was a bare relative filename with
	// no local match and was rewritten to live under the data root.
	ResolvedUnderDataRoot
)

func (r Resolution) String() string {
	switch r {
	case ResolvedUnderDataRoot:
		return "under-data-root"
	default:
		return "as-given"
	}
}

// Resolved carries the final path handed to the backend, tagged with how
// it was derived.
type Resolved struct {
	Path string
	How  Resolution
}

// Resolve decides the final storage path for the given input path.
//
// The single rewriting rule: a relative path with no URI scheme (or the
// literal "file" scheme) that does not exist on the local filesystem is
// rewritten to live under dataRoot. Everything else (absolute paths,
// scheme'd URIs, paths that exist locally) passes through untouched,
// even if opening them will later fail.
//
// Resolve is called exactly once per input path, before any backend I/O;
// child paths produced by directory expansion are never re-resolved.
func Resolve(path, dataRoot string) Resolved {
	if dataRoot == "" {
		dataRoot = DataRoot()
	}

	if filepath.IsAbs(path) {
		return Resolved{Path: path, How: ResolvedAsGiven}
	}

	if u, err := url.Parse(path); err == nil && u.Scheme != "" && u.Scheme != "file" {
		return Resolved{Path: path, How: ResolvedAsGiven}
	}

	if _, err := os.Stat(path); err == nil {
		return Resolved{Path: path, How: ResolvedAsGiven}
	}

	return Resolved{
		Path: filepath.ToSlash(filepath.Join(dataRoot, path)),
		How:  ResolvedUnderDataRoot,
	}
}

// DataRoot returns the effective default data root: EVALS_DATA_ROOT when
// set, otherwise DefaultDataRoot.
func DataRoot() string {
	if v := os.Getenv("EVALS_DATA_ROOT"); v != "" {
		return v
	}
	return DefaultDataRoot
}
