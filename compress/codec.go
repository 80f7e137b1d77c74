// Package compress selects and applies whole-file compression codecs by
// filename suffix: ".gz" (gzip), ".lz4" (LZ4 frame), ".zst" (Zstandard).
// Any other suffix maps to Identity: files without a recognized suffix are
// assumed uncompressed, which is intentional rather than an error.
package compress

import (
	"io"
	"strings"

	"github.com/egaebel-mixpanel/evals/compress/gzip"
	"github.com/egaebel-mixpanel/evals/compress/lz4"
	"github.com/egaebel-mixpanel/evals/compress/zstd"
)

// Codec identifies a whole-file compression scheme.
type Codec int

const (
	// Identity is the no-op codec for uncompressed files.
	Identity Codec = iota
	// Gzip is RFC 1952 gzip (".gz").
	Gzip
	// LZ4 is the LZ4 frame format (".lz4").
	LZ4
	// Zstd is Zstandard (".zst").
	Zstd
)

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return "identity"
	}
}

// Compressed reports whether the codec transforms bytes at all.
func (c Codec) Compressed() bool { return c != Identity }

// ForFilename returns the codec selected by the filename's suffix.
func ForFilename(name string) Codec {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	case strings.HasSuffix(name, ".lz4"):
		return LZ4
	case strings.HasSuffix(name, ".zst"):
		return Zstd
	default:
		return Identity
	}
}

// TrimSuffix returns the filename with its codec suffix removed, if any.
// "a.jsonl.gz" becomes "a.jsonl"; "a.jsonl" is returned unchanged.
func TrimSuffix(name string) string {
	switch ForFilename(name) {
	case Gzip:
		return strings.TrimSuffix(name, ".gz")
	case LZ4:
		return strings.TrimSuffix(name, ".lz4")
	case Zstd:
		return strings.TrimSuffix(name, ".zst")
	default:
		return name
	}
}

// WrapReader layers the codec's decompressor over base. The returned
// reader owns base: closing it closes the codec wrapper first, then base.
// Identity returns base unwrapped.
func (c Codec) WrapReader(base io.ReadCloser) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(base)
	case LZ4:
		return lz4.NewReader(base), nil
	case Zstd:
		return zstd.NewReader(base)
	default:
		return base, nil
	}
}

// WrapWriter layers the codec's compressor over base. The returned writer
// owns base: closing it flushes and closes the codec wrapper first, then
// base. Identity returns base unwrapped.
func (c Codec) WrapWriter(base io.WriteCloser) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriter(base)
	case LZ4:
		return lz4.NewWriter(base), nil
	case Zstd:
		return zstd.NewWriter(base)
	default:
		return base, nil
	}
}
