package memory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/egaebel-mixpanel/evals"
)

func TestWriterCommitsOnClose(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()
	ctx := context.Background()

	w, err := backend.NewWriter(ctx, "d/test.jsonl")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.Write([]byte("{\"a\":1}\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Not visible until Close.
	exists, _ := backend.Exists(ctx, "d/test.jsonl")
	if exists {
		t.Error("object visible before the writer closed")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := backend.NewReader(ctx, "d/test.jsonl")
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	data, _ := io.ReadAll(r)
	_ = r.Close()
	if string(data) != "{\"a\":1}\n" {
		t.Errorf("data = %q", data)
	}
}

func TestReaderNotFound(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()

	_, err := backend.NewReader(context.Background(), "missing")
	if !errors.Is(err, evals.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if opens := backend.ReaderOpens(); opens != 0 {
		t.Errorf("failed open counted: opens = %d", opens)
	}
}

func TestReaderOffsetAndLimit(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()
	ctx := context.Background()

	backend.Put("test.txt", []byte("0123456789"))

	r, err := backend.NewReader(ctx, "test.txt", evals.WithOffset(2), evals.WithByteLimit(4))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	data, _ := io.ReadAll(r)
	_ = r.Close()
	if string(data) != "2345" {
		t.Errorf("data = %q, want %q", data, "2345")
	}
}

func TestReaderIsolatedFromLaterPuts(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()
	ctx := context.Background()

	backend.Put("test.txt", []byte("before"))
	r, err := backend.NewReader(ctx, "test.txt")
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	backend.Put("test.txt", []byte("after!"))

	data, _ := io.ReadAll(r)
	_ = r.Close()
	if string(data) != "before" {
		t.Errorf("data = %q, want snapshot from open time", data)
	}
}

func TestIsDirImplicit(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()
	ctx := context.Background()

	backend.Put("d/sub/a.jsonl", []byte("{}\n"))

	cases := []struct {
		path string
		want bool
	}{
		{"d", true},
		{"/d", true},
		{"d/sub", true},
		{"d/sub/a.jsonl", false},
		{"missing", false},
	}
	for _, tc := range cases {
		got, err := backend.IsDir(ctx, tc.path)
		if err != nil {
			t.Fatalf("IsDir(%q) failed: %v", tc.path, err)
		}
		if got != tc.want {
			t.Errorf("IsDir(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestListDirectChildrenSorted(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()

	backend.Put("d/b.jsonl", nil)
	backend.Put("d/a.jsonl", nil)
	backend.Put("d/sub/x.jsonl", nil)
	backend.Put("other/y.jsonl", nil)

	names, err := backend.List(context.Background(), "d")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"a.jsonl", "b.jsonl", "sub"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestReaderOpensCounts(t *testing.T) {
	backend := New()
	defer func() { _ = backend.Close() }()
	ctx := context.Background()

	backend.Put("a", []byte("x"))
	for i := 0; i < 3; i++ {
		r, err := backend.NewReader(ctx, "a")
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		_ = r.Close()
	}
	if opens := backend.ReaderOpens(); opens != 3 {
		t.Errorf("opens = %d, want 3", opens)
	}
}

func TestClosedBackend(t *testing.T) {
	backend := New()
	_ = backend.Close()

	_, err := backend.NewReader(context.Background(), "a")
	if !errors.Is(err, evals.ErrBackendClosed) {
		t.Errorf("error = %v, want ErrBackendClosed", err)
	}
}
