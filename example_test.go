package evals_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/egaebel-mixpanel/evals"
	"github.com/egaebel-mixpanel/evals/backend/file"
	"github.com/egaebel-mixpanel/evals/format/jsonl"
)

// TestIntegrationWriteThenIterate demonstrates the full stack: write record
// files through the opener, then stream them back as a directory.
func TestIntegrationWriteThenIterate(t *testing.T) {
	tmpDir := t.TempDir()
	backend := file.New(file.Config{})
	defer func() { _ = backend.Close() }()

	ctx := context.Background()
	opener := evals.NewOpener(backend)

	// One plain file and one gzip-compressed one in the same directory.
	fixtures := map[string][]string{
		"runs/a.jsonl": {
			`{"id":1,"name":"alice"}`,
			`{"id":2,"name":"bob"}`,
		},
		"runs/b.jsonl.gz": {
			`{"id":3,"name":"charlie"}`,
		},
	}
	for path, lines := range fixtures {
		w, err := opener.OpenWrite(ctx, filepath.Join(tmpDir, path))
		if err != nil {
			t.Fatalf("OpenWrite(%s) failed: %v", path, err)
		}
		jw := jsonl.NewWriter(w)
		for _, line := range lines {
			if err := jw.Write([]byte(line)); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		if err := jw.Close(); err != nil {
			t.Fatalf("Close writer failed: %v", err)
		}
	}

	records, err := opener.Records(ctx, []string{filepath.Join(tmpDir, "runs")})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("record count = %d, want 3", len(records))
	}

	// a.jsonl sorts before b.jsonl.gz, so ids arrive 1, 2, 3.
	for i, rec := range records {
		m := rec.Value.(map[string]any)
		if int(m["id"].(float64)) != i+1 {
			t.Errorf("record %d id = %v, want %d", i, m["id"], i+1)
		}
	}
}

// TestIntegrationRegistry demonstrates opening a backend by name.
func TestIntegrationRegistry(t *testing.T) {
	tmpDir := t.TempDir()

	backend, err := evals.Open("file", map[string]string{
		"root": tmpDir,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = backend.Close() }()

	ctx := context.Background()

	w, err := backend.NewWriter(ctx, "test.txt")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.Write([]byte("hello from registry")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	exists, err := backend.Exists(ctx, "test.txt")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("File should exist")
	}

	r, err := backend.NewReader(ctx, "test.txt")
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close reader failed: %v", err)
	}

	if string(data) != "hello from registry" {
		t.Errorf("Read = %q, want %q", data, "hello from registry")
	}
}

// TestIntegrationUnknownBackend verifies the registry error path.
func TestIntegrationUnknownBackend(t *testing.T) {
	_, err := evals.Open("nope", nil)
	if err == nil {
		t.Fatal("Open of an unknown backend should fail")
	}
}

// TestIntegrationBackendsList verifies registered backends.
func TestIntegrationBackendsList(t *testing.T) {
	registered := evals.Backends()

	for _, want := range []string{"file", "memory"} {
		found := false
		for _, name := range registered {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s backend should be registered", want)
		}
	}
}
