package evals_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/egaebel-mixpanel/evals"
	"github.com/egaebel-mixpanel/evals/backend/memory"
)

// putLines stores n JSON lines of the form {"file":name,"i":k} at path.
func putLines(b *memory.Backend, path, name string, n int) {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "{\"file\":%q,\"i\":%d}\n", name, i)
	}
	b.Put(path, buf.Bytes())
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}
	return buf.Bytes()
}

func recordKey(t *testing.T, rec evals.Record) (string, int) {
	t.Helper()
	m, ok := rec.Value.(map[string]any)
	if !ok {
		t.Fatalf("record value type = %T, want map", rec.Value)
	}
	return m["file"].(string), int(m["i"].(float64))
}

func TestIterDirectoryYieldsAllRecordsInOrder(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/d/a.jsonl", "a", 2)
	putLines(backend, "/d/b.jsonl", "b", 3)
	backend.Put("/d/readme.txt", []byte("not a record file\n"))

	opener := evals.NewOpener(backend)
	records, err := opener.Records(context.Background(), []string{"/d"})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("record count = %d, want 5", len(records))
	}

	want := []struct {
		file string
		i    int
	}{{"a", 0}, {"a", 1}, {"b", 0}, {"b", 1}, {"b", 2}}

	for i, rec := range records {
		file, n := recordKey(t, rec)
		if file != want[i].file || n != want[i].i {
			t.Errorf("record %d = %s/%d, want %s/%d", i, file, n, want[i].file, want[i].i)
		}
		if rec.Line != want[i].i+1 {
			t.Errorf("record %d line = %d, want %d", i, rec.Line, want[i].i+1)
		}
	}
}

func TestIterRecursesIntoSubdirectories(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/d/a.jsonl", "a", 1)
	putLines(backend, "/d/sub/deep/x.jsonl", "x", 2)

	opener := evals.NewOpener(backend)
	records, err := opener.Records(context.Background(), []string{"/d"})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	var got []string
	for _, rec := range records {
		file, i := recordKey(t, rec)
		got = append(got, fmt.Sprintf("%s/%d", file, i))
	}
	want := []string{"a/0", "x/0", "x/1"}
	if len(got) != len(want) {
		t.Fatalf("records = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestIterMultiplePathsPreserveOrder(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/one/a.jsonl", "a", 1)
	putLines(backend, "/two/b.jsonl", "b", 1)

	opener := evals.NewOpener(backend)
	records, err := opener.Records(context.Background(), []string{"/two", "/one"})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("record count = %d, want 2", len(records))
	}
	if file, _ := recordKey(t, records[0]); file != "b" {
		t.Errorf("first record from %q, want b (path order must hold)", file)
	}
}

func TestIterTruncationIsGlobalAndLazy(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/d/a.jsonl", "a", 2)
	putLines(backend, "/d/b.jsonl", "b", 3)
	putLines(backend, "/d/c.jsonl", "c", 3)

	opener := evals.NewOpener(backend)
	records, err := opener.Records(context.Background(), []string{"/d"}, evals.WithLimit(4))
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("record count = %d, want 4", len(records))
	}
	if file, i := recordKey(t, records[3]); file != "b" || i != 1 {
		t.Errorf("record 3 = %s/%d, want b/1", file, i)
	}

	// c.jsonl holds records past the budget and must never be opened.
	if opens := backend.ReaderOpens(); opens != 2 {
		t.Errorf("reader opens = %d, want 2", opens)
	}
}

func TestIterTruncationZeroOpensNothing(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/d/a.jsonl", "a", 2)

	opener := evals.NewOpener(backend)
	records, err := opener.Records(context.Background(), []string{"/d"}, evals.WithLimit(0))
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("record count = %d, want 0", len(records))
	}
	if opens := backend.ReaderOpens(); opens != 0 {
		t.Errorf("reader opens = %d, want 0", opens)
	}
}

func TestIterEarlyStopLeavesFilesUnopened(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/d/a.jsonl", "a", 2)
	putLines(backend, "/d/b.jsonl", "b", 3)

	opener := evals.NewOpener(backend)
	count := 0
	for _, err := range opener.Iter(context.Background(), []string{"/d"}) {
		if err != nil {
			t.Fatalf("Iter failed: %v", err)
		}
		count++
		if count == 1 {
			break
		}
	}

	if opens := backend.ReaderOpens(); opens != 1 {
		t.Errorf("reader opens = %d, want 1", opens)
	}
}

func TestIterMixedCompression(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/d/a.jsonl", "a", 2)
	var plain bytes.Buffer
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&plain, "{\"file\":\"b\",\"i\":%d}\n", i)
	}
	backend.Put("/d/b.jsonl.gz", gzipBytes(t, plain.Bytes()))

	opener := evals.NewOpener(backend)
	records, err := opener.Records(context.Background(), []string{"/d"}, evals.WithLimit(4))
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("record count = %d, want 4", len(records))
	}
	var got []string
	for _, rec := range records {
		file, i := recordKey(t, rec)
		got = append(got, fmt.Sprintf("%s/%d", file, i))
	}
	want := []string{"a/0", "a/1", "b/0", "b/1"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %s, want %s", i, got[i], want[i])
		}
	}

	// The compressed file is opened for its first two records.
	if opens := backend.ReaderOpens(); opens != 2 {
		t.Errorf("reader opens = %d, want 2", opens)
	}
}

func TestIterMalformedLineAbortsAfterDelivering(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	backend.Put("/d/bad.jsonl", []byte("{\"i\":0}\n{\"i\":1}\nnot json\n{\"i\":3}\n"))

	opener := evals.NewOpener(backend)

	var delivered int
	var gotErr error
	for _, err := range opener.Iter(context.Background(), []string{"/d"}) {
		if err != nil {
			gotErr = err
			break
		}
		delivered++
	}

	if delivered != 2 {
		t.Errorf("records delivered before failure = %d, want 2", delivered)
	}

	var derr *evals.DecodeError
	if !errors.As(gotErr, &derr) {
		t.Fatalf("error type = %T, want *DecodeError", gotErr)
	}
	if derr.Line != 3 {
		t.Errorf("DecodeError line = %d, want 3", derr.Line)
	}
	if derr.Path != "/d/bad.jsonl" {
		t.Errorf("DecodeError path = %q, want %q", derr.Path, "/d/bad.jsonl")
	}
}

func TestIterSingleFilePath(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	putLines(backend, "/a.jsonl", "a", 3)

	opener := evals.NewOpener(backend)
	values, err := opener.JSONL(context.Background(), "/a.jsonl")
	if err != nil {
		t.Fatalf("JSONL failed: %v", err)
	}
	if len(values) != 3 {
		t.Errorf("value count = %d, want 3", len(values))
	}
}

func TestIterMissingFile(t *testing.T) {
	backend := memory.New()
	defer func() { _ = backend.Close() }()

	opener := evals.NewOpener(backend)
	_, err := opener.JSONL(context.Background(), "/missing.jsonl")
	if err == nil {
		t.Fatal("JSONL on a missing file should fail")
	}

	var oerr *evals.OpenError
	if !errors.As(err, &oerr) {
		t.Fatalf("error type = %T, want *OpenError", err)
	}
	if !evals.IsNotFound(err) {
		t.Errorf("error should wrap ErrNotFound, got %v", err)
	}
}
