package s3

import (
	"errors"
	"testing"

	"github.com/egaebel-mixpanel/evals"
)

func TestSplitPath(t *testing.T) {
	b := &Backend{config: Config{Bucket: "default", Prefix: "data"}}

	cases := []struct {
		path   string
		bucket string
		key    string
	}{
		{"s3://other/d/a.jsonl", "other", "d/a.jsonl"},
		{"s3://other", "other", ""},
		{"d/a.jsonl", "default", "data/d/a.jsonl"},
	}
	for _, tc := range cases {
		bucket, key, err := b.splitPath(tc.path)
		if err != nil {
			t.Fatalf("splitPath(%q) failed: %v", tc.path, err)
		}
		if bucket != tc.bucket || key != tc.key {
			t.Errorf("splitPath(%q) = (%q, %q), want (%q, %q)",
				tc.path, bucket, key, tc.bucket, tc.key)
		}
	}
}

func TestSplitPathNoPrefix(t *testing.T) {
	b := &Backend{config: Config{Bucket: "default"}}
	bucket, key, err := b.splitPath("d/a.jsonl")
	if err != nil {
		t.Fatalf("splitPath failed: %v", err)
	}
	if bucket != "default" || key != "d/a.jsonl" {
		t.Errorf("splitPath = (%q, %q)", bucket, key)
	}
}

func TestSplitPathEmptyBucketURI(t *testing.T) {
	b := &Backend{config: Config{Bucket: "default"}}
	_, _, err := b.splitPath("s3:///key")
	if !errors.Is(err, evals.ErrInvalidPath) {
		t.Errorf("error = %v, want ErrInvalidPath", err)
	}
}

func TestSplitPathNoBucketConfigured(t *testing.T) {
	b := &Backend{config: Config{}}
	_, _, err := b.splitPath("d/a.jsonl")
	if err == nil {
		t.Error("plain key without a configured bucket should fail")
	}
}

func TestConfigFromMap(t *testing.T) {
	config := ConfigFromMap(map[string]string{
		"bucket":         "test-bucket",
		"region":         "us-west-2",
		"endpoint":       "http://localhost:9000",
		"prefix":         "runs",
		"use_path_style": "true",
		"part_size":      "10485760",
		"concurrency":    "10",
	})

	if config.Bucket != "test-bucket" {
		t.Errorf("Bucket = %q", config.Bucket)
	}
	if config.Region != "us-west-2" {
		t.Errorf("Region = %q", config.Region)
	}
	if config.Endpoint != "http://localhost:9000" {
		t.Errorf("Endpoint = %q", config.Endpoint)
	}
	if config.Prefix != "runs" {
		t.Errorf("Prefix = %q", config.Prefix)
	}
	if !config.UsePathStyle {
		t.Error("UsePathStyle = false")
	}
	if config.PartSize != 10485760 {
		t.Errorf("PartSize = %d", config.PartSize)
	}
	if config.Concurrency != 10 {
		t.Errorf("Concurrency = %d", config.Concurrency)
	}
}

func TestConfigFromMapDefaults(t *testing.T) {
	config := ConfigFromMap(map[string]string{})
	if config.PartSize != 5*1024*1024 {
		t.Errorf("PartSize = %d, want 5MB default", config.PartSize)
	}
	if config.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", config.Concurrency)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("EVALS_S3_BUCKET", "env-bucket")
	t.Setenv("EVALS_S3_REGION", "eu-central-1")
	t.Setenv("EVALS_S3_USE_PATH_STYLE", "1")

	config := ConfigFromEnv()
	if config.Bucket != "env-bucket" {
		t.Errorf("Bucket = %q", config.Bucket)
	}
	if config.Region != "eu-central-1" {
		t.Errorf("Region = %q", config.Region)
	}
	if !config.UsePathStyle {
		t.Error("UsePathStyle = false")
	}
}
