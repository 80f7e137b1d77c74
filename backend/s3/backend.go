// Package s3 provides an S3-compatible backend.
//
// This backend works with:
//   - AWS S3
//   - Cloudflare R2
//   - MinIO
//   - Wasabi
//   - DigitalOcean Spaces
//   - Any S3-compatible object storage
//
// Basic usage:
//
//	backend, err := s3.New(s3.Config{
//	    Bucket: "my-bucket",
//	    Region: "us-east-1",
//	})
//
// For S3-compatible services:
//
//	backend, err := s3.New(s3.Config{
//	    Bucket:       "my-bucket",
//	    Endpoint:     "https://play.min.io",
//	    UsePathStyle: true,
//	})
//
// Paths may be plain keys under the configured bucket, or full
// "s3://bucket/key" URIs addressing any bucket the credentials can reach.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/egaebel-mixpanel/evals"
)

func init() {
	evals.Register("s3", NewFromConfig)
}

// Backend implements evals.Backend for S3-compatible storage.
type Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	config   Config
	closed   bool
	mu       sync.RWMutex
}

// New creates a new S3 backend with the given configuration.
func New(cfg Config) (*Backend, error) {
	// Set defaults
	if cfg.PartSize == 0 {
		cfg.PartSize = 5 * 1024 * 1024 // 5MB
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 5
	}

	// Build AWS config options
	var optFns []func(*config.LoadOptions) error

	// Region
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}

	// Credentials
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	// Load AWS config
	awsCfg, err := config.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: loading AWS config: %w", err)
	}

	// Build S3 client options
	var s3OptFns []func(*s3.Options)

	// Custom endpoint
	if cfg.Endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	// Path-style addressing
	if cfg.UsePathStyle {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3OptFns...)

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
	})

	return &Backend{
		client:   client,
		uploader: uploader,
		config:   cfg,
	}, nil
}

// NewFromConfig creates a new S3 backend from a config map.
// This is used by the evals registry.
func NewFromConfig(configMap map[string]string) (evals.Backend, error) {
	cfg := ConfigFromMap(configMap)
	return New(cfg)
}

// NewReader creates a reader for the given path.
func (b *Backend) NewReader(ctx context.Context, p string, opts ...evals.ReaderOption) (io.ReadCloser, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucket, key, err := b.splitPath(p)
	if err != nil {
		return nil, err
	}
	cfg := evals.ApplyReaderOptions(opts...)

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	// Handle range requests
	if cfg.Offset > 0 || cfg.Limit > 0 {
		var rangeHeader string
		if cfg.Limit > 0 {
			rangeHeader = fmt.Sprintf("bytes=%d-%d", cfg.Offset, cfg.Offset+cfg.Limit-1)
		} else {
			rangeHeader = fmt.Sprintf("bytes=%d-", cfg.Offset)
		}
		input.Range = aws.String(rangeHeader)
	}

	result, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, b.translateError(err, p)
	}

	return result.Body, nil
}

// NewWriter creates a writer for the given path. The object is uploaded
// when the writer is closed.
func (b *Backend) NewWriter(ctx context.Context, p string, opts ...evals.WriterOption) (io.WriteCloser, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucket, key, err := b.splitPath(p)
	if err != nil {
		return nil, err
	}
	cfg := evals.ApplyWriterOptions(opts...)

	return &s3Writer{
		backend:     b,
		ctx:         ctx,
		bucket:      bucket,
		key:         key,
		buffer:      &bytes.Buffer{},
		contentType: cfg.ContentType,
		metadata:    cfg.Metadata,
	}, nil
}

// Exists checks if a path exists.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	if err := b.checkClosed(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	bucket, key, err := b.splitPath(p)
	if err != nil {
		return false, err
	}

	_, err = b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, b.translateError(err, p)
	}

	return true, nil
}

// IsDir reports whether any object lives under the path treated as a
// prefix. S3 has no real directories: a prefix with children counts.
func (b *Backend) IsDir(ctx context.Context, p string) (bool, error) {
	if err := b.checkClosed(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	bucket, key, err := b.splitPath(p)
	if err != nil {
		return false, err
	}
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	result, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, b.translateError(err, p)
	}

	return len(result.Contents) > 0 || len(result.CommonPrefixes) > 0, nil
}

// List returns the direct children of the path treated as a prefix, in
// S3 listing order: common prefixes surface as bare directory names,
// objects as their final key segment.
func (b *Backend) List(ctx context.Context, p string) ([]string, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bucket, key, err := b.splitPath(p)
	if err != nil {
		return nil, err
	}
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: listing objects: %w", err)
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			// Skip the directory marker object itself.
			if name != "" {
				names = append(names, name)
			}
		}
	}

	return names, nil
}

// Close releases any resources held by the backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// splitPath maps a backend path to (bucket, key). Plain paths are keys
// under the configured bucket and prefix; "s3://bucket/key" URIs name the
// bucket explicitly and bypass the configured prefix.
func (b *Backend) splitPath(p string) (bucket, key string, err error) {
	if rest, ok := strings.CutPrefix(p, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		if bucket == "" {
			return "", "", fmt.Errorf("%w: %s", evals.ErrInvalidPath, p)
		}
		return bucket, key, nil
	}
	if b.config.Bucket == "" {
		return "", "", fmt.Errorf("s3: no bucket configured for path %s", p)
	}
	key = p
	if b.config.Prefix != "" {
		key = path.Join(b.config.Prefix, p)
	}
	return b.config.Bucket, key, nil
}

// checkClosed returns an error if the backend is closed.
func (b *Backend) checkClosed() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return evals.ErrBackendClosed
	}
	return nil
}

// isNotFound reports whether an S3 error means the key does not exist.
func isNotFound(err error) bool {
	var nsk *types.NotFound
	if errors.As(err, &nsk) {
		return true
	}
	var nokey *types.NoSuchKey
	if errors.As(err, &nokey) {
		return true
	}
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// translateError converts S3 errors to evals errors.
func (b *Backend) translateError(err error, path string) error {
	if err == nil {
		return nil
	}

	if isNotFound(err) {
		return evals.ErrNotFound
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("s3: bucket not found: %s", path)
	}

	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied":
			return evals.ErrPermissionDenied
		}
	}

	return fmt.Errorf("s3: %s: %w", path, err)
}

// s3Writer buffers writes and uploads the object on Close.
type s3Writer struct {
	backend     *Backend
	ctx         context.Context
	bucket      string
	key         string
	buffer      *bytes.Buffer
	contentType string
	metadata    map[string]string
	closed      bool
	mu          sync.Mutex
}

func (w *s3Writer) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, evals.ErrWriterClosed
	}
	return w.buffer.Write(p)
}

func (w *s3Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	input := &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	}

	if w.contentType != "" {
		input.ContentType = aws.String(w.contentType)
	}
	if len(w.metadata) > 0 {
		input.Metadata = w.metadata
	}

	// Use the uploader for potentially large files
	_, err := w.backend.uploader.Upload(w.ctx, input)
	if err != nil {
		return fmt.Errorf("s3: uploading object: %w", err)
	}

	return nil
}

var _ evals.Backend = (*Backend)(nil)
