package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Config configures an S3-compatible bucket
type S3Config struct {
	// Endpoint is host[:port] without scheme
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
	Bucket          string
	// PublicBaseURL prefixes "<bucket>/<name>" in public URLs. Defaults to
	// the endpoint URL.
	PublicBaseURL string
}

// S3Bucket stores objects through the S3 API. Any S3-compatible service
// works, including the storage API of hosted Postgres platforms.
type S3Bucket struct {
	client     *minio.Client
	bucket     string
	publicBase string
	logger     *zap.Logger
}

// NewS3Bucket creates an S3Bucket. Empty credentials make anonymous
// requests.
func NewS3Bucket(cfg S3Config, logger *zap.Logger) (*S3Bucket, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = (&url.URL{Scheme: scheme, Host: cfg.Endpoint}).String()
	}

	return &S3Bucket{client: client, bucket: cfg.Bucket, publicBase: base, logger: logger}, nil
}

// Name returns the bucket name
func (b *S3Bucket) Name() string {
	return b.bucket
}

// EnsureBucket creates the bucket when it does not exist yet
func (b *S3Bucket) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	b.logger.Info("bucket created", zap.String("bucket", b.bucket))
	return nil
}

// Upload stores r under name unless an object already exists there
func (b *S3Bucket) Upload(ctx context.Context, name string, r io.Reader, size int64, opts UploadOptions) error {
	_, err := b.client.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrObjectExists, name)
	case !isNotFound(err):
		return fmt.Errorf("stat %s: %w", name, err)
	}

	_, err = b.client.PutObject(ctx, b.bucket, name, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// PublicURL returns the anonymous URL of name
func (b *S3Bucket) PublicURL(name string) string {
	return joinURL(b.publicBase, b.bucket, name)
}

// Remove deletes objects one by one and reports every failure
func (b *S3Bucket) Remove(ctx context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		err := b.client.RemoveObject(ctx, b.bucket, name, minio.RemoveObjectOptions{})
		if err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || strings.HasPrefix(resp.Code, "NoSuch")
}
