package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalBucket stores objects as files under Root/<bucket>. The static file
// server exposes them at <URLBase>/<bucket>/<name>.
type LocalBucket struct {
	root    string
	bucket  string
	urlBase string
}

// NewLocalBucket creates the bucket directory if needed
func NewLocalBucket(root, bucket, urlBase string) (*LocalBucket, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	return &LocalBucket{root: root, bucket: bucket, urlBase: urlBase}, nil
}

// Name returns the bucket name
func (b *LocalBucket) Name() string {
	return b.bucket
}

// FS exposes the bucket root, the directory that contains the bucket
// directory, for the static file server.
func (b *LocalBucket) FS() fs.FS {
	return os.DirFS(b.root)
}

// Upload writes r to a new file
func (b *LocalBucket) Upload(ctx context.Context, name string, r io.Reader, _ int64, _ UploadOptions) error {
	path, err := b.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrObjectExists, name)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

// PublicURL returns the URL the static file server answers for name
func (b *LocalBucket) PublicURL(name string) string {
	return joinURL(b.urlBase, b.bucket, name)
}

// Remove deletes files, ignoring ones that are already gone
func (b *LocalBucket) Remove(_ context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		path, err := b.path(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *LocalBucket) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(b.root, b.bucket, filepath.FromSlash(name)), nil
}
