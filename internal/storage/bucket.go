// Package storage uploads project screenshots and skill icons to an object
// bucket and maps public URLs back to object names.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrObjectExists is returned when uploading over an existing object
var ErrObjectExists = errors.New("object already exists")

// UploadOptions are stored with the object and returned on download
type UploadOptions struct {
	ContentType  string
	CacheControl string
}

// Bucket is a flat namespace of objects with public URLs
type Bucket interface {
	// Name is the bucket name that appears in public URLs
	Name() string
	// Upload stores r under name. Existing objects are never overwritten.
	Upload(ctx context.Context, name string, r io.Reader, size int64, opts UploadOptions) error
	// PublicURL is the anonymous download URL for name
	PublicURL(name string) string
	// Remove deletes objects. Missing objects are not an error.
	Remove(ctx context.Context, names ...string) error
}

// ObjectPath extracts the object name from a public URL of bucket. URLs that
// do not contain "<bucket>/" are not ours and return false.
func ObjectPath(bucket, publicURL string) (string, bool) {
	if bucket == "" || publicURL == "" {
		return "", false
	}
	_, name, found := strings.Cut(publicURL, bucket+"/")
	if !found || name == "" {
		return "", false
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return name, name != ""
}

func joinURL(base, bucket, name string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(name, "/")
}
