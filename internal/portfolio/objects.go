package portfolio

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/chikamso/portfolio/internal/storage"
	"go.uber.org/zap"
)

// SkillIconPrefix is the object prefix for skill icons
const SkillIconPrefix = "skill-icons"

// ObjectCacheControl is stored with every uploaded object
const ObjectCacheControl = "max-age=3600"

const (
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 13
)

// ObjectName builds "<prefix>/<unix millis>-<random>.<ext>" for an upload
// called filename. The extension is whatever follows the last dot, or the
// whole filename when there is none.
func ObjectName(prefix, filename string, now time.Time) string {
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}

	var suffix strings.Builder
	for range suffixLength {
		suffix.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))])
	}

	return prefix + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix.String() + "." + ext
}

// objects uploads and removes blobs for both services
type objects struct {
	bucket storage.Bucket
	logger *zap.Logger
	now    func() time.Time
}

// upload stores u under prefix and returns its public URL
func (o *objects) upload(ctx context.Context, prefix string, u Upload) (string, error) {
	name := ObjectName(prefix, u.Name, o.now())

	rc, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", u.Name, err)
	}
	defer rc.Close()

	err = o.bucket.Upload(ctx, name, rc, u.Size, storage.UploadOptions{
		ContentType:  u.ContentType,
		CacheControl: ObjectCacheControl,
	})
	if err != nil {
		return "", err
	}
	return o.bucket.PublicURL(name), nil
}

// remove deletes the objects behind urls. URLs outside the bucket are
// skipped and failures are only logged.
func (o *objects) remove(ctx context.Context, urls ...string) {
	var names []string
	for _, u := range urls {
		if name, ok := storage.ObjectPath(o.bucket.Name(), u); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}

	if err := o.bucket.Remove(ctx, names...); err != nil {
		o.logger.Error("failed to remove objects",
			zap.Strings("objects", names),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("objects removed", zap.Strings("objects", names))
}
