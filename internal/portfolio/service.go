package portfolio

import (
	"context"
	"time"

	"github.com/chikamso/portfolio/internal/storage"
	"go.uber.org/zap"
)

// Config is shared by the project and skill services
type Config struct {
	// AdminUserID is the only user allowed to run admin actions
	AdminUserID string
	Bucket      storage.Bucket
	Revalidator Revalidator
	Logger      *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

type base struct {
	adminUserID string
	revalidator Revalidator
	logger      *zap.Logger
	objects     *objects
}

func newBase(cfg Config) base {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return base{
		adminUserID: cfg.AdminUserID,
		revalidator: cfg.Revalidator,
		logger:      cfg.Logger,
		objects:     &objects{bucket: cfg.Bucket, logger: cfg.Logger, now: cfg.Now},
	}
}

func (b *base) authorized(actor string) bool {
	return b.adminUserID != "" && actor == b.adminUserID
}

func (b *base) revalidate(ctx context.Context, paths ...string) {
	if b.revalidator == nil {
		return
	}
	for _, path := range paths {
		if err := b.revalidator.RevalidatePath(ctx, path); err != nil {
			b.logger.Warn("failed to revalidate path", zap.String("path", path), zap.Error(err))
		}
	}
}
