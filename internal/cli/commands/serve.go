package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chikamso/portfolio/internal/app"
	"github.com/chikamso/portfolio/internal/cli/config"
	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/chikamso/portfolio/internal/storage"
	"github.com/chikamso/portfolio/internal/store"
	"github.com/chikamso/portfolio/internal/store/migrate"
	"github.com/chikamso/portfolio/internal/web/auth"
	"github.com/chikamso/portfolio/internal/web/cache"
	"github.com/chikamso/portfolio/internal/web/ratelimit"
	"github.com/chikamso/portfolio/internal/web/server"
	"github.com/chikamso/portfolio/internal/web/session"
)

const sweepInterval = 5 * time.Minute

func newServeCommand(opts *options) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the web server until interrupted.

Configuration comes from portfolio.yml and PORTFOLIO_* environment
variables. DATABASE_URL and ADMIN_USER_ID are required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, opts, cfg, logger, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, opts *options, cfg *config.Config, logger *zap.Logger, autoMigrate bool) error {
	db, err := opts.openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if autoMigrate {
		migrations, err := migrate.Builtin()
		if err != nil {
			db.Close()
			return err
		}
		if _, err := migrate.NewRunner(db, logger.Named("migrate")).Up(ctx, migrations); err != nil {
			db.Close()
			return err
		}
	}

	svc, err := wire(ctx, cfg, logger, db)
	if err != nil {
		return err
	}
	// Run can fail before the shutdown hook runs
	defer svc.close(logger)

	srv, err := server.New(serverConfig(cfg), svc.handler, logger)
	if err != nil {
		return err
	}
	srv.OnShutdown(func(context.Context) error {
		svc.close(logger)
		return nil
	})
	return srv.Run(ctx)
}

func serverConfig(cfg *config.Config) server.Config {
	sc := server.DefaultConfig()
	sc.Address = cfg.Server.Address
	if cfg.Server.ReadTimeout > 0 {
		sc.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		sc.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout > 0 {
		sc.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	return sc
}

// service is a fully wired application and the resources it holds
type service struct {
	handler http.Handler
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

func (s *service) onClose(name string, c io.Closer) {
	s.closers = append(s.closers, namedCloser{name: name, c: c})
}

// close releases resources in reverse order of acquisition
func (s *service) close(logger *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		nc := s.closers[i]
		if err := nc.c.Close(); err != nil {
			logger.Warn("failed to close "+nc.name, zap.Error(err))
		}
	}
	s.closers = nil
}

// wire builds the stores, caches and services for cfg around db. Redis is
// used for sessions, the page cache and login rate limits when configured.
func wire(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *sql.DB) (*service, error) {
	svc := &service{}
	svc.onClose("database", db)
	fail := func(err error) (*service, error) {
		svc.close(logger)
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		ropts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fail(fmt.Errorf("invalid redis.url: %w", err))
		}
		rdb = redis.NewClient(ropts)
		svc.onClose("redis", rdb)
	}

	bucket, uploads, err := newBucket(cfg, logger)
	if err != nil {
		return fail(err)
	}

	// readiness checks
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := db.PingContext(gctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		return nil
	})
	if rdb != nil {
		g.Go(func() error {
			if err := rdb.Ping(gctx).Err(); err != nil {
				return fmt.Errorf("redis unreachable: %w", err)
			}
			return nil
		})
	}
	if s3, ok := bucket.(*storage.S3Bucket); ok && cfg.Storage.S3.CreateBucket {
		g.Go(func() error { return s3.EnsureBucket(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	sessions, err := newSessionStore(cfg, db, rdb, logger)
	if err != nil {
		return fail(err)
	}
	svc.onClose("session store", sessions)

	var pages cache.Cache
	if rdb != nil {
		pages = cache.NewRedisCache(rdb, cfg.Redis.Prefix+"cache:")
	} else {
		mem := cache.NewMemoryCache(sweepInterval)
		svc.onClose("page cache", mem)
		pages = mem
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.LoginLimit > 0 {
		limiter, err = ratelimit.New(rdb, ratelimit.Config{
			Limit:  cfg.RateLimit.LoginLimit,
			Window: cfg.RateLimit.LoginWindow,
			Prefix: cfg.Redis.Prefix + "ratelimit:login:",
		})
		if err != nil {
			return fail(err)
		}
		if c, ok := limiter.(io.Closer); ok {
			svc.onClose("rate limiter", c)
		}
	}

	var tokens *auth.TokenService
	if cfg.Auth.TokenSecret != "" {
		if tokens, err = auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL); err != nil {
			return fail(err)
		}
	}

	repo := store.New(db)
	domain := portfolio.Config{
		AdminUserID: cfg.Admin.UserID,
		Bucket:      bucket,
		Revalidator: cache.NewInvalidator(pages, logger.Named("cache")),
		Logger:      logger.Named("portfolio"),
	}

	sessCfg := session.DefaultConfig()
	sessCfg.Secure = cfg.Auth.SecureCookies
	if cfg.Auth.SessionTTL > 0 {
		sessCfg.TTL = cfg.Auth.SessionTTL
	}

	health := map[string]app.HealthCheck{"database": repo.Ping}
	if rdb != nil {
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	a, err := app.New(app.Deps{
		Logger:        logger,
		Projects:      portfolio.NewProjectService(repo, domain),
		Skills:        portfolio.NewSkillService(repo, domain),
		Users:         repo,
		Sessions:      session.NewManager(sessions, sessCfg, logger.Named("session")),
		Tokens:        tokens,
		Guard:         auth.NewGuard(cfg.Admin.UserID),
		PageCache:     pages,
		PageCacheTTL:  cfg.Cache.PageTTL,
		LoginLimiter:  limiter,
		Uploads:       uploads,
		UploadsPrefix: cfg.Storage.Local.URLBase + "/",
		AllowSignup:   cfg.Auth.AllowSignup,
		CORSOrigins:   cfg.API.CORSOrigins,
		Health:        health,
		Profiling:     cfg.Server.Pprof,
	})
	if err != nil {
		return fail(err)
	}
	svc.handler = a.Routes()

	logger.Info("application wired",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("bucket", bucket.Name()),
		zap.String("sessions", cfg.Auth.SessionStore),
		zap.Bool("redis", rdb != nil),
		zap.Bool("token_api", tokens != nil),
	)
	return svc, nil
}

// newBucket returns the configured bucket and, for local storage, the
// filesystem the upload route serves.
func newBucket(cfg *config.Config, logger *zap.Logger) (storage.Bucket, fs.FS, error) {
	switch cfg.Storage.Driver {
	case config.StorageS3:
		s3, err := storage.NewS3Bucket(storage.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			Region:          cfg.Storage.S3.Region,
			UseSSL:          cfg.Storage.S3.UseSSL,
			Bucket:          cfg.Storage.Bucket,
			PublicBaseURL:   cfg.Storage.S3.PublicBaseURL,
		}, logger.Named("storage"))
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		local, err := storage.NewLocalBucket(cfg.Storage.Local.Root, cfg.Storage.Bucket, cfg.Storage.Local.URLBase)
		if err != nil {
			return nil, nil, err
		}
		return local, local.FS(), nil
	}
}

func newSessionStore(cfg *config.Config, db *sql.DB, rdb *redis.Client, logger *zap.Logger) (session.Store, error) {
	switch cfg.Auth.SessionStore {
	case config.SessionRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session store needs redis.url")
		}
		return session.NewRedisStore(rdb, cfg.Redis.Prefix+"session:"), nil
	case config.SessionDatabase:
		return session.NewDatabaseStore(db, sweepInterval, logger.Named("session")), nil
	default:
		return session.NewMemoryStore(sweepInterval), nil
	}
}
