// Package app wires the portfolio HTTP surface: the public site, the login
// pages, the admin area and the JSON API.
package app

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/chikamso/portfolio/internal/store"
	"github.com/chikamso/portfolio/internal/web/auth"
	"github.com/chikamso/portfolio/internal/web/cache"
	"github.com/chikamso/portfolio/internal/web/middleware"
	"github.com/chikamso/portfolio/internal/web/profiling"
	"github.com/chikamso/portfolio/internal/web/ratelimit"
	"github.com/chikamso/portfolio/internal/web/request"
	"github.com/chikamso/portfolio/internal/web/response"
	"github.com/chikamso/portfolio/internal/web/session"
	"github.com/chikamso/portfolio/internal/web/static"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// UserStore looks up and creates accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *store.User) error
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the handlers need
type Deps struct {
	Logger   *zap.Logger
	Projects *portfolio.ProjectService
	Skills   *portfolio.SkillService
	Users    UserStore
	Sessions *session.Manager
	Tokens   *auth.TokenService
	Guard    *auth.Guard

	// PageCache enables caching of the public index when set
	PageCache    cache.Cache
	PageCacheTTL time.Duration

	// LoginLimiter throttles login and token requests per client IP
	LoginLimiter ratelimit.Limiter

	// Uploads serves a local bucket under UploadsPrefix when set
	Uploads       fs.FS
	UploadsPrefix string

	AllowSignup bool
	CORSOrigins []string
	Images      request.ImageConfig
	// MaxFormBytes caps admin form bodies, files included
	MaxFormBytes int64
	Health       map[string]HealthCheck
	// Profiling mounts pprof under /admin/debug/pprof
	Profiling bool
}

// App holds the parsed templates and the dependencies
type App struct {
	Deps
	views *response.Renderer
}

// New parses the embedded templates and validates deps
func New(deps Deps) (*App, error) {
	if deps.Projects == nil || deps.Skills == nil {
		return nil, errors.New("project and skill services are required")
	}
	if deps.Users == nil || deps.Sessions == nil || deps.Guard == nil {
		return nil, errors.New("users, sessions and guard are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Images.MaxFileSize == 0 {
		deps.Images = request.DefaultImageConfig()
	}
	if deps.MaxFormBytes == 0 {
		deps.MaxFormBytes = int64(deps.Images.MaxFiles+1) * deps.Images.MaxFileSize
	}
	if deps.PageCacheTTL == 0 {
		deps.PageCacheTTL = time.Hour
	}
	if deps.UploadsPrefix == "" {
		deps.UploadsPrefix = "/uploads/"
	}

	views, err := response.NewRenderer(templateFS, "templates/layout.html", "templates/pages/*.html", template.FuncMap{
		"join":  strings.Join,
		"deref": deref,
		"date": func(t time.Time) string {
			return t.Format("2 Jan 2006")
		},
	})
	if err != nil {
		return nil, err
	}
	return &App{Deps: deps, views: views}, nil
}

// Routes builds the router wrapped in the request id, access log and
// recovery middleware.
func (a *App) Routes() http.Handler {
	base := middleware.NewChain(
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    a.Logger,
			SkipPaths: []string{"/healthz", "/static/"},
		}),
		middleware.Recovery(),
	)

	r := chi.NewRouter()
	r.NotFound(a.notFound)

	r.Get("/healthz", a.health)

	staticFiles, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", static.FileServer(staticFiles, static.Config{Prefix: "/static/", MaxAge: 86400}))
	if a.Uploads != nil {
		r.Handle(a.UploadsPrefix+"*", static.FileServer(a.Uploads, static.Config{Prefix: a.UploadsPrefix, MaxAge: 3600}))
	}

	r.Route("/api", a.apiRoutes)

	r.Group(func(r chi.Router) {
		r.Use(a.limitBody, a.Sessions.Middleware, session.CSRFWithConfig(session.CSRFConfig{
			OnBodyTooLarge: func(w http.ResponseWriter, r *http.Request) {
				a.renderError(w, r, http.StatusRequestEntityTooLarge, uploadTooLarge)
			},
		}))

		r.Group(func(r chi.Router) {
			if a.PageCache != nil {
				r.Use(cache.Pages(cache.PageConfig{
					Cache:        a.PageCache,
					TTL:          a.PageCacheTTL,
					CacheControl: "public, max-age=0, must-revalidate",
				}))
			}
			r.Get("/", a.index)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(a.Guard.RedirectIfAuthenticated).Get("/login", a.loginForm)
			r.With(a.loginRateLimit()).Post("/login", a.login)
			r.Post("/logout", a.logout)
			if a.AllowSignup {
				r.With(a.Guard.RedirectIfAuthenticated).Get("/sign-up", a.signupForm)
				r.With(a.loginRateLimit()).Post("/sign-up", a.signup)
			}
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(a.Guard.RequireAdmin)
			r.Get("/", a.dashboard)
			if a.Profiling {
				r.Route("/debug/pprof", profiling.Routes(profiling.Config{}))
			}

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", a.listProjects)
				r.Get("/new", a.newProject)
				r.Post("/new", a.createProject)
				r.Get("/{id}/edit", a.editProject)
				r.Post("/{id}/edit", a.updateProject)
				r.Post("/{id}/delete", a.deleteProject)
			})

			r.Route("/skills", func(r chi.Router) {
				r.Get("/", a.listSkills)
				r.Get("/new", a.newSkill)
				r.Post("/new", a.createSkill)
				r.Get("/{id}/edit", a.editSkill)
				r.Post("/{id}/edit", a.updateSkill)
				r.Post("/{id}/delete", a.deleteSkill)
			})
		})
	})

	return base.Then(r)
}

// loginRateLimit throttles credential checks. It is a pass-through when no
// limiter is configured.
func (a *App) loginRateLimit() func(http.Handler) http.Handler {
	if a.LoginLimiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(a.LoginLimiter, http.MethodPost)
}

// limitBody caps form bodies before the CSRF check parses them
func (a *App) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxFormBytes)
		next.ServeHTTP(w, r)
	})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(a.Health))
	status := http.StatusOK
	for name, check := range a.Health {
		if err := check(ctx); err != nil {
			a.Logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	response.JSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
