package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
)

type contextKey int

const sessionKey contextKey = iota

// saveTimeout bounds the store write made while the response is committed
const saveTimeout = 5 * time.Second

// Config holds session cookie configuration
type Config struct {
	CookieName string
	CookiePath string
	TTL        time.Duration
	Secure     bool
	SameSite   http.SameSite
}

// DefaultConfig returns the cookie settings used in production
func DefaultConfig() Config {
	return Config{
		CookieName: "portfolio_session",
		CookiePath: "/",
		TTL:        7 * 24 * time.Hour,
		Secure:     true,
		SameSite:   http.SameSiteLaxMode,
	}
}

// Manager loads the session for each request and writes it back before the
// response headers go out.
type Manager struct {
	config Config
	store  Store
	logger *zap.Logger
}

// NewManager creates a session manager
func NewManager(store Store, config Config, logger *zap.Logger) *Manager {
	if config.CookieName == "" {
		config.CookieName = DefaultConfig().CookieName
	}
	if config.CookiePath == "" {
		config.CookiePath = "/"
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{config: config, store: store, logger: logger}
}

// Store returns the backing store
func (m *Manager) Store() Store {
	return m.store
}

// Middleware attaches the session to the request context. Anonymous
// visitors get a session that is only persisted once something is written
// to it.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, stored := m.load(r)
		if sess == nil {
			var err error
			sess, err = New(m.config.TTL)
			if err != nil {
				http.Error(w, "Failed to start session", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		if sess.UserID != "" {
			ctx = webcontext.SetCurrentUser(ctx, sess.UserID)
		}

		sw := &sessionWriter{ResponseWriter: w, manager: m, session: sess, stored: stored, ctx: ctx}
		next.ServeHTTP(sw, r.WithContext(ctx))
		sw.commit()
	})
}

func (m *Manager) load(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	sess, err := m.store.Get(r.Context(), cookie.Value)
	switch {
	case err == nil:
		return sess, true
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
	default:
		m.logger.Warn("failed to load session", zap.Error(err))
	}
	return nil, false
}

// persist writes the session and its cookie. It runs at most once per
// request, right before the first byte of the response.
func (m *Manager) persist(ctx context.Context, w http.ResponseWriter, sess *Session, stored bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if sess.destroyed {
		if err := m.store.Delete(ctx, sess.ID); err != nil {
			m.logger.Warn("failed to delete session", zap.Error(err))
		}
		if sess.previousID != "" {
			_ = m.store.Delete(ctx, sess.previousID)
		}
		http.SetCookie(w, m.cookie("", -1))
		return
	}

	if !sess.dirty && !stored {
		return
	}

	if sess.previousID != "" {
		if err := m.store.Delete(ctx, sess.previousID); err != nil {
			m.logger.Warn("failed to delete previous session", zap.Error(err))
		}
	}

	if err := m.store.Save(ctx, sess, m.config.TTL); err != nil {
		m.logger.Error("failed to save session", zap.Error(err))
		return
	}
	http.SetCookie(w, m.cookie(sess.ID, int(m.config.TTL.Seconds())))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.config.CookieName,
		Value:    value,
		Path:     m.config.CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: m.config.SameSite,
	}
}

// sessionWriter saves the session just before headers are written.
type sessionWriter struct {
	http.ResponseWriter
	manager   *Manager
	session   *Session
	stored    bool
	ctx       context.Context
	committed bool
}

func (sw *sessionWriter) commit() {
	if sw.committed {
		return
	}
	sw.committed = true
	sw.manager.persist(sw.ctx, sw.ResponseWriter, sw.session, sw.stored)
}

func (sw *sessionWriter) WriteHeader(statusCode int) {
	sw.commit()
	sw.ResponseWriter.WriteHeader(statusCode)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.commit()
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// FromContext returns the request session, or nil outside the middleware
func FromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionKey).(*Session); ok {
		return sess
	}
	return nil
}

// UserID returns the signed-in user for the request, if any
func UserID(ctx context.Context) string {
	if sess := FromContext(ctx); sess != nil {
		return sess.UserID
	}
	return ""
}
