// Package auth holds credentials and access control for the admin area:
// bcrypt password hashing, bearer tokens for the JSON API, and the guards
// that keep everyone except the admin user out.
package auth

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
	"github.com/chikamso/portfolio/internal/web/response"
)

// Paths used by the guards
const (
	LoginPath = "/auth/login"
	AdminPath = "/admin"
)

// UnauthorizedAdminMessage is shown on the login page to signed-in users
// who are not the admin.
const UnauthorizedAdminMessage = "Unauthorized access to admin panel."

// Guard enforces that only the configured admin user reaches the admin
// area. The user id comes from the request context, set by the session
// middleware or by Bearer.
type Guard struct {
	adminUserID string
}

// NewGuard creates a Guard for adminUserID
func NewGuard(adminUserID string) *Guard {
	return &Guard{adminUserID: adminUserID}
}

// IsAdmin reports whether userID is the admin
func (g *Guard) IsAdmin(userID string) bool {
	return userID != "" && userID == g.adminUserID
}

// RequireAdmin redirects anonymous visitors to the login page and signed-in
// non-admins to the login page with an explanation.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := webcontext.GetCurrentUser(r.Context())
		switch {
		case userID == "":
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		case !g.IsAdmin(userID):
			webcontext.Logger(r.Context()).Warn("non-admin user blocked from admin area",
				zap.String("user_id", userID),
				zap.String("path", r.URL.Path),
			)
			http.Redirect(w, r, LoginPath+"?message="+url.QueryEscape(UnauthorizedAdminMessage), http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RedirectIfAuthenticated sends signed-in users away from the login and
// sign-up pages. The admin goes to the dashboard; other users stay put so
// they can read the unauthorized message and sign in as someone else.
func (g *Guard) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.IsAdmin(webcontext.GetCurrentUser(r.Context())) {
			http.Redirect(w, r, AdminPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Bearer authenticates API requests from the Authorization header. Requests
// without a valid token get a JSON 401.
func Bearer(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				response.RenderUnauthorized(w, "")
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				webcontext.Logger(r.Context()).Debug("bearer token rejected", zap.Error(err))
				response.RenderUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := webcontext.SetCurrentUser(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
