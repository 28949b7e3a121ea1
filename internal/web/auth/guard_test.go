package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
)

const adminID = "7f9c2d1e-0000-4000-8000-000000000001"

func asUser(r *http.Request, userID string) *http.Request {
	if userID == "" {
		return r
	}
	return r.WithContext(webcontext.SetCurrentUser(r.Context(), userID))
}

func reached(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard_RequireAdmin(t *testing.T) {
	guard := NewGuard(adminID)

	tests := []struct {
		name     string
		user     string
		wantCode int
		wantLoc  string
		wantNext bool
	}{
		{"anonymous", "", http.StatusSeeOther, "/auth/login", false},
		{"non-admin", "someone-else", http.StatusSeeOther, "/auth/login?message=Unauthorized+access+to+admin+panel.", false},
		{"admin", adminID, http.StatusOK, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			rec := httptest.NewRecorder()
			req := asUser(httptest.NewRequest(http.MethodGet, "/admin/projects", nil), tt.user)
			guard.RequireAdmin(reached(&called)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			assert.Equal(t, tt.wantNext, called)
		})
	}
}

func TestGuard_RedirectIfAuthenticated(t *testing.T) {
	guard := NewGuard(adminID)

	var called bool
	rec := httptest.NewRecorder()
	guard.RedirectIfAuthenticated(reached(&called)).ServeHTTP(rec,
		asUser(httptest.NewRequest(http.MethodGet, "/auth/login", nil), adminID))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	assert.False(t, called)

	rec = httptest.NewRecorder()
	guard.RedirectIfAuthenticated(reached(&called)).ServeHTTP(rec,
		asUser(httptest.NewRequest(http.MethodGet, "/auth/login", nil), "someone-else"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestGuard_IsAdmin(t *testing.T) {
	assert.False(t, NewGuard("").IsAdmin(""))
	assert.False(t, NewGuard(adminID).IsAdmin(""))
	assert.True(t, NewGuard(adminID).IsAdmin(adminID))
}

func TestBearer(t *testing.T) {
	tokens := newTestTokens(t)
	token, err := tokens.Issue(adminID, "")
	require.NoError(t, err)

	var user string
	handler := Bearer(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = webcontext.GetCurrentUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminID, user)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer not.a.token"} {
		req := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), `"unauthorized"`)
	}
}
