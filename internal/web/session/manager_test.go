package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	cfg := DefaultConfig()
	cfg.Secure = false
	return NewManager(store, cfg, nil), store
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultConfig().CookieName {
			return c
		}
	}
	return nil
}

func TestManager_AnonymousSessionNotPersisted(t *testing.T) {
	m, store := newTestManager(t)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, FromContext(r.Context()))
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 0, store.Len())
	assert.Nil(t, sessionCookie(t, rec))
}

func TestManager_SavesOnImplicitOK(t *testing.T) {
	m, store := newTestManager(t)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddFlash(r.Context(), FlashSuccess, "saved")
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1, store.Len())

	sess, err := store.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, []Flash{{Kind: FlashSuccess, Message: "saved"}}, sess.Flashes)
}

func TestManager_SavesWhenHandlerWritesNothing(t *testing.T) {
	m, store := newTestManager(t)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).SignIn("user-1")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	require.NotNil(t, sessionCookie(t, rec))
	assert.Equal(t, 1, store.Len())
}

func TestManager_FlashSurvivesRedirect(t *testing.T) {
	m, _ := newTestManager(t)

	post := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddFlash(r.Context(), FlashSuccess, "Project created successfully!")
		http.Redirect(w, r, "/admin/projects", http.StatusSeeOther)
	}))
	rec := httptest.NewRecorder()
	post.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/projects/new", nil))
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)

	var got []Flash
	get := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PopFlashes(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/projects", nil)
	req.AddCookie(cookie)
	get.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, []Flash{{Kind: FlashSuccess, Message: "Project created successfully!"}}, got)

	got = nil
	req = httptest.NewRequest(http.MethodGet, "/admin/projects", nil)
	req.AddCookie(cookie)
	get.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, got, "flashes are shown once")
}

func TestManager_SetsCurrentUser(t *testing.T) {
	m, store := newTestManager(t)
	sess, err := New(time.Hour)
	require.NoError(t, err)
	sess.UserID = "admin-id"
	require.NoError(t, store.Save(context.Background(), sess, time.Hour))

	var user string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = webcontext.GetCurrentUser(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: DefaultConfig().CookieName, Value: sess.ID})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "admin-id", user)
}

func TestManager_RenewReplacesStoredSession(t *testing.T) {
	m, store := newTestManager(t)
	sess, err := New(time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sess, time.Hour))
	oldID := sess.ID

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		require.NoError(t, s.Renew())
		s.SignIn("user-1")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: DefaultConfig().CookieName, Value: oldID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.NotEqual(t, oldID, cookie.Value)

	_, err = store.Get(context.Background(), oldID)
	assert.ErrorIs(t, err, ErrNotFound)
	renewed, err := store.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", renewed.UserID)
}

func TestManager_Destroy(t *testing.T) {
	m, store := newTestManager(t)
	sess, err := New(time.Hour)
	require.NoError(t, err)
	sess.UserID = "user-1"
	require.NoError(t, store.Save(context.Background(), sess, time.Hour))

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Destroy()
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: DefaultConfig().CookieName, Value: sess.ID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Equal(t, 0, store.Len())
}

func TestManager_UnknownCookieStartsFresh(t *testing.T) {
	m, _ := newTestManager(t)
	var id string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = FromContext(r.Context()).ID
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultConfig().CookieName, Value: "forged"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEqual(t, "forged", id)
}

func TestHelpersOutsideMiddleware(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.Empty(t, UserID(ctx))
	assert.Empty(t, CSRFToken(ctx))
	assert.Nil(t, PopFlashes(ctx))
	AddFlash(ctx, FlashError, "ignored")
}
