package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
)

type countingHandler struct {
	calls int
	body  string
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(h.body))
}

func newPageStack(t *testing.T) (*MemoryCache, *countingHandler, http.Handler) {
	t.Helper()
	c := NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	h := &countingHandler{body: "<h1>projects</h1>"}
	return c, h, Pages(PageConfig{Cache: c, TTL: time.Minute, CacheControl: "public, max-age=60"})(h)
}

func get(handler http.Handler, path string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPages_MissThenHit(t *testing.T) {
	_, h, handler := newPageStack(t)

	first := get(handler, "/")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "<h1>projects</h1>", first.Body.String())

	second := get(handler, "/")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "<h1>projects</h1>", second.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=60", second.Header().Get("Cache-Control"))
	assert.NotEmpty(t, second.Header().Get("ETag"))

	assert.Equal(t, 1, h.calls)
}

func TestPages_ConditionalRequest(t *testing.T) {
	_, _, handler := newPageStack(t)
	get(handler, "/")
	etag := get(handler, "/").Header().Get("ETag")

	rec := get(handler, "/", func(r *http.Request) { r.Header.Set("If-None-Match", etag) })
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = get(handler, "/", func(r *http.Request) { r.Header.Set("If-None-Match", `"other"`) })
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPages_Bypass(t *testing.T) {
	c, h, handler := newPageStack(t)

	get(handler, "/", func(r *http.Request) {
		*r = *r.WithContext(webcontext.SetCurrentUser(r.Context(), "admin"))
	})
	get(handler, "/?preview=1")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 2, h.calls)
}

func TestPages_SkipsErrorsAndCookies(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	mw := Pages(PageConfig{Cache: c, TTL: time.Minute})

	get(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})), "/")
	get(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "s", Value: "v"})
		_, _ = w.Write([]byte("hi"))
	})), "/")

	assert.Equal(t, 0, c.Len())
}

func TestInvalidator_RevalidatePath(t *testing.T) {
	c, h, handler := newPageStack(t)
	inv := NewInvalidator(c, nil)

	get(handler, "/")
	get(handler, "/")
	require.Equal(t, 1, h.calls)

	h.body = "<h1>new project</h1>"
	require.NoError(t, inv.RevalidatePath(context.Background(), "/"))

	rec := get(handler, "/")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "<h1>new project</h1>", rec.Body.String())
	assert.Equal(t, 2, h.calls)

	require.NoError(t, inv.RevalidatePath(context.Background(), "/admin/projects"))
}

type failingCache struct{ Cache }

func (failingCache) Delete(context.Context, ...string) error { return errors.New("down") }

func TestInvalidator_ReportsErrors(t *testing.T) {
	inv := NewInvalidator(failingCache{}, nil)
	assert.Error(t, inv.RevalidatePath(context.Background(), "/"))
}

func TestInvalidator_RevalidateAll(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	require.NoError(t, c.Set(context.Background(), PageKey("/"), []byte("x"), 0))

	require.NoError(t, NewInvalidator(c, nil).RevalidateAll(context.Background()))
	assert.Equal(t, 0, c.Len())
}
