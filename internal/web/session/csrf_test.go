package session

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// csrfHarness runs a GET to mint a token, then returns the cookie and token.
func csrfHarness(t *testing.T, m *Manager) (*http.Cookie, string) {
	t.Helper()
	var token string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFToken(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/projects/new", nil))
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	require.NotEmpty(t, token)
	return cookie, token
}

func protected(m *Manager) http.Handler {
	return m.Middleware(CSRF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
}

func TestCSRF_FormToken(t *testing.T) {
	m, _ := newTestManager(t)
	cookie, token := csrfHarness(t, m)

	form := url.Values{CSRFField: {token}, "title": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/projects/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	protected(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_MultipartToken(t *testing.T) {
	m, _ := newTestManager(t)
	cookie, token := csrfHarness(t, m)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(CSRFField, token))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/projects/new", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	protected(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_HeaderToken(t *testing.T) {
	m, _ := newTestManager(t)
	cookie, token := csrfHarness(t, m)

	req := httptest.NewRequest(http.MethodPost, "/admin/projects/1/delete", nil)
	req.Header.Set(CSRFHeader, token)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	protected(m).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_Rejections(t *testing.T) {
	m, _ := newTestManager(t)
	cookie, _ := csrfHarness(t, m)

	req := httptest.NewRequest(http.MethodPost, "/admin/projects/1/delete", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	protected(m).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrCSRFMissing.Error())

	req = httptest.NewRequest(http.MethodPost, "/admin/projects/1/delete", nil)
	req.Header.Set(CSRFHeader, "wrong")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	protected(m).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrCSRFInvalid.Error())
}

func TestCSRF_SkipsSafeAndBearer(t *testing.T) {
	m, _ := newTestManager(t)

	rec := httptest.NewRecorder()
	protected(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/1", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	protected(m).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRF_BodyOverLimit(t *testing.T) {
	m, _ := newTestManager(t)
	cookie, token := csrfHarness(t, m)

	limited := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
			h.ServeHTTP(w, r)
		})
	}
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(CSRFField, token))
	part, err := mw.CreateFormFile("project_images", "big.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0}, 4<<10))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	t.Run("multipart default response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/projects/new", bytes.NewReader(body.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		limited(m.Middleware(CSRF(next))).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.False(t, reached)
	})

	t.Run("urlencoded custom response", func(t *testing.T) {
		form := url.Values{CSRFField: {token}, "description": {strings.Repeat("x", 4<<10)}}
		req := httptest.NewRequest(http.MethodPost, "/admin/skills/new", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler := CSRFWithConfig(CSRFConfig{OnBodyTooLarge: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "too big", http.StatusRequestEntityTooLarge)
		}})(next)
		limited(m.Middleware(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "too big")
		assert.False(t, reached)
	})
}
