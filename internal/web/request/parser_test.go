package request

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(`{"email":"me@example.com","password":"secret"}`))
	var c credentials
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &c))
	assert.Equal(t, credentials{Email: "me@example.com", Password: "secret"}, c)
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "", ErrEmptyBody},
		{"too large", `{"email":"` + strings.Repeat("a", DefaultMaxJSONBytes) + `"}`, ErrBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var c credentials
			assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &c), tt.want)
		})
	}

	for _, body := range []string{`{"email":`, `{"unknown":1}`, `{"email":"a"} {"email":"b"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var c credentials
		err := DecodeJSON(httptest.NewRecorder(), req, &c)
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), "invalid JSON")
	}
}

func TestParseForm_URLEncoded(t *testing.T) {
	form := url.Values{"name": {"Go"}, "category": {"Languages"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/skills/new", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	require.NoError(t, ParseForm(httptest.NewRecorder(), req, 1<<20, 1<<20))
	assert.False(t, IsMultipart(req))
	assert.Equal(t, "Go", req.FormValue("name"))
}

func TestParseForm_TooLarge(t *testing.T) {
	req := multipartRequest(t, nil, part{"images", "a.png", make([]byte, 4096)})
	err := ParseForm(httptest.NewRecorder(), req, 1024, 512)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestParseForm_Idempotent(t *testing.T) {
	req := multipartRequest(t, map[string]string{"title": "x"})
	require.NoError(t, ParseForm(httptest.NewRecorder(), req, 1<<20, 1<<20))
	assert.True(t, IsMultipart(req))
	require.NoError(t, ParseForm(httptest.NewRecorder(), req, 1<<20, 1<<20))
	assert.Equal(t, "x", req.FormValue("title"))
}
