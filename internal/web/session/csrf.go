package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// CSRF form field and header names
const (
	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

var (
	// ErrCSRFMissing is returned when an unsafe request carries no token
	ErrCSRFMissing = errors.New("CSRF token missing")
	// ErrCSRFInvalid is returned when the token does not match the session
	ErrCSRFInvalid = errors.New("CSRF token invalid")
	// ErrBodyTooLarge is returned when the form carrying the token exceeds
	// the body limit set before the check
	ErrBodyTooLarge = errors.New("request body too large")
)

// maxMultipartMemory is the in-memory part of multipart parsing done to read
// the token; larger files spill to disk.
const maxMultipartMemory = 32 << 20

// CSRFConfig configures the CSRF middleware
type CSRFConfig struct {
	// OnBodyTooLarge answers requests whose body overran an http.MaxBytesReader
	// while the token was read. Defaults to a plain 413.
	OnBodyTooLarge http.HandlerFunc
}

// CSRF rejects unsafe requests whose token does not match the session. It
// must run inside Manager.Middleware. Requests authenticated by a bearer
// token skip the check since browsers never attach those automatically.
func CSRF(next http.Handler) http.Handler {
	return CSRFWithConfig(CSRFConfig{})(next)
}

// CSRFWithConfig returns the CSRF middleware with custom configuration
func CSRFWithConfig(config CSRFConfig) func(http.Handler) http.Handler {
	if config.OnBodyTooLarge == nil {
		config.OnBodyTooLarge = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		}
	}
	return func(next http.Handler) http.Handler {
		return csrfHandler(config, next)
	}
}

func csrfHandler(config CSRFConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		sess := FromContext(r.Context())
		if sess == nil {
			http.Error(w, ErrNotFound.Error(), http.StatusForbidden)
			return
		}

		err := verifyCSRF(r, sess)
		if errors.Is(err, ErrBodyTooLarge) {
			config.OnBodyTooLarge(w, r)
			return
		}
		if err != nil {
			http.Error(w, "Forbidden: "+err.Error(), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func verifyCSRF(r *http.Request, sess *Session) error {
	token := r.Header.Get(CSRFHeader)
	if token == "" {
		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			err = r.ParseMultipartForm(maxMultipartMemory)
		} else {
			err = r.ParseForm()
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		token = r.FormValue(CSRFField)
	}
	if token == "" {
		return ErrCSRFMissing
	}
	if sess.CSRFToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
		return ErrCSRFInvalid
	}
	return nil
}

// CSRFToken returns the session token, creating one on first use.
func CSRFToken(ctx context.Context) string {
	sess := FromContext(ctx)
	if sess == nil {
		return ""
	}
	if sess.CSRFToken == "" {
		token, err := randomToken(32)
		if err != nil {
			return ""
		}
		sess.CSRFToken = token
		sess.dirty = true
	}
	return sess.CSRFToken
}
