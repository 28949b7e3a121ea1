// Package request decodes request bodies: JSON for the API and multipart
// forms carrying image uploads for the admin area.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxJSONBytes bounds JSON request bodies
const DefaultMaxJSONBytes = 1 << 20

var (
	// ErrBodyTooLarge is returned when the body exceeds its limit
	ErrBodyTooLarge = errors.New("request body too large")
	// ErrEmptyBody is returned for a JSON request without a body
	ErrEmptyBody = errors.New("request body is empty")
)

// DecodeJSON strictly decodes a single JSON value from the body into target
func DecodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxJSONBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &maxErr):
			return ErrBodyTooLarge
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if dec.More() {
		return errors.New("invalid JSON: unexpected data after object")
	}
	return nil
}

// IsMultipart reports whether the request carries a multipart form
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// ParseForm parses urlencoded or multipart bodies, capping the whole body
// at maxBytes. Multipart parts beyond maxMemory spill to temp files.
func ParseForm(w http.ResponseWriter, r *http.Request, maxBytes, maxMemory int64) error {
	if r.Form != nil && (r.MultipartForm != nil || !IsMultipart(r)) {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var err error
	if IsMultipart(r) {
		err = r.ParseMultipartForm(maxMemory)
	} else {
		err = r.ParseForm()
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	if err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}
