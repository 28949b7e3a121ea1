// Package session keeps server-side sessions for the admin area: who is
// signed in, the CSRF token for their forms, and flash messages carried
// across redirects.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a session does not exist in the store
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a stored session is past its expiry
	ErrExpired = errors.New("session expired")
)

// Store persists sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Session is the server-side state behind a session cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	CSRFToken string    `json:"csrf_token,omitempty"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// previousID is the id to delete from the store after Renew
	previousID string
	dirty      bool
	destroyed  bool
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// New creates an unsaved session with a fresh random id.
func New(ttl time.Duration) (*Session, error) {
	id, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session is past its expiry
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SignIn records the authenticated user
func (s *Session) SignIn(userID string) {
	s.UserID = userID
	s.dirty = true
}

// SignOut forgets the authenticated user but keeps the session
func (s *Session) SignOut() {
	s.UserID = ""
	s.dirty = true
}

// AddFlash queues a message for the next page
func (s *Session) AddFlash(kind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

// PopFlashes returns the queued messages and clears them
func (s *Session) PopFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	flashes := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return flashes
}

// Renew swaps the session id while keeping its contents. Call it on every
// privilege change so a pre-login id cannot be reused.
func (s *Session) Renew() error {
	id, err := randomToken(32)
	if err != nil {
		return err
	}
	token, err := randomToken(32)
	if err != nil {
		return err
	}
	if s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = id
	s.CSRFToken = token
	s.dirty = true
	return nil
}

// Destroy marks the session for deletion at the end of the request
func (s *Session) Destroy() {
	s.destroyed = true
}

// Dirty reports whether the session changed during this request
func (s *Session) Dirty() bool {
	return s.dirty
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
