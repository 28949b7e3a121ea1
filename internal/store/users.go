package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// CreateUser inserts u. Emails are stored lower case.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = normalizeEmail(u.Email)
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
	return ConvertDBError(err)
}

// GetUserByEmail looks a user up by email, ignoring case
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &u, nil
}

// GetUser looks a user up by id
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
