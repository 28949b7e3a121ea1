package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DatabaseStore keeps sessions in the sessions table created by the
// migrations. Queries use $n placeholders.
type DatabaseStore struct {
	db     *sql.DB
	logger *zap.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDatabaseStore creates a store on db and, when sweepInterval is
// positive, deletes expired rows in the background.
func NewDatabaseStore(db *sql.DB, sweepInterval time.Duration, logger *zap.Logger) *DatabaseStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DatabaseStore{db: db, logger: logger, stop: make(chan struct{})}
	if sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Get loads an unexpired session
func (s *DatabaseStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess    Session
		userID  sql.NullString
		csrf    sql.NullString
		flashes sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, csrf_token, flashes, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2`,
		id, time.Now().UTC(),
	).Scan(&sess.ID, &userID, &csrf, &flashes, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	sess.UserID = userID.String
	sess.CSRFToken = csrf.String
	if flashes.Valid && flashes.String != "" {
		if err := json.Unmarshal([]byte(flashes.String), &sess.Flashes); err != nil {
			return nil, fmt.Errorf("decode flashes: %w", err)
		}
	}
	return &sess, nil
}

// Save upserts a session
func (s *DatabaseStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	sess.ExpiresAt = time.Now().UTC().Add(ttl)

	flashes, err := json.Marshal(sess.Flashes)
	if err != nil {
		return fmt.Errorf("encode flashes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, csrf_token, flashes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			csrf_token = EXCLUDED.csrf_token,
			flashes = EXCLUDED.flashes,
			expires_at = EXCLUDED.expires_at`,
		sess.ID,
		nullString(sess.UserID),
		nullString(sess.CSRFToken),
		string(flashes),
		sess.CreatedAt.UTC(),
		sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session row
func (s *DatabaseStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired row and returns how many went
func (s *DatabaseStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the sweeper. The database handle belongs to the caller.
func (s *DatabaseStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *DatabaseStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			n, err := s.DeleteExpired(context.Background())
			if err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int64("count", n))
			}
		}
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
