package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// sessionsDDL mirrors the sessions migration in a form sqlite accepts.
const sessionsDDL = `
CREATE TABLE sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	csrf_token TEXT,
	flashes TEXT,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
)`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(sessionsDDL)
	require.NoError(t, err)
	return db
}

func TestDatabaseStore_RoundTrip(t *testing.T) {
	store := NewDatabaseStore(setupTestDB(t), 0, nil)
	defer store.Close()
	ctx := context.Background()

	sess, err := New(time.Hour)
	require.NoError(t, err)
	sess.SignIn("user-1")
	sess.AddFlash(FlashError, "Failed to create project: boom")
	require.NoError(t, store.Save(ctx, sess, time.Hour))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Empty(t, got.CSRFToken)
	assert.Equal(t, sess.Flashes, got.Flashes)

	got.SignOut()
	got.CSRFToken = "token"
	require.NoError(t, store.Save(ctx, got, time.Hour))

	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, again.UserID)
	assert.Equal(t, "token", again.CSRFToken)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabaseStore_ExpiredIsNotFound(t *testing.T) {
	store := NewDatabaseStore(setupTestDB(t), 0, nil)
	defer store.Close()
	ctx := context.Background()

	sess, err := New(time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sess, -time.Hour))

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDatabaseStore_Sweeper(t *testing.T) {
	db := setupTestDB(t)
	ignore := goleak.IgnoreCurrent()
	store := NewDatabaseStore(db, 5*time.Millisecond, nil)

	sess, err := New(time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sess, -time.Hour))

	assert.Eventually(t, func() bool {
		var count int
		_ = db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
		return count == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Close())
	goleak.VerifyNone(t, ignore)
}
