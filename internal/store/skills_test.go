package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var skillCols = []string{"id", "created_at", "name", "icon_url", "category", "user_id"}

func TestStore_InsertSkill(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO skills")).
		WithArgs(sqlmock.AnyArg(), "Go", "https://cdn/go.svg", nil, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	sk := &portfolio.Skill{Name: "Go", IconURL: strPtr("https://cdn/go.svg"), UserID: "admin"}
	require.NoError(t, s.InsertSkill(context.Background(), sk))
	assert.NotEmpty(t, sk.ID)
	assert.Equal(t, created, sk.CreatedAt)
}

func TestStore_InsertSkillDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO skills")).
		WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (name)=(Go) already exists."})

	err := s.InsertSkill(context.Background(), &portfolio.Skill{Name: "Go"})
	assert.ErrorIs(t, err, ErrUniqueViolation)
}

func TestStore_UpdateSkill(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE skills SET name = $1, icon_url = $2, category = $3 WHERE id = $4")).
		WithArgs("Go", nil, "Languages", testID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE skills")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdateSkill(context.Background(), &portfolio.Skill{ID: testID, Name: "Go", Category: strPtr("Languages")}))
	assert.ErrorIs(t, s.UpdateSkill(context.Background(), &portfolio.Skill{ID: testID}), ErrNotFound)
}

func TestStore_DeleteSkill(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM skills WHERE id = $1")).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteSkill(context.Background(), testID))
	assert.ErrorIs(t, s.DeleteSkill(context.Background(), "x"), ErrNotFound)
}

func TestStore_SkillIconURL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT icon_url FROM skills WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"icon_url"}).AddRow("https://cdn/go.svg"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT icon_url FROM skills")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"icon_url"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT icon_url FROM skills")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"icon_url"}))

	icon, err := s.SkillIconURL(context.Background(), testID)
	require.NoError(t, err)
	require.NotNil(t, icon)
	assert.Equal(t, "https://cdn/go.svg", *icon)

	icon, err = s.SkillIconURL(context.Background(), testID)
	require.NoError(t, err)
	assert.Nil(t, icon)

	_, err = s.SkillIconURL(context.Background(), testID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetAndListSkills(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM skills WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows(skillCols).AddRow(testID, now, "Go", nil, "Languages", "admin"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM skills ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(skillCols).
			AddRow(testID, now, "Docker", nil, nil, "admin").
			AddRow(testID, now, "Go", "https://cdn/go.svg", "Languages", "admin"))

	sk, err := s.GetSkill(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "Go", sk.Name)
	assert.Nil(t, sk.IconURL)
	assert.Equal(t, "Languages", *sk.Category)

	list, err := s.ListSkills(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Docker", list[0].Name)
	assert.Nil(t, list[0].Category)
	assert.Equal(t, "https://cdn/go.svg", *list[1].IconURL)
}
