package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectCols = []string{
	"id", "created_at", "title", "description", "technologies", "github_url",
	"live_demo_url", "image_urls", "is_published", "user_id",
}

func strPtr(s string) *string { return &s }

func TestStore_InsertProject(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects")).
		WithArgs(sqlmock.AnyArg(), "Portfolio", "This site", `{"Go","SQL"}`,
			"https://github.com/me/site", nil, `{}`, true, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	p := &portfolio.Project{
		Title:        "Portfolio",
		Description:  "This site",
		Technologies: []string{"Go", "SQL"},
		GithubURL:    strPtr("https://github.com/me/site"),
		IsPublished:  true,
		UserID:       "admin",
	}
	require.NoError(t, s.InsertProject(context.Background(), p))

	assert.True(t, validID(p.ID))
	assert.Equal(t, created, p.CreatedAt)
}

func TestStore_InsertProjectConstraint(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects")).
		WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "title"})

	err := s.InsertProject(context.Background(), &portfolio.Project{})
	assert.ErrorIs(t, err, ErrNotNullViolation)
}

func TestStore_UpdateProject(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET")).
		WithArgs("New", "", `{"Go"}`, nil, "https://demo.test", `{"https://cdn/a.png"}`, false, testID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateProject(context.Background(), &portfolio.Project{
		ID:           testID,
		Title:        "New",
		Technologies: []string{"Go"},
		LiveDemoURL:  strPtr("https://demo.test"),
		ImageURLs:    []string{"https://cdn/a.png"},
	})
	require.NoError(t, err)
}

func TestStore_UpdateProjectMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProject(context.Background(), &portfolio.Project{ID: testID})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateProject(context.Background(), &portfolio.Project{ID: "not-a-uuid"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteProject(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM projects WHERE id = $1")).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM projects WHERE id = $1")).
		WithArgs(testID).
		WillReturnError(errors.New("permission denied for table projects"))

	require.NoError(t, s.DeleteProject(context.Background(), testID))
	assert.EqualError(t, s.DeleteProject(context.Background(), testID), "permission denied for table projects")
}

func TestStore_ProjectImageURLs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT image_urls FROM projects WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"image_urls"}).AddRow(`{"https://cdn/a.png","https://cdn/b.png"}`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT image_urls FROM projects")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"image_urls"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT image_urls FROM projects")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"image_urls"}))

	urls, err := s.ProjectImageURLs(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.png", "https://cdn/b.png"}, urls)

	urls, err = s.ProjectImageURLs(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, urls)

	_, err = s.ProjectImageURLs(context.Background(), testID)
	assert.ErrorIs(t, err, portfolio.ErrNotFound)

	_, err = s.ProjectImageURLs(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetProject(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows(projectCols).AddRow(
			testID, created, "Site", "Desc", `{"Go"}`, "https://github.com/x", nil, `{}`, true, "admin",
		))

	p, err := s.GetProject(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "Site", p.Title)
	assert.Equal(t, []string{"Go"}, p.Technologies)
	require.NotNil(t, p.GithubURL)
	assert.Equal(t, "https://github.com/x", *p.GithubURL)
	assert.Nil(t, p.LiveDemoURL)
	assert.Equal(t, []string{}, p.ImageURLs)
	assert.True(t, p.IsPublished)
	assert.Equal(t, created, p.CreatedAt)
}

func TestStore_ListProjects(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE is_published ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(projectCols).
			AddRow(testID, now, "B", "", `{}`, nil, nil, `{}`, true, "admin").
			AddRow(testID, now.Add(-time.Hour), "A", "", `{}`, nil, nil, `{}`, true, "admin"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM projects ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(projectCols))

	published, err := s.ListProjects(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "B", published[0].Title)

	all, err := s.ListProjects(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
