package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const projectColumns = `id, created_at, title, description, technologies, github_url,
	live_demo_url, image_urls, is_published, user_id`

type projectRow struct {
	ID           string         `db:"id"`
	CreatedAt    time.Time      `db:"created_at"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Technologies pq.StringArray `db:"technologies"`
	GithubURL    sql.NullString `db:"github_url"`
	LiveDemoURL  sql.NullString `db:"live_demo_url"`
	ImageURLs    pq.StringArray `db:"image_urls"`
	IsPublished  bool           `db:"is_published"`
	UserID       string         `db:"user_id"`
}

func newProjectRow(p *portfolio.Project) projectRow {
	return projectRow{
		ID:           p.ID,
		CreatedAt:    p.CreatedAt,
		Title:        p.Title,
		Description:  p.Description,
		Technologies: nonNil(p.Technologies),
		GithubURL:    nullString(p.GithubURL),
		LiveDemoURL:  nullString(p.LiveDemoURL),
		ImageURLs:    nonNil(p.ImageURLs),
		IsPublished:  p.IsPublished,
		UserID:       p.UserID,
	}
}

func (r projectRow) project() portfolio.Project {
	return portfolio.Project{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		Title:        r.Title,
		Description:  r.Description,
		Technologies: nonNil(r.Technologies),
		GithubURL:    stringPtr(r.GithubURL),
		LiveDemoURL:  stringPtr(r.LiveDemoURL),
		ImageURLs:    nonNil(r.ImageURLs),
		IsPublished:  r.IsPublished,
		UserID:       r.UserID,
	}
}

// nonNil keeps empty arrays as '{}' instead of NULL
func nonNil(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return s
}

// InsertProject inserts p and fills in its ID and CreatedAt
func (s *Store) InsertProject(ctx context.Context, p *portfolio.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := newProjectRow(p)

	query, args, err := s.db.BindNamed(`
INSERT INTO projects (id, title, description, technologies, github_url,
	live_demo_url, image_urls, is_published, user_id)
VALUES (:id, :title, :description, :technologies, :github_url,
	:live_demo_url, :image_urls, :is_published, :user_id)
RETURNING created_at`, row)
	if err != nil {
		return err
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&p.CreatedAt); err != nil {
		return ConvertDBError(err)
	}
	return nil
}

// UpdateProject rewrites the editable columns of p
func (s *Store) UpdateProject(ctx context.Context, p *portfolio.Project) error {
	if !validID(p.ID) {
		return ErrNotFound
	}
	res, err := s.db.NamedExecContext(ctx, `
UPDATE projects SET
	title = :title,
	description = :description,
	technologies = :technologies,
	github_url = :github_url,
	live_demo_url = :live_demo_url,
	image_urls = :image_urls,
	is_published = :is_published
WHERE id = :id`, newProjectRow(p))
	if err != nil {
		return ConvertDBError(err)
	}
	return expectOne(res)
}

// DeleteProject deletes a project row
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return ConvertDBError(err)
	}
	return expectOne(res)
}

// ProjectImageURLs returns the stored image URLs of a project
func (s *Store) ProjectImageURLs(ctx context.Context, id string) ([]string, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var urls pq.StringArray
	err := s.db.QueryRowxContext(ctx, `SELECT image_urls FROM projects WHERE id = $1`, id).Scan(&urls)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return nonNil(urls), nil
}

// GetProject returns one project
func (s *Store) GetProject(ctx context.Context, id string) (*portfolio.Project, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row projectRow
	err := s.db.GetContext(ctx, &row, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	p := row.project()
	return &p, nil
}

// ListProjects returns projects newest first
func (s *Store) ListProjects(ctx context.Context, publishedOnly bool) ([]portfolio.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if publishedOnly {
		query += ` WHERE is_published`
	}
	query += ` ORDER BY created_at DESC`

	var rows []projectRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, ConvertDBError(err)
	}

	projects := make([]portfolio.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.project())
	}
	return projects, nil
}
