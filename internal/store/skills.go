package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/google/uuid"
)

type skillRow struct {
	ID        string         `db:"id"`
	CreatedAt time.Time      `db:"created_at"`
	Name      string         `db:"name"`
	IconURL   sql.NullString `db:"icon_url"`
	Category  sql.NullString `db:"category"`
	UserID    string         `db:"user_id"`
}

func (r skillRow) skill() portfolio.Skill {
	return portfolio.Skill{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Name:      r.Name,
		IconURL:   stringPtr(r.IconURL),
		Category:  stringPtr(r.Category),
		UserID:    r.UserID,
	}
}

// InsertSkill inserts sk and fills in its ID and CreatedAt
func (s *Store) InsertSkill(ctx context.Context, sk *portfolio.Skill) error {
	if sk.ID == "" {
		sk.ID = uuid.NewString()
	}
	err := s.db.QueryRowxContext(ctx, `
INSERT INTO skills (id, name, icon_url, category, user_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`,
		sk.ID, sk.Name, nullString(sk.IconURL), nullString(sk.Category), sk.UserID,
	).Scan(&sk.CreatedAt)
	return ConvertDBError(err)
}

// UpdateSkill rewrites name, icon and category
func (s *Store) UpdateSkill(ctx context.Context, sk *portfolio.Skill) error {
	if !validID(sk.ID) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE skills SET name = $1, icon_url = $2, category = $3 WHERE id = $4`,
		sk.Name, nullString(sk.IconURL), nullString(sk.Category), sk.ID,
	)
	if err != nil {
		return ConvertDBError(err)
	}
	return expectOne(res)
}

// DeleteSkill deletes a skill row
func (s *Store) DeleteSkill(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return ConvertDBError(err)
	}
	return expectOne(res)
}

// SkillIconURL returns the icon URL of a skill, nil when it has none
func (s *Store) SkillIconURL(ctx context.Context, id string) (*string, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var icon sql.NullString
	if err := s.db.QueryRowxContext(ctx, `SELECT icon_url FROM skills WHERE id = $1`, id).Scan(&icon); err != nil {
		return nil, ConvertDBError(err)
	}
	return stringPtr(icon), nil
}

// GetSkill returns one skill
func (s *Store) GetSkill(ctx context.Context, id string) (*portfolio.Skill, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var row skillRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, created_at, name, icon_url, category, user_id FROM skills WHERE id = $1`, id)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	sk := row.skill()
	return &sk, nil
}

// ListSkills returns skills ordered by name
func (s *Store) ListSkills(ctx context.Context) ([]portfolio.Skill, error) {
	var rows []skillRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, created_at, name, icon_url, category, user_id FROM skills ORDER BY name ASC`)
	if err != nil {
		return nil, ConvertDBError(err)
	}

	skills := make([]portfolio.Skill, 0, len(rows))
	for _, r := range rows {
		skills = append(skills, r.skill())
	}
	return skills, nil
}
