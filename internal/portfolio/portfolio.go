// Package portfolio holds the projects and skills shown on the public site
// and the admin actions that create, update and delete them.
//
// Every admin action uploads images to the bucket first, writes the row
// second and invalidates cached pages last. Storage failures are logged and
// never fail the row write. Database failures are reported in the Result.
package portfolio

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by stores when a row does not exist
var ErrNotFound = errors.New("not found")

// UnauthorizedMessage is the Result message for non-admin actors
const UnauthorizedMessage = "Unauthorized action."

// Project is a portfolio entry
type Project struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Technologies []string  `json:"technologies"`
	GithubURL    *string   `json:"github_url"`
	LiveDemoURL  *string   `json:"live_demo_url"`
	ImageURLs    []string  `json:"image_urls"`
	IsPublished  bool      `json:"is_published"`
	UserID       string    `json:"user_id"`
}

// Skill is a technology listed on the public site
type Skill struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	IconURL   *string   `json:"icon_url"`
	Category  *string   `json:"category"`
	UserID    string    `json:"user_id"`
}

// Result is returned by every admin action
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func success(message string) Result {
	return Result{Success: true, Message: message}
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}

// Upload is one file submitted with a form
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Revalidator drops cached renderings of a path
type Revalidator interface {
	RevalidatePath(ctx context.Context, path string) error
}

// ProjectStore persists projects
type ProjectStore interface {
	InsertProject(ctx context.Context, p *Project) error
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error
	ProjectImageURLs(ctx context.Context, id string) ([]string, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, publishedOnly bool) ([]Project, error)
}

// SkillStore persists skills
type SkillStore interface {
	InsertSkill(ctx context.Context, s *Skill) error
	UpdateSkill(ctx context.Context, s *Skill) error
	DeleteSkill(ctx context.Context, id string) error
	SkillIconURL(ctx context.Context, id string) (*string, error)
	GetSkill(ctx context.Context, id string) (*Skill, error)
	ListSkills(ctx context.Context) ([]Skill, error)
}
