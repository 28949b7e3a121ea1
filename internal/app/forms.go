package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/chikamso/portfolio/internal/web/request"
)

// Multipart field names used by the admin forms
const (
	fieldProjectImages    = "project_images"
	fieldNewProjectImages = "new_project_images"
	fieldRemoveImageURLs  = "remove_image_urls"
	fieldIcon             = "icon_file"
	fieldNewIcon          = "new_icon_file"
)

const maxFormMemory = 8 << 20

const uploadTooLarge = "The upload is too large."

// projectForm redisplays a project form
type projectForm struct {
	ID           string
	Title        string
	Description  string
	Technologies string
	GithubURL    string
	LiveDemoURL  string
	IsPublished  bool
	ImageURLs    []string
}

func projectFormFrom(p *portfolio.Project) projectForm {
	return projectForm{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Technologies: strings.Join(p.Technologies, ", "),
		GithubURL:    deref(p.GithubURL),
		LiveDemoURL:  deref(p.LiveDemoURL),
		IsPublished:  p.IsPublished,
		ImageURLs:    p.ImageURLs,
	}
}

func (f projectForm) input() portfolio.ProjectInput {
	return portfolio.ProjectInput{
		Title:        f.Title,
		Description:  f.Description,
		Technologies: f.Technologies,
		GithubURL:    f.GithubURL,
		LiveDemoURL:  f.LiveDemoURL,
		IsPublished:  f.IsPublished,
	}
}

// skillForm redisplays a skill form
type skillForm struct {
	ID       string
	Name     string
	Category string
	IconURL  string
}

func skillFormFrom(s *portfolio.Skill) skillForm {
	return skillForm{ID: s.ID, Name: s.Name, Category: deref(s.Category), IconURL: deref(s.IconURL)}
}

// formError is a problem with the submitted form, reported back on the form
type formError struct {
	status int
	msg    string
}

func (e *formError) Error() string { return e.msg }

func parseFormError(err error) *formError {
	if errors.Is(err, request.ErrBodyTooLarge) {
		return &formError{status: http.StatusRequestEntityTooLarge, msg: uploadTooLarge}
	}
	return &formError{status: http.StatusBadRequest, msg: err.Error()}
}

// readProjectForm parses a project form posted as multipart or urlencoded.
// imageField selects the file input, which differs between create and edit.
func (a *App) readProjectForm(w http.ResponseWriter, r *http.Request, imageField string) (projectForm, portfolio.ProjectInput, *formError) {
	var form projectForm
	if err := request.ParseForm(w, r, a.MaxFormBytes, maxFormMemory); err != nil {
		return form, portfolio.ProjectInput{}, parseFormError(err)
	}

	form = projectForm{
		Title:        strings.TrimSpace(r.PostFormValue("title")),
		Description:  r.PostFormValue("description"),
		Technologies: r.PostFormValue("technologies"),
		GithubURL:    strings.TrimSpace(r.PostFormValue("github_url")),
		LiveDemoURL:  strings.TrimSpace(r.PostFormValue("live_demo_url")),
		IsPublished:  portfolio.Checkbox(r.PostFormValue("is_published")),
	}
	in := form.input()
	in.RemoveImageURLs = r.PostForm[fieldRemoveImageURLs]

	files, err := request.Images(r, imageField, a.Images)
	if err != nil {
		return form, in, &formError{status: http.StatusUnprocessableEntity, msg: err.Error()}
	}
	for _, f := range files {
		in.Images = append(in.Images, upload(f))
	}
	return form, in, nil
}

func (a *App) readSkillForm(w http.ResponseWriter, r *http.Request, iconField string) (skillForm, portfolio.SkillInput, *formError) {
	var form skillForm
	if err := request.ParseForm(w, r, a.MaxFormBytes, maxFormMemory); err != nil {
		return form, portfolio.SkillInput{}, parseFormError(err)
	}

	form = skillForm{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Category: strings.TrimSpace(r.PostFormValue("category")),
	}
	in := portfolio.SkillInput{Name: form.Name, Category: form.Category}

	icon, err := request.Image(r, iconField, a.Images)
	if err != nil {
		return form, in, &formError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf("Icon %v", err)}
	}
	if icon != nil {
		u := upload(icon)
		in.Icon = &u
	}
	return form, in, nil
}

func upload(f *request.File) portfolio.Upload {
	return portfolio.Upload{
		Name:        f.Filename,
		Size:        f.Size,
		ContentType: f.ContentType,
		Open:        f.Open,
	}
}
