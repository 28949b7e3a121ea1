package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/chikamso/portfolio/internal/web/auth"
	webcontext "github.com/chikamso/portfolio/internal/web/context"
	"github.com/chikamso/portfolio/internal/web/middleware"
	"github.com/chikamso/portfolio/internal/web/request"
	"github.com/chikamso/portfolio/internal/web/response"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// projectRequest is the JSON form of a project. Images can only be sent
// with multipart requests.
type projectRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Technologies    []string `json:"technologies"`
	GithubURL       string   `json:"github_url"`
	LiveDemoURL     string   `json:"live_demo_url"`
	IsPublished     bool     `json:"is_published"`
	RemoveImageURLs []string `json:"remove_image_urls"`
}

type skillRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (a *App) apiRoutes(r chi.Router) {
	if len(a.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.APICORSConfig(a.CORSOrigins)))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "")
	})

	r.With(a.loginRateLimit()).Post("/auth/token", a.issueToken)
	r.Get("/projects", a.apiListProjects)
	r.Get("/projects/{id}", a.apiGetProject)
	r.Get("/skills", a.apiListSkills)

	if a.Tokens == nil {
		return
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.Bearer(a.Tokens))
		r.Post("/projects", a.apiCreateProject)
		r.Put("/projects/{id}", a.apiUpdateProject)
		r.Delete("/projects/{id}", a.apiDeleteProject)
		r.Post("/skills", a.apiCreateSkill)
		r.Put("/skills/{id}", a.apiUpdateSkill)
		r.Delete("/skills/{id}", a.apiDeleteSkill)
	})
}

func (a *App) issueToken(w http.ResponseWriter, r *http.Request) {
	if a.Tokens == nil {
		response.RenderError(w, response.NewHTTPError(http.StatusNotFound, "Token authentication is disabled"))
		return
	}
	var req tokenRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	user, err := a.authenticate(r, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		response.RenderUnauthorized(w, err.Error())
		return
	}

	token, err := a.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		webcontext.Logger(r.Context()).Error("token issue failed", zap.Error(err))
		response.RenderError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(a.Tokens.TTL().Seconds()),
	})
}

func (a *App) apiListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.Projects.ListPublished(r.Context())
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderData(w, projects)
}

func (a *App) apiGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, portfolio.ErrNotFound) || (err == nil && !p.IsPublished) {
		response.RenderNotFound(w, "Project not found")
		return
	}
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderData(w, p)
}

func (a *App) apiListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := a.Skills.List(r.Context())
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderData(w, skills)
}

// writeResult sends an action Result with a status matching its outcome
func writeResult(w http.ResponseWriter, res portfolio.Result, successStatus int) {
	status := successStatus
	switch {
	case res.Success:
	case res.Message == portfolio.UnauthorizedMessage:
		status = http.StatusForbidden
	default:
		status = http.StatusUnprocessableEntity
	}
	response.JSON(w, status, res)
}

func writeFormError(w http.ResponseWriter, ferr *formError) {
	response.JSON(w, ferr.status, portfolio.Result{Success: false, Message: ferr.msg})
}

// readProjectRequest accepts the admin multipart form or a JSON body
func (a *App) readProjectRequest(w http.ResponseWriter, r *http.Request, imageField string) (portfolio.ProjectInput, *formError) {
	if request.IsMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxFormBytes)
		_, in, ferr := a.readProjectForm(w, r, imageField)
		return in, ferr
	}

	var req projectRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		return portfolio.ProjectInput{}, parseFormError(err)
	}
	return portfolio.ProjectInput{
		Title:           req.Title,
		Description:     req.Description,
		Technologies:    strings.Join(req.Technologies, ","),
		GithubURL:       req.GithubURL,
		LiveDemoURL:     req.LiveDemoURL,
		IsPublished:     req.IsPublished,
		RemoveImageURLs: req.RemoveImageURLs,
	}, nil
}

func (a *App) readSkillRequest(w http.ResponseWriter, r *http.Request, iconField string) (portfolio.SkillInput, *formError) {
	if request.IsMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxFormBytes)
		_, in, ferr := a.readSkillForm(w, r, iconField)
		return in, ferr
	}

	var req skillRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		return portfolio.SkillInput{}, parseFormError(err)
	}
	return portfolio.SkillInput{Name: req.Name, Category: req.Category}, nil
}

func currentUser(r *http.Request) string {
	return webcontext.GetCurrentUser(r.Context())
}

func (a *App) apiCreateProject(w http.ResponseWriter, r *http.Request) {
	in, ferr := a.readProjectRequest(w, r, fieldProjectImages)
	if ferr != nil {
		writeFormError(w, ferr)
		return
	}
	writeResult(w, a.Projects.Create(r.Context(), currentUser(r), in), http.StatusCreated)
}

func (a *App) apiUpdateProject(w http.ResponseWriter, r *http.Request) {
	in, ferr := a.readProjectRequest(w, r, fieldNewProjectImages)
	if ferr != nil {
		writeFormError(w, ferr)
		return
	}
	writeResult(w, a.Projects.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), in), http.StatusOK)
}

func (a *App) apiDeleteProject(w http.ResponseWriter, r *http.Request) {
	writeResult(w, a.Projects.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")), http.StatusOK)
}

func (a *App) apiCreateSkill(w http.ResponseWriter, r *http.Request) {
	in, ferr := a.readSkillRequest(w, r, fieldIcon)
	if ferr != nil {
		writeFormError(w, ferr)
		return
	}
	writeResult(w, a.Skills.Create(r.Context(), currentUser(r), in), http.StatusCreated)
}

func (a *App) apiUpdateSkill(w http.ResponseWriter, r *http.Request) {
	in, ferr := a.readSkillRequest(w, r, fieldNewIcon)
	if ferr != nil {
		writeFormError(w, ferr)
		return
	}
	writeResult(w, a.Skills.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), in), http.StatusOK)
}

func (a *App) apiDeleteSkill(w http.ResponseWriter, r *http.Request) {
	writeResult(w, a.Skills.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")), http.StatusOK)
}
