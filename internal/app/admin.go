package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/chikamso/portfolio/internal/portfolio"
	"github.com/chikamso/portfolio/internal/web/session"
)

const (
	adminProjectsPath = "/admin/projects"
	adminSkillsPath   = "/admin/skills"
)

type dashboardData struct {
	ProjectCount int
	SkillCount   int
}

type projectsData struct {
	Projects []portfolio.Project
}

type skillsData struct {
	Skills []portfolio.Skill
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	var data dashboardData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		projects, err := a.Projects.ListAll(ctx)
		data.ProjectCount = len(projects)
		return err
	})
	g.Go(func() error {
		skills, err := a.Skills.List(ctx)
		data.SkillCount = len(skills)
		return err
	})
	if err := g.Wait(); err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "dashboard", a.newPage(r, false, data))
}

// actor is the signed-in user the admin actions run as
func actor(r *http.Request) string {
	return session.UserID(r.Context())
}

// finish turns an action Result into a flash and a redirect, or re-renders
// the form with the message when the action failed.
func (a *App) finish(w http.ResponseWriter, r *http.Request, res portfolio.Result, redirectTo, formPage string, form interface{}) {
	if res.Success {
		redirectWithFlash(w, r, redirectTo, session.FlashSuccess, res.Message)
		return
	}
	status := http.StatusUnprocessableEntity
	if res.Message == portfolio.UnauthorizedMessage {
		status = http.StatusForbidden
	}
	p := a.newPage(r, true, form)
	p.Error = res.Message
	a.render(w, r, status, formPage, p)
}

func (a *App) showFormError(w http.ResponseWriter, r *http.Request, ferr *formError, formPage string, form interface{}) {
	p := a.newPage(r, true, form)
	p.Error = ferr.msg
	a.render(w, r, ferr.status, formPage, p)
}

func (a *App) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.Projects.ListAll(r.Context())
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "projects", a.newPage(r, true, projectsData{Projects: projects}))
}

func (a *App) newProject(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "project_form", a.newPage(r, true, projectForm{}))
}

func (a *App) createProject(w http.ResponseWriter, r *http.Request) {
	form, in, ferr := a.readProjectForm(w, r, fieldProjectImages)
	if ferr != nil {
		a.showFormError(w, r, ferr, "project_form", form)
		return
	}
	res := a.Projects.Create(r.Context(), actor(r), in)
	a.finish(w, r, res, adminProjectsPath, "project_form", form)
}

func (a *App) editProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, portfolio.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "project_form", a.newPage(r, true, projectFormFrom(p)))
}

func (a *App) updateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, in, ferr := a.readProjectForm(w, r, fieldNewProjectImages)
	form.ID = id
	if current, err := a.Projects.Get(r.Context(), id); err == nil {
		form.ImageURLs = current.ImageURLs
	}
	if ferr != nil {
		a.showFormError(w, r, ferr, "project_form", form)
		return
	}
	res := a.Projects.Update(r.Context(), actor(r), id, in)
	a.finish(w, r, res, adminProjectsPath, "project_form", form)
}

func (a *App) deleteProject(w http.ResponseWriter, r *http.Request) {
	res := a.Projects.Delete(r.Context(), actor(r), chi.URLParam(r, "id"))
	kind := session.FlashSuccess
	if !res.Success {
		kind = session.FlashError
	}
	redirectWithFlash(w, r, adminProjectsPath, kind, res.Message)
}

func (a *App) listSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := a.Skills.List(r.Context())
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "skills", a.newPage(r, true, skillsData{Skills: skills}))
}

func (a *App) newSkill(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "skill_form", a.newPage(r, true, skillForm{}))
}

func (a *App) createSkill(w http.ResponseWriter, r *http.Request) {
	form, in, ferr := a.readSkillForm(w, r, fieldIcon)
	if ferr != nil {
		a.showFormError(w, r, ferr, "skill_form", form)
		return
	}
	res := a.Skills.Create(r.Context(), actor(r), in)
	a.finish(w, r, res, adminSkillsPath, "skill_form", form)
}

func (a *App) editSkill(w http.ResponseWriter, r *http.Request) {
	s, err := a.Skills.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, portfolio.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.render(w, r, http.StatusOK, "skill_form", a.newPage(r, true, skillFormFrom(s)))
}

func (a *App) updateSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form, in, ferr := a.readSkillForm(w, r, fieldNewIcon)
	form.ID = id
	if ferr != nil {
		a.showFormError(w, r, ferr, "skill_form", form)
		return
	}
	res := a.Skills.Update(r.Context(), actor(r), id, in)
	a.finish(w, r, res, adminSkillsPath, "skill_form", form)
}

func (a *App) deleteSkill(w http.ResponseWriter, r *http.Request) {
	res := a.Skills.Delete(r.Context(), actor(r), chi.URLParam(r, "id"))
	kind := session.FlashSuccess
	if !res.Success {
		kind = session.FlashError
	}
	redirectWithFlash(w, r, adminSkillsPath, kind, res.Message)
}
