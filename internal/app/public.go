package app

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/chikamso/portfolio/internal/portfolio"
)

type indexData struct {
	Projects []portfolio.Project
	Skills   []portfolio.Skill
}

// index lists published projects newest first and every skill by name
func (a *App) index(w http.ResponseWriter, r *http.Request) {
	var data indexData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		projects, err := a.Projects.ListPublished(ctx)
		data.Projects = projects
		return err
	})
	g.Go(func() error {
		skills, err := a.Skills.List(ctx)
		data.Skills = skills
		return err
	})
	if err := g.Wait(); err != nil {
		a.serverError(w, r, err)
		return
	}

	a.render(w, r, http.StatusOK, "index", a.newPage(r, false, data))
}
