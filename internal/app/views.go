package app

import (
	"net/http"

	"go.uber.org/zap"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
	"github.com/chikamso/portfolio/internal/web/session"
)

// page is the data every template receives
type page struct {
	UserID    string
	IsAdmin   bool
	CSRFToken string
	Flashes   []session.Flash
	Message   string
	Error     string
	Data      interface{}
}

type errorPage struct {
	Status  int
	Message string
}

// newPage fills the common fields. A CSRF token is only minted for signed-in
// users and when forms is set, so anonymous public pages stay cacheable.
func (a *App) newPage(r *http.Request, forms bool, data interface{}) *page {
	ctx := r.Context()
	p := &page{
		UserID:  session.UserID(ctx),
		Flashes: session.PopFlashes(ctx),
		Data:    data,
	}
	p.IsAdmin = a.Guard.IsAdmin(p.UserID)
	if forms || p.UserID != "" {
		p.CSRFToken = session.CSRFToken(ctx)
	}
	return p
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	if err := a.views.Render(w, status, name, p); err != nil {
		webcontext.Logger(r.Context()).Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (a *App) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	a.render(w, r, status, "error", a.newPage(r, false, errorPage{Status: status, Message: message}))
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, http.StatusNotFound, "This page could not be found.")
}

func (a *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	webcontext.Logger(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	a.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// redirectWithFlash queues message on the session and redirects with 303
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, message string) {
	session.AddFlash(r.Context(), kind, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
