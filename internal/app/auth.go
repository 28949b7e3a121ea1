package app

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chikamso/portfolio/internal/store"
	"github.com/chikamso/portfolio/internal/web/auth"
	webcontext "github.com/chikamso/portfolio/internal/web/context"
	"github.com/chikamso/portfolio/internal/web/session"
)

const invalidCredentials = "Invalid login credentials"

type credentialsForm struct {
	Email       string
	AllowSignup bool
}

func (a *App) loginForm(w http.ResponseWriter, r *http.Request) {
	p := a.newPage(r, true, credentialsForm{AllowSignup: a.AllowSignup})
	p.Message = r.URL.Query().Get("message")
	a.render(w, r, http.StatusOK, "login", p)
}

// login checks the credentials and starts an authenticated session under a
// fresh id. Everyone is sent to /admin, where the guard turns non-admins
// back with an explanation.
func (a *App) login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	form := credentialsForm{Email: email, AllowSignup: a.AllowSignup}

	user, err := a.authenticate(r, email, password)
	if err != nil {
		p := a.newPage(r, true, form)
		p.Error = err.Error()
		a.render(w, r, http.StatusUnauthorized, "login", p)
		return
	}

	if err := a.startSession(r, user.ID); err != nil {
		a.serverError(w, r, err)
		return
	}
	webcontext.Logger(r.Context()).Info("user signed in", zap.String("user_id", user.ID))
	http.Redirect(w, r, auth.AdminPath, http.StatusSeeOther)
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		if sess.UserID != "" {
			webcontext.Logger(r.Context()).Info("user signed out", zap.String("user_id", sess.UserID))
		}
		sess.Destroy()
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (a *App) signupForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "signup", a.newPage(r, true, credentialsForm{}))
}

func (a *App) signup(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	form := credentialsForm{Email: email}

	fail := func(status int, message string) {
		p := a.newPage(r, true, form)
		p.Error = message
		a.render(w, r, status, "signup", p)
	}

	if email == "" || !strings.Contains(email, "@") {
		fail(http.StatusUnprocessableEntity, "Please enter a valid email address")
		return
	}
	if password != r.PostFormValue("repeat_password") {
		fail(http.StatusUnprocessableEntity, "Passwords do not match")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			fail(http.StatusUnprocessableEntity, err.Error())
			return
		}
		a.serverError(w, r, err)
		return
	}

	user := &store.User{Email: email, PasswordHash: hash}
	if err := a.Users.CreateUser(r.Context(), user); err != nil {
		if store.IsUniqueViolation(err) {
			fail(http.StatusConflict, "An account with this email already exists")
			return
		}
		a.serverError(w, r, err)
		return
	}

	if err := a.startSession(r, user.ID); err != nil {
		a.serverError(w, r, err)
		return
	}
	webcontext.Logger(r.Context()).Info("user signed up", zap.String("user_id", user.ID))
	redirectWithFlash(w, r, "/", session.FlashSuccess, "Your account has been created.")
}

// authenticate returns the user for a correct email and password. Unknown
// emails and wrong passwords get the same error.
func (a *App) authenticate(r *http.Request, email, password string) (*store.User, error) {
	if email == "" || password == "" {
		return nil, errors.New(invalidCredentials)
	}
	user, err := a.Users.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !store.IsNotFound(err) {
			webcontext.Logger(r.Context()).Error("user lookup failed", zap.Error(err))
		}
		return nil, errors.New(invalidCredentials)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, errors.New(invalidCredentials)
	}
	return user, nil
}

func (a *App) startSession(r *http.Request, userID string) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return errors.New("no session on request")
	}
	if err := sess.Renew(); err != nil {
		return err
	}
	sess.SignIn(userID)
	return nil
}
