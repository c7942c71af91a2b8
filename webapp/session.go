package webapp

import (
	"context"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/password"
)

type sessionResponse struct {
	Success bool                `json:"success"`
	User    *model.UserIdentity `json:"user"`
}

func (app *App) limited(handler func(context.Context, http.ResponseWriter, *http.Request)) func(context.Context, http.ResponseWriter, *http.Request) {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		app.limiter.Wrap(func(w http.ResponseWriter, r *http.Request) {
			handler(ctx, w, r)
		})(w, r)
	}
}

func (app *App) startSession(ctx context.Context, w http.ResponseWriter, identity *model.UserIdentity) {
	bakery, err := app.bakeryFactory.Bakery(ctx)
	if err != nil {
		he.SendErrorToHTTPClient(w, "get bakery", err)
		return
	}
	if err := bakery.BakeCookie(w, &model.AuthCookieData{UserID: identity.ID}); err != nil {
		he.SendErrorToHTTPClient(w, "bake cookie", err)
		return
	}
	writeJSON(w, &sessionResponse{Success: true, User: identity})
}

func (app *App) handleLogin(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		he.SendErrorToHTTPClient(w, "parse login form", he.InvalidInputf("%v", err))
		return
	}
	nick := r.FormValue("username")
	pw := r.FormValue("password")
	if nick == "" || pw == "" {
		he.SendErrorToHTTPClient(w, "log in", he.InvalidInputf("username and password required"))
		return
	}

	nope := he.Unauthorizedf("invalid user or password")
	row, err := app.users.FetchUserRow(ctx, nick)
	if he.Is(err, he.KindNotFound) {
		he.SendErrorToHTTPClient(w, "log in", nope)
		return
	} else if err != nil {
		he.SendErrorToHTTPClient(w, "fetch user", err)
		return
	}
	checker, err := password.NewChecker(row, app.clock.Now())
	if err != nil {
		he.SendErrorToHTTPClient(w, "check password", err)
		return
	}
	identity, err := checker.Validate(pw)
	if err != nil {
		he.SendErrorToHTTPClient(w, "log in", nope)
		return
	}
	log.Printf("user %d (%s) logged in", identity.ID, identity.Nick)
	app.startSession(ctx, w, identity)
}

func (app *App) handleLogout(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	bakery, err := app.bakeryFactory.Bakery(ctx)
	if err != nil {
		he.SendErrorToHTTPClient(w, "get bakery", err)
		return
	}
	bakery.ClearCookie(w)
	writeOK(w)
}

type registration struct {
	Nick     string `json:"nick"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (reg *registration) check() error {
	reg.Nick = strings.TrimSpace(reg.Nick)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Nick == "" {
		return he.InvalidInputf("nick is required")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return he.InvalidInputf("bad email address %q", reg.Email)
	}
	return password.CheckStrength(reg.Password)
}

func (app *App) handleRegister(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	reg := &registration{}
	if err := readJSON(w, r, reg); err != nil {
		he.SendErrorToHTTPClient(w, "register", err)
		return
	}
	if err := reg.check(); err != nil {
		he.SendErrorToHTTPClient(w, "register", err)
		return
	}
	id, err := app.users.CreateUser(ctx, reg.Nick, reg.Email, password.Hash(reg.Password), false)
	if err != nil {
		he.SendErrorToHTTPClient(w, "create user", err)
		return
	}
	identity, err := app.users.FetchUserByUserID(ctx, id)
	if err != nil {
		he.SendErrorToHTTPClient(w, "fetch new user", err)
		return
	}
	log.Printf("user %d (%s) registered", identity.ID, identity.Nick)
	app.startSession(ctx, w, identity)
}
