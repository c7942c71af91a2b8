package webapp

import (
	"context"
	"net/http"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/picks"
)

func (app *App) handleDashboard(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	d, err := app.board.Dashboard(ctx, permission.CallerFromContext(ctx))
	if err != nil {
		he.SendErrorToHTTPClient(w, "build dashboard", err)
		return
	}
	writeJSON(w, d)
}

func (app *App) handleListTournaments(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ts, err := app.admin.ListTournaments(ctx)
	if err != nil {
		he.SendErrorToHTTPClient(w, "list tournaments", err)
		return
	}
	writeJSON(w, ts)
}

func (app *App) handleListPlayers(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ps, err := app.admin.ListPlayers(ctx)
	if err != nil {
		he.SendErrorToHTTPClient(w, "list players", err)
		return
	}
	writeJSON(w, ps)
}

func (app *App) handleLeaderboard(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	standings, err := app.board.Standings(ctx)
	if err != nil {
		he.SendErrorToHTTPClient(w, "compute standings", err)
		return
	}
	writeJSON(w, standings)
}

func (app *App) handleUserDetail(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	d, err := app.board.UserDetail(ctx, id)
	if err != nil {
		he.SendErrorToHTTPClient(w, "fetch user detail", err)
		return
	}
	writeJSON(w, d)
}

type submitPicksResponse struct {
	Success bool `json:"success"`
	Budget  int  `json:"budget"`
}

func (app *App) handleSubmitPicks(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sub := &picks.Submission{}
	if err := readJSON(w, r, sub); err != nil {
		he.SendErrorToHTTPClient(w, "submit picks", err)
		return
	}
	budget, err := app.validator.Submit(ctx, permission.CallerFromContext(ctx), sub)
	if err != nil {
		he.SendErrorToHTTPClient(w, "submit picks", err)
		return
	}
	writeJSON(w, &submitPicksResponse{Success: true, Budget: budget})
}
