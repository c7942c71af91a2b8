package webapp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ts4z/wtapicks/admin"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/rankings"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/urlpath"
)

// Tournaments.

func (app *App) handleCreateTournament(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	in := &admin.TournamentInput{}
	if err := readJSON(w, r, in); err != nil {
		he.SendErrorToHTTPClient(w, "create tournament", err)
		return
	}
	t, err := app.admin.CreateTournament(ctx, permission.CallerFromContext(ctx), in)
	if err != nil {
		he.SendErrorToHTTPClient(w, "create tournament", err)
		return
	}
	writeJSON(w, t)
}

type tournamentPatch struct {
	Status string `json:"status"`
}

func (app *App) handlePatchTournament(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	patch := &tournamentPatch{}
	if err := readJSON(w, r, patch); err != nil {
		he.SendErrorToHTTPClient(w, "update tournament", err)
		return
	}
	t, err := app.admin.SetTournamentStatus(ctx, permission.CallerFromContext(ctx), id, patch.Status)
	if err != nil {
		he.SendErrorToHTTPClient(w, "update tournament", err)
		return
	}
	writeJSON(w, t)
}

func (app *App) handleDeleteTournament(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	if err := app.admin.DeleteTournament(ctx, permission.CallerFromContext(ctx), id); err != nil {
		he.SendErrorToHTTPClient(w, "delete tournament", err)
		return
	}
	writeOK(w)
}

// Players.

func (app *App) handleCreatePlayer(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	in := &admin.PlayerInput{}
	if err := readJSON(w, r, in); err != nil {
		he.SendErrorToHTTPClient(w, "create player", err)
		return
	}
	p, err := app.admin.CreatePlayer(ctx, permission.CallerFromContext(ctx), in)
	if err != nil {
		he.SendErrorToHTTPClient(w, "create player", err)
		return
	}
	writeJSON(w, p)
}

func (app *App) handlePatchPlayer(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	in := &admin.PlayerInput{}
	if err := readJSON(w, r, in); err != nil {
		he.SendErrorToHTTPClient(w, "update player", err)
		return
	}
	p, err := app.admin.UpdatePlayer(ctx, permission.CallerFromContext(ctx), id, in)
	if err != nil {
		he.SendErrorToHTTPClient(w, "update player", err)
		return
	}
	writeJSON(w, p)
}

func (app *App) handleDeletePlayer(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	if err := app.admin.DeletePlayer(ctx, permission.CallerFromContext(ctx), id); err != nil {
		he.SendErrorToHTTPClient(w, "delete player", err)
		return
	}
	writeOK(w)
}

// playerList is either structured players, pasted "name, country, ranking"
// lines, or both.
type playerList struct {
	Players []*rankings.Entry `json:"players"`
	Text    string            `json:"text"`
}

func (pl *playerList) entries() []*rankings.Entry {
	return append(pl.Players, rankings.ParseBulk(pl.Text)...)
}

type importResponse struct {
	Success bool `json:"success"`
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	Total   int  `json:"total"`
}

func writeImport(w http.ResponseWriter, res *rankings.Result) {
	writeJSON(w, &importResponse{
		Success: true,
		Created: res.Created,
		Updated: res.Updated,
		Skipped: res.Skipped,
		Total:   res.Total(),
	})
}

func (app *App) handleBulkCreatePlayers(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	pl := &playerList{}
	if err := readJSON(w, r, pl); err != nil {
		he.SendErrorToHTTPClient(w, "bulk create players", err)
		return
	}
	res, err := app.importer.CreateMissing(ctx, permission.CallerFromContext(ctx), pl.entries())
	if err != nil {
		he.SendErrorToHTTPClient(w, "bulk create players", err)
		return
	}
	writeImport(w, res)
}

func (app *App) handlePasteRankings(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	pl := &playerList{}
	if err := readJSON(w, r, pl); err != nil {
		he.SendErrorToHTTPClient(w, "import rankings", err)
		return
	}
	res, err := app.importer.Upsert(ctx, permission.CallerFromContext(ctx), pl.entries())
	if err != nil {
		he.SendErrorToHTTPClient(w, "import rankings", err)
		return
	}
	writeImport(w, res)
}

type syncRequest struct {
	Type string `json:"type"`
}

func (app *App) handleSync(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req := &syncRequest{}
	if err := readJSON(w, r, req); err != nil {
		he.SendErrorToHTTPClient(w, "sync", err)
		return
	}
	who := permission.CallerFromContext(ctx)
	switch req.Type {
	case "rankings":
		res, err := app.importer.Sync(ctx, who)
		if err != nil {
			he.SendErrorToHTTPClient(w, "sync rankings", err)
			return
		}
		writeJSON(w, &messageResponse{
			Success: true,
			Message: fmt.Sprintf("Synced rankings: %d updated, %d new players", res.Updated, res.Created),
		})
	case "tournaments":
		res, err := app.admin.SyncCalendar(ctx, who)
		if err != nil {
			he.SendErrorToHTTPClient(w, "sync tournaments", err)
			return
		}
		writeJSON(w, &messageResponse{Success: true, Message: res.String()})
	default:
		he.SendErrorToHTTPClient(w, "sync", he.InvalidInputf("unknown sync type %q", req.Type))
	}
}

// Users.

func (app *App) handleListUsers(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	users, err := app.admin.ListUsers(ctx, permission.CallerFromContext(ctx))
	if err != nil {
		he.SendErrorToHTTPClient(w, "list users", err)
		return
	}
	writeJSON(w, users)
}

func (app *App) handlePatchUser(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	patch := &model.UserPatch{}
	if err := readJSON(w, r, patch); err != nil {
		he.SendErrorToHTTPClient(w, "update user", err)
		return
	}
	u, err := app.admin.PatchUser(ctx, permission.CallerFromContext(ctx), id, patch)
	if err != nil {
		he.SendErrorToHTTPClient(w, "update user", err)
		return
	}
	writeJSON(w, u)
}

func (app *App) handleDeleteUser(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	if err := app.admin.DeleteUser(ctx, permission.CallerFromContext(ctx), id); err != nil {
		he.SendErrorToHTTPClient(w, "delete user", err)
		return
	}
	writeOK(w)
}

// Picks.

func (app *App) handleTournamentPicks(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlpath.Int64QueryValue(r, "tournamentId")
	if err != nil {
		he.SendErrorToHTTPClient(w, "parse url", err)
		return
	}
	ps, err := app.admin.TournamentPicks(ctx, permission.CallerFromContext(ctx), tournamentID)
	if err != nil {
		he.SendErrorToHTTPClient(w, "list picks", err)
		return
	}
	writeJSON(w, ps)
}

// Results.

type resultInput struct {
	TournamentID int64  `json:"tournamentId"`
	PlayerID     int64  `json:"playerId"`
	Round        string `json:"round"`
	Won          bool   `json:"won"`
}

func (app *App) handleListResults(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlpath.Int64QueryValue(r, "tournamentId")
	if err != nil {
		he.SendErrorToHTTPClient(w, "parse url", err)
		return
	}
	ms, err := app.recorder.List(ctx, permission.CallerFromContext(ctx), tournamentID)
	if err != nil {
		he.SendErrorToHTTPClient(w, "list results", err)
		return
	}
	writeJSON(w, ms)
}

func (app *App) handleRecordResult(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	in := &resultInput{}
	if err := readJSON(w, r, in); err != nil {
		he.SendErrorToHTTPClient(w, "record result", err)
		return
	}
	round, err := scoring.ParseRound(in.Round)
	if err != nil {
		he.SendErrorToHTTPClient(w, "record result", err)
		return
	}
	m, err := app.recorder.Record(ctx, permission.CallerFromContext(ctx), in.TournamentID, in.PlayerID, round, in.Won)
	if err != nil {
		he.SendErrorToHTTPClient(w, "record result", err)
		return
	}
	writeJSON(w, m)
}

func (app *App) handleEditResult(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	in := &resultInput{}
	if err := readJSON(w, r, in); err != nil {
		he.SendErrorToHTTPClient(w, "edit result", err)
		return
	}
	round, err := scoring.ParseRound(in.Round)
	if err != nil {
		he.SendErrorToHTTPClient(w, "edit result", err)
		return
	}
	m, err := app.recorder.Edit(ctx, permission.CallerFromContext(ctx), id, in.PlayerID, round, in.Won)
	if err != nil {
		he.SendErrorToHTTPClient(w, "edit result", err)
		return
	}
	writeJSON(w, m)
}

func (app *App) handleDeleteResult(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	if err := app.recorder.Delete(ctx, permission.CallerFromContext(ctx), id); err != nil {
		he.SendErrorToHTTPClient(w, "delete result", err)
		return
	}
	writeOK(w)
}

func (app *App) handleResultHistory(ctx context.Context, id int64, w http.ResponseWriter, r *http.Request) {
	evs, err := app.recorder.History(ctx, permission.CallerFromContext(ctx), id)
	if err != nil {
		he.SendErrorToHTTPClient(w, "fetch result history", err)
		return
	}
	writeJSON(w, evs)
}

// Reconciliation.

func (app *App) handleReconcileCheck(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	report, err := app.reconciler.Check(ctx, permission.CallerFromContext(ctx))
	if err != nil {
		he.SendErrorToHTTPClient(w, "check caches", err)
		return
	}
	writeJSON(w, report)
}

func (app *App) handleReconcileRepair(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	report, err := app.reconciler.Repair(ctx, permission.CallerFromContext(ctx))
	if err != nil {
		he.SendErrorToHTTPClient(w, "repair caches", err)
		return
	}
	writeJSON(w, report)
}
