// Package picks validates and stores a user's selections for a tournament.
package picks

import (
	"context"
	"fmt"
	"log"

	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/varz"
)

var (
	submissions = varz.NewCounterVec("submissions_total", "Pick submissions, by outcome kind.", "kind")
)

// Submission is what a user sends for one tournament.
type Submission struct {
	TournamentID   int64   `json:"tournamentId"`
	MainDrawPicks  []int64 `json:"mainDrawPicks"`
	QualifierPicks []int64 `json:"qualifierPicks"`
}

type Validator struct {
	storage              state.Storage
	lockPicksOnceStarted bool
}

type Config struct {
	Storage state.Storage
	// LockPicksOnceStarted refuses submissions for ACTIVE tournaments as well
	// as COMPLETED ones.
	LockPicksOnceStarted bool
}

func New(cf *Config) *Validator {
	return &Validator{
		storage:              dep.Required(cf.Storage),
		lockPicksOnceStarted: cf.LockPicksOnceStarted,
	}
}

func (v *Validator) checkOpen(t *model.Tournament) error {
	switch t.Status {
	case model.StatusCompleted:
		return he.InvalidInputf("%s is completed; picks are closed", t.Name)
	case model.StatusActive:
		if v.lockPicksOnceStarted {
			return he.InvalidInputf("%s has started; picks are closed", t.Name)
		}
	}
	return nil
}

func checkShape(t *model.Tournament, sub *Submission) error {
	want := scoring.RequiredPicksFor(t.Level)
	if len(sub.MainDrawPicks) != want.MainDraw || len(sub.QualifierPicks) != want.Qualifier {
		return he.InvalidInputf("%s needs %d main draw and %d qualifier picks, got %d and %d",
			t.Name, want.MainDraw, want.Qualifier, len(sub.MainDrawPicks), len(sub.QualifierPicks))
	}

	seen := map[int64]bool{}
	for _, ids := range [][]int64{sub.MainDrawPicks, sub.QualifierPicks} {
		for _, id := range ids {
			if seen[id] {
				return he.InvalidInputf("player %d is picked more than once", id)
			}
			seen[id] = true
		}
	}
	return nil
}

// resolve looks up ids, keeping their order.
func resolve(ctx context.Context, q state.Queries, ids []int64) ([]*model.Player, error) {
	found, err := q.FetchPlayersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Player, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]*model.Player, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, he.NotFoundf("player %d: not found", id)
		}
		out = append(out, p)
	}
	return out, nil
}

// Submit replaces who's picks for sub.TournamentID, provided they are
// well-formed and affordable, and returns the budget left afterwards.
func (v *Validator) Submit(ctx context.Context, who permission.Caller, sub *Submission) (int, error) {
	if err := who.RequireUser(); err != nil {
		return 0, err
	}

	var budget int
	err := v.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		t, err := q.FetchTournament(ctx, sub.TournamentID)
		if err != nil {
			return err
		}
		if err := v.checkOpen(t); err != nil {
			return err
		}
		if err := checkShape(t, sub); err != nil {
			return err
		}

		mainDraw, err := resolve(ctx, q, sub.MainDrawPicks)
		if err != nil {
			return err
		}
		if _, err := resolve(ctx, q, sub.QualifierPicks); err != nil {
			return err
		}

		tournaments, err := q.FetchTournaments(ctx)
		if err != nil {
			return err
		}
		existing, err := q.FetchUserPicks(ctx, who.UserID)
		if err != nil {
			return err
		}
		others := scoring.ExcludeTournament(existing, t.ID)

		available := scoring.Budget(tournaments, others)
		cost := scoring.SelectionCost(mainDraw, len(sub.QualifierPicks))
		if cost > available {
			return he.InsufficientBudgetf("picks cost %d but only %d is available", cost, available)
		}

		picks := make([]*model.Pick, 0, len(sub.MainDrawPicks)+len(sub.QualifierPicks))
		for _, id := range sub.MainDrawPicks {
			picks = append(picks, &model.Pick{PlayerID: id, PickType: model.PickMainDraw})
		}
		for _, id := range sub.QualifierPicks {
			picks = append(picks, &model.Pick{PlayerID: id, PickType: model.PickQualifier})
		}
		if err := q.ReplacePicks(ctx, who.UserID, t.ID, picks); err != nil {
			return err
		}

		after, err := q.FetchUserPicks(ctx, who.UserID)
		if err != nil {
			return err
		}
		budget = scoring.Budget(tournaments, after)
		return nil
	})
	if err != nil {
		submissions.WithLabelValues(string(he.KindOf(err))).Inc()
		return 0, fmt.Errorf("submit picks for tournament %d: %w", sub.TournamentID, err)
	}

	submissions.WithLabelValues("ok").Inc()
	log.Printf("picks: %s submitted %d+%d picks for tournament %d, budget now %d",
		who, len(sub.MainDrawPicks), len(sub.QualifierPicks), sub.TournamentID, budget)
	return budget, nil
}
