// Package results records match results and moves the points they award to
// every pick of the player and to the pick owners' totals.
//
// A match is either absent, a loss worth nothing, or a win worth the points
// for its round.  Changing or deleting a match first takes back what it
// awarded, then awards the new value.  Each transition runs in one
// transaction, taking both phases and the ledger rows with it.
package results

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/varz"
)

var (
	transitions   = varz.NewCounterVec("transitions_total", "Match result transitions committed, by kind.", "kind")
	failures      = varz.NewCounterVec("failures_total", "Match result transitions rolled back, by kind.", "kind")
	picksAdjusted = varz.NewCounter("picks_adjusted_total", "Pick updates made by award fan-out.")
)

type Clock interface {
	Now() time.Time
}

type Recorder struct {
	storage state.Storage
	clock   Clock
}

type Config struct {
	Storage state.Storage
	Clock   Clock
}

func New(cf *Config) *Recorder {
	return &Recorder{
		storage: dep.Required(cf.Storage),
		clock:   dep.Required(cf.Clock),
	}
}

// award fans delta out to the picks of m's player in m's tournament and
// writes the ledger row for it.
func (r *Recorder) award(ctx context.Context, q state.Queries, m *model.Match, delta int, reason model.AwardReason) (int, error) {
	if delta == 0 {
		return 0, nil
	}
	n, err := q.ApplyAward(ctx, m.TournamentID, m.PlayerID, delta)
	if err != nil {
		return 0, err
	}
	ev := &model.AwardEvent{
		ID:            uuid.NewString(),
		MatchID:       m.ID,
		TournamentID:  m.TournamentID,
		PlayerID:      m.PlayerID,
		Delta:         delta,
		Reason:        reason,
		PicksAffected: n,
		At:            r.clock.Now(),
	}
	if err := q.RecordAwardEvent(ctx, ev); err != nil {
		return 0, err
	}
	picksAdjusted.Add(float64(n))
	return n, nil
}

func (r *Recorder) run(ctx context.Context, kind string, fn func(ctx context.Context, q state.Queries) error) error {
	if err := r.storage.InTx(ctx, fn); err != nil {
		failures.WithLabelValues(kind).Inc()
		return fmt.Errorf("%s result: %w", kind, err)
	}
	transitions.WithLabelValues(kind).Inc()
	return nil
}

// Record creates a result for playerID in tournamentID.  Any round string
// is accepted; one that isn't in the round table awards nothing.
func (r *Recorder) Record(ctx context.Context, who permission.Caller, tournamentID, playerID int64, round string, won bool) (*model.Match, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}

	var m *model.Match
	var n int
	err := r.run(ctx, "record", func(ctx context.Context, q state.Queries) error {
		if _, err := q.FetchTournament(ctx, tournamentID); err != nil {
			return err
		}
		player, err := q.FetchPlayer(ctx, playerID)
		if err != nil {
			return err
		}

		m = &model.Match{
			TournamentID:  tournamentID,
			PlayerID:      playerID,
			Round:         round,
			Won:           won,
			PointsAwarded: scoring.PointsAwarded(round, won),
			CreatedAt:     r.clock.Now(),
		}
		if _, err := q.CreateMatch(ctx, m); err != nil {
			return err
		}
		m.Player = player

		n, err = r.award(ctx, q, m, m.PointsAwarded, model.AwardRecord)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("results: %s recorded match %d (player %d, tournament %d, %s won=%v): %+d to %d picks",
		who, m.ID, playerID, tournamentID, round, won, m.PointsAwarded, n)
	return m, nil
}

// Edit changes a result's player, round and outcome.  The tournament stays
// the same.
func (r *Recorder) Edit(ctx context.Context, who permission.Caller, matchID, playerID int64, round string, won bool) (*model.Match, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}

	var before, after *model.Match
	var reversed, applied int
	err := r.run(ctx, "edit", func(ctx context.Context, q state.Queries) error {
		var err error
		before, err = q.FetchMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		player, err := q.FetchPlayer(ctx, playerID)
		if err != nil {
			return err
		}

		reversed, err = r.award(ctx, q, before, -before.PointsAwarded, model.AwardEditReverse)
		if err != nil {
			return err
		}

		a := *before
		after = &a
		after.PlayerID = playerID
		after.Player = player
		after.Round = round
		after.Won = won
		after.PointsAwarded = scoring.PointsAwarded(round, won)
		if err := q.UpdateMatch(ctx, after); err != nil {
			return err
		}

		applied, err = r.award(ctx, q, after, after.PointsAwarded, model.AwardEditApply)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("results: %s edited match %d: player %d %s won=%v (%+d to %d picks) -> player %d %s won=%v (%+d to %d picks)",
		who, matchID,
		before.PlayerID, before.Round, before.Won, -before.PointsAwarded, reversed,
		after.PlayerID, after.Round, after.Won, after.PointsAwarded, applied)
	return after, nil
}

// Delete takes back what a result awarded and removes it.
func (r *Recorder) Delete(ctx context.Context, who permission.Caller, matchID int64) error {
	if err := who.RequireAdmin(); err != nil {
		return err
	}

	var m *model.Match
	var n int
	err := r.run(ctx, "delete", func(ctx context.Context, q state.Queries) error {
		var err error
		m, err = q.FetchMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		n, err = r.award(ctx, q, m, -m.PointsAwarded, model.AwardDelete)
		if err != nil {
			return err
		}
		return q.DeleteMatch(ctx, matchID)
	})
	if err != nil {
		return err
	}

	log.Printf("results: %s deleted match %d (player %d, tournament %d, %s won=%v): %+d to %d picks",
		who, matchID, m.PlayerID, m.TournamentID, m.Round, m.Won, -m.PointsAwarded, n)
	return nil
}

// List returns a tournament's results, newest first.
func (r *Recorder) List(ctx context.Context, who permission.Caller, tournamentID int64) ([]*model.Match, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	if _, err := r.storage.FetchTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return r.storage.FetchMatches(ctx, tournamentID)
}

// History returns the ledger rows for a match, oldest first.
func (r *Recorder) History(ctx context.Context, who permission.Caller, matchID int64) ([]*model.AwardEvent, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	return r.storage.FetchAwardEvents(ctx, matchID)
}
