// Package leaderboard assembles the read-only views: standings, one user's
// detail page, and the caller's dashboard.
package leaderboard

import (
	"context"

	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
)

type Storage interface {
	state.TournamentStorage
	state.PickStorage
	state.UserStorage
}

type Board struct {
	storage Storage
}

func New(storage Storage) *Board {
	return &Board{storage: dep.Required(storage)}
}

// TournamentPicks is one tournament's worth of a user's picks.
type TournamentPicks struct {
	Tournament *model.Tournament `json:"tournament"`
	Picks      []*model.Pick     `json:"picks"`
	Points     int               `json:"points"`
}

type UserDetail struct {
	UserID int64  `json:"userId"`
	Nick   string `json:"nick"`
	// Standing is nil for users hidden from the leaderboard.
	Standing    *scoring.Standing  `json:"standing"`
	Tournaments []*TournamentPicks `json:"tournaments"`
}

type Dashboard struct {
	User        *model.UserIdentity `json:"user"`
	Budget      *scoring.Breakdown  `json:"budget"`
	Picks       []*model.Pick       `json:"picks"`
	Tournaments []*model.Tournament `json:"tournaments"`
}

func (b *Board) standings(ctx context.Context) ([]*scoring.Standing, error) {
	summaries, err := b.storage.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]*model.UserIdentity, 0, len(summaries))
	for _, s := range summaries {
		users = append(users, &s.UserIdentity)
	}

	all, err := b.storage.FetchAllPicks(ctx)
	if err != nil {
		return nil, err
	}
	byUser := map[int64][]*model.Pick{}
	for _, k := range all {
		byUser[k.UserID] = append(byUser[k.UserID], k)
	}
	return scoring.Standings(users, byUser), nil
}

// Standings is the public leaderboard.
func (b *Board) Standings(ctx context.Context) ([]*scoring.Standing, error) {
	return b.standings(ctx)
}

func groupByTournament(tournaments []*model.Tournament, picks []*model.Pick) []*TournamentPicks {
	byID := map[int64]*TournamentPicks{}
	for _, k := range picks {
		tp := byID[k.TournamentID]
		if tp == nil {
			tp = &TournamentPicks{Picks: []*model.Pick{}}
			byID[k.TournamentID] = tp
		}
		tp.Picks = append(tp.Picks, k)
		tp.Points += k.PointsEarned
	}

	// tournaments is newest first; keep that order.
	out := []*TournamentPicks{}
	for _, t := range tournaments {
		if tp, ok := byID[t.ID]; ok {
			tp.Tournament = t
			out = append(out, tp)
		}
	}
	return out
}

// UserDetail is the public page for one user.
func (b *Board) UserDetail(ctx context.Context, userID int64) (*UserDetail, error) {
	u, err := b.storage.FetchUserByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	standings, err := b.standings(ctx)
	if err != nil {
		return nil, err
	}
	tournaments, err := b.storage.FetchTournaments(ctx)
	if err != nil {
		return nil, err
	}
	picks, err := b.storage.FetchUserPicks(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserDetail{
		UserID:      u.ID,
		Nick:        u.Nick,
		Standing:    scoring.FindStanding(standings, u.ID),
		Tournaments: groupByTournament(tournaments, picks),
	}, nil
}

// Dashboard is what the caller sees on their home page.
func (b *Board) Dashboard(ctx context.Context, who permission.Caller) (*Dashboard, error) {
	if err := who.RequireUser(); err != nil {
		return nil, err
	}
	u, err := b.storage.FetchUserByUserID(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	tournaments, err := b.storage.FetchTournaments(ctx)
	if err != nil {
		return nil, err
	}
	picks, err := b.storage.FetchUserPicks(ctx, who.UserID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		User:        u,
		Budget:      scoring.ComputeBreakdown(tournaments, picks),
		Picks:       picks,
		Tournaments: tournaments,
	}, nil
}
