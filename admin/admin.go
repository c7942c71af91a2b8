// Package admin is the back office: tournaments, players, users and picks as
// the admin pages and the admin tool manage them.  Match results live in
// package results.
package admin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ts4z/wtapicks/builtins"
	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/textutil"
)

type Service struct {
	storage state.Storage
	users   state.UserStorage
}

type Config struct {
	Storage state.Storage
	// Users is the permission-checked user storage.
	Users *permission.UserStorage
}

func New(cf *Config) *Service {
	return &Service{
		storage: dep.Required(cf.Storage),
		users:   dep.Required(cf.Users),
	}
}

// Tournaments.

type TournamentInput struct {
	Name      string `json:"name"`
	Level     string `json:"level"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, he.InvalidInputf("can't parse %s %q", field, s)
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}

func (in *TournamentInput) tournament() (*model.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, he.InvalidInputf("tournament needs a name")
	}
	level, err := model.ParseLevel(in.Level)
	if err != nil {
		return nil, he.InvalidInputf("%v", err)
	}
	start, err := parseDate("startDate", in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("endDate", in.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, he.InvalidInputf("tournament ends before it starts")
	}
	return &model.Tournament{
		Name:            name,
		Level:           level,
		StartDate:       start,
		EndDate:         end,
		Status:          model.StatusUpcoming,
		PointsAllowance: scoring.Allowance(level),
	}, nil
}

// ListTournaments is newest first and open to everyone.
func (s *Service) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	return s.storage.FetchTournaments(ctx)
}

func (s *Service) CreateTournament(ctx context.Context, who permission.Caller, in *TournamentInput) (*model.Tournament, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	t, err := in.tournament()
	if err != nil {
		return nil, err
	}
	if _, err := s.storage.CreateTournament(ctx, t); err != nil {
		return nil, err
	}
	log.Printf("admin: %s created tournament %d %q (%s)", who, t.ID, t.Name, t.Level)
	return t, nil
}

func (s *Service) SetTournamentStatus(ctx context.Context, who permission.Caller, id int64, status string) (*model.Tournament, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, he.InvalidInputf("%v", err)
	}
	t, err := s.storage.SetTournamentStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}
	log.Printf("admin: %s set tournament %d to %s", who, id, st)
	return t, nil
}

func (s *Service) DeleteTournament(ctx context.Context, who permission.Caller, id int64) error {
	if err := who.RequireAdmin(); err != nil {
		return err
	}
	if err := s.storage.DeleteTournament(ctx, id); err != nil {
		return err
	}
	log.Printf("admin: %s deleted tournament %d", who, id)
	return nil
}

// CalendarResult says what a calendar sync did.
type CalendarResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

func (r *CalendarResult) String() string {
	return fmt.Sprintf("Added %d tournaments (%d already existed)", r.Added, r.Skipped)
}

// SyncCalendar adds the built-in calendar's tournaments that aren't already
// present by name and start date.  Running it twice adds nothing.
func (s *Service) SyncCalendar(ctx context.Context, who permission.Caller) (*CalendarResult, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	res := &CalendarResult{}
	err := s.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		*res = CalendarResult{}
		for _, t := range builtins.WTA2026() {
			_, err := q.FindTournament(ctx, t.Name, t.StartDate)
			if err == nil {
				res.Skipped++
				continue
			} else if !he.Is(err, he.KindNotFound) {
				return err
			}
			if _, err := q.CreateTournament(ctx, t); err != nil {
				return err
			}
			res.Added++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync calendar: %w", err)
	}
	log.Printf("admin: %s synced calendar: %s", who, res)
	return res, nil
}

// Players.

// PlayerInput is a new player or changes to one.  Wildcard overrides
// Ranking with model.UnrankedRanking.
type PlayerInput struct {
	Name     *string `json:"name"`
	Country  *string `json:"country"`
	Ranking  *int    `json:"wtaRanking"`
	Wildcard bool    `json:"isWildcard"`
}

func (in *PlayerInput) apply(p *model.Player) error {
	if in.Name != nil {
		p.Name = textutil.CollapseSpace(*in.Name)
	}
	if in.Country != nil {
		p.Country = strings.TrimSpace(*in.Country)
	}
	if in.Ranking != nil {
		p.Ranking = *in.Ranking
	}
	if in.Wildcard {
		p.Ranking = model.UnrankedRanking
	}
	if p.Name == "" {
		return he.InvalidInputf("player needs a name")
	}
	return scoring.PricePlayer(p)
}

// ListPlayers is best ranking first and open to everyone.
func (s *Service) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return s.storage.FetchPlayers(ctx)
}

func (s *Service) CreatePlayer(ctx context.Context, who permission.Caller, in *PlayerInput) (*model.Player, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	if in.Ranking == nil && !in.Wildcard {
		return nil, he.InvalidInputf("player needs a ranking or to be a wildcard")
	}
	p := &model.Player{}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if _, err := s.storage.CreatePlayer(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("admin: %s created player %d %q (ranking %d, cost %d)", who, p.ID, p.Name, p.Ranking, p.Cost)
	return p, nil
}

func (s *Service) UpdatePlayer(ctx context.Context, who permission.Caller, id int64, in *PlayerInput) (*model.Player, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	var p *model.Player
	err := s.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		var err error
		p, err = q.FetchPlayer(ctx, id)
		if err != nil {
			return err
		}
		if err := in.apply(p); err != nil {
			return err
		}
		return q.UpdatePlayer(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("update player %d: %w", id, err)
	}
	log.Printf("admin: %s updated player %d %q (ranking %d, cost %d)", who, p.ID, p.Name, p.Ranking, p.Cost)
	return p, nil
}

func (s *Service) DeletePlayer(ctx context.Context, who permission.Caller, id int64) error {
	if err := who.RequireAdmin(); err != nil {
		return err
	}
	if err := s.storage.DeletePlayer(ctx, id); err != nil {
		return err
	}
	log.Printf("admin: %s deleted player %d", who, id)
	return nil
}

// Users.  These go through the permission decorator, which also refuses to
// let an admin demote or delete themselves.

func (s *Service) ListUsers(ctx context.Context, who permission.Caller) ([]*model.UserSummary, error) {
	return s.users.FetchUsers(permission.CallerInContext(ctx, who))
}

func (s *Service) PatchUser(ctx context.Context, who permission.Caller, id int64, patch *model.UserPatch) (*model.UserIdentity, error) {
	u, err := s.users.PatchUser(permission.CallerInContext(ctx, who), id, patch)
	if err != nil {
		return nil, err
	}
	log.Printf("admin: %s patched user %d (%s): admin=%v hidden=%v bonus=%d",
		who, u.ID, u.Nick, u.IsAdmin, u.HiddenFromLeaderboard, u.StartingPoints)
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, who permission.Caller, id int64) error {
	if err := s.users.DeleteUserByID(permission.CallerInContext(ctx, who), id); err != nil {
		return err
	}
	log.Printf("admin: %s deleted user %d", who, id)
	return nil
}

// Picks.

func (s *Service) TournamentPicks(ctx context.Context, who permission.Caller, tournamentID int64) ([]*model.PickWithOwner, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	if _, err := s.storage.FetchTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.storage.FetchTournamentPicks(ctx, tournamentID)
}
