package fakes

import (
	"context"
	"testing"
	"time"

	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
)

// Helpers for building test fixtures.  They fail the test on any error.

func AddTournament(t testing.TB, s state.Queries, name string, level model.Level, status model.Status) *model.Tournament {
	t.Helper()
	start := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	tm := &model.Tournament{
		Name:            name,
		Level:           level,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 12),
		Status:          status,
		PointsAllowance: scoring.Allowance(level),
	}
	if _, err := s.CreateTournament(context.Background(), tm); err != nil {
		t.Fatalf("can't create tournament %q: %v", name, err)
	}
	return tm
}

func AddPlayer(t testing.TB, s state.Queries, name string, ranking int) *model.Player {
	t.Helper()
	p := &model.Player{Name: name, Country: "USA", Ranking: ranking}
	if _, err := s.CreatePlayer(context.Background(), p); err != nil {
		t.Fatalf("can't create player %q: %v", name, err)
	}
	return p
}

func AddUser(t testing.TB, s state.Queries, nick string, isAdmin bool) *model.UserIdentity {
	t.Helper()
	ctx := context.Background()
	id, err := s.CreateUser(ctx, nick, nick+"@example.com", "not-a-real-hash", isAdmin)
	if err != nil {
		t.Fatalf("can't create user %q: %v", nick, err)
	}
	u, err := s.FetchUserByUserID(ctx, id)
	if err != nil {
		t.Fatalf("can't fetch user %q: %v", nick, err)
	}
	return u
}

// SetPicks replaces the user's picks in a tournament.  Players listed in
// mainDraw and qualifiers get the respective pick type.
func SetPicks(t testing.TB, s state.Storage, userID, tournamentID int64, mainDraw, qualifiers []*model.Player) {
	t.Helper()
	picks := []*model.Pick{}
	for _, p := range mainDraw {
		picks = append(picks, &model.Pick{PlayerID: p.ID, PickType: model.PickMainDraw})
	}
	for _, p := range qualifiers {
		picks = append(picks, &model.Pick{PlayerID: p.ID, PickType: model.PickQualifier})
	}
	err := s.InTx(context.Background(), func(ctx context.Context, q state.Queries) error {
		return q.ReplacePicks(ctx, userID, tournamentID, picks)
	})
	if err != nil {
		t.Fatalf("can't set picks for user %d: %v", userID, err)
	}
}

// UserPoints is the cached total for the user.
func UserPoints(t testing.TB, s state.Queries, userID int64) int {
	t.Helper()
	u, err := s.FetchUserByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("can't fetch user %d: %v", userID, err)
	}
	return u.TotalPoints
}
