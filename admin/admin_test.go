package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/wtapicks/fakes"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
)

func newService(t *testing.T) (*Service, *fakes.MemStorage, permission.Caller) {
	s := fakes.NewMemStorage()
	root := permission.CallerOf(fakes.AddUser(t, s, "root", true))
	return New(&Config{Storage: s, Users: permission.NewUserStorage(s)}), s, root
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateTournament(t *testing.T) {
	svc, _, root := newService(t)
	ctx := context.Background()

	tm, err := svc.CreateTournament(ctx, root, &TournamentInput{
		Name:      "Wimbledon",
		Level:     "grand_slam",
		StartDate: "2026-06-29",
		EndDate:   "2026-07-12",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUpcoming, tm.Status)
	assert.Equal(t, 12, tm.PointsAllowance)
	assert.Equal(t, time.Date(2026, time.June, 29, 0, 0, 0, 0, time.UTC), tm.StartDate)

	tests := []struct {
		name string
		in   TournamentInput
	}{
		{"no name", TournamentInput{Level: "WTA_500", StartDate: "2026-01-01", EndDate: "2026-01-02"}},
		{"bad level", TournamentInput{Name: "X", Level: "WTA_250", StartDate: "2026-01-01", EndDate: "2026-01-02"}},
		{"bad date", TournamentInput{Name: "X", Level: "WTA_500", StartDate: "tomorrow", EndDate: "2026-01-02"}},
		{"backwards", TournamentInput{Name: "X", Level: "WTA_500", StartDate: "2026-01-05", EndDate: "2026-01-02"}},
		{"duplicate", TournamentInput{Name: "Wimbledon", Level: "GRAND_SLAM", StartDate: "2026-06-29", EndDate: "2026-07-12"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTournament(ctx, root, &tt.in)
			assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)
		})
	}
}

func TestTournamentStatusAndDelete(t *testing.T) {
	svc, s, root := newService(t)
	ctx := context.Background()
	tm := fakes.AddTournament(t, s, "Doha", model.LevelWTA500, model.StatusUpcoming)

	got, err := svc.SetTournamentStatus(ctx, root, tm.ID, "active")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)

	_, err = svc.SetTournamentStatus(ctx, root, tm.ID, "postponed")
	assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)

	p := fakes.AddPlayer(t, s, "Elena Rybakina", 4)
	u := fakes.AddUser(t, s, "alice", false)
	fakes.SetPicks(t, s, u.ID, tm.ID, []*model.Player{p}, nil)

	require.NoError(t, svc.DeleteTournament(ctx, root, tm.ID))
	_, err = s.FetchTournament(ctx, tm.ID)
	assert.True(t, he.Is(err, he.KindNotFound))
	picks, err := s.FetchUserPicks(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestSyncCalendarIsIdempotent(t *testing.T) {
	svc, s, root := newService(t)
	ctx := context.Background()

	// One calendar tournament is already there.
	_, err := svc.CreateTournament(ctx, root, &TournamentInput{
		Name: "Tokyo", Level: "WTA_500", StartDate: "2026-10-12", EndDate: "2026-10-18",
	})
	require.NoError(t, err)

	res, err := svc.SyncCalendar(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, &CalendarResult{Added: 21, Skipped: 1}, res)
	assert.Equal(t, "Added 21 tournaments (1 already existed)", res.String())

	res, err = svc.SyncCalendar(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, &CalendarResult{Added: 0, Skipped: 22}, res)

	all, err := s.FetchTournaments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 22)
	for _, tm := range all {
		assert.Equal(t, model.StatusUpcoming, tm.Status)
	}
}

func TestPlayers(t *testing.T) {
	svc, _, root := newService(t)
	ctx := context.Background()

	p, err := svc.CreatePlayer(ctx, root, &PlayerInput{Name: ptr("Mirra Andreeva"), Country: ptr("RUS"), Ranking: ptr(9)})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Cost)

	wc, err := svc.CreatePlayer(ctx, root, &PlayerInput{Name: ptr("Local Hope"), Wildcard: true})
	require.NoError(t, err)
	assert.Equal(t, model.UnrankedRanking, wc.Ranking)
	assert.Equal(t, 1, wc.Cost)

	_, err = svc.CreatePlayer(ctx, root, &PlayerInput{Name: ptr("No Rank")})
	assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)
	_, err = svc.CreatePlayer(ctx, root, &PlayerInput{Name: ptr("Zero"), Ranking: ptr(0)})
	assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)
	_, err = svc.CreatePlayer(ctx, root, &PlayerInput{Name: ptr("Mirra Andreeva"), Ranking: ptr(9)})
	assert.True(t, he.Is(err, he.KindInvalidInput), "duplicate: %v", err)

	up, err := svc.UpdatePlayer(ctx, root, p.ID, &PlayerInput{Ranking: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 10, up.Cost)
	assert.Equal(t, "RUS", up.Country)

	_, err = svc.UpdatePlayer(ctx, root, p.ID, &PlayerInput{Ranking: ptr(-3)})
	assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)
	_, err = svc.UpdatePlayer(ctx, root, 9999, &PlayerInput{Ranking: ptr(3)})
	assert.True(t, he.Is(err, he.KindNotFound), "got %v", err)

	players, err := svc.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Mirra Andreeva", players[0].Name)

	require.NoError(t, svc.DeletePlayer(ctx, root, wc.ID))
	assert.True(t, he.Is(svc.DeletePlayer(ctx, root, wc.ID), he.KindNotFound))
}

func TestUsers(t *testing.T) {
	svc, s, root := newService(t)
	ctx := context.Background()
	alice := fakes.AddUser(t, s, "alice", false)

	users, err := svc.ListUsers(ctx, root)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	u, err := svc.PatchUser(ctx, root, alice.ID, &model.UserPatch{StartingPoints: ptr(7), IsAdmin: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 7, u.StartingPoints)
	assert.True(t, u.IsAdmin)

	_, err = svc.PatchUser(ctx, root, root.UserID, &model.UserPatch{IsAdmin: ptr(false)})
	assert.True(t, he.Is(err, he.KindInvalidInput), "own admin: %v", err)
	assert.True(t, he.Is(svc.DeleteUser(ctx, root, root.UserID), he.KindInvalidInput))

	require.NoError(t, svc.DeleteUser(ctx, root, alice.ID))
	users, err = svc.ListUsers(ctx, root)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestNonAdminsAreTurnedAway(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	pleb := permission.CallerOf(fakes.AddUser(t, s, "pleb", false))
	tm := fakes.AddTournament(t, s, "Berlin", model.LevelWTA500, model.StatusUpcoming)

	unauthorized := func(err error) {
		t.Helper()
		assert.True(t, he.Is(err, he.KindUnauthorized), "got %v", err)
	}
	for _, who := range []permission.Caller{pleb, {}} {
		_, err := svc.CreateTournament(ctx, who, &TournamentInput{Name: "X", Level: "WTA_500", StartDate: "2026-01-01", EndDate: "2026-01-02"})
		unauthorized(err)
		_, err = svc.SetTournamentStatus(ctx, who, tm.ID, "ACTIVE")
		unauthorized(err)
		unauthorized(svc.DeleteTournament(ctx, who, tm.ID))
		_, err = svc.SyncCalendar(ctx, who)
		unauthorized(err)
		_, err = svc.CreatePlayer(ctx, who, &PlayerInput{Name: ptr("X"), Ranking: ptr(1)})
		unauthorized(err)
		_, err = svc.ListUsers(ctx, who)
		unauthorized(err)
		_, err = svc.PatchUser(ctx, who, pleb.UserID, &model.UserPatch{IsAdmin: ptr(true)})
		unauthorized(err)
		unauthorized(svc.DeleteUser(ctx, who, pleb.UserID))
		_, err = svc.TournamentPicks(ctx, who, tm.ID)
		unauthorized(err)
	}

	// Reads stay open.
	_, err := svc.ListTournaments(ctx)
	assert.NoError(t, err)
}

func TestTournamentPicks(t *testing.T) {
	svc, s, root := newService(t)
	ctx := context.Background()
	tm := fakes.AddTournament(t, s, "Stuttgart", model.LevelWTA500, model.StatusUpcoming)
	low := fakes.AddPlayer(t, s, "Low", 60)
	high := fakes.AddPlayer(t, s, "High", 2)
	alice := fakes.AddUser(t, s, "alice", false)
	fakes.SetPicks(t, s, alice.ID, tm.ID, []*model.Player{low}, []*model.Player{high})

	picks, err := svc.TournamentPicks(ctx, root, tm.ID)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, "High", picks[0].Player.Name)
	assert.Equal(t, "alice", picks[0].UserNick)

	_, err = svc.TournamentPicks(ctx, root, 9999)
	assert.True(t, he.Is(err, he.KindNotFound), "got %v", err)
}
