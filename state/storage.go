package state

// package state manages persistence.

import (
	"context"
	"time"

	"github.com/ts4z/wtapicks/model"
)

type Closer interface {
	Close()
}

type TournamentStorage interface {
	// FetchTournaments returns every tournament, newest start date first.
	FetchTournaments(ctx context.Context) ([]*model.Tournament, error)
	FetchTournament(ctx context.Context, id int64) (*model.Tournament, error)
	// FindTournament looks up by name and start date, for calendar sync.
	FindTournament(ctx context.Context, name string, startDate time.Time) (*model.Tournament, error)
	CreateTournament(ctx context.Context, t *model.Tournament) (int64, error)
	SetTournamentStatus(ctx context.Context, id int64, status model.Status) (*model.Tournament, error)
	// DeleteTournament also deletes the tournament's picks and matches.
	DeleteTournament(ctx context.Context, id int64) error
}

type PlayerStorage interface {
	// FetchPlayers returns every player, best ranking first.
	FetchPlayers(ctx context.Context) ([]*model.Player, error)
	FetchPlayer(ctx context.Context, id int64) (*model.Player, error)
	FetchPlayerByName(ctx context.Context, name string) (*model.Player, error)
	// FetchPlayersByID returns the players that exist; missing ids are
	// silently absent.
	FetchPlayersByID(ctx context.Context, ids []int64) ([]*model.Player, error)
	CreatePlayer(ctx context.Context, p *model.Player) (int64, error)
	// CreatePlayerIfAbsent inserts unless a player with the same name exists.
	CreatePlayerIfAbsent(ctx context.Context, p *model.Player) (bool, error)
	UpdatePlayer(ctx context.Context, p *model.Player) error
	// DeletePlayer also deletes picks of and matches for the player.
	DeletePlayer(ctx context.Context, id int64) error
}

type PickStorage interface {
	// FetchUserPicks returns the user's picks with Player filled in.
	FetchUserPicks(ctx context.Context, userID int64) ([]*model.Pick, error)
	FetchAllPicks(ctx context.Context) ([]*model.Pick, error)
	// FetchTournamentPicks is ordered by player ranking.
	FetchTournamentPicks(ctx context.Context, tournamentID int64) ([]*model.PickWithOwner, error)
	// ReplacePicks deletes userID's picks for tournamentID and inserts picks.
	// Each new pick starts with the points its player has already been
	// awarded in the tournament, and the user's TotalPoints follows.  Run it
	// in InTx.
	ReplacePicks(ctx context.Context, userID, tournamentID int64, picks []*model.Pick) error
	SetPickPoints(ctx context.Context, pickID int64, points int) error
}

type MatchStorage interface {
	// FetchMatches returns a tournament's results, newest first, with Player.
	FetchMatches(ctx context.Context, tournamentID int64) ([]*model.Match, error)
	FetchAllMatches(ctx context.Context) ([]*model.Match, error)
	// FetchMatchForUpdate locks the row for the rest of the transaction.
	FetchMatchForUpdate(ctx context.Context, id int64) (*model.Match, error)
	CreateMatch(ctx context.Context, m *model.Match) (int64, error)
	UpdateMatch(ctx context.Context, m *model.Match) error
	DeleteMatch(ctx context.Context, id int64) error
}

// AwardStorage applies point deltas to the caches.
type AwardStorage interface {
	// ApplyAward adds delta to PointsEarned of every pick of (tournamentID,
	// playerID), flooring each pick at zero, and adds the amount each pick
	// actually changed by to its owner's TotalPoints.  It returns the number
	// of picks touched.
	ApplyAward(ctx context.Context, tournamentID, playerID int64, delta int) (int, error)
	RecordAwardEvent(ctx context.Context, ev *model.AwardEvent) error
	FetchAwardEvents(ctx context.Context, matchID int64) ([]*model.AwardEvent, error)
}

type UserStorage interface {
	FetchUsers(ctx context.Context) ([]*model.UserSummary, error)
	CreateUser(ctx context.Context, nick string, emailAddress string, passwordHash string, isAdmin bool) (int64, error)
	FetchUserByUserID(ctx context.Context, id int64) (*model.UserIdentity, error)
	FetchUserRow(ctx context.Context, nick string) (*model.UserRow, error)
	PatchUser(ctx context.Context, id int64, patch *model.UserPatch) (*model.UserIdentity, error)
	SetUserTotalPoints(ctx context.Context, id int64, points int) error
	// DeleteUserByID also deletes the user's picks.
	DeleteUserByID(ctx context.Context, id int64) error
	DeleteUserByNick(ctx context.Context, nick string) error

	AddPassword(ctx context.Context, userID int64, passwordHash string) error
	RemoveExpiredPasswords(ctx context.Context, before time.Time) error
	ReplacePassword(ctx context.Context, userID int64, newPasswordHash string, oldPasswordsExpire time.Time) error
}

type SiteStorage interface {
	FetchSiteConfig(ctx context.Context) (*model.SiteConfig, error)
	SaveSiteConfig(ctx context.Context, config *model.SiteConfig) error
}

// Queries is everything storage can do, inside or outside a transaction.
type Queries interface {
	TournamentStorage
	PlayerStorage
	PickStorage
	MatchStorage
	AwardStorage
	UserStorage
	SiteStorage
}

// Transactor runs fn in one transaction.  If fn returns an error, nothing fn
// did through q is kept.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

// Storage is what the daemon and admin tool hold.
type Storage interface {
	Closer
	Queries
	Transactor
}
