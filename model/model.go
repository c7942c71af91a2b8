// Package model holds the plain data types shared by storage, the scoring
// engine and the web layer.  Types here know nothing about persistence.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Level is the tier of a tournament.  It fixes the allowance and the number
// of picks each user makes.
type Level string

const (
	LevelWTA500    Level = "WTA_500"
	LevelWTA1000   Level = "WTA_1000"
	LevelGrandSlam Level = "GRAND_SLAM"
)

var allLevels = []Level{LevelWTA500, LevelWTA1000, LevelGrandSlam}

func ParseLevel(s string) (Level, error) {
	for _, l := range allLevels {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown tournament level %q", s)
}

// Status is where a tournament is in its lifecycle.
type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(s)) {
	case StatusUpcoming:
		return StatusUpcoming, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown tournament status %q", s)
}

// Started reports whether the tournament has left UPCOMING.
func (s Status) Started() bool {
	return s != StatusUpcoming
}

type PickType string

const (
	PickMainDraw  PickType = "MAIN_DRAW"
	PickQualifier PickType = "QUALIFIER"
)

type Tournament struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Level           Level     `json:"level"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Status          Status    `json:"status"`
	PointsAllowance int       `json:"pointsAllowance"`
}

// UnrankedRanking is stored for wildcards and players with no ranking.
const UnrankedRanking = 999

type Player struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Ranking int    `json:"wtaRanking"`
	// Cost is derived from Ranking whenever Ranking is written.
	Cost int `json:"cost"`
}

// Pick is one drafted player for one user in one tournament.
type Pick struct {
	ID           int64    `json:"id"`
	UserID       int64    `json:"userId"`
	TournamentID int64    `json:"tournamentId"`
	PlayerID     int64    `json:"playerId"`
	PickType     PickType `json:"pickType"`
	PointsEarned int      `json:"pointsEarned"`

	// Player is filled in by storage on reads that join players.
	Player *Player `json:"player,omitempty"`
}

// Match is a single round result for a player.  PointsAwarded is derived from
// Round and Won and is what picks of this player were credited.
type Match struct {
	ID            int64     `json:"id"`
	TournamentID  int64     `json:"tournamentId"`
	PlayerID      int64     `json:"playerId"`
	Round         string    `json:"round"`
	Won           bool      `json:"won"`
	PointsAwarded int       `json:"pointsAwarded"`
	CreatedAt     time.Time `json:"createdAt"`

	Player *Player `json:"player,omitempty"`
}

// AwardReason says which transition produced an AwardEvent.
type AwardReason string

const (
	AwardRecord       AwardReason = "record"
	AwardEditReverse  AwardReason = "edit-reverse"
	AwardEditApply    AwardReason = "edit-apply"
	AwardDelete       AwardReason = "delete"
	AwardReconcileFix AwardReason = "reconcile"
)

// AwardEvent is the ledger entry for one fan-out of points to the picks of a
// (tournament, player) pair.
type AwardEvent struct {
	ID            string      `json:"id"`
	MatchID       int64       `json:"matchId"`
	TournamentID  int64       `json:"tournamentId"`
	PlayerID      int64       `json:"playerId"`
	Delta         int         `json:"delta"`
	Reason        AwardReason `json:"reason"`
	PicksAffected int         `json:"picksAffected"`
	At            time.Time   `json:"at"`
}

// PickWithOwner is used by admin pick listings.
type PickWithOwner struct {
	Pick
	UserNick  string `json:"userNick"`
	UserEmail string `json:"userEmail"`
}
