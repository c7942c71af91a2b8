package scoring

import (
	"strings"

	"github.com/ts4z/wtapicks/he"
)

// Round identifiers, in bracket order.
const (
	RoundR1 = "R1"
	RoundR2 = "R2"
	RoundR3 = "R3"
	RoundR4 = "R4" // Grand Slams and Indian Wells only
	RoundQF = "QF"
	RoundSF = "SF"
	RoundF  = "F" // runner-up
	RoundW  = "W" // champion
)

var Rounds = []string{RoundR1, RoundR2, RoundR3, RoundR4, RoundQF, RoundSF, RoundF, RoundW}

var roundPoints = map[string]int{
	RoundR1: 0,
	RoundR2: 3,
	RoundR3: 6,
	RoundR4: 8,
	RoundQF: 10,
	RoundSF: 14,
	RoundF:  18,
	RoundW:  24,
}

// PointsForRound is the award for winning round.  Unknown rounds are worth
// nothing rather than an error, so awards are defined for any input.
func PointsForRound(round string) int {
	return roundPoints[round]
}

// PointsAwarded is what a match result is worth.
func PointsAwarded(round string, won bool) int {
	if !won {
		return 0
	}
	return PointsForRound(round)
}

// TournamentPoints totals a player's run through a tournament.
func TournamentPoints(roundsWon []string) int {
	total := 0
	for _, r := range roundsWon {
		total += PointsForRound(r)
	}
	return total
}

// ParseRound normalizes admin input to one of Rounds.
func ParseRound(s string) (string, error) {
	r := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := roundPoints[r]; !ok {
		return "", he.InvalidInputf("unknown round %q", s)
	}
	return r, nil
}
