// Package scoring is the arithmetic of the game: what players cost, what
// rounds are worth, and what a user has left to spend.  Everything here is
// pure; storage and the web layer feed it plain data.
package scoring

import (
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
)

// QualifierCost is what any qualifier pick costs, whatever her ranking.
const QualifierCost = 3

type costBand struct {
	maxRanking int
	cost       int
}

// Bands are checked in order; the first band whose maxRanking is >= the
// ranking wins.
var costBands = []costBand{
	{1, 13},
	{2, 12},
	{4, 11},
	{5, 10},
	{6, 9},
	{8, 8},
	{10, 7},
	{15, 6},
	{20, 5},
	{25, 4},
	{32, 3},
	{75, 2},
}

// PlayerCost maps a ranking to a main draw cost.  Anything past the last band,
// including model.UnrankedRanking, costs 1.
func PlayerCost(ranking int) int {
	for _, b := range costBands {
		if ranking <= b.maxRanking {
			return b.cost
		}
	}
	return 1
}

// ValidateRanking rejects rankings the cost table is not defined for.
func ValidateRanking(ranking int) error {
	if ranking < 1 {
		return he.InvalidInputf("ranking %d must be at least 1", ranking)
	}
	return nil
}

// PricePlayer validates the ranking and stamps the cost onto p.  Every path
// that writes a ranking goes through here so cost never goes stale.
func PricePlayer(p *model.Player) error {
	if err := ValidateRanking(p.Ranking); err != nil {
		return err
	}
	p.Cost = PlayerCost(p.Ranking)
	return nil
}

// EffectiveCost is what a pick costs against the budget.
func EffectiveCost(pickType model.PickType, player *model.Player) int {
	if pickType == model.PickQualifier {
		return QualifierCost
	}
	if player == nil {
		return 0
	}
	return player.Cost
}
