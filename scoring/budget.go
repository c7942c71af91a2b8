package scoring

import (
	"github.com/ts4z/wtapicks/model"
)

// StartingBudget is what every user has before any tournament starts.
const StartingBudget = 50

// Breakdown shows how a budget was arrived at.
type Breakdown struct {
	Starting   int `json:"starting"`
	Allowances int `json:"allowances"`
	Earned     int `json:"earned"`
	Spent      int `json:"spent"`
	Budget     int `json:"budget"`
}

// AllowancesReceived sums allowances of tournaments that have started.
func AllowancesReceived(tournaments []*model.Tournament) int {
	total := 0
	for _, t := range tournaments {
		if t.Status.Started() {
			total += t.PointsAllowance
		}
	}
	return total
}

func PointsEarned(picks []*model.Pick) int {
	total := 0
	for _, p := range picks {
		total += p.PointsEarned
	}
	return total
}

// PointsSpent needs picks with Player filled in for main draw picks.
func PointsSpent(picks []*model.Pick) int {
	total := 0
	for _, p := range picks {
		total += EffectiveCost(p.PickType, p.Player)
	}
	return total
}

// ComputeBreakdown is Budget with its parts.  It is computed fresh every time
// and never stored.
func ComputeBreakdown(tournaments []*model.Tournament, picks []*model.Pick) *Breakdown {
	b := &Breakdown{
		Starting:   StartingBudget,
		Allowances: AllowancesReceived(tournaments),
		Earned:     PointsEarned(picks),
		Spent:      PointsSpent(picks),
	}
	b.Budget = b.Starting + b.Allowances + b.Earned - b.Spent
	return b
}

func Budget(tournaments []*model.Tournament, picks []*model.Pick) int {
	return ComputeBreakdown(tournaments, picks).Budget
}

// ExcludeTournament drops picks for tournamentID, which is what a budget check
// for a replacement submission to that tournament needs.
func ExcludeTournament(picks []*model.Pick, tournamentID int64) []*model.Pick {
	out := make([]*model.Pick, 0, len(picks))
	for _, p := range picks {
		if p.TournamentID != tournamentID {
			out = append(out, p)
		}
	}
	return out
}

// SelectionCost is the cost of a new submission: main draw players at their
// cost, qualifiers at QualifierCost each.
func SelectionCost(mainDraw []*model.Player, qualifierCount int) int {
	total := qualifierCount * QualifierCost
	for _, p := range mainDraw {
		total += p.Cost
	}
	return total
}
