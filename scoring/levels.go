package scoring

import (
	"github.com/ts4z/wtapicks/model"
)

// RequiredPicks is how many of each pick type a level needs.
type RequiredPicks struct {
	MainDraw  int
	Qualifier int
}

var levelAllowance = map[model.Level]int{
	model.LevelWTA500:    8,
	model.LevelWTA1000:   10,
	model.LevelGrandSlam: 12,
}

var levelRequiredPicks = map[model.Level]RequiredPicks{
	model.LevelWTA500:    {MainDraw: 1, Qualifier: 1},
	model.LevelWTA1000:   {MainDraw: 2, Qualifier: 1},
	model.LevelGrandSlam: {MainDraw: 2, Qualifier: 1},
}

// Allowance is the budget bonus a tournament of this level grants once it
// starts.  It is fixed onto the tournament at creation.
func Allowance(level model.Level) int {
	return levelAllowance[level]
}

func RequiredPicksFor(level model.Level) RequiredPicks {
	return levelRequiredPicks[level]
}
