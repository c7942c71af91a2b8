package scoring

import (
	"cmp"
	"slices"

	"github.com/ts4z/wtapicks/model"
)

// Standing is one row of the leaderboard.
type Standing struct {
	Rank           int    `json:"rank"`
	UserID         int64  `json:"userId"`
	Nick           string `json:"nick"`
	Score          int    `json:"score"`
	Earned         int    `json:"earned"`
	StartingPoints int    `json:"startingPoints"`
	Spent          int    `json:"spent"`
	PickCount      int    `json:"pickCount"`
}

// Standings ranks the visible users.  Score is the starting budget plus the
// user's admin bonus plus what they earned, less what they spent.  Ties are
// broken by nick and then ID so the order is stable.
func Standings(users []*model.UserIdentity, picksByUser map[int64][]*model.Pick) []*Standing {
	out := []*Standing{}
	for _, u := range users {
		if u.HiddenFromLeaderboard {
			continue
		}
		picks := picksByUser[u.ID]
		earned := PointsEarned(picks)
		spent := PointsSpent(picks)
		out = append(out, &Standing{
			UserID:         u.ID,
			Nick:           u.Nick,
			Score:          StartingBudget + u.StartingPoints + earned - spent,
			Earned:         earned,
			StartingPoints: u.StartingPoints,
			Spent:          spent,
			PickCount:      len(picks),
		})
	}

	slices.SortFunc(out, func(a, b *Standing) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Nick, b.Nick); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	for i, s := range out {
		s.Rank = i + 1
	}
	return out
}

// FindStanding returns the standing for userID, or nil if they are hidden or
// absent.
func FindStanding(standings []*Standing, userID int64) *Standing {
	for _, s := range standings {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}
