// Package reconcile compares the point caches with what the match history
// says they should be, and can put them back.
//
// A pick should hold the sum of PointsAwarded over the matches of its
// (tournament, player).  A user should hold the sum of their picks.
package reconcile

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/varz"
)

var (
	runs        = varz.NewCounterVec("runs_total", "Reconciliation runs, by mode.", "mode")
	driftsFound = varz.NewCounterVec("drifts_found_total", "Cached values found out of line with match history.", "what")
	repairs     = varz.NewCounter("repairs_written_total", "Cached values rewritten by repair.")
)

type PickDrift struct {
	PickID       int64 `json:"pickId"`
	UserID       int64 `json:"userId"`
	TournamentID int64 `json:"tournamentId"`
	PlayerID     int64 `json:"playerId"`
	Cached       int   `json:"cached"`
	Expected     int   `json:"expected"`
}

type UserDrift struct {
	UserID   int64  `json:"userId"`
	Nick     string `json:"nick"`
	Cached   int    `json:"cached"`
	Expected int    `json:"expected"`
}

type Report struct {
	PicksChecked int          `json:"picksChecked"`
	UsersChecked int          `json:"usersChecked"`
	Picks        []*PickDrift `json:"picks"`
	Users        []*UserDrift `json:"users"`
	Repaired     bool         `json:"repaired"`
}

func (r *Report) Clean() bool {
	return len(r.Picks) == 0 && len(r.Users) == 0
}

func (r *Report) String() string {
	return fmt.Sprintf("%d/%d picks and %d/%d users out of line", len(r.Picks), r.PicksChecked, len(r.Users), r.UsersChecked)
}

type Clock interface {
	Now() time.Time
}

type Reconciler struct {
	storage state.Storage
	clock   Clock
}

type Config struct {
	Storage state.Storage
	Clock   Clock
}

func New(cf *Config) *Reconciler {
	return &Reconciler{
		storage: dep.Required(cf.Storage),
		clock:   dep.Required(cf.Clock),
	}
}

type pairKey struct {
	tournamentID, playerID int64
}

type snapshot struct {
	picks   []*model.Pick
	users   []*model.UserSummary
	awarded map[pairKey]int
}

func load(ctx context.Context, q state.Queries) (*snapshot, error) {
	matches, err := q.FetchAllMatches(ctx)
	if err != nil {
		return nil, err
	}
	picks, err := q.FetchAllPicks(ctx)
	if err != nil {
		return nil, err
	}
	users, err := q.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	s := &snapshot{picks: picks, users: users, awarded: map[pairKey]int{}}
	for _, m := range matches {
		s.awarded[pairKey{m.TournamentID, m.PlayerID}] += m.PointsAwarded
	}
	return s, nil
}

func (s *snapshot) pickDrifts() []*PickDrift {
	out := []*PickDrift{}
	for _, k := range s.picks {
		want := s.awarded[pairKey{k.TournamentID, k.PlayerID}]
		if k.PointsEarned != want {
			out = append(out, &PickDrift{
				PickID:       k.ID,
				UserID:       k.UserID,
				TournamentID: k.TournamentID,
				PlayerID:     k.PlayerID,
				Cached:       k.PointsEarned,
				Expected:     want,
			})
		}
	}
	return out
}

// userDrifts compares user totals with pickPoints summed per user.
func (s *snapshot) userDrifts(pickPoints func(*model.Pick) int) []*UserDrift {
	sums := map[int64]int{}
	for _, k := range s.picks {
		sums[k.UserID] += pickPoints(k)
	}
	out := []*UserDrift{}
	for _, u := range s.users {
		if u.TotalPoints != sums[u.ID] {
			out = append(out, &UserDrift{UserID: u.ID, Nick: u.Nick, Cached: u.TotalPoints, Expected: sums[u.ID]})
		}
	}
	slices.SortFunc(out, func(a, b *UserDrift) int { return cmp.Compare(a.UserID, b.UserID) })
	return out
}

func (s *snapshot) report() *Report {
	return &Report{PicksChecked: len(s.picks), UsersChecked: len(s.users)}
}

func count(r *Report) {
	driftsFound.WithLabelValues("pick").Add(float64(len(r.Picks)))
	driftsFound.WithLabelValues("user").Add(float64(len(r.Users)))
}

// Check reports drift without changing anything.  User totals are compared
// with the picks as cached.
func (r *Reconciler) Check(ctx context.Context, who permission.Caller) (*Report, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}

	var rep *Report
	err := r.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		s, err := load(ctx, q)
		if err != nil {
			return err
		}
		rep = s.report()
		rep.Picks = s.pickDrifts()
		rep.Users = s.userDrifts(func(k *model.Pick) int { return k.PointsEarned })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile check: %w", err)
	}

	runs.WithLabelValues("check").Inc()
	count(rep)
	return rep, nil
}

// Repair rewrites drifted picks from match history, then user totals from
// the repaired picks, in one transaction.  Each pick fix gets a ledger row.
// The report lists what was written.
func (r *Reconciler) Repair(ctx context.Context, who permission.Caller) (*Report, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}

	var rep *Report
	err := r.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		s, err := load(ctx, q)
		if err != nil {
			return err
		}
		rep = s.report()
		rep.Picks = s.pickDrifts()
		for _, d := range rep.Picks {
			if err := q.SetPickPoints(ctx, d.PickID, d.Expected); err != nil {
				return err
			}
			ev := &model.AwardEvent{
				ID:            uuid.NewString(),
				TournamentID:  d.TournamentID,
				PlayerID:      d.PlayerID,
				Delta:         d.Expected - d.Cached,
				Reason:        model.AwardReconcileFix,
				PicksAffected: 1,
				At:            r.clock.Now(),
			}
			if err := q.RecordAwardEvent(ctx, ev); err != nil {
				return err
			}
		}

		rep.Users = s.userDrifts(func(k *model.Pick) int {
			return s.awarded[pairKey{k.TournamentID, k.PlayerID}]
		})
		for _, d := range rep.Users {
			if err := q.SetUserTotalPoints(ctx, d.UserID, d.Expected); err != nil {
				return err
			}
		}
		rep.Repaired = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile repair: %w", err)
	}

	runs.WithLabelValues("repair").Inc()
	count(rep)
	repairs.Add(float64(len(rep.Picks) + len(rep.Users)))
	if !rep.Clean() {
		log.Printf("reconcile: %s repaired %s", who, rep)
	}
	return rep, nil
}

// Periodic is a scheduled run.  It only logs unless repair is set.
func (r *Reconciler) Periodic(ctx context.Context, repair bool) {
	var rep *Report
	var err error
	if repair {
		rep, err = r.Repair(ctx, permission.System)
	} else {
		rep, err = r.Check(ctx, permission.System)
	}
	if err != nil {
		log.Printf("reconcile: scheduled run failed: %v", err)
		return
	}
	if !rep.Clean() {
		log.Printf("reconcile: scheduled run found %s (repaired=%v)", rep, rep.Repaired)
		for _, d := range rep.Picks {
			log.Printf("reconcile:   pick %d (user %d, tournament %d, player %d): cached %d, expected %d",
				d.PickID, d.UserID, d.TournamentID, d.PlayerID, d.Cached, d.Expected)
		}
		for _, d := range rep.Users {
			log.Printf("reconcile:   user %d (%s): cached %d, expected %d", d.UserID, d.Nick, d.Cached, d.Expected)
		}
	}
}
