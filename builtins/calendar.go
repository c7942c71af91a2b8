package builtins

import (
	"time"

	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/scoring"
)

// CalendarEntry is one tournament on a built-in calendar.
type CalendarEntry struct {
	Name      string
	Level     model.Level
	StartDate string
	EndDate   string
}

// wta2026 is the 2026 WTA calendar, less the 250s.
var wta2026 = []CalendarEntry{
	// Grand Slams
	{"Australian Open", model.LevelGrandSlam, "2026-01-19", "2026-02-01"},
	{"Roland Garros", model.LevelGrandSlam, "2026-05-24", "2026-06-07"},
	{"Wimbledon", model.LevelGrandSlam, "2026-06-29", "2026-07-12"},
	{"US Open", model.LevelGrandSlam, "2026-08-31", "2026-09-13"},

	// WTA 1000
	{"Dubai", model.LevelWTA1000, "2026-02-15", "2026-02-21"},
	{"Indian Wells", model.LevelWTA1000, "2026-03-11", "2026-03-22"},
	{"Miami Open", model.LevelWTA1000, "2026-03-25", "2026-04-05"},
	{"Madrid Open", model.LevelWTA1000, "2026-04-26", "2026-05-09"},
	{"Rome", model.LevelWTA1000, "2026-05-10", "2026-05-17"},
	{"Canadian Open", model.LevelWTA1000, "2026-08-08", "2026-08-16"},
	{"Cincinnati", model.LevelWTA1000, "2026-08-17", "2026-08-23"},
	{"Wuhan Open", model.LevelWTA1000, "2026-09-20", "2026-09-27"},
	{"China Open", model.LevelWTA1000, "2026-09-28", "2026-10-04"},

	// WTA 500
	{"Adelaide", model.LevelWTA500, "2026-01-12", "2026-01-17"},
	{"Abu Dhabi", model.LevelWTA500, "2026-02-01", "2026-02-07"},
	{"Doha", model.LevelWTA500, "2026-02-08", "2026-02-14"},
	{"Charleston", model.LevelWTA500, "2026-04-06", "2026-04-12"},
	{"Stuttgart", model.LevelWTA500, "2026-04-13", "2026-04-19"},
	{"Berlin", model.LevelWTA500, "2026-06-15", "2026-06-21"},
	{"Eastbourne", model.LevelWTA500, "2026-06-22", "2026-06-27"},
	{"San Diego", model.LevelWTA500, "2026-09-07", "2026-09-13"},
	{"Tokyo", model.LevelWTA500, "2026-10-12", "2026-10-18"},
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Tournament makes the UPCOMING tournament this entry describes.
func (e *CalendarEntry) Tournament() *model.Tournament {
	return &model.Tournament{
		Name:            e.Name,
		Level:           e.Level,
		StartDate:       mustDate(e.StartDate),
		EndDate:         mustDate(e.EndDate),
		Status:          model.StatusUpcoming,
		PointsAllowance: scoring.Allowance(e.Level),
	}
}

// WTA2026 returns the built-in calendar as tournaments, in calendar order
// within each level.
func WTA2026() []*model.Tournament {
	out := make([]*model.Tournament, 0, len(wta2026))
	for i := range wta2026 {
		out = append(out, wta2026[i].Tournament())
	}
	return out
}

// Upcoming returns the built-in tournaments that start after now.
func Upcoming(now time.Time) []*model.Tournament {
	out := []*model.Tournament{}
	for _, t := range WTA2026() {
		if t.StartDate.After(now) {
			out = append(out, t)
		}
	}
	return out
}
