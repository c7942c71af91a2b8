// Package rankings gets player rankings into storage: from admin pastes,
// from bulk text, and from the ESPN rankings page.
package rankings

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/textutil"
	"github.com/ts4z/wtapicks/varz"
)

var (
	playersCreated = varz.NewCounter("players_created_total", "Players created by imports.")
	playersUpdated = varz.NewCounter("players_updated_total", "Players whose ranking was updated by imports.")
)

// Entry is one player's ranking as imported.
type Entry struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Ranking int    `json:"wtaRanking"`
}

func (e *Entry) player() *model.Player {
	return &model.Player{
		Name:    textutil.CollapseSpace(e.Name),
		Country: strings.TrimSpace(e.Country),
		Ranking: e.Ranking,
	}
}

// ParseBulk reads "Name, Country, Ranking" lines.  Lines without a name or
// with a ranking that isn't a number are skipped.  An empty country is
// allowed.
func ParseBulk(text string) []*Entry {
	out := []*Entry{}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		for len(fields) < 3 {
			fields = append(fields, "")
		}
		name, country := textutil.CollapseSpace(fields[0]), fields[1]
		ranking, err := strconv.Atoi(fields[2])
		if name == "" || err != nil {
			continue
		}
		out = append(out, &Entry{Name: name, Country: country, Ranking: ranking})
	}
	return out
}

// Result counts what an import did.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func (r *Result) Total() int {
	return r.Created + r.Updated
}

type Importer struct {
	storage state.Storage
	fetcher *Fetcher
}

type Config struct {
	Storage state.Storage
	// Fetcher may be nil if nothing will call Sync.
	Fetcher *Fetcher
}

func NewImporter(cf *Config) *Importer {
	return &Importer{
		storage: dep.Required(cf.Storage),
		fetcher: cf.Fetcher,
	}
}

func validate(entries []*Entry) error {
	if len(entries) == 0 {
		return he.InvalidInputf("no players given")
	}
	for i, e := range entries {
		if textutil.CollapseSpace(e.Name) == "" {
			return he.InvalidInputf("entry %d has no name", i+1)
		}
		if err := scoring.ValidateRanking(e.Ranking); err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	return nil
}

// Upsert matches entries to players by name, updating country and ranking
// of those that exist and creating the rest.  Nothing is written unless
// every entry is valid.
func (im *Importer) Upsert(ctx context.Context, who permission.Caller, entries []*Entry) (*Result, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validate(entries); err != nil {
		return nil, err
	}

	res := &Result{}
	err := im.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		*res = Result{}
		for _, e := range entries {
			p := e.player()
			existing, err := q.FetchPlayerByName(ctx, p.Name)
			switch {
			case he.Is(err, he.KindNotFound):
				if _, err := q.CreatePlayer(ctx, p); err != nil {
					return err
				}
				res.Created++
			case err != nil:
				return err
			default:
				existing.Country = p.Country
				existing.Ranking = p.Ranking
				if err := q.UpdatePlayer(ctx, existing); err != nil {
					return err
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert rankings: %w", err)
	}

	playersCreated.Add(float64(res.Created))
	playersUpdated.Add(float64(res.Updated))
	log.Printf("rankings: %s upserted %d players (%d new, %d updated)", who, res.Total(), res.Created, res.Updated)
	return res, nil
}

// CreateMissing creates the entries whose names aren't taken and leaves
// existing players alone.
func (im *Importer) CreateMissing(ctx context.Context, who permission.Caller, entries []*Entry) (*Result, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validate(entries); err != nil {
		return nil, err
	}

	res := &Result{}
	err := im.storage.InTx(ctx, func(ctx context.Context, q state.Queries) error {
		*res = Result{}
		for _, e := range entries {
			created, err := q.CreatePlayerIfAbsent(ctx, e.player())
			if err != nil {
				return err
			}
			if created {
				res.Created++
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk create players: %w", err)
	}

	playersCreated.Add(float64(res.Created))
	log.Printf("rankings: %s bulk created %d players (%d already existed)", who, res.Created, res.Skipped)
	return res, nil
}

// Sync pulls the current rankings from the web and upserts them.
func (im *Importer) Sync(ctx context.Context, who permission.Caller) (*Result, error) {
	if err := who.RequireAdmin(); err != nil {
		return nil, err
	}
	if im.fetcher == nil {
		return nil, fmt.Errorf("rankings sync is not configured")
	}
	entries, err := im.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("could not fetch rankings; source may be unavailable")
	}
	return im.Upsert(ctx, who, entries)
}
