package rankings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/wtapicks/fakes"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/permission"
)

const espnPage = `<!DOCTYPE html>
<html><body>
<table class="Table">
<thead><tr class="Table__TR Table__even"><th>RK</th><th>Name</th><th>Points</th></tr></thead>
<tbody class="Table__TBODY">
<tr class="Table__TR Table__TR--sm Table__even">
  <td class="Table__TD"><span class="rank_column">1</span></td>
  <td class="Table__TD"><img class="flag" title="Belarus" src="blr.png"><a class="AnchorLink" href="/tennis/player/_/id/1">Aryna Sabalenka</a></td>
  <td class="Table__TD">10870</td>
</tr>
<tr class="Table__TR Table__TR--sm Table__even">
  <td class="Table__TD"><span class="rank_column">2</span></td>
  <td class="Table__TD"><img class="flag" title="Poland" src="pol.png"><a class="AnchorLink" href="/tennis/player/_/id/2"> Iga Swiatek </a></td>
  <td class="Table__TD">8395</td>
</tr>
<tr class="Table__TR Table__TR--sm Table__even">
  <td class="Table__TD"><span class="rank_column">3</span></td>
  <td class="Table__TD"><a class="AnchorLink" href="/tennis/player/_/id/3">Coco Gauff</a></td>
  <td class="Table__TD">6763</td>
</tr>
<tr class="Table__TR Table__TR--sm Table__even">
  <td class="Table__TD"><span class="rank_column">4</span></td>
  <td class="Table__TD"><img title="Nowhere"><a class="AnchorLink" href="#">X</a></td>
</tr>
<tr class="Table__TR Table__TR--sm Table__even">
  <td class="Table__TD"><span class="rank_column">-</span></td>
  <td class="Table__TD"><a class="AnchorLink" href="#">Not Ranked</a></td>
</tr>
</tbody>
</table>
</body></html>`

func TestParseESPN(t *testing.T) {
	entries, err := ParseESPN(strings.NewReader(espnPage))
	require.NoError(t, err)
	assert.Equal(t, []*Entry{
		{Name: "Aryna Sabalenka", Country: "BEL", Ranking: 1},
		{Name: "Iga Swiatek", Country: "POL", Ranking: 2},
		{Name: "Coco Gauff", Country: "", Ranking: 3},
	}, entries)
}

func TestParseBulk(t *testing.T) {
	text := `
Aryna Sabalenka, BLR, 1
Iga Swiatek,POL,2
  Wildcard Kid , , 999
no ranking, USA
, USA, 7
Bad Number, USA, seven
`
	assert.Equal(t, []*Entry{
		{Name: "Aryna Sabalenka", Country: "BLR", Ranking: 1},
		{Name: "Iga Swiatek", Country: "POL", Ranking: 2},
		{Name: "Wildcard Kid", Country: "", Ranking: 999},
	}, ParseBulk(text))
	assert.Empty(t, ParseBulk(""))
}

func TestUpsert(t *testing.T) {
	s := fakes.NewMemStorage()
	ctx := context.Background()
	existing := fakes.AddPlayer(t, s, "Iga Swiatek", 1)
	im := NewImporter(&Config{Storage: s})

	res, err := im.Upsert(ctx, permission.System, []*Entry{
		{Name: "Aryna Sabalenka", Country: "BLR", Ranking: 1},
		{Name: "Iga Swiatek", Country: "POL", Ranking: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 1, Updated: 1}, res)
	assert.Equal(t, 2, res.Total())

	p, err := s.FetchPlayer(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Ranking)
	assert.Equal(t, 12, p.Cost)
	assert.Equal(t, "POL", p.Country)

	p, err = s.FetchPlayerByName(ctx, "Aryna Sabalenka")
	require.NoError(t, err)
	assert.Equal(t, 13, p.Cost)
}

func TestUpsertIsAllOrNothing(t *testing.T) {
	s := fakes.NewMemStorage()
	ctx := context.Background()
	im := NewImporter(&Config{Storage: s})

	_, err := im.Upsert(ctx, permission.System, []*Entry{
		{Name: "Aryna Sabalenka", Country: "BLR", Ranking: 1},
		{Name: "Nobody", Country: "USA", Ranking: 0},
	})
	assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)

	players, err := s.FetchPlayers(ctx)
	require.NoError(t, err)
	assert.Empty(t, players)

	_, err = im.Upsert(ctx, permission.System, nil)
	assert.True(t, he.Is(err, he.KindInvalidInput), "got %v", err)
}

func TestCreateMissing(t *testing.T) {
	s := fakes.NewMemStorage()
	ctx := context.Background()
	existing := fakes.AddPlayer(t, s, "Coco Gauff", 3)
	im := NewImporter(&Config{Storage: s})

	res, err := im.CreateMissing(ctx, permission.System, ParseBulk("Coco Gauff, USA, 40\nMadison Keys, USA, 7"))
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 1, Skipped: 1}, res)

	p, err := s.FetchPlayer(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Ranking, "existing players are left alone")
}

func TestImportRequiresAdmin(t *testing.T) {
	im := NewImporter(&Config{Storage: fakes.NewMemStorage()})
	ctx := context.Background()
	entries := []*Entry{{Name: "Aryna Sabalenka", Ranking: 1}}

	_, err := im.Upsert(ctx, permission.Caller{UserID: 5, Nick: "pleb"}, entries)
	assert.True(t, he.Is(err, he.KindUnauthorized), "got %v", err)
	_, err = im.CreateMissing(ctx, permission.Caller{}, entries)
	assert.True(t, he.Is(err, he.KindUnauthorized), "got %v", err)
	_, err = im.Sync(ctx, permission.Caller{})
	assert.True(t, he.Is(err, he.KindUnauthorized), "got %v", err)
}

func TestSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(espnPage))
	}))
	defer srv.Close()

	s := fakes.NewMemStorage()
	im := NewImporter(&Config{
		Storage: s,
		Fetcher: NewFetcher(&FetcherConfig{URL: srv.URL, Timeout: 5 * time.Second}),
	})

	res, err := im.Sync(context.Background(), permission.System)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)

	res, err = im.Sync(context.Background(), permission.System)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
}

func TestSyncFailures(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer empty.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer broken.Close()

	for _, url := range []string{empty.URL, broken.URL} {
		s := fakes.NewMemStorage()
		im := NewImporter(&Config{
			Storage: s,
			Fetcher: NewFetcher(&FetcherConfig{URL: url, Timeout: 5 * time.Second}),
		})
		_, err := im.Sync(context.Background(), permission.System)
		assert.Error(t, err, url)
	}

	_, err := NewImporter(&Config{Storage: fakes.NewMemStorage()}).Sync(context.Background(), permission.System)
	assert.Error(t, err)
}

func TestFetcherPacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(espnPage))
	}))
	defer srv.Close()

	f := NewFetcher(&FetcherConfig{URL: srv.URL, Timeout: 5 * time.Second, Every: time.Hour})
	_, err := f.Fetch(context.Background())
	require.NoError(t, err)

	// The next slot is an hour away, which is past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx)
	assert.Error(t, err)
}
