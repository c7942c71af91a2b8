package rankings

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/ts4z/wtapicks/textutil"
	"github.com/ts4z/wtapicks/varz"
)

var (
	fetches       = varz.NewCounterVec("espn_fetches_total", "Ranking page fetches, by result.", "result")
	fetchDuration = varz.NewHistogram("espn_fetch_duration_seconds", "Time to fetch and parse the ranking page.")
)

const userAgent = "wtapicks/1.0 (+rankings sync)"

// Fetcher gets rankings from ESPN's WTA ranking page.  Fetches are paced so
// an impatient admin can't hammer the site.
type Fetcher struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

type FetcherConfig struct {
	URL     string
	Timeout time.Duration
	// Every is the minimum interval between fetches.  Zero means no pacing.
	Every time.Duration
	// Transport is for tests.  Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

func NewFetcher(cf *FetcherConfig) *Fetcher {
	limit := rate.Inf
	if cf.Every > 0 {
		limit = rate.Every(cf.Every)
	}
	return &Fetcher{
		url: cf.URL,
		client: &http.Client{
			Timeout:   cf.Timeout,
			Transport: cf.Transport,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]*Entry, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		fetches.WithLabelValues("paced").Inc()
		return nil, fmt.Errorf("waiting to fetch rankings: %w", err)
	}

	start := time.Now()
	defer func() { fetchDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't build request for %s: %w", f.url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	rsp, err := f.client.Do(req)
	if err != nil {
		fetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("can't fetch %s: %w", f.url, err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		fetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch %s: %s", f.url, rsp.Status)
	}

	entries, err := ParseESPN(rsp.Body)
	if err != nil {
		fetches.WithLabelValues("error").Inc()
		return nil, err
	}
	fetches.WithLabelValues("ok").Inc()
	log.Printf("rankings: fetched %d players from %s", len(entries), f.url)
	return entries, nil
}

// ParseESPN reads the ranking table.  Each row has the rank in a
// span.rank_column, the name in an a.AnchorLink, and the country as the
// title of the flag image.  Rows missing a rank or name are skipped.
func ParseESPN(r io.Reader) ([]*Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("can't parse rankings page: %w", err)
	}

	out := []*Entry{}
	doc.Find("tr.Table__TR").Each(func(_ int, row *goquery.Selection) {
		rank, err := strconv.Atoi(strings.TrimSpace(row.Find("span.rank_column").First().Text()))
		if err != nil || rank < 1 {
			return
		}
		name := textutil.CollapseSpace(row.Find("a.AnchorLink").First().Text())
		if len(name) <= 1 {
			return
		}
		title, _ := row.Find("img").First().Attr("title")
		out = append(out, &Entry{Name: name, Country: countryCode(title), Ranking: rank})
	})
	return out, nil
}

// countryCode is the first three letters of the flag title, upper cased.
func countryCode(title string) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}
