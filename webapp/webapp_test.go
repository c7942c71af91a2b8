package webapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ts4z/wtapicks/admin"
	"github.com/ts4z/wtapicks/fakes"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/leaderboard"
	"github.com/ts4z/wtapicks/middleware"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/password"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/picks"
	"github.com/ts4z/wtapicks/rankings"
	"github.com/ts4z/wtapicks/reconcile"
	"github.com/ts4z/wtapicks/results"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/ts"
)

const loginBurst = 10

type fixture struct {
	app *App
	s   *fakes.MemStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	fc := clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))
	clock := ts.NewClock(fc)
	s := fakes.NewMemStorageWithClock(fc)

	sc := &model.SiteConfig{Name: "test", AllowedOriginDomains: []string{"picks.example.com"}}
	_, err := permission.RotateKeys(sc, clock.Now(), permission.KeyWindows{
		StartOffset:  -time.Hour,
		MintDuration: 24 * time.Hour,
		HonorOffset:  24 * time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveSiteConfig(ctx, sc))

	users := permission.NewUserStorage(s)
	app, err := New(ctx, &Config{
		SiteStorage:   s,
		Identities:    s,
		Users:         users,
		BakeryFactory: permission.NewBakeryFactory(clock, s),
		Admin:         admin.New(&admin.Config{Storage: s, Users: users}),
		Board:         leaderboard.New(s),
		Validator:     picks.New(&picks.Config{Storage: s}),
		Recorder:      results.New(&results.Config{Storage: s, Clock: clock}),
		Importer:      rankings.NewImporter(&rankings.Config{Storage: s}),
		Reconciler:    reconcile.New(&reconcile.Config{Storage: s, Clock: clock}),
		Limiter:       middleware.NewAddrLimiter(rate.Every(time.Minute), loginBurst, clock),
		Clock:         clock,
	})
	require.NoError(t, err)
	return &fixture{app: app, s: s}
}

func (f *fixture) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.app.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, nick, pw string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {nick}, "password": {pw}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.app.Handler().ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == permission.AuthCookieName && c.Value != "" {
			return c
		}
	}
	require.FailNow(t, "no session cookie", "response: %s", rec.Body.String())
	return nil
}

// addUser creates a user directly in storage and logs them in.
func (f *fixture) addUser(t *testing.T, nick string, isAdmin bool) *http.Cookie {
	t.Helper()
	_, err := f.s.CreateUser(context.Background(), nick, nick+"@example.com", password.Hash("correct horse"), isAdmin)
	require.NoError(t, err)
	rec := f.login(t, nick, "correct horse")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Kind    he.Kind `json:"kind"`
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, code int, kind he.Kind) {
	t.Helper()
	assert.Equal(t, code, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, kind, body.Kind)
}

func TestRegisterAndDashboard(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/register", map[string]string{
		"nick": "alice", "email": "alice@example.com", "password": "correct horse",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[sessionResponse](t, rec)
	assert.True(t, session.Success)
	assert.Equal(t, "alice", session.User.Nick)
	assert.False(t, session.User.IsAdmin)
	cookie := sessionCookie(t, rec)

	rec = f.do(t, http.MethodGet, "/api/dashboard", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode[leaderboard.Dashboard](t, rec)
	assert.Equal(t, "alice", d.User.Nick)
	assert.Equal(t, scoring.StartingBudget, d.Budget.Budget)

	assertError(t, f.do(t, http.MethodGet, "/api/dashboard", nil, nil), http.StatusUnauthorized, he.KindUnauthorized)

	rec = f.do(t, http.MethodPost, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "taken", false)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"no nick", map[string]string{"nick": " ", "email": "a@example.com", "password": "correct horse"}},
		{"bad email", map[string]string{"nick": "bob", "email": "bob", "password": "correct horse"}},
		{"short password", map[string]string{"nick": "bob", "email": "bob@example.com", "password": "short"}},
		{"taken nick", map[string]string{"nick": "taken", "email": "t@example.com", "password": "correct horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, f.do(t, http.MethodPost, "/register", tt.body, nil), http.StatusBadRequest, he.KindInvalidInput)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", false)

	assertError(t, f.login(t, "alice", "wrong password"), http.StatusUnauthorized, he.KindUnauthorized)
	assertError(t, f.login(t, "nobody", "correct horse"), http.StatusUnauthorized, he.KindUnauthorized)
	assertError(t, f.login(t, "alice", ""), http.StatusBadRequest, he.KindInvalidInput)

	// Only POST.
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/login", nil, nil).Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	f := newFixture(t)
	for range loginBurst {
		assert.Equal(t, http.StatusBadRequest, f.login(t, "", "").Code)
	}
	// The fake clock never moves, so the bucket stays empty.
	assert.Equal(t, http.StatusTooManyRequests, f.login(t, "", "").Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	pleb := f.addUser(t, "pleb", false)

	for _, path := range []string{"/api/admin/users", "/api/admin/reconcile", "/api/admin/results?tournamentId=1"} {
		assertError(t, f.do(t, http.MethodGet, path, nil, nil), http.StatusUnauthorized, he.KindUnauthorized)
		assertError(t, f.do(t, http.MethodGet, path, nil, pleb), http.StatusUnauthorized, he.KindUnauthorized)
	}
	assertError(t, f.do(t, http.MethodDelete, "/api/admin/tournaments/1", nil, pleb), http.StatusUnauthorized, he.KindUnauthorized)

	// Public reads stay open.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/tournaments", nil, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/leaderboard", nil, nil).Code)
}

func playerIDs(t *testing.T, f *fixture) map[string]int64 {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/api/players", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := map[string]int64{}
	for _, p := range decode[[]*model.Player](t, rec) {
		out[p.Name] = p.ID
	}
	return out
}

func TestSeason(t *testing.T) {
	f := newFixture(t)
	root := f.addUser(t, "root", true)
	alice := f.addUser(t, "alice", false)

	rec := f.do(t, http.MethodPost, "/api/admin/tournaments", map[string]string{
		"name": "Doha", "level": "WTA_500", "startDate": "2026-02-08", "endDate": "2026-02-14",
	}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doha := decode[model.Tournament](t, rec)
	assert.Equal(t, 8, doha.PointsAllowance)

	rec = f.do(t, http.MethodPatch, "/api/admin/tournaments/"+itoa(doha.ID), map[string]string{"status": "ACTIVE"}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusActive, decode[model.Tournament](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/admin/rankings/paste", map[string]string{
		"text": "Iga Swiatek, POL, 2\nQual Ifier, USA, 140",
	}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, importResponse{Success: true, Created: 2, Total: 2}, decode[importResponse](t, rec))
	ids := playerIDs(t, f)

	// Wrong shape first.
	assertError(t, f.do(t, http.MethodPost, "/api/picks", map[string]any{
		"tournamentId": doha.ID, "mainDrawPicks": []int64{ids["Iga Swiatek"]},
	}, alice), http.StatusBadRequest, he.KindInvalidInput)

	rec = f.do(t, http.MethodPost, "/api/picks", map[string]any{
		"tournamentId":   doha.ID,
		"mainDrawPicks":  []int64{ids["Iga Swiatek"]},
		"qualifierPicks": []int64{ids["Qual Ifier"]},
	}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// 50 + 8 allowance - 12 - 3
	assert.Equal(t, submitPicksResponse{Success: true, Budget: 43}, decode[submitPicksResponse](t, rec))

	rec = f.do(t, http.MethodPost, "/api/admin/results", map[string]any{
		"tournamentId": doha.ID, "playerId": ids["Iga Swiatek"], "round": "r2", "won": true,
	}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	match := decode[model.Match](t, rec)
	assert.Equal(t, 3, match.PointsAwarded)
	assert.Equal(t, "R2", match.Round)

	rec = f.do(t, http.MethodGet, "/api/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	standings := decode[[]*scoring.Standing](t, rec)
	require.Len(t, standings, 2)
	assert.Equal(t, "root", standings[0].Nick)
	assert.Equal(t, "alice", standings[1].Nick)
	assert.Equal(t, 38, standings[1].Score)

	rec = f.do(t, http.MethodGet, "/api/leaderboard/"+itoa(standings[1].UserID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[leaderboard.UserDetail](t, rec)
	require.Len(t, detail.Tournaments, 1)
	assert.Equal(t, 3, detail.Tournaments[0].Points)

	rec = f.do(t, http.MethodGet, "/api/dashboard", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 46, decode[leaderboard.Dashboard](t, rec).Budget.Budget)

	rec = f.do(t, http.MethodPatch, "/api/admin/results/"+itoa(match.ID), map[string]any{
		"playerId": ids["Iga Swiatek"], "round": "QF", "won": true,
	}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 10, decode[model.Match](t, rec).PointsAwarded)

	rec = f.do(t, http.MethodGet, "/api/admin/results/"+itoa(match.ID)+"/history", nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*model.AwardEvent](t, rec), 3)

	assertError(t, f.do(t, http.MethodPost, "/api/admin/results", map[string]any{
		"tournamentId": doha.ID, "playerId": ids["Iga Swiatek"], "round": "R9", "won": true,
	}, root), http.StatusBadRequest, he.KindInvalidInput)
	assertError(t, f.do(t, http.MethodPatch, "/api/admin/results/"+itoa(match.ID), map[string]any{
		"playerId": ids["Iga Swiatek"], "round": "semis", "won": true,
	}, root), http.StatusBadRequest, he.KindInvalidInput)

	rec = f.do(t, http.MethodGet, "/api/admin/results?tournamentId="+itoa(doha.ID), nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*model.Match](t, rec), 1)

	rec = f.do(t, http.MethodDelete, "/api/admin/results/"+itoa(match.ID), nil, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, okResponse{Success: true}, decode[okResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/dashboard", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 43, decode[leaderboard.Dashboard](t, rec).Budget.Budget)

	rec = f.do(t, http.MethodGet, "/api/admin/reconcile", nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[reconcile.Report](t, rec)
	assert.True(t, report.Clean(), "%+v", report)
	assert.Equal(t, 2, report.PicksChecked)

	rec = f.do(t, http.MethodGet, "/api/admin/picks?tournamentId="+itoa(doha.ID), nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*model.PickWithOwner](t, rec), 2)
}

func TestAdminPlayersAndUsers(t *testing.T) {
	f := newFixture(t)
	root := f.addUser(t, "root", true)
	f.addUser(t, "alice", false)

	rec := f.do(t, http.MethodPost, "/api/admin/players", map[string]any{"name": "Local Hope", "isWildcard": true}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	wc := decode[model.Player](t, rec)
	assert.Equal(t, 1, wc.Cost)

	rec = f.do(t, http.MethodPatch, "/api/admin/players/"+itoa(wc.ID), map[string]any{"wtaRanking": 9}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 7, decode[model.Player](t, rec).Cost)

	rec = f.do(t, http.MethodPost, "/api/admin/players/bulk", map[string]any{
		"players": []map[string]any{{"name": "Local Hope", "wtaRanking": 50}, {"name": "Coco Gauff", "country": "USA", "wtaRanking": 3}},
	}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, importResponse{Success: true, Created: 1, Skipped: 1, Total: 1}, decode[importResponse](t, rec))

	rec = f.do(t, http.MethodDelete, "/api/admin/players/"+itoa(wc.ID), nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	assertError(t, f.do(t, http.MethodDelete, "/api/admin/players/"+itoa(wc.ID), nil, root), http.StatusNotFound, he.KindNotFound)
	assertError(t, f.do(t, http.MethodDelete, "/api/admin/players/nope", nil, root), http.StatusBadRequest, he.KindInvalidInput)

	rec = f.do(t, http.MethodGet, "/api/admin/users", nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]*model.UserSummary](t, rec)
	require.Len(t, users, 2)
	byNick := map[string]int64{}
	for _, u := range users {
		byNick[u.Nick] = u.ID
	}

	rec = f.do(t, http.MethodPatch, "/api/admin/users/"+itoa(byNick["alice"]), map[string]any{"hiddenFromLeaderboard": true}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.UserIdentity](t, rec).HiddenFromLeaderboard)

	assertError(t, f.do(t, http.MethodPatch, "/api/admin/users/"+itoa(byNick["root"]), map[string]any{"isAdmin": false}, root),
		http.StatusBadRequest, he.KindInvalidInput)

	rec = f.do(t, http.MethodDelete, "/api/admin/users/"+itoa(byNick["alice"]), nil, root)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSync(t *testing.T) {
	f := newFixture(t)
	root := f.addUser(t, "root", true)

	rec := f.do(t, http.MethodPost, "/api/admin/sync", map[string]string{"type": "tournaments"}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, messageResponse{Success: true, Message: "Added 22 tournaments (0 already existed)"}, decode[messageResponse](t, rec))

	// No fetcher configured.
	rec = f.do(t, http.MethodPost, "/api/admin/sync", map[string]string{"type": "rankings"}, root)
	assertError(t, rec, http.StatusInternalServerError, he.KindInternal)

	assertError(t, f.do(t, http.MethodPost, "/api/admin/sync", map[string]string{"type": "weather"}, root),
		http.StatusBadRequest, he.KindInvalidInput)
}

func TestInfrastructureRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/robots.txt", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /api/")

	rec = f.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wtapicks_middleware_http_requests_total")
}

func TestCORS(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tournaments", nil)
	req.Header.Set("Origin", "https://picks.example.com")
	rec := httptest.NewRecorder()
	f.app.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://picks.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewNeedsCookieKeys(t *testing.T) {
	s := fakes.NewMemStorage()
	clock := ts.NewRealClock()
	users := permission.NewUserStorage(s)
	_, err := New(context.Background(), &Config{
		SiteStorage:   s,
		Identities:    s,
		Users:         users,
		BakeryFactory: permission.NewBakeryFactory(clock, s),
		Clock:         clock,
	})
	assert.Error(t, err)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
