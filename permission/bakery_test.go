package permission

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/wtapicks/model"
)

var testWindows = KeyWindows{StartOffset: -time.Hour, MintDuration: 24 * time.Hour, HonorOffset: 24 * time.Hour}

func newSiteConfig(t *testing.T, now time.Time) *model.SiteConfig {
	sc := &model.SiteConfig{Name: "test"}
	_, err := RotateKeys(sc, now, testWindows)
	require.NoError(t, err)
	return sc
}

// roundTrip bakes a cookie with b and returns a request carrying it.
func roundTrip(t *testing.T, b *Bakery, userID int64) *http.Request {
	w := httptest.NewRecorder()
	require.NoError(t, b.BakeCookie(w, &model.AuthCookieData{UserID: userID}))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	return r
}

func TestBakeryRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(keyTestNow)
	b, err := New(clock, newSiteConfig(t, keyTestNow))
	require.NoError(t, err)

	r := roundTrip(t, b, 42)
	data, err := b.ReadCookie(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.UserID)

	// Past minting but still honored.
	clock.Advance(30 * time.Hour)
	data, err = b.ReadCookie(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.UserID)
	assert.Error(t, b.BakeCookie(httptest.NewRecorder(), &model.AuthCookieData{UserID: 42}))

	clock.Advance(24 * time.Hour)
	_, err = b.ReadCookie(r)
	assert.Error(t, err)
}

func TestBakeryRejectsForeignCookies(t *testing.T) {
	clock := clockwork.NewFakeClockAt(keyTestNow)
	ours, err := New(clock, newSiteConfig(t, keyTestNow))
	require.NoError(t, err)
	theirs, err := New(clock, newSiteConfig(t, keyTestNow))
	require.NoError(t, err)

	_, err = ours.ReadCookie(roundTrip(t, theirs, 42))
	assert.Error(t, err)

	_, err = ours.ReadCookie(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}

func TestBakeryHonorsOldKeyAfterRotation(t *testing.T) {
	clock := clockwork.NewFakeClockAt(keyTestNow)
	sc := newSiteConfig(t, keyTestNow)
	old, err := New(clock, sc)
	require.NoError(t, err)
	r := roundTrip(t, old, 7)

	_, err = RotateKeys(sc, keyTestNow, testWindows)
	require.NoError(t, err)
	rotated, err := New(clock, sc)
	require.NoError(t, err)

	data, err := rotated.ReadCookie(r)
	require.NoError(t, err)
	assert.Equal(t, int64(7), data.UserID)
}

func TestNewNeedsUsableKeys(t *testing.T) {
	clock := clockwork.NewFakeClockAt(keyTestNow)
	_, err := New(clock, &model.SiteConfig{})
	assert.Error(t, err)

	sc := newSiteConfig(t, keyTestNow.Add(-72*time.Hour))
	_, err = New(clock, sc)
	assert.Error(t, err, "expired keys don't count")

	sc = &model.SiteConfig{CookieKeys: []model.CookieKeyPair{{
		Validity:   newSiteConfig(t, keyTestNow).CookieKeys[0].Validity,
		HashKey64:  "%%%",
		BlockKey64: "%%%",
	}}}
	_, err = New(clock, sc)
	assert.Error(t, err)
}

type countingSites struct {
	sc      *model.SiteConfig
	fetches int
}

func (s *countingSites) FetchSiteConfig(ctx context.Context) (*model.SiteConfig, error) {
	s.fetches++
	return s.sc, nil
}

func TestBakeryFactoryRebuildsOnChange(t *testing.T) {
	clock := clockwork.NewFakeClockAt(keyTestNow)
	sites := &countingSites{sc: newSiteConfig(t, keyTestNow)}
	bf := NewBakeryFactory(clock, sites)
	ctx := context.Background()

	first, err := bf.Bakery(ctx)
	require.NoError(t, err)
	again, err := bf.Bakery(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 2, sites.fetches)

	sites.sc = newSiteConfig(t, keyTestNow)
	rebuilt, err := bf.Bakery(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
}
