package dbcache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/wtapicks/dbnotify"
	"github.com/ts4z/wtapicks/fakes"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
)

func ptr[T any](v T) *T {
	return &v
}

func TestUserStorageCaches(t *testing.T) {
	ctx := context.Background()
	next := fakes.NewMemStorage()
	alice := fakes.AddUser(t, next, "alice", false)
	s := NewUserStorage(10, next)

	u, err := s.FetchUserByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	// Changed behind the cache's back.
	_, err = next.PatchUser(ctx, alice.ID, &model.UserPatch{IsAdmin: ptr(true)})
	require.NoError(t, err)
	u, err = s.FetchUserByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, u.IsAdmin, "should still be cached")

	// Callers can't poison the cache.
	u.Nick = "mallory"
	u, err = s.FetchUserByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Nick)

	s.Consume(ctx, &dbnotify.NotificationEvent{Table: "users", OnID: alice.ID, Op: "update"})
	u, err = s.FetchUserByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestUserStorageWritesThrough(t *testing.T) {
	ctx := context.Background()
	next := fakes.NewMemStorage()
	alice := fakes.AddUser(t, next, "alice", false)
	bob := fakes.AddUser(t, next, "bob", false)
	s := NewUserStorage(10, next)

	_, err := s.FetchUserByUserID(ctx, alice.ID)
	require.NoError(t, err)
	_, err = s.PatchUser(ctx, alice.ID, &model.UserPatch{HiddenFromLeaderboard: ptr(true)})
	require.NoError(t, err)
	u, err := s.FetchUserByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, u.HiddenFromLeaderboard)

	require.NoError(t, s.DeleteUserByID(ctx, alice.ID))
	_, err = s.FetchUserByUserID(ctx, alice.ID)
	assert.True(t, he.Is(err, he.KindNotFound))

	_, err = s.FetchUserByUserID(ctx, bob.ID)
	require.NoError(t, err)
	require.NoError(t, s.DeleteUserByNick(ctx, "bob"))
	_, err = s.FetchUserByUserID(ctx, bob.ID)
	assert.True(t, he.Is(err, he.KindNotFound))
}

func TestSiteStorage(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	next := fakes.NewMemStorage()
	require.NoError(t, next.SaveSiteConfig(ctx, &model.SiteConfig{Name: "one"}))
	s := NewSiteConfigStorage(next, clock)

	first, err := s.FetchSiteConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", first.Name)

	require.NoError(t, next.SaveSiteConfig(ctx, &model.SiteConfig{Name: "two"}))
	again, err := s.FetchSiteConfig(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	clock.Advance(ttl + time.Second)
	expired, err := s.FetchSiteConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", expired.Name)

	require.NoError(t, next.SaveSiteConfig(ctx, &model.SiteConfig{Name: "three"}))
	s.Consume(ctx, &dbnotify.NotificationEvent{Table: "site_config", OnID: 1, Op: "update"})
	notified, err := s.FetchSiteConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "three", notified.Name)

	require.NoError(t, s.SaveSiteConfig(ctx, &model.SiteConfig{Name: "four"}))
	saved, err := s.FetchSiteConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "four", saved.Name)
}

func TestSiteStorageMissing(t *testing.T) {
	s := NewSiteConfigStorage(fakes.NewMemStorage(), clockwork.NewFakeClock())
	_, err := s.FetchSiteConfig(context.Background())
	assert.True(t, he.Is(err, he.KindNotFound))
}
