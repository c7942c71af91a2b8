package dbcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ts4z/wtapicks/dbnotify"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/varz"
)

var (
	userStorageCacheHits   = varz.NewCounter("user_storage_cache_hits_total", "User identity reads served from cache.")
	userStorageCacheMisses = varz.NewCounter("user_storage_cache_misses_total", "User identity reads that went to the database.")
)

// UserStorage caches identities for the session middleware.  TotalPoints in
// a cached identity goes stale as results come in, so the cache is only fit
// for deciding who someone is and whether they are an admin.  Anything that
// shows points reads storage directly.
type UserStorage struct {
	cache *lru.Cache[int64, *model.UserIdentity]
	next  state.UserStorage
}

var (
	_ state.UserStorage = &UserStorage{}
	_ dbnotify.Consumer = &UserStorage{}
)

func NewUserStorage(size int, nx state.UserStorage) *UserStorage {
	cache, err := lru.New[int64, *model.UserIdentity](size)
	if err != nil {
		panic(err)
	}
	return &UserStorage{
		cache: cache,
		next:  nx,
	}
}

func (s *UserStorage) InvalidateCache(userID int64) {
	s.cache.Remove(userID)
}

func (s *UserStorage) TableName() string { return "users" }

func (s *UserStorage) Consume(ctx context.Context, event *dbnotify.NotificationEvent) {
	s.InvalidateCache(event.OnID)
}

func (s *UserStorage) FetchUsers(ctx context.Context) ([]*model.UserSummary, error) {
	return s.next.FetchUsers(ctx)
}

func (s *UserStorage) CreateUser(ctx context.Context, nick string, emailAddress string, passwordHash string, isAdmin bool) (int64, error) {
	return s.next.CreateUser(ctx, nick, emailAddress, passwordHash, isAdmin)
}

func (s *UserStorage) FetchUserByUserID(ctx context.Context, id int64) (*model.UserIdentity, error) {
	if ui, ok := s.cache.Get(id); ok {
		userStorageCacheHits.Inc()
		return ui.Clone(), nil
	}

	userStorageCacheMisses.Inc()

	ui, err := s.next.FetchUserByUserID(ctx, id)
	if err == nil {
		s.cache.Add(id, ui.Clone())
	}

	return ui, err
}

func (s *UserStorage) FetchUserRow(ctx context.Context, nick string) (*model.UserRow, error) {
	return s.next.FetchUserRow(ctx, nick)
}

func (s *UserStorage) PatchUser(ctx context.Context, id int64, patch *model.UserPatch) (*model.UserIdentity, error) {
	u, err := s.next.PatchUser(ctx, id, patch)
	if err == nil {
		s.cache.Add(u.ID, u.Clone())
	}
	return u, err
}

func (s *UserStorage) SetUserTotalPoints(ctx context.Context, id int64, points int) error {
	return s.next.SetUserTotalPoints(ctx, id, points)
}

func (s *UserStorage) DeleteUserByID(ctx context.Context, id int64) error {
	err := s.next.DeleteUserByID(ctx, id)
	if err == nil {
		s.InvalidateCache(id)
	}
	return err
}

// DeleteUserByNick doesn't know the ID, so it empties the cache.
func (s *UserStorage) DeleteUserByNick(ctx context.Context, nick string) error {
	err := s.next.DeleteUserByNick(ctx, nick)
	if err == nil {
		s.cache.Purge()
	}
	return err
}

func (s *UserStorage) AddPassword(ctx context.Context, userID int64, passwordHash string) error {
	return s.next.AddPassword(ctx, userID, passwordHash)
}

func (s *UserStorage) RemoveExpiredPasswords(ctx context.Context, before time.Time) error {
	return s.next.RemoveExpiredPasswords(ctx, before)
}

func (s *UserStorage) ReplacePassword(ctx context.Context, userID int64, newPasswordHash string, oldPasswordsExpire time.Time) error {
	return s.next.ReplacePassword(ctx, userID, newPasswordHash, oldPasswordsExpire)
}
