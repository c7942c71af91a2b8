package permission

import (
	"context"
	"time"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/state"
)

type UserStorage struct {
	next state.UserStorage
}

var _ state.UserStorage = &UserStorage{}

func NewUserStorage(nx state.UserStorage) *UserStorage {
	return &UserStorage{
		next: nx,
	}
}

func (s *UserStorage) FetchUsers(ctx context.Context) ([]*model.UserSummary, error) {
	return requireUserAdminReturning(ctx, func() ([]*model.UserSummary, error) {
		return s.next.FetchUsers(ctx)
	})
}

// CreateUser is open to anyone, since it is how registration works.
// Only admins may create admins.
func (s *UserStorage) CreateUser(ctx context.Context, nick string, emailAddress string, passwordHash string, isAdmin bool) (int64, error) {
	if isAdmin && !IsAdmin(ctx) {
		return -1, he.Unauthorizedf("only admins can create admins")
	}
	return s.next.CreateUser(ctx, nick, emailAddress, passwordHash, isAdmin)
}

// FetchUserByUserID is not checked; it is the hook that validates cookies.
func (s *UserStorage) FetchUserByUserID(ctx context.Context, id int64) (*model.UserIdentity, error) {
	return s.next.FetchUserByUserID(ctx, id)
}

// FetchUserRow is not checked; it is the hook that enables user login.
func (s *UserStorage) FetchUserRow(ctx context.Context, nick string) (*model.UserRow, error) {
	return s.next.FetchUserRow(ctx, nick)
}

func (s *UserStorage) PatchUser(ctx context.Context, id int64, patch *model.UserPatch) (*model.UserIdentity, error) {
	return requireUserAdminReturning(ctx, func() (*model.UserIdentity, error) {
		// An admin may not lock themselves out.
		if c := CallerFromContext(ctx); c.UserID == id && patch.IsAdmin != nil && !*patch.IsAdmin {
			return nil, he.InvalidInputf("cannot revoke own admin status")
		}
		return s.next.PatchUser(ctx, id, patch)
	})
}

func (s *UserStorage) SetUserTotalPoints(ctx context.Context, id int64, points int) error {
	return requireUserAdmin(ctx, func() error {
		return s.next.SetUserTotalPoints(ctx, id, points)
	})
}

func (s *UserStorage) DeleteUserByID(ctx context.Context, id int64) error {
	return requireUserAdmin(ctx, func() error {
		if CallerFromContext(ctx).UserID == id {
			return he.InvalidInputf("cannot delete yourself")
		}
		return s.next.DeleteUserByID(ctx, id)
	})
}

func (s *UserStorage) DeleteUserByNick(ctx context.Context, nick string) error {
	return requireUserAdmin(ctx, func() error {
		return s.next.DeleteUserByNick(ctx, nick)
	})
}

func (s *UserStorage) AddPassword(ctx context.Context, userID int64, passwordHash string) error {
	return requireUserAdmin(ctx, func() error {
		return s.next.AddPassword(ctx, userID, passwordHash)
	})
}

func (s *UserStorage) RemoveExpiredPasswords(ctx context.Context, before time.Time) error {
	return s.next.RemoveExpiredPasswords(ctx, before)
}

func (s *UserStorage) ReplacePassword(ctx context.Context, userID int64, newPasswordHash string, oldPasswordsExpire time.Time) error {
	return requireAdminOrUserID(ctx, userID, func() error {
		return s.next.ReplacePassword(ctx, userID, newPasswordHash, oldPasswordsExpire)
	})
}
