package permission

import (
	"context"

	"github.com/ts4z/wtapicks/he"
)

func requireAdminOrUserID(ctx context.Context, uid int64, fn func() error) error {
	c := CallerFromContext(ctx)
	if err := c.RequireUser(); err != nil {
		return err
	} else if !c.IsAdmin && c.UserID != uid {
		return he.Unauthorizedf("permission denied")
	} else {
		return fn()
	}
}

func requireUserAdminReturning[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := CallerFromContext(ctx).RequireAdmin(); err != nil {
		return zero, err
	}
	return fn()
}

func requireUserAdmin(ctx context.Context, fn func() error) error {
	_, err := requireUserAdminReturning(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
