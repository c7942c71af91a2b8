package permission

/*
Package permission knows who you are and what you're allowed to do.

The session middleware decides who the caller is once per request and puts
the identity in the context.  Handlers turn that into a Caller and hand it to
the core packages, which check it before they mutate anything.
*/

import (
	"context"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
)

type contextKeyType struct{}

var contextKeyTypeValue = contextKeyType{}

func UserIdentityInContext(ctx context.Context, a *model.UserIdentity) context.Context {
	return context.WithValue(ctx, contextKeyTypeValue, a)
}

func UserFromContext(ctx context.Context) *model.UserIdentity {
	v := ctx.Value(contextKeyTypeValue)
	if a, ok := v.(*model.UserIdentity); ok {
		return a
	} else {
		return nil
	}
}

func IsAdmin(ctx context.Context) bool {
	return CallerFromContext(ctx).IsAdmin
}

// Caller is who is asking.  The zero Caller is anonymous.
type Caller struct {
	UserID  int64
	Nick    string
	IsAdmin bool
}

// System is the caller for the admin tool and scheduled jobs, which have
// database access and so are trusted.
var System = Caller{UserID: -1, Nick: "system", IsAdmin: true}

func CallerOf(u *model.UserIdentity) Caller {
	if u == nil {
		return Caller{}
	}
	return Caller{UserID: u.ID, Nick: u.Nick, IsAdmin: u.IsAdmin}
}

func CallerFromContext(ctx context.Context) Caller {
	return CallerOf(UserFromContext(ctx))
}

// CallerInContext puts c where the permission decorators look for it.
func CallerInContext(ctx context.Context, c Caller) context.Context {
	if !c.LoggedIn() {
		return UserIdentityInContext(ctx, nil)
	}
	return UserIdentityInContext(ctx, &model.UserIdentity{ID: c.UserID, Nick: c.Nick, IsAdmin: c.IsAdmin})
}

// SystemContext is a context carrying the System caller, for code that goes
// through the permission decorators outside of a request.
func SystemContext(ctx context.Context) context.Context {
	return CallerInContext(ctx, System)
}

func (c Caller) LoggedIn() bool {
	return c.UserID != 0
}

func (c Caller) String() string {
	if !c.LoggedIn() {
		return "anonymous"
	}
	return c.Nick
}

// RequireUser fails for anonymous callers.
func (c Caller) RequireUser() error {
	if !c.LoggedIn() {
		return he.Unauthorizedf("login required")
	}
	return nil
}

func (c Caller) RequireAdmin() error {
	if err := c.RequireUser(); err != nil {
		return err
	}
	if !c.IsAdmin {
		return he.Unauthorizedf("permission denied: %s is not an admin", c.Nick)
	}
	return nil
}
