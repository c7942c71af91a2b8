package model

import (
	"time"
)

// UserIdentity is what the rest of the app knows about a logged-in user.
type UserIdentity struct {
	ID                    int64  `json:"id"`
	Nick                  string `json:"nick"`
	Email                 string `json:"email"`
	IsAdmin               bool   `json:"isAdmin"`
	HiddenFromLeaderboard bool   `json:"hiddenFromLeaderboard"`
	StartingPoints        int    `json:"startingPoints"`
	// TotalPoints is a cache of the sum of PointsEarned over the user's picks.
	TotalPoints int       `json:"totalPoints"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u *UserIdentity) Clone() *UserIdentity {
	cpy := *u
	return &cpy
}

// UserRow is a UserIdentity plus the password hashes, which only login needs.
type UserRow struct {
	UserIdentity
	PasswordHashes []PasswordRow
}

type PasswordRow struct {
	Hash    string
	Expires *time.Time
}

// UserSummary is the admin view of a user.
type UserSummary struct {
	UserIdentity
	PickCount int `json:"pickCount"`
}

// UserPatch carries the admin-editable fields of a user.  Nil means unchanged.
type UserPatch struct {
	IsAdmin               *bool `json:"isAdmin,omitempty"`
	HiddenFromLeaderboard *bool `json:"hiddenFromLeaderboard,omitempty"`
	StartingPoints        *int  `json:"startingPoints,omitempty"`
}

type CookieKeyValidity struct {
	MintFrom   time.Time
	MintUntil  time.Time
	HonorUntil time.Time
}

type CookieKeyPair struct {
	Validity   CookieKeyValidity
	HashKey64  string
	BlockKey64 string
}

// SiteConfig is configuration that lives in the database, not in viper.
type SiteConfig struct {
	Name                 string
	CookieDomain         string
	CookieKeys           []CookieKeyPair
	AllowedOriginDomains []string
}

// AuthCookieData is what we put in the session cookie.
type AuthCookieData struct {
	UserID int64
}
