package password

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
)

func TestCheckStrength(t *testing.T) {
	assert.NoError(t, CheckStrength("correct horse"))
	err := CheckStrength("short")
	assert.True(t, he.Is(err, he.KindInvalidInput))
}

func TestChecker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	row := &model.UserRow{
		UserIdentity: model.UserIdentity{ID: 4, Nick: "alice"},
		PasswordHashes: []model.PasswordRow{
			{Hash: Hash("current password")},
			{Hash: Hash("expiring password"), Expires: &tomorrow},
			{Hash: Hash("expired password"), Expires: &yesterday},
		},
	}
	ch, err := NewChecker(row, now)
	require.NoError(t, err)

	for _, pw := range []string{"current password", "expiring password"} {
		u, err := ch.Validate(pw)
		require.NoError(t, err, pw)
		assert.Equal(t, "alice", u.Nick)
	}
	for _, pw := range []string{"expired password", "wrong password", ""} {
		_, err := ch.Validate(pw)
		assert.True(t, he.Is(err, he.KindUnauthorized), pw)
	}
}

func TestCheckerRejectsGarbageHash(t *testing.T) {
	row := &model.UserRow{PasswordHashes: []model.PasswordRow{{Hash: "!!not base64!!"}}}
	_, err := NewChecker(row, time.Now())
	assert.Error(t, err)
}
