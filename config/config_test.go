package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func resetViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
}

func TestDefaults(t *testing.T) {
	resetViper(t)

	assert.Equal(t, ":8080", ListenAddress())
	assert.Equal(t, "pgx", SQLConnector())
	assert.False(t, InMemory())
	assert.True(t, SecureCookies())
	assert.False(t, LockPicksOnceStarted())
	assert.Equal(t, DefaultRankingsURL, RankingsURL())
	assert.Equal(t, 15*time.Second, FetchTimeout())
	assert.Equal(t, time.Duration(0), ReconcileInterval())
	assert.Equal(t, 256, UserCacheSize())
}

func TestEnvironmentOverrides(t *testing.T) {
	resetViper(t)
	t.Setenv("WTAPICKS_SQL_CONNECTOR", "memory")
	t.Setenv("WTAPICKS_RECONCILE_INTERVAL", "90s")
	t.Setenv("WTAPICKS_LOCK_PICKS_ONCE_STARTED", "true")
	viper.BindEnv("sql_connector", "WTAPICKS_SQL_CONNECTOR")
	viper.BindEnv("reconcile_interval", "WTAPICKS_RECONCILE_INTERVAL")
	viper.BindEnv("lock_picks_once_started", "WTAPICKS_LOCK_PICKS_ONCE_STARTED")

	assert.True(t, InMemory())
	assert.Equal(t, 90*time.Second, ReconcileInterval())
	assert.True(t, LockPicksOnceStarted())
}
