// Package config handles pre-database configuration, such as the location of the database.
// This is used by both wtapicksd and wtapicksadmin.
package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ESPN's WTA rankings page.  The parser in package rankings knows its markup.
const DefaultRankingsURL = "https://www.espn.com/tennis/rankings/_/type/wta"

// Viper-based config loader
func Init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetConfigType("yaml")
	viper.SetConfigName(".wtapicks")
	viper.AddConfigPath(home)
	viper.AutomaticEnv()
	viper.BindEnv("db_url", "WTAPICKS_DB_URL")
	viper.BindEnv("listen_address", "WTAPICKS_LISTEN_ADDRESS")
	viper.BindEnv("sql_connector", "WTAPICKS_SQL_CONNECTOR")
	viper.BindEnv("secure_cookies", "WTAPICKS_SECURE_COOKIES")
	viper.BindEnv("lock_picks_once_started", "WTAPICKS_LOCK_PICKS_ONCE_STARTED")
	viper.BindEnv("rankings_url", "WTAPICKS_RANKINGS_URL")
	viper.BindEnv("fetch_timeout", "WTAPICKS_FETCH_TIMEOUT")
	viper.BindEnv("reconcile_interval", "WTAPICKS_RECONCILE_INTERVAL")
	viper.BindEnv("reconcile_repair", "WTAPICKS_RECONCILE_REPAIR")
	viper.BindEnv("user_cache_size", "WTAPICKS_USER_CACHE_SIZE")
	SetDefaults()
	err = viper.ReadInConfig() // ignore error if config file missing
	if err != nil {
		log.Printf("viper can't read config file: %v", err)
	}
	log.Printf("Using listen address: %s", viper.GetString("listen_address"))
	log.Printf("Using SQL connector: %s", viper.GetString("sql_connector"))
}

// SetDefaults is split out so tests get the same defaults without a config
// file.
func SetDefaults() {
	viper.SetDefault("db_url", "")
	viper.SetDefault("listen_address", ":8080")
	viper.SetDefault("sql_connector", "pgx")
	viper.SetDefault("secure_cookies", true)
	viper.SetDefault("lock_picks_once_started", false)
	viper.SetDefault("rankings_url", DefaultRankingsURL)
	viper.SetDefault("fetch_timeout", 15*time.Second)
	viper.SetDefault("reconcile_interval", 0)
	viper.SetDefault("reconcile_repair", false)
	viper.SetDefault("user_cache_size", 256)
}

func DBURL() string {
	return viper.GetString("db_url")
}

func ListenAddress() string {
	return viper.GetString("listen_address")
}

func SecureCookies() bool {
	return viper.GetBool("secure_cookies")
}

func SQLConnector() string {
	return viper.GetString("sql_connector")
}

// InMemory is the "memory" connector: no database, nothing survives a
// restart.  It is for trying things out.
func InMemory() bool {
	return SQLConnector() == "memory"
}

// LockPicksOnceStarted makes pick submission refuse ACTIVE tournaments, not
// just COMPLETED ones.
func LockPicksOnceStarted() bool {
	return viper.GetBool("lock_picks_once_started")
}

func RankingsURL() string {
	return viper.GetString("rankings_url")
}

func FetchTimeout() time.Duration {
	return viper.GetDuration("fetch_timeout")
}

// ReconcileInterval of zero turns off scheduled reconciliation.
func ReconcileInterval() time.Duration {
	return viper.GetDuration("reconcile_interval")
}

func ReconcileRepair() bool {
	return viper.GetBool("reconcile_repair")
}

func UserCacheSize() int {
	return viper.GetInt("user_cache_size")
}
