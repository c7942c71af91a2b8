package dbcache

import (
	"context"
	"sync"
	"time"

	"github.com/ts4z/wtapicks/dbnotify"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/varz"
)

// The admin tool rotates keys behind our back.  A dbnotify listener drops
// the cache when that happens; the TTL bounds how long it takes to show up
// when nothing is listening.

const (
	ttl = time.Duration(5) * time.Minute
)

type Nower interface {
	Now() time.Time
}

type SiteStorage struct {
	clock Nower
	next  state.SiteStorage

	mu           sync.Mutex
	cachedConfig *model.SiteConfig
	fetchedAt    time.Time
}

var _ state.SiteStorage = (*SiteStorage)(nil)

var (
	siteStorageCacheHits   = varz.NewCounter("site_storage_cache_hits_total", "Site config reads served from cache.")
	siteStorageCacheMisses = varz.NewCounter("site_storage_cache_misses_total", "Site config reads that went to the database.")
)

func NewSiteConfigStorage(next state.SiteStorage, clock Nower) *SiteStorage {
	return &SiteStorage{
		next:  next,
		clock: clock,
	}
}

// FetchSiteConfig returns the same pointer until the cache expires, so
// callers can tell when it changed.  Don't modify it.
func (s *SiteStorage) FetchSiteConfig(ctx context.Context) (*model.SiteConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedConfig != nil && s.fetchedAt.Add(ttl).After(s.clock.Now()) {
		siteStorageCacheHits.Inc()
		return s.cachedConfig, nil
	}
	siteStorageCacheMisses.Inc()
	config, err := s.next.FetchSiteConfig(ctx)
	if err != nil {
		return nil, err
	}
	s.fetchedAt = s.clock.Now()
	s.cachedConfig = config
	return config, nil
}

func (s *SiteStorage) SaveSiteConfig(ctx context.Context, config *model.SiteConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.next.SaveSiteConfig(ctx, config); err != nil {
		return err
	}
	s.cachedConfig = nil
	return nil
}

var _ dbnotify.Consumer = (*SiteStorage)(nil)

func (s *SiteStorage) TableName() string { return "site_config" }

// Consume drops the cached config; the next fetch rereads it.
func (s *SiteStorage) Consume(ctx context.Context, event *dbnotify.NotificationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedConfig = nil
}
