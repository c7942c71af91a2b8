package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ts4z/wtapicks/admin"
	"github.com/ts4z/wtapicks/config"
	"github.com/ts4z/wtapicks/dbcache"
	"github.com/ts4z/wtapicks/dbnotify"
	"github.com/ts4z/wtapicks/fakes"
	"github.com/ts4z/wtapicks/leaderboard"
	"github.com/ts4z/wtapicks/middleware"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/password"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/picks"
	"github.com/ts4z/wtapicks/rankings"
	"github.com/ts4z/wtapicks/reconcile"
	"github.com/ts4z/wtapicks/results"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/ts"
	"github.com/ts4z/wtapicks/webapp"
)

// One login attempt every six seconds per address, with some slack for
// typos.
const (
	loginEvery = 6 * time.Second
	loginBurst = 10
)

// seedMemory gives an in-memory store what a fresh database gets from the
// admin tool: a cookie key and an admin to log in as.
func seedMemory(ctx context.Context, s *fakes.MemStorage, clock *ts.Clock) {
	sc := &model.SiteConfig{Name: "wtapicks", AllowedOriginDomains: []string{"localhost"}}
	kw := permission.DefaultKeyWindows
	kw.StartOffset = -time.Minute
	if _, err := permission.RotateKeys(sc, clock.Now(), kw); err != nil {
		log.Fatalf("can't make cookie key: %v", err)
	}
	if err := s.SaveSiteConfig(ctx, sc); err != nil {
		log.Fatalf("can't save site config: %v", err)
	}
	pw := uuid.NewString()
	if _, err := s.CreateUser(ctx, "admin", "admin@localhost", password.Hash(pw), true); err != nil {
		log.Fatalf("can't create admin: %v", err)
	}
	log.Printf("in-memory mode: log in as admin with password %s", pw)
}

func openStorage(ctx context.Context, clock *ts.Clock) state.Storage {
	if config.InMemory() {
		s := fakes.NewMemStorageWithClock(clock.RealClock())
		seedMemory(ctx, s, clock)
		return s
	}
	s, err := state.OpenDBStorage(ctx)
	if err != nil {
		log.Fatalf("can't configure database: %v", err)
	}
	return s
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	config.Init()

	clock := ts.NewRealClock()
	storage := openStorage(ctx, clock)
	defer storage.Close()

	siteStorage := dbcache.NewSiteConfigStorage(storage, clock)
	identities := dbcache.NewUserStorage(config.UserCacheSize(), storage)
	users := permission.NewUserStorage(identities)

	if db, ok := storage.(*state.DBStorage); ok {
		listener, err := dbnotify.NewListener(db.DB(), siteStorage, identities)
		if err != nil {
			log.Fatalf("can't set up change notifications: %v", err)
		}
		go listener.Run(ctx)
	}

	reconciler := reconcile.New(&reconcile.Config{Storage: storage, Clock: clock})
	if interval := config.ReconcileInterval(); interval > 0 {
		sched, err := reconciler.Schedule(ctx, interval, config.ReconcileRepair())
		if err != nil {
			log.Fatalf("can't schedule reconciliation: %v", err)
		}
		defer sched.Shutdown()
	}

	app, err := webapp.New(ctx, &webapp.Config{
		SiteStorage:   siteStorage,
		Identities:    identities,
		Users:         users,
		BakeryFactory: permission.NewBakeryFactory(clock, siteStorage),
		Admin:         admin.New(&admin.Config{Storage: storage, Users: users}),
		Board:         leaderboard.New(storage),
		Validator: picks.New(&picks.Config{
			Storage:              storage,
			LockPicksOnceStarted: config.LockPicksOnceStarted(),
		}),
		Recorder: results.New(&results.Config{Storage: storage, Clock: clock}),
		Importer: rankings.NewImporter(&rankings.Config{
			Storage: storage,
			Fetcher: rankings.NewFetcher(&rankings.FetcherConfig{
				URL:     config.RankingsURL(),
				Timeout: config.FetchTimeout(),
				Every:   time.Minute,
			}),
		}),
		Reconciler: reconciler,
		Limiter:    middleware.NewAddrLimiter(rate.Every(loginEvery), loginBurst, clock),
		Clock:      clock,
	})
	if err != nil {
		log.Fatalf("can't start: %v", err)
	}

	if err := app.Serve(ctx, config.ListenAddress()); err != nil {
		log.Fatalf("can't serve: %v", err)
	}
}
