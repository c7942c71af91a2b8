package webapp

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/ts4z/wtapicks/admin"
	"github.com/ts4z/wtapicks/app/handlers"
	"github.com/ts4z/wtapicks/dep"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/leaderboard"
	"github.com/ts4z/wtapicks/middleware"
	"github.com/ts4z/wtapicks/middleware/c2ctx"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/picks"
	"github.com/ts4z/wtapicks/rankings"
	"github.com/ts4z/wtapicks/reconcile"
	"github.com/ts4z/wtapicks/results"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/urlpath"
	"github.com/ts4z/wtapicks/varz"
)

type nower interface {
	Now() time.Time
}

// Config holds the configuration for creating a new App.
type Config struct {
	SiteStorage state.SiteStorage
	// Identities resolves session cookies.  It may be a cache.
	Identities state.UserStorage
	// Users is the permission-checked user storage.
	Users         *permission.UserStorage
	BakeryFactory *permission.BakeryFactory
	Admin         *admin.Service
	Board         *leaderboard.Board
	Validator     *picks.Validator
	Recorder      *results.Recorder
	Importer      *rankings.Importer
	Reconciler    *reconcile.Reconciler
	// Limiter guards login and registration.
	Limiter *middleware.AddrLimiter
	Clock   nower
}

// App is the JSON API.
type App struct {
	// dependencies
	siteStorage   state.SiteStorage
	identities    state.UserStorage
	users         *permission.UserStorage
	bakeryFactory *permission.BakeryFactory
	admin         *admin.Service
	board         *leaderboard.Board
	validator     *picks.Validator
	recorder      *results.Recorder
	importer      *rankings.Importer
	reconciler    *reconcile.Reconciler
	limiter       *middleware.AddrLimiter
	clock         nower

	// internals
	mux     *http.ServeMux
	handler http.Handler
}

func allowedOrigins(sc *model.SiteConfig) []string {
	r := []string{}
	for _, origin := range sc.AllowedOriginDomains {
		r = append(r, fmt.Sprintf("https://%s", origin), fmt.Sprintf("http://%s", origin))
	}
	for _, origin := range r {
		log.Printf("CORS allowing origin %s", origin)
	}
	return r
}

// New creates a new App.  The site config must already have a usable cookie
// key.
func New(ctx context.Context, config *Config) (*App, error) {
	// Prime these so we can check for errors.
	sc, err := config.SiteStorage.FetchSiteConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get SiteConfig: %w", err)
	}
	if _, err = config.BakeryFactory.Bakery(ctx); err != nil {
		return nil, fmt.Errorf("can't create bakery: %w", err)
	}

	app := &App{
		siteStorage:   dep.Required(config.SiteStorage),
		identities:    dep.Required(config.Identities),
		users:         dep.Required(config.Users),
		bakeryFactory: dep.Required(config.BakeryFactory),
		admin:         dep.Required(config.Admin),
		board:         dep.Required(config.Board),
		validator:     dep.Required(config.Validator),
		recorder:      dep.Required(config.Recorder),
		importer:      dep.Required(config.Importer),
		reconciler:    dep.Required(config.Reconciler),
		limiter:       dep.Required(config.Limiter),
		clock:         dep.Required(config.Clock),
		mux:           http.NewServeMux(),
	}

	// Stack the handlers together.
	c2c := c2ctx.Handler(&c2ctx.Config{
		BakeryFactory: app.bakeryFactory,
		UserStorage:   app.identities,
		Next:          app.mux,
	})
	csp := http.NewCrossOriginProtection()
	logger := middleware.NewRequestLogger(csp.Handler(c2c), app.clock)
	corsMW := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(sc),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowCredentials: true,
	})
	app.handler = corsMW.Handler(logger)

	app.InstallHandlers()

	return app, nil
}

// Handler returns the configured HTTP handler.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) handleFunc(pattern string, handler func(context.Context, http.ResponseWriter, *http.Request)) {
	app.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		handler(ctx, w, r)
	})
}

func (app *App) handleFuncTakingID(pattern string, handler func(context.Context, int64, http.ResponseWriter, *http.Request)) {
	app.handleFunc(pattern, func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		id, err := urlpath.IDPathValue(r)
		if err != nil {
			he.SendErrorToHTTPClient(w, "parse url", err)
			return
		}
		handler(ctx, id, w, r)
	})
}

func (app *App) requiringAdminHandleFunc(pattern string, handler func(context.Context, http.ResponseWriter, *http.Request)) {
	app.handleFunc(pattern, func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		if err := permission.CallerFromContext(ctx).RequireAdmin(); err != nil {
			he.SendErrorToHTTPClient(w, "authorize", err)
			return
		}
		handler(ctx, w, r)
	})
}

func (app *App) requiringAdminTakingIDHandleFunc(pattern string, handler func(context.Context, int64, http.ResponseWriter, *http.Request)) {
	app.requiringAdminHandleFunc(pattern, func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		id, err := urlpath.IDPathValue(r)
		if err != nil {
			he.SendErrorToHTTPClient(w, "parse url", err)
			return
		}
		handler(ctx, id, w, r)
	})
}

func (app *App) InstallHandlers() {
	app.mux.HandleFunc("GET /robots.txt", handlers.HandleRobotsTXT)
	app.mux.Handle("GET /metrics", varz.Handler())

	// session
	app.handleFunc("POST /login", app.limited(app.handleLogin))
	app.handleFunc("POST /logout", app.handleLogout)
	app.handleFunc("POST /register", app.limited(app.handleRegister))

	// everyone
	app.handleFunc("GET /api/dashboard", app.handleDashboard)
	app.handleFunc("GET /api/tournaments", app.handleListTournaments)
	app.handleFunc("GET /api/players", app.handleListPlayers)
	app.handleFunc("GET /api/leaderboard", app.handleLeaderboard)
	app.handleFuncTakingID("GET /api/leaderboard/{id}", app.handleUserDetail)
	app.handleFunc("POST /api/picks", app.handleSubmitPicks)

	// admin
	app.requiringAdminHandleFunc("GET /api/admin/tournaments", app.handleListTournaments)
	app.requiringAdminHandleFunc("POST /api/admin/tournaments", app.handleCreateTournament)
	app.requiringAdminTakingIDHandleFunc("PATCH /api/admin/tournaments/{id}", app.handlePatchTournament)
	app.requiringAdminTakingIDHandleFunc("DELETE /api/admin/tournaments/{id}", app.handleDeleteTournament)

	app.requiringAdminHandleFunc("GET /api/admin/players", app.handleListPlayers)
	app.requiringAdminHandleFunc("POST /api/admin/players", app.handleCreatePlayer)
	app.requiringAdminHandleFunc("POST /api/admin/players/bulk", app.handleBulkCreatePlayers)
	app.requiringAdminTakingIDHandleFunc("PATCH /api/admin/players/{id}", app.handlePatchPlayer)
	app.requiringAdminTakingIDHandleFunc("DELETE /api/admin/players/{id}", app.handleDeletePlayer)
	app.requiringAdminHandleFunc("POST /api/admin/rankings/paste", app.handlePasteRankings)
	app.requiringAdminHandleFunc("POST /api/admin/sync", app.handleSync)

	app.requiringAdminHandleFunc("GET /api/admin/users", app.handleListUsers)
	app.requiringAdminTakingIDHandleFunc("PATCH /api/admin/users/{id}", app.handlePatchUser)
	app.requiringAdminTakingIDHandleFunc("DELETE /api/admin/users/{id}", app.handleDeleteUser)

	app.requiringAdminHandleFunc("GET /api/admin/picks", app.handleTournamentPicks)

	app.requiringAdminHandleFunc("GET /api/admin/results", app.handleListResults)
	app.requiringAdminHandleFunc("POST /api/admin/results", app.handleRecordResult)
	app.requiringAdminTakingIDHandleFunc("PATCH /api/admin/results/{id}", app.handleEditResult)
	app.requiringAdminTakingIDHandleFunc("DELETE /api/admin/results/{id}", app.handleDeleteResult)
	app.requiringAdminTakingIDHandleFunc("GET /api/admin/results/{id}/history", app.handleResultHistory)

	app.requiringAdminHandleFunc("GET /api/admin/reconcile", app.handleReconcileCheck)
	app.requiringAdminHandleFunc("POST /api/admin/reconcile", app.handleReconcileRepair)
}

// Wrapper to just return the input context.
func contextualizer(ctx context.Context) func(net.Listener) context.Context {
	return func(_ net.Listener) context.Context {
		return ctx
	}
}

// Serve starts the HTTP server on the given listen address.
func (app *App) Serve(ctx context.Context, listenAddress string) error {
	wg := sync.WaitGroup{}

	type result struct {
		name string
		err  error
	}

	ch := make(chan *result)

	server := &http.Server{
		Addr:         listenAddress,
		Handler:      app.handler,
		BaseContext:  contextualizer(ctx),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 1 * time.Minute,
		IdleTimeout:  5 * time.Minute,
	}

	wg.Add(1)
	go func() {
		ch <- &result{"http", server.ListenAndServe()}
		wg.Done()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	go func() {
		wg.Wait()
		close(ch)
	}()

	errors := []error{}
	for res := range ch {
		if res.err != nil && res.err != http.ErrServerClosed {
			log.Printf("server %s exited: %v", res.name, res.err)
			errors = append(errors, res.err)
		}
	}

	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("servers exited: %v", errors)
}
