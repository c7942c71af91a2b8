// Package fakes has an in-memory state.Storage for tests and for running
// the daemon without a database.
package fakes

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/scoring"
	"github.com/ts4z/wtapicks/state"
)

type memUser struct {
	model.UserIdentity
	passwords []model.PasswordRow
}

type memData struct {
	nextID      int64
	tournaments map[int64]*model.Tournament
	players     map[int64]*model.Player
	picks       map[int64]*model.Pick
	matches     map[int64]*model.Match
	users       map[int64]*memUser
	events      []*model.AwardEvent
	site        *model.SiteConfig
}

func newMemData() *memData {
	return &memData{
		tournaments: map[int64]*model.Tournament{},
		players:     map[int64]*model.Player{},
		picks:       map[int64]*model.Pick{},
		matches:     map[int64]*model.Match{},
		users:       map[int64]*memUser{},
	}
}

func cloneMap[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		cpy := *v
		out[k] = &cpy
	}
	return out
}

// clone is a deep copy, used as the rollback point for a transaction.
func (d *memData) clone() *memData {
	out := &memData{
		nextID:      d.nextID,
		tournaments: cloneMap(d.tournaments),
		players:     cloneMap(d.players),
		picks:       cloneMap(d.picks),
		matches:     cloneMap(d.matches),
		users:       cloneMap(d.users),
		events:      make([]*model.AwardEvent, 0, len(d.events)),
	}
	for _, u := range out.users {
		u.passwords = slices.Clone(u.passwords)
	}
	for _, ev := range d.events {
		cpy := *ev
		out.events = append(out.events, &cpy)
	}
	if d.site != nil {
		site := *d.site
		site.CookieKeys = slices.Clone(d.site.CookieKeys)
		site.AllowedOriginDomains = slices.Clone(d.site.AllowedOriginDomains)
		out.site = &site
	}
	return out
}

func (d *memData) newID() int64 {
	d.nextID++
	return d.nextID
}

// MemStorage keeps everything in maps behind one mutex.  Transactions hold
// the mutex for their whole run and restore a snapshot on error, so they are
// serializable.
type MemStorage struct {
	mu     sync.Mutex
	data   *memData
	clock  clockwork.Clock
	faults map[string]error
	memQueries
}

var _ state.Storage = &MemStorage{}

func NewMemStorage() *MemStorage {
	return NewMemStorageWithClock(clockwork.NewRealClock())
}

func NewMemStorageWithClock(clock clockwork.Clock) *MemStorage {
	s := &MemStorage{
		data:   newMemData(),
		clock:  clock,
		faults: map[string]error{},
	}
	s.memQueries = memQueries{s: s}
	return s
}

func (s *MemStorage) Close() {}

func (s *MemStorage) InTx(ctx context.Context, fn func(ctx context.Context, q state.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &memQueries{s: s, inTx: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// FailNext makes the next call to the named method fail with err.  Tests
// use it to check that a failed transaction leaves nothing behind.
func (s *MemStorage) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

// memQueries implements state.Queries over its MemStorage.  Outside a
// transaction each call takes the lock itself.
type memQueries struct {
	s    *MemStorage
	inTx bool
}

func (q *memQueries) lock() func() {
	if q.inTx {
		return func() {}
	}
	q.s.mu.Lock()
	return q.s.mu.Unlock
}

func (q *memQueries) d() *memData {
	return q.s.data
}

func (q *memQueries) fault(method string) error {
	if err, ok := q.s.faults[method]; ok {
		delete(q.s.faults, method)
		return err
	}
	return nil
}

// Tournaments.

func (q *memQueries) FetchTournaments(ctx context.Context) ([]*model.Tournament, error) {
	defer q.lock()()
	out := []*model.Tournament{}
	for _, t := range q.d().tournaments {
		cpy := *t
		out = append(out, &cpy)
	}
	slices.SortFunc(out, func(a, b *model.Tournament) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (q *memQueries) FetchTournament(ctx context.Context, id int64) (*model.Tournament, error) {
	defer q.lock()()
	t, ok := q.d().tournaments[id]
	if !ok {
		return nil, he.NotFoundf("tournament %d: not found", id)
	}
	cpy := *t
	return &cpy, nil
}

func (q *memQueries) FindTournament(ctx context.Context, name string, startDate time.Time) (*model.Tournament, error) {
	defer q.lock()()
	for _, t := range q.d().tournaments {
		if t.Name == name && sameDay(t.StartDate, startDate) {
			cpy := *t
			return &cpy, nil
		}
	}
	return nil, he.NotFoundf("tournament %q starting %s: not found", name, startDate.Format(time.DateOnly))
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func (q *memQueries) CreateTournament(ctx context.Context, t *model.Tournament) (int64, error) {
	defer q.lock()()
	for _, other := range q.d().tournaments {
		if other.Name == t.Name && sameDay(other.StartDate, t.StartDate) {
			return -1, he.InvalidInputf("create tournament %q: already exists", t.Name)
		}
	}
	cpy := *t
	cpy.ID = q.d().newID()
	q.d().tournaments[cpy.ID] = &cpy
	t.ID = cpy.ID
	return cpy.ID, nil
}

func (q *memQueries) SetTournamentStatus(ctx context.Context, id int64, status model.Status) (*model.Tournament, error) {
	defer q.lock()()
	t, ok := q.d().tournaments[id]
	if !ok {
		return nil, he.NotFoundf("set status of tournament %d: not found", id)
	}
	t.Status = status
	cpy := *t
	return &cpy, nil
}

// dropPicks removes the picks drop selects and takes their points off their
// owners.
func (d *memData) dropPicks(drop func(*model.Pick) bool) {
	for id, k := range d.picks {
		if !drop(k) {
			continue
		}
		if u, ok := d.users[k.UserID]; ok {
			u.TotalPoints -= k.PointsEarned
		}
		delete(d.picks, id)
	}
}

func (q *memQueries) DeleteTournament(ctx context.Context, id int64) error {
	defer q.lock()()
	d := q.d()
	if _, ok := d.tournaments[id]; !ok {
		return he.NotFoundf("tournaments %d: not found", id)
	}
	d.dropPicks(func(k *model.Pick) bool { return k.TournamentID == id })
	maps.DeleteFunc(d.matches, func(_ int64, m *model.Match) bool { return m.TournamentID == id })
	delete(d.tournaments, id)
	return nil
}

// Players.

func sortPlayers(ps []*model.Player) {
	slices.SortFunc(ps, func(a, b *model.Player) int {
		if c := cmp.Compare(a.Ranking, b.Ranking); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

func (q *memQueries) FetchPlayers(ctx context.Context) ([]*model.Player, error) {
	defer q.lock()()
	out := []*model.Player{}
	for _, p := range q.d().players {
		cpy := *p
		out = append(out, &cpy)
	}
	sortPlayers(out)
	return out, nil
}

func (q *memQueries) FetchPlayer(ctx context.Context, id int64) (*model.Player, error) {
	defer q.lock()()
	p, ok := q.d().players[id]
	if !ok {
		return nil, he.NotFoundf("player %d: not found", id)
	}
	cpy := *p
	return &cpy, nil
}

func (q *memQueries) FetchPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	defer q.lock()()
	if p := q.d().playerNamed(name); p != nil {
		cpy := *p
		return &cpy, nil
	}
	return nil, he.NotFoundf("player %q: not found", name)
}

func (d *memData) playerNamed(name string) *model.Player {
	for _, p := range d.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (q *memQueries) FetchPlayersByID(ctx context.Context, ids []int64) ([]*model.Player, error) {
	defer q.lock()()
	out := []*model.Player{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if p, ok := q.d().players[id]; ok && !seen[id] {
			seen[id] = true
			cpy := *p
			out = append(out, &cpy)
		}
	}
	sortPlayers(out)
	return out, nil
}

func (q *memQueries) CreatePlayer(ctx context.Context, p *model.Player) (int64, error) {
	if err := scoring.PricePlayer(p); err != nil {
		return -1, err
	}
	defer q.lock()()
	if q.d().playerNamed(p.Name) != nil {
		return -1, he.InvalidInputf("create player %q: already exists", p.Name)
	}
	q.d().insertPlayer(p)
	return p.ID, nil
}

func (d *memData) insertPlayer(p *model.Player) {
	p.ID = d.newID()
	cpy := *p
	d.players[p.ID] = &cpy
}

func (q *memQueries) CreatePlayerIfAbsent(ctx context.Context, p *model.Player) (bool, error) {
	if err := scoring.PricePlayer(p); err != nil {
		return false, err
	}
	defer q.lock()()
	if q.d().playerNamed(p.Name) != nil {
		return false, nil
	}
	q.d().insertPlayer(p)
	return true, nil
}

func (q *memQueries) UpdatePlayer(ctx context.Context, p *model.Player) error {
	if err := scoring.PricePlayer(p); err != nil {
		return err
	}
	defer q.lock()()
	if _, ok := q.d().players[p.ID]; !ok {
		return he.NotFoundf("player %d: not found", p.ID)
	}
	if other := q.d().playerNamed(p.Name); other != nil && other.ID != p.ID {
		return he.InvalidInputf("update player %d: name %q already exists", p.ID, p.Name)
	}
	cpy := *p
	q.d().players[p.ID] = &cpy
	return nil
}

func (q *memQueries) DeletePlayer(ctx context.Context, id int64) error {
	defer q.lock()()
	d := q.d()
	if _, ok := d.players[id]; !ok {
		return he.NotFoundf("players %d: not found", id)
	}
	d.dropPicks(func(k *model.Pick) bool { return k.PlayerID == id })
	maps.DeleteFunc(d.matches, func(_ int64, m *model.Match) bool { return m.PlayerID == id })
	delete(d.players, id)
	return nil
}

// Picks.

// withPlayer copies k and attaches a copy of its player.
func (d *memData) withPlayer(k *model.Pick) *model.Pick {
	cpy := *k
	if p, ok := d.players[k.PlayerID]; ok {
		pc := *p
		cpy.Player = &pc
	}
	return &cpy
}

func (q *memQueries) FetchUserPicks(ctx context.Context, userID int64) ([]*model.Pick, error) {
	defer q.lock()()
	out := []*model.Pick{}
	for _, k := range q.d().picks {
		if k.UserID == userID {
			out = append(out, q.d().withPlayer(k))
		}
	}
	slices.SortFunc(out, func(a, b *model.Pick) int {
		if c := cmp.Compare(a.TournamentID, b.TournamentID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.PickType, b.PickType); c != 0 {
			return c
		}
		return cmp.Compare(a.Player.Ranking, b.Player.Ranking)
	})
	return out, nil
}

func (q *memQueries) FetchAllPicks(ctx context.Context) ([]*model.Pick, error) {
	defer q.lock()()
	out := []*model.Pick{}
	for _, k := range q.d().picks {
		out = append(out, q.d().withPlayer(k))
	}
	slices.SortFunc(out, func(a, b *model.Pick) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (q *memQueries) FetchTournamentPicks(ctx context.Context, tournamentID int64) ([]*model.PickWithOwner, error) {
	defer q.lock()()
	out := []*model.PickWithOwner{}
	for _, k := range q.d().picks {
		if k.TournamentID != tournamentID {
			continue
		}
		pw := &model.PickWithOwner{Pick: *q.d().withPlayer(k)}
		if u, ok := q.d().users[k.UserID]; ok {
			pw.UserNick = u.Nick
			pw.UserEmail = u.Email
		}
		out = append(out, pw)
	}
	slices.SortFunc(out, func(a, b *model.PickWithOwner) int {
		if c := cmp.Compare(a.Player.Ranking, b.Player.Ranking); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (q *memQueries) ReplacePicks(ctx context.Context, userID, tournamentID int64, picks []*model.Pick) error {
	defer q.lock()()
	if err := q.fault("ReplacePicks"); err != nil {
		return err
	}
	d := q.d()
	if _, ok := d.users[userID]; !ok {
		return he.NotFoundf("user %d: not found", userID)
	}
	if _, ok := d.tournaments[tournamentID]; !ok {
		return he.NotFoundf("tournament %d: not found", tournamentID)
	}
	seen := map[int64]bool{}
	for _, k := range picks {
		if _, ok := d.players[k.PlayerID]; !ok {
			return he.NotFoundf("player %d: not found", k.PlayerID)
		}
		if seen[k.PlayerID] {
			return he.InvalidInputf("insert pick of player %d: already exists", k.PlayerID)
		}
		seen[k.PlayerID] = true
	}

	d.dropPicks(func(k *model.Pick) bool {
		return k.UserID == userID && k.TournamentID == tournamentID
	})
	for _, k := range picks {
		k.ID = d.newID()
		k.UserID = userID
		k.TournamentID = tournamentID
		k.PointsEarned = d.awardedSoFar(tournamentID, k.PlayerID)
		cpy := *k
		cpy.Player = nil
		d.picks[k.ID] = &cpy
		d.users[userID].TotalPoints += k.PointsEarned
	}
	return nil
}

func (d *memData) awardedSoFar(tournamentID, playerID int64) int {
	total := 0
	for _, m := range d.matches {
		if m.TournamentID == tournamentID && m.PlayerID == playerID {
			total += m.PointsAwarded
		}
	}
	return total
}

func (q *memQueries) SetPickPoints(ctx context.Context, pickID int64, points int) error {
	defer q.lock()()
	k, ok := q.d().picks[pickID]
	if !ok {
		return he.NotFoundf("pick %d: not found", pickID)
	}
	k.PointsEarned = points
	return nil
}

// Matches.

func (d *memData) matchWithPlayer(m *model.Match) *model.Match {
	cpy := *m
	if p, ok := d.players[m.PlayerID]; ok {
		pc := *p
		cpy.Player = &pc
	}
	return &cpy
}

func (q *memQueries) FetchMatches(ctx context.Context, tournamentID int64) ([]*model.Match, error) {
	defer q.lock()()
	out := []*model.Match{}
	for _, m := range q.d().matches {
		if m.TournamentID == tournamentID {
			out = append(out, q.d().matchWithPlayer(m))
		}
	}
	slices.SortFunc(out, func(a, b *model.Match) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (q *memQueries) FetchAllMatches(ctx context.Context) ([]*model.Match, error) {
	defer q.lock()()
	out := []*model.Match{}
	for _, m := range q.d().matches {
		out = append(out, q.d().matchWithPlayer(m))
	}
	slices.SortFunc(out, func(a, b *model.Match) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (q *memQueries) FetchMatchForUpdate(ctx context.Context, id int64) (*model.Match, error) {
	defer q.lock()()
	m, ok := q.d().matches[id]
	if !ok {
		return nil, he.NotFoundf("match %d: not found", id)
	}
	return q.d().matchWithPlayer(m), nil
}

func (q *memQueries) CreateMatch(ctx context.Context, m *model.Match) (int64, error) {
	defer q.lock()()
	if err := q.fault("CreateMatch"); err != nil {
		return -1, err
	}
	d := q.d()
	if _, ok := d.tournaments[m.TournamentID]; !ok {
		return -1, he.NotFoundf("tournament %d: not found", m.TournamentID)
	}
	if _, ok := d.players[m.PlayerID]; !ok {
		return -1, he.NotFoundf("player %d: not found", m.PlayerID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = q.s.clock.Now()
	}
	m.ID = d.newID()
	cpy := *m
	cpy.Player = nil
	d.matches[m.ID] = &cpy
	return m.ID, nil
}

func (q *memQueries) UpdateMatch(ctx context.Context, m *model.Match) error {
	defer q.lock()()
	if err := q.fault("UpdateMatch"); err != nil {
		return err
	}
	d := q.d()
	old, ok := d.matches[m.ID]
	if !ok {
		return he.NotFoundf("match %d: not found", m.ID)
	}
	if _, ok := d.players[m.PlayerID]; !ok {
		return he.NotFoundf("player %d: not found", m.PlayerID)
	}
	old.PlayerID = m.PlayerID
	old.Round = m.Round
	old.Won = m.Won
	old.PointsAwarded = m.PointsAwarded
	return nil
}

func (q *memQueries) DeleteMatch(ctx context.Context, id int64) error {
	defer q.lock()()
	if err := q.fault("DeleteMatch"); err != nil {
		return err
	}
	if _, ok := q.d().matches[id]; !ok {
		return he.NotFoundf("match %d: not found", id)
	}
	delete(q.d().matches, id)
	return nil
}

// Awards.

func (q *memQueries) ApplyAward(ctx context.Context, tournamentID, playerID int64, delta int) (int, error) {
	defer q.lock()()
	if err := q.fault("ApplyAward"); err != nil {
		return 0, err
	}
	if delta == 0 {
		return 0, nil
	}
	d := q.d()
	n := 0
	for _, k := range d.picks {
		if k.TournamentID != tournamentID || k.PlayerID != playerID {
			continue
		}
		applied := max(delta, -k.PointsEarned)
		k.PointsEarned += applied
		if u, ok := d.users[k.UserID]; ok {
			u.TotalPoints += applied
		}
		n++
	}
	return n, nil
}

func (q *memQueries) RecordAwardEvent(ctx context.Context, ev *model.AwardEvent) error {
	defer q.lock()()
	if err := q.fault("RecordAwardEvent"); err != nil {
		return err
	}
	cpy := *ev
	q.d().events = append(q.d().events, &cpy)
	return nil
}

func (q *memQueries) FetchAwardEvents(ctx context.Context, matchID int64) ([]*model.AwardEvent, error) {
	defer q.lock()()
	out := []*model.AwardEvent{}
	for _, ev := range q.d().events {
		if ev.MatchID == matchID {
			cpy := *ev
			out = append(out, &cpy)
		}
	}
	return out, nil
}

// Users.

func (q *memQueries) FetchUsers(ctx context.Context) ([]*model.UserSummary, error) {
	defer q.lock()()
	counts := map[int64]int{}
	for _, k := range q.d().picks {
		counts[k.UserID]++
	}
	out := []*model.UserSummary{}
	for _, u := range q.d().users {
		out = append(out, &model.UserSummary{UserIdentity: u.UserIdentity, PickCount: counts[u.ID]})
	}
	slices.SortFunc(out, func(a, b *model.UserSummary) int { return cmp.Compare(a.Nick, b.Nick) })
	return out, nil
}

func (d *memData) userNamed(nick string) *memUser {
	for _, u := range d.users {
		if u.Nick == nick {
			return u
		}
	}
	return nil
}

func (q *memQueries) CreateUser(ctx context.Context, nick string, emailAddress string, passwordHash string, isAdmin bool) (int64, error) {
	defer q.lock()()
	d := q.d()
	if d.userNamed(nick) != nil {
		return -1, he.InvalidInputf("create user %q: already exists", nick)
	}
	u := &memUser{
		UserIdentity: model.UserIdentity{
			ID:        d.newID(),
			Nick:      nick,
			Email:     emailAddress,
			IsAdmin:   isAdmin,
			CreatedAt: q.s.clock.Now(),
		},
		passwords: []model.PasswordRow{{Hash: passwordHash}},
	}
	d.users[u.ID] = u
	return u.ID, nil
}

func (q *memQueries) FetchUserByUserID(ctx context.Context, id int64) (*model.UserIdentity, error) {
	defer q.lock()()
	u, ok := q.d().users[id]
	if !ok {
		return nil, he.NotFoundf("user %d: not found", id)
	}
	return u.UserIdentity.Clone(), nil
}

func (q *memQueries) FetchUserRow(ctx context.Context, nick string) (*model.UserRow, error) {
	defer q.lock()()
	u := q.d().userNamed(nick)
	if u == nil {
		return nil, he.NotFoundf("user %q: not found", nick)
	}
	row := &model.UserRow{UserIdentity: u.UserIdentity}
	// newest first, like the database
	for i := len(u.passwords) - 1; i >= 0; i-- {
		row.PasswordHashes = append(row.PasswordHashes, u.passwords[i])
	}
	return row, nil
}

func (q *memQueries) PatchUser(ctx context.Context, id int64, patch *model.UserPatch) (*model.UserIdentity, error) {
	defer q.lock()()
	u, ok := q.d().users[id]
	if !ok {
		return nil, he.NotFoundf("patch user %d: not found", id)
	}
	if patch.IsAdmin != nil {
		u.IsAdmin = *patch.IsAdmin
	}
	if patch.HiddenFromLeaderboard != nil {
		u.HiddenFromLeaderboard = *patch.HiddenFromLeaderboard
	}
	if patch.StartingPoints != nil {
		u.StartingPoints = *patch.StartingPoints
	}
	return u.UserIdentity.Clone(), nil
}

func (q *memQueries) SetUserTotalPoints(ctx context.Context, id int64, points int) error {
	defer q.lock()()
	u, ok := q.d().users[id]
	if !ok {
		return he.NotFoundf("user %d: not found", id)
	}
	u.TotalPoints = points
	return nil
}

func (q *memQueries) DeleteUserByID(ctx context.Context, id int64) error {
	defer q.lock()()
	d := q.d()
	if _, ok := d.users[id]; !ok {
		return he.NotFoundf("user %d: not found", id)
	}
	maps.DeleteFunc(d.picks, func(_ int64, k *model.Pick) bool { return k.UserID == id })
	delete(d.users, id)
	return nil
}

func (q *memQueries) DeleteUserByNick(ctx context.Context, nick string) error {
	u := func() *memUser {
		defer q.lock()()
		return q.d().userNamed(nick)
	}()
	if u == nil {
		return he.NotFoundf("user %q: not found", nick)
	}
	return q.DeleteUserByID(ctx, u.ID)
}

func (q *memQueries) AddPassword(ctx context.Context, userID int64, passwordHash string) error {
	defer q.lock()()
	u, ok := q.d().users[userID]
	if !ok {
		return he.NotFoundf("user %d: not found", userID)
	}
	u.passwords = append(u.passwords, model.PasswordRow{Hash: passwordHash})
	return nil
}

func (q *memQueries) RemoveExpiredPasswords(ctx context.Context, before time.Time) error {
	defer q.lock()()
	for _, u := range q.d().users {
		u.passwords = slices.DeleteFunc(u.passwords, func(pw model.PasswordRow) bool {
			return pw.Expires != nil && pw.Expires.Before(before)
		})
	}
	return nil
}

func (q *memQueries) ReplacePassword(ctx context.Context, userID int64, newPasswordHash string, oldPasswordsExpire time.Time) error {
	defer q.lock()()
	u, ok := q.d().users[userID]
	if !ok {
		return he.NotFoundf("user %d: not found", userID)
	}
	for i := range u.passwords {
		if pw := &u.passwords[i]; pw.Expires == nil || pw.Expires.After(oldPasswordsExpire) {
			exp := oldPasswordsExpire
			pw.Expires = &exp
		}
	}
	u.passwords = append(u.passwords, model.PasswordRow{Hash: newPasswordHash})
	return nil
}

// Site config.

func (q *memQueries) FetchSiteConfig(ctx context.Context) (*model.SiteConfig, error) {
	defer q.lock()()
	if q.d().site == nil {
		return nil, he.NotFoundf("site config: not found")
	}
	cpy := *q.d().site
	cpy.CookieKeys = slices.Clone(q.d().site.CookieKeys)
	cpy.AllowedOriginDomains = slices.Clone(q.d().site.AllowedOriginDomains)
	return &cpy, nil
}

func (q *memQueries) SaveSiteConfig(ctx context.Context, config *model.SiteConfig) error {
	defer q.lock()()
	cpy := *config
	cpy.CookieKeys = slices.Clone(config.CookieKeys)
	cpy.AllowedOriginDomains = slices.Clone(config.AllowedOriginDomains)
	q.d().site = &cpy
	return nil
}
