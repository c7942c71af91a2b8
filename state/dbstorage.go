package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ts4z/wtapicks/assets"
	"github.com/ts4z/wtapicks/dbutil"
	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
	"github.com/ts4z/wtapicks/scoring"
)

// DBStorage is the Postgres implementation of Storage.
type DBStorage struct {
	db *sql.DB
	dbQueries
}

var _ Storage = &DBStorage{}

// dbQueries runs against either the pool or a transaction.
type dbQueries struct {
	q dbutil.Querier
}

var _ Queries = &dbQueries{}

func NewDBStorage(db *sql.DB) *DBStorage {
	return &DBStorage{
		db:        db,
		dbQueries: dbQueries{q: db},
	}
}

// OpenDBStorage connects the way config says to.
func OpenDBStorage(ctx context.Context) (*DBStorage, error) {
	db, err := dbutil.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return NewDBStorage(db), nil
}

// DB is the pool underneath, for things like dbnotify that need a
// connection of their own.
func (s *DBStorage) DB() *sql.DB {
	return s.db
}

func (s *DBStorage) Close() {
	s.db.Close()
}

func (s *DBStorage) InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return dbutil.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &dbQueries{q: tx})
	})
}

// ApplySchema creates any missing tables.
func (s *DBStorage) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, assets.Schema); err != nil {
		return fmt.Errorf("can't apply schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

// wrap maps driver errors onto our error kinds.
func wrap(err error, f string, more ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(f, more...)
	if errors.Is(err, sql.ErrNoRows) {
		return he.NotFoundf("%s: not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return he.InvalidInputf("%s: already exists (%s)", what, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// mustAffect turns a zero row update into NotFound.
func mustAffect(result sql.Result, f string, more ...any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return he.NotFoundf(f+": not found", more...)
	}
	return nil
}

func (s *dbQueries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, query, args...)
}

// Tournaments.

const tournamentColumns = `tournament_id, name, level, start_date, end_date, status, points_allowance`

func scanTournament(r rowScanner) (*model.Tournament, error) {
	t := &model.Tournament{}
	var level, status string
	if err := r.Scan(&t.ID, &t.Name, &level, &t.StartDate, &t.EndDate, &status, &t.PointsAllowance); err != nil {
		return nil, err
	}
	t.Level = model.Level(level)
	t.Status = model.Status(status)
	return t, nil
}

func (s *dbQueries) FetchTournaments(ctx context.Context) ([]*model.Tournament, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments ORDER BY start_date DESC, tournament_id DESC`)
	if err != nil {
		return nil, wrap(err, "fetch tournaments")
	}
	defer rows.Close()

	out := []*model.Tournament{}
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, wrap(err, "scan tournament")
		}
		out = append(out, t)
	}
	return out, wrap(rows.Err(), "fetch tournaments")
}

func (s *dbQueries) FetchTournament(ctx context.Context, id int64) (*model.Tournament, error) {
	t, err := scanTournament(s.q.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE tournament_id=$1`, id))
	if err != nil {
		return nil, wrap(err, "tournament %d", id)
	}
	return t, nil
}

func (s *dbQueries) FindTournament(ctx context.Context, name string, startDate time.Time) (*model.Tournament, error) {
	t, err := scanTournament(s.q.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE name=$1 AND start_date=$2`, name, startDate))
	if err != nil {
		return nil, wrap(err, "tournament %q starting %s", name, startDate.Format(time.DateOnly))
	}
	return t, nil
}

func (s *dbQueries) CreateTournament(ctx context.Context, t *model.Tournament) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO tournaments (name, level, start_date, end_date, status, points_allowance)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING tournament_id`,
		t.Name, string(t.Level), t.StartDate, t.EndDate, string(t.Status), t.PointsAllowance).Scan(&id)
	if err != nil {
		return -1, wrap(err, "create tournament %q", t.Name)
	}
	t.ID = id
	return id, nil
}

func (s *dbQueries) SetTournamentStatus(ctx context.Context, id int64, status model.Status) (*model.Tournament, error) {
	t, err := scanTournament(s.q.QueryRowContext(ctx,
		`UPDATE tournaments SET status=$2 WHERE tournament_id=$1 RETURNING `+tournamentColumns, id, string(status)))
	if err != nil {
		return nil, wrap(err, "set status of tournament %d", id)
	}
	return t, nil
}

// deleteCascadingSQL deletes one row whose picks go with it, taking those
// picks' points off their owners' totals in the same statement.  %[1]s is
// the table and %[2]s its key column, which picks also carries.
const deleteCascadingSQL = `
WITH gone AS (
	DELETE FROM %[1]s WHERE %[2]s=$1 RETURNING %[2]s
), lost AS (
	UPDATE users u SET total_points = u.total_points - s.points
	FROM (SELECT user_id, SUM(points_earned) AS points FROM picks
	      WHERE %[2]s IN (SELECT %[2]s FROM gone) GROUP BY user_id) s
	WHERE u.user_id = s.user_id
)
SELECT count(*) FROM gone`

func (s *dbQueries) deleteCascading(ctx context.Context, table, column string, id int64) error {
	var n int
	if err := s.q.QueryRowContext(ctx, fmt.Sprintf(deleteCascadingSQL, table, column), id).Scan(&n); err != nil {
		return wrap(err, "delete from %s %d", table, id)
	}
	if n == 0 {
		return he.NotFoundf("%s %d: not found", table, id)
	}
	return nil
}

func (s *dbQueries) DeleteTournament(ctx context.Context, id int64) error {
	return s.deleteCascading(ctx, "tournaments", "tournament_id", id)
}

// Players.

const playerColumns = `player_id, name, country, ranking, cost`

func scanPlayer(r rowScanner) (*model.Player, error) {
	p := &model.Player{}
	if err := r.Scan(&p.ID, &p.Name, &p.Country, &p.Ranking, &p.Cost); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *dbQueries) queryPlayers(ctx context.Context, query string, args ...any) ([]*model.Player, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "fetch players")
	}
	defer rows.Close()

	out := []*model.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, wrap(err, "scan player")
		}
		out = append(out, p)
	}
	return out, wrap(rows.Err(), "fetch players")
}

func (s *dbQueries) FetchPlayers(ctx context.Context) ([]*model.Player, error) {
	return s.queryPlayers(ctx, `SELECT `+playerColumns+` FROM players ORDER BY ranking, name`)
}

func (s *dbQueries) FetchPlayer(ctx context.Context, id int64) (*model.Player, error) {
	p, err := scanPlayer(s.q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE player_id=$1`, id))
	if err != nil {
		return nil, wrap(err, "player %d", id)
	}
	return p, nil
}

func (s *dbQueries) FetchPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	p, err := scanPlayer(s.q.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE name=$1`, name))
	if err != nil {
		return nil, wrap(err, "player %q", name)
	}
	return p, nil
}

func (s *dbQueries) FetchPlayersByID(ctx context.Context, ids []int64) ([]*model.Player, error) {
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}
	return s.queryPlayers(ctx, `SELECT `+playerColumns+` FROM players WHERE player_id = ANY($1) ORDER BY ranking, name`, ids)
}

func (s *dbQueries) CreatePlayer(ctx context.Context, p *model.Player) (int64, error) {
	if err := scoring.PricePlayer(p); err != nil {
		return -1, err
	}
	var id int64
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO players (name, country, ranking, cost) VALUES ($1, $2, $3, $4) RETURNING player_id`,
		p.Name, p.Country, p.Ranking, p.Cost).Scan(&id)
	if err != nil {
		return -1, wrap(err, "create player %q", p.Name)
	}
	p.ID = id
	return id, nil
}

func (s *dbQueries) CreatePlayerIfAbsent(ctx context.Context, p *model.Player) (bool, error) {
	if err := scoring.PricePlayer(p); err != nil {
		return false, err
	}
	var id int64
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO players (name, country, ranking, cost) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING RETURNING player_id`,
		p.Name, p.Country, p.Ranking, p.Cost).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, wrap(err, "create player %q", p.Name)
	}
	p.ID = id
	return true, nil
}

func (s *dbQueries) UpdatePlayer(ctx context.Context, p *model.Player) error {
	if err := scoring.PricePlayer(p); err != nil {
		return err
	}
	result, err := s.exec(ctx,
		`UPDATE players SET name=$2, country=$3, ranking=$4, cost=$5 WHERE player_id=$1`,
		p.ID, p.Name, p.Country, p.Ranking, p.Cost)
	if err != nil {
		return wrap(err, "update player %d", p.ID)
	}
	return mustAffect(result, "player %d", p.ID)
}

func (s *dbQueries) DeletePlayer(ctx context.Context, id int64) error {
	return s.deleteCascading(ctx, "players", "player_id", id)
}

// Picks.

const pickColumns = `k.pick_id, k.user_id, k.tournament_id, k.player_id, k.pick_type, k.points_earned,
	p.player_id, p.name, p.country, p.ranking, p.cost`

func scanPick(r rowScanner, extra ...any) (*model.Pick, error) {
	k := &model.Pick{Player: &model.Player{}}
	var pickType string
	dest := []any{&k.ID, &k.UserID, &k.TournamentID, &k.PlayerID, &pickType, &k.PointsEarned,
		&k.Player.ID, &k.Player.Name, &k.Player.Country, &k.Player.Ranking, &k.Player.Cost}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	k.PickType = model.PickType(pickType)
	return k, nil
}

func (s *dbQueries) queryPicks(ctx context.Context, query string, args ...any) ([]*model.Pick, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "fetch picks")
	}
	defer rows.Close()

	out := []*model.Pick{}
	for rows.Next() {
		k, err := scanPick(rows)
		if err != nil {
			return nil, wrap(err, "scan pick")
		}
		out = append(out, k)
	}
	return out, wrap(rows.Err(), "fetch picks")
}

func (s *dbQueries) FetchUserPicks(ctx context.Context, userID int64) ([]*model.Pick, error) {
	return s.queryPicks(ctx,
		`SELECT `+pickColumns+` FROM picks k JOIN players p USING (player_id)
		 WHERE k.user_id=$1 ORDER BY k.tournament_id, k.pick_type, p.ranking`, userID)
}

func (s *dbQueries) FetchAllPicks(ctx context.Context) ([]*model.Pick, error) {
	return s.queryPicks(ctx,
		`SELECT `+pickColumns+` FROM picks k JOIN players p USING (player_id) ORDER BY k.pick_id`)
}

func (s *dbQueries) FetchTournamentPicks(ctx context.Context, tournamentID int64) ([]*model.PickWithOwner, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+pickColumns+`, u.nick, u.email FROM picks k
		 JOIN players p USING (player_id) JOIN users u USING (user_id)
		 WHERE k.tournament_id=$1 ORDER BY p.ranking, k.pick_id`, tournamentID)
	if err != nil {
		return nil, wrap(err, "fetch picks for tournament %d", tournamentID)
	}
	defer rows.Close()

	out := []*model.PickWithOwner{}
	for rows.Next() {
		var nick, email string
		k, err := scanPick(rows, &nick, &email)
		if err != nil {
			return nil, wrap(err, "scan pick")
		}
		out = append(out, &model.PickWithOwner{Pick: *k, UserNick: nick, UserEmail: email})
	}
	return out, wrap(rows.Err(), "fetch picks for tournament %d", tournamentID)
}

func (s *dbQueries) ReplacePicks(ctx context.Context, userID, tournamentID int64, picks []*model.Pick) error {
	if _, err := s.exec(ctx,
		`WITH gone AS (
			DELETE FROM picks WHERE user_id=$1 AND tournament_id=$2 RETURNING points_earned
		)
		UPDATE users SET total_points = total_points - (SELECT COALESCE(SUM(points_earned), 0) FROM gone)
		WHERE user_id=$1`, userID, tournamentID); err != nil {
		return wrap(err, "clear picks of user %d for tournament %d", userID, tournamentID)
	}

	gained := 0
	for _, k := range picks {
		k.UserID = userID
		k.TournamentID = tournamentID
		// A pick starts with whatever its player has already been awarded in
		// this tournament, so the caches always match the match history.
		err := s.q.QueryRowContext(ctx,
			`INSERT INTO picks (user_id, tournament_id, player_id, pick_type, points_earned)
			 VALUES ($1, $2, $3, $4,
			   (SELECT COALESCE(SUM(points_awarded), 0) FROM matches WHERE tournament_id=$2 AND player_id=$3))
			 RETURNING pick_id, points_earned`,
			userID, tournamentID, k.PlayerID, string(k.PickType)).Scan(&k.ID, &k.PointsEarned)
		if err != nil {
			return wrap(err, "insert pick of player %d", k.PlayerID)
		}
		gained += k.PointsEarned
	}

	if gained != 0 {
		if _, err := s.exec(ctx, `UPDATE users SET total_points = total_points + $2 WHERE user_id=$1`, userID, gained); err != nil {
			return wrap(err, "credit user %d", userID)
		}
	}
	return nil
}

func (s *dbQueries) SetPickPoints(ctx context.Context, pickID int64, points int) error {
	result, err := s.exec(ctx, `UPDATE picks SET points_earned=$2 WHERE pick_id=$1`, pickID, points)
	if err != nil {
		return wrap(err, "set points of pick %d", pickID)
	}
	return mustAffect(result, "pick %d", pickID)
}

// Matches.

const matchColumns = `m.match_id, m.tournament_id, m.player_id, m.round, m.won, m.points_awarded, m.created_at,
	p.player_id, p.name, p.country, p.ranking, p.cost`

func scanMatch(r rowScanner) (*model.Match, error) {
	m := &model.Match{Player: &model.Player{}}
	if err := r.Scan(&m.ID, &m.TournamentID, &m.PlayerID, &m.Round, &m.Won, &m.PointsAwarded, &m.CreatedAt,
		&m.Player.ID, &m.Player.Name, &m.Player.Country, &m.Player.Ranking, &m.Player.Cost); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *dbQueries) queryMatches(ctx context.Context, query string, args ...any) ([]*model.Match, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "fetch matches")
	}
	defer rows.Close()

	out := []*model.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, wrap(err, "scan match")
		}
		out = append(out, m)
	}
	return out, wrap(rows.Err(), "fetch matches")
}

func (s *dbQueries) FetchMatches(ctx context.Context, tournamentID int64) ([]*model.Match, error) {
	return s.queryMatches(ctx,
		`SELECT `+matchColumns+` FROM matches m JOIN players p USING (player_id)
		 WHERE m.tournament_id=$1 ORDER BY m.created_at DESC, m.match_id DESC`, tournamentID)
}

func (s *dbQueries) FetchAllMatches(ctx context.Context) ([]*model.Match, error) {
	return s.queryMatches(ctx,
		`SELECT `+matchColumns+` FROM matches m JOIN players p USING (player_id) ORDER BY m.match_id`)
}

func (s *dbQueries) FetchMatchForUpdate(ctx context.Context, id int64) (*model.Match, error) {
	m, err := scanMatch(s.q.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches m JOIN players p USING (player_id)
		 WHERE m.match_id=$1 FOR UPDATE OF m`, id))
	if err != nil {
		return nil, wrap(err, "match %d", id)
	}
	return m, nil
}

func (s *dbQueries) CreateMatch(ctx context.Context, m *model.Match) (int64, error) {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO matches (tournament_id, player_id, round, won, points_awarded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING match_id`,
		m.TournamentID, m.PlayerID, m.Round, m.Won, m.PointsAwarded, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return -1, wrap(err, "create match")
	}
	return m.ID, nil
}

func (s *dbQueries) UpdateMatch(ctx context.Context, m *model.Match) error {
	result, err := s.exec(ctx,
		`UPDATE matches SET player_id=$2, round=$3, won=$4, points_awarded=$5 WHERE match_id=$1`,
		m.ID, m.PlayerID, m.Round, m.Won, m.PointsAwarded)
	if err != nil {
		return wrap(err, "update match %d", m.ID)
	}
	return mustAffect(result, "match %d", m.ID)
}

func (s *dbQueries) DeleteMatch(ctx context.Context, id int64) error {
	result, err := s.exec(ctx, `DELETE FROM matches WHERE match_id=$1`, id)
	if err != nil {
		return wrap(err, "delete match %d", id)
	}
	return mustAffect(result, "match %d", id)
}

// Awards.

// applyAwardSQL moves every pick of the pair by $3 without going below zero,
// then moves each owner's total by what their picks actually moved.
const applyAwardSQL = `
WITH targets AS (
	SELECT pick_id, user_id, GREATEST(-points_earned, $3::integer) AS applied
	FROM picks
	WHERE tournament_id=$1 AND player_id=$2
	FOR UPDATE
), moved AS (
	UPDATE picks k SET points_earned = k.points_earned + t.applied
	FROM targets t
	WHERE k.pick_id = t.pick_id
	RETURNING t.user_id, t.applied
), totals AS (
	UPDATE users u SET total_points = u.total_points + s.applied
	FROM (SELECT user_id, SUM(applied) AS applied FROM moved GROUP BY user_id) s
	WHERE u.user_id = s.user_id
)
SELECT count(*) FROM moved`

func (s *dbQueries) ApplyAward(ctx context.Context, tournamentID, playerID int64, delta int) (int, error) {
	if delta == 0 {
		return 0, nil
	}
	var n int
	if err := s.q.QueryRowContext(ctx, applyAwardSQL, tournamentID, playerID, delta).Scan(&n); err != nil {
		return 0, wrap(err, "apply %+d to picks of player %d in tournament %d", delta, playerID, tournamentID)
	}
	return n, nil
}

func (s *dbQueries) RecordAwardEvent(ctx context.Context, ev *model.AwardEvent) error {
	_, err := s.exec(ctx,
		`INSERT INTO award_events (award_event_id, match_id, tournament_id, player_id, delta, reason, picks_affected, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.MatchID, ev.TournamentID, ev.PlayerID, ev.Delta, string(ev.Reason), ev.PicksAffected, ev.At)
	return wrap(err, "record award event for match %d", ev.MatchID)
}

func (s *dbQueries) FetchAwardEvents(ctx context.Context, matchID int64) ([]*model.AwardEvent, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT award_event_id, match_id, tournament_id, player_id, delta, reason, picks_affected, at
		 FROM award_events WHERE match_id=$1 ORDER BY at, award_event_id`, matchID)
	if err != nil {
		return nil, wrap(err, "fetch award events for match %d", matchID)
	}
	defer rows.Close()

	out := []*model.AwardEvent{}
	for rows.Next() {
		ev := &model.AwardEvent{}
		var reason string
		if err := rows.Scan(&ev.ID, &ev.MatchID, &ev.TournamentID, &ev.PlayerID, &ev.Delta, &reason, &ev.PicksAffected, &ev.At); err != nil {
			return nil, wrap(err, "scan award event")
		}
		ev.Reason = model.AwardReason(reason)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		log.Printf("award events for match %d: %v", matchID, err)
		return nil, wrap(err, "fetch award events for match %d", matchID)
	}
	return out, nil
}
