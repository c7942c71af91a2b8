package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ts4z/wtapicks/model"
)

const userColumns = `u.user_id, u.nick, u.email, u.is_admin, u.hidden_from_leaderboard,
	u.starting_points, u.total_points, u.created_at`

func scanUser(r rowScanner, extra ...any) (*model.UserIdentity, error) {
	u := &model.UserIdentity{}
	dest := []any{&u.ID, &u.Nick, &u.Email, &u.IsAdmin, &u.HiddenFromLeaderboard,
		&u.StartingPoints, &u.TotalPoints, &u.CreatedAt}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *dbQueries) FetchUsers(ctx context.Context) ([]*model.UserSummary, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+userColumns+`, (SELECT count(*) FROM picks k WHERE k.user_id = u.user_id)
		 FROM users u ORDER BY u.nick`)
	if err != nil {
		return nil, wrap(err, "fetch users")
	}
	defer rows.Close()

	out := []*model.UserSummary{}
	for rows.Next() {
		var n int
		u, err := scanUser(rows, &n)
		if err != nil {
			return nil, wrap(err, "scan user")
		}
		out = append(out, &model.UserSummary{UserIdentity: *u, PickCount: n})
	}
	return out, wrap(rows.Err(), "fetch users")
}

func (s *dbQueries) CreateUser(ctx context.Context, nick string, emailAddress string, passwordHash string, isAdmin bool) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx,
		`WITH u AS (
			INSERT INTO users (nick, email, is_admin) VALUES ($1, $2, $3) RETURNING user_id
		)
		INSERT INTO passwords (user_id, hash) SELECT user_id, $4 FROM u RETURNING user_id`,
		nick, emailAddress, isAdmin, passwordHash).Scan(&id)
	if err != nil {
		return -1, wrap(err, "create user %q", nick)
	}
	return id, nil
}

func (s *dbQueries) FetchUserByUserID(ctx context.Context, id int64) (*model.UserIdentity, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.user_id=$1`, id))
	if err != nil {
		return nil, wrap(err, "user %d", id)
	}
	return u, nil
}

func (s *dbQueries) FetchUserRow(ctx context.Context, nick string) (*model.UserRow, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.nick=$1`, nick))
	if err != nil {
		return nil, wrap(err, "user %q", nick)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT hash, expires FROM passwords WHERE user_id=$1 ORDER BY password_id DESC`, u.ID)
	if err != nil {
		return nil, wrap(err, "passwords of user %q", nick)
	}
	defer rows.Close()

	row := &model.UserRow{UserIdentity: *u}
	for rows.Next() {
		pw := model.PasswordRow{}
		if err := rows.Scan(&pw.Hash, &pw.Expires); err != nil {
			return nil, wrap(err, "scan password")
		}
		row.PasswordHashes = append(row.PasswordHashes, pw)
	}
	return row, wrap(rows.Err(), "passwords of user %q", nick)
}

func (s *dbQueries) PatchUser(ctx context.Context, id int64, patch *model.UserPatch) (*model.UserIdentity, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`UPDATE users u SET
			is_admin = COALESCE($2::boolean, u.is_admin),
			hidden_from_leaderboard = COALESCE($3::boolean, u.hidden_from_leaderboard),
			starting_points = COALESCE($4::integer, u.starting_points)
		 WHERE u.user_id=$1 RETURNING `+userColumns,
		id, patch.IsAdmin, patch.HiddenFromLeaderboard, patch.StartingPoints))
	if err != nil {
		return nil, wrap(err, "patch user %d", id)
	}
	return u, nil
}

func (s *dbQueries) SetUserTotalPoints(ctx context.Context, id int64, points int) error {
	result, err := s.exec(ctx, `UPDATE users SET total_points=$2 WHERE user_id=$1`, id, points)
	if err != nil {
		return wrap(err, "set total points of user %d", id)
	}
	return mustAffect(result, "user %d", id)
}

func (s *dbQueries) DeleteUserByID(ctx context.Context, id int64) error {
	result, err := s.exec(ctx, `DELETE FROM users WHERE user_id=$1`, id)
	if err != nil {
		return wrap(err, "delete user %d", id)
	}
	return mustAffect(result, "user %d", id)
}

func (s *dbQueries) DeleteUserByNick(ctx context.Context, nick string) error {
	result, err := s.exec(ctx, `DELETE FROM users WHERE nick=$1`, nick)
	if err != nil {
		return wrap(err, "delete user %q", nick)
	}
	return mustAffect(result, "user %q", nick)
}

func (s *dbQueries) AddPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.exec(ctx, `INSERT INTO passwords (user_id, hash) VALUES ($1, $2)`, userID, passwordHash)
	return wrap(err, "add password for user %d", userID)
}

func (s *dbQueries) RemoveExpiredPasswords(ctx context.Context, before time.Time) error {
	_, err := s.exec(ctx, `DELETE FROM passwords WHERE expires IS NOT NULL AND expires < $1`, before)
	return wrap(err, "remove expired passwords")
}

// ReplacePassword adds a new password and schedules the old ones to expire.
// Callers wanting this atomic should use InTx.
func (s *dbQueries) ReplacePassword(ctx context.Context, userID int64, newPasswordHash string, oldPasswordsExpire time.Time) error {
	if _, err := s.exec(ctx,
		`UPDATE passwords SET expires=$2 WHERE user_id=$1 AND (expires IS NULL OR expires > $2)`,
		userID, oldPasswordsExpire); err != nil {
		return wrap(err, "expire passwords of user %d", userID)
	}
	return s.AddPassword(ctx, userID, newPasswordHash)
}

func (s *dbQueries) FetchSiteConfig(ctx context.Context) (*model.SiteConfig, error) {
	var bytes []byte
	if err := s.q.QueryRowContext(ctx, `SELECT config FROM site_config WHERE site_config_id=1`).Scan(&bytes); err != nil {
		return nil, wrap(err, "site config")
	}
	sc := &model.SiteConfig{}
	if err := json.Unmarshal(bytes, sc); err != nil {
		return nil, wrap(err, "decode site config")
	}
	return sc, nil
}

func (s *dbQueries) SaveSiteConfig(ctx context.Context, config *model.SiteConfig) error {
	bytes, err := json.Marshal(config)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx,
		`INSERT INTO site_config (site_config_id, config) VALUES (1, $1)
		 ON CONFLICT (site_config_id) DO UPDATE SET config = EXCLUDED.config`, bytes)
	return wrap(err, "save site config")
}
