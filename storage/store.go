package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/onnwee/playtime/db"
)

// Store implements the session store on top of database/sql. Queries are written
// with '?' placeholders and rebound for the configured dialect.
type Store struct {
	conn    *sql.DB
	dialect db.Dialect
}

// New wraps an open database handle.
func New(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{conn: conn, dialect: dialect}
}

func (s *Store) q(query string) string { return s.dialect.Rebind(query) }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// UpsertUser creates the user or refreshes its name. Empty names, display names
// and avatars never overwrite stored values; a new user with no name is stored
// under its id.
func (s *Store) UpsertUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return fmt.Errorf("upsert user: empty id")
	}
	insertName := u.Name
	if insertName == "" {
		insertName = u.ID
	}
	_, err := s.conn.ExecContext(ctx, s.q(`INSERT INTO users (id, name, display_name, avatar, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN CAST(? AS TEXT) = '' THEN users.name ELSE excluded.name END,
			display_name = COALESCE(excluded.display_name, users.display_name),
			avatar = COALESCE(excluded.avatar, users.avatar)`),
		u.ID, insertName, nullString(u.DisplayName), nullString(u.Avatar), time.Now().UTC(), u.Name)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var (
		u       User
		display sql.NullString
		avatar  sql.NullString
	)
	err := s.conn.QueryRowContext(ctx, s.q(`SELECT id, name, display_name, avatar, created_at FROM users WHERE id = ?`), id).
		Scan(&u.ID, &u.Name, &display, &avatar, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u.DisplayName = display.String
	u.Avatar = avatar.String
	return &u, nil
}

// FindOpenSession returns the open session for (userID, game) or ErrNotFound.
func (s *Store) FindOpenSession(ctx context.Context, userID, game string) (*GameSession, error) {
	var gs GameSession
	err := s.conn.QueryRowContext(ctx, s.q(`SELECT id, user_id, name, start_time FROM games
		WHERE user_id = ? AND name = ? AND end_time IS NULL
		ORDER BY start_time DESC LIMIT 1`), userID, game).
		Scan(&gs.ID, &gs.UserID, &gs.Game, &gs.Start)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find open session %s/%q: %w", userID, game, err)
	}
	return &gs, nil
}

// InsertSession opens a new session. A concurrent open row for the same user and
// game surfaces as ErrConflict.
func (s *Store) InsertSession(ctx context.Context, userID, game string, start time.Time) (*GameSession, error) {
	start = start.UTC()
	var id int64
	err := s.conn.QueryRowContext(ctx, s.q(`INSERT INTO games (user_id, name, start_time, created_at)
		VALUES (?, ?, ?, ?) RETURNING id`), userID, game, start, time.Now().UTC()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert session %s/%q: %w", userID, game, ErrConflict)
		}
		return nil, fmt.Errorf("insert session %s/%q: %w", userID, game, err)
	}
	return &GameSession{ID: id, UserID: userID, Game: game, Start: start}, nil
}

// CloseSession sets the end time of an open session. An end earlier than the
// start is clamped to the start. Returns ErrNotFound when no open row has the id.
func (s *Store) CloseSession(ctx context.Context, id int64, end time.Time) error {
	end = end.UTC()
	res, err := s.conn.ExecContext(ctx, s.q(`UPDATE games
		SET end_time = CASE WHEN start_time > ? THEN start_time ELSE ? END
		WHERE id = ? AND end_time IS NULL`), end, end, id)
	if err != nil {
		return fmt.Errorf("close session %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListClosedSessions returns the user's ended sessions that started at or after since,
// oldest first.
func (s *Store) ListClosedSessions(ctx context.Context, userID string, since time.Time) ([]GameSession, error) {
	rows, err := s.conn.QueryContext(ctx, s.q(`SELECT id, user_id, name, start_time, end_time FROM games
		WHERE user_id = ? AND start_time >= ? AND end_time IS NOT NULL
		ORDER BY start_time ASC, id ASC`), userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions %s: %w", userID, err)
	}
	defer rows.Close()

	var out []GameSession
	for rows.Next() {
		var (
			gs  GameSession
			end sql.NullTime
		)
		if err := rows.Scan(&gs.ID, &gs.UserID, &gs.Game, &gs.Start, &end); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if end.Valid {
			t := end.Time
			gs.End = &t
		}
		out = append(out, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions %s: %w", userID, err)
	}
	return out, nil
}

// CountOpenSessions returns the number of sessions with no end time.
func (s *Store) CountOpenSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM games WHERE end_time IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return n, nil
}

// GetLeagueAccount returns the account linked to the user or ErrNotFound.
func (s *Store) GetLeagueAccount(ctx context.Context, userID string) (*LeagueAccount, error) {
	var (
		a     LeagueAccount
		puuid sql.NullString
	)
	err := s.conn.QueryRowContext(ctx, s.q(`SELECT id, user_id, game_name, tag_line, puuid, created_at
		FROM league_accounts WHERE user_id = ?`), userID).
		Scan(&a.ID, &a.UserID, &a.GameName, &a.TagLine, &puuid, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get league account %s: %w", userID, err)
	}
	a.PUUID = puuid.String
	return &a, nil
}

// UpsertLeagueAccount links or relinks the user's account. created is true when no
// account existed before.
func (s *Store) UpsertLeagueAccount(ctx context.Context, a LeagueAccount) (created bool, err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin league upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing int
	if err = tx.QueryRowContext(ctx, s.q(`SELECT COUNT(1) FROM league_accounts WHERE user_id = ?`), a.UserID).Scan(&existing); err != nil {
		return false, fmt.Errorf("lookup league account %s: %w", a.UserID, err)
	}
	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO league_accounts (user_id, game_name, tag_line, puuid, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			game_name = excluded.game_name,
			tag_line = excluded.tag_line,
			puuid = excluded.puuid`),
		a.UserID, a.GameName, a.TagLine, nullString(a.PUUID), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("upsert league account %s: %w", a.UserID, err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit league upsert: %w", err)
	}
	return existing == 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
