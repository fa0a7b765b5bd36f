// Package storage persists users, game sessions and linked League accounts.
package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness constraint,
	// such as a second open session for the same user and game.
	ErrConflict = errors.New("conflict")
)

// User is a platform account observed through presence or a command.
type User struct {
	ID          string
	Name        string
	DisplayName string
	Avatar      string
	CreatedAt   time.Time
}

// GameSession is one span of a user playing a game. End is nil while open.
type GameSession struct {
	ID     int64
	UserID string
	Game   string
	Start  time.Time
	End    *time.Time
}

// Open reports whether the session has not ended yet.
func (s GameSession) Open() bool { return s.End == nil }

// Duration is the closed span length, zero for open sessions.
func (s GameSession) Duration() time.Duration {
	if s.End == nil {
		return 0
	}
	return s.End.Sub(s.Start)
}

// LeagueAccount links a user to a Riot account.
type LeagueAccount struct {
	ID        int64
	UserID    string
	GameName  string
	TagLine   string
	PUUID     string
	CreatedAt time.Time
}

// RiotID formats the account as gameName#tagLine.
func (a LeagueAccount) RiotID() string { return a.GameName + "#" + a.TagLine }
