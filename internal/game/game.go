package game

import "errors"

// ErrNoFork is returned when a game is created without a fork URL.
var ErrNoFork = errors.New("fork URL cannot be blank")

// Game is the per-player game state. Each user has at most one game, so a
// game's key is its owner's key.
type Game struct {
	UserKey  string
	ForkURL  string // API URL of the player's fork
	PlayerID int64  // the player's numeric GitHub ID, used to match their comments
}

// NewGame creates a game owned by user, playing on the given fork.
func NewGame(user *User, forkURL string, playerID int64) (*Game, error) {
	if forkURL == "" {
		return nil, ErrNoFork
	}
	return &Game{UserKey: user.Key(), ForkURL: forkURL, PlayerID: playerID}, nil
}

// Key returns the stable storage key for this game.
func (g *Game) Key() string {
	return g.UserKey
}
