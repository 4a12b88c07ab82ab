// Package game holds the player-facing entities: users identified by an
// external account, and the one game each of them plays.
package game

import (
	"errors"
	"fmt"
)

// Source identifies where a user's external identity comes from.
type Source string

const (
	SourceTest   Source = "test"
	SourceGitHub Source = "github"
)

// ErrBlankIdentity is returned when a user is constructed without a source or ID.
var ErrBlankIdentity = errors.New("source and user ID cannot be blank")

// User is a player identity. A user may exist as a bare reference (created
// when a fork arrives before the player has signed in) and gain a linked
// auth UID later.
type User struct {
	Source Source
	UserID string // external account ID, e.g. the GitHub numeric ID as a string
	UID    string // linked auth UID; empty until the player signs in
	Name   string
	Handle string
}

// NewUser creates a user reference. It does not check that the user exists
// anywhere; it only validates the identity tuple.
func NewUser(source Source, userID string) (*User, error) {
	if source == "" || userID == "" {
		return nil, ErrBlankIdentity
	}
	return &User{Source: source, UserID: userID}, nil
}

// NewGitHubUser creates a user reference for a GitHub account. The numeric
// account ID is the identity; the login is display only and may change.
func NewGitHubUser(id int64, login string) (*User, error) {
	if id == 0 {
		return nil, ErrBlankIdentity
	}
	user, err := NewUser(SourceGitHub, fmt.Sprintf("%d", id))
	if err != nil {
		return nil, err
	}
	user.Handle = login
	return user, nil
}

// Key returns the stable storage key for this user.
func (u *User) Key() string {
	return fmt.Sprintf("%s:%s", u.Source, u.UserID)
}
