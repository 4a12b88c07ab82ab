package game

import (
	"errors"
	"testing"
)

func TestUserKey(t *testing.T) {
	user, err := NewUser(SourceGitHub, "12345")
	if err != nil {
		t.Fatalf("NewUser failed: %v", err)
	}
	if user.Key() != "github:12345" {
		t.Errorf("Key = %q, want github:12345", user.Key())
	}
}

func TestNewUserBlank(t *testing.T) {
	if _, err := NewUser("", "12345"); !errors.Is(err, ErrBlankIdentity) {
		t.Errorf("blank source should return ErrBlankIdentity, got %v", err)
	}
	if _, err := NewUser(SourceGitHub, ""); !errors.Is(err, ErrBlankIdentity) {
		t.Errorf("blank user ID should return ErrBlankIdentity, got %v", err)
	}
}

func TestGameKeyMatchesUser(t *testing.T) {
	user, _ := NewUser(SourceTest, "abc")
	g, err := NewGame(user, "https://api.github.com/repos/abc/fork", 99)
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	// Games are 1:1 with users, so the keys are shared.
	if g.Key() != user.Key() {
		t.Errorf("game key %q should equal user key %q", g.Key(), user.Key())
	}
}

func TestNewGameRequiresFork(t *testing.T) {
	user, _ := NewUser(SourceTest, "abc")
	if _, err := NewGame(user, "", 1); !errors.Is(err, ErrNoFork) {
		t.Errorf("blank fork URL should return ErrNoFork, got %v", err)
	}
}
