package character

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRepoName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"owner/repo", "owner/repo"},
		{"https://api.github.com/repos/owner/repo", "owner/repo"},
		{"https://github.com/owner/repo/", "owner/repo"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		if got := RepoName(tt.input); got != tt.want {
			t.Errorf("RepoName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler) *GitHub {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := NewGitHub(srv.URL, "bot-token")
	if err != nil {
		t.Fatalf("NewGitHub failed: %v", err)
	}
	return g
}

func TestCreateIssue(t *testing.T) {
	g := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/owner/fork/issues" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "token bot-token" {
			t.Errorf("missing bot token, got %q", r.Header.Get("Authorization"))
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["title"] != "Welcome" {
			t.Errorf("title = %q, want Welcome", payload["title"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int{"number": 7})
	}))

	number, err := g.CreateIssue(context.Background(), "https://api.github.com/repos/owner/fork", "Welcome", "hello")
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if number != 7 {
		t.Errorf("issue number = %d, want 7", number)
	}
}

func TestCreateIssueErrorStatus(t *testing.T) {
	g := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))

	_, err := g.CreateIssue(context.Background(), "owner/fork", "t", "b")
	if err == nil {
		t.Fatal("CreateIssue should fail on 422")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error should be *character.Error, got %T", err)
	}
	if cerr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", cerr.Status)
	}
}

func TestCommentsFromUserSince(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "body": "old", "created_at": base.Add(-time.Hour), "user": map[string]any{"id": 42}},
			{"id": 2, "body": "mine", "created_at": base.Add(time.Hour), "user": map[string]any{"id": 42}},
			{"id": 3, "body": "someone else", "created_at": base.Add(time.Hour), "user": map[string]any{"id": 99}},
		})
	}))

	comments, err := g.CommentsFromUserSince(context.Background(), "owner/fork", 7, 42, base)
	if err != nil {
		t.Fatalf("CommentsFromUserSince failed: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("got %d comments, want 1: %v", len(comments), comments)
	}
	if comments[2] != "mine" {
		t.Errorf("comment 2 = %q, want mine", comments[2])
	}
}

func TestRepoCaching(t *testing.T) {
	var calls atomic.Int32
	g := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"id": 5, "full_name": "owner/fork"})
	}))

	for i := 0; i < 3; i++ {
		repo, err := g.Repo(context.Background(), "https://api.github.com/repos/owner/fork")
		if err != nil {
			t.Fatalf("Repo failed: %v", err)
		}
		if repo.FullName != "owner/fork" {
			t.Errorf("full name = %q, want owner/fork", repo.FullName)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("repo fetched %d times, want 1 (cached)", calls.Load())
	}
}

func TestSelfCaching(t *testing.T) {
	var calls atomic.Int32
	g := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"id": 1000, "login": "garrybot"})
	}))

	for i := 0; i < 2; i++ {
		self, err := g.Self(context.Background())
		if err != nil {
			t.Fatalf("Self failed: %v", err)
		}
		if self.Login != "garrybot" {
			t.Errorf("login = %q, want garrybot", self.Login)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("self fetched %d times, want 1", calls.Load())
	}
}

func TestUserForTokenUsesCallerToken(t *testing.T) {
	g := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token player-token" {
			t.Errorf("expected player token, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 42, "login": "player"})
	}))

	ident, err := g.UserForToken(context.Background(), "player-token")
	if err != nil {
		t.Fatalf("UserForToken failed: %v", err)
	}
	if ident.ID != 42 {
		t.Errorf("id = %d, want 42", ident.ID)
	}
}
