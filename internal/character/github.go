package character

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const defaultAPIBase = "https://api.github.com"

// repoCacheSize bounds the repo metadata cache; repository metadata is
// static for the lifetime of a game, so cached entries never expire.
const repoCacheSize = 256

// GitHub is the Client implementation backed by the GitHub REST v3 API.
type GitHub struct {
	base   string
	token  string
	client *http.Client

	mu    sync.Mutex
	self  *Identity
	repos *lru.Cache
}

// NewGitHub creates a client authenticated with the bot token. An empty
// apiBase selects the public GitHub API.
func NewGitHub(apiBase, token string) (*GitHub, error) {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	repos, err := lru.New(repoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create repo cache: %w", err)
	}
	return &GitHub{
		base:   strings.TrimSuffix(apiBase, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		repos:  repos,
	}, nil
}

// RepoName normalizes a repository reference (API URL, HTML URL, or
// "owner/name") into "owner/name".
func RepoName(repo string) string {
	repo = strings.TrimSuffix(repo, "/")
	parts := strings.Split(repo, "/")
	if len(parts) < 2 {
		return repo
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func (g *GitHub) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base+path, reqBody)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

// Self returns the bot's own identity, fetching it once.
func (g *GitHub) Self(ctx context.Context) (*Identity, error) {
	g.mu.Lock()
	cached := g.self
	g.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var ident Identity
	if err := g.do(ctx, "get self", http.MethodGet, "/user", g.token, nil, &ident); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.self = &ident
	g.mu.Unlock()
	return &ident, nil
}

// Repo fetches repository metadata, serving repeats from the LRU cache.
func (g *GitHub) Repo(ctx context.Context, repo string) (*Repository, error) {
	name := RepoName(repo)
	if cached, ok := g.repos.Get(name); ok {
		return cached.(*Repository), nil
	}

	var r Repository
	if err := g.do(ctx, "get repo", http.MethodGet, "/repos/"+name, g.token, nil, &r); err != nil {
		return nil, err
	}
	g.repos.Add(name, &r)
	return &r, nil
}

// CreateIssue opens an issue on the repository and returns its number.
func (g *GitHub) CreateIssue(ctx context.Context, repo, title, body string) (int, error) {
	payload := map[string]string{"title": title, "body": body}
	var issue struct {
		Number int `json:"number"`
	}
	path := fmt.Sprintf("/repos/%s/issues", RepoName(repo))
	if err := g.do(ctx, "create issue", http.MethodPost, path, g.token, payload, &issue); err != nil {
		return 0, err
	}
	return issue.Number, nil
}

// CloseIssue closes an issue.
func (g *GitHub) CloseIssue(ctx context.Context, repo string, number int) error {
	payload := map[string]string{"state": "closed"}
	path := fmt.Sprintf("/repos/%s/issues/%d", RepoName(repo), number)
	return g.do(ctx, "close issue", http.MethodPatch, path, g.token, payload, nil)
}

// CreateComment posts a comment on an issue and returns the comment ID.
func (g *GitHub) CreateComment(ctx context.Context, repo string, number int, body string) (int64, error) {
	payload := map[string]string{"body": body}
	var comment struct {
		ID int64 `json:"id"`
	}
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", RepoName(repo), number)
	if err := g.do(ctx, "create comment", http.MethodPost, path, g.token, payload, &comment); err != nil {
		return 0, err
	}
	return comment.ID, nil
}

// CommentsFromUserSince returns issue comments authored by userID and
// created after since, keyed by comment ID.
func (g *GitHub) CommentsFromUserSince(ctx context.Context, repo string, number int, userID int64, since time.Time) (map[int64]string, error) {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", RepoName(repo), number)
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	var comments []struct {
		ID        int64     `json:"id"`
		Body      string    `json:"body"`
		CreatedAt time.Time `json:"created_at"`
		User      Identity  `json:"user"`
	}
	if err := g.do(ctx, "list comments", http.MethodGet, path, g.token, nil, &comments); err != nil {
		return nil, err
	}

	result := make(map[int64]string)
	for _, c := range comments {
		if c.User.ID != userID {
			continue
		}
		if !since.IsZero() && !c.CreatedAt.After(since) {
			continue
		}
		result[c.ID] = c.Body
	}
	return result, nil
}

// CreateIssueReaction adds a reaction to an issue's main post.
func (g *GitHub) CreateIssueReaction(ctx context.Context, repo string, number int, reaction ReactionType) error {
	payload := map[string]string{"content": string(reaction)}
	path := fmt.Sprintf("/repos/%s/issues/%d/reactions", RepoName(repo), number)
	return g.do(ctx, "create issue reaction", http.MethodPost, path, g.token, payload, nil)
}

// CreateCommentReaction adds a reaction to a comment.
func (g *GitHub) CreateCommentReaction(ctx context.Context, repo string, commentID int64, reaction ReactionType) error {
	payload := map[string]string{"content": string(reaction)}
	path := fmt.Sprintf("/repos/%s/issues/comments/%d/reactions", RepoName(repo), commentID)
	return g.do(ctx, "create comment reaction", http.MethodPost, path, g.token, payload, nil)
}

// UserForToken resolves the account a player access token belongs to.
func (g *GitHub) UserForToken(ctx context.Context, token string) (*Identity, error) {
	var ident Identity
	if err := g.do(ctx, "verify token", http.MethodGet, "/user", token, nil, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}
