// Package character is the GitHub face of the game: an authenticated bot
// account that opens issues, holds conversations in comments, and watches
// for the player's replies.
package character

import (
	"context"
	"time"
)

// ReactionType enumerates the reactions the GitHub API accepts.
// See https://docs.github.com/en/rest/reference/reactions#reaction-types
type ReactionType string

const (
	ReactionThumbsUp   ReactionType = "+1"
	ReactionThumbsDown ReactionType = "-1"
	ReactionLaugh      ReactionType = "laugh"
	ReactionConfused   ReactionType = "confused"
	ReactionHeart      ReactionType = "heart"
	ReactionHooray     ReactionType = "hooray"
	ReactionRocket     ReactionType = "rocket"
	ReactionEyes       ReactionType = "eyes"
)

// Identity describes a GitHub account.
type Identity struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Repository describes a GitHub repository.
type Repository struct {
	ID       int64    `json:"id"`
	FullName string   `json:"full_name"`
	Owner    Identity `json:"owner"`
	URL      string   `json:"url"`
}

// Client is the set of external actions quest stages may take. The engine
// never retries these; a failed call aborts the execution pass and the stage
// is retried on the next externally-triggered pass.
type Client interface {
	// Self returns the bot's own identity.
	Self(ctx context.Context) (*Identity, error)

	// Repo fetches repository metadata by API URL or "owner/name".
	Repo(ctx context.Context, repo string) (*Repository, error)

	// CreateIssue opens an issue and returns its number.
	CreateIssue(ctx context.Context, repo, title, body string) (int, error)

	// CloseIssue closes an issue.
	CloseIssue(ctx context.Context, repo string, number int) error

	// CreateComment posts a comment on an issue and returns the comment ID.
	CreateComment(ctx context.Context, repo string, number int, body string) (int64, error)

	// CommentsFromUserSince returns comment bodies by ID, restricted to
	// comments authored by userID and created after since. A zero since
	// means no lower bound.
	CommentsFromUserSince(ctx context.Context, repo string, number int, userID int64, since time.Time) (map[int64]string, error)

	// CreateIssueReaction adds a reaction to an issue's main post.
	CreateIssueReaction(ctx context.Context, repo string, number int, reaction ReactionType) error

	// CreateCommentReaction adds a reaction to a comment.
	CreateCommentReaction(ctx context.Context, repo string, commentID int64, reaction ReactionType) error

	// UserForToken resolves the account a player access token belongs to.
	// Used during sign-in to prove the player controls the account.
	UserForToken(ctx context.Context, token string) (*Identity, error)
}
