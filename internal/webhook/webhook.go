// Package webhook parses and verifies GitHub webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadSignature is returned when a delivery's signature does not match the
// shared secret.
var ErrBadSignature = errors.New("invalid webhook signature")

// SignatureHeader carries the HMAC-SHA256 digest of the request body.
const SignatureHeader = "X-Hub-Signature-256"

// VerifySignature checks the delivery body against the sha256= signature
// header using the shared secret. The comparison is constant time.
func VerifySignature(secret, body []byte, header string) error {
	incoming, ok := strings.CutPrefix(header, "sha256=")
	if !ok || incoming == "" {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(incoming), []byte(expected)) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces the signature header value for a body, for tests and for
// local delivery tooling.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// User identifies the GitHub account in a webhook payload.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Repository identifies a repository in a webhook payload.
type Repository struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Owner    User   `json:"owner"`
	URL      string `json:"url"`
}

// ForkEvent is the payload GitHub sends when a repository is forked.
type ForkEvent struct {
	// Forkee is the newly created fork.
	Forkee Repository `json:"forkee"`

	// Repository is the repository that was forked.
	Repository Repository `json:"repository"`
}

// ParseForkEvent decodes a fork delivery body.
func ParseForkEvent(body []byte) (*ForkEvent, error) {
	var event ForkEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode fork event: %w", err)
	}
	if event.Forkee.URL == "" || event.Forkee.Owner.ID == 0 {
		return nil, errors.New("fork event missing forkee details")
	}
	return &event, nil
}

// IsFor reports whether the fork was taken from the given repository
// ("owner/name").
func (e *ForkEvent) IsFor(fullName string) bool {
	return e.Repository.FullName == fullName
}
