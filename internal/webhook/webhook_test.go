package webhook

import (
	"errors"
	"testing"
)

var forkPayload = []byte(`{
	"forkee": {
		"id": 999,
		"full_name": "player/forge",
		"owner": {"login": "player", "id": 1234},
		"url": "https://api.github.com/repos/player/forge"
	},
	"repository": {
		"id": 1,
		"full_name": "gitforged/forge",
		"owner": {"login": "gitforged", "id": 1},
		"url": "https://api.github.com/repos/gitforged/forge"
	}
}`)

func TestVerifySignature(t *testing.T) {
	secret := []byte("super-secret")
	body := []byte(`{"hello": "world"}`)

	if err := VerifySignature(secret, body, Sign(secret, body)); err != nil {
		t.Errorf("Valid signature rejected: %v", err)
	}
}

func TestVerifySignatureFailures(t *testing.T) {
	secret := []byte("super-secret")
	body := []byte(`{"hello": "world"}`)
	good := Sign(secret, body)

	tests := []struct {
		name   string
		body   []byte
		header string
	}{
		{"missing header", body, ""},
		{"missing prefix", body, good[len("sha256="):]},
		{"wrong secret", body, Sign([]byte("other"), body)},
		{"tampered body", []byte(`{"hello": "there"}`), good},
		{"garbage signature", body, "sha256=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifySignature(secret, tt.body, tt.header); !errors.Is(err, ErrBadSignature) {
				t.Errorf("Expected ErrBadSignature, got %v", err)
			}
		})
	}
}

func TestParseForkEvent(t *testing.T) {
	event, err := ParseForkEvent(forkPayload)
	if err != nil {
		t.Fatalf("ParseForkEvent failed: %v", err)
	}
	if event.Forkee.Owner.ID != 1234 || event.Forkee.Owner.Login != "player" {
		t.Errorf("Unexpected forkee owner: %+v", event.Forkee.Owner)
	}
	if event.Forkee.URL != "https://api.github.com/repos/player/forge" {
		t.Errorf("Unexpected forkee URL: %q", event.Forkee.URL)
	}

	if !event.IsFor("gitforged/forge") {
		t.Error("Event should match the forked repository")
	}
	if event.IsFor("someone/else") {
		t.Error("Event should not match another repository")
	}
}

func TestParseForkEventInvalid(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`so much nope`)},
		{"empty object", []byte(`{}`)},
		{"missing owner", []byte(`{"forkee": {"url": "https://example.com"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseForkEvent(tt.body); err == nil {
				t.Error("Expected error for invalid payload")
			}
		})
	}
}
