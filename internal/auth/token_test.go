package auth

import (
	"errors"
	"testing"

	"github.com/playmatatu/orbitsim/internal/config"
)

func TestTokenRoundTrip(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", SessionTimeoutMin: 5}
	token, exp, err := IssueToken(cfg, "mission-control", []string{"operator"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if exp.IsZero() {
		t.Error("expiry should be set")
	}

	name, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if name != "mission-control" {
		t.Errorf("expected operator name back, got %q", name)
	}

	other := &config.Config{JWTSecret: "different"}
	if _, err := ParseToken(other, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret should fail, got %v", err)
	}
	if _, err := ParseToken(cfg, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token should fail, got %v", err)
	}
}
