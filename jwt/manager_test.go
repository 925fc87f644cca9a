package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseHS256(t *testing.T) {
	mgr, err := NewManager(Config{
		TTL:        time.Hour,
		PrivateKey: []byte("secret"),
		Issuer:     "mp-api",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := mgr.Issue("u-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Expired(time.Now()) {
		t.Fatal("fresh token reported expired")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewManager(Config{TTL: time.Hour, PrivateKey: []byte("a")})
	verifier, _ := NewManager(Config{TTL: time.Hour, PrivateKey: []byte("b")})

	token, err := issuer.Issue("u", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	mgr, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := mgr.Issue("u", "bob")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := mgr.Parse(token); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero ttl", cfg: Config{PrivateKey: []byte("k")}},
		{name: "missing hs256 key", cfg: Config{TTL: time.Minute}},
		{name: "bad leeway", cfg: Config{TTL: time.Minute, PrivateKey: []byte("k"), Leeway: time.Hour}},
		{name: "unknown method", cfg: Config{TTL: time.Minute, SigningMethod: "rs512"}},
		{name: "ed25519 without public key", cfg: Config{TTL: time.Minute, SigningMethod: MethodEd25519}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInspectReadsClaimsWithoutKey(t *testing.T) {
	mgr, _ := NewManager(Config{TTL: 30 * time.Minute, PrivateKey: []byte("server-only")})
	token, err := mgr.Issue("u-9", "dave")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Username != "dave" || claims.UserID != "u-9" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Expiry().IsZero() {
		t.Fatal("expected expiry")
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	if _, err := Inspect("abc"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT, got %v", err)
	}
	if _, err := Inspect("a.b.c"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT for malformed segments, got %v", err)
	}
}
