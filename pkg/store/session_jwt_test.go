package store

import (
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	store, err := NewJWTSessionStore("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	token, err := store.NewSession(42)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	userID, ok, err := store.UserIDFromToken(token)
	if err != nil {
		t.Fatalf("UserIDFromToken: %v", err)
	}
	if !ok {
		t.Fatal("expected token to verify")
	}
	if userID != 42 {
		t.Fatalf("userID = %d, want 42", userID)
	}
}

func TestSessionRejectsGarbage(t *testing.T) {
	store, err := NewJWTSessionStore("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, ok, _ := store.UserIDFromToken(token); ok {
			t.Fatalf("token %q verified, want rejection", token)
		}
	}
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewJWTSessionStore("issuer-secret-0123456789", time.Hour)
	verifier, _ := NewJWTSessionStore("another-secret-0123456789", time.Hour)
	token, err := issuer.NewSession(7)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := verifier.UserIDFromToken(token); ok {
		t.Fatal("token signed with different secret verified")
	}
}

func TestSessionRejectsExpired(t *testing.T) {
	store, err := NewJWTSessionStore("test-secret-0123456789", time.Millisecond)
	if err != nil {
		t.Fatalf("NewJWTSessionStore: %v", err)
	}
	token, err := store.NewSession(1)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := store.UserIDFromToken(token); ok {
		t.Fatal("expired token verified")
	}
}

func TestSessionSecretTooShort(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
