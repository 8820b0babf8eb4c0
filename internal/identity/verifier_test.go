package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]string{{
			"kid": kid,
			"kty": "RSA",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	key := newSigningKey(t)
	srv := jwksServer(t, "key-1", &key.PublicKey)
	v := NewVerifier(srv.URL, "https://id.example.com", "abbleitura")

	token := signToken(t, key, "key-1", jwt.MapClaims{
		"iss":         "https://id.example.com",
		"aud":         "abbleitura",
		"sub":         "open-abc",
		"name":        "Ana Reader",
		"email":       "ana@example.com",
		"loginMethod": "google",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.OpenID != "open-abc" {
		t.Errorf("OpenID = %q", id.OpenID)
	}
	if id.Name != "Ana Reader" || id.Email != "ana@example.com" || id.LoginMethod != "google" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key := newSigningKey(t)
	other := newSigningKey(t)
	srv := jwksServer(t, "key-1", &key.PublicKey)
	v := NewVerifier(srv.URL, "", "")

	token := signToken(t, other, "key-1", jwt.MapClaims{
		"sub": "open-abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("token signed by a different key verified")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	key := newSigningKey(t)
	srv := jwksServer(t, "key-1", &key.PublicKey)
	v := NewVerifier(srv.URL, "", "")

	token := signToken(t, key, "key-1", jwt.MapClaims{
		"sub": "open-abc",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	key := newSigningKey(t)
	srv := jwksServer(t, "key-1", &key.PublicKey)
	v := NewVerifier(srv.URL, "https://id.example.com", "")

	token := signToken(t, key, "key-1", jwt.MapClaims{
		"iss": "https://evil.example.com",
		"sub": "open-abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("token with wrong issuer verified")
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	key := newSigningKey(t)
	srv := jwksServer(t, "key-1", &key.PublicKey)
	v := NewVerifier(srv.URL, "", "")

	token := signToken(t, key, "key-1", jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("token without subject verified")
	}
}
