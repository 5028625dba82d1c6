package store

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("resolve token: id=%q ok=%v err=%v", userID, ok, err)
	}

	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("expected token gone after delete")
	}
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	redis.FastForward(2 * time.Minute)
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("expected token expired after TTL")
	}
}

func TestMemorySessionStore(t *testing.T) {
	s := NewMemorySessionStore()

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("resolve token: id=%q ok=%v err=%v", userID, ok, err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("expected token gone after delete")
	}
}

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := NewJWTSessionStore(testRSAKey(t), time.Minute, NewMemoryTokenRevoker(), JWTOptions{})

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("resolve token: id=%q ok=%v err=%v", userID, ok, err)
	}
}

func TestJWTSessionStoreRejectsForeignSignature(t *testing.T) {
	issuer := NewJWTSessionStore(testRSAKey(t), time.Minute, nil, JWTOptions{})
	verifier := NewJWTSessionStore(testRSAKey(t), time.Minute, nil, JWTOptions{})

	token, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := verifier.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected validation failure for foreign key")
	}
}

func TestJWTSessionStoreLogoutRevokes(t *testing.T) {
	s := NewJWTSessionStore(testRSAKey(t), time.Minute, NewMemoryTokenRevoker(), JWTOptions{})

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}

func TestJWTSessionStoreRedisRevoker(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewJWTSessionStore(testRSAKey(t), time.Minute, NewRedisTokenRevoker(redis.Addr(), ""), JWTOptions{})

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}
