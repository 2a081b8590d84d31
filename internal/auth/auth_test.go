package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
)

func TestVerifyLogin(t *testing.T) {
	keys, err := chain.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	nonce := NewNonce()
	sig := keys.Sign([]byte(LoginMessage(nonce)))

	if err := VerifyLogin(keys.Address(), nonce, sig); err != nil {
		t.Fatalf("expected valid login, got %v", err)
	}
}

func TestVerifyLogin_WrongNonce(t *testing.T) {
	keys, err := chain.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	sig := keys.Sign([]byte(LoginMessage("nonce-a")))

	if err := VerifyLogin(keys.Address(), "nonce-b", sig); !errors.Is(err, ErrBadLogin) {
		t.Errorf("expected ErrBadLogin, got %v", err)
	}
}

func TestVerifyLogin_WrongKey(t *testing.T) {
	owner, err := chain.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	imposter, err := chain.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	nonce := NewNonce()
	sig := imposter.Sign([]byte(LoginMessage(nonce)))

	if err := VerifyLogin(owner.Address(), nonce, sig); !errors.Is(err, ErrBadLogin) {
		t.Errorf("expected ErrBadLogin, got %v", err)
	}
}

func TestVerifyLogin_BadAddress(t *testing.T) {
	if err := VerifyLogin("not-an-address", NewNonce(), []byte("sig")); !errors.Is(err, ErrBadLogin) {
		t.Errorf("expected ErrBadLogin for undecodable address, got %v", err)
	}
}

func TestNewNonce_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewNonce()
		if len(n) != 32 {
			t.Fatalf("expected 32 hex chars, got %d", len(n))
		}
		if seen[n] {
			t.Fatalf("nonce %s repeated", n)
		}
		seen[n] = true
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Hour)

	token, err := svc.Issue("wallet-addr-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	addr, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if addr != "wallet-addr-1" {
		t.Errorf("expected wallet-addr-1, got %s", addr)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Nanosecond)

	token, err := svc.Issue("wallet-addr-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := NewTokenService([]byte("secret-a"), time.Hour)
	verifier := NewTokenService([]byte("secret-b"), time.Hour)

	token, err := issuer.Issue("wallet-addr-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestTokenService_EmptyToken(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Hour)

	if _, err := svc.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Hour)

	if _, err := svc.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage token, got %v", err)
	}
}

func TestTokenService_DefaultTTL(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), 0)
	if svc.ttl != 24*time.Hour {
		t.Errorf("expected 24h default TTL, got %v", svc.ttl)
	}
}
