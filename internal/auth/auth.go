// Package auth handles wallet login: single-use nonces signed by the
// wallet's ed25519 key, exchanged for bearer tokens naming the wallet
// address.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
)

var (
	// ErrInvalidToken indicates the token is missing, malformed, expired,
	// or signed with the wrong key.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrBadLogin indicates the login signature does not verify against
	// the wallet address.
	ErrBadLogin = errors.New("auth: login signature rejected")
)

// NonceTTL is how long an issued login nonce stays redeemable.
const NonceTTL = 5 * time.Minute

// LoginMessage is the exact text a wallet signs to prove ownership of its
// address. Clients must reproduce it byte for byte.
func LoginMessage(nonce string) string {
	return "Sign this message to login to Golden Flop. Nonce: " + nonce
}

// NewNonce returns a fresh random login nonce.
func NewNonce() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("auth: entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// VerifyLogin checks sig as the wallet's ed25519 signature over the login
// message for nonce.
func VerifyLogin(address, nonce string, sig []byte) error {
	if err := chain.VerifySignature(address, []byte(LoginMessage(nonce)), sig); err != nil {
		return fmt.Errorf("%w: %v", ErrBadLogin, err)
	}
	return nil
}

// TokenService mints and verifies HMAC-signed bearer tokens whose subject
// is a wallet address.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a token service. A non-positive ttl falls back to
// 24 hours.
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: secret, ttl: ttl}
}

// Issue returns a token naming address, valid for the service TTL.
func (t *TokenService) Issue(address string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   address,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})
	return tok.SignedString(t.secret)
}

// Verify parses token and returns the wallet address it names.
func (t *TokenService) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
