package identity

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/pinwallet/pinwallet/internal/config"
)

var (
	// ErrInvalidToken indicates the bearer token could not be verified.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrExpiredToken indicates the bearer token was well formed but has expired.
	ErrExpiredToken = errors.New("identity token has expired")
)

// Identity is the caller as asserted by the identity provider. It carries facts
// only; account decisions are made by the account service.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Verifier turns an opaque bearer token into an authenticated Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts an ordinary function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

// Verify calls f(ctx, token).
func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// New builds the verifier selected by the identity configuration.
func New(cfg config.IdentityConfig) (Verifier, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatJWT, "":
		if cfg.JWTPublicKey != "" {
			pemKey := strings.ReplaceAll(cfg.JWTPublicKey, `\n`, "\n")
			return NewRSAVerifier([]byte(pemKey), cfg.Issuer, cfg.Audience)
		}
		return NewHMACVerifier([]byte(cfg.JWTSecret), cfg.Issuer, cfg.Audience)
	case config.TokenFormatPASETO:
		return NewPasetoVerifier(decodeKey(cfg.PasetoKey), cfg.Issuer, cfg.Audience)
	default:
		return nil, fmt.Errorf("unsupported identity token format %q", cfg.TokenFormat)
	}
}

// decodeKey accepts either a hex encoded key or the raw key bytes.
func decodeKey(key string) []byte {
	if len(key) == 64 {
		if b, err := hex.DecodeString(key); err == nil {
			return b
		}
	}
	return []byte(key)
}
