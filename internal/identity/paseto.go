package identity

import (
	"context"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

// PasetoVerifier validates PASETO v4.local identity tokens.
type PasetoVerifier struct {
	key      paseto.V4SymmetricKey
	issuer   string
	audience string
}

// NewPasetoVerifier builds a verifier around a 32 byte symmetric key.
func NewPasetoVerifier(key []byte, issuer, audience string) (*PasetoVerifier, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("paseto key must be exactly 32 bytes, got %d", len(key))
	}
	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create paseto key: %w", err)
	}
	return &PasetoVerifier{key: symmetric, issuer: issuer, audience: audience}, nil
}

// Verify decrypts the token and returns the asserted identity. The exp claim
// is required; a token past it yields ErrExpiredToken.
func (v *PasetoVerifier) Verify(_ context.Context, token string) (Identity, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	if v.issuer != "" {
		parser.AddRule(paseto.IssuedBy(v.issuer))
	}
	if v.audience != "" {
		parser.AddRule(paseto.ForAudience(v.audience))
	}

	parsed, err := parser.ParseV4Local(v.key, token, nil)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	exp, err := parsed.GetExpiration()
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if time.Now().After(exp) {
		return Identity{}, ErrExpiredToken
	}

	uid, err := parsed.GetSubject()
	if err != nil || uid == "" {
		if uid, err = parsed.GetString("user_id"); err != nil || uid == "" {
			return Identity{}, ErrInvalidToken
		}
	}

	id := Identity{UID: uid}
	if email, err := parsed.GetString("email"); err == nil {
		id.Email = email
	}
	var verified bool
	if err := parsed.Get("email_verified", &verified); err == nil {
		id.EmailVerified = verified
	}
	return id, nil
}
