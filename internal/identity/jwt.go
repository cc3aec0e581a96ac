package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the identity provider's ID token payload. The subject carries
// the account uid; some providers duplicate it under user_id.
type Claims struct {
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// JWTVerifier validates signed JWT identity tokens.
type JWTVerifier struct {
	key  any
	opts []jwt.ParserOption
}

// NewHMACVerifier verifies HS256 tokens signed with a shared secret.
func NewHMACVerifier(secret []byte, issuer, audience string) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{
		key:  secret,
		opts: parserOptions([]string{jwt.SigningMethodHS256.Alg()}, issuer, audience),
	}, nil
}

// NewRSAVerifier verifies RS256 tokens against a PEM encoded public key.
func NewRSAVerifier(pemKey []byte, issuer, audience string) (*JWTVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("parse jwt public key: %w", err)
	}
	return &JWTVerifier{
		key:  key,
		opts: parserOptions([]string{jwt.SigningMethodRS256.Alg()}, issuer, audience),
	}, nil
}

func parserOptions(methods []string, issuer, audience string) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}

// Verify parses the token, checks signature and registered claims, and
// returns the asserted identity.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, v.opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}

	uid := claims.Subject
	if uid == "" {
		uid = claims.UserID
	}
	if uid == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UID: uid, Email: claims.Email, EmailVerified: claims.EmailVerified}, nil
}
