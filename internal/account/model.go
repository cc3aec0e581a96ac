package account

import "time"

// Account is the per-user record keyed by the identity provider's uid.
type Account struct {
	UID          string
	Name         string
	Email        string
	Balance      int64
	HasPin       bool
	PinHash      []byte
	PinCreatedAt *time.Time
	CreatedAt    time.Time
}

// Profile is the client-facing view of an account. It never carries the PIN hash.
type Profile struct {
	UID           string    `json:"uid"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Balance       int64     `json:"balance"`
	HasPin        bool      `json:"hasPin"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}
