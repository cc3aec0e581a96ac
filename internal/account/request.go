package account

import (
	"regexp"
	"strings"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name string `json:"name"`
}

// Validate checks the request independently of any account state.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

// PinRequest is the body of POST /create-pin and POST /verify-pin.
type PinRequest struct {
	Pin string `json:"pin"`
}

// Validate checks the PIN format.
func (r PinRequest) Validate() error {
	return ValidatePin(r.Pin)
}

// ValidatePin reports ErrInvalidPin unless pin is exactly four ASCII digits.
func ValidatePin(pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPin
	}
	return nil
}
