package account

import "errors"

var (
	// ErrNameRequired is returned when registration carries no usable name.
	ErrNameRequired = errors.New("name is required")
	// ErrInvalidPin is returned for any PIN that is not exactly four decimal digits.
	ErrInvalidPin = errors.New("PIN must be a 4-digit number")
	// ErrAccountExists indicates an account is already registered for the uid.
	ErrAccountExists = errors.New("user already exists")
	// ErrAccountNotFound indicates no account is registered for the uid.
	ErrAccountNotFound = errors.New("user not found")
	// ErrPinAlreadySet indicates the write-once PIN has already been created.
	ErrPinAlreadySet = errors.New("PIN already set")
	// ErrPinNotSet indicates verification was attempted before PIN creation.
	ErrPinNotSet = errors.New("PIN not set")
	// ErrIncorrectPin indicates the supplied PIN does not match the stored hash.
	ErrIncorrectPin = errors.New("incorrect PIN")
)
