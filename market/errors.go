package market

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateRequest   = errors.New("an active request for this book already exists")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEventFull          = errors.New("event is full")
)
