package service

import "errors"

// Errors returned by the services.  Callers match them with errors.Is; the
// HTTP layer maps each one to a status code in a single place.
var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrInvalidCredentials is returned for an unknown user and a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid username/password")
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUnauthorized means the requester has no rights over the message.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the message (or user) does not exist.
	ErrNotFound = errors.New("not found")
)
