package auth

import "errors"

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role")
	ErrLoginDisabled      = errors.New("login disabled for role")
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrAgentRequired      = errors.New("agent name required")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrPasswordRequired = errors.New("all password fields are required")
	ErrPasswordMismatch = errors.New("new passwords do not match")
)
