package app

import (
	"errors"
	"fmt"
)

// Category errors. Service methods wrap one of these with a
// user-facing message; the HTTP layer maps the category to a status
// code with errors.Is.
var (
	ErrValidation   = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrCapacity     = errors.New("challenge is full")
)

// Join and cancel conflicts are part of the conflict category but
// keep the 400 status the original API contract used, so the HTTP
// layer matches them before the generic category.
var (
	ErrChallengeClosed = fmt.Errorf("challenge is closed: %w", ErrConflict)
	ErrAlreadyJoined   = fmt.Errorf("already participating in this challenge: %w", ErrConflict)
	ErrCancelConflict  = fmt.Errorf("only waiting applications can be cancelled: %w", ErrConflict)
)

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is shown to end users and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrNicknameAlreadyExists = errors.New("nickname already exists")
	ErrRefreshTokenRequired  = errors.New("refresh token required")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
)
