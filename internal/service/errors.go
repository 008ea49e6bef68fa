package service

import "errors"

// Every flow fails with one of these; the HTTP layer maps them to status codes and messages.
var (
	ErrValidation            = errors.New("validation error")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("incorrect email or password")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	ErrUnauthorized          = errors.New("could not validate credentials")
	ErrForbidden             = errors.New("not enough permissions")
	ErrNotFound              = errors.New("user not found")
	ErrStorage               = errors.New("storage unavailable")
)
