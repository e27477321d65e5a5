package transport

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("document not found")
	ErrNotLoggedIn  = errors.New("not logged in")
)
