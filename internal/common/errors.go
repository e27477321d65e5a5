// Package common defines shared constants and sentinel errors used across
// client and server layers of DocSafe. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Key lifecycle errors.
	ErrDerivationFailed = errors.New("key derivation failed")
	ErrNoKey            = errors.New("no key resident")

	// Crypto errors. Wrong key and tampered data are deliberately
	// indistinguishable.
	ErrAuthenticationFailed = errors.New("cannot decrypt")

	// Session restoration errors. Always self-healed to the locked state,
	// never surfaced to the user.
	ErrCorruptRestorable = errors.New("corrupt restorable session data")

	// Service-level errors (generic/internal flow control).
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
