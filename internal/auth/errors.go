package auth

import "errors"

var (
	// ErrLoginFailed wraps every login failure surfaced to the caller. The
	// wrapped reason is for display; no partial credential survives it.
	ErrLoginFailed = errors.New("auth: login failed")
	// ErrLoginThrottled is returned when the client-side attempt limiter
	// rejects a login before it reaches the network.
	ErrLoginThrottled = errors.New("auth: too many login attempts")
	// ErrInconsistentState marks a token/profile pair whose identities do
	// not match. The pair is always purged together, never repaired.
	ErrInconsistentState = errors.New("auth: inconsistent credential state")
)
