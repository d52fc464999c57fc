package api

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a request can produce. Callers branch on
// the kind, never on error strings.
type Kind int

const (
	// KindUnauthenticated means no token is stored; the user must sign in
	// before the operation can run. No request is issued.
	KindUnauthenticated Kind = iota + 1
	// KindUnauthorized means the server rejected the token (HTTP 401).
	// The session is cleared before the error is returned.
	KindUnauthorized
	// KindDomain is a structured server-side rejection (duplicate email,
	// validation failure). The message is shown to the user verbatim.
	KindDomain
	// KindNetwork is a transport-level failure: no connectivity, DNS,
	// timeout. Surfaced as a generic "could not connect" message.
	KindNetwork
	// KindPrecondition means the action was attempted before required
	// local state was loaded. No request is issued.
	KindPrecondition
)

// Error is the typed failure returned by every client call.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when one was received, else 0
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of err, or 0 when err is not an api error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsAuthFailure reports whether err means the user must re-authenticate,
// either because no token exists or because the server rejected it.
func IsAuthFailure(err error) bool {
	k := KindOf(err)
	return k == KindUnauthenticated || k == KindUnauthorized
}
