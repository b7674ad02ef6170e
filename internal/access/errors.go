package access

import "errors"

var (
	// ErrNotAuthenticated is returned when a session operation requires an
	// authenticated user and the session is not in that state.
	ErrNotAuthenticated = errors.New("session is not authenticated")

	// ErrIdentityUnavailable is the AuthError of the core: the identity
	// provider could not resolve a usable identity. The session moves to
	// AccessDenied; recovery is re-authentication, not a retry.
	ErrIdentityUnavailable = errors.New("identity could not be resolved")

	// ErrSuperseded indicates an initialize call was overtaken by a newer
	// state transition and its response was discarded.
	ErrSuperseded = errors.New("initialization superseded by a newer session transition")
)

// PermissionError rejects an administrative action attempted by a caller
// lacking the required role. It is always raised locally, before any store
// call, and is never retried.
type PermissionError struct {
	Reason string
}

// Error implements the error interface
func (e *PermissionError) Error() string {
	return e.Reason
}

// NewPermissionError creates a PermissionError with a human-readable reason.
func NewPermissionError(reason string) *PermissionError {
	return &PermissionError{Reason: reason}
}

// IsPermissionError checks if an error is a PermissionError and returns it.
func IsPermissionError(err error) (*PermissionError, bool) {
	var permErr *PermissionError
	if errors.As(err, &permErr) {
		return permErr, true
	}
	return nil, false
}
