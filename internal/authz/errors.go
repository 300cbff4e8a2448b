package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired indicates the backend rejected the session itself (401).
	// It invalidates the actor, not just the attempted action.
	ErrSessionExpired = errors.New("authz: session expired")
	// ErrForbidden indicates a server-side 403 despite a locally allowed check.
	// The session stays valid; the actor simply lacks rights for that action.
	ErrForbidden = errors.New("authz: forbidden by server")
)

// PermissionDeniedError is raised by the request gate before transmission when
// the actor lacks the required permission. It is an expected outcome, never a
// crash, and is never retried.
type PermissionDeniedError struct {
	Method     string
	Path       string
	Permission Permission
	Reason     string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("authz: %s %s denied: %s", e.Method, e.Path, e.Reason)
	}
	return fmt.Sprintf("authz: %s %s denied: missing %s", e.Method, e.Path, e.Permission.ID())
}

// Denied constructs a PermissionDeniedError for the given request and permission.
func Denied(method, path string, p Permission) *PermissionDeniedError {
	return &PermissionDeniedError{Method: method, Path: path, Permission: p}
}
