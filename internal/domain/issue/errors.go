package issue

import "errors"

var (
	// ErrInvalidScope is returned when the service rejects a story query without a project.
	ErrInvalidScope = errors.New("invalid scope: story query requires a project")
	// ErrUnauthorized indicates the API token was missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the requested remote resource doesn't exist.
	ErrNotFound = errors.New("not found")
)
