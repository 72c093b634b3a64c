package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/rpggio/storytree/internal/domain/project"
	"github.com/rpggio/storytree/internal/domain/settings"
)

// ErrNodeNotFound is returned when get_children names a node missing from the current snapshot.
var ErrNodeNotFound = errors.New("node not found")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, issue.ErrInvalidScope):
		return &APIError{Code: "INVALID_SCOPE", Message: "story query requires a project", RecoveryHint: "Call select_project first"}
	case errors.Is(err, issue.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "clubhouse rejected the api token", RecoveryHint: "Run storytree login or set STORYTREE_CLUBHOUSE_TOKEN"}
	case errors.Is(err, settings.ErrNotSet):
		return &APIError{Code: "TOKEN_MISSING", Message: "no clubhouse api token configured", RecoveryHint: "Run storytree login or set STORYTREE_CLUBHOUSE_TOKEN"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects for valid IDs"}
	case errors.Is(err, ErrNodeNotFound):
		return &APIError{Code: "NODE_NOT_FOUND", Message: "node not in the current tree", RecoveryHint: "Call get_children without arguments to reload the root"}
	case errors.Is(err, issue.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "remote resource not found"}
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
