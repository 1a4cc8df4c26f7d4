// Package services drives workflows and drafts through the remote API.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotCreated is returned by operations that need an API id
	// on a workflow that was never created or has been deleted.
	ErrWorkflowNotCreated = errors.New("workflow has not been created")

	// ErrEdgeNotCreated is returned when deleting an edge the API never assigned an id to.
	ErrEdgeNotCreated = errors.New("edge has not been created")

	// ErrInvalidResponse is returned when a 2xx response lacks what the operation needs.
	ErrInvalidResponse = errors.New("invalid API response")

	ErrWorkflowNil = errors.New("workflow cannot be nil")
	ErrEdgeNil     = errors.New("edge cannot be nil")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Short machine-readable code
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func notCreated(op string) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "workflow_not_created",
		Message: "workflow has no id, create it first",
		Err:     ErrWorkflowNotCreated,
	}
}

// IsNotCreated reports whether err means the workflow or edge has no API id yet.
func IsNotCreated(err error) bool {
	return errors.Is(err, ErrWorkflowNotCreated) || errors.Is(err, ErrEdgeNotCreated)
}
