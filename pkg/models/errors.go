package models

import (
	"errors"
	"fmt"

	"github.com/dukex/otomato/pkg/validation"
)

// Schema errors, raised by parameter setters.
var (
	ErrParameterNotFound      = errors.New("parameter not found")
	ErrInvalidType            = errors.New("invalid type")
	ErrUnsupportedTriggerType = errors.New("operation not supported for this trigger type")
	ErrInvalidLogicOperator   = errors.New("logic must be 'and' or 'or'")
)

// Graph errors, raised while building or decoding a workflow.
var (
	ErrNodeNil              = errors.New("node cannot be nil")
	ErrNodeNotFound         = errors.New("node not found in workflow")
	ErrDuplicateNode        = errors.New("node already belongs to workflow")
	ErrEdgeNotFound         = errors.New("edge not found in workflow")
	ErrDuplicateEdge        = errors.New("edge already belongs to workflow")
	ErrSelfLoop             = errors.New("edge source and target are the same node")
	ErrUnknownRef           = errors.New("unknown node ref")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrUnknownCategory      = errors.New("unknown node category")
)

// ParameterError describes a failed parameter assignment.
type ParameterError struct {
	Op   string               // Setter that failed
	Node string               // Catalog name of the node
	Key  string               // Parameter key as resolved against the schema
	Type validation.ParamType // Declared type, set for ErrInvalidType
	Err  error
}

func (e *ParameterError) Error() string {
	if errors.Is(e.Err, ErrInvalidType) {
		return fmt.Sprintf("%s: invalid type for parameter %q of %q: expected %s", e.Op, e.Key, e.Node, e.Type)
	}

	return fmt.Sprintf("%s: parameter %q of %q: %v", e.Op, e.Key, e.Node, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

func (e *ParameterError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// GraphError wraps graph errors with the ref of the node involved.
type GraphError struct {
	Op  string
	Ref string
	Err error
}

func (e *GraphError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: node %s: %v", e.Op, e.Ref, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

func (e *GraphError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
