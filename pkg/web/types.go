// Package web is an in-memory implementation of the workflow automation REST API.
package web

import (
	"github.com/dukex/otomato/pkg/models"
)

// ErrorResponse is the plain error body used outside problem responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WorkflowRequest is the body of POST /workflows and PATCH /workflows/:id.
type WorkflowRequest struct {
	Name     string            `json:"name"               validate:"required,min=1"`
	Nodes    []models.NodeJSON `json:"nodes"              validate:"dive"`
	Edges    []models.EdgeJSON `json:"edges"              validate:"dive"`
	Settings *models.Settings  `json:"settings,omitempty"`
}

type LoginPayloadRequest struct {
	Address string `json:"address" validate:"required"`
	ChainID int    `json:"chainId" validate:"required,gt=0"`
}

type TokenRequest struct {
	Payload   map[string]any `json:"payload"   validate:"required"`
	Signature string         `json:"signature" validate:"required"`
}

type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type VerifyContractsRequest struct {
	ChainID   int      `json:"chainId"   validate:"required,gt=0"`
	Addresses []string `json:"addresses" validate:"required,min=1"`
}

// ListResponse mirrors the paging envelope of GET /workflows.
type ListResponse struct {
	Data   []models.WorkflowJSON `json:"data"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

// SessionKeyPermissions lists what a session key must be allowed to call to
// execute a workflow.
type SessionKeyPermissions struct {
	ApprovedTargets []string `json:"approvedTargets"`
	ChainIDs        []int    `json:"chainIds"`
	Label           []string `json:"label"`
}
