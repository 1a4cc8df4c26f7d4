package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/dukex/otomato/pkg/models"
)

const (
	pathGeneratePayload = "/auth/generate-payload"
	pathToken           = "/auth/token"
	pathVerifyToken     = "/auth/verify-token"
	pathVerifyContracts = "/auth/verify-contracts"
	pathWorkflows       = "/workflows"
)

type LoginPayloadRequest struct {
	Address string `json:"address"`
	ChainID int    `json:"chainId"`
}

// LoginPayload is the message the wallet signs; the API brokers its format.
type LoginPayload map[string]any

type TokenRequest struct {
	Payload   LoginPayload `json:"payload"`
	Signature string       `json:"signature"`
}

type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type VerifyTokenResponse struct {
	Valid   bool   `json:"valid"`
	Address string `json:"address,omitempty"`
}

type VerifyContractsRequest struct {
	ChainID   int      `json:"chainId"`
	Addresses []string `json:"addresses"`
}

type VerifyContractsResponse struct {
	Verified map[string]bool `json:"verified"`
}

// GenerateLoginPayload asks the API for a sign-in message for address.
func (c *Client) GenerateLoginPayload(ctx context.Context, req LoginPayloadRequest) (LoginPayload, error) {
	resp, err := c.Post(ctx, pathGeneratePayload, req)
	if err != nil {
		return nil, err
	}

	var payload LoginPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// Token exchanges a signed login payload for a bearer token.
func (c *Client) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	resp, err := c.Post(ctx, pathToken, req)
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) VerifyToken(ctx context.Context, token string) (*VerifyTokenResponse, error) {
	resp, err := c.Post(ctx, pathVerifyToken, map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	var out VerifyTokenResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) VerifyContracts(ctx context.Context, req VerifyContractsRequest) (*VerifyContractsResponse, error) {
	resp, err := c.Post(ctx, pathVerifyContracts, req)
	if err != nil {
		return nil, err
	}

	var out VerifyContractsResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListWorkflowsRequest filters and pages GET /workflows. Zero values are omitted.
type ListWorkflowsRequest struct {
	Offset int
	Limit  int
	State  string
}

func (r ListWorkflowsRequest) query() url.Values {
	q := url.Values{}

	if r.Offset > 0 {
		q.Set("offset", strconv.Itoa(r.Offset))
	}

	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}

	if r.State != "" {
		q.Set("state", r.State)
	}

	return q
}

type WorkflowPage struct {
	Data   []models.WorkflowJSON `json:"data"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

func (c *Client) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*WorkflowPage, error) {
	resp, err := c.Get(ctx, pathWorkflows, req.query())
	if err != nil {
		return nil, err
	}

	var page WorkflowPage
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}

	return &page, nil
}
