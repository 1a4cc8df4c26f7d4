package web

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/registry"
	"github.com/dukex/otomato/pkg/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type APIHandlers struct {
	logger    *slog.Logger
	store     *Store
	registry  *registry.Registry
	validator *validator.Validate
	tokenTTL  time.Duration
}

func NewAPIHandlers(
	logger *slog.Logger,
	store *Store,
	registry *registry.Registry,
	validator *validator.Validate,
	tokenTTL time.Duration,
) *APIHandlers {
	return &APIHandlers{
		logger:    logger,
		store:     store,
		registry:  registry,
		validator: validator,
		tokenTTL:  tokenTTL,
	}
}

// decodeWorkflow binds and validates a workflow body, then checks it can be
// rebuilt from the catalog.
func (h *APIHandlers) decodeWorkflow(c fiber.Ctx) (models.WorkflowJSON, error) {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return models.WorkflowJSON{}, errors.New("invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return models.WorkflowJSON{}, err
	}

	data := models.WorkflowJSON{
		Name:     req.Name,
		Nodes:    req.Nodes,
		Edges:    req.Edges,
		Settings: req.Settings,
	}

	if data.Nodes == nil {
		data.Nodes = []models.NodeJSON{}
	}

	if data.Edges == nil {
		data.Edges = []models.EdgeJSON{}
	}

	seen := make(map[string]bool, len(data.Nodes))
	for _, n := range data.Nodes {
		if seen[n.Ref] {
			return models.WorkflowJSON{}, fmt.Errorf("duplicate node ref %q", n.Ref)
		}

		seen[n.Ref] = true
	}

	if _, err := models.WorkflowFromJSON(data, h.registry, models.AllowSelfLoops(), models.ValidateParameters()); err != nil {
		return models.WorkflowJSON{}, err
	}

	return data, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	data, err := h.decodeWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created := h.store.CreateWorkflow(data)
	h.logger.Info("Workflow created", "workflow_id", created.ID, "nodes", len(created.Nodes), "edges", len(created.Edges))

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return badRequest(c, "Invalid offset")
	}

	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		return badRequest(c, "Invalid limit")
	}

	limit = min(limit, maxListLimit)

	page, total := h.store.List(offset, limit, c.Query("state"))

	return c.JSON(ListResponse{Data: page, Total: total, Offset: offset, Limit: limit})
}

func queryInt(c fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}

	return strconv.Atoi(raw)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	w, err := h.store.Workflow(c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(w)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.store.Workflow(id); err != nil {
		return handleStoreError(c, err)
	}

	data, err := h.decodeWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.store.UpdateWorkflow(id, data)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.store.DeleteWorkflow(c.Params("id")); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	return h.transition(c, models.WorkflowStateActive)
}

func (h *APIHandlers) StopWorkflow(c fiber.Ctx) error {
	return h.transition(c, models.WorkflowStateInactive)
}

func (h *APIHandlers) transition(c fiber.Ctx, state string) error {
	w, err := h.store.SetState(c.Params("id"), state)
	if err != nil {
		return handleStoreError(c, err)
	}

	h.logger.Info("Workflow state changed", "workflow_id", w.ID, "state", state)

	return c.JSON(fiber.Map{"id": w.ID, "state": w.State})
}

// GetSessionKeyPermissions derives the call targets a session key needs from
// the contract addresses and chain ids used by the workflow nodes.
func (h *APIHandlers) GetSessionKeyPermissions(c fiber.Ctx) error {
	w, err := h.store.Workflow(c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	out := SessionKeyPermissions{ApprovedTargets: []string{}, ChainIDs: []int{}, Label: []string{}}

	for _, n := range w.Nodes {
		if address, ok := n.Parameters[models.ParamContractAddress].(string); ok && validation.IsAddress(address) {
			address = validation.ChecksumAddress(address)
			if !slices.Contains(out.ApprovedTargets, address) {
				out.ApprovedTargets = append(out.ApprovedTargets, address)
			}
		}

		if chainID, ok := n.Parameters[models.ParamChainID].(float64); ok && !slices.Contains(out.ChainIDs, int(chainID)) {
			out.ChainIDs = append(out.ChainIDs, int(chainID))
		}

		if d, err := h.registry.Descriptor(n.Type, n.ID); err == nil && n.Type == models.CategoryTypeAction {
			out.Label = append(out.Label, d.Name)
		}
	}

	return c.JSON(out)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	if err := h.store.DeleteEdge(c.Params("id")); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GenerateLoginPayload(c fiber.Ctx) error {
	var req LoginPayloadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !validation.IsAddress(req.Address) {
		return badRequest(c, "Invalid address")
	}

	return c.JSON(fiber.Map{
		"domain":    c.Hostname(),
		"address":   validation.ChecksumAddress(req.Address),
		"chainId":   req.ChainID,
		"statement": "Sign in to create and run workflows",
		"nonce":     uuid.NewString(),
		"issuedAt":  time.Now().UTC().Format(time.RFC3339),
	})
}

// IssueToken trusts the signature; verifying it is the real API's job.
func (h *APIHandlers) IssueToken(c fiber.Ctx) error {
	var req TokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	address, _ := req.Payload["address"].(string)
	if !validation.IsAddress(address) {
		return badRequest(c, "Payload address is missing or invalid")
	}

	token, expiresAt := h.store.IssueToken(address, h.tokenTTL)

	return c.JSON(fiber.Map{"token": token, "expiresAt": expiresAt})
}

func (h *APIHandlers) VerifyToken(c fiber.Ctx) error {
	var req VerifyTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	address, err := h.store.TokenAddress(req.Token)
	if err != nil {
		return c.JSON(fiber.Map{"valid": false})
	}

	return c.JSON(fiber.Map{"valid": true, "address": address})
}

func (h *APIHandlers) VerifyContracts(c fiber.Ctx) error {
	var req VerifyContractsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	verified := make(map[string]bool, len(req.Addresses))
	for _, address := range req.Addresses {
		verified[address] = validation.IsAddress(address)
	}

	return c.JSON(fiber.Map{"verified": verified})
}

// RequireToken rejects requests without a bearer token the API knows about.
func (h *APIHandlers) RequireToken(static []string) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !found || token == "" {
			return unauthorized(c)
		}

		if slices.Contains(static, token) {
			return c.Next()
		}

		if _, err := h.store.TokenAddress(token); err != nil {
			return unauthorized(c)
		}

		return c.Next()
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := fiber.StatusOK

	if len(h.registry.Triggers()) == 0 && len(h.registry.Actions()) == 0 {
		status = "unhealthy"
		httpStatus = fiber.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
