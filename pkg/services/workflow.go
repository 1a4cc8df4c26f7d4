package services

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/dukex/otomato/pkg/client"
	"github.com/dukex/otomato/pkg/eventbus"
	"github.com/dukex/otomato/pkg/events"
	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/otomato/pkg/services"

// Workflow manages the remote lifecycle of workflows.
type Workflow struct {
	client   *client.Client
	resolver models.DescriptorResolver
	eventBus eventbus.EventPublisher
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Workflow)

// WithEventBus publishes a lifecycle event after every successful call.
func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(s *Workflow) { s.eventBus = bus }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Workflow) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Workflow) { s.tracer = tracer }
}

// NewWorkflow creates a new workflow service. The resolver is used to
// rehydrate workflows fetched from the API, usually a *registry.Registry.
func NewWorkflow(apiClient *client.Client, resolver models.DescriptorResolver, opts ...Option) *Workflow {
	s := &Workflow{
		client:   apiClient,
		resolver: resolver,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("module", "workflow_service")

	return s
}

type stateResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func workflowPath(id string) string {
	return "/workflows/" + url.PathEscape(id)
}

func (s *Workflow) startSpan(ctx context.Context, name string, w *models.Workflow) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{}
	if w != nil {
		attrs = append(attrs,
			attribute.String(otelhelper.WorkflowIDKey, w.ID),
			attribute.String(otelhelper.WorkflowNameKey, w.Name),
		)
	}

	return otelhelper.StartSpan(ctx, s.tracer, "services.workflow."+name, attrs...)
}

func (s *Workflow) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(ctx, workflowID, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"workflow_id", workflowID,
			"error", err)
	}
}

// Create submits a new workflow. On success the workflow carries the id and
// state reported by the API, and each edge gets the id the API assigned to
// the edge with the same source and target refs.
func (s *Workflow) Create(ctx context.Context, w *models.Workflow) error {
	const op = "Create"

	if w == nil {
		return &ServiceError{Op: op, Code: "invalid_request", Err: ErrWorkflowNil}
	}

	ctx, span := s.startSpan(ctx, "create", w)
	defer span.End()

	if err := w.Validate(); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	resp, err := s.client.Post(ctx, "/workflows", w.ToJSON())
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	var created models.WorkflowJSON
	if err := resp.Decode(&created); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if created.ID == "" {
		err := &ServiceError{Op: op, Code: "invalid_response", Message: "created workflow has no id", Err: ErrInvalidResponse}
		otelhelper.SetError(span, err)

		return err
	}

	w.ID = created.ID
	w.SetState(created.State)
	assignEdgeIDs(w, created.Edges)

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowIDKey, w.ID),
		attribute.String(otelhelper.WorkflowStateKey, w.State()),
	)

	s.logger.InfoContext(ctx, "workflow created", "workflow_id", w.ID, "state", w.State())

	s.publish(ctx, w.ID, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, w.ID),
		Name:      w.Name,
		State:     w.State(),
		Nodes:     len(w.Nodes()),
		Edges:     len(w.Edges()),
	})

	return nil
}

// assignEdgeIDs copies server edge ids onto local edges without one.
func assignEdgeIDs(w *models.Workflow, remote []models.EdgeJSON) {
	for _, ej := range remote {
		if ej.ID == nil || *ej.ID == "" {
			continue
		}

		for _, e := range w.Edges() {
			if e.ID == "" && e.Source.Ref() == ej.Source && e.Target.Ref() == ej.Target {
				e.ID = *ej.ID

				break
			}
		}
	}
}

// Update replaces the remote graph with the local one.
func (s *Workflow) Update(ctx context.Context, w *models.Workflow) error {
	const op = "Update"

	if err := requireCreated(op, w); err != nil {
		return err
	}

	ctx, span := s.startSpan(ctx, "update", w)
	defer span.End()

	if err := w.Validate(); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	resp, err := s.client.Patch(ctx, workflowPath(w.ID), w.ToJSON())
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	var updated models.WorkflowJSON
	if err := resp.Decode(&updated); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if updated.State != "" {
		w.SetState(updated.State)
	}

	assignEdgeIDs(w, updated.Edges)

	s.logger.InfoContext(ctx, "workflow updated", "workflow_id", w.ID)

	s.publish(ctx, w.ID, events.WorkflowUpdated{
		BaseEvent: events.NewBaseEvent(events.WorkflowUpdatedEvent, w.ID),
		Name:      w.Name,
	})

	return nil
}

// Run activates the workflow.
func (s *Workflow) Run(ctx context.Context, w *models.Workflow) error {
	return s.transition(ctx, "Run", "run", events.WorkflowRunEvent, w)
}

// Stop deactivates the workflow.
func (s *Workflow) Stop(ctx context.Context, w *models.Workflow) error {
	return s.transition(ctx, "Stop", "stop", events.WorkflowStoppedEvent, w)
}

func (s *Workflow) transition(ctx context.Context, op, action string, eventType events.EventType, w *models.Workflow) error {
	if err := requireCreated(op, w); err != nil {
		return err
	}

	ctx, span := s.startSpan(ctx, action, w)
	defer span.End()

	resp, err := s.client.Post(ctx, workflowPath(w.ID)+"/"+action, nil)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	var state stateResponse
	if err := resp.Decode(&state); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	previous := w.State()
	if state.State != "" {
		w.SetState(state.State)
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowStateKey, w.State()))
	s.logger.InfoContext(ctx, "workflow state changed", "workflow_id", w.ID, "from", previous, "to", w.State())

	s.publish(ctx, w.ID, events.WorkflowStateChanged{
		BaseEvent:     events.NewBaseEvent(eventType, w.ID),
		State:         w.State(),
		PreviousState: previous,
	})

	return nil
}

// Delete removes the workflow from the API and clears its local id.
func (s *Workflow) Delete(ctx context.Context, w *models.Workflow) error {
	const op = "Delete"

	if err := requireCreated(op, w); err != nil {
		return err
	}

	ctx, span := s.startSpan(ctx, "delete", w)
	defer span.End()

	if _, err := s.client.Delete(ctx, workflowPath(w.ID)); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	id := w.ID
	w.ID = ""

	s.logger.InfoContext(ctx, "workflow deleted", "workflow_id", id)

	s.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
	})

	return nil
}

// Load fetches a workflow by id and rebuilds its graph.
func (s *Workflow) Load(ctx context.Context, id string) (*models.Workflow, error) {
	if id == "" {
		return nil, notCreated("Load")
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.workflow.load",
		attribute.String(otelhelper.WorkflowIDKey, id))
	defer span.End()

	data, err := s.fetch(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	w, err := models.WorkflowFromJSON(data, s.resolver, models.AllowSelfLoops())
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return w, nil
}

// Reload replaces the graph of w with the one stored remotely. The
// workflow pointer keeps its identity; node and edge values are replaced.
func (s *Workflow) Reload(ctx context.Context, w *models.Workflow) error {
	if err := requireCreated("Reload", w); err != nil {
		return err
	}

	fresh, err := s.Load(ctx, w.ID)
	if err != nil {
		return err
	}

	*w = *fresh

	return nil
}

func (s *Workflow) fetch(ctx context.Context, id string) (models.WorkflowJSON, error) {
	resp, err := s.client.Get(ctx, workflowPath(id), nil)
	if err != nil {
		return models.WorkflowJSON{}, err
	}

	var data models.WorkflowJSON
	if err := resp.Decode(&data); err != nil {
		return models.WorkflowJSON{}, err
	}

	return data, nil
}

// SessionKeyPermissions returns the permissions a session key needs to run
// the workflow, as reported by the API.
func (s *Workflow) SessionKeyPermissions(ctx context.Context, w *models.Workflow) (map[string]any, error) {
	if err := requireCreated("SessionKeyPermissions", w); err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "session_key_permissions", w)
	defer span.End()

	resp, err := s.client.Get(ctx, workflowPath(w.ID)+"/session-key-permissions", nil)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	permissions := map[string]any{}
	if err := resp.Decode(&permissions); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return permissions, nil
}

// List returns one page of workflows, rehydrated against the catalog.
func (s *Workflow) List(ctx context.Context, req client.ListWorkflowsRequest) ([]*models.Workflow, int, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.workflow.list")
	defer span.End()

	page, err := s.client.ListWorkflows(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, 0, err
	}

	workflows := make([]*models.Workflow, 0, len(page.Data))

	for _, data := range page.Data {
		w, err := models.WorkflowFromJSON(data, s.resolver, models.AllowSelfLoops())
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, 0, err
		}

		workflows = append(workflows, w)
	}

	return workflows, page.Total, nil
}

// DeleteEdge removes an edge remotely and clears its id. The local graph is
// left unchanged; callers remove the edge from the workflow themselves.
func (s *Workflow) DeleteEdge(ctx context.Context, e *models.Edge) error {
	const op = "DeleteEdge"

	if e == nil {
		return &ServiceError{Op: op, Code: "invalid_request", Err: ErrEdgeNil}
	}

	if e.ID == "" {
		return &ServiceError{Op: op, Code: "edge_not_created", Message: "edge has no id", Err: ErrEdgeNotCreated}
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.workflow.delete_edge",
		attribute.String(otelhelper.EdgeIDKey, e.ID))
	defer span.End()

	if _, err := s.client.Delete(ctx, "/edges/"+url.PathEscape(e.ID)); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	id := e.ID
	e.ID = ""

	s.publish(ctx, id, events.EdgeDeleted{
		BaseEvent: events.NewBaseEvent(events.EdgeDeletedEvent, ""),
		EdgeID:    id,
	})

	return nil
}

func requireCreated(op string, w *models.Workflow) error {
	if w == nil {
		return &ServiceError{Op: op, Code: "invalid_request", Err: ErrWorkflowNil}
	}

	if w.ID == "" {
		return notCreated(op)
	}

	return nil
}
