package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/otomato/pkg/eventbus"
	"github.com/dukex/otomato/pkg/events"
	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/google/uuid"
)

// Drafts keeps workflows locally until they are pushed to the API.
type Drafts struct {
	repo      persistence.DraftRepository
	workflows *Workflow
	resolver  models.DescriptorResolver
	eventBus  eventbus.EventPublisher
	logger    *slog.Logger
}

// NewDrafts creates a draft service. Pushed drafts are created through workflows.
func NewDrafts(repo persistence.DraftRepository, workflows *Workflow, resolver models.DescriptorResolver, opts ...Option) *Drafts {
	// Reuse the workflow options for logger and event bus.
	cfg := &Workflow{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Drafts{
		repo:      repo,
		workflows: workflows,
		resolver:  resolver,
		eventBus:  cfg.eventBus,
		logger:    cfg.logger.With("module", "draft_service"),
	}
}

// Save stores w as a new draft.
func (d *Drafts) Save(ctx context.Context, w *models.Workflow) (*models.Draft, error) {
	return d.Replace(ctx, uuid.NewString(), w)
}

// Replace stores w under an existing or new draft id.
func (d *Drafts) Replace(ctx context.Context, id string, w *models.Workflow) (*models.Draft, error) {
	if w == nil {
		return nil, &ServiceError{Op: "SaveDraft", Code: "invalid_request", Err: ErrWorkflowNil}
	}

	if strings.TrimSpace(w.Name) == "" {
		return nil, &ServiceError{Op: "SaveDraft", Code: "invalid_request", Err: models.ErrWorkflowNameRequired}
	}

	draft := &models.Draft{
		ID:       id,
		Name:     w.Name,
		Workflow: w.ToJSON(),
	}

	if err := d.repo.Save(ctx, draft); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "draft saved", "draft_id", draft.ID, "name", draft.Name)
	d.publish(ctx, draft.ID, events.DraftSaved{
		BaseEvent: events.NewBaseEvent(events.DraftSavedEvent, ""),
		DraftID:   draft.ID,
		Name:      draft.Name,
	})

	return draft, nil
}

func (d *Drafts) Get(ctx context.Context, id string) (*models.Draft, error) {
	return d.repo.GetByID(ctx, id)
}

func (d *Drafts) List(ctx context.Context) ([]*models.Draft, error) {
	return d.repo.GetAll(ctx)
}

// Open rebuilds the workflow graph stored in a draft.
func (d *Drafts) Open(ctx context.Context, id string) (*models.Workflow, error) {
	draft, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	w, err := models.WorkflowFromJSON(draft.Workflow, d.resolver, models.ValidateParameters())
	if err != nil {
		return nil, fmt.Errorf("failed to open draft %s: %w", id, err)
	}

	// A draft never carries a remote identity.
	w.ID = ""

	return w, nil
}

func (d *Drafts) Delete(ctx context.Context, id string) error {
	if err := d.repo.Delete(ctx, id); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "draft deleted", "draft_id", id)
	d.publish(ctx, id, events.DraftDeleted{
		BaseEvent: events.NewBaseEvent(events.DraftDeletedEvent, ""),
		DraftID:   id,
	})

	return nil
}

// Push creates the draft's workflow through the API and removes the draft.
// The draft is kept when creation fails.
func (d *Drafts) Push(ctx context.Context, id string) (*models.Workflow, error) {
	w, err := d.Open(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := d.workflows.Create(ctx, w); err != nil {
		return nil, err
	}

	if err := d.Delete(ctx, id); err != nil {
		d.logger.WarnContext(ctx, "pushed draft could not be removed", "draft_id", id, "workflow_id", w.ID, "error", err)
	}

	return w, nil
}

func (d *Drafts) publish(ctx context.Context, key string, event eventbus.Event) {
	if d.eventBus == nil {
		return
	}

	if err := d.eventBus.Publish(ctx, key, event); err != nil {
		d.logger.WarnContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
