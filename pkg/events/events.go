// Package events defines the local notifications emitted after workflow API calls succeed.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const Topic = "otomato.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Remote workflow lifecycle.
	WorkflowCreatedEvent EventType = "workflow.created"
	WorkflowUpdatedEvent EventType = "workflow.updated"
	WorkflowRunEvent     EventType = "workflow.run"
	WorkflowStoppedEvent EventType = "workflow.stopped"
	WorkflowDeletedEvent EventType = "workflow.deleted"
	EdgeDeletedEvent     EventType = "edge.deleted"

	// Local drafts.
	DraftSavedEvent   EventType = "draft.saved"
	DraftDeletedEvent EventType = "draft.deleted"
)

// Types lists every event type published by the services.
func Types() []EventType {
	return []EventType{
		WorkflowCreatedEvent,
		WorkflowUpdatedEvent,
		WorkflowRunEvent,
		WorkflowStoppedEvent,
		WorkflowDeletedEvent,
		EdgeDeletedEvent,
		DraftSavedEvent,
		DraftDeletedEvent,
	}
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowCreated struct {
	BaseEvent

	Name  string `json:"name"`
	State string `json:"state"`
	Nodes int    `json:"nodes"`
	Edges int    `json:"edges"`
}

func (e WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowUpdated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

// WorkflowStateChanged is published for both run and stop; Type tells which.
type WorkflowStateChanged struct {
	BaseEvent

	State         string `json:"state"`
	PreviousState string `json:"previous_state,omitempty"`
}

func (e WorkflowStateChanged) GetType() EventType {
	return e.Type
}

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

type EdgeDeleted struct {
	BaseEvent

	EdgeID string `json:"edge_id"`
}

func (e EdgeDeleted) GetType() EventType {
	return EdgeDeletedEvent
}

type DraftSaved struct {
	BaseEvent

	DraftID string `json:"draft_id"`
	Name    string `json:"name"`
}

func (e DraftSaved) GetType() EventType {
	return DraftSavedEvent
}

type DraftDeleted struct {
	BaseEvent

	DraftID string `json:"draft_id"`
}

func (e DraftDeleted) GetType() EventType {
	return DraftDeletedEvent
}
