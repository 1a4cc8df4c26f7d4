// Package persistence stores local drafts and saved API tokens.
package persistence

import (
	"context"

	"github.com/dukex/otomato/pkg/models"
)

type Persistence interface {
	DraftRepository() DraftRepository
	TokenRepository() TokenRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// DraftRepository persists workflows that have not been pushed yet.
type DraftRepository interface {
	// Save inserts or replaces a draft. CreatedAt is kept on replace and
	// UpdatedAt is set to the current time.
	Save(ctx context.Context, draft *models.Draft) error
	GetByID(ctx context.Context, id string) (*models.Draft, error)
	// GetAll returns drafts ordered by creation time, oldest first.
	GetAll(ctx context.Context) ([]*models.Draft, error)
	Delete(ctx context.Context, id string) error
}

type TokenRepository interface {
	Save(ctx context.Context, token *models.Token) error
	Get(ctx context.Context, name string) (*models.Token, error)
	Delete(ctx context.Context, name string) error
}
