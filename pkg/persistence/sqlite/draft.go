package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

type DraftRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	validate *validator.Validate
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*models.Draft, error) {
	var (
		draft                models.Draft
		workflow             []byte
		createdAt, updatedAt int64
	)

	if err := row.Scan(&draft.ID, &draft.Name, &workflow, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(workflow, &draft.Workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow of draft %s: %w", draft.ID, err)
	}

	draft.CreatedAt = fromNanos(createdAt)
	draft.UpdatedAt = fromNanos(updatedAt)

	return &draft, nil
}

func (r *DraftRepository) GetAll(ctx context.Context) ([]*models.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, workflow, created_at, updated_at FROM drafts ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	drafts := make([]*models.Draft, 0)

	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}

		drafts = append(drafts, draft)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}

	return drafts, nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	draft, err := scanDraft(r.db.QueryRowContext(ctx,
		"SELECT id, name, workflow, created_at, updated_at FROM drafts WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDraftError("GetByID", id, persistence.ErrDraftNotFound)
		}

		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}

	return draft, nil
}

// Save upserts a draft. The stored created_at wins over the one passed in.
func (r *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if draft == nil {
		return persistence.NewDraftError("Save", "", persistence.ErrInvalidDraft)
	}

	if err := r.validate.Struct(draft); err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("%w: %w", persistence.ErrInvalidDraft, err))
	}

	workflow, err := json.Marshal(draft.Workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow of draft %s: %w", draft.ID, err)
	}

	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	draft.UpdatedAt = now

	var createdAt int64

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO drafts (id, name, workflow, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name
		  , workflow = excluded.workflow
		  , updated_at = excluded.updated_at
		RETURNING created_at
	`, draft.ID, draft.Name, workflow, draft.CreatedAt.UnixNano(), draft.UpdatedAt.UnixNano()).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}

	draft.CreatedAt = fromNanos(createdAt)

	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewDraftError("Delete", id, persistence.ErrDraftNotFound)
	}

	return nil
}
