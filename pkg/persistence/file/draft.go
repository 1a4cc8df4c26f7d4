package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// DraftRepository stores one JSON file per draft under <root>/drafts.
type DraftRepository struct {
	root     string
	validate *validator.Validate
}

func NewDraftRepository(root string, validate *validator.Validate) *DraftRepository {
	return &DraftRepository{root: root, validate: validate}
}

func (dr *DraftRepository) dir() string {
	return path.Join(dr.root, "drafts")
}

func (dr *DraftRepository) filePath(id string) string {
	return filepath.Clean(path.Join(dr.dir(), filepath.Base(id)+".json"))
}

// GetAll returns every stored draft, oldest first.
func (dr *DraftRepository) GetAll(ctx context.Context) ([]*models.Draft, error) {
	root := os.DirFS(dr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list draft files: %w", err)
	}

	drafts := make([]*models.Draft, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		draft, err := dr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsDraftNotFound(err) {
				continue
			}

			return nil, err
		}

		drafts = append(drafts, draft)
	}

	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].CreatedAt.Before(drafts[j].CreatedAt)
	})

	return drafts, nil
}

// GetByID retrieves a draft by its ID from the file system.
func (dr *DraftRepository) GetByID(_ context.Context, id string) (*models.Draft, error) {
	body, err := os.ReadFile(dr.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewDraftError("GetByID", id, persistence.ErrDraftNotFound)
		}

		return nil, fmt.Errorf("failed to fetch draft %s: %w", id, err)
	}

	var draft models.Draft

	err = json.Unmarshal(body, &draft)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft %s: %w", id, err)
	}

	return &draft, nil
}

// Save writes a draft to the file system.
func (dr *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if draft == nil {
		return persistence.NewDraftError("Save", "", persistence.ErrInvalidDraft)
	}

	if err := dr.validate.Struct(draft); err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("%w: %w", persistence.ErrInvalidDraft, err))
	}

	err := os.MkdirAll(dr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create drafts directory: %w", err)
	}

	now := time.Now().UTC()

	if existing, err := dr.GetByID(ctx, draft.ID); err == nil {
		draft.CreatedAt = existing.CreatedAt
	} else if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	draft.UpdatedAt = now

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft %s: %w", draft.ID, err)
	}

	return os.WriteFile(dr.filePath(draft.ID), data, 0600)
}

// Delete removes a draft by its ID.
func (dr *DraftRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(dr.filePath(id))
	if err != nil && os.IsNotExist(err) {
		return persistence.NewDraftError("Delete", id, persistence.ErrDraftNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}

	return nil
}
