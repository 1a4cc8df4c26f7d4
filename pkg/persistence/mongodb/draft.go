package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DraftRepository struct {
	coll     *mongo.Collection
	logger   *slog.Logger
	validate *validator.Validate
}

// draftDoc keeps the workflow as JSON so parameter values decode exactly as
// they do from the API.
type draftDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Workflow  string    `bson:"workflow"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d draftDoc) toModel() (*models.Draft, error) {
	draft := &models.Draft{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}

	if err := json.Unmarshal([]byte(d.Workflow), &draft.Workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow of draft %s: %w", d.ID, err)
	}

	return draft, nil
}

func (r *DraftRepository) GetAll(ctx context.Context) ([]*models.Draft, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}

	defer func() {
		if err := cursor.Close(ctx); err != nil {
			r.logger.ErrorContext(ctx, "failed to close cursor", "error", err)
		}
	}()

	drafts := make([]*models.Draft, 0)

	for cursor.Next(ctx) {
		var doc draftDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode draft: %w", err)
		}

		draft, err := doc.toModel()
		if err != nil {
			return nil, err
		}

		drafts = append(drafts, draft)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}

	return drafts, nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	var doc draftDoc

	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, persistence.NewDraftError("GetByID", id, persistence.ErrDraftNotFound)
		}

		return nil, fmt.Errorf("failed to get draft %s: %w", id, err)
	}

	return doc.toModel()
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

	// BSON dates have millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	draft.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"name":       draft.Name,
			"workflow":   string(workflow),
			"updated_at": draft.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": draft.CreatedAt},
	}

	var stored draftDoc

	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": draft.ID}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}

	draft.CreatedAt = stored.CreatedAt.UTC()

	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}

	if res.DeletedCount == 0 {
		return persistence.NewDraftError("Delete", id, persistence.ErrDraftNotFound)
	}

	return nil
}
