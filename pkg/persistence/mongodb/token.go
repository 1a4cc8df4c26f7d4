package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TokenRepository struct {
	coll     *mongo.Collection
	validate *validator.Validate
}

type tokenDoc struct {
	Name      string     `bson:"_id"`
	Token     string     `bson:"token"`
	Address   string     `bson:"address,omitempty"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
}

func (r *TokenRepository) Get(ctx context.Context, name string) (*models.Token, error) {
	var doc tokenDoc

	err := r.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, persistence.NewTokenError("Get", name, persistence.ErrTokenNotFound)
		}

		return nil, fmt.Errorf("failed to get token %s: %w", name, err)
	}

	token := &models.Token{
		Name:      doc.Name,
		Token:     doc.Token,
		Address:   doc.Address,
		CreatedAt: doc.CreatedAt.UTC(),
	}

	if doc.ExpiresAt != nil {
		expiresAt := doc.ExpiresAt.UTC()
		token.ExpiresAt = &expiresAt
	}

	return token, nil
}

// Save replaces the token stored under token.Name. MongoDB drops the
// document on its own once expires_at has passed.
func (r *TokenRepository) Save(ctx context.Context, token *models.Token) error {
	if token == nil {
		return persistence.NewTokenError("Save", "", persistence.ErrInvalidToken)
	}

	if err := r.validate.Struct(token); err != nil {
		return persistence.NewTokenError("Save", token.Name, fmt.Errorf("%w: %w", persistence.ErrInvalidToken, err))
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	doc := tokenDoc{
		Name:      token.Name,
		Token:     token.Token,
		Address:   token.Address,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": token.Name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save token %s: %w", token.Name, err)
	}

	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, name string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("failed to delete token %s: %w", name, err)
	}

	if res.DeletedCount == 0 {
		return persistence.NewTokenError("Delete", name, persistence.ErrTokenNotFound)
	}

	return nil
}
