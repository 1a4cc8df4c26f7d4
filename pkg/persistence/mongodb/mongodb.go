// Package mongodb provides MongoDB persistence for drafts and tokens.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDatabase  = "otomato"
	draftsCollection = "drafts"
	tokensCollection = "tokens"
)

type Persistence struct {
	client    *mongo.Client
	logger    *slog.Logger
	draftRepo *DraftRepository
	tokenRepo *TokenRepository
}

// NewPersistence connects to databaseURL. The database is taken from the URL
// path and defaults to "otomato".
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URL: %w", err)
	}

	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return nil, fmt.Errorf("invalid MongoDB URL scheme %q", u.Scheme)
	}

	dbName := strings.Trim(u.Path, "/")
	if dbName == "" {
		dbName = defaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)

		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	validate := validator.New(validator.WithRequiredStructEnabled())

	p := &Persistence{
		client:    client,
		logger:    logger,
		draftRepo: &DraftRepository{coll: db.Collection(draftsCollection), logger: logger, validate: validate},
		tokenRepo: &TokenRepository{coll: db.Collection(tokensCollection), validate: validate},
	}

	if err := p.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)

		return nil, err
	}

	logger.InfoContext(ctx, "connected to MongoDB", "database", dbName)

	return p, nil
}

// ensureIndexes orders drafts by creation time and lets MongoDB reap
// expired tokens.
func (p *Persistence) ensureIndexes(ctx context.Context) error {
	_, err := p.draftRepo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create drafts index: %w", err)
	}

	_, err = p.tokenRepo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create tokens index: %w", err)
	}

	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	if err := p.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return nil
}

func (p *Persistence) DraftRepository() persistence.DraftRepository { return p.draftRepo }

func (p *Persistence) TokenRepository() persistence.TokenRepository { return p.tokenRepo }
