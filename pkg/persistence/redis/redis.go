// Package redis provides Redis persistence for drafts and tokens.
package redis

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
	goredis "github.com/redis/go-redis/v9"
)

const (
	draftKeyPrefix = "otomato:draft:"
	draftIndexKey  = "otomato:drafts"
	tokenKeyPrefix = "otomato:token:"
)

// Persistence stores drafts as JSON strings indexed by a sorted set on
// creation time. Tokens with an expiry are stored with a matching TTL.
type Persistence struct {
	client   goredis.UniversalClient
	logger   *slog.Logger
	validate *validator.Validate
}

// NewPersistence connects to the redis:// URL and pings the server.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	p := NewWithClient(logger, goredis.NewClient(opts))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.HealthCheck(pingCtx); err != nil {
		_ = p.client.Close()

		return nil, err
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return p, nil
}

func NewWithClient(logger *slog.Logger, client goredis.UniversalClient) *Persistence {
	return &Persistence{
		client:   client,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) DraftRepository() persistence.DraftRepository {
	return &draftRepository{p: p}
}

func (p *Persistence) TokenRepository() persistence.TokenRepository {
	return &tokenRepository{p: p}
}

type draftRepository struct {
	p *Persistence
}

func (r *draftRepository) Save(ctx context.Context, draft *models.Draft) error {
	if draft == nil {
		return persistence.NewDraftError("Save", "", persistence.ErrInvalidDraft)
	}

	if err := r.p.validate.Struct(draft); err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("%w: %w", persistence.ErrInvalidDraft, err))
	}

	now := time.Now().UTC()

	existing, err := r.GetByID(ctx, draft.ID)

	switch {
	case err == nil:
		draft.CreatedAt = existing.CreatedAt
	case persistence.IsDraftNotFound(err):
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = now
		}
	default:
		return err
	}

	draft.UpdatedAt = now

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft %s: %w", draft.ID, err)
	}

	_, err = r.p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, draftKeyPrefix+draft.ID, data, 0)
		pipe.ZAdd(ctx, draftIndexKey, goredis.Z{Score: float64(draft.CreatedAt.UnixNano()), Member: draft.ID})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save draft %s: %w", draft.ID, err)
	}

	return nil
}

func (r *draftRepository) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	data, err := r.p.client.Get(ctx, draftKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewDraftError("GetByID", id, persistence.ErrDraftNotFound)
		}

		return nil, fmt.Errorf("failed to fetch draft %s: %w", id, err)
	}

	var draft models.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft %s: %w", id, err)
	}

	return &draft, nil
}

func (r *draftRepository) GetAll(ctx context.Context) ([]*models.Draft, error) {
	ids, err := r.p.client.ZRange(ctx, draftIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	drafts := make([]*models.Draft, 0, len(ids))

	for _, id := range ids {
		draft, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsDraftNotFound(err) {
				r.p.logger.WarnContext(ctx, "draft index points at missing draft", "draft_id", id)

				continue
			}

			return nil, err
		}

		drafts = append(drafts, draft)
	}

	return drafts, nil
}

func (r *draftRepository) Delete(ctx context.Context, id string) error {
	var deleted *goredis.IntCmd

	_, err := r.p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		deleted = pipe.Del(ctx, draftKeyPrefix+id)
		pipe.ZRem(ctx, draftIndexKey, id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewDraftError("Delete", id, persistence.ErrDraftNotFound)
	}

	return nil
}

type tokenRepository struct {
	p *Persistence
}

func (r *tokenRepository) Save(ctx context.Context, token *models.Token) error {
	if token == nil {
		return persistence.NewTokenError("Save", "", persistence.ErrInvalidToken)
	}

	if err := r.p.validate.Struct(token); err != nil {
		return persistence.NewTokenError("Save", token.Name, fmt.Errorf("%w: %w", persistence.ErrInvalidToken, err))
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	var ttl time.Duration

	if token.ExpiresAt != nil {
		ttl = time.Until(*token.ExpiresAt)
		if ttl <= 0 {
			return persistence.NewTokenError("Save", token.Name, fmt.Errorf("%w: already expired", persistence.ErrInvalidToken))
		}
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token %s: %w", token.Name, err)
	}

	if err := r.p.client.Set(ctx, tokenKeyPrefix+token.Name, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token %s: %w", token.Name, err)
	}

	return nil
}

func (r *tokenRepository) Get(ctx context.Context, name string) (*models.Token, error) {
	data, err := r.p.client.Get(ctx, tokenKeyPrefix+name).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewTokenError("Get", name, persistence.ErrTokenNotFound)
		}

		return nil, fmt.Errorf("failed to fetch token %s: %w", name, err)
	}

	var token models.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token %s: %w", name, err)
	}

	return &token, nil
}

func (r *tokenRepository) Delete(ctx context.Context, name string) error {
	deleted, err := r.p.client.Del(ctx, tokenKeyPrefix+name).Result()
	if err != nil {
		return fmt.Errorf("failed to delete token %s: %w", name, err)
	}

	if deleted == 0 {
		return persistence.NewTokenError("Delete", name, persistence.ErrTokenNotFound)
	}

	return nil
}
