package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

type TokenRepository struct {
	db       *sql.DB
	validate *validator.Validate
}

func NewTokenRepository(db *sql.DB, validate *validator.Validate) *TokenRepository {
	return &TokenRepository{db: db, validate: validate}
}

func (r *TokenRepository) Get(ctx context.Context, name string) (*models.Token, error) {
	var (
		token     models.Token
		address   sql.NullString
		expiresAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT name, token, address, expires_at, created_at FROM tokens WHERE name = $1", name,
	).Scan(&token.Name, &token.Token, &address, &expiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTokenError("Get", name, persistence.ErrTokenNotFound)
		}

		return nil, fmt.Errorf("failed to query token %s: %w", name, err)
	}

	token.Address = address.String

	if expiresAt.Valid {
		token.ExpiresAt = &expiresAt.Time
	}

	return &token, nil
}

func (r *TokenRepository) Save(ctx context.Context, token *models.Token) error {
	if token == nil {
		return persistence.NewTokenError("Save", "", persistence.ErrInvalidToken)
	}

	if err := r.validate.Struct(token); err != nil {
		return persistence.NewTokenError("Save", token.Name, fmt.Errorf("%w: %w", persistence.ErrInvalidToken, err))
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	var expiresAt sql.NullTime
	if token.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *token.ExpiresAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (name, token, address, expires_at, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			token = EXCLUDED.token
		  , address = EXCLUDED.address
		  , expires_at = EXCLUDED.expires_at
	`, token.Name, token.Token, token.Address, expiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save token %s: %w", token.Name, err)
	}

	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tokens WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete token %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewTokenError("Delete", name, persistence.ErrTokenNotFound)
	}

	return nil
}
