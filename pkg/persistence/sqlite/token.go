package sqlite

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

func (r *TokenRepository) Get(ctx context.Context, name string) (*models.Token, error) {
	var (
		token     models.Token
		expiresAt sql.NullInt64
		createdAt int64
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT name, token, address, expires_at, created_at FROM tokens WHERE name = ?", name,
	).Scan(&token.Name, &token.Token, &token.Address, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTokenError("Get", name, persistence.ErrTokenNotFound)
		}

		return nil, fmt.Errorf("failed to query token %s: %w", name, err)
	}

	token.CreatedAt = fromNanos(createdAt)

	if expiresAt.Valid {
		t := fromNanos(expiresAt.Int64)
		token.ExpiresAt = &t
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

	var expiresAt sql.NullInt64
	if token.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: token.ExpiresAt.UnixNano(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (name, token, address, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			token = excluded.token
		  , address = excluded.address
		  , expires_at = excluded.expires_at
	`, token.Name, token.Token, token.Address, expiresAt, token.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save token %s: %w", token.Name, err)
	}

	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tokens WHERE name = ?", name)
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
