package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// TokenRepository stores tokens under <root>/tokens, readable only by the owner.
type TokenRepository struct {
	root     string
	validate *validator.Validate
}

func NewTokenRepository(root string, validate *validator.Validate) *TokenRepository {
	return &TokenRepository{root: root, validate: validate}
}

func (tr *TokenRepository) filePath(name string) string {
	return filepath.Clean(path.Join(tr.root, "tokens", filepath.Base(name)+".json"))
}

func (tr *TokenRepository) Get(_ context.Context, name string) (*models.Token, error) {
	body, err := os.ReadFile(tr.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewTokenError("Get", name, persistence.ErrTokenNotFound)
		}

		return nil, fmt.Errorf("failed to read token %s: %w", name, err)
	}

	var token models.Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token %s: %w", name, err)
	}

	return &token, nil
}

func (tr *TokenRepository) Save(_ context.Context, token *models.Token) error {
	if token == nil {
		return persistence.NewTokenError("Save", "", persistence.ErrInvalidToken)
	}

	if err := tr.validate.Struct(token); err != nil {
		return persistence.NewTokenError("Save", token.Name, fmt.Errorf("%w: %w", persistence.ErrInvalidToken, err))
	}

	if err := os.MkdirAll(path.Join(tr.root, "tokens"), 0700); err != nil {
		return fmt.Errorf("failed to create tokens directory: %w", err)
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token %s: %w", token.Name, err)
	}

	return os.WriteFile(tr.filePath(token.Name), data, 0600)
}

func (tr *TokenRepository) Delete(_ context.Context, name string) error {
	err := os.Remove(tr.filePath(name))
	if err != nil && os.IsNotExist(err) {
		return persistence.NewTokenError("Delete", name, persistence.ErrTokenNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete token %s: %w", name, err)
	}

	return nil
}
