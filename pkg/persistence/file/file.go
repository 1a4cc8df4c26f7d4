// Package file provides file-based persistence for drafts and tokens.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/otomato/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root      string
	draftRepo *DraftRepository
	tokenRepo *TokenRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	validate := validator.New(validator.WithRequiredStructEnabled())

	return &Persistence{
		root:      cleanRoot,
		draftRepo: NewDraftRepository(cleanRoot, validate),
		tokenRepo: NewTokenRepository(cleanRoot, validate),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) DraftRepository() persistence.DraftRepository {
	return fp.draftRepo
}

func (fp *Persistence) TokenRepository() persistence.TokenRepository {
	return fp.tokenRepo
}
