package sqlite_test

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/dukex/otomato/pkg/persistence/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersistence(t *testing.T) (*sqlite.Persistence, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "otomato.db")

	p, err := sqlite.NewPersistence(t.Context(), slog.New(slog.DiscardHandler), "sqlite://"+path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close(t.Context()) })

	return p, path
}

func TestNewPersistence_Reopen(t *testing.T) {
	p, path := newPersistence(t)
	require.NoError(t, p.HealthCheck(t.Context()))

	draft := &models.Draft{ID: uuid.NewString(), Name: "kept", Workflow: models.WorkflowJSON{Name: "kept"}}
	require.NoError(t, p.DraftRepository().Save(t.Context(), draft))
	require.NoError(t, p.Close(t.Context()))

	// Migrations on an up to date file are a no-op and data survives.
	again, err := sqlite.NewPersistence(t.Context(), slog.New(slog.DiscardHandler), path)
	require.NoError(t, err)

	defer again.Close(t.Context())

	got, err := again.DraftRepository().GetByID(t.Context(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Name)
}

func TestDraftRepository(t *testing.T) {
	p, _ := newPersistence(t)
	ctx := t.Context()
	repo := p.DraftRepository()

	first := &models.Draft{
		ID:   uuid.NewString(),
		Name: "notify on transfer",
		Workflow: models.WorkflowJSON{
			Name:  "notify on transfer",
			Nodes: []models.NodeJSON{{ID: 1, Ref: "n-1", Type: models.CategoryTypeTrigger, Parameters: map[string]any{"chainId": float64(1)}}},
			Edges: []models.EdgeJSON{},
		},
	}
	require.NoError(t, repo.Save(ctx, first))

	second := &models.Draft{ID: uuid.NewString(), Name: "second", Workflow: models.WorkflowJSON{Name: "second"}}
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "n-1", got.Workflow.Nodes[0].Ref)
	assert.InDelta(t, 1, got.Workflow.Nodes[0].Parameters["chainId"], 0)

	createdAt := got.CreatedAt
	first.Name = "renamed"
	first.CreatedAt = time.Time{}
	require.NoError(t, repo.Save(ctx, first))
	assert.True(t, createdAt.Equal(first.CreatedAt), "created_at is kept on replace")

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "renamed", all[0].Name)
	assert.Equal(t, "second", all[1].Name)

	require.NoError(t, repo.Delete(ctx, first.ID))

	_, err = repo.GetByID(ctx, first.ID)
	assert.True(t, persistence.IsDraftNotFound(err))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), persistence.ErrDraftNotFound)

	assert.ErrorIs(t, repo.Save(ctx, &models.Draft{ID: "not-a-uuid", Name: "x"}), persistence.ErrInvalidDraft)
}

func TestTokenRepository(t *testing.T) {
	p, _ := newPersistence(t)
	ctx := t.Context()
	repo := p.TokenRepository()

	_, err := repo.Get(ctx, "default")
	require.ErrorIs(t, err, persistence.ErrTokenNotFound)

	require.NoError(t, repo.Save(ctx, &models.Token{Name: "default", Token: "one"}))

	got, err := repo.Get(ctx, "default")
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)

	expires := time.Now().Add(time.Hour).UTC()
	require.NoError(t, repo.Save(ctx, &models.Token{Name: "default", Token: "two", Address: "0xabc", ExpiresAt: &expires}))

	got, err = repo.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Token)
	assert.Equal(t, "0xabc", got.Address)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))

	require.NoError(t, repo.Delete(ctx, "default"))
	assert.True(t, persistence.IsTokenNotFound(repo.Delete(ctx, "default")))
}
