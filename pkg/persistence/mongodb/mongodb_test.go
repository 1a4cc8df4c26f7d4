package mongodb_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/dukex/otomato/pkg/persistence/mongodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupMongo(t *testing.T) (*mongodb.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	p, err := mongodb.NewPersistence(ctx, slog.New(slog.DiscardHandler), "mongodb://"+endpoint+"/otomato_test")
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close(context.Background()) })

	return p, ctx
}

func TestNewPersistence_InvalidURL(t *testing.T) {
	_, err := mongodb.NewPersistence(t.Context(), slog.New(slog.DiscardHandler), "postgres://localhost/db")
	assert.Error(t, err)
}

func TestMongoDraftRepository(t *testing.T) {
	p, ctx := setupMongo(t)
	require.NoError(t, p.HealthCheck(ctx))

	repo := p.DraftRepository()

	draft := &models.Draft{
		ID:   uuid.NewString(),
		Name: "notify on transfer",
		Workflow: models.WorkflowJSON{
			Name:  "notify on transfer",
			Nodes: []models.NodeJSON{{ID: 1, Ref: "n-1", Type: models.CategoryTypeTrigger, Parameters: map[string]any{"chainId": float64(8453)}}},
			Edges: []models.EdgeJSON{},
		},
	}
	require.NoError(t, repo.Save(ctx, draft))

	got, err := repo.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.InDelta(t, 8453, got.Workflow.Nodes[0].Parameters["chainId"], 0)

	createdAt := got.CreatedAt
	draft.Name = "renamed"
	draft.CreatedAt = time.Time{}
	require.NoError(t, repo.Save(ctx, draft))
	assert.True(t, createdAt.Equal(draft.CreatedAt))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "renamed", all[0].Name)

	require.NoError(t, repo.Delete(ctx, draft.ID))
	assert.ErrorIs(t, repo.Delete(ctx, draft.ID), persistence.ErrDraftNotFound)

	_, err = repo.GetByID(ctx, draft.ID)
	assert.True(t, persistence.IsDraftNotFound(err))
}

func TestMongoTokenRepository(t *testing.T) {
	p, ctx := setupMongo(t)
	repo := p.TokenRepository()

	_, err := repo.Get(ctx, "default")
	require.ErrorIs(t, err, persistence.ErrTokenNotFound)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Save(ctx, &models.Token{Name: "default", Token: "abc", Address: "0xabc", ExpiresAt: &expires}))

	got, err := repo.Get(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, "0xabc", got.Address)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))

	require.NoError(t, repo.Delete(ctx, "default"))
	assert.True(t, persistence.IsTokenNotFound(repo.Delete(ctx, "default")))
}
