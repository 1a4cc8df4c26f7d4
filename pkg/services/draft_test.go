package services_test

import (
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/dukex/otomato/pkg/events"
	"github.com/dukex/otomato/pkg/mocks"
	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/dukex/otomato/pkg/persistence/file"
	"github.com/dukex/otomato/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDrafts_SaveOpenPush(t *testing.T) {
	f := newFakeAPI(t)
	ctx := t.Context()
	drafts := services.NewDrafts(file.NewPersistence(t.TempDir()).DraftRepository(), f.service, f.reg,
		services.WithLogger(testLogger()))

	w, trigger, _ := transferToSlack(t, f.reg)

	draft, err := drafts.Save(ctx, w)
	require.NoError(t, err)
	assert.NotEmpty(t, draft.ID)
	assert.Equal(t, "transfer to slack", draft.Name)

	list, err := drafts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	opened, err := drafts.Open(ctx, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, opened.ID)
	require.Len(t, opened.Nodes(), 2)

	node, ok := opened.NodeByRef(trigger.Ref())
	require.True(t, ok)
	assert.InDelta(t, 8453, node.Parameters()["chainId"], 0)

	pos, placed := node.Position()
	assert.True(t, placed, "saved drafts carry layout positions")
	assert.Positive(t, pos.X)

	pushed, err := drafts.Push(ctx, draft.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pushed.ID)

	_, err = f.api.Store().Workflow(pushed.ID)
	require.NoError(t, err)

	_, err = drafts.Get(ctx, draft.ID)
	assert.True(t, persistence.IsDraftNotFound(err), "pushed drafts are removed")
}

func TestDrafts_PushKeepsDraftOnFailure(t *testing.T) {
	var calls atomic.Int32

	reg := testRegistry(t)
	service := services.NewWorkflow(stubClient(http.StatusInternalServerError, `{"error":"down"}`, &calls), reg,
		services.WithLogger(testLogger()))
	drafts := services.NewDrafts(file.NewPersistence(t.TempDir()).DraftRepository(), service, reg,
		services.WithLogger(testLogger()))

	w, _, _ := transferToSlack(t, reg)

	draft, err := drafts.Save(t.Context(), w)
	require.NoError(t, err)

	_, err = drafts.Push(t.Context(), draft.ID)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = drafts.Get(t.Context(), draft.ID)
	assert.NoError(t, err)
}

func TestDrafts_ReplaceAndDelete(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.AnythingOfType("events.DraftSaved")).Return(nil).Twice()
	bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(e events.DraftDeleted) bool {
		return e.DraftID != ""
	})).Return(nil).Once()

	f := newFakeAPI(t)
	ctx := t.Context()
	drafts := services.NewDrafts(file.NewPersistence(t.TempDir()).DraftRepository(), f.service, f.reg,
		services.WithLogger(testLogger()), services.WithEventBus(bus))

	w, _, _ := transferToSlack(t, f.reg)

	draft, err := drafts.Save(ctx, w)
	require.NoError(t, err)

	w.Name = "second version"
	replaced, err := drafts.Replace(ctx, draft.ID, w)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, replaced.ID)
	assert.True(t, draft.CreatedAt.Equal(replaced.CreatedAt))

	got, err := drafts.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "second version", got.Name)

	require.NoError(t, drafts.Delete(ctx, draft.ID))
	assert.ErrorIs(t, drafts.Delete(ctx, draft.ID), persistence.ErrDraftNotFound)

	_, err = drafts.Save(ctx, nil)
	assert.ErrorIs(t, err, services.ErrWorkflowNil)

	bus.AssertExpectations(t)
}

func TestDrafts_RepositoryFailures(t *testing.T) {
	errDisk := errors.New("disk full")

	f := newFakeAPI(t)
	store := mocks.NewMockPersistence()
	drafts := services.NewDrafts(store.DraftRepository(), f.service, f.reg, services.WithLogger(testLogger()))

	w, _, _ := transferToSlack(t, f.reg)

	store.Drafts.On("Save", mock.Anything, mock.AnythingOfType("*models.Draft")).Return(errDisk).Once()

	_, err := drafts.Save(t.Context(), w)
	require.ErrorIs(t, err, errDisk)

	stored := &models.Draft{ID: "7c1f5a9e-9a43-4a55-9d0b-0c4c5a9f2b11", Name: w.Name, Workflow: w.ToJSON()}
	store.Drafts.On("GetByID", mock.Anything, stored.ID).Return(stored, nil).Once()
	store.Drafts.On("Delete", mock.Anything, stored.ID).Return(errDisk).Once()

	pushed, err := drafts.Push(t.Context(), stored.ID)
	require.NoError(t, err, "a draft that cannot be removed does not fail the push")
	assert.NotEmpty(t, pushed.ID)

	store.Drafts.AssertExpectations(t)
}
