package mocks

import (
	"context"

	"github.com/dukex/otomato/pkg/models"
	"github.com/dukex/otomato/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Drafts *MockDraftRepository
	Tokens *MockTokenRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Drafts: &MockDraftRepository{},
		Tokens: &MockTokenRepository{},
	}
}

func (m *MockPersistence) DraftRepository() persistence.DraftRepository {
	return m.Drafts
}

func (m *MockPersistence) TokenRepository() persistence.TokenRepository {
	return m.Tokens
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockDraftRepository is a mock implementation of persistence.DraftRepository interface.
type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	args := m.Called(ctx, draft)

	return args.Error(0)
}

func (m *MockDraftRepository) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Draft), args.Error(1)
}

func (m *MockDraftRepository) GetAll(ctx context.Context) ([]*models.Draft, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Draft), args.Error(1)
}

func (m *MockDraftRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockTokenRepository is a mock implementation of persistence.TokenRepository interface.
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Save(ctx context.Context, token *models.Token) error {
	args := m.Called(ctx, token)

	return args.Error(0)
}

func (m *MockTokenRepository) Get(ctx context.Context, name string) (*models.Token, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Token), args.Error(1)
}

func (m *MockTokenRepository) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)

	return args.Error(0)
}
