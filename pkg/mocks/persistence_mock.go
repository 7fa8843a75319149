package mocks

import (
	"context"

	"github.com/dukex/demodeck/pkg/models"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) SaveSpec(ctx context.Context, spec *models.InstanceSpec) error {
	args := m.Called(ctx, spec)

	return args.Error(0)
}

func (m *MockPersistence) SaveStatus(ctx context.Context, id string, status *models.InstanceStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockPersistence) SpecByID(ctx context.Context, id string) (*models.InstanceSpec, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.InstanceSpec), args.Error(1)
}

func (m *MockPersistence) StatusByID(ctx context.Context, id string) (*models.InstanceStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.InstanceStatus), args.Error(1)
}

func (m *MockPersistence) InstanceIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPersistence) DeleteInstance(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ persistence.Persistence = (*MockPersistence)(nil)
