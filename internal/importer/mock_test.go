package importer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
	writer *mockWriter
}

func (m *mockStore) GetState(ctx context.Context, id string) (*model.State, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.State), args.Error(1)
}

func (m *mockStore) ListStates(ctx context.Context) ([]model.State, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.State), args.Error(1)
}

func (m *mockStore) SeedStates(ctx context.Context, states []model.State) (int64, error) {
	args := m.Called(ctx, states)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListCities(ctx context.Context, stateID string) ([]model.City, error) {
	args := m.Called(ctx, stateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.City), args.Error(1)
}

func (m *mockStore) ListListings(ctx context.Context, cityID string) ([]model.Listing, error) {
	args := m.Called(ctx, cityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *mockStore) InTx(ctx context.Context, fn func(w store.Writer) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.writer)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Writer Mock ---

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) UpsertCities(ctx context.Context, stateID string, names []string) ([]model.City, error) {
	args := m.Called(ctx, stateID, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.City), args.Error(1)
}

func (m *mockWriter) InsertListings(ctx context.Context, listings []model.Listing) (int64, error) {
	args := m.Called(ctx, listings)
	return args.Get(0).(int64), args.Error(1)
}
