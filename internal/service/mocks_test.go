package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sessionsnap/internal/database"
	"sessionsnap/internal/models"
	"sessionsnap/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

type mockSuggester struct {
	mock.Mock
}

func (m *mockSuggester) Suggest(ctx context.Context, sc models.SuggestionContext) (string, error) {
	args := m.Called(ctx, sc)
	return args.String(0), args.Error(1)
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", nopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureInternalClient(context.Background()))
	return db
}

func newDrafts() *repository.MemoryDraftRepository {
	return repository.NewMemoryDraftRepository(time.Hour)
}

func newPermissiveBus() *mockEventBus {
	bus := &mockEventBus{}
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
	return bus
}

// sequentialIDs returns a generator of predictable ids with the given prefix.
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// monday is 2024-06-03, a Monday.
func at(day, hour int) time.Time {
	return time.Date(2024, 6, 3+day, hour, 0, 0, 0, time.UTC)
}

func createClient(t *testing.T, db *database.DB, id, name string) models.Client {
	t.Helper()
	c := models.Client{ID: id, Name: name, CreatedAt: time.Now()}
	require.NoError(t, db.CreateClient(context.Background(), &c))
	return c
}

func createPackageProject(t *testing.T, db *database.DB, id, clientID string, tier models.PackageTier) models.Project {
	t.Helper()
	p := models.Project{
		ID:          id,
		ClientID:    clientID,
		Name:        "Project " + id,
		BillingType: models.BillingPackage,
		PackageTier: models.TierPtr(tier),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, db.CreateProject(context.Background(), &p))
	return p
}
