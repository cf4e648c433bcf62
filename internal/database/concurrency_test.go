package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"sessionsnap/internal/availability"
	"sessionsnap/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBooking(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	hours := availability.DefaultHours()

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			booking := hourBooking(fmt.Sprintf("b%d", id), 7, 15)
			results <- db.CreateBookingsWithLock(ctx, []models.Booking{booking}, hours)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.True(t, errors.Is(err, ErrNotAvailable), "unexpected error: %v", err)
	}

	assert.Equal(t, 1, successCount, "only one reservation of the slot should succeed")

	bookings, err := db.GetBookingsByRange(ctx, at(7, 0), at(8, 0))
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}
