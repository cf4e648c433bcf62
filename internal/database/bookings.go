package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"sessionsnap/internal/availability"
	"sessionsnap/internal/models"
)

const bookingColumns = `id, client_id, project_id, start_at, end_at, price, created_at`

func insertBooking(ctx context.Context, ex execer, b *models.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := ex.ExecContext(ctx, query,
		b.ID,
		b.ClientID,
		b.ProjectID,
		b.StartTime.Unix(),
		b.EndTime.Unix(),
		nullFloat(b.Price),
		b.CreatedAt,
	)
	return err
}

func scanBooking(s scanner) (*models.Booking, error) {
	var (
		b          models.Booking
		start, end int64
		price      sql.NullFloat64
	)
	err := s.Scan(
		&b.ID,
		&b.ClientID,
		&b.ProjectID,
		&start,
		&end,
		&price,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartTime = time.Unix(start, 0).UTC()
	b.EndTime = time.Unix(end, 0).UTC()
	b.Price = floatPtr(price)
	return &b, nil
}

func queryBookings(ctx context.Context, ex execer, query string, args ...any) ([]models.Booking, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// GetBookingsByRange returns bookings overlapping [from, to), ordered by start.
func (db *DB) GetBookingsByRange(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return bookingsOverlapping(ctx, db, from, to)
}

func bookingsOverlapping(ctx context.Context, ex execer, from, to time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_at < ? AND end_at > ?
              ORDER BY start_at, id`
	return queryBookings(ctx, ex, query, to.Unix(), from.Unix())
}

func (db *DB) GetBookingsByProject(ctx context.Context, projectID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE project_id = ? ORDER BY start_at, id`
	return queryBookings(ctx, db, query, projectID)
}

func (db *DB) GetBookingsByClient(ctx context.Context, clientID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE client_id = ? ORDER BY start_at, id`
	return queryBookings(ctx, db, query, clientID)
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("booking %q: %w", id, ErrNotFound)
	}
	return nil
}

// CreateBookingsWithLock inserts bookings in one transaction. Every hour covered by a new
// booking must classify as available against the stored bookings, otherwise nothing is
// written and ErrNotAvailable is returned. New bookings may sit next to each other.
func (db *DB) CreateBookingsWithLock(ctx context.Context, bookings []models.Booking, hours availability.Hours) error {
	if len(bookings) == 0 {
		return nil
	}
	if err := models.ValidateBookings(bookings); err != nil {
		return err
	}

	order := make([]int, len(bookings))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return bookings[order[i]].StartTime.Before(bookings[order[j]].StartTime)
	})
	for k := 1; k < len(order); k++ {
		prev, cur := bookings[order[k-1]], bookings[order[k]]
		if cur.StartTime.Before(prev.EndTime) {
			return fmt.Errorf("%w: requested bookings overlap at %s", ErrNotAvailable, cur.StartTime.Format(time.RFC3339))
		}
	}

	first := bookings[order[0]].StartTime
	last := bookings[order[len(order)-1]].EndTime
	for _, b := range bookings {
		if b.EndTime.After(last) {
			last = b.EndTime
		}
	}
	margin := hours.Buffer + models.SlotDuration

	db.bookMu.Lock()
	defer db.bookMu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := bookingsOverlapping(ctx, tx, first.Add(-margin), last.Add(margin))
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}

	now := time.Now()
	for i := range bookings {
		b := &bookings[i]
		for slot := b.StartTime; slot.Before(b.EndTime); slot = slot.Add(models.SlotDuration) {
			ok, err := hours.IsBookable(slot, existing)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrNotAvailable, slot.Format(time.RFC3339))
			}
		}

		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if err := insertBooking(ctx, tx, b); err != nil {
			return fmt.Errorf("failed to insert booking in tx: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bookings: %w", err)
	}

	db.logger.Debug().Int("count", len(bookings)).Time("first", first).Msg("Bookings created")
	return nil
}
