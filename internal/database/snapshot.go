package database

import (
	"context"
	"fmt"

	"sessionsnap/internal/models"
)

// Load reads every client, project and booking.
func (db *DB) Load(ctx context.Context) (*models.Snapshot, error) {
	clients, err := queryClients(ctx, db, `SELECT `+clientColumns+` FROM clients ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	projects, err := queryProjects(ctx, db, `SELECT `+projectColumns+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	bookings, err := queryBookings(ctx, db, `SELECT `+bookingColumns+` FROM bookings ORDER BY start_at, id`)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{Clients: clients, Projects: projects, Bookings: bookings}, nil
}

// Save replaces the stored data with snap in a single transaction.
func (db *DB) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := models.ValidateBookings(snap.Bookings); err != nil {
		return err
	}
	for _, p := range snap.Projects {
		if err := p.ValidateBilling(); err != nil {
			return err
		}
	}

	db.bookMu.Lock()
	defer db.bookMu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"bookings", "projects", "clients"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range snap.Clients {
		if err := insertClient(ctx, tx, &snap.Clients[i]); err != nil {
			return fmt.Errorf("failed to save client %q: %w", snap.Clients[i].ID, err)
		}
	}
	for i := range snap.Projects {
		if err := insertProject(ctx, tx, &snap.Projects[i]); err != nil {
			return fmt.Errorf("failed to save project %q: %w", snap.Projects[i].ID, err)
		}
	}
	for i := range snap.Bookings {
		if err := insertBooking(ctx, tx, &snap.Bookings[i]); err != nil {
			return fmt.Errorf("failed to save booking %q: %w", snap.Bookings[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	db.logger.Info().
		Int("clients", len(snap.Clients)).
		Int("projects", len(snap.Projects)).
		Int("bookings", len(snap.Bookings)).
		Msg("Snapshot saved")
	return nil
}
