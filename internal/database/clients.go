package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sessionsnap/internal/models"
)

const clientColumns = `id, name, phone, email, tax_id, whatsapp, notes, internal, created_at`

func (db *DB) CreateClient(ctx context.Context, client *models.Client) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now()
	}
	if err := insertClient(ctx, db, client); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func insertClient(ctx context.Context, ex execer, c *models.Client) error {
	query := `INSERT INTO clients (` + clientColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := ex.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.Phone,
		c.Email,
		c.TaxID,
		c.WhatsApp,
		c.Notes,
		c.Internal,
		c.CreatedAt,
	)
	return err
}

func (db *DB) GetClient(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ?`
	c, err := scanClient(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// ListClients returns clients ordered by name; internal clients only when includeInternal is set.
func (db *DB) ListClients(ctx context.Context, includeInternal bool) ([]models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	if !includeInternal {
		query += ` WHERE internal = 0`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`
	return queryClients(ctx, db, query)
}

func queryClients(ctx context.Context, ex execer, query string, args ...any) ([]models.Client, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (*models.Client, error) {
	var c models.Client
	err := s.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.TaxID,
		&c.WhatsApp,
		&c.Notes,
		&c.Internal,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureInternalClient seeds the studio's internal client and its general calendar project.
// Calling it again is a no-op.
func (db *DB) EnsureInternalClient(ctx context.Context) error {
	now := time.Now()
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO clients (`+clientColumns+`) VALUES (?, ?, '', '', '', '', '', 1, ?)`,
		models.InternalClientID, models.InternalClientName, now)
	if err != nil {
		return fmt.Errorf("failed to seed internal client: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, NULL, NULL, ?)`,
		models.GeneralProjectID, models.InternalClientID, models.GeneralProjectName,
		models.BillingPackage, models.TierSingle, now)
	if err != nil {
		return fmt.Errorf("failed to seed general project: %w", err)
	}
	return nil
}
