package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sessionsnap/internal/models"
)

const projectColumns = `id, client_id, name, billing_type, package_tier, custom_rate, target_hours, created_at`

// CreateProject stores a project after checking its billing fields.
func (db *DB) CreateProject(ctx context.Context, project *models.Project) error {
	if err := project.ValidateBilling(); err != nil {
		return err
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	if err := insertProject(ctx, db, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func insertProject(ctx context.Context, ex execer, p *models.Project) error {
	var tier sql.NullString
	if p.PackageTier != nil {
		tier = sql.NullString{String: string(*p.PackageTier), Valid: true}
	}
	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := ex.ExecContext(ctx, query,
		p.ID,
		p.ClientID,
		p.Name,
		string(p.BillingType),
		tier,
		nullFloat(p.CustomRate),
		nullFloat(p.TargetHours),
		p.CreatedAt,
	)
	return err
}

func (db *DB) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	p, err := scanProject(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (db *DB) ListProjectsByClient(ctx context.Context, clientID string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE client_id = ? ORDER BY created_at, id`
	return queryProjects(ctx, db, query, clientID)
}

func queryProjects(ctx context.Context, ex execer, query string, args ...any) ([]models.Project, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func scanProject(s scanner) (*models.Project, error) {
	var (
		p           models.Project
		billingType string
		tier        sql.NullString
		rate        sql.NullFloat64
		target      sql.NullFloat64
	)
	err := s.Scan(
		&p.ID,
		&p.ClientID,
		&p.Name,
		&billingType,
		&tier,
		&rate,
		&target,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.BillingType = models.BillingType(billingType)
	if tier.Valid {
		p.PackageTier = models.TierPtr(models.PackageTier(tier.String))
	}
	p.CustomRate = floatPtr(rate)
	p.TargetHours = floatPtr(target)
	return &p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float64Ptr(v.Float64)
}
