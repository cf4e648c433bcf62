package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sessionsnap/internal/billing"
	"sessionsnap/internal/database"
	"sessionsnap/internal/domain"
	"sessionsnap/internal/metrics"
	"sessionsnap/internal/models"

	"github.com/rs/zerolog"
)

// BillingService prices projects and months from whatever the store currently holds.
type BillingService struct {
	store    domain.Store
	receipts billing.ReceiptFormatter
	logger   *zerolog.Logger
}

func NewBillingService(store domain.Store, receipts billing.ReceiptFormatter, logger *zerolog.Logger) *BillingService {
	return &BillingService{
		store:    store,
		receipts: receipts,
		logger:   logger,
	}
}

func (s *BillingService) projectBookings(ctx context.Context, projectID string) (*models.Project, []models.Booking, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	bookings, err := s.store.GetBookingsByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("load project bookings: %w", err)
	}
	return project, bookings, nil
}

func (s *BillingService) ProjectCost(ctx context.Context, projectID string) (models.CostMetrics, error) {
	project, bookings, err := s.projectBookings(ctx, projectID)
	if err != nil {
		return models.CostMetrics{}, err
	}

	cost, err := billing.ProjectCost(bookings, *project)
	if err != nil {
		s.costFailed("project_cost", projectID, err)
		return models.CostMetrics{}, err
	}
	return cost, nil
}

// ProjectBookings lists the project's bookings ordered by start time.
func (s *BillingService) ProjectBookings(ctx context.Context, projectID string) ([]models.Booking, error) {
	_, bookings, err := s.projectBookings(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bookings, func(i, j int) bool { return bookings[i].StartTime.Before(bookings[j].StartTime) })
	return bookings, nil
}

func (s *BillingService) ProjectStatus(ctx context.Context, projectID string) (models.ProjectStatus, error) {
	project, bookings, err := s.projectBookings(ctx, projectID)
	if err != nil {
		return models.ProjectStatus{}, err
	}
	return billing.ProjectProgress(bookings, *project), nil
}

// Receipt renders the project's text receipt. A client that no longer exists is shown
// under the unknown-client name instead of failing the receipt.
func (s *BillingService) Receipt(ctx context.Context, projectID string) (string, error) {
	project, bookings, err := s.projectBookings(ctx, projectID)
	if err != nil {
		return "", err
	}

	client := models.Client{ID: project.ClientID, Name: models.UnknownClientName}
	if c, err := s.store.GetClient(ctx, project.ClientID); err == nil {
		client = *c
	} else if !errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("load receipt client: %w", err)
	}

	text, err := s.receipts.Format(client, *project, bookings)
	if err != nil {
		s.costFailed("receipt", projectID, err)
		return "", err
	}
	return text, nil
}

// MonthlyRecipe builds the per-client summary of the calendar month containing month.
// In priced mode every booking of the month must be priceable; any failure aborts the recipe.
func (s *BillingService) MonthlyRecipe(ctx context.Context, month time.Time, mode billing.RecipeMode) (models.MonthlyRecipe, error) {
	if s.receipts.Location != nil {
		month = month.In(s.receipts.Location)
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	from, to := billing.MonthBounds(month)
	bookings := snap.BookingsBetween(from, to)

	if mode == billing.ModeProjectPriced {
		bookings, err = billing.PriceBookings(bookings, snap.Projects)
		if err != nil {
			s.costFailed("monthly_recipe", "", err)
			return nil, err
		}
	}

	recipe, err := billing.ClientMonthlyMetrics(bookings, month, snap, mode)
	if err != nil {
		s.costFailed("monthly_recipe", "", err)
		return nil, err
	}

	s.logger.Debug().
		Str("month", month.Format("2006-01")).
		Str("mode", string(mode)).
		Int("clients", len(recipe)).
		Msg("Monthly recipe built")
	return recipe, nil
}

func (s *BillingService) costFailed(operation, projectID string, err error) {
	metrics.IncCostError(operation)
	s.logger.Error().Err(err).Str("operation", operation).Str("project_id", projectID).Msg("Cost calculation failed")
}
