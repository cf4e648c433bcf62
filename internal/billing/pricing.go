// Package billing turns bookings into billable hours and amounts.
//
// Two projections exist over the same bookings. ProjectCost prices a project's hours with the
// project's own rate (package tier or custom rate). ClientMonthlyMetrics aggregates a client's
// month either on the volume-tiered schedule or from bookings already priced per project.
package billing

import (
	"errors"
	"fmt"
	"time"

	"sessionsnap/internal/models"
)

var (
	// ErrBillingConfig is returned when a project's billing fields cannot produce a rate.
	ErrBillingConfig = errors.New("billing configuration error")
	// ErrUnpricedBooking is returned by the project-priced recipe for bookings without a price.
	ErrUnpricedBooking = errors.New("booking has no price")
)

var packageRates = map[models.PackageTier]float64{
	models.TierSingle: 350,
	models.Tier10h:    260,
	models.Tier20h:    230,
	models.Tier40h:    160,
}

// PackageRate returns the hourly rate of a package tier.
func PackageRate(tier models.PackageTier) (float64, bool) {
	rate, ok := packageRates[tier]
	return rate, ok
}

type volumeTier struct {
	minHours float64
	rate     float64
}

// monthlyTiers is ordered from the highest threshold down; thresholds are inclusive.
var monthlyTiers = []volumeTier{
	{minHours: 40, rate: 160},
	{minHours: 20, rate: 230},
	{minHours: 10, rate: 260},
	{minHours: 0, rate: 350},
}

// MonthlyTierRate prices a client's total monthly hours on the volume schedule.
func MonthlyTierRate(totalHours float64) float64 {
	for _, t := range monthlyTiers {
		if totalHours >= t.minHours {
			return t.rate
		}
	}
	return monthlyTiers[len(monthlyTiers)-1].rate
}

// ProjectRate resolves the hourly rate configured on a project.
func ProjectRate(project models.Project) (float64, error) {
	if err := project.ValidateBilling(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBillingConfig, err)
	}

	if project.BillingType == models.BillingCustom {
		return *project.CustomRate, nil
	}

	rate, ok := PackageRate(*project.PackageTier)
	if !ok {
		return 0, fmt.Errorf("%w: project %q has unknown package tier %q", ErrBillingConfig, project.ID, *project.PackageTier)
	}
	return rate, nil
}

// TotalHours sums booking durations exactly and converts to hours once, so totals that land
// on a tier threshold compare equal to it.
func TotalHours(bookings []models.Booking) float64 {
	var total time.Duration
	for _, b := range bookings {
		total += b.EndTime.Sub(b.StartTime)
	}
	return total.Hours()
}

// ProjectCost prices bookings with the project's rate. It fails closed on a broken billing
// configuration instead of reporting a zero amount.
func ProjectCost(bookings []models.Booking, project models.Project) (models.CostMetrics, error) {
	rate, err := ProjectRate(project)
	if err != nil {
		return models.CostMetrics{}, err
	}
	if err := models.ValidateBookings(bookings); err != nil {
		return models.CostMetrics{}, err
	}

	hours := TotalHours(bookings)
	return models.CostMetrics{
		TotalHours:   hours,
		PricePerHour: rate,
		TotalAmount:  hours * rate,
	}, nil
}

// PriceBookings returns copies of bookings carrying their project-derived price.
// Every failing project is reported; bookings of those projects are left out.
func PriceBookings(bookings []models.Booking, projects []models.Project) ([]models.Booking, error) {
	byID := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	rates := make(map[string]float64)
	failed := make(map[string]error)
	var errs []error

	priced := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if err := b.Validate(); err != nil {
			return nil, err
		}

		rate, ok := rates[b.ProjectID]
		if !ok {
			if _, seen := failed[b.ProjectID]; seen {
				continue
			}
			project, found := byID[b.ProjectID]
			if !found {
				err := fmt.Errorf("%w: booking %q references unknown project %q", ErrBillingConfig, b.ID, b.ProjectID)
				failed[b.ProjectID] = err
				errs = append(errs, err)
				continue
			}
			r, err := ProjectRate(project)
			if err != nil {
				failed[b.ProjectID] = err
				errs = append(errs, err)
				continue
			}
			rates[b.ProjectID] = r
			rate = r
		}

		price := b.Duration() * rate
		b.Price = &price
		priced = append(priced, b)
	}

	return priced, errors.Join(errs...)
}
