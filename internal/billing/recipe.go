package billing

import (
	"fmt"
	"time"

	"sessionsnap/internal/models"
)

// RecipeMode selects how ClientMonthlyMetrics prices a client's month.
type RecipeMode string

const (
	// ModeVolumeTiered prices the client's total monthly hours on the volume schedule.
	ModeVolumeTiered RecipeMode = "tiered"
	// ModeProjectPriced sums per-booking prices and reports the effective average rate.
	ModeProjectPriced RecipeMode = "priced"
)

func ParseRecipeMode(s string) (RecipeMode, error) {
	switch RecipeMode(s) {
	case "", ModeVolumeTiered:
		return ModeVolumeTiered, nil
	case ModeProjectPriced:
		return ModeProjectPriced, nil
	default:
		return "", fmt.Errorf("unknown recipe mode %q", s)
	}
}

// ClientDirectory resolves client ids for the monthly recipe.
type ClientDirectory interface {
	Client(id string) (*models.Client, bool)
}

// MonthBounds returns [first day 00:00, first day of next month 00:00) in month's location.
func MonthBounds(month time.Time) (time.Time, time.Time) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return start, start.AddDate(0, 1, 0)
}

type clientTotals struct {
	name     string
	duration time.Duration
	amount   float64
}

// ClientMonthlyMetrics builds the monthly recipe: bookings starting in month's calendar month
// are grouped and priced per client id, then keyed by display name. Clients sharing a display
// name are keyed "Name (id)". Internal clients are left out; unknown ids show as
// models.UnknownClientName.
func ClientMonthlyMetrics(bookings []models.Booking, month time.Time, directory ClientDirectory, mode RecipeMode) (models.MonthlyRecipe, error) {
	if mode != ModeVolumeTiered && mode != ModeProjectPriced {
		return nil, fmt.Errorf("unknown recipe mode %q", mode)
	}

	from, to := MonthBounds(month)
	totals := make(map[string]*clientTotals)

	for _, b := range bookings {
		if b.StartTime.Before(from) || !b.StartTime.Before(to) {
			continue
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}

		t, ok := totals[b.ClientID]
		if !ok {
			name := models.UnknownClientName
			if c, found := directory.Client(b.ClientID); found {
				if c.Internal {
					continue
				}
				name = c.Name
			}
			t = &clientTotals{name: name}
			totals[b.ClientID] = t
		}

		if mode == ModeProjectPriced && b.Price == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnpricedBooking, b.ID)
		}

		t.duration += b.EndTime.Sub(b.StartTime)
		if b.Price != nil {
			t.amount += *b.Price
		}
	}

	nameUses := make(map[string]int, len(totals))
	for _, t := range totals {
		nameUses[t.name]++
	}

	recipe := make(models.MonthlyRecipe, len(totals))
	for id, t := range totals {
		key := t.name
		if nameUses[t.name] > 1 {
			key = fmt.Sprintf("%s (%s)", t.name, id)
		}

		hours := t.duration.Hours()
		switch mode {
		case ModeVolumeTiered:
			rate := MonthlyTierRate(hours)
			recipe[key] = models.CostMetrics{TotalHours: hours, PricePerHour: rate, TotalAmount: hours * rate}
		case ModeProjectPriced:
			var rate float64
			if hours > 0 {
				rate = t.amount / hours
			}
			recipe[key] = models.CostMetrics{TotalHours: hours, PricePerHour: rate, TotalAmount: t.amount}
		}
	}
	return recipe, nil
}
