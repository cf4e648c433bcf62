package billing

import (
	"sort"
	"strings"
	"time"

	"sessionsnap/internal/models"
)

// MergeTolerance is the largest gap between two bookings still shown as one session.
const MergeTolerance = time.Minute

// MergeContiguousSessions sorts bookings by start and joins each booking that starts at,
// or within MergeTolerance of, the end of the running range. Overlapping bookings are
// joined as well, so merging an already merged list changes nothing.
func MergeContiguousSessions(bookings []models.Booking) []models.SessionRange {
	if len(bookings) == 0 {
		return nil
	}

	sorted := make([]models.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	merged := []models.SessionRange{{Start: sorted[0].StartTime, End: sorted[0].EndTime}}
	for _, b := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !b.StartTime.After(last.End.Add(MergeTolerance)) {
			if b.EndTime.After(last.End) {
				last.End = b.EndTime
			}
			continue
		}
		merged = append(merged, models.SessionRange{Start: b.StartTime, End: b.EndTime})
	}
	return merged
}

// DaySessions is one calendar day of merged ranges.
type DaySessions struct {
	Date   time.Time
	Ranges []models.SessionRange
}

// GroupSessionsByDay buckets ranges by the calendar day of their start in loc,
// keeping chronological order. A nil loc keeps each range's own location.
func GroupSessionsByDay(ranges []models.SessionRange, loc *time.Location) []DaySessions {
	var days []DaySessions
	for _, r := range ranges {
		start := r.Start
		if loc != nil {
			start = start.In(loc)
			r = models.SessionRange{Start: start, End: r.End.In(loc)}
		}
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		if n := len(days); n > 0 && days[n-1].Date.Equal(day) {
			days[n-1].Ranges = append(days[n-1].Ranges, r)
			continue
		}
		days = append(days, DaySessions{Date: day, Ranges: []models.SessionRange{r}})
	}
	return days
}

// FormatRanges renders ranges as "HH:mm – HH:mm" joined by commas.
func FormatRanges(ranges []models.SessionRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, r.Start.Format("15:04")+" – "+r.End.Format("15:04"))
	}
	return strings.Join(parts, ", ")
}
