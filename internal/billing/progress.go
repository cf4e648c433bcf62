package billing

import (
	"math"

	"sessionsnap/internal/models"
)

// ProjectProgress compares booked hours with the project's target. A missing or
// non-positive target is reported as ProgressNoTarget, never as an error.
func ProjectProgress(bookings []models.Booking, project models.Project) models.ProjectStatus {
	hours := TotalHours(bookings)
	status := models.ProjectStatus{ProjectID: project.ID, BookedHours: hours}

	if project.TargetHours == nil || *project.TargetHours <= 0 {
		status.State = models.ProgressNoTarget
		return status
	}

	target := *project.TargetHours
	status.TargetHours = target
	status.Percent = math.Min(100, hours/target*100)

	switch {
	case hours <= 0:
		status.State = models.ProgressNotStarted
	case hours >= target:
		status.State = models.ProgressCompleted
	default:
		status.State = models.ProgressInProgress
	}
	return status
}
