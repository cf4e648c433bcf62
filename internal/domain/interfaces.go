package domain

import (
	"context"
	"time"

	"sessionsnap/internal/availability"
	"sessionsnap/internal/billing"
	"sessionsnap/internal/models"
)

// Store persists clients, projects and bookings.
type Store interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error

	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context, includeInternal bool) ([]models.Client, error)

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjectsByClient(ctx context.Context, clientID string) ([]models.Project, error)

	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingsByRange(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	GetBookingsByProject(ctx context.Context, projectID string) ([]models.Booking, error)
	GetBookingsByClient(ctx context.Context, clientID string) ([]models.Booking, error)
	CreateBookingsWithLock(ctx context.Context, bookings []models.Booking, hours availability.Hours) error
	DeleteBooking(ctx context.Context, id string) error
}

// DraftRepository keeps each operator's unconfirmed slot selection.
type DraftRepository interface {
	GetDraft(ctx context.Context, operatorID string) (*models.Draft, error)
	SetDraft(ctx context.Context, draft *models.Draft) error
	ClearDraft(ctx context.Context, operatorID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TextSuggester produces a short shareable message. Implementations may call out to
// a text-generation backend; callers treat any error as "no suggestion".
type TextSuggester interface {
	Suggest(ctx context.Context, sc models.SuggestionContext) (string, error)
}

// ReserveRequest books every slot of an operator's draft for one client and project.
// Pending refs are created before any booking is written.
type ReserveRequest struct {
	OperatorID string
	Client     models.ClientRef
	Project    models.ProjectRef
}

type ReserveResult struct {
	Client   models.Client
	Project  models.Project
	Bookings []models.Booking
}

type CalendarService interface {
	Week(ctx context.Context, ref time.Time) ([]models.DaySlots, error)
	Slot(ctx context.Context, slot time.Time) (models.TimeSlot, error)
	Draft(ctx context.Context, operatorID string) (*models.Draft, error)
	ToggleSlot(ctx context.Context, operatorID string, slot time.Time) (*models.Draft, error)
	ClearDraft(ctx context.Context, operatorID string) error
	Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error)
	CancelBooking(ctx context.Context, id string) error
}

type BillingService interface {
	ProjectCost(ctx context.Context, projectID string) (models.CostMetrics, error)
	ProjectStatus(ctx context.Context, projectID string) (models.ProjectStatus, error)
	ProjectBookings(ctx context.Context, projectID string) ([]models.Booking, error)
	Receipt(ctx context.Context, projectID string) (string, error)
	MonthlyRecipe(ctx context.Context, month time.Time, mode billing.RecipeMode) (models.MonthlyRecipe, error)
}

type ClientService interface {
	ListClients(ctx context.Context) ([]models.Client, error)
	CreateClient(ctx context.Context, client models.Client) (*models.Client, error)
	ListProjects(ctx context.Context, clientID string) ([]models.Project, error)
	CreateProject(ctx context.Context, project models.Project) (*models.Project, error)
}

type ShareService interface {
	ShareMessage(ctx context.Context, operatorID, clientID string) (string, error)
}
