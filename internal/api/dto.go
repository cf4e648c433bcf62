package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sessionsnap/internal/models"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type toggleRequest struct {
	Slot string `json:"slot" validate:"required"`
}

type clientInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=40"`
	Email    string `json:"email" validate:"omitempty,email"`
	TaxID    string `json:"tax_id" validate:"omitempty,max=40"`
	WhatsApp string `json:"whatsapp" validate:"omitempty,max=40"`
	Notes    string `json:"notes" validate:"omitempty,max=1000"`
}

func (c clientInput) model() models.Client {
	return models.Client{
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		TaxID:    c.TaxID,
		WhatsApp: c.WhatsApp,
		Notes:    c.Notes,
	}
}

type projectInput struct {
	Name        string   `json:"name" validate:"required,max=120"`
	BillingType string   `json:"billing_type" validate:"required,oneof=package custom"`
	PackageTier *string  `json:"package_tier" validate:"omitempty,oneof=Single 10h 20h 40h"`
	CustomRate  *float64 `json:"custom_rate" validate:"omitempty,gt=0"`
	TargetHours *float64 `json:"target_hours" validate:"omitempty,gt=0"`
}

func (p projectInput) model() models.Project {
	project := models.Project{
		Name:        p.Name,
		BillingType: models.BillingType(p.BillingType),
		CustomRate:  p.CustomRate,
		TargetHours: p.TargetHours,
	}
	if p.PackageTier != nil {
		project.PackageTier = models.TierPtr(models.PackageTier(*p.PackageTier))
	}
	return project
}

type clientRefRequest struct {
	ID      string       `json:"id" validate:"required_without=Pending,excluded_with=Pending"`
	Pending *clientInput `json:"pending"`
}

func (r clientRefRequest) ref() models.ClientRef {
	if r.Pending != nil {
		return models.PendingClient(r.Pending.model())
	}
	return models.PersistedClient(r.ID)
}

type projectRefRequest struct {
	ID      string        `json:"id" validate:"required_without=Pending,excluded_with=Pending"`
	Pending *projectInput `json:"pending"`
}

func (r projectRefRequest) ref() models.ProjectRef {
	if r.Pending != nil {
		return models.PendingProject(r.Pending.model())
	}
	return models.PersistedProject(r.ID)
}

type reserveRequest struct {
	OperatorID string            `json:"operator_id" validate:"required,max=64"`
	Client     clientRefRequest  `json:"client"`
	Project    projectRefRequest `json:"project"`
}

type reserveResponse struct {
	Client   models.Client    `json:"client"`
	Project  models.Project   `json:"project"`
	Bookings []models.Booking `json:"bookings"`
}

type createProjectRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	projectInput
}

type shareRequest struct {
	OperatorID string `json:"operator_id" validate:"required,max=64"`
	ClientID   string `json:"client_id"`
}

type recipeResponse struct {
	Month   string               `json:"month"`
	Mode    string               `json:"mode"`
	Clients models.MonthlyRecipe `json:"clients"`
}

type projectBookingResponse struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationHours float64   `json:"duration_hours"`
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(fields, "; "))
}
