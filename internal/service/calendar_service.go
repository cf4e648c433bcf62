package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sessionsnap/internal/availability"
	"sessionsnap/internal/billing"
	"sessionsnap/internal/database"
	"sessionsnap/internal/domain"
	"sessionsnap/internal/events"
	"sessionsnap/internal/metrics"
	"sessionsnap/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CalendarService owns the week grid, operator drafts and reservations. Slot status always
// comes from the availability engine; the store re-checks it when bookings are written.
type CalendarService struct {
	store    domain.Store
	drafts   domain.DraftRepository
	eventBus domain.EventPublisher
	hours    availability.Hours
	loc      *time.Location
	logger   *zerolog.Logger

	// draftLocks holds one *sync.Mutex per operator id.
	draftLocks sync.Map

	now   func() time.Time
	newID func() string
}

func NewCalendarService(
	store domain.Store,
	drafts domain.DraftRepository,
	eventBus domain.EventPublisher,
	hours availability.Hours,
	loc *time.Location,
	logger *zerolog.Logger,
) *CalendarService {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarService{
		store:    store,
		drafts:   drafts,
		eventBus: eventBus,
		hours:    hours,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// margin is how far outside a window a booking can sit and still affect a slot inside it.
func (s *CalendarService) margin() time.Duration {
	return s.hours.Buffer + models.SlotDuration
}

func (s *CalendarService) Week(ctx context.Context, ref time.Time) ([]models.DaySlots, error) {
	dates := availability.WeekDates(ref.In(s.loc))
	from := dates[0]
	to := dates[len(dates)-1].AddDate(0, 0, 1)

	bookings, err := s.store.GetBookingsByRange(ctx, from.Add(-s.margin()), to.Add(s.margin()))
	if err != nil {
		return nil, fmt.Errorf("load week bookings: %w", err)
	}
	return s.hours.GridFor(dates, inLocation(bookings, s.loc))
}

// Slot classifies a single slot.
func (s *CalendarService) Slot(ctx context.Context, slot time.Time) (models.TimeSlot, error) {
	slot, err := s.checkSlot(slot)
	if err != nil {
		return models.TimeSlot{}, err
	}
	c, err := s.classify(ctx, slot)
	if err != nil {
		return models.TimeSlot{}, err
	}
	return models.TimeSlot{Time: slot, Status: c.Status, Booking: c.Booking}, nil
}

func (s *CalendarService) classify(ctx context.Context, slot time.Time) (availability.Classification, error) {
	bookings, err := s.store.GetBookingsByRange(ctx, slot.Add(-s.margin()), slot.Add(models.SlotDuration+s.margin()))
	if err != nil {
		return availability.Classification{}, fmt.Errorf("load bookings around slot: %w", err)
	}
	return s.hours.Classify(slot, inLocation(bookings, s.loc))
}

// checkSlot normalises slot to the studio location and rejects anything that is not
// the start of a grid slot.
func (s *CalendarService) checkSlot(slot time.Time) (time.Time, error) {
	slot = slot.In(s.loc)
	if slot.Minute() != 0 || slot.Second() != 0 || slot.Nanosecond() != 0 {
		return time.Time{}, fmt.Errorf("%w: %s is not on the hour", ErrSlotOutsideHours, slot.Format(time.RFC3339))
	}
	if slot.Weekday() == time.Sunday || slot.Hour() < s.hours.Start || slot.Hour() >= s.hours.End {
		return time.Time{}, fmt.Errorf("%w: %s", ErrSlotOutsideHours, slot.Format(time.RFC3339))
	}
	return slot, nil
}

// Draft returns the operator's selection; an operator without one gets an empty draft.
func (s *CalendarService) Draft(ctx context.Context, operatorID string) (*models.Draft, error) {
	draft, err := s.drafts.GetDraft(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		draft = &models.Draft{OperatorID: operatorID, Slots: []time.Time{}}
	}
	return draft, nil
}

// lockDraft serialises draft read-modify-write cycles of one operator and returns the unlock.
func (s *CalendarService) lockDraft(operatorID string) func() {
	val, _ := s.draftLocks.LoadOrStore(operatorID, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ToggleSlot adds slot to the operator's draft, or removes it if already selected.
// Only available slots can be added. Toggles of one operator are serialised within this
// process; API instances sharing drafts through Redis do not coordinate, and the last write wins.
func (s *CalendarService) ToggleSlot(ctx context.Context, operatorID string, slot time.Time) (*models.Draft, error) {
	slot, err := s.checkSlot(slot)
	if err != nil {
		return nil, err
	}

	unlock := s.lockDraft(operatorID)
	defer unlock()

	draft, err := s.Draft(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	if !draft.Has(slot) {
		c, err := s.classify(ctx, slot)
		if err != nil {
			return nil, err
		}
		if c.Status != models.SlotAvailable {
			return nil, fmt.Errorf("%w: %s is %s", ErrSlotUnavailable, slot.Format(time.RFC3339), c.Status)
		}
	}

	selected := draft.Toggle(slot)
	draft.UpdatedAt = s.now()
	if err := s.drafts.SetDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	s.logger.Debug().
		Str("operator", operatorID).
		Time("slot", slot).
		Bool("selected", selected).
		Int("draft_size", len(draft.Slots)).
		Msg("Draft slot toggled")
	return draft, nil
}

func (s *CalendarService) ClearDraft(ctx context.Context, operatorID string) error {
	unlock := s.lockDraft(operatorID)
	defer unlock()

	if err := s.drafts.ClearDraft(ctx, operatorID); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// Reserve books every slot of the operator's draft as a 1-hour booking. Pending client and
// project refs are created first; the bookings are then written atomically.
func (s *CalendarService) Reserve(ctx context.Context, req domain.ReserveRequest) (*domain.ReserveResult, error) {
	draft, err := s.drafts.GetDraft(ctx, req.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil || len(draft.Slots) == 0 {
		return nil, ErrEmptyDraft
	}

	// fail before creating pending entities when a slot is already gone
	for _, slot := range draft.Slots {
		c, err := s.classify(ctx, slot)
		if err != nil {
			return nil, err
		}
		if c.Status != models.SlotAvailable {
			metrics.IncReservationConflict()
			return nil, fmt.Errorf("%w: %s is %s", ErrSlotUnavailable, slot.In(s.loc).Format(time.RFC3339), c.Status)
		}
	}

	client, err := s.resolveClient(ctx, req.Client)
	if err != nil {
		return nil, err
	}
	project, err := s.resolveProject(ctx, req.Project, client)
	if err != nil {
		return nil, err
	}

	bookings := make([]models.Booking, 0, len(draft.Slots))
	for _, slot := range draft.Slots {
		bookings = append(bookings, models.Booking{
			ID:        s.newID(),
			ClientID:  client.ID,
			ProjectID: project.ID,
			StartTime: slot,
			EndTime:   slot.Add(models.SlotDuration),
		})
	}

	if err := s.store.CreateBookingsWithLock(ctx, bookings, s.hours); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			metrics.IncReservationConflict()
			return nil, fmt.Errorf("%w: %w", ErrSlotUnavailable, err)
		}
		return nil, fmt.Errorf("create bookings: %w", err)
	}
	metrics.AddBookingsReserved(len(bookings))

	if err := s.drafts.ClearDraft(ctx, req.OperatorID); err != nil {
		s.logger.Warn().Err(err).Str("operator", req.OperatorID).Msg("Failed to clear draft after reservation")
	}

	s.publishReservation(req.OperatorID, *client, *project, bookings)

	s.logger.Info().
		Str("operator", req.OperatorID).
		Str("client_id", client.ID).
		Str("project_id", project.ID).
		Int("bookings", len(bookings)).
		Msg("Reservation created")

	return &domain.ReserveResult{Client: *client, Project: *project, Bookings: bookings}, nil
}

func (s *CalendarService) resolveClient(ctx context.Context, ref models.ClientRef) (*models.Client, error) {
	switch {
	case ref.IsPending() && ref.ID != "":
		return nil, fmt.Errorf("%w: client has both id and pending fields", ErrInvalidReference)
	case ref.IsPending():
		c := *ref.Pending
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidClient)
		}
		c.ID = s.newID()
		c.Internal = false
		c.CreatedAt = s.now()
		if err := s.store.CreateClient(ctx, &c); err != nil {
			return nil, err
		}
		s.publish(events.EventClientCreated, events.EntityEventPayload{ID: c.ID, Name: c.Name})
		return &c, nil
	case ref.ID != "":
		return s.store.GetClient(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("%w: client is required", ErrInvalidReference)
	}
}

func (s *CalendarService) resolveProject(ctx context.Context, ref models.ProjectRef, client *models.Client) (*models.Project, error) {
	switch {
	case ref.IsPending() && ref.ID != "":
		return nil, fmt.Errorf("%w: project has both id and pending fields", ErrInvalidReference)
	case ref.IsPending():
		p := *ref.Pending
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidProject)
		}
		p.ID = s.newID()
		p.ClientID = client.ID
		p.CreatedAt = s.now()
		if err := s.store.CreateProject(ctx, &p); err != nil {
			return nil, err
		}
		s.publish(events.EventProjectCreated, events.EntityEventPayload{ID: p.ID, Name: p.Name, ClientID: p.ClientID})
		return &p, nil
	case ref.ID != "":
		p, err := s.store.GetProject(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if p.ClientID != client.ID {
			return nil, fmt.Errorf("%w: project %q does not belong to client %q", ErrInvalidReference, p.ID, client.ID)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: project is required", ErrInvalidReference)
	}
}

func (s *CalendarService) CancelBooking(ctx context.Context, id string) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return err
	}

	s.publish(events.EventBookingCanceled, events.BookingEventPayload{
		BookingIDs: []string{booking.ID},
		ClientID:   booking.ClientID,
		ProjectID:  booking.ProjectID,
		Start:      booking.StartTime,
		End:        booking.EndTime,
		Hours:      booking.Duration(),
	})
	s.logger.Info().Str("booking_id", id).Msg("Booking canceled")
	return nil
}

func (s *CalendarService) publishReservation(operatorID string, client models.Client, project models.Project, bookings []models.Booking) {
	ranges := billing.MergeContiguousSessions(bookings)
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	s.publish(events.EventBookingCreated, events.BookingEventPayload{
		BookingIDs:  ids,
		ClientID:    client.ID,
		ClientName:  client.Name,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Start:       ranges[0].Start,
		End:         ranges[len(ranges)-1].End,
		Hours:       billing.TotalHours(bookings),
		OperatorID:  operatorID,
	})
}

func (s *CalendarService) publish(eventType string, payload any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// inLocation converts booking times so grid days and buffers line up with the studio clock.
func inLocation(bookings []models.Booking, loc *time.Location) []models.Booking {
	for i := range bookings {
		bookings[i].StartTime = bookings[i].StartTime.In(loc)
		bookings[i].EndTime = bookings[i].EndTime.In(loc)
	}
	return bookings
}
