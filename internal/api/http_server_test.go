package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sessionsnap/internal/availability"
	"sessionsnap/internal/billing"
	"sessionsnap/internal/config"
	"sessionsnap/internal/database"
	"sessionsnap/internal/events"
	"sessionsnap/internal/export"
	"sessionsnap/internal/models"
	"sessionsnap/internal/repository"
	"sessionsnap/internal/service"
	"sessionsnap/internal/suggest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", nopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureInternalClient(context.Background()))
	return db
}

func newServices(db *database.DB) Services {
	logger := nopLogger()
	drafts := repository.NewMemoryDraftRepository(time.Hour)
	bus := events.NewEventBus()

	return Services{
		Calendar: service.NewCalendarService(db, drafts, bus, availability.DefaultHours(), time.UTC, logger),
		Billing: service.NewBillingService(db, billing.ReceiptFormatter{
			StudioName: "Estudio Sol",
			Currency:   "R$",
			Location:   time.UTC,
		}, logger),
		Clients: service.NewClientService(db, bus, logger),
		Share: service.NewShareService(db, drafts, suggest.NewTemplateSuggester(), service.ShareSettings{
			StudioName:   "Estudio Sol",
			CalendarLink: "https://sol.example/agenda",
			Limit:        2,
			Window:       time.Minute,
		}, logger),
		Directory: func(ctx context.Context) (export.Names, error) {
			return db.Load(ctx)
		},
	}
}

func openAPIConfig() config.APIConfig {
	return config.APIConfig{Enabled: true, HTTP: config.APIHTTPConfig{Enabled: true}}
}

func newTestServer(t *testing.T, cfg config.APIConfig, services Services, opts Options) *httptest.Server {
	t.Helper()
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	srv := NewHTTPServer(cfg, services, opts, nopLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, openAPIConfig(), newServices(newTestDB(t)), Options{})

	resp := doRequest(t, ts, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestReservationFlow(t *testing.T) {
	ts := newTestServer(t, openAPIConfig(), newServices(newTestDB(t)), Options{})

	for _, slot := range []string{"2024-06-04T10:00:00Z", "2024-06-04T11:00:00Z"} {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": slot})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/drafts/op1", nil)
	var draft models.Draft
	decodeBody(t, resp, &draft)
	assert.Len(t, draft.Slots, 2)

	resp = doRequest(t, ts, http.MethodPost, "/api/v1/bookings", map[string]any{
		"operator_id": "op1",
		"client":      map[string]any{"pending": map[string]any{"name": "Ana", "email": "ana@example.com"}},
		"project": map[string]any{"pending": map[string]any{
			"name":         "Podcast",
			"billing_type": "package",
			"package_tier": "10h",
		}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reserved reserveResponse
	decodeBody(t, resp, &reserved)
	require.Len(t, reserved.Bookings, 2)
	projectID := reserved.Project.ID

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/calendar/week?date=2024-06-05", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var week struct {
		Days []models.DaySlots `json:"days"`
	}
	decodeBody(t, resp, &week)
	require.Len(t, week.Days, 6)
	tuesday := week.Days[1].Slots
	assert.Equal(t, models.SlotBuffer, tuesday[0].Status)
	assert.Equal(t, models.SlotBooked, tuesday[1].Status)
	assert.Equal(t, models.SlotBooked, tuesday[2].Status)
	assert.Equal(t, models.SlotBuffer, tuesday[4].Status)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/calendar/slot?time=2024-06-04T13:00:00Z", nil)
	var slot models.TimeSlot
	decodeBody(t, resp, &slot)
	assert.Equal(t, models.SlotBuffer, slot.Status)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/projects/"+projectID+"/cost", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cost models.CostMetrics
	decodeBody(t, resp, &cost)
	assert.Equal(t, models.CostMetrics{TotalHours: 2, PricePerHour: 260, TotalAmount: 520}, cost)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/projects/"+projectID+"/receipt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "04/06/2024: 10:00 – 12:00")
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/recipe?month=2024-06", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recipe recipeResponse
	decodeBody(t, resp, &recipe)
	assert.Equal(t, "tiered", recipe.Mode)
	assert.Equal(t, models.CostMetrics{TotalHours: 2, PricePerHour: 350, TotalAmount: 700}, recipe.Clients["Ana"])

	resp = doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/"+reserved.Bookings[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/"+reserved.Bookings[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCalendarErrors(t *testing.T) {
	db := newTestDB(t)
	ts := newTestServer(t, openAPIConfig(), newServices(db), Options{})

	booking := models.Booking{
		ID:        "b1",
		ClientID:  models.InternalClientID,
		ProjectID: models.GeneralProjectID,
		StartTime: time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateBookingsWithLock(context.Background(), []models.Booking{booking}, availability.DefaultHours()))

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"buffer slot", http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": "2024-06-03T15:00:00Z"}, http.StatusConflict},
		{"booked slot", http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": "2024-06-03T14:00:00Z"}, http.StatusConflict},
		{"outside hours", http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": "2024-06-03T20:00:00Z"}, http.StatusBadRequest},
		{"bad slot format", http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": "monday"}, http.StatusBadRequest},
		{"missing slot", http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": "2024-06-03T10:00:00Z", "x": "y"}, http.StatusBadRequest},
		{"bad week date", http.MethodGet, "/api/v1/calendar/week?date=03/06/2024", nil, http.StatusBadRequest},
		{"bad slot time", http.MethodGet, "/api/v1/calendar/slot?time=", nil, http.StatusBadRequest},
		{"bad recipe mode", http.MethodGet, "/api/v1/recipe?month=2024-06&mode=weird", nil, http.StatusBadRequest},
		{"unknown project cost", http.MethodGet, "/api/v1/projects/ghost/cost", nil, http.StatusNotFound},
		{
			name:   "empty draft",
			method: http.MethodPost,
			path:   "/api/v1/bookings",
			body: map[string]any{
				"operator_id": "op2",
				"client":      map[string]any{"id": models.InternalClientID},
				"project":     map[string]any{"id": models.GeneralProjectID},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "ref with id and pending",
			method: http.MethodPost,
			path:   "/api/v1/bookings",
			body: map[string]any{
				"operator_id": "op2",
				"client":      map[string]any{"id": "c1", "pending": map[string]any{"name": "Ana"}},
				"project":     map[string]any{"id": models.GeneralProjectID},
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestProjectBookingsEndpoint(t *testing.T) {
	ts := newTestServer(t, openAPIConfig(), newServices(newTestDB(t)), Options{})

	for _, slot := range []string{"2024-06-05T15:00:00Z", "2024-06-05T10:00:00Z"} {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/drafts/op1/toggle", map[string]string{"slot": slot})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", map[string]any{
		"operator_id": "op1",
		"client":      map[string]any{"pending": map[string]any{"name": "Bruno"}},
		"project": map[string]any{"pending": map[string]any{
			"name":         "Audiobook",
			"billing_type": "custom",
			"custom_rate":  300,
		}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reserved reserveResponse
	decodeBody(t, resp, &reserved)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/projects/"+reserved.Project.ID+"/bookings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bookings []projectBookingResponse
	decodeBody(t, resp, &bookings)
	require.Len(t, bookings, 2)
	assert.True(t, bookings[0].StartTime.Equal(time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)))
	assert.True(t, bookings[1].StartTime.Equal(time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC)))
	assert.True(t, bookings[1].EndTime.Equal(time.Date(2024, 6, 5, 16, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1.0, bookings[0].DurationHours)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/projects/ghost/bookings", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientEndpoints(t *testing.T) {
	ts := newTestServer(t, openAPIConfig(), newServices(newTestDB(t)), Options{})

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/clients", map[string]string{"name": "Ana", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPost, "/api/v1/clients", map[string]string{"name": "Ana", "phone": "5511999990000"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var client models.Client
	decodeBody(t, resp, &client)
	require.NotEmpty(t, client.ID)

	resp = doRequest(t, ts, http.MethodPost, "/api/v1/projects", map[string]any{
		"client_id":    client.ID,
		"name":         "Jingles",
		"billing_type": "custom",
		"custom_rate":  300,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPost, "/api/v1/projects", map[string]any{
		"client_id":    client.ID,
		"name":         "Broken",
		"billing_type": "custom",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/clients/"+client.ID+"/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var projects struct {
		Projects []models.Project `json:"projects"`
	}
	decodeBody(t, resp, &projects)
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, "Jingles", projects.Projects[0].Name)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/clients", nil)
	var clients struct {
		Clients []models.Client `json:"clients"`
	}
	decodeBody(t, resp, &clients)
	assert.Len(t, clients.Clients, 1)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/clients/ghost/projects", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type mockBilling struct {
	mock.Mock
}

func (m *mockBilling) ProjectCost(ctx context.Context, projectID string) (models.CostMetrics, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(models.CostMetrics), args.Error(1)
}

func (m *mockBilling) ProjectStatus(ctx context.Context, projectID string) (models.ProjectStatus, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(models.ProjectStatus), args.Error(1)
}

func (m *mockBilling) ProjectBookings(ctx context.Context, projectID string) ([]models.Booking, error) {
	args := m.Called(ctx, projectID)
	bookings, _ := args.Get(0).([]models.Booking)
	return bookings, args.Error(1)
}

func (m *mockBilling) Receipt(ctx context.Context, projectID string) (string, error) {
	args := m.Called(ctx, projectID)
	return args.String(0), args.Error(1)
}

func (m *mockBilling) MonthlyRecipe(ctx context.Context, month time.Time, mode billing.RecipeMode) (models.MonthlyRecipe, error) {
	args := m.Called(ctx, month, mode)
	recipe, _ := args.Get(0).(models.MonthlyRecipe)
	return recipe, args.Error(1)
}

func TestBillingErrorMapping(t *testing.T) {
	mb := &mockBilling{}
	mb.On("ProjectCost", mock.Anything, "p1").
		Return(models.CostMetrics{}, fmt.Errorf("%w: project %q has no rate", billing.ErrBillingConfig, "p1"))
	mb.On("ProjectStatus", mock.Anything, "p1").
		Return(models.ProjectStatus{}, fmt.Errorf("disk on fire"))
	mb.On("MonthlyRecipe", mock.Anything, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), billing.ModeProjectPriced).
		Return(nil, fmt.Errorf("%w: %q", billing.ErrUnpricedBooking, "b1"))

	services := newServices(newTestDB(t))
	services.Billing = mb
	ts := newTestServer(t, openAPIConfig(), services, Options{})

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/projects/p1/cost", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.True(t, strings.HasPrefix(body["error"], "could not compute cost"))

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/projects/p1/status", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.Equal(t, "internal error", body["error"])

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/recipe?month=2024-06&mode=priced", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	mb.AssertExpectations(t)
}

func TestExportEndpoints(t *testing.T) {
	db := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "exports")
	ts := newTestServer(t, openAPIConfig(), newServices(db), Options{ExportsDir: dir, Currency: "R$"})

	resp := doRequest(t, ts, http.MethodGet, "/api/v1/export/week.xlsx?date=2024-06-05", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "week_2024-06-03.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	_, err = os.Stat(filepath.Join(dir, "week_2024-06-03.xlsx"))
	assert.NoError(t, err)

	resp = doRequest(t, ts, http.MethodGet, "/api/v1/export/recipe.xlsx?month=2024-06", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "recipe_2024-06.xlsx")
}

func TestShareMessage(t *testing.T) {
	ts := newTestServer(t, openAPIConfig(), newServices(newTestDB(t)), Options{})

	for i := 0; i < 2; i++ {
		resp := doRequest(t, ts, http.MethodPost, "/api/v1/share-message", map[string]string{"operator_id": "op1"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Contains(t, body["message"], "https://sol.example/agenda")
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/v1/share-message", map[string]string{"operator_id": "op1"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = doRequest(t, ts, http.MethodPost, "/api/v1/share-message", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
