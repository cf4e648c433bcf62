package api

import (
	"net/http"
	"strings"
	"time"

	"sessionsnap/internal/availability"
	"sessionsnap/internal/billing"
	"sessionsnap/internal/domain"
	"sessionsnap/internal/export"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// parseDate reads a YYYY-MM-DD query value in the studio location; empty means today.
func (s *HTTPServer) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().In(s.opts.Location), nil
	}
	return time.ParseInLocation(dateLayout, raw, s.opts.Location)
}

// parseMonth reads a YYYY-MM query value in the studio location; empty means this month.
func (s *HTTPServer) parseMonth(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := time.Now().In(s.opts.Location)
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.opts.Location), nil
	}
	return time.ParseInLocation(monthLayout, raw, s.opts.Location)
}

func (s *HTTPServer) handleWeek(w http.ResponseWriter, r *http.Request) {
	date, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	grid, err := s.services.Calendar.Week(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": grid})
}

func (s *HTTPServer) handleSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := time.Parse(time.RFC3339, strings.TrimSpace(r.URL.Query().Get("time")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid time format; expected RFC3339")
		return
	}

	ts, err := s.services.Calendar.Slot(r.Context(), slot)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *HTTPServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.services.Calendar.Draft(r.Context(), r.PathValue("operator"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Calendar.ClearDraft(r.Context(), r.PathValue("operator")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slot, err := time.Parse(time.RFC3339, req.Slot)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot format; expected RFC3339")
		return
	}

	draft, err := s.services.Calendar.ToggleSlot(r.Context(), r.PathValue("operator"), slot)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.services.Calendar.Reserve(r.Context(), domain.ReserveRequest{
		OperatorID: req.OperatorID,
		Client:     req.Client.ref(),
		Project:    req.Project.ref(),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reserveResponse{Client: res.Client, Project: res.Project, Bookings: res.Bookings})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Calendar.CancelBooking(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.services.Clients.ListClients(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (s *HTTPServer) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client, err := s.services.Clients.CreateClient(r.Context(), req.model())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *HTTPServer) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.services.Clients.ListProjects(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *HTTPServer) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project := req.model()
	project.ClientID = req.ClientID
	created, err := s.services.Clients.CreateProject(r.Context(), project)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleProjectCost(w http.ResponseWriter, r *http.Request) {
	cost, err := s.services.Billing.ProjectCost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

func (s *HTTPServer) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Billing.ProjectStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleProjectBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.services.Billing.ProjectBookings(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]projectBookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, projectBookingResponse{
			ID:            b.ID,
			StartTime:     b.StartTime.In(s.opts.Location),
			EndTime:       b.EndTime.In(s.opts.Location),
			DurationHours: b.Duration(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleReceipt(w http.ResponseWriter, r *http.Request) {
	text, err := s.services.Billing.Receipt(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *HTTPServer) recipeParams(w http.ResponseWriter, r *http.Request) (time.Time, billing.RecipeMode, bool) {
	month, err := s.parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month format; expected YYYY-MM")
		return time.Time{}, "", false
	}
	mode, err := billing.ParseRecipeMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return time.Time{}, "", false
	}
	return month, mode, true
}

func (s *HTTPServer) handleRecipe(w http.ResponseWriter, r *http.Request) {
	month, mode, ok := s.recipeParams(w, r)
	if !ok {
		return
	}

	recipe, err := s.services.Billing.MonthlyRecipe(r.Context(), month, mode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Month: month.Format(monthLayout), Mode: string(mode), Clients: recipe})
}

func (s *HTTPServer) handleExportWeek(w http.ResponseWriter, r *http.Request) {
	date, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	grid, err := s.services.Calendar.Week(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var names export.Names
	if s.services.Directory != nil {
		if names, err = s.services.Directory(r.Context()); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}

	data, err := export.WeekWorkbook(grid, names)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.sendWorkbook(w, export.WeekFileName(availability.WeekDates(date)[0]), data)
}

func (s *HTTPServer) handleExportRecipe(w http.ResponseWriter, r *http.Request) {
	month, mode, ok := s.recipeParams(w, r)
	if !ok {
		return
	}

	recipe, err := s.services.Billing.MonthlyRecipe(r.Context(), month, mode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	data, err := export.RecipeWorkbook(month, recipe, s.opts.Currency)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.sendWorkbook(w, export.RecipeFileName(month), data)
}

// sendWorkbook keeps a copy under the exports directory when one is configured.
func (s *HTTPServer) sendWorkbook(w http.ResponseWriter, fileName string, data []byte) {
	if s.opts.ExportsDir != "" {
		path, err := export.Save(s.opts.ExportsDir, fileName, data)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", fileName).Msg("Failed to keep export copy")
		} else {
			s.logger.Info().Str("file_path", path).Msg("Excel file created")
		}
	}
	writeFile(w, export.ContentType, fileName, data)
}

func (s *HTTPServer) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.services.Share.ShareMessage(r.Context(), req.OperatorID, req.ClientID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
