package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"keramika/internal/availability"
	"keramika/internal/models"
	"keramika/internal/override"
)

// handleAdminValidate runs the full rule set against an admin-entered booking
// and returns errors and warnings without persisting anything.
func (s *HTTPServer) handleAdminValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var data availability.BookingData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.availability.ValidateAdminBooking(r.Context(), data)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin validation failed")
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleAdminOverrides(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.recordOverride(w, r)
	case http.MethodGet:
		s.listOverrides(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) recordOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID    int64  `json:"booking_id"`
		OverriddenBy string `json:"overridden_by"`
		Reason       string `json:"reason"`
		Metadata     string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookingID < 1 {
		writeError(w, http.StatusBadRequest, "booking_id is required")
		return
	}
	if req.OverriddenBy == "" {
		writeError(w, http.StatusBadRequest, "overridden_by is required")
		return
	}

	record, err := s.authorizer.Authorize(r.Context(), req.BookingID, req.OverriddenBy, req.Reason, req.Metadata)
	if err == override.ErrReasonRequired {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", req.BookingID).Msg("override recording failed")
		writeError(w, http.StatusInternalServerError, "override recording failed")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (s *HTTPServer) listOverrides(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(r.URL.Query().Get("booking_id"), 10, 64)
	if err != nil || bookingID < 1 {
		writeError(w, http.StatusBadRequest, "booking_id must be a positive integer")
		return
	}

	records, err := s.authorizer.ListForBooking(r.Context(), bookingID)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("override listing failed")
		writeError(w, http.StatusInternalServerError, "override listing failed")
		return
	}
	if records == nil {
		records = []models.BookingOverrideRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"overrides": records})
}

func (s *HTTPServer) handleScheduleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.db.GetSchedulingRules(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rule listing failed")
			return
		}
		if rules == nil {
			rules = []models.SchedulingRule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})

	case http.MethodPost:
		var rule models.SchedulingRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			writeError(w, http.StatusBadRequest, "day_of_week must be 0..6")
			return
		}
		if _, err := time.Parse(models.TimeLayout, rule.Time); err != nil {
			writeError(w, http.StatusBadRequest, "time must be HH:MM")
			return
		}
		if rule.Technique != "" && !models.ValidTechnique(rule.Technique) {
			writeError(w, http.StatusBadRequest, "unknown technique")
			return
		}
		if err := s.db.CreateSchedulingRule(r.Context(), &rule); err != nil {
			s.logger.Error().Err(err).Msg("rule creation failed")
			writeError(w, http.StatusInternalServerError, "rule creation failed")
			return
		}
		s.invalidateScheduleCache(r.Context())
		writeJSON(w, http.StatusCreated, rule)

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "id must be a positive integer")
			return
		}
		if err := s.db.DeleteSchedulingRule(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "rule deletion failed")
			return
		}
		s.invalidateScheduleCache(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleScheduleOverrides(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if date := r.URL.Query().Get("date"); date != "" {
			override, err := s.db.GetSessionOverride(r.Context(), date)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "override lookup failed")
				return
			}
			if override == nil {
				writeError(w, http.StatusNotFound, "no override for this date")
				return
			}
			writeJSON(w, http.StatusOK, override)
			return
		}
		overrides, err := s.db.GetSessionOverrides(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "override listing failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"overrides": overrides})

	case http.MethodPost:
		var override models.SessionOverride
		if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if _, err := time.Parse(models.DateLayout, override.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		if override.Closed && len(override.Sessions) > 0 {
			writeError(w, http.StatusBadRequest, "a closed date cannot carry sessions")
			return
		}
		for _, session := range override.Sessions {
			if _, err := time.Parse(models.TimeLayout, session.Time); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid session time: %s", session.Time))
				return
			}
		}
		if err := s.db.SetSessionOverride(r.Context(), &override); err != nil {
			s.logger.Error().Err(err).Str("date", override.Date).Msg("override save failed")
			writeError(w, http.StatusInternalServerError, "override save failed")
			return
		}
		s.invalidateScheduleCache(r.Context())
		writeJSON(w, http.StatusOK, override)

	case http.MethodDelete:
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		if err := s.db.DeleteSessionOverride(r.Context(), date); err != nil {
			writeError(w, http.StatusInternalServerError, "override deletion failed")
			return
		}
		s.invalidateScheduleCache(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		courses, err := s.db.GetCourses(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "course listing failed")
			return
		}
		if courses == nil {
			courses = []models.Course{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": courses})

	case http.MethodPost:
		var course models.Course
		if err := json.NewDecoder(r.Body).Decode(&course); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if course.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if !models.ValidTechnique(course.Technique) {
			writeError(w, http.StatusBadRequest, "unknown technique")
			return
		}
		if _, err := time.Parse(models.DateLayout, course.StartDate); err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		if course.Weeks < 1 {
			writeError(w, http.StatusBadRequest, "weeks must be at least 1")
			return
		}
		if err := s.db.CreateCourse(r.Context(), &course); err != nil {
			s.logger.Error().Err(err).Msg("course creation failed")
			writeError(w, http.StatusInternalServerError, "course creation failed")
			return
		}
		s.invalidateScheduleCache(r.Context())
		writeJSON(w, http.StatusCreated, course)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleExportBookings streams the bookings workbook for a date range.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	startDate := q.Get("start_date")
	endDate := q.Get("end_date")
	if _, err := time.Parse(models.DateLayout, startDate); err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	if _, err := time.Parse(models.DateLayout, endDate); err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	workbook, err := s.exporter.BookingsWorkbook(r.Context(), startDate, endDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("bookings export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("bookings_%s_%s.xlsx", startDate, endDate)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("workbook write failed")
	}
}

// handleExportAudit streams the audit trail workbook for one giftcard.
func (s *HTTPServer) handleExportAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	giftcardID, err := strconv.ParseInt(r.URL.Query().Get("giftcard_id"), 10, 64)
	if err != nil || giftcardID < 1 {
		writeError(w, http.StatusBadRequest, "giftcard_id must be a positive integer")
		return
	}

	workbook, err := s.exporter.AuditWorkbook(r.Context(), giftcardID)
	if err != nil {
		s.logger.Error().Err(err).Int64("giftcard_id", giftcardID).Msg("audit export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("giftcard_%d_audit.xlsx", giftcardID)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("workbook write failed")
	}
}
