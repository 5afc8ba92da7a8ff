package api

import (
	"net/http"
	"strconv"
	"time"

	"keramika/internal/availability"
	"keramika/internal/models"
)

// handleAvailabilityCheck answers "can N people book this exact slot" with a
// live capacity snapshot.
func (s *HTTPServer) handleAvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	date := q.Get("date")
	timeStr := q.Get("time")
	technique := q.Get("technique")
	if date == "" || timeStr == "" || technique == "" {
		writeError(w, http.StatusBadRequest, "date, time and technique are required")
		return
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	participants := 1
	if raw := q.Get("participants"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "participants must be a positive integer")
			return
		}
		participants = n
	}

	check, err := s.availability.CheckSlot(r.Context(), date, timeStr, technique, participants)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Str("time", timeStr).Msg("availability check failed")
		writeError(w, http.StatusInternalServerError, "availability check failed")
		return
	}

	writeJSON(w, http.StatusOK, check)
}

func (s *HTTPServer) handleAvailabilitySlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	query := availability.SlotQuery{
		Technique:    q.Get("technique"),
		Participants: 1,
		DaysAhead:    -1, // default horizon unless the caller narrows it
	}
	if query.Technique == "" {
		writeError(w, http.StatusBadRequest, "technique is required")
		return
	}
	if raw := q.Get("participants"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "participants must be a positive integer")
			return
		}
		query.Participants = n
	}
	if raw := q.Get("start_date"); raw != "" {
		start, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		query.StartDate = start
	}
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		query.DaysAhead = n
	}

	slots, err := s.availability.AvailableSlots(r.Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Str("technique", query.Technique).Msg("slot listing failed")
		writeError(w, http.StatusInternalServerError, "slot listing failed")
		return
	}
	if slots == nil {
		slots = []availability.Slot{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// handleSessions serves the enriched schedule view for the admin screen.
func (s *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	var from time.Time
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}

	days := -1
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	technique := q.Get("technique")
	if technique != "" && !models.ValidTechnique(technique) {
		writeError(w, http.StatusBadRequest, "unknown technique")
		return
	}

	includeFull := q.Get("include_full") == "true"

	sessions, err := s.availability.Sessions(r.Context(), from, days, technique, includeFull)
	if err != nil {
		s.logger.Error().Err(err).Msg("session listing failed")
		writeError(w, http.StatusInternalServerError, "session listing failed")
		return
	}
	if sessions == nil {
		sessions = []models.EnrichedSession{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
