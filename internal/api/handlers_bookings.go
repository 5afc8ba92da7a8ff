package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"keramika/internal/database"
	"keramika/internal/events"
	"keramika/internal/metrics"
	"keramika/internal/models"
)

type createBookingRequest struct {
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Phone         string            `json:"phone"`
	Technique     string            `json:"technique"`
	Participants  int               `json:"participants"`
	Comment       string            `json:"comment"`
	Slots         []models.TimeSlot `json:"slots"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.getBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// createBooking re-validates capacity inside the insert transaction, so a
// slot that looked free during browsing can still be refused here.
func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.CustomerName == "" {
		writeError(w, http.StatusBadRequest, "customer_name is required")
		return
	}
	if !models.ValidTechnique(req.Technique) {
		writeError(w, http.StatusBadRequest, "unknown technique")
		return
	}
	if req.Participants < 1 {
		writeError(w, http.StatusBadRequest, "participants must be at least 1")
		return
	}
	if len(req.Slots) == 0 {
		writeError(w, http.StatusBadRequest, "at least one slot is required")
		return
	}
	for _, slot := range req.Slots {
		if _, err := time.Parse(models.DateLayout, slot.Date); err != nil {
			writeError(w, http.StatusBadRequest, "slot date must be YYYY-MM-DD")
			return
		}
		if _, err := time.Parse(models.TimeLayout, slot.Time); err != nil {
			writeError(w, http.StatusBadRequest, "slot time must be HH:MM")
			return
		}
	}

	booking := &models.Booking{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Phone:         req.Phone,
		Technique:     req.Technique,
		Participants:  req.Participants,
		Comment:       req.Comment,
		Slots:         req.Slots,
	}

	err := s.db.CreateBookingWithSlotLock(r.Context(), booking)
	switch err {
	case nil:
	case database.ErrCourseConflict:
		writeError(w, http.StatusConflict, "slot is reserved by a running course")
		return
	case database.ErrNotAvailable:
		writeError(w, http.StatusConflict, "not enough places for this slot")
		return
	default:
		s.logger.Error().Err(err).Msg("booking creation failed")
		writeError(w, http.StatusInternalServerError, "booking creation failed")
		return
	}

	metrics.IncBookingCreated(booking.Technique)

	if s.bus != nil {
		payload := events.BookingEventPayload{
			BookingID:    booking.ID,
			CustomerName: booking.CustomerName,
			Technique:    booking.Technique,
			Participants: booking.Participants,
		}
		if len(booking.Slots) > 0 {
			payload.Date = booking.Slots[0].Date
			payload.Time = booking.Slots[0].Time
		}
		if err := s.bus.PublishJSON(events.EventBookingCreated, payload); err != nil {
			s.logger.Warn().Err(err).Msg("publish booking created event")
		}
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	booking, err := s.db.GetBooking(r.Context(), id)
	if err == database.ErrBookingNotFound {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("booking lookup failed")
		writeError(w, http.StatusInternalServerError, "booking lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}
