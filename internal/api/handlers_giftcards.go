package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"keramika/internal/database"
)

func (s *HTTPServer) handleGiftcards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.issueGiftcard(w, r)
	case http.MethodGet:
		s.getGiftcard(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) issueGiftcard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         string `json:"code"`
		BalanceCents int64  `json:"balance_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BalanceCents <= 0 {
		writeError(w, http.StatusBadRequest, "balance_cents must be positive")
		return
	}

	card, err := s.giftcards.Issue(r.Context(), req.Code, req.BalanceCents)
	if err != nil {
		s.logger.Error().Err(err).Msg("giftcard issue failed")
		writeError(w, http.StatusInternalServerError, "giftcard issue failed")
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

func (s *HTTPServer) getGiftcard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if code := q.Get("code"); code != "" {
		card, err := s.db.GetGiftcardByCode(r.Context(), code)
		if err == database.ErrGiftcardNotFound {
			writeError(w, http.StatusNotFound, "giftcard_not_found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "giftcard lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, card)
		return
	}

	id, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "code or id is required")
		return
	}
	card, err := s.db.GetGiftcard(r.Context(), id)
	if err == database.ErrGiftcardNotFound {
		writeError(w, http.StatusNotFound, "giftcard_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "giftcard lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// handleGiftcardHolds reserves an amount at checkout start without touching
// the balance.
func (s *HTTPServer) handleGiftcardHolds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Code        string `json:"code"`
		AmountCents int64  `json:"amount_cents"`
		BookingID   int64  `json:"booking_id"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "amount_cents must be positive")
		return
	}

	hold, err := s.giftcards.Hold(r.Context(), req.Code, req.AmountCents, req.BookingID, req.UserID)
	switch err {
	case nil:
	case database.ErrGiftcardNotFound:
		writeError(w, http.StatusNotFound, "giftcard_not_found")
		return
	case database.ErrInsufficientFunds:
		writeError(w, http.StatusBadRequest, "insufficient_funds")
		return
	default:
		s.logger.Error().Err(err).Msg("giftcard hold failed")
		writeError(w, http.StatusInternalServerError, "giftcard hold failed")
		return
	}

	writeJSON(w, http.StatusCreated, hold)
}

// handleGiftcardConsume debits the balance, removes the hold and marks the
// linked booking paid in one transaction.
func (s *HTTPServer) handleGiftcardConsume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		HoldID string `json:"hold_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.HoldID == "" {
		writeError(w, http.StatusBadRequest, "hold_id is required")
		return
	}

	result, err := s.giftcards.Consume(r.Context(), req.HoldID)
	switch err {
	case nil:
	case database.ErrHoldNotFound:
		writeError(w, http.StatusNotFound, "hold_not_found")
		return
	case database.ErrInsufficientFunds:
		writeError(w, http.StatusBadRequest, "insufficient_funds")
		return
	default:
		s.logger.Error().Err(err).Str("hold_id", req.HoldID).Msg("giftcard consume failed")
		writeError(w, http.StatusInternalServerError, "giftcard consume failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"giftcard_id": result.GiftcardID,
		"new_balance": result.NewBalanceCents,
	})
}

func (s *HTTPServer) handleGiftcardRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		HoldID string `json:"hold_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.HoldID == "" {
		writeError(w, http.StatusBadRequest, "hold_id is required")
		return
	}

	err := s.giftcards.Release(r.Context(), req.HoldID)
	switch err {
	case nil:
	case database.ErrHoldNotFound:
		writeError(w, http.StatusNotFound, "hold_not_found")
		return
	default:
		s.logger.Error().Err(err).Str("hold_id", req.HoldID).Msg("giftcard release failed")
		writeError(w, http.StatusInternalServerError, "giftcard release failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
