package handlers

import (
	"encoding/json"
	"net/http"

	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/survey"
)

// SurveyHandler handles post-match survey HTTP requests
type SurveyHandler struct {
	ledger survey.Ledger
	clock  clock.Clock
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(ledger survey.Ledger, clk clock.Clock) *SurveyHandler {
	return &SurveyHandler{
		ledger: ledger,
		clock:  clk,
	}
}

// Submit records a post-match survey
func (h *SurveyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var s survey.MatchSurvey
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}
	if s.MatchID == "" || s.EvaluatorID == "" || s.EvaluatedUserID == "" {
		respondWithError(w, http.StatusBadRequest, "match_id, evaluator_id and evaluated_user_id are required", "missing_fields")
		return
	}

	if err := h.ledger.Submit(r.Context(), s); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "submitted"})
}

// Pending lists a player's outstanding surveys
func (h *SurveyHandler) Pending(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user query parameter is required", "missing_user")
		return
	}

	pending, err := h.ledger.Pending(r.Context(), userID, h.clock.Now())
	if err != nil {
		respondWithFault(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
		"count":   len(pending),
	})
}
