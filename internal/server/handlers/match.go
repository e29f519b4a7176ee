package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"courtmatch/internal/domain/geo"
	"courtmatch/internal/domain/match"
	"courtmatch/internal/domain/player"
	"courtmatch/internal/domain/schedule"
	"courtmatch/internal/domain/survey"
	"courtmatch/internal/service/reputation"
)

// MatchHandler handles candidate search and match completion
type MatchHandler struct {
	ranker          match.Ranker
	ledger          survey.Ledger
	reputation      *reputation.Model
	defaultStrategy match.ScoringStrategy
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(ranker match.Ranker, ledger survey.Ledger, rep *reputation.Model, defaultStrategy match.ScoringStrategy) *MatchHandler {
	return &MatchHandler{
		ranker:          ranker,
		ledger:          ledger,
		reputation:      rep,
		defaultStrategy: defaultStrategy,
	}
}

type searchRequest struct {
	RequesterID string            `json:"requester_id"`
	SkillLevel  int               `json:"skill_level"`
	Strategy    string            `json:"strategy"`
	Location    *geo.Coordinate   `json:"location,omitempty"`
	RadiusMiles float64           `json:"radius_miles"`
	VenueIDs    []string          `json:"venue_ids,omitempty"`
	TimeSlot    schedule.TimeSlot `json:"time_slot"`
	BlockedIDs  []string          `json:"blocked_ids,omitempty"`
}

// Search ranks candidates for a requester
func (h *MatchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}
	if req.RequesterID == "" {
		respondWithError(w, http.StatusBadRequest, "requester_id is required", "missing_requester")
		return
	}

	strategy := h.defaultStrategy
	if req.Strategy != "" {
		strategy = match.ScoringStrategy(req.Strategy)
	}

	blocked := make(map[string]struct{}, len(req.BlockedIDs))
	for _, id := range req.BlockedIDs {
		blocked[id] = struct{}{}
	}

	ranked, err := h.ranker.Rank(r.Context(), match.SearchRequest{
		RequesterID: req.RequesterID,
		SkillLevel:  req.SkillLevel,
		Strategy:    strategy,
		Location:    req.Location,
		RadiusMiles: req.RadiusMiles,
		VenueIDs:    req.VenueIDs,
		TimeSlot:    req.TimeSlot,
		Excluded: func(userID string) bool {
			_, ok := blocked[userID]
			return ok
		},
	})
	if err != nil {
		respondWithFault(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": ranked,
		"count":      len(ranked),
	})
}

type completeRequest struct {
	Participants []survey.Participant `json:"participants"`
	WinnerIDs    []string             `json:"winner_ids,omitempty"`
}

// Complete records a finished match: pending surveys for every participant
// and win/loss bookkeeping
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}
	if len(req.Participants) < 2 {
		respondWithError(w, http.StatusBadRequest, "at least two participants required", "missing_participants")
		return
	}

	winners := make(map[string]struct{}, len(req.WinnerIDs))
	for _, id := range req.WinnerIDs {
		winners[id] = struct{}{}
	}

	created := make(map[string][]survey.PendingSurvey, len(req.Participants))
	for _, p := range req.Participants {
		pending, err := h.ledger.CreatePendingSurveys(r.Context(), matchID, req.Participants, p.UserID)
		if err != nil {
			respondWithFault(w, err)
			return
		}
		created[p.UserID] = pending

		_, won := winners[p.UserID]
		if err := h.reputation.RecordMatchResult(r.Context(), p.UserID, won); err != nil {
			// Unregistered participants get surveys but no counters.
			if !errors.Is(err, player.ErrPlayerNotFound) {
				respondWithFault(w, err)
				return
			}
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"match_id":        matchID,
		"pending_surveys": created,
	})
}
