package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/geo"
	"courtmatch/internal/domain/match"
	"courtmatch/internal/domain/player"
	"courtmatch/internal/domain/schedule"
	"courtmatch/internal/service/reputation"
)

// AvailabilityPool is where players publish and withdraw their candidacy.
type AvailabilityPool interface {
	Upsert(ctx context.Context, c match.Candidate) error
	Withdraw(ctx context.Context, userID string) error
}

// PlayerHandler handles player registration, levels and availability
type PlayerHandler struct {
	reputation *reputation.Model
	slots      schedule.Engine
	pool       AvailabilityPool
	clock      clock.Clock
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(rep *reputation.Model, slots schedule.Engine, pool AvailabilityPool, clk clock.Clock) *PlayerHandler {
	return &PlayerHandler{
		reputation: rep,
		slots:      slots,
		pool:       pool,
		clock:      clk,
	}
}

// Register creates a new player
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID                 string `json:"id"`
		Nickname           string `json:"nickname"`
		SelfReportedLevel  int    `json:"self_reported_level"`
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	status := player.VerificationStatus(req.VerificationStatus)
	if status == "" {
		status = player.VerificationNone
	}

	u, err := h.reputation.Register(r.Context(), player.User{
		ID:                 req.ID,
		Nickname:           req.Nickname,
		SelfReportedLevel:  req.SelfReportedLevel,
		VerificationStatus: status,
	})
	if err != nil {
		respondWithFault(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, u)
}

// GetPlayer returns a player by id
func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	u, err := h.reputation.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// GetLevel returns the level shown to other players
func (h *PlayerHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	u, err := h.reputation.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFault(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":             u.ID,
		"display_level":       u.DisplayLevel(),
		"self_reported_level": u.SelfReportedLevel,
		"calculated_level":    u.CalculatedLevel,
		"is_new_player":       u.Reputation.IsNewPlayer(),
	})
}

// SetLevel self-assigns a skill level
func (h *PlayerHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level int `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	u, err := h.reputation.SelfAssignLevel(r.Context(), chi.URLParam(r, "id"), req.Level)
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// AddRecurringSlot stores a weekly availability window
func (h *PlayerHandler) AddRecurringSlot(w http.ResponseWriter, r *http.Request) {
	var slot schedule.RecurringTimeSlot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	if err := h.slots.AddRecurring(chi.URLParam(r, "id"), slot); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, slot)
}

// SetAvailability publishes a player's candidacy for matching
func (h *PlayerHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location  *geo.Coordinate     `json:"location,omitempty"`
		TimeSlots []schedule.TimeSlot `json:"time_slots"`
		VenueIDs  []string            `json:"venue_ids,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	u, err := h.reputation.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFault(w, err)
		return
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			respondWithFault(w, err)
			return
		}
	}

	c := match.Candidate{
		User:      *u,
		Location:  req.Location,
		TimeSlots: req.TimeSlots,
		VenueIDs:  req.VenueIDs,
	}
	if err := h.pool.Upsert(r.Context(), c); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// ClearAvailability withdraws a player from the matching pool
func (h *PlayerHandler) ClearAvailability(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.Withdraw(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// GetRecurringSlots lists a player's recurring slots with their next
// concrete occurrence
func (h *PlayerHandler) GetRecurringSlots(w http.ResponseWriter, r *http.Request) {
	slots := h.slots.RecurringFor(chi.URLParam(r, "id"))

	type slotView struct {
		schedule.RecurringTimeSlot
		Next *schedule.TimeSlot `json:"next_occurrence,omitempty"`
	}

	now := h.clock.Now()
	out := make([]slotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotView{
			RecurringTimeSlot: s,
			Next:              h.slots.NextOccurrence(s, now),
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}
