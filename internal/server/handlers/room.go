package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"courtmatch/internal/domain/room"
)

// RoomHandler handles room lifecycle HTTP requests
type RoomHandler struct {
	lifecycle room.Lifecycle
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(lifecycle room.Lifecycle) *RoomHandler {
	return &RoomHandler{lifecycle: lifecycle}
}

// Create opens a new room
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"owner_id"`
		Mode    string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}
	if req.OwnerID == "" {
		respondWithError(w, http.StatusBadRequest, "owner_id is required", "missing_owner")
		return
	}

	mode := room.Mode(req.Mode)
	if mode != room.ModeSingles && mode != room.ModeDoubles {
		respondWithError(w, http.StatusBadRequest, "mode must be singles or doubles", "invalid_mode")
		return
	}

	created, err := h.lifecycle.Create(r.Context(), req.OwnerID, mode)
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// Get returns a room by join code
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.lifecycle.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

// Join adds a player to a room by join code
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	joined, err := h.lifecycle.Join(r.Context(), chi.URLParam(r, "code"), req.PlayerID)
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, joined)
}

// Kick removes a participant; owner only
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerID      string `json:"caller_id"`
		ParticipantID string `json:"participant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	updated, err := h.lifecycle.Kick(r.Context(), chi.URLParam(r, "id"), req.CallerID, req.ParticipantID)
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// Invite invites a friend into a ready room
func (h *RoomHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerID  string `json:"caller_id"`
		InviteeID string `json:"invitee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	if err := h.lifecycle.Invite(r.Context(), chi.URLParam(r, "id"), req.CallerID, req.InviteeID); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

// Start begins the match; owner of a ready room only
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerID string `json:"caller_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	started, err := h.lifecycle.Start(r.Context(), chi.URLParam(r, "id"), req.CallerID)
	if err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, started)
}

// Leave removes a player; the owner leaving closes the room
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	if err := h.lifecycle.Leave(r.Context(), chi.URLParam(r, "id"), req.PlayerID); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// Close terminates a room explicitly; owner only
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerID string `json:"caller_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_json")
		return
	}

	if err := h.lifecycle.Close(r.Context(), chi.URLParam(r, "id"), req.CallerID); err != nil {
		respondWithFault(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
