package handlers

import (
	"encoding/json"
	"net/http"

	"courtmatch/internal/domain/fault"
)

// respondWithJSON writes payload as a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a JSON error body with a stable reason code
func respondWithError(w http.ResponseWriter, code int, message, reason string) {
	respondWithJSON(w, code, map[string]string{
		"error":  message,
		"reason": reason,
	})
}

// respondWithFault maps a classified engine error onto an HTTP status.
func respondWithFault(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindValidation:
		status = http.StatusBadRequest
	case fault.KindStateConflict:
		status = http.StatusConflict
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	respondWithError(w, status, err.Error(), fault.CodeOf(err))
}
