package handlers

import (
	"encoding/json"
	"net/http"
)

// Error taxonomy codes surfaced in the JSON envelope. Clients key retry
// behavior off these: TokenExpired is recovered by rotation, everything else
// surfaces.
const (
	CodeUnauthenticated  = "Unauthenticated"
	CodeTokenExpired     = "TokenExpired"
	CodeConflict         = "Conflict"
	CodeNotFound         = "NotFound"
	CodeValidationFailed = "ValidationFailed"
	CodeUnavailable      = "Unavailable"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}
