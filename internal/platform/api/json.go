package api

import (
	"encoding/json"
	"net/http"
)

// MaxRequestBodyBytes caps every decoded JSON body.
const MaxRequestBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads up to MaxRequestBodyBytes from r.Body into dst.
// On failure it writes a 400 response and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, requestID string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)).Decode(dst); err != nil {
		BadRequest(w, "INVALID_JSON", "invalid JSON", requestID, nil)
		return false
	}
	return true
}
