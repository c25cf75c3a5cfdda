package handlers

import (
	"net/http"

	"github.com/example/art-portfolio/internal/identity"
	"github.com/example/art-portfolio/internal/platform/api"
)

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

// Session handles GET /session and returns the visitor's like-dedup token.
func Session() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, _ := identity.SessionIDFromContext(r.Context())
		api.WriteJSON(w, http.StatusOK, sessionResponse{SessionID: sid})
	}
}
