package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/platform/api"
	"github.com/example/art-portfolio/internal/platform/auth"
	"github.com/example/art-portfolio/internal/platform/httpserver"
)

const adminSubject = "admin"

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminLogin handles POST /admin/login and exchanges the dashboard password
// for a short-lived admin token.
func AdminLogin(password auth.AdminPassword, issuer auth.Issuer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		var req loginRequest
		if !api.DecodeJSON(w, r, rid, &req) {
			return
		}
		if req.Password == "" {
			api.BadRequest(w, "MISSING_FIELDS", "password is required", rid, map[string]any{"field": "password"})
			return
		}
		if len(issuer.Secret) == 0 {
			api.Unavailable(w, "LOGIN_DISABLED", "admin login is not configured", rid)
			return
		}
		if err := password.Verify(req.Password); err != nil {
			if errors.Is(err, auth.ErrAdminLoginDisabled) {
				api.Unavailable(w, "LOGIN_DISABLED", "admin login is not configured", rid)
				return
			}
			log.Info("admin login rejected", zap.String("request_id", rid))
			api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid password", rid)
			return
		}
		token, exp, err := issuer.NewToken(adminSubject, auth.RoleAdmin, time.Time{})
		if err != nil {
			log.Error("issue admin token", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp})
	}
}
