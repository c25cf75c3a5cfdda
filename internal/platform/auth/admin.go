package auth

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/art-portfolio/internal/platform/api"
	"github.com/example/art-portfolio/internal/platform/httpserver"
)

// RequireAdmin lets the request through only when RequireToken injected
// the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		if !strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
			api.Forbidden(w, "FORBIDDEN", "admin capability required", httpserver.RequestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ErrAdminLoginDisabled is returned when no admin password hash is configured.
var ErrAdminLoginDisabled = errors.New("admin login is not configured")

// AdminPassword checks the dashboard password against a bcrypt hash.
type AdminPassword struct {
	Hash []byte
}

func (p AdminPassword) Verify(password string) error {
	if len(p.Hash) == 0 {
		return ErrAdminLoginDisabled
	}
	return bcrypt.CompareHashAndPassword(p.Hash, []byte(password))
}
