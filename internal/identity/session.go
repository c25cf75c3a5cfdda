package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookie is the durable cookie that carries the visitor session id.
const SessionCookie = "portfolio_sid"

const sessionMaxAge = 365 * 24 * time.Hour

type ctxKeySession struct{}

// NewSessionID returns a fresh opaque session token.
func NewSessionID() string {
	return uuid.NewString()
}

// SessionIDFromContext returns the id injected by SessionMiddleware.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeySession{}).(string)
	return v, ok && v != ""
}

// WithSessionID injects a session id into ctx. Useful for testing.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, sid)
}

// SessionMiddleware makes sure every visitor carries a session cookie,
// issuing one lazily on first contact. The id is never validated: any
// client may present any value.
func SessionMiddleware(secure bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				sid = strings.TrimSpace(c.Value)
			}
			if sid == "" || len(sid) > 128 {
				sid = NewSessionID()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: false,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
		})
	}
}
