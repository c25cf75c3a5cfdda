package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func makeToken(subject, role string, exp time.Time) string {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	return signed
}

func newVerifier() JWTVerifier { return JWTVerifier{Secret: testSecret} }

// ─── JWTVerifier / Issuer ───────────────────────────────────────────────────

func TestJWTVerifier_ValidToken(t *testing.T) {
	claims, err := newVerifier().Parse(makeToken("owner", RoleAdmin, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "owner" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	if _, err := newVerifier().Parse(makeToken("owner", RoleAdmin, time.Now().Add(-time.Hour))); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	tok := makeToken("owner", RoleAdmin, time.Now().Add(time.Hour))
	if _, err := (JWTVerifier{Secret: []byte("wrong-secret")}).Parse(tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestJWTVerifier_TamperedPayload(t *testing.T) {
	parts := strings.Split(makeToken("owner", "visitor", time.Now().Add(time.Hour)), ".")
	if len(parts) != 3 {
		t.Fatal("expected 3 JWT parts")
	}
	if _, err := newVerifier().Parse(parts[0] + ".dGFtcGVyZWQ." + parts[2]); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Now().UTC()
	tok, exp, err := Issuer{Secret: testSecret, TTL: time.Hour}.NewToken("owner", RoleAdmin, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
	claims, err := newVerifier().Parse(tok)
	if err != nil || claims.Role != RoleAdmin {
		t.Fatalf("unexpected parse result %+v %v", claims, err)
	}
}

func TestIssuer_RequiresSecret(t *testing.T) {
	if _, _, err := (Issuer{}).NewToken("owner", RoleAdmin, time.Time{}); err == nil {
		t.Fatal("expected error without secret")
	}
}

// ─── middleware ─────────────────────────────────────────────────────────────

func serveAdmin(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h := RequireToken(newVerifier())(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := SubjectFromContext(r.Context())
		_, _ = w.Write([]byte(sub))
	})))
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireToken_MissingHeader(t *testing.T) {
	rr := serveAdmin(httptest.NewRequest(http.MethodDelete, "/comments?id=x", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireToken_NonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if rr := serveAdmin(req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAdmin_AdminToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken("owner", "ADMIN", time.Now().Add(time.Hour)))
	rr := serveAdmin(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "owner" {
		t.Fatalf("expected subject in body, got %q", rr.Body.String())
	}
}

func TestRequireAdmin_NonAdminToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken("visitor", "visitor", time.Now().Add(time.Hour)))
	if rr := serveAdmin(req); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireAdmin_RoleFromContext(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(WithRole(context.Background(), RoleAdmin))
	RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// ─── AdminPassword ──────────────────────────────────────────────────────────

func TestAdminPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	p := AdminPassword{Hash: hash}
	if err := p.Verify("s3cret-pass"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := p.Verify("nope"); err == nil {
		t.Fatal("expected mismatch")
	}
	if err := (AdminPassword{}).Verify("anything"); err != ErrAdminLoginDisabled {
		t.Fatalf("expected ErrAdminLoginDisabled, got %v", err)
	}
}

func TestJWTVerifier_EmptySecretRejectsEmptyKeyToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "intruder",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := (JWTVerifier{Secret: []byte("")}).Parse(tok); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/comments?id=x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	RequireToken(JWTVerifier{})(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
