package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func issueTestToken(t *testing.T, u *User) (string, *Claims) {
	t.Helper()
	token, claims, err := NewTokenIssuer(testSigningKey, time.Hour).Issue(u)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return token, claims
}

func runSession(t *testing.T, cfg SessionConfig, req *http.Request) (*Actor, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())

	var got *Actor
	h := SessionMiddleware(cfg)(func(c echo.Context) error {
		if a, ok := ActorFromContext(c.Request().Context()); ok {
			got = &a
		}
		return c.String(http.StatusOK, "ok")
	})
	return got, h(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d, got nil error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestSessionMiddleware_MissingSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	_, err := runSession(t, SessionConfig{SigningKey: testSigningKey}, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
			req.Header.Set("Authorization", tt.header)
			_, err := runSession(t, SessionConfig{SigningKey: testSigningKey, DevMode: true}, req)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestSessionMiddleware_BearerToken(t *testing.T) {
	token, _ := issueTestToken(t, &User{ID: 7, Username: "recepcao", Role: RoleReception})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	actor, err := runSession(t, SessionConfig{SigningKey: testSigningKey}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor == nil {
		t.Fatal("expected actor in context")
	}
	if actor.UserID != 7 || actor.Username != "recepcao" || actor.Role != RoleReception {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestSessionMiddleware_Cookie(t *testing.T) {
	token, _ := issueTestToken(t, &User{ID: 3, Username: "dra.lima", Role: RoleProfessional})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	actor, err := runSession(t, SessionConfig{SigningKey: testSigningKey}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor == nil || actor.Username != "dra.lima" {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestSessionMiddleware_WrongKey(t *testing.T) {
	token, _ := issueTestToken(t, &User{ID: 1, Username: "admin", Role: RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err := runSession(t, SessionConfig{SigningKey: []byte("another-key-entirely-different!!")}, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_ExpiredToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-old",
			Issuer:    tokenIssuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Username: "admin",
		Role:     RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = runSession(t, SessionConfig{SigningKey: testSigningKey}, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_RevokedToken(t *testing.T) {
	store := NewTokenRevocationStore(time.Hour)
	defer store.Close()

	token, claims := issueTestToken(t, &User{ID: 1, Username: "admin", Role: RoleAdmin})
	store.Revoke(claims.ID, claims.ExpiresAt.Time)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err := runSession(t, SessionConfig{SigningKey: testSigningKey, Revocations: store}, req)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_DevMode(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:51000", "[::1]:51000"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
		req.RemoteAddr = addr
		actor, err := runSession(t, SessionConfig{SigningKey: testSigningKey, DevMode: true}, req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", addr, err)
		}
		if actor == nil || actor.Role != RoleAdmin {
			t.Errorf("%s: expected dev admin actor, got %+v", addr, actor)
		}
	}
}

func TestSessionMiddleware_DevModeRejectsRemotePeers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.RemoteAddr = "10.0.0.7:51000"
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	actor, err := runSession(t, SessionConfig{SigningKey: testSigningKey, DevMode: true}, req)
	expectStatus(t, err, http.StatusUnauthorized)
	if actor != nil {
		t.Errorf("expected no actor for a remote peer, got %+v", actor)
	}
}

func TestSessionMiddleware_PublicPathWithoutSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	actor, err := runSession(t, SessionConfig{SigningKey: testSigningKey, Skipper: AuthSkipper}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor != nil {
		t.Errorf("expected no actor on public path, got %+v", actor)
	}
}

func TestUsernameFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UsernameFromContext(req.Context()); got != "" {
		t.Errorf("expected empty username, got %q", got)
	}
}
