package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/assets"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/database"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, assets.MigrationsFS()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, Config{Secret: "test-secret", TTL: time.Hour})
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	u, err := s.Signup(ctx, "  diseno_1 ", "password123")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Username != "diseno_1" || u.ID == "" {
		t.Fatalf("user = %+v", u)
	}
	if _, err := s.Signup(ctx, "DISENO_1", "password123"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate signup: %v", err)
	}
	if _, err := s.Signup(ctx, "ab", "password123"); err == nil {
		t.Fatalf("short username accepted")
	}
	if _, err := s.Signup(ctx, "valid_name", "short"); err == nil {
		t.Fatalf("short password accepted")
	}

	if _, err := s.Login(ctx, "diseno_1", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
	got, err := s.Login(ctx, "Diseno_1", "password123")
	if err != nil || got.ID != u.ID {
		t.Fatalf("login = %+v, %v", got, err)
	}
}

func TestTokenRoundTripAndExpiry(t *testing.T) {
	s := newService(t)
	u := &User{ID: "u1", Username: "ana"}
	tok, exp, err := s.SignToken(u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past")
	}
	back, err := s.ParseToken(tok)
	if err != nil || back.ID != "u1" || back.Username != "ana" {
		t.Fatalf("parse = %+v, %v", back, err)
	}

	if _, err := s.ParseToken(tok + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: %v", err)
	}
	other := NewService(nil, Config{Secret: "other"})
	if _, err := other.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret accepted: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestRequireMiddleware(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	u, err := s.Signup(ctx, "editor", "password123")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	tok, _, _ := s.SignToken(u)

	h := s.Require()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if me := FromContext(r.Context()); me == nil || me.ID != u.ID {
			t.Errorf("user missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("bearer: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "diferencias_token", Value: tok})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cookie: %d", rec.Code)
	}

	ghost, _, _ := s.SignToken(&User{ID: "deleted", Username: "ghost"})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", rec.Code)
	}
}

func TestOptionalMiddlewareNeverRejects(t *testing.T) {
	s := newService(t)
	called := false
	h := s.Optional()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if FromContext(r.Context()) != nil {
			t.Errorf("invalid token produced a user")
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatalf("handler not called")
	}
}
