// internal/auth/auth.go
//
// Designer accounts for the level editor.
// Responsibilities:
//   - User CRUD on the users table (bcrypt password hashes, uuid ids).
//   - HS256 JWT issue/verify with a configurable lifetime.
//   - Auth cookie helpers and bearer/cookie token extraction.
//   - Middleware: Require (401 without a valid token) and Optional.
//
// Notes:
//   - Usernames are unique case-insensitively.
//   - Require re-checks that the user still exists on every request.

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Config holds token and cookie settings.
type Config struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	// Secure marks cookies Secure + SameSite=None (production).
	Secure bool
}

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service issues and verifies designer sessions.
type Service struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// NewService builds a Service; zero Config fields get development defaults.
func NewService(db *sql.DB, cfg Config) *Service {
	if cfg.Secret == "" {
		cfg.Secret = "dev_secret_change_me"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "diferencias_token"
	}
	return &Service{db: db, cfg: cfg, now: time.Now}
}

// ------------------------------- users -------------------------------------

// Signup validates input, checks uniqueness, hashes the password and
// inserts a new user.
func (s *Service) Signup(ctx context.Context, username, pw string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{ID: uuid.NewString(), Username: username, CreatedAt: s.now().UTC().Truncate(time.Second)}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, string(h), u.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Login checks credentials.
func (s *Service) Login(ctx context.Context, username, pw string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE lower(username)=lower(?)`,
		strings.TrimSpace(username))
	u, hash, err := scanUser(row)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// FindByID loads a user, or returns sql.ErrNoRows.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id=?`, id)
	u, _, err := scanUser(row)
	return u, err
}

func scanUser(row *sql.Row) (*User, string, error) {
	var u User
	var hash, created string
	if err := row.Scan(&u.ID, &u.Username, &hash, &created); err != nil {
		return nil, "", err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, hash, nil
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// ------------------------------ JWT & cookies ------------------------------

// SignToken creates an HS256 JWT carrying id and username.
func (s *Service) SignToken(u *User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.TTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       u.ID,
		"username": u.Username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.Secret))
	return ss, exp, err
}

// ParseToken verifies tok and returns the user it names.
func (s *Service) ParseToken(tok string) (*User, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: id, Username: username}, nil
}

// SetCookie writes the auth token cookie.
func (s *Service) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth token cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

func (s *Service) sameSite() http.SameSite {
	if s.cfg.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// TokenFrom extracts a bearer token from the Authorization header or the
// auth cookie.
func (s *Service) TokenFrom(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// ---------------------------- middleware -----------------------------------

type ctxUserKey struct{}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

// FromContext returns the authenticated user, or nil.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxUserKey{}).(*User)
	return u
}

// Require enforces a valid token for a user that still exists.
func (s *Service) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.TokenFrom(r)
			if tok == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			u, err := s.ParseToken(tok)
			if err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			if _, err := s.FindByID(r.Context(), u.ID); err != nil {
				log.Debug().Err(err).Str("user", u.ID).Msg("token for unknown user")
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// Optional decorates the request with the user when a valid token is
// present. It never rejects.
func (s *Service) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.TokenFrom(r); tok != "" {
				if u, err := s.ParseToken(tok); err == nil {
					r = r.WithContext(WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
