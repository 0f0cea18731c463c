// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/jsonutil"
	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an admin token stays valid.
const DefaultTTL = 24 * time.Hour

const issuer = "membersverify"

var (
	// ErrInvalidToken is returned for any token that fails to parse or verify.
	ErrInvalidToken = errors.New("invalid or expired admin token")
	// ErrWeakSecret is returned when the signing secret is too short.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 characters")
)

// Claims is the payload of an admin bearer token.
type Claims struct {
	AdminID  string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 admin tokens.
type Manager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewManager builds a Manager. A zero ttl uses DefaultTTL.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{key: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for admin.
func (m *Manager) Issue(admin models.Admin) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		AdminID:  admin.ID.Hex(),
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   admin.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims.
func (m *Manager) Parse(raw string) (*Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

type ctxKey string

const currentAdminKey ctxKey = "currentAdmin"

// CurrentAdmin returns the claims placed in context by RequireAdmin.
func CurrentAdmin(r *http.Request) (*Claims, bool) {
	c, ok := r.Context().Value(currentAdminKey).(*Claims)
	return c, ok && c != nil
}

// WithTestAdmin places claims in the request context, for handler tests.
func WithTestAdmin(r *http.Request, c *Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentAdminKey, c))
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAdmin admits requests carrying a valid admin bearer token.
// Missing, invalid, or non-admin tokens get 403 with a JSON body.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAdmin(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		raw := BearerToken(r)
		if raw == "" {
			forbidden(w, "Access denied, no token provided")
			return
		}
		claims, err := m.Parse(raw)
		if err != nil {
			forbidden(w, "Invalid token")
			return
		}
		if !strings.EqualFold(claims.Role, models.RoleAdmin) {
			forbidden(w, "Access denied")
			return
		}
		next.ServeHTTP(w, WithTestAdmin(r, claims))
	})
}

func forbidden(w http.ResponseWriter, msg string) {
	jsonutil.Write(w, http.StatusForbidden, map[string]any{
		"status":  false,
		"code":    "forbidden",
		"message": msg,
	})
}
