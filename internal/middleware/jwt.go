// Package middleware holds the echo middleware shared by every route group.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"homecheff/internal/repository"
)

const (
	userKey      = "user"
	principalKey = "principal"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   repository.Role
}

// IssueToken signs an HS256 token for the user.
func IssueToken(secret string, ttl time.Duration, u repository.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"role":    string(u.Role),
		"exp":     jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry and extracts the principal.
func ParseToken(secret, raw string) (*jwt.Token, Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, Principal{}, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	r := repository.Role(role)
	if userID == "" || (!r.Valid() && r != repository.RoleAdmin) {
		return nil, Principal{}, ErrInvalidToken
	}
	return token, Principal{UserID: userID, Role: r}, nil
}

// JWT authenticates requests carrying "Authorization: Bearer <token>". The
// parsed token is stored under "user" and the principal under "principal".
func JWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request())
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
			}
			token, p, err := ParseToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
			}
			c.Set(userKey, token)
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// bearer reads the token from the Authorization header, or from the "token"
// query parameter for websocket upgrades where browsers cannot set headers.
func bearer(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// PrincipalFrom returns the caller set by JWT. ok is false on public routes.
func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// WithPrincipal stores p on the context the way JWT does.
func WithPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...repository.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Forbidden"})
		}
	}
}
