// Package auth issues and checks the HS256 bearer tokens of the shop API.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

var ErrMissingClaims = errors.New("missing or invalid token claims")

type JwtCustomClaims struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *JwtCustomClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// IssueToken signs claims with secret, valid for ttl.
func IssueToken(secret string, claims *JwtCustomClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tkn.SignedString([]byte(secret))
}

// Middleware rejects requests without a valid bearer token and stores the
// parsed token under the "user" context key.
func Middleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(JwtCustomClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token", "code": "unauthorized"})
		},
	})
}

func ClaimsFromContext(c echo.Context) (*JwtCustomClaims, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, ErrMissingClaims
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || claims.UserID <= 0 {
		return nil, ErrMissingClaims
	}
	return claims, nil
}

// RequireAdmin lets only tokens with the admin role through.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := ClaimsFromContext(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error(), "code": "unauthorized"})
		}
		if !claims.IsAdmin() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "admin role required", "code": "forbidden"})
		}
		return next(c)
	}
}
