package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
)

// context key the middleware stores the caller's organization under.
const orgContextKey = "datasmith.org"

// Middleware verifies the Bearer token (HS256, shared secret) and
// injects the "org" claim. Every resource below the middleware is
// resolved scoped to that organization.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			rawToken, found := strings.CutPrefix(header, "Bearer ")
			if !found || rawToken == "" {
				return apierr.Unauthorized("bearer token required")
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(
				rawToken, claims,
				func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
					}
					return secret, nil
				},
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			)
			if err != nil {
				return apierr.Unauthorized("invalid token")
			}

			org, ok := claims["org"].(string)
			if !ok || org == "" {
				return apierr.Unauthorized("token carries no organization")
			}

			c.Set(orgContextKey, org)
			return next(c)
		}
	}
}

// SetOrg stamps the organization on the context directly, for callers
// that bypass the middleware (tests, internal dispatch).
func SetOrg(c echo.Context, org string) {
	c.Set(orgContextKey, org)
}

// OrgOf reads the organization the middleware verified.
func OrgOf(c echo.Context) string {
	org, _ := c.Get(orgContextKey).(string)
	return org
}

// NewToken issues a token for the organization. Used by operators and
// tests; token lifecycle management is out of scope.
func NewToken(secret []byte, org string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"org": org,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
