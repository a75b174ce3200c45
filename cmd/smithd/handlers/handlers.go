package handlers

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
)

// pathId reads a path parameter that must be a UUID. A malformed id can
// never name a resource, so it renders as not-found rather than leaking
// a database error.
func pathId(c echo.Context, name string) (string, error) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", apierr.NotFound()
	}
	return id, nil
}
