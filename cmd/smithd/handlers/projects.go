package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/pkg/api/types"
	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
	apiproj "github.com/datasmith-io/datasmith/pkg/api/types/projects"
	"github.com/datasmith-io/datasmith/pkg/auth"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	projdb "github.com/datasmith-io/datasmith/pkg/domain/project/db"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

func CreateProjectHandler(dbProject projdb.ProjectInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := apiproj.CreateRequest{}
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			return apierr.BadRequest("request body should be a project definition", err)
		}

		ctx := c.Request().Context()
		p, err := dbProject.New(ctx, auth.OrgOf(c), req.Name)
		if err != nil {
			if errors.Is(err, kerr.ErrProjectNameTaken) {
				return apierr.Conflict("project name is already used", apierr.WithError(err))
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusCreated, apiproj.Compose(p))
	}
}

func FindProjectHandler(dbProject projdb.ProjectInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		projects, err := dbProject.Find(ctx, auth.OrgOf(c))
		if err != nil {
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, slices.Map(projects, apiproj.Compose))
	}
}

func GetProjectHandler(dbProject projdb.ProjectInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		p, err := dbProject.Get(ctx, auth.OrgOf(c), projectId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apiproj.Compose(p))
	}
}

func DeleteProjectHandler(dbProject projdb.ProjectInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		if err := dbProject.Delete(ctx, auth.OrgOf(c), projectId); err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}
