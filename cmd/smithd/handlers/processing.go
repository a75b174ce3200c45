package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/pkg/api/types"
	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
	apiproc "github.com/datasmith-io/datasmith/pkg/api/types/processing"
	"github.com/datasmith-io/datasmith/pkg/auth"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	procdb "github.com/datasmith-io/datasmith/pkg/domain/processing/db"
)

func GetProcessingConfigHandler(dbProc procdb.ProcessingInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		conf, err := dbProc.Get(ctx, auth.OrgOf(c), projectId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apiproc.Compose(conf))
	}
}

func PutProcessingConfigHandler(dbProc procdb.ProcessingInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		req := apiproc.Config{}
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			return apierr.BadRequest("request body should be a processing config", err)
		}
		conf, err := req.Decompose()
		if err != nil {
			return apierr.ValidationFailed(err.Error(), apierr.WithError(err))
		}
		if err := conf.Validate(); err != nil {
			return apierr.ValidationFailed(err.Error(), apierr.WithError(err))
		}

		ctx := c.Request().Context()
		org := auth.OrgOf(c)
		if err := dbProc.Put(ctx, org, projectId, conf); err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		stored, err := dbProc.Get(ctx, org, projectId)
		if err != nil {
			return apierr.Internal(err)
		}
		return types.Data(c, http.StatusOK, apiproc.Compose(stored))
	}
}
