package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/pkg/api/types"
	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
	apirun "github.com/datasmith-io/datasmith/pkg/api/types/runs"
	"github.com/datasmith-io/datasmith/pkg/auth"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

func CreateRunHandler(dbRun rundb.RunInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		r, err := dbRun.New(ctx, auth.OrgOf(c), projectId)
		if err != nil {
			switch {
			case errors.Is(err, kerr.ErrMissing):
				return apierr.NotFound()
			case errors.Is(err, kerr.ErrAlreadyActiveRun):
				return apierr.Conflict("a run is already active for the project", apierr.WithError(err))
			case errors.Is(err, kerr.ErrNoReadySources):
				return apierr.ValidationFailed("the project has no ready sources", apierr.WithError(err))
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusCreated, apirun.Compose(r))
	}
}

func FindRunHandler(dbRun rundb.RunInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		page := domain.Page{}
		if q := c.QueryParam("page"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 {
				return apierr.BadRequest(`"page" should be a positive integer`, err)
			}
			page.Page = n
		}
		if q := c.QueryParam("pageSize"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 {
				return apierr.BadRequest(`"pageSize" should be a positive integer`, err)
			}
			page.PageSize = n
		}
		page = page.Normalize()

		ctx := c.Request().Context()
		runs, total, err := dbRun.Find(ctx, auth.OrgOf(c), projectId, page)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.DataWithMeta(
			c, http.StatusOK,
			slices.Map(runs, apirun.Compose),
			types.NewPageMeta(page.Page, page.PageSize, total),
		)
	}
}

func GetRunHandler(dbRun rundb.RunInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		runId, err := pathId(c, "runId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		r, err := dbRun.Get(ctx, auth.OrgOf(c), runId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apirun.Compose(r))
	}
}

// GetRunStatusHandler serves the poll endpoint with the slim status
// view of a run.
func GetRunStatusHandler(dbRun rundb.RunInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		runId, err := pathId(c, "runId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		r, err := dbRun.Get(ctx, auth.OrgOf(c), runId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apirun.ComposeStatus(r))
	}
}

// CancelRunHandler stops a pending or running run. The worker observes
// the cancel on its next progress write; the status flips here at once.
func CancelRunHandler(dbRun rundb.RunInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		runId, err := pathId(c, "runId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		if err := dbRun.Cancel(ctx, auth.OrgOf(c), runId); err != nil {
			switch {
			case errors.Is(err, kerr.ErrMissing):
				return apierr.NotFound()
			case errors.Is(err, kerr.ErrInvalidRunStateChanging):
				return apierr.ValidationFailed("the run is already finished", apierr.WithError(err))
			}
			return apierr.Internal(err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func GetRunLogsHandler(dbRun rundb.RunInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		runId, err := pathId(c, "runId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		logs, err := dbRun.Logs(ctx, auth.OrgOf(c), runId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apirun.ComposeLogs(logs))
	}
}
