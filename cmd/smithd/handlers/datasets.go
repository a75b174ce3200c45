package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/pkg/api/types"
	apids "github.com/datasmith-io/datasmith/pkg/api/types/datasets"
	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
	"github.com/datasmith-io/datasmith/pkg/auth"
	dsdb "github.com/datasmith-io/datasmith/pkg/domain/dataset/db"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

// Downloads opens materialized dataset files for streaming.
type Downloads interface {
	Open(path string) (io.ReadCloser, error)
}

func FindDatasetHandler(dbDataset dsdb.DatasetInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		datasets, err := dbDataset.Find(ctx, auth.OrgOf(c), projectId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, slices.Map(datasets, apids.Compose))
	}
}

func GetDatasetHandler(dbDataset dsdb.DatasetInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		datasetId, err := pathId(c, "datasetId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		ds, err := dbDataset.Get(ctx, auth.OrgOf(c), datasetId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apids.Compose(ds))
	}
}

// GetRunDatasetHandler resolves the dataset of a run. 404 until the run
// completes and the worker materializes the file.
func GetRunDatasetHandler(dbDataset dsdb.DatasetInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		runId, err := pathId(c, "runId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		ds, err := dbDataset.GetByRun(ctx, auth.OrgOf(c), runId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apids.Compose(ds))
	}
}

func DownloadDatasetHandler(dbDataset dsdb.DatasetInterface, downloads Downloads) echo.HandlerFunc {
	return func(c echo.Context) error {
		datasetId, err := pathId(c, "datasetId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		ds, err := dbDataset.Get(ctx, auth.OrgOf(c), datasetId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		f, err := downloads.Open(ds.FilePath)
		if err != nil {
			return apierr.Internal(err)
		}
		defer f.Close()

		c.Response().Header().Set(
			echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename=%q`, ds.Name+filepath.Ext(ds.FilePath)),
		)
		return c.Stream(http.StatusOK, echo.MIMEOctetStream, f)
	}
}
