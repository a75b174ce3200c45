package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/pkg/api/types"
	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
	apisrc "github.com/datasmith-io/datasmith/pkg/api/types/sources"
	"github.com/datasmith-io/datasmith/pkg/auth"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
	"github.com/datasmith-io/datasmith/pkg/secret"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

// Uploads receives raw file bodies for file-variant sources.
type Uploads interface {
	SaveUpload(name string, r io.Reader) (path string, size int64, err error)
}

// ConnectionTester probes connector credentials against the remote service.
type ConnectionTester interface {
	Test(ctx context.Context, conn *domain.ConnectorSpec) error
}

// CreateSourceHandler creates a source under a project. The variant is
// chosen by the request's content type: multipart bodies carry an
// uploaded file, JSON bodies a connector definition.
func CreateSourceHandler(dbSource srcdb.SourceInterface, uploads Uploads, box *secret.Box) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		spec, err := func() (srcdb.SourceSpec, error) {
			ctype := c.Request().Header.Get(echo.HeaderContentType)
			if strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
				return fileSpec(c, uploads)
			}
			return connectorSpec(c, box)
		}()
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		s, err := dbSource.New(ctx, auth.OrgOf(c), projectId, spec)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusCreated, apisrc.Compose(s))
	}
}

func fileSpec(c echo.Context, uploads Uploads) (srcdb.SourceSpec, error) {
	name := c.FormValue("name")
	if strings.TrimSpace(name) == "" {
		return srcdb.SourceSpec{}, apierr.BadRequest(`"name" is required`, nil)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return srcdb.SourceSpec{}, apierr.BadRequest(`"file" part is required`, err)
	}
	f, err := fh.Open()
	if err != nil {
		return srcdb.SourceSpec{}, apierr.Internal(err)
	}
	defer f.Close()

	path, size, err := uploads.SaveUpload(fh.Filename, f)
	if err != nil {
		return srcdb.SourceSpec{}, apierr.Internal(err)
	}

	return srcdb.SourceSpec{
		Name: name,
		Type: domain.SourceFile,
		File: &domain.FileSpec{
			Path:        path,
			Size:        size,
			ContentType: fh.Header.Get("Content-Type"),
		},
	}, nil
}

func connectorSpec(c echo.Context, box *secret.Box) (srcdb.SourceSpec, error) {
	req := apisrc.CreateConnectorRequest{}
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return srcdb.SourceSpec{}, apierr.BadRequest("request body should be a source definition", err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return srcdb.SourceSpec{}, apierr.BadRequest(`"name" is required`, nil)
	}
	typ, err := domain.AsSourceType(req.Type)
	if err != nil || typ == domain.SourceFile {
		return srcdb.SourceSpec{}, apierr.BadRequest(`"type" should be "teamwork" for JSON bodies`, err)
	}
	if req.Connector.Domain == "" {
		return srcdb.SourceSpec{}, apierr.BadRequest(`"connector.domain" is required`, nil)
	}
	if req.Connector.Credential.ApiKey == "" {
		return srcdb.SourceSpec{}, apierr.BadRequest(`"connector.credential.apiKey" is required`, nil)
	}

	plain, err := json.Marshal(struct {
		ApiKey string `json:"apiKey"`
	}{ApiKey: req.Connector.Credential.ApiKey})
	if err != nil {
		return srcdb.SourceSpec{}, apierr.Internal(err)
	}
	sealed, err := box.Seal(plain)
	if err != nil {
		return srcdb.SourceSpec{}, apierr.Internal(err)
	}

	return srcdb.SourceSpec{
		Name: req.Name,
		Type: typ,
		Connector: &domain.ConnectorSpec{
			Domain:     req.Connector.Domain,
			Credential: sealed,
			DataTypes:  req.Connector.DataTypes,
		},
	}, nil
}

func FindSourceHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectId, err := pathId(c, "projectId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		sources, err := dbSource.Find(ctx, auth.OrgOf(c), projectId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, slices.Map(sources, apisrc.Compose))
	}
}

func GetSourceHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		s, err := dbSource.Get(ctx, auth.OrgOf(c), sourceId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apisrc.Compose(s))
	}
}

func DeleteSourceHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		if err := dbSource.Delete(ctx, auth.OrgOf(c), sourceId); err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

// SyncSourceHandler queues a source for synchronization. The fetch itself
// happens on a worker; the handler only flips the status.
func SyncSourceHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		if err := dbSource.RequestSync(ctx, auth.OrgOf(c), sourceId); err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return c.NoContent(http.StatusAccepted)
	}
}

// TestSourceHandler probes the connector of a source without mutating it.
func TestSourceHandler(dbSource srcdb.SourceInterface, tester ConnectionTester) echo.HandlerFunc {
	type result struct {
		Ok    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		s, err := dbSource.Get(ctx, auth.OrgOf(c), sourceId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}
		if s.Connector == nil {
			return apierr.ValidationFailed("source has no connector to test")
		}

		if err := tester.Test(ctx, s.Connector); err != nil {
			return types.Data(c, http.StatusOK, result{Ok: false, Error: err.Error()})
		}
		return types.Data(c, http.StatusOK, result{Ok: true})
	}
}

func GetSchemaHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		m, err := dbSource.Schema(ctx, auth.OrgOf(c), sourceId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apisrc.ComposeSchema(m))
	}
}

func PutSchemaHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		req := apisrc.PutSchemaRequest{}
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			return apierr.BadRequest("request body should be a schema mapping", err)
		}

		ctx := c.Request().Context()
		org := auth.OrgOf(c)
		if err := dbSource.PutSchema(ctx, org, sourceId, req.Mapping); err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		m, err := dbSource.Schema(ctx, org, sourceId)
		if err != nil {
			return apierr.Internal(err)
		}
		return types.Data(c, http.StatusOK, apisrc.ComposeSchema(m))
	}
}

func GetDeidentificationHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		conf, err := dbSource.Deident(ctx, auth.OrgOf(c), sourceId)
		if err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		return types.Data(c, http.StatusOK, apisrc.ComposeDeidentification(conf))
	}
}

func PutDeidentificationHandler(dbSource srcdb.SourceInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		sourceId, err := pathId(c, "sourceId")
		if err != nil {
			return err
		}

		req := apisrc.PutDeidentificationRequest{}
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			return apierr.BadRequest("request body should be a de-identification config", err)
		}

		conf := domain.DeidentConfig{Enabled: req.Enabled}
		for _, r := range req.Rules {
			strategy, err := domain.AsDeidentStrategy(r.Strategy)
			if err != nil {
				return apierr.ValidationFailed(
					`"strategy" should be one of "mask", "hash", "remove" or "tokenize"`,
					apierr.WithError(err),
				)
			}
			conf.Rules = append(conf.Rules, domain.DeidentRule{Field: r.Field, Strategy: strategy})
		}
		for _, d := range req.Detectors {
			if _, err := regexp.Compile(d.Pattern); err != nil {
				return apierr.ValidationFailed(
					"custom detector pattern does not compile",
					apierr.WithError(err), apierr.WithDetail(d.Name),
				)
			}
			conf.Detectors = append(conf.Detectors, domain.CustomDetector{Name: d.Name, Pattern: d.Pattern})
		}

		ctx := c.Request().Context()
		org := auth.OrgOf(c)
		if err := dbSource.PutDeident(ctx, org, sourceId, conf); err != nil {
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.Internal(err)
		}

		stored, err := dbSource.Deident(ctx, org, sourceId)
		if err != nil {
			return apierr.Internal(err)
		}
		return types.Data(c, http.StatusOK, apisrc.ComposeDeidentification(stored))
	}
}
