package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/datasmith-io/datasmith/cmd/smithd/handlers"
	apierr "github.com/datasmith-io/datasmith/pkg/api/types/errors"
	"github.com/datasmith-io/datasmith/pkg/auth"
	"github.com/datasmith-io/datasmith/pkg/configs"
	"github.com/datasmith-io/datasmith/pkg/connector"
	kpg "github.com/datasmith-io/datasmith/pkg/db/postgres"
	"github.com/datasmith-io/datasmith/pkg/secret"
	"github.com/datasmith-io/datasmith/pkg/storage"
	"github.com/datasmith-io/datasmith/pkg/utils/echoutil"
	"github.com/datasmith-io/datasmith/pkg/utils/filewatch"
)

func main() {
	pconfig := flag.String("config-path", "", "path to server config file")
	ploglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	conf, err := configs.LoadServerConfig(*pconfig)
	if err != nil {
		log.Fatalf("can not read config file (%s): %s", *pconfig, err)
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	// restart (by way of the process supervisor) when the config changes
	ctx, stopWatch, err := filewatch.UntilModifyContext(ctx, *pconfig)
	if err != nil {
		log.Fatalf("can not watch config file (%s): %s", *pconfig, err)
	}
	defer stopWatch()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())
	echoutil.SetLevel(e, *ploglevel)
	e.HTTPErrorHandler = apierr.Handler
	e.Use(middleware.RequestID())
	e.Use(echoutil.LogHandlerFunc)

	context.AfterFunc(ctx, func() {
		graceful, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			e.Logger.Error("shutdown:", err)
		}
	})

	db, err := kpg.New(
		ctx, conf.DBURI,
		kpg.WithSchemaRepository(conf.SchemaRepository),
	)
	if err != nil {
		log.Fatalf("can not connect to database: %s", err)
	}
	defer db.Close()

	if conf.SchemaRepository != "" {
		if err := db.Schema().Upgrade(ctx); err != nil {
			log.Fatalf("can not upgrade database schema: %s", err)
		}
	}

	store, err := storage.New(conf.StorageRoot)
	if err != nil {
		log.Fatalf("can not prepare storage root (%s): %s", conf.StorageRoot, err)
	}

	box, err := secret.NewBox(conf.CredentialKey)
	if err != nil {
		log.Fatalf("can not load credential key: %s", err)
	}
	teamwork := connector.NewTeamworkFetcher(box, nil)

	api := func(p ...string) string {
		return path.Join(append([]string{"/"}, p...)...) + "/"
	}

	{
		// authenticated API surface
		g := e.Group("/api/v1", auth.Middleware([]byte(conf.TokenSecret)))

		g.POST(api("projects"), handlers.CreateProjectHandler(db.Projects()))
		g.GET(api("projects"), handlers.FindProjectHandler(db.Projects()))
		g.GET(api("projects/:projectId"), handlers.GetProjectHandler(db.Projects()))
		g.DELETE(api("projects/:projectId"), handlers.DeleteProjectHandler(db.Projects()))

		g.GET(api("projects/:projectId/processing"), handlers.GetProcessingConfigHandler(db.Processing()))
		g.PUT(api("projects/:projectId/processing"), handlers.PutProcessingConfigHandler(db.Processing()))

		g.POST(api("projects/:projectId/sources"), handlers.CreateSourceHandler(db.Sources(), store, box))
		g.GET(api("projects/:projectId/sources"), handlers.FindSourceHandler(db.Sources()))
		g.GET(api("sources/:sourceId"), handlers.GetSourceHandler(db.Sources()))
		g.DELETE(api("sources/:sourceId"), handlers.DeleteSourceHandler(db.Sources()))
		g.POST(api("sources/:sourceId/sync"), handlers.SyncSourceHandler(db.Sources()))
		g.POST(api("sources/:sourceId/test"), handlers.TestSourceHandler(db.Sources(), teamwork))
		g.GET(api("sources/:sourceId/schema"), handlers.GetSchemaHandler(db.Sources()))
		g.PUT(api("sources/:sourceId/schema"), handlers.PutSchemaHandler(db.Sources()))
		g.GET(api("sources/:sourceId/deidentification"), handlers.GetDeidentificationHandler(db.Sources()))
		g.PUT(api("sources/:sourceId/deidentification"), handlers.PutDeidentificationHandler(db.Sources()))

		g.POST(api("projects/:projectId/runs"), handlers.CreateRunHandler(db.Runs()))
		g.GET(api("projects/:projectId/runs"), handlers.FindRunHandler(db.Runs()))
		g.GET(api("runs/:runId"), handlers.GetRunHandler(db.Runs()))
		g.GET(api("runs/:runId/status"), handlers.GetRunStatusHandler(db.Runs()))
		g.POST(api("runs/:runId/cancel"), handlers.CancelRunHandler(db.Runs()))
		g.GET(api("runs/:runId/logs"), handlers.GetRunLogsHandler(db.Runs()))
		g.GET(api("runs/:runId/dataset"), handlers.GetRunDatasetHandler(db.Datasets()))

		g.GET(api("projects/:projectId/datasets"), handlers.FindDatasetHandler(db.Datasets()))
		g.GET(api("datasets/:datasetId"), handlers.GetDatasetHandler(db.Datasets()))
		g.GET(api("datasets/:datasetId/download"), handlers.DownloadDatasetHandler(db.Datasets(), store))
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	e.Logger.Fatal(e.Start(":" + conf.ServerPort))
}
