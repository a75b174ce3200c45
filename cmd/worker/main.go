package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/datasmith-io/datasmith/cmd/worker/tasks/execute"
	"github.com/datasmith-io/datasmith/cmd/worker/tasks/reconcile"
	tsync "github.com/datasmith-io/datasmith/cmd/worker/tasks/sync"
	"github.com/datasmith-io/datasmith/pkg/configs"
	"github.com/datasmith-io/datasmith/pkg/connector"
	kpg "github.com/datasmith-io/datasmith/pkg/db/postgres"
	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/loop"
	"github.com/datasmith-io/datasmith/pkg/secret"
	"github.com/datasmith-io/datasmith/pkg/storage"
	"github.com/datasmith-io/datasmith/pkg/utils/filewatch"
	"github.com/datasmith-io/datasmith/pkg/utils/try"
)

func main() {
	logger := log.Default()

	pconfig := flag.String("config-path", "", "path to worker config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	{
		// restart (by way of the process supervisor) when the config changes
		wctx, stopWatch, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatalf("can not watch config file (%s): %s", *pconfig, err)
		}
		defer stopWatch()
		ctx = wctx
	}

	conf := try.To(configs.LoadWorkerConfig(*pconfig)).OrFatal(logger)

	db := try.To(kpg.New(ctx, conf.DBURI)).OrFatal(logger)
	defer db.Close()

	store := try.To(storage.New(conf.StorageRoot)).OrFatal(logger)
	box := try.To(secret.NewBox(conf.CredentialKey)).OrFatal(logger)

	fetchers := map[domain.SourceType]connector.Fetcher{
		domain.SourceFile:     connector.NewFileFetcher(),
		domain.SourceTeamwork: connector.NewTeamworkFetcher(box, nil),
	}

	poll := conf.PollInterval.Duration()

	wg := sync.WaitGroup{}
	start := func(name string, task loop.Task[int], options ...loop.LoopOption) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Printf(`start loop "%s"`, name)
			n, err := loop.Start(ctx, 0, task, options...)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf(`loop "%s" stopped after %d passes: %s`, name, n, err)
				cancel() // one broken loop takes the process down for restart
				return
			}
			logger.Printf(`loop "%s" ended after %d passes`, name, n)
		}()
	}

	start(
		"execute",
		execute.Task(
			logger,
			db.Runs(), db.Sources(),
			store, store,
			poll,
		),
		loop.WithTimeout(conf.RunTimeout.Duration()),
	)
	start(
		"sync",
		tsync.Task(logger, db.Sources(), fetchers, store, poll),
		loop.WithTimeout(conf.RunTimeout.Duration()),
	)
	start(
		"reconcile",
		reconcile.Task(
			logger,
			db.Runs(),
			conf.StaleAfter.Duration(),
			conf.ReconcileInterval.Duration(),
		),
	)

	wg.Wait()
}
