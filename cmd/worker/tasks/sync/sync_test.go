package sync_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	tsync "github.com/datasmith-io/datasmith/cmd/worker/tasks/sync"
	"github.com/datasmith-io/datasmith/pkg/connector"
	"github.com/datasmith-io/datasmith/pkg/domain"
	srcmock "github.com/datasmith-io/datasmith/pkg/domain/source/db/mock"
	"github.com/datasmith-io/datasmith/pkg/loop"
	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
)

const sourceId = "9c2e4d8a-1b3f-4c5d-8e7f-6a9b0c1d2e3f"

func syncingSource(typ domain.SourceType) domain.Source {
	return domain.Source{
		Id:        sourceId,
		ProjectId: "6a3b6f2e-9a40-47c5-8b1e-0d6a2c9e1f11",
		Name:      "support chats",
		Type:      typ,
		Status:    domain.SourceSyncing,
	}
}

type fakeFetcher struct {
	records []map[string]any
	err     error
	fetched []domain.Source
}

func (f *fakeFetcher) Fetch(_ context.Context, source domain.Source) ([]map[string]any, error) {
	f.fetched = append(f.fetched, source)
	return f.records, f.err
}

type fakeSnapshots struct {
	err   error
	wrote map[string][]map[string]any
}

func (f *fakeSnapshots) WriteSnapshot(sourceId string, records []map[string]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.wrote == nil {
		f.wrote = map[string][]map[string]any{}
	}
	f.wrote[sourceId] = records
	return "/var/lib/datasmith/snapshots/" + sourceId + ".jsonl", nil
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSyncTask(t *testing.T) {
	t.Run("it snapshots fetched records and completes the sync with the detected schema", func(t *testing.T) {
		records := []map[string]any{
			{"text": "hi", "speaker": "alice", "count": 1.0},
			{"text": "hello", "speaker": "bob", "count": 2.0},
		}

		mockSource := srcmock.NewSourceInterface()
		mockSource.Impl.PickSyncing = func(context.Context) (domain.Source, bool, error) {
			return syncingSource(domain.SourceFile), true, nil
		}
		mockSource.Impl.CompleteSync = func(context.Context, string, int, string, map[string]string, string) error {
			return nil
		}

		fetcher := &fakeFetcher{records: records}
		snapshots := &fakeSnapshots{}

		testee := tsync.Task(
			discard(), mockSource,
			map[domain.SourceType]connector.Fetcher{domain.SourceFile: fetcher},
			snapshots, time.Second,
		)

		processed, next := testee(context.Background(), 0)
		if processed != 1 {
			t.Errorf("unmatch: processed: %d != 1", processed)
		}
		if next != loop.Continue(0) {
			t.Errorf("unmatch: next: %s", next)
		}

		if len(fetcher.fetched) != 1 || fetcher.fetched[0].Id != sourceId {
			t.Errorf("unmatch: fetched sources: %+v", fetcher.fetched)
		}

		{
			actual := mockSource.Calls.CompleteSync
			if len(actual) != 1 {
				t.Fatalf("unmatch: query for SourceInterface.CompleteSync: %+v", actual)
			}
			call := actual[0]
			if call.SourceId != sourceId || call.RecordCount != 2 || call.SyncErr != "" {
				t.Errorf("unmatch: completion: %+v", call)
			}
			if call.SnapshotPath != "/var/lib/datasmith/snapshots/"+sourceId+".jsonl" {
				t.Errorf("unmatch: snapshot path: %s", call.SnapshotPath)
			}
			expectedSchema := map[string]string{
				"text": "string", "speaker": "string", "count": "number",
			}
			if !cmp.MapEq(call.Detected, expectedSchema) {
				t.Errorf(
					"unmatch: detected schema: (actual, expected) = (%+v, %+v)",
					call.Detected, expectedSchema,
				)
			}
		}
	})

	t.Run("it records the failure when the fetch breaks", func(t *testing.T) {
		mockSource := srcmock.NewSourceInterface()
		mockSource.Impl.PickSyncing = func(context.Context) (domain.Source, bool, error) {
			return syncingSource(domain.SourceTeamwork), true, nil
		}
		mockSource.Impl.CompleteSync = func(context.Context, string, int, string, map[string]string, string) error {
			return nil
		}

		fetcher := &fakeFetcher{err: errors.New("teamwork: unexpected status 401")}

		testee := tsync.Task(
			discard(), mockSource,
			map[domain.SourceType]connector.Fetcher{domain.SourceTeamwork: fetcher},
			&fakeSnapshots{}, time.Second,
		)

		testee(context.Background(), 0)

		{
			actual := mockSource.Calls.CompleteSync
			if len(actual) != 1 {
				t.Fatalf("unmatch: query for SourceInterface.CompleteSync: %+v", actual)
			}
			if actual[0].SyncErr != "teamwork: unexpected status 401" {
				t.Errorf("unmatch: sync error: %s", actual[0].SyncErr)
			}
			if actual[0].RecordCount != 0 || actual[0].SnapshotPath != "" {
				t.Errorf("unmatch: completion: %+v", actual[0])
			}
		}
	})

	t.Run("it records the failure when no connector serves the source type", func(t *testing.T) {
		mockSource := srcmock.NewSourceInterface()
		mockSource.Impl.PickSyncing = func(context.Context) (domain.Source, bool, error) {
			return syncingSource(domain.SourceTeamwork), true, nil
		}
		mockSource.Impl.CompleteSync = func(context.Context, string, int, string, map[string]string, string) error {
			return nil
		}

		testee := tsync.Task(
			discard(), mockSource,
			map[domain.SourceType]connector.Fetcher{}, // nothing registered
			&fakeSnapshots{}, time.Second,
		)

		testee(context.Background(), 0)

		actual := mockSource.Calls.CompleteSync
		if len(actual) != 1 || actual[0].SyncErr == "" {
			t.Errorf("unmatch: query for SourceInterface.CompleteSync: %+v", actual)
		}
	})

	t.Run("when no source is syncing, it cools down for the poll interval", func(t *testing.T) {
		mockSource := srcmock.NewSourceInterface()
		mockSource.Impl.PickSyncing = func(context.Context) (domain.Source, bool, error) {
			return domain.Source{}, false, nil
		}

		testee := tsync.Task(
			discard(), mockSource,
			map[domain.SourceType]connector.Fetcher{},
			&fakeSnapshots{}, 3*time.Second,
		)

		processed, next := testee(context.Background(), 5)
		if processed != 5 {
			t.Errorf("unmatch: processed: %d != 5", processed)
		}
		if next != loop.Continue(3*time.Second) {
			t.Errorf("unmatch: next: %s", next)
		}
	})
}
