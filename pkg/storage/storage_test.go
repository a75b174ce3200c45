package storage_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/datasmith-io/datasmith/pkg/storage"
	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
	"github.com/datasmith-io/datasmith/pkg/utils/try"
)

func TestStorage_Snapshot(t *testing.T) {
	t.Run("it reads back what it wrote", func(t *testing.T) {
		s := try.To(storage.New(t.TempDir())).OrFatal(t)

		records := []map[string]any{
			{"speaker": "alice", "text": "hello"},
			{"speaker": "bob", "text": "hi", "ts": "2025-01-02T03:04:05Z"},
		}
		path := try.To(s.WriteSnapshot("source-1", records)).OrFatal(t)

		actual := try.To(s.ReadSnapshot(path)).OrFatal(t)
		if len(actual) != len(records) {
			t.Fatalf("unmatch: read %d records, wrote %d", len(actual), len(records))
		}
		for i := range records {
			if !cmp.MapEqWith(actual[i], records[i], func(a, b any) bool {
				return fmt.Sprint(a) == fmt.Sprint(b)
			}) {
				t.Errorf("record %d unmatch: %v != %v", i, actual[i], records[i])
			}
		}
	})

	t.Run("a re-sync replaces the snapshot", func(t *testing.T) {
		s := try.To(storage.New(t.TempDir())).OrFatal(t)

		first := try.To(s.WriteSnapshot("source-1", []map[string]any{
			{"text": "old"}, {"text": "older"},
		})).OrFatal(t)
		second := try.To(s.WriteSnapshot("source-1", []map[string]any{
			{"text": "new"},
		})).OrFatal(t)

		if first != second {
			t.Errorf("snapshot path is not stable: %s != %s", first, second)
		}
		records := try.To(s.ReadSnapshot(second)).OrFatal(t)
		if len(records) != 1 || records[0]["text"] != "new" {
			t.Errorf("stale snapshot survived: %v", records)
		}
	})

	t.Run("an empty snapshot is readable", func(t *testing.T) {
		s := try.To(storage.New(t.TempDir())).OrFatal(t)
		path := try.To(s.WriteSnapshot("source-1", nil)).OrFatal(t)
		records := try.To(s.ReadSnapshot(path)).OrFatal(t)
		if len(records) != 0 {
			t.Errorf("unexpected records: %v", records)
		}
	})
}

func TestStorage_Dataset(t *testing.T) {
	t.Run("it writes the rendered payload and reports its size", func(t *testing.T) {
		s := try.To(storage.New(t.TempDir())).OrFatal(t)

		payload := `{"conversations":[]}` + "\n"
		path, size, err := s.WriteDataset("run-1", ".json", func(w io.Writer) error {
			_, err := io.WriteString(w, payload)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		if size != int64(len(payload)) {
			t.Errorf("unmatch size: %d != %d", size, len(payload))
		}

		f := try.To(s.Open(path)).OrFatal(t)
		defer f.Close()
		actual := try.To(io.ReadAll(f)).OrFatal(t)
		if string(actual) != payload {
			t.Errorf("unmatch payload: %s != %s", actual, payload)
		}
	})

	t.Run("a failed render leaves no file", func(t *testing.T) {
		root := t.TempDir()
		s := try.To(storage.New(root)).OrFatal(t)

		_, _, err := s.WriteDataset("run-1", ".json", func(w io.Writer) error {
			return fmt.Errorf("fake render failure")
		})
		if err == nil {
			t.Fatal("render failure not reported")
		}
		if _, err := os.Stat(filepath.Join(root, "datasets", "run-1.json")); !os.IsNotExist(err) {
			t.Errorf("half-written dataset left behind: %v", err)
		}
	})
}
