package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage keeps source snapshots and assembled dataset files under a
// single root directory.
//
// Snapshots are JSON Lines, one normalized record per line. Dataset
// files are opaque here; the pipeline's assemble stage decides their
// layout.
type Storage struct {
	root string
}

func New(root string) (*Storage, error) {
	for _, dir := range []string{"uploads", "snapshots", "datasets"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o750); err != nil {
			return nil, err
		}
	}
	return &Storage{root: root}, nil
}

// WriteSnapshot persists the records fetched by a sync, replacing any
// previous snapshot of the source. Written to a temp file first so a
// crashed sync never leaves a half snapshot behind the recorded path.
func (s *Storage) WriteSnapshot(sourceId string, records []map[string]any) (string, error) {
	path := filepath.Join(s.root, "snapshots", sourceId+".jsonl")
	if err := s.writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Storage) ReadSnapshot(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := []map[string]any{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		r := map[string]any{}
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("broken snapshot %s: %w", path, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteDataset renders a dataset file for the run and reports its path
// and size.
func (s *Storage) WriteDataset(runId string, ext string, render func(io.Writer) error) (string, int64, error) {
	path := filepath.Join(s.root, "datasets", runId+ext)
	if err := s.writeAtomic(path, render); err != nil {
		return "", 0, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, stat.Size(), nil
}

// SaveUpload stores an uploaded source file under a fresh name and
// reports where it landed.
func (s *Storage) SaveUpload(name string, r io.Reader) (string, int64, error) {
	path := filepath.Join(s.root, "uploads", name)
	if err := s.writeAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return "", 0, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, stat.Size(), nil
}

// Open serves a stored file for download.
func (s *Storage) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (s *Storage) writeAtomic(path string, render func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := render(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
