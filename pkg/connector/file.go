package connector

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// FileFetcher reads records from an uploaded file. Supported layouts:
// a JSON array of objects, JSON Lines, and CSV with a header row.
type FileFetcher struct{}

func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

var _ Fetcher = &FileFetcher{}

func (f *FileFetcher) Fetch(ctx context.Context, source domain.Source) ([]map[string]any, error) {
	if source.File == nil {
		return nil, ErrFetch(source, errors.New("not a file source"))
	}
	file, err := os.Open(source.File.Path)
	if err != nil {
		return nil, ErrFetch(source, err)
	}
	defer file.Close()

	records, err := parseFile(file, source.File.ContentType, source.File.Path)
	if err != nil {
		return nil, ErrFetch(source, err)
	}
	return records, nil
}

func parseFile(r io.Reader, contentType string, path string) ([]map[string]any, error) {
	switch {
	case strings.Contains(contentType, "csv") || strings.HasSuffix(path, ".csv"):
		return parseCSV(r)
	case strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".ndjson"):
		return parseJSONLines(r)
	default:
		return parseJSON(r)
	}
}

func parseJSON(r io.Reader) ([]map[string]any, error) {
	buffered := bufio.NewReader(r)

	// a leading '[' means one array document; otherwise JSON Lines.
	head, err := peekNonSpace(buffered)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []map[string]any{}, nil
		}
		return nil, err
	}
	if head != '[' {
		return parseJSONLines(buffered)
	}

	records := []map[string]any{}
	if err := json.NewDecoder(buffered).Decode(&records); err != nil {
		return nil, fmt.Errorf("not a JSON array of objects: %w", err)
	}
	return records, nil
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := r.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}

func parseJSONLines(r io.Reader) ([]map[string]any, error) {
	records := []map[string]any{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		record := map[string]any{}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("broken JSON line: %w", err)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

func parseCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []map[string]any{}, nil
		}
		return nil, err
	}

	records := []map[string]any{}
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, err
		}
		record := map[string]any{}
		for i, field := range header {
			if i < len(row) {
				record[field] = row[i]
			}
		}
		records = append(records, record)
	}
}
