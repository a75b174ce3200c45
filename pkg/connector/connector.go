package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// Fetcher retrieves the normalized records of a source.
//
// Fetch is called by the sync loop only; a source's records change only
// through a sync.
type Fetcher interface {
	Fetch(ctx context.Context, source domain.Source) ([]map[string]any, error)
}

// DetectFields infers a field -> type hint from fetched records, shown
// to users as the read-only detected schema.
func DetectFields(records []map[string]any) map[string]string {
	detected := map[string]string{}
	for _, r := range records {
		for field, value := range r {
			kind := kindOf(value)
			known, ok := detected[field]
			if !ok {
				detected[field] = kind
				continue
			}
			if known != kind {
				detected[field] = "string" // mixed types degrade to string
			}
		}
	}
	return detected
}

func kindOf(value any) string {
	switch v := value.(type) {
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case string:
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return "datetime"
		}
		return "string"
	case nil:
		return "string"
	default:
		return "object"
	}
}

// ErrFetch wraps a fetch failure with the source it came from, so sync
// completions record a readable cause.
func ErrFetch(source domain.Source, err error) error {
	return fmt.Errorf("fetching source %s (%s): %w", source.Name, source.Id, err)
}
