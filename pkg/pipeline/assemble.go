package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// field preference orders for the normalized record shape.
var (
	contentFields      = []string{"text", "content", "body", "message"}
	speakerFields      = []string{"speaker", "author", "from", "user"}
	conversationFields = []string{"conversationId", "conversation", "threadId", "thread"}
)

// DatasetWriter persists the assembled output file.
type DatasetWriter interface {
	WriteDataset(runId string, ext string, render func(io.Writer) error) (path string, size int64, err error)
}

type assembleStage struct {
	writer DatasetWriter
}

// NewAssemble filters records by content length, groups them into
// conversations, chunks by the configured size, and renders the output
// file in the configured format.
func NewAssemble(writer DatasetWriter) Stage {
	return &assembleStage{writer: writer}
}

func (*assembleStage) Name() string {
	return "assemble"
}

type message struct {
	Speaker  string         `json:"speaker"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type conversation struct {
	Id       string    `json:"id"`
	Messages []message `json:"messages"`
}

func (a *assembleStage) Run(ctx context.Context, ws *Workspace) error {
	conf := ws.Config

	kept := []Record{}
	for _, r := range ws.Records {
		length := utf8.RuneCountInString(contentOf(r.Fields))
		if length < conf.MinLength {
			continue
		}
		if conf.MaxLength > 0 && length > conf.MaxLength {
			continue
		}
		kept = append(kept, r)
	}
	ws.log(domain.LogInfo, "quality filter kept %d of %d records", len(kept), len(ws.Records))

	conversations := chunk(group(kept), conf.ChunkSize, conf.IncludeMetadata)

	speakers := map[string]struct{}{}
	messages := 0
	for _, c := range conversations {
		messages += len(c.Messages)
		for _, m := range c.Messages {
			speakers[m.Speaker] = struct{}{}
		}
	}

	stats := domain.DatasetStats{
		Conversations:  len(conversations),
		UniqueSpeakers: len(speakers),
	}
	if len(conversations) != 0 {
		stats.AvgConversationLength = float64(messages) / float64(len(conversations))
	}

	recordCount := messages
	render := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		switch conf.Format {
		case domain.FormatConversational:
			return enc.Encode(map[string]any{"conversations": conversations})
		case domain.FormatQA:
			return enc.Encode(map[string]any{"pairs": qaPairs(conversations)})
		case domain.FormatJSON:
			records := make([]map[string]any, 0, len(kept))
			for _, r := range kept {
				records = append(records, r.Fields)
			}
			return enc.Encode(map[string]any{"records": records})
		default:
			return fmt.Errorf("'%s' is not an output format", conf.Format)
		}
	}
	if conf.Format == domain.FormatQA {
		recordCount = len(qaPairs(conversations))
	}
	if conf.Format == domain.FormatJSON {
		recordCount = len(kept)
	}

	path, size, err := a.writer.WriteDataset(ws.RunId, ".json", render)
	if err != nil {
		return err
	}

	ws.Stats.ProcessedRecords = recordCount
	ws.Output = Output{
		Path:        path,
		Size:        size,
		RecordCount: recordCount,
		Stats:       stats,
	}
	return nil
}

func contentOf(fields map[string]any) string {
	return firstString(fields, contentFields)
}

func firstString(fields map[string]any, names []string) string {
	for _, name := range names {
		if v, ok := fields[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// group splits records into conversations by their conversation key,
// falling back to one conversation per source. Record order within a
// group is kept.
func group(records []Record) [][]Record {
	order := []string{}
	groups := map[string][]Record{}
	for _, r := range records {
		key := r.SourceId
		if ck := firstString(r.Fields, conversationFields); ck != "" {
			key = r.SourceId + "/" + ck
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	grouped := make([][]Record, 0, len(order))
	for _, key := range order {
		grouped = append(grouped, groups[key])
	}
	return grouped
}

// chunk splits each conversation so the cumulative content length per
// chunk stays within chunkSize; a single over-long message still forms
// a chunk of its own.
func chunk(grouped [][]Record, chunkSize int, includeMetadata bool) []conversation {
	conversations := []conversation{}
	for _, records := range grouped {
		current := []message{}
		length := 0
		flush := func() {
			if len(current) == 0 {
				return
			}
			conversations = append(conversations, conversation{
				Id:       fmt.Sprintf("c%04d", len(conversations)+1),
				Messages: current,
			})
			current, length = []message{}, 0
		}

		for _, r := range records {
			text := contentOf(r.Fields)
			l := utf8.RuneCountInString(text)
			if length != 0 && length+l > chunkSize {
				flush()
			}
			current = append(current, asMessage(r, includeMetadata))
			length += l
		}
		flush()
	}
	return conversations
}

func asMessage(r Record, includeMetadata bool) message {
	m := message{
		Speaker: firstString(r.Fields, speakerFields),
		Text:    contentOf(r.Fields),
	}
	if !includeMetadata {
		return m
	}

	meta := map[string]any{}
	for field, value := range r.Fields {
		if isReserved(field) {
			continue
		}
		meta[field] = value
	}
	if len(meta) != 0 {
		m.Metadata = meta
	}
	return m
}

func isReserved(field string) bool {
	for _, names := range [][]string{contentFields, speakerFields, conversationFields} {
		for _, name := range names {
			if field == name {
				return true
			}
		}
	}
	return false
}

type qaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// qaPairs turns consecutive messages of each conversation into
// question/answer pairs.
func qaPairs(conversations []conversation) []qaPair {
	pairs := []qaPair{}
	for _, c := range conversations {
		for i := 0; i+1 < len(c.Messages); i += 2 {
			pairs = append(pairs, qaPair{
				Question: c.Messages[i].Text,
				Answer:   c.Messages[i+1].Text,
			})
		}
	}
	return pairs
}
