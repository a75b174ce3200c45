package domain

import "fmt"

type OutputFormat string

const (
	FormatConversational OutputFormat = "conversational"
	FormatQA             OutputFormat = "qa"
	FormatJSON           OutputFormat = "json"
)

func AsOutputFormat(format string) (OutputFormat, error) {
	switch format {
	case string(FormatConversational):
		return FormatConversational, nil
	case string(FormatQA):
		return FormatQA, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("'%s' is not OutputFormat", format)
	}
}

const (
	MinChunkSize = 100
	MaxChunkSize = 10000
)

// Per-project settings controlling run behaviour.
//
// One row per project, created with defaults at project creation.
// A Run freezes a copy of it at creation time.
type ProcessingConfig struct {
	Format          OutputFormat
	IncludeMetadata bool

	// records per output chunk, MinChunkSize..MaxChunkSize.
	ChunkSize int

	// quality filters: drop records whose content length is outside
	// [MinLength, MaxLength]. MaxLength = 0 means unbounded.
	MinLength int
	MaxLength int
}

func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		Format:          FormatConversational,
		IncludeMetadata: true,
		ChunkSize:       1000,
		MinLength:       10,
		MaxLength:       10000,
	}
}

func (c ProcessingConfig) Validate() error {
	if _, err := AsOutputFormat(string(c.Format)); err != nil {
		return err
	}
	if c.ChunkSize < MinChunkSize || MaxChunkSize < c.ChunkSize {
		return fmt.Errorf(
			"chunk size %d is out of range [%d, %d]",
			c.ChunkSize, MinChunkSize, MaxChunkSize,
		)
	}
	if c.MinLength < 0 {
		return fmt.Errorf("min length %d is negative", c.MinLength)
	}
	if c.MaxLength != 0 && c.MaxLength < c.MinLength {
		return fmt.Errorf(
			"max length %d is less than min length %d", c.MaxLength, c.MinLength,
		)
	}
	return nil
}
