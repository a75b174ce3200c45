package processing

import (
	"github.com/datasmith-io/datasmith/pkg/domain"
)

type Config struct {
	Format          string `json:"format"`
	IncludeMetadata bool   `json:"includeMetadata"`
	ChunkSize       int    `json:"chunkSize"`
	MinLength       int    `json:"minLength"`
	MaxLength       int    `json:"maxLength"`
}

func (c Config) Equal(o Config) bool {
	return c == o
}

func Compose(c domain.ProcessingConfig) Config {
	return Config{
		Format:          string(c.Format),
		IncludeMetadata: c.IncludeMetadata,
		ChunkSize:       c.ChunkSize,
		MinLength:       c.MinLength,
		MaxLength:       c.MaxLength,
	}
}

// Decompose parses a whole-object update back into the domain shape.
// Validation happens in domain.ProcessingConfig.Validate.
func (c Config) Decompose() (domain.ProcessingConfig, error) {
	format, err := domain.AsOutputFormat(c.Format)
	if err != nil {
		return domain.ProcessingConfig{}, err
	}
	return domain.ProcessingConfig{
		Format:          format,
		IncludeMetadata: c.IncludeMetadata,
		ChunkSize:       c.ChunkSize,
		MinLength:       c.MinLength,
		MaxLength:       c.MaxLength,
	}, nil
}
