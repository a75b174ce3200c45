package domain_test

import (
	"testing"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

func TestProcessingConfigValidate(t *testing.T) {
	valid := domain.DefaultProcessingConfig()

	t.Run("the default config is valid", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	type when func(domain.ProcessingConfig) domain.ProcessingConfig

	for name, testcase := range map[string]struct {
		when
		wantError bool
	}{
		"qa format": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.Format = domain.FormatQA
				return c
			},
		},
		"chunk size at the lower bound": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.ChunkSize = domain.MinChunkSize
				return c
			},
		},
		"chunk size at the upper bound": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.ChunkSize = domain.MaxChunkSize
				return c
			},
		},
		"unbounded max length": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.MaxLength = 0
				return c
			},
		},
		"unknown format": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.Format = "markdown"
				return c
			},
			wantError: true,
		},
		"chunk size below the lower bound": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.ChunkSize = domain.MinChunkSize - 1
				return c
			},
			wantError: true,
		},
		"chunk size above the upper bound": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.ChunkSize = domain.MaxChunkSize + 1
				return c
			},
			wantError: true,
		},
		"negative min length": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.MinLength = -1
				return c
			},
			wantError: true,
		},
		"max length below min length": {
			when: func(c domain.ProcessingConfig) domain.ProcessingConfig {
				c.MinLength = 100
				c.MaxLength = 99
				return c
			},
			wantError: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := testcase.when(valid).Validate()
			if testcase.wantError && err == nil {
				t.Error("error is expected, but none")
			}
			if !testcase.wantError && err != nil {
				t.Errorf("unexpected error: %+v", err)
			}
		})
	}
}
