package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ExtractionConfig struct {
	// 0 lets the adaptive profile decide how many chunks to extract.
	MaxChunks        int           `env:"MAX_CHUNKS" envDefault:"0" validate:"min=0"`
	ContextBucketCap int           `env:"CONTEXT_BUCKET_CAP" envDefault:"50" validate:"min=1"`
	SummaryMaxTokens int           `env:"SUMMARY_MAX_TOKENS" envDefault:"800" validate:"min=50"`
	RunTimeout       time.Duration `env:"RUN_TIMEOUT" envDefault:"10m" validate:"gt=0"`
	NormalizeMarkup  bool          `env:"NORMALIZE_MARKUP" envDefault:"true"`
	QueueName        string        `env:"QUEUE_NAME" envDefault:"healthmem:transcripts" validate:"required"`
}

func ParseExtractionConfig() (*ExtractionConfig, error) {
	c := &ExtractionConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}
