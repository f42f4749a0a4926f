// Package app wires configured components for the binaries.
package app

import (
	"go.uber.org/zap"

	"github.com/yourorg/cc-corpus/internal/config"
	"github.com/yourorg/cc-corpus/internal/extract"
	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/quality"
)

// NewRunner builds a stage runner with the readability extractor and the
// configured quality filter.
func NewRunner(cfg config.Config, log *zap.Logger) *pipeline.Runner {
	loop := &pipeline.Loop{
		Extractor: extract.Readability{},
		Filter:    quality.New(cfg.Quality),
		Logger:    log,

		SkipExtractErrors: cfg.SkipExtractErrors,
	}
	return pipeline.NewRunner(loop, cfg.RunnerOptions(), log)
}
