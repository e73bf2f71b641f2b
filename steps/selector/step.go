package selector

import (
	"context"
	"log/slog"

	"github.com/rasha-hantash/splunk-downloader/steps/types"
)

// Step runs Select over the links gathered by the crawler.
type Step struct {
	run     *types.Run
	filters types.Filters
	logger  *slog.Logger
}

func NewStep(run *types.Run, filters types.Filters, logger *slog.Logger) *Step {
	return &Step{run: run, filters: filters, logger: logger}
}

// Name implements the Step interface
func (s *Step) Name() string {
	return "selector"
}

// Run implements the Step interface. An empty result is reported, not returned
// as an error.
func (s *Step) Run(_ context.Context) error {
	s.run.Results = Select(s.logger, s.run.Links, s.filters)
	s.run.Empty = len(s.run.Results) == 0

	if s.run.Empty {
		s.logger.Error("no results found",
			slog.Int("links", len(s.run.Links)))
		return nil
	}

	s.logger.Info("selected links",
		slog.Int("links", len(s.run.Links)),
		slog.Int("results", len(s.run.Results)))
	return nil
}
