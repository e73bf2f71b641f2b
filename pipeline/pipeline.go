package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Step represents a discrete unit of work in the pipeline.
type Step interface {
	Name() string
	Run(ctx context.Context) error
}

// Pipeline orchestrates a fixed list of steps.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

func NewPipeline(logger *slog.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{steps: steps, logger: logger}
}

// Run executes every step in order.
func (p *Pipeline) Run(ctx context.Context) error {
	if len(p.steps) == 0 {
		return nil
	}
	return p.RunFrom(ctx, 0)
}

// RunFrom executes steps starting at the provided index.
// If any step returns an error, execution stops and the error bubbles up.
func (p *Pipeline) RunFrom(ctx context.Context, start int) error {
	if start < 0 || start >= len(p.steps) {
		return fmt.Errorf("start index %d out of range", start)
	}

	for i := start; i < len(p.steps); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := p.steps[i]
		p.logger.Debug("running step",
			slog.String("step", step.Name()),
			slog.Int("current", i+1),
			slog.Int("total", len(p.steps)))
		t0 := time.Now()

		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("step %s failed after %s: %w", step.Name(), time.Since(t0).Truncate(time.Millisecond), err)
		}

		p.logger.Debug("completed step",
			slog.String("step", step.Name()),
			slog.Duration("duration", time.Since(t0).Truncate(time.Millisecond)))
	}

	return nil
}
