package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rasha-hantash/splunk-downloader/steps/downloader"
	"github.com/rasha-hantash/splunk-downloader/steps/types"
)

// Printer writes the selected links, one per line. With a Downloader set, each
// link is offered for download right after it is printed.
type Printer struct {
	run        *types.Run
	out        io.Writer
	downloader downloader.Downloader
	logger     *slog.Logger
}

// NewPrinter creates the output step. dl may be nil to only list links.
func NewPrinter(run *types.Run, out io.Writer, dl downloader.Downloader, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Printer{run: run, out: out, downloader: dl, logger: logger}
}

// Name implements the Step interface
func (p *Printer) Name() string {
	return "output"
}

// Run implements the Step interface. A failed download is logged and the
// remaining links are still offered; the failures are returned at the end.
func (p *Printer) Run(ctx context.Context) error {
	var errs []error
	downloaded := 0

	for _, rec := range p.run.Results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(p.out, rec.URL); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if p.downloader == nil {
			continue
		}

		ok, err := p.downloader.ConfirmAndDownload(ctx, rec.URL)
		if err != nil {
			p.logger.Error("download failed",
				slog.String("url", rec.URL),
				slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		if ok {
			downloaded++
		}
	}

	if p.downloader != nil {
		p.logger.Info("downloads finished",
			slog.Int("downloaded", downloaded),
			slog.Int("failed", len(errs)),
			slog.Int("offered", len(p.run.Results)))
	}
	return errors.Join(errs...)
}
