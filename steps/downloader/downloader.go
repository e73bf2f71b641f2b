package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Downloader asks whether a link should be fetched and fetches it.
type Downloader interface {
	ConfirmAndDownload(ctx context.Context, rawURL string) (bool, error)
}

type Config struct {
	DestDir     string
	HTTPTimeout time.Duration
	UserAgent   string
}

// Prompter confirms each download on a console before fetching it into DestDir.
type Prompter struct {
	in         *bufio.Reader
	out        io.Writer
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewPrompter(cfg Config, in io.Reader, out io.Writer, logger *slog.Logger) *Prompter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DestDir == "" {
		cfg.DestDir = "."
	}
	return &Prompter{
		in:         bufio.NewReader(in),
		out:        out,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
	}
}

// ConfirmAndDownload reports false without error when the user declines.
func (p *Prompter) ConfirmAndDownload(ctx context.Context, rawURL string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(p.out, "Would you like to download %s? ", rawURL); err != nil {
		return false, err
	}

	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
	default:
		p.logger.Info("cancelled at user request", slog.String("url", rawURL))
		return false, nil
	}

	dest, n, err := p.download(ctx, rawURL)
	if err != nil {
		return false, err
	}
	p.logger.Info("downloaded",
		slog.String("url", rawURL),
		slog.String("file", dest),
		slog.Int64("bytes", n))
	return true, nil
}

// FileName is the local name a link is saved under.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("no file name in %s", rawURL)
	}
	return name, nil
}

func (p *Prompter) download(ctx context.Context, rawURL string) (string, int64, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", 0, err
	}
	dest := filepath.Join(p.config.DestDir, name)

	p.logger.Debug("downloading", slog.String("url", rawURL), slog.String("file", dest))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("creating request: %w", err)
	}
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(p.config.DestDir, "."+name+".*.part")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("writing %s: %w", dest, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", 0, fmt.Errorf("moving download into place: %w", err)
	}
	return dest, n, nil
}
