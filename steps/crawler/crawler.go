package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rasha-hantash/splunk-downloader/steps/types"
	"golang.org/x/net/html"
)

const (
	// Anchors carry the download link directly, or a wget command line as a fallback.
	linkAttr         = "data-link"
	linkAttrFallback = "data-wget"

	excludedSuffix = ".mp4"
	maxPageBytes   = 16 << 20
)

// ErrFetch marks failures to retrieve a page.
var ErrFetch = errors.New("fetch failed")

var urlInCommandRe = regexp.MustCompile(`https?://[^\s'"]+`)

// Config controls how pages are retrieved.
type Config struct {
	HTTPTimeout time.Duration
	UserAgent   string
	// Cached serves pages from CacheDir, downloading them first when missing.
	Cached   bool
	CacheDir string
	// MaxPageBytes caps a page body. Zero means 16 MiB.
	MaxPageBytes int64
}

// Crawler collects download links from the vendor's release pages.
type Crawler struct {
	httpClient *http.Client
	config     Config
	pages      []types.Page
	run        *types.Run
	logger     *slog.Logger
}

// NewCrawler creates a crawler for the given pages. Links are appended to run.Links.
func NewCrawler(cfg Config, pages []types.Page, run *types.Run, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Cached && cfg.CacheDir == "" {
		cfg.CacheDir = "."
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = maxPageBytes
	}
	return &Crawler{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		config:     cfg,
		pages:      pages,
		run:        run,
		logger:     logger,
	}
}

// Name implements the Step interface
func (c *Crawler) Name() string {
	return "crawler"
}

// Run implements the Step interface. A page that cannot be fetched is logged and
// skipped; the step only fails when every page fails.
func (c *Crawler) Run(ctx context.Context) error {
	start := time.Now()
	var errs []error

	for _, page := range c.pages {
		links, err := c.FetchLinks(ctx, page.URL)
		if err != nil {
			c.logger.Warn("error fetching page",
				slog.String("page", page.Name),
				slog.String("url", page.URL),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", page.Name, err))
			continue
		}
		c.run.Links = append(c.run.Links, links...)
	}

	if len(c.pages) > 0 && len(errs) == len(c.pages) {
		return errors.Join(errs...)
	}

	c.logger.Info("crawl completed",
		slog.Duration("duration", time.Since(start).Truncate(time.Millisecond)),
		slog.Int("pages", len(c.pages)-len(errs)),
		slog.Int("links", len(c.run.Links)))
	return nil
}

// FetchLinks returns the candidate download links found on pageURL.
func (c *Crawler) FetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	content, err := c.loadPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return c.ExtractLinks(content, pageURL)
}

func (c *Crawler) loadPage(ctx context.Context, pageURL string) ([]byte, error) {
	if !c.config.Cached {
		return c.fetch(ctx, pageURL)
	}

	info, err := os.Stat(c.config.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("cache directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cache directory %s is not a directory", c.config.CacheDir)
	}

	cacheFile := filepath.Join(c.config.CacheDir, cacheName(pageURL))
	st, err := os.Stat(cacheFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		content, err := c.fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if err := writeFileAtomic(cacheFile, content); err != nil {
			return nil, fmt.Errorf("writing cache file: %w", err)
		}
		c.logger.Warn("wrote cache file", slog.String("file", cacheFile))
		c.writeMetadata(cacheFile, pageURL, content)
		return content, nil
	case err != nil:
		return nil, fmt.Errorf("cache file: %w", err)
	}

	c.logger.Info("using cache file",
		slog.String("file", cacheFile),
		slog.Int64("age_seconds", int64(time.Since(st.ModTime()).Seconds())))

	content, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	return content, nil
}

// cacheName maps a page URL onto a flat file name.
func cacheName(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "index.html"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "index.html"
	}
	return name
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	c.logger.Debug("pulling url", slog.String("url", pageURL))

	resp, err := c.httpGet(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFetch, pageURL, err)
	}
	if int64(len(content)) > c.config.MaxPageBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrFetch, pageURL, c.config.MaxPageBytes)
	}
	return content, nil
}

// writeFileAtomic writes through a temp file in the same directory so a reader
// never sees a partial file under name.
func writeFileAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

// ExtractLinks pulls download links out of a page. Relative links are resolved
// against pageURL; duplicates are dropped, keeping the first occurrence.
func (c *Crawler) ExtractLinks(content []byte, pageURL string) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	var links []string
	seen := make(map[string]struct{})

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		link := anchorLink(s)
		if link == "" {
			c.logger.Debug("skipping anchor without download attribute",
				slog.String("text", strings.TrimSpace(s.Text())))
			return
		}
		link = resolve(pageURL, link)
		if strings.HasSuffix(strings.ToLower(link), excludedSuffix) {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
		c.logger.Debug("adding link", slog.String("url", link))
	})

	return links, nil
}

func anchorLink(s *goquery.Selection) string {
	if v, ok := s.Attr(linkAttr); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := s.Attr(linkAttrFallback); ok {
		return urlInCommandRe.FindString(v)
	}
	return ""
}

func resolve(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if u.IsAbs() {
		return href
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

// extractHTMLTitle extracts the title from the HTML <title> tag
func extractHTMLTitle(root *html.Node) string {
	var title string
	var dfs func(*html.Node)

	dfs = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = n.FirstChild.Data
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			dfs(child)
		}
	}

	dfs(root)
	return strings.TrimSpace(title)
}

// MetadataPath returns the sidecar file written next to a cached page.
func MetadataPath(cacheFile string) string {
	return cacheFile + ".metadata.json"
}

func (c *Crawler) writeMetadata(cacheFile, pageURL string, content []byte) {
	m := types.Metadata{
		SourceURL: pageURL,
		CacheFile: filepath.Base(cacheFile),
		Bytes:     len(content),
		FetchedAt: time.Now().UTC(),
	}
	if root, err := html.Parse(bytes.NewReader(content)); err == nil {
		m.Title = extractHTMLTitle(root)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		c.logger.Warn("failed to marshal metadata",
			slog.String("file", cacheFile),
			slog.Any("error", err))
		return
	}

	if err := writeFileAtomic(MetadataPath(cacheFile), b); err != nil {
		c.logger.Warn("failed to write metadata",
			slog.String("file", cacheFile),
			slog.Any("error", err))
	}
}

// -------------------- HTTP ------------------

func (c *Crawler) httpGet(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrFetch, err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %v", ErrFetch, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: %s", ErrFetch, u, resp.Status)
	}
	return resp, nil
}
