package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rasha-hantash/splunk-downloader/steps/types"
	"gopkg.in/yaml.v3"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "SPLUNK_DOWNLOADER_LOG_LEVEL"

const baseURL = "https://www.splunk.com/en_us/download"

const (
	Enterprise = "enterprise"
	Forwarder  = "forwarder"
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindUsage         ErrorKind = "usage"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string
	Err  error
}

func (e *OpError) Error() string {
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// Pages are the two pages a product's links are scraped from.
type Pages struct {
	Previous string `yaml:"previous"`
	Current  string `yaml:"current"`
}

type Config struct {
	HTTPTimeout time.Duration
	CacheDir    string
	DestDir     string
	UserAgent   string
	LogLevel    string
	Products    map[string]Pages
}

type yamlConfig struct {
	HTTPTimeout time.Duration    `yaml:"http_timeout"`
	CacheDir    string           `yaml:"cache_dir"`
	DestDir     string           `yaml:"dest_dir"`
	UserAgent   string           `yaml:"user_agent"`
	LogLevel    string           `yaml:"log_level"`
	Products    map[string]Pages `yaml:"products"`
}

var validOS = map[string][]string{
	Enterprise: {"linux", "windows", "osx"},
	Forwarder:  {"windows", "linux", "solaris", "osx", "freebsd", "aix"},
}

func Default() Config {
	return Config{
		HTTPTimeout: 30 * time.Second,
		CacheDir:    ".",
		DestDir:     ".",
		UserAgent:   "splunk-downloader",
		LogLevel:    "info",
		Products: map[string]Pages{
			Enterprise: {
				Previous: baseURL + "/previous-releases.html",
				Current:  baseURL + "/splunk-enterprise.html",
			},
			Forwarder: {
				Previous: baseURL + "/previous-releases-universal-forwarder.html",
				Current:  baseURL + "/universal-forwarder.html",
			},
		},
	}
}

// Load reads a YAML file over the defaults. Fields left out of the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &OpError{Op: "config.load", Kind: KindNotFound, Path: path, Err: err}
	}

	var dto yamlConfig
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return Config{}, &OpError{Op: "config.load", Kind: KindInvalidConfig, Path: path, Err: err}
	}

	cfg.merge(dto)
	if err := cfg.Validate(); err != nil {
		var oe *OpError
		if errors.As(err, &oe) {
			oe.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(dto yamlConfig) {
	if dto.HTTPTimeout != 0 {
		c.HTTPTimeout = dto.HTTPTimeout
	}
	if dto.CacheDir != "" {
		c.CacheDir = dto.CacheDir
	}
	if dto.DestDir != "" {
		c.DestDir = dto.DestDir
	}
	if dto.UserAgent != "" {
		c.UserAgent = dto.UserAgent
	}
	if dto.LogLevel != "" {
		c.LogLevel = dto.LogLevel
	}
	for name, p := range dto.Products {
		name = strings.ToLower(name)
		cur := c.Products[name]
		if p.Previous != "" {
			cur.Previous = p.Previous
		}
		if p.Current != "" {
			cur.Current = p.Current
		}
		c.Products[name] = cur
	}
}

// ApplyEnv applies environment overrides using getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if lvl := strings.TrimSpace(getenv(LogLevelEnv)); lvl != "" {
		c.LogLevel = lvl
	}
}

func (c Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return &OpError{Op: "config.validate", Kind: KindInvalidConfig, Err: fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)}
	}
	if _, err := c.Level(); err != nil {
		return &OpError{Op: "config.validate", Kind: KindInvalidConfig, Err: err}
	}
	for _, name := range []string{Enterprise, Forwarder} {
		if c.Products[name].Previous == "" {
			return &OpError{Op: "config.validate", Kind: KindInvalidConfig, Err: fmt.Errorf("product %s has no previous releases page", name)}
		}
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Products returns the supported product names.
func Products() []string {
	return []string{Enterprise, Forwarder}
}

// PagesFor returns the pages to crawl for product, previous releases first.
func (c Config) PagesFor(product string) ([]types.Page, error) {
	product = strings.ToLower(product)
	p, ok := c.Products[product]
	if !ok || !slices.Contains(Products(), product) {
		return nil, &OpError{
			Op:   "config.pages",
			Kind: KindUsage,
			Err:  fmt.Errorf("application must be one of %s, got %q", strings.Join(Products(), ", "), product),
		}
	}

	pages := []types.Page{{Name: product, URL: p.Previous}}
	if p.Current != "" {
		pages = append(pages, types.Page{Name: product + "_current", URL: p.Current})
	}
	return pages, nil
}

// ValidOS returns the operating systems product is published for.
func ValidOS(product string) []string {
	return slices.Clone(validOS[strings.ToLower(product)])
}

// CheckOS rejects an OS filter the product is never published for.
func CheckOS(product, osName string) error {
	if osName == "" {
		return nil
	}
	valid := ValidOS(product)
	if !slices.Contains(valid, strings.ToLower(osName)) {
		return &OpError{
			Op:   "config.check_os",
			Kind: KindUsage,
			Err:  fmt.Errorf("os %q is not valid for %s, expected one of %s", osName, product, strings.Join(valid, ", ")),
		}
	}
	return nil
}
