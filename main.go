package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rasha-hantash/splunk-downloader/config"
	"github.com/rasha-hantash/splunk-downloader/pipeline"
	"github.com/rasha-hantash/splunk-downloader/steps/classifier"
	"github.com/rasha-hantash/splunk-downloader/steps/crawler"
	"github.com/rasha-hantash/splunk-downloader/steps/downloader"
	"github.com/rasha-hantash/splunk-downloader/steps/output"
	"github.com/rasha-hantash/splunk-downloader/steps/selector"
	"github.com/rasha-hantash/splunk-downloader/steps/types"
)

// -----------------------------------------------------------------------------
// CLI entry-point
// -----------------------------------------------------------------------------

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath    string
	cached        bool
	cacheDir      string
	destDir       string
	arch          string
	osName        string
	versionFilter string
	packageType   string
	debug         bool
	download      bool
	latest        bool
}

func newRootCmd(in io.Reader) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "splunk-downloader <enterprise|forwarder>",
		Short:        "List and download Splunk release packages",
		Long:         "Application needs to be either forwarder or enterprise.",
		Args:         cobra.ExactArgs(1),
		ValidArgs:    config.Products(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, in, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.BoolVar(&opts.cached, "cached", false, "read pages from the cache directory, downloading them first if missing")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "directory for cached pages (default from config, \".\")")
	f.StringVar(&opts.destDir, "dest", "", "directory downloads are written to (default from config, \".\")")
	f.StringVarP(&opts.arch, "arch", "a", "", "CPU architecture filter - based on filename which is messy")
	f.BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	f.BoolVarP(&opts.download, "download", "D", false, "prompt to download each result to the destination directory")
	f.StringVarP(&opts.versionFilter, "version", "v", "", "version to match, used as a <version>* wildcard")
	f.StringVarP(&opts.osName, "os", "o", "", "OS to match. enterprise: linux|windows|osx, forwarder: windows|linux|solaris|osx|freebsd|aix")
	f.StringVarP(&opts.packageType, "type", "t", "", "package type to match ("+strings.Join(classifier.PackageTypes(), "|")+")")
	f.BoolVarP(&opts.latest, "latest", "l", false, "show only the latest version for any given os/package/arch combination")

	return cmd
}

func run(cmd *cobra.Command, in io.Reader, product string, opts options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if opts.cacheDir != "" {
		cfg.CacheDir = opts.cacheDir
	}
	if opts.destDir != "" {
		cfg.DestDir = opts.destDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg, opts.debug)
	if err != nil {
		return err
	}

	product = strings.ToLower(product)
	pages, err := cfg.PagesFor(product)
	if err != nil {
		return err
	}
	if err := config.CheckOS(product, opts.osName); err != nil {
		return err
	}
	packageType, err := canonicalPackageType(opts.packageType)
	if err != nil {
		return err
	}
	if packageType != "" {
		logger.Debug("looking for package type", slog.String("type", packageType))
	}

	filters := types.Filters{
		OS:            strings.ToLower(opts.osName),
		VersionPrefix: opts.versionFilter,
		PackageType:   packageType,
		Arch:          opts.arch,
		LatestOnly:    opts.latest,
	}

	var dl downloader.Downloader
	if opts.download {
		// no client timeout: packages run to hundreds of megabytes
		dl = downloader.NewPrompter(downloader.Config{
			DestDir:   cfg.DestDir,
			UserAgent: cfg.UserAgent,
		}, in, cmd.OutOrStdout(), logger)
	}

	state := &types.Run{}
	pipe := pipeline.NewPipeline(logger,
		crawler.NewCrawler(crawler.Config{
			HTTPTimeout: cfg.HTTPTimeout,
			UserAgent:   cfg.UserAgent,
			Cached:      opts.cached,
			CacheDir:    cfg.CacheDir,
		}, pages, state, logger),
		selector.NewStep(state, filters, logger),
		output.NewPrinter(state, cmd.OutOrStdout(), dl, logger),
	)

	return pipe.Run(cmd.Context())
}

func newLogger(w io.Writer, cfg config.Config, debug bool) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// canonicalPackageType matches t case-insensitively against the known package types.
func canonicalPackageType(t string) (string, error) {
	if t == "" {
		return "", nil
	}
	for _, p := range classifier.PackageTypes() {
		if strings.EqualFold(p, t) {
			return p, nil
		}
	}
	return "", &config.OpError{
		Op:   "cli.package_type",
		Kind: config.KindUsage,
		Err:  fmt.Errorf("package type %q is not one of %s", t, strings.Join(classifier.PackageTypes(), ", ")),
	}
}
