// Command wikicrawl performs a single, resumable, breadth-first crawl of a
// Wikipedia category tree starting from a seed URL, saving categories and
// articles as JSON under an output directory. Grounded on the teacher's
// cmd/quaero/main.go bootstrap sequence (flags -> config -> logger ->
// banner -> run -> shutdown banner), narrowed to this module's single verb:
// this module has exactly one verb — crawl — so flag alone is the right
// amount of ceremony; cobra's multi-subcommand machinery would be unused
// weight.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/wikicrawl/wikicrawl/internal/common"
	"github.com/wikicrawl/wikicrawl/internal/crawler/content"
	"github.com/wikicrawl/wikicrawl/internal/crawler/dedup"
	"github.com/wikicrawl/wikicrawl/internal/crawler/fetch"
	"github.com/wikicrawl/wikicrawl/internal/crawler/frontier"
	"github.com/wikicrawl/wikicrawl/internal/crawler/language"
	"github.com/wikicrawl/wikicrawl/internal/crawler/orchestrator"
	"github.com/wikicrawl/wikicrawl/internal/crawler/progress"
	"github.com/wikicrawl/wikicrawl/internal/crawler/store"
)

type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	seedURL     = flag.String("seed", "", "Seed URL to start the crawl from (overrides config)")
	outputDir   = flag.String("output", "", "Output directory (overrides config)")
	maxDepth    = flag.Int("max-depth", -1, "Maximum crawl depth (overrides config, -1 = use config)")
	resume      = flag.Bool("resume", false, "Resume from previously saved queue_state.json / deduplication_state.json / progress_state.json in the output directory's state/ folder")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("wikicrawl version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("wikicrawl.toml"); err == nil {
			configFiles = append(configFiles, "wikicrawl.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *seedURL, *outputDir, *maxDepth)

	if err := common.ValidateSeedURL(config.Crawl.StartURL); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("seed_url", config.Crawl.StartURL).Msg("invalid seed URL")
		os.Exit(1)
	}

	logger := common.SetupLogger(config)
	defer common.Stop()

	common.InstallCrashHandler(filepath.Join(config.Storage.OutputDir, "logs"))
	defer common.RecoverWithCrashFile()

	common.PrintBanner(config, logger)

	if err := run(config, logger, *resume); err != nil {
		logger.Fatal().Err(err).Msg("crawl failed")
		os.Exit(1)
	}

	common.PrintShutdownBanner(logger)
}

func run(config *common.Config, logger arbor.ILogger, resumeState bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received, draining in-flight workers")
		cancel()
		<-sigCh
		logger.Warn().Msg("second shutdown signal received, exiting without checkpoint")
		os.Exit(1)
	}()

	st, err := store.New(store.Config{
		OutputDir:          config.Storage.OutputDir,
		OrganizeBy:         store.OrganizeBy(config.Storage.FolderOrg.OrganizeBy),
		CategoryFolderName: config.Storage.FolderOrg.CategoryFolderName,
		CreateSubfolders:   config.Storage.FolderOrg.CreateSubfolders,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize file store: %w", err)
	}

	stateDir := filepath.Join(config.Storage.OutputDir, "state")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	queuePath := filepath.Join(stateDir, "queue_state.json")
	progressPath := filepath.Join(stateDir, "progress_state.json")
	dedupPath := filepath.Join(stateDir, "deduplication_state.json")

	var urlFrontier *frontier.Frontier
	var tracker *progress.Tracker
	var dedupe *dedup.Registry

	if resumeState {
		urlFrontier, err = frontier.Load(queuePath)
		if err != nil {
			logger.Warn().Err(err).Str("path", queuePath).Msg("could not load saved queue state, starting fresh")
			urlFrontier = frontier.New()
		}
		tracker, err = progress.Load(progressPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", progressPath).Msg("could not load saved progress state, starting fresh")
			tracker = progress.New()
		}
		dedupe, err = dedup.Load(dedupPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", dedupPath).Msg("could not load saved dedup state, starting fresh")
			dedupe = dedup.New()
		}
	} else {
		urlFrontier = frontier.New()
		tracker = progress.New()
		dedupe = dedup.New()
	}

	fetcher := fetch.New(fetch.Config{
		RequestDelay:   config.Crawl.RequestDelay.Duration,
		RequestTimeout: config.Crawl.RequestTimeout.Duration,
		Retry: fetch.RetryPolicy{
			MaxAttempts:       config.Crawl.MaxRetries + 1,
			InitialBackoff:    config.Crawl.RequestDelay.Duration,
			MaxBackoff:        fetch.DefaultRetryPolicy().MaxBackoff,
			BackoffMultiplier: fetch.DefaultRetryPolicy().BackoffMultiplier,
		},
	}, logger)

	orch := orchestrator.New(
		orchestrator.Config{
			SeedURL:      config.Crawl.StartURL,
			MaxDepth:     config.Crawl.MaxDepth,
			Concurrency:  config.Crawl.Concurrency,
			StateDir:     stateDir,
			SaveInterval: config.Crawl.SaveInterval.Duration,
		},
		urlFrontier,
		fetcher,
		dedupe,
		st,
		tracker,
		content.New(config.Crawl.MinContentLength),
		language.New(config.Crawl.SupportedLanguages),
		logger,
	)

	if err := orch.Run(ctx); err != nil {
		return err
	}

	snap := tracker.Snapshot()
	logger.Info().
		Int("categories_saved", snap.Status.Categories).
		Int("articles_saved", snap.Status.Articles).
		Int("filtered", snap.Status.Filtered).
		Int("errors", snap.Status.Errors).
		Msg("crawl complete")

	return nil
}
