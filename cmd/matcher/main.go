// Matcher batch job
//
// Usage:
//
//	matcher [run] [--dry-run] [--log-level debug]
//	matcher normalize "iPhone 15 Pro (2023)" ...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/prylval/affiliates/config"
	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/infrastructure"
	"github.com/prylval/affiliates/internal/infrastructure/feed"
	"github.com/prylval/affiliates/internal/infrastructure/storage"
	"github.com/prylval/affiliates/internal/normalize"
	"github.com/prylval/affiliates/internal/usecase"
)

var version = "dev"

// Exit codes
const (
	exitConfig = 1
	exitSave   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfig)
	}
}

func newApp() *cli.App {
	runFlags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Match and report without saving the affiliate map",
		},
	}

	return &cli.App{
		Name:    "matcher",
		Usage:   "Match the editorial catalog against merchant feeds and update the affiliate map",
		Version: version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); overrides log.level",
				EnvVars: []string{"AFFILIATES_LOG_LEVEL"},
			},
		}, runFlags...),
		Action: runMatch,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Fetch feeds, resolve matches and save the affiliate map (default)",
				Flags:  runFlags,
				Action: runMatch,
			},
			{
				Name:      "normalize",
				Usage:     "Print the normalized key and match keys of product names",
				ArgsUsage: "<name>...",
				Action:    runNormalize,
			},
		},
	}
}

func runMatch(c *cli.Context) error {
	ctx := c.Context

	cfg, err := config.Load()
	if err != nil {
		return cli.Exit(err, exitConfig)
	}
	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	logger := config.SetupLogger(cfg.Log)

	if err := config.ValidateMatcher(cfg); err != nil {
		return cli.Exit(err, exitConfig)
	}
	policy, err := usecase.ParseOverwritePolicy(cfg.Matching.OverwritePolicy)
	if err != nil {
		return cli.Exit(err, exitConfig)
	}

	products, err := storage.NewCatalogRepository(cfg.Storage.CatalogPath).Load(ctx)
	if err != nil {
		return cli.Exit(err, exitConfig)
	}
	logger.Info().Int("products", len(products)).Str("path", cfg.Storage.CatalogPath).Msg("catalog loaded")

	repo, err := infrastructure.NewMapRepository(cfg.Storage, nil)
	if err != nil {
		return cli.Exit(err, exitConfig)
	}
	existing, err := repo.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrMalformedMap):
		logger.Warn().Err(err).Msg("existing affiliate map unreadable, starting from an empty map")
		existing = domain.AffiliateMap{}
	case err != nil:
		return cli.Exit(fmt.Errorf("failed to load affiliate map: %w", err), exitConfig)
	}

	feeds := fetchFeeds(ctx, cfg, logger)

	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		MinFuzzyKeyLength: cfg.Matching.MinFuzzyKeyLength,
		MaxEditDistance:   cfg.Matching.MaxEditDistance,
		Logger:            logger.With().Str("component", "matcher").Logger(),
	})
	resolver := usecase.NewResolver(matcher, usecase.ResolverConfig{
		MinConfidence: cfg.Matching.MinConfidence,
		Policy:        policy,
		Logger:        logger.With().Str("component", "resolver").Logger(),
	})

	resolution, err := resolver.Resolve(ctx, products, feeds, existing)
	if err != nil {
		return cli.Exit(err, exitConfig)
	}

	if err := saveMatches(ctx, repo, resolution.Matches, c.Bool("dry-run"), logger); err != nil {
		return err
	}

	return usecase.WriteCoverageReport(c.App.Writer, resolution.Coverage, resolution.Warnings)
}

func saveMatches(ctx context.Context, repo domain.AffiliateMapRepository, matches domain.AffiliateMap, dryRun bool, logger zerolog.Logger) error {
	if dryRun {
		logger.Info().Int("entries", matches.Len()).Msg("dry run, affiliate map not saved")
		return nil
	}
	if err := repo.Save(ctx, matches); err != nil {
		return cli.Exit(fmt.Errorf("failed to save affiliate map: %w", err), exitSave)
	}
	logger.Info().Int("entries", matches.Len()).Msg("affiliate map saved")
	return nil
}

func fetchFeeds(ctx context.Context, cfg *config.Config, logger zerolog.Logger) []domain.Feed {
	client := feed.NewClient(feed.Config{
		Timeout:       cfg.Feed.Timeout,
		MaxAttempts:   cfg.Feed.MaxAttempts,
		BaseDelay:     cfg.Feed.BaseDelay,
		MaxDelay:      cfg.Feed.MaxDelay,
		RatePerSecond: cfg.Feed.RatePerSecond,
		UserAgent:     cfg.Feed.UserAgent,
	}, logger.With().Str("component", "feed").Logger())

	sources := make([]usecase.FeedSource, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		sources[i] = usecase.FeedSource{Name: f.Name, URL: f.URL, Merchant: f.Merchant, Priority: f.Priority}
	}

	svc := usecase.NewFeedService(client, usecase.FeedServiceConfig{
		TrustedPrefix: cfg.Feed.TrustedPrefix,
		Logger:        logger.With().Str("component", "feeds").Logger(),
	})
	return svc.FetchAll(ctx, sources)
}

func runNormalize(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("normalize needs at least one product name", exitConfig)
	}
	return writeNormalized(c.App.Writer, c.Args().Slice())
}

func writeNormalized(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%q -> %q\n  keys: %s\n", name, normalize.Name(name), strings.Join(normalize.ExpandKeys(name), ", ")); err != nil {
			return err
		}
	}
	return nil
}
