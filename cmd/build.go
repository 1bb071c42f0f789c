package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/config"
	"github.com/sohogrid/menuscout/internal/enrich"
	"github.com/sohogrid/menuscout/internal/menu"
	"github.com/sohogrid/menuscout/internal/pipeline"
	"github.com/sohogrid/menuscout/internal/places"
	"github.com/sohogrid/menuscout/internal/progress"
	"github.com/sohogrid/menuscout/internal/retry"
	"github.com/sohogrid/menuscout/internal/storage/local"
)

func buildStore(cfg config.Config, logger *zap.Logger) (*local.Store, error) {
	return local.New(local.Config{DataDir: cfg.Storage.DataDir}, logger)
}

func buildPlacesClient(cfg config.Config, logger *zap.Logger) *places.Client {
	policy := retry.New(cfg.Places.MaxRetries, 500*time.Millisecond, 8*time.Second)
	return places.NewClient(places.Config{
		APIKey:     cfg.Places.APIKey,
		BaseURL:    cfg.Places.BaseURL,
		Timeout:    cfg.PlacesTimeout(),
		PageDelay:  cfg.PageDelay(),
		PhotoMaxPx: cfg.Places.PhotoMaxPx,
	}, policy, logger)
}

func buildMenuFinder(cfg config.Config, logger *zap.Logger) *menu.Finder {
	fetcher := menu.NewCollyFetcher(menu.FetcherConfig{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.CrawlTimeout(),
	})
	return menu.NewFinder(fetcher, menu.FinderConfig{
		MaxDepth:   cfg.Crawler.MaxDepth,
		Keywords:   cfg.Crawler.Keywords,
		Exclusions: cfg.Crawler.Exclusions,
	}, logger)
}

func buildPipeline(
	cfg config.Config,
	store *local.Store,
	emitter progress.Emitter,
	clock pipeline.Clock,
	logger *zap.Logger,
) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.Config{
			SearchQuery:         cfg.Scan.SearchQuery,
			SubScanRadiusMeters: cfg.Scan.SubScanRadiusMeters,
			EntityDelay:         cfg.EntityDelay(),
			SaturationThreshold: cfg.Scan.SaturationThreshold,
			HistorySize:         cfg.Scan.HistorySize,
		},
		buildPlacesClient(cfg, logger),
		buildMenuFinder(cfg, logger),
		enrich.NewDeriver(),
		store,
		emitter,
		clock,
		logger,
	)
}
