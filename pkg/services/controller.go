package services

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/kerbaras/otakulog/pkg/config"
	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/sources"
)

// Controller owns the whole pipeline: store, resolver, ingestor, the three
// enrichment queues and their pipelines. Everything is constructed once at
// process start and passed by reference; there are no ambient singletons.
type Controller struct {
	Store    *data.Store
	Resolver *EntityResolver
	Ingestor *Ingestor

	AnimeQueue *Queue
	MangaQueue *Queue
	StatsQueue *Queue
}

// NewController wires the pipeline against the given database and catalog
// clients. Queues are not running until Start is called.
func NewController(db *sql.DB, cfg config.Config, episodes sources.EpisodeSource, catalog sources.CatalogSource, log *zap.SugaredLogger) *Controller {
	store := data.NewStore(db)
	ledger := NewLedger(store, log)
	retry := RetryPolicyFromConfig(cfg.Retry)

	animePipeline := NewAnimePipeline(store, episodes, log)
	mangaPipeline := NewMangaPipeline(store, catalog, log)

	animeQueue := NewQueue("anime:episodes", cfg.AnimeQueue, retry, ledger, animePipeline.HandleEpisodes, log)
	mangaQueue := NewQueue("manga:search", cfg.MangaQueue, retry, ledger, mangaPipeline.HandleSearch, log)
	statsQueue := NewQueue("manga:stats", cfg.StatsQueue, retry, ledger, mangaPipeline.HandleStats, log)
	mangaPipeline.SetStatsQueue(statsQueue)

	resolver := NewEntityResolver(store)
	ingestor := NewIngestor(store, resolver, animeQueue, mangaQueue, log)

	return &Controller{
		Store:      store,
		Resolver:   resolver,
		Ingestor:   ingestor,
		AnimeQueue: animeQueue,
		MangaQueue: mangaQueue,
		StatsQueue: statsQueue,
	}
}

// Start launches all worker loops; they stop when ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	c.AnimeQueue.Start(ctx)
	c.MangaQueue.Start(ctx)
	c.StatsQueue.Start(ctx)
}

// Drain waits for every enqueued job to settle. Search is drained before
// stats so cascaded jobs are counted before we wait on them.
func (c *Controller) Drain() {
	c.AnimeQueue.Drain()
	c.MangaQueue.Drain()
	c.StatsQueue.Drain()
}
