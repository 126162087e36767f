package app

import (
	"context"
	"fmt"

	"gnaoua.dev/catalog/internal/candidate"
	"gnaoua.dev/catalog/internal/config"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/merge"
	"gnaoua.dev/catalog/internal/orchestrator"
	"gnaoua.dev/catalog/internal/searchindex"
	"gnaoua.dev/catalog/internal/source"
)

// buildSearchSynchronizer wires a searchindex.Synchronizer from the process
// config: it is both the merge writer's and the editorial handler's
// post-commit search projector, and the backing service for reindex/serve.
func buildSearchSynchronizer(pool *db.Pool, cfg *config.Config) (*searchindex.Synchronizer, error) {
	client, err := searchindex.NewClient(searchindex.ClientConfig{
		Host:              cfg.SearchHost,
		Port:              cfg.SearchPort,
		Protocol:          cfg.SearchProtocol,
		APIKey:            cfg.SearchAPIKey,
		ConnectionTimeout: cfg.SearchConnectionTimeout,
		CollectionName:    cfg.SearchCollectionName,
	})
	if err != nil {
		return nil, fmt.Errorf("build search client: %w", err)
	}
	return searchindex.NewSynchronizer(client, pool, cfg.SearchCollectionName), nil
}

// buildOrchestrator wires a full orchestrator.Orchestrator against every
// active source loaded from catalog.sources, with the search index
// synchronizer as the merge writer's post-commit projector.
func buildOrchestrator(ctx context.Context, pool *db.Pool, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	registry, err := loadRegistry(ctx, pool, cfg)
	if err != nil {
		return nil, err
	}
	return orchestratorFromRegistry(pool, cfg, registry)
}

func orchestratorFromRegistry(pool *db.Pool, cfg *config.Config, registry *source.Registry) (*orchestrator.Orchestrator, error) {
	synchronizer, err := buildSearchSynchronizer(pool, cfg)
	if err != nil {
		return nil, err
	}

	writer := merge.NewWriter(pool)
	writer.SetProjector(synchronizer)

	candidates := candidate.NewStore(pool)
	cities := orchestrator.NewDBCityLister(pool)

	return orchestrator.New(pool, registry, candidates, writer, cities, cfg.MaxFetchConcurrency), nil
}
