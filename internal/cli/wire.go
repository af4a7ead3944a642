package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/chronicle-kg/chronicle/internal/cache"
	"github.com/chronicle-kg/chronicle/internal/consolidate"
	"github.com/chronicle-kg/chronicle/internal/credibility"
	"github.com/chronicle-kg/chronicle/internal/extract"
	"github.com/chronicle-kg/chronicle/internal/graph"
	"github.com/chronicle-kg/chronicle/internal/model"
	"github.com/chronicle-kg/chronicle/internal/pipeline"
	"github.com/chronicle-kg/chronicle/internal/similarity"
	"github.com/chronicle-kg/chronicle/internal/worker"
)

// loadConfig merges defaults, the config file, CHRONICLE_* environment
// variables, and flags. Secrets come only from the environment, never the
// config file.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	cfg.Extraction.APIKey = apiKey
	cfg.Similarity.APIKey = apiKey

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		cfg.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Graph.Password = pass
	}

	return cfg, nil
}

// newStore opens the configured graph backend
func newStore(ctx context.Context, cfg *model.Config) (graph.Store, error) {
	matcher := similarity.NewNormalizedMatcher()

	switch cfg.Graph.Backend {
	case "memory":
		return graph.NewMemoryStore(matcher), nil
	case "neo4j":
		store, err := graph.NewNeo4jStore(cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database, matcher)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q (want neo4j or memory)", cfg.Graph.Backend)
	}
}

// newResultCache builds the similarity result cache, or nil when caching
// is disabled
func newResultCache(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir != "" {
		return cache.NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
	}
	return cache.NewMemoryCache(cfg.TTL, 10*time.Minute)
}

// newExtractor selects the extraction provider
func newExtractor(cfg *model.Config) (extract.Extractor, error) {
	switch cfg.Extraction.Provider {
	case "prose":
		return extract.NewProseExtractor(cfg.Extraction), nil
	case "openai":
		limiter := worker.NewLimiter(cfg.Extraction.RequestsPerSecond, cfg.Extraction.Burst)
		return extract.NewLLMExtractor(cfg.Extraction, limiter)
	default:
		return nil, fmt.Errorf("unknown extraction provider %q (want openai or prose)", cfg.Extraction.Provider)
	}
}

// newOrchestrator wires the full pipeline from configuration. The caller
// owns the returned store and must Close it.
func newOrchestrator(ctx context.Context, cfg *model.Config) (*pipeline.Orchestrator, graph.Store, error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	limiter := worker.NewLimiter(cfg.Similarity.RequestsPerSecond, cfg.Similarity.Burst)
	nli, err := similarity.NewOpenAIService(cfg.Similarity, newResultCache(cfg.Cache), cfg.Cache.TTL, limiter)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	engine := consolidate.NewEngine(store, nli, cfg.Consolidation)
	scorer := credibility.NewScorer(cfg.Credibility)
	reporter := pipeline.NewLogReporter(logrus.StandardLogger())

	return pipeline.NewOrchestrator(extractor, engine, scorer, store, reporter, cfg.Workers), store, nil
}
