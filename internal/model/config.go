package model

import "time"

// Config is the full application configuration. Values come from the
// config file, CHRONICLE_* environment variables, and CLI flags, merged
// by viper with these defaults at the bottom of the stack.
type Config struct {
	Graph         GraphConfig         `yaml:"graph" mapstructure:"graph"`
	Extraction    ExtractionConfig    `yaml:"extraction" mapstructure:"extraction"`
	Similarity    SimilarityConfig    `yaml:"similarity" mapstructure:"similarity"`
	Consolidation ConsolidationConfig `yaml:"consolidation" mapstructure:"consolidation"`
	Credibility   CredibilityConfig   `yaml:"credibility" mapstructure:"credibility"`
	Workers       WorkerConfig        `yaml:"workers" mapstructure:"workers"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
}

// GraphConfig selects and configures the graph store backend
type GraphConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"` // neo4j or memory
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// ExtractionConfig configures the extraction service client
type ExtractionConfig struct {
	Provider            string  `yaml:"provider" mapstructure:"provider"` // openai or prose
	Model               string  `yaml:"model" mapstructure:"model"`
	APIKey              string  `yaml:"-" mapstructure:"-"`
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSeconds      int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxChars            int     `yaml:"max_chars" mapstructure:"max_chars"`
	MinEntityConfidence float64 `yaml:"min_entity_confidence" mapstructure:"min_entity_confidence"`
	MinClaimConfidence  float64 `yaml:"min_claim_confidence" mapstructure:"min_claim_confidence"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst               int     `yaml:"burst" mapstructure:"burst"`
}

// SimilarityConfig configures the similarity / entailment service client
type SimilarityConfig struct {
	Model             string  `yaml:"model" mapstructure:"model"`
	EmbeddingModel    string  `yaml:"embedding_model" mapstructure:"embedding_model"`
	APIKey            string  `yaml:"-" mapstructure:"-"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ConsolidationConfig holds the thresholds the consolidation engine uses
type ConsolidationConfig struct {
	MergeThreshold         float64 `yaml:"merge_threshold" mapstructure:"merge_threshold"`
	ContradictionThreshold float64 `yaml:"contradiction_threshold" mapstructure:"contradiction_threshold"`
	ClaimWindowDays        int     `yaml:"claim_window_days" mapstructure:"claim_window_days"`
	MaxComparisons         int     `yaml:"max_comparisons" mapstructure:"max_comparisons"`
}

// ClaimWindow returns the recency window used when scanning prior claims
func (c ConsolidationConfig) ClaimWindow() time.Duration {
	return time.Duration(c.ClaimWindowDays) * 24 * time.Hour
}

// CredibilityConfig holds the credibility scoring weights and constants
type CredibilityConfig struct {
	AccuracyWeight        float64 `yaml:"accuracy_weight" mapstructure:"accuracy_weight"`
	ConsistencyWeight     float64 `yaml:"consistency_weight" mapstructure:"consistency_weight"`
	BiasWeight            float64 `yaml:"bias_weight" mapstructure:"bias_weight"`
	ReliabilityWeight     float64 `yaml:"reliability_weight" mapstructure:"reliability_weight"`
	ReliabilitySaturation int     `yaml:"reliability_saturation" mapstructure:"reliability_saturation"`
}

// WorkerConfig bounds pipeline concurrency
type WorkerConfig struct {
	Concurrency  int           `yaml:"concurrency" mapstructure:"concurrency"`
	StageTimeout time.Duration `yaml:"stage_timeout" mapstructure:"stage_timeout"`
}

// CacheConfig configures the similarity result cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"` // empty = memory only
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			Backend:  "neo4j",
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Extraction: ExtractionConfig{
			Provider:            "openai",
			Model:               "gpt-4o-mini",
			TimeoutSeconds:      60,
			MaxChars:            6000,
			MinEntityConfidence: 0.7,
			MinClaimConfidence:  0.6,
			RequestsPerSecond:   2,
			Burst:               4,
		},
		Similarity: SimilarityConfig{
			Model:             "gpt-4o-mini",
			EmbeddingModel:    "text-embedding-3-small",
			TimeoutSeconds:    30,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Consolidation: ConsolidationConfig{
			MergeThreshold:         0.85,
			ContradictionThreshold: 0.75,
			ClaimWindowDays:        30,
			MaxComparisons:         50,
		},
		Credibility: CredibilityConfig{
			AccuracyWeight:        0.40,
			ConsistencyWeight:     0.25,
			BiasWeight:            0.20,
			ReliabilityWeight:     0.15,
			ReliabilitySaturation: 50,
		},
		Workers: WorkerConfig{
			Concurrency:  4,
			StageTimeout: 90 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
	}
}
