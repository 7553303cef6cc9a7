// Package config loads and validates the Civica configuration.
// Precedence: built-in defaults < YAML config file < CIVICA_* env vars.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

// CurrentVersion is the config schema version.
const CurrentVersion = 1

// Config is the complete Civica configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Paths      PathsConfig      `yaml:"paths"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig configures on-disk data locations.
type PathsConfig struct {
	// DataDir is the root directory for all persistent state
	// (sqlite database, lexical index, cache store).
	DataDir string `yaml:"data_dir"`
}

// SearchConfig configures hybrid retrieval and fusion.
type SearchConfig struct {
	// KeywordWeight multiplies keyword-match scores during fusion.
	KeywordWeight float64 `yaml:"keyword_weight"`

	// SemanticWeight multiplies vector-similarity scores during fusion.
	SemanticWeight float64 `yaml:"semantic_weight"`

	// LexicalWeight multiplies lexical-rank scores during fusion.
	LexicalWeight float64 `yaml:"lexical_weight"`

	// StrategyBonus is added once per contributing strategy before averaging,
	// rewarding chunks found by independent strategies.
	StrategyBonus float64 `yaml:"strategy_bonus"`

	// MaxResults is the number of fused results kept for context assembly.
	MaxResults int `yaml:"max_results"`

	// DistanceThreshold is the maximum cosine distance accepted by the
	// semantic matcher (results at or beyond it are discarded).
	DistanceThreshold float64 `yaml:"distance_threshold"`

	// LexicalNormScale multiplies the raw lexical rank before it is
	// squashed into [0,1). The squash is rank/(rank+1); the scale is the
	// tunable calibrating the external ranker against the other strategies.
	LexicalNormScale float64 `yaml:"lexical_norm_scale"`

	// ContextBudget caps the assembled context string, in characters.
	ContextBudget int `yaml:"context_budget"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// CacheSize is the LRU query-embedding cache capacity.
	CacheSize int `yaml:"cache_size"`
}

// GenerationConfig configures the answer generation provider.
type GenerationConfig struct {
	Host        string  `yaml:"host"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// CacheConfig configures the semantic response cache.
type CacheConfig struct {
	// TTL is the lifetime of cached answers.
	TTL time.Duration `yaml:"ttl"`

	// SimilarityThreshold is the minimum cosine similarity for an
	// approximate (embedding-based) cache hit.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// IngestConfig configures batch document ingestion.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	Workers      int `yaml:"workers"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MaxCacheTTL is the upper bound on cache entry lifetime.
const MaxCacheTTL = 7 * 24 * time.Hour

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Paths: PathsConfig{
			DataDir: defaultDataDir(),
		},
		Search: SearchConfig{
			KeywordWeight:     2.0,
			SemanticWeight:    1.0,
			LexicalWeight:     1.5,
			StrategyBonus:     0.1,
			MaxResults:        10,
			DistanceThreshold: 0.8,
			LexicalNormScale:  1.0,
			ContextBudget:     3000,
		},
		Embeddings: EmbeddingsConfig{
			Host:       "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BatchSize:  32,
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Host:        "http://localhost:11434",
			Model:       "llama3.1",
			Temperature: 0.1,
			MaxTokens:   512,
		},
		Cache: CacheConfig{
			TTL:                 MaxCacheTTL,
			SimilarityThreshold: 0.85,
		},
		Ingest: IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 100,
			Workers:      4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "civica")
	}
	return filepath.Join(home, ".civica")
}

// Load reads configuration from path (if non-empty), layering it over
// defaults, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, cerrors.ConfigError(fmt.Sprintf("read config %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, cerrors.ConfigError(fmt.Sprintf("parse config %s", path), err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies CIVICA_* environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("CIVICA_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("CIVICA_OLLAMA_HOST"); v != "" {
		c.Embeddings.Host = v
		c.Generation.Host = v
	}
	if v := os.Getenv("CIVICA_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CIVICA_GEN_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("CIVICA_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("CIVICA_CACHE_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Cache.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("CIVICA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return cerrors.ConfigError("paths.data_dir must be set", nil)
	}
	if c.Search.KeywordWeight < 0 || c.Search.SemanticWeight < 0 || c.Search.LexicalWeight < 0 {
		return cerrors.ConfigError("search weights must be non-negative", nil)
	}
	if c.Search.MaxResults <= 0 {
		return cerrors.ConfigError("search.max_results must be positive", nil)
	}
	if c.Search.DistanceThreshold <= 0 || c.Search.DistanceThreshold > 2 {
		return cerrors.ConfigError("search.distance_threshold must be in (0,2]", nil)
	}
	if c.Search.ContextBudget <= 0 {
		return cerrors.ConfigError("search.context_budget must be positive", nil)
	}
	if c.Embeddings.Dimensions <= 0 {
		return cerrors.ConfigError("embeddings.dimensions must be positive", nil)
	}
	if c.Cache.TTL <= 0 || c.Cache.TTL > MaxCacheTTL {
		return cerrors.ConfigError(fmt.Sprintf("cache.ttl must be in (0, %s]", MaxCacheTTL), nil)
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		return cerrors.ConfigError("cache.similarity_threshold must be in (0,1]", nil)
	}
	if c.Ingest.ChunkSize <= 0 || c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return cerrors.ConfigError("ingest chunk_overlap must be smaller than chunk_size", nil)
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 1
	}
	return nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return cerrors.ConfigError("marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.ConfigError("create config directory", err)
	}
	return os.WriteFile(path, data, 0o644)
}
