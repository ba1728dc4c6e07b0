package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Match     MatchConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL   string // embedding server base URL, defaults to http://localhost:8000
	Model string // model name, informational plus dim lookup (default clip-vit-base-patch32)
	Dim   int    // embedding dimensionality; 0 means "derive from model"
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty runs the service in standalone mode
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RedisConfig struct {
	URL string // Redis connection URL for the embedding cache (optional)
}

// MatchConfig is the single source of truth for the pool-scan policy.
// MinScore is the minimum acceptance score a candidate must strictly exceed;
// Window bounds how old a pending candidate may be and still be eligible.
type MatchConfig struct {
	MinScore float64
	Window   time.Duration
}

type ModelsConfig struct {
	Dims map[string]int `yaml:"models"`
}

const (
	DefaultModel    = "clip-vit-base-patch32"
	DefaultMinScore = 0.9
	DefaultWindow   = 5 * time.Minute
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a Go duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	cfg := &Config{
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("EMBEDDING_URL"),
			Model: os.Getenv("EMBEDDING_MODEL"),
			Dim:   envInt("EMBEDDING_DIM", 0),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Match: MatchConfig{
			MinScore: envFloat("MATCH_MIN_SCORE", DefaultMinScore),
			Window:   envDuration("MATCH_WINDOW", DefaultWindow),
		},
		Models: models,
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultModel
	}
	if cfg.Embedding.Dim == 0 {
		cfg.Embedding.Dim = cfg.ModelDim(cfg.Embedding.Model)
	}

	return cfg
}

// ModelDim returns the embedding dimensionality for a known model name.
// Unknown models fall back to the default model's dimensionality.
func (c *Config) ModelDim(modelName string) int {
	if dim, ok := c.Models.Dims[modelName]; ok {
		return dim
	}
	return c.Models.Dims[DefaultModel]
}
