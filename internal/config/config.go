package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the lexivec API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Engine    EngineConfig    `yaml:"engine"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig holds document store settings. An empty path runs the
// store in memory.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds embedding provider settings. An empty api_key
// disables the vector side of the engine.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// EngineConfig holds index and search tuning.
type EngineConfig struct {
	VectorWeight  float64            `yaml:"vector_weight"`
	TextWeight    float64            `yaml:"text_weight"`
	MinScore      float64            `yaml:"min_score"`
	FieldWeights  map[string]float64 `yaml:"field_weights"`
	FuzzyDistance int                `yaml:"fuzzy_distance"`
	BM25K1        float64            `yaml:"bm25_k1"`
	BM25B         float64            `yaml:"bm25_b"`
	SearchTimeout int                `yaml:"search_timeout_sec"`
	PoolSize      int                `yaml:"pool_size"`
	MaxBatchSize  int                `yaml:"max_batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Engine.VectorWeight <= 0 && c.Engine.TextWeight <= 0 {
		c.Engine.VectorWeight = 0.6
		c.Engine.TextWeight = 0.4
	}
	if c.Engine.MinScore <= 0 {
		c.Engine.MinScore = 0.1
	}
	if len(c.Engine.FieldWeights) == 0 {
		c.Engine.FieldWeights = map[string]float64{
			"title":   1.5,
			"content": 1.0,
			"tags":    0.5,
		}
	}
	if c.Engine.FuzzyDistance <= 0 {
		c.Engine.FuzzyDistance = 2
	}
	if c.Engine.BM25K1 <= 0 {
		c.Engine.BM25K1 = 1.2
	}
	if c.Engine.BM25B <= 0 {
		c.Engine.BM25B = 0.75
	}
	if c.Engine.SearchTimeout <= 0 {
		c.Engine.SearchTimeout = 5
	}
	if c.Engine.PoolSize <= 0 {
		c.Engine.PoolSize = 32
	}
	if c.Engine.MaxBatchSize <= 0 {
		c.Engine.MaxBatchSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Engine.VectorWeight < 0 || c.Engine.TextWeight < 0 {
		return fmt.Errorf("engine weights must not be negative")
	}
	if c.Engine.VectorWeight+c.Engine.TextWeight <= 0 {
		return fmt.Errorf("engine.vector_weight and engine.text_weight must not both be zero")
	}
	for field, w := range c.Engine.FieldWeights {
		if w <= 0 {
			return fmt.Errorf("engine.field_weights.%s must be positive, got %v", field, w)
		}
	}
	if c.Engine.BM25B > 1 {
		return fmt.Errorf("engine.bm25_b must be in [0, 1], got %v", c.Engine.BM25B)
	}
	if c.Embedding.APIKey != "" && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive when a provider is configured")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
