package configfx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "OAS_INDEX_"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSQLVec = "sqlvec"

	ProviderAPI    = "api"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	DefaultDataDir        = ".oas-index"
	DefaultEmbedURL       = "http://localhost:8000/embed"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultOllamaModel    = "nomic-embed-text"
	DefaultBatchSize      = 8
	DefaultDimension      = 384
	DefaultLockTimeout    = 10 * time.Second
	DefaultEmbedTimeout   = 30 * time.Second
	DefaultQueryCacheSize = 256
	DefaultQueryCacheTTL  = 10 * time.Minute
)

// Config holds the application configuration
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	DBPath          string        `yaml:"db_path"`
	Backend         string        `yaml:"backend"`
	CacheDir        string        `yaml:"cache_dir"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	EmbedProvider   string        `yaml:"embed_provider"`
	EmbedURL        string        `yaml:"embed_url"`
	EmbedModel      string        `yaml:"embed_model"`
	EmbedBatchSize  int           `yaml:"embed_batch_size"`
	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
	VectorDimension int           `yaml:"vector_dimension"` // local embedder only
	QueryCacheSize  int           `yaml:"query_cache_size"`
	QueryCacheTTL   time.Duration `yaml:"query_cache_ttl"`
	Granular        bool          `yaml:"granular"`
	Collection      string        `yaml:"collection"` // empty routes chunks by origin
	LogLevel        string        `yaml:"log_level"`
}

// Params represents the parameters needed to create configuration.
// Non-empty values come from command flags and win over every other source.
type Params struct {
	fx.In

	ConfigPath    string `name:"configPath"    optional:"true"`
	DataDir       string `name:"dataDir"       optional:"true"`
	DBPath        string `name:"dbPath"        optional:"true"`
	Backend       string `name:"backend"       optional:"true"`
	CacheDir      string `name:"cacheDir"      optional:"true"`
	EmbedProvider string `name:"embedProvider" optional:"true"`
	EmbedURL      string `name:"embedURL"      optional:"true"`
	EmbedModel    string `name:"embedModel"    optional:"true"`
	Collection    string `name:"collection"    optional:"true"`
	LogLevel      string `name:"logLevel"      optional:"true"`
	Granular      bool   `name:"granular"      optional:"true"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:         DefaultDataDir,
		Backend:         BackendSQLite,
		LockTimeout:     DefaultLockTimeout,
		EmbedProvider:   ProviderLocal,
		EmbedBatchSize:  DefaultBatchSize,
		EmbedTimeout:    DefaultEmbedTimeout,
		VectorDimension: DefaultDimension,
		QueryCacheSize:  DefaultQueryCacheSize,
		QueryCacheTTL:   DefaultQueryCacheTTL,
		LogLevel:        "info",
	}
}

// NewConfig layers defaults, the YAML file, OAS_INDEX_* environment
// variables and flag values, in increasing precedence.
func NewConfig(params Params) (*Config, error) {
	config := Defaults()

	path := params.ConfigPath
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFile(&config, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&config); err != nil {
		return nil, err
	}
	applyParams(&config, params)

	if config.DBPath == "" {
		config.DBPath = filepath.Join(config.DataDir, "index.db")
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(config.DataDir, "cache")
	}
	if config.EmbedURL == "" {
		switch config.EmbedProvider {
		case ProviderAPI:
			config.EmbedURL = DefaultEmbedURL
		case ProviderOllama:
			config.EmbedURL = DefaultOllamaURL
		}
	}
	if config.EmbedModel == "" && config.EmbedProvider == ProviderOllama {
		config.EmbedModel = DefaultOllamaModel
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite, BackendSQLVec:
	default:
		return fmt.Errorf("unsupported store backend %q (supported: memory, sqlite, sqlvec)", c.Backend)
	}
	switch c.EmbedProvider {
	case ProviderAPI, ProviderOllama, ProviderLocal:
	default:
		return fmt.Errorf("unsupported embed provider %q (supported: api, ollama, local)", c.EmbedProvider)
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("embed batch size must be positive, got %d", c.EmbedBatchSize)
	}
	if c.EmbedProvider == ProviderLocal && c.VectorDimension < 1 {
		return fmt.Errorf("vector dimension must be positive, got %d", c.VectorDimension)
	}
	return nil
}

func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"DATA_DIR":       &c.DataDir,
		"DB_PATH":        &c.DBPath,
		"BACKEND":        &c.Backend,
		"CACHE_DIR":      &c.CacheDir,
		"EMBED_PROVIDER": &c.EmbedProvider,
		"EMBED_URL":      &c.EmbedURL,
		"EMBED_MODEL":    &c.EmbedModel,
		"COLLECTION":     &c.Collection,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"EMBED_BATCH_SIZE": &c.EmbedBatchSize,
		"VECTOR_DIMENSION": &c.VectorDimension,
		"QUERY_CACHE_SIZE": &c.QueryCacheSize,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"LOCK_TIMEOUT":    &c.LockTimeout,
		"EMBED_TIMEOUT":   &c.EmbedTimeout,
		"QUERY_CACHE_TTL": &c.QueryCacheTTL,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "GRANULAR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sGRANULAR: %w", EnvPrefix, err)
		}
		c.Granular = b
	}
	return nil
}

func applyParams(c *Config, p Params) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DataDir, p.DataDir)
	set(&c.DBPath, p.DBPath)
	set(&c.Backend, p.Backend)
	set(&c.CacheDir, p.CacheDir)
	set(&c.EmbedProvider, p.EmbedProvider)
	set(&c.EmbedURL, p.EmbedURL)
	set(&c.EmbedModel, p.EmbedModel)
	set(&c.Collection, p.Collection)
	set(&c.LogLevel, p.LogLevel)
	if p.Granular {
		c.Granular = true
	}
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
