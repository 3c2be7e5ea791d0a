package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"newsrag/internal/domain"
)

// Config holds all configuration for the news chat backend.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	History    HistoryConfig    `yaml:"history"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// Ingestion of every feed can take minutes; give it its own budget.
	IngestTimeout time.Duration `yaml:"ingest_timeout"`
}

// StoreConfig selects the durable key-value backend.
type StoreConfig struct {
	Backend  string `yaml:"backend"` // "redis", "bolt", "memory"
	RedisURL string `yaml:"redis_url"`
	BoltPath string `yaml:"bolt_path"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	L1Size    int           `yaml:"l1_size"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float64       `yaml:"temperature"`
	TopK            int           `yaml:"top_k"`
	TopP            float64       `yaml:"top_p"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK         int           `yaml:"top_k"`
	Threshold    float64       `yaml:"threshold"`
	DedupJaccard float64       `yaml:"dedup_jaccard"` // 0 disables
	ArticleTTL   time.Duration `yaml:"article_ttl"`
	MetadataTTL  time.Duration `yaml:"metadata_ttl"`
}

// HistoryConfig holds chat history configuration.
type HistoryConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	MaxMessages int           `yaml:"max_messages"`
}

// IngestConfig holds feed ingestion configuration.
type IngestConfig struct {
	Sources      []domain.FeedSource `yaml:"sources"`
	Excludes     []string            `yaml:"excludes"`
	BatchSize    int                 `yaml:"batch_size"`
	BatchDelay   time.Duration       `yaml:"batch_delay"`
	FetchTimeout time.Duration       `yaml:"fetch_timeout"`
	MaxContent   int                 `yaml:"max_content"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":3001",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  90 * time.Second,
			IngestTimeout: 10 * time.Minute,
		},
		Store: StoreConfig{
			Backend:  "redis",
			RedisURL: "redis://localhost:6379",
			BoltPath: filepath.Join(".newsrag", "store.db"),
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.jina.ai/v1",
			Model:     "jina-embeddings-v2-base-en",
			APIKeyEnv: "JINA_EMBEDDING_API_KEY",
			Dimension: 768,
			Timeout:   30 * time.Second,
			CacheTTL:  24 * time.Hour,
			L1Size:    1000,
		},
		Generation: GenerationConfig{
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Model:           "gemini-pro",
			APIKeyEnv:       "GOOGLE_GEMINI_API_KEY",
			Timeout:         30 * time.Second,
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
		Retrieve: RetrieveConfig{
			TopK:         5,
			Threshold:    0.3,
			DedupJaccard: 0.8,
			ArticleTTL:   7 * 24 * time.Hour,
			MetadataTTL:  time.Hour,
		},
		History: HistoryConfig{
			TTL:         time.Hour,
			MaxMessages: 50,
		},
		Ingest: IngestConfig{
			Sources: []domain.FeedSource{
				{Name: "BBC News", URL: "http://feeds.bbci.co.uk/news/rss.xml"},
				{Name: "BBC Technology", URL: "http://feeds.bbci.co.uk/news/technology/rss.xml"},
				{Name: "BBC Business", URL: "http://feeds.bbci.co.uk/news/business/rss.xml"},
				{Name: "TechCrunch", URL: "https://techcrunch.com/feed/"},
				{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index/"},
			},
			BatchSize:    5,
			BatchDelay:   time.Second,
			FetchTimeout: 15 * time.Second,
			MaxContent:   1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for newsrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "newsrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".newsrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadDotEnv loads a .env file from dir into the process environment.
// Variables already set are left untouched. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides file settings with the environment variables the
// service has always honoured.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("NEWSRAG_STORE"); v != "" {
		c.Store.Backend = v
	}
	if d, ok := envSeconds("CHAT_HISTORY_TTL"); ok {
		c.History.TTL = d
	}
	if d, ok := envSeconds("EMBEDDINGS_CACHE_TTL"); ok {
		c.Embedding.CacheTTL = d
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("NEWSRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// EmbeddingAPIKey returns the embedding API key from the environment.
func (c *Config) EmbeddingAPIKey() string {
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// GenerationAPIKey returns the generation API key from the environment.
func (c *Config) GenerationAPIKey() string {
	return os.Getenv(c.Generation.APIKeyEnv)
}

func envSeconds(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir ensures the directory holding the bolt store exists.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(filepath.Dir(c.Store.BoltPath), 0755)
}
