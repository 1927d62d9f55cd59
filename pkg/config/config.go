// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Corpus, Analyzer, Indexer, Search, Evaluation, Redis, Postgres,
// Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Benchmark  BenchmarkConfig  `yaml:"benchmark"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Search     SearchConfig     `yaml:"search"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Malformed record policies.
const (
	OnMalformedSkip  = "skip"
	OnMalformedAbort = "abort"
)

// CorpusConfig locates the tab-separated title/body corpus.
type CorpusConfig struct {
	Path        string `envconfig:"IREVAL_CORPUS_PATH" yaml:"path"`
	OnMalformed string `envconfig:"IREVAL_CORPUS_ON_MALFORMED" yaml:"onMalformed"`
}

// BenchmarkConfig locates the query/relevant-ids benchmark file.
type BenchmarkConfig struct {
	Path        string `envconfig:"IREVAL_BENCHMARK_PATH" yaml:"path"`
	OnMalformed string `envconfig:"IREVAL_BENCHMARK_ON_MALFORMED" yaml:"onMalformed"`
}

// AnalyzerConfig controls text normalisation. Both stop-word removal and
// stemming are off by default.
type AnalyzerConfig struct {
	StopWords      bool `envconfig:"IREVAL_ANALYZER_STOP_WORDS" yaml:"stopWords"`
	Stemming       bool `envconfig:"IREVAL_ANALYZER_STEMMING" yaml:"stemming"`
	MinTokenLength int  `envconfig:"IREVAL_ANALYZER_MIN_TOKEN_LENGTH" yaml:"minTokenLength"`
}

// IndexerConfig controls where segments are written and how the stored
// document block is compressed.
type IndexerConfig struct {
	DataDir     string `envconfig:"IREVAL_INDEXER_DATA_DIR" yaml:"dataDir"`
	Compression string `envconfig:"IREVAL_INDEXER_COMPRESSION" yaml:"compression"`
}

// SearchConfig controls which fields are queried and how results are scored.
type SearchConfig struct {
	Fields      []string `envconfig:"IREVAL_SEARCH_FIELDS" yaml:"fields"`
	ResultLimit int      `envconfig:"IREVAL_SEARCH_RESULT_LIMIT" yaml:"resultLimit"`
	Scoring     string   `envconfig:"IREVAL_SEARCH_SCORING" yaml:"scoring"`
}

// EvaluationConfig controls the evaluation harness.
type EvaluationConfig struct {
	PrecisionK  int `envconfig:"IREVAL_EVALUATION_PRECISION_K" yaml:"precisionK"`
	Parallelism int `envconfig:"IREVAL_EVALUATION_PARALLELISM" yaml:"parallelism"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `envconfig:"IREVAL_REDIS_ENABLED" yaml:"enabled"`
	Addr     string        `envconfig:"IREVAL_REDIS_ADDR" yaml:"addr"`
	Password string        `envconfig:"IREVAL_REDIS_PASSWORD" yaml:"password"`
	DB       int           `envconfig:"IREVAL_REDIS_DB" yaml:"db"`
	PoolSize int           `envconfig:"IREVAL_REDIS_POOL_SIZE" yaml:"poolSize"`
	CacheTTL time.Duration `envconfig:"IREVAL_REDIS_CACHE_TTL" yaml:"cacheTTL"`
}

// PostgresConfig holds PostgreSQL connection parameters for run history.
type PostgresConfig struct {
	Enabled         bool          `envconfig:"IREVAL_POSTGRES_ENABLED" yaml:"enabled"`
	Host            string        `envconfig:"IREVAL_POSTGRES_HOST" yaml:"host"`
	Port            int           `envconfig:"IREVAL_POSTGRES_PORT" yaml:"port"`
	Database        string        `envconfig:"IREVAL_POSTGRES_DATABASE" yaml:"database"`
	User            string        `envconfig:"IREVAL_POSTGRES_USER" yaml:"user"`
	Password        string        `envconfig:"IREVAL_POSTGRES_PASSWORD" yaml:"password"`
	SSLMode         string        `envconfig:"IREVAL_POSTGRES_SSLMODE" yaml:"sslMode"`
	MaxOpenConns    int           `envconfig:"IREVAL_POSTGRES_MAX_OPEN_CONNS" yaml:"maxOpenConns"`
	MaxIdleConns    int           `envconfig:"IREVAL_POSTGRES_MAX_IDLE_CONNS" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `envconfig:"IREVAL_POSTGRES_CONN_MAX_LIFETIME" yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for report publishing.
type KafkaConfig struct {
	Enabled     bool     `envconfig:"IREVAL_KAFKA_ENABLED" yaml:"enabled"`
	Brokers     []string `envconfig:"IREVAL_KAFKA_BROKERS" yaml:"brokers"`
	ReportTopic string   `envconfig:"IREVAL_KAFKA_REPORT_TOPIC" yaml:"reportTopic"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `envconfig:"IREVAL_LOGGING_LEVEL" yaml:"level"`
	Format string `envconfig:"IREVAL_LOGGING_FORMAT" yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `envconfig:"IREVAL_METRICS_ENABLED" yaml:"enabled"`
	Port    int  `envconfig:"IREVAL_METRICS_PORT" yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrIOFailure, "reading config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "parsing config file %s: %v", path, err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "processing env config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks enumerated values and numeric ranges.
func (c *Config) Validate() error {
	for _, policy := range []string{c.Corpus.OnMalformed, c.Benchmark.OnMalformed} {
		if policy != OnMalformedSkip && policy != OnMalformedAbort {
			return apperrors.Newf(apperrors.ErrInvalidInput, "onMalformed must be %q or %q, got %q", OnMalformedSkip, OnMalformedAbort, policy)
		}
	}
	switch c.Indexer.Compression {
	case "zstd", "lz4", "none":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "unknown compression %q", c.Indexer.Compression)
	}
	switch c.Search.Scoring {
	case "bm25", "tf":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "unknown scoring model %q", c.Search.Scoring)
	}
	if len(c.Search.Fields) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "at least one search field is required")
	}
	seen := make(map[string]struct{}, len(c.Search.Fields))
	for _, field := range c.Search.Fields {
		if field == "" {
			return apperrors.New(apperrors.ErrInvalidInput, "search field names must not be empty")
		}
		if _, dup := seen[field]; dup {
			return apperrors.Newf(apperrors.ErrInvalidInput, "search field %q is listed more than once", field)
		}
		seen[field] = struct{}{}
	}
	if c.Search.ResultLimit < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "resultLimit must not be negative, got %d", c.Search.ResultLimit)
	}
	if c.Evaluation.PrecisionK < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "precisionK must not be negative, got %d", c.Evaluation.PrecisionK)
	}
	if c.Evaluation.Parallelism < 1 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "parallelism must be at least 1, got %d", c.Evaluation.Parallelism)
	}
	if c.Analyzer.MinTokenLength < 1 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "minTokenLength must be at least 1, got %d", c.Analyzer.MinTokenLength)
	}
	return nil
}

// defaultConfig returns a Config that evaluates datasets/ in the working
// directory with every external service disabled.
func defaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:        "datasets/movies.txt",
			OnMalformed: OnMalformedSkip,
		},
		Benchmark: BenchmarkConfig{
			Path:        "datasets/movies-benchmark.txt",
			OnMalformed: OnMalformedSkip,
		},
		Analyzer: AnalyzerConfig{
			MinTokenLength: 1,
		},
		Indexer: IndexerConfig{
			DataDir:     "data",
			Compression: "zstd",
		},
		Search: SearchConfig{
			Fields:      []string{"title", "body", "fulltext"},
			ResultLimit: 100,
			Scoring:     "bm25",
		},
		Evaluation: EvaluationConfig{
			PrecisionK:  3,
			Parallelism: 1,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ireval",
			User:            "ireval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"localhost:9092"},
			ReportTopic: "evaluation-reports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}
