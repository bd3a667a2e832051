package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by the backend switches.
const (
	NLPAzure   = "azure"
	NLPGoogle  = "google"
	NLPLexicon = "lexicon"

	EmbedderOpenAI = "openai"
	EmbedderGenAI  = "genai"
	EmbedderOllama = "ollama"

	IndexMemory   = "memory"
	IndexPGVector = "pgvector"

	GeneratorOllama = "ollama"
	GeneratorOpenAI = "openai"
	GeneratorClaude = "claude"
	GeneratorGemini = "gemini"
	GeneratorGroq   = "groq"
	GeneratorCohere = "cohere"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// EnvPrefix is prepended to every environment override, e.g. TRIAGE_SERVER_PORT.
const EnvPrefix = "TRIAGE"

// Config is the full runtime configuration of the triage service.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	NLP       NLPConfig       `mapstructure:"nlp"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Store     StoreConfig     `mapstructure:"store"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NLPConfig selects the text analytics backend.
type NLPConfig struct {
	Provider string `mapstructure:"provider"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Language string `mapstructure:"language"`
}

type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Dimension int    `mapstructure:"dimension"`
}

type IndexConfig struct {
	Provider string `mapstructure:"provider"`
	Table    string `mapstructure:"table"`
	Type     string `mapstructure:"type"`
}

// GeneratorConfig selects the language model used to draft replies.
type GeneratorConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
}

type TokenizerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// PipelineConfig holds the thresholds of the triage pipeline.
type PipelineConfig struct {
	TopK                int           `mapstructure:"top_k"`
	MinSimilarity       float64       `mapstructure:"min_similarity"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	MinDocuments        int           `mapstructure:"min_documents"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	MaxConcurrency      int           `mapstructure:"max_concurrency"`
}

type StoreConfig struct {
	Provider string `mapstructure:"provider"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Environment string  `mapstructure:"environment"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// setDefaults registers every key so environment overrides resolve even when
// no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	v.SetDefault("nlp.provider", NLPLexicon)
	v.SetDefault("nlp.endpoint", "")
	v.SetDefault("nlp.api_key", "")
	v.SetDefault("nlp.language", "en")

	v.SetDefault("embedding.provider", EmbedderOllama)
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimension", 768)

	v.SetDefault("index.provider", IndexMemory)
	v.SetDefault("index.table", "kb_documents")
	v.SetDefault("index.type", "HNSW")

	v.SetDefault("generator.provider", GeneratorOllama)
	v.SetDefault("generator.model", "qwen2.5:3b")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.base_url", "")
	v.SetDefault("generator.max_tokens", 500)
	v.SetDefault("generator.temperature", 0.7)
	v.SetDefault("generator.top_p", 0.9)

	v.SetDefault("tokenizer.enabled", false)
	v.SetDefault("tokenizer.model", "gpt-4o")

	v.SetDefault("pipeline.top_k", 5)
	v.SetDefault("pipeline.min_similarity", 0.65)
	v.SetDefault("pipeline.confidence_threshold", 0.7)
	v.SetDefault("pipeline.min_documents", 2)
	v.SetDefault("pipeline.request_timeout", 30*time.Second)
	v.SetDefault("pipeline.max_concurrency", 4)

	v.SetDefault("store.provider", StoreMemory)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "ai_triage")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "triage:")
	v.SetDefault("redis.ttl", time.Hour)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "triage.decisions")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Load reads configuration from the optional YAML file at path, then applies
// TRIAGE_* environment overrides on top of the defaults. An explicit path that
// does not exist is an error; an empty path means defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	return cfg, nil
}

// splitList expands a single comma separated entry, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
