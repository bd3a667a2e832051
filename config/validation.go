package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator collects configuration problems so they can be reported together
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

func (v *Validator) add(field, format string, args ...any) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.add(field, "value cannot be empty")
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		return v.add(field, "value must be positive, got %d", value)
	}
	return v
}

// RequirePositiveDuration validates that a duration is greater than 0
func (v *Validator) RequirePositiveDuration(field string, value time.Duration) *Validator {
	if value <= 0 {
		return v.add(field, "duration must be positive, got %s", value)
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %.2f and %.2f, got %.2f", min, max, value)
	}
	return v
}

// ValidatePort validates that a port number is valid (1-65535)
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// ValidateDBNumber validates that a database number is valid (0-15 for Redis)
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.add(field, "value must be one of %v, got %q", allowed, value)
}

// ValidateMinLength validates that a string field has minimum length
func (v *Validator) ValidateMinLength(field string, value string, minLen int) *Validator {
	if len(value) < minLen {
		return v.add(field, "value must be at least %d characters long, got %d", minLen, len(value))
	}
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Validate checks the whole configuration. Only the sections selected by the
// provider switches are required to carry credentials.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("log.format", c.Log.Format, "json", "text")
	v.ValidateOneOf("log.level", c.Log.Level, "debug", "info", "warn", "error")
	v.ValidatePort("server.port", c.Server.Port)

	c.NLP.validate(v)
	c.Embedding.validate(v)
	c.Index.validate(v)
	c.Generator.validate(v)
	c.Pipeline.validate(v)

	if c.Index.Provider == IndexPGVector {
		v.RequireNonEmpty("postgres.dsn", c.Postgres.DSN)
	}
	switch c.Store.Provider {
	case StorePostgres:
		v.RequireNonEmpty("postgres.dsn", c.Postgres.DSN)
	case StoreMongo:
		v.RequireNonEmpty("mongo.uri", c.Mongo.URI)
		v.RequireNonEmpty("mongo.database", c.Mongo.Database)
	case StoreMemory:
	default:
		v.ValidateOneOf("store.provider", c.Store.Provider, StoreMemory, StorePostgres, StoreMongo)
	}
	if c.Redis.Enabled {
		v.RequireNonEmpty("redis.addr", c.Redis.Addr)
		v.ValidateDBNumber("redis.db", c.Redis.DB)
		v.RequireNonEmpty("redis.prefix", c.Redis.Prefix)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			v.add("kafka.brokers", "at least one broker is required")
		}
		v.RequireNonEmpty("kafka.topic", c.Kafka.Topic)
	}

	if c.Telemetry.Enabled {
		v.ValidateFloatRange("telemetry.sample_ratio", c.Telemetry.SampleRatio, 0, 1)
	}

	return v.Error()
}

func (c NLPConfig) validate(v *Validator) {
	v.ValidateOneOf("nlp.provider", c.Provider, NLPAzure, NLPGoogle, NLPLexicon)
	switch c.Provider {
	case NLPAzure:
		v.RequireNonEmpty("nlp.endpoint", c.Endpoint)
		v.RequireNonEmpty("nlp.api_key", c.APIKey)
	case NLPGoogle:
		v.RequireNonEmpty("nlp.api_key", c.APIKey)
	}
}

func (c EmbeddingConfig) validate(v *Validator) {
	v.ValidateOneOf("embedding.provider", c.Provider, EmbedderOpenAI, EmbedderGenAI, EmbedderOllama)
	v.RequireNonEmpty("embedding.model", c.Model)
	v.ValidateRange("embedding.dimension", c.Dimension, 1, 65535)
	if c.Provider != EmbedderOllama {
		v.RequireNonEmpty("embedding.api_key", c.APIKey)
	}
}

func (c IndexConfig) validate(v *Validator) {
	v.ValidateOneOf("index.provider", c.Provider, IndexMemory, IndexPGVector)
	if c.Provider == IndexPGVector {
		v.RequireNonEmpty("index.table", c.Table)
		v.ValidateOneOf("index.type", strings.ToUpper(c.Type), "HNSW", "IVFFLAT")
	}
}

func (c GeneratorConfig) validate(v *Validator) {
	v.ValidateOneOf("generator.provider", c.Provider, GeneratorOllama, GeneratorOpenAI, GeneratorClaude, GeneratorGemini, GeneratorGroq, GeneratorCohere)
	v.RequireNonEmpty("generator.model", c.Model)
	if c.Provider != GeneratorOllama {
		v.RequireNonEmpty("generator.api_key", c.APIKey)
	}
	v.RequirePositive("generator.max_tokens", c.MaxTokens)
	v.ValidateFloatRange("generator.temperature", c.Temperature, 0, 2)
	v.ValidateFloatRange("generator.top_p", c.TopP, 0, 1)
}

func (c PipelineConfig) validate(v *Validator) {
	v.ValidateRange("pipeline.top_k", c.TopK, 1, 100)
	v.ValidateFloatRange("pipeline.min_similarity", c.MinSimilarity, 0, 1)
	v.ValidateFloatRange("pipeline.confidence_threshold", c.ConfidenceThreshold, 0, 1)
	v.ValidateRange("pipeline.min_documents", c.MinDocuments, 0, 100)
	v.RequirePositiveDuration("pipeline.request_timeout", c.RequestTimeout)
	v.RequirePositive("pipeline.max_concurrency", c.MaxConcurrency)
}
