package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{name: "non-empty value", value: "valid", wantError: false},
		{name: "empty value", value: "", wantError: true},
		{name: "whitespace only", value: "   ", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("test_field", tt.value)
			if got := v.HasErrors(); got != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestValidatorRanges(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(v *Validator)
		wantError bool
	}{
		{"positive int", func(v *Validator) { v.RequirePositive("f", 3) }, false},
		{"zero int", func(v *Validator) { v.RequirePositive("f", 0) }, true},
		{"int in range", func(v *Validator) { v.ValidateRange("f", 5, 1, 10) }, false},
		{"int above range", func(v *Validator) { v.ValidateRange("f", 11, 1, 10) }, true},
		{"float at bound", func(v *Validator) { v.ValidateFloatRange("f", 1.0, 0, 1) }, false},
		{"float below range", func(v *Validator) { v.ValidateFloatRange("f", -0.1, 0, 1) }, true},
		{"valid port", func(v *Validator) { v.ValidatePort("f", 8000) }, false},
		{"port zero", func(v *Validator) { v.ValidatePort("f", 0) }, true},
		{"redis db 15", func(v *Validator) { v.ValidateDBNumber("f", 15) }, false},
		{"redis db 16", func(v *Validator) { v.ValidateDBNumber("f", 16) }, true},
		{"positive duration", func(v *Validator) { v.RequirePositiveDuration("f", time.Second) }, false},
		{"zero duration", func(v *Validator) { v.RequirePositiveDuration("f", 0) }, true},
		{"min length met", func(v *Validator) { v.ValidateMinLength("f", "abcde", 5) }, false},
		{"min length short", func(v *Validator) { v.ValidateMinLength("f", "abc", 5) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.apply(v)
			if got := v.HasErrors(); got != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestValidatorValidateOneOf(t *testing.T) {
	v := NewValidator()
	v.ValidateOneOf("provider", "azure", "azure", "google")
	if v.HasErrors() {
		t.Fatalf("unexpected error for allowed value: %v", v.Error())
	}

	v.ValidateOneOf("provider", "aws", "azure", "google")
	if !v.HasErrors() {
		t.Fatal("expected error for disallowed value")
	}
	if !strings.Contains(v.Errors()[0].Message, `"aws"`) {
		t.Errorf("message should quote the rejected value, got %q", v.Errors()[0].Message)
	}
}

func TestValidatorMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("field1", "").
		RequirePositive("field2", -1).
		ValidatePort("field3", 70000)

	if len(v.Errors()) != 3 {
		t.Fatalf("Errors() returned %d errors, want 3", len(v.Errors()))
	}
	err := v.Error()
	if err == nil {
		t.Fatal("Error() returned nil")
	}
	for _, field := range []string{"field1", "field2", "field3"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("combined error is missing %s: %v", field, err)
		}
	}
}

func TestValidatorNoErrors(t *testing.T) {
	if err := NewValidator().RequireNonEmpty("f", "x").Error(); err != nil {
		t.Errorf("Error() = %v, want nil", err)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "defaults are valid"},
		{
			name:      "azure requires endpoint",
			mutate:    func(c *Config) { c.NLP.Provider = NLPAzure; c.NLP.APIKey = "k" },
			wantField: "nlp.endpoint",
		},
		{
			name:      "google requires api key",
			mutate:    func(c *Config) { c.NLP.Provider = NLPGoogle },
			wantField: "nlp.api_key",
		},
		{
			name:      "unknown nlp provider",
			mutate:    func(c *Config) { c.NLP.Provider = "aws" },
			wantField: "nlp.provider",
		},
		{
			name:      "openai embedder requires key",
			mutate:    func(c *Config) { c.Embedding.Provider = EmbedderOpenAI },
			wantField: "embedding.api_key",
		},
		{
			name:      "pgvector requires dsn",
			mutate:    func(c *Config) { c.Index.Provider = IndexPGVector },
			wantField: "postgres.dsn",
		},
		{
			name:      "claude requires key",
			mutate:    func(c *Config) { c.Generator.Provider = GeneratorClaude; c.Generator.Model = "claude-3-5-haiku-latest" },
			wantField: "generator.api_key",
		},
		{
			name:      "similarity out of range",
			mutate:    func(c *Config) { c.Pipeline.MinSimilarity = 1.5 },
			wantField: "pipeline.min_similarity",
		},
		{
			name:      "timeout required",
			mutate:    func(c *Config) { c.Pipeline.RequestTimeout = 0 },
			wantField: "pipeline.request_timeout",
		},
		{
			name:      "mongo store requires uri",
			mutate:    func(c *Config) { c.Store.Provider = StoreMongo },
			wantField: "mongo.uri",
		},
		{
			name:      "kafka requires brokers",
			mutate:    func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil },
			wantField: "kafka.brokers",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.SampleRatio = 2 },
			wantField: "telemetry.sample_ratio",
		},
		{
			name:      "redis db out of range",
			mutate:    func(c *Config) { c.Redis.Enabled = true; c.Redis.DB = 20 },
			wantField: "redis.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %s", tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() error = %v, want it to mention %s", err, tt.wantField)
			}
		})
	}
}
