// Package app assembles the triage components selected by a configuration.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	openaisdk "github.com/openai/openai-go/v3"

	"github.com/sweetpotato0/ai-triage/audit"
	"github.com/sweetpotato0/ai-triage/config"
	"github.com/sweetpotato0/ai-triage/contrib/audit/kafka"
	genaiembed "github.com/sweetpotato0/ai-triage/contrib/embedder/genai"
	ollamaembed "github.com/sweetpotato0/ai-triage/contrib/embedder/ollama"
	openaiembed "github.com/sweetpotato0/ai-triage/contrib/embedder/openai"
	"github.com/sweetpotato0/ai-triage/contrib/nlp/azure"
	"github.com/sweetpotato0/ai-triage/contrib/nlp/google"
	"github.com/sweetpotato0/ai-triage/contrib/nlp/lexicon"
	"github.com/sweetpotato0/ai-triage/contrib/provider"
	"github.com/sweetpotato0/ai-triage/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/ai-triage/contrib/vector/inmemory"
	"github.com/sweetpotato0/ai-triage/contrib/vector/pg"
	"github.com/sweetpotato0/ai-triage/draft"
	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/nlp"
	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval"
	"github.com/sweetpotato0/ai-triage/runner"
	"github.com/sweetpotato0/ai-triage/service"
	"github.com/sweetpotato0/ai-triage/store"
	"github.com/sweetpotato0/ai-triage/supervisor"
	"github.com/sweetpotato0/ai-triage/vector"
)

// App holds every long-lived component of a running process.
type App struct {
	Config     *config.Config
	Retriever  *retrieval.Retriever
	Supervisor *supervisor.Supervisor
	Runner     *runner.Runner
	Store      store.Store
	Tickets    *service.TicketService

	logger  *slog.Logger
	closers []io.Closer
}

// New builds the application from cfg. Components that hold connections are
// closed by Close, also when New fails halfway.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, logger: logging.WithComponent("app")}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	svc, err := newNLP(ctx, cfg.NLP)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	index, err := a.newIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Retriever, err = retrieval.New(ctx, index, emb, retrieval.WithLogger(logging.WithComponent("retrieval")))
	if err != nil {
		return nil, err
	}

	gen, err := provider.New(ctx, cfg.Generator, cfg.Pipeline.RequestTimeout)
	if err != nil {
		return nil, err
	}
	if c, ok := gen.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	draftOpts := []draft.Option{draft.WithParams(draft.Params{
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		TopP:        cfg.Generator.TopP,
	})}
	if cfg.Tokenizer.Enabled {
		tok, err := tiktoken.New(cfg.Tokenizer.Model)
		if err != nil {
			// Token counts are informational only.
			a.logger.Warn("tokenizer unavailable", "model", cfg.Tokenizer.Model, "error", err)
		} else {
			draftOpts = append(draftOpts, draft.WithTokenizer(tok))
		}
	}

	a.Supervisor, err = supervisor.New(
		nlp.NewAnalyzer(svc),
		a.Retriever,
		draft.New(gen, draftOpts...),
		supervisor.WithThresholds(supervisor.Thresholds{
			TopK:                cfg.Pipeline.TopK,
			MinSimilarity:       cfg.Pipeline.MinSimilarity,
			ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
			MinDocuments:        cfg.Pipeline.MinDocuments,
		}),
		supervisor.WithStageTimeout(cfg.Pipeline.RequestTimeout),
	)
	if err != nil {
		return nil, err
	}
	a.Runner = runner.New(a.Supervisor, cfg.Pipeline.MaxConcurrency)

	a.Store, err = newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store)

	opts := []service.Option{}
	if cfg.Redis.Enabled {
		cache := store.NewRedisCache(store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		a.closers = append(a.closers, cache)
		opts = append(opts, service.WithCache(cache))
	}
	pub, err := newPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub)
	opts = append(opts, service.WithPublisher(pub))

	a.Tickets = service.New(a.Store, a.Runner, opts...)

	a.logger.Info("application ready",
		"nlp", cfg.NLP.Provider,
		"embedding", cfg.Embedding.Provider,
		"index", cfg.Index.Provider,
		"generator", cfg.Generator.Provider,
		"store", cfg.Store.Provider,
	)
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}

func newNLP(ctx context.Context, cfg config.NLPConfig) (nlp.Service, error) {
	switch cfg.Provider {
	case config.NLPAzure:
		return azure.New(cfg.Endpoint, cfg.APIKey, azure.WithLanguage(cfg.Language)), nil
	case config.NLPGoogle:
		return google.New(ctx, cfg.APIKey, cfg.Language)
	case config.NLPLexicon, "":
		return lexicon.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown nlp provider %q", errors.ErrInvalidInput, cfg.Provider)
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config) (vector.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case config.EmbedderOpenAI:
		return openaiembed.New(e.APIKey, e.BaseURL, openaisdk.EmbeddingModel(e.Model), e.Dimension), nil
	case config.EmbedderGenAI:
		return genaiembed.New(ctx, e.APIKey, e.Model, e.Dimension)
	case config.EmbedderOllama, "":
		return ollamaembed.New(e.BaseURL, e.Model, e.Dimension, cfg.Pipeline.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", errors.ErrInvalidInput, e.Provider)
	}
}

func (a *App) newIndex(ctx context.Context, cfg *config.Config) (vector.Index, error) {
	switch cfg.Index.Provider {
	case config.IndexPGVector:
		idx, err := pg.New(ctx, pg.Config{DSN: cfg.Postgres.DSN, TableName: cfg.Index.Table, IndexType: cfg.Index.Type})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, idx)
		return idx, nil
	case config.IndexMemory, "":
		return inmemory.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown index provider %q", errors.ErrInvalidInput, cfg.Index.Provider)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Provider {
	case config.StorePostgres:
		return store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	case config.StoreMongo:
		return store.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store provider %q", errors.ErrInvalidInput, cfg.Store.Provider)
	}
}

func newPublisher(cfg config.KafkaConfig) (audit.Publisher, error) {
	if !cfg.Enabled {
		return audit.NewLogPublisher(nil), nil
	}
	return kafka.New(kafka.Config{Brokers: cfg.Brokers, Topic: cfg.Topic})
}
