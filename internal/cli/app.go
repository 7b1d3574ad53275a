package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/veracity/internal/cache"
	"github.com/ppiankov/veracity/internal/embed"
	"github.com/ppiankov/veracity/internal/explain"
	"github.com/ppiankov/veracity/internal/extract"
	"github.com/ppiankov/veracity/internal/ingest"
	"github.com/ppiankov/veracity/internal/llm"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/pipeline"
	"github.com/ppiankov/veracity/internal/quality"
	"github.com/ppiankov/veracity/internal/render"
	"github.com/ppiankov/veracity/internal/stance"
	"github.com/ppiankov/veracity/internal/store"
	"github.com/ppiankov/veracity/internal/util"
	"github.com/ppiankov/veracity/internal/worker"
)

const (
	fetchRequestsPerSecond = 1.0
	cacheCleanupInterval   = 10 * time.Minute
)

// app is the wired engine plus the collaborators the commands use directly
type app struct {
	cfg     model.Config
	engine  *pipeline.Engine
	loader  *ingest.Loader
	metrics *metrics.Recorder
	log     logging.Logger
	closers []func() error
}

// newApp builds every collaborator from cfg
func newApp(ctx context.Context, cfg model.Config) (*app, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.NewRecorder(),
		log:     log,
	}

	httpClient := util.NewHTTPClient(cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)

	embeddings, err := a.embeddings(ctx, httpClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, st.Close)

	deps := pipeline.Deps{
		Store:      st,
		Embeddings: embeddings,
		Authority:  quality.NewAuthorityClassifier(&cfg.Authority),
		Logger:     log,
		Metrics:    a.metrics,
	}
	if err := a.languageModel(&deps); err != nil {
		a.Close()
		return nil, err
	}
	a.engine = pipeline.NewEngine(cfg, deps)

	fetcher := ingest.NewFetcher(
		cfg.Fetch,
		httpClient,
		worker.NewLimiter(fetchRequestsPerSecond, 1),
		worker.RetryPolicy{Retries: 2, Backoff: 500 * time.Millisecond},
		log,
		a.metrics,
	)
	a.loader = ingest.NewLoader(ingest.NewRegistry(), fetcher, cfg.Fetch.MaxBodyBytes)

	return a, nil
}

// embeddings builds the embedding service with its cache layers. The hash
// embedder serves as fallback for remote providers.
func (a *app) embeddings(ctx context.Context, httpClient *http.Client) (*embed.Service, error) {
	cfg := a.cfg

	primary, err := embed.New(ctx, cfg.Embedding, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	layers := []cache.Cache{cache.NewMemoryCache(cfg.Cache.MemoryTTL, cacheCleanupInterval)}
	ttl := cfg.Cache.MemoryTTL
	if cfg.Cache.Dir != "" {
		layers = append(layers, cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL))
		ttl = cfg.Cache.DiskTTL
	}
	if cfg.Cache.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		a.closers = append(a.closers, client.Close)
		layers = append(layers, cache.NewRedisCache(client, cfg.Cache.RedisPrefix, cfg.Cache.DiskTTL))
		ttl = cfg.Cache.DiskTTL
	}

	return embed.NewService(embed.ServiceOptions{
		Primary:  primary,
		Fallback: embed.NewHashEmbedder(cfg.Embedding.Dimensions),
		Cache:    embed.NewSentenceCache(cache.NewLayeredCache(layers...), ttl, a.log, a.metrics),
		Policy: worker.RetryPolicy{
			Retries: cfg.Embedding.MaxRetries,
			Timeout: cfg.Embedding.Timeout,
			Backoff: cfg.Embedding.Backoff,
		},
		Limiter: worker.NewLimiter(cfg.Embedding.RequestsPerSecond, 0),
		Logger:  a.log,
		Metrics: a.metrics,
	}), nil
}

// languageModel swaps in the model-backed stages that are switched on
func (a *app) languageModel(deps *pipeline.Deps) error {
	cfg := a.cfg

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil
	}

	client := llm.NewClient(provider, worker.RetryPolicy{
		Retries: cfg.LLM.MaxRetries,
		Timeout: cfg.LLM.Timeout,
		Backoff: cfg.LLM.Backoff,
	}, nil, a.metrics)

	if cfg.LLM.Entailment {
		deps.Stance = stance.NewLLMClassifier(client, a.log, a.metrics)
	}
	if cfg.LLM.Explanation {
		deps.Explainer = explain.NewLLMEnhancer(client, explain.NewTemplate(cfg.Engine.MaxQuoteLength), a.log, a.metrics)
	}
	if cfg.LLM.Extraction {
		deps.Findings = extract.NewLLMAugmenter(client, extract.NewFindingExtractor(cfg.Engine.MaxFindings), a.log, a.metrics)
	}

	a.log.Info("language model enabled",
		logging.String("provider", provider.Name()),
		logging.Bool("entailment", cfg.LLM.Entailment),
		logging.Bool("explanation", cfg.LLM.Explanation),
		logging.Bool("extraction", cfg.LLM.Extraction),
	)
	return nil
}

func (a *app) rendererFor(noFooter bool) *render.Renderer {
	return render.NewRenderer(!noFooter)
}

// Close releases the store and cache connections
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", logging.Err(err))
		}
	}
	a.closers = nil
}

// withApp loads config, wires an app and runs fn with it
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
