package model

import (
	"fmt"
	"math"
	"time"
)

// Config is the complete veracity configuration (~/.veracity/config.yaml)
type Config struct {
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Fusion    FusionWeights   `yaml:"fusion" mapstructure:"fusion"`
	Quality   QualityWeights  `yaml:"quality" mapstructure:"quality"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Workers   WorkerConfig    `yaml:"workers" mapstructure:"workers"`
	Authority AuthorityConfig `yaml:"authority" mapstructure:"authority"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// EngineConfig tunes retrieval and presentation policy
type EngineConfig struct {
	TopK             int     `yaml:"top_k" mapstructure:"top_k"`
	MinSimilarity    float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
	MinSentenceWords int     `yaml:"min_sentence_words" mapstructure:"min_sentence_words"`
	MaxQuoteLength   int     `yaml:"max_quote_length" mapstructure:"max_quote_length"`
	MaxFindings      int     `yaml:"max_findings" mapstructure:"max_findings"` // 0 = unbounded
}

// FusionWeights weight the four confidence inputs. Must sum to 1.
type FusionWeights struct {
	Similarity       float64 `yaml:"similarity" mapstructure:"similarity"`
	Entailment       float64 `yaml:"entailment" mapstructure:"entailment"`
	Quality          float64 `yaml:"quality" mapstructure:"quality"`
	EvidenceStrength float64 `yaml:"evidence_strength" mapstructure:"evidence_strength"`
}

// QualityWeights weight the methodological rubric signals. Must sum to 1.
type QualityWeights struct {
	SampleSize    float64 `yaml:"sample_size" mapstructure:"sample_size"`
	ControlGroup  float64 `yaml:"control_group" mapstructure:"control_group"`
	Randomization float64 `yaml:"randomization" mapstructure:"randomization"`
	Statistical   float64 `yaml:"statistical_significance" mapstructure:"statistical_significance"`
	PeerReview    float64 `yaml:"peer_review" mapstructure:"peer_review"`
	Limitations   float64 `yaml:"limitations" mapstructure:"limitations"`
}

// EmbeddingConfig selects and bounds the embedding collaborator
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // hash, openai, ollama, gemini
	Model             string        `yaml:"model" mapstructure:"model"`
	Dimensions        int           `yaml:"dimensions" mapstructure:"dimensions"` // hash embedder only
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	Backoff           time.Duration `yaml:"backoff" mapstructure:"backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// LLMConfig configures the optional language-model collaborator
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // "", openai, anthropic, ollama
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	Backoff     time.Duration `yaml:"backoff" mapstructure:"backoff"`
	Extraction  bool          `yaml:"extraction" mapstructure:"extraction"`
	Entailment  bool          `yaml:"entailment" mapstructure:"entailment"`
	Explanation bool          `yaml:"explanation" mapstructure:"explanation"`
	HTTPProxy   string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the sentence-embedding cache layers
type CacheConfig struct {
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	Dir           string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty disables the disk layer
	DiskTTL       time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr     string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"` // Empty disables redis
	RedisPassword string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// StoreConfig selects the persistence collaborator
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory, postgres
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// FetchConfig bounds URL ingestion
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// WorkerConfig bounds batch concurrency
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// AuthorityConfig extends the built-in publisher/host classification
type AuthorityConfig struct {
	PrimaryDomains   []string `yaml:"primary_domains,omitempty" mapstructure:"primary_domains"`
	SecondaryDomains []string `yaml:"secondary_domains,omitempty" mapstructure:"secondary_domains"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			TopK:             5,
			MinSimilarity:    0.2,
			MinSentenceWords: 3,
			MaxQuoteLength:   240,
		},
		Fusion: DefaultFusionWeights(),
		Quality: QualityWeights{
			SampleSize:    0.20,
			ControlGroup:  0.15,
			Randomization: 0.15,
			Statistical:   0.20,
			PeerReview:    0.15,
			Limitations:   0.15,
		},
		Embedding: EmbeddingConfig{
			Provider:          "hash",
			Dimensions:        1024,
			Timeout:           10 * time.Second,
			MaxRetries:        2,
			Backoff:           250 * time.Millisecond,
			RequestsPerSecond: 5,
		},
		LLM: LLMConfig{
			Timeout:    30 * time.Second,
			MaxTokens:  800,
			MaxRetries: 1,
			Backoff:    500 * time.Millisecond,
		},
		Cache: CacheConfig{
			MemoryTTL:   time.Hour,
			DiskTTL:     7 * 24 * time.Hour,
			RedisPrefix: "veracity:",
		},
		Store: StoreConfig{Driver: "memory"},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "veracity/0.1 (+https://github.com/ppiankov/veracity)",
			MaxBodyBytes:  10 * 1024 * 1024,
			RespectRobots: true,
		},
		Log:     LogConfig{Level: "info", Format: "console"},
		Workers: WorkerConfig{Concurrency: 4},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// DefaultFusionWeights weights entailment highest
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Similarity:       0.25,
		Entailment:       0.35,
		Quality:          0.20,
		EvidenceStrength: 0.20,
	}
}

const weightTolerance = 1e-6

// Validate checks invariants that would make scoring undefined
func (c Config) Validate() error {
	if c.Engine.TopK < 1 {
		return fmt.Errorf("engine.top_k must be >= 1, got %d", c.Engine.TopK)
	}
	if c.Engine.MinSimilarity < 0 || c.Engine.MinSimilarity > 1 {
		return fmt.Errorf("engine.min_similarity must be in [0,1], got %.3f", c.Engine.MinSimilarity)
	}
	if c.Engine.MinSentenceWords < 1 {
		return fmt.Errorf("engine.min_sentence_words must be >= 1, got %d", c.Engine.MinSentenceWords)
	}
	if c.Engine.MaxFindings < 0 {
		return fmt.Errorf("engine.max_findings must be >= 0, got %d", c.Engine.MaxFindings)
	}
	if err := c.Fusion.Validate(); err != nil {
		return err
	}
	if err := c.Quality.Validate(); err != nil {
		return err
	}
	switch c.Embedding.Provider {
	case "hash", "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("unknown embedding provider: %q (supported: hash, openai, ollama, gemini)", c.Embedding.Provider)
	}
	switch c.Store.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store driver: %q (supported: memory, postgres)", c.Store.Driver)
	}
	return nil
}

// Validate checks fusion weights are non-negative and sum to 1
func (w FusionWeights) Validate() error {
	return checkWeights("fusion", map[string]float64{
		"similarity":        w.Similarity,
		"entailment":        w.Entailment,
		"quality":           w.Quality,
		"evidence_strength": w.EvidenceStrength,
	})
}

// Validate checks rubric weights are non-negative and sum to 1
func (w QualityWeights) Validate() error {
	return checkWeights("quality", map[string]float64{
		"sample_size":              w.SampleSize,
		"control_group":            w.ControlGroup,
		"randomization":            w.Randomization,
		"statistical_significance": w.Statistical,
		"peer_review":              w.PeerReview,
		"limitations":              w.Limitations,
	})
}

func checkWeights(section string, weights map[string]float64) error {
	sum := 0.0
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%s.%s must be a non-negative number, got %v", section, name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%s weights must sum to 1.0, got %.6f", section, sum)
	}
	return nil
}
