package cli

import (
	"errors"
	"testing"

	"github.com/spf13/viper"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	bindEnvironment()
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	def := model.DefaultConfig()
	if cfg.Engine != def.Engine || cfg.Fusion != def.Fusion || cfg.Store != def.Store {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	resetViper(t)
	t.Setenv("VERACITY_ENGINE_TOP_K", "7")
	t.Setenv("VERACITY_EMBEDDING_TIMEOUT", "3s")
	t.Setenv("VERACITY_STORE_DSN", "postgres://localhost/veracity")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Engine.TopK != 7 {
		t.Errorf("top_k = %d, want 7", cfg.Engine.TopK)
	}
	if cfg.Engine.MinSimilarity != 0.2 {
		t.Errorf("min_similarity = %v, want default 0.2", cfg.Engine.MinSimilarity)
	}
	if cfg.Embedding.Timeout.Seconds() != 3 {
		t.Errorf("embedding timeout = %v, want 3s", cfg.Embedding.Timeout)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres when a DSN is set", cfg.Store.Driver)
	}
}

func TestLoadConfig_InvalidWeights(t *testing.T) {
	resetViper(t)
	t.Setenv("VERACITY_FUSION_SIMILARITY", "0.9")

	_, err := loadConfig()
	if !errors.Is(err, apperr.ErrConfigInvalid) {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestApplyKeyEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "g-test")

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.Embedding.Provider = "gemini"
	applyKeyEnv(&cfg)

	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("llm key = %q", cfg.LLM.APIKey)
	}
	if cfg.Embedding.APIKey != "g-test" {
		t.Errorf("embedding key = %q", cfg.Embedding.APIKey)
	}

	cfg.LLM.APIKey = "from-file"
	applyKeyEnv(&cfg)
	if cfg.LLM.APIKey != "from-file" {
		t.Error("configured key should win over the environment")
	}
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"
	cfg.Store.DSN = "postgres://user:pw@host/db"

	out := redact(cfg)
	if out.LLM.APIKey != "****" || out.Store.DSN != "****" {
		t.Errorf("secrets not masked: %+v %+v", out.LLM, out.Store)
	}
	if out.Embedding.APIKey != "" {
		t.Error("empty values should stay empty")
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Error("redact must not modify its input")
	}
}

func TestOutputFlagsValidate(t *testing.T) {
	for _, format := range []string{"md", "json", "html"} {
		o := outputFlags{format: format}
		if err := o.validate(); err != nil {
			t.Errorf("format %q rejected: %v", format, err)
		}
	}
	if err := (&outputFlags{format: "xml"}).validate(); err == nil {
		t.Error("expected error for unknown format")
	}
}
