package embed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/cache"
	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/segment"
	"github.com/ppiankov/veracity/internal/worker"
)

func modelEmbedding(provider string) model.EmbeddingConfig {
	cfg := model.DefaultConfig().Embedding
	cfg.Provider = provider
	return cfg
}

// countingEmbedder wraps the hash embedder, counting and optionally
// slowing or failing calls.
type countingEmbedder struct {
	inner *HashEmbedder
	name  string
	delay time.Duration
	fail  error
	calls int32
}

func (e *countingEmbedder) Name() string    { return e.name }
func (e *countingEmbedder) Version() string { return e.name + "-v1" }

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.delay):
		}
	}
	if e.fail != nil {
		return nil, e.fail
	}
	return e.inner.Embed(ctx, texts)
}

var scenarioText = "Exercise lowers resting heart rate. The control group showed no significant change. Sample size was 200 participants."

func TestSentenceCache_ConcurrentFirstAccessComputesOnce(t *testing.T) {
	sentences := segment.NewSegmenter(3).Split(scenarioText)
	sc := NewSentenceCache(cache.NewMemoryCache(time.Minute, time.Minute), 0, nil, nil)
	e := &countingEmbedder{inner: NewHashEmbedder(128), name: "slow", delay: 50 * time.Millisecond}

	texts := []string{sentences[0].Text, sentences[1].Text, sentences[2].Text}
	compute := func(ctx context.Context) ([][]float64, error) { return e.Embed(ctx, texts) }

	var wg sync.WaitGroup
	results := make([][][]float64, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vecs, err := sc.Get(context.Background(), "doc-1", e.Version(), sentences, compute)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			results[i] = vecs
		}(i)
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&e.calls); calls != 1 {
		t.Errorf("expected exactly 1 computation, got %d", calls)
	}
	for i, r := range results {
		if len(r) != 3 {
			t.Errorf("caller %d got %d vectors", i, len(r))
		}
	}

	// A later request is served from the cache
	if _, err := sc.Get(context.Background(), "doc-1", e.Version(), sentences, compute); err != nil {
		t.Fatal(err)
	}
	if calls := atomic.LoadInt32(&e.calls); calls != 1 {
		t.Errorf("expected cache hit, got %d computations", calls)
	}

	// A different model version is a different key
	if _, err := sc.Get(context.Background(), "doc-1", "other-v1", sentences, compute); err != nil {
		t.Fatal(err)
	}
	if calls := atomic.LoadInt32(&e.calls); calls != 2 {
		t.Errorf("expected recomputation for new version, got %d", calls)
	}
}

func TestSentenceCache_CallerCancellation(t *testing.T) {
	sentences := segment.NewSegmenter(3).Split(scenarioText)
	sc := NewSentenceCache(cache.NewMemoryCache(time.Minute, time.Minute), 0, nil, nil)
	e := &countingEmbedder{inner: NewHashEmbedder(64), name: "slow", delay: 100 * time.Millisecond}
	compute := func(ctx context.Context) ([][]float64, error) {
		return e.Embed(ctx, []string{"a", "b", "c"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := sc.Get(ctx, "doc-2", "v", sentences, compute); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestService_FallsBackAndFlags(t *testing.T) {
	sentences := segment.NewSegmenter(3).Split(scenarioText)
	primary := &countingEmbedder{inner: NewHashEmbedder(64), name: "remote", fail: errors.New("connection refused")}

	svc := NewService(ServiceOptions{
		Primary:  primary,
		Fallback: NewHashEmbedder(1024),
		Cache:    NewSentenceCache(cache.NewMemoryCache(time.Minute, time.Minute), 0, nil, nil),
		Policy:   worker.RetryPolicy{Retries: 2, Backoff: time.Millisecond},
	})

	vecs, err := svc.Vectors(context.Background(), "doc-1", sentences, "Exercise reduces heart rate")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if vecs.Degradation == nil || vecs.Degradation.Kind != model.DegradeEmbedding {
		t.Fatalf("expected embedding degradation, got %+v", vecs.Degradation)
	}
	if vecs.ModelVersion != "hash-v1-d1024" {
		t.Errorf("expected fallback model version, got %s", vecs.ModelVersion)
	}
	if calls := atomic.LoadInt32(&primary.calls); calls != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d", calls)
	}
	if Similarity(vecs.Claim, vecs.Sentences[0]) < 0.8 {
		t.Error("fallback vectors should still rank the matching sentence")
	}
}

func TestService_NoFallbackIsCollaboratorUnavailable(t *testing.T) {
	sentences := segment.NewSegmenter(3).Split(scenarioText)
	primary := &countingEmbedder{inner: NewHashEmbedder(64), name: "remote", fail: errors.New("503")}

	svc := NewService(ServiceOptions{Primary: primary, Policy: worker.RetryPolicy{}})
	_, err := svc.Vectors(context.Background(), "doc-1", sentences, "claim text here")
	if !errors.Is(err, apperr.ErrCollaboratorUnavailable) {
		t.Errorf("expected collaborator unavailable, got %v", err)
	}
}

func TestService_TimeoutTriggersFallback(t *testing.T) {
	sentences := segment.NewSegmenter(3).Split(scenarioText)
	primary := &countingEmbedder{inner: NewHashEmbedder(64), name: "remote", delay: time.Second}

	svc := NewService(ServiceOptions{
		Primary:  primary,
		Fallback: NewHashEmbedder(1024),
		Policy:   worker.RetryPolicy{Retries: 1, Timeout: 10 * time.Millisecond},
	})

	start := time.Now()
	vecs, err := svc.Vectors(context.Background(), "doc-1", sentences, "Exercise reduces heart rate")
	if err != nil {
		t.Fatal(err)
	}
	if vecs.Degradation == nil {
		t.Error("expected degradation after timeouts")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("timeout did not bound the slow collaborator")
	}
}
