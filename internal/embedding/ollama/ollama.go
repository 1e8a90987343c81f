package ollama

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"examqa/internal/domain"
)

// Embedder generates embeddings with a local Ollama model server. It is
// shared across concurrent searches, so the lazily-learned dimension is
// stored atomically.
type Embedder struct {
	client     *api.Client
	model      string
	timeout    time.Duration
	maxRetries int
	dimension  atomic.Int32
}

// Config configures the Ollama embedder.
type Config struct {
	Host    string // empty means OLLAMA_HOST / default
	Model   string
	Timeout time.Duration
}

// New creates an Ollama-backed embedder.
func New(cfg Config) (*Embedder, error) {
	base := envconfig.Host()
	if cfg.Host != "" {
		parsed, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", cfg.Host, err)
		}
		base = parsed
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Embedder{
		client:     api.NewClient(base, http.DefaultClient),
		model:      model,
		timeout:    timeout,
		maxRetries: 3,
	}, nil
}

// Name identifies the embedding model; it tags the persisted index artifact.
func (e *Embedder) Name() string { return "ollama/" + e.model }

// Prepare is a no-op: remote models need no corpus pass. Dimension is
// learned from the first embedding.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the vector dimensionality, or 0 before the first embed.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed returns the L2-normalized embedding for text, retrying transient
// failures with a linear backoff.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrEmbedding)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		vec, err := e.embedOnce(ctx, text)
		if err == nil {
			e.dimension.CompareAndSwap(0, int32(len(vec)))
			return vec, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: ollama embedding failed after %d retries: %v", domain.ErrEmbedding, e.maxRetries, lastErr)
}

func (e *Embedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings(reqCtx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vec := make([]float32, len(resp.Embedding))
	var norm float64
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
		norm += v * v
	}
	// normalize so cosine similarity reduces to a dot product
	norm = math.Sqrt(norm)
	if norm > 0 {
		inv := float32(1 / norm)
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
