package openai

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"examqa/internal/domain"
)

// Embedder generates embeddings with an OpenAI-compatible endpoint. It is
// shared across concurrent searches, so the lazily-learned dimension is
// stored atomically.
type Embedder struct {
	client    *openai.Client
	model     string
	dimension atomic.Int32
}

// Config configures the OpenAI-compatible embedder. The API key is read
// from the environment variable named by APIKeyEnv.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// New creates a client for the configured endpoint.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Name identifies the embedding model; it tags the persisted index artifact.
func (e *Embedder) Name() string { return "openai/" + e.model }

// Prepare is a no-op for remote embedding.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the vector dimensionality, or 0 before the first embed.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed returns the L2-normalized embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrEmbedding)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data returned", domain.ErrEmbedding)
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	var norm float64
	for i, v := range raw {
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		inv := float32(1 / norm)
		for i := range vec {
			vec[i] *= inv
		}
	}
	e.dimension.CompareAndSwap(0, int32(len(vec)))
	return vec, nil
}
