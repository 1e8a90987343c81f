package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"go.uber.org/zap"

	"examqa/internal/domain"
)

// Config holds generation settings for a local Ollama server.
type Config struct {
	Host        string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Ollama generates answers through a local Ollama server. It satisfies
// domain.Generator.
type Ollama struct {
	client *api.Client
	cfg    Config
	log    *zap.Logger
}

// New builds a generator. Host falls back to the OLLAMA_HOST environment
// variable (and then the Ollama default) when empty.
func New(cfg Config, log *zap.Logger) (*Ollama, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama generator: model is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	var base *url.URL
	if cfg.Host == "" {
		base = envconfig.Host()
	} else {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("ollama generator: parsing host %q: %w", cfg.Host, err)
		}
		base = u
	}
	httpClient := http.DefaultClient
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Ollama{client: api.NewClient(base, httpClient), cfg: cfg, log: log}, nil
}

// Generate sends the prompt and accumulates the streamed response. Any
// transport or server failure is reported as ErrGenerationUnavailable so
// callers can distinguish "backend is down" from bad input.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.cfg.Model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": o.cfg.Temperature,
			"num_predict": o.cfg.MaxTokens,
		},
	}

	start := time.Now()
	var sb strings.Builder
	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, werr := sb.WriteString(resp.Response)
		return werr
	})
	if err != nil {
		o.log.Warn("generation failed",
			zap.String("model", o.cfg.Model),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}

	o.log.Debug("generation complete",
		zap.String("model", o.cfg.Model),
		zap.Int("chars", sb.Len()),
		zap.Duration("took", time.Since(start)))
	return strings.TrimSpace(sb.String()), nil
}
