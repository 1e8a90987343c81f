// Package embedding selects a concrete text embedder from configuration.
package embedding

import (
	"fmt"
	"time"

	"examqa/internal/config"
	"examqa/internal/domain"
	"examqa/internal/embedding/ollama"
	"examqa/internal/embedding/openai"
	"examqa/internal/embedding/tfidf"
)

// FromConfig assembles the configured embedder. Callers construct one per
// index build so corpus-prepared embedders never leak state across corpora.
func FromConfig(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.New(), nil
	case "ollama":
		oc := cfg.Ollama
		if oc == nil {
			oc = &config.OllamaEmbedderConfig{}
		}
		return ollama.New(ollama.Config{
			Host:    oc.Host,
			Model:   oc.Model,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		})
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("openai embedder selected but not configured")
		}
		return openai.New(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
