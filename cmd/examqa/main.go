package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"examqa/internal/config"
	"examqa/internal/domain"
	"examqa/internal/embedding"
	"examqa/internal/llm"
	"examqa/internal/logger"
	"examqa/internal/resources"
	"examqa/internal/service"
	"examqa/internal/tui"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config YAML (default: ./config.yaml, then ~/.config/examqa/config.yaml)")
	flag.Parse()

	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.New(cfg.Logging.FilePath, cfg.Logging.Production)
	defer func() { _ = zl.Sync() }()

	newEmbedder := func() (domain.Embedder, error) { return embedding.FromConfig(cfg.Embedder) }
	mgr := resources.NewManager(cfg, newEmbedder, zl)
	snap, err := mgr.Get(context.Background())
	if err != nil {
		log.Fatalf("failed to load resources: %v", err)
	}

	gen, err := llm.New(llm.Config{
		Host:        cfg.Generation.Host,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     time.Duration(cfg.Generation.TimeoutSecs) * time.Second,
	}, zl)
	if err != nil {
		log.Fatalf("failed to set up generation backend: %v", err)
	}

	qa := service.New(mgr, gen, zl)
	summary := tui.StatsSummary(snap.Catalog.Stats())
	m := tui.New(qa, summary, cfg.Retrieval.TopK)
	if err := tea.NewProgram(m).Start(); err != nil {
		log.Fatal(err)
	}
}
