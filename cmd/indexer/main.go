package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"examqa/internal/config"
	"examqa/internal/corpus"
	"examqa/internal/embedding"
	"examqa/internal/vecindex"
	"examqa/internal/vecindex/qdrant"
)

// indexer builds the embedding index for a question bank ahead of time so
// the interactive session starts without an embedding pass.
func main() {
	cfgPath := flag.String("config", "", "Path to config YAML")
	corpusPath := flag.String("corpus", "", "Question bank JSON (overrides config)")
	outDir := flag.String("out", "", "Output artifact directory (overrides config)")
	force := flag.Bool("force", false, "Rebuild even when a compatible artifact exists")
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
	if *corpusPath != "" {
		cfg.Corpus.Path = *corpusPath
	}
	if *outDir != "" {
		cfg.Index.Dir = *outDir
	}

	catalog, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		log.Fatalf("failed to load corpus: %v", err)
	}
	if len(catalog) == 0 {
		log.Fatalf("corpus %s contains no usable questions", cfg.Corpus.Path)
	}

	embedder, err := embedding.FromConfig(cfg.Embedder)
	if err != nil {
		log.Fatalf("failed to construct embedder: %v", err)
	}
	texts := make([]string, len(catalog))
	for i, e := range catalog {
		texts[i] = e.Text
	}
	if err := embedder.Prepare(texts); err != nil {
		log.Fatalf("failed to prepare embedder: %v", err)
	}

	// missing, incompatible or corrupt artifacts are simply rebuilt
	if !*force {
		existing, err := vecindex.Load(cfg.Index.Dir, embedder.Name(), cfg.Embedder.Dimension)
		if err == nil && existing.Len() == len(catalog) {
			fmt.Printf("compatible artifact already at %s (%d entries); use -force to rebuild\n",
				cfg.Index.Dir, existing.Len())
			os.Exit(0)
		}
	}

	ix, err := vecindex.Build(context.Background(), embedder, catalog)
	if err != nil {
		log.Fatalf("failed to build index: %v", err)
	}
	if err := ix.Persist(cfg.Index.Dir); err != nil {
		log.Fatalf("failed to persist index: %v", err)
	}

	if qc := cfg.Index.Qdrant; qc != nil && qc.URL != "" {
		mirror := qdrant.New(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		})
		if err := mirror.Push(context.Background(), ix); err != nil {
			log.Fatalf("failed to mirror index to qdrant: %v", err)
		}
		fmt.Printf("mirrored %d vectors to %s/%s\n", ix.Len(), qc.URL, qc.Collection)
	}

	st := catalog.Stats()
	fmt.Printf("indexed %d questions (%s, dim %d) into %s\n",
		ix.Len(), embedder.Name(), ix.Dim(), cfg.Index.Dir)
	for _, unit := range catalog.Units() {
		fmt.Printf("  %-12s %d\n", unit, st.PerUnit[unit])
	}
	if years := catalog.Years(); len(years) > 0 {
		fmt.Printf("years: %d-%d\n", years[0], years[len(years)-1])
	}
}
