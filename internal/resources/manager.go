package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"examqa/internal/config"
	"examqa/internal/corpus"
	"examqa/internal/domain"
	"examqa/internal/retriever"
	"examqa/internal/vecindex"
)

// Snapshot is one complete, immutable set of loaded resources. Requests
// hold a snapshot for their whole lifetime, so a concurrent reload can
// never expose them to a half-built catalog or index.
type Snapshot struct {
	Catalog   domain.Catalog
	Index     *vecindex.Index
	Retriever *retriever.Retriever
}

// Manager owns the expensive resources for the process: the loaded catalog
// and the embedding index. It constructs them at most once, lazily, and
// replaces them only through Reload, which builds a full snapshot off to
// the side and publishes it with a single pointer swap. Reads are
// lock-free; concurrent reloads serialize.
type Manager struct {
	cfg         *config.AppConfig
	newEmbedder func() (domain.Embedder, error)
	log         *zap.Logger

	mu      sync.Mutex // guards builds, not reads
	current atomic.Pointer[Snapshot]
}

// NewManager creates a manager. newEmbedder is invoked once per snapshot so
// corpus-prepared embedders are rebuilt together with the index.
func NewManager(cfg *config.AppConfig, newEmbedder func() (domain.Embedder, error), log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg, newEmbedder: newEmbedder, log: log}
}

// Get returns the current snapshot, building it on first use.
func (m *Manager) Get(ctx context.Context) (*Snapshot, error) {
	if s := m.current.Load(); s != nil {
		return s, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.current.Load(); s != nil {
		return s, nil
	}
	s, err := m.build(ctx, false)
	if err != nil {
		return nil, err
	}
	m.current.Store(s)
	return s, nil
}

// Reload rebuilds everything from the current corpus and atomically swaps
// the new snapshot in. In-flight searches keep using the snapshot they
// started with.
func (m *Manager) Reload(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.build(ctx, true)
	if err != nil {
		return nil, err
	}
	m.current.Store(s)
	m.log.Info("resources reloaded",
		zap.Int("entries", len(s.Catalog)),
		zap.String("model", s.Index.ModelID()))
	return s, nil
}

// build loads the corpus, prepares the embedder, and either reuses a
// compatible persisted index or embeds the catalog from scratch. force
// skips the persisted artifact entirely.
func (m *Manager) build(ctx context.Context, force bool) (*Snapshot, error) {
	start := time.Now()

	catalog, err := corpus.Load(m.cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}

	embedder, err := m.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("constructing embedder: %w", err)
	}
	texts := make([]string, len(catalog))
	for i, e := range catalog {
		texts[i] = e.Text
	}
	if len(texts) > 0 {
		if err := embedder.Prepare(texts); err != nil {
			return nil, fmt.Errorf("preparing embedder: %w", err)
		}
	}

	var ix *vecindex.Index
	if !force {
		ix = m.loadPersisted(embedder, catalog)
	}
	if ix == nil {
		ix, err = vecindex.Build(ctx, embedder, catalog)
		if err != nil {
			return nil, fmt.Errorf("building index: %w", err)
		}
		if ix.Len() > 0 {
			if err := ix.Persist(m.cfg.Index.Dir); err != nil {
				// the in-memory index is still usable; only reuse is lost
				m.log.Warn("failed to persist index artifact", zap.Error(err))
			}
		}
	}

	m.log.Info("resources ready",
		zap.Int("entries", len(catalog)),
		zap.String("model", embedder.Name()),
		zap.Int("dim", ix.Dim()),
		zap.Duration("took", time.Since(start)))

	ret := retriever.New(embedder, ix, catalog, retriever.Config{
		Threshold: m.cfg.Retrieval.Threshold,
		CacheTTL:  time.Duration(m.cfg.Retrieval.CacheTTLSecs) * time.Second,
	}, m.log)

	return &Snapshot{Catalog: catalog, Index: ix, Retriever: ret}, nil
}

// loadPersisted returns a persisted index when it is compatible with the
// configured embedder and the loaded catalog, nil when a rebuild is needed.
// A corrupt artifact is logged and rebuilt, not fatal.
func (m *Manager) loadPersisted(embedder domain.Embedder, catalog domain.Catalog) *vecindex.Index {
	ix, err := vecindex.Load(m.cfg.Index.Dir, embedder.Name(), m.cfg.Embedder.Dimension)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIndexNotFound):
			m.log.Info("no persisted index, building", zap.String("dir", m.cfg.Index.Dir))
		case errors.Is(err, domain.ErrIndexCorrupt):
			m.log.Warn("persisted index incompatible, rebuilding", zap.Error(err))
		default:
			m.log.Warn("failed to load persisted index, rebuilding", zap.Error(err))
		}
		return nil
	}
	if !idsMatch(ix, catalog) {
		m.log.Warn("persisted index is stale for this corpus, rebuilding")
		return nil
	}
	// tf-idf vectors depend on the prepared vocabulary; a dimension drift
	// means the corpus changed under the artifact
	if d := embedder.Dimension(); d != 0 && d != ix.Dim() {
		m.log.Warn("embedder dimension differs from artifact, rebuilding",
			zap.Int("embedder", d), zap.Int("artifact", ix.Dim()))
		return nil
	}
	return ix
}

func idsMatch(ix *vecindex.Index, catalog domain.Catalog) bool {
	if ix.Len() != len(catalog) {
		return false
	}
	for i, id := range ix.EntryIDs() {
		if catalog[i].ID != id {
			return false
		}
	}
	return true
}
