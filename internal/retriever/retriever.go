package retriever

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"examqa/internal/domain"
	"examqa/internal/vecindex"
)

// Config tunes retrieval behavior.
type Config struct {
	// Threshold drops hits whose similarity is below it; 0 disables.
	Threshold float64
	// CacheTTL bounds how long ranked results for a repeated query are
	// served from the topic cache. 0 disables caching.
	CacheTTL time.Duration
}

// Retriever embeds queries and maps index hits back to catalog entries.
// It is read-only with respect to the index and safe for concurrent use.
type Retriever struct {
	embedder  domain.Embedder
	index     *vecindex.Index
	byID      map[string]domain.CatalogEntry
	threshold float64
	cache     *gocache.Cache
	log       *zap.Logger
}

// New builds a retriever over one catalog/index snapshot. The catalog must
// be the one the index was built from; entries are matched by identifier.
func New(embedder domain.Embedder, index *vecindex.Index, catalog domain.Catalog, cfg Config, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	byID := make(map[string]domain.CatalogEntry, len(catalog))
	for _, e := range catalog {
		byID[e.ID] = e
	}
	var c *gocache.Cache
	if cfg.CacheTTL > 0 {
		c = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		byID:      byID,
		threshold: cfg.Threshold,
		cache:     c,
		log:       log,
	}
}

// Search returns up to topK catalog entries ranked by descending similarity
// to the query, ties broken by ascending catalog order. An empty or missing
// index yields an empty result, never an error; an empty query fails with
// ErrInvalidQuery.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	if topK <= 0 || r.index.Len() == 0 {
		return nil, nil
	}

	key := cacheKey(q, topK)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			r.log.Debug("topic cache hit", zap.String("query", q), zap.Int("top_k", topK))
			return append([]domain.SearchResult(nil), cached.([]domain.SearchResult)...), nil
		}
	}

	vec, err := r.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits, err := r.index.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	results := r.collect(hits)

	if r.cache != nil {
		// store a private copy; the returned slice belongs to the caller
		r.cache.Set(key, append([]domain.SearchResult(nil), results...), gocache.DefaultExpiration)
	}
	r.log.Debug("retrieved context",
		zap.String("query", q),
		zap.Int("top_k", topK),
		zap.Int("results", len(results)))
	return results, nil
}

// SearchUnit restricts retrieval to one unit code. With an empty query the
// unit's entries are returned in catalog order; otherwise they are ranked
// by similarity like Search.
func (r *Retriever) SearchUnit(ctx context.Context, unit, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 || r.index.Len() == 0 {
		return nil, nil
	}
	q := strings.TrimSpace(query)
	if q == "" {
		var results []domain.SearchResult
		for pos := 0; pos < r.index.Len() && len(results) < topK; pos++ {
			ie := r.index.EntryAt(pos)
			if !strings.EqualFold(ie.Unit, unit) {
				continue
			}
			if entry, ok := r.byID[ie.ID]; ok {
				results = append(results, domain.SearchResult{Entry: entry, Rank: len(results) + 1})
			}
		}
		return results, nil
	}

	vec, err := r.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	// rank the whole index, then keep the unit's hits
	hits, err := r.index.Search(vec, r.index.Len())
	if err != nil {
		return nil, err
	}
	filtered := hits[:0]
	for _, h := range hits {
		if strings.EqualFold(r.index.EntryAt(h.Pos).Unit, unit) {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return r.collect(filtered), nil
}

func (r *Retriever) collect(hits []vecindex.Hit) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		if r.threshold > 0 && h.Score < r.threshold {
			continue
		}
		entry, ok := r.byID[r.index.EntryAt(h.Pos).ID]
		if !ok {
			// index built from a different catalog; skip rather than fail
			continue
		}
		results = append(results, domain.SearchResult{
			Entry: entry,
			Score: h.Score,
			Rank:  len(results) + 1,
		})
	}
	return results
}

func cacheKey(query string, topK int) string {
	return strings.ToLower(query) + "|" + strconv.Itoa(topK)
}
