package vecindex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"examqa/internal/domain"
)

// Entry is the per-position identifier mapping persisted with the vectors.
type Entry struct {
	ID   string `json:"id"`
	Unit string `json:"unit"`
	Year int    `json:"year,omitempty"`
}

// Index is an immutable nearest-neighbor structure over catalog entries.
// Position i in entries corresponds to row i in vectors; searches are
// read-only, so an Index is safe for concurrent use. Replacing the corpus
// means building a new Index, never mutating a live one.
type Index struct {
	modelID string
	dim     int
	entries []Entry
	vectors [][]float32
}

// Hit is one search match: a vector position and its similarity score.
type Hit struct {
	Pos   int
	Score float64
}

// Build embeds every catalog entry and constructs the index. It fails with
// ErrEmbedding when an entry text is empty after trimming, and is idempotent
// for a given catalog and embedding model.
func Build(ctx context.Context, embedder domain.Embedder, catalog domain.Catalog) (*Index, error) {
	ix := &Index{
		modelID: embedder.Name(),
		entries: make([]Entry, 0, len(catalog)),
		vectors: make([][]float32, 0, len(catalog)),
	}
	for i, e := range catalog {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("%w: entry %s has empty text", domain.ErrEmbedding, e.ID)
		}
		vec, err := embedder.Embed(ctx, e.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding entry %d (%s): %w", i, e.ID, err)
		}
		if ix.dim == 0 {
			ix.dim = len(vec)
		} else if len(vec) != ix.dim {
			return nil, fmt.Errorf("%w: entry %s has dimension %d, index has %d", domain.ErrEmbedding, e.ID, len(vec), ix.dim)
		}
		ix.entries = append(ix.entries, Entry{ID: e.ID, Unit: e.Unit, Year: e.Year})
		ix.vectors = append(ix.vectors, vec)
	}
	return ix, nil
}

// Search returns up to k nearest neighbors by similarity, highest first,
// ties broken by ascending position. An empty index yields an empty result.
// Vectors are L2-normalized at embed time, so the score is the cosine
// similarity computed as a plain dot product.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if ix == nil || len(ix.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrIndexCorrupt, len(query), ix.dim)
	}
	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Pos: i, Score: dot(v, query)}
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Pos < hits[b].Pos
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Dim returns the vector dimensionality fixed at build time.
func (ix *Index) Dim() int { return ix.dim }

// ModelID returns the embedding model identifier the index was built with.
func (ix *Index) ModelID() string { return ix.modelID }

// EntryAt returns the identifier mapping for a vector position.
func (ix *Index) EntryAt(pos int) Entry { return ix.entries[pos] }

// VectorAt returns the embedding at a vector position. Callers must not
// mutate the returned slice.
func (ix *Index) VectorAt(pos int) []float32 { return ix.vectors[pos] }

// EntryIDs returns the identifiers in index order.
func (ix *Index) EntryIDs() []string {
	ids := make([]string, len(ix.entries))
	for i, e := range ix.entries {
		ids[i] = e.ID
	}
	return ids
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
