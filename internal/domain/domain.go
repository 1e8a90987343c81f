package domain

import "context"

// CatalogEntry is one past exam question loaded from the question bank.
// Entries are immutable once loaded; identity is stable across rebuilds.
type CatalogEntry struct {
	ID       string
	Text     string
	Unit     string
	Year     int // 0 when the year is unknown
	Metadata map[string]string
}

// Catalog is the ordered sequence of loaded entries. Entry order is stable
// and is the basis for the index-position-to-entry mapping in the vector
// index, so it must never be re-sorted after load.
type Catalog []CatalogEntry

// SearchResult pairs a catalog entry with its relevance score and 1-based
// rank for one query. Higher score means more relevant.
type SearchResult struct {
	Entry CatalogEntry
	Score float64
	Rank  int
}

// AnswerRequest is the composed input handed to the generation backend,
// plus the provenance the UI needs to render the context view.
type AnswerRequest struct {
	Prompt             string
	Mode               Mode
	Context            []SearchResult
	RetrievalAttempted bool
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns the most relevant catalog entries for a query,
// in descending-relevance order.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// Generator is the external text-generation backend. The core composes the
// prompt; generating from it is the collaborator's job.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
