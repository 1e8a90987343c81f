package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"examqa/internal/domain"
)

// Request carries one answer request from the presentation layer. Mode is
// kept as the caller's raw string and validated at this boundary.
type Request struct {
	Query        string
	Mode         string
	UseRetrieval bool
	TopK         int
}

// Orchestrator decides whether to retrieve context for a query and composes
// the generation request. It holds no per-request state and is safe for
// concurrent use; it never mutates the catalog or index it reads through
// the retriever.
type Orchestrator struct {
	retriever domain.Retriever
	log       *zap.Logger
}

// New creates an orchestrator. retriever may be nil, in which case every
// request proceeds without context.
func New(retriever domain.Retriever, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{retriever: retriever, log: log}
}

// Answer validates the request, optionally retrieves context, and composes
// the prompt for the generation backend. Retrieval failures other than a
// malformed query degrade to an answer without context; they never block
// generation. The returned request carries the retrieved entries so the UI
// can render provenance.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*domain.AnswerRequest, error) {
	// query emptiness is checked before the mode: a blank query is invalid
	// regardless of what mode it was asked in
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	attempted := false
	if req.UseRetrieval && req.TopK > 0 && o.retriever != nil {
		attempted = true
		results, err = o.retriever.Search(ctx, query, req.TopK)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidQuery) {
				return nil, err
			}
			// best effort: answer without context rather than fail
			o.log.Warn("retrieval failed, continuing without context",
				zap.String("mode", mode.String()),
				zap.Error(err))
			results = nil
		}
	}

	return &domain.AnswerRequest{
		Prompt:             composePrompt(mode, query, results),
		Mode:               mode,
		Context:            results,
		RetrievalAttempted: attempted,
	}, nil
}
