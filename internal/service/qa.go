package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"examqa/internal/domain"
	"examqa/internal/orchestrator"
	"examqa/internal/resources"
)

// RetrievalChoice controls whether a question is answered with retrieved
// past-paper context.
type RetrievalChoice int

const (
	// RetrievalAuto lets the query heuristic decide.
	RetrievalAuto RetrievalChoice = iota
	// RetrievalOn always retrieves.
	RetrievalOn
	// RetrievalOff never retrieves.
	RetrievalOff
)

func (c RetrievalChoice) String() string {
	switch c {
	case RetrievalOn:
		return "on"
	case RetrievalOff:
		return "off"
	default:
		return "auto"
	}
}

// AskOptions configures a single question.
type AskOptions struct {
	Mode      domain.Mode
	Retrieval RetrievalChoice
	TopK      int
}

// Answer is the result of one question.
type Answer struct {
	Text           string
	Context        []domain.SearchResult
	RetrievalUsed  bool
	HeuristicScore float64
}

// QA answers questions: it resolves the current resource snapshot, decides
// on retrieval, composes the prompt and calls the generation backend.
type QA struct {
	resources *resources.Manager
	generator domain.Generator
	log       *zap.Logger
}

// New creates the question-answering service.
func New(res *resources.Manager, gen domain.Generator, log *zap.Logger) *QA {
	if log == nil {
		log = zap.NewNop()
	}
	return &QA{resources: res, generator: gen, log: log}
}

// Ask answers one question. Retrieval failures degrade to a context-free
// answer; a generation backend failure is returned as
// domain.ErrGenerationUnavailable.
func (q *QA) Ask(ctx context.Context, query string, opts AskOptions) (*Answer, error) {
	snap, err := q.resources.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading resources: %w", err)
	}

	if opts.Mode == "" {
		opts.Mode = domain.ModeExam
	}
	use := false
	score := 0.0
	switch opts.Retrieval {
	case RetrievalOn:
		use = true
	case RetrievalOff:
		use = false
	default:
		use, score = orchestrator.ShouldRetrieve(query)
	}

	orch := orchestrator.New(snap.Retriever, q.log)
	req, err := orch.Answer(ctx, orchestrator.Request{
		Query:        query,
		Mode:         string(opts.Mode),
		UseRetrieval: use,
		TopK:         opts.TopK,
	})
	if err != nil {
		return nil, err
	}

	text, err := q.generator.Generate(ctx, req.Prompt)
	if err != nil {
		return nil, err
	}

	q.log.Info("question answered",
		zap.String("mode", string(req.Mode)),
		zap.Bool("retrieval", req.RetrievalAttempted),
		zap.Int("context", len(req.Context)))

	return &Answer{
		Text:           text,
		Context:        req.Context,
		RetrievalUsed:  req.RetrievalAttempted,
		HeuristicScore: score,
	}, nil
}

// Reload rebuilds the corpus resources and returns the fresh catalog stats.
func (q *QA) Reload(ctx context.Context) (domain.Stats, error) {
	snap, err := q.resources.Reload(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return snap.Catalog.Stats(), nil
}

// Stats reports catalog statistics from the current snapshot.
func (q *QA) Stats(ctx context.Context) (domain.Stats, error) {
	snap, err := q.resources.Get(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return snap.Catalog.Stats(), nil
}
