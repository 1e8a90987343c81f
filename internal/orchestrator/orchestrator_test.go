package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examqa/internal/domain"
	"examqa/internal/embedding/tfidf"
	"examqa/internal/retriever"
	"examqa/internal/vecindex"
)

// stubRetriever counts invocations and returns canned results or an error.
type stubRetriever struct {
	results []domain.SearchResult
	err     error
	calls   int
}

func (s *stubRetriever) Search(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	s.calls++
	return s.results, s.err
}

func someResults() []domain.SearchResult {
	return []domain.SearchResult{
		{Entry: domain.CatalogEntry{ID: "CS301#0", Text: "Define normalization", Unit: "CS301", Year: 2021}, Score: 0.82, Rank: 1},
		{Entry: domain.CatalogEntry{ID: "CS301#1", Text: "Explain third normal form", Unit: "CS301"}, Score: 0.64, Rank: 2},
	}
}

func TestAnswerWithRetrieval(t *testing.T) {
	ret := &stubRetriever{results: someResults()}
	o := New(ret, nil)

	got, err := o.Answer(context.Background(), Request{
		Query:        "What is normalization?",
		Mode:         "exam",
		UseRetrieval: true,
		TopK:         3,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ret.calls)
	assert.True(t, got.RetrievalAttempted)
	assert.Equal(t, domain.ModeExam, got.Mode)
	assert.Len(t, got.Context, 2)

	assert.Contains(t, got.Prompt, "RELEVANT PAST PAPER QUESTIONS:")
	assert.Contains(t, got.Prompt, "[Q1] Unit: CS301, Year: 2021 (relevance 0.82)")
	assert.Contains(t, got.Prompt, "[Q2] Unit: CS301, Year: unknown (relevance 0.64)")
	assert.Contains(t, got.Prompt, "QUESTION:\nWhat is normalization?")
	assert.True(t, strings.HasSuffix(got.Prompt, "ANSWER:"))
}

func TestAnswerWithoutRetrievalNeverSearches(t *testing.T) {
	ret := &stubRetriever{results: someResults()}
	o := New(ret, nil)

	got, err := o.Answer(context.Background(), Request{
		Query:        "What is normalization?",
		Mode:         "global",
		UseRetrieval: false,
		TopK:         3,
	})
	require.NoError(t, err)

	assert.Zero(t, ret.calls)
	assert.False(t, got.RetrievalAttempted)
	assert.Empty(t, got.Context)
	assert.NotContains(t, got.Prompt, "RELEVANT PAST PAPER QUESTIONS")
}

func TestAnswerZeroTopKSkipsRetrieval(t *testing.T) {
	ret := &stubRetriever{results: someResults()}
	o := New(ret, nil)

	got, err := o.Answer(context.Background(), Request{
		Query:        "anything",
		Mode:         "exam",
		UseRetrieval: true,
		TopK:         0,
	})
	require.NoError(t, err)
	assert.Zero(t, ret.calls)
	assert.False(t, got.RetrievalAttempted)
}

func TestAnswerNilRetriever(t *testing.T) {
	o := New(nil, nil)
	got, err := o.Answer(context.Background(), Request{
		Query:        "anything",
		Mode:         "mixed",
		UseRetrieval: true,
		TopK:         3,
	})
	require.NoError(t, err)
	assert.False(t, got.RetrievalAttempted)
	assert.Empty(t, got.Context)
}

func TestAnswerUnknownMode(t *testing.T) {
	o := New(&stubRetriever{}, nil)
	_, err := o.Answer(context.Background(), Request{Query: "q", Mode: "hybrid"})
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
}

func TestAnswerEmptyQuery(t *testing.T) {
	o := New(&stubRetriever{}, nil)
	_, err := o.Answer(context.Background(), Request{Query: "  ", Mode: "exam"})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestAnswerEmptyQueryWinsOverUnknownMode(t *testing.T) {
	o := New(&stubRetriever{}, nil)
	for _, mode := range []string{"bogus", "", "exam"} {
		_, err := o.Answer(context.Background(), Request{Query: "  ", Mode: mode})
		assert.ErrorIs(t, err, domain.ErrInvalidQuery, "mode %q", mode)
	}
}

func TestAnswerDegradesOnRetrievalFailure(t *testing.T) {
	ret := &stubRetriever{err: fmt.Errorf("%w: backend down", domain.ErrEmbedding)}
	o := New(ret, nil)

	got, err := o.Answer(context.Background(), Request{
		Query:        "What is normalization?",
		Mode:         "exam",
		UseRetrieval: true,
		TopK:         3,
	})
	require.NoError(t, err)
	assert.True(t, got.RetrievalAttempted)
	assert.Empty(t, got.Context)
	assert.NotContains(t, got.Prompt, "RELEVANT PAST PAPER QUESTIONS")
}

func TestAnswerPropagatesInvalidQueryFromRetriever(t *testing.T) {
	ret := &stubRetriever{err: fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)}
	o := New(ret, nil)

	_, err := o.Answer(context.Background(), Request{
		Query:        "q",
		Mode:         "exam",
		UseRetrieval: true,
		TopK:         3,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuery))
}

func TestAnswerEndToEnd(t *testing.T) {
	catalog := domain.Catalog{
		{ID: "CS201#0", Text: "DBMS normalization basics", Unit: "CS201", Year: 2022},
		{ID: "CS101#1", Text: "OOP inheritance", Unit: "CS101", Year: 2021},
	}
	texts := []string{catalog[0].Text, catalog[1].Text}
	emb := tfidf.New()
	require.NoError(t, emb.Prepare(texts))
	ix, err := vecindex.Build(context.Background(), emb, catalog)
	require.NoError(t, err)
	ret := retriever.New(emb, ix, catalog, retriever.Config{}, nil)

	got, err := New(ret, nil).Answer(context.Background(), Request{
		Query:        "What is database normalization?",
		Mode:         "exam",
		UseRetrieval: true,
		TopK:         1,
	})
	require.NoError(t, err)

	require.Len(t, got.Context, 1)
	assert.Equal(t, "CS201#0", got.Context[0].Entry.ID)
	assert.Equal(t, 1, got.Context[0].Rank)
	assert.Contains(t, got.Prompt, "DBMS normalization basics")
}

func TestComposePromptPerMode(t *testing.T) {
	for _, mode := range domain.Modes() {
		prompt := composePrompt(mode, "What is a B-tree?", nil)
		assert.Contains(t, prompt, instructions[mode], "mode %s", mode)
		assert.Contains(t, prompt, "QUESTION:\nWhat is a B-tree?")
	}
}

func TestFormatContextBounds(t *testing.T) {
	long := strings.Repeat("x", 600)
	var results []domain.SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, domain.SearchResult{
			Entry: domain.CatalogEntry{ID: fmt.Sprintf("CS301#%d", i), Text: long, Unit: "CS301", Year: 2020},
			Score: 0.9,
			Rank:  i + 1,
		})
	}

	block := formatContext(results)
	assert.LessOrEqual(t, len(block), maxContextChars+60)
	assert.Contains(t, block, "more questions")
	// each snippet is truncated before the block limit applies
	assert.NotContains(t, block, strings.Repeat("x", maxSnippetChars+1))
}

func TestFormatContextEmpty(t *testing.T) {
	assert.Empty(t, formatContext(nil))
}

func TestFormatContextKeepsValidUTF8(t *testing.T) {
	// the leading "a" misaligns the two-byte runes so one straddles the
	// snippet limit; it must not be split
	long := "a" + strings.Repeat("é", maxSnippetChars)
	block := formatContext([]domain.SearchResult{
		{Entry: domain.CatalogEntry{ID: "CS301#0", Text: long, Unit: "CS301", Year: 2021}, Score: 0.9, Rank: 1},
	})
	assert.True(t, utf8.ValidString(block))
	assert.NotContains(t, block, string(utf8.RuneError))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "ab", truncateRunes("abcd", 2))
	// "éé" is 4 bytes; cutting at 3 must step back to the rune boundary
	assert.Equal(t, "é", truncateRunes("éé", 3))
	assert.True(t, utf8.ValidString(truncateRunes(strings.Repeat("世", 100), 50)))
}
