package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examqa/internal/domain"
	"examqa/internal/vecindex"
)

// stubEmbedder returns one-hot vectors by text.
type stubEmbedder struct{ vectors map[string][]float32 }

func (s *stubEmbedder) Name() string { return "stub" }

func (s *stubEmbedder) Prepare(_ []string) error { return nil }

func (s *stubEmbedder) Dimension() int { return 2 }
func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vectors[text], nil
}

func buildIndex(t *testing.T) *vecindex.Index {
	t.Helper()
	emb := &stubEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
	}}
	catalog := domain.Catalog{
		{ID: "CS301#0", Text: "alpha", Unit: "CS301", Year: 2021},
		{ID: "MA203#1", Text: "beta", Unit: "MA203"},
	}
	ix, err := vecindex.Build(context.Background(), emb, catalog)
	require.NoError(t, err)
	return ix
}

func TestPush(t *testing.T) {
	var createBody, upsertBody map[string]any
	var sawAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAPIKey = r.Header.Get("api-key")
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/exams":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&createBody))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/exams/points":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upsertBody))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New(Config{URL: srv.URL, APIKey: "secret", Collection: "exams"})
	require.NoError(t, m.Push(context.Background(), buildIndex(t)))

	assert.Equal(t, "secret", sawAPIKey)
	vectors := createBody["vectors"].(map[string]any)
	assert.Equal(t, float64(2), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	points := upsertBody["points"].([]any)
	require.Len(t, points, 2)
	first := points[0].(map[string]any)
	assert.Equal(t, float64(0), first["id"])
	payload := first["payload"].(map[string]any)
	assert.Equal(t, "CS301#0", payload["entry_id"])
	assert.Equal(t, "CS301", payload["unit"])
	assert.Equal(t, float64(2021), payload["year"])
}

func TestPushEmptyIndex(t *testing.T) {
	m := New(Config{URL: "http://unused", Collection: "exams"})
	assert.Error(t, m.Push(context.Background(), nil))
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/collections/exams/points/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"result": [{"id": 1, "score": 0.93}, {"id": 0, "score": 0.41}]}`))
	}))
	defer srv.Close()

	m := New(Config{URL: srv.URL, Collection: "exams"})
	hits, err := m.Search(context.Background(), []float32{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, vecindex.Hit{Pos: 1, Score: 0.93}, hits[0])
	assert.Equal(t, vecindex.Hit{Pos: 0, Score: 0.41}, hits[1])
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := New(Config{URL: srv.URL, Collection: "exams"})
	_, err := m.Search(context.Background(), []float32{0, 1}, 2)
	assert.Error(t, err)
}
