package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examqa/internal/domain"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("EXAMQA_TEST_KEY", "")
	_, err := New(Config{APIKeyEnv: "EXAMQA_TEST_KEY"})
	assert.Error(t, err)
}

func TestEmbedNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[3,4]}],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	t.Setenv("EXAMQA_TEST_KEY", "sk-test")
	e, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "EXAMQA_TEST_KEY", Model: "text-embedding-3-small"})
	require.NoError(t, err)
	assert.Equal(t, "openai/text-embedding-3-small", e.Name())

	vec, err := e.Embed(context.Background(), "define normalization")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbedConcurrentFirstUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[3,4]}],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	t.Setenv("EXAMQA_TEST_KEY", "sk-test")
	e, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "EXAMQA_TEST_KEY", Model: "text-embedding-3-small"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := e.Embed(context.Background(), "define normalization")
			assert.NoError(t, err)
			assert.Len(t, vec, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, e.Dimension())
}

func TestEmbedEmptyText(t *testing.T) {
	t.Setenv("EXAMQA_TEST_KEY", "sk-test")
	e, err := New(Config{APIKeyEnv: "EXAMQA_TEST_KEY"})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}
