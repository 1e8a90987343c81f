package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data/past_questions.json", cfg.Corpus.Path)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 0.3, cfg.Retrieval.Threshold)
	assert.Equal(t, "llama3", cfg.Generation.Model)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.Equal(t, 512, cfg.Generation.MaxTokens)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpus:
  path: /srv/questions.json
embedder:
  type: openai
  dimension: 1536
  openai:
    model: text-embedding-3-small
retrieval:
  top_k: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/questions.json", cfg.Corpus.Path)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1536, cfg.Embedder.Dimension)

	// gaps filled with defaults
	assert.Equal(t, "data/index", cfg.Index.Dir)
	assert.Equal(t, 300, cfg.Retrieval.CacheTTLSecs)
	assert.Equal(t, "llama3", cfg.Generation.Model)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.Corpus.Path = "elsewhere.json"
	want.Index.Qdrant = &QdrantConfig{URL: "http://localhost:6333", Collection: "exams"}

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, want.Corpus.Path, got.Corpus.Path)
	assert.Equal(t, want.Retrieval, got.Retrieval)
	require.NotNil(t, got.Index.Qdrant)
	assert.Equal(t, "exams", got.Index.Qdrant.Collection)
}
