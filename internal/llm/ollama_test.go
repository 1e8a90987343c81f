package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examqa/internal/domain"
)

func TestNewRequiresModel(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestGenerateAccumulatesStream(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"Normalization is ","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"model":"llama3","response":"the process of organizing data.","done":true}` + "\n"))
	}))
	defer srv.Close()

	gen, err := New(Config{Host: srv.URL, Model: "llama3", Temperature: 0.7, MaxTokens: 512}, nil)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "What is normalization?")
	require.NoError(t, err)
	assert.Equal(t, "Normalization is the process of organizing data.", out)

	assert.Equal(t, "llama3", gotBody["model"])
	assert.Equal(t, "What is normalization?", gotBody["prompt"])
	opts := gotBody["options"].(map[string]any)
	assert.Equal(t, 0.7, opts["temperature"])
	assert.Equal(t, float64(512), opts["num_predict"])
}

func TestGenerateBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	gen, err := New(Config{Host: srv.URL, Model: "llama3"}, nil)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	gen, err := New(Config{Host: srv.URL, Model: "missing"}, nil)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}
