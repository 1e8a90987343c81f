// Package qdrant mirrors a built index into a Qdrant collection so other
// tools can query the same vectors remotely.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"examqa/internal/vecindex"
)

// Mirror is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Mirror struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Mirror {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Mirror{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Push recreates the collection for the index dimension and upserts every
// entry. Point ids are catalog positions so remote hits map back to the
// local artifact.
func (m *Mirror) Push(ctx context.Context, ix *vecindex.Index) error {
	if ix == nil || ix.Len() == 0 {
		return errors.New("refusing to mirror an empty index")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     ix.Dim(),
			"distance": "Cosine",
		},
	}
	if err := m.putJSON(ctx, fmt.Sprintf("%s/collections/%s", m.url, m.collection), body); err != nil {
		return err
	}

	points := make([]map[string]any, ix.Len())
	for pos := 0; pos < ix.Len(); pos++ {
		e := ix.EntryAt(pos)
		points[pos] = map[string]any{
			"id":     pos,
			"vector": ix.VectorAt(pos),
			"payload": map[string]any{
				"entry_id": e.ID,
				"unit":     e.Unit,
				"year":     e.Year,
				"model_id": ix.ModelID(),
			},
		}
	}
	body = map[string]any{"points": points}
	return m.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", m.url, m.collection), body)
}

// Search queries the mirrored collection and returns hits keyed by catalog
// position, same shape as a local index search.
func (m *Mirror) Search(ctx context.Context, vector []float32, topK int) ([]vecindex.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": false,
	}
	var resp struct {
		Result []struct {
			ID    int     `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := m.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", m.url, m.collection), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]vecindex.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, vecindex.Hit{Pos: r.ID, Score: r.Score})
	}
	return hits, nil
}

// Drop removes the collection. Best-effort.
func (m *Mirror) Drop(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/collections/%s", m.url, m.collection), nil)
	if err != nil {
		return err
	}
	if m.apiKey != "" {
		req.Header.Set("api-key", m.apiKey)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (m *Mirror) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("api-key", m.apiKey)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (m *Mirror) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("api-key", m.apiKey)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
