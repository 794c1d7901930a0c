package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ragserve/ragserve/engine/core"
)

type qdrantStore struct {
	client     *http.Client
	baseURL    string
	collection string
	dimension  int
	maxTopK    int
	apiKey     string
}

// qdrantSearchResult captures the fields returned by Qdrant search responses.
type qdrantSearchResult struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantScrollPoint struct {
	ID      any            `json:"id"`
	Payload map[string]any `json:"payload"`
}

const (
	qdrantDefaultTimeout = 10 * time.Second
	qdrantScrollPageSize = 256
)

func newQdrantStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vectordb config is required")
	}
	base := strings.TrimRight(cfg.DSN, "/")
	if base == "" {
		return nil, fmt.Errorf("vectordb %q: qdrant dsn is required", cfg.ID)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = cfg.Table
	}
	if collection == "" {
		collection = cfg.ID
	}
	store := &qdrantStore{
		client:     &http.Client{Timeout: qdrantDefaultTimeout},
		baseURL:    base,
		collection: collection,
		dimension:  cfg.Dimension,
		maxTopK:    cfg.MaxTopK,
	}
	if key, ok := cfg.Auth["api_key"]; ok {
		store.apiKey = key
	}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (q *qdrantStore) ensureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": "Cosine",
		},
	}
	return q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", q.collection), body, nil)
}

func (q *qdrantStore) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]any, 0, len(records))
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != q.dimension {
			return fmt.Errorf("qdrant: record %q dimension mismatch", rec.ID)
		}
		payload := core.CloneMap(rec.Metadata)
		if payload == nil {
			payload = make(map[string]any)
		}
		payload["text"] = rec.Text
		points = append(points, map[string]any{
			"id":      rec.ID,
			"vector":  rec.Embedding,
			"payload": payload,
		})
	}
	body := map[string]any{
		"points": points,
	}
	return q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points", q.collection), body, nil)
}

func (q *qdrantStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if len(embedding) != q.dimension {
		return nil, fmt.Errorf("qdrant: query dimension mismatch")
	}
	request := map[string]any{
		"vector":       embedding,
		"limit":        clampTopK(topK, q.maxTopK),
		"with_payload": true,
	}
	var response struct {
		Result []qdrantSearchResult `json:"result"`
	}
	searchPath := fmt.Sprintf("/collections/%s/points/search", q.collection)
	if err := q.doRequest(ctx, http.MethodPost, searchPath, request, &response); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(response.Result))
	for _, res := range response.Result {
		payload := core.CloneMap(res.Payload)
		if payload == nil {
			payload = make(map[string]any)
		}
		text := ""
		if raw, ok := payload["text"].(string); ok {
			text = raw
			delete(payload, "text")
		}
		// Qdrant reports cosine similarity for cosine collections.
		matches = append(matches, Match{
			ID:       fmt.Sprint(res.ID),
			Distance: 1 - res.Score,
			Text:     text,
			Metadata: payload,
		})
	}
	return matches, nil
}

func (q *qdrantStore) Count(ctx context.Context) (int, error) {
	var response struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	countPath := fmt.Sprintf("/collections/%s/points/count", q.collection)
	if err := q.doRequest(ctx, http.MethodPost, countPath, map[string]any{"exact": true}, &response); err != nil {
		return 0, err
	}
	return response.Result.Count, nil
}

func (q *qdrantStore) Scan(ctx context.Context) ([]Entry, error) {
	scrollPath := fmt.Sprintf("/collections/%s/points/scroll", q.collection)
	entries := make([]Entry, 0)
	var offset any
	for {
		request := map[string]any{
			"limit":        qdrantScrollPageSize,
			"with_payload": true,
		}
		if offset != nil {
			request["offset"] = offset
		}
		var response struct {
			Result struct {
				Points         []qdrantScrollPoint `json:"points"`
				NextPageOffset any                 `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := q.doRequest(ctx, http.MethodPost, scrollPath, request, &response); err != nil {
			return nil, err
		}
		for _, point := range response.Result.Points {
			payload := core.CloneMap(point.Payload)
			if payload == nil {
				payload = make(map[string]any)
			}
			delete(payload, "text")
			entries = append(entries, Entry{ID: fmt.Sprint(point.ID), Metadata: payload})
		}
		if response.Result.NextPageOffset == nil || len(response.Result.Points) == 0 {
			return entries, nil
		}
		offset = response.Result.NextPageOffset
	}
}

func (q *qdrantStore) Close(context.Context) error {
	return nil
}

func (q *qdrantStore) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var buf *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		buf = bytes.NewReader(payload)
	} else {
		buf = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("qdrant: read response: %w", readErr)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Result any    `json:"result"`
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(payload, &apiErr); err != nil {
			return fmt.Errorf("qdrant: request failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("qdrant: %s (%d): %s", apiErr.Error, resp.StatusCode, apiErr.Status)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return nil
}
