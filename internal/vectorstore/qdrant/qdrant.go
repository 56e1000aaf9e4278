package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     arbor.ILogger
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config, logger arbor.ILogger) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// EnsureCollection creates the collection unless it already exists.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.Errorf(domain.ErrValidation, "invalid dimension %d", dimension)
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return domain.Wrap(domain.ErrStore, err, "get collection")
	}
	if status == http.StatusOK {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return domain.Wrap(domain.ErrStore, err, "create collection")
	}
	s.logger.Info().Str("collection", s.collection).Int("dimension", dimension).Msg("Created Qdrant collection")
	return nil
}

// Upsert writes records as points. Qdrant only accepts UUID or integer ids, so other
// ids are mapped to a name-based UUID and kept in the payload.
func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     pointID(r.ID),
			"vector": r.Vector,
			"payload": map[string]any{
				"record_id": r.ID,
				"text":      r.Text,
				"metadata":  r.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
		return domain.Wrap(domain.ErrStore, err, "upsert points")
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, domain.Wrap(domain.ErrStore, err, "search points")
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		res := domain.SearchResult{ID: fmt.Sprint(r.ID), Score: r.Score}
		if v, ok := r.Payload["record_id"].(string); ok && v != "" {
			res.ID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			res.Text = v
		}
		if v, ok := r.Payload["metadata"].(map[string]any); ok {
			res.Metadata = v
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/count", map[string]any{"exact": true}, &resp)
	if status == http.StatusNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, domain.Wrap(domain.ErrStore, err, "count points")
	}
	return resp.Result.Count, nil
}

// Clear drops the collection; the next EnsureCollection recreates it.
func (s *Storage) Clear(ctx context.Context) error {
	status, err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return domain.Wrap(domain.ErrStore, err, "delete collection")
	}
	return nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// do sends body as JSON and decodes the response into out. It returns the HTTP status
// (0 on transport errors) and an error for any non-2xx response.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func pointID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
