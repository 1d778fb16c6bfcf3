package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"supportbot/internal/models"

	"github.com/google/uuid"
)

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// QdrantStore talks to Qdrant's REST API. Document titles ride along in each
// point's payload, so PutDocument has nothing to write.
type QdrantStore struct {
	cfg    QdrantConfig
	client *http.Client
}

func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &QdrantStore{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// EnsureCollection creates the collection with cosine distance if missing.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	status, _, err := s.do(ctx, http.MethodGet, "/collections/"+s.cfg.Collection, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("qdrant get collection: status %d", status)
	}
	body := map[string]any{
		"vectors": map[string]any{"size": s.cfg.Dimension, "distance": "Cosine"},
	}
	status, raw, err := s.do(ctx, http.MethodPut, "/collections/"+s.cfg.Collection, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("qdrant create collection: status %d: %s", status, raw)
	}
	return nil
}

func (s *QdrantStore) PutDocument(context.Context, models.Document) error {
	return nil
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *QdrantStore) PutChunks(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]qdrantPoint, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d of document %s has no embedding", c.ChunkIndex, c.DocumentID)
		}
		points = append(points, qdrantPoint{
			ID:     PointID(c.ChunkID),
			Vector: c.Embedding,
			Payload: map[string]any{
				"chunk_id":    c.ChunkID,
				"document_id": c.DocumentID,
				"title":       doc.Title,
				"chunk_index": c.ChunkIndex,
				"content":     c.Content,
			},
		})
	}
	path := "/collections/" + s.cfg.Collection + "/points?wait=true"
	status, raw, err := s.do(ctx, http.MethodPut, path, map[string]any{"points": points})
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("qdrant upsert points: status %d: %s", status, raw)
	}
	return nil
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			ChunkID    string `json:"chunk_id"`
			DocumentID string `json:"document_id"`
			Title      string `json:"title"`
			ChunkIndex int    `json:"chunk_index"`
			Content    string `json:"content"`
		} `json:"payload"`
	} `json:"result"`
}

func (s *QdrantStore) Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]models.Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 8
	}
	body := map[string]any{
		"vector":          vec,
		"limit":           limit,
		"score_threshold": threshold,
		"with_payload":    true,
	}
	status, raw, err := s.do(ctx, http.MethodPost, "/collections/"+s.cfg.Collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("qdrant search: status %d: %s", status, raw)
	}
	var resp qdrantSearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode qdrant search: %w", err)
	}
	out := make([]models.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, models.Match{
			ChunkID:    r.Payload.ChunkID,
			DocumentID: r.Payload.DocumentID,
			Title:      r.Payload.Title,
			ChunkIndex: r.Payload.ChunkIndex,
			Content:    r.Payload.Content,
			Similarity: r.Score,
		})
	}
	return out, nil
}

// PointID maps a chunk id onto the UUID space Qdrant requires for string ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode qdrant request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.URL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read qdrant response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
