package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"supportbot/internal/models"
)

// MemoryStore is a process-local Store for tests and single-node demos.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]models.Document
	chunks map[string]models.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   map[string]models.Document{},
		chunks: map[string]models.Chunk{},
	}
}

func (s *MemoryStore) PutDocument(_ context.Context, doc models.Document) error {
	if doc.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.DocumentID] = doc
	return nil
}

func (s *MemoryStore) PutChunks(_ context.Context, doc models.Document, chunks []models.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d of document %s has no embedding", c.ChunkIndex, c.DocumentID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.DocumentID]; !ok {
		s.docs[doc.DocumentID] = doc
	}
	for _, c := range chunks {
		if _, exists := s.chunks[c.ChunkID]; exists {
			continue
		}
		s.chunks[c.ChunkID] = c
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Match, 0)
	for _, c := range s.chunks {
		sim := Cosine(vec, c.Embedding)
		if sim < threshold {
			continue
		}
		out = append(out, models.Match{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Title:      s.docs[c.DocumentID].Title,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			Similarity: sim,
		})
	}
	return rankMatches(out, limit), nil
}

// rankMatches orders brute-force hits like the pgvector query does and
// truncates to limit.
func rankMatches(out []models.Match, limit int) []models.Match {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].ChunkIndex != out[j].ChunkIndex {
			return out[i].ChunkIndex < out[j].ChunkIndex
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len reports how many chunks are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
