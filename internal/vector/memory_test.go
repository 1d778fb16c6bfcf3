package vector

import (
	"context"
	"testing"

	"supportbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	doc := models.Document{DocumentID: "d1", Title: "Billing FAQ"}
	require.NoError(t, s.PutDocument(context.Background(), doc))
	require.NoError(t, s.PutChunks(context.Background(), doc, []models.Chunk{
		{ChunkID: "c0", DocumentID: "d1", ChunkIndex: 0, Content: "refunds", Embedding: []float32{1, 0, 0}},
		{ChunkID: "c1", DocumentID: "d1", ChunkIndex: 1, Content: "invoices", Embedding: []float32{0.8, 0.6, 0}},
		{ChunkID: "c2", DocumentID: "d1", ChunkIndex: 2, Content: "shipping", Embedding: []float32{0, 0, 1}},
	}))
	return s
}

func TestMemoryStoreSearchOrdersAndFilters(t *testing.T) {
	s := seedMemory(t)
	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c0", got[0].ChunkID)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)
	assert.Equal(t, "c1", got[1].ChunkID)
	assert.InDelta(t, 0.8, got[1].Similarity, 1e-6)
	assert.Equal(t, "Billing FAQ", got[1].Title)
}

func TestMemoryStoreSearchLimit(t *testing.T) {
	s := seedMemory(t)
	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 0, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c0", got[0].ChunkID)
}

func TestMemoryStoreNothingAboveThreshold(t *testing.T) {
	s := seedMemory(t)
	got, err := s.Search(context.Background(), []float32{0, 1, 0}, 0.9, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreIgnoresDuplicateChunkIDs(t *testing.T) {
	s := seedMemory(t)
	doc := models.Document{DocumentID: "d1", Title: "Billing FAQ"}
	require.NoError(t, s.PutChunks(context.Background(), doc, []models.Chunk{
		{ChunkID: "c0", DocumentID: "d1", ChunkIndex: 0, Content: "changed", Embedding: []float32{0, 1, 0}},
	}))
	assert.Equal(t, 3, s.Len())
}

func TestMemoryStoreRejectsMissingEmbedding(t *testing.T) {
	s := NewMemoryStore()
	err := s.PutChunks(context.Background(), models.Document{DocumentID: "d"}, []models.Chunk{{ChunkID: "x"}})
	require.Error(t, err)
}

func TestMemoryStoreRejectedBatchWritesNothing(t *testing.T) {
	s := NewMemoryStore()
	err := s.PutChunks(context.Background(), models.Document{DocumentID: "d"}, []models.Chunk{
		{ChunkID: "a", DocumentID: "d", ChunkIndex: 0, Embedding: []float32{1, 0}},
		{ChunkID: "b", DocumentID: "d", ChunkIndex: 1},
	})
	require.Error(t, err)
	require.Equal(t, 0, s.Len())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}
