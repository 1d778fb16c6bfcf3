package vector

import (
	"context"
	"fmt"
	"strings"

	"supportbot/internal/config"
	"supportbot/internal/models"
	"supportbot/internal/storage"
)

// Store persists embedded chunks and answers threshold-bounded similarity
// queries. Search results are ordered by similarity, highest first.
type Store interface {
	PutDocument(ctx context.Context, doc models.Document) error
	PutChunks(ctx context.Context, doc models.Document, chunks []models.Chunk) error
	Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]models.Match, error)
}

// Open builds the backend named by cfg.VectorBackend. db is only required
// for pgvector.
func Open(ctx context.Context, cfg config.Config, db *storage.DB) (Store, error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "", "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector backend requires a postgres connection")
		}
		return NewPGStore(db), nil
	case "qdrant":
		s, err := NewQdrantStore(QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.EmbedDim,
			Timeout:    cfg.RAG.Timeouts.Search,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.VectorBackend)
	}
}

// PGStore keeps documents and chunks in Postgres and searches with pgvector.
type PGStore struct {
	docs     *storage.DocumentRepo
	chunks   *storage.ChunkRepo
	searcher *Searcher
}

func NewPGStore(db *storage.DB) *PGStore {
	return &PGStore{
		docs:     storage.NewDocumentRepo(db),
		chunks:   storage.NewChunkRepo(db),
		searcher: NewSearcher(db.Pool),
	}
}

func (s *PGStore) PutDocument(ctx context.Context, doc models.Document) error {
	return s.docs.CreateDocument(ctx, doc)
}

func (s *PGStore) PutChunks(ctx context.Context, _ models.Document, chunks []models.Chunk) error {
	records := make([]storage.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d of document %s has no embedding", c.ChunkIndex, c.DocumentID)
		}
		records = append(records, storage.ChunkRecord{
			ChunkID:         c.ChunkID,
			DocumentID:      c.DocumentID,
			ChunkIndex:      c.ChunkIndex,
			Content:         c.Content,
			EmbeddingVector: ToLiteral(c.Embedding),
		})
	}
	return s.chunks.InsertChunks(ctx, records)
}

func (s *PGStore) Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]models.Match, error) {
	return s.searcher.Search(ctx, vec, threshold, limit)
}
