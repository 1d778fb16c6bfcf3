package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/rag"
	"supportbot/internal/util"
	"supportbot/internal/vector"

	"github.com/google/uuid"
)

const DefaultTitle = "Untitled"

type Result struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunkCount"`
}

// Service indexes one document per call: chunk, embed in batches and store
// each batch as soon as its embeddings are back.
type Service struct {
	embedder     *rag.Embedder
	store        vector.Store
	chunkSize    int
	chunkOverlap int
	log          *logging.Logger
}

func NewService(embedder *rag.Embedder, store vector.Store, cfg config.RAGConfig, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		embedder:     embedder,
		store:        store,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		log:          log.With("component", "ingest"),
	}
}

func (s *Service) Ingest(ctx context.Context, title, content string) (Result, error) {
	text := util.SanitizeText(content)
	if text == "" {
		return Result{}, fmt.Errorf("%w: content is required", util.ErrInvalidParameter)
	}
	title = NormalizeTitle(title)

	parts, err := util.ChunkText(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return Result{}, err
	}
	if len(parts) == 0 {
		return Result{}, fmt.Errorf("%w: no chunkable content", util.ErrInvalidParameter)
	}

	doc := models.Document{
		DocumentID: uuid.NewString(),
		Title:      title,
		Content:    text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.PutDocument(ctx, doc); err != nil {
		return Result{}, fmt.Errorf("store document: %w", err)
	}

	chunks := BuildChunks(doc.DocumentID, parts)
	err = s.embedder.EmbedBatches(ctx, parts, func(offset int, vectors [][]float32) error {
		batch := chunks[offset : offset+len(vectors)]
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
		if err := s.store.PutChunks(ctx, doc, batch); err != nil {
			return fmt.Errorf("store chunks at %d: %w", offset, err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("ingest failed", "document_id", doc.DocumentID, "title", title, "error", err)
		return Result{}, err
	}

	s.log.Info("document ingested", "document_id", doc.DocumentID, "title", title, "chunks", len(chunks))
	return Result{DocumentID: doc.DocumentID, Title: title, ChunkCount: len(chunks)}, nil
}

// BuildChunks numbers parts from zero and derives stable chunk ids.
func BuildChunks(documentID string, parts []string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, models.Chunk{
			ChunkID:    util.ChunkID(documentID, i, p),
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    p,
		})
	}
	return chunks
}

func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	return title
}
