package storage

import (
	"context"
	"fmt"
)

type ChunkRecord struct {
	ChunkID         string
	DocumentID      string
	ChunkIndex      int
	Content         string
	EmbeddingVector string
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertChunks writes one embedded batch in a single transaction.
func (r *ChunkRepo) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (chunk_id, document_id, chunk_index, content, embedding)
VALUES ($1, $2::uuid, $3, $4, $5::vector)
ON CONFLICT (chunk_id) DO NOTHING`,
			c.ChunkID, c.DocumentID, c.ChunkIndex, c.Content, c.EmbeddingVector,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}
