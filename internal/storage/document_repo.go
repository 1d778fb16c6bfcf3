package storage

import (
	"context"
	"fmt"

	"supportbot/internal/models"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// CreateDocument inserts a document row. Inserting an existing id is a no-op,
// so retried ingestion steps do not fail on their own earlier write.
func (r *DocumentRepo) CreateDocument(ctx context.Context, d models.Document) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, title, content)
VALUES ($1::uuid, $2, $3)
ON CONFLICT (document_id) DO NOTHING`,
		d.DocumentID, d.Title, d.Content,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}
