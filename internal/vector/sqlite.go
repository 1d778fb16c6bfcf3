package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"supportbot/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents and embedded chunks in a single SQLite file and
// searches by scanning every chunk. It suits single-node installs that do
// not run Postgres.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
  document_id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS chunks (
  chunk_id TEXT PRIMARY KEY,
  document_id TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
  chunk_index INTEGER NOT NULL,
  content TEXT NOT NULL,
  embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutDocument(ctx context.Context, doc models.Document) error {
	if doc.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (document_id, title, content)
VALUES (?, ?, ?)
ON CONFLICT(document_id) DO NOTHING`, doc.DocumentID, doc.Title, doc.Content)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// PutChunks writes the batch in one transaction. Chunk ids already present
// are left untouched.
func (s *SQLiteStore) PutChunks(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunks tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
INSERT INTO documents (document_id, title, content)
VALUES (?, ?, ?)
ON CONFLICT(document_id) DO NOTHING`, doc.DocumentID, doc.Title, doc.Content); err != nil {
		return fmt.Errorf("ensure document: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (chunk_id, document_id, chunk_index, content, embedding)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(chunk_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d of document %s has no embedding", c.ChunkIndex, c.DocumentID)
		}
		if _, err := stmt.ExecContext(ctx, c.ChunkID, c.DocumentID, c.ChunkIndex, c.Content, encodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, vec []float32, threshold float64, limit int) ([]models.Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT c.chunk_id, c.document_id, d.title, c.chunk_index, c.content, c.embedding
FROM chunks c
JOIN documents d ON d.document_id = c.document_id`)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Match, 0)
	for rows.Next() {
		var (
			m    models.Match
			blob []byte
		)
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.Title, &m.ChunkIndex, &m.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		m.Similarity = Cosine(vec, decodeVector(blob))
		if m.Similarity < threshold {
			continue
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return rankMatches(out, limit), nil
}

// encodeVector packs float32s little-endian, four bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
