package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"supportbot/internal/models"

	"github.com/jackc/pgx/v5"
)

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

const searchSQL = `
SELECT c.chunk_id,
       c.document_id::text,
       d.title,
       c.chunk_index,
       c.content,
       1 - (c.embedding <=> $1::vector) AS similarity
FROM chunks c
JOIN documents d ON d.document_id = c.document_id
WHERE 1 - (c.embedding <=> $1::vector) >= $2
ORDER BY c.embedding <=> $1::vector, c.chunk_index
LIMIT $3`

// Search returns up to limit chunks whose cosine similarity to queryVec is
// at least threshold.
func (s *Searcher) Search(ctx context.Context, queryVec []float32, threshold float64, limit int) ([]models.Match, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 8
	}
	rows, err := s.q.Query(ctx, searchSQL, ToLiteral(queryVec), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.Match, 0, limit)
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.Title, &m.ChunkIndex, &m.Content, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk match: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// ToLiteral renders v in pgvector's text form, e.g. "[0.1,0.2]".
func ToLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
