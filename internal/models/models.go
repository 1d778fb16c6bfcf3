package models

import "time"

type Document struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// Match is one similarity-search hit with its provenance.
type Match struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Label is what the context block and UI show as a chunk's origin.
func (m Match) Label() string {
	if m.Title != "" {
		return m.Title
	}
	if m.DocumentID != "" {
		return m.DocumentID
	}
	return "unknown_source"
}

type Source struct {
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	ChunkIndex int     `json:"chunkIndex"`
	Similarity float64 `json:"similarity"`
}

const (
	StatusGrounded   = "grounded"
	StatusOutOfScope = "out_of_scope"
)

type Answer struct {
	Status     string   `json:"-"`
	Reply      string   `json:"reply"`
	Sources    []Source `json:"sources"`
	OutOfScope bool     `json:"outOfScope"`
}
