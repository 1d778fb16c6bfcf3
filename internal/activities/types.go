package activities

import "supportbot/internal/models"

// Application error types the workflows branch on.
const (
	ErrTypeNoExtractableText  = "NoExtractableText"
	ErrTypeUnreadableDocument = "UnreadableDocument"
	ErrTypeInvalidParameter   = "InvalidParameter"
)

type ListDocumentFilesInput struct {
	InputDir string `json:"input_dir"`
}

type ListDocumentFilesOutput struct {
	Paths []string `json:"paths"`
}

type ExtractTextInput struct {
	FilePath string `json:"file_path"`
	MIMEType string `json:"mime_type,omitempty"`
}

type ExtractTextOutput struct {
	Text     string `json:"text"`
	MIMEType string `json:"mime_type"`
}

type CreateDocumentInput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

type CreateDocumentOutput struct {
	Document models.Document `json:"document"`
}

type ChunkTextInput struct {
	DocumentID   string `json:"document_id"`
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

type ChunkTextOutput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type EmbedBatchInput struct {
	DocumentID string   `json:"document_id"`
	Offset     int      `json:"offset"`
	Texts      []string `json:"texts"`
}

type EmbedBatchOutput struct {
	Vectors [][]float32 `json:"vectors"`
}

type StoreChunksInput struct {
	Document models.Document `json:"document"`
	Chunks   []models.Chunk  `json:"chunks"`
	Vectors  [][]float32     `json:"vectors"`
}

type WriteDocumentArtifactsInput struct {
	DocumentID    string         `json:"document_id"`
	Metadata      map[string]any `json:"metadata"`
	Text          string         `json:"text,omitempty"`
	Chunks        []models.Chunk `json:"chunks"`
	ProcessingLog map[string]any `json:"processing_log"`
}

type WriteIngestSummaryInput struct {
	RunID   string         `json:"run_id"`
	Summary map[string]any `json:"summary"`
}
