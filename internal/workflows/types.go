package workflows

type DocumentIngestInput struct {
	FilePath     string `json:"file_path"`
	Filename     string `json:"filename,omitempty"`
	MIMEType     string `json:"mime_type,omitempty"`
	Title        string `json:"title,omitempty"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
	BatchSize    int    `json:"batch_size,omitempty"`
}

type DocumentIngestResult struct {
	DocumentID string `json:"document_id,omitempty"`
	Title      string `json:"title,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}

type IngestStatus struct {
	DocumentID   string            `json:"document_id,omitempty"`
	FilePath     string            `json:"file_path"`
	Title        string            `json:"title,omitempty"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	FailReason   string            `json:"fail_reason,omitempty"`
	ChunksTotal  int               `json:"chunks_total"`
	ChunksStored int               `json:"chunks_stored"`
	Steps        map[string]string `json:"steps"`
}

type FolderIngestInput struct {
	InputDir              string `json:"input_dir"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
	ChunkSize             int    `json:"chunk_size,omitempty"`
	ChunkOverlap          int    `json:"chunk_overlap,omitempty"`
	BatchSize             int    `json:"batch_size,omitempty"`
}

type FolderIngestProgress struct {
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerFile       map[string]string `json:"per_file"`
	ChildWorkflow map[string]string `json:"child_workflow"`
}
