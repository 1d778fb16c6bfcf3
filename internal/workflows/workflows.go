package workflows

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"supportbot/internal/activities"
	"supportbot/internal/extract"
	"supportbot/internal/ingest"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetIngestStatus   = "GetIngestStatus"
	QueryGetFolderProgress = "GetFolderProgress"

	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"

	defaultBatchSize = 16
)

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
}

// DocumentIngestWorkflow extracts, chunks, embeds and stores one uploaded
// file. Each batch is stored only after its embeddings came back. Files
// without usable text end the workflow with status "failed" rather than an
// error.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (DocumentIngestResult, error) {
	status := IngestStatus{
		FilePath:    input.FilePath,
		CurrentStep: "init",
		Status:      StatusProcessing,
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestStatus, func() (IngestStatus, error) {
		return status, nil
	}); err != nil {
		return DocumentIngestResult{}, err
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions())
	logger := workflow.GetLogger(ctx)

	begin := func(step string) {
		status.CurrentStep = step
		status.Steps[step] = StatusProcessing
	}
	done := func() { status.Steps[status.CurrentStep] = "done" }
	fail := func(reason string) DocumentIngestResult {
		status.Status = StatusFailed
		status.FailReason = reason
		status.Steps[status.CurrentStep] = StatusFailed
		logger.Warn("document ingest failed", "file", input.FilePath, "reason", reason)
		return DocumentIngestResult{DocumentID: status.DocumentID, Title: status.Title, Status: StatusFailed, FailReason: reason}
	}

	begin("extract_text")
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{
		FilePath: input.FilePath,
		MIMEType: input.MIMEType,
	}).Get(ctx, &textOut); err != nil {
		switch applicationErrorType(err) {
		case activities.ErrTypeNoExtractableText:
			return fail("no extractable text found"), nil
		case activities.ErrTypeUnreadableDocument:
			return fail(err.Error()), nil
		}
		return DocumentIngestResult{}, err
	}
	done()

	begin("create_document")
	var documentID string
	if err := workflow.SideEffect(ctx, func(workflow.Context) any {
		return uuid.NewString()
	}).Get(&documentID); err != nil {
		return DocumentIngestResult{}, err
	}
	var docOut activities.CreateDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "CreateDocumentActivity", activities.CreateDocumentInput{
		DocumentID: documentID,
		Title:      titleFor(input),
		Content:    textOut.Text,
	}).Get(ctx, &docOut); err != nil {
		return DocumentIngestResult{}, err
	}
	doc := docOut.Document
	status.DocumentID = doc.DocumentID
	status.Title = doc.Title
	done()

	begin("chunk_text")
	var chunkOut activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkTextActivity", activities.ChunkTextInput{
		DocumentID:   doc.DocumentID,
		Text:         textOut.Text,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
	}).Get(ctx, &chunkOut); err != nil {
		if applicationErrorType(err) == activities.ErrTypeInvalidParameter {
			return fail(err.Error()), nil
		}
		return DocumentIngestResult{}, err
	}
	chunks := chunkOut.Chunks
	if len(chunks) == 0 {
		return fail("no chunkable content"), nil
	}
	status.ChunksTotal = len(chunks)
	done()

	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]
		texts := make([]string, 0, len(batch))
		for _, c := range batch {
			texts = append(texts, c.Content)
		}

		begin("embed_batch")
		var embedOut activities.EmbedBatchOutput
		if err := workflow.ExecuteActivity(ctx, "EmbedBatchActivity", activities.EmbedBatchInput{
			DocumentID: doc.DocumentID,
			Offset:     start,
			Texts:      texts,
		}).Get(ctx, &embedOut); err != nil {
			return DocumentIngestResult{}, err
		}
		done()

		begin("store_chunks")
		if err := workflow.ExecuteActivity(ctx, "StoreChunksActivity", activities.StoreChunksInput{
			Document: doc,
			Chunks:   batch,
			Vectors:  embedOut.Vectors,
		}).Get(ctx, nil); err != nil {
			return DocumentIngestResult{}, err
		}
		status.ChunksStored += len(batch)
		done()
	}

	begin("write_artifacts")
	if err := workflow.ExecuteActivity(ctx, "WriteDocumentArtifactsActivity", activities.WriteDocumentArtifactsInput{
		DocumentID: doc.DocumentID,
		Metadata: map[string]any{
			"document_id": doc.DocumentID,
			"title":       doc.Title,
			"filename":    filenameFor(input),
			"mime_type":   textOut.MIMEType,
			"chunk_count": len(chunks),
		},
		Text:   textOut.Text,
		Chunks: chunks,
		ProcessingLog: map[string]any{
			"status":       StatusProcessed,
			"steps":        status.Steps,
			"generated_at": workflow.Now(ctx),
		},
	}).Get(ctx, nil); err != nil {
		return DocumentIngestResult{}, err
	}
	done()

	status.CurrentStep = "done"
	status.Status = StatusProcessed
	return DocumentIngestResult{
		DocumentID: doc.DocumentID,
		Title:      doc.Title,
		ChunkCount: len(chunks),
		Status:     StatusProcessed,
	}, nil
}

// FolderIngestWorkflow runs DocumentIngestWorkflow as a child for every
// supported file in a directory, a few at a time.
func FolderIngestWorkflow(ctx workflow.Context, input FolderIngestInput) (FolderIngestProgress, error) {
	progress := FolderIngestProgress{
		PerFile:       map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetFolderProgress, func() (FolderIngestProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var listOut activities.ListDocumentFilesOutput
	if err := workflow.ExecuteActivity(ctx, "ListDocumentFilesActivity", activities.ListDocumentFilesInput{InputDir: input.InputDir}).Get(ctx, &listOut); err != nil {
		return progress, err
	}
	paths := listOut.Paths
	progress.Total = len(paths)
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}
	runID := workflow.GetInfo(ctx).WorkflowExecution.ID

	for i := 0; i < len(paths); i += maxChildren {
		end := min(i+maxChildren, len(paths))
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		for _, path := range paths[i:end] {
			progress.PerFile[path] = StatusProcessing
			childID := runID + "-" + sanitizeID(filepath.Base(path))
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: childID})
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, DocumentIngestWorkflow, DocumentIngestInput{
				FilePath:     path,
				ChunkSize:    input.ChunkSize,
				ChunkOverlap: input.ChunkOverlap,
				BatchSize:    input.BatchSize,
			}))
			progress.ChildWorkflow[path] = childID
		}
		for idx, f := range futures {
			path := paths[i+idx]
			var res DocumentIngestResult
			if err := f.Get(ctx, &res); err != nil {
				res.Status = StatusFailed
			}
			progress.Done++
			if res.Status == StatusFailed {
				progress.Failed++
			}
			progress.PerFile[path] = res.Status
		}
	}

	if err := workflow.ExecuteActivity(ctx, "WriteIngestSummaryActivity", activities.WriteIngestSummaryInput{
		RunID: runID,
		Summary: map[string]any{
			"input_dir":    input.InputDir,
			"total":        progress.Total,
			"done":         progress.Done,
			"failed":       progress.Failed,
			"per_file":     progress.PerFile,
			"generated_at": workflow.Now(ctx),
		},
	}).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("write ingest summary failed", "runID", runID, "error", err)
	}
	return progress, nil
}

func applicationErrorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type()
	}
	return ""
}

func titleFor(input DocumentIngestInput) string {
	if t := strings.TrimSpace(input.Title); t != "" {
		return t
	}
	return ingest.NormalizeTitle(extract.TitleFromFilename(filenameFor(input)))
}

func filenameFor(input DocumentIngestInput) string {
	if input.Filename != "" {
		return input.Filename
	}
	return filepath.Base(input.FilePath)
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
