package activities

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"supportbot/internal/config"
	"supportbot/internal/extract"
	"supportbot/internal/ingest"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/rag"
	"supportbot/internal/util"
	"supportbot/internal/vector"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
)

type Activities struct {
	cfg      config.Config
	embedder *rag.Embedder
	store    vector.Store
	log      *logging.Logger
}

func New(cfg config.Config, embedder *rag.Embedder, store vector.Store, log *logging.Logger) *Activities {
	if log == nil {
		log = logging.Nop()
	}
	return &Activities{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		log:      log.With("component", "activities"),
	}
}

func (a *Activities) ListDocumentFilesActivity(ctx context.Context, in ListDocumentFilesInput) (ListDocumentFilesOutput, error) {
	_ = ctx
	entries, err := os.ReadDir(in.InputDir)
	if err != nil {
		return ListDocumentFilesOutput{}, fmt.Errorf("read input dir: %w", err)
	}
	paths := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if extract.DetectMIME("", e.Name()) == "" {
			continue
		}
		paths = append(paths, filepath.Join(in.InputDir, e.Name()))
	}
	sort.Strings(paths)
	return ListDocumentFilesOutput{Paths: paths}, nil
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	mimeType := extract.DetectMIME(in.MIMEType, in.FilePath)
	text, err := extract.ExtractFile(in.FilePath, mimeType)
	switch {
	case err == nil:
		return ExtractTextOutput{Text: text, MIMEType: mimeType}, nil
	case errors.Is(err, util.ErrNoExtractableText):
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoExtractableText, err)
	case extract.IsClientError(err):
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnreadableDocument, err)
	default:
		return ExtractTextOutput{}, err
	}
}

// CreateDocumentActivity stores the document row. The workflow supplies the id
// so a retried attempt writes the same row.
func (a *Activities) CreateDocumentActivity(ctx context.Context, in CreateDocumentInput) (CreateDocumentOutput, error) {
	id := strings.TrimSpace(in.DocumentID)
	if id == "" {
		id = uuid.NewString()
	}
	doc := models.Document{
		DocumentID: id,
		Title:      ingest.NormalizeTitle(in.Title),
		Content:    in.Content,
	}
	if err := a.store.PutDocument(ctx, doc); err != nil {
		return CreateDocumentOutput{}, fmt.Errorf("store document: %w", err)
	}
	return CreateDocumentOutput{Document: doc}, nil
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.cfg.RAG.ChunkSize
		in.ChunkOverlap = a.cfg.RAG.ChunkOverlap
	}
	parts, err := util.ChunkText(util.SanitizeText(in.Text), in.ChunkSize, in.ChunkOverlap)
	if err != nil {
		return ChunkTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidParameter, err)
	}
	return ChunkTextOutput{Chunks: ingest.BuildChunks(in.DocumentID, parts)}, nil
}

func (a *Activities) EmbedBatchActivity(ctx context.Context, in EmbedBatchInput) (EmbedBatchOutput, error) {
	vectors, err := a.embedder.Embed(ctx, in.Texts)
	if err != nil {
		a.log.Warn("embed batch failed", "document_id", in.DocumentID, "offset", in.Offset, "error", err)
		return EmbedBatchOutput{}, err
	}
	return EmbedBatchOutput{Vectors: vectors}, nil
}

func (a *Activities) StoreChunksActivity(ctx context.Context, in StoreChunksInput) error {
	if len(in.Chunks) != len(in.Vectors) {
		err := fmt.Errorf("%w: %d chunks but %d vectors", util.ErrInvalidParameter, len(in.Chunks), len(in.Vectors))
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidParameter, err)
	}
	chunks := make([]models.Chunk, len(in.Chunks))
	copy(chunks, in.Chunks)
	for i := range chunks {
		chunks[i].Embedding = in.Vectors[i]
	}
	return a.store.PutChunks(ctx, in.Document, chunks)
}

func (a *Activities) WriteDocumentArtifactsActivity(ctx context.Context, in WriteDocumentArtifactsInput) error {
	_ = ctx
	base := filepath.Join(a.cfg.DataOutRoot, "documents", in.DocumentID)
	if err := util.EnsureDir(base); err != nil {
		return err
	}
	if err := util.WriteJSONAtomic(filepath.Join(base, "metadata.json"), in.Metadata); err != nil {
		return err
	}
	if in.Text != "" {
		if err := util.WriteTextAtomic(filepath.Join(base, "content.txt"), in.Text); err != nil {
			return err
		}
	}
	if err := util.WriteJSONLinesAtomic(filepath.Join(base, "chunks.jsonl"), in.Chunks); err != nil {
		return err
	}
	return util.WriteJSONAtomic(filepath.Join(base, "processing_log.json"), in.ProcessingLog)
}

func (a *Activities) WriteIngestSummaryActivity(ctx context.Context, in WriteIngestSummaryInput) error {
	_ = ctx
	return util.WriteJSONAtomic(filepath.Join(a.cfg.DataOutRoot, "runs", in.RunID, "summary.json"), in.Summary)
}
