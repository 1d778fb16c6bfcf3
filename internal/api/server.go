package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"supportbot/internal/config"
	"supportbot/internal/extract"
	"supportbot/internal/ingest"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/util"
	"supportbot/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"golang.org/x/time/rate"
)

type ChatService interface {
	Chat(ctx context.Context, message string) (models.Answer, error)
	Search(ctx context.Context, query string) ([]models.Match, error)
}

type IngestService interface {
	Ingest(ctx context.Context, title, content string) (ingest.Result, error)
}

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type Deps struct {
	Config config.Config
	Chat   ChatService
	Ingest IngestService
	// Temporal is optional; without it the ingest-jobs routes answer 503.
	Temporal WorkflowClient
	Logger   *logging.Logger
}

type Server struct {
	cfg      config.Config
	chat     ChatService
	ingest   IngestService
	temporal WorkflowClient
	limiter  *rate.Limiter
	log      *logging.Logger
}

func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		cfg:      d.Config,
		chat:     d.Chat,
		ingest:   d.Ingest,
		temporal: d.Temporal,
		limiter:  newLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst),
		log:      log.With("component", "api"),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/chat", s.limited(s.handleChat))
	mux.HandleFunc("/search", s.limited(s.handleSearch))
	mux.HandleFunc("/query-ingest", s.limited(s.handleQueryIngest))
	mux.HandleFunc("/ingest-file-upload", s.limited(s.handleFileUpload))
	mux.HandleFunc("/ingest-jobs", s.handleIngestJobs)
	mux.HandleFunc("/ingest-jobs/", s.handleIngestJobScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: missing 'message' string in body", util.ErrInvalidParameter))
		return
	}
	ans, err := s.chat.Chat(r.Context(), req.Message)
	if err != nil {
		s.writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	matches, err := s.chat.Search(r.Context(), req.Query)
	if err != nil {
		s.writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleQueryIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: missing 'content' string in body", util.ErrInvalidParameter))
		return
	}
	res, err := s.ingest.Ingest(r.Context(), req.Title, req.Content)
	if err != nil {
		s.writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"documentId": res.DocumentID,
		"chunkCount": res.ChunkCount,
	})
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	fh, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	src, err := fh.Open()
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, fmt.Errorf("open upload: %w", err))
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err))
		return
	}

	mimeType := extract.DetectMIME(fh.Header.Get("Content-Type"), fh.Filename)
	text, err := extract.Extract(mimeType, data)
	if err != nil {
		s.writeErr(w, statusFor(err), err)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = extract.TitleFromFilename(fh.Filename)
	}
	res, err := s.ingest.Ingest(r.Context(), title, text)
	if err != nil {
		s.writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"documentId": res.DocumentID,
		"chunkCount": res.ChunkCount,
		"title":      res.Title,
	})
}

func (s *Server) handleIngestJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.temporal == nil {
		s.writeErr(w, http.StatusServiceUnavailable, errWorkflowsDisabled)
		return
	}
	fh, ok := s.uploadedFile(w, r)
	if !ok {
		return
	}
	mimeType := extract.DetectMIME(fh.Header.Get("Content-Type"), fh.Filename)
	if !extract.Supported(mimeType) {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: %s", util.ErrUnsupportedFormat, fh.Filename))
		return
	}
	inDir := filepath.Join(s.cfg.DataInRoot, "uploads")
	if err := util.EnsureDir(inDir); err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	savedPath, err := saveUploadedFile(inDir, fh)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "ingest-" + uuid.NewString(),
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
		FilePath:     savedPath,
		Filename:     filepath.Base(fh.Filename),
		MIMEType:     mimeType,
		Title:        strings.TrimSpace(r.FormValue("title")),
		ChunkSize:    s.cfg.RAG.ChunkSize,
		ChunkOverlap: s.cfg.RAG.ChunkOverlap,
		BatchSize:    s.cfg.RAG.BatchSize,
	})
	if err != nil {
		s.writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("start ingest workflow: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflowId": we.GetID(), "runId": we.GetRunID()})
}

func (s *Server) handleIngestJobScoped(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ingest-jobs/"), "/")
	if id == "" || strings.Contains(id, "/") {
		s.writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		s.writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.temporal == nil {
		s.writeErr(w, http.StatusServiceUnavailable, errWorkflowsDisabled)
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), id, "", workflows.QueryGetIngestStatus)
	if err != nil {
		s.writeErr(w, http.StatusNotFound, err)
		return
	}
	var status workflows.IngestStatus
	if err := resp.Get(&status); err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

var errWorkflowsDisabled = errors.New("durable ingestion is not configured")

// uploadedFile parses the multipart body and returns the "file" part, or the
// first file part when the client used another field name.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (*multipart.FileHeader, bool) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErr(w, http.StatusRequestEntityTooLarge, err)
			return nil, false
		}
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return nil, false
	}
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		return files[0], true
	}
	if fh, ok := firstSingleFile(r.MultipartForm.File); ok {
		return fh, true
	}
	s.writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
	return nil, false
}

// saveUploadedFile stores the upload under a content-hash prefix so two
// uploads with the same name do not overwrite each other.
func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	finalPath := filepath.Join(dstDir, fmt.Sprintf("%x", h.Sum(nil))[:16]+"-"+filepath.Base(fh.Filename))
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("atomic move upload: %w", err)
	}
	return finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	if code >= 500 {
		s.log.Error("request failed", "status", code, "code", apiErr.Code, "error", err)
	}
	writeJSON(w, code, map[string]any{
		"error": apiErr.Message,
		"code":  apiErr.Code,
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrInvalidParameter),
		errors.Is(err, util.ErrUnsupportedFormat),
		errors.Is(err, util.ErrExtractionFailed),
		errors.Is(err, util.ErrNoExtractableText):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrEmbeddingService), errors.Is(err, util.ErrAnswerGeneration):
		return http.StatusBadGateway
	case errors.Is(err, util.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	switch {
	case status == http.StatusBadGateway && errors.Is(err, util.ErrEmbeddingService):
		return apiError{Code: "SB-API-5021", Message: "Embedding service unavailable. Retry shortly."}
	case status == http.StatusBadGateway:
		return apiError{Code: "SB-API-5022", Message: "Answer generation failed. Retry shortly."}
	case status == http.StatusServiceUnavailable && errors.Is(err, util.ErrRetrievalUnavailable):
		return apiError{Code: "SB-API-5031", Message: "Document search is unavailable. Retry shortly."}
	case status == http.StatusServiceUnavailable && errors.Is(err, errWorkflowsDisabled):
		return apiError{Code: "SB-API-5030", Message: "Durable ingestion is not configured on this server."}
	case status == http.StatusServiceUnavailable:
		return apiError{Code: "SB-API-5032", Message: "Workflow service unavailable. Retry shortly."}
	case status >= 500:
		raw := ""
		if err != nil {
			raw = strings.ToLower(err.Error())
		}
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{Code: "SB-DB-5001", Message: "Database schema is not initialized. Enable auto-migrate and retry."}
		case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{Code: "SB-DB-5002", Message: "Database connection is unavailable. Check local services and retry."}
		}
		return apiError{Code: "SB-API-5000", Message: "Internal server error. Please retry or check service logs."}
	case status == http.StatusNotFound:
		return apiError{Code: "SB-API-4004", Message: "Requested resource was not found."}
	case status == http.StatusMethodNotAllowed:
		return apiError{Code: "SB-API-4005", Message: "This endpoint does not support the requested method."}
	case status == http.StatusRequestEntityTooLarge:
		return apiError{Code: "SB-API-4013", Message: "Uploaded file is too large."}
	case status == http.StatusTooManyRequests:
		return apiError{Code: "SB-API-4029", Message: "Too many requests. Retry shortly."}
	}

	// 4xx messages come from our own validation and are safe to echo.
	msg := "Invalid request. Check inputs and retry."
	if err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case errors.Is(err, util.ErrUnsupportedFormat):
			msg = "Unsupported file type. Upload a PDF, DOCX or plain-text file."
		case errors.Is(err, util.ErrNoExtractableText):
			msg = "No extractable text found in the uploaded file."
		case errors.Is(err, util.ErrExtractionFailed):
			msg = "Could not read the uploaded file."
		default:
			msg = err.Error()
		}
	}
	return apiError{Code: "SB-API-4001", Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
