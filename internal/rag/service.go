package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/providers"
	"supportbot/internal/storage"
	"supportbot/internal/util"
	"supportbot/internal/vector"
)

// CallRecorder persists one row per LLM call. storage.LLMAuditRepo
// satisfies it.
type CallRecorder interface {
	Insert(ctx context.Context, rec storage.LLMCallRecord) error
}

type ServiceDeps struct {
	Config   config.Config
	LLM      providers.LLMProvider
	Embed    providers.EmbeddingProvider
	Store    vector.Store
	Recorder CallRecorder
	Logger   *logging.Logger
}

// Service answers chat messages from the indexed documentation.
type Service struct {
	cfg       config.RAGConfig
	embedder  *Embedder
	retriever *Retriever
	answerer  *Answerer
	store     vector.Store
	log       *logging.Logger
}

func NewService(d ServiceDeps) *Service {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	llm := d.LLM
	if llm != nil && d.Recorder != nil {
		llm = &recordingLLM{inner: llm, rec: d.Recorder, log: log}
	}
	embedder := NewEmbedder(d.Embed, d.Config)
	expander := NewExpander(llm, d.Config.RAG, log)
	return &Service{
		cfg:       d.Config.RAG,
		embedder:  embedder,
		retriever: NewRetriever(expander, embedder, d.Store, d.Config.RAG, log),
		answerer:  NewAnswerer(llm, d.Config.RAG, log),
		store:     d.Store,
		log:       log.With("component", "chat"),
	}
}

func (s *Service) Chat(ctx context.Context, message string) (models.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Answer{}, fmt.Errorf("%w: message is required", util.ErrInvalidParameter)
	}
	start := time.Now()
	matches, err := s.retriever.Retrieve(ctx, message, s.cfg.TopK)
	if err != nil {
		return models.Answer{}, err
	}
	ans, err := s.answerer.Answer(ctx, message, matches)
	if err != nil {
		return models.Answer{}, err
	}
	s.log.Info("chat answered",
		"status", ans.Status,
		"matches", len(matches),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ans, nil
}

// Search is a plain single-query similarity lookup with the stricter
// search threshold and limit.
func (s *Service) Search(ctx context.Context, query string) ([]models.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", util.ErrInvalidParameter)
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.cfg.Timeouts.Search > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeouts.Search)
		defer cancel()
	}
	matches, err := s.store.Search(ctx, vec, s.cfg.SearchThreshold, s.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrRetrievalUnavailable, err)
	}
	return matches, nil
}

type recordingLLM struct {
	inner providers.LLMProvider
	rec   CallRecorder
	log   *logging.Logger
}

func (r *recordingLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	start := time.Now()
	resp, info, err := r.inner.Generate(ctx, req)
	rec := storage.LLMCallRecord{
		Operation:    req.Operation,
		ProviderName: info.Name,
		Model:        info.Model,
		Status:       "ok",
		LatencyMS:    time.Since(start).Milliseconds(),
	}
	if err != nil {
		rec.Status = "error"
		rec.ErrorType = string(providers.ClassifyError(err))
	}
	// the request context may already be done; the audit row should still land
	if werr := r.rec.Insert(context.WithoutCancel(ctx), rec); werr != nil {
		r.log.Warn("record llm call failed", "operation", req.Operation, "error", werr)
	}
	return resp, info, err
}
