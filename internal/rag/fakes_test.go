package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"supportbot/internal/config"
	"supportbot/internal/logging"
	"supportbot/internal/models"
	"supportbot/internal/providers"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type funcLLM func(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error)

func (f funcLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return f(ctx, req)
}

func replyLLM(text string) funcLLM {
	return func(context.Context, providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
		return providers.GenerateResponse{Text: text}, providers.ProviderInfo{Name: "fake"}, nil
	}
}

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(providers.GenerateResponse), args.Get(1).(providers.ProviderInfo), args.Error(2)
}

// scriptedEmbed maps each known text to a one-dimensional vector holding its
// id, so a scriptedStore can tell which variant it is serving.
type scriptedEmbed struct {
	mu    sync.Mutex
	ids   map[string]float32
	block map[string]bool
	fail  map[string]error
	calls [][]string
}

func (s *scriptedEmbed) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), req.Inputs...))
	s.mu.Unlock()
	info := providers.ProviderInfo{Name: "scripted"}
	out := make([][]float32, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		if s.block[in] {
			<-ctx.Done()
			return nil, info, ctx.Err()
		}
		if err := s.fail[in]; err != nil {
			return nil, info, err
		}
		id, ok := s.ids[in]
		if !ok {
			return nil, info, fmt.Errorf("unknown input %q", in)
		}
		out = append(out, []float32{id})
	}
	return out, info, nil
}

type scriptedStore struct {
	mu       sync.Mutex
	results  map[float32][]models.Match
	searches int
}

func (s *scriptedStore) PutDocument(context.Context, models.Document) error { return nil }

func (s *scriptedStore) PutChunks(context.Context, models.Document, []models.Chunk) error {
	return nil
}

func (s *scriptedStore) Search(_ context.Context, vec []float32, _ float64, limit int) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	res := s.results[vec[0]]
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func testConfig() config.Config {
	return config.Config{
		EmbedDim: 64,
		RAG: config.RAGConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			SimilarityThreshold: 0.35,
			SearchThreshold:     0.7,
			SearchLimit:         3,
			TopK:                8,
			MaxVariants:         5,
			BatchSize:           16,
			AnswerTemperature:   0.2,
			DedupVariants:       true,
			Timeouts: config.Timeouts{
				Embed:      time.Second,
				Search:     time.Second,
				Expand:     time.Second,
				Completion: time.Second,
			},
		},
	}
}

func observedLogger() (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.FromZap(zap.New(core)), logs
}

func match(chunkID string, index int, sim float64) models.Match {
	return models.Match{
		ChunkID:    chunkID,
		DocumentID: "doc-1",
		Title:      "Guide",
		ChunkIndex: index,
		Content:    "content of " + chunkID,
		Similarity: sim,
	}
}
