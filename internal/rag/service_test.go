package rag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"supportbot/internal/models"
	"supportbot/internal/providers"
	"supportbot/internal/storage"
	"supportbot/internal/util"
	"supportbot/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	rows []storage.LLMCallRecord
}

func (r *recorder) Insert(_ context.Context, rec storage.LLMCallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rec)
	return nil
}

func (r *recorder) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row.Operation)
	}
	return out
}

func seededStore(t *testing.T, embed *providers.MockProvider, question string) *vector.MemoryStore {
	t.Helper()
	vecs, _, err := embed.Embed(context.Background(), providers.EmbedRequest{Inputs: []string{question}, Dimension: 64})
	require.NoError(t, err)
	store := vector.NewMemoryStore()
	doc := models.Document{DocumentID: "doc-1", Title: "Account Guide"}
	require.NoError(t, store.PutDocument(context.Background(), doc))
	require.NoError(t, store.PutChunks(context.Background(), doc, []models.Chunk{{
		ChunkID:    "chunk-0",
		DocumentID: "doc-1",
		ChunkIndex: 0,
		Content:    "Reset your password from Settings > Security.",
		Embedding:  vecs[0],
	}}))
	return store
}

func TestChatGroundedAnswer(t *testing.T) {
	mock := providers.NewMockProvider(64)
	question := "How do I reset my password?"
	rec := &recorder{}
	svc := NewService(ServiceDeps{
		Config:   testConfig(),
		LLM:      mock,
		Embed:    mock,
		Store:    seededStore(t, mock, question),
		Recorder: rec,
	})

	ans, err := svc.Chat(context.Background(), question)
	require.NoError(t, err)
	assert.False(t, ans.OutOfScope)
	assert.Equal(t, "Based on the documentation: Reset your password from Settings > Security.", ans.Reply)
	require.NotEmpty(t, ans.Sources)
	assert.Equal(t, "doc-1", ans.Sources[0].Source)
	assert.Equal(t, "Account Guide", ans.Sources[0].Title)
	assert.InDelta(t, 1.0, ans.Sources[0].Similarity, 1e-6)
	assert.Equal(t, []string{providers.OperationExpandQuery, providers.OperationAnswer}, rec.operations())
}

func TestChatEmptyIndexRefusesWithoutAnswerCall(t *testing.T) {
	mock := providers.NewMockProvider(64)
	rec := &recorder{}
	svc := NewService(ServiceDeps{
		Config:   testConfig(),
		LLM:      mock,
		Embed:    mock,
		Store:    vector.NewMemoryStore(),
		Recorder: rec,
	})

	ans, err := svc.Chat(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.True(t, ans.OutOfScope)
	assert.Equal(t, RefusalMessage, ans.Reply)
	assert.Equal(t, []models.Source{}, ans.Sources)
	assert.Equal(t, []string{providers.OperationExpandQuery}, rec.operations())
}

func TestChatRecordsFailedCalls(t *testing.T) {
	mock := providers.NewMockProvider(64)
	question := "How do I reset my password?"
	rec := &recorder{}
	llm := funcLLM(func(_ context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
		if req.Operation == providers.OperationAnswer {
			return providers.GenerateResponse{}, providers.ProviderInfo{Name: "openai", Model: "gpt-4o-mini"}, errors.New("status 429: rate limit")
		}
		return providers.GenerateResponse{Text: ""}, providers.ProviderInfo{Name: "openai"}, nil
	})
	svc := NewService(ServiceDeps{
		Config:   testConfig(),
		LLM:      llm,
		Embed:    mock,
		Store:    seededStore(t, mock, question),
		Recorder: rec,
	})

	_, err := svc.Chat(context.Background(), question)
	require.ErrorIs(t, err, util.ErrAnswerGeneration)
	require.Len(t, rec.rows, 2)
	assert.Equal(t, "error", rec.rows[1].Status)
	assert.Equal(t, string(providers.ErrorRate), rec.rows[1].ErrorType)
	assert.Equal(t, "gpt-4o-mini", rec.rows[1].Model)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	svc := NewService(ServiceDeps{Config: testConfig(), Store: vector.NewMemoryStore()})
	_, err := svc.Chat(context.Background(), " ")
	require.ErrorIs(t, err, util.ErrInvalidParameter)
}

func TestSearchUsesStricterThreshold(t *testing.T) {
	mock := providers.NewMockProvider(64)
	question := "How do I reset my password?"
	svc := NewService(ServiceDeps{
		Config: testConfig(),
		Embed:  mock,
		Store:  seededStore(t, mock, question),
	})

	got, err := svc.Search(context.Background(), question)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "chunk-0", got[0].ChunkID)

	got, err = svc.Search(context.Background(), "completely different words")
	require.NoError(t, err)
	assert.Empty(t, got)
}
